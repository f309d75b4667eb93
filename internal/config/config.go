package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pion/stun/v3"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const EnvPrefix = "CALLRELAY"

type ICEServer struct {
	URLs       []string `mapstructure:"urls"`
	Username   string   `mapstructure:"username"`
	Credential string   `mapstructure:"credential"`
}

type History struct {
	Enabled   bool   `mapstructure:"enabled"`
	Path      string `mapstructure:"path"`
	InMemory  bool   `mapstructure:"in_memory"`
	QueueSize int    `mapstructure:"queue_size"`
	ListLimit int    `mapstructure:"list_limit"`
}

// Session controls the optional cookie that lets an anonymous client keep its
// participant id across reconnects. Off by default: without it an absent
// identity header means the connection id is the participant id.
type Session struct {
	Sticky bool          `mapstructure:"sticky"`
	Secure bool          `mapstructure:"secure"`
	MaxAge time.Duration `mapstructure:"max_age"`
}

type Config struct {
	Mode     string `mapstructure:"mode"`
	Port     int    `mapstructure:"port"`
	LogLevel string `mapstructure:"log_level"`
	Secret   string `mapstructure:"secret"`

	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`
	PongWait   time.Duration `mapstructure:"pong_wait"`
	WriteWait  time.Duration `mapstructure:"write_wait"`
	SendBuffer int           `mapstructure:"send_buffer"`

	ParticipantHeader  string        `mapstructure:"participant_header"`
	BackpressurePolicy string        `mapstructure:"backpressure_policy"`
	JoinRateLimit      int           `mapstructure:"join_rate_limit"`
	JoinRateInterval   time.Duration `mapstructure:"join_rate_interval"`

	Session    Session     `mapstructure:"session"`
	History    History     `mapstructure:"history"`
	ICEServers []ICEServer `mapstructure:"ice_servers"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("log_level", "info")
	v.SetDefault("secret", "change-me")
	v.SetDefault("read_limit", 65536)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("pong_wait", "60s")
	v.SetDefault("write_wait", "10s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("participant_header", "X-Participant-ID")
	v.SetDefault("backpressure_policy", "drop")
	v.SetDefault("join_rate_limit", 5)
	v.SetDefault("join_rate_interval", "10s")
	v.SetDefault("session.sticky", false)
	v.SetDefault("session.secure", true)
	v.SetDefault("session.max_age", "24h")
	v.SetDefault("history.enabled", false)
	v.SetDefault("history.path", "./data/history")
	v.SetDefault("history.in_memory", false)
	v.SetDefault("history.queue_size", 1024)
	v.SetDefault("history.list_limit", 100)
	v.SetDefault("ice_servers", []map[string]any{
		{"urls": []string{"stun:stun.l.google.com:19302"}},
	})
}

// Load reads config/config.<env>.yaml, then CALLRELAY_* env vars, then any
// changed flags from fs. A missing file is not an error.
func Load(fs *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	env := v.GetString("env")
	if env == "" {
		env = os.Getenv("CONFIG_ENV")
	}
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	if err := v.ReadInConfig(); err != nil {
		log.Warn().Str("module", "config").Str("file", fileName).Msg("config file not found, using defaults")
	} else {
		log.Info().Str("module", "config").Str("file", fileName).Msg("loaded config")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Info().Str("module", "config").Str("mode", cfg.Mode).Int("port", cfg.Port).
		Str("policy", cfg.BackpressurePolicy).Bool("history", cfg.History.Enabled).Msg("config ready")
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port out of range: %d", c.Port))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send_buffer must be positive"))
	}
	if c.ReadLimit <= 0 {
		errs = append(errs, errors.New("read_limit must be positive"))
	}
	if c.PingPeriod <= 0 || c.PongWait <= c.PingPeriod {
		errs = append(errs, errors.New("ping_period must be positive and shorter than pong_wait"))
	}
	if c.JoinRateLimit <= 0 || c.JoinRateInterval <= 0 {
		errs = append(errs, errors.New("join rate limit and interval must be positive"))
	}
	if c.Session.Sticky && c.Session.MaxAge <= 0 {
		errs = append(errs, errors.New("session.max_age must be positive when session.sticky is set"))
	}
	switch c.BackpressurePolicy {
	case "drop", "close":
	default:
		errs = append(errs, fmt.Errorf("unknown backpressure_policy %q", c.BackpressurePolicy))
	}
	for _, s := range c.ICEServers {
		if len(s.URLs) == 0 {
			errs = append(errs, errors.New("ice server without urls"))
		}
		for _, raw := range s.URLs {
			if _, err := stun.ParseURI(raw); err != nil {
				errs = append(errs, fmt.Errorf("ice server url %q: %w", raw, err))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
