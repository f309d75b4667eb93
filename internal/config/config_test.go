package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"
)

func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	req := require.New(t)
	inTempDir(t)
	t.Setenv("CONFIG_ENV", "missing")

	cfg, err := Load(nil)
	req.NoError(err)

	req.Equal(8080, cfg.Port)
	req.Equal("drop", cfg.BackpressurePolicy)
	req.Equal(54*time.Second, cfg.PingPeriod)
	req.Equal(64, cfg.SendBuffer)
	req.False(cfg.History.Enabled)
	req.False(cfg.Session.Sticky)
	req.True(cfg.Session.Secure)
	req.Equal(24*time.Hour, cfg.Session.MaxAge)
	req.Len(cfg.ICEServers, 1)
	req.Equal([]string{"stun:stun.l.google.com:19302"}, cfg.ICEServers[0].URLs)
}

func TestLoad_FileEnvAndFlags(t *testing.T) {
	req := require.New(t)
	dir := inTempDir(t)
	req.NoError(os.MkdirAll(filepath.Join(dir, "config"), 0o755))
	yaml := `
port: 9000
mode: debug
backpressure_policy: close
history:
  enabled: true
  in_memory: true
ice_servers:
  - urls: ["turn:turn.example.org:3478?transport=udp"]
    username: u
    credential: p
`
	req.NoError(os.WriteFile(filepath.Join(dir, "config", "config.test.yaml"), []byte(yaml), 0o644))
	t.Setenv("CALLRELAY_SEND_BUFFER", "8")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("env", "", "")
	fs.Int("port", 0, "")
	req.NoError(fs.Parse([]string{"--env=test", "--port=9100"}))

	cfg, err := Load(fs)
	req.NoError(err)

	req.Equal(9100, cfg.Port)
	req.Equal("debug", cfg.Mode)
	req.Equal("close", cfg.BackpressurePolicy)
	req.Equal(8, cfg.SendBuffer)
	req.True(cfg.History.Enabled)
	req.True(cfg.History.InMemory)
	req.Equal("u", cfg.ICEServers[0].Username)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	req := require.New(t)
	inTempDir(t)
	t.Setenv("CONFIG_ENV", "missing")
	cfg, err := Load(nil)
	req.NoError(err)

	bad := *cfg
	bad.BackpressurePolicy = "retry"
	req.Error(bad.Validate())

	bad = *cfg
	bad.ICEServers = []ICEServer{{URLs: []string{"http://not-ice"}}}
	req.Error(bad.Validate())

	bad = *cfg
	bad.PongWait = bad.PingPeriod
	req.Error(bad.Validate())

	bad = *cfg
	bad.SendBuffer = 0
	req.Error(bad.Validate())
}
