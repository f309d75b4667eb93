package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	router "github.com/dkeye/callrelay/internal/adapters/http"
	wssignal "github.com/dkeye/callrelay/internal/adapters/signal"
	"github.com/dkeye/callrelay/internal/adapters/storage"
	"github.com/dkeye/callrelay/internal/app"
	"github.com/dkeye/callrelay/internal/app/orch"
	"github.com/dkeye/callrelay/internal/config"
)

var rootCmd = &cobra.Command{
	Use:          "callrelay",
	Short:        "Real-time call signaling relay",
	Long:         `callrelay accepts participant websockets, groups them into rooms and relays offers, answers and ICE candidates between them. Media never passes through it.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.Flags().String("env", "", "config environment, reads config/config.<env>.yaml")
	rootCmd.Flags().Int("port", 8080, "listen port")
	rootCmd.Flags().String("mode", "release", "gin mode: debug, release or test")
}

func main() {
	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("callrelay exited")
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	policy, err := app.PolicyFromName(cfg.BackpressurePolicy)
	if err != nil {
		return err
	}
	opts := []orch.Option{orch.WithPolicy(policy)}

	var history *storage.History
	if cfg.History.Enabled {
		history, err = storage.OpenHistory(storage.HistoryConfig{
			Path:      cfg.History.Path,
			InMemory:  cfg.History.InMemory,
			QueueSize: cfg.History.QueueSize,
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := history.Close(); err != nil {
				log.Error().Err(err).Msg("history close")
			}
		}()
		opts = append(opts, orch.WithHistory(history))
	}

	sup := orch.NewSupervisor(opts...)
	limiter := wssignal.NewJoinRateLimiter(cfg.JoinRateLimit, cfg.JoinRateInterval)
	ctl := wssignal.NewSignalWSController(sup, limiter, wssignal.Options{
		ReadLimit:  cfg.ReadLimit,
		PingPeriod: cfg.PingPeriod,
		PongWait:   cfg.PongWait,
		WriteWait:  cfg.WriteWait,
		SendBuffer: cfg.SendBuffer,
	})

	deps := router.Deps{Sup: sup, Signal: ctl}
	if history != nil {
		deps.History = history
	}
	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router.SetupRouter(ctx, cfg, deps),
	}

	p := pool.New().WithContext(ctx).WithCancelOnError()
	p.Go(sup.Run)
	p.Go(limiter.Run)
	if history != nil {
		p.Go(history.Run)
	}
	p.Go(func(ctx context.Context) error {
		log.Info().Str("addr", addr).Msg("callrelay server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	p.Go(func(ctx context.Context) error {
		<-ctx.Done()
		log.Info().Msg("Shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server forced to shutdown")
		}
		return nil
	})

	if err := p.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Server exited gracefully")
	return nil
}
