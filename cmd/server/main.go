package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"gunplay/internal/api"
	"gunplay/internal/config"
	"gunplay/internal/game"
	"gunplay/internal/input"
	"gunplay/internal/stats"
)

func main() {
	// .env is optional; real environment variables win
	envErr := godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		bootLogger := config.NewLogger(config.DefaultLog(), os.Stderr)
		bootLogger.Fatal().Err(err).Msg("invalid configuration")
	}
	logger := config.NewLogger(cfg.Log, os.Stdout)
	if envErr != nil {
		logger.Debug().Msg("no .env file found, using environment variables only")
	}

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
	logger.Info().Msg("shutdown complete")
}

func run(cfg config.AppConfig, logger zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStats(cfg.Storage.StatsPath)
	if err != nil {
		return err
	}
	defer store.Close()
	recorder := stats.NewRecorder(store, logger.With().Str("component", "stats").Logger())

	engine := game.NewEngine(game.EngineConfig{
		FPS:      cfg.Frame.FPS,
		MaxDelta: cfg.Frame.MaxDelta,
		Limits:   game.ResourceLimits{MaxSessions: cfg.Limits.MaxSessions},
		Queue: input.QueueConfig{
			BufferSize:    cfg.Limits.InputBuffer,
			RatePerSecond: cfg.Limits.InputRate,
			Burst:         cfg.Limits.InputBurst,
		},
	}, logger.With().Str("component", "engine").Logger())

	if err := engine.StartEventLog(cfg.Storage.EventLogPath); err != nil {
		logger.Warn().Err(err).Msg("event log disabled")
	} else if cfg.Storage.EventLogPath != "" {
		logger.Info().Str("path", cfg.Storage.EventLogPath).Msg("event log started")
	}
	defer engine.StopEventLog()

	server := api.NewServer(engine, api.ServerConfig{
		Addr:        cfg.Server.Addr(),
		Stats:       store,
		CORSOrigins: cfg.Server.AllowedOrigins,
		RateLimit: api.RateLimitConfig{
			RequestsPerSecond: cfg.Server.RatePerSecond,
			Burst:             cfg.Server.RateBurst,
		},
		MaxWSPerIP:  cfg.Server.MaxWSPerIP,
		TokenSecret: []byte(os.Getenv("GUNPLAY_TOKEN_SECRET")),
		RecentLimit: cfg.Limits.RecentSessions,
	}, logger.With().Str("component", "api").Logger())

	engine.SetCallbacks(combine(server.Callbacks(), game.Callbacks{
		OnFrame: recorder.Observe,
		OnEnd:   recorder.Finish,
	}))

	logger.Info().
		Int("fps", cfg.Frame.FPS).
		Int("maxSessions", engine.Limits().MaxSessions).
		Str("stats", cfg.Storage.StatsPath).
		Msg("gunplay server configured")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		engine.Start()
		<-ctx.Done()
		engine.Stop()
		// flush every live session into the stats store
		engine.EndAll()
		return nil
	})

	g.Go(func() error {
		return server.Run(ctx)
	})

	debugCfg := api.DefaultObservabilityConfig()
	debugCfg.ListenAddr = cfg.Server.DebugAddr
	debugCfg.Enabled = cfg.Server.DebugAddr != ""
	if debug := api.NewDebugServer(debugCfg, logger); debug != nil {
		g.Go(func() error {
			err := debug.ListenAndServe()
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return debug.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func openStats(path string) (*stats.Store, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	return stats.Open(path)
}

// combine fans each engine callback out to both sets.
func combine(a, b game.Callbacks) game.Callbacks {
	return game.Callbacks{
		OnFrame: func(u game.FrameUpdate) {
			if a.OnFrame != nil {
				a.OnFrame(u)
			}
			if b.OnFrame != nil {
				b.OnFrame(u)
			}
		},
		OnEnd: func(s game.SessionSummary) {
			if a.OnEnd != nil {
				a.OnEnd(s)
			}
			if b.OnEnd != nil {
				b.OnEnd(s)
			}
		},
		OnTick: func(d time.Duration, sessions int) {
			if a.OnTick != nil {
				a.OnTick(d, sessions)
			}
			if b.OnTick != nil {
				b.OnTick(d, sessions)
			}
		},
	}
}
