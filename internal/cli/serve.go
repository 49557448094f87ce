package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/sakif/codewizard/internal/config"
	"github.com/sakif/codewizard/internal/server"
	"github.com/sakif/codewizard/internal/telemetry"
)

func newServeCmd(opts *options) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the expired-session sweeper",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			if port > 0 {
				cfg.Server.Port = port
			}
			return runServe(cmd.Context(), cfg, logger)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "port to listen on (overrides PORT)")
	return cmd
}

func runServe(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	if err := ensureDBDir(cfg.Database.Path); err != nil {
		return fmt.Errorf("creating database directory: %w", err)
	}

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.Endpoint)
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			logger.Warn("flushing traces failed", slog.String("error", err.Error()))
		}
	}()

	srvCfg := server.Config{
		Port:            cfg.Server.Port,
		DBPath:          cfg.Database.Path,
		Version:         version,
		ShutdownTimeout: cfg.ShutdownTimeout(),
		TokenLength:     cfg.Auth.TokenLength,
		TokenLifetime:   cfg.TokenLifetime(),
		BcryptCost:      cfg.Auth.BcryptCost,
		HashWorkers:     cfg.Auth.HashWorkers,
		SweepInterval:   cfg.SweepInterval(),
		RateLimit:       cfg.RateLimit.Limit,
		RateWindow:      cfg.RateWindow(),
	}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			// The limiter fails open, so the server can still start.
			logger.Warn("redis unreachable; rate limiting will pass requests through",
				slog.String("addr", cfg.Redis.Addr),
				slog.String("error", err.Error()),
			)
		}
		cancel()
		srvCfg.Redis = rdb
	} else {
		logger.Warn("REDIS_ADDR not set; login and register are not rate limited")
	}

	srv, err := server.New(srvCfg, logger)
	if err != nil {
		return err
	}
	return srv.Run(ctx)
}
