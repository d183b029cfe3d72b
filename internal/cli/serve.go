package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/tickwise/timetrack/internal/api"
	"github.com/tickwise/timetrack/internal/core/domain"
	"github.com/tickwise/timetrack/internal/core/ports"
	"github.com/tickwise/timetrack/internal/core/session"
	"github.com/tickwise/timetrack/internal/core/syncer"
	"github.com/tickwise/timetrack/internal/infrastructure/config"
	"github.com/tickwise/timetrack/internal/infrastructure/db/memory"
	redisdb "github.com/tickwise/timetrack/internal/infrastructure/db/redis"
	"github.com/tickwise/timetrack/internal/infrastructure/notify"
	"github.com/tickwise/timetrack/internal/infrastructure/pdf"
	"github.com/tickwise/timetrack/internal/infrastructure/queue"
	"github.com/tickwise/timetrack/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	publishWorkers  = 4
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the HTTP API. Each authenticated user gets a session holding a local
cache that is kept in sync with the store by push notifications (Redis
pub/sub, when REDIS_ADDR is reachable) and by polling.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set to serve the API")
	}
	log := initLogger(cfg, opts)

	b, err := openBackend(ctx, cfg, logger.Component("store"))
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := b.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("closing store")
		}
	}()

	feed, publisher, dedup := changeFeed(ctx, cfg, b, log)

	clock := domain.SystemClock{}
	notifyLog := logger.Component("notify")

	mgr := session.NewManager(session.Deps{
		Timers:    notify.NewTimers(b.timers, publisher, clock, notifyLog),
		Entries:   notify.NewEntries(b.entries, publisher, clock, notifyLog),
		Directory: b.directory,
		Feed:      feed,
		Dedup:     dedup,
		Renderer:  pdf.NewRenderer(),
		Clock:     clock,
	}, session.Config{
		Sync: syncer.Config{
			TimerInterval:   cfg.Sync.TimerPoll,
			EntriesInterval: cfg.Sync.EntriesPoll,
		},
		IdleTimeout: cfg.Session.IdleTimeout,
		PageSize:    cfg.Report.PageSize,
	}, logger.Component("session"))

	sessionsDone := make(chan struct{})
	go func() {
		mgr.Run(ctx)
		close(sessionsDone)
	}()

	e := api.NewRouter(api.Deps{
		Sessions:  mgr,
		Directory: b.directory,
		Clock:     clock,
		JWTSecret: cfg.JWTSecret,
		Health:    b.health,
		Logger:    logger.Component("http"),
	})

	errc := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.StoreDriver).Msg("starting HTTP server")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown")
	}
	<-sessionsDone
	return nil
}

// changeFeed connects the push channel. Without a reachable Redis the service
// falls back to an in-process feed: writes made by this process still reach
// its sessions, and polling covers everyone else.
func changeFeed(ctx context.Context, cfg *config.Config, b *backend, log zerolog.Logger) (ports.ChangeFeed, ports.ChangePublisher, ports.EventDeduper) {
	if cfg.Redis.Addr != "" {
		client, err := redisdb.Connect(ctx, redisdb.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err == nil {
			b.onClose(func(context.Context) error { return client.Close() })
			b.health["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

			feedLog := logger.Component("changefeed")
			redisFeed := redisdb.NewChangeFeed(client, feedLog)
			dispatcher := queue.NewDispatcher(publishWorkers, redisFeed, feedLog)
			dispatcher.Start(ctx)

			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis change feed")
			return redisFeed, dispatcher, redisdb.NewDeduper(client)
		}
		log.Warn().Err(err).Msg("Redis unavailable; push limited to this process, polling keeps sessions fresh")
	}

	local := memory.NewFeed()
	b.onClose(func(context.Context) error {
		local.CloseAll()
		return nil
	})
	return local, local, nil
}

func initLogger(cfg *config.Config, opts *RootOptions) zerolog.Logger {
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	return logger.Init(logger.Options{
		Level:   level,
		Pretty:  cfg.IsDevelopment(),
		Service: "timetrack",
	})
}
