package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tickwise/timetrack/internal/api/handler"
	"github.com/tickwise/timetrack/internal/core/ports"
	"github.com/tickwise/timetrack/internal/infrastructure/config"
	"github.com/tickwise/timetrack/internal/infrastructure/db/memory"
	mongodb "github.com/tickwise/timetrack/internal/infrastructure/db/mongo"
	"github.com/tickwise/timetrack/internal/infrastructure/db/sqlite"
	"github.com/tickwise/timetrack/internal/infrastructure/directory"
)

// backend is the opened store selected by STORE_DRIVER plus the project
// directory.
type backend struct {
	timers    ports.TimerRepository
	entries   ports.EntryRepository
	directory ports.Directory
	health    map[string]handler.Pinger
	closers   []func(context.Context) error
}

func openBackend(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*backend, error) {
	b := &backend{health: make(map[string]handler.Pinger)}

	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, client.Disconnect)

		timers := mongodb.NewTimerRepository(db)
		entries := mongodb.NewEntryRepository(db)
		dir := mongodb.NewDirectoryRepository(db)
		if err := mongodb.EnsureIndexes(ctx, timers, entries, dir); err != nil {
			b.Close(ctx)
			return nil, err
		}
		b.timers, b.entries, b.directory = timers, entries, dir
		b.health["mongodb"] = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

	case config.DriverSQLite:
		st, err := sqlite.Open(cfg.SQLite.Path)
		if err != nil {
			return nil, err
		}
		b.closers = append(b.closers, func(context.Context) error { return st.Close() })
		b.timers, b.entries = st.Timers(), st.Entries()
		b.health["sqlite"] = func(context.Context) error { return st.Ping() }
		log.Info().Str("path", cfg.SQLite.Path).Msg("opened SQLite store")

	case config.DriverMemory:
		b.timers, b.entries = memory.NewTimerRepository(), memory.NewEntryRepository()
		log.Warn().Msg("using in-memory store; data is lost on exit")

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	// A directory file takes precedence over the store's collections.
	if cfg.DirectoryFile != "" {
		dir, err := directory.Load(cfg.DirectoryFile)
		if err != nil {
			b.Close(ctx)
			return nil, err
		}
		b.directory = dir
	}
	if b.directory == nil {
		dir, err := directory.New(nil, nil)
		if err != nil {
			b.Close(ctx)
			return nil, err
		}
		b.directory = dir
	}
	return b, nil
}

// onClose registers fn to run on Close, before the store itself is closed.
func (b *backend) onClose(fn func(context.Context) error) {
	b.closers = append(b.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (b *backend) Close(ctx context.Context) error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
