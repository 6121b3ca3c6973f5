// Package app assembles the storage backend shared by the server and the admin CLI.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/maxviazov/knowledge-hub/internal/config"
	"github.com/maxviazov/knowledge-hub/internal/repository"
	"github.com/maxviazov/knowledge-hub/internal/repository/memory"
	"github.com/maxviazov/knowledge-hub/internal/repository/postgres"
)

// Storage bundles the repositories of one backend.
type Storage struct {
	Entries    repository.EntryRepository
	Categories repository.CategoryRepository
	Users      repository.UserRepository
	Tx         repository.TxManager
	Pinger     repository.Pinger
	// DB is nil for the memory backend.
	DB *repository.Repository
}

// OpenStorage connects the backend selected by cfg.App.Storage.
func OpenStorage(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*Storage, error) {
	switch cfg.App.Storage {
	case config.StorageMemory:
		db := memory.New()
		logger.Warn().Msg("using in-memory storage, data is lost on exit")
		return &Storage{
			Entries:    db.Entries(),
			Categories: db.Categories(),
			Users:      db.Users(),
			Tx:         db.TxManager(),
			Pinger:     db.Pinger(),
		}, nil
	case config.StoragePostgres, "":
		db, err := repository.New(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		pool := db.Pool()
		return &Storage{
			Entries:    postgres.NewEntryRepository(pool),
			Categories: postgres.NewCategoryRepository(pool),
			Users:      postgres.NewUserRepository(pool),
			Tx:         postgres.NewTxManager(pool),
			Pinger:     postgres.NewPinger(pool),
			DB:         db,
		}, nil
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.App.Storage)
	}
}

// Close releases the pool, if any.
func (s *Storage) Close() {
	if s.DB != nil {
		s.DB.Close()
	}
}
