package main

import (
	"context"
	"fmt"

	"github.com/padelhub/gamenight/go/internal/config"
	"github.com/padelhub/gamenight/go/internal/store"
	"github.com/padelhub/gamenight/go/internal/store/memstore"
	"github.com/padelhub/gamenight/go/internal/store/pgstore"
	"github.com/rs/zerolog/log"
)

// setupStore opens the configured store. The returned func releases it.
func setupStore(ctx context.Context, cfg config.StorageConfig) (store.Store, func(), error) {
	if cfg.Driver != config.StoragePostgres {
		log.Warn().Msg("using in-memory storage, data is lost on restart")
		return memstore.New(), func() {}, nil
	}

	db, err := pgstore.Open(ctx, cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Migrate {
		if err := pgstore.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		log.Info().Msg("database schema applied")
	}
	return pgstore.New(db), func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close database")
		}
	}, nil
}
