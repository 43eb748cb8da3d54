package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/Lamont-Labs/QuantraVision-sub001/internal/config"
	"github.com/Lamont-Labs/QuantraVision-sub001/internal/database"
)

// InitializeDatabases opens learning.db and cache.db and applies their schemas
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	// learning.db - outcome ledger, instrumentation streams and derived records
	db, err := openDatabase(cfg.DatabasePath(), database.ProfileLedger, "learning")
	if err != nil {
		return nil, err
	}

	// cache.db - expiring analysis results, safe to lose
	cacheDB, err := openDatabase(cfg.CacheDatabasePath(), database.ProfileCache, "cache")
	if err != nil {
		db.Close()
		return nil, err
	}

	log.Info().
		Str("learning", db.Path()).
		Str("cache", cacheDB.Path()).
		Msg("Databases ready")
	return &Container{DB: db, CacheDB: cacheDB}, nil
}

func openDatabase(path string, profile database.DatabaseProfile, name string) (*database.DB, error) {
	db, err := database.New(database.Config{
		Path:    path,
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s database: %w", name, err)
	}

	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate %s database: %w", name, err)
	}
	return db, nil
}
