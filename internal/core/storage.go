package core

import (
	"fmt"
	"os"

	"metrocore/internal/infra/persistence/memory"
	"metrocore/internal/infra/persistence/postgres"
	"metrocore/internal/infra/persistence/sqlite"
	"metrocore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and parameterises the persistence backend.
type StorageConfig struct {
	Driver      StorageDriver
	SQLitePath  string
	PostgresDSN string
}

// OpenPersistentStore constructs the configured backend. An empty driver
// defaults to sqlite.
func OpenPersistentStore(cfg StorageConfig, engine *domain.RulesEngine) (domain.PersistentStore, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = StorageSQLite
	}
	switch driver {
	case StorageMemory:
		return memory.NewStore(engine), nil
	case StorageSQLite:
		return sqlite.NewStore(cfg.SQLitePath, engine)
	case StoragePostgres:
		return postgres.NewStore(cfg.PostgresDSN, engine)
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenPersistentStoreFromEnv selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	METROCORE_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	METROCORE_SQLITE_PATH: path to sqlite file (default ./metrocore.db)
//	METROCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenPersistentStoreFromEnv(engine *domain.RulesEngine) (domain.PersistentStore, error) {
	return OpenPersistentStore(StorageConfig{
		Driver:      StorageDriver(os.Getenv("METROCORE_STORAGE_DRIVER")),
		SQLitePath:  os.Getenv("METROCORE_SQLITE_PATH"),
		PostgresDSN: os.Getenv("METROCORE_POSTGRES_DSN"),
	}, engine)
}
