package storage

import (
	"context"
	"fmt"

	"github.com/hyperjump/shohin/internal/config"
)

// Driver names the document store backend.
type Driver string

const (
	// DriverSQLite stores documents in an embedded SQLite file. Default.
	DriverSQLite Driver = "sqlite"
	// DriverMongo stores documents in MongoDB collections.
	DriverMongo Driver = "mongo"
)

// Open creates the store selected by cfg.Driver.
func Open(ctx context.Context, cfg *config.StorageConfig) (Storage, error) {
	switch Driver(cfg.Driver) {
	case DriverSQLite, "":
		return NewSQLiteStorage(cfg.DatabasePath)
	case DriverMongo:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("mongo driver requires storage.mongo_uri or MONGO_URI")
		}
		return NewMongoStorage(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown storage driver: %s (supported: sqlite, mongo)", cfg.Driver)
	}
}
