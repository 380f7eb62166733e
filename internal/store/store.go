package store

import (
	"context"
	"fmt"
	"strings"

	"slicemeow/internal/auth"
	"slicemeow/internal/catalog"
	"slicemeow/pkg/utils"
)

// Backend is what the binaries need from a document store.
type Backend interface {
	catalog.Store
	auth.Repo
	Ping(ctx context.Context) error
	Close() error
	MigrateLegacyFields(ctx context.Context) (int, error)
}

var (
	_ Backend = (*SQLite)(nil)
	_ Backend = (*Mongo)(nil)
)

func Open(ctx context.Context, cfg utils.StoreConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		return OpenSQLite(cfg.SQLitePath)
	case "mongo", "mongodb":
		return OpenMongo(ctx, cfg.MongoURI, cfg.MongoDatabase)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
