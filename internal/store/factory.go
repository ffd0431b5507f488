package store

import (
	"log/slog"
	"strings"
)

// NewFromDSN selects a backend based on the DSN shape:
//
//	empty                      -> in-memory
//	redis:// or rediss://      -> Redis
//	postgres:// or postgresql:// (or a key=value conn string) -> PostgreSQL
//	anything else              -> SQLite file path
func NewFromDSN(dsn string) (Store, error) {
	switch {
	case dsn == "":
		slog.Info("Store.NewFromDSN: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	case strings.HasPrefix(dsn, "redis://") || strings.HasPrefix(dsn, "rediss://"):
		slog.Info("Store.NewFromDSN: using Redis store")
		return NewRedisStore(WithDSN(dsn))
	case strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host="):
		slog.Info("Store.NewFromDSN: using Postgres store")
		return NewPostgresStore(WithDSN(dsn))
	default:
		slog.Info("Store.NewFromDSN: using SQLite store", "path", dsn)
		return NewSQLiteStore(WithDSN(dsn))
	}
}
