// Package database provides storage backends for the client's local preferences.
package database

import (
	"errors"
	"strings"
)

// ErrNotFound is returned by GetSetting when the key has never been written.
var ErrNotFound = errors.New("setting not found")

// Store defines the interface for local key/value persistence.
// SQLite, PostgreSQL and Redis implementations satisfy this interface.
type Store interface {
	Close() error

	// DatabaseType returns the name of the backend ("SQLite", "PostgreSQL" or "Redis").
	DatabaseType() string

	// Settings operations
	GetSetting(key string) (string, error)
	SetSetting(key, value string) error
	DeleteSetting(key string) error
}

// Open picks a backend from the DSN scheme. postgres:// and postgresql://
// select PostgreSQL, redis:// and rediss:// select Redis, anything else is
// treated as an SQLite file path.
func Open(dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return NewPostgres(dsn)
	case strings.HasPrefix(dsn, "redis://"), strings.HasPrefix(dsn, "rediss://"):
		return NewRedis(dsn)
	default:
		return New(dsn)
	}
}
