// Package storage provides the durable key-value backends that hold the
// serialized session between process restarts.
package storage

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Get when the key holds no value.
var ErrNotFound = errors.New("storage: not found")

// Storage persists opaque blobs under string keys.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key; deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

// Driver names a storage backend.
type Driver string

const (
	DriverFile     Driver = "file"
	DriverRedis    Driver = "redis"
	DriverPostgres Driver = "postgres"
	DriverMemory   Driver = "memory"
)

// Config selects and configures a backend.
type Config struct {
	Driver    Driver
	Path      string
	RedisAddr string
	PGDSN     string
}

// Backend is a Storage that owns external resources.
type Backend interface {
	Storage
	Close() error
}

// Open builds the backend named by cfg.Driver.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Driver {
	case DriverFile, "":
		return NewFileStorage(cfg.Path)
	case DriverMemory:
		return NewMemoryStorage(), nil
	case DriverRedis:
		return OpenRedis(ctx, cfg.RedisAddr)
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.PGDSN)
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", cfg.Driver)
	}
}
