package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sstasesores/trainingsoft/internal/platform/db"
)

// DB is the subset of pgxpool.Pool used by PostgresStorage.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	schemaSQL = `CREATE TABLE IF NOT EXISTS client_state (
	key TEXT PRIMARY KEY,
	value BYTEA NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`
	selectSQL = `SELECT value FROM client_state WHERE key = $1`
	upsertSQL = `INSERT INTO client_state (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`
	deleteSQL = `DELETE FROM client_state WHERE key = $1`
)

// PostgresStorage keeps records in the client_state table.
type PostgresStorage struct {
	db    DB
	close func()
}

// NewPostgresStorage wraps an existing connection; Close leaves it open.
func NewPostgresStorage(conn DB) *PostgresStorage {
	return &PostgresStorage{db: conn}
}

// OpenPostgres connects to dsn and ensures the schema exists.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresStorage, error) {
	pool, err := db.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	s := &PostgresStorage{db: pool, close: pool.Close}
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// EnsureSchema creates the client_state table when missing.
func (s *PostgresStorage) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("storage: ensure schema: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	if err := s.db.QueryRow(ctx, selectSQL, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: postgres get: %w", err)
	}
	return value, nil
}

func (s *PostgresStorage) Set(ctx context.Context, key string, value []byte) error {
	if _, err := s.db.Exec(ctx, upsertSQL, key, value); err != nil {
		return fmt.Errorf("storage: postgres set: %w", err)
	}
	return nil
}

func (s *PostgresStorage) Delete(ctx context.Context, key string) error {
	if _, err := s.db.Exec(ctx, deleteSQL, key); err != nil {
		return fmt.Errorf("storage: postgres delete: %w", err)
	}
	return nil
}

// Close releases the pool when this storage opened it.
func (s *PostgresStorage) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}
