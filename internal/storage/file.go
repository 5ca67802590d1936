package storage

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// FileStorage writes each key to its own file under dir.
type FileStorage struct {
	dir string
}

// NewFileStorage creates dir when missing.
func NewFileStorage(dir string) (*FileStorage, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("storage: resolve config dir: %w", err)
		}
		dir = filepath.Join(base, "trainingsoft")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("storage: create dir: %w", err)
	}
	return &FileStorage{dir: dir}, nil
}

// Dir returns the directory holding the records.
func (s *FileStorage) Dir() string {
	return s.dir
}

// Keys may contain characters such as '@' or '/', so file names are hex encoded.
func (s *FileStorage) path(key string) string {
	return filepath.Join(s.dir, hex.EncodeToString([]byte(key))+".json")
}

func (s *FileStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: read: %w", err)
	}
	return data, nil
}

// Set replaces the record atomically so a crash never leaves a torn file.
func (s *FileStorage) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, ".pending-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("storage: write: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("storage: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("storage: close: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		cleanup()
		return fmt.Errorf("storage: chmod: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		cleanup()
		return fmt.Errorf("storage: rename: %w", err)
	}
	return nil
}

func (s *FileStorage) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("storage: remove: %w", err)
	}
	return nil
}

// Close is a no-op.
func (s *FileStorage) Close() error { return nil }
