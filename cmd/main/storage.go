package main

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/CTAG07/namegen/pkg/store"
)

// openStore opens the configured database, creates the schema and prepares
// a Store on it. The caller closes both.
func openStore(config *ServerConfig, logger *slog.Logger) (*sql.DB, *store.Store, error) {
	path, _, _ := strings.Cut(config.DatabasePath, "?")
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := initDB(config.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = store.SetupSchema(db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("failed to setup schema: %w", err)
	}
	s, err := store.New(db)
	if err != nil {
		_ = db.Close()
		return nil, nil, err
	}
	s.SetLogger(logger)
	return db, s, nil
}

// withStore runs fn with an open store, closing everything afterwards.
func (a *app) withStore(fn func(s *store.Store) error) error {
	db, s, err := openStore(a.config.Server, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		s.Close()
		if err := db.Close(); err != nil {
			a.logger.Error("Failed to close database", "error", err)
		}
	}()
	return fn(s)
}
