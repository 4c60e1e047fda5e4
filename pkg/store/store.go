package store

import (
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
)

// ErrModelNotFound is returned when a named model does not exist. It is
// joined with sql.ErrNoRows, so either can be matched with errors.Is.
var ErrModelNotFound = errors.New("model not found")

// SetupSchema initializes the necessary tables in the provided database.
// This function should be called once on a new database before any other
// operations are performed. It is idempotent and safe to call on an
// already-initialized database.
func SetupSchema(db *sql.DB) error {

	const (
		schemaSymbols = `
CREATE TABLE IF NOT EXISTS namegen_symbols (
    symbol_id INTEGER PRIMARY KEY,
    symbol_text TEXT NOT NULL UNIQUE
);
`
		schemaModels = `
CREATE TABLE IF NOT EXISTS namegen_models (
    model_id INTEGER PRIMARY KEY,
    model_name TEXT NOT NULL UNIQUE,
    tokenizer TEXT NOT NULL,
    halt_symbol TEXT NOT NULL,
    separator TEXT NOT NULL
);
`
		schemaLinks = `
CREATE TABLE IF NOT EXISTS namegen_links (
    model_id INTEGER NOT NULL,
    from_id INTEGER NOT NULL,
    to_id INTEGER NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, from_id, to_id)
);
`
		schemaStarts = `
CREATE TABLE IF NOT EXISTS namegen_starts (
    model_id INTEGER NOT NULL,
    symbol_id INTEGER NOT NULL,
    frequency INTEGER NOT NULL DEFAULT 1,
    PRIMARY KEY (model_id, symbol_id)
);
`
	)

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	// If the transaction succeeds, tx.Commit() will be called first, and the rollback will do nothing. If it fails, this will clean up.
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.Exec(schemaSymbols); err != nil {
		return fmt.Errorf("could not create symbols schema: %w", err)
	}

	if _, err = tx.Exec(schemaModels); err != nil {
		return fmt.Errorf("could not create models schema: %w", err)
	}

	if _, err = tx.Exec(schemaLinks); err != nil {
		return fmt.Errorf("could not create links schema: %w", err)
	}

	if _, err = tx.Exec(schemaStarts); err != nil {
		return fmt.Errorf("could not create starts schema: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// Store persists trained chains in a SQLite database. It holds the database
// connection and prepared SQL statements for efficient database interaction.
type Store struct {
	db                *sql.DB
	stmtGetModelInfo  *sql.Stmt
	stmtGetModels     *sql.Stmt
	stmtAddModel      *sql.Stmt
	stmtPruneLinks    *sql.Stmt
	stmtPruneStarts   *sql.Stmt
	stmtModelLinks    *sql.Stmt
	stmtModelFreq     *sql.Stmt
	stmtModelStarters *sql.Stmt
	stmtModelWords    *sql.Stmt
	stmtGetSymbolsLen *sql.Stmt
	stmtInsertSymbol  *sql.Stmt
	stmtLoadLinks     *sql.Stmt
	stmtLoadStarts    *sql.Stmt
	logger            *slog.Logger
}

// New creates and returns a new Store. It pre-compiles all necessary SQL
// statements, returning an error if any preparation fails.
func New(db *sql.DB) (*Store, error) {
	s := &Store{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	stmts := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.stmtGetModelInfo, `SELECT model_id, tokenizer, halt_symbol, separator FROM namegen_models WHERE model_name = ?;`},
		{&s.stmtGetModels, `SELECT model_id, model_name, tokenizer, halt_symbol, separator FROM namegen_models;`},
		{&s.stmtAddModel, `INSERT INTO namegen_models (model_name, tokenizer, halt_symbol, separator) VALUES (?, ?, ?, ?);`},
		{&s.stmtPruneLinks, `DELETE FROM namegen_links WHERE model_id = ? AND frequency <= ?;`},
		{&s.stmtPruneStarts, `DELETE FROM namegen_starts WHERE model_id = ? AND frequency <= ?;`},
		{&s.stmtModelLinks, `SELECT COUNT(*) FROM namegen_links WHERE model_id = ?;`},
		{&s.stmtModelFreq, `SELECT coalesce(SUM(frequency), 0) FROM namegen_links WHERE model_id = ?;`},
		{&s.stmtModelStarters, `SELECT COUNT(*) FROM namegen_starts WHERE model_id = ?;`},
		{&s.stmtModelWords, `SELECT coalesce(SUM(frequency), 0) FROM namegen_starts WHERE model_id = ?;`},
		{&s.stmtGetSymbolsLen, `SELECT COUNT(*) FROM namegen_symbols;`},
		{&s.stmtInsertSymbol, `INSERT INTO namegen_symbols (symbol_text) VALUES (?) ON CONFLICT(symbol_text) DO UPDATE SET symbol_text=excluded.symbol_text RETURNING symbol_id;`},
		{&s.stmtLoadLinks, `
SELECT f.symbol_text, t.symbol_text, l.frequency
FROM namegen_links l
JOIN namegen_symbols f ON f.symbol_id = l.from_id
JOIN namegen_symbols t ON t.symbol_id = l.to_id
WHERE l.model_id = ?
ORDER BY l.rowid;`},
		{&s.stmtLoadStarts, `
SELECT sym.symbol_text, st.frequency
FROM namegen_starts st
JOIN namegen_symbols sym ON sym.symbol_id = st.symbol_id
WHERE st.model_id = ?
ORDER BY st.rowid;`},
	}

	for _, st := range stmts {
		stmt, err := db.Prepare(st.query)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("could not prepare statement: %w", err)
		}
		*st.dst = stmt
	}

	return s, nil
}

// Close releases all prepared SQL statements held by the Store. It should be
// called when the Store is no longer needed to free up database resources.
func (s *Store) Close() {
	for _, stmt := range []*sql.Stmt{
		s.stmtGetModelInfo,
		s.stmtGetModels,
		s.stmtAddModel,
		s.stmtPruneLinks,
		s.stmtPruneStarts,
		s.stmtModelLinks,
		s.stmtModelFreq,
		s.stmtModelStarters,
		s.stmtModelWords,
		s.stmtGetSymbolsLen,
		s.stmtInsertSymbol,
		s.stmtLoadLinks,
		s.stmtLoadStarts,
	} {
		if stmt != nil {
			_ = stmt.Close()
		}
	}
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}
