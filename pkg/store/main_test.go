package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/CTAG07/namegen/pkg/markov"

	_ "modernc.org/sqlite"
)

// setupTestStore creates a new SQLite database in a temporary directory and
// a Store on top of it. It uses t.Cleanup to ensure resources are released.
func setupTestStore(t *testing.T) (*sql.DB, *Store) {
	t.Helper()
	dbFile := filepath.Join(t.TempDir(), "test.db")
	db, err := sql.Open("sqlite", dbFile+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err := SetupSchema(db); err != nil {
		t.Fatalf("failed to set up schema: %v", err)
	}

	s, err := New(db)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(s.Close)

	return db, s
}

// setupTrainedModel is a convenience helper that also creates and saves a
// character model trained on a few names.
func setupTrainedModel(t *testing.T, words ...string) (context.Context, *Store, ModelInfo) {
	t.Helper()
	_, s := setupTestStore(t)
	ctx := context.Background()

	model, err := s.EnsureModel(ctx, ModelInfo{Name: "test_model", Tokenizer: markov.CharTokenizerName, Halt: "\n"})
	if err != nil {
		t.Fatalf("setup: EnsureModel() failed: %v", err)
	}

	chain := trainedChain(t, words...)
	if err := s.SaveChain(ctx, model, chain); err != nil {
		t.Fatalf("setup: SaveChain() failed: %v", err)
	}
	return ctx, s, model
}

func trainedChain(t *testing.T, words ...string) *markov.Chain[string] {
	t.Helper()
	tok := markov.NewCharTokenizer()
	chain := markov.NewTokenizerChain(tok, "\n")
	if _, err := markov.TrainWords(chain, tok, words); err != nil {
		t.Fatalf("setup: TrainWords() failed: %v", err)
	}
	return chain
}

// counts flattens every count of a chain into "^x" and "a->b" keys.
func counts(c *markov.Chain[string]) map[string]int {
	out := make(map[string]int)
	c.Initial().Each(func(s string, n int) {
		out["^"+s] = n
	})
	c.Each(func(from string, t *markov.TransitionTable[string]) {
		t.Each(func(to string, n int) {
			out[from+"->"+to] = n
		})
	})
	return out
}
