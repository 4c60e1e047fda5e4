package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/CTAG07/namegen/pkg/store"
)

// writeTestConfig writes a config file whose database lives in a temporary
// directory, and returns its path.
func writeTestConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	config := DefaultConfig()
	config.Server.DatabasePath = filepath.Join(dir, "namegen.db")
	config.Server.LogLevel = "error"

	data, err := json.Marshal(config)
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "config.json")
	if err = os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeWordList(t *testing.T, words string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "words.txt")
	if err := os.WriteFile(path, []byte(words), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// runCLI executes the root command with args and returns what it printed.
func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(bytes.NewBufferString(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// setupTestServer opens a store in a temporary directory and wraps it in a
// Server with a fixed seed.
func setupTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	config := DefaultConfig()
	config.Server.DatabasePath = filepath.Join(t.TempDir(), "api.db")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, s, err := openStore(config.Server, logger)
	if err != nil {
		t.Fatalf("openStore() failed: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
		_ = db.Close()
	})

	return NewServer(config, logger, s, rand.New(rand.NewPCG(1, 2))), s
}
