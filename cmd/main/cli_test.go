package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestGenerateCommandFromFile(t *testing.T) {
	config := writeTestConfig(t)
	words := writeWordList(t, "Zorblax\n")

	out, err := runCLI(t, "", "generate", words, "--config", config, "--seed", "7", "--count", "3")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	for _, want := range []string{
		"States: 8\n",
		"Total Transitions: 7\n",
		"Average Transitions per state: 0.875\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
	if got := strings.Count(out, "zorblax\n"); got != 3 {
		t.Errorf("expected 3 generated names, got %d:\n%s", got, out)
	}
}

func TestGenerateCommandFromInput(t *testing.T) {
	config := writeTestConfig(t)

	out, err := runCLI(t, "quaxx\n\nignored\n", "generate", "--config", config, "--count", "2")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if !strings.Contains(out, "Enter words, provide blank input to end:") {
		t.Errorf("expected the input prompt, got:\n%s", out)
	}
	if strings.Contains(out, "ignored") {
		t.Errorf("input after the blank line must not be read:\n%s", out)
	}
}

func TestGenerateCommandReportsFailures(t *testing.T) {
	config := writeTestConfig(t)
	words := writeWordList(t, "ab\n")

	out, err := runCLI(t, "", "generate", words, "--config", config, "--count", "2", "--max-attempts", "5")
	if err != nil {
		t.Fatalf("generation failures must not fail the command: %v", err)
	}
	if got := strings.Count(out, "GenerationTimeout: "); got != 2 {
		t.Errorf("expected 2 timeout lines, got %d:\n%s", got, out)
	}
}

func TestGenerateCommandEmptyInput(t *testing.T) {
	config := writeTestConfig(t)

	out, err := runCLI(t, "\n", "generate", "--config", config, "--count", "4")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if got := strings.Count(out, "EmptyChain: "); got != 1 {
		t.Errorf("expected a single EmptyChain line, got %d:\n%s", got, out)
	}
}

func TestModelCommands(t *testing.T) {
	config := writeTestConfig(t)
	words := writeWordList(t, "zorblax\nquaxxan\nulmeth\n")

	out, err := runCLI(t, "", "train", "orcs", words, "--config", config)
	if err != nil {
		t.Fatalf("train failed: %v", err)
	}
	if !strings.Contains(out, `Trained "orcs" on 3 words`) {
		t.Errorf("unexpected train output:\n%s", out)
	}

	out, err = runCLI(t, "", "stats", "--config", config)
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if !strings.Contains(out, "orcs (char): 3 words") {
		t.Errorf("unexpected stats output:\n%s", out)
	}

	out, err = runCLI(t, "", "generate", "--model", "orcs", "--config", config, "--seed", "3", "--count", "5")
	if err != nil {
		t.Fatalf("generate --model failed: %v", err)
	}
	if !strings.Contains(out, "States: ") {
		t.Errorf("unexpected generate output:\n%s", out)
	}

	exportPath := filepath.Join(t.TempDir(), "orcs.json")
	if _, err = runCLI(t, "", "export", "orcs", exportPath, "--config", config); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	if !strings.Contains(string(data), `"name": "orcs"`) {
		t.Errorf("unexpected export file:\n%s", data)
	}

	if _, err = runCLI(t, "", "import", exportPath, "--config", config); err != nil {
		t.Fatalf("import failed: %v", err)
	}
	out, err = runCLI(t, "", "stats", "--config", config)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "orcs (char): 6 words") {
		t.Errorf("import must merge counts into the existing model:\n%s", out)
	}

	out, err = runCLI(t, "", "prune", "orcs", "2", "--config", config)
	if err != nil {
		t.Fatalf("prune failed: %v", err)
	}
	if !strings.Contains(out, "Removed ") {
		t.Errorf("unexpected prune output:\n%s", out)
	}
}

func TestModelCommandErrors(t *testing.T) {
	config := writeTestConfig(t)

	if _, err := runCLI(t, "", "export", "missing", filepath.Join(t.TempDir(), "x.json"), "--config", config); err == nil {
		t.Error("expected export of a missing model to fail")
	}
	if _, err := runCLI(t, "", "prune", "missing", "-1", "--config", config); err == nil {
		t.Error("expected a negative minFreq to fail")
	}
	if _, err := runCLI(t, "", "generate", "--config", config, "--tokenizer", "bpe"); err == nil {
		t.Error("expected an unknown tokenizer to fail")
	}
}
