package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CTAG07/namegen/pkg/markov"
	"github.com/CTAG07/namegen/pkg/store"
	"github.com/google/go-cmp/cmp"
)

func doRequest(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rr.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response %q: %v", rr.Body.String(), err)
	}
	return v
}

func TestHealthAndVersion(t *testing.T) {
	server, _ := setupTestServer(t)

	rr := doRequest(t, server, http.MethodGet, "/api/health", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := decodeBody[map[string]string](t, rr); got["status"] != "ok" {
		t.Errorf("unexpected health response: %v", got)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/health", "")
	if rr.Code != http.StatusMethodNotAllowed || rr.Header().Get("Allow") != "GET" {
		t.Errorf("expected 405 with Allow: GET, got %d %q", rr.Code, rr.Header().Get("Allow"))
	}

	rr = doRequest(t, server, http.MethodGet, "/api/version", "")
	if got := decodeBody[VersionInfo](t, rr); got.Version != Version {
		t.Errorf("unexpected version response: %+v", got)
	}
}

func TestModelLifecycle(t *testing.T) {
	server, _ := setupTestServer(t)

	rr := doRequest(t, server, http.MethodPost, "/api/models", `{"name": "orcs"}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rr.Code, rr.Body)
	}
	created := decodeBody[store.ModelInfo](t, rr)
	if created.Tokenizer != markov.CharTokenizerName || created.Halt != "\n" {
		t.Errorf("expected the configured defaults, got %+v", created)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/models", `{"name": "orcs"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("duplicate create: expected 409, got %d", rr.Code)
	}

	rr = doRequest(t, server, http.MethodPost, "/api/models/orcs/train", "Zorblax\n\n")
	if rr.Code != http.StatusOK {
		t.Fatalf("train: expected 200, got %d: %s", rr.Code, rr.Body)
	}
	if diff := cmp.Diff(markov.TrainResult{Lines: 2, Words: 1}, decodeBody[markov.TrainResult](t, rr)); diff != "" {
		t.Errorf("train result mismatch (-want +got):\n%s", diff)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/models/orcs/generate?count=3", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("generate: expected 200, got %d: %s", rr.Code, rr.Body)
	}
	want := GenerateResponse{Names: []string{"zorblax", "zorblax", "zorblax"}}
	if diff := cmp.Diff(want, decodeBody[GenerateResponse](t, rr)); diff != "" {
		t.Errorf("generate mismatch (-want +got):\n%s", diff)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/models/orcs/generate?count=2&min=7", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("generate with min=7: expected 422, got %d", rr.Code)
	}
	if got := decodeBody[GenerateResponse](t, rr); len(got.Errors) != 2 || !strings.HasPrefix(got.Errors[0], "GenerationTimeout") {
		t.Errorf("expected two timeout errors, got %+v", got)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/models", "")
	if got := decodeBody[[]store.ModelInfo](t, rr); len(got) != 1 || got[0].Name != "orcs" {
		t.Errorf("unexpected model list: %+v", got)
	}

	rr = doRequest(t, server, http.MethodDelete, "/api/models/orcs", "")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", rr.Code)
	}
	rr = doRequest(t, server, http.MethodGet, "/api/models/orcs/generate", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("generate after delete: expected 404, got %d", rr.Code)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	server, s := setupTestServer(t)

	doRequest(t, server, http.MethodPost, "/api/models", `{"name": "elves", "tokenizer": "word"}`)
	rr := doRequest(t, server, http.MethodPost, "/api/models/elves/train", "Ael Thar\nAel Vin\n")
	if rr.Code != http.StatusOK {
		t.Fatalf("train: expected 200, got %d: %s", rr.Code, rr.Body)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/models/elves/export", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("export: expected 200, got %d", rr.Code)
	}
	exported := decodeBody[store.ExportedModel](t, rr)
	if exported.Starts["ael"] != 2 {
		t.Errorf("expected 'ael' to start 2 words, got %+v", exported.Starts)
	}

	exported.Name = "elves-copy"
	data, err := json.Marshal(exported)
	if err != nil {
		t.Fatal(err)
	}
	rr = doRequest(t, server, http.MethodPost, "/api/import", string(data))
	if rr.Code != http.StatusCreated {
		t.Fatalf("import: expected 201, got %d: %s", rr.Code, rr.Body)
	}

	info, err := s.GetModelInfo(t.Context(), "elves-copy")
	if err != nil {
		t.Fatalf("imported model missing: %v", err)
	}
	if info.Tokenizer != markov.WordTokenizerName || info.Separator != " " {
		t.Errorf("unexpected imported model: %+v", info)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/models/elves-copy/generate?count=1&min=0", "")
	got := decodeBody[GenerateResponse](t, rr)
	if len(got.Names) != 1 || !strings.HasPrefix(got.Names[0], "ael ") {
		t.Errorf("unexpected generated name: %+v", got)
	}
}

func TestModelRequestErrors(t *testing.T) {
	server, _ := setupTestServer(t)
	doRequest(t, server, http.MethodPost, "/api/models", `{"name": "orcs"}`)

	testCases := []struct {
		name   string
		method string
		target string
		body   string
		code   int
	}{
		{"bad json", http.MethodPost, "/api/models", `{`, http.StatusBadRequest},
		{"no name", http.MethodPost, "/api/models", `{}`, http.StatusBadRequest},
		{"bad tokenizer", http.MethodPost, "/api/models", `{"name": "x", "tokenizer": "bpe"}`, http.StatusBadRequest},
		{"wrong method", http.MethodPut, "/api/models", ``, http.StatusMethodNotAllowed},
		{"unknown model", http.MethodGet, "/api/models/dwarves/export", ``, http.StatusNotFound},
		{"unknown action", http.MethodGet, "/api/models/orcs/sing", ``, http.StatusNotFound},
		{"bad count", http.MethodGet, "/api/models/orcs/generate?count=lots", ``, http.StatusBadRequest},
		{"too many", http.MethodGet, "/api/models/orcs/generate?count=5000", ``, http.StatusBadRequest},
		{"max not above min", http.MethodGet, "/api/models/orcs/generate?min=3&max=3", ``, http.StatusBadRequest},
		{"max below default min", http.MethodGet, "/api/models/orcs/generate?max=2", ``, http.StatusBadRequest},
		{"negative prune", http.MethodPost, "/api/models/orcs/prune", `{"minFreq": -1}`, http.StatusBadRequest},
		{"bad import", http.MethodPost, "/api/import", `{"halt_symbol": "\n"}`, http.StatusBadRequest},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rr := doRequest(t, server, tc.method, tc.target, tc.body)
			if rr.Code != tc.code {
				t.Errorf("expected %d, got %d: %s", tc.code, rr.Code, rr.Body)
			}
		})
	}
}

func TestGenerateOnEmptyModel(t *testing.T) {
	server, _ := setupTestServer(t)
	doRequest(t, server, http.MethodPost, "/api/models", `{"name": "empty"}`)

	rr := doRequest(t, server, http.MethodGet, "/api/models/empty/generate?count=5", "")
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rr.Code)
	}
	got := decodeBody[GenerateResponse](t, rr)
	if len(got.Errors) != 1 || !strings.HasPrefix(got.Errors[0], "EmptyChain") {
		t.Errorf("expected one EmptyChain error, got %+v", got)
	}
}

func TestPruneEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)
	doRequest(t, server, http.MethodPost, "/api/models", `{"name": "orcs"}`)
	doRequest(t, server, http.MethodPost, "/api/models/orcs/train", "abc\nabd\n")

	rr := doRequest(t, server, http.MethodPost, "/api/models/orcs/prune", `{"minFreq": 1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("prune: expected 200, got %d: %s", rr.Code, rr.Body)
	}
	if got := decodeBody[map[string]int64](t, rr); got["removed"] != 4 {
		t.Errorf("expected 4 entries removed, got %v", got)
	}

	rr = doRequest(t, server, http.MethodGet, "/api/models/orcs", "")
	var body struct {
		Stats store.ModelStats `json:"stats"`
	}
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Stats.TotalLinks != 1 {
		t.Errorf("expected 1 link left after pruning, got %+v", body.Stats)
	}
}

func TestStatsSummary(t *testing.T) {
	server, _ := setupTestServer(t)
	doRequest(t, server, http.MethodPost, "/api/models", `{"name": "orcs"}`)
	doRequest(t, server, http.MethodPost, "/api/models/orcs/train", "cat\ncar\n")

	rr := doRequest(t, server, http.MethodGet, "/api/stats/summary", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	got := decodeBody[GlobalStatsSummary](t, rr)
	if got.SymbolCount != 5 || len(got.Models) != 1 {
		t.Fatalf("unexpected summary: %+v", got)
	}
	m := got.Models[0]
	if m.Name != "orcs" || m.Words != 2 || m.TotalLinks != 5 || m.TotalFrequency != 6 {
		t.Errorf("unexpected model summary: %+v", m)
	}
}
