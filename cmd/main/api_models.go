package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/CTAG07/namegen/pkg/markov"
	"github.com/CTAG07/namegen/pkg/store"
)

const (
	maxTrainBody    = 32 << 20
	maxNamesPerCall = 1000
)

// ModelsAPI holds the dependencies for the model API handlers.
type ModelsAPI struct {
	store    *store.Store
	defaults *GenerationConfig
	logger   *slog.Logger

	// mu serializes training, pruning, imports and every draw from rng.
	mu  sync.Mutex
	rng *rand.Rand
}

// NewModelsAPI creates a new instance of the ModelsAPI.
func NewModelsAPI(s *store.Store, defaults *GenerationConfig, rng *rand.Rand, logger *slog.Logger) *ModelsAPI {
	return &ModelsAPI{
		store:    s,
		defaults: defaults,
		rng:      rng,
		logger:   logger,
	}
}

// RegisterRoutes sets up the routing for all model endpoints.
func (m *ModelsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/models", m.handleListAndCreateModels)
	mux.HandleFunc("/api/models/", m.handleModelByName)
	mux.HandleFunc("/api/import", m.handleImport)
}

type CreateModelRequest struct {
	Name      string `json:"name"`
	Tokenizer string `json:"tokenizer"`
	Halt      string `json:"halt_symbol"`
	Separator string `json:"separator"`
}

type PruneRequest struct {
	MinFreq int `json:"minFreq"`
}

type GenerateResponse struct {
	Names  []string `json:"names"`
	Errors []string `json:"errors,omitempty"`
}

// handleListAndCreateModels handles GET for listing and POST for creating models.
func (m *ModelsAPI) handleListAndCreateModels(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		models, err := m.store.GetModelInfos(r.Context())
		if err != nil {
			m.logger.Error("Failed to get model infos", "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve models: %v", err))
			return
		}
		modelList := make([]store.ModelInfo, 0, len(models))
		for _, model := range models {
			modelList = append(modelList, model)
		}
		respondWithJSON(w, http.StatusOK, modelList)

	case http.MethodPost:
		var req CreateModelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		if req.Name == "" || strings.Contains(req.Name, "/") {
			respondWithError(w, http.StatusBadRequest, "A model name without '/' is required")
			return
		}
		if req.Tokenizer == "" {
			req.Tokenizer = m.defaults.Tokenizer
		}
		tok, err := markov.TokenizerByName(req.Tokenizer)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Halt == "" {
			req.Halt = m.defaults.HaltSymbol
		}
		if req.Separator == "" {
			req.Separator = tok.Separator()
		}

		model := store.ModelInfo{Name: req.Name, Tokenizer: tok.Name(), Halt: req.Halt, Separator: req.Separator}
		if err = m.store.InsertModel(r.Context(), model); err != nil {
			m.logger.Error("Failed to insert new model", "name", req.Name, "error", err)
			respondWithError(w, http.StatusConflict, fmt.Sprintf("Failed to create model: %v", err))
			return
		}
		newModel, err := m.store.GetModelInfo(r.Context(), req.Name)
		if err != nil {
			m.logger.Error("Failed to retrieve newly created model", "name", req.Name, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to verify model creation: %v", err))
			return
		}
		respondWithJSON(w, http.StatusCreated, newModel)
	default:
		w.Header().Set("Allow", "GET, POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// handleModelByName routes actions for a specific model, e.g., train, generate, prune, export, delete.
func (m *ModelsAPI) handleModelByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/models/")
	parts := strings.Split(path, "/")
	modelName := parts[0]

	if modelName == "" {
		respondWithError(w, http.StatusBadRequest, "Model name not specified")
		return
	}

	model, err := m.store.GetModelInfo(r.Context(), modelName)
	if err != nil {
		if errors.Is(err, store.ErrModelNotFound) {
			respondWithError(w, http.StatusNotFound, "Model not found")
			return
		}
		m.logger.Error("Failed to get model info by name", "name", modelName, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Database error: %v", err))
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			ms, err := m.store.GetModelStats(r.Context(), model)
			if err != nil {
				respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get model stats: %v", err))
				return
			}
			respondWithJSON(w, http.StatusOK, map[string]any{"model": model, "stats": ms})
		case http.MethodDelete:
			m.mu.Lock()
			err = m.store.RemoveModel(r.Context(), model)
			m.mu.Unlock()
			if err != nil {
				m.logger.Error("Failed to remove model", "name", modelName, "error", err)
				respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to remove model: %v", err))
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := parts[1]
	switch action {
	case "train":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		m.handleTrain(w, r, model)

	case "generate":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		m.handleGenerate(w, r, model)

	case "prune":
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		var req PruneRequest
		if err = json.NewDecoder(r.Body).Decode(&req); err != nil || req.MinFreq < 0 {
			respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
			return
		}
		m.mu.Lock()
		removed, err := m.store.PruneModel(r.Context(), model, req.MinFreq)
		m.mu.Unlock()
		if err != nil {
			m.logger.Error("Failed to prune model", "name", modelName, "error", err)
			respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Pruning failed: %v", err))
			return
		}
		respondWithJSON(w, http.StatusOK, map[string]int64{"removed": removed})

	case "export":
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", "GET")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", modelName))
		if err = m.store.ExportModel(r.Context(), model, w); err != nil {
			m.logger.Error("Failed to export model", "name", modelName, "error", err)
		}

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

// handleTrain trains the model on a request body holding one word per line.
func (m *ModelsAPI) handleTrain(w http.ResponseWriter, r *http.Request, model store.ModelInfo) {
	tok, err := modelTokenizer(model)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}
	chain := markov.NewStringChain(model.Halt, model.Separator, markov.WithLogger[string](m.logger))

	res, err := markov.Train(r.Context(), chain, tok, http.MaxBytesReader(w, r.Body, maxTrainBody))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Training failed: %v", err))
		return
	}

	m.mu.Lock()
	err = m.store.SaveChain(r.Context(), model, chain)
	m.mu.Unlock()
	if err != nil {
		m.logger.Error("Failed to save trained chain", "name", model.Name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Training failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// handleGenerate samples names from the model. Query parameters count, min
// and max override the configured defaults.
func (m *ModelsAPI) handleGenerate(w http.ResponseWriter, r *http.Request, model store.ModelInfo) {
	q := r.URL.Query()
	count, err := queryInt(q.Get("count"), m.defaults.Count)
	if err != nil || count < 0 || count > maxNamesPerCall {
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("count must be between 0 and %d", maxNamesPerCall))
		return
	}
	minLength, err := queryInt(q.Get("min"), m.defaults.MinLength)
	if err != nil || minLength < 0 {
		respondWithError(w, http.StatusBadRequest, "min must be a non-negative integer")
		return
	}
	maxLength, err := queryInt(q.Get("max"), m.defaults.MaxLength)
	if err != nil || maxLength < 0 {
		respondWithError(w, http.StatusBadRequest, "max must be a non-negative integer")
		return
	}
	if maxLength > 0 && maxLength <= minLength {
		respondWithError(w, http.StatusBadRequest, "max must be greater than min")
		return
	}

	chain, err := m.store.LoadChain(r.Context(), model, markov.WithLogger[string](m.logger))
	if err != nil {
		m.logger.Error("Failed to load chain", "name", model.Name, "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to load model: %v", err))
		return
	}

	resp := GenerateResponse{Names: []string{}}
	m.mu.Lock()
	for name, err := range chain.Names(r.Context(), m.rng, count,
		markov.WithMinLength(minLength),
		markov.WithMaxLength(maxLength),
		markov.WithMaxAttempts(m.defaults.MaxAttempts),
	) {
		if err != nil {
			resp.Errors = append(resp.Errors, fmt.Sprintf("%s: %v", markov.ErrorKind(err), err))
			continue
		}
		resp.Names = append(resp.Names, name)
	}
	m.mu.Unlock()

	if len(resp.Names) == 0 && count > 0 && len(resp.Errors) > 0 {
		respondWithJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// handleImport imports a model from an uploaded JSON file.
func (m *ModelsAPI) handleImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	m.mu.Lock()
	model, err := m.store.ImportModel(r.Context(), http.MaxBytesReader(w, r.Body, maxTrainBody))
	m.mu.Unlock()
	if err != nil {
		m.logger.Error("Failed to import model", "error", err)
		respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Import failed: %v", err))
		return
	}
	respondWithJSON(w, http.StatusCreated, model)
}

// modelTokenizer rebuilds the tokenizer a stored model was trained with.
func modelTokenizer(model store.ModelInfo) (markov.Tokenizer, error) {
	if model.Tokenizer == markov.WordTokenizerName {
		return markov.NewWordTokenizer(markov.WithTokenSeparator(model.Separator)), nil
	}
	return markov.TokenizerByName(model.Tokenizer)
}

func queryInt(value string, fallback int) (int, error) {
	if value == "" {
		return fallback, nil
	}
	return strconv.Atoi(value)
}
