package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/CTAG07/namegen/pkg/store"
)

// ModelSummary pairs a stored model with its statistics.
type ModelSummary struct {
	store.ModelInfo
	TotalLinks      int `json:"total_links"`
	TotalFrequency  int `json:"total_frequency"`
	StartingSymbols int `json:"starting_symbols"`
	Words           int `json:"words"`
}

// GlobalStatsSummary provides a high-level overview of every stored model.
type GlobalStatsSummary struct {
	SymbolCount int            `json:"symbol_count"`
	Models      []ModelSummary `json:"models"`
}

// StatsAPI holds the dependencies for the statistics handlers.
type StatsAPI struct {
	store  *store.Store
	logger *slog.Logger
}

func NewStatsAPI(s *store.Store, logger *slog.Logger) *StatsAPI {
	return &StatsAPI{
		store:  s,
		logger: logger,
	}
}

func (s *StatsAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/stats/summary", s.handleSummary)
}

func (s *StatsAPI) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	dbStats, err := s.store.GetStats(r.Context())
	if err != nil {
		s.logger.Error("Failed to get stats summary", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to get stats: %v", err))
		return
	}

	summary := GlobalStatsSummary{
		SymbolCount: dbStats.SymbolSize,
		Models:      make([]ModelSummary, 0, len(dbStats.Models)),
	}
	for _, m := range dbStats.Models {
		ms := dbStats.Stats[m.Id]
		summary.Models = append(summary.Models, ModelSummary{
			ModelInfo:       m,
			TotalLinks:      ms.TotalLinks,
			TotalFrequency:  ms.TotalFrequency,
			StartingSymbols: ms.StartingSymbols,
			Words:           ms.Words,
		})
	}
	sort.Slice(summary.Models, func(i, j int) bool { return summary.Models[i].Name < summary.Models[j].Name })
	respondWithJSON(w, http.StatusOK, summary)
}
