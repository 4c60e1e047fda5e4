package store

import "context"

// DBStats holds aggregated statistics for the entire database, including a
// list of all models and their individual stats.
type DBStats struct {
	Models     []ModelInfo        // A list of models in the database
	Stats      map[int]ModelStats // A mapping of model ids to their stats
	SymbolSize int                // The number of unique symbols across all models
}

// ModelStats holds aggregated statistics for a single stored model.
type ModelStats struct {
	TotalLinks      int // The number of unique from->to links.
	TotalFrequency  int // The sum of frequencies of all links; the total number of trained transitions.
	StartingSymbols int // The number of unique symbols that can start a word.
	Words           int // The number of words trained.
}

// GetStats returns a snapshot of statistics for the entire database,
// including global counts and per-model stats.
func (s *Store) GetStats(ctx context.Context) (*DBStats, error) {
	modelInfos, err := s.GetModelInfos(ctx)
	if err != nil {
		return nil, err
	}

	var symbolLen int
	if err = s.stmtGetSymbolsLen.QueryRowContext(ctx).Scan(&symbolLen); err != nil {
		return nil, err
	}

	models := make([]ModelInfo, 0, len(modelInfos))
	modelStats := make(map[int]ModelStats)
	for _, v := range modelInfos {
		models = append(models, v)
		ms, err := s.GetModelStats(ctx, v)
		if err != nil {
			return nil, err
		}
		modelStats[v.Id] = ms
	}

	return &DBStats{
		Models:     models,
		Stats:      modelStats,
		SymbolSize: symbolLen,
	}, nil
}

// GetModelStats returns the stats of a single model.
func (s *Store) GetModelStats(ctx context.Context, model ModelInfo) (ModelStats, error) {
	var ms ModelStats
	if err := s.stmtModelLinks.QueryRowContext(ctx, model.Id).Scan(&ms.TotalLinks); err != nil {
		return ModelStats{}, err
	}
	if err := s.stmtModelFreq.QueryRowContext(ctx, model.Id).Scan(&ms.TotalFrequency); err != nil {
		return ModelStats{}, err
	}
	if err := s.stmtModelStarters.QueryRowContext(ctx, model.Id).Scan(&ms.StartingSymbols); err != nil {
		return ModelStats{}, err
	}
	if err := s.stmtModelWords.QueryRowContext(ctx, model.Id).Scan(&ms.Words); err != nil {
		return ModelStats{}, err
	}
	return ms, nil
}
