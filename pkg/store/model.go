package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/CTAG07/namegen/pkg/markov"
)

// ModelInfo holds the metadata needed to rebuild a persisted chain.
type ModelInfo struct {
	Id        int    `json:"id"`
	Name      string `json:"name"`
	Tokenizer string `json:"tokenizer"`
	Halt      string `json:"halt_symbol"`
	Separator string `json:"separator"`
}

// GetModelInfos retrieves metadata for all models currently in the database,
// returning them in a map keyed by model name.
func (s *Store) GetModelInfos(ctx context.Context) (map[string]ModelInfo, error) {
	rows, err := s.stmtGetModels.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	models := make(map[string]ModelInfo)
	for rows.Next() {
		var m ModelInfo
		if err = rows.Scan(&m.Id, &m.Name, &m.Tokenizer, &m.Halt, &m.Separator); err != nil {
			return nil, err
		}
		models[m.Name] = m
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return models, nil
}

// GetModelInfo retrieves the metadata for a single model specified by name.
func (s *Store) GetModelInfo(ctx context.Context, name string) (ModelInfo, error) {
	m := ModelInfo{Name: name}
	err := s.stmtGetModelInfo.QueryRowContext(ctx, name).Scan(&m.Id, &m.Tokenizer, &m.Halt, &m.Separator)
	if errors.Is(err, sql.ErrNoRows) {
		return ModelInfo{}, fmt.Errorf("%w %q: %w", ErrModelNotFound, name, err)
	}
	if err != nil {
		return ModelInfo{}, err
	}
	return m, nil
}

// InsertModel creates a new model entry in the database.
func (s *Store) InsertModel(ctx context.Context, model ModelInfo) error {
	if model.Name == "" {
		return errors.New("model name is required")
	}
	_, err := s.stmtAddModel.ExecContext(ctx, model.Name, model.Tokenizer, model.Halt, model.Separator)
	return err
}

// EnsureModel returns the named model, creating it from model when absent.
func (s *Store) EnsureModel(ctx context.Context, model ModelInfo) (ModelInfo, error) {
	existing, err := s.GetModelInfo(ctx, model.Name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrModelNotFound) {
		return ModelInfo{}, err
	}
	if err = s.InsertModel(ctx, model); err != nil {
		return ModelInfo{}, fmt.Errorf("failed to create model %q: %w", model.Name, err)
	}
	return s.GetModelInfo(ctx, model.Name)
}

// RemoveModel deletes a model and all of its associated chain data from the
// database. The operation is performed within a transaction.
func (s *Store) RemoveModel(ctx context.Context, model ModelInfo) error {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	if _, err = tx.ExecContext(ctx, "DELETE FROM namegen_links WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove links for model %d: %w", model.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM namegen_starts WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove starts for model %d: %w", model.Id, err)
	}

	if _, err = tx.ExecContext(ctx, "DELETE FROM namegen_models WHERE model_id = ?", model.Id); err != nil {
		return fmt.Errorf("failed to remove model %d: %w", model.Id, err)
	}

	s.logger.InfoContext(ctx, "Model removed successfully",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
	)

	return tx.Commit()
}

// SaveChain merges the counts of chain into the stored model: frequencies
// are added to what is already there. The entire operation is performed
// within a single database transaction.
func (s *Store) SaveChain(ctx context.Context, model ModelInfo, chain *markov.Chain[string]) error {
	if chain.Halt() != model.Halt {
		return fmt.Errorf("chain halt symbol %q does not match model %q (%q)", chain.Halt(), model.Name, model.Halt)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	w, err := newChainWriter(ctx, tx, s.stmtInsertSymbol, model.Id)
	if err != nil {
		return err
	}
	defer w.close()

	var links int
	chain.Each(func(from string, t *markov.TransitionTable[string]) {
		t.Each(func(to string, count int) {
			if err != nil {
				return
			}
			if err = w.addLink(from, to, count); err == nil {
				links++
			}
		})
	})
	if err != nil {
		return err
	}

	chain.Initial().Each(func(sym string, count int) {
		if err != nil {
			return
		}
		err = w.addStart(sym, count)
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Chain saved",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("links_merged", links),
		slog.Int("starts_merged", chain.Initial().Len()),
	)

	return tx.Commit()
}

// LoadChain rebuilds the stored model as an in-memory chain. Extra options
// are applied after the model's own halt symbol and separator.
func (s *Store) LoadChain(ctx context.Context, model ModelInfo, opts ...markov.ChainOption[string]) (*markov.Chain[string], error) {
	chain := markov.NewStringChain(model.Halt, model.Separator, opts...)

	rows, err := s.stmtLoadLinks.QueryContext(ctx, model.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query links for model %d: %w", model.Id, err)
	}
	for rows.Next() {
		var from, to string
		var freq int
		if err = rows.Scan(&from, &to, &freq); err != nil {
			_ = rows.Close()
			return nil, err
		}
		if err = chain.AddLinkN(from, to, freq); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("consistency error in model %q: %w", model.Name, err)
		}
	}
	_ = rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	sRows, err := s.stmtLoadStarts.QueryContext(ctx, model.Id)
	if err != nil {
		return nil, fmt.Errorf("could not query starts for model %d: %w", model.Id, err)
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(sRows)
	for sRows.Next() {
		var sym string
		var freq int
		if err = sRows.Scan(&sym, &freq); err != nil {
			return nil, err
		}
		if err = chain.AddStartN(sym, freq); err != nil {
			return nil, fmt.Errorf("consistency error in model %q: %w", model.Name, err)
		}
	}
	if err = sRows.Err(); err != nil {
		return nil, err
	}

	s.logger.DebugContext(ctx, "Chain loaded",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
	)
	return chain, nil
}

// PruneModel removes all links and starting symbols of a model that have a
// frequency less than or equal to minFreq.
func (s *Store) PruneModel(ctx context.Context, model ModelInfo, minFreq int) (int64, error) {
	res, err := s.stmtPruneLinks.ExecContext(ctx, model.Id, minFreq)
	if err != nil {
		return 0, fmt.Errorf("could not prune model %d: %w", model.Id, err)
	}
	links, _ := res.RowsAffected()

	res, err = s.stmtPruneStarts.ExecContext(ctx, model.Id, minFreq)
	if err != nil {
		return links, fmt.Errorf("could not prune starts of model %d: %w", model.Id, err)
	}
	starts, _ := res.RowsAffected()

	s.logger.InfoContext(ctx, "Model pruned",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("min_frequency", minFreq),
		slog.Int64("links_removed", links),
		slog.Int64("starts_removed", starts),
	)
	return links + starts, nil
}

// chainWriter batches the symbol lookups and frequency upserts of one
// transaction.
type chainWriter struct {
	ctx          context.Context
	modelID      int
	symbolCache  map[string]int
	insertSymbol *sql.Stmt
	insertLink   *sql.Stmt
	insertStart  *sql.Stmt
}

func newChainWriter(ctx context.Context, tx *sql.Tx, insertSymbol *sql.Stmt, modelID int) (*chainWriter, error) {
	// Prepare a special query so that if we're updating instead of inserting, we don't overwrite the frequency value
	insertLink, err := tx.PrepareContext(ctx, `
		INSERT INTO namegen_links (model_id, from_id, to_id, frequency) VALUES (?, ?, ?, ?)
		ON CONFLICT(model_id, from_id, to_id) DO UPDATE SET frequency = frequency + excluded.frequency;
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare link insert statement: %w", err)
	}
	insertStart, err := tx.PrepareContext(ctx, `
		INSERT INTO namegen_starts (model_id, symbol_id, frequency) VALUES (?, ?, ?)
		ON CONFLICT(model_id, symbol_id) DO UPDATE SET frequency = frequency + excluded.frequency;
	`)
	if err != nil {
		_ = insertLink.Close()
		return nil, fmt.Errorf("failed to prepare start insert statement: %w", err)
	}
	return &chainWriter{
		ctx:          ctx,
		modelID:      modelID,
		symbolCache:  make(map[string]int),
		insertSymbol: tx.StmtContext(ctx, insertSymbol),
		insertLink:   insertLink,
		insertStart:  insertStart,
	}, nil
}

func (w *chainWriter) symbolID(text string) (int, error) {
	if id, ok := w.symbolCache[text]; ok {
		return id, nil
	}
	var id int
	if err := w.insertSymbol.QueryRowContext(w.ctx, text).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to get/insert symbol %q: %w", text, err)
	}
	w.symbolCache[text] = id
	return id, nil
}

func (w *chainWriter) addLink(from, to string, count int) error {
	fromID, err := w.symbolID(from)
	if err != nil {
		return err
	}
	toID, err := w.symbolID(to)
	if err != nil {
		return err
	}
	if _, err = w.insertLink.ExecContext(w.ctx, w.modelID, fromID, toID, count); err != nil {
		return fmt.Errorf("failed to insert link (%q -> %q): %w", from, to, err)
	}
	return nil
}

func (w *chainWriter) addStart(sym string, count int) error {
	id, err := w.symbolID(sym)
	if err != nil {
		return err
	}
	if _, err = w.insertStart.ExecContext(w.ctx, w.modelID, id, count); err != nil {
		return fmt.Errorf("failed to insert start %q: %w", sym, err)
	}
	return nil
}

func (w *chainWriter) close() {
	_ = w.insertLink.Close()
	_ = w.insertStart.Close()
}
