package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/CTAG07/namegen/pkg/markov"
)

// ExportedModel is the serializable representation of a trained model,
// used for JSON-based import and export.
type ExportedModel struct {
	Name      string         `json:"name"`
	Tokenizer string         `json:"tokenizer"`
	Halt      string         `json:"halt_symbol"`
	Separator string         `json:"separator"`
	Starts    map[string]int `json:"starts"` // symbol -> frequency
	Links     []ExportedLink `json:"links"`
}

// ExportedLink is the serializable representation of a single transition
// in a chain, used within an ExportedModel.
type ExportedLink struct {
	From      string `json:"from"`
	To        string `json:"to"`
	Frequency int    `json:"frequency"`
}

// ExportModel serializes a given model into a JSON format and writes it to the
// provided io.Writer. This is useful for backups or for transferring models.
func (s *Store) ExportModel(ctx context.Context, model ModelInfo, w io.Writer) error {
	chain, err := s.LoadChain(ctx, model)
	if err != nil {
		return fmt.Errorf("could not load chain for export: %w", err)
	}

	exported := ExportedModel{
		Name:      model.Name,
		Tokenizer: model.Tokenizer,
		Halt:      model.Halt,
		Separator: model.Separator,
		Starts:    make(map[string]int),
		Links:     []ExportedLink{},
	}
	chain.Initial().Each(func(sym string, count int) {
		exported.Starts[sym] = count
	})
	chain.Each(func(from string, t *markov.TransitionTable[string]) {
		t.Each(func(to string, count int) {
			exported.Links = append(exported.Links, ExportedLink{From: from, To: to, Frequency: count})
		})
	})

	s.logger.InfoContext(ctx, "Model exported",
		slog.String("model_name", model.Name),
		slog.Int("model_id", model.Id),
		slog.Int("starts_exported", len(exported.Starts)),
		slog.Int("links_exported", len(exported.Links)),
	)

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exported)
}

// ImportModel reads a JSON representation of a model from an io.Reader and
// merges its data into the database. If the model name already exists, the
// new chain data is merged with the existing data (frequencies are added).
// If the model does not exist, it is created. The entire operation is
// transactional.
func (s *Store) ImportModel(ctx context.Context, r io.Reader) (ModelInfo, error) {
	var imported ExportedModel
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return ModelInfo{}, fmt.Errorf("failed to decode json model: %w", err)
	}
	if imported.Name == "" {
		return ModelInfo{}, errors.New("imported model has no name")
	}

	// Rebuild the chain first so that a link out of the halt symbol is
	// rejected before anything is written.
	chain := markov.NewStringChain(imported.Halt, imported.Separator)
	for _, link := range imported.Links {
		if err := chain.AddLinkN(link.From, link.To, link.Frequency); err != nil {
			return ModelInfo{}, fmt.Errorf("import consistency error (%q -> %q): %w", link.From, link.To, err)
		}
	}
	for sym, freq := range imported.Starts {
		if err := chain.AddStartN(sym, freq); err != nil {
			return ModelInfo{}, fmt.Errorf("import consistency error (start %q): %w", sym, err)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ModelInfo{}, fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	model := ModelInfo{Name: imported.Name}
	// Merging keeps the stored settings; the halt and tokenizer must agree.
	err = tx.QueryRowContext(ctx, "SELECT model_id, tokenizer, halt_symbol, separator FROM namegen_models WHERE model_name = ?", imported.Name).
		Scan(&model.Id, &model.Tokenizer, &model.Halt, &model.Separator)
	if errors.Is(err, sql.ErrNoRows) {
		res, err := tx.ExecContext(ctx, "INSERT INTO namegen_models (model_name, tokenizer, halt_symbol, separator) VALUES (?, ?, ?, ?)",
			imported.Name, imported.Tokenizer, imported.Halt, imported.Separator)
		if err != nil {
			return ModelInfo{}, fmt.Errorf("failed to insert new model '%s': %w", imported.Name, err)
		}
		newID, _ := res.LastInsertId()
		model = ModelInfo{
			Id:        int(newID),
			Name:      imported.Name,
			Tokenizer: imported.Tokenizer,
			Halt:      imported.Halt,
			Separator: imported.Separator,
		}
	} else if err != nil {
		return ModelInfo{}, fmt.Errorf("failed to query for model '%s': %w", imported.Name, err)
	} else if model.Halt != imported.Halt {
		return ModelInfo{}, fmt.Errorf("model '%s' exists with halt symbol %q, import uses %q", imported.Name, model.Halt, imported.Halt)
	} else if model.Tokenizer != imported.Tokenizer {
		return ModelInfo{}, fmt.Errorf("model '%s' exists with tokenizer %q, import uses %q", imported.Name, model.Tokenizer, imported.Tokenizer)
	}

	w, err := newChainWriter(ctx, tx, s.stmtInsertSymbol, model.Id)
	if err != nil {
		return ModelInfo{}, err
	}
	defer w.close()

	for _, link := range imported.Links {
		if link.Frequency <= 0 {
			continue
		}
		if err = w.addLink(link.From, link.To, link.Frequency); err != nil {
			return ModelInfo{}, err
		}
	}
	for sym, freq := range imported.Starts {
		if freq <= 0 {
			continue
		}
		if err = w.addStart(sym, freq); err != nil {
			return ModelInfo{}, err
		}
	}

	s.logger.InfoContext(ctx, "Model imported successfully",
		slog.String("model_name", imported.Name),
		slog.Int("target_model_id", model.Id),
		slog.Int("starts_merged", len(imported.Starts)),
		slog.Int("links_merged", len(imported.Links)),
	)

	if err = tx.Commit(); err != nil {
		return ModelInfo{}, err
	}
	return model, nil
}
