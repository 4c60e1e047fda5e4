package main

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/CTAG07/namegen/pkg/markov"
	"github.com/CTAG07/namegen/pkg/store"
	"github.com/dustin/go-humanize"
	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"
)

func newTrainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "train <model> <wordlist>",
		Short: "Train a stored model on a word list",
		Long:  "Trains a stored model on a word list, one word per line. The model is created with the configured tokenizer and halt symbol when it does not exist; counts are added to an existing one.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			g := a.config.Generation
			tok, err := g.NewTokenizer()
			if err != nil {
				return err
			}
			chain := g.NewChain(tok, a.logger)

			f, err := os.Open(args[1])
			if err != nil {
				return fmt.Errorf("failed to open word list: %w", err)
			}
			defer func() { _ = f.Close() }()
			res, err := markov.Train(ctx, chain, tok, f)
			if err != nil {
				return err
			}

			return a.withStore(func(s *store.Store) error {
				info, err := s.EnsureModel(ctx, store.ModelInfo{
					Name:      args[0],
					Tokenizer: tok.Name(),
					Halt:      g.HaltSymbol,
					Separator: chain.Separator(),
				})
				if err != nil {
					return err
				}
				if info.Tokenizer != tok.Name() {
					return fmt.Errorf("model %q uses the %s tokenizer, not %s", info.Name, info.Tokenizer, tok.Name())
				}
				if err = s.SaveChain(ctx, info, chain); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Trained %q on %s words (%s lines skipped)\n",
					info.Name, humanize.Comma(int64(res.Words)), humanize.Comma(int64(res.Skipped)))
				return nil
			})
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show statistics for every stored model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withStore(func(s *store.Store) error {
				dbStats, err := s.GetStats(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Models: %d, distinct symbols: %s\n", len(dbStats.Models), humanize.Comma(int64(dbStats.SymbolSize)))

				models := dbStats.Models
				sort.Slice(models, func(i, j int) bool { return models[i].Name < models[j].Name })
				for _, m := range models {
					ms := dbStats.Stats[m.Id]
					fmt.Fprintf(out, "  %s (%s): %s words, %s starting symbols, %s links, %s transitions\n",
						m.Name, m.Tokenizer,
						humanize.Comma(int64(ms.Words)),
						humanize.Comma(int64(ms.StartingSymbols)),
						humanize.Comma(int64(ms.TotalLinks)),
						humanize.Comma(int64(ms.TotalFrequency)),
					)
				}
				return nil
			})
		},
	}
}

func newPruneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune <model> <minFreq>",
		Short: "Remove transitions seen minFreq times or fewer",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			minFreq, err := strconv.Atoi(args[1])
			if err != nil || minFreq < 0 {
				return fmt.Errorf("minFreq must be a non-negative integer, got %q", args[1])
			}
			return a.withStore(func(s *store.Store) error {
				info, err := s.GetModelInfo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				removed, err := s.PruneModel(cmd.Context(), info, minFreq)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s entries from %q\n", humanize.Comma(removed), info.Name)
				return nil
			})
		},
	}
}

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <model> <file>",
		Short: "Write a stored model to a JSON file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(s *store.Store) error {
				info, err := s.GetModelInfo(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				var buf bytes.Buffer
				if err = s.ExportModel(cmd.Context(), info, &buf); err != nil {
					return err
				}
				size := uint64(buf.Len())
				if err = atomic.WriteFile(args[1], &buf); err != nil {
					return fmt.Errorf("failed to write export file: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %q to %s (%s)\n", info.Name, args[1], humanize.Bytes(size))
				return nil
			})
		},
	}
}

func newImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import or merge a model from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer func() { _ = f.Close() }()

			return a.withStore(func(s *store.Store) error {
				info, err := s.ImportModel(cmd.Context(), f)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %q\n", info.Name)
				return nil
			})
		},
	}
}
