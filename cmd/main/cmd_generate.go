package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/CTAG07/namegen/pkg/markov"
	"github.com/CTAG07/namegen/pkg/store"
	"github.com/chzyer/readline"
	"github.com/dustin/go-humanize"
	"github.com/montanaflynn/stats"
	"github.com/spf13/cobra"
)

func newGenerateCmd(a *app) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "generate [wordlist]",
		Short: "Train on a word list and print generated names",
		Long: `Trains a chain on a word list, one word per line, and prints summary
statistics followed by generated names. Without a file, words are read
from the terminal until a blank line. With --model, a stored model is used
instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := a.generateChain(cmd, model, args)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printChainStats(out, chain.Stats(), chain.FanOut())
			a.printNames(cmd.Context(), out, chain)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", "", "generate from a stored model instead of a word list")
	return cmd
}

// generateChain builds the chain the generate command samples from.
func (a *app) generateChain(cmd *cobra.Command, model string, args []string) (*markov.Chain[string], error) {
	ctx := cmd.Context()
	if model != "" {
		if len(args) > 0 {
			return nil, errors.New("a word list and --model cannot be used together")
		}
		var chain *markov.Chain[string]
		err := a.withStore(func(s *store.Store) error {
			info, err := s.GetModelInfo(ctx, model)
			if err != nil {
				return err
			}
			chain, err = s.LoadChain(ctx, info, markov.WithLogger[string](a.logger))
			return err
		})
		return chain, err
	}

	g := a.config.Generation
	tok, err := g.NewTokenizer()
	if err != nil {
		return nil, err
	}
	chain := g.NewChain(tok, a.logger)

	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return nil, fmt.Errorf("failed to open word list: %w", err)
		}
		defer func() { _ = f.Close() }()
		_, err = markov.Train(ctx, chain, tok, f)
		return chain, err
	}

	words, err := readWords(cmd.InOrStdin(), cmd.OutOrStdout())
	if err != nil {
		return nil, err
	}
	if _, err = markov.TrainWords(chain, tok, words); err != nil {
		return nil, err
	}
	return chain, nil
}

// readWords collects words until a blank line or end of input. A terminal
// gets a line editor; anything else is read as plain lines.
func readWords(in io.Reader, out io.Writer) ([]string, error) {
	fmt.Fprintln(out, "Enter words, provide blank input to end:")
	if in != os.Stdin || !readline.DefaultIsTerminal() {
		return scanWords(in)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		Stdout:          out,
	})
	if err != nil {
		return nil, err
	}
	defer func() { _ = rl.Close() }()

	var words []string
	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return words, nil
			}
			return nil, err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return words, nil
		}
		words = append(words, line)
	}
}

func scanWords(in io.Reader) ([]string, error) {
	var words []string
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			break
		}
		words = append(words, line)
	}
	return words, scanner.Err()
}

func printChainStats(out io.Writer, s markov.ChainStats, fanOut []int) {
	fmt.Fprintf(out, "States: %s\n\n", humanize.Comma(int64(s.States)))
	fmt.Fprintf(out, "Total Transitions: %s\n", humanize.Comma(int64(s.Transitions)))
	fmt.Fprintf(out, "Average Transitions per state: %s\n", humanize.FtoaWithDigits(s.AvgTransitions, 3))

	if len(fanOut) == 0 {
		return
	}
	data := stats.LoadRawData(fanOut)
	mean, _ := stats.Mean(data)
	median, _ := stats.Median(data)
	maxFan, _ := stats.Max(data)
	fmt.Fprintf(out, "Successors per state: mean %s, median %s, max %s\n\n",
		humanize.FtoaWithDigits(mean, 2), humanize.FtoaWithDigits(median, 2), humanize.FtoaWithDigits(maxFan, 0))
}

// printNames writes the configured number of names. A failed generation is
// reported on its own line and does not stop the rest.
func (a *app) printNames(ctx context.Context, out io.Writer, chain *markov.Chain[string]) {
	g := a.config.Generation
	var failed int
	for name, err := range chain.Names(ctx, a.newRand(), g.Count, g.GenerateOptions()...) {
		if err != nil {
			failed++
			fmt.Fprintf(out, "%s: %v\n", markov.ErrorKind(err), err)
			continue
		}
		fmt.Fprintln(out, name)
	}
	if failed > 0 {
		a.logger.Warn("Some names could not be generated", slog.Int("failed", failed), slog.Int("requested", g.Count))
	}
}
