package markov

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	// maxWordSymbols keeps a single malformed line from dominating the model.
	maxWordSymbols = 4096
	// maxLineBytes bounds how much of one line is held in memory.
	maxLineBytes = 1 << 20
)

// TrainResult summarizes one training run.
type TrainResult struct {
	Lines   int // Lines read, including blank ones.
	Words   int // Words added to the chain.
	Skipped int // Non-blank lines that could not be used.
}

// Train reads one word per line from data, splits each with tok, and adds it
// to chain as a terminated word. Blank lines are ignored. Lines rejected with
// ErrInvalidInput, or longer than the symbol or byte limit, are counted as
// skipped; any other error stops training.
func Train(ctx context.Context, chain *Chain[string], tok Tokenizer, data io.Reader) (TrainResult, error) {
	var res TrainResult
	r := bufio.NewReader(data)
	for {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		line, tooLong, err := readLine(r)
		eof := errors.Is(err, io.EOF)
		if err != nil && !eof {
			return res, fmt.Errorf("reading training data: %w", err)
		}
		if eof && line == "" && !tooLong {
			break
		}

		res.Lines++
		if tooLong {
			res.Skipped++
			chain.logger.WarnContext(ctx, "Skipping overlong training line", slog.Int("line", res.Lines))
		} else if err = trainLine(chain, tok, line, &res); err != nil {
			return res, err
		}
		if eof {
			break
		}
	}

	chain.logger.InfoContext(ctx, "Training completed",
		slog.String("tokenizer", tok.Name()),
		slog.Int("lines", res.Lines),
		slog.Int("words", res.Words),
		slog.Int("skipped", res.Skipped),
	)
	return res, nil
}

// TrainWords is Train over an in-memory list of words.
func TrainWords(chain *Chain[string], tok Tokenizer, words []string) (TrainResult, error) {
	var res TrainResult
	for _, w := range words {
		res.Lines++
		if err := trainLine(chain, tok, w, &res); err != nil {
			return res, err
		}
	}
	return res, nil
}

// readLine returns the next line including its newline. Lines longer than
// maxLineBytes are consumed but not returned, and tooLong is set.
func readLine(r *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > maxLineBytes {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return string(buf), tooLong, err
	}
}

func trainLine(chain *Chain[string], tok Tokenizer, line string, res *TrainResult) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	symbols := tok.Split(line)
	if len(symbols) > maxWordSymbols {
		res.Skipped++
		chain.logger.Warn("Skipping overlong training line", slog.Int("symbols", len(symbols)))
		return nil
	}
	if err := chain.AddWord(symbols, true); err != nil {
		if errors.Is(err, ErrInvalidInput) {
			res.Skipped++
			chain.logger.Debug("Skipping training line", slog.String("line", line), slog.Any("error", err))
			return nil
		}
		return err
	}
	res.Words++
	return nil
}
