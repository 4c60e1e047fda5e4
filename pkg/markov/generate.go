package markov

import (
	"errors"
	"fmt"
	"log/slog"
)

const (
	// DefaultMinLength is the length at or below which generated words are
	// rejected and regenerated.
	DefaultMinLength = 3
	// DefaultMaxAttempts bounds the number of walks made by one Generate call.
	DefaultMaxAttempts = 1000
)

// WalkState is the terminal state of a single walk.
type WalkState int

const (
	// WalkHalted means the walk reached the halt symbol.
	WalkHalted WalkState = iota
	// WalkTruncated means the walk stopped at the configured maximum length.
	WalkTruncated
	// WalkDeadEnd means the walk reached a state with no outgoing transitions.
	WalkDeadEnd
)

func (s WalkState) String() string {
	switch s {
	case WalkHalted:
		return "halted"
	case WalkTruncated:
		return "truncated"
	default:
		return "dead_end"
	}
}

// Walk is the outcome of one walk through the chain.
type Walk[S comparable] struct {
	Symbols []S
	State   WalkState
}

// generateOptions holds the settings shared by Walk and Generate.
type generateOptions struct {
	maxLength   int
	minLength   int
	maxAttempts int
}

// GenerateOption configures generation. It's used as a variadic argument in
// Walk, Generate and GenerateString.
type GenerateOption func(*generateOptions)

// WithMaxLength caps the number of symbols in a generated word. A walk that
// reaches the cap stops successfully. 0 disables the cap.
func WithMaxLength(n int) GenerateOption {
	return func(o *generateOptions) { o.maxLength = n }
}

// WithMinLength sets the length at or below which Generate rejects a word
// and tries again. Default: 3
func WithMinLength(n int) GenerateOption {
	return func(o *generateOptions) { o.minLength = n }
}

// WithMaxAttempts sets how many walks Generate may make before giving up.
// Default: 1000
func WithMaxAttempts(n int) GenerateOption {
	return func(o *generateOptions) { o.maxAttempts = n }
}

func newGenerateOptions(opts []GenerateOption) *generateOptions {
	options := &generateOptions{
		maxLength:   0,
		minLength:   DefaultMinLength,
		maxAttempts: DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(options)
	}
	if options.maxAttempts < 1 {
		options.maxAttempts = 1
	}
	return options
}

// Walk performs a single random walk from an initial symbol until the halt
// symbol, the maximum length, or a dead end. The minimum length is not
// applied. A dead end is returned as a *DeadEndError together with the
// partial walk.
func (c *Chain[S]) Walk(rng Rand, opts ...GenerateOption) (Walk[S], error) {
	return c.walk(rng, newGenerateOptions(opts))
}

func (c *Chain[S]) walk(rng Rand, options *generateOptions) (Walk[S], error) {
	current, ok := c.initial.Sample(rng)
	if !ok {
		return Walk[S]{}, ErrEmptyChain
	}

	var output []S
	for {
		if current == c.halt {
			return Walk[S]{Symbols: output, State: WalkHalted}, nil
		}
		output = append(output, current)

		if options.maxLength > 0 && len(output) >= options.maxLength {
			return Walk[S]{Symbols: output, State: WalkTruncated}, nil
		}

		var next S
		table, kind := c.Lookup(current)
		if kind == StateActive {
			next, ok = table.Sample(rng)
		} else {
			ok = false
		}
		if !ok {
			c.logger.Debug("Walk terminated due to dead-end",
				slog.String("symbol", c.format(current)),
				slog.String("state", kind.String()),
				slog.Int("generated_length", len(output)),
			)
			return Walk[S]{Symbols: output, State: WalkDeadEnd}, &DeadEndError[S]{Symbol: current, Partial: output}
		}
		current = next
	}
}

// Generate walks the chain until it produces a word longer than the minimum
// length. Dead ends and short words are retried up to the attempt limit.
// ErrEmptyChain is returned at once. When attempts run out,
// ErrGenerationTimeout is returned if any word was rejected as too short;
// otherwise the last dead end is returned.
func (c *Chain[S]) Generate(rng Rand, opts ...GenerateOption) ([]S, error) {
	options := newGenerateOptions(opts)

	var lastDeadEnd error
	var shortRejects, deadEnds int
	for attempt := 1; attempt <= options.maxAttempts; attempt++ {
		w, err := c.walk(rng, options)
		if err != nil {
			if errors.Is(err, ErrDeadEnd) {
				deadEnds++
				lastDeadEnd = err
				continue
			}
			return nil, err
		}
		if len(w.Symbols) <= options.minLength {
			shortRejects++
			continue
		}
		if attempt > 1 {
			c.logger.Debug("Generated word after retries",
				slog.Int("attempts", attempt),
				slog.Int("short_rejects", shortRejects),
				slog.Int("dead_ends", deadEnds),
			)
		}
		return w.Symbols, nil
	}

	c.logger.Warn("Generation gave up",
		slog.Int("max_attempts", options.maxAttempts),
		slog.Int("min_length", options.minLength),
		slog.Int("short_rejects", shortRejects),
		slog.Int("dead_ends", deadEnds),
	)
	if shortRejects > 0 {
		return nil, fmt.Errorf("%w: %d attempts, %d shorter than %d symbols, %d dead ends",
			ErrGenerationTimeout, options.maxAttempts, shortRejects, options.minLength+1, deadEnds)
	}
	return nil, fmt.Errorf("every one of %d attempts hit a dead end: %w", options.maxAttempts, lastDeadEnd)
}

// GenerateString is Generate joined with the chain's separator.
func (c *Chain[S]) GenerateString(rng Rand, opts ...GenerateOption) (string, error) {
	symbols, err := c.Generate(rng, opts...)
	if err != nil {
		return "", err
	}
	return c.Format(symbols), nil
}
