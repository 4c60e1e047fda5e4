package markov

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"unicode"
)

// StateKind tags the result of Chain.Lookup.
type StateKind int

const (
	// StateUnknown means the symbol has never been the source of a link.
	StateUnknown StateKind = iota
	// StateActive means the symbol has a transition table. The table may be
	// empty after pruning.
	StateActive
	// StateHalt means the symbol is the halt symbol, which never has a table.
	StateHalt
)

func (k StateKind) String() string {
	switch k {
	case StateActive:
		return "active"
	case StateHalt:
		return "halt"
	default:
		return "unknown"
	}
}

// Chain is a first-order Markov chain over symbols of type S. It holds one
// TransitionTable per source state, a table of word-initial symbols, and the
// halt symbol that marks the end of a word.
//
// A Chain is not safe for concurrent use.
type Chain[S comparable] struct {
	halt      S
	states    map[S]*TransitionTable[S]
	order     []S
	initial   *TransitionTable[S]
	normalize func(S) S
	format    func(S) string
	separator string
	logger    *slog.Logger
}

// ChainOption configures a Chain.
type ChainOption[S comparable] func(*Chain[S])

// WithNormalizer sets a function applied to every symbol before training,
// e.g. unicode.ToLower for case-insensitive character chains.
func WithNormalizer[S comparable](fn func(S) S) ChainOption[S] {
	return func(c *Chain[S]) { c.normalize = fn }
}

// WithFormatter sets how a symbol is rendered when joining generated output.
// Default: fmt.Sprint
func WithFormatter[S comparable](fn func(S) string) ChainOption[S] {
	return func(c *Chain[S]) { c.format = fn }
}

// WithSeparator sets the string placed between symbols in generated output.
// Default: ""
func WithSeparator[S comparable](sep string) ChainOption[S] {
	return func(c *Chain[S]) { c.separator = sep }
}

// WithLogger sets the logger. By default all logs are discarded.
func WithLogger[S comparable](logger *slog.Logger) ChainOption[S] {
	return func(c *Chain[S]) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChain returns an untrained chain that uses halt as its end-of-word
// symbol.
func NewChain[S comparable](halt S, opts ...ChainOption[S]) *Chain[S] {
	c := &Chain[S]{
		halt:      halt,
		states:    make(map[S]*TransitionTable[S]),
		initial:   NewTransitionTable[S](),
		normalize: func(s S) S { return s },
		format:    func(s S) string { return fmt.Sprint(s) },
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewRuneChain returns a case-insensitive character chain that halts on
// '\n' and joins output with no separator.
func NewRuneChain(opts ...ChainOption[rune]) *Chain[rune] {
	base := []ChainOption[rune]{
		WithNormalizer(unicode.ToLower),
		WithFormatter(func(r rune) string { return string(r) }),
	}
	return NewChain[rune]('\n', append(base, opts...)...)
}

// NewStringChain returns a chain over string symbols with case-insensitive
// training, as produced by a Tokenizer.
func NewStringChain(halt, separator string, opts ...ChainOption[string]) *Chain[string] {
	base := []ChainOption[string]{
		WithNormalizer(strings.ToLower),
		WithFormatter(func(s string) string { return s }),
		WithSeparator[string](separator),
	}
	return NewChain(halt, append(base, opts...)...)
}

// SetLogger replaces the chain's logger. A nil logger is ignored.
func (c *Chain[S]) SetLogger(logger *slog.Logger) {
	if logger != nil {
		c.logger = logger
	}
}

// Halt returns the halt symbol.
func (c *Chain[S]) Halt() S { return c.halt }

// Separator returns the output separator.
func (c *Chain[S]) Separator() string { return c.separator }

// Initial returns the table of word-initial symbols.
func (c *Chain[S]) Initial() *TransitionTable[S] { return c.initial }

// Lookup returns the transition table for s without creating one.
func (c *Chain[S]) Lookup(s S) (*TransitionTable[S], StateKind) {
	if s == c.halt {
		return nil, StateHalt
	}
	if t, ok := c.states[s]; ok {
		return t, StateActive
	}
	return nil, StateUnknown
}

// Each calls fn for every state that has a table, in the order the states
// were first seen.
func (c *Chain[S]) Each(fn func(from S, t *TransitionTable[S])) {
	for _, s := range c.order {
		fn(s, c.states[s])
	}
}

// tableFor is the only place a transition table is created.
func (c *Chain[S]) tableFor(from S) (*TransitionTable[S], error) {
	if from == c.halt {
		return nil, ErrHaltTransition
	}
	t, ok := c.states[from]
	if !ok {
		t = NewTransitionTable[S]()
		c.states[from] = t
		c.order = append(c.order, from)
	}
	return t, nil
}

// AddLink records one transition from -> to.
func (c *Chain[S]) AddLink(from, to S) error {
	return c.AddLinkN(from, to, 1)
}

// AddLinkN records n transitions from -> to.
func (c *Chain[S]) AddLinkN(from, to S, n int) error {
	t, err := c.tableFor(from)
	if err != nil {
		return err
	}
	t.Add(to, n)
	return nil
}

// AddStartN records n words starting with s.
func (c *Chain[S]) AddStartN(s S, n int) error {
	if s == c.halt {
		return fmt.Errorf("%w: halt symbol cannot start a word", ErrInvalidInput)
	}
	c.initial.Add(s, n)
	return nil
}

// AddWord trains the chain on one word. Symbols are normalized first.
// Trailing halt symbols are removed and mark the word as terminated. When
// terminate is true the last symbol is linked to the halt symbol.
//
// The word is validated before anything is counted, so an error leaves the
// chain unchanged.
func (c *Chain[S]) AddWord(word []S, terminate bool) error {
	if len(word) == 0 {
		return fmt.Errorf("%w: empty word", ErrInvalidInput)
	}

	end := len(word)
	for end > 0 && c.isHalt(word[end-1]) {
		end--
		terminate = true
	}
	if end == 0 {
		return fmt.Errorf("%w: word contains only the halt symbol", ErrInvalidInput)
	}
	normalized := make([]S, end)
	for i, s := range word[:end] {
		if c.isHalt(s) {
			return fmt.Errorf("%w: halt symbol at position %d", ErrInvalidInput, i)
		}
		normalized[i] = c.normalize(s)
	}

	c.initial.Increment(normalized[0])
	for i := 0; i < len(normalized)-1; i++ {
		// Cannot fail: the halt symbol was rejected above.
		_ = c.AddLink(normalized[i], normalized[i+1])
	}
	if terminate {
		_ = c.AddLink(normalized[len(normalized)-1], c.halt)
	}
	return nil
}

// isHalt reports whether a raw training symbol is the halt symbol, either
// as given or once normalized. The halt symbol itself is never normalized.
func (c *Chain[S]) isHalt(s S) bool {
	return s == c.halt || c.normalize(s) == c.halt
}

// Format joins symbols with the configured separator.
func (c *Chain[S]) Format(symbols []S) string {
	var b strings.Builder
	for i, s := range symbols {
		if i > 0 {
			b.WriteString(c.separator)
		}
		b.WriteString(c.format(s))
	}
	return b.String()
}
