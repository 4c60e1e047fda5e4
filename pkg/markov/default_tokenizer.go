package markov

import (
	"regexp"
	"strings"
)

const (
	// CharTokenizerName is the persisted name of CharTokenizer.
	CharTokenizerName = "char"
	// WordTokenizerName is the persisted name of WordTokenizer.
	WordTokenizerName = "word"
)

// CharTokenizer makes every rune of a line its own symbol. Generated words
// are joined with no separator.
type CharTokenizer struct{}

// NewCharTokenizer returns a CharTokenizer.
func NewCharTokenizer() *CharTokenizer {
	return &CharTokenizer{}
}

// Name returns "char".
func (CharTokenizer) Name() string { return CharTokenizerName }

// Separator returns "".
func (CharTokenizer) Separator() string { return "" }

// Split returns the runes of line as one-character strings.
func (CharTokenizer) Split(line string) []string {
	out := make([]string, 0, len(line))
	for _, r := range line {
		out = append(out, string(r))
	}
	return out
}

// WordTokenizer uses a regular expression to split a line into tokens, so
// that a chain can be trained on names built from whole words or syllables.
// Its behavior can be customized with functional options.
type WordTokenizer struct {
	separator  string
	tokenRegex *regexp.Regexp
}

// TokenizerOption is a function that configures a WordTokenizer.
type TokenizerOption func(*WordTokenizer)

// WithTokenSeparator sets the string used for joining tokens during generation.
// Default: " "
func WithTokenSeparator(sep string) TokenizerOption {
	return func(t *WordTokenizer) {
		t.separator = sep
	}
}

// WithTokenRegex sets the regex used to find tokens in a line.
// Default: `[\w']+`
func WithTokenRegex(tokenRegex string) TokenizerOption {
	return func(t *WordTokenizer) {
		t.tokenRegex = regexp.MustCompile(tokenRegex)
	}
}

// NewWordTokenizer creates a new tokenizer with default settings, which can be
// overridden by providing one or more TokenizerOption functions.
func NewWordTokenizer(opts ...TokenizerOption) *WordTokenizer {
	t := &WordTokenizer{
		separator: " ",
		// Runs of word characters, keeping apostrophes inside names like "t'kar".
		tokenRegex: regexp.MustCompile(`[\w']+`),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Name returns "word".
func (t *WordTokenizer) Name() string { return WordTokenizerName }

// Separator returns the configured separator string.
func (t *WordTokenizer) Separator() string { return t.separator }

// Split returns every match of the token regex in line.
func (t *WordTokenizer) Split(line string) []string {
	return t.tokenRegex.FindAllString(strings.TrimSpace(line), -1)
}
