package markov

import "fmt"

// Tokenizer splits one training line into symbols. This allows the chain
// to be trained on characters or on larger tokens with the same code.
type Tokenizer interface {
	// Name identifies the tokenizer when a model is persisted.
	Name() string
	// Split returns the symbols of a single word or line.
	Split(line string) []string
	// Separator returns the string used to join symbols in generated output.
	Separator() string
}

// TokenizerByName returns the built-in tokenizer registered under name:
// "char" or "word".
func TokenizerByName(name string) (Tokenizer, error) {
	switch name {
	case "", CharTokenizerName:
		return NewCharTokenizer(), nil
	case WordTokenizerName:
		return NewWordTokenizer(), nil
	default:
		return nil, fmt.Errorf("unknown tokenizer %q", name)
	}
}

// NewTokenizerChain returns a string chain configured for tok, using halt as
// the end-of-word symbol.
func NewTokenizerChain(tok Tokenizer, halt string, opts ...ChainOption[string]) *Chain[string] {
	return NewStringChain(halt, tok.Separator(), opts...)
}
