/*
Package markov provides a first-order Markov chain for generating
pronounceable invented words, such as alien or place names, from a list of
example words.

A Chain counts, for every symbol, which symbols followed it in training and
how often. Generation walks the chain from a randomly drawn initial symbol,
choosing each successor with probability proportional to its count, until it
reaches the halt symbol that marks the end of a word. Symbols are usually
characters, but any comparable type works; Tokenizer implementations turn
lines of text into string symbols.

Randomness is always supplied by the caller through the Rand interface, so
training and generation are reproducible with a seeded *math/rand/v2.Rand:

	chain := markov.NewRuneChain()
	_ = chain.AddWord([]rune("zorblax"), true)
	name, err := chain.GenerateString(rand.New(rand.NewPCG(1, 2)))
*/
package markov
