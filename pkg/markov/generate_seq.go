package markov

import (
	"context"
	"errors"
	"iter"
)

// Names returns a sequence of up to n generated words, joined with the
// chain's separator. Each element carries either a word or the error for
// that call; dead ends and exhausted retries do not stop the sequence.
// ErrEmptyChain and context cancellation end it after being yielded once.
// The sequence draws from rng, so it must not be iterated concurrently with
// other users of the same Rand.
func (c *Chain[S]) Names(ctx context.Context, rng Rand, n int, opts ...GenerateOption) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				yield("", err)
				return
			}
			name, err := c.GenerateString(rng, opts...)
			if !yield(name, err) {
				return
			}
			if errors.Is(err, ErrEmptyChain) {
				return
			}
		}
	}
}
