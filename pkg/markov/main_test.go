package markov

import (
	"math/rand/v2"
	"strings"
	"sync"
	"testing"
)

// countingRand wraps a Rand and records how many values were drawn.
type countingRand struct {
	src   Rand
	calls int
}

func (r *countingRand) Float64() float64 {
	r.calls++
	return r.src.Float64()
}

// fixedRand always returns the same value.
type fixedRand float64

func (r fixedRand) Float64() float64 { return float64(r) }

// panicRand fails the test if it is ever drawn from.
type panicRand struct{ t testing.TB }

func (r panicRand) Float64() float64 {
	r.t.Fatalf("unexpected draw from the random source")
	return 0
}

func newTestRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// trainRunes is a convenience helper that trains a rune chain on words.
func trainRunes(t testing.TB, c *Chain[rune], terminate bool, words ...string) {
	t.Helper()
	for _, w := range words {
		if err := c.AddWord([]rune(w), terminate); err != nil {
			t.Fatalf("setup: AddWord(%q) failed: %v", w, err)
		}
	}
}

// snapshot flattens every count in the chain, for comparing two chains.
func snapshot[S comparable](c *Chain[S]) map[string]int {
	out := make(map[string]int)
	c.Initial().Each(func(s S, n int) {
		out["^"+c.format(s)] = n
	})
	c.Each(func(from S, t *TransitionTable[S]) {
		t.Each(func(to S, n int) {
			out[c.format(from)+"->"+c.format(to)] = n
		})
	})
	return out
}

var (
	benchmarkCorpus []string
	corpusOnce      sync.Once
)

// createBenchmarkCorpus builds a deterministic list of syllable-based names.
func createBenchmarkCorpus() []string {
	corpusOnce.Do(func() {
		syllables := []string{"ka", "zor", "th", "ul", "ex", "qua", "rin", "vo", "ix", "mel", "dra", "os"}
		rng := newTestRand(7)
		for i := 0; i < 5000; i++ {
			var sb strings.Builder
			n := 2 + rng.IntN(3)
			for j := 0; j < n; j++ {
				sb.WriteString(syllables[rng.IntN(len(syllables))])
			}
			benchmarkCorpus = append(benchmarkCorpus, sb.String())
		}
	})
	return benchmarkCorpus
}
