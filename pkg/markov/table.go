package markov

// Rand is the source of randomness used for sampling. *math/rand/v2.Rand
// satisfies it; tests can supply a stub.
type Rand interface {
	// Float64 returns a pseudo-random number in [0.0, 1.0).
	Float64() float64
}

// TransitionTable counts how often each successor symbol was observed after
// a given state. Entries are kept in first-insertion order so that sampling
// with a seeded Rand is reproducible.
type TransitionTable[S comparable] struct {
	order  []S
	counts map[S]int
	total  int
}

// NewTransitionTable returns an empty table.
func NewTransitionTable[S comparable]() *TransitionTable[S] {
	return &TransitionTable[S]{counts: make(map[S]int)}
}

// Increment adds one observation of s.
func (t *TransitionTable[S]) Increment(s S) {
	t.Add(s, 1)
}

// Add adds n observations of s. A zero entry is created on first touch; a
// non-positive n changes nothing.
func (t *TransitionTable[S]) Add(s S, n int) {
	if n <= 0 {
		return
	}
	if _, ok := t.counts[s]; !ok {
		t.counts[s] = 0
		t.order = append(t.order, s)
	}
	t.counts[s] += n
	t.total += n
}

// Count returns the number of observations of s.
func (t *TransitionTable[S]) Count(s S) int {
	return t.counts[s]
}

// Len returns the number of distinct successors.
func (t *TransitionTable[S]) Len() int {
	return len(t.order)
}

// Total returns the sum of all counts.
func (t *TransitionTable[S]) Total() int {
	return t.total
}

// Each calls fn for every entry in insertion order.
func (t *TransitionTable[S]) Each(fn func(s S, count int)) {
	for _, s := range t.order {
		fn(s, t.counts[s])
	}
}

// Remove deletes the entry for s, if any.
func (t *TransitionTable[S]) Remove(s S) {
	n, ok := t.counts[s]
	if !ok {
		return
	}
	delete(t.counts, s)
	t.total -= n
	for i, o := range t.order {
		if o == s {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// Sample picks a successor with probability proportional to its count. The
// boolean is false when the table has no entries. A table with a single
// entry returns it without drawing from rng.
func (t *TransitionTable[S]) Sample(rng Rand) (S, bool) {
	var zero S
	switch len(t.order) {
	case 0:
		return zero, false
	case 1:
		return t.order[0], true
	}

	r := rng.Float64() * float64(t.total)
	running := 0
	for _, s := range t.order {
		count := t.counts[s]
		if float64(running+count) > r {
			return s, true
		}
		running += count
	}
	// Only reachable if rng returned a value outside [0, 1); fall back to the
	// last entry that can actually be drawn.
	for i := len(t.order) - 1; i >= 0; i-- {
		if t.counts[t.order[i]] > 0 {
			return t.order[i], true
		}
	}
	return zero, false
}
