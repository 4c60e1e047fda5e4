package markov

// ChainStats holds aggregated statistics for a trained chain.
type ChainStats struct {
	States          int     // Registered states, including the halt state.
	Links           int     // The number of unique from->to entries.
	Transitions     int     // The sum of all counts; the total number of trained transitions.
	StartingSymbols int     // The number of unique symbols that can start a word.
	Words           int     // The number of words trained, i.e. the initial table's total.
	AvgTransitions  float64 // Transitions / States.
}

// Stats returns a snapshot of the chain's statistics.
func (c *Chain[S]) Stats() ChainStats {
	stats := ChainStats{
		States:          len(c.states) + 1, // the halt state is always registered
		StartingSymbols: c.initial.Len(),
		Words:           c.initial.Total(),
	}
	for _, s := range c.order {
		t := c.states[s]
		stats.Links += t.Len()
		stats.Transitions += t.Total()
	}
	stats.AvgTransitions = float64(stats.Transitions) / float64(stats.States)
	return stats
}

// FanOut returns the number of distinct successors of every state with a
// table, in the order the states were first seen.
func (c *Chain[S]) FanOut() []int {
	out := make([]int, 0, len(c.order))
	for _, s := range c.order {
		out = append(out, c.states[s].Len())
	}
	return out
}
