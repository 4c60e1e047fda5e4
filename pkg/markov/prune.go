package markov

import "log/slog"

// Prune removes every entry with a count less than or equal to minCount,
// from the state tables and from the initial table. This drops rare, often
// noisy, transitions. States stay registered even when their table becomes
// empty, so a walk may dead-end on them afterwards. It returns the number of
// entries removed.
func (c *Chain[S]) Prune(minCount int) int {
	removed := pruneTable(c.initial, minCount)
	for _, s := range c.order {
		removed += pruneTable(c.states[s], minCount)
	}

	c.logger.Info("Chain pruned",
		slog.Int("min_count", minCount),
		slog.Int("entries_removed", removed),
	)
	return removed
}

func pruneTable[S comparable](t *TransitionTable[S], minCount int) int {
	var rare []S
	t.Each(func(s S, count int) {
		if count <= minCount {
			rare = append(rare, s)
		}
	})
	for _, s := range rare {
		t.Remove(s)
	}
	return len(rare)
}
