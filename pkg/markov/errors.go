package markov

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned when a training word is empty, or would be
	// empty once its trailing halt symbols are removed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyChain is returned when generation is requested from a chain
	// that has never been trained.
	ErrEmptyChain = errors.New("chain has no training data")
	// ErrDeadEnd is matched by every *DeadEndError.
	ErrDeadEnd = errors.New("dead end state")
	// ErrGenerationTimeout is returned when the retry loop runs out of
	// attempts while rejecting words for being too short.
	ErrGenerationTimeout = errors.New("generation attempts exhausted")
	// ErrHaltTransition is returned when a link out of the halt symbol is
	// requested. The halt state never has a transition table.
	ErrHaltTransition = errors.New("cannot transition out of the halt symbol")
)

// DeadEndError reports a walk that reached a non-halt state with no
// outgoing transitions. Partial holds the symbols emitted before the walk
// stopped.
type DeadEndError[S comparable] struct {
	Symbol  S
	Partial []S
}

func (e *DeadEndError[S]) Error() string {
	return fmt.Sprintf("dead end state %q after %d symbols", fmt.Sprint(e.Symbol), len(e.Partial))
}

// Is reports whether target is ErrDeadEnd.
func (e *DeadEndError[S]) Is(target error) bool {
	return target == ErrDeadEnd
}

// ErrorKind names the category of a generation or training error, for
// user-facing messages. It returns "unknown" for errors outside the
// package's taxonomy.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "InvalidInput"
	case errors.Is(err, ErrEmptyChain):
		return "EmptyChain"
	case errors.Is(err, ErrGenerationTimeout):
		return "GenerationTimeout"
	case errors.Is(err, ErrDeadEnd):
		return "DeadEndState"
	case errors.Is(err, ErrHaltTransition):
		return "HaltTransition"
	default:
		return "unknown"
	}
}
