package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/detgeom/pkg/array"
)

// EvalTimeout is the hard limit for a single evaluation.
const EvalTimeout = 5 * time.Second

// evalResult carries one evaluation's outcome through a channel.
type evalResult struct {
	catalogue *array.Catalogue
	errors    []EvalError
	err       error
}

// waitWithTimeout waits for a result from ch, giving up after limit. A
// result whose generation is no longer current is discarded: a newer
// Evaluate call has started since.
//
// On timeout the evaluating goroutine keeps running; its result is dropped
// when it eventually arrives.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
	limit time.Duration,
) (*array.Catalogue, []EvalError, error) {
	timer := time.NewTimer(limit)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return nil, nil, fmt.Errorf("evaluation superseded by newer request")
		}
		return res.catalogue, res.errors, res.err

	case <-timer.C:
		return nil, nil, fmt.Errorf("evaluation timed out after %s", limit)
	}
}
