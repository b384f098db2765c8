// Package rendertrigger implements the demand-driven wake-up shared across
// every display: a counting semaphore bounded by math.MaxUint8 plus an
// atomic ready-count, so RequestRender grants exactly one wake-up to each
// display that is currently waiting on it, with no per-display signaller
// list and nothing for a stopping display to leak.
package rendertrigger

import (
	"math"
	"sync/atomic"
	"time"
)

// Trigger is safe for concurrent use by many display workers and any
// number of callers of RequestRender.
type Trigger struct {
	sem   chan struct{}
	ready atomic.Uint32
}

func New() *Trigger {
	return &Trigger{sem: make(chan struct{}, math.MaxUint8)}
}

// MarkReady records that the calling display rendered due to a
// demand-driven wake-up in its previous iteration and is now about to wait
// again; RequestRender consults this count to decide how many permits to
// release.
func (t *Trigger) MarkReady() {
	t.ready.Add(1)
}

// RequestRender releases exactly as many permits as there are displays
// currently marked ready, swapping the counter back to zero. A display that
// drops between the Swap and the matching Acquire simply forfeits its
// share; permits are not addressed to a particular display, so nothing
// leaks.
func (t *Trigger) RequestRender() {
	n := t.ready.Swap(0)
	for i := uint32(0); i < n; i++ {
		select {
		case t.sem <- struct{}{}:
		default:
		}
	}
}

// Pulse releases a single permit unconditionally, used to break a display
// worker out of WaitDeadline during the stop sequence, and after a
// timed-out presented-fence wait, regardless of the ready count.
func (t *Trigger) Pulse() {
	select {
	case t.sem <- struct{}{}:
	default:
	}
}

// WaitDeadline blocks until either a permit is available or deadline
// passes, returning true for a demand-driven wake-up and false for a
// deadline timeout.
func (t *Trigger) WaitDeadline(deadline time.Time) bool {
	timer := time.NewTimer(time.Until(deadline))
	defer timer.Stop()

	select {
	case <-t.sem:
		return true
	case <-timer.C:
		return false
	}
}
