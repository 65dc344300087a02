// internal/clientsync/hold.go
package clientsync

import (
	"sync"
	"time"
)

// DefaultHoldDuration is how long a press must last to count as a hold.
const DefaultHoldDuration = 500 * time.Millisecond

// Hold turns press/release pairs into taps and holds. onHold runs on its own goroutine
// once a press outlasts the duration; Release and Leave cancel a pending timer.
type Hold struct {
	d      time.Duration
	onHold func()

	mu    sync.Mutex
	timer *time.Timer
	fired bool
}

// NewHold builds a gesture recognizer.
func NewHold(d time.Duration, onHold func()) *Hold {
	return &Hold{d: d, onHold: onHold}
}

// Press starts the hold timer, replacing any pending one.
func (h *Hold) Press() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer != nil {
		h.timer.Stop()
	}
	h.fired = false
	var t *time.Timer
	t = time.AfterFunc(h.d, func() {
		h.mu.Lock()
		if h.timer != t {
			h.mu.Unlock()
			return
		}
		h.fired = true
		h.timer = nil
		h.mu.Unlock()
		h.onHold()
	})
	h.timer = t
}

// Release ends the press. It reports true for a tap: the timer was still pending and
// has been stopped.
func (h *Hold) Release() bool {
	return h.cancel()
}

// Leave abandons the press, e.g. when the pointer leaves the cell. Neither a tap nor a
// hold is produced if the timer had not fired yet.
func (h *Hold) Leave() {
	h.cancel()
}

func (h *Hold) cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.timer == nil {
		return false
	}
	stopped := h.timer.Stop()
	h.timer = nil
	return stopped && !h.fired
}

// Pending reports whether a press is in progress.
func (h *Hold) Pending() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.timer != nil
}
