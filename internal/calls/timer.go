package calls

import (
	"sync"
	"time"
)

// Timer clears the calling flag a fixed interval after a customer is
// summoned. Only one logical timer exists, mirroring the at-most-one-calling
// invariant: arming for a new ticket cancels the timer armed for the
// previous one.
type Timer struct {
	mu       sync.Mutex
	timeout  time.Duration
	clear    func(ticketID string)
	pending  *time.Timer
	ticketID string
}

func NewTimer(timeout time.Duration, clear func(ticketID string)) *Timer {
	return &Timer{timeout: timeout, clear: clear}
}

func (t *Timer) Arm(ticketID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
	}
	t.ticketID = ticketID
	if t.timeout <= 0 {
		t.pending = nil
		return
	}
	t.pending = time.AfterFunc(t.timeout, func() {
		t.fire(ticketID)
	})
}

func (t *Timer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending != nil {
		t.pending.Stop()
		t.pending = nil
	}
	t.ticketID = ""
}

func (t *Timer) fire(ticketID string) {
	t.mu.Lock()
	// A newer Arm may have won the race with this callback.
	if t.ticketID != ticketID {
		t.mu.Unlock()
		return
	}
	t.pending = nil
	t.ticketID = ""
	t.mu.Unlock()
	t.clear(ticketID)
}
