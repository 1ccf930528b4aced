package chat

import (
	"sync"
	"time"
)

// ackTimeout is how long a transmitted item waits for its
// direct_message_ack before the attempt is considered lost.
const ackTimeout = 15 * time.Second

// AckTracker arms one timer per transmitted item, keyed by clientMsgId.
// The timeout callback decides whether the item retries or fails; the
// tracker only owns the clocks. Timers fire on their own goroutines, so
// the callback must be safe to run concurrently with the event loop.
type AckTracker struct {
	timeout   time.Duration
	onTimeout func(clientMsgID string)

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// NewAckTracker creates a tracker firing onTimeout for every armed id
// whose ack does not arrive within the timeout.
func NewAckTracker(timeout time.Duration, onTimeout func(clientMsgID string)) *AckTracker {
	return &AckTracker{
		timeout:   timeout,
		onTimeout: onTimeout,
		timers:    make(map[string]*time.Timer),
	}
}

// Arm starts (or restarts) the ack timer for an id.
func (t *AckTracker) Arm(clientMsgID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.timers[clientMsgID]; ok {
		existing.Stop()
	}

	t.timers[clientMsgID] = time.AfterFunc(t.timeout, func() {
		// The ack may have arrived between the timer firing and this
		// callback acquiring the lock. Only fire the timeout if the
		// timer is still registered.
		t.mu.Lock()
		_, live := t.timers[clientMsgID]
		delete(t.timers, clientMsgID)
		t.mu.Unlock()

		if live {
			t.onTimeout(clientMsgID)
		}
	})
}

// Clear cancels the timer for an id, reporting whether one was armed.
// Called when the ack arrives. A false return means the tracker already
// gave up on this id (late ack).
func (t *AckTracker) Clear(clientMsgID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	timer, ok := t.timers[clientMsgID]
	if !ok {
		return false
	}

	timer.Stop()
	delete(t.timers, clientMsgID)

	return true
}

// ClearAll cancels every armed timer synchronously. Called on
// deliberate close and on connection loss so timers never leak across
// a replaced connection.
func (t *AckTracker) ClearAll() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for id, timer := range t.timers {
		timer.Stop()
		delete(t.timers, id)
	}
}

// Armed returns the number of outstanding timers.
func (t *AckTracker) Armed() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.timers)
}
