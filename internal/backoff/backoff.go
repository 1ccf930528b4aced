// Package backoff provides the single retry-delay primitive shared by
// the connection manager and the push token registrar: a fixed ladder
// of delays with uniform jitter, capped at the last rung.
package backoff

import (
	"math/rand/v2"
	"time"
)

// Ladder is an increasing sequence of retry delays. Attempts beyond the
// last step reuse it, so the final step acts as the cap.
type Ladder struct {
	Steps []time.Duration

	// Jitter is the fraction of the step applied as symmetric random
	// jitter: 0.2 yields a delay uniform in [0.8*step, 1.2*step].
	// Zero disables jitter.
	Jitter float64
}

// Reconnect is the ladder used for re-establishing the chat connection.
var Reconnect = Ladder{
	Steps: []time.Duration{
		1 * time.Second,
		2 * time.Second,
		5 * time.Second,
		10 * time.Second,
		20 * time.Second,
		30 * time.Second,
	},
	Jitter: 0.2,
}

// PushRegister is the ladder used for deferred push token registration
// retries after the immediate attempts are exhausted.
var PushRegister = Ladder{
	Steps: []time.Duration{
		30 * time.Second,
		1 * time.Minute,
		2 * time.Minute,
		5 * time.Minute,
		10 * time.Minute,
	},
	Jitter: 0.2,
}

// Step returns the un-jittered delay for the given zero-based attempt.
func (l Ladder) Step(attempt int) time.Duration {
	if len(l.Steps) == 0 {
		return 0
	}

	if attempt < 0 {
		attempt = 0
	}

	if attempt >= len(l.Steps) {
		attempt = len(l.Steps) - 1
	}

	return l.Steps[attempt]
}

// Delay returns the jittered delay for the given zero-based attempt.
func (l Ladder) Delay(attempt int) time.Duration {
	step := l.Step(attempt)
	if step <= 0 || l.Jitter <= 0 {
		return step
	}

	// Uniform in [-jitter, +jitter] of the step.
	span := float64(step) * l.Jitter
	offset := (rand.Float64()*2 - 1) * span //nolint:gosec // G404: math/rand is fine for retry jitter, no security impact

	return step + time.Duration(offset)
}
