// Package push registers the device's push-delivery token with the
// server over the REST API. Registration is independent of the chat
// socket: notifications for a dead socket are exactly the case push
// exists for, so a broken connection must never block this path.
package push

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/talkx/talkx-client/internal/api"
	"github.com/talkx/talkx-client/internal/backoff"
	"github.com/talkx/talkx-client/internal/state"
)

const (
	// immediateAttempts is how many times Register tries inline before
	// handing the token to the deferred retry loop.
	immediateAttempts = 3

	// immediateRetryDelay separates the inline attempts.
	immediateRetryDelay = 2 * time.Second
)

// tokenAPI is the slice of the REST client the registrar uses,
// extracted so tests can substitute a fake.
type tokenAPI interface {
	RegisterPushToken(ctx context.Context, sessionToken, pushToken, deviceID, platform string) error
	UnregisterPushToken(ctx context.Context, sessionToken, pushToken, deviceID string) error
}

// Registrar keeps the server's copy of the push token current. State is
// in-memory only: after a restart the platform hands the token over
// again and registration simply re-runs, so persisting it would only
// risk staleness.
type Registrar struct {
	api      tokenAPI
	store    *state.State
	logger   *slog.Logger
	deviceID string
	platform string

	mu          sync.Mutex
	token       string
	registered  bool
	lastErr     error
	retryCancel context.CancelFunc
}

// NewRegistrar builds a registrar for the given device identity.
func NewRegistrar(apiClient tokenAPI, store *state.State, deviceID, platform string, logger *slog.Logger) *Registrar {
	return &Registrar{
		api:      apiClient,
		store:    store,
		logger:   logger,
		deviceID: deviceID,
		platform: platform,
	}
}

// Register submits a push token. An unchanged, already-registered token
// is a no-op unless force is set (used after login, when the server's
// copy may have been dropped with the old session). On failure it tries
// a few times inline, then keeps retrying in the background with
// growing delays; the returned error reports the inline outcome only.
func (r *Registrar) Register(ctx context.Context, token string, force bool) error {
	r.mu.Lock()

	if token == r.token && r.registered && !force {
		r.mu.Unlock()
		return nil
	}

	// A new token supersedes any retry loop for the old one.
	if r.retryCancel != nil {
		r.retryCancel()
		r.retryCancel = nil
	}

	r.token = token
	r.registered = false

	r.mu.Unlock()

	var lastErr error

	for attempt := 1; attempt <= immediateAttempts; attempt++ {
		err := r.attempt(ctx, token)
		if err == nil {
			return nil
		}

		lastErr = err

		if !api.IsTransient(err) {
			r.logger.Error("push token rejected",
				slog.String("error", err.Error()),
			)

			return err
		}

		r.logger.Warn("push token registration failed",
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)

		if attempt < immediateAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(immediateRetryDelay):
			}
		}
	}

	r.scheduleRetries(token)

	return lastErr
}

// scheduleRetries starts the deferred retry loop for a token. The loop
// outlives the Register call and runs until success, cancellation by a
// newer token, or Unregister.
func (r *Registrar) scheduleRetries(token string) {
	retryCtx, cancel := context.WithCancel(context.Background())

	r.mu.Lock()
	r.retryCancel = cancel
	r.mu.Unlock()

	go func() {
		defer cancel()

		for attempt := 0; ; attempt++ {
			delay := backoff.PushRegister.Delay(attempt)

			select {
			case <-retryCtx.Done():
				return
			case <-time.After(delay):
			}

			err := r.attempt(retryCtx, token)
			if err == nil {
				r.logger.Info("push token registered after deferred retry",
					slog.Int("attempt", attempt+1),
				)

				return
			}

			if !api.IsTransient(err) {
				r.logger.Error("push token rejected, abandoning retries",
					slog.String("error", err.Error()),
				)

				return
			}

			r.logger.Warn("deferred push registration failed",
				slog.Int("attempt", attempt+1),
				slog.Duration("next_in", backoff.PushRegister.Delay(attempt+1)),
				slog.String("error", err.Error()),
			)
		}
	}()
}

// attempt performs one registration call and records the outcome.
func (r *Registrar) attempt(ctx context.Context, token string) error {
	err := r.api.RegisterPushToken(ctx, r.store.Token(), token, r.deviceID, r.platform)

	r.mu.Lock()
	defer r.mu.Unlock()

	if token != r.token {
		// A newer token arrived while this call was in flight; its
		// outcome no longer matters.
		return err
	}

	r.lastErr = err
	r.registered = err == nil

	return err
}

// Unregister removes the token server-side. Best-effort: logout must
// not block on it, so a failure is logged and swallowed.
func (r *Registrar) Unregister(ctx context.Context) {
	r.mu.Lock()

	token := r.token
	r.token = ""
	r.registered = false
	r.lastErr = nil

	if r.retryCancel != nil {
		r.retryCancel()
		r.retryCancel = nil
	}

	r.mu.Unlock()

	if token == "" {
		return
	}

	if err := r.api.UnregisterPushToken(ctx, r.store.Token(), token, r.deviceID); err != nil {
		r.logger.Warn("failed to unregister push token",
			slog.String("error", err.Error()),
		)
	}
}

// Registered reports whether the current token is registered server-side.
func (r *Registrar) Registered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.registered
}

// LastError returns the most recent registration error, or nil.
func (r *Registrar) LastError() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.lastErr
}
