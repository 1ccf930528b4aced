package push

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/talkx/talkx-client/internal/api"
	"github.com/talkx/talkx-client/internal/state"
)

// fakeTokenAPI scripts per-call results for RegisterPushToken and
// records what was sent.
type fakeTokenAPI struct {
	mu              sync.Mutex
	registerErrs    []error
	registerCalls   int
	unregisterCalls int
	lastToken       string
	lastSession     string
}

func (f *fakeTokenAPI) RegisterPushToken(_ context.Context, sessionToken, pushToken, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.registerCalls++
	f.lastToken = pushToken
	f.lastSession = sessionToken

	if len(f.registerErrs) == 0 {
		return nil
	}

	err := f.registerErrs[0]
	f.registerErrs = f.registerErrs[1:]

	return err
}

func (f *fakeTokenAPI) UnregisterPushToken(_ context.Context, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.unregisterCalls++

	return nil
}

func (f *fakeTokenAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.registerCalls
}

func transientErr(msg string) error {
	return &api.TransientError{Err: errors.New(msg)}
}

func newTestRegistrar(t *testing.T, fake *fakeTokenAPI) *Registrar {
	t.Helper()

	st, err := state.LoadAt(filepath.Join(t.TempDir(), "state.db"))
	require.NoError(t, err)

	t.Cleanup(func() { st.Close() })

	require.NoError(t, st.SetToken("session-tok"))

	return NewRegistrar(fake, st, "dev-1", "fcm", slog.Default())
}

func TestRegister_FirstAttemptSucceeds(t *testing.T) {
	fake := &fakeTokenAPI{}
	r := newTestRegistrar(t, fake)

	err := r.Register(context.Background(), "push-tok", false)
	require.NoError(t, err)

	assert.True(t, r.Registered())
	assert.NoError(t, r.LastError())
	assert.Equal(t, 1, fake.calls())
	assert.Equal(t, "session-tok", fake.lastSession)
}

func TestRegister_SkipsUnchangedToken(t *testing.T) {
	fake := &fakeTokenAPI{}
	r := newTestRegistrar(t, fake)

	require.NoError(t, r.Register(context.Background(), "push-tok", false))
	require.NoError(t, r.Register(context.Background(), "push-tok", false))

	assert.Equal(t, 1, fake.calls(), "unchanged registered token is a no-op")
}

func TestRegister_ForceReregisters(t *testing.T) {
	fake := &fakeTokenAPI{}
	r := newTestRegistrar(t, fake)

	require.NoError(t, r.Register(context.Background(), "push-tok", false))
	require.NoError(t, r.Register(context.Background(), "push-tok", true))

	assert.Equal(t, 2, fake.calls(), "force resubmits even an unchanged token")
}

func TestRegister_NewTokenAlwaysSubmitted(t *testing.T) {
	fake := &fakeTokenAPI{}
	r := newTestRegistrar(t, fake)

	require.NoError(t, r.Register(context.Background(), "tok-a", false))
	require.NoError(t, r.Register(context.Background(), "tok-b", false))

	assert.Equal(t, 2, fake.calls())
	assert.Equal(t, "tok-b", fake.lastToken)
}

func TestRegister_PermanentErrorStopsRetrying(t *testing.T) {
	fake := &fakeTokenAPI{registerErrs: []error{errors.New("token rejected")}}
	r := newTestRegistrar(t, fake)

	err := r.Register(context.Background(), "push-tok", false)
	assert.ErrorContains(t, err, "token rejected")

	assert.False(t, r.Registered())
	assert.Error(t, r.LastError())
	assert.Equal(t, 1, fake.calls(), "a non-transient failure is not retried")
}

func TestRegister_TransientRetriesInline(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fake := &fakeTokenAPI{registerErrs: []error{
			transientErr("timeout"),
			transientErr("timeout"),
		}}
		r := newTestRegistrar(t, fake)

		err := r.Register(context.Background(), "push-tok", false)
		require.NoError(t, err)

		assert.True(t, r.Registered())
		assert.Equal(t, 3, fake.calls())
	})
}

func TestRegister_DeferredRetryEventuallySucceeds(t *testing.T) {
	synctest.Test(t, func(t *testing.T) {
		fake := &fakeTokenAPI{registerErrs: []error{
			transientErr("timeout"),
			transientErr("timeout"),
			transientErr("timeout"),
		}}
		r := newTestRegistrar(t, fake)

		err := r.Register(context.Background(), "push-tok", false)
		assert.Error(t, err, "inline attempts all failed")
		assert.False(t, r.Registered())

		// First deferred rung is 30 seconds (plus jitter).
		time.Sleep(time.Minute)
		synctest.Wait()

		assert.True(t, r.Registered())
		assert.Equal(t, 4, fake.calls())
	})
}

func TestUnregister_ClearsState(t *testing.T) {
	fake := &fakeTokenAPI{}
	r := newTestRegistrar(t, fake)

	require.NoError(t, r.Register(context.Background(), "push-tok", false))

	r.Unregister(context.Background())

	assert.False(t, r.Registered())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Equal(t, 1, fake.unregisterCalls)
}

func TestUnregister_WithoutTokenIsNoOp(t *testing.T) {
	fake := &fakeTokenAPI{}
	r := newTestRegistrar(t, fake)

	r.Unregister(context.Background())

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Zero(t, fake.unregisterCalls)
}
