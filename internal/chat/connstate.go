package chat

// ConnState is the connection lifecycle state machine. Transitions are
// driven only by the client's run loop; the UI observes them through
// Events.OnConnectionState.
type ConnState int

const (
	// StateDisconnected is the initial state, and the terminal state
	// after a deliberate close.
	StateDisconnected ConnState = iota

	// StateConnecting covers the first dial and handshake attempt.
	StateConnecting

	// StateConnected means the server confirmed the session with a
	// welcome frame. An open socket alone never reaches this state.
	StateConnected

	// StateReconnecting covers every dial after a connection loss,
	// including the backoff wait between attempts.
	StateReconnecting

	// StateAuthError is terminal for the session: the server rejected
	// the credentials and no reconnect will be attempted.
	StateAuthError

	// StateOffline means the device reports no network connectivity.
	// Reconnect attempts and backoff clocks are suspended until a
	// connectivity-restored signal arrives.
	StateOffline
)

// String returns the wire-style name of the state.
func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateAuthError:
		return "auth_error"
	case StateOffline:
		return "offline"
	default:
		return "unknown"
	}
}
