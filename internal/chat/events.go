package chat

import "github.com/talkx/talkx-client/internal/protocol"

// Events is the set of UI-facing callbacks. All fields are optional;
// nil callbacks are skipped. Callbacks are invoked from the client's
// event loop (or, for send results, from an ack timer goroutine) and
// must not block.
type Events struct {
	// OnConnectionState fires on every connection state transition.
	OnConnectionState func(state ConnState)

	// OnOnlineCount reports the server-wide online user count.
	OnOnlineCount func(count int)

	// OnQueued fires when the server confirms queue membership.
	OnQueued func()

	// OnMatched fires when the anonymous queue produces a match.
	OnMatched func(m protocol.Matched)

	// OnRoomMessage delivers a message from the matched peer.
	OnRoomMessage func(text string)

	// OnDirectMessage delivers a direct message. Already deduplicated:
	// a redelivered frame never reaches this callback twice.
	OnDirectMessage func(m protocol.InboundDirectMessage)

	// OnSendResult reports the terminal outcome of an outboxed send:
	// delivered=true marks the UI copy "sent", false marks it "failed".
	// Fires exactly once per clientMsgId.
	OnSendResult func(clientMsgID string, delivered bool)

	// OnTyping reports the peer's typing state.
	OnTyping func(active bool)

	// OnEnded fires when the current conversation is terminated.
	OnEnded func(reason string)

	// OnImageSent confirms an image upload completed server-side.
	OnImageSent func(m protocol.ImageSent)

	// OnImageData delivers fetched image bytes.
	OnImageData func(m protocol.ImageData)

	// OnImageError reports a failed image fetch.
	OnImageError func(m protocol.ImageError)

	// OnFriendRefresh signals the friend list should be re-fetched.
	OnFriendRefresh func()

	// OnAdminNotice delivers a broadcast notice, deduplicated.
	OnAdminNotice func(m protocol.AdminNotice)

	// OnSessionError reports a fatal session error (ban, auth failure).
	// The client has already stopped reconnecting when this fires.
	OnSessionError func(code, message string)
}
