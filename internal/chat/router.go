package chat

import (
	"encoding/json"
	"log/slog"

	"github.com/talkx/talkx-client/internal/protocol"
)

// frameHandler processes one decoded inbound frame.
type frameHandler func(data []byte)

// Router dispatches inbound frames by their type discriminator to
// exactly one handler. Unknown types are ignored without error. Frame
// types carrying a deliveryId pass through the dedup cache before any
// UI-visible state is touched.
type Router struct {
	logger *slog.Logger
	dedup  *DedupCache
	events Events

	// Core hooks back into the client. Separate from Events because
	// they mutate transport state (outbox, ack timers, session),
	// not UI state.
	onAck   func(ack protocol.DirectMessageAck)
	onError func(frame protocol.ErrorFrame)

	handlers map[string]frameHandler
}

// newRouter builds the closed dispatch table.
func newRouter(logger *slog.Logger, dedup *DedupCache, events Events,
	onAck func(protocol.DirectMessageAck), onError func(protocol.ErrorFrame),
) *Router {
	r := &Router{
		logger:  logger,
		dedup:   dedup,
		events:  events,
		onAck:   onAck,
		onError: onError,
	}

	r.handlers = map[string]frameHandler{
		protocol.TypeOnlineCount:      r.handleOnlineCount,
		protocol.TypeQueued:           r.handleQueued,
		protocol.TypeMatched:          r.handleMatched,
		protocol.TypeMessage:          r.handleRoomMessage,
		protocol.TypeDirectMessage:    r.handleDirectMessage,
		protocol.TypeDirectMessageAck: r.handleAck,
		protocol.TypeImageSent:        r.handleImageSent,
		protocol.TypeImageData:        r.handleImageData,
		protocol.TypeImageError:       r.handleImageError,
		protocol.TypeTyping:           r.handleTyping,
		protocol.TypeStopTyping:       r.handleStopTyping,
		protocol.TypeEnded:            r.handleEnded,
		protocol.TypeError:            r.handleError,
		protocol.TypeFriendRefresh:    r.handleFriendRefresh,
		protocol.TypeAdminNotice:      r.handleAdminNotice,
	}

	return r
}

// Dispatch routes one raw inbound frame. Frames that do not parse, or
// whose type has no handler, are logged at debug and dropped.
func (r *Router) Dispatch(data []byte) {
	typ := protocol.PeekType(data)
	if typ == "" {
		r.logger.Debug("frame without type", slog.Int("bytes", len(data)))
		return
	}

	h, ok := r.handlers[typ]
	if !ok {
		r.logger.Debug("ignoring unknown frame type", slog.String("type", typ))
		return
	}

	h(data)
}

// decode unmarshals a frame, logging and reporting failures.
func (r *Router) decode(data []byte, typ string, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		r.logger.Warn("failed to decode frame",
			slog.String("type", typ),
			slog.String("error", err.Error()),
		)

		return false
	}

	return true
}

func (r *Router) handleOnlineCount(data []byte) {
	var f protocol.OnlineCount
	if !r.decode(data, protocol.TypeOnlineCount, &f) {
		return
	}

	if r.events.OnOnlineCount != nil {
		r.events.OnOnlineCount(f.Count)
	}
}

func (r *Router) handleQueued(_ []byte) {
	if r.events.OnQueued != nil {
		r.events.OnQueued()
	}
}

func (r *Router) handleMatched(data []byte) {
	var f protocol.Matched
	if !r.decode(data, protocol.TypeMatched, &f) {
		return
	}

	if r.events.OnMatched != nil {
		r.events.OnMatched(f)
	}
}

func (r *Router) handleRoomMessage(data []byte) {
	var f protocol.InboundRoomMessage
	if !r.decode(data, protocol.TypeMessage, &f) {
		return
	}

	if r.events.OnRoomMessage != nil {
		r.events.OnRoomMessage(f.Text)
	}
}

func (r *Router) handleDirectMessage(data []byte) {
	var f protocol.InboundDirectMessage
	if !r.decode(data, protocol.TypeDirectMessage, &f) {
		return
	}

	if !r.dedup.ShouldProcess(f.DeliveryID) {
		r.logger.Debug("suppressing redelivered direct message",
			slog.String("delivery_id", f.DeliveryID),
		)

		return
	}

	if r.events.OnDirectMessage != nil {
		r.events.OnDirectMessage(f)
	}
}

func (r *Router) handleAck(data []byte) {
	var f protocol.DirectMessageAck
	if !r.decode(data, protocol.TypeDirectMessageAck, &f) {
		return
	}

	r.onAck(f)
}

func (r *Router) handleImageSent(data []byte) {
	var f protocol.ImageSent
	if !r.decode(data, protocol.TypeImageSent, &f) {
		return
	}

	if r.events.OnImageSent != nil {
		r.events.OnImageSent(f)
	}
}

func (r *Router) handleImageData(data []byte) {
	var f protocol.ImageData
	if !r.decode(data, protocol.TypeImageData, &f) {
		return
	}

	if r.events.OnImageData != nil {
		r.events.OnImageData(f)
	}
}

func (r *Router) handleImageError(data []byte) {
	var f protocol.ImageError
	if !r.decode(data, protocol.TypeImageError, &f) {
		return
	}

	if r.events.OnImageError != nil {
		r.events.OnImageError(f)
	}
}

func (r *Router) handleTyping(_ []byte) {
	if r.events.OnTyping != nil {
		r.events.OnTyping(true)
	}
}

func (r *Router) handleStopTyping(_ []byte) {
	if r.events.OnTyping != nil {
		r.events.OnTyping(false)
	}
}

func (r *Router) handleEnded(data []byte) {
	var f protocol.Ended
	if !r.decode(data, protocol.TypeEnded, &f) {
		return
	}

	if r.events.OnEnded != nil {
		r.events.OnEnded(f.Reason)
	}
}

func (r *Router) handleError(data []byte) {
	var f protocol.ErrorFrame
	if !r.decode(data, protocol.TypeError, &f) {
		return
	}

	r.onError(f)
}

func (r *Router) handleFriendRefresh(_ []byte) {
	if r.events.OnFriendRefresh != nil {
		r.events.OnFriendRefresh()
	}
}

func (r *Router) handleAdminNotice(data []byte) {
	var f protocol.AdminNotice
	if !r.decode(data, protocol.TypeAdminNotice, &f) {
		return
	}

	if !r.dedup.ShouldProcess(f.DeliveryID) {
		r.logger.Debug("suppressing redelivered admin notice",
			slog.String("delivery_id", f.DeliveryID),
		)

		return
	}

	if r.events.OnAdminNotice != nil {
		r.events.OnAdminNotice(f)
	}
}
