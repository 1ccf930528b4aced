// Package chat implements the resilient messaging transport: the
// WebSocket connection lifecycle, the durable outbox with ack tracking,
// inbound delivery deduplication, and frame routing. The design goal is
// exactly-once-effective delivery over an unreliable link: sends are
// retried at least once per timeout until acked, and the receive path
// suppresses the duplicates that retrying creates.
package chat

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/talkx/talkx-client/internal/backoff"
	"github.com/talkx/talkx-client/internal/errors"
	"github.com/talkx/talkx-client/internal/protocol"
	"github.com/talkx/talkx-client/internal/state"
)

const (
	// authTimeout bounds the wait for the welcome frame after hello_ack.
	authTimeout = 15 * time.Second

	// pingAfter is the idle time after which a transport ping probes the
	// connection. Any inbound frame resets the clock.
	pingAfter = 30 * time.Second

	// disconnectAfter is the idle time after which the connection is
	// declared dead even if the ping has not errored yet.
	disconnectAfter = 90 * time.Second

	// heartbeatCheckInterval is how often idle time is evaluated.
	heartbeatCheckInterval = 15 * time.Second

	inboundChanSize = 64
	sendChanSize    = 32
)

// wsConn is the subset of the websocket connection the client uses,
// extracted so tests can substitute a mock.
//
//go:generate mockgen -source=client.go -destination=mock_wsconn_test.go -package=chat -mock_names=wsConn=MockWSConn
type wsConn interface {
	Read(ctx context.Context) (websocket.MessageType, []byte, error)
	Write(ctx context.Context, typ websocket.MessageType, data []byte) error
	Close(code websocket.StatusCode, reason string) error
	Ping(ctx context.Context) error
}

// inboundMsg is one frame (or read error) handed from the reader
// goroutine to the event loop.
type inboundMsg struct {
	typ  websocket.MessageType
	data []byte
	err  error
}

// authFailedError marks a server-side session rejection. Run stops
// reconnecting when it sees one.
type authFailedError struct {
	code    string
	message string
}

func (e *authFailedError) Error() string {
	return fmt.Sprintf("session rejected: %s (%s)", e.message, e.code)
}

func (e *authFailedError) Unwrap() error {
	if e.code == protocol.CodeBanned {
		return errors.ErrBanned
	}

	return errors.ErrAuthFailed
}

// Config carries the client's identity and dependencies.
type Config struct {
	// URL is the WebSocket endpoint (ws:// or wss://).
	URL string

	// DeviceID is the stable installation identifier sent in hello_ack.
	DeviceID string

	// Platform identifies the device platform (ios, android, desktop).
	Platform string

	// Store holds the session token and the persisted outbox.
	Store *state.State

	// Events receives UI-facing callbacks. All fields optional.
	Events Events
}

// Client owns the WebSocket connection and the delivery machinery
// around it. All socket writes happen on the event loop goroutine;
// public send methods only enqueue. Exactly one live connection exists
// at a time: a new dial never starts until the previous connection's
// reader and timers are torn down.
type Client struct {
	logger   *slog.Logger
	url      string
	deviceID string
	platform string
	store    *state.State

	// dial opens the websocket connection. Overridable in tests.
	dial func(ctx context.Context) (wsConn, error)

	outbox *Outbox
	acks   *AckTracker
	dedup  *DedupCache
	router *Router
	events Events

	stateMu   sync.RWMutex
	connState ConnState

	connMu     sync.Mutex
	conn       wsConn
	connCancel context.CancelFunc

	sessionMu  sync.Mutex
	sessionErr *authFailedError

	lastMsgMu   sync.Mutex
	lastMessage time.Time

	running atomic.Bool
	closing atomic.Bool
	online  atomic.Bool
	pinging atomic.Bool

	// netCh carries connectivity signals into the run loop: true means
	// online (or foregrounded), false means connectivity lost. Capacity
	// one, latest value wins.
	netCh chan bool

	// flushCh coalesces outbox flush requests. Capacity one: a pending
	// flush covers everything queued before it runs.
	flushCh chan struct{}

	// sendCh carries fire-and-forget frames to the event loop.
	sendCh chan []byte

	inboundCh chan inboundMsg
}

// NewClient builds a client. Run must be called to connect.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("missing websocket url")
	}

	if cfg.Store == nil {
		return nil, fmt.Errorf("missing state store")
	}

	outbox, err := NewOutbox(cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	c := &Client{
		logger:    logger,
		url:       cfg.URL,
		deviceID:  cfg.DeviceID,
		platform:  cfg.Platform,
		store:     cfg.Store,
		outbox:    outbox,
		dedup:     NewDedupCache(),
		events:    cfg.Events,
		connState: StateDisconnected,
		netCh:     make(chan bool, 1),
		flushCh:   make(chan struct{}, 1),
		sendCh:    make(chan []byte, sendChanSize),
	}

	c.dial = c.dialWebsocket
	c.acks = NewAckTracker(ackTimeout, c.onAckTimeout)
	c.router = newRouter(logger, c.dedup, cfg.Events, c.handleAckFrame, c.handleErrorFrame)
	c.online.Store(true)

	return c, nil
}

// State returns the current connection state.
func (c *Client) State() ConnState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()

	return c.connState
}

func (c *Client) setState(s ConnState) {
	c.stateMu.Lock()

	prev := c.connState
	c.connState = s

	c.stateMu.Unlock()

	if prev == s {
		return
	}

	c.logger.Info("connection state changed",
		slog.String("from", prev.String()),
		slog.String("to", s.String()),
	)

	if c.events.OnConnectionState != nil {
		c.events.OnConnectionState(s)
	}
}

// Run connects and keeps the connection alive until ctx is cancelled,
// Close is called, or the server fatally rejects the session. It blocks
// for the client's lifetime and returns nil on deliberate shutdown.
func (c *Client) Run(ctx context.Context) error {
	if !c.running.CompareAndSwap(false, true) {
		return fmt.Errorf("client already running")
	}
	defer c.running.Store(false)

	attempts := 0
	firstAttempt := true

	for {
		if c.closing.Load() {
			c.setState(StateDisconnected)
			return nil
		}

		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}

		if !c.online.Load() {
			if err := c.waitOnline(ctx); err != nil {
				c.setState(StateDisconnected)
				return err
			}

			continue
		}

		// Only the very first dial of the client's lifetime is
		// "connecting"; every later one is a reconnect.
		if firstAttempt {
			c.setState(StateConnecting)
			firstAttempt = false
		} else {
			c.setState(StateReconnecting)
		}

		connCtx, connCancel := context.WithCancel(ctx)
		c.setConnCancel(connCancel)

		err := c.connect(connCtx)
		if err == nil {
			attempts = 0

			c.setState(StateConnected)
			c.startReader(connCtx)

			// Everything queued while disconnected is eligible again.
			c.requestFlush()

			err = c.eventLoop(connCtx)
		}

		connCancel()
		c.teardown()

		if c.closing.Load() {
			c.setState(StateDisconnected)
			return nil
		}

		if ctx.Err() != nil {
			c.setState(StateDisconnected)
			return ctx.Err()
		}

		var authErr *authFailedError
		if stderrors.As(err, &authErr) {
			return c.failSession(authErr)
		}

		delay := backoff.Reconnect.Delay(attempts)
		attempts++

		c.logger.Warn("connection lost",
			slog.String("error", err.Error()),
			slog.Duration("retry_in", delay),
			slog.Int("attempt", attempts),
		)

		c.setState(StateReconnecting)

		if err := c.waitReconnect(ctx, delay); err != nil {
			c.setState(StateDisconnected)
			return err
		}
	}
}

// waitOnline parks until a connectivity-restored signal. Backoff clocks
// do not run here; the first signal triggers an immediate dial.
func (c *Client) waitOnline(ctx context.Context) error {
	c.setState(StateOffline)
	c.logger.Info("offline, waiting for connectivity")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case online := <-c.netCh:
			if online {
				return nil
			}
		}
	}
}

// waitReconnect sleeps out the backoff delay. A connectivity or
// foreground signal cuts the wait short; a connectivity-lost signal
// suspends it entirely until connectivity returns.
func (c *Client) waitReconnect(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			return nil
		case online := <-c.netCh:
			if online {
				// Fresh connectivity or app foregrounded: no point
				// sitting out the rest of the delay.
				return nil
			}

			timer.Stop()

			return c.waitOnline(ctx)
		}
	}
}

// connect dials the server and completes the application handshake. On
// return without error the session is authenticated: the server has
// answered hello_ack with welcome.
func (c *Client) connect(ctx context.Context) error {
	c.logger.Debug("connecting", slog.String("url", c.url))

	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("dialing websocket: %w", err)
	}

	return c.handshake(ctx, conn)
}

func (c *Client) dialWebsocket(ctx context.Context) (wsConn, error) {
	conn, _, err := websocket.Dial(ctx, c.url, nil) //nolint:bodyclose // closed via conn.Close
	return conn, err
}

// handshake sends hello_ack and waits for the server's verdict. The
// socket being open proves nothing; only the welcome frame moves the
// session to connected.
func (c *Client) handshake(ctx context.Context, conn wsConn) error {
	c.setConn(conn)
	c.touchLastMessage()

	hello := protocol.NewHelloAck(c.deviceID, c.store.Token(), c.platform)
	if err := c.writeJSON(ctx, hello); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake write failed")
		return fmt.Errorf("sending hello_ack: %w", err)
	}

	authCtx, cancel := context.WithTimeout(ctx, authTimeout)
	defer cancel()

	for {
		_, data, err := conn.Read(authCtx)
		if err != nil {
			_ = conn.Close(websocket.StatusInternalError, "handshake read failed")
			return fmt.Errorf("awaiting welcome: %w", err)
		}

		c.touchLastMessage()

		switch protocol.PeekType(data) {
		case protocol.TypeWelcome:
			c.logger.Info("session authenticated", slog.String("device_id", c.deviceID))
			return nil
		case protocol.TypeError:
			var frame protocol.ErrorFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				continue
			}

			_ = conn.Close(websocket.StatusNormalClosure, "rejected")

			if frame.Fatal() {
				return &authFailedError{code: frame.Code, message: frame.Message}
			}

			return fmt.Errorf("server refused session: %s (%s)", frame.Message, frame.Code)
		default:
			// The server may push counters before welcome. Hold them
			// until the session is confirmed.
			c.logger.Debug("frame before welcome", slog.String("type", protocol.PeekType(data)))
		}
	}
}

// startReader spawns the goroutine that owns conn.Read and feeds the
// event loop. Read errors are delivered in-band so the loop sees them
// in order with the frames that preceded them.
func (c *Client) startReader(ctx context.Context) {
	conn := c.getConn()
	ch := make(chan inboundMsg, inboundChanSize)
	c.inboundCh = ch

	go func() {
		for {
			typ, data, err := conn.Read(ctx)

			select {
			case ch <- inboundMsg{typ: typ, data: data, err: err}:
			case <-ctx.Done():
				return
			}

			if err != nil {
				return
			}
		}
	}()
}

// eventLoop is the single writer to the socket. It multiplexes inbound
// frames, queued sends, outbox flushes, and the idle heartbeat until
// the connection dies or ctx is cancelled.
func (c *Client) eventLoop(ctx context.Context) error {
	ticker := time.NewTicker(heartbeatCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case msg := <-c.inboundCh:
			if msg.err != nil {
				return fmt.Errorf("reading frame: %w", msg.err)
			}

			c.touchLastMessage()

			if msg.typ != websocket.MessageText {
				c.logger.Debug("ignoring non-text frame", slog.Int("bytes", len(msg.data)))
				continue
			}

			c.router.Dispatch(msg.data)

			if err := c.takeSessionErr(); err != nil {
				_ = c.getConn().Close(websocket.StatusNormalClosure, "session ended")
				return err
			}

		case payload := <-c.sendCh:
			if err := c.getConn().Write(ctx, websocket.MessageText, payload); err != nil {
				return fmt.Errorf("writing frame: %w", err)
			}

		case <-c.flushCh:
			if err := c.flushOutbox(ctx); err != nil {
				return err
			}

		case <-ticker.C:
			idle := c.sinceLastMessage()

			if idle > disconnectAfter {
				_ = c.getConn().Close(websocket.StatusGoingAway, "heartbeat timeout")
				return fmt.Errorf("no frames for %s, closing", idle.Round(time.Second))
			}

			if idle > pingAfter {
				c.startPing(ctx)
			}
		}
	}
}

// startPing probes the connection without blocking the loop: on a dead
// link the pong never arrives, and a loop stuck waiting for it could
// not run the idle watchdog that declares the connection dead. The pong
// refreshes the idle clock; a ping that never completes is simply
// outlived by the watchdog.
func (c *Client) startPing(ctx context.Context) {
	if !c.pinging.CompareAndSwap(false, true) {
		return
	}

	conn := c.getConn()

	go func() {
		defer c.pinging.Store(false)

		if err := conn.Ping(ctx); err != nil {
			return
		}

		c.touchLastMessage()
	}()
}

// flushOutbox transmits every pending outbox item in creation order,
// recording the attempt and arming an ack timer per item. A write
// failure returns the item to the pending pool and kills the
// connection; the next authenticated connect flushes again.
func (c *Client) flushOutbox(ctx context.Context) error {
	for _, id := range c.outbox.ExpireDue() {
		c.logger.Info("dropping expired send",
			slog.String("client_msg_id", id),
			slog.String("reason", errors.ErrSendExpired.Error()),
		)

		c.emitSendResult(id, false)
	}

	for _, it := range c.outbox.Pending() {
		recorded, err := c.outbox.RecordAttempt(it.ClientMsgID)
		if err != nil {
			c.logger.Warn("failed to record send attempt",
				slog.String("client_msg_id", it.ClientMsgID),
				slog.String("error", err.Error()),
			)

			continue
		}

		if err := c.getConn().Write(ctx, websocket.MessageText, it.Payload); err != nil {
			c.outbox.ClearInFlight(it.ClientMsgID)
			return fmt.Errorf("transmitting %s: %w", it.ClientMsgID, err)
		}

		c.acks.Arm(it.ClientMsgID)

		c.logger.Debug("transmitted",
			slog.String("client_msg_id", it.ClientMsgID),
			slog.Int("attempt", recorded.Attempts),
		)
	}

	return nil
}

// onAckTimeout runs on an ack timer goroutine when a transmitted item
// gets no ack within the timeout. Below the attempt cap the item simply
// becomes pending again; at the cap it fails terminally. One
// retransmission per timeout, never a tight loop.
func (c *Client) onAckTimeout(clientMsgID string) {
	it, ok := c.outbox.Get(clientMsgID)
	if !ok {
		return
	}

	if it.Attempts < maxSendAttempts {
		c.logger.Debug("ack timeout, requeueing",
			slog.String("client_msg_id", clientMsgID),
			slog.Int("attempts", it.Attempts),
		)

		c.outbox.ClearInFlight(clientMsgID)
		c.requestFlush()

		return
	}

	c.logger.Warn("send failed",
		slog.String("client_msg_id", clientMsgID),
		slog.Int("attempts", it.Attempts),
		slog.String("reason", errors.ErrSendExhausted.Error()),
	)

	if c.outbox.Drop(clientMsgID) {
		c.emitSendResult(clientMsgID, false)
	}
}

// handleAckFrame resolves an outbound send. The first terminal verdict
// for a clientMsgId wins; late acks for items the tracker already gave
// up on are ignored.
func (c *Client) handleAckFrame(ack protocol.DirectMessageAck) {
	c.acks.Clear(ack.ClientMsgID)

	if !c.outbox.Drop(ack.ClientMsgID) {
		c.logger.Debug("ack for unknown send", slog.String("client_msg_id", ack.ClientMsgID))
		return
	}

	delivered := ack.Delivered()

	c.logger.Debug("send resolved",
		slog.String("client_msg_id", ack.ClientMsgID),
		slog.String("status", ack.Status),
		slog.Bool("delivered", delivered),
	)

	c.emitSendResult(ack.ClientMsgID, delivered)
}

// handleErrorFrame processes a server error. Errors naming a
// clientMsgId reject that send; BANNED and AUTH_FAILED additionally end
// the session.
func (c *Client) handleErrorFrame(frame protocol.ErrorFrame) {
	if frame.ClientMsgID != "" {
		c.acks.Clear(frame.ClientMsgID)

		if c.outbox.Drop(frame.ClientMsgID) {
			c.logger.Warn("send rejected",
				slog.String("client_msg_id", frame.ClientMsgID),
				slog.String("code", frame.Code),
			)

			c.emitSendResult(frame.ClientMsgID, false)
		}

		if !frame.Fatal() {
			return
		}
	}

	if frame.Fatal() {
		c.setSessionErr(&authFailedError{code: frame.Code, message: frame.Message})
		return
	}

	c.logger.Warn("server error",
		slog.String("code", frame.Code),
		slog.String("message", frame.Message),
	)
}

// failSession handles a fatal server rejection: the cached token and
// pending sends belong to a session that no longer exists, so both are
// discarded, and no reconnect is attempted.
func (c *Client) failSession(authErr *authFailedError) error {
	c.logger.Error("session fatally rejected",
		slog.String("code", authErr.code),
		slog.String("message", authErr.message),
	)

	if err := c.store.ClearToken(); err != nil {
		c.logger.Warn("failed to clear token", slog.String("error", err.Error()))
	}

	c.outbox.DropAll()
	c.setState(StateAuthError)

	if c.events.OnSessionError != nil {
		c.events.OnSessionError(authErr.code, authErr.message)
	}

	return authErr
}

// teardown clears everything scoped to the dead connection: ack timers,
// the in-flight set, queued ephemeral frames, and the connection object
// itself. With the link gone nothing is truly in flight.
func (c *Client) teardown() {
	c.acks.ClearAll()
	c.outbox.ClearAllInFlight()

	// Ephemeral frames queued in the connection's last instant must not
	// replay onto the next session minutes later.
drain:
	for {
		select {
		case <-c.sendCh:
		default:
			break drain
		}
	}

	if conn := c.takeConn(); conn != nil {
		_ = conn.Close(websocket.StatusInternalError, "teardown")
	}
}

// SendDirectText queues a direct text message for at-least-once
// delivery and returns its clientMsgId. The message survives restarts
// and reconnects until acked, expired, or attempt-exhausted.
func (c *Client) SendDirectText(targetUserID, text string) (string, error) {
	id := uuid.NewString()
	frame := protocol.NewDirectMessage(targetUserID, text, id)

	return id, c.enqueue(id, state.KindDirectText, targetUserID, frame)
}

// SendDirectImage queues a direct image message (base64 payload) and
// returns its clientMsgId.
func (c *Client) SendDirectImage(targetUserID, imageData string) (string, error) {
	id := uuid.NewString()
	frame := protocol.NewDirectImageSend(targetUserID, imageData, id)

	return id, c.enqueue(id, state.KindDirectImage, targetUserID, frame)
}

func (c *Client) enqueue(id, kind, targetUserID string, frame any) error {
	if c.closing.Load() {
		return errors.ErrClosed
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshalling %s frame: %w", kind, err)
	}

	now := time.Now()

	it := state.OutboxItem{
		ClientMsgID:  id,
		Kind:         kind,
		TargetUserID: targetUserID,
		Payload:      payload,
		CreatedAt:    now.UnixMilli(),
		ExpiresAt:    now.Add(outboxTTL).UnixMilli(),
	}

	if err := c.outbox.Enqueue(it); err != nil {
		return err
	}

	c.requestFlush()

	return nil
}

// JoinQueue asks to enter the anonymous match queue.
func (c *Client) JoinQueue() error {
	return c.send(protocol.NewSimple(protocol.TypeJoinQueue))
}

// LeaveQueue withdraws from the anonymous match queue.
func (c *Client) LeaveQueue() error {
	return c.send(protocol.NewSimple(protocol.TypeLeaveQueue))
}

// LeaveRoom leaves the current matched conversation.
func (c *Client) LeaveRoom() error {
	return c.send(protocol.NewSimple(protocol.TypeLeave))
}

// Next leaves the current conversation and immediately rejoins the queue.
func (c *Client) Next() error {
	return c.send(protocol.NewSimple(protocol.TypeNext))
}

// SendRoomMessage sends a message to the current matched room. Room
// messages are ephemeral: no outbox, no ack, no retry. The room dies
// with the connection, so retrying would write into a void.
func (c *Client) SendRoomMessage(roomID, text string) error {
	return c.send(protocol.NewRoomMessage(roomID, text))
}

// SendTyping signals typing to the given peer.
func (c *Client) SendTyping(targetUserID string) error {
	return c.send(protocol.NewTyping(protocol.TypeTyping, targetUserID))
}

// SendStopTyping signals typing stopped to the given peer.
func (c *Client) SendStopTyping(targetUserID string) error {
	return c.send(protocol.NewTyping(protocol.TypeStopTyping, targetUserID))
}

// FetchImage requests the bytes for a previously announced mediaId.
func (c *Client) FetchImage(mediaID string) error {
	return c.send(protocol.NewFetchImage(mediaID))
}

// Report flags a room or user for moderation.
func (c *Client) Report(roomID, targetUserID, reason string) error {
	return c.send(protocol.Report{
		Type:         protocol.TypeReport,
		RoomID:       roomID,
		TargetUserID: targetUserID,
		Reason:       reason,
	})
}

// send queues a fire-and-forget frame for the event loop to write.
// Fails fast when not connected; callers that need delivery guarantees
// use the outboxed send methods instead.
func (c *Client) send(frame any) error {
	if c.closing.Load() {
		return errors.ErrClosed
	}

	if c.State() != StateConnected {
		return errors.ErrNotConnected
	}

	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshalling frame: %w", err)
	}

	select {
	case c.sendCh <- payload:
		return nil
	default:
		return fmt.Errorf("send queue full")
	}
}

// SetOnline reports a connectivity change from the platform. Going
// offline suspends reconnect attempts and their backoff clocks; coming
// back online triggers an immediate attempt.
func (c *Client) SetOnline(online bool) {
	c.online.Store(online)
	c.signal(online)
}

// NotifyForeground reports the app returned to the foreground. Any
// backoff delay in progress is skipped so the user sees a prompt
// reconnect.
func (c *Client) NotifyForeground() {
	c.signal(true)
}

// signal posts a connectivity value, replacing any stale unread one.
func (c *Client) signal(online bool) {
	for {
		select {
		case c.netCh <- online:
			return
		default:
		}

		select {
		case <-c.netCh:
		default:
		}
	}
}

// Close deliberately shuts the client down. Ack timers and the
// in-flight set are cleared synchronously before the socket closes, so
// no timer from this connection can ever fire against a future one. No
// reconnect follows. Queued outbox items stay persisted for the next
// session.
func (c *Client) Close() error {
	if !c.closing.CompareAndSwap(false, true) {
		return nil
	}

	c.logger.Info("closing client")

	c.acks.ClearAll()
	c.outbox.ClearAllInFlight()

	if cancel := c.takeConnCancel(); cancel != nil {
		cancel()
	}

	if conn := c.takeConn(); conn != nil {
		return conn.Close(websocket.StatusNormalClosure, "client closed")
	}

	return nil
}

func (c *Client) writeJSON(ctx context.Context, frame any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshalling frame: %w", err)
	}

	return c.getConn().Write(ctx, websocket.MessageText, payload)
}

func (c *Client) requestFlush() {
	select {
	case c.flushCh <- struct{}{}:
	default:
	}
}

func (c *Client) emitSendResult(clientMsgID string, delivered bool) {
	if c.events.OnSendResult != nil {
		c.events.OnSendResult(clientMsgID, delivered)
	}
}

func (c *Client) setConn(conn wsConn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.conn = conn
}

func (c *Client) getConn() wsConn {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	return c.conn
}

func (c *Client) takeConn() wsConn {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	conn := c.conn
	c.conn = nil

	return conn
}

func (c *Client) setConnCancel(cancel context.CancelFunc) {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	c.connCancel = cancel
}

func (c *Client) takeConnCancel() context.CancelFunc {
	c.connMu.Lock()
	defer c.connMu.Unlock()

	cancel := c.connCancel
	c.connCancel = nil

	return cancel
}

func (c *Client) setSessionErr(err *authFailedError) {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if c.sessionErr == nil {
		c.sessionErr = err
	}
}

func (c *Client) takeSessionErr() error {
	c.sessionMu.Lock()
	defer c.sessionMu.Unlock()

	if c.sessionErr == nil {
		return nil
	}

	err := c.sessionErr
	c.sessionErr = nil

	return err
}

func (c *Client) touchLastMessage() {
	c.lastMsgMu.Lock()
	defer c.lastMsgMu.Unlock()

	c.lastMessage = time.Now()
}

func (c *Client) sinceLastMessage() time.Duration {
	c.lastMsgMu.Lock()
	defer c.lastMsgMu.Unlock()

	return time.Since(c.lastMessage)
}
