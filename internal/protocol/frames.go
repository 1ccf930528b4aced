// Package protocol defines the JSON frames exchanged with the TalkX
// chat server over the persistent WebSocket. Every frame carries a
// "type" discriminator.
package protocol

import "github.com/tidwall/gjson"

// Frame type discriminators, outbound.
const (
	TypeHelloAck        = "hello_ack"
	TypeJoinQueue       = "joinQueue"
	TypeLeaveQueue      = "leaveQueue"
	TypeLeave           = "leave"
	TypeNext            = "next"
	TypeMessage         = "message"
	TypeDirectMessage   = "direct_message"
	TypeDirectImageSend = "direct_image_send"
	TypeTyping          = "typing"
	TypeStopTyping      = "stop_typing"
	TypeFetchImage      = "fetch_image"
	TypeReport          = "report"
)

// Frame type discriminators, inbound only.
const (
	TypeWelcome          = "welcome"
	TypeOnlineCount      = "onlineCount"
	TypeQueued           = "queued"
	TypeMatched          = "matched"
	TypeDirectMessageAck = "direct_message_ack"
	TypeImageSent        = "image_sent"
	TypeImageData        = "image_data"
	TypeImageError       = "image_error"
	TypeEnded            = "ended"
	TypeError            = "error"
	TypeFriendRefresh    = "friend_refresh"
	TypeAdminNotice      = "admin_notice"
)

// Statuses carried by DirectMessageAck.
const (
	AckStatusSent      = "sent"
	AckStatusDuplicate = "duplicate"
	AckStatusFailed    = "failed"
)

// Error codes the server sends in Error frames. BANNED and AUTH_FAILED
// are fatal to the session.
const (
	CodeBanned     = "BANNED"
	CodeAuthFailed = "AUTH_FAILED"
	CodeRateLimit  = "RATE_LIMIT"
)

// PeekType returns the type discriminator of a raw frame without
// decoding the rest, or empty string if the frame has none.
func PeekType(data []byte) string {
	return gjson.GetBytes(data, "type").Str
}

// PeekDeliveryID returns the deliveryId of a raw frame, or empty string.
// Frames without a deliveryId cannot be deduplicated and are always
// processed.
func PeekDeliveryID(data []byte) string {
	return gjson.GetBytes(data, "deliveryId").Str
}

// HelloAck is sent as the first frame after the socket opens. The
// server replies with Welcome once the session is validated; an open
// socket alone does not mean the session is authenticated.
type HelloAck struct {
	Type     string `json:"type"`
	DeviceID string `json:"deviceId"`
	Token    string `json:"token,omitempty"`
	Platform string `json:"platform"`
}

// NewHelloAck builds the handshake frame.
func NewHelloAck(deviceID, token, platform string) HelloAck {
	return HelloAck{Type: TypeHelloAck, DeviceID: deviceID, Token: token, Platform: platform}
}

// Simple is a frame carrying only a type: joinQueue, leaveQueue, leave, next.
type Simple struct {
	Type string `json:"type"`
}

// NewSimple builds a payload-less frame of the given type.
func NewSimple(typ string) Simple {
	return Simple{Type: typ}
}

// RoomMessage is an outbound message to the current anonymous-match room.
type RoomMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId"`
	Text   string `json:"text"`
}

// NewRoomMessage builds an outbound room message frame.
func NewRoomMessage(roomID, text string) RoomMessage {
	return RoomMessage{Type: TypeMessage, RoomID: roomID, Text: text}
}

// DirectMessage is an outbound direct text message. ClientMsgID is the
// client-generated idempotency key the ack correlates on.
type DirectMessage struct {
	Type         string `json:"type"`
	TargetUserID string `json:"targetUserId"`
	Text         string `json:"text"`
	ClientMsgID  string `json:"clientMsgId"`
}

// NewDirectMessage builds an outbound direct text frame.
func NewDirectMessage(targetUserID, text, clientMsgID string) DirectMessage {
	return DirectMessage{Type: TypeDirectMessage, TargetUserID: targetUserID, Text: text, ClientMsgID: clientMsgID}
}

// DirectImageSend is an outbound direct image message.
type DirectImageSend struct {
	Type         string `json:"type"`
	TargetUserID string `json:"targetUserId"`
	ImageData    string `json:"imageData"`
	ClientMsgID  string `json:"clientMsgId"`
}

// NewDirectImageSend builds an outbound direct image frame.
func NewDirectImageSend(targetUserID, imageData, clientMsgID string) DirectImageSend {
	return DirectImageSend{Type: TypeDirectImageSend, TargetUserID: targetUserID, ImageData: imageData, ClientMsgID: clientMsgID}
}

// TypingFrame signals typing start or stop. The target is always
// explicit; the server never infers the audience from client-side mode.
type TypingFrame struct {
	Type         string `json:"type"`
	TargetUserID string `json:"targetUserId,omitempty"`
}

// NewTyping builds a typing or stop_typing frame for the given target.
func NewTyping(typ, targetUserID string) TypingFrame {
	return TypingFrame{Type: typ, TargetUserID: targetUserID}
}

// FetchImage requests image bytes for a previously announced mediaId.
type FetchImage struct {
	Type    string `json:"type"`
	MediaID string `json:"mediaId"`
}

// NewFetchImage builds an image fetch frame.
func NewFetchImage(mediaID string) FetchImage {
	return FetchImage{Type: TypeFetchImage, MediaID: mediaID}
}

// Report flags a room or user for moderation. Exactly one of RoomID
// and TargetUserID is set.
type Report struct {
	Type         string `json:"type"`
	RoomID       string `json:"roomId,omitempty"`
	TargetUserID string `json:"targetUserId,omitempty"`
	Reason       string `json:"reason"`
}

// Inbound frames.

// OnlineCount announces how many users are currently online.
type OnlineCount struct {
	Type  string `json:"type"`
	Count int    `json:"count"`
}

// Matched announces an anonymous-queue match.
type Matched struct {
	Type         string `json:"type"`
	RoomID       string `json:"roomId"`
	PeerNickname string `json:"peerNickname"`
	PeerUsername string `json:"peerUsername"`
	PeerID       string `json:"peerId"`
}

// InboundRoomMessage is a message from the matched peer.
type InboundRoomMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// InboundDirectMessage is a direct message pushed by the server.
// DeliveryID identifies the delivery for redelivery detection; the
// server re-pushes unacked deliveries after a reconnect.
type InboundDirectMessage struct {
	Type       string `json:"type"`
	FromUserID string `json:"fromUserId"`
	Text       string `json:"text"`
	MsgType    string `json:"msgType"`
	MediaID    string `json:"mediaId"`
	DeliveryID string `json:"deliveryId"`
}

// DirectMessageAck confirms (or rejects) an outbound direct send,
// correlated by clientMsgId.
type DirectMessageAck struct {
	Type           string `json:"type"`
	ClientMsgID    string `json:"clientMsgId"`
	Status         string `json:"status"`
	MediaID        string `json:"mediaId,omitempty"`
	ConversationID string `json:"conversationId,omitempty"`
}

// Delivered reports whether the ack means the message reached the
// server. Both "sent" and "duplicate" count: a duplicate ack is the
// server deduplicating a retransmission of a send it already has.
// Anything else is a rejection. Either way the ack is terminal and the
// outbox entry is dropped.
func (a DirectMessageAck) Delivered() bool {
	return a.Status == AckStatusSent || a.Status == AckStatusDuplicate
}

// ImageSent announces the server stored an uploaded image.
type ImageSent struct {
	Type        string `json:"type"`
	MediaID     string `json:"mediaId"`
	ClientMsgID string `json:"clientMsgId,omitempty"`
}

// ImageData carries fetched image bytes.
type ImageData struct {
	Type      string `json:"type"`
	MediaID   string `json:"mediaId"`
	ImageData string `json:"imageData"`
}

// ImageError reports a failed image fetch.
type ImageError struct {
	Type    string `json:"type"`
	MediaID string `json:"mediaId"`
	Message string `json:"message"`
}

// Ended announces the current room conversation is over.
type Ended struct {
	Type   string `json:"type"`
	Reason string `json:"reason,omitempty"`
}

// ErrorFrame is a server-reported error. ClientMsgID is set when the
// error rejects a specific outbound send.
type ErrorFrame struct {
	Type        string `json:"type"`
	Code        string `json:"code"`
	Message     string `json:"message"`
	ClientMsgID string `json:"clientMsgId,omitempty"`
}

// Fatal reports whether the error ends the session rather than a
// single operation.
func (e ErrorFrame) Fatal() bool {
	return e.Code == CodeBanned || e.Code == CodeAuthFailed
}

// AdminNotice is a broadcast notice, deduplicated by deliveryId.
type AdminNotice struct {
	Type       string `json:"type"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	DurationMs int64  `json:"durationMs"`
	DeliveryID string `json:"deliveryId"`
}
