package errors

import "errors"

// Session errors.
var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAuthFailed         = errors.New("session rejected by server")
	ErrBanned             = errors.New("account banned")
)

// Transport errors.
var (
	ErrNotConnected = errors.New("not connected")
	ErrClosed       = errors.New("client closed")
)

// Delivery errors.
var (
	ErrSendExpired   = errors.New("send expired before delivery")
	ErrSendExhausted = errors.New("send failed after maximum attempts")
)
