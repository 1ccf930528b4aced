// Package api talks to the TalkX REST API: authentication and push
// token registration. The live chat connection is separate (see
// internal/chat); push registration deliberately uses this channel so
// it keeps working while the socket is down.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	talkerrors "github.com/talkx/talkx-client/internal/errors"
)

// StatusError is a non-OK HTTP response from the API.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string { return e.Message }

// TransientError wraps an error that is likely temporary and safe to retry.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }
func (e *TransientError) Unwrap() error { return e.Err }

// IsTransient reports whether err (or any error in its chain) is a
// TransientError, meaning the caller should retry after a backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

const (
	// httpClientTimeout is the timeout for the default HTTP client used
	// when no custom client is provided.
	httpClientTimeout = 30 * time.Second

	// maxAPIResponseBytes caps response body reads to prevent a
	// misbehaving server from consuming unbounded memory.
	maxAPIResponseBytes = 1024 * 1024
)

// Client talks to the TalkX REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates an API client for the given base URL. If httpClient
// is nil, a client with a 30-second timeout is created.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: httpClientTimeout}
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// LoginRequest is the payload for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	DeviceID string `json:"device_id"`
}

// LoginResponse is returned from POST /auth/login.
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
}

// RegisterRequest is the payload for POST /auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// PushTokenRequest is the payload for push token register/unregister.
type PushTokenRequest struct {
	Token    string `json:"token"`
	DeviceID string `json:"device_id"`
	Platform string `json:"platform,omitempty"`
}

// APIError represents an error response body from the TalkX API.
type APIError struct {
	Error string `json:"error"`
	Msg   string `json:"msg"`
}

// post sends a JSON POST request and decodes the response into result.
// A non-empty bearer token is attached as the Authorization header.
func (c *Client) post(ctx context.Context, endpoint, bearer string, body, result any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		wrapped := fmt.Errorf("sending request to %s: %w", endpoint, err)
		// Network errors (timeouts, connection refused, DNS failures)
		// are transient by nature.
		return &TransientError{Err: wrapped}
	}
	defer resp.Body.Close()

	// Cap response reads at 1MB. API responses are small JSON payloads.
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := fmt.Sprintf("API %s returned status %d", endpoint, resp.StatusCode)

		var apiErr APIError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			msg = fmt.Sprintf("API %s (%d): %s", endpoint, resp.StatusCode, apiErr.Error)
		}

		err := &StatusError{Code: resp.StatusCode, Message: msg}
		if isTransientStatus(resp.StatusCode) {
			return &TransientError{Err: err}
		}

		return err
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response from %s: %w", endpoint, err)
		}
	}

	return nil
}

// isTransientStatus returns true for HTTP status codes that indicate a
// temporary server-side problem worth retrying.
func isTransientStatus(code int) bool {
	switch code {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}

	return false
}

// Login authenticates with username and password, returning a session
// token bound to this device id.
func (c *Client) Login(ctx context.Context, username, password, deviceID string) (*LoginResponse, error) {
	req := LoginRequest{Username: username, Password: password, DeviceID: deviceID}

	var resp LoginResponse
	if err := c.post(ctx, "/auth/login", "", req, &resp); err != nil {
		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Code == http.StatusUnauthorized {
			return nil, fmt.Errorf("logging in: %w", talkerrors.ErrInvalidCredentials)
		}

		return nil, fmt.Errorf("logging in: %w", err)
	}

	return &resp, nil
}

// Register creates an account.
func (c *Client) Register(ctx context.Context, username, password string) error {
	req := RegisterRequest{Username: username, Password: password}

	if err := c.post(ctx, "/auth/register", "", req, nil); err != nil {
		return fmt.Errorf("registering account: %w", err)
	}

	return nil
}

// Logout invalidates the session token.
func (c *Client) Logout(ctx context.Context, token string) error {
	if err := c.post(ctx, "/auth/logout", token, struct{}{}, nil); err != nil {
		return fmt.Errorf("logging out: %w", err)
	}

	return nil
}

// RegisterPushToken associates a push-delivery token with this device.
func (c *Client) RegisterPushToken(ctx context.Context, sessionToken, pushToken, deviceID, platform string) error {
	req := PushTokenRequest{Token: pushToken, DeviceID: deviceID, Platform: platform}

	if err := c.post(ctx, "/push/register", sessionToken, req, nil); err != nil {
		return fmt.Errorf("registering push token: %w", err)
	}

	return nil
}

// UnregisterPushToken removes a push-delivery token. Best-effort on
// logout; callers must not block logout completion on the result.
func (c *Client) UnregisterPushToken(ctx context.Context, sessionToken, pushToken, deviceID string) error {
	req := PushTokenRequest{Token: pushToken, DeviceID: deviceID}

	if err := c.post(ctx, "/push/unregister", sessionToken, req, nil); err != nil {
		return fmt.Errorf("unregistering push token: %w", err)
	}

	return nil
}
