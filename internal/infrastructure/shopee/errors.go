package shopee

import (
	"errors"
	"fmt"
)

// ErrSignatureMismatch is returned when a computed signature does not
// match the received one. The computed value is never included.
var ErrSignatureMismatch = errors.New("signature mismatch")

// ErrRateLimitInternal indicates a bug in the rate limiter: it is
// supposed to queue, never to reject.
var ErrRateLimitInternal = errors.New("rate limiter internal error")

// AuthenticationError indicates a missing, expired or revoked token,
// or a failed refresh. The shop must re-authorize when Disconnected.
type AuthenticationError struct {
	ShopID       int64
	Reason       string
	Disconnected bool
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for shop %d: %s", e.ShopID, e.Reason)
}

// ApiError is a remote-reported error with the Shopee error code,
// message and request id for traceability.
type ApiError struct {
	Code      string
	Message   string
	RequestID string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("shopee api error %s: %s (request_id=%s)", e.Code, e.Message, e.RequestID)
}

// NetworkError covers timeouts, connection failures and malformed
// responses. Callers may retry later.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error during %s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsAuthenticationError reports whether err is an AuthenticationError.
func IsAuthenticationError(err error) bool {
	var target *AuthenticationError
	return errors.As(err, &target)
}

// IsApiError reports whether err is a remote-reported ApiError.
func IsApiError(err error) bool {
	var target *ApiError
	return errors.As(err, &target)
}

// WebhookValidationError indicates an inbound push rejected before
// dispatch. It is acknowledged with 401 and never retried. Err carries
// the underlying sentinel (ErrSignatureMismatch) when one applies.
type WebhookValidationError struct {
	Reason string
	Err    error
}

func (e *WebhookValidationError) Error() string {
	return fmt.Sprintf("webhook rejected: %s", e.Reason)
}

func (e *WebhookValidationError) Unwrap() error { return e.Err }
