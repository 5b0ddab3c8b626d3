package exchange

import "errors"

// VenueError is a standardized error surfaced by exchange implementations.
// Components classify it through the predicates below instead of inspecting
// transport-specific codes.
type VenueError struct {
	Code      string
	Message   string
	Retryable bool
}

func (e *VenueError) Error() string {
	return e.Message
}

// Common venue error conditions.
var (
	// ErrOrderAlreadyClosed signals a cancellation that raced a fill or
	// expiry. Cancel passes treat it as success.
	ErrOrderAlreadyClosed = &VenueError{
		Code:    "ORDER_ALREADY_CLOSED",
		Message: "order already filled or cancelled",
	}

	// ErrOrderRejected signals the venue refused the order outright
	// (invalid price or size, post-only would cross). Never retried.
	ErrOrderRejected = &VenueError{
		Code:    "ORDER_REJECTED",
		Message: "order rejected by venue",
	}

	// ErrAuthFailed signals invalid credentials. Fatal, surfaced
	// immediately with no retry.
	ErrAuthFailed = &VenueError{
		Code:    "AUTHENTICATION_FAILED",
		Message: "venue rejected API credentials",
	}

	// ErrBookUnavailable signals the venue could not supply usable book
	// data (empty book, inactive symbol).
	ErrBookUnavailable = &VenueError{
		Code:    "BOOK_UNAVAILABLE",
		Message: "order book unavailable",
	}

	// ErrRateLimited signals the venue throttled the request.
	ErrRateLimited = &VenueError{
		Code:      "RATE_LIMIT_EXCEEDED",
		Message:   "venue rate limit exceeded",
		Retryable: true,
	}
)

// IsOrderAlreadyClosed reports whether err means the order was gone before
// the cancellation landed.
func IsOrderAlreadyClosed(err error) bool {
	var ve *VenueError
	return errors.As(err, &ve) && ve.Code == ErrOrderAlreadyClosed.Code
}

// IsOrderRejected reports whether err is a non-retryable venue rejection.
func IsOrderRejected(err error) bool {
	var ve *VenueError
	return errors.As(err, &ve) && ve.Code == ErrOrderRejected.Code
}

// IsAuthError reports whether err is a credential failure.
func IsAuthError(err error) bool {
	var ve *VenueError
	return errors.As(err, &ve) && ve.Code == ErrAuthFailed.Code
}

// IsRetryable reports whether err is worth another attempt.
func IsRetryable(err error) bool {
	var ve *VenueError
	return errors.As(err, &ve) && ve.Retryable
}
