package bybit

import (
	"fmt"

	"github.com/ducminhle1904/bybit-volume-bot/internal/exchange"
)

// Bybit v5 return codes the bot cares about.
const (
	retCodeInvalidAPIKey     = 10003
	retCodeInvalidSignature  = 10004
	retCodeInvalidTimestamp  = 10005
	retCodeRateLimitExceeded = 10006
	retCodeIPRateLimit       = 10018
	retCodeOrderNotFound     = 110001
	retCodeInvalidPrice      = 110003
	retCodeInvalidOrderType  = 110004
	retCodeInsufficientFunds = 110007
	retCodePostOnlyReject    = 110017
	retCodeInvalidQuantity   = 110020
	retCodeInvalidPriceScale = 110021
	retCodeTooLateToCancel   = 110025
)

// classifyRetCode maps a Bybit return code onto the standardized venue
// error taxonomy. Unknown codes become opaque non-retryable errors so the
// caller's cycle continues instead of looping on them.
func classifyRetCode(retCode int, retMsg string) error {
	if retCode == 0 {
		return nil
	}
	switch retCode {
	case retCodeInvalidAPIKey, retCodeInvalidSignature, retCodeInvalidTimestamp:
		return &exchange.VenueError{
			Code:    exchange.ErrAuthFailed.Code,
			Message: fmt.Sprintf("bybit auth error %d: %s", retCode, retMsg),
		}
	case retCodeRateLimitExceeded, retCodeIPRateLimit:
		return &exchange.VenueError{
			Code:      exchange.ErrRateLimited.Code,
			Message:   fmt.Sprintf("bybit rate limit %d: %s", retCode, retMsg),
			Retryable: true,
		}
	case retCodeOrderNotFound, retCodeTooLateToCancel:
		return &exchange.VenueError{
			Code:    exchange.ErrOrderAlreadyClosed.Code,
			Message: fmt.Sprintf("bybit order gone %d: %s", retCode, retMsg),
		}
	case retCodeInvalidPrice, retCodeInvalidOrderType, retCodeInsufficientFunds,
		retCodePostOnlyReject, retCodeInvalidQuantity, retCodeInvalidPriceScale:
		return &exchange.VenueError{
			Code:    exchange.ErrOrderRejected.Code,
			Message: fmt.Sprintf("bybit rejected order %d: %s", retCode, retMsg),
		}
	}
	return &exchange.VenueError{
		Code:    fmt.Sprintf("BYBIT_%d", retCode),
		Message: fmt.Sprintf("bybit error %d: %s", retCode, retMsg),
	}
}

// wrapTransportError marks plain transport failures (timeouts, 5xx surfaced
// as errors by the SDK) as retryable.
func wrapTransportError(operation string, err error) error {
	if err == nil {
		return nil
	}
	return &exchange.VenueError{
		Code:      "TRANSPORT",
		Message:   fmt.Sprintf("%s: %v", operation, err),
		Retryable: true,
	}
}
