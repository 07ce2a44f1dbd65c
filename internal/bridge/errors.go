package bridge

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUnauthorizedCaller = errors.New("bridge: caller is not the registered gateway")
	ErrChainNotAllowed    = errors.New("bridge: origin chain not allowed")
	ErrChainMismatch      = errors.New("bridge: destination chain mismatch")
	ErrUnknownAction      = errors.New("bridge: unknown message action")
	ErrUnknownOriginAsset = errors.New("bridge: no local asset mapped to origin")
	ErrMessageExpired     = errors.New("bridge: message timestamp outside accepted window")
	ErrBadSignature       = errors.New("bridge: relayer signature rejected")
	ErrDuplicateDelivery  = errors.New("bridge: payload already delivered")
	ErrFeeExceedsAmount   = errors.New("bridge: amount does not cover the delivery fee")
)

// InsufficientFeeError reports a different-asset fee the reserve cannot
// cover. It carries the shortfall so callers can top up precisely.
type InsufficientFeeError struct {
	FeeAsset  string
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFeeError) Error() string {
	return fmt.Sprintf("bridge: insufficient fee funds: need %s %s, have %s",
		e.Required, e.FeeAsset, e.Available)
}
