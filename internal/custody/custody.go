// Package custody abstracts the asset transfer primitive the ledger sits
// on top of. Transfers are move-or-fail: there are no partial transfers
// and no in-flight state to reconcile.
package custody

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("custody: insufficient funds")
	ErrInvalidAmount     = errors.New("custody: amount must be positive")
	ErrUnknownAsset      = errors.New("custody: unknown asset")
)

// Vault is the custody/transfer primitive. Pull moves amount of asset from
// a holder into protocol custody; Push releases custody back out;
// Authorize grants a spender (the cross-chain gateway) permission to move
// custody-held funds.
type Vault interface {
	Pull(ctx context.Context, asset, from string, amount decimal.Decimal) error
	Push(ctx context.Context, asset, to string, amount decimal.Decimal) error
	Authorize(ctx context.Context, asset, spender string, amount decimal.Decimal) error
	BalanceOf(ctx context.Context, asset, holder string) (decimal.Decimal, error)
}
