package engine

import "errors"

// Operation errors. The API layer maps these to response codes, so they
// are sentinels rather than ad-hoc strings.
var (
	ErrAssetNotSupported      = errors.New("engine: asset not supported")
	ErrInvalidAmount          = errors.New("engine: amount must be positive")
	ErrInsufficientBalance    = errors.New("engine: insufficient supplied balance")
	ErrInsufficientCollateral = errors.New("engine: operation would leave position undercollateralized")
	ErrInsufficientLiquidity  = errors.New("engine: insufficient protocol liquidity")
	ErrNoOutstandingDebt      = errors.New("engine: no outstanding debt to repay")
	ErrNotLiquidatable        = errors.New("engine: position is healthy")
)
