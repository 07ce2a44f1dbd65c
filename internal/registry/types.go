package registry

import (
	"time"

	"github.com/shopspring/decimal"
)

// Asset describes a collateral/debt instrument managed by the protocol.
// Amounts are expressed in native units (decimal), wire amounts in base
// units scaled by Decimals.
type Asset struct {
	ID                   string          `json:"id"`
	Symbol               string          `json:"symbol"`
	Decimals             uint8           `json:"decimals"`
	Native               bool            `json:"native"`
	CollateralFactor     decimal.Decimal `json:"collateralFactor"`
	LiquidationThreshold decimal.Decimal `json:"liquidationThreshold"`
	LiquidationBonus     decimal.Decimal `json:"liquidationBonus"`
	Supported            bool            `json:"supported"`
	TotalSupplied        decimal.Decimal `json:"totalSupplied"`
	TotalBorrowed        decimal.Decimal `json:"totalBorrowed"`

	// Origin identifies the remote chain/token this asset bridges from.
	// Zero OriginChainID means the asset is local to this deployment.
	OriginChainID uint64 `json:"originChainId,omitempty"`
	OriginSymbol  string `json:"originSymbol,omitempty"`

	AddedAt   time.Time `json:"addedAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AvailableLiquidity returns supplied minus borrowed, floored at zero.
func (a Asset) AvailableLiquidity() decimal.Decimal {
	liq := a.TotalSupplied.Sub(a.TotalBorrowed)
	if liq.IsNegative() {
		return decimal.Zero
	}
	return liq
}

// RiskParams bundles the admin-supplied risk configuration for AddAsset.
type RiskParams struct {
	CollateralFactor     decimal.Decimal
	LiquidationThreshold decimal.Decimal
	LiquidationBonus     decimal.Decimal
	Decimals             uint8
	Native               bool
}
