package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// healthFactorPrecision keeps well past the 18 fractional digits the risk
// parameters are expressed in; the division is always performed last so
// truncation can never mask an unsafe position.
const healthFactorPrecision = 28

// Precision is the scale every value-space division in the protocol
// rounds to.
const Precision = healthFactorPrecision

var ErrZeroPrice = errors.New("ledger: zero price for supported asset")

// PriceSource returns the USD unit price of an asset. A missing or zero
// price is a hard failure, never treated as zero value.
type PriceSource interface {
	Price(ctx context.Context, assetID string) (decimal.Decimal, error)
}

// RiskView is the slice of the registry the valuator needs.
type RiskView interface {
	LiquidationThresholdOf(assetID string) (decimal.Decimal, bool)
}

// HealthFactor is the ratio of threshold-weighted collateral value to debt
// value. A user with no debt has an infinite health factor, which is a
// first-class value here, not an error.
type HealthFactor struct {
	Value    decimal.Decimal `json:"value"`
	Infinite bool            `json:"infinite"`
}

func Infinite() HealthFactor { return HealthFactor{Infinite: true} }

// Healthy reports hf >= 1. Equality is the boundary, not a violation.
func (hf HealthFactor) Healthy() bool {
	return hf.Infinite || hf.Value.GreaterThanOrEqual(decimal.NewFromInt(1))
}

// Liquidatable reports hf < 1 strictly.
func (hf HealthFactor) Liquidatable() bool {
	return !hf.Infinite && hf.Value.LessThan(decimal.NewFromInt(1))
}

func (hf HealthFactor) String() string {
	if hf.Infinite {
		return "+Inf"
	}
	return hf.Value.String()
}

// Adjustment expresses a hypothetical balance delta so operations can be
// checked against the position they would leave behind, not the stale one.
type Adjustment struct {
	Asset       string
	SupplyDelta decimal.Decimal
	BorrowDelta decimal.Decimal
}

// Valuation is the priced view of a position.
type Valuation struct {
	CollateralValue decimal.Decimal `json:"collateralValue"`
	DebtValue       decimal.Decimal `json:"debtValue"`
	HealthFactor    HealthFactor    `json:"healthFactor"`
}

// Valuator computes position valuations from live prices and registry risk
// parameters. It is pure computation: no side effects, no caching.
type Valuator struct {
	prices PriceSource
	risk   RiskView
}

func NewValuator(prices PriceSource, risk RiskView) *Valuator {
	return &Valuator{prices: prices, risk: risk}
}

// Value prices the position, optionally applying adjustments first.
func (v *Valuator) Value(ctx context.Context, pos Position, adjustments ...Adjustment) (Valuation, error) {
	supplied := make(map[string]decimal.Decimal, len(pos.Supplied))
	borrowed := make(map[string]decimal.Decimal, len(pos.Borrowed))
	for a, amt := range pos.Supplied {
		supplied[a] = amt
	}
	for a, amt := range pos.Borrowed {
		borrowed[a] = amt
	}
	for _, adj := range adjustments {
		if !adj.SupplyDelta.IsZero() {
			supplied[adj.Asset] = supplied[adj.Asset].Add(adj.SupplyDelta)
		}
		if !adj.BorrowDelta.IsZero() {
			borrowed[adj.Asset] = borrowed[adj.Asset].Add(adj.BorrowDelta)
		}
	}

	collateral := decimal.Zero
	for asset, amount := range supplied {
		if amount.IsZero() {
			continue
		}
		price, err := v.priceOf(ctx, asset)
		if err != nil {
			return Valuation{}, err
		}
		threshold, ok := v.risk.LiquidationThresholdOf(asset)
		if !ok {
			return Valuation{}, fmt.Errorf("ledger: no risk parameters for asset %s", asset)
		}
		collateral = collateral.Add(amount.Mul(price).Mul(threshold))
	}

	debt := decimal.Zero
	for asset, amount := range borrowed {
		if amount.IsZero() {
			continue
		}
		price, err := v.priceOf(ctx, asset)
		if err != nil {
			return Valuation{}, err
		}
		debt = debt.Add(amount.Mul(price))
	}

	val := Valuation{CollateralValue: collateral, DebtValue: debt}
	if debt.IsZero() {
		val.HealthFactor = Infinite()
		return val, nil
	}
	val.HealthFactor = HealthFactor{Value: collateral.DivRound(debt, healthFactorPrecision)}
	return val, nil
}

// HealthFactor is a convenience wrapper around Value.
func (v *Valuator) HealthFactor(ctx context.Context, pos Position, adjustments ...Adjustment) (HealthFactor, error) {
	val, err := v.Value(ctx, pos, adjustments...)
	if err != nil {
		return HealthFactor{}, err
	}
	return val.HealthFactor, nil
}

// Price exposes the validated price lookup for callers that need raw
// unit prices, such as liquidation seize math.
func (v *Valuator) Price(ctx context.Context, asset string) (decimal.Decimal, error) {
	return v.priceOf(ctx, asset)
}

func (v *Valuator) priceOf(ctx context.Context, asset string) (decimal.Decimal, error) {
	price, err := v.prices.Price(ctx, asset)
	if err != nil {
		return decimal.Zero, fmt.Errorf("ledger: price %s: %w", asset, err)
	}
	if price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrZeroPrice, asset)
	}
	return price, nil
}
