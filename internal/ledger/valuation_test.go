package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedPrices map[string]decimal.Decimal

func (f fixedPrices) Price(_ context.Context, assetID string) (decimal.Decimal, error) {
	p, ok := f[assetID]
	if !ok {
		return decimal.Zero, errors.New("no quote")
	}
	return p, nil
}

type fixedRisk map[string]decimal.Decimal

func (f fixedRisk) LiquidationThresholdOf(assetID string) (decimal.Decimal, bool) {
	lt, ok := f[assetID]
	return lt, ok
}

func newTestValuator() *Valuator {
	return NewValuator(
		fixedPrices{"ETH": dec("2000"), "USDC": dec("1")},
		fixedRisk{"ETH": dec("0.85"), "USDC": dec("0.9")},
	)
}

func TestValueWeightsCollateralByThreshold(t *testing.T) {
	v := newTestValuator()

	pos := Position{
		Supplied: map[string]decimal.Decimal{"ETH": dec("5")},
		Borrowed: map[string]decimal.Decimal{"USDC": dec("2000")},
	}

	val, err := v.Value(context.Background(), pos)
	require.NoError(t, err)
	assert.True(t, dec("8500").Equal(val.CollateralValue))
	assert.True(t, dec("2000").Equal(val.DebtValue))
	assert.True(t, dec("4.25").Equal(val.HealthFactor.Value))
	assert.True(t, val.HealthFactor.Healthy())
	assert.False(t, val.HealthFactor.Liquidatable())
}

func TestNoDebtIsInfinite(t *testing.T) {
	v := newTestValuator()

	pos := Position{Supplied: map[string]decimal.Decimal{"ETH": dec("5")}}
	hf, err := v.HealthFactor(context.Background(), pos)
	require.NoError(t, err)
	assert.True(t, hf.Infinite)
	assert.True(t, hf.Healthy())
	assert.False(t, hf.Liquidatable())
	assert.Equal(t, "+Inf", hf.String())
}

func TestBoundaryExactlyOneIsHealthy(t *testing.T) {
	v := newTestValuator()

	// 1 ETH * 2000 * 0.85 = 1700 collateral against 1700 debt.
	pos := Position{
		Supplied: map[string]decimal.Decimal{"ETH": dec("1")},
		Borrowed: map[string]decimal.Decimal{"USDC": dec("1700")},
	}
	hf, err := v.HealthFactor(context.Background(), pos)
	require.NoError(t, err)
	assert.True(t, dec("1").Equal(hf.Value))
	assert.True(t, hf.Healthy())
	assert.False(t, hf.Liquidatable())
}

func TestJustBelowOneIsLiquidatable(t *testing.T) {
	v := newTestValuator()

	pos := Position{
		Supplied: map[string]decimal.Decimal{"ETH": dec("1")},
		Borrowed: map[string]decimal.Decimal{"USDC": dec("1700.000001")},
	}
	hf, err := v.HealthFactor(context.Background(), pos)
	require.NoError(t, err)
	assert.False(t, hf.Healthy())
	assert.True(t, hf.Liquidatable())
}

func TestAdjustmentsAppliedBeforePricing(t *testing.T) {
	v := newTestValuator()

	pos := Position{
		Supplied: map[string]decimal.Decimal{"ETH": dec("5")},
		Borrowed: map[string]decimal.Decimal{"USDC": dec("1700")},
	}

	// Withdrawing 4 ETH leaves 1 ETH against 1700 debt: hf exactly 1.
	hf, err := v.HealthFactor(context.Background(), pos, Adjustment{
		Asset:       "ETH",
		SupplyDelta: dec("-4"),
	})
	require.NoError(t, err)
	assert.True(t, dec("1").Equal(hf.Value))

	// Borrowing 300 more pushes debt to 2000 against 8500 collateral.
	hf, err = v.HealthFactor(context.Background(), pos, Adjustment{
		Asset:       "USDC",
		BorrowDelta: dec("300"),
	})
	require.NoError(t, err)
	assert.True(t, dec("4.25").Equal(hf.Value))
}

func TestMissingPriceIsError(t *testing.T) {
	v := newTestValuator()

	pos := Position{Supplied: map[string]decimal.Decimal{"DOGE": dec("5")}}
	_, err := v.Value(context.Background(), pos)
	assert.Error(t, err)
}

func TestZeroPriceIsErrorNotZeroValue(t *testing.T) {
	v := NewValuator(
		fixedPrices{"ETH": decimal.Zero},
		fixedRisk{"ETH": dec("0.85")},
	)

	pos := Position{Supplied: map[string]decimal.Decimal{"ETH": dec("5")}}
	_, err := v.Value(context.Background(), pos)
	assert.ErrorIs(t, err, ErrZeroPrice)
}

func TestDivisionPerformedLast(t *testing.T) {
	v := NewValuator(
		fixedPrices{"ETH": dec("0.000000000000000003"), "USDC": dec("1")},
		fixedRisk{"ETH": dec("0.85"), "USDC": dec("0.9")},
	)

	// Tiny collateral value survives because nothing is rounded before the
	// final division.
	pos := Position{
		Supplied: map[string]decimal.Decimal{"ETH": dec("1")},
		Borrowed: map[string]decimal.Decimal{"USDC": dec("1")},
	}
	hf, err := v.HealthFactor(context.Background(), pos)
	require.NoError(t, err)
	assert.True(t, hf.Value.IsPositive())
	assert.True(t, hf.Liquidatable())
}
