package engine

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/omnilend/omnilend-backend/internal/custody"
	"github.com/omnilend/omnilend-backend/internal/journal"
	"github.com/omnilend/omnilend-backend/internal/ledger"
	"github.com/omnilend/omnilend-backend/internal/prices"
	"github.com/omnilend/omnilend-backend/internal/prices/static"
	"github.com/omnilend/omnilend-backend/internal/registry"
)

const (
	owner = "0xadmin"
	alice = "0xalice"
	bob   = "0xbob"
	whale = "0xwhale"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

type fixture struct {
	engine *Engine
	reg    *registry.Registry
	vault  *custody.MemoryVault
	prices *static.Provider
}

// newFixture builds an engine over ETH (cf 0.8, lt 0.85, bonus 0.05) at
// $2000 and USDC (cf 0.9, lt 0.9) at $1, with a whale supplying USDC
// liquidity and alice holding 10 ETH in her wallet.
func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg := registry.New(owner)
	_, err := reg.AddAsset(owner, "ETH", registry.RiskParams{
		Decimals:             18,
		CollateralFactor:     dec("0.8"),
		LiquidationThreshold: dec("0.85"),
		LiquidationBonus:     dec("0.05"),
	})
	require.NoError(t, err)
	_, err = reg.AddAsset(owner, "USDC", registry.RiskParams{
		Decimals:             6,
		CollateralFactor:     dec("0.9"),
		LiquidationThreshold: dec("0.9"),
		LiquidationBonus:     dec("0.05"),
	})
	require.NoError(t, err)

	provider := static.NewProvider()
	provider.SetPrice("ETH", dec("2000"))
	provider.SetPrice("USDC", dec("1"))
	priceSvc := prices.NewService(provider, prices.NewRegistry(), 0)

	vault := custody.NewMemoryVault()
	vault.Mint("ETH", alice, dec("10"))
	vault.Mint("USDC", whale, dec("100000"))
	vault.Mint("USDC", bob, dec("100000"))

	book := ledger.NewBook()
	valuator := ledger.NewValuator(priceSvc, reg)
	eng := New(zap.NewNop().Sugar(), reg, book, valuator, vault, journal.NewMemory())

	require.NoError(t, eng.Supply(context.Background(), whale, whale, "USDC", dec("100000")))

	return &fixture{engine: eng, reg: reg, vault: vault, prices: provider}
}

func (f *fixture) requireAggregateFloor(t *testing.T) {
	t.Helper()
	for _, a := range f.reg.List() {
		assert.True(t, a.TotalSupplied.GreaterThanOrEqual(a.TotalBorrowed),
			"asset %s: supplied %s < borrowed %s", a.ID, a.TotalSupplied, a.TotalBorrowed)
	}
}

func TestSupplyBorrowHealthFactor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("5")))
	require.NoError(t, f.engine.Borrow(ctx, alice, alice, "USDC", dec("2000")))

	val, err := f.engine.ValuationOf(ctx, alice)
	require.NoError(t, err)
	assert.True(t, dec("8500").Equal(val.CollateralValue))
	assert.True(t, dec("2000").Equal(val.DebtValue))
	assert.False(t, val.HealthFactor.Infinite)
	assert.True(t, dec("4.25").Equal(val.HealthFactor.Value))
	assert.True(t, val.HealthFactor.Healthy())

	f.requireAggregateFloor(t)
}

func TestPriceDropStaysHealthyAboveOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("5")))
	require.NoError(t, f.engine.Borrow(ctx, alice, alice, "USDC", dec("2000")))

	f.prices.SetPrice("ETH", dec("800"))

	hf, err := f.engine.Valuator().HealthFactor(ctx, f.engine.PositionOf(alice))
	require.NoError(t, err)
	assert.True(t, dec("1.7").Equal(hf.Value))
	assert.False(t, hf.Liquidatable())

	_, err = f.engine.Liquidate(ctx, bob, alice, "ETH", "USDC", dec("500"))
	assert.ErrorIs(t, err, ErrNotLiquidatable)
	// A failed liquidation moves nothing.
	assert.True(t, dec("5").Equal(f.engine.PositionOf(alice).SuppliedOf("ETH")))
	assert.True(t, dec("2000").Equal(f.engine.PositionOf(alice).BorrowedOf("USDC")))
}

func TestLiquidationSeizesWithBonus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("5")))
	require.NoError(t, f.engine.Borrow(ctx, alice, alice, "USDC", dec("2000")))

	f.prices.SetPrice("ETH", dec("300"))

	hf, err := f.engine.Valuator().HealthFactor(ctx, f.engine.PositionOf(alice))
	require.NoError(t, err)
	assert.True(t, dec("0.6375").Equal(hf.Value))
	assert.True(t, hf.Liquidatable())

	res, err := f.engine.Liquidate(ctx, bob, alice, "ETH", "USDC", dec("500"))
	require.NoError(t, err)
	assert.True(t, dec("500").Equal(res.Repaid))
	// 500 * $1 * 1.05 / $300 = 1.75 ETH
	assert.True(t, dec("1.75").Equal(res.Seized))

	pos := f.engine.PositionOf(alice)
	assert.True(t, dec("3.25").Equal(pos.SuppliedOf("ETH")))
	assert.True(t, dec("1500").Equal(pos.BorrowedOf("USDC")))

	got, err := f.vault.BalanceOf(ctx, "ETH", bob)
	require.NoError(t, err)
	assert.True(t, dec("1.75").Equal(got))

	f.requireAggregateFloor(t)
}

func TestLiquidationSeizureCappedAtCollateral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("1")))
	require.NoError(t, f.engine.Borrow(ctx, alice, alice, "USDC", dec("1500")))

	// 1 ETH at $100 cannot cover the implied 15.75 ETH seizure.
	f.prices.SetPrice("ETH", dec("100"))

	res, err := f.engine.Liquidate(ctx, bob, alice, "ETH", "USDC", dec("1500"))
	require.NoError(t, err)
	assert.True(t, dec("1").Equal(res.Seized))
	assert.True(t, f.engine.PositionOf(alice).SuppliedOf("ETH").IsZero())
}

func TestWithdrawBoundaryExactlyOne(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("5")))
	require.NoError(t, f.engine.Borrow(ctx, alice, alice, "USDC", dec("1700")))

	// Post-withdrawal collateral (5-W)*2000*0.85 must cover 1700, so the
	// largest admissible W is exactly 4.
	err := f.engine.Withdraw(ctx, alice, alice, "ETH", dec("4.000000000000000001"))
	assert.ErrorIs(t, err, ErrInsufficientCollateral)

	require.NoError(t, f.engine.Withdraw(ctx, alice, alice, "ETH", dec("4")))

	hf, err := f.engine.Valuator().HealthFactor(ctx, f.engine.PositionOf(alice))
	require.NoError(t, err)
	assert.False(t, hf.Infinite)
	assert.True(t, dec("1").Equal(hf.Value))
	assert.True(t, hf.Healthy())
}

func TestSupplyWithdrawRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	start, err := f.vault.BalanceOf(ctx, "ETH", alice)
	require.NoError(t, err)

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("3")))
	require.NoError(t, f.engine.Withdraw(ctx, alice, alice, "ETH", dec("3")))

	pos := f.engine.PositionOf(alice)
	assert.True(t, pos.IsEmpty())
	assert.Empty(t, pos.Supplied)

	hf, err := f.engine.Valuator().HealthFactor(ctx, pos)
	require.NoError(t, err)
	assert.True(t, hf.Infinite)

	end, err := f.vault.BalanceOf(ctx, "ETH", alice)
	require.NoError(t, err)
	assert.True(t, start.Equal(end))

	eth, ok := f.reg.Get("ETH")
	require.True(t, ok)
	assert.True(t, eth.TotalSupplied.IsZero())
}

func TestRepayClampsAtOutstandingDebt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("5")))
	require.NoError(t, f.engine.Borrow(ctx, alice, alice, "USDC", dec("100")))

	before, err := f.vault.BalanceOf(ctx, "USDC", bob)
	require.NoError(t, err)

	repaid, err := f.engine.Repay(ctx, bob, alice, "USDC", dec("150"))
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(repaid))

	// Only the clamped amount leaves the payer's wallet.
	after, err := f.vault.BalanceOf(ctx, "USDC", bob)
	require.NoError(t, err)
	assert.True(t, before.Sub(after).Equal(dec("100")))

	assert.True(t, f.engine.PositionOf(alice).BorrowedOf("USDC").IsZero())

	_, err = f.engine.Repay(ctx, bob, alice, "USDC", dec("1"))
	assert.ErrorIs(t, err, ErrNoOutstandingDebt)
}

func TestBorrowRejectsBeyondLiquidity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("10")))

	// ETH pool only holds what alice supplied.
	err := f.engine.Borrow(ctx, whale, whale, "ETH", dec("11"))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)
}

func TestWithdrawRejectsBelowLiquidityFloor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("10")))
	require.NoError(t, f.engine.Borrow(ctx, alice, alice, "USDC", dec("15000")))

	// The whale cannot drain USDC past what is out on loan.
	err := f.engine.Withdraw(ctx, whale, whale, "USDC", dec("90000"))
	assert.ErrorIs(t, err, ErrInsufficientLiquidity)

	f.requireAggregateFloor(t)
}

func TestSupplyRequiresSupportedAsset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.engine.Supply(ctx, alice, alice, "DOGE", dec("1"))
	assert.ErrorIs(t, err, ErrAssetNotSupported)

	err = f.engine.Supply(ctx, alice, alice, "ETH", decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestOffboardedAssetOnlyShrinks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("5")))
	require.NoError(t, f.engine.Borrow(ctx, alice, alice, "USDC", dec("100")))

	require.NoError(t, f.reg.SetSupported(owner, "ETH", false))
	require.NoError(t, f.reg.SetSupported(owner, "USDC", false))

	err := f.engine.Supply(ctx, alice, alice, "ETH", dec("1"))
	assert.ErrorIs(t, err, ErrAssetNotSupported)
	err = f.engine.Borrow(ctx, alice, alice, "USDC", dec("1"))
	assert.ErrorIs(t, err, ErrAssetNotSupported)

	// Exit paths stay open.
	_, err = f.engine.Repay(ctx, alice, alice, "USDC", dec("100"))
	require.NoError(t, err)
	require.NoError(t, f.engine.Withdraw(ctx, alice, alice, "ETH", dec("5")))
}

func TestWithdrawRejectsOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("2")))

	err := f.engine.Withdraw(ctx, alice, alice, "ETH", dec("3"))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	// Rejected calls leave the position untouched.
	assert.True(t, dec("2").Equal(f.engine.PositionOf(alice).SuppliedOf("ETH")))
}

func TestHealthFactorInvariantAfterOperations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.engine.Supply(ctx, alice, alice, "ETH", dec("5")))
	require.NoError(t, f.engine.Borrow(ctx, alice, alice, "USDC", dec("2000")))
	_, err := f.engine.Repay(ctx, alice, alice, "USDC", dec("500"))
	require.NoError(t, err)
	require.NoError(t, f.engine.Withdraw(ctx, alice, alice, "ETH", dec("1")))

	hf, err := f.engine.Valuator().HealthFactor(ctx, f.engine.PositionOf(alice))
	require.NoError(t, err)
	assert.True(t, hf.Healthy())
	f.requireAggregateFloor(t)
}
