package custody

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func balance(t *testing.T, v Vault, asset, holder string) decimal.Decimal {
	t.Helper()
	b, err := v.BalanceOf(context.Background(), asset, holder)
	require.NoError(t, err)
	return b
}

func TestPullMovesFundsIntoProtocol(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()
	v.Mint("ETH", "0xAlice", dec("10"))

	require.NoError(t, v.Pull(ctx, "ETH", "0xALICE", dec("4")))
	assert.True(t, dec("6").Equal(balance(t, v, "ETH", "0xalice")))
	assert.True(t, dec("4").Equal(balance(t, v, "ETH", ProtocolAccount)))
}

func TestPullRejectsOverdraw(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()
	v.Mint("ETH", "0xalice", dec("1"))

	err := v.Pull(ctx, "ETH", "0xalice", dec("2"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, dec("1").Equal(balance(t, v, "ETH", "0xalice")))
}

func TestPushRequiresProtocolFunds(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()

	err := v.Push(ctx, "ETH", "0xalice", dec("1"))
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	v.Mint("ETH", ProtocolAccount, dec("5"))
	require.NoError(t, v.Push(ctx, "ETH", "0xalice", dec("1")))
	assert.True(t, dec("1").Equal(balance(t, v, "ETH", "0xalice")))
	assert.True(t, dec("4").Equal(balance(t, v, "ETH", ProtocolAccount)))
}

func TestZeroAndNegativeAmountsRejected(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()
	v.Mint("ETH", "0xalice", dec("10"))

	assert.ErrorIs(t, v.Pull(ctx, "ETH", "0xalice", decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, v.Pull(ctx, "ETH", "0xalice", dec("-1")), ErrInvalidAmount)
	assert.ErrorIs(t, v.Push(ctx, "ETH", "0xalice", decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, v.Deposit(ctx, "ETH", "0xalice", decimal.Zero), ErrInvalidAmount)
	assert.ErrorIs(t, v.Authorize(ctx, "ETH", "0xrouter", dec("-1")), ErrInvalidAmount)
}

func TestDepositCreditsWithoutDebit(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()

	require.NoError(t, v.Deposit(ctx, "ETH", "0xalice", dec("3")))
	assert.True(t, dec("3").Equal(balance(t, v, "ETH", "0xalice")))
	assert.True(t, balance(t, v, "ETH", ProtocolAccount).IsZero())
}

func TestReclaimReversesDeposit(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()

	require.NoError(t, v.Deposit(ctx, "ETH", "0xalice", dec("3")))
	require.NoError(t, v.Reclaim(ctx, "ETH", "0xAlice", dec("3")))
	assert.True(t, balance(t, v, "ETH", "0xalice").IsZero())

	assert.ErrorIs(t, v.Reclaim(ctx, "ETH", "0xalice", dec("1")), ErrInsufficientFunds)
	assert.ErrorIs(t, v.Reclaim(ctx, "ETH", "0xalice", decimal.Zero), ErrInvalidAmount)
}

func TestAuthorizeOverwritesGrant(t *testing.T) {
	ctx := context.Background()
	v := NewMemoryVault()

	require.NoError(t, v.Authorize(ctx, "ETH", "0xRouter", dec("5")))
	assert.True(t, dec("5").Equal(v.Allowance("ETH", "0xrouter")))

	require.NoError(t, v.Authorize(ctx, "ETH", "0xrouter", dec("2")))
	assert.True(t, dec("2").Equal(v.Allowance("ETH", "0xrouter")))

	// Zero grant revokes.
	require.NoError(t, v.Authorize(ctx, "ETH", "0xrouter", decimal.Zero))
	assert.True(t, v.Allowance("ETH", "0xrouter").IsZero())
}

func TestRecorderCapturesCallOrder(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder(NewMemoryVault())
	rec.Vault.(*MemoryVault).Mint("ETH", "0xalice", dec("10"))

	require.NoError(t, rec.Pull(ctx, "ETH", "0xalice", dec("4")))
	require.NoError(t, rec.Authorize(ctx, "SOL", "0xrouter", dec("0.5")))
	require.NoError(t, rec.Authorize(ctx, "ETH", "0xrouter", dec("2")))
	require.NoError(t, rec.Push(ctx, "ETH", "0xbob", dec("1")))

	calls := rec.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, "pull", calls[0].Op)
	assert.Equal(t, "push", calls[3].Op)

	auths := rec.Authorizations()
	require.Len(t, auths, 2)
	assert.Equal(t, "SOL", auths[0].Asset)
	assert.Equal(t, "ETH", auths[1].Asset)
}

func TestRecorderSkipsFailedCalls(t *testing.T) {
	ctx := context.Background()
	rec := NewRecorder(NewMemoryVault())

	assert.Error(t, rec.Pull(ctx, "ETH", "0xalice", dec("1")))
	assert.Empty(t, rec.Calls())
}
