package ledger

import (
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

func TestBookCreditDebitRoundTrip(t *testing.T) {
	b := NewBook()

	b.CreditSupply("0xAlice", "ETH", dec("5"))
	b.CreditSupply("0xalice", "ETH", dec("3"))

	pos := b.Snapshot("0xALICE")
	assert.True(t, dec("8").Equal(pos.SuppliedOf("ETH")))

	b.DebitSupply("0xalice", "ETH", dec("8"))
	pos = b.Snapshot("0xalice")
	assert.True(t, pos.IsEmpty())
	assert.NotContains(t, pos.Supplied, "ETH")
}

func TestBorrowEntryRemovedAtZero(t *testing.T) {
	b := NewBook()

	b.CreditBorrow("0xbob", "USDC", dec("1700"))
	b.DebitBorrow("0xbob", "USDC", dec("700"))
	pos := b.Snapshot("0xbob")
	assert.True(t, dec("1000").Equal(pos.BorrowedOf("USDC")))

	b.DebitBorrow("0xbob", "USDC", dec("1000"))
	pos = b.Snapshot("0xbob")
	assert.True(t, pos.IsEmpty())
	assert.NotContains(t, pos.Borrowed, "USDC")
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	b := NewBook()
	b.CreditSupply("0xalice", "ETH", dec("5"))

	snap := b.Snapshot("0xalice")
	snap.Supplied["ETH"] = dec("999")

	fresh := b.Snapshot("0xalice")
	assert.True(t, dec("5").Equal(fresh.SuppliedOf("ETH")))
}

func TestSnapshotUnknownUserIsEmpty(t *testing.T) {
	b := NewBook()
	pos := b.Snapshot("0xnobody")
	assert.True(t, pos.IsEmpty())
	assert.NotNil(t, pos.Supplied)
	assert.NotNil(t, pos.Borrowed)
}

func TestUsersListsNonEmptyOnly(t *testing.T) {
	b := NewBook()
	b.CreditSupply("0xbob", "ETH", dec("1"))
	b.CreditSupply("0xalice", "ETH", dec("1"))
	b.CreditSupply("0xcarol", "ETH", dec("1"))
	b.DebitSupply("0xcarol", "ETH", dec("1"))

	assert.Equal(t, []string{"0xalice", "0xbob"}, b.Users())
}

func TestPositionAssets(t *testing.T) {
	p := Position{
		Supplied: map[string]decimal.Decimal{"ETH": dec("1")},
		Borrowed: map[string]decimal.Decimal{"USDC": dec("2"), "ETH": dec("0.5")},
	}
	require.Equal(t, []string{"ETH", "USDC"}, p.Assets())
}
