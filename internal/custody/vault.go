package custody

import (
	"context"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// ProtocolAccount is the holder id for protocol custody itself.
const ProtocolAccount = "protocol"

// MemoryVault is an in-process custody backend. One deployment backs each
// asset with a chain-native adapter; this backend keeps all balances in
// memory and is the default for tests and single-node runs.
type MemoryVault struct {
	mu       sync.Mutex
	balances map[string]map[string]decimal.Decimal // asset -> holder -> amount
	grants   map[string]map[string]decimal.Decimal // asset -> spender -> allowance
}

func NewMemoryVault() *MemoryVault {
	return &MemoryVault{
		balances: make(map[string]map[string]decimal.Decimal),
		grants:   make(map[string]map[string]decimal.Decimal),
	}
}

func holderKey(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Mint seeds a holder with funds. Test/bootstrap helper, not part of the
// Vault interface.
func (v *MemoryVault) Mint(asset, holder string, amount decimal.Decimal) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.creditLocked(asset, holderKey(holder), amount)
}

// Deposit credits a holder directly, bypassing Pull. The cross-chain
// adapter uses it when the gateway has already delivered funds into the
// process and no local holder can be debited.
func (v *MemoryVault) Deposit(ctx context.Context, asset, holder string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.creditLocked(asset, holderKey(holder), amount)
	return nil
}

// Reclaim debits a holder directly, reversing a Deposit whose follow-up
// ledger operation did not commit.
func (v *MemoryVault) Reclaim(ctx context.Context, asset, holder string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.debitLocked(asset, holderKey(holder), amount)
}

func (v *MemoryVault) creditLocked(asset, holder string, amount decimal.Decimal) {
	if v.balances[asset] == nil {
		v.balances[asset] = make(map[string]decimal.Decimal)
	}
	v.balances[asset][holder] = v.balances[asset][holder].Add(amount)
}

func (v *MemoryVault) debitLocked(asset, holder string, amount decimal.Decimal) error {
	held := v.balances[asset][holder]
	if held.LessThan(amount) {
		return ErrInsufficientFunds
	}
	v.balances[asset][holder] = held.Sub(amount)
	return nil
}

func (v *MemoryVault) Pull(ctx context.Context, asset, from string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.debitLocked(asset, holderKey(from), amount); err != nil {
		return err
	}
	v.creditLocked(asset, ProtocolAccount, amount)
	return nil
}

func (v *MemoryVault) Push(ctx context.Context, asset, to string, amount decimal.Decimal) error {
	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if err := v.debitLocked(asset, ProtocolAccount, amount); err != nil {
		return err
	}
	v.creditLocked(asset, holderKey(to), amount)
	return nil
}

func (v *MemoryVault) Authorize(ctx context.Context, asset, spender string, amount decimal.Decimal) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.grants[asset] == nil {
		v.grants[asset] = make(map[string]decimal.Decimal)
	}
	v.grants[asset][holderKey(spender)] = amount
	return nil
}

// Allowance reports the current grant for a spender on an asset.
func (v *MemoryVault) Allowance(asset, spender string) decimal.Decimal {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.grants[asset][holderKey(spender)]
}

func (v *MemoryVault) BalanceOf(ctx context.Context, asset, holder string) (decimal.Decimal, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	holders, ok := v.balances[asset]
	if !ok {
		return decimal.Zero, nil
	}
	return holders[holderKey(holder)], nil
}
