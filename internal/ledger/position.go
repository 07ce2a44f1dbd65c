package ledger

import (
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// Position holds a single user's supplied and borrowed balances per asset.
// A missing asset entry means zero.
type Position struct {
	User     string                     `json:"user"`
	Supplied map[string]decimal.Decimal `json:"supplied"`
	Borrowed map[string]decimal.Decimal `json:"borrowed"`
}

func (p Position) SuppliedOf(asset string) decimal.Decimal {
	if v, ok := p.Supplied[asset]; ok {
		return v
	}
	return decimal.Zero
}

func (p Position) BorrowedOf(asset string) decimal.Decimal {
	if v, ok := p.Borrowed[asset]; ok {
		return v
	}
	return decimal.Zero
}

// IsEmpty reports whether the position carries no balances at all.
func (p Position) IsEmpty() bool {
	for _, v := range p.Supplied {
		if !v.IsZero() {
			return false
		}
	}
	for _, v := range p.Borrowed {
		if !v.IsZero() {
			return false
		}
	}
	return true
}

// Assets returns every asset id the position touches, sorted.
func (p Position) Assets() []string {
	seen := make(map[string]struct{})
	for a := range p.Supplied {
		seen[a] = struct{}{}
	}
	for a := range p.Borrowed {
		seen[a] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for a := range seen {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Book owns every user position. No component outside the operation engine
// mutates it; the engine performs its precondition checks first and then
// applies balance deltas through the credit/debit methods.
type Book struct {
	mu        sync.RWMutex
	positions map[string]*Position
}

func NewBook() *Book {
	return &Book{positions: make(map[string]*Position)}
}

func normalizeUser(user string) string {
	return strings.ToLower(strings.TrimSpace(user))
}

// Snapshot returns a deep copy of the user's position. Users with no
// history get an empty position, not an error.
func (b *Book) Snapshot(user string) Position {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshotLocked(normalizeUser(user))
}

func (b *Book) snapshotLocked(user string) Position {
	snap := Position{
		User:     user,
		Supplied: make(map[string]decimal.Decimal),
		Borrowed: make(map[string]decimal.Decimal),
	}
	pos, ok := b.positions[user]
	if !ok {
		return snap
	}
	for a, v := range pos.Supplied {
		if !v.IsZero() {
			snap.Supplied[a] = v
		}
	}
	for a, v := range pos.Borrowed {
		if !v.IsZero() {
			snap.Borrowed[a] = v
		}
	}
	return snap
}

// Users returns every address with a non-empty position, sorted.
func (b *Book) Users() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, 0, len(b.positions))
	for user, pos := range b.positions {
		if !pos.IsEmpty() {
			out = append(out, user)
		}
	}
	sort.Strings(out)
	return out
}

func (b *Book) ensureLocked(user string) *Position {
	pos, ok := b.positions[user]
	if !ok {
		pos = &Position{
			User:     user,
			Supplied: make(map[string]decimal.Decimal),
			Borrowed: make(map[string]decimal.Decimal),
		}
		b.positions[user] = pos
	}
	return pos
}

// CreditSupply adds amount to the user's supplied balance.
func (b *Book) CreditSupply(user, asset string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos := b.ensureLocked(normalizeUser(user))
	pos.Supplied[asset] = pos.SuppliedOf(asset).Add(amount)
}

// DebitSupply subtracts amount from the user's supplied balance, removing
// the entry when it hits zero so round trips leave no residue.
func (b *Book) DebitSupply(user, asset string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos := b.ensureLocked(normalizeUser(user))
	next := pos.SuppliedOf(asset).Sub(amount)
	if next.IsZero() {
		delete(pos.Supplied, asset)
		return
	}
	pos.Supplied[asset] = next
}

// CreditBorrow adds amount to the user's debt.
func (b *Book) CreditBorrow(user, asset string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos := b.ensureLocked(normalizeUser(user))
	pos.Borrowed[asset] = pos.BorrowedOf(asset).Add(amount)
}

// DebitBorrow subtracts amount from the user's debt, removing the entry at
// zero.
func (b *Book) DebitBorrow(user, asset string, amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	pos := b.ensureLocked(normalizeUser(user))
	next := pos.BorrowedOf(asset).Sub(amount)
	if next.IsZero() {
		delete(pos.Borrowed, asset)
		return
	}
	pos.Borrowed[asset] = next
}
