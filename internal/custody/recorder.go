package custody

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// Call records a single custody operation for inspection in tests.
type Call struct {
	Op      string // "pull", "push", "authorize"
	Asset   string
	Account string // from/to/spender depending on Op
	Amount  decimal.Decimal
}

// Recorder wraps a Vault and records every call in order. The bridge tests
// use it to assert that both the fee asset and the principal asset receive
// a transfer authorization before the gateway send.
type Recorder struct {
	Vault

	mu    sync.Mutex
	calls []Call
}

func NewRecorder(inner Vault) *Recorder {
	return &Recorder{Vault: inner}
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
}

// Calls returns a copy of the recorded operations in call order.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Authorizations returns only the authorize calls, in order.
func (r *Recorder) Authorizations() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == "authorize" {
			out = append(out, c)
		}
	}
	return out
}

func (r *Recorder) Pull(ctx context.Context, asset, from string, amount decimal.Decimal) error {
	if err := r.Vault.Pull(ctx, asset, from, amount); err != nil {
		return err
	}
	r.record(Call{Op: "pull", Asset: asset, Account: from, Amount: amount})
	return nil
}

func (r *Recorder) Push(ctx context.Context, asset, to string, amount decimal.Decimal) error {
	if err := r.Vault.Push(ctx, asset, to, amount); err != nil {
		return err
	}
	r.record(Call{Op: "push", Asset: asset, Account: to, Amount: amount})
	return nil
}

func (r *Recorder) Authorize(ctx context.Context, asset, spender string, amount decimal.Decimal) error {
	if err := r.Vault.Authorize(ctx, asset, spender, amount); err != nil {
		return err
	}
	r.record(Call{Op: "authorize", Asset: asset, Account: spender, Amount: amount})
	return nil
}
