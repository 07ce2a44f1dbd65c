// Package engine serializes and executes the five ledger operations:
// supply, withdraw, borrow, repay, liquidate. Every operation runs its
// precondition checks against a position snapshot before any balance is
// written, so a failed operation leaves the ledger untouched.
package engine

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/omnilend/omnilend-backend/internal/custody"
	"github.com/omnilend/omnilend-backend/internal/journal"
	"github.com/omnilend/omnilend-backend/internal/ledger"
	"github.com/omnilend/omnilend-backend/internal/registry"
)

var one = decimal.NewFromInt(1)

// Engine executes ledger operations. A single mutex serializes them:
// the health factor check and the balance write must be one atomic step,
// otherwise two concurrent withdrawals can both pass the check against
// the same snapshot.
type Engine struct {
	mu       sync.Mutex
	logger   *zap.SugaredLogger
	registry *registry.Registry
	book     *ledger.Book
	valuator *ledger.Valuator
	vault    custody.Vault
	journal  journal.Recorder
}

func New(logger *zap.SugaredLogger, reg *registry.Registry, book *ledger.Book, valuator *ledger.Valuator, vault custody.Vault, rec journal.Recorder) *Engine {
	return &Engine{
		logger:   logger,
		registry: reg,
		book:     book,
		valuator: valuator,
		vault:    vault,
		journal:  rec,
	}
}

// Book exposes the position book for read paths.
func (e *Engine) Book() *ledger.Book { return e.book }

// Valuator exposes the pricing layer for read paths.
func (e *Engine) Valuator() *ledger.Valuator { return e.valuator }

// Supply pulls amount of asset from `from` into protocol custody and
// credits beneficiary's supplied balance. Supplying requires a supported
// asset; positions in offboarded assets can only shrink.
func (e *Engine) Supply(ctx context.Context, from, beneficiary, asset string, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	a, ok := e.registry.Get(asset)
	if !ok || !a.Supported {
		return ErrAssetNotSupported
	}

	if err := e.vault.Pull(ctx, asset, from, amount); err != nil {
		return err
	}
	e.book.CreditSupply(beneficiary, asset, amount)
	if err := e.registry.AdjustAggregates(asset, amount, decimal.Zero); err != nil {
		return err
	}

	e.emit(ctx, journal.Event{
		Type:        journal.EventSupply,
		User:        beneficiary,
		Asset:       asset,
		Amount:      amount,
		Counterpart: from,
	})
	e.logger.Infow("supply", "user", beneficiary, "asset", asset, "amount", amount)
	return nil
}

// Withdraw releases amount of the user's supplied balance to recipient.
// The health factor is checked against the position the withdrawal would
// leave behind; a post-withdrawal factor of exactly 1.0 is allowed.
// Withdrawing from an offboarded asset stays possible.
func (e *Engine) Withdraw(ctx context.Context, user, recipient, asset string, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	a, ok := e.registry.Get(asset)
	if !ok {
		return ErrAssetNotSupported
	}

	pos := e.book.Snapshot(user)
	if pos.SuppliedOf(asset).LessThan(amount) {
		return ErrInsufficientBalance
	}
	if a.AvailableLiquidity().LessThan(amount) {
		return ErrInsufficientLiquidity
	}
	hf, err := e.valuator.HealthFactor(ctx, pos, ledger.Adjustment{Asset: asset, SupplyDelta: amount.Neg()})
	if err != nil {
		return err
	}
	if !hf.Healthy() {
		return ErrInsufficientCollateral
	}

	if err := e.vault.Push(ctx, asset, recipient, amount); err != nil {
		return err
	}
	e.book.DebitSupply(user, asset, amount)
	if err := e.registry.AdjustAggregates(asset, amount.Neg(), decimal.Zero); err != nil {
		return err
	}

	e.emit(ctx, journal.Event{
		Type:        journal.EventWithdraw,
		User:        user,
		Asset:       asset,
		Amount:      amount,
		Counterpart: recipient,
	})
	e.logger.Infow("withdraw", "user", user, "asset", asset, "amount", amount, "healthFactor", hf.String())
	return nil
}

// Borrow releases amount of asset to recipient against the user's
// collateral. The check runs against the position including the new
// debt.
func (e *Engine) Borrow(ctx context.Context, user, recipient, asset string, amount decimal.Decimal) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	a, ok := e.registry.Get(asset)
	if !ok || !a.Supported {
		return ErrAssetNotSupported
	}
	if a.AvailableLiquidity().LessThan(amount) {
		return ErrInsufficientLiquidity
	}

	pos := e.book.Snapshot(user)
	hf, err := e.valuator.HealthFactor(ctx, pos, ledger.Adjustment{Asset: asset, BorrowDelta: amount})
	if err != nil {
		return err
	}
	if !hf.Healthy() {
		return ErrInsufficientCollateral
	}

	if err := e.vault.Push(ctx, asset, recipient, amount); err != nil {
		return err
	}
	e.book.CreditBorrow(user, asset, amount)
	if err := e.registry.AdjustAggregates(asset, decimal.Zero, amount); err != nil {
		return err
	}

	e.emit(ctx, journal.Event{
		Type:        journal.EventBorrow,
		User:        user,
		Asset:       asset,
		Amount:      amount,
		Counterpart: recipient,
	})
	e.logger.Infow("borrow", "user", user, "asset", asset, "amount", amount, "healthFactor", hf.String())
	return nil
}

// Repay pulls funds from payer and reduces onBehalfOf's debt. Amounts
// above the outstanding debt are clamped: only the clamped amount is
// pulled, the payer keeps the rest. Returns the amount actually repaid.
// Repaying debt in an offboarded asset stays possible.
func (e *Engine) Repay(ctx context.Context, payer, onBehalfOf, asset string, amount decimal.Decimal) (decimal.Decimal, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.Sign() <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	if _, ok := e.registry.Get(asset); !ok {
		return decimal.Zero, ErrAssetNotSupported
	}

	outstanding := e.book.Snapshot(onBehalfOf).BorrowedOf(asset)
	if outstanding.IsZero() {
		return decimal.Zero, ErrNoOutstandingDebt
	}
	repaid := decimal.Min(amount, outstanding)

	if err := e.vault.Pull(ctx, asset, payer, repaid); err != nil {
		return decimal.Zero, err
	}
	e.book.DebitBorrow(onBehalfOf, asset, repaid)
	if err := e.registry.AdjustAggregates(asset, decimal.Zero, repaid.Neg()); err != nil {
		return decimal.Zero, err
	}

	e.emit(ctx, journal.Event{
		Type:        journal.EventRepay,
		User:        onBehalfOf,
		Asset:       asset,
		Amount:      repaid,
		Counterpart: payer,
	})
	e.logger.Infow("repay", "user", onBehalfOf, "asset", asset, "amount", repaid, "requested", amount)
	return repaid, nil
}

// LiquidationResult reports what a liquidation actually moved.
type LiquidationResult struct {
	Repaid       decimal.Decimal `json:"repaid"`
	Seized       decimal.Decimal `json:"seized"`
	HealthBefore ledger.HealthFactor
}

// Liquidate lets liquidator repay part of user's debtAsset debt and seize
// collateralAsset at a bonus. Only positions with a health factor
// strictly below 1 qualify; exactly 1.0 is still healthy. The repay
// amount is clamped to the outstanding debt and the seizure to the
// user's supplied collateral.
func (e *Engine) Liquidate(ctx context.Context, liquidator, user, collateralAsset, debtAsset string, amount decimal.Decimal) (LiquidationResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if amount.Sign() <= 0 {
		return LiquidationResult{}, ErrInvalidAmount
	}
	coll, ok := e.registry.Get(collateralAsset)
	if !ok {
		return LiquidationResult{}, ErrAssetNotSupported
	}
	if _, ok := e.registry.Get(debtAsset); !ok {
		return LiquidationResult{}, ErrAssetNotSupported
	}

	pos := e.book.Snapshot(user)
	hf, err := e.valuator.HealthFactor(ctx, pos)
	if err != nil {
		return LiquidationResult{}, err
	}
	if !hf.Liquidatable() {
		return LiquidationResult{}, ErrNotLiquidatable
	}

	outstanding := pos.BorrowedOf(debtAsset)
	if outstanding.IsZero() {
		return LiquidationResult{}, ErrNoOutstandingDebt
	}
	repaid := decimal.Min(amount, outstanding)

	debtPrice, err := e.valuator.Price(ctx, debtAsset)
	if err != nil {
		return LiquidationResult{}, err
	}
	collPrice, err := e.valuator.Price(ctx, collateralAsset)
	if err != nil {
		return LiquidationResult{}, err
	}

	// seized = repaid * debtPrice * (1 + bonus) / collPrice, division last.
	seized := repaid.Mul(debtPrice).Mul(one.Add(coll.LiquidationBonus)).DivRound(collPrice, ledger.Precision)
	if supplied := pos.SuppliedOf(collateralAsset); seized.GreaterThan(supplied) {
		seized = supplied
	}
	if seized.Sign() <= 0 {
		return LiquidationResult{}, ErrInsufficientBalance
	}
	if coll.AvailableLiquidity().LessThan(seized) {
		return LiquidationResult{}, ErrInsufficientLiquidity
	}

	if err := e.vault.Pull(ctx, debtAsset, liquidator, repaid); err != nil {
		return LiquidationResult{}, err
	}
	if err := e.vault.Push(ctx, collateralAsset, liquidator, seized); err != nil {
		// Refund the pull so a failed seizure moves nothing.
		if perr := e.vault.Push(ctx, debtAsset, liquidator, repaid); perr != nil {
			e.logger.Errorw("liquidation refund failed", "liquidator", liquidator, "asset", debtAsset, "amount", repaid, "error", perr)
		}
		return LiquidationResult{}, err
	}

	e.book.DebitBorrow(user, debtAsset, repaid)
	e.book.DebitSupply(user, collateralAsset, seized)
	if err := e.registry.AdjustAggregates(debtAsset, decimal.Zero, repaid.Neg()); err != nil {
		return LiquidationResult{}, err
	}
	if err := e.registry.AdjustAggregates(collateralAsset, seized.Neg(), decimal.Zero); err != nil {
		return LiquidationResult{}, err
	}

	e.emit(ctx, journal.Event{
		Type:        journal.EventLiquidate,
		User:        user,
		Asset:       debtAsset,
		Amount:      repaid,
		Counterpart: liquidator,
		Detail:      "seized " + seized.String() + " " + collateralAsset,
	})
	e.logger.Infow("liquidate",
		"user", user,
		"liquidator", liquidator,
		"debtAsset", debtAsset,
		"repaid", repaid,
		"collateralAsset", collateralAsset,
		"seized", seized,
		"healthBefore", hf.String(),
	)
	return LiquidationResult{Repaid: repaid, Seized: seized, HealthBefore: hf}, nil
}

// PositionOf returns the user's position snapshot.
func (e *Engine) PositionOf(user string) ledger.Position {
	return e.book.Snapshot(user)
}

// ValuationOf prices the user's current position.
func (e *Engine) ValuationOf(ctx context.Context, user string) (ledger.Valuation, error) {
	return e.valuator.Value(ctx, e.book.Snapshot(user))
}

// The journal must not fail an operation that already committed.
func (e *Engine) emit(ctx context.Context, ev journal.Event) {
	stamped := journal.NewEvent(ev.Type)
	stamped.User = ev.User
	stamped.Asset = ev.Asset
	stamped.Amount = ev.Amount
	stamped.Counterpart = ev.Counterpart
	stamped.ChainID = ev.ChainID
	stamped.Detail = ev.Detail
	if err := e.journal.Record(ctx, stamped); err != nil {
		e.logger.Warnw("journal record failed", "type", ev.Type, "error", err)
	}
}
