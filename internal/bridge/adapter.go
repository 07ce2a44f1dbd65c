// Package bridge is the cross-chain adapter: it authenticates inbound
// gateway deliveries and dispatches them into the ledger, and it runs
// outbound withdrawals and borrows through the gateway with the
// fee-acquisition rules the transport requires.
package bridge

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/omnilend/omnilend-backend/internal/custody"
	"github.com/omnilend/omnilend-backend/internal/engine"
	"github.com/omnilend/omnilend-backend/internal/journal"
	"github.com/omnilend/omnilend-backend/internal/registry"
	"github.com/omnilend/omnilend-backend/pkg/kv"
)

// EscrowAccount holds outbound funds between the ledger debit and the
// gateway pickup.
const EscrowAccount = "bridge-escrow"

// Funder credits inbound gateway deliveries into custody before the
// ledger operation pulls them. The gateway has already moved real funds
// by the time the adapter runs, so this is the local mirror of that
// transfer. Reclaim reverses the mirror when the ledger dispatch fails,
// keeping the delivery retryable without double-crediting.
type Funder interface {
	Deposit(ctx context.Context, asset, holder string, amount decimal.Decimal) error
	Reclaim(ctx context.Context, asset, holder string, amount decimal.Decimal) error
}

// DeliveryMetrics tracks the backlog of outbound sends that committed
// in the ledger but were not delivered. Nil disables tracking.
type DeliveryMetrics interface {
	IncrementPendingDeliveries(ctx context.Context)
	DecrementPendingDeliveries(ctx context.Context)
}

type Config struct {
	// GatewayCaller is the only identity allowed on the inbound entry
	// point. It is also the spender that outbound authorizations target.
	GatewayCaller string
	// DestinationChainID is the chain this deployment routes outbound
	// traffic to. Routing-address updates must name it explicitly.
	DestinationChainID uint64
	// RelayerAddress, when set, requires inbound payloads to carry a
	// valid relayer signature.
	RelayerAddress string
	// MessageMaxAge bounds how stale an inbound message timestamp may
	// be. Zero disables the check.
	MessageMaxAge time.Duration
	// FeeReserveAccount funds different-asset delivery fees. Defaults to
	// protocol custody.
	FeeReserveAccount string
	// DedupTTL bounds how long delivery markers are kept.
	DedupTTL time.Duration
	// Metrics mirrors the pending reconciliation backlog into a gauge.
	Metrics DeliveryMetrics
}

type Adapter struct {
	logger  *zap.SugaredLogger
	cfg     Config
	reg     *registry.Registry
	engine  *engine.Engine
	vault   custody.Vault
	funder  Funder
	gateway Gateway
	journal journal.Recorder
	dedup   kv.Store

	mu             sync.RWMutex
	routingAddress string
}

func NewAdapter(logger *zap.SugaredLogger, cfg Config, reg *registry.Registry, eng *engine.Engine, vault custody.Vault, funder Funder, gw Gateway, rec journal.Recorder, dedup kv.Store) *Adapter {
	if cfg.FeeReserveAccount == "" {
		cfg.FeeReserveAccount = custody.ProtocolAccount
	}
	return &Adapter{
		logger:  logger,
		cfg:     cfg,
		reg:     reg,
		engine:  eng,
		vault:   vault,
		funder:  funder,
		gateway: gw,
		journal: rec,
		dedup:   dedup,
	}
}

// OnIncomingTransfer is the inbound entry point. All authentication and
// decoding runs before any state is touched; a rejected delivery mutates
// nothing.
func (a *Adapter) OnIncomingTransfer(ctx context.Context, caller, sender string, originChainID uint64, originAsset string, amount uint64, message, signature []byte) error {
	if !strings.EqualFold(strings.TrimSpace(caller), a.cfg.GatewayCaller) {
		return ErrUnauthorizedCaller
	}
	if !a.reg.OriginChainAllowed(originChainID) {
		return ErrChainNotAllowed
	}
	if err := VerifyRelayer(a.cfg.RelayerAddress, message, signature); err != nil {
		return err
	}

	msg, err := DecodeMessage(message)
	if err != nil {
		return err
	}
	if err := msg.CheckAge(time.Now(), a.cfg.MessageMaxAge); err != nil {
		return err
	}

	asset, ok := a.reg.ByOrigin(originChainID, originAsset)
	if !ok {
		return ErrUnknownOriginAsset
	}
	native := scaleFromBase(amount, asset.Decimals)
	if native.Sign() <= 0 {
		return engine.ErrInvalidAmount
	}

	// Delivery uniqueness is the gateway's contract; the marker catches
	// accidental redelivery, not adversarial replay.
	marker := deliveryKey(originChainID, originAsset, amount, message)
	if a.dedup != nil {
		fresh, err := a.dedup.SetNX(ctx, marker, []byte{1}, a.cfg.DedupTTL)
		if err != nil {
			a.logger.Warnw("delivery dedup unavailable", "error", err)
		} else if !fresh {
			return ErrDuplicateDelivery
		}
	}

	beneficiary := msg.BeneficiaryHex()
	if err := a.funder.Deposit(ctx, asset.ID, beneficiary, native); err != nil {
		a.releaseDelivery(ctx, marker)
		return err
	}

	if err := a.dispatch(ctx, msg.Action, beneficiary, asset.ID, native, sender, originChainID); err != nil {
		// A rejected dispatch must stay deliverable: reverse the custody
		// mirror and free the marker so the gateway's retry is not a
		// duplicate.
		if rerr := a.funder.Reclaim(ctx, asset.ID, beneficiary, native); rerr != nil {
			a.logger.Errorw("inbound deposit reclaim failed",
				"beneficiary", beneficiary, "asset", asset.ID, "amount", native, "error", rerr)
		}
		a.releaseDelivery(ctx, marker)
		return err
	}

	a.logger.Infow("inbound transfer",
		"action", msg.Action.String(),
		"beneficiary", beneficiary,
		"asset", asset.ID,
		"amount", native,
		"originChain", originChainID,
	)
	return nil
}

func (a *Adapter) dispatch(ctx context.Context, action Action, beneficiary, asset string, native decimal.Decimal, sender string, originChainID uint64) error {
	switch action {
	case ActionSupply:
		if err := a.engine.Supply(ctx, beneficiary, beneficiary, asset, native); err != nil {
			return err
		}
		a.record(ctx, journal.EventInboundDeposit, beneficiary, asset, native, sender, originChainID, "")
		return nil
	case ActionRepay:
		repaid, err := a.engine.Repay(ctx, beneficiary, beneficiary, asset, native)
		if err != nil {
			return err
		}
		a.record(ctx, journal.EventInboundRepay, beneficiary, asset, repaid, sender, originChainID, "")
		return nil
	default:
		return ErrUnknownAction
	}
}

// releaseDelivery frees a marker claimed by a delivery that did not
// commit.
func (a *Adapter) releaseDelivery(ctx context.Context, marker string) {
	if a.dedup == nil {
		return
	}
	if err := a.dedup.Delete(ctx, marker); err != nil {
		a.logger.Warnw("delivery marker release failed", "error", err)
	}
}

// WithdrawCrossChain debits the user's supplied balance and delivers it
// to destinationAddress on destinationChainID.
func (a *Adapter) WithdrawCrossChain(ctx context.Context, user, asset string, amount decimal.Decimal, destinationChainID uint64, destinationAddress []byte) error {
	if err := a.engine.Withdraw(ctx, user, EscrowAccount, asset, amount); err != nil {
		return err
	}
	return a.deliver(ctx, OpWithdrawCrossChain, user, asset, amount, destinationChainID, destinationAddress)
}

// BorrowCrossChain opens debt against the user's collateral and delivers
// the borrowed funds to destinationAddress on destinationChainID.
func (a *Adapter) BorrowCrossChain(ctx context.Context, user, asset string, amount decimal.Decimal, destinationChainID uint64, destinationAddress []byte) error {
	if err := a.engine.Borrow(ctx, user, EscrowAccount, asset, amount); err != nil {
		return err
	}
	return a.deliver(ctx, OpBorrowCrossChain, user, asset, amount, destinationChainID, destinationAddress)
}

// deliver runs after the ledger has committed. A gateway failure from
// here on is a reconciliation condition, never a ledger rollback.
func (a *Adapter) deliver(ctx context.Context, op, user, asset string, amount decimal.Decimal, destinationChainID uint64, destinationAddress []byte) error {
	feeAsset, feeAmount, err := a.gateway.QuoteFee(ctx, asset, destinationChainID)
	if err != nil {
		return a.pending(ctx, op, user, asset, amount, destinationChainID, err)
	}

	if strings.EqualFold(feeAsset, asset) {
		// The gateway deducts the fee from the principal, so the amount
		// must strictly exceed it.
		if !amount.GreaterThan(feeAmount) {
			return a.pending(ctx, op, user, asset, amount, destinationChainID, ErrFeeExceedsAmount)
		}
		if err := a.vault.Authorize(ctx, asset, a.cfg.GatewayCaller, amount); err != nil {
			return a.pending(ctx, op, user, asset, amount, destinationChainID, err)
		}
	} else {
		available, err := a.vault.BalanceOf(ctx, feeAsset, a.cfg.FeeReserveAccount)
		if err != nil {
			return a.pending(ctx, op, user, asset, amount, destinationChainID, err)
		}
		if available.LessThan(feeAmount) {
			ferr := &InsufficientFeeError{FeeAsset: feeAsset, Required: feeAmount, Available: available}
			return a.pending(ctx, op, user, asset, amount, destinationChainID, ferr)
		}
		// Both the fee asset and the withdrawal principal must be
		// authorized before the gateway call. Skipping the principal
		// here strands the delivery on the connected chain.
		if err := a.vault.Authorize(ctx, feeAsset, a.cfg.GatewayCaller, feeAmount); err != nil {
			return a.pending(ctx, op, user, asset, amount, destinationChainID, err)
		}
		if err := a.vault.Authorize(ctx, asset, a.cfg.GatewayCaller, amount); err != nil {
			return a.pending(ctx, op, user, asset, amount, destinationChainID, err)
		}
	}

	if err := a.gateway.Send(ctx, asset, amount, destinationChainID, destinationAddress); err != nil {
		// Surfaced verbatim so integrators see the transport's own error.
		return a.pending(ctx, op, user, asset, amount, destinationChainID, err)
	}

	a.record(ctx, journal.EventOutboundSend, user, asset, amount, "0x"+hex.EncodeToString(destinationAddress), destinationChainID, op)
	a.logger.Infow("outbound send", "op", op, "user", user, "asset", asset, "amount", amount, "destinationChain", destinationChainID)
	return nil
}

// pending journals a ledger-committed-but-undelivered outbound and
// returns the underlying failure unchanged.
func (a *Adapter) pending(ctx context.Context, op, user, asset string, amount decimal.Decimal, destinationChainID uint64, cause error) error {
	ev := journal.NewEvent(journal.EventPendingDelivery)
	ev.User = user
	ev.Asset = asset
	ev.Amount = amount
	ev.Counterpart = op
	ev.ChainID = destinationChainID
	ev.Detail = cause.Error()
	ev.Status = journal.DeliveryPending
	if err := a.journal.Record(ctx, ev); err != nil {
		a.logger.Errorw("pending delivery not journaled", "op", op, "user", user, "asset", asset, "error", err)
	} else if a.cfg.Metrics != nil {
		a.cfg.Metrics.IncrementPendingDeliveries(ctx)
	}
	a.logger.Warnw("outbound delivery failed after ledger commit",
		"op", op, "user", user, "asset", asset, "amount", amount, "destinationChain", destinationChainID, "error", cause)
	return cause
}

// UpdateRoutingAddress points outbound routing at a new counterpart
// contract. The expected chain id must match this deployment's
// configured destination, which blocks applying one chain's routing
// target to another deployment.
func (a *Adapter) UpdateRoutingAddress(ctx context.Context, caller, newAddress string, expectedDestinationChainID uint64) error {
	if !a.reg.IsOwner(caller) {
		return registry.ErrUnauthorized
	}
	if expectedDestinationChainID != a.cfg.DestinationChainID {
		return ErrChainMismatch
	}
	a.mu.Lock()
	a.routingAddress = strings.TrimSpace(newAddress)
	a.mu.Unlock()

	a.record(ctx, journal.EventRoutingUpdated, caller, "", decimal.Zero, newAddress, expectedDestinationChainID, "")
	a.logger.Infow("routing address updated", "address", newAddress, "chain", expectedDestinationChainID)
	return nil
}

// RoutingAddress returns the configured counterpart contract address.
func (a *Adapter) RoutingAddress() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.routingAddress
}

// PendingDeliveries lists outbound sends that committed in the ledger
// but were not delivered.
func (a *Adapter) PendingDeliveries(ctx context.Context) ([]journal.Event, error) {
	return a.journal.PendingDeliveries(ctx)
}

// ResolveDelivery marks a pending outbound as reconciled out of band.
func (a *Adapter) ResolveDelivery(ctx context.Context, id string) error {
	if err := a.journal.ResolveDelivery(ctx, id); err != nil {
		return err
	}
	if a.cfg.Metrics != nil {
		a.cfg.Metrics.DecrementPendingDeliveries(ctx)
	}
	return nil
}

func (a *Adapter) record(ctx context.Context, t journal.EventType, user, asset string, amount decimal.Decimal, counterpart string, chainID uint64, detail string) {
	ev := journal.NewEvent(t)
	ev.User = user
	ev.Asset = asset
	ev.Amount = amount
	ev.Counterpart = counterpart
	ev.ChainID = chainID
	ev.Detail = detail
	if err := a.journal.Record(ctx, ev); err != nil {
		a.logger.Warnw("journal record failed", "type", t, "error", err)
	}
}

func scaleFromBase(amount uint64, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals))
}

func deliveryKey(originChainID uint64, originAsset string, amount uint64, message []byte) string {
	buf := make([]byte, 0, 16+len(originAsset)+len(message))
	buf = binary.BigEndian.AppendUint64(buf, originChainID)
	buf = append(buf, originAsset...)
	buf = binary.BigEndian.AppendUint64(buf, amount)
	buf = append(buf, message...)
	return "bridge:delivery:" + hex.EncodeToString(Keccak256(buf))
}
