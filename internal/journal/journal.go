// Package journal persists the protocol's operation history: one typed
// event per state transition plus reconciliation entries for outbound
// deliveries that committed in the ledger but failed at the gateway.
package journal

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("journal: not found")

type EventType string

const (
	EventSupply    EventType = "supply"
	EventWithdraw  EventType = "withdraw"
	EventBorrow    EventType = "borrow"
	EventRepay     EventType = "repay"
	EventLiquidate EventType = "liquidate"

	EventInboundDeposit  EventType = "inbound_deposit"
	EventInboundRepay    EventType = "inbound_repay"
	EventOutboundSend    EventType = "outbound_send"
	EventPendingDelivery EventType = "pending_delivery"

	EventAssetAdded     EventType = "asset_added"
	EventAssetRemoved   EventType = "asset_removed"
	EventOriginMapped   EventType = "origin_mapped"
	EventChainAllowed   EventType = "chain_allowed"
	EventRoutingUpdated EventType = "routing_updated"
)

// DeliveryStatus tracks outbound reconciliation entries.
type DeliveryStatus string

const (
	DeliveryPending  DeliveryStatus = "pending"
	DeliveryResolved DeliveryStatus = "resolved"
)

// Event is one journal row. Amount fields are native units; zero-value
// fields are omitted from JSON.
type Event struct {
	ID          string          `json:"id"`
	Type        EventType       `json:"type"`
	User        string          `json:"user,omitempty"`
	Asset       string          `json:"asset,omitempty"`
	Amount      decimal.Decimal `json:"amount,omitempty"`
	Counterpart string          `json:"counterpart,omitempty"` // liquidator, beneficiary, recipient
	ChainID     uint64          `json:"chainId,omitempty"`
	Detail      string          `json:"detail,omitempty"`
	Status      DeliveryStatus  `json:"status,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// NewEvent stamps an id and timestamp onto a partially filled event.
func NewEvent(t EventType) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		CreatedAt: time.Now().UTC(),
	}
}

// Filter narrows List queries. Zero values match everything.
type Filter struct {
	User  string
	Asset string
	Type  EventType
	Limit int
}

// Recorder is the journal repository. Record must not fail an operation
// that already committed: callers log and continue on error.
type Recorder interface {
	Record(ctx context.Context, e Event) error
	List(ctx context.Context, f Filter) ([]Event, error)
	PendingDeliveries(ctx context.Context) ([]Event, error)
	ResolveDelivery(ctx context.Context, id string) error
}
