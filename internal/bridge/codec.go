package bridge

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/fardream/go-bcs/bcs"
)

// Action is the fixed-width operation tag carried in an inbound message.
// Short names are zero-padded on the right.
type Action [16]byte

func NewAction(name string) Action {
	var a Action
	copy(a[:], name)
	return a
}

func (a Action) String() string {
	return string(bytes.TrimRight(a[:], "\x00"))
}

var (
	ActionSupply = NewAction("supply")
	ActionRepay  = NewAction("repay")
)

// Outbound operation names. The gateway frames outbound transfers itself,
// so these never ride in a Message; they label journal entries.
const (
	OpWithdrawCrossChain = "withdrawCrossChain"
	OpBorrowCrossChain   = "borrowCrossChain"
)

// Message is the BCS payload an origin chain attaches to a transfer.
// Amount is in base units of the origin asset; the adapter rescales it
// using the mapped asset's decimals.
type Message struct {
	Action      Action
	Beneficiary [20]byte
	Amount      uint64
	Timestamp   int64
}

// BeneficiaryHex renders the beneficiary as a 0x-prefixed address.
func (m Message) BeneficiaryHex() string {
	return "0x" + hex.EncodeToString(m.Beneficiary[:])
}

func EncodeMessage(m Message) ([]byte, error) {
	return bcs.Marshal(&m)
}

func DecodeMessage(payload []byte) (Message, error) {
	var m Message
	if _, err := bcs.Unmarshal(payload, &m); err != nil {
		return Message{}, fmt.Errorf("bridge: decode message: %w", err)
	}
	switch m.Action {
	case ActionSupply, ActionRepay:
	default:
		return Message{}, fmt.Errorf("%w: %q", ErrUnknownAction, m.Action.String())
	}
	return m, nil
}

// CheckAge rejects messages older than maxAge or stamped in the future
// beyond clock skew. A zero maxAge disables the check.
func (m Message) CheckAge(now time.Time, maxAge time.Duration) error {
	if maxAge <= 0 {
		return nil
	}
	stamped := time.Unix(m.Timestamp, 0)
	if stamped.Before(now.Add(-maxAge)) || stamped.After(now.Add(maxAge)) {
		return fmt.Errorf("%w: stamped %s", ErrMessageExpired, stamped.UTC().Format(time.RFC3339))
	}
	return nil
}

// ParseBeneficiary decodes a 0x-prefixed 20-byte address.
func ParseBeneficiary(addr string) ([20]byte, error) {
	var out [20]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(addr), "0x"))
	if err != nil {
		return out, fmt.Errorf("bridge: parse beneficiary: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("bridge: beneficiary must be %d bytes, got %d", len(out), len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
