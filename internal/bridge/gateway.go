package bridge

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Gateway is the outbound half of the cross-chain transport. QuoteFee
// returns the asset and amount the connected chain charges to deliver
// assetID to destinationChainID; Send hands custody-held funds to the
// transport. Both are opaque single-shot calls.
type Gateway interface {
	QuoteFee(ctx context.Context, assetID string, destinationChainID uint64) (feeAsset string, feeAmount decimal.Decimal, err error)
	Send(ctx context.Context, assetID string, amount decimal.Decimal, destinationChainID uint64, destinationAddress []byte) error
}

// FeeQuote is one row of a StaticGateway fee table.
type FeeQuote struct {
	FeeAsset  string
	FeeAmount decimal.Decimal
}

// StaticGateway serves quotes from a fixed fee table and accepts every
// send. It backs single-node runs where no real transport is connected.
type StaticGateway struct {
	mu   sync.RWMutex
	fees map[string]FeeQuote // assetID|chainID -> quote
}

func NewStaticGateway() *StaticGateway {
	return &StaticGateway{fees: make(map[string]FeeQuote)}
}

func feeKey(assetID string, chainID uint64) string {
	return fmt.Sprintf("%s|%d", assetID, chainID)
}

// SetFee configures the quote for delivering assetID to chainID.
func (g *StaticGateway) SetFee(assetID string, chainID uint64, quote FeeQuote) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fees[feeKey(assetID, chainID)] = quote
}

func (g *StaticGateway) QuoteFee(ctx context.Context, assetID string, destinationChainID uint64) (string, decimal.Decimal, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	quote, ok := g.fees[feeKey(assetID, destinationChainID)]
	if !ok {
		return "", decimal.Zero, fmt.Errorf("bridge: no fee route for %s to chain %d", assetID, destinationChainID)
	}
	return quote.FeeAsset, quote.FeeAmount, nil
}

func (g *StaticGateway) Send(ctx context.Context, assetID string, amount decimal.Decimal, destinationChainID uint64, destinationAddress []byte) error {
	return nil
}
