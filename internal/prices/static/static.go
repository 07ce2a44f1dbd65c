// Package static serves fixed per-symbol prices from configuration. It is
// the default provider: the protocol runs against operator-set prices and
// has no accrual curve, so a static table is the observed behavior rather
// than a test shim.
package static

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/omnilend/omnilend-backend/internal/prices"
	"github.com/shopspring/decimal"
)

type Provider struct {
	mu     sync.RWMutex
	quotes map[string]decimal.Decimal
}

func NewProvider() *Provider {
	return &Provider{quotes: make(map[string]decimal.Decimal)}
}

// NewProviderFromSpec parses "ETH=2000,SOL=150" style config values.
func NewProviderFromSpec(spec string) (*Provider, error) {
	p := NewProvider()
	for _, pair := range strings.Split(spec, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("static prices: invalid entry %q", pair)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(parts[1]))
		if err != nil {
			return nil, fmt.Errorf("static prices: invalid price in %q: %w", pair, err)
		}
		p.SetPrice(strings.TrimSpace(parts[0]), price)
	}
	return p, nil
}

// SetPrice sets or replaces the price for a symbol.
func (p *Provider) SetPrice(symbol string, price decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quotes[strings.ToUpper(symbol)] = price
}

func (p *Provider) Quote(ctx context.Context, symbol string) (prices.Quote, error) {
	p.mu.RLock()
	price, ok := p.quotes[strings.ToUpper(symbol)]
	p.mu.RUnlock()
	if !ok {
		return prices.Quote{}, fmt.Errorf("%w: %s", prices.ErrPriceUnavailable, symbol)
	}
	if price.Sign() <= 0 {
		return prices.Quote{}, fmt.Errorf("%w: %s", prices.ErrZeroPrice, symbol)
	}
	return prices.Quote{Symbol: strings.ToUpper(symbol), Price: price, Timestamp: time.Now()}, nil
}

func (p *Provider) Name() string { return "static" }
