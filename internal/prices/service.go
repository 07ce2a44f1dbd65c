package prices

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Service resolves ledger asset ids to provider quotes. It implements the
// price source the valuation layer depends on. Reads go straight to the
// provider: solvency checks must always see the current price, so there is
// no caching layer here.
type Service struct {
	provider Provider
	registry *Registry
	maxAge   time.Duration
}

func NewService(provider Provider, registry *Registry, maxAge time.Duration) *Service {
	return &Service{provider: provider, registry: registry, maxAge: maxAge}
}

// Price returns the USD unit price for an asset id.
func (s *Service) Price(ctx context.Context, assetID string) (decimal.Decimal, error) {
	symbol := s.registry.ProviderSymbol(assetID)
	quote, err := s.provider.Quote(ctx, symbol)
	if err != nil {
		return decimal.Zero, err
	}
	if quote.Price.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrZeroPrice, assetID)
	}
	if s.maxAge > 0 && !quote.Timestamp.IsZero() && time.Since(quote.Timestamp) > s.maxAge {
		return decimal.Zero, fmt.Errorf("%w: %s quote older than %s", ErrPriceUnavailable, assetID, s.maxAge)
	}
	return quote.Price, nil
}
