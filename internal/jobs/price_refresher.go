// Package jobs holds the background loops the API process runs.
package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/omnilend/omnilend-backend/internal/prices"
	"github.com/omnilend/omnilend-backend/internal/registry"
	"github.com/omnilend/omnilend-backend/internal/store"
)

// PriceRefresher periodically quotes every onboarded asset and publishes
// the result to the display cache. The valuation path does not read the
// cache; this loop only feeds the read surface and keeps provider health
// visible in the logs.
type PriceRefresher struct {
	provider prices.Provider
	mapping  *prices.Registry
	assets   *registry.Registry
	cache    *store.Cache
	logger   *zap.SugaredLogger
	interval time.Duration
	ttl      time.Duration
}

func NewPriceRefresher(provider prices.Provider, mapping *prices.Registry, assets *registry.Registry, cache *store.Cache, logger *zap.SugaredLogger, interval time.Duration) *PriceRefresher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &PriceRefresher{
		provider: provider,
		mapping:  mapping,
		assets:   assets,
		cache:    cache,
		logger:   logger,
		interval: interval,
		ttl:      3 * interval,
	}
}

func (p *PriceRefresher) Start(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			p.logger.Infow("price refresher stopping")
			return
		case <-ticker.C:
			p.refresh(ctx)
		}
	}
}

func (p *PriceRefresher) refresh(ctx context.Context) {
	for _, asset := range p.assets.List() {
		symbol := p.mapping.ProviderSymbol(asset.ID)
		quote, err := p.provider.Quote(ctx, symbol)
		if err != nil {
			p.logger.Warnw("price refresh failed", "asset", asset.ID, "symbol", symbol, "error", err)
			continue
		}
		if err := p.cache.SetOraclePrice(ctx, asset.ID, quote, p.ttl); err != nil {
			p.logger.Warnw("price cache write failed", "asset", asset.ID, "error", err)
		}
	}
}
