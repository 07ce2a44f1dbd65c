// Package mock generates random-walk prices for development runs without
// an oracle.
package mock

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/omnilend/omnilend-backend/internal/prices"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Generator struct {
	logger     *zap.SugaredLogger
	mu         sync.Mutex
	basePrice  float64
	volatility float64
	current    map[string]float64
	health     prices.ProviderHealth
	rng        *rand.Rand
}

// NewGenerator creates a mock provider. Every symbol starts at basePrice
// and walks with the given per-quote volatility, clamped to ±50% of base.
func NewGenerator(logger *zap.SugaredLogger, basePrice, volatility float64) *Generator {
	if basePrice <= 0 {
		basePrice = 1.00
	}
	if volatility <= 0 {
		volatility = 0.002
	}
	return &Generator{
		logger:     logger,
		basePrice:  basePrice,
		volatility: volatility,
		current:    make(map[string]float64),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		health: prices.ProviderHealth{
			Healthy:     true,
			LastSuccess: time.Now(),
		},
	}
}

func (g *Generator) Name() string { return "mock" }

func (g *Generator) Health() prices.ProviderHealth {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.health
}

func (g *Generator) Quote(ctx context.Context, symbol string) (prices.Quote, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := strings.ToUpper(symbol)
	price, ok := g.current[key]
	if !ok {
		price = g.basePrice
	}

	change := (g.rng.Float64()*2 - 1) * g.volatility
	price *= 1 + change
	if min := g.basePrice * 0.5; price < min {
		price = min
	}
	if max := g.basePrice * 1.5; price > max {
		price = max
	}
	g.current[key] = price
	g.health.LastSuccess = time.Now()

	return prices.Quote{
		Symbol:    key,
		Price:     decimal.NewFromFloat(price),
		Timestamp: time.Now(),
	}, nil
}
