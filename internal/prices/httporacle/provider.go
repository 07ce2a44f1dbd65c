// Package httporacle fetches spot prices from a REST price oracle exposing
// a Binance-compatible ticker endpoint.
package httporacle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/omnilend/omnilend-backend/internal/prices"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const tickerPath = "/api/v3/ticker/price"

type Provider struct {
	logger  *zap.SugaredLogger
	client  *http.Client
	baseURL string

	mu     sync.RWMutex
	health prices.ProviderHealth
}

func NewProvider(baseURL string, logger *zap.SugaredLogger) *Provider {
	return &Provider{
		logger:  logger,
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		health: prices.ProviderHealth{
			Healthy:     true,
			LastSuccess: time.Now(),
		},
	}
}

func (p *Provider) Name() string { return "http" }

func (p *Provider) Health() prices.ProviderHealth {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.health
}

func (p *Provider) updateHealth(healthy bool, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.health.Healthy = healthy
	if healthy {
		p.health.LastSuccess = time.Now()
		p.health.LastError = ""
	} else if err != nil {
		p.health.LastError = err.Error()
	}
}

type tickerResponse struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

func (p *Provider) Quote(ctx context.Context, symbol string) (prices.Quote, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	requestURL := fmt.Sprintf("%s%s?%s", p.baseURL, tickerPath, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		p.updateHealth(false, err)
		return prices.Quote{}, fmt.Errorf("httporacle: create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.updateHealth(false, err)
		return prices.Quote{}, fmt.Errorf("httporacle: fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("httporacle: status %d for %s", resp.StatusCode, symbol)
		p.updateHealth(false, err)
		return prices.Quote{}, err
	}

	var ticker tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		p.updateHealth(false, err)
		return prices.Quote{}, fmt.Errorf("httporacle: decode response: %w", err)
	}

	price, err := decimal.NewFromString(ticker.Price)
	if err != nil {
		p.updateHealth(false, err)
		return prices.Quote{}, fmt.Errorf("httporacle: parse price %q: %w", ticker.Price, err)
	}
	if price.Sign() <= 0 {
		err := fmt.Errorf("%w: %s", prices.ErrZeroPrice, symbol)
		p.updateHealth(false, err)
		return prices.Quote{}, err
	}

	p.updateHealth(true, nil)
	return prices.Quote{Symbol: symbol, Price: price, Timestamp: time.Now()}, nil
}
