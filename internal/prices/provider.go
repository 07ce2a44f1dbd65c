package prices

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrPriceUnavailable = errors.New("prices: price unavailable")
	ErrZeroPrice        = errors.New("prices: provider returned zero price")
)

// Quote is one provider price observation.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Provider is a USD price source keyed by provider-specific symbol.
// Providers never return a zero price: a zero or missing quote is an
// error, because a zero price would make debt in that asset free and
// break the solvency check downstream.
type Provider interface {
	Quote(ctx context.Context, symbol string) (Quote, error)
	Name() string
}

// HealthReporter is implemented by providers that track upstream
// health. The readiness endpoint degrades when the reporter is
// unhealthy; providers without one are assumed always ready.
type HealthReporter interface {
	Health() ProviderHealth
}

// ProviderHealth reports provider status for the readiness surface.
type ProviderHealth struct {
	Healthy     bool      `json:"healthy"`
	LastError   string    `json:"last_error,omitempty"`
	LastSuccess time.Time `json:"last_success"`
}
