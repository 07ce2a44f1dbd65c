package prices

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	quotes map[string]Quote
}

func (s *stubProvider) Quote(_ context.Context, symbol string) (Quote, error) {
	q, ok := s.quotes[symbol]
	if !ok {
		return Quote{}, ErrPriceUnavailable
	}
	return q, nil
}

func (s *stubProvider) Name() string { return "stub" }

func TestServiceResolvesMappedSymbol(t *testing.T) {
	provider := &stubProvider{quotes: map[string]Quote{
		"ETHUSDT": {Symbol: "ETHUSDT", Price: decimal.NewFromInt(2000), Timestamp: time.Now()},
	}}
	reg := NewRegistry()
	reg.AddMapping("ETH", "ETHUSDT")

	svc := NewService(provider, reg, time.Minute)
	price, err := svc.Price(context.Background(), "ETH")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(2000).Equal(price))
}

func TestServiceFallsBackToUppercasedID(t *testing.T) {
	provider := &stubProvider{quotes: map[string]Quote{
		"SOL": {Symbol: "SOL", Price: decimal.NewFromInt(150), Timestamp: time.Now()},
	}}

	svc := NewService(provider, NewRegistry(), 0)
	price, err := svc.Price(context.Background(), "sol")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(150).Equal(price))
}

func TestServiceRejectsZeroPrice(t *testing.T) {
	provider := &stubProvider{quotes: map[string]Quote{
		"ETH": {Symbol: "ETH", Price: decimal.Zero, Timestamp: time.Now()},
	}}

	svc := NewService(provider, NewRegistry(), 0)
	_, err := svc.Price(context.Background(), "ETH")
	assert.ErrorIs(t, err, ErrZeroPrice)
}

func TestServiceRejectsStaleQuote(t *testing.T) {
	provider := &stubProvider{quotes: map[string]Quote{
		"ETH": {Symbol: "ETH", Price: decimal.NewFromInt(2000), Timestamp: time.Now().Add(-5 * time.Minute)},
	}}

	svc := NewService(provider, NewRegistry(), time.Minute)
	_, err := svc.Price(context.Background(), "ETH")
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	// Disabled staleness check accepts old quotes.
	svc = NewService(provider, NewRegistry(), 0)
	_, err = svc.Price(context.Background(), "ETH")
	assert.NoError(t, err)
}

func TestParseMappings(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, ParseMappings(reg, " ETH=ETHUSDT, sol=solusdt ,"))
	assert.Equal(t, "ETHUSDT", reg.ProviderSymbol("eth"))
	assert.Equal(t, "SOLUSDT", reg.ProviderSymbol("SOL"))
	assert.Equal(t, "BTC", reg.ProviderSymbol("btc"))

	assert.Error(t, ParseMappings(reg, "ETH"))
	assert.Error(t, ParseMappings(reg, "=ETHUSDT"))
}
