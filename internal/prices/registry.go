package prices

import (
	"fmt"
	"strings"
	"sync"
)

// Registry maps ledger asset ids to provider symbols (e.g. "ETH" ->
// "ETHUSDT").
type Registry struct {
	mu       sync.RWMutex
	mappings map[string]string
}

func NewRegistry() *Registry {
	return &Registry{mappings: make(map[string]string)}
}

func (r *Registry) AddMapping(assetID, providerSymbol string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mappings[strings.ToUpper(assetID)] = strings.ToUpper(providerSymbol)
}

// ProviderSymbol resolves the provider symbol for an asset. Assets without
// an explicit mapping fall back to their own id, which suits static and
// mock providers.
func (r *Registry) ProviderSymbol(assetID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if sym, ok := r.mappings[strings.ToUpper(assetID)]; ok {
		return sym
	}
	return strings.ToUpper(assetID)
}

// All returns a copy of the configured mappings.
func (r *Registry) All() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.mappings))
	for k, v := range r.mappings {
		out[k] = v
	}
	return out
}

// ParseMappings reads "ETH=ETHUSDT,SOL=SOLUSDT" style config values.
func ParseMappings(r *Registry, raw string) error {
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
			return fmt.Errorf("prices: invalid mapping %q", pair)
		}
		r.AddMapping(strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]))
	}
	return nil
}
