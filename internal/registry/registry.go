package registry

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrUnauthorized      = errors.New("registry: caller is not the owner")
	ErrAssetExists       = errors.New("registry: asset already supported")
	ErrAssetNotFound     = errors.New("registry: asset not found")
	ErrInvalidRiskParams = errors.New("registry: invalid risk parameters")
)

var one = decimal.NewFromInt(1)

// Registry is the process-wide asset table and allowed-origin-chain set.
// It is constructed once at startup and passed by reference to every
// component that needs it. All mutations go through the owner-gated admin
// methods; reads return snapshots so callers can never touch the live
// aggregates.
type Registry struct {
	mu            sync.RWMutex
	owner         string
	assets        map[string]*Asset
	allowedChains map[uint64]bool
}

func New(owner string) *Registry {
	return &Registry{
		owner:         strings.ToLower(strings.TrimSpace(owner)),
		assets:        make(map[string]*Asset),
		allowedChains: make(map[uint64]bool),
	}
}

// Owner returns the configured admin address.
func (r *Registry) Owner() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner
}

// IsOwner reports whether caller matches the configured owner address.
func (r *Registry) IsOwner(caller string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.owner != "" && strings.EqualFold(strings.TrimSpace(caller), r.owner)
}

// AddAsset registers a new supported asset with its risk parameters.
// Fails when the id is already supported or when the parameters are
// inconsistent (collateralFactor > liquidationThreshold, values outside
// [0,1]). Aggregates start at zero.
func (r *Registry) AddAsset(caller, id string, params RiskParams) (Asset, error) {
	if !r.IsOwner(caller) {
		return Asset{}, ErrUnauthorized
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return Asset{}, ErrAssetNotFound
	}
	if err := validateRiskParams(params); err != nil {
		return Asset{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.assets[id]; ok && existing.Supported {
		return Asset{}, ErrAssetExists
	}

	now := time.Now().UTC()
	asset := &Asset{
		ID:                   id,
		Symbol:               id,
		Decimals:             params.Decimals,
		Native:               params.Native,
		CollateralFactor:     params.CollateralFactor,
		LiquidationThreshold: params.LiquidationThreshold,
		LiquidationBonus:     params.LiquidationBonus,
		Supported:            true,
		TotalSupplied:        decimal.Zero,
		TotalBorrowed:        decimal.Zero,
		AddedAt:              now,
		UpdatedAt:            now,
	}
	if existing, ok := r.assets[id]; ok {
		// Re-onboarding a previously unsupported asset keeps its history
		// and aggregates.
		asset.TotalSupplied = existing.TotalSupplied
		asset.TotalBorrowed = existing.TotalBorrowed
		asset.OriginChainID = existing.OriginChainID
		asset.OriginSymbol = existing.OriginSymbol
		asset.AddedAt = existing.AddedAt
	}
	r.assets[id] = asset
	return *asset, nil
}

// SetSupported flips the support gate without deleting history.
func (r *Registry) SetSupported(caller, id string, supported bool) error {
	if !r.IsOwner(caller) {
		return ErrUnauthorized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return ErrAssetNotFound
	}
	asset.Supported = supported
	asset.UpdatedAt = time.Now().UTC()
	return nil
}

// MapOriginAsset records which remote chain/token an asset bridges from.
// Intentionally independent of the support gate so provenance can be
// remapped while an asset is offboarded.
func (r *Registry) MapOriginAsset(caller, id string, chainID uint64, symbol string) error {
	if !r.IsOwner(caller) {
		return ErrUnauthorized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return ErrAssetNotFound
	}
	asset.OriginChainID = chainID
	asset.OriginSymbol = strings.TrimSpace(symbol)
	asset.UpdatedAt = time.Now().UTC()
	return nil
}

// SetAllowedOriginChain toggles a remote chain's permission to originate
// inbound deposits.
func (r *Registry) SetAllowedOriginChain(caller string, chainID uint64, allowed bool) error {
	if !r.IsOwner(caller) {
		return ErrUnauthorized
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if allowed {
		r.allowedChains[chainID] = true
	} else {
		delete(r.allowedChains, chainID)
	}
	return nil
}

// OriginChainAllowed reports whether inbound deposits from chainID are
// accepted.
func (r *Registry) OriginChainAllowed(chainID uint64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.allowedChains[chainID]
}

// AllowedOriginChains returns the permitted chain ids, sorted.
func (r *Registry) AllowedOriginChains() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint64, 0, len(r.allowedChains))
	for id := range r.allowedChains {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Get returns a snapshot of the asset, supported or not.
func (r *Registry) Get(id string) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.assets[id]
	if !ok {
		return Asset{}, false
	}
	return *asset, true
}

// ByOrigin resolves the local asset mapped to (chainID, symbol).
func (r *Registry) ByOrigin(chainID uint64, symbol string) (Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, asset := range r.assets {
		if asset.OriginChainID == chainID && strings.EqualFold(asset.OriginSymbol, symbol) {
			return *asset, true
		}
	}
	return Asset{}, false
}

// List returns snapshots of every asset ever onboarded, sorted by id.
func (r *Registry) List() []Asset {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Asset, 0, len(r.assets))
	for _, asset := range r.assets {
		out = append(out, *asset)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LiquidationThresholdOf satisfies the valuation layer's risk view.
func (r *Registry) LiquidationThresholdOf(id string) (decimal.Decimal, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	asset, ok := r.assets[id]
	if !ok {
		return decimal.Zero, false
	}
	return asset.LiquidationThreshold, true
}

// AdjustAggregates applies deltas to the per-asset running totals. Only the
// operation engine calls this, after its precondition checks have passed.
func (r *Registry) AdjustAggregates(id string, suppliedDelta, borrowedDelta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	asset, ok := r.assets[id]
	if !ok {
		return ErrAssetNotFound
	}
	asset.TotalSupplied = asset.TotalSupplied.Add(suppliedDelta)
	asset.TotalBorrowed = asset.TotalBorrowed.Add(borrowedDelta)
	asset.UpdatedAt = time.Now().UTC()
	return nil
}

func validateRiskParams(p RiskParams) error {
	cf, lt, lb := p.CollateralFactor, p.LiquidationThreshold, p.LiquidationBonus
	if cf.IsNegative() || cf.GreaterThan(one) {
		return ErrInvalidRiskParams
	}
	if lt.LessThan(cf) || lt.GreaterThan(one) {
		return ErrInvalidRiskParams
	}
	if lb.IsNegative() || lb.GreaterThan(one) {
		return ErrInvalidRiskParams
	}
	return nil
}
