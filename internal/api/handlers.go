package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/omnilend/omnilend-backend/internal/bridge"
	"github.com/omnilend/omnilend-backend/internal/engine"
	"github.com/omnilend/omnilend-backend/internal/journal"
	"github.com/omnilend/omnilend-backend/internal/ledger"
	"github.com/omnilend/omnilend-backend/internal/prices"
	"github.com/omnilend/omnilend-backend/internal/registry"
	"github.com/omnilend/omnilend-backend/internal/store"
)

// OperationMetrics records domain-level counters. Nil is allowed.
type OperationMetrics interface {
	RecordOperation(ctx context.Context, kind string, err error)
	RecordInbound(ctx context.Context, action string)
	RecordOutbound(ctx context.Context, asset string)
}

type Handler struct {
	engine   *engine.Engine
	adapter  *bridge.Adapter
	reg      *registry.Registry
	journal  journal.Recorder
	cache    *store.Cache
	provider prices.Provider
	logger   *zap.SugaredLogger
	metrics  OperationMetrics
}

func NewHandler(eng *engine.Engine, adapter *bridge.Adapter, reg *registry.Registry, rec journal.Recorder, cache *store.Cache, provider prices.Provider, logger *zap.SugaredLogger, metrics OperationMetrics) *Handler {
	return &Handler{
		engine:   eng,
		adapter:  adapter,
		reg:      reg,
		journal:  rec,
		cache:    cache,
		provider: provider,
		logger:   logger,
		metrics:  metrics,
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Readyz degrades when the price provider reports an unhealthy
// upstream. Solvency checks cannot run without prices, so an unready
// oracle means an unready deployment.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	if reporter, ok := h.provider.(prices.HealthReporter); ok {
		if health := reporter.Health(); !health.Healthy {
			h.writeJSON(w, http.StatusServiceUnavailable, ReadinessDTO{
				Status: "degraded",
				Oracle: &health,
			})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("READY"))
}

// Asset endpoints

func (h *Handler) ListAssets(w http.ResponseWriter, r *http.Request) {
	if h.cache != nil {
		var cached []AssetDTO
		if err := h.cache.GetAssetList(r.Context(), &cached); err == nil {
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	assets := h.reg.List()
	out := make([]AssetDTO, 0, len(assets))
	for _, a := range assets {
		out = append(out, assetDTO(a))
	}

	if h.cache != nil {
		if err := h.cache.SetAssetList(r.Context(), out); err != nil {
			h.logger.Warnw("asset list cache write failed", "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	asset, ok := h.reg.Get(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "ASSET_NOT_FOUND", "unknown asset "+id)
		return
	}
	h.writeJSON(w, http.StatusOK, assetDTO(asset))
}

// User read endpoints

func (h *Handler) GetUserPosition(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")

	if h.cache != nil {
		var cached PositionDTO
		if err := h.cache.GetUserPosition(r.Context(), address, &cached); err == nil {
			h.writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	pos := h.engine.PositionOf(address)
	val, err := h.engine.ValuationOf(r.Context(), pos.User)
	if err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	dto := positionDTO(pos, val)

	if h.cache != nil {
		if err := h.cache.SetUserPosition(r.Context(), address, dto); err != nil {
			h.logger.Warnw("position cache write failed", "address", address, "error", err)
		}
	}
	h.writeJSON(w, http.StatusOK, dto)
}

func (h *Handler) GetUserHealth(w http.ResponseWriter, r *http.Request) {
	address := chi.URLParam(r, "address")
	pos := h.engine.PositionOf(address)

	hf, err := h.engine.Valuator().HealthFactor(r.Context(), pos)
	if err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, HealthFactorDTO{
		User:         pos.User,
		HealthFactor: hf.String(),
		Liquidatable: hf.Liquidatable(),
	})
}

// Operation endpoints

func (h *Handler) Supply(w http.ResponseWriter, r *http.Request) {
	var req SupplyRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}
	beneficiary := req.Beneficiary
	if beneficiary == "" {
		beneficiary = req.From
	}

	err := h.engine.Supply(r.Context(), req.From, beneficiary, req.Asset, amount)
	h.recordOperation(r.Context(), "supply", err)
	if err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	h.invalidatePosition(r.Context(), beneficiary)
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	var req WithdrawRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}
	recipient := req.Recipient
	if recipient == "" {
		recipient = req.User
	}

	err := h.engine.Withdraw(r.Context(), req.User, recipient, req.Asset, amount)
	h.recordOperation(r.Context(), "withdraw", err)
	if err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	h.invalidatePosition(r.Context(), req.User)
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req BorrowRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}
	recipient := req.Recipient
	if recipient == "" {
		recipient = req.User
	}

	err := h.engine.Borrow(r.Context(), req.User, recipient, req.Asset, amount)
	h.recordOperation(r.Context(), "borrow", err)
	if err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	h.invalidatePosition(r.Context(), req.User)
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) Repay(w http.ResponseWriter, r *http.Request) {
	var req RepayRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}
	onBehalfOf := req.OnBehalfOf
	if onBehalfOf == "" {
		onBehalfOf = req.Payer
	}

	repaid, err := h.engine.Repay(r.Context(), req.Payer, onBehalfOf, req.Asset, amount)
	h.recordOperation(r.Context(), "repay", err)
	if err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	h.invalidatePosition(r.Context(), onBehalfOf)
	h.writeJSON(w, http.StatusOK, RepayResponse{Repaid: repaid.String()})
}

func (h *Handler) Liquidate(w http.ResponseWriter, r *http.Request) {
	var req LiquidateRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, req.RepayAmount)
	if !ok {
		return
	}

	res, err := h.engine.Liquidate(r.Context(), req.Liquidator, req.User, req.CollateralAsset, req.DebtAsset, amount)
	h.recordOperation(r.Context(), "liquidate", err)
	if err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	h.invalidatePosition(r.Context(), req.User)
	h.writeJSON(w, http.StatusOK, LiquidateResponse{
		Repaid: res.Repaid.String(),
		Seized: res.Seized.String(),
	})
}

// Event endpoints

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	f := journal.Filter{
		User:  r.URL.Query().Get("user"),
		Asset: r.URL.Query().Get("asset"),
		Type:  journal.EventType(r.URL.Query().Get("type")),
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			h.writeError(w, http.StatusBadRequest, "INVALID_LIMIT", "limit must be a non-negative integer")
			return
		}
		f.Limit = limit
	}

	events, err := h.journal.List(r.Context(), f)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "JOURNAL_ERROR", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

// Helpers

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_BODY", "malformed JSON body")
		return false
	}
	return true
}

func (h *Handler) parseAmount(w http.ResponseWriter, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_AMOUNT", "invalid amount format")
		return decimal.Zero, false
	}
	return amount, true
}

func (h *Handler) recordOperation(ctx context.Context, kind string, err error) {
	if h.metrics != nil {
		h.metrics.RecordOperation(ctx, kind, err)
	}
}

func (h *Handler) invalidatePosition(ctx context.Context, address string) {
	if h.cache == nil {
		return
	}
	if err := h.cache.InvalidateUserPosition(ctx, address); err != nil {
		h.logger.Warnw("position cache invalidation failed", "address", address, "error", err)
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, message string) {
	h.logger.Errorw("API error", "code", code, "message", message, "status", status)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{Code: code, Message: message})
}

func assetDTO(a registry.Asset) AssetDTO {
	return AssetDTO{
		ID:                   a.ID,
		Symbol:               a.Symbol,
		Decimals:             a.Decimals,
		Native:               a.Native,
		CollateralFactor:     a.CollateralFactor.String(),
		LiquidationThreshold: a.LiquidationThreshold.String(),
		LiquidationBonus:     a.LiquidationBonus.String(),
		Supported:            a.Supported,
		TotalSupplied:        a.TotalSupplied.String(),
		TotalBorrowed:        a.TotalBorrowed.String(),
		AvailableLiquidity:   a.AvailableLiquidity().String(),
		OriginChainID:        a.OriginChainID,
		OriginSymbol:         a.OriginSymbol,
	}
}

func positionDTO(pos ledger.Position, val ledger.Valuation) PositionDTO {
	supplied := make(map[string]string, len(pos.Supplied))
	for asset, amount := range pos.Supplied {
		supplied[asset] = amount.String()
	}
	borrowed := make(map[string]string, len(pos.Borrowed))
	for asset, amount := range pos.Borrowed {
		borrowed[asset] = amount.String()
	}
	return PositionDTO{
		User:            pos.User,
		Supplied:        supplied,
		Borrowed:        borrowed,
		CollateralValue: val.CollateralValue.String(),
		DebtValue:       val.DebtValue.String(),
		HealthFactor:    val.HealthFactor.String(),
	}
}
