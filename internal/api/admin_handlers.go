package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/omnilend/omnilend-backend/internal/journal"
	"github.com/omnilend/omnilend-backend/internal/registry"
)

// recordAdmin journals a registry change. Like the ledger paths, a
// journal failure never fails the operation that already committed.
func (h *Handler) recordAdmin(ctx context.Context, t journal.EventType, caller, asset string, chainID uint64, detail string) {
	ev := journal.NewEvent(t)
	ev.User = caller
	ev.Asset = asset
	ev.ChainID = chainID
	ev.Detail = detail
	if err := h.journal.Record(ctx, ev); err != nil {
		h.logger.Warnw("journal record failed", "type", t, "error", err)
	}
}

func (h *Handler) AddAsset(w http.ResponseWriter, r *http.Request) {
	var req AddAssetRequest
	if !h.decode(w, r, &req) {
		return
	}

	params, ok := h.parseRiskParams(w, req)
	if !ok {
		return
	}

	asset, err := h.reg.AddAsset(req.Caller, req.ID, params)
	if err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	h.recordAdmin(r.Context(), journal.EventAssetAdded, req.Caller, asset.ID, 0, "")
	h.logger.Infow("asset added", "asset", asset.ID, "caller", req.Caller)
	h.writeJSON(w, http.StatusCreated, assetDTO(asset))
}

func (h *Handler) SetAssetSupported(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req SetSupportedRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.reg.SetSupported(req.Caller, id, req.Supported); err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	if req.Supported {
		h.recordAdmin(r.Context(), journal.EventAssetAdded, req.Caller, id, 0, "support enabled")
	} else {
		h.recordAdmin(r.Context(), journal.EventAssetRemoved, req.Caller, id, 0, "support disabled")
	}
	h.logger.Infow("asset support changed", "asset", id, "supported", req.Supported)
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) MapOriginAsset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req MapOriginRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.reg.MapOriginAsset(req.Caller, id, req.ChainID, req.Symbol); err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	h.recordAdmin(r.Context(), journal.EventOriginMapped, req.Caller, id, req.ChainID, req.Symbol)
	h.logger.Infow("origin mapped", "asset", id, "chain", req.ChainID, "symbol", req.Symbol)
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) SetAllowedChain(w http.ResponseWriter, r *http.Request) {
	var req AllowChainRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.reg.SetAllowedOriginChain(req.Caller, req.ChainID, req.Allowed); err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	detail := "allowed"
	if !req.Allowed {
		detail = "revoked"
	}
	h.recordAdmin(r.Context(), journal.EventChainAllowed, req.Caller, "", req.ChainID, detail)
	h.logger.Infow("origin chain toggled", "chain", req.ChainID, "allowed", req.Allowed)
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) ListAllowedChains(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.reg.AllowedOriginChains())
}

func (h *Handler) UpdateRoutingAddress(w http.ResponseWriter, r *http.Request) {
	var req RoutingRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.adapter.UpdateRoutingAddress(r.Context(), req.Caller, req.Address, req.ExpectedDestinationChainID); err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) parseRiskParams(w http.ResponseWriter, req AddAssetRequest) (registry.RiskParams, bool) {
	cf, err := decimal.NewFromString(req.CollateralFactor)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_RISK_PARAMS", "invalid collateralFactor")
		return registry.RiskParams{}, false
	}
	lt, err := decimal.NewFromString(req.LiquidationThreshold)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_RISK_PARAMS", "invalid liquidationThreshold")
		return registry.RiskParams{}, false
	}
	lb, err := decimal.NewFromString(req.LiquidationBonus)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "INVALID_RISK_PARAMS", "invalid liquidationBonus")
		return registry.RiskParams{}, false
	}
	return registry.RiskParams{
		Decimals:             req.Decimals,
		Native:               req.Native,
		CollateralFactor:     cf,
		LiquidationThreshold: lt,
		LiquidationBonus:     lb,
	}, true
}
