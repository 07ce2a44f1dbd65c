package api

import (
	"context"
	"encoding/hex"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/omnilend/omnilend-backend/internal/bridge"
	"github.com/omnilend/omnilend-backend/internal/journal"
)

type outboundOp func(ctx context.Context, user, asset string, amount decimal.Decimal, destinationChainID uint64, destinationAddress []byte) error

func (h *Handler) InboundTransfer(w http.ResponseWriter, r *http.Request) {
	var req InboundTransferRequest
	if !h.decode(w, r, &req) {
		return
	}

	err := h.adapter.OnIncomingTransfer(r.Context(), req.Caller, req.Sender, req.OriginChainID, req.Asset, req.Amount, req.Message, req.Signature)
	if err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	if h.metrics != nil {
		// An accepted transfer always carries a decodable message.
		if msg, derr := bridge.DecodeMessage(req.Message); derr == nil {
			h.metrics.RecordInbound(r.Context(), msg.Action.String())
		}
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) WithdrawCrossChain(w http.ResponseWriter, r *http.Request) {
	h.outbound(w, r, h.adapter.WithdrawCrossChain)
}

func (h *Handler) BorrowCrossChain(w http.ResponseWriter, r *http.Request) {
	h.outbound(w, r, h.adapter.BorrowCrossChain)
}

func (h *Handler) outbound(w http.ResponseWriter, r *http.Request, op outboundOp) {
	var req OutboundRequest
	if !h.decode(w, r, &req) {
		return
	}
	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}
	dest, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(req.DestinationAddress), "0x"))
	if err != nil || len(dest) == 0 {
		h.writeError(w, http.StatusBadRequest, "INVALID_DESTINATION", "destinationAddress must be 0x-prefixed hex")
		return
	}

	if err := op(r.Context(), req.User, req.Asset, amount, req.DestinationChainID, dest); err != nil {
		status, code := mapError(err)
		h.writeError(w, status, code, err.Error())
		return
	}
	if h.metrics != nil {
		h.metrics.RecordOutbound(r.Context(), req.Asset)
	}
	h.invalidatePosition(r.Context(), req.User)
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

func (h *Handler) PendingDeliveries(w http.ResponseWriter, r *http.Request) {
	pending, err := h.adapter.PendingDeliveries(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, "JOURNAL_ERROR", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, pending)
}

func (h *Handler) ResolveDelivery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.adapter.ResolveDelivery(r.Context(), id); err != nil {
		if errors.Is(err, journal.ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "DELIVERY_NOT_FOUND", "no pending delivery "+id)
			return
		}
		h.writeError(w, http.StatusInternalServerError, "JOURNAL_ERROR", err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, StatusResponse{Status: "resolved"})
}

func (h *Handler) GetRoutingAddress(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, RoutingDTO{Address: h.adapter.RoutingAddress()})
}
