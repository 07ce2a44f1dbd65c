package api

import (
	"errors"
	"net/http"

	"github.com/omnilend/omnilend-backend/internal/bridge"
	"github.com/omnilend/omnilend-backend/internal/custody"
	"github.com/omnilend/omnilend-backend/internal/engine"
	"github.com/omnilend/omnilend-backend/internal/registry"
)

// mapError translates domain errors into HTTP status plus a stable code.
// Every precondition violation keeps its own code so clients can tell
// "try a smaller amount" from "wait and retry".
func mapError(err error) (int, string) {
	var feeErr *bridge.InsufficientFeeError
	switch {
	case errors.Is(err, engine.ErrInvalidAmount) || errors.Is(err, custody.ErrInvalidAmount):
		return http.StatusBadRequest, "INVALID_AMOUNT"
	case errors.Is(err, engine.ErrAssetNotSupported):
		return http.StatusBadRequest, "ASSET_NOT_SUPPORTED"
	case errors.Is(err, engine.ErrInsufficientBalance):
		return http.StatusConflict, "INSUFFICIENT_BALANCE"
	case errors.Is(err, engine.ErrInsufficientCollateral):
		return http.StatusConflict, "INSUFFICIENT_COLLATERAL"
	case errors.Is(err, engine.ErrNotLiquidatable):
		return http.StatusConflict, "INSUFFICIENT_COLLATERAL"
	case errors.Is(err, engine.ErrInsufficientLiquidity):
		return http.StatusConflict, "INSUFFICIENT_LIQUIDITY"
	case errors.Is(err, engine.ErrNoOutstandingDebt):
		return http.StatusConflict, "NO_OUTSTANDING_DEBT"
	case errors.Is(err, custody.ErrInsufficientFunds):
		return http.StatusConflict, "INSUFFICIENT_FUNDS"
	case errors.Is(err, registry.ErrUnauthorized):
		return http.StatusForbidden, "UNAUTHORIZED"
	case errors.Is(err, registry.ErrAssetExists):
		return http.StatusConflict, "ASSET_EXISTS"
	case errors.Is(err, registry.ErrAssetNotFound):
		return http.StatusNotFound, "ASSET_NOT_FOUND"
	case errors.Is(err, registry.ErrInvalidRiskParams):
		return http.StatusBadRequest, "INVALID_RISK_PARAMS"
	case errors.Is(err, bridge.ErrUnauthorizedCaller):
		return http.StatusForbidden, "UNAUTHORIZED"
	case errors.Is(err, bridge.ErrChainNotAllowed):
		return http.StatusForbidden, "CHAIN_NOT_ALLOWED"
	case errors.Is(err, bridge.ErrChainMismatch):
		return http.StatusBadRequest, "CHAIN_MISMATCH"
	case errors.Is(err, bridge.ErrUnknownAction):
		return http.StatusBadRequest, "UNKNOWN_ACTION"
	case errors.Is(err, bridge.ErrUnknownOriginAsset):
		return http.StatusNotFound, "UNKNOWN_ORIGIN_ASSET"
	case errors.Is(err, bridge.ErrMessageExpired):
		return http.StatusBadRequest, "MESSAGE_EXPIRED"
	case errors.Is(err, bridge.ErrBadSignature):
		return http.StatusForbidden, "BAD_SIGNATURE"
	case errors.Is(err, bridge.ErrDuplicateDelivery):
		return http.StatusConflict, "DUPLICATE_DELIVERY"
	case errors.Is(err, bridge.ErrFeeExceedsAmount):
		return http.StatusBadRequest, "FEE_EXCEEDS_AMOUNT"
	case errors.As(err, &feeErr):
		return http.StatusConflict, "INSUFFICIENT_FEE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}
