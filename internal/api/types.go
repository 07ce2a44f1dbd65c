package api

import "github.com/omnilend/omnilend-backend/internal/prices"

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type AssetDTO struct {
	ID                   string `json:"id"`
	Symbol               string `json:"symbol"`
	Decimals             uint8  `json:"decimals"`
	Native               bool   `json:"native"`
	CollateralFactor     string `json:"collateralFactor"`
	LiquidationThreshold string `json:"liquidationThreshold"`
	LiquidationBonus     string `json:"liquidationBonus"`
	Supported            bool   `json:"supported"`
	TotalSupplied        string `json:"totalSupplied"`
	TotalBorrowed        string `json:"totalBorrowed"`
	AvailableLiquidity   string `json:"availableLiquidity"`
	OriginChainID        uint64 `json:"originChainId,omitempty"`
	OriginSymbol         string `json:"originSymbol,omitempty"`
}

type PositionDTO struct {
	User            string            `json:"user"`
	Supplied        map[string]string `json:"supplied"`
	Borrowed        map[string]string `json:"borrowed"`
	CollateralValue string            `json:"collateralValue"`
	DebtValue       string            `json:"debtValue"`
	HealthFactor    string            `json:"healthFactor"`
}

type HealthFactorDTO struct {
	User         string `json:"user"`
	HealthFactor string `json:"healthFactor"`
	Liquidatable bool   `json:"liquidatable"`
}

type SupplyRequest struct {
	From        string `json:"from"`
	Beneficiary string `json:"beneficiary"`
	Asset       string `json:"asset"`
	Amount      string `json:"amount"`
}

type WithdrawRequest struct {
	User      string `json:"user"`
	Recipient string `json:"recipient"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
}

type BorrowRequest struct {
	User      string `json:"user"`
	Recipient string `json:"recipient"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
}

type RepayRequest struct {
	Payer      string `json:"payer"`
	OnBehalfOf string `json:"onBehalfOf"`
	Asset      string `json:"asset"`
	Amount     string `json:"amount"`
}

type RepayResponse struct {
	Repaid string `json:"repaid"`
}

type LiquidateRequest struct {
	Liquidator      string `json:"liquidator"`
	User            string `json:"user"`
	CollateralAsset string `json:"collateralAsset"`
	DebtAsset       string `json:"debtAsset"`
	RepayAmount     string `json:"repayAmount"`
}

type LiquidateResponse struct {
	Repaid string `json:"repaid"`
	Seized string `json:"seized"`
}

type InboundTransferRequest struct {
	Caller        string `json:"caller"`
	Sender        string `json:"sender"`
	OriginChainID uint64 `json:"originChainId"`
	Asset         string `json:"asset"`
	Amount        uint64 `json:"amount"`
	Message       []byte `json:"message"`   // base64
	Signature     []byte `json:"signature"` // base64, optional
}

type OutboundRequest struct {
	User               string `json:"user"`
	Asset              string `json:"asset"`
	Amount             string `json:"amount"`
	DestinationChainID uint64 `json:"destinationChainId"`
	DestinationAddress string `json:"destinationAddress"` // 0x-prefixed hex
}

type AddAssetRequest struct {
	Caller               string `json:"caller"`
	ID                   string `json:"id"`
	Decimals             uint8  `json:"decimals"`
	Native               bool   `json:"native"`
	CollateralFactor     string `json:"collateralFactor"`
	LiquidationThreshold string `json:"liquidationThreshold"`
	LiquidationBonus     string `json:"liquidationBonus"`
}

type SetSupportedRequest struct {
	Caller    string `json:"caller"`
	Supported bool   `json:"supported"`
}

type MapOriginRequest struct {
	Caller  string `json:"caller"`
	ChainID uint64 `json:"chainId"`
	Symbol  string `json:"symbol"`
}

type AllowChainRequest struct {
	Caller  string `json:"caller"`
	ChainID uint64 `json:"chainId"`
	Allowed bool   `json:"allowed"`
}

type RoutingRequest struct {
	Caller                     string `json:"caller"`
	Address                    string `json:"address"`
	ExpectedDestinationChainID uint64 `json:"expectedDestinationChainId"`
}

type RoutingDTO struct {
	Address string `json:"address"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

type ReadinessDTO struct {
	Status string                 `json:"status"`
	Oracle *prices.ProviderHealth `json:"oracle,omitempty"`
}
