package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Data API ---

// leaderboardEntryRaw es una fila de GET /v1/leaderboard. El campo del wallet
// cambió de nombre entre versiones de la API; se aceptan los tres.
type leaderboardEntryRaw struct {
	ProxyWallet string      `json:"proxyWallet"`
	UserAddress string      `json:"userAddress"`
	Address     string      `json:"address"`
	UserName    string      `json:"userName"`
	Username    string      `json:"username"`
	Name        string      `json:"name"`
	PnL         json.Number `json:"pnl"`
	Vol         json.Number `json:"vol"`
	Volume      json.Number `json:"volume"`
}

// positionRaw es una posición abierta de GET /positions.
type positionRaw struct {
	ConditionID  string      `json:"conditionId"`
	Title        string      `json:"title"`
	Slug         string      `json:"slug"`
	EventSlug    string      `json:"eventSlug"`
	Outcome      string      `json:"outcome"`
	Size         json.Number `json:"size"`
	AvgPrice     json.Number `json:"avgPrice"`
	CurrentValue json.Number `json:"currentValue"`
	CurPrice     json.Number `json:"curPrice"`
}

// activityRaw es un evento de GET /activity (TRADE, REDEEM, ...).
type activityRaw struct {
	Type        string      `json:"type"`
	ConditionID string      `json:"conditionId"`
	Title       string      `json:"title"`
	Slug        string      `json:"slug"`
	EventSlug   string      `json:"eventSlug"`
	Outcome     string      `json:"outcome"`
	Side        string      `json:"side"`
	Price       json.Number `json:"price"`
	Size        json.Number `json:"size"`
	USDCSize    json.Number `json:"usdcSize"`
	Timestamp   json.Number `json:"timestamp"`
}

// tradeRaw es un trade de GET /trades.
type tradeRaw struct {
	ConditionID string      `json:"conditionId"`
	Title       string      `json:"title"`
	EventTitle  string      `json:"eventTitle"`
	Slug        string      `json:"slug"`
	EventSlug   string      `json:"eventSlug"`
	Outcome     string      `json:"outcome"`
	Side        string      `json:"side"`
	Price       json.Number `json:"price"`
	Size        json.Number `json:"size"`
	Timestamp   json.Number `json:"timestamp"`
}

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket contiene la metadata de un mercado. Gamma devuelve varios
// campos numéricos y arrays como strings JSON, de ahí json.Number/string.
type gammaMarket struct {
	ConditionID   string      `json:"conditionId"`
	Question      string      `json:"question"`
	Slug          string      `json:"slug"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
	// Outcomes y OutcomePrices llegan como JSON embebido en string:
	// `["Yes","No"]` y `["1","0"]`.
	Outcomes      string      `json:"outcomes"`
	OutcomePrices string      `json:"outcomePrices"`
	Volume        json.Number `json:"volume"`
	EndDateISO    string      `json:"endDateIso"`
	UMAResolution string      `json:"umaResolutionStatus"`
}

// --- CLOB API ---

// clobMarketResponse es la respuesta de GET /markets/{condition_id}.
type clobMarketResponse struct {
	ConditionID      string      `json:"condition_id"`
	AcceptingOrders  bool        `json:"accepting_orders"`
	MinimumOrderSize json.Number `json:"minimum_order_size"`
	MinimumTickSize  json.Number `json:"minimum_tick_size"`
	NegRisk          bool        `json:"neg_risk"`
	Tokens           []clobToken `json:"tokens"`
}

// clobToken representa un token (YES/NO) en el CLOB.
type clobToken struct {
	TokenID string  `json:"token_id"`
	Outcome string  `json:"outcome"`
	Price   float64 `json:"price"`
	Winner  bool    `json:"winner"`
}

// clobMidpointResponse es la respuesta de GET /midpoint.
type clobMidpointResponse struct {
	Mid json.Number `json:"mid"`
}

// clobBalanceResponse es la respuesta de GET /balance-allowance.
type clobBalanceResponse struct {
	Balance string `json:"balance"`
}

// clobOrderResponse es la respuesta de POST /order.
type clobOrderResponse struct {
	ErrorMsg     string      `json:"errorMsg"`
	OrderID      string      `json:"orderID"`
	Status       string      `json:"status"`
	Success      bool        `json:"success"`
	AveragePrice json.Number `json:"averagePrice"`
	SizeFilled   json.Number `json:"size"`
	TakingAmount string      `json:"takingAmount"`
	MakingAmount string      `json:"makingAmount"`
}
