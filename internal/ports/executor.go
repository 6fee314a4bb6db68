package ports

import "context"

// TokenInfo identifica el token CLOB de un outcome concreto y sus límites
// de orden.
type TokenInfo struct {
	TokenID          string
	AcceptingOrders  bool
	MinimumOrderSize float64
}

// OrderResult es el resultado de colocar una orden de mercado.
type OrderResult struct {
	Success      bool
	OrderID      string
	SharesFilled float64
	ErrorMessage string
}

// TradeExecutor coloca órdenes reales contra el CLOB de Polymarket.
type TradeExecutor interface {
	// ResolveToken traduce (conditionID, outcome) al token CLOB operable.
	ResolveToken(ctx context.Context, conditionID, outcome string) (*TokenInfo, error)

	// CurrentPrice devuelve el mejor precio actual del token.
	CurrentPrice(ctx context.Context, tokenID string) (float64, error)

	// Balance devuelve el USDC disponible del wallet del bot.
	Balance(ctx context.Context) (float64, error)

	// PlaceMarketOrder coloca una orden FOK de amountUSD sobre el token.
	PlaceMarketOrder(ctx context.Context, tokenID string, amountUSD float64) (OrderResult, error)
}
