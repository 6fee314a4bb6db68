package polymarket

// clob.go — FOK market-order execution against the Polymarket CLOB.
//
// Implements ports.TradeExecutor using AuthClient for L1/L2 auth.
// All bot orders are BUY fill-or-kill market orders: they fill instantly
// at a marketable price or fail outright, so there is no open-order state
// to track between cycles.

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"net/http"
	"strings"

	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// marketablePriceBuffer is added on top of the midpoint so the FOK order
// crosses the spread. The risk manager already rejected anything with real
// slippage before we get here.
const marketablePriceBuffer = 0.02

// clobOrderRequest is the JSON body sent to POST /order.
type clobOrderRequest struct {
	Order     clobOrderBody `json:"order"`
	Owner     string        `json:"owner"`
	OrderType string        `json:"orderType"`
}

type clobOrderBody struct {
	Salt          json.Number `json:"salt"`
	Maker         string      `json:"maker"`
	Signer        string      `json:"signer"`
	Taker         string      `json:"taker"`
	TokenID       string      `json:"tokenId"`
	MakerAmount   string      `json:"makerAmount"`
	TakerAmount   string      `json:"takerAmount"`
	Expiration    string      `json:"expiration"`
	Nonce         string      `json:"nonce"`
	FeeRateBps    string      `json:"feeRateBps"`
	Side          string      `json:"side"`
	SignatureType int         `json:"signatureType"`
	Signature     string      `json:"signature"`
}

type clobNegRiskResponse struct {
	NegRisk bool `json:"neg_risk"`
}

// TradingClient implements ports.TradeExecutor.
type TradingClient struct {
	auth *AuthClient
}

// NewTradingClient creates a TradingClient over an authenticated client.
func NewTradingClient(auth *AuthClient) *TradingClient {
	return &TradingClient{auth: auth}
}

// Initialize derives the CLOB API credentials. Call once on startup.
func (tc *TradingClient) Initialize(ctx context.Context) error {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return fmt.Errorf("clob.Initialize: %w", err)
	}
	return nil
}

// ResolveToken maps (conditionID, outcome) to the tradeable CLOB token.
func (tc *TradingClient) ResolveToken(ctx context.Context, conditionID, outcome string) (*ports.TokenInfo, error) {
	url := fmt.Sprintf("%s/markets/%s", tc.auth.clobBase, conditionID)

	var resp clobMarketResponse
	if err := tc.auth.get(ctx, tc.auth.clobLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("clob.ResolveToken: %s: %w", conditionID, err)
	}

	for _, t := range resp.Tokens {
		if strings.EqualFold(t.Outcome, outcome) {
			minSize, _ := resp.MinimumOrderSize.Float64()
			return &ports.TokenInfo{
				TokenID:          t.TokenID,
				AcceptingOrders:  resp.AcceptingOrders,
				MinimumOrderSize: minSize,
			}, nil
		}
	}
	return nil, fmt.Errorf("clob.ResolveToken: no %s token on %s", outcome, conditionID)
}

// CurrentPrice returns the midpoint price for a token.
func (tc *TradingClient) CurrentPrice(ctx context.Context, tokenID string) (float64, error) {
	url := fmt.Sprintf("%s/midpoint?token_id=%s", tc.auth.clobBase, tokenID)

	var resp clobMidpointResponse
	if err := tc.auth.get(ctx, tc.auth.clobLimiter, url, &resp); err != nil {
		return 0, fmt.Errorf("clob.CurrentPrice: %w", err)
	}

	mid, err := resp.Mid.Float64()
	if err != nil {
		return 0, fmt.Errorf("clob.CurrentPrice: parse mid %q: %w", resp.Mid, err)
	}
	return mid, nil
}

// Balance returns the available USDC collateral in the CLOB.
func (tc *TradingClient) Balance(ctx context.Context) (float64, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return 0, fmt.Errorf("clob.Balance: creds: %w", err)
	}

	var resp clobBalanceResponse
	path := "/balance-allowance?asset_type=COLLATERAL"
	if err := tc.auth.doL2(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return 0, fmt.Errorf("clob.Balance: %w", err)
	}
	return parseUSDC(resp.Balance), nil
}

// PlaceMarketOrder signs and submits a BUY FOK order spending amountUSD.
// A rejected placement comes back in OrderResult, not as an error: the
// caller records it as a FAILED trade either way.
func (tc *TradingClient) PlaceMarketOrder(ctx context.Context, tokenID string, amountUSD float64) (ports.OrderResult, error) {
	if err := tc.auth.EnsureCreds(ctx); err != nil {
		return ports.OrderResult{}, fmt.Errorf("clob.PlaceMarketOrder: creds: %w", err)
	}

	mid, err := tc.CurrentPrice(ctx, tokenID)
	if err != nil {
		return ports.OrderResult{Success: false, ErrorMessage: err.Error()}, nil
	}
	price := marketablePrice(mid)

	negRisk, err := tc.isNegRisk(ctx, tokenID)
	if err != nil {
		return ports.OrderResult{Success: false, ErrorMessage: err.Error()}, nil
	}

	signed, err := tc.auth.buildSignedOrder(tokenID, price, amountUSD, negRisk)
	if err != nil {
		return ports.OrderResult{Success: false, ErrorMessage: err.Error()}, nil
	}

	body := clobOrderRequest{
		Order: clobOrderBody{
			Salt:          json.Number(signed.Order.Salt.String()),
			Maker:         signed.Order.Maker.Hex(),
			Signer:        signed.Order.Signer.Hex(),
			Taker:         signed.Order.Taker.Hex(),
			TokenID:       tokenID,
			MakerAmount:   signed.Order.MakerAmount.String(),
			TakerAmount:   signed.Order.TakerAmount.String(),
			Expiration:    signed.Order.Expiration.String(),
			Nonce:         signed.Order.Nonce.String(),
			FeeRateBps:    signed.Order.FeeRateBps.String(),
			Side:          "BUY",
			SignatureType: int(signed.Order.SignatureType.Int64()),
			Signature:     "0x" + hex.EncodeToString(signed.Signature),
		},
		Owner:     tc.auth.creds.APIKey,
		OrderType: "FOK",
	}

	var resp clobOrderResponse
	if err := tc.auth.doL2(ctx, http.MethodPost, "/order", body, &resp); err != nil {
		return ports.OrderResult{Success: false, ErrorMessage: err.Error()}, nil
	}

	return mapOrderResult(resp), nil
}

// isNegRisk queries whether the token trades through the NegRisk adapter
// (different verifying contract for the order signature).
func (tc *TradingClient) isNegRisk(ctx context.Context, tokenID string) (bool, error) {
	url := fmt.Sprintf("%s/neg-risk?token_id=%s", tc.auth.clobBase, tokenID)

	var resp clobNegRiskResponse
	if err := tc.auth.get(ctx, tc.auth.clobLimiter, url, &resp); err != nil {
		return false, fmt.Errorf("neg-risk check: %w", err)
	}
	return resp.NegRisk, nil
}

// mapOrderResult converts the raw POST /order response.
func mapOrderResult(resp clobOrderResponse) ports.OrderResult {
	if !resp.Success && resp.OrderID == "" {
		msg := resp.ErrorMsg
		if msg == "" {
			msg = "order rejected: " + resp.Status
		}
		return ports.OrderResult{Success: false, ErrorMessage: msg}
	}

	shares, _ := resp.SizeFilled.Float64()
	if shares == 0 && resp.TakingAmount != "" {
		shares = parseUSDC(resp.TakingAmount)
	}

	return ports.OrderResult{
		Success:      true,
		OrderID:      resp.OrderID,
		SharesFilled: shares,
	}
}

// marketablePrice rounds the buffered midpoint up to the next cent and caps
// it inside the valid (0, 1) band.
func marketablePrice(mid float64) float64 {
	p := math.Ceil((mid+marketablePriceBuffer)*100) / 100
	if p > 0.99 {
		p = 0.99
	}
	if p < 0.01 {
		p = 0.01
	}
	return p
}

// parseUSDC converts a micro-USDC string (e.g., "1000000") to USDC float.
func parseUSDC(s string) float64 {
	if s == "" {
		return 0
	}
	n := new(big.Int)
	if _, ok := n.SetString(s, 10); !ok {
		return 0
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return f / 1_000_000
}
