package polymarket

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/whaleradar/internal/ports"
)

const gammaMarketsPath = "/markets"

// MarketByCondition obtiene un mercado de Gamma por su condition id.
// Devuelve nil (sin error) si Gamma no lo conoce.
func (c *Client) MarketByCondition(ctx context.Context, conditionID string) (*ports.ResolvedMarket, error) {
	url := fmt.Sprintf("%s%s?condition_ids=%s&limit=1", c.gammaBase, gammaMarketsPath, conditionID)

	var resp gammaMarketsResponse
	if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.MarketByCondition: %s: %w", conditionID, err)
	}
	if len(resp) == 0 {
		return nil, nil
	}

	m := mapResolvedMarket(resp[0])
	return &m, nil
}
