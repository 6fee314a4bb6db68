package polymarket

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

const (
	leaderboardPageSize = 50
	positionsPageSize   = 500
	activityPageSize    = 500
	// La Data API rechaza offsets de /activity por encima de 1000.
	activityMaxOffset = 1000
	positionsCapTotal = 10_000
)

// Leaderboard devuelve el top de traders de una categoría ordenados por PnL,
// paginando hasta limit resultados.
func (c *Client) Leaderboard(ctx context.Context, category string, limit int) ([]ports.LeaderboardEntry, error) {
	var all []ports.LeaderboardEntry

	for offset := 0; offset < limit; offset += leaderboardPageSize {
		u := fmt.Sprintf("%s/v1/leaderboard?category=%s&timePeriod=ALL&orderBy=PNL&limit=%d&offset=%d",
			c.dataBase, url.QueryEscape(category), leaderboardPageSize, offset)

		var resp []leaderboardEntryRaw
		if err := c.get(ctx, c.dataLimiter, u, &resp); err != nil {
			return nil, fmt.Errorf("polymarket.Leaderboard: %s: %w", category, err)
		}
		if len(resp) == 0 {
			break
		}

		for _, r := range resp {
			all = append(all, mapLeaderboardEntry(r))
		}
		if len(resp) < leaderboardPageSize {
			break
		}
	}

	if len(all) > limit {
		all = all[:limit]
	}
	slog.Debug("leaderboard fetched", "category", category, "entries", len(all))
	return all, nil
}

// Positions devuelve todas las posiciones abiertas de un wallet, paginando.
func (c *Client) Positions(ctx context.Context, wallet string) ([]domain.Position, error) {
	var all []domain.Position

	for offset := 0; offset <= positionsCapTotal; offset += positionsPageSize {
		u := fmt.Sprintf("%s/positions?user=%s&limit=%d&offset=%d",
			c.dataBase, wallet, positionsPageSize, offset)

		var resp []positionRaw
		if err := c.get(ctx, c.dataLimiter, u, &resp); err != nil {
			return nil, fmt.Errorf("polymarket.Positions: %s: %w", wallet, err)
		}
		if len(resp) == 0 {
			break
		}

		for _, r := range resp {
			all = append(all, mapPosition(wallet, r))
		}
		if len(resp) < positionsPageSize {
			break
		}
	}

	return all, nil
}

// Activity devuelve el historial TRADE/REDEEM de un wallet, más reciente
// primero, hasta limit eventos.
func (c *Client) Activity(ctx context.Context, wallet string, limit int) ([]ports.ActivityEvent, error) {
	var all []ports.ActivityEvent

	for offset := 0; offset <= activityMaxOffset && len(all) < limit; offset += activityPageSize {
		u := fmt.Sprintf("%s/activity?user=%s&type=TRADE,REDEEM&sortBy=TIMESTAMP&sortDirection=DESC&limit=%d&offset=%d",
			c.dataBase, wallet, activityPageSize, offset)

		var resp []activityRaw
		if err := c.get(ctx, c.dataLimiter, u, &resp); err != nil {
			return nil, fmt.Errorf("polymarket.Activity: %s: %w", wallet, err)
		}
		if len(resp) == 0 {
			break
		}

		for _, r := range resp {
			all = append(all, mapActivity(r))
		}
		if len(resp) < activityPageSize {
			break
		}
	}

	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// Trades devuelve el historial de trades de un wallet hasta limit entradas.
func (c *Client) Trades(ctx context.Context, wallet string, limit int) ([]domain.TradeFill, error) {
	u := fmt.Sprintf("%s/trades?user=%s&limit=%d", c.dataBase, wallet, limit)

	var resp []tradeRaw
	if err := c.get(ctx, c.dataLimiter, u, &resp); err != nil {
		return nil, fmt.Errorf("polymarket.Trades: %s: %w", wallet, err)
	}

	fills := make([]domain.TradeFill, 0, len(resp))
	for _, r := range resp {
		fills = append(fills, mapTrade(r))
	}
	return fills, nil
}
