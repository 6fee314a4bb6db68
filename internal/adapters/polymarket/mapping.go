package polymarket

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// mapLeaderboardEntry convierte una fila raw del leaderboard. El wallet puede
// venir en cualquiera de los tres campos según la versión de la API.
func mapLeaderboardEntry(r leaderboardEntryRaw) ports.LeaderboardEntry {
	wallet := r.ProxyWallet
	if wallet == "" {
		wallet = r.UserAddress
	}
	if wallet == "" {
		wallet = r.Address
	}

	username := r.UserName
	if username == "" {
		username = r.Username
	}
	if username == "" {
		username = r.Name
	}

	vol := num(r.Vol)
	if vol == 0 {
		vol = num(r.Volume)
	}

	return ports.LeaderboardEntry{
		Wallet:   wallet,
		Username: username,
		PnL:      num(r.PnL),
		Volume:   vol,
	}
}

// mapPosition convierte una posición raw de la Data API a domain.Position,
// normalizando el outcome a mayúsculas.
func mapPosition(wallet string, r positionRaw) domain.Position {
	return domain.Position{
		Wallet:       wallet,
		ConditionID:  r.ConditionID,
		Title:        r.Title,
		Slug:         r.Slug,
		EventSlug:    r.EventSlug,
		Outcome:      strings.ToUpper(r.Outcome),
		Size:         num(r.Size),
		AvgPrice:     num(r.AvgPrice),
		CurrentValue: num(r.CurrentValue),
		CurPrice:     num(r.CurPrice),
	}
}

// mapActivity convierte un evento raw de /activity.
func mapActivity(r activityRaw) ports.ActivityEvent {
	ts, _ := r.Timestamp.Int64()
	return ports.ActivityEvent{
		Type:        r.Type,
		ConditionID: r.ConditionID,
		Title:       r.Title,
		Slug:        r.Slug,
		EventSlug:   r.EventSlug,
		Outcome:     strings.ToUpper(r.Outcome),
		Side:        r.Side,
		Price:       num(r.Price),
		Size:        num(r.Size),
		USDCSize:    num(r.USDCSize),
		Timestamp:   ts,
	}
}

// mapTrade convierte un trade raw de /trades.
func mapTrade(r tradeRaw) domain.TradeFill {
	title := r.Title
	if title == "" {
		title = r.EventTitle
	}
	ts, _ := r.Timestamp.Int64()

	outcome := strings.ToUpper(r.Outcome)
	if outcome == "" {
		outcome = strings.ToUpper(r.Side)
	}

	return domain.TradeFill{
		ConditionID: r.ConditionID,
		Title:       title,
		Slug:        r.Slug,
		EventSlug:   r.EventSlug,
		Outcome:     outcome,
		Side:        strings.ToUpper(r.Side),
		Price:       num(r.Price),
		Size:        num(r.Size),
		Timestamp:   unixTime(ts),
	}
}

// mapResolvedMarket convierte un gammaMarket al estado de resolución.
func mapResolvedMarket(gm gammaMarket) ports.ResolvedMarket {
	resolved := gm.Closed || !gm.Active ||
		strings.EqualFold(gm.UMAResolution, "resolved")

	return ports.ResolvedMarket{
		ConditionID: gm.ConditionID,
		Title:       gm.Question,
		Closed:      gm.Closed,
		Resolved:    resolved,
		Outcome:     extractOutcome(gm),
	}
}

// extractOutcome deduce el outcome ganador de un mercado resuelto a partir de
// los precios finales: el outcome con precio ≥ 0.95 ganó. Devuelve "" si el
// mercado no da información concluyente.
func extractOutcome(gm gammaMarket) string {
	var outcomes []string
	var prices []string
	if err := json.Unmarshal([]byte(gm.Outcomes), &outcomes); err != nil {
		return ""
	}
	if err := json.Unmarshal([]byte(gm.OutcomePrices), &prices); err != nil {
		return ""
	}
	if len(outcomes) != len(prices) {
		return ""
	}

	for i, p := range prices {
		price, err := strconv.ParseFloat(p, 64)
		if err != nil {
			continue
		}
		if price >= 0.95 {
			return strings.ToUpper(outcomes[i])
		}
	}
	return ""
}

// num convierte un json.Number a float64, tragándose errores de parse
// (la API mezcla strings vacíos y números).
func num(n json.Number) float64 {
	f, _ := n.Float64()
	return f
}

// unixTime convierte un epoch en segundos o milisegundos a time.Time UTC.
func unixTime(ts int64) time.Time {
	if ts <= 0 {
		return time.Time{}
	}
	if ts > 1e12 {
		return time.UnixMilli(ts).UTC()
	}
	return time.Unix(ts, 0).UTC()
}
