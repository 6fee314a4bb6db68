package notify

// message.go — construcción de los textos de alerta compartidos por todos
// los canales. Cada canal aplica su propio envoltorio (tabla, HTML, markdown)
// sobre estas piezas.

import (
	"fmt"
	"strings"

	"github.com/alejandrodnm/whaleradar/internal/domain"
)

// tierLabel devuelve la etiqueta corta del tier.
func tierLabel(tier int) string {
	switch tier {
	case 1:
		return "TIER 1"
	case 2:
		return "TIER 2"
	default:
		return fmt.Sprintf("TIER %d", tier)
	}
}

// signalHeadline resume la señal en una línea.
func signalHeadline(s domain.Signal) string {
	return fmt.Sprintf("%s | %s %s @ %.2f | score %.2f (peak %.2f) | %d traders",
		tierLabel(s.Tier), s.Direction, truncate(s.MarketTitle, 60),
		s.CurrentPrice, s.Score, s.PeakScore, len(s.Contributors))
}

// contributorLine resume un trader de la señal en una línea.
func contributorLine(c domain.Contributor) string {
	name := c.Username
	if name == "" {
		name = shortWallet(c.Wallet)
	}
	tags := ""
	if len(c.DomainTags) > 0 {
		show := c.DomainTags
		if len(show) > 2 {
			show = show[:2]
		}
		tags = " [" + strings.Join(show, ", ") + "]"
	}
	return fmt.Sprintf("%s (%s, wr %.0f%%)%s — %s conviction %.2fx",
		name, c.TraderType, c.WinRate*100, tags, c.ChangeType, c.Conviction)
}

// resolutionHeadline resume la resolución de una señal.
func resolutionHeadline(s domain.Signal) string {
	verdict := "MISS"
	if s.Direction == s.ResolutionOutcome {
		verdict = "HIT"
	}
	return fmt.Sprintf("RESOLVED %s | %s | signal was %s, market resolved %s | P&L %+.1f%%",
		verdict, truncate(s.MarketTitle, 60), s.Direction, s.ResolutionOutcome,
		s.PnLPercent*100)
}

// marketURL construye el enlace público del mercado.
func marketURL(s domain.Signal) string {
	slug := s.MarketSlug
	if slug == "" {
		return ""
	}
	return "https://polymarket.com/event/" + slug
}

// shortWallet abrevia una dirección para mostrarla.
func shortWallet(wallet string) string {
	if len(wallet) <= 10 {
		return wallet
	}
	return wallet[:6] + "…" + wallet[len(wallet)-4:]
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
