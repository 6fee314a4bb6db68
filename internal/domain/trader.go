package domain

import (
	"math"
	"sort"
	"time"
)

// TraderType clasifica el comportamiento de un trader del watchlist.
type TraderType string

const (
	TraderHuman   TraderType = "HUMAN"
	TraderAlgo    TraderType = "ALGO"
	TraderUnknown TraderType = "UNKNOWN"
)

// Trader es una fila del watchlist: un wallet con sus métricas de calidad.
// Se reescribe completo en cada rebuild del watchlist — nunca se actualiza
// parcialmente.
type Trader struct {
	Wallet          string
	Username        string
	PnL             float64
	Volume          float64
	WinRate         float64
	ROI             float64
	ROINormalized   float64 // min-max sobre el pool, se rellena en el builder
	Consistency     float64
	TimingQuality   float64
	Score           float64
	AvgPositionSize float64
	TotalClosed     int
	CategoryScores  map[string]float64
	Type            TraderType
	AlgoSignals     []string
	DomainTags      []string
	RecentBets      []RecentBet
	UpdatedAt       time.Time
}

// RecentBet resume una posición cerrada reciente del trader.
type RecentBet struct {
	Title    string   `json:"title"`
	Category []string `json:"category"`
	Outcome  string   `json:"outcome"`
	AvgPrice float64  `json:"avgPrice"`
	PnL      float64  `json:"pnl"`
}

// ClosedPosition es una posición ya resuelta de un trader, reconstruida
// desde su historial de actividad (TRADE + REDEEM).
type ClosedPosition struct {
	ConditionID string
	Title       string
	Outcome     string // "YES" | "NO"
	RealizedPnL float64
	TotalBought float64
	TotalSold   float64
	AvgPrice    float64
	Timestamp   time.Time
}

// WinRate devuelve la fracción de posiciones cerradas con PnL positivo.
func WinRate(closed []ClosedPosition) float64 {
	if len(closed) == 0 {
		return 0
	}
	wins := 0
	for _, p := range closed {
		if p.RealizedPnL > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(closed))
}

// ROI devuelve PnL total / capital desplegado total. 0 si no hubo capital.
func ROI(closed []ClosedPosition) float64 {
	var totalPnL, totalBought float64
	for _, p := range closed {
		totalPnL += p.RealizedPnL
		totalBought += p.TotalBought
	}
	if totalBought == 0 {
		return 0
	}
	return totalPnL / totalBought
}

// Consistency premia muestras grandes y fiables: winRate × log2(N).
// Con N ≤ 1 devuelve 0 (log2 no definido o sin señal estadística).
func Consistency(winRate float64, totalClosed int) float64 {
	if totalClosed <= 1 {
		return 0
	}
	return winRate * math.Log2(float64(totalClosed))
}

// TimingQuality mide cuánto edge tenía el trader al entrar en sus posiciones
// ganadoras: media de (1 − precio) para YES y (precio) para NO. Un trader que
// compra YES a 0.95 tiene timing ≈ 0.05 — apuesta segura, sin edge real.
func TimingQuality(closed []ClosedPosition) float64 {
	var sum float64
	n := 0
	for _, p := range closed {
		if p.RealizedPnL <= 0 {
			continue
		}
		switch p.Outcome {
		case "YES":
			sum += 1.0 - p.AvgPrice
			n++
		case "NO":
			sum += p.AvgPrice
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// TraderScore combina las tres métricas en el score final del ranking.
// Forma producto: timing 0 ⇒ score 0, da igual lo demás.
func TraderScore(timingQuality, consistency, roiNormalized float64) float64 {
	return timingQuality * consistency * (1 + roiNormalized)
}

// MedianPositionSize devuelve la mediana de los tamaños de posición en USDC.
func MedianPositionSize(closed []ClosedPosition) float64 {
	sizes := make([]float64, 0, len(closed))
	for _, p := range closed {
		if p.TotalBought > 0 {
			sizes = append(sizes, p.TotalBought)
		}
	}
	if len(sizes) == 0 {
		return 0
	}
	sort.Float64s(sizes)
	mid := len(sizes) / 2
	if len(sizes)%2 == 1 {
		return sizes[mid]
	}
	return (sizes[mid-1] + sizes[mid]) / 2
}

// minCategorySample es el mínimo de posiciones resueltas en una categoría
// para que el sub-score de esa categoría sea significativo.
const minCategorySample = 10

// CategoryScores calcula el sub-score por categoría amplia:
// consistency × (1 + ROI), solo para categorías con muestra suficiente.
func CategoryScores(closed []ClosedPosition) map[string]float64 {
	byCat := make(map[string][]ClosedPosition)
	for _, p := range closed {
		if cat := ClassifyCategory(p.Title); cat != "" {
			byCat[cat] = append(byCat[cat], p)
		}
	}

	scores := make(map[string]float64)
	for cat, positions := range byCat {
		if len(positions) < minCategorySample {
			continue
		}
		wr := WinRate(positions)
		scores[cat] = Consistency(wr, len(positions)) * (1 + ROI(positions))
	}
	return scores
}

// Umbrales del ensemble HUMAN/ALGO. No ajustar sin revalidar: el detector de
// señales depende de la distinción HUMAN/ALGO para crear señales.
const (
	algoMinSignals    = 2
	algoTradeCount    = 200
	algoWinRate       = 0.95
	algoWinRateSample = 30
	algoSizeCV        = 0.5
	algoSizeCVSample  = 10
	algoFreqPerDay    = 2.0
	algoTurnoverRatio = 10.0
	algoMarketCount   = 30
	minClassifySample = 5
)

// ClassifyTraderType aplica el ensemble de señales de comportamiento para
// distinguir humanos de bots. Devuelve el tipo y la lista de señales ALGO
// detectadas (para explicabilidad). Con menos de 5 posiciones resueltas no
// hay muestra: UNKNOWN.
func ClassifyTraderType(closed []ClosedPosition, pnl, volume float64) (TraderType, []string) {
	total := len(closed)
	if total < minClassifySample {
		return TraderUnknown, nil
	}

	wr := WinRate(closed)
	cv := positionSizeCV(closed)
	freq, activeBlocks := activityProfile(closed)
	markets := make(map[string]struct{}, total)
	for _, p := range closed {
		if p.ConditionID != "" {
			markets[p.ConditionID] = struct{}{}
		}
	}

	var signals []string
	if total >= algoTradeCount {
		signals = append(signals, "high_volume")
	}
	if wr > algoWinRate && total > algoWinRateSample {
		signals = append(signals, "high_wr")
	}
	if cv < algoSizeCV && total > algoSizeCVSample {
		signals = append(signals, "uniform_sizes")
	}
	if freq > algoFreqPerDay {
		signals = append(signals, "high_freq")
	}
	if activeBlocks == 4 {
		signals = append(signals, "24/7")
	}
	if volume > 0 && pnl > 0 && volume/pnl > algoTurnoverRatio {
		signals = append(signals, "high_turnover")
	}
	if len(markets) > algoMarketCount {
		signals = append(signals, "high_diversity")
	}

	if len(signals) >= algoMinSignals {
		return TraderAlgo, signals
	}
	return TraderHuman, signals
}

// positionSizeCV devuelve el coeficiente de variación de los tamaños.
// Sin muestra suficiente devuelve un valor alto (no dispara la señal).
func positionSizeCV(closed []ClosedPosition) float64 {
	var sizes []float64
	for _, p := range closed {
		if p.TotalBought > 0 {
			sizes = append(sizes, p.TotalBought)
		}
	}
	if len(sizes) < 2 {
		return 999
	}

	var sum float64
	for _, s := range sizes {
		sum += s
	}
	mean := sum / float64(len(sizes))
	if mean <= 0 {
		return 999
	}

	var sq float64
	for _, s := range sizes {
		sq += (s - mean) * (s - mean)
	}
	std := math.Sqrt(sq / float64(len(sizes)-1))
	return std / mean
}

// activityProfile devuelve (trades/día, bloques UTC de 6h con actividad).
// Actividad en los 4 bloques es una huella típica de bot 24/7.
func activityProfile(closed []ClosedPosition) (freq float64, activeBlocks int) {
	var first, last time.Time
	blocks := [4]int{}
	n := 0

	for _, p := range closed {
		if p.Timestamp.IsZero() {
			continue
		}
		n++
		blocks[p.Timestamp.UTC().Hour()/6]++
		if first.IsZero() || p.Timestamp.Before(first) {
			first = p.Timestamp
		}
		if p.Timestamp.After(last) {
			last = p.Timestamp
		}
	}

	for _, b := range blocks {
		if b > 0 {
			activeBlocks++
		}
	}

	spanDays := 1.0
	if n > 1 {
		if d := last.Sub(first).Hours() / 24; d > 1 {
			spanDays = math.Floor(d)
		}
	}
	return float64(len(closed)) / spanDays, activeBlocks
}

// Umbrales de los tags de comportamiento.
const (
	tagMatchPct      = 0.10 // un tag de dominio requiere ≥10% de las posiciones
	marketMakerPct   = 0.20 // >20% de mercados con actividad en ambos lados
	longshotPct      = 0.40 // >40% de entradas por debajo del precio longshot
	longshotPrice    = 0.15
	recentBetsLimit  = 10
)

// DetectDomainTags devuelve los tags de dominio del trader (con padres
// incluidos) más los tags de comportamiento "Market Maker" y "Longshot".
// Sin ningún match devuelve ["Mixed"].
func DetectDomainTags(closed []ClosedPosition) []string {
	if len(closed) == 0 {
		return nil
	}

	total := len(closed)
	threshold := float64(total) * tagMatchPct
	if threshold < 1 {
		threshold = 1
	}

	counts := make(map[string]int)
	for _, p := range closed {
		for _, d := range ClassifyDomains(p.Title) {
			counts[d]++
		}
	}

	type tagCount struct {
		tag   string
		count int
	}
	ranked := make([]tagCount, 0, len(counts))
	for tag, count := range counts {
		if float64(count) >= threshold {
			ranked = append(ranked, tagCount{tag, count})
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].tag < ranked[j].tag
	})

	var tags []string
	for _, tc := range ranked {
		tags = append(tags, tc.tag)
	}

	// Market Maker: opera ambos lados del mismo mercado con frecuencia
	byMarket := make(map[string]map[string]struct{})
	for _, p := range closed {
		if p.ConditionID == "" {
			continue
		}
		if byMarket[p.ConditionID] == nil {
			byMarket[p.ConditionID] = make(map[string]struct{})
		}
		byMarket[p.ConditionID][p.Outcome] = struct{}{}
	}
	if len(byMarket) > 0 {
		bothSides := 0
		for _, outcomes := range byMarket {
			if len(outcomes) > 1 {
				bothSides++
			}
		}
		if float64(bothSides)/float64(len(byMarket)) > marketMakerPct {
			tags = append(tags, "Market Maker")
		}
	}

	// Longshot: entra sistemáticamente a precios muy bajos
	lowPrice := 0
	for _, p := range closed {
		if p.AvgPrice < longshotPrice {
			lowPrice++
		}
	}
	if float64(lowPrice)/float64(total) > longshotPct {
		tags = append(tags, "Longshot")
	}

	if len(tags) == 0 {
		return []string{"Mixed"}
	}
	return tags
}

// ExtractRecentBets devuelve las últimas N posiciones cerradas como resumen
// compacto, más recientes primero.
func ExtractRecentBets(closed []ClosedPosition, n int) []RecentBet {
	if n <= 0 {
		n = recentBetsLimit
	}
	sorted := make([]ClosedPosition, len(closed))
	copy(sorted, closed)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	bets := make([]RecentBet, 0, len(sorted))
	for _, p := range sorted {
		title := p.Title
		if len(title) > 60 {
			title = title[:60]
		}
		cats := ClassifyDomains(p.Title)
		if len(cats) > 2 {
			cats = cats[:2]
		}
		bets = append(bets, RecentBet{
			Title:    title,
			Category: cats,
			Outcome:  p.Outcome,
			AvgPrice: p.AvgPrice,
			PnL:      p.RealizedPnL,
		})
	}
	return bets
}
