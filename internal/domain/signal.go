package domain

import (
	"math"
	"time"
)

// SignalStatus es el estado del ciclo de vida de una señal.
type SignalStatus string

const (
	SignalActive    SignalStatus = "ACTIVE"
	SignalWeakening SignalStatus = "WEAKENING"
	SignalClosed    SignalStatus = "CLOSED"
	SignalResolved  SignalStatus = "RESOLVED"
)

// Transiciones válidas del ciclo de vida. RESOLVED y CLOSED son terminales:
// la resolución de un mercado con señal ya CLOSED se anota en la fila sin
// tocar el estado.
var signalTransitions = map[SignalStatus][]SignalStatus{
	SignalActive:    {SignalWeakening, SignalClosed, SignalResolved},
	SignalWeakening: {SignalActive, SignalClosed, SignalResolved},
}

// CanTransition indica si el paso from→to es válido.
func (s SignalStatus) CanTransition(to SignalStatus) bool {
	for _, t := range signalTransitions[s] {
		if t == to {
			return true
		}
	}
	return false
}

// Contributor es un trader que participa en una señal, con el mejor cambio
// que aportó y los factores con los que entró al score. Se persiste como
// JSON dentro de la fila de la señal.
type Contributor struct {
	Wallet        string      `json:"wallet_address"`
	Username      string      `json:"username"`
	TraderScore   float64     `json:"trader_score"`
	WinRate       float64     `json:"win_rate"`
	PnL           float64     `json:"pnl"`
	TraderType    TraderType  `json:"trader_type"`
	DomainTags    []string    `json:"domain_tags"`
	RecentBets    []RecentBet `json:"recent_bets"`
	Conviction    float64     `json:"conviction"`
	ChangeType    ChangeType  `json:"change_type"`
	Size          float64     `json:"size"`
	CategoryMatch float64     `json:"category_match"`
	Freshness     float64     `json:"freshness"`
	DetectedAt    time.Time   `json:"detected_at"`
}

// Signal es una convergencia direccional detectada: varios traders del
// watchlist moviéndose hacia el mismo outcome del mismo mercado dentro de la
// ventana.
type Signal struct {
	ID                int64
	ConditionID       string
	MarketTitle       string
	MarketSlug        string
	Direction         string // "YES" | "NO"
	Score             float64
	PeakScore         float64
	Tier              int
	Status            SignalStatus
	Contributors      []Contributor
	CurrentPrice      float64
	Sent              bool
	ResolvedAt        time.Time
	ResolutionOutcome string
	ResolutionSent    bool
	PnLPercent        float64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// FreshnessTier es un escalón de decaimiento temporal: multiplicador que se
// aplica a cambios de menos de MaxAge de antigüedad.
type FreshnessTier struct {
	MaxAge     time.Duration
	Multiplier float64
}

// Freshness devuelve el multiplicador del primer escalón (en orden de edad
// creciente) en el que cae el cambio; más viejo que todos ⇒ 0.
func Freshness(detectedAt, now time.Time, tiers []FreshnessTier) float64 {
	if detectedAt.IsZero() {
		return 0.5
	}
	age := now.Sub(detectedAt)
	for _, t := range tiers {
		if age < t.MaxAge {
			return t.Multiplier
		}
	}
	return 0.0
}

// CategoryMatch devuelve 1.5 si el trader tiene edge demostrado (score > 0)
// en la categoría del mercado, 1.0 en otro caso.
func CategoryMatch(categoryScores map[string]float64, marketCategory string) float64 {
	if marketCategory == "" {
		return 1.0
	}
	if score, ok := categoryScores[marketCategory]; ok && score > 0 {
		return 1.5
	}
	return 1.0
}

// SignalScore suma la contribución de cada trader:
// traderScore × conviction × categoryMatch × freshness.
func SignalScore(contributors []Contributor) float64 {
	var total float64
	for _, c := range contributors {
		total += c.TraderScore * c.Conviction * c.CategoryMatch * c.Freshness
	}
	return math.Round(total*10000) / 10000
}

// DetermineTier asigna el tier de la señal. Solo los traders HUMAN cuentan
// para el quórum; una señal sin ningún HUMAN no se crea (tier 0).
// Tier 1: ≥2 HUMAN y score estrictamente mayor que el umbral alto.
// Tier 2: ≥1 HUMAN y score estrictamente mayor que el umbral medio.
func DetermineTier(contributors []Contributor, score, highThreshold, mediumThreshold float64) int {
	humans := 0
	for _, c := range contributors {
		if c.TraderType == TraderHuman {
			humans++
		}
	}
	if humans == 0 {
		return 0
	}
	if humans >= 2 && score > highThreshold {
		return 1
	}
	if score > mediumThreshold {
		return 2
	}
	return 0
}

// Consensus examina los cambios de un mercado y decide si hay convergencia
// direccional. Devuelve (outcome, wallets alcistas, true) solo si hay al
// menos un wallet acumulando, ninguno saliendo, y todos los cambios alcistas
// apuntan al mismo outcome. Outcomes mezclados o desacuerdo ⇒ sin señal.
func Consensus(changes []PositionChange) (direction string, bullish []string, ok bool) {
	bullishSet := make(map[string]struct{})
	bearishSet := make(map[string]struct{})
	outcomes := make(map[string]struct{})

	for _, c := range changes {
		if c.Type.Bullish() {
			bullishSet[c.Wallet] = struct{}{}
			outcomes[c.Outcome] = struct{}{}
		} else {
			bearishSet[c.Wallet] = struct{}{}
		}
	}

	if len(outcomes) > 1 {
		return "", nil, false
	}
	if len(bullishSet) == 0 || len(bearishSet) > 0 {
		return "", nil, false
	}

	direction = "YES"
	for o := range outcomes {
		if o != "" {
			direction = o
		}
	}
	for _, c := range changes {
		if !c.Type.Bullish() {
			continue
		}
		if _, seen := bullishSet[c.Wallet]; seen {
			bullish = append(bullish, c.Wallet)
			delete(bullishSet, c.Wallet)
		}
	}
	return direction, bullish, true
}

// Decay calcula el nuevo estado de una señal cuando algunos de sus traders
// salen del mercado (DECREASE/CLOSE). Todos fuera ⇒ CLOSED; algunos ⇒
// WEAKENING; ninguno ⇒ sin cambio ("" como segundo valor false).
func Decay(s Signal, exitingWallets map[string]struct{}) (SignalStatus, bool) {
	involved := make(map[string]struct{}, len(s.Contributors))
	for _, c := range s.Contributors {
		involved[c.Wallet] = struct{}{}
	}

	remaining := 0
	for w := range involved {
		if _, exiting := exitingWallets[w]; !exiting {
			remaining++
		}
	}

	var next SignalStatus
	switch {
	case remaining == 0:
		next = SignalClosed
	case remaining < len(involved):
		next = SignalWeakening
	default:
		return "", false
	}

	if next == s.Status {
		return "", false
	}
	return next, true
}

// ResolutionPnL es el P&L fraccional de la señal al resolverse el mercado:
// acierto ⇒ (1−entrada)/entrada, fallo ⇒ −1. Precio de entrada fuera de
// (0, 1) ⇒ 0 (dato inválido, no se especula).
func ResolutionPnL(direction string, entryPrice float64, resolution string) float64 {
	if entryPrice <= 0 || entryPrice >= 1 {
		return 0
	}
	if direction == resolution {
		return (1.0 - entryPrice) / entryPrice
	}
	return -1.0
}

// StrategyFilter decide si una señal pasa los criterios de la estrategia
// operable: tier suficiente, precio de entrada dentro de la banda, y
// categoría del mercado fuera de la lista de excluidas.
type StrategyFilter struct {
	MaxTier            int
	MinPrice           float64
	MaxPrice           float64
	ExcludedCategories map[string]struct{}
}

// Passes aplica el filtro. El motivo de rechazo sale como string vacío si
// la señal pasa.
func (f StrategyFilter) Passes(s Signal) (bool, string) {
	if s.Tier > f.MaxTier {
		return false, "tier too low"
	}
	if s.CurrentPrice < f.MinPrice || s.CurrentPrice > f.MaxPrice {
		return false, "price outside band"
	}
	if cat := ClassifyCategory(s.MarketTitle); cat != "" {
		if _, excluded := f.ExcludedCategories[cat]; excluded {
			return false, "excluded category"
		}
	}
	return true, ""
}
