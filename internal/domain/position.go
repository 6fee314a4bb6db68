package domain

import (
	"math"
	"time"
)

// Position es una posición abierta de un trader en un instante concreto
// (un snapshot). La clave de identidad es (ConditionID, Outcome).
type Position struct {
	Wallet       string
	ConditionID  string
	Title        string
	Slug         string
	EventSlug    string
	Outcome      string // "YES" | "NO"
	Size         float64
	AvgPrice     float64
	CurrentValue float64
	CurPrice     float64
	ScannedAt    time.Time
}

// ChangeType es el tipo de evento producido por el diff de snapshots.
type ChangeType string

const (
	ChangeOpen     ChangeType = "OPEN"
	ChangeIncrease ChangeType = "INCREASE"
	ChangeDecrease ChangeType = "DECREASE"
	ChangeClose    ChangeType = "CLOSE"
)

// Bullish indica si el cambio es de acumulación (OPEN/INCREASE) en vez de
// salida (DECREASE/CLOSE).
func (c ChangeType) Bullish() bool {
	return c == ChangeOpen || c == ChangeIncrease
}

// PositionChange es un evento derivado de comparar dos snapshots consecutivos
// del mismo trader.
type PositionChange struct {
	Wallet        string
	ConditionID   string
	Title         string
	Slug          string
	EventSlug     string
	Outcome       string
	Type          ChangeType
	OldSize       float64
	NewSize       float64
	PriceAtChange float64
	Conviction    float64
	DetectedAt    time.Time
}

type positionKey struct {
	conditionID string
	outcome     string
}

// DiffPositions compara el snapshot anterior y el actual de un trader y
// devuelve los eventos: OPEN (nueva), INCREASE/DECREASE (cambio de tamaño),
// CLOSE (desaparecida). Tamaño idéntico no produce evento. El precio de un
// CLOSE es el último conocido, del snapshot anterior.
func DiffPositions(previous, current []Position) []PositionChange {
	prevMap := make(map[positionKey]Position, len(previous))
	for _, p := range previous {
		prevMap[positionKey{p.ConditionID, p.Outcome}] = p
	}
	currMap := make(map[positionKey]Position, len(current))
	for _, c := range current {
		currMap[positionKey{c.ConditionID, c.Outcome}] = c
	}

	var changes []PositionChange

	for _, cur := range current {
		key := positionKey{cur.ConditionID, cur.Outcome}
		prev, existed := prevMap[key]
		switch {
		case !existed:
			changes = append(changes, buildChange(cur, ChangeOpen, 0, cur.Size))
		case cur.Size > prev.Size:
			changes = append(changes, buildChange(cur, ChangeIncrease, prev.Size, cur.Size))
		case cur.Size < prev.Size:
			changes = append(changes, buildChange(cur, ChangeDecrease, prev.Size, cur.Size))
		}
	}

	for _, prev := range previous {
		if _, still := currMap[positionKey{prev.ConditionID, prev.Outcome}]; !still {
			changes = append(changes, buildChange(prev, ChangeClose, prev.Size, 0))
		}
	}

	return changes
}

func buildChange(p Position, typ ChangeType, oldSize, newSize float64) PositionChange {
	return PositionChange{
		Wallet:        p.Wallet,
		ConditionID:   p.ConditionID,
		Title:         p.Title,
		Slug:          p.Slug,
		EventSlug:     p.EventSlug,
		Outcome:       p.Outcome,
		Type:          typ,
		OldSize:       oldSize,
		NewSize:       newSize,
		PriceAtChange: p.CurPrice,
	}
}

// Conviction mide el tamaño del movimiento relativo al tamaño típico del
// trader: |Δsize| × precio (o |Δsize| a secas si no hay precio) entre el
// tamaño medio de posición. Sin tamaño medio conocido devuelve 1.0 neutral.
func Conviction(change PositionChange, avgPositionSize float64) float64 {
	if avgPositionSize <= 0 {
		return 1.0
	}
	delta := math.Abs(change.NewSize - change.OldSize)
	dollarDelta := delta
	if change.PriceAtChange > 0 {
		dollarDelta = delta * change.PriceAtChange
	}
	return math.Round(dollarDelta/avgPositionSize*10000) / 10000
}

// AggregateTrades agrega un historial de trades en posiciones sintéticas por
// (mercado, outcome). Se usa para dar un snapshot base a un trader recién
// incorporado al watchlist, evitando una ola de falsos OPEN en su primer scan.
func AggregateTrades(wallet string, trades []TradeFill) []Position {
	byKey := make(map[positionKey]*Position)
	var order []positionKey

	for _, t := range trades {
		key := positionKey{t.ConditionID, t.Outcome}
		p, ok := byKey[key]
		if !ok {
			p = &Position{
				Wallet:      wallet,
				ConditionID: t.ConditionID,
				Title:       t.Title,
				Slug:        t.Slug,
				EventSlug:   t.EventSlug,
				Outcome:     t.Outcome,
				CurPrice:    t.Price,
			}
			byKey[key] = p
			order = append(order, key)
		}
		p.Size += t.Size
	}

	positions := make([]Position, 0, len(order))
	for _, key := range order {
		positions = append(positions, *byKey[key])
	}
	return positions
}

// TradeFill es un trade individual del historial de un wallet.
type TradeFill struct {
	ConditionID string
	Title       string
	Slug        string
	EventSlug   string
	Outcome     string
	Side        string // "BUY" | "SELL"
	Price       float64
	Size        float64
	Timestamp   time.Time
}
