package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pos(cid, outcome string, size, price float64) Position {
	return Position{ConditionID: cid, Outcome: outcome, Size: size, CurPrice: price}
}

func TestDiffPositions_Open(t *testing.T) {
	changes := DiffPositions(nil, []Position{pos("c1", "YES", 100, 0.4)})
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeOpen, changes[0].Type)
	assert.Equal(t, 0.0, changes[0].OldSize)
	assert.Equal(t, 100.0, changes[0].NewSize)
	assert.Equal(t, 0.4, changes[0].PriceAtChange)
}

func TestDiffPositions_IncreaseAndDecrease(t *testing.T) {
	prev := []Position{pos("c1", "YES", 100, 0.4), pos("c2", "NO", 50, 0.6)}
	curr := []Position{pos("c1", "YES", 250, 0.45), pos("c2", "NO", 20, 0.55)}

	changes := DiffPositions(prev, curr)
	require.Len(t, changes, 2)

	byCondition := map[string]PositionChange{}
	for _, c := range changes {
		byCondition[c.ConditionID] = c
	}
	assert.Equal(t, ChangeIncrease, byCondition["c1"].Type)
	assert.Equal(t, 100.0, byCondition["c1"].OldSize)
	assert.Equal(t, 250.0, byCondition["c1"].NewSize)
	assert.Equal(t, ChangeDecrease, byCondition["c2"].Type)
}

func TestDiffPositions_Close(t *testing.T) {
	prev := []Position{pos("c1", "YES", 100, 0.4)}
	changes := DiffPositions(prev, nil)
	require.Len(t, changes, 1)
	assert.Equal(t, ChangeClose, changes[0].Type)
	assert.Equal(t, 100.0, changes[0].OldSize)
	assert.Equal(t, 0.0, changes[0].NewSize)
	// precio del CLOSE: último conocido, del snapshot anterior
	assert.Equal(t, 0.4, changes[0].PriceAtChange)
}

func TestDiffPositions_UnchangedProducesNothing(t *testing.T) {
	snapshot := []Position{pos("c1", "YES", 100, 0.4)}
	assert.Empty(t, DiffPositions(snapshot, snapshot))
}

func TestDiffPositions_SameMarketDistinctOutcomes(t *testing.T) {
	// (mercado, outcome) es la identidad: YES y NO del mismo mercado son
	// posiciones independientes
	prev := []Position{pos("c1", "YES", 100, 0.4)}
	curr := []Position{pos("c1", "NO", 80, 0.6)}

	changes := DiffPositions(prev, curr)
	require.Len(t, changes, 2)
	types := map[ChangeType]bool{}
	for _, c := range changes {
		types[c.Type] = true
	}
	assert.True(t, types[ChangeOpen])
	assert.True(t, types[ChangeClose])
}

func TestDiffPositions_EveryPairAccounted(t *testing.T) {
	prev := []Position{
		pos("a", "YES", 10, 0.2),
		pos("b", "YES", 20, 0.3),
		pos("c", "NO", 30, 0.7),
	}
	curr := []Position{
		pos("b", "YES", 25, 0.35), // increase
		pos("c", "NO", 30, 0.7),   // sin cambio
		pos("d", "YES", 5, 0.1),   // open
	}

	changes := DiffPositions(prev, curr)
	require.Len(t, changes, 3)
	seen := map[string]ChangeType{}
	for _, c := range changes {
		seen[c.ConditionID] = c.Type
	}
	assert.Equal(t, ChangeClose, seen["a"])
	assert.Equal(t, ChangeIncrease, seen["b"])
	assert.Equal(t, ChangeOpen, seen["d"])
	assert.NotContains(t, seen, "c")
}

func TestConviction_IncreaseWithPrice(t *testing.T) {
	change := PositionChange{Type: ChangeIncrease, OldSize: 100, NewSize: 250, PriceAtChange: 0.4}
	// |250−100| × 0.4 / 200 = 0.3
	assert.Equal(t, 0.3, Conviction(change, 200))
}

func TestConviction_NoPriceFallsBackToShares(t *testing.T) {
	change := PositionChange{Type: ChangeOpen, OldSize: 0, NewSize: 50, PriceAtChange: 0}
	assert.Equal(t, 0.5, Conviction(change, 100))
}

func TestConviction_UnknownAvgSizeIsNeutral(t *testing.T) {
	change := PositionChange{Type: ChangeOpen, NewSize: 500, PriceAtChange: 0.9}
	assert.Equal(t, 1.0, Conviction(change, 0))
	assert.Equal(t, 1.0, Conviction(change, -3))
}

func TestAggregateTrades_GroupsByMarketAndOutcome(t *testing.T) {
	trades := []TradeFill{
		{ConditionID: "c1", Outcome: "YES", Size: 100, Price: 0.4, Title: "A"},
		{ConditionID: "c1", Outcome: "YES", Size: 50, Price: 0.45},
		{ConditionID: "c1", Outcome: "NO", Size: 30, Price: 0.6},
	}

	positions := AggregateTrades("0xabc", trades)
	require.Len(t, positions, 2)
	assert.Equal(t, "0xabc", positions[0].Wallet)
	assert.Equal(t, 150.0, positions[0].Size)
	assert.Equal(t, "A", positions[0].Title)
	assert.Equal(t, 0.4, positions[0].CurPrice) // precio del primer trade
	assert.Equal(t, 30.0, positions[1].Size)
}
