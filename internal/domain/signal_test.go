package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testFreshnessTiers = []FreshnessTier{
	{2 * time.Hour, 2.0},
	{6 * time.Hour, 1.5},
	{24 * time.Hour, 1.0},
	{48 * time.Hour, 0.5},
}

func TestFreshness_Tiers(t *testing.T) {
	now := time.Now()
	tests := []struct {
		age  time.Duration
		want float64
	}{
		{30 * time.Minute, 2.0},
		{3 * time.Hour, 1.5},
		{12 * time.Hour, 1.0},
		{36 * time.Hour, 0.5},
		{72 * time.Hour, 0.0},
	}
	for _, tc := range tests {
		got := Freshness(now.Add(-tc.age), now, testFreshnessTiers)
		assert.Equal(t, tc.want, got, "age %v", tc.age)
	}
}

func TestFreshness_ZeroTimestampIsNeutral(t *testing.T) {
	assert.Equal(t, 0.5, Freshness(time.Time{}, time.Now(), testFreshnessTiers))
}

func TestCategoryMatch(t *testing.T) {
	scores := map[string]float64{"POLITICS": 3.2, "SPORTS": 0}
	assert.Equal(t, 1.5, CategoryMatch(scores, "POLITICS"))
	assert.Equal(t, 1.0, CategoryMatch(scores, "SPORTS")) // score 0 no cuenta
	assert.Equal(t, 1.0, CategoryMatch(scores, "CRYPTO"))
	assert.Equal(t, 1.0, CategoryMatch(scores, ""))
}

func TestSignalScore_SumsContributions(t *testing.T) {
	contributors := []Contributor{
		{TraderScore: 5, Conviction: 1.2, CategoryMatch: 1.5, Freshness: 2.0}, // 18
		{TraderScore: 2, Conviction: 0.5, CategoryMatch: 1.0, Freshness: 1.0}, // 1
	}
	assert.Equal(t, 19.0, SignalScore(contributors))
}

func TestDetermineTier_RequiresHuman(t *testing.T) {
	algos := []Contributor{{TraderType: TraderAlgo}, {TraderType: TraderAlgo}}
	assert.Equal(t, 0, DetermineTier(algos, 100, 15, 8))

	unknowns := []Contributor{{TraderType: TraderUnknown}}
	assert.Equal(t, 0, DetermineTier(unknowns, 100, 15, 8))
}

func TestDetermineTier_Tier1NeedsTwoHumans(t *testing.T) {
	twoHumans := []Contributor{{TraderType: TraderHuman}, {TraderType: TraderHuman}}
	assert.Equal(t, 1, DetermineTier(twoHumans, 15.01, 15, 8))

	// un solo HUMAN nunca llega a tier 1, aunque el score sobre
	oneHuman := []Contributor{{TraderType: TraderHuman}, {TraderType: TraderAlgo}}
	assert.Equal(t, 2, DetermineTier(oneHuman, 50, 15, 8))
}

func TestDetermineTier_ThresholdsAreStrict(t *testing.T) {
	twoHumans := []Contributor{{TraderType: TraderHuman}, {TraderType: TraderHuman}}
	// score == umbral no cruza: cae al siguiente tier
	assert.Equal(t, 2, DetermineTier(twoHumans, 15.0, 15, 8))
	assert.Equal(t, 0, DetermineTier(twoHumans, 8.0, 15, 8))
	assert.Equal(t, 2, DetermineTier(twoHumans, 8.0001, 15, 8))
}

func TestConsensus_BullishAgreement(t *testing.T) {
	changes := []PositionChange{
		{Wallet: "w1", Type: ChangeOpen, Outcome: "YES"},
		{Wallet: "w2", Type: ChangeIncrease, Outcome: "YES"},
		{Wallet: "w1", Type: ChangeIncrease, Outcome: "YES"},
	}
	direction, bullish, ok := Consensus(changes)
	require.True(t, ok)
	assert.Equal(t, "YES", direction)
	assert.ElementsMatch(t, []string{"w1", "w2"}, bullish)
}

func TestConsensus_MixedOutcomesAborts(t *testing.T) {
	changes := []PositionChange{
		{Wallet: "w1", Type: ChangeOpen, Outcome: "YES"},
		{Wallet: "w2", Type: ChangeOpen, Outcome: "NO"},
	}
	_, _, ok := Consensus(changes)
	assert.False(t, ok)
}

func TestConsensus_AnyExitAborts(t *testing.T) {
	changes := []PositionChange{
		{Wallet: "w1", Type: ChangeOpen, Outcome: "YES"},
		{Wallet: "w2", Type: ChangeClose, Outcome: "YES"},
	}
	_, _, ok := Consensus(changes)
	assert.False(t, ok)
}

func TestConsensus_OnlyExitsAborts(t *testing.T) {
	changes := []PositionChange{
		{Wallet: "w1", Type: ChangeDecrease, Outcome: "YES"},
	}
	_, _, ok := Consensus(changes)
	assert.False(t, ok)
}

func TestDecay_AllExitedCloses(t *testing.T) {
	s := Signal{
		Status:       SignalActive,
		Contributors: []Contributor{{Wallet: "w1"}, {Wallet: "w2"}},
	}
	next, changed := Decay(s, map[string]struct{}{"w1": {}, "w2": {}})
	require.True(t, changed)
	assert.Equal(t, SignalClosed, next)
}

func TestDecay_SubsetExitedWeakens(t *testing.T) {
	s := Signal{
		Status:       SignalActive,
		Contributors: []Contributor{{Wallet: "w1"}, {Wallet: "w2"}},
	}
	next, changed := Decay(s, map[string]struct{}{"w1": {}})
	require.True(t, changed)
	assert.Equal(t, SignalWeakening, next)
}

func TestDecay_NoExitsNoChange(t *testing.T) {
	s := Signal{
		Status:       SignalActive,
		Contributors: []Contributor{{Wallet: "w1"}},
	}
	_, changed := Decay(s, map[string]struct{}{"other": {}})
	assert.False(t, changed)
}

func TestDecay_AlreadyWeakeningIdempotent(t *testing.T) {
	s := Signal{
		Status:       SignalWeakening,
		Contributors: []Contributor{{Wallet: "w1"}, {Wallet: "w2"}},
	}
	_, changed := Decay(s, map[string]struct{}{"w1": {}})
	assert.False(t, changed)
}

func TestSignalStatus_Transitions(t *testing.T) {
	assert.True(t, SignalActive.CanTransition(SignalWeakening))
	assert.True(t, SignalWeakening.CanTransition(SignalActive))
	assert.True(t, SignalActive.CanTransition(SignalResolved))
	assert.False(t, SignalClosed.CanTransition(SignalResolved))
	assert.False(t, SignalResolved.CanTransition(SignalActive))
}

func TestResolutionPnL(t *testing.T) {
	// entrada 0.40 acertada: (1−0.4)/0.4 = +150%
	assert.InDelta(t, 1.5, ResolutionPnL("YES", 0.40, "YES"), 1e-9)
	assert.Equal(t, -1.0, ResolutionPnL("YES", 0.40, "NO"))
	// precios degenerados no producen P&L
	assert.Equal(t, 0.0, ResolutionPnL("YES", 0, "YES"))
	assert.Equal(t, 0.0, ResolutionPnL("YES", 1.0, "YES"))
	assert.Equal(t, 0.0, ResolutionPnL("NO", -0.2, "NO"))
}

func TestStrategyFilter(t *testing.T) {
	filter := StrategyFilter{
		MaxTier:  2,
		MinPrice: 0.10,
		MaxPrice: 0.85,
		ExcludedCategories: map[string]struct{}{
			"CRYPTO": {}, "CULTURE": {}, "FINANCE": {},
		},
	}

	good := Signal{Tier: 1, CurrentPrice: 0.40, MarketTitle: "Will the incumbent win the election?"}
	passed, _ := filter.Passes(good)
	assert.True(t, passed)

	cheap := good
	cheap.CurrentPrice = 0.05
	passed, reason := filter.Passes(cheap)
	assert.False(t, passed)
	assert.Equal(t, "price outside band", reason)

	crypto := good
	crypto.MarketTitle = "Will Bitcoin hit $200k?"
	passed, reason = filter.Passes(crypto)
	assert.False(t, passed)
	assert.Equal(t, "excluded category", reason)

	lowTier := good
	lowTier.Tier = 3
	passed, _ = filter.Passes(lowTier)
	assert.False(t, passed)
}
