package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func closedAt(pnl, bought float64, ts time.Time) ClosedPosition {
	return ClosedPosition{RealizedPnL: pnl, TotalBought: bought, Timestamp: ts, Outcome: "YES", AvgPrice: 0.5}
}

func TestWinRate(t *testing.T) {
	closed := []ClosedPosition{
		{RealizedPnL: 10}, {RealizedPnL: -5}, {RealizedPnL: 3}, {RealizedPnL: 0},
	}
	assert.Equal(t, 0.5, WinRate(closed)) // PnL 0 no es win
	assert.Equal(t, 0.0, WinRate(nil))
}

func TestROI(t *testing.T) {
	closed := []ClosedPosition{
		{RealizedPnL: 50, TotalBought: 100},
		{RealizedPnL: -25, TotalBought: 100},
	}
	assert.Equal(t, 0.125, ROI(closed))
	assert.Equal(t, 0.0, ROI(nil))
}

func TestConsistency(t *testing.T) {
	// 0.6 × log2(32) = 3.0
	assert.InDelta(t, 3.0, Consistency(0.6, 32), 1e-9)
	assert.Equal(t, 0.0, Consistency(0.9, 1))
	assert.Equal(t, 0.0, Consistency(0.9, 0))
}

func TestTimingQuality_OnlyWinners(t *testing.T) {
	closed := []ClosedPosition{
		{RealizedPnL: 10, Outcome: "YES", AvgPrice: 0.30}, // edge 0.70
		{RealizedPnL: 5, Outcome: "NO", AvgPrice: 0.40},   // edge 0.40
		{RealizedPnL: -8, Outcome: "YES", AvgPrice: 0.05}, // perdedora, fuera
	}
	assert.InDelta(t, 0.55, TimingQuality(closed), 1e-9)
	assert.Equal(t, 0.0, TimingQuality(nil))
}

func TestMedianPositionSize(t *testing.T) {
	odd := []ClosedPosition{
		{TotalBought: 10}, {TotalBought: 100}, {TotalBought: 30},
	}
	assert.Equal(t, 30.0, MedianPositionSize(odd))

	even := append(odd, ClosedPosition{TotalBought: 50})
	assert.Equal(t, 40.0, MedianPositionSize(even))

	assert.Equal(t, 0.0, MedianPositionSize(nil))
}

func TestCategoryScores_RequiresSample(t *testing.T) {
	var closed []ClosedPosition
	for i := 0; i < 12; i++ {
		closed = append(closed, ClosedPosition{
			Title:       "Will Trump win the election?",
			RealizedPnL: 10,
			TotalBought: 20,
		})
	}
	// solo 3 posiciones de deportes: sin muestra, sin score
	for i := 0; i < 3; i++ {
		closed = append(closed, ClosedPosition{
			Title:       "Will the Lakers win the NBA championship?",
			RealizedPnL: 5,
			TotalBought: 10,
		})
	}

	scores := CategoryScores(closed)
	assert.Contains(t, scores, "POLITICS")
	assert.NotContains(t, scores, "SPORTS")
	assert.Greater(t, scores["POLITICS"], 0.0)
}

func TestClassifyTraderType_SmallSampleUnknown(t *testing.T) {
	closed := []ClosedPosition{{RealizedPnL: 1}, {RealizedPnL: 2}}
	typ, signals := ClassifyTraderType(closed, 100, 500)
	assert.Equal(t, TraderUnknown, typ)
	assert.Empty(t, signals)
}

func TestClassifyTraderType_HumanByDefault(t *testing.T) {
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	var closed []ClosedPosition
	// tamaños variados, horario diurno, pocos mercados: perfil humano
	sizes := []float64{10, 80, 25, 300, 45, 12, 150, 60}
	for i, size := range sizes {
		closed = append(closed, ClosedPosition{
			ConditionID: fmt.Sprintf("c%d", i%3),
			RealizedPnL: 5,
			TotalBought: size,
			Timestamp:   base.AddDate(0, 0, i*7),
		})
	}
	typ, _ := ClassifyTraderType(closed, 40, 700)
	assert.Equal(t, TraderHuman, typ)
}

func TestClassifyTraderType_AlgoByEnsemble(t *testing.T) {
	base := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	var closed []ClosedPosition
	// 240 posiciones de tamaño uniforme, todas ganadas, repartidas 24/7 y
	// en muchos mercados: dispara varias señales a la vez
	for i := 0; i < 240; i++ {
		closed = append(closed, ClosedPosition{
			ConditionID: fmt.Sprintf("c%d", i),
			RealizedPnL: 1,
			TotalBought: 10,
			Timestamp:   base.Add(time.Duration(i) * time.Hour),
		})
	}
	typ, signals := ClassifyTraderType(closed, 100, 5000)
	assert.Equal(t, TraderAlgo, typ)
	assert.GreaterOrEqual(t, len(signals), 2)
	assert.Contains(t, signals, "high_volume")
	assert.Contains(t, signals, "uniform_sizes")
}

func TestTraderScore_ProductForm(t *testing.T) {
	assert.Equal(t, 0.0, TraderScore(0, 5, 0.8))
	assert.InDelta(t, 0.5*3*1.5, TraderScore(0.5, 3, 0.5), 1e-9)
}

func TestDetectDomainTags_ThresholdAndParents(t *testing.T) {
	var closed []ClosedPosition
	for i := 0; i < 8; i++ {
		closed = append(closed, ClosedPosition{
			ConditionID: fmt.Sprintf("nba%d", i),
			Title:       "Will the Lakers beat the Celtics?",
			Outcome:     "YES",
			AvgPrice:    0.5,
		})
	}
	closed = append(closed, ClosedPosition{
		ConditionID: "x1",
		Title:       "Unrelated market nobody can classify",
		Outcome:     "YES",
		AvgPrice:    0.5,
	})

	tags := DetectDomainTags(closed)
	assert.Contains(t, tags, "NBA")
	assert.Contains(t, tags, "Sports") // el hijo arrastra al padre
}

func TestDetectDomainTags_MarketMaker(t *testing.T) {
	var closed []ClosedPosition
	for i := 0; i < 10; i++ {
		closed = append(closed,
			ClosedPosition{ConditionID: fmt.Sprintf("m%d", i), Outcome: "YES", AvgPrice: 0.5},
			ClosedPosition{ConditionID: fmt.Sprintf("m%d", i), Outcome: "NO", AvgPrice: 0.5},
		)
	}
	tags := DetectDomainTags(closed)
	assert.Contains(t, tags, "Market Maker")
}

func TestDetectDomainTags_Longshot(t *testing.T) {
	var closed []ClosedPosition
	for i := 0; i < 10; i++ {
		closed = append(closed, ClosedPosition{
			ConditionID: fmt.Sprintf("c%d", i), Outcome: "YES", AvgPrice: 0.08,
		})
	}
	tags := DetectDomainTags(closed)
	assert.Contains(t, tags, "Longshot")
}

func TestDetectDomainTags_NoMatchIsMixed(t *testing.T) {
	closed := []ClosedPosition{
		{ConditionID: "c1", Title: "zzz", Outcome: "YES", AvgPrice: 0.5},
	}
	assert.Equal(t, []string{"Mixed"}, DetectDomainTags(closed))
}

func TestExtractRecentBets_MostRecentFirstTruncated(t *testing.T) {
	base := time.Now()
	var closed []ClosedPosition
	for i := 0; i < 15; i++ {
		closed = append(closed, ClosedPosition{
			Title:     fmt.Sprintf("Market %d with a fairly long descriptive title that keeps going on", i),
			Outcome:   "YES",
			AvgPrice:  0.5,
			Timestamp: base.Add(time.Duration(i) * time.Hour),
		})
	}

	bets := ExtractRecentBets(closed, 10)
	require.Len(t, bets, 10)
	assert.Contains(t, bets[0].Title, "Market 14")
	assert.LessOrEqual(t, len(bets[0].Title), 60)
}

func TestKeywordMatch_WordBoundaries(t *testing.T) {
	// "eth" no debe colarse dentro de "whether"
	assert.Equal(t, "", ClassifyCategory("Whether it rains or not"))
	assert.Equal(t, "CRYPTO", ClassifyCategory("Will ETH reach $10k?"))
	// keywords largos siguen siendo substring
	assert.Equal(t, "POLITICS", ClassifyCategory("Presidential approval above 50%?"))
	// "ai" como palabra suelta cuenta, dentro de otra palabra no
	assert.Equal(t, "TECH", ClassifyCategory("Will AI pass the bar exam?"))
	assert.Equal(t, "", ClassifyCategory("Ukraine ceasefire holds through June?"))
}

func TestClassifyDomains_SortedWithParents(t *testing.T) {
	tags := ClassifyDomains("Will the Chiefs win the Super Bowl?")
	assert.Contains(t, tags, "NFL")
	assert.Contains(t, tags, "Sports")
	assert.IsIncreasing(t, tags)
}
