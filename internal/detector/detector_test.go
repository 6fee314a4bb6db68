package detector_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/whaleradar/internal/adapters/storage"
	"github.com/alejandrodnm/whaleradar/internal/detector"
	"github.com/alejandrodnm/whaleradar/internal/domain"
)

func newStore(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	require.NoError(t, store.ApplySchema(context.Background()))
	t.Cleanup(func() { store.Close() })
	return store
}

func testDetector(store *storage.SQLiteStorage) *detector.Detector {
	return detector.New(store, detector.Config{
		Window:          24 * time.Hour,
		HighThreshold:   15.0,
		MediumThreshold: 8.0,
	})
}

func seedTraders(t *testing.T, store *storage.SQLiteStorage, traders ...domain.Trader) {
	t.Helper()
	require.NoError(t, store.ReplaceTraders(context.Background(), traders))
}

func human(wallet string, score float64) domain.Trader {
	return domain.Trader{
		Wallet:   wallet,
		Username: "trader-" + wallet,
		Score:    score,
		WinRate:  0.7,
		PnL:      10000,
		Type:     domain.TraderHuman,
	}
}

// título sin keywords de categoría: CategoryMatch neutral 1.0
const marketTitle = "Quantum widget shipment arrives on schedule?"

func change(wallet, cid string, typ domain.ChangeType, conviction float64, detectedAt time.Time) domain.PositionChange {
	return domain.PositionChange{
		Wallet:        wallet,
		ConditionID:   cid,
		Title:         marketTitle,
		EventSlug:     "quantum-widget",
		Outcome:       "YES",
		Type:          typ,
		OldSize:       0,
		NewSize:       100,
		PriceAtChange: 0.42,
		Conviction:    conviction,
		DetectedAt:    detectedAt,
	}
}

func TestDetect_CreatesTier1SignalOnConsensus(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	seedTraders(t, store, human("0xw1", 5.0), human("0xw2", 5.0))

	recent := time.Now().UTC().Add(-1 * time.Hour) // frescura 2.0
	require.NoError(t, store.InsertChanges(ctx, []domain.PositionChange{
		change("0xw1", "0xc1", domain.ChangeOpen, 1.0, recent),
		change("0xw2", "0xc1", domain.ChangeIncrease, 1.0, recent),
	}))

	touched, err := testDetector(store).Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, touched)

	signals, err := store.SignalsByStatus(ctx, domain.SignalActive)
	require.NoError(t, err)
	require.Len(t, signals, 1)

	s := signals[0]
	assert.Equal(t, "0xc1", s.ConditionID)
	assert.Equal(t, "YES", s.Direction)
	assert.Equal(t, marketTitle, s.MarketTitle)
	// 2 × (5.0 × 1.0 convicción × 1.0 categoría × 2.0 frescura) = 20
	assert.InDelta(t, 20.0, s.Score, 0.001)
	assert.Equal(t, 1, s.Tier)
	assert.Len(t, s.Contributors, 2)
	assert.InDelta(t, 0.42, s.CurrentPrice, 0.001)
	assert.False(t, s.Sent)
}

func TestDetect_RefreshesLiveSignalAndResetsSent(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	seedTraders(t, store, human("0xw1", 5.0), human("0xw2", 5.0), human("0xw3", 5.0))

	recent := time.Now().UTC().Add(-1 * time.Hour)
	require.NoError(t, store.InsertChanges(ctx, []domain.PositionChange{
		change("0xw1", "0xc1", domain.ChangeOpen, 1.0, recent),
		change("0xw2", "0xc1", domain.ChangeOpen, 1.0, recent),
	}))

	d := testDetector(store)
	_, err := d.Detect(ctx)
	require.NoError(t, err)

	signals, err := store.SignalsByStatus(ctx, domain.SignalActive)
	require.NoError(t, err)
	require.Len(t, signals, 1)
	require.NoError(t, store.MarkSignalSent(ctx, signals[0].ID))

	// un tercer trader se suma al mismo mercado
	require.NoError(t, store.InsertChanges(ctx, []domain.PositionChange{
		change("0xw3", "0xc1", domain.ChangeOpen, 1.0, recent.Add(30*time.Minute)),
	}))
	_, err = d.Detect(ctx)
	require.NoError(t, err)

	refreshed, err := store.SignalsByStatus(ctx, domain.SignalActive)
	require.NoError(t, err)
	require.Len(t, refreshed, 1, "se actualiza la señal viva, no se crea otra")

	s := refreshed[0]
	assert.Equal(t, signals[0].ID, s.ID)
	assert.InDelta(t, 30.0, s.Score, 0.001)
	assert.GreaterOrEqual(t, s.PeakScore, s.Score)
	assert.Len(t, s.Contributors, 3)
	assert.False(t, s.Sent, "un refresh reactiva la alerta")
}

func TestDetect_NoSignalWithoutHumans(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	algo := human("0xbot", 5.0)
	algo.Type = domain.TraderAlgo
	algo2 := human("0xbot2", 5.0)
	algo2.Type = domain.TraderAlgo
	seedTraders(t, store, algo, algo2)

	recent := time.Now().UTC().Add(-1 * time.Hour)
	require.NoError(t, store.InsertChanges(ctx, []domain.PositionChange{
		change("0xbot", "0xc1", domain.ChangeOpen, 2.0, recent),
		change("0xbot2", "0xc1", domain.ChangeOpen, 2.0, recent),
	}))

	touched, err := testDetector(store).Detect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, touched)

	signals, err := store.SignalsByStatus(ctx, domain.SignalActive)
	require.NoError(t, err)
	assert.Empty(t, signals)
}

func TestDetect_ExitsWeakenAndCloseSignals(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	seedTraders(t, store, human("0xw1", 5.0), human("0xw2", 5.0))

	recent := time.Now().UTC().Add(-2 * time.Hour)
	require.NoError(t, store.InsertChanges(ctx, []domain.PositionChange{
		change("0xw1", "0xc1", domain.ChangeOpen, 1.0, recent),
		change("0xw2", "0xc1", domain.ChangeOpen, 1.0, recent),
	}))

	d := testDetector(store)
	_, err := d.Detect(ctx)
	require.NoError(t, err)

	live, err := store.SignalsByStatus(ctx, domain.SignalActive)
	require.NoError(t, err)
	require.Len(t, live, 1)
	require.NoError(t, store.MarkSignalSent(ctx, live[0].ID))

	// uno de los dos sale: la dirección se rompe y la señal se debilita
	exit := change("0xw1", "0xc1", domain.ChangeDecrease, 1.0, time.Now().UTC().Add(-10*time.Minute))
	require.NoError(t, store.InsertChanges(ctx, []domain.PositionChange{exit}))
	_, err = d.Detect(ctx)
	require.NoError(t, err)

	weakening, err := store.SignalsByStatus(ctx, domain.SignalWeakening)
	require.NoError(t, err)
	require.Len(t, weakening, 1)
	assert.False(t, weakening[0].Sent, "el cambio de estado reactiva la alerta")

	// sale también el segundo: todos fuera, señal cerrada
	exit2 := change("0xw2", "0xc1", domain.ChangeClose, 1.0, time.Now().UTC().Add(-5*time.Minute))
	require.NoError(t, store.InsertChanges(ctx, []domain.PositionChange{exit2}))
	_, err = d.Detect(ctx)
	require.NoError(t, err)

	closed, err := store.SignalsByStatus(ctx, domain.SignalClosed)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, live[0].ID, closed[0].ID)
}
