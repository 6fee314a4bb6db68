package scanner_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
	"github.com/alejandrodnm/whaleradar/internal/scanner"
)

type fakeData struct {
	positions map[string][]domain.Position
	trades    map[string][]domain.TradeFill
}

func (f *fakeData) Leaderboard(_ context.Context, _ string, _ int) ([]ports.LeaderboardEntry, error) {
	return nil, nil
}

func (f *fakeData) Positions(_ context.Context, wallet string) ([]domain.Position, error) {
	return f.positions[wallet], nil
}

func (f *fakeData) Activity(_ context.Context, _ string, _ int) ([]ports.ActivityEvent, error) {
	return nil, nil
}

func (f *fakeData) Trades(_ context.Context, wallet string, _ int) ([]domain.TradeFill, error) {
	return f.trades[wallet], nil
}

// fakeStore implementa solo lo que el scanner toca del Storage.
type fakeStore struct {
	ports.Storage
	traders   []domain.Trader
	snapshots map[string][]domain.Position // nil = wallet nunca escaneado
	inserted  []domain.PositionChange
	saved     map[string][]domain.Position
}

func (s *fakeStore) GetTraders(_ context.Context) ([]domain.Trader, error) {
	return s.traders, nil
}

func (s *fakeStore) LatestSnapshots(_ context.Context, wallet string) ([]domain.Position, error) {
	return s.snapshots[wallet], nil
}

func (s *fakeStore) InsertChanges(_ context.Context, changes []domain.PositionChange) error {
	s.inserted = append(s.inserted, changes...)
	return nil
}

func (s *fakeStore) SaveSnapshots(_ context.Context, wallet string, positions []domain.Position, _ time.Time) error {
	if s.saved == nil {
		s.saved = map[string][]domain.Position{}
	}
	s.saved[wallet] = positions
	return nil
}

func position(wallet, cid string, size, price float64) domain.Position {
	return domain.Position{
		Wallet:      wallet,
		ConditionID: cid,
		Title:       "Will it resolve?",
		Outcome:     "YES",
		Size:        size,
		CurPrice:    price,
	}
}

func TestScanAll_DiffsAgainstLatestSnapshot(t *testing.T) {
	store := &fakeStore{
		traders: []domain.Trader{{Wallet: "0xw", AvgPositionSize: 10}},
		snapshots: map[string][]domain.Position{
			"0xw": {position("0xw", "0xc1", 100, 0.4)},
		},
	}
	data := &fakeData{
		positions: map[string][]domain.Position{
			"0xw": {position("0xw", "0xc1", 150, 0.4)},
		},
	}

	total, err := scanner.New(data, store).ScanAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, store.inserted, 1)

	change := store.inserted[0]
	assert.Equal(t, "0xw", change.Wallet)
	assert.Equal(t, domain.ChangeIncrease, change.Type)
	assert.InDelta(t, 100.0, change.OldSize, 0.001)
	assert.InDelta(t, 150.0, change.NewSize, 0.001)
	// Δ50 acciones × 0.40 = $20, sobre tamaño típico $10
	assert.InDelta(t, 2.0, change.Conviction, 0.001)
	assert.False(t, change.DetectedAt.IsZero())

	// el snapshot nuevo queda persistido
	assert.Equal(t, data.positions["0xw"], store.saved["0xw"])
}

func TestScanAll_BootstrapsFirstScanFromTrades(t *testing.T) {
	store := &fakeStore{
		traders:   []domain.Trader{{Wallet: "0xnew", AvgPositionSize: 10}},
		snapshots: map[string][]domain.Position{}, // nunca escaneado
	}
	data := &fakeData{
		positions: map[string][]domain.Position{
			"0xnew": {position("0xnew", "0xc1", 200, 0.5)},
		},
		trades: map[string][]domain.TradeFill{
			"0xnew": {
				{ConditionID: "0xc1", Outcome: "YES", Side: "BUY", Price: 0.5, Size: 120},
				{ConditionID: "0xc1", Outcome: "YES", Side: "BUY", Price: 0.5, Size: 80},
			},
		},
	}

	total, err := scanner.New(data, store).ScanAll(context.Background())
	require.NoError(t, err)
	// el baseline agregado (200) coincide con la posición actual: sin falso OPEN
	assert.Equal(t, 0, total)
	assert.Empty(t, store.inserted)
	assert.Equal(t, data.positions["0xnew"], store.saved["0xnew"])
}

func TestScanAll_EmptySnapshotStillProducesOpens(t *testing.T) {
	store := &fakeStore{
		traders: []domain.Trader{{Wallet: "0xw", AvgPositionSize: 10}},
		snapshots: map[string][]domain.Position{
			"0xw": {}, // escaneado antes, sin posiciones entonces
		},
	}
	data := &fakeData{
		positions: map[string][]domain.Position{
			"0xw": {position("0xw", "0xc2", 50, 0.3)},
		},
	}

	total, err := scanner.New(data, store).ScanAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, domain.ChangeOpen, store.inserted[0].Type)
}

func TestScanAll_CloseUsesLastKnownPrice(t *testing.T) {
	store := &fakeStore{
		traders: []domain.Trader{{Wallet: "0xw", AvgPositionSize: 20}},
		snapshots: map[string][]domain.Position{
			"0xw": {position("0xw", "0xc1", 100, 0.8)},
		},
	}
	data := &fakeData{
		positions: map[string][]domain.Position{"0xw": {}},
	}

	total, err := scanner.New(data, store).ScanAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, total)

	change := store.inserted[0]
	assert.Equal(t, domain.ChangeClose, change.Type)
	assert.InDelta(t, 0.8, change.PriceAtChange, 0.001)
	// 100 acciones × 0.80 = $80 sobre $20 típico
	assert.InDelta(t, 4.0, change.Conviction, 0.001)
}
