package watchlist

// builder.go — construcción del watchlist curado desde el leaderboard público.
//
// El pipeline: recolectar candidatos de las 5 categorías del leaderboard,
// reconstruir el historial cerrado de cada uno desde /activity, filtrar los
// que no dan muestra estadística, puntuar a los supervivientes y sustituir
// el watchlist completo de forma atómica.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
)

// leaderboardCategories son las categorías consultadas en cada rebuild. El
// mismo wallet suele aparecer en varias; se deduplica conservando el PnL
// más alto visto.
var leaderboardCategories = []string{"OVERALL", "POLITICS", "CRYPTO", "SPORTS", "CULTURE"}

// Config son los parámetros de construcción del watchlist.
type Config struct {
	LeaderboardLimit   int
	MinClosedPositions int
	ActiveWindow       time.Duration
	Workers            int
	ActivityLimit      int
	MinPnL             float64
}

// Builder construye el watchlist y lo persiste.
type Builder struct {
	data  ports.DataProvider
	store ports.Storage
	cfg   Config
}

// NewBuilder crea un Builder sobre el provider de datos y el storage.
func NewBuilder(data ports.DataProvider, store ports.Storage, cfg Config) *Builder {
	return &Builder{data: data, store: store, cfg: cfg}
}

// Rebuild ejecuta el pipeline completo y devuelve el watchlist resultante,
// ya persistido y ordenado por score descendente. Si ningún candidato
// sobrevive los filtros no toca el watchlist anterior y devuelve error.
func (b *Builder) Rebuild(ctx context.Context) ([]domain.Trader, error) {
	started := time.Now()

	candidates := b.collectCandidates(ctx)
	if len(candidates) == 0 {
		return nil, errors.New("watchlist.Rebuild: leaderboard returned no candidates")
	}
	slog.Info("watchlist candidates collected", "candidates", len(candidates))

	traders := b.evaluateCandidates(ctx, candidates)
	if len(traders) == 0 {
		return nil, errors.New("watchlist.Rebuild: no candidates qualified, keeping previous watchlist")
	}

	normalizeROI(traders)
	for i := range traders {
		score := domain.TraderScore(traders[i].TimingQuality, traders[i].Consistency, traders[i].ROINormalized)
		traders[i].Score = math.Round(score*10000) / 10000
	}
	sort.Slice(traders, func(i, j int) bool { return traders[i].Score > traders[j].Score })

	if err := b.store.ReplaceTraders(ctx, traders); err != nil {
		return nil, fmt.Errorf("watchlist.Rebuild: persist: %w", err)
	}

	slog.Info("watchlist rebuilt",
		"candidates", len(candidates),
		"qualified", len(traders),
		"top_score", traders[0].Score,
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return traders, nil
}

// collectCandidates junta el top de cada categoría deduplicando por wallet.
// Username y volumen se toman de la primera aparición; el PnL se queda con
// el máximo entre categorías.
func (b *Builder) collectCandidates(ctx context.Context) []ports.LeaderboardEntry {
	seen := make(map[string]int)
	var candidates []ports.LeaderboardEntry

	for _, category := range leaderboardCategories {
		entries, err := b.data.Leaderboard(ctx, category, b.cfg.LeaderboardLimit)
		if err != nil {
			slog.Warn("leaderboard fetch failed", "category", category, "err", err)
			continue
		}
		for _, e := range entries {
			if e.Wallet == "" {
				continue
			}
			if idx, ok := seen[e.Wallet]; ok {
				if e.PnL > candidates[idx].PnL {
					candidates[idx].PnL = e.PnL
				}
				continue
			}
			seen[e.Wallet] = len(candidates)
			candidates = append(candidates, e)
		}
	}
	return candidates
}

// evaluateCandidates puntúa los candidatos en paralelo con un worker pool.
// Cada worker hace las llamadas de red de su candidato; los rate limiters
// del cliente reparten el presupuesto de la API entre workers.
func (b *Builder) evaluateCandidates(ctx context.Context, candidates []ports.LeaderboardEntry) []domain.Trader {
	workers := b.cfg.Workers
	if workers <= 0 {
		workers = 3
	}

	workCh := make(chan ports.LeaderboardEntry, len(candidates))
	resultCh := make(chan domain.Trader, len(candidates))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for entry := range workCh {
				trader, reason, err := b.evaluate(ctx, entry)
				if err != nil {
					slog.Warn("candidate evaluation failed", "wallet", entry.Wallet, "err", err)
					continue
				}
				if trader == nil {
					slog.Debug("candidate skipped", "wallet", entry.Wallet, "reason", reason)
					continue
				}
				resultCh <- *trader
			}
		}()
	}

	for _, entry := range candidates {
		workCh <- entry
	}
	close(workCh)

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	traders := make([]domain.Trader, 0, len(candidates))
	for trader := range resultCh {
		traders = append(traders, trader)
	}
	return traders
}

// evaluate aplica los filtros de calidad a un candidato y, si los pasa,
// calcula todas sus métricas. Devuelve (nil, motivo, nil) para un skip.
func (b *Builder) evaluate(ctx context.Context, entry ports.LeaderboardEntry) (*domain.Trader, string, error) {
	if entry.PnL <= b.cfg.MinPnL {
		return nil, "non-positive pnl", nil
	}

	activity, err := b.data.Activity(ctx, entry.Wallet, b.cfg.ActivityLimit)
	if err != nil {
		return nil, "", fmt.Errorf("activity: %w", err)
	}
	if len(activity) == 0 {
		return nil, "no recent activity", nil
	}

	var latest int64
	for _, ev := range activity {
		if ev.Timestamp > latest {
			latest = ev.Timestamp
		}
	}
	if time.Unix(latest, 0).Before(time.Now().Add(-b.cfg.ActiveWindow)) {
		return nil, "inactive beyond window", nil
	}

	positions, err := b.data.Positions(ctx, entry.Wallet)
	if err != nil {
		return nil, "", fmt.Errorf("positions: %w", err)
	}
	openConditions := make(map[string]struct{}, len(positions))
	for _, p := range positions {
		openConditions[p.ConditionID] = struct{}{}
	}

	closed := ClosedFromActivity(activity, openConditions)
	if len(closed) < b.cfg.MinClosedPositions {
		return nil, fmt.Sprintf("only %d closed positions", len(closed)), nil
	}

	winRate := domain.WinRate(closed)
	traderType, algoSignals := domain.ClassifyTraderType(closed, entry.PnL, entry.Volume)

	return &domain.Trader{
		Wallet:          entry.Wallet,
		Username:        entry.Username,
		PnL:             entry.PnL,
		Volume:          entry.Volume,
		WinRate:         winRate,
		ROI:             domain.ROI(closed),
		Consistency:     domain.Consistency(winRate, len(closed)),
		TimingQuality:   domain.TimingQuality(closed),
		AvgPositionSize: domain.MedianPositionSize(closed),
		TotalClosed:     len(closed),
		CategoryScores:  domain.CategoryScores(closed),
		Type:            traderType,
		AlgoSignals:     algoSignals,
		DomainTags:      domain.DetectDomainTags(closed),
		RecentBets:      domain.ExtractRecentBets(closed, 0),
		UpdatedAt:       time.Now().UTC(),
	}, "", nil
}

// ClosedFromActivity reconstruye las posiciones cerradas de un wallet desde
// su historial TRADE/REDEEM. Agrupa por mercado: todo lo comprado, vendido y
// redimido sobre el mismo condition id es una posición. Se descartan los
// mercados sin compras y los que siguen abiertos en el snapshot actual.
func ClosedFromActivity(events []ports.ActivityEvent, openConditions map[string]struct{}) []domain.ClosedPosition {
	type acc struct {
		title     string
		outcome   string
		buyTotal  float64
		sellTotal float64
		redeemed  float64
		buyPrices []float64
		latest    int64
	}

	byCondition := make(map[string]*acc)
	var order []string

	for _, ev := range events {
		if ev.ConditionID == "" {
			continue
		}
		a, ok := byCondition[ev.ConditionID]
		if !ok {
			a = &acc{}
			byCondition[ev.ConditionID] = a
			order = append(order, ev.ConditionID)
		}

		switch {
		case ev.Type == "TRADE" && ev.Side == "BUY":
			a.buyTotal += ev.USDCSize
			if ev.Price > 0 {
				a.buyPrices = append(a.buyPrices, ev.Price)
			}
			a.outcome = ev.Outcome
			a.title = ev.Title
		case ev.Type == "TRADE" && ev.Side == "SELL":
			a.sellTotal += ev.USDCSize
		case ev.Type == "REDEEM":
			a.redeemed += ev.USDCSize
			if a.title == "" {
				a.title = ev.Title
			}
		}
		if ev.Timestamp > a.latest {
			a.latest = ev.Timestamp
		}
	}

	closed := make([]domain.ClosedPosition, 0, len(order))
	for _, conditionID := range order {
		a := byCondition[conditionID]
		if a.buyTotal == 0 {
			continue
		}
		if _, open := openConditions[conditionID]; open {
			continue
		}

		avgPrice := 0.5
		if len(a.buyPrices) > 0 {
			var sum float64
			for _, p := range a.buyPrices {
				sum += p
			}
			avgPrice = sum / float64(len(a.buyPrices))
		}

		closed = append(closed, domain.ClosedPosition{
			ConditionID: conditionID,
			Title:       a.title,
			Outcome:     a.outcome,
			RealizedPnL: a.redeemed + a.sellTotal - a.buyTotal,
			TotalBought: a.buyTotal,
			TotalSold:   a.sellTotal,
			AvgPrice:    avgPrice,
			Timestamp:   time.Unix(a.latest, 0).UTC(),
		})
	}
	return closed
}

// normalizeROI aplica min-max sobre el pool completo: el ROI normalizado de
// cada trader queda en [0, 1] relativo a sus pares. Con spread degenerado
// (un solo trader o todos iguales) todos reciben 0.5 neutral.
func normalizeROI(traders []domain.Trader) {
	if len(traders) == 0 {
		return
	}

	min, max := traders[0].ROI, traders[0].ROI
	for _, t := range traders[1:] {
		if t.ROI < min {
			min = t.ROI
		}
		if t.ROI > max {
			max = t.ROI
		}
	}

	spread := max - min
	for i := range traders {
		if spread == 0 {
			traders[i].ROINormalized = 0.5
			continue
		}
		traders[i].ROINormalized = (traders[i].ROI - min) / spread
	}
}
