package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/whaleradar/config"
	"github.com/alejandrodnm/whaleradar/internal/adapters/notify"
	"github.com/alejandrodnm/whaleradar/internal/adapters/polymarket"
	"github.com/alejandrodnm/whaleradar/internal/adapters/storage"
	"github.com/alejandrodnm/whaleradar/internal/alerts"
	"github.com/alejandrodnm/whaleradar/internal/bot"
	"github.com/alejandrodnm/whaleradar/internal/detector"
	"github.com/alejandrodnm/whaleradar/internal/domain"
	"github.com/alejandrodnm/whaleradar/internal/ports"
	"github.com/alejandrodnm/whaleradar/internal/resolution"
	"github.com/alejandrodnm/whaleradar/internal/scanner"
	"github.com/alejandrodnm/whaleradar/internal/scheduler"
	"github.com/alejandrodnm/whaleradar/internal/watchlist"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	once := flag.Bool("once", false, "run one radar cycle and exit")
	rebuild := flag.Bool("rebuild-watchlist", false, "rebuild the watchlist and exit")
	resetBreaker := flag.Bool("reset-breaker", false, "clear the bot circuit breaker and exit")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	table := flag.Bool("table", false, "print signal alerts as full contributor tables")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	defer store.Close()
	if err := store.ApplySchema(ctx); err != nil {
		slog.Error("failed to apply schema", "err", err)
		os.Exit(1)
	}

	if *resetBreaker {
		risk := bot.NewRiskManager(store, riskConfig(cfg))
		if err := risk.ResetCircuitBreaker(ctx); err != nil {
			slog.Error("failed to reset circuit breaker", "err", err)
			os.Exit(1)
		}
		slog.Info("circuit breaker cleared")
		return
	}

	client := polymarket.NewClient(cfg.API.DataBase, cfg.API.GammaBase, cfg.API.CLOBBase)
	notifier := buildNotifier(cfg, *table)
	filter := strategyFilter(cfg)

	builder := watchlist.NewBuilder(client, store, watchlist.Config{
		LeaderboardLimit:   cfg.Watchlist.LeaderboardLimit,
		MinClosedPositions: cfg.Watchlist.MinClosedPositions,
		ActiveWindow:       time24h(cfg.Watchlist.ActiveWindowDays),
		Workers:            cfg.Watchlist.ScoringWorkers,
		ActivityLimit:      cfg.Watchlist.ActivityLimit,
		MinPnL:             cfg.Watchlist.MinPnL,
	})

	if *rebuild {
		traders, err := builder.Rebuild(ctx)
		if err != nil {
			slog.Error("watchlist rebuild failed", "err", err)
			os.Exit(1)
		}
		slog.Info("watchlist rebuilt", "traders", len(traders))
		return
	}

	tradeBot := buildBot(ctx, cfg, client, store, notifier, filter)

	sched := scheduler.New(
		store,
		builder,
		scanner.New(client, store),
		detector.New(store, detector.Config{
			Window:          cfg.SignalWindow(),
			HighThreshold:   cfg.Signals.HighThreshold,
			MediumThreshold: cfg.Signals.MediumThreshold,
		}),
		resolution.New(store, client),
		alerts.NewSender(store, notifier, filter),
		tradeBot,
		scheduler.Config{
			ScanInterval:           cfg.ScanInterval(),
			WatchlistRefresh:       cfg.WatchlistRefresh(),
			ResolutionEveryNCycles: cfg.Radar.ResolutionEveryNCycles,
			SnapshotRetention:      cfg.SnapshotRetention(),
		},
	)

	slog.Info("whaleradar starting",
		"config", *configPath,
		"interval", cfg.ScanInterval(),
		"bot_enabled", tradeBot != nil,
		"once", *once,
	)

	if *once {
		if err := sched.Bootstrap(ctx); err != nil {
			slog.Error("bootstrap failed", "err", err)
			os.Exit(1)
		}
		sched.RunCycle(ctx)
		slog.Info("single cycle complete")
		return
	}

	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("radar exited with error", "err", err)
		os.Exit(1)
	}
	slog.Info("whaleradar stopped cleanly")
}

// buildNotifier arma la cadena de notificación: consola siempre, Telegram y
// Discord solo con credenciales configuradas.
func buildNotifier(cfg *config.Config, table bool) ports.Notifier {
	targets := []ports.Notifier{notify.NewConsole(table)}

	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		targets = append(targets, notify.NewTelegram(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
			cfg.Notify.BotTelegramChatID,
		))
		slog.Info("telegram notifications enabled")
	}
	if cfg.Notify.DiscordToken != "" && cfg.Notify.DiscordChannelID != "" {
		discord, err := notify.NewDiscord(cfg.Notify.DiscordToken, cfg.Notify.DiscordChannelID)
		if err != nil {
			slog.Warn("discord setup failed, skipping", "err", err)
		} else {
			targets = append(targets, discord)
			slog.Info("discord notifications enabled")
		}
	}

	if len(targets) == 1 {
		return targets[0]
	}
	return notify.NewMulti(targets...)
}

// buildBot arma el ejecutor real si hay clave privada y el bot está
// habilitado. Cualquier fallo de inicialización deja el radar en modo
// solo-alertas en vez de tumbarlo.
func buildBot(
	ctx context.Context,
	cfg *config.Config,
	client *polymarket.Client,
	store *storage.SQLiteStorage,
	notifier ports.Notifier,
	filter domain.StrategyFilter,
) scheduler.TradeBot {
	if !cfg.Bot.Enabled || cfg.Bot.PrivateKey == "" {
		return nil
	}

	auth, err := polymarket.NewAuthClient(client, cfg.Bot.PrivateKey)
	if err != nil {
		slog.Error("bot auth setup failed, running alerts-only", "err", err)
		return nil
	}
	trading := polymarket.NewTradingClient(auth)
	if err := trading.Initialize(ctx); err != nil {
		slog.Error("bot credential derivation failed, running alerts-only", "err", err)
		return nil
	}

	risk := bot.NewRiskManager(store, riskConfig(cfg))
	slog.Info("trading bot enabled",
		"bet_size", cfg.Bot.BetSizeUSD,
		"max_open", cfg.Bot.MaxOpenPositions,
		"daily_limit", cfg.Bot.MaxDailySpendUSD,
	)
	return bot.NewExecutor(store, trading, notifier, risk, filter, cfg.Bot.BetSizeUSD)
}

func riskConfig(cfg *config.Config) bot.RiskConfig {
	return bot.RiskConfig{
		InitialBudgetUSD:  cfg.Bot.InitialBudgetUSD,
		BetSizeUSD:        cfg.Bot.BetSizeUSD,
		MaxOpenPositions:  cfg.Bot.MaxOpenPositions,
		MaxDailySpendUSD:  cfg.Bot.MaxDailySpendUSD,
		MinBalanceUSD:     cfg.Bot.MinBalanceUSD,
		CircuitBreakerPct: cfg.Bot.CircuitBreakerPct,
		MaxSlippage:       cfg.Bot.MaxSlippage,
	}
}

func strategyFilter(cfg *config.Config) domain.StrategyFilter {
	excluded := make(map[string]struct{}, len(cfg.Signals.ExcludedCategories))
	for _, c := range cfg.Signals.ExcludedCategories {
		excluded[c] = struct{}{}
	}
	return domain.StrategyFilter{
		MaxTier:            cfg.Signals.MaxTier,
		MinPrice:           cfg.Signals.MinEntryPrice,
		MaxPrice:           cfg.Signals.MaxEntryPrice,
		ExcludedCategories: excluded,
	}
}

func time24h(days int) time.Duration {
	return time.Duration(days) * 24 * time.Hour
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
