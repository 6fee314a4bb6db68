package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del radar.
type Config struct {
	Radar     RadarConfig     `yaml:"radar"`
	Watchlist WatchlistConfig `yaml:"watchlist"`
	Signals   SignalsConfig   `yaml:"signals"`
	Bot       BotConfig       `yaml:"bot"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Notify    NotifyConfig    `yaml:"notify"`
	Log       LogConfig       `yaml:"log"`
}

// RadarConfig controla el ciclo de escaneo y la retención.
type RadarConfig struct {
	ScanIntervalSeconds    int `yaml:"scan_interval_seconds"`
	SnapshotRetentionDays  int `yaml:"snapshot_retention_days"`
	ResolutionEveryNCycles int `yaml:"resolution_every_n_cycles"`
}

// WatchlistConfig controla la construcción del watchlist.
type WatchlistConfig struct {
	RefreshHours       int     `yaml:"refresh_hours"`
	LeaderboardLimit   int     `yaml:"leaderboard_limit"`
	MinClosedPositions int     `yaml:"min_closed_positions"`
	ActiveWindowDays   int     `yaml:"active_window_days"`
	ScoringWorkers     int     `yaml:"scoring_workers"`
	ActivityLimit      int     `yaml:"activity_limit"`
	MinPnL             float64 `yaml:"min_pnl"`
}

// SignalsConfig controla la detección y la estrategia operable.
type SignalsConfig struct {
	WindowHours        int      `yaml:"window_hours"`
	HighThreshold      float64  `yaml:"high_threshold"`
	MediumThreshold    float64  `yaml:"medium_threshold"`
	MaxTier            int      `yaml:"max_tier"`
	MinEntryPrice      float64  `yaml:"min_entry_price"`
	MaxEntryPrice      float64  `yaml:"max_entry_price"`
	ExcludedCategories []string `yaml:"excluded_categories"`
}

// BotConfig controla el ejecutor de trades reales. El bot queda deshabilitado
// si PrivateKey está vacío.
type BotConfig struct {
	Enabled           bool    `yaml:"enabled"`
	PrivateKey        string  `yaml:"private_key"` // solo por env, nunca en YAML
	InitialBudgetUSD  float64 `yaml:"initial_budget_usd"`
	BetSizeUSD        float64 `yaml:"bet_size_usd"`
	MaxOpenPositions  int     `yaml:"max_open_positions"`
	MaxDailySpendUSD  float64 `yaml:"max_daily_spend_usd"`
	MinBalanceUSD     float64 `yaml:"min_balance_usd"`
	CircuitBreakerPct float64 `yaml:"circuit_breaker_pct"`
	MaxSlippage       float64 `yaml:"max_slippage"`
}

// APIConfig contiene los base URLs de las APIs públicas de Polymarket.
type APIConfig struct {
	DataBase  string `yaml:"data_base"`
	GammaBase string `yaml:"gamma_base"`
	CLOBBase  string `yaml:"clob_base"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// NotifyConfig controla los canales de alertas. Sin tokens configurados las
// alertas salen solo por consola.
type NotifyConfig struct {
	TelegramToken     string `yaml:"telegram_token"`
	TelegramChatID    string `yaml:"telegram_chat_id"`
	BotTelegramChatID string `yaml:"bot_telegram_chat_id"`
	DiscordToken      string `yaml:"discord_token"`
	DiscordChannelID  string `yaml:"discord_channel_id"`
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Radar.ScanIntervalSeconds) * time.Second
}

// WatchlistRefresh devuelve el periodo de refresh del watchlist.
func (c *Config) WatchlistRefresh() time.Duration {
	return time.Duration(c.Watchlist.RefreshHours) * time.Hour
}

// SignalWindow devuelve la ventana de agrupación de señales.
func (c *Config) SignalWindow() time.Duration {
	return time.Duration(c.Signals.WindowHours) * time.Hour
}

// SnapshotRetention devuelve el periodo de retención de snapshots.
func (c *Config) SnapshotRetention() time.Duration {
	return time.Duration(c.Radar.SnapshotRetentionDays) * 24 * time.Hour
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RADAR_DB"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Notify.TelegramToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notify.TelegramChatID = v
	}
	if v := os.Getenv("BOT_TELEGRAM_CHAT_ID"); v != "" {
		cfg.Notify.BotTelegramChatID = v
	}
	if v := os.Getenv("DISCORD_TOKEN"); v != "" {
		cfg.Notify.DiscordToken = v
	}
	if v := os.Getenv("DISCORD_CHANNEL_ID"); v != "" {
		cfg.Notify.DiscordChannelID = v
	}
	if v := os.Getenv("BOT_PRIVATE_KEY"); v != "" {
		cfg.Bot.PrivateKey = v
	}
	if v := os.Getenv("BOT_ENABLED"); v != "" {
		cfg.Bot.Enabled = v == "1" || v == "true"
	}
	if v := os.Getenv("BOT_BET_SIZE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Bot.BetSizeUSD = f
		}
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Radar.ScanIntervalSeconds <= 0 {
		cfg.Radar.ScanIntervalSeconds = 300
	}
	if cfg.Radar.SnapshotRetentionDays <= 0 {
		cfg.Radar.SnapshotRetentionDays = 30
	}
	if cfg.Radar.ResolutionEveryNCycles <= 0 {
		cfg.Radar.ResolutionEveryNCycles = 6
	}

	if cfg.Watchlist.RefreshHours <= 0 {
		cfg.Watchlist.RefreshHours = 168 // semanal
	}
	if cfg.Watchlist.LeaderboardLimit <= 0 {
		cfg.Watchlist.LeaderboardLimit = 50
	}
	if cfg.Watchlist.MinClosedPositions <= 0 {
		cfg.Watchlist.MinClosedPositions = 20
	}
	if cfg.Watchlist.ActiveWindowDays <= 0 {
		cfg.Watchlist.ActiveWindowDays = 30
	}
	if cfg.Watchlist.ScoringWorkers <= 0 {
		cfg.Watchlist.ScoringWorkers = 3
	}
	if cfg.Watchlist.ActivityLimit <= 0 {
		cfg.Watchlist.ActivityLimit = 500
	}

	if cfg.Signals.WindowHours <= 0 {
		cfg.Signals.WindowHours = 24
	}
	if cfg.Signals.HighThreshold <= 0 {
		cfg.Signals.HighThreshold = 15.0
	}
	if cfg.Signals.MediumThreshold <= 0 {
		cfg.Signals.MediumThreshold = 8.0
	}
	if cfg.Signals.MaxTier <= 0 {
		cfg.Signals.MaxTier = 2
	}
	if cfg.Signals.MinEntryPrice <= 0 {
		cfg.Signals.MinEntryPrice = 0.10
	}
	if cfg.Signals.MaxEntryPrice <= 0 {
		cfg.Signals.MaxEntryPrice = 0.85
	}
	if len(cfg.Signals.ExcludedCategories) == 0 {
		cfg.Signals.ExcludedCategories = []string{"CRYPTO", "CULTURE", "FINANCE"}
	}

	if cfg.Bot.InitialBudgetUSD <= 0 {
		cfg.Bot.InitialBudgetUSD = 10.0
	}
	if cfg.Bot.BetSizeUSD <= 0 {
		cfg.Bot.BetSizeUSD = 0.50
	}
	if cfg.Bot.MaxOpenPositions <= 0 {
		cfg.Bot.MaxOpenPositions = 10
	}
	if cfg.Bot.MaxDailySpendUSD <= 0 {
		cfg.Bot.MaxDailySpendUSD = 2.50
	}
	if cfg.Bot.MinBalanceUSD <= 0 {
		cfg.Bot.MinBalanceUSD = 2.00
	}
	if cfg.Bot.CircuitBreakerPct <= 0 {
		cfg.Bot.CircuitBreakerPct = 0.30
	}
	if cfg.Bot.MaxSlippage <= 0 {
		cfg.Bot.MaxSlippage = 0.15
	}

	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "whaleradar.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
