package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Universe  UniverseConfig  `yaml:"universe"`
	Detector  DetectorConfig  `yaml:"detector"`
	Stream    StreamConfig    `yaml:"stream"`
	Execution ExecutionConfig `yaml:"execution"`
	Risk      RiskConfig      `yaml:"risk"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// UniverseConfig controla qué mercados entran al universo.
type UniverseConfig struct {
	Mode           string  `yaml:"mode"` // buckets | active | window
	MinLiquidity   float64 `yaml:"min_liquidity"`
	MinVolume24h   float64 `yaml:"min_volume_24h"`
	MinHoursToEnd  float64 `yaml:"min_hours_to_end"`
	MaxHoursToEnd  float64 `yaml:"max_hours_to_end"` // 0 = sin tope
	TitlePattern   string  `yaml:"title_pattern"`    // regex opcional sobre el título
	MaxMarkets     int     `yaml:"max_markets"`
}

// DetectorConfig son los parámetros del cálculo de edge.
type DetectorConfig struct {
	SharesPerLeg  float64 `yaml:"shares_per_leg"`
	WinnerFeeRate float64 `yaml:"winner_fee_rate"`
	FixedCostUSD  float64 `yaml:"fixed_cost_usd"`
	MinEdgeCents  float64 `yaml:"min_edge_cents"`
}

// StreamConfig controla el loop de monitorización streaming.
type StreamConfig struct {
	RunMinutes          int `yaml:"run_minutes"`
	DebounceSeconds     int `yaml:"debounce_seconds"`
	MaxSubscribedTokens int `yaml:"max_subscribed_tokens"` // 0 = sin poda
	SummarySeconds      int `yaml:"summary_seconds"`
}

// ExecutionConfig controla el motor de ejecución de baskets.
// Execute y ConfirmLive llegan por flag/entorno, nunca por YAML:
// ejecutar dinero real exige intención explícita en cada arranque.
type ExecutionConfig struct {
	Backend              string  `yaml:"backend"` // auto | clob | simmer
	MinFillRatio         float64 `yaml:"min_fill_ratio"`
	ReconcileAttempts    int     `yaml:"reconcile_attempts"`
	ReconcileSeconds     int     `yaml:"reconcile_seconds"`
	CooldownMinutes      int     `yaml:"cooldown_minutes"`
	MaxAttemptsPerBasket int     `yaml:"max_attempts_per_basket"`
	MaxExecutionsPerDay  int     `yaml:"max_executions_per_day"`
	MaxNotionalPerDay    float64 `yaml:"max_notional_per_day"`
	UnwindOnPartial      bool    `yaml:"unwind_on_partial"`
	MaxConsecutiveErrors int     `yaml:"max_consecutive_errors"`
}

// RiskConfig controla el guard de pérdida diaria.
type RiskConfig struct {
	DailyLossLimitUSD float64 `yaml:"daily_loss_limit_usd"` // <= 0 desactiva el guard
	PnLCheckSeconds   int     `yaml:"pnl_check_seconds"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase   string `yaml:"clob_base"`
	GammaBase  string `yaml:"gamma_base"`
	DataBase   string `yaml:"data_base"`
	WSBase     string `yaml:"ws_base"`
	SimmerBase string `yaml:"simmer_base"`
}

// StorageConfig controla dónde se persisten estado, eventos y métricas.
type StorageConfig struct {
	StatePath   string `yaml:"state_path"`   // JSON de RuntimeState
	EventsDSN   string `yaml:"events_dsn"`   // SQLite del log de eventos, o ":memory:"
	MetricsPath string `yaml:"metrics_path"` // stream JSONL opcional ("" = desactivado)
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

// RunDuration devuelve la duración total configurada del loop streaming.
func (c *Config) RunDuration() time.Duration {
	return time.Duration(c.Stream.RunMinutes) * time.Minute
}

// Debounce devuelve el intervalo de debounce por basket.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.Stream.DebounceSeconds) * time.Second
}

// SummaryInterval devuelve cada cuánto se emite el resumen de RunStats.
func (c *Config) SummaryInterval() time.Duration {
	return time.Duration(c.Stream.SummarySeconds) * time.Second
}

// ReconcileInterval devuelve el intervalo entre polls de reconciliación.
func (c *Config) ReconcileInterval() time.Duration {
	return time.Duration(c.Execution.ReconcileSeconds) * time.Second
}

// Cooldown devuelve la ventana de cooldown por basket.
func (c *Config) Cooldown() time.Duration {
	return time.Duration(c.Execution.CooldownMinutes) * time.Minute
}

// PnLCheckInterval devuelve cada cuánto se consulta el portfolio.
func (c *Config) PnLCheckInterval() time.Duration {
	return time.Duration(c.Risk.PnLCheckSeconds) * time.Second
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BASKETBOT_STATE_PATH"); v != "" {
		cfg.Storage.StatePath = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Universe.Mode == "" {
		cfg.Universe.Mode = "buckets"
	}
	if cfg.Universe.MaxMarkets <= 0 {
		cfg.Universe.MaxMarkets = 500
	}
	if cfg.Detector.SharesPerLeg <= 0 {
		cfg.Detector.SharesPerLeg = 5
	}
	if cfg.Detector.MinEdgeCents <= 0 {
		cfg.Detector.MinEdgeCents = 1
	}
	if cfg.Stream.RunMinutes <= 0 {
		cfg.Stream.RunMinutes = 60
	}
	if cfg.Stream.DebounceSeconds <= 0 {
		cfg.Stream.DebounceSeconds = 2
	}
	if cfg.Stream.SummarySeconds <= 0 {
		cfg.Stream.SummarySeconds = 300
	}
	if cfg.Execution.Backend == "" {
		cfg.Execution.Backend = "auto"
	}
	if cfg.Execution.MinFillRatio <= 0 {
		cfg.Execution.MinFillRatio = 0.98
	}
	if cfg.Execution.ReconcileAttempts <= 0 {
		cfg.Execution.ReconcileAttempts = 10
	}
	if cfg.Execution.ReconcileSeconds <= 0 {
		cfg.Execution.ReconcileSeconds = 3
	}
	if cfg.Execution.CooldownMinutes <= 0 {
		cfg.Execution.CooldownMinutes = 30
	}
	if cfg.Execution.MaxAttemptsPerBasket <= 0 {
		cfg.Execution.MaxAttemptsPerBasket = 3
	}
	if cfg.Execution.MaxExecutionsPerDay <= 0 {
		cfg.Execution.MaxExecutionsPerDay = 20
	}
	if cfg.Execution.MaxNotionalPerDay <= 0 {
		cfg.Execution.MaxNotionalPerDay = 500
	}
	if cfg.Execution.MaxConsecutiveErrors <= 0 {
		cfg.Execution.MaxConsecutiveErrors = 3
	}
	if cfg.Risk.PnLCheckSeconds <= 0 {
		cfg.Risk.PnLCheckSeconds = 60
	}
	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.API.DataBase == "" {
		cfg.API.DataBase = "https://data-api.polymarket.com"
	}
	if cfg.API.WSBase == "" {
		cfg.API.WSBase = "wss://ws-subscriptions-clob.polymarket.com/ws"
	}
	if cfg.Storage.StatePath == "" {
		cfg.Storage.StatePath = "basketbot_state.json"
	}
	if cfg.Storage.EventsDSN == "" {
		cfg.Storage.EventsDSN = "basketbot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
