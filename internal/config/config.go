// Package config is the engine's configuration surface: a
// struct-tagged JSON config loaded from a file, with environment
// variable overrides applied on top — adapted from the teacher's
// config.Load()/applyEnvOverrides() layering (file first, env wins).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
)

// Config is the top-level recognized option set (spec §6).
type Config struct {
	Trading           TradingConfig           `json:"trading"`
	CapitalManagement CapitalManagementConfig `json:"capital_management"`
	SmartEntryRules   SmartEntryRulesConfig   `json:"smart_entry_rules"`
	EntryFilters      EntryFiltersConfig      `json:"entry_filters"`
	OrderRoles        OrderRolesConfig        `json:"order_roles"`
	RiskManagement    RiskManagementConfig    `json:"risk_management"`
	PositionManagement PositionManagementConfig `json:"position_management"`
	Logging           LoggingConfig           `json:"logging"`
	Persistence       PersistenceConfig       `json:"persistence"`
}

type TradingConfig struct {
	Symbol                string `json:"symbol"`
	Timeframe             string `json:"timeframe"`
	SignalCooldownSeconds int    `json:"signal_cooldown_seconds"`
	MaxSignalsPerHour     int    `json:"max_signals_per_hour"`
	HighFrequencyMode     bool   `json:"high_frequency_mode"`
	DryRun                bool   `json:"dry_run"`
}

type CapitalManagementConfig struct {
	InitialCapital        float64 `json:"initial_capital"`
	SafeZonePercent       float64 `json:"safe_zone_percent"`
	GrowthZonePercent     float64 `json:"growth_zone_percent"`
	AggressiveZonePercent float64 `json:"aggressive_zone_percent"`
	MaxDrawdownPercent    float64 `json:"max_drawdown_percent"`
	ConservativeTrigger   float64 `json:"conservative_trigger"`
	EmergencyTrigger      float64 `json:"emergency_trigger"`
	RecoveryBoostEnabled  bool    `json:"recovery_boost_enabled"`
}

type MiniTrendConfig struct {
	MinBodyRatio float64 `json:"min_body_ratio"`
}

type FactorBlock struct {
	Enabled bool               `json:"enabled"`
	Fields  map[string]float64 `json:"fields,omitempty"`
}

type DynamicLotSizingConfig struct {
	SignalStrengthFactor FactorBlock `json:"signal_strength_factor"`
	TrendStrengthFactor  FactorBlock `json:"trend_strength_factor"`
	BalanceFactor        FactorBlock `json:"balance_factor"`
	MovementFactor       FactorBlock `json:"movement_factor"`
	CapitalFactor        FactorBlock `json:"capital_factor"`
	RoleFactor           FactorBlock `json:"role_factor"`
}

type SmartEntryRulesConfig struct {
	MiniTrend         MiniTrendConfig        `json:"mini_trend"`
	DynamicLotSizing  DynamicLotSizingConfig `json:"dynamic_lot_sizing"`
}

type PriceMovementFilterConfig struct {
	Enabled              bool    `json:"enabled"`
	MinPriceChangePoints float64 `json:"min_price_change_points"`
}

type SessionActivityFilterConfig struct {
	Enabled bool `json:"enabled"`
}

type EntryFiltersConfig struct {
	PriceMovementFilter  PriceMovementFilterConfig  `json:"price_movement_filter"`
	SessionActivityFilter SessionActivityFilterConfig `json:"session_activity_filter"`
}

type RoleQuotas struct {
	HG float64 `json:"HG"`
	PW float64 `json:"PW"`
	RH float64 `json:"RH"`
	SC float64 `json:"SC"`
}

type RoleSetting struct {
	MaxAgeHours        float64    `json:"max_age_hours"`
	MinProfitThreshold float64    `json:"min_profit_threshold"`
	MaxLossTolerance   float64    `json:"max_loss_tolerance"`
	PreferredLotRange  [2]float64 `json:"preferred_lot_range"`
	AggressiveSizing   bool       `json:"aggressive_sizing"`
	QuickProfit        bool       `json:"quick_profit"`
}

type OrderRolesConfig struct {
	RoleQuotas   RoleQuotas             `json:"role_quotas"`
	RoleSettings map[string]RoleSetting `json:"role_settings"`
}

type RiskManagementConfig struct {
	MaxPositions            int     `json:"max_positions"`
	MaxDailyTrades          int     `json:"max_daily_trades"`
	MaxDailyLoss            float64 `json:"max_daily_loss"`
	MaxDailyVolume          float64 `json:"max_daily_volume"`
	MinMarginLevel          float64 `json:"min_margin_level"`
	StopTradingMarginLevel  float64 `json:"stop_trading_margin_level"`
	MaxConsecutiveLosses    int     `json:"max_consecutive_losses"`
	RecoveryExceptions      bool    `json:"recovery_exceptions"`
}

type ProfitTakingConfig struct {
	MultiLevelEnabled bool    `json:"multi_level_enabled"`
	MicroProfits      float64 `json:"micro_profits"`
	StandardProfits   float64 `json:"standard_profits"`
	MomentumProfits   float64 `json:"momentum_profits"`
}

type SmartCloseSettingsConfig struct {
	MaxLosingAgeHours float64 `json:"max_losing_age_hours"`
}

type RecoveryCombinationsConfig struct {
	Enabled           bool `json:"enabled"`
	MaxCombinationSize int  `json:"max_combination_size"`
}

type PositionManagementConfig struct {
	MinEfficiencyPerLot    float64                    `json:"min_efficiency_per_lot"`
	VolumeBalanceTolerance float64                    `json:"volume_balance_tolerance"`
	PartialCloseEnabled    bool                       `json:"partial_close_enabled"`
	SmartCloseSettings     SmartCloseSettingsConfig   `json:"smart_close_settings"`
	ProfitTaking           ProfitTakingConfig         `json:"profit_taking"`
	RecoveryCombinations   RecoveryCombinationsConfig `json:"recovery_combinations"`
}

type LoggingConfig struct {
	Level      string `json:"level"`
	Output     string `json:"output"`
	JSONFormat bool   `json:"json_format"`
}

type PersistenceConfig struct {
	Enabled         bool   `json:"enabled"`
	SQLitePath      string `json:"sqlite_path"`
	HistoryCapacity int    `json:"history_capacity"`
}

// Default returns the engine's out-of-the-box configuration, matching
// every default named across spec §4.1-§4.7.
func Default() *Config {
	return &Config{
		Trading: TradingConfig{
			Symbol: "XAUUSD.v", Timeframe: "M5",
			SignalCooldownSeconds: 45, MaxSignalsPerHour: 50,
		},
		CapitalManagement: CapitalManagementConfig{
			InitialCapital: 5000, SafeZonePercent: 0.50, GrowthZonePercent: 0.35,
			AggressiveZonePercent: 0.15, MaxDrawdownPercent: 25,
			ConservativeTrigger: 20, EmergencyTrigger: 25,
		},
		SmartEntryRules: SmartEntryRulesConfig{
			MiniTrend: MiniTrendConfig{MinBodyRatio: 0.03},
		},
		EntryFilters: EntryFiltersConfig{
			PriceMovementFilter:  PriceMovementFilterConfig{Enabled: true, MinPriceChangePoints: 0.15},
			SessionActivityFilter: SessionActivityFilterConfig{Enabled: true},
		},
		OrderRoles: OrderRolesConfig{
			RoleQuotas: RoleQuotas{HG: 0.25, PW: 0.40, RH: 0.20, SC: 0.15},
		},
		RiskManagement: RiskManagementConfig{
			MaxPositions: 100, MaxDailyTrades: 80, MaxDailyLoss: -300, MaxDailyVolume: 15,
			MinMarginLevel: 150, StopTradingMarginLevel: 120, MaxConsecutiveLosses: 7,
		},
		PositionManagement: PositionManagementConfig{
			VolumeBalanceTolerance: 0.35,
			ProfitTaking:           ProfitTakingConfig{MultiLevelEnabled: true, MicroProfits: 0.5, StandardProfits: 2, MomentumProfits: 8},
		},
		Logging: LoggingConfig{Level: "INFO", Output: "stdout", JSONFormat: true},
		Persistence: PersistenceConfig{Enabled: false, SQLitePath: "goldcore.db", HistoryCapacity: 1000},
	}
}

// Load mirrors the teacher's layering: start from a config file if
// present, otherwise defaults, then apply environment overrides.
func Load(path string) (*Config, error) {
	cfg, err := loadFromFile(path)
	if err != nil {
		cfg = Default()
	}
	applyEnvOverrides(cfg)
	return cfg, nil
}

func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := Default()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Trading.Symbol = getEnvOrDefault("GOLDCORE_SYMBOL", cfg.Trading.Symbol)
	cfg.Trading.Timeframe = getEnvOrDefault("GOLDCORE_TIMEFRAME", cfg.Trading.Timeframe)
	cfg.Trading.DryRun = getEnvOrDefault("GOLDCORE_DRY_RUN", boolStr(cfg.Trading.DryRun)) == "true"

	cfg.CapitalManagement.InitialCapital = getEnvFloatOrDefault("GOLDCORE_INITIAL_CAPITAL", cfg.CapitalManagement.InitialCapital)

	cfg.Logging.Level = getEnvOrDefault("GOLDCORE_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Output = getEnvOrDefault("GOLDCORE_LOG_OUTPUT", cfg.Logging.Output)
	cfg.Logging.JSONFormat = getEnvOrDefault("GOLDCORE_LOG_JSON", boolStr(cfg.Logging.JSONFormat)) == "true"

	cfg.Persistence.Enabled = getEnvOrDefault("GOLDCORE_PERSISTENCE_ENABLED", boolStr(cfg.Persistence.Enabled)) == "true"
	cfg.Persistence.SQLitePath = getEnvOrDefault("GOLDCORE_SQLITE_PATH", cfg.Persistence.SQLitePath)
}

func boolStr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFloatOrDefault(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
