package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"intrabot/internal/models"

	"github.com/spf13/viper"
)

type Config struct {
	Broker  BrokerConfig
	Risk    RiskConfig
	Engine  EngineConfig
	Store   StoreConfig
	Alerts  AlertsConfig
	Runtime RuntimeConfig
	Algos   []models.AlgoConfig
}

type BrokerConfig struct {
	Name    string
	BaseURL string
	WSUrl   string
	ApiKey  string
	Secret  string
}

type RiskConfig struct {
	MinBalanceThreshold    float64
	GlobalMaxDailyLoss     float64
	GlobalMaxOpenPositions int
	MaxWatchedStocks       int
}

type EngineConfig struct {
	CycleIntervalMs  int
	RetryAttempts    int
	RetryDelayMs     int
	SquareOffTime    string
	MarketOpenTime   string
	MarketCloseTime  string
	CandleHistoryCap int
}

type StoreConfig struct {
	Path string
}

type AlertsConfig struct {
	TelegramToken  string
	TelegramChatID string
}

type RuntimeConfig struct {
	DryRun bool
	Log    LogConfig
}

type LogConfig struct {
	Level      string
	Format     string
	File       string
	MaxSize    int
	MaxBackups int
	MaxAge     int
	Compress   bool
}

func Load() (*Config, error) {
	cfg := &Config{}
	viper.AddConfigPath("configs")
	viper.SetConfigName("config")
	viper.ReadInConfig()

	setDefaults()

	cfg.Broker = BrokerConfig{
		Name:    viper.GetString("broker.name"),
		BaseURL: viper.GetString("broker.base_url"),
		WSUrl:   viper.GetString("broker.ws_url"),
		ApiKey:  envSub("broker.api_key"),
		Secret:  envSub("broker.secret"),
	}

	cfg.Risk = RiskConfig{
		MinBalanceThreshold:    viper.GetFloat64("risk.min_balance_threshold"),
		GlobalMaxDailyLoss:     viper.GetFloat64("risk.global_max_daily_loss"),
		GlobalMaxOpenPositions: viper.GetInt("risk.global_max_open_positions"),
		MaxWatchedStocks:       viper.GetInt("risk.max_watched_stocks"),
	}

	cfg.Engine = EngineConfig{
		CycleIntervalMs:  viper.GetInt("engine.cycle_interval_ms"),
		RetryAttempts:    viper.GetInt("engine.retry_attempts"),
		RetryDelayMs:     viper.GetInt("engine.retry_delay_ms"),
		SquareOffTime:    viper.GetString("engine.square_off_time"),
		MarketOpenTime:   viper.GetString("engine.market_open_time"),
		MarketCloseTime:  viper.GetString("engine.market_close_time"),
		CandleHistoryCap: viper.GetInt("engine.candle_history_cap"),
	}

	cfg.Store = StoreConfig{
		Path: viper.GetString("store.path"),
	}

	cfg.Alerts = AlertsConfig{
		TelegramToken:  envSub("alerts.telegram_token"),
		TelegramChatID: envSub("alerts.telegram_chat_id"),
	}

	cfg.Runtime = RuntimeConfig{
		DryRun: viper.GetBool("runtime.dry_run"),
		Log: LogConfig{
			Level:      viper.GetString("runtime.log.level"),
			Format:     viper.GetString("runtime.log.format"),
			File:       viper.GetString("runtime.log.file"),
			MaxSize:    viper.GetInt("runtime.log.max_size"),
			MaxBackups: viper.GetInt("runtime.log.max_backups"),
			MaxAge:     viper.GetInt("runtime.log.max_age"),
			Compress:   viper.GetBool("runtime.log.compress"),
		},
	}

	if err := viper.UnmarshalKey("algos", &cfg.Algos); err != nil {
		return nil, fmt.Errorf("failed to parse algos section: %w", err)
	}

	return cfg, nil
}

func setDefaults() {
	viper.SetDefault("broker.name", "angel")
	viper.SetDefault("risk.min_balance_threshold", 1000.0)
	viper.SetDefault("risk.global_max_daily_loss", 3000.0)
	viper.SetDefault("risk.global_max_open_positions", 2)
	viper.SetDefault("risk.max_watched_stocks", 20)
	viper.SetDefault("engine.cycle_interval_ms", 1000)
	viper.SetDefault("engine.retry_attempts", 3)
	viper.SetDefault("engine.retry_delay_ms", 500)
	viper.SetDefault("engine.square_off_time", "15:15")
	viper.SetDefault("engine.market_open_time", "09:15")
	viper.SetDefault("engine.market_close_time", "15:30")
	viper.SetDefault("engine.candle_history_cap", 200)
	viper.SetDefault("store.path", "data/intrabot.db")
	viper.SetDefault("runtime.log.level", "info")
}

func envSub(key string) string {
	val := viper.GetString(key)
	if val == "" {
		return ""
	}

	re := regexp.MustCompile(`\$\{(\w+)\}`)
	return re.ReplaceAllStringFunc(val, func(match string) string {
		envKey := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(envKey)
	})
}
