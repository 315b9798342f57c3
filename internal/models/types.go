package models

import "time"

type Side string
type TradeStatus string
type StrategyTemplate string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"

	TradeStatusOpen             TradeStatus = "OPEN"
	TradeStatusManualExit       TradeStatus = "MANUAL_EXIT"
	TradeStatusForceExitPending TradeStatus = "FORCE_EXIT_PENDING"
	TradeStatusClosed           TradeStatus = "CLOSED"

	TemplateEMACrossover  StrategyTemplate = "ema_crossover"
	TemplateVWAPReversion StrategyTemplate = "vwap_reversion"
	TemplateBreakout      StrategyTemplate = "breakout"
)

// Tick is a single trade print from the feed. Ticks are never persisted.
type Tick struct {
	Symbol    string    `json:"symbol"`
	Token     string    `json:"token"`
	LTP       float64   `json:"ltp"`
	Timestamp time.Time `json:"timestamp"`
}

// Candle is a one-minute OHLCV bar. Volume counts ticks, not shares.
type Candle struct {
	Symbol string    `json:"symbol"`
	Bucket time.Time `json:"bucket"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

type AlgoConfig struct {
	Name            string           `mapstructure:"name" json:"name" validate:"required,min=2,max=80"`
	Template        StrategyTemplate `mapstructure:"template" json:"template" validate:"required,oneof=ema_crossover vwap_reversion breakout"`
	StoplossPct     float64          `mapstructure:"stoploss_pct" json:"stoploss_pct" validate:"gt=0,lt=20"`
	TargetPct       float64          `mapstructure:"target_pct" json:"target_pct" validate:"gt=0,lt=30"`
	RiskPerTrade    float64          `mapstructure:"risk_per_trade" json:"risk_per_trade" validate:"gt=0"`
	MaxTradesPerDay int              `mapstructure:"max_trades_per_day" json:"max_trades_per_day" validate:"gt=0,lte=20"`
	MaxDailyLoss    float64          `mapstructure:"max_daily_loss" json:"max_daily_loss" validate:"gt=0"`
	MaxOpenTrades   int              `mapstructure:"max_open_trades" json:"max_open_trades" validate:"gt=0,lte=10"`
	CapitalPerTrade float64          `mapstructure:"capital_per_trade" json:"capital_per_trade" validate:"gt=0"`
	Watchlist       []string         `mapstructure:"watchlist" json:"watchlist" validate:"min=1,dive,min=2,max=32"`
}

// TradeDecision is produced by the strategy evaluator and consumed within the
// same cycle by risk validation and execution. It is never stored as-is.
type TradeDecision struct {
	AlgoName      string  `json:"algo_name"`
	Symbol        string  `json:"symbol"`
	Side          Side    `json:"side"`
	LTP           float64 `json:"ltp"`
	StoplossPrice float64 `json:"stoploss_price"`
	TargetPrice   float64 `json:"target_price"`
	Quantity      int     `json:"quantity"`
	Reason        string  `json:"reason"`
}

// CapitalSnapshot is rebuilt every cycle from the broker balance and the
// day's trade ledger.
type CapitalSnapshot struct {
	AvailableBalance float64 `json:"available_balance"`
	UsedMargin       float64 `json:"used_margin"`
	FreeMargin       float64 `json:"free_margin"`
	TodayPnL         float64 `json:"today_pnl"`
	TradingEnabled   bool    `json:"trading_enabled"`
	Warning          string  `json:"warning,omitempty"`
}
