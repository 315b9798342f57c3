// Package store defines the persistence contracts for trades, the per-day
// ledger and system events. Implementations live in subpackages.
package store

import (
	"context"
	"time"

	"intrabot/internal/models"
)

type TradeRecord struct {
	ID            int64
	AlgoName      string
	Symbol        string
	Side          models.Side
	Quantity      int
	EntryPrice    float64
	ExitPrice     float64
	StoplossPrice float64
	TargetPrice   float64
	Status        models.TradeStatus
	BrokerOrderID string
	PnL           float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type LedgerRecord struct {
	ID             int64
	TradingDate    time.Time
	OpeningBalance float64
	UsedMargin     float64
	FreeMargin     float64
	PnL            float64
	TradingEnabled bool
}

type EventLevel string

const (
	EventLevelInfo  EventLevel = "INFO"
	EventLevelWarn  EventLevel = "WARN"
	EventLevelError EventLevel = "ERROR"
)

type EventRecord struct {
	ID        int64
	Level     EventLevel
	Type      string
	Message   string
	CreatedAt time.Time
}

type TradeStore interface {
	InsertTrade(ctx context.Context, rec *TradeRecord) error
	GetTrade(ctx context.Context, id int64) (TradeRecord, bool, error)
	UpdateTradeStatus(ctx context.Context, id int64, status models.TradeStatus) error
	ListOpenTrades(ctx context.Context) ([]TradeRecord, error)
	SumTradePnL(ctx context.Context) (float64, error)
	MarkOpenTradesForceExit(ctx context.Context) (int64, error)
}

type LedgerStore interface {
	LedgerForDate(ctx context.Context, date time.Time) (LedgerRecord, bool, error)
	SaveLedger(ctx context.Context, rec *LedgerRecord) error
	DisableLedgersBefore(ctx context.Context, date time.Time) error
}

type EventStore interface {
	AppendEvent(ctx context.Context, level EventLevel, eventType, message string) error
}

type Store interface {
	TradeStore
	LedgerStore
	EventStore
}
