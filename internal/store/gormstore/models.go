package gormstore

import (
	"time"

	"intrabot/internal/models"
	"intrabot/internal/store"
)

type tradeModel struct {
	ID            int64     `gorm:"column:id;primaryKey"`
	AlgoName      string    `gorm:"column:algo_name;index"`
	Symbol        string    `gorm:"column:symbol;index"`
	Side          string    `gorm:"column:side"`
	Quantity      int       `gorm:"column:quantity"`
	EntryPrice    float64   `gorm:"column:entry_price"`
	ExitPrice     float64   `gorm:"column:exit_price"`
	StoplossPrice float64   `gorm:"column:stoploss_price"`
	TargetPrice   float64   `gorm:"column:target_price"`
	Status        string    `gorm:"column:status;index"`
	BrokerOrderID string    `gorm:"column:broker_order_id"`
	PnL           float64   `gorm:"column:pnl"`
	CreatedAt     time.Time `gorm:"column:created_at"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (tradeModel) TableName() string { return "trade_logs" }

func (m tradeModel) record() store.TradeRecord {
	return store.TradeRecord{
		ID:            m.ID,
		AlgoName:      m.AlgoName,
		Symbol:        m.Symbol,
		Side:          models.Side(m.Side),
		Quantity:      m.Quantity,
		EntryPrice:    m.EntryPrice,
		ExitPrice:     m.ExitPrice,
		StoplossPrice: m.StoplossPrice,
		TargetPrice:   m.TargetPrice,
		Status:        models.TradeStatus(m.Status),
		BrokerOrderID: m.BrokerOrderID,
		PnL:           m.PnL,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

type ledgerModel struct {
	ID             int64   `gorm:"column:id;primaryKey"`
	TradingDate    string  `gorm:"column:trading_date;uniqueIndex"`
	OpeningBalance float64 `gorm:"column:opening_balance"`
	UsedMargin     float64 `gorm:"column:used_margin"`
	FreeMargin     float64 `gorm:"column:free_margin"`
	PnL            float64 `gorm:"column:pnl"`
	TradingEnabled bool    `gorm:"column:trading_enabled"`
}

func (ledgerModel) TableName() string { return "daily_ledgers" }

func (m ledgerModel) record() store.LedgerRecord {
	date, _ := time.Parse("2006-01-02", m.TradingDate)
	return store.LedgerRecord{
		ID:             m.ID,
		TradingDate:    date,
		OpeningBalance: m.OpeningBalance,
		UsedMargin:     m.UsedMargin,
		FreeMargin:     m.FreeMargin,
		PnL:            m.PnL,
		TradingEnabled: m.TradingEnabled,
	}
}

type eventModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	Level     string    `gorm:"column:level;index"`
	Type      string    `gorm:"column:event_type;index"`
	Message   string    `gorm:"column:message"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (eventModel) TableName() string { return "system_events" }
