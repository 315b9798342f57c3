// Package gormstore persists trades, ledgers and events in SQLite via Gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"intrabot/internal/models"
	"intrabot/internal/store"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Store struct {
	db *gorm.DB
}

var _ store.Store = (*Store)(nil)

func New(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("gorm store: database path must not be empty")
	}
	if err := ensureDir(path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&tradeModel{}, &ledgerModel{}, &eventModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite with a single writer: keep the pool tiny to avoid lock contention.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &Store{db: db}, nil
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// --------------------- trades -------------------------

func (s *Store) InsertTrade(ctx context.Context, rec *store.TradeRecord) error {
	now := time.Now()
	model := tradeModel{
		AlgoName:      rec.AlgoName,
		Symbol:        rec.Symbol,
		Side:          string(rec.Side),
		Quantity:      rec.Quantity,
		EntryPrice:    rec.EntryPrice,
		ExitPrice:     rec.ExitPrice,
		StoplossPrice: rec.StoplossPrice,
		TargetPrice:   rec.TargetPrice,
		Status:        string(rec.Status),
		BrokerOrderID: rec.BrokerOrderID,
		PnL:           rec.PnL,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.db.WithContext(ctx).Create(&model).Error; err != nil {
		return err
	}
	rec.ID = model.ID
	rec.CreatedAt = model.CreatedAt
	rec.UpdatedAt = model.UpdatedAt
	return nil
}

func (s *Store) GetTrade(ctx context.Context, id int64) (store.TradeRecord, bool, error) {
	var model tradeModel
	err := s.db.WithContext(ctx).First(&model, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.TradeRecord{}, false, nil
	}
	if err != nil {
		return store.TradeRecord{}, false, err
	}
	return model.record(), true, nil
}

func (s *Store) UpdateTradeStatus(ctx context.Context, id int64, status models.TradeStatus) error {
	return s.db.WithContext(ctx).Model(&tradeModel{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     string(status),
			"updated_at": time.Now(),
		}).Error
}

func (s *Store) ListOpenTrades(ctx context.Context) ([]store.TradeRecord, error) {
	var rows []tradeModel
	err := s.db.WithContext(ctx).
		Where("status = ?", string(models.TradeStatusOpen)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	records := make([]store.TradeRecord, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.record())
	}
	return records, nil
}

func (s *Store) SumTradePnL(ctx context.Context) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Model(&tradeModel{}).
		Select("COALESCE(SUM(pnl), 0)").
		Scan(&total).Error
	return total, err
}

func (s *Store) MarkOpenTradesForceExit(ctx context.Context) (int64, error) {
	result := s.db.WithContext(ctx).Model(&tradeModel{}).
		Where("status = ?", string(models.TradeStatusOpen)).
		Updates(map[string]interface{}{
			"status":     string(models.TradeStatusForceExitPending),
			"updated_at": time.Now(),
		})
	return result.RowsAffected, result.Error
}

// --------------------- ledger -------------------------

func (s *Store) LedgerForDate(ctx context.Context, date time.Time) (store.LedgerRecord, bool, error) {
	var model ledgerModel
	err := s.db.WithContext(ctx).
		Where("trading_date = ?", dateOnly(date)).
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.LedgerRecord{}, false, nil
	}
	if err != nil {
		return store.LedgerRecord{}, false, err
	}
	return model.record(), true, nil
}

func (s *Store) SaveLedger(ctx context.Context, rec *store.LedgerRecord) error {
	model := ledgerModel{
		ID:             rec.ID,
		TradingDate:    dateOnly(rec.TradingDate),
		OpeningBalance: rec.OpeningBalance,
		UsedMargin:     rec.UsedMargin,
		FreeMargin:     rec.FreeMargin,
		PnL:            rec.PnL,
		TradingEnabled: rec.TradingEnabled,
	}
	if err := s.db.WithContext(ctx).Save(&model).Error; err != nil {
		return err
	}
	rec.ID = model.ID
	return nil
}

func (s *Store) DisableLedgersBefore(ctx context.Context, date time.Time) error {
	return s.db.WithContext(ctx).Model(&ledgerModel{}).
		Where("trading_date < ?", dateOnly(date)).
		Update("trading_enabled", false).Error
}

func dateOnly(t time.Time) string {
	return t.Format("2006-01-02")
}

// --------------------- events -------------------------

func (s *Store) AppendEvent(ctx context.Context, level store.EventLevel, eventType, message string) error {
	return s.db.WithContext(ctx).Create(&eventModel{
		Level:     string(level),
		Type:      eventType,
		Message:   message,
		CreatedAt: time.Now(),
	}).Error
}
