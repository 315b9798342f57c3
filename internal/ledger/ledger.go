// Package ledger maintains the per-day capital ledger and derives the
// capital snapshot the risk checks consume each cycle.
package ledger

import (
	"context"
	"time"

	"intrabot/internal/broker"
	"intrabot/internal/logger"
	"intrabot/internal/models"
	"intrabot/internal/store"
)

type Service struct {
	store            store.Store
	log              *logger.Logger
	warningThreshold float64
}

func NewService(st store.Store, warningThreshold float64, log *logger.Logger) *Service {
	return &Service{
		store:            st,
		log:              log,
		warningThreshold: warningThreshold,
	}
}

func (s *Service) getOrCreate(ctx context.Context, openingBalance float64) (store.LedgerRecord, error) {
	today := time.Now()
	rec, found, err := s.store.LedgerForDate(ctx, today)
	if err != nil {
		return store.LedgerRecord{}, err
	}
	if found {
		return rec, nil
	}
	rec = store.LedgerRecord{
		TradingDate:    today,
		OpeningBalance: openingBalance,
		FreeMargin:     openingBalance,
		TradingEnabled: true,
	}
	if err := s.store.SaveLedger(ctx, &rec); err != nil {
		return store.LedgerRecord{}, err
	}
	s.log.WithComponent("ledger").WithFields(map[string]interface{}{
		"opening_balance": openingBalance,
	}).Info("Opened ledger for new trading day.")
	return rec, nil
}

// Snapshot refreshes today's ledger from the broker balance and aggregate
// trade pnl, and returns the capital view for this cycle.
func (s *Service) Snapshot(ctx context.Context, balance broker.Balance) (models.CapitalSnapshot, error) {
	rec, err := s.getOrCreate(ctx, balance.Available)
	if err != nil {
		return models.CapitalSnapshot{}, err
	}

	totalPnL, err := s.store.SumTradePnL(ctx)
	if err != nil {
		return models.CapitalSnapshot{}, err
	}

	rec.PnL = totalPnL
	rec.UsedMargin = balance.UsedMargin
	rec.FreeMargin = balance.FreeMargin
	if err := s.store.SaveLedger(ctx, &rec); err != nil {
		return models.CapitalSnapshot{}, err
	}

	snapshot := models.CapitalSnapshot{
		AvailableBalance: balance.Available,
		UsedMargin:       rec.UsedMargin,
		FreeMargin:       rec.FreeMargin,
		TodayPnL:         rec.PnL,
		TradingEnabled:   rec.TradingEnabled,
	}
	if balance.Available < s.warningThreshold {
		snapshot.Warning = "Balance below threshold"
	}
	return snapshot, nil
}

// ResetForNewDay flags yesterday's leftovers: open trades become
// FORCE_EXIT_PENDING and stale ledgers are disabled.
func (s *Service) ResetForNewDay(ctx context.Context) error {
	flagged, err := s.store.MarkOpenTradesForceExit(ctx)
	if err != nil {
		return err
	}
	if flagged > 0 {
		s.log.WithComponent("ledger").WithFields(map[string]interface{}{
			"count": flagged,
		}).Warn("Open trades flagged for forced exit.")
	}
	return s.store.DisableLedgersBefore(ctx, time.Now())
}
