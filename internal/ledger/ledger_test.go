package ledger

import (
	"context"
	"testing"
	"time"

	"intrabot/internal/broker"
	"intrabot/internal/logger"
	"intrabot/internal/models"
	"intrabot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	trades      []store.TradeRecord
	ledgers     map[string]store.LedgerRecord
	nextID      int64
	disabledCut time.Time
}

func newFakeStore() *fakeStore {
	return &fakeStore{ledgers: make(map[string]store.LedgerRecord)}
}

func dateKey(t time.Time) string { return t.Format("2006-01-02") }

func (f *fakeStore) InsertTrade(_ context.Context, rec *store.TradeRecord) error {
	f.nextID++
	rec.ID = f.nextID
	f.trades = append(f.trades, *rec)
	return nil
}

func (f *fakeStore) GetTrade(_ context.Context, id int64) (store.TradeRecord, bool, error) {
	for _, t := range f.trades {
		if t.ID == id {
			return t, true, nil
		}
	}
	return store.TradeRecord{}, false, nil
}

func (f *fakeStore) UpdateTradeStatus(_ context.Context, id int64, status models.TradeStatus) error {
	for i := range f.trades {
		if f.trades[i].ID == id {
			f.trades[i].Status = status
		}
	}
	return nil
}

func (f *fakeStore) ListOpenTrades(_ context.Context) ([]store.TradeRecord, error) {
	var out []store.TradeRecord
	for _, t := range f.trades {
		if t.Status == models.TradeStatusOpen {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) SumTradePnL(_ context.Context) (float64, error) {
	var sum float64
	for _, t := range f.trades {
		sum += t.PnL
	}
	return sum, nil
}

func (f *fakeStore) MarkOpenTradesForceExit(_ context.Context) (int64, error) {
	var n int64
	for i := range f.trades {
		if f.trades[i].Status == models.TradeStatusOpen {
			f.trades[i].Status = models.TradeStatusForceExitPending
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) LedgerForDate(_ context.Context, date time.Time) (store.LedgerRecord, bool, error) {
	rec, ok := f.ledgers[dateKey(date)]
	return rec, ok, nil
}

func (f *fakeStore) SaveLedger(_ context.Context, rec *store.LedgerRecord) error {
	if rec.ID == 0 {
		f.nextID++
		rec.ID = f.nextID
	}
	f.ledgers[dateKey(rec.TradingDate)] = *rec
	return nil
}

func (f *fakeStore) DisableLedgersBefore(_ context.Context, date time.Time) error {
	f.disabledCut = date
	for key, rec := range f.ledgers {
		if rec.TradingDate.Before(date.Truncate(24 * time.Hour)) {
			rec.TradingEnabled = false
			f.ledgers[key] = rec
		}
	}
	return nil
}

func (f *fakeStore) AppendEvent(_ context.Context, _ store.EventLevel, _, _ string) error {
	return nil
}

func TestSnapshotCreatesLedgerOnFirstCycle(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, 1000, logger.NewNop())

	snapshot, err := svc.Snapshot(context.Background(), broker.Balance{
		Available:  50000,
		UsedMargin: 10000,
		FreeMargin: 40000,
	})
	require.NoError(t, err)

	assert.Equal(t, 50000.0, snapshot.AvailableBalance)
	assert.Equal(t, 40000.0, snapshot.FreeMargin)
	assert.True(t, snapshot.TradingEnabled)
	assert.Empty(t, snapshot.Warning)

	rec, found, err := fs.LedgerForDate(context.Background(), time.Now())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 50000.0, rec.OpeningBalance)
}

func TestSnapshotReusesLedgerAndAccumulatesPnL(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, 1000, logger.NewNop())

	_, err := svc.Snapshot(context.Background(), broker.Balance{Available: 50000, FreeMargin: 50000})
	require.NoError(t, err)

	require.NoError(t, fs.InsertTrade(context.Background(), &store.TradeRecord{
		AlgoName: "alpha", Symbol: "RELIANCE", Status: models.TradeStatusClosed, PnL: -250,
	}))
	require.NoError(t, fs.InsertTrade(context.Background(), &store.TradeRecord{
		AlgoName: "alpha", Symbol: "TCS", Status: models.TradeStatusClosed, PnL: 100,
	}))

	snapshot, err := svc.Snapshot(context.Background(), broker.Balance{Available: 49850, FreeMargin: 49850})
	require.NoError(t, err)
	assert.Equal(t, -150.0, snapshot.TodayPnL)

	// Still one ledger for the day, with the opening balance of the first cycle.
	assert.Len(t, fs.ledgers, 1)
	rec, _, _ := fs.LedgerForDate(context.Background(), time.Now())
	assert.Equal(t, 50000.0, rec.OpeningBalance)
	assert.Equal(t, -150.0, rec.PnL)
}

func TestSnapshotWarnsBelowThreshold(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, 1000, logger.NewNop())

	snapshot, err := svc.Snapshot(context.Background(), broker.Balance{Available: 900, FreeMargin: 900})
	require.NoError(t, err)
	assert.Equal(t, "Balance below threshold", snapshot.Warning)
}

func TestResetForNewDayFlagsOpenTrades(t *testing.T) {
	fs := newFakeStore()
	svc := NewService(fs, 1000, logger.NewNop())

	require.NoError(t, fs.InsertTrade(context.Background(), &store.TradeRecord{
		AlgoName: "alpha", Symbol: "RELIANCE", Status: models.TradeStatusOpen,
	}))
	require.NoError(t, fs.InsertTrade(context.Background(), &store.TradeRecord{
		AlgoName: "alpha", Symbol: "TCS", Status: models.TradeStatusClosed,
	}))

	require.NoError(t, svc.ResetForNewDay(context.Background()))

	assert.Equal(t, models.TradeStatusForceExitPending, fs.trades[0].Status)
	assert.Equal(t, models.TradeStatusClosed, fs.trades[1].Status)
	assert.False(t, fs.disabledCut.IsZero())
}
