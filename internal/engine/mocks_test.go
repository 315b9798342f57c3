package engine

import (
	"context"
	"time"

	"intrabot/internal/broker"
	"intrabot/internal/models"
	"intrabot/internal/store"

	"github.com/stretchr/testify/mock"
)

type MockBroker struct {
	mock.Mock
}

func (m *MockBroker) Name() string { return "mock" }

func (m *MockBroker) Connect(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBroker) FetchBalance(ctx context.Context) (broker.Balance, error) {
	args := m.Called(ctx)
	return args.Get(0).(broker.Balance), args.Error(1)
}

func (m *MockBroker) ValidateToken(ctx context.Context, symbol, token string) (bool, error) {
	args := m.Called(ctx, symbol, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockBroker) PlaceLimitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(broker.OrderResponse), args.Error(1)
}

func (m *MockBroker) PlaceStoplossOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(broker.OrderResponse), args.Error(1)
}

func (m *MockBroker) ExitPosition(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(broker.OrderResponse), args.Error(1)
}

func (m *MockBroker) SubscribeTicks(ctx context.Context, subs []broker.Subscription, onTick broker.TickHandler) error {
	args := m.Called(ctx, subs, onTick)
	return args.Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) InsertTrade(ctx context.Context, rec *store.TradeRecord) error {
	args := m.Called(ctx, rec)
	if args.Error(0) == nil && rec.ID == 0 {
		rec.ID = 1
	}
	return args.Error(0)
}

func (m *MockStore) GetTrade(ctx context.Context, id int64) (store.TradeRecord, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(store.TradeRecord), args.Bool(1), args.Error(2)
}

func (m *MockStore) UpdateTradeStatus(ctx context.Context, id int64, status models.TradeStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockStore) ListOpenTrades(ctx context.Context) ([]store.TradeRecord, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]store.TradeRecord), args.Error(1)
}

func (m *MockStore) SumTradePnL(ctx context.Context) (float64, error) {
	args := m.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

func (m *MockStore) MarkOpenTradesForceExit(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) LedgerForDate(ctx context.Context, date time.Time) (store.LedgerRecord, bool, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(store.LedgerRecord), args.Bool(1), args.Error(2)
}

func (m *MockStore) SaveLedger(ctx context.Context, rec *store.LedgerRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockStore) DisableLedgersBefore(ctx context.Context, date time.Time) error {
	args := m.Called(ctx, date)
	return args.Error(0)
}

func (m *MockStore) AppendEvent(ctx context.Context, level store.EventLevel, eventType, message string) error {
	args := m.Called(ctx, level, eventType, message)
	return args.Error(0)
}

type recordingNotifier struct {
	messages []string
	err      error
}

func (n *recordingNotifier) SendText(text string) error {
	n.messages = append(n.messages, text)
	return n.err
}
