package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"intrabot/internal/broker"
	"intrabot/internal/logger"
	"intrabot/internal/models"
	"intrabot/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func fixedMorning() time.Time {
	return time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
}

func cycleStoreMocks(st *MockStore) {
	st.On("MarkOpenTradesForceExit", mock.Anything).Return(int64(0), nil).Maybe()
	st.On("DisableLedgersBefore", mock.Anything, mock.Anything).Return(nil).Maybe()
	st.On("LedgerForDate", mock.Anything, mock.Anything).Return(store.LedgerRecord{}, false, nil).Maybe()
	st.On("SaveLedger", mock.Anything, mock.Anything).Return(nil).Maybe()
	st.On("SumTradePnL", mock.Anything).Return(0.0, nil).Maybe()
}

func TestFeedDropDoesNotLatchHalt(t *testing.T) {
	b := &MockBroker{}
	st := &MockStore{}
	e := newTestEngine(b, st)
	e.now = fixedMorning
	e.cfg.Engine.CycleIntervalMs = 10

	b.On("Connect", mock.Anything).Return(nil)
	b.On("ValidateToken", mock.Anything, "RELIANCE", "2885").Return(true, nil)
	b.On("FetchBalance", mock.Anything).
		Return(broker.Balance{Available: 100000, FreeMargin: 100000}, nil).Maybe()
	cycleStoreMocks(st)

	// First subscription drops immediately; the second one serves until
	// shutdown, standing in for a successful reconnect.
	serving := make(chan struct{})
	b.On("SubscribeTicks", mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("stream reset")).Once()
	b.On("SubscribeTicks", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			close(serving)
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).Return(nil)

	require.NoError(t, e.AddStock(context.Background(), "RELIANCE", "2885"))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Start(ctx) }()

	select {
	case <-serving:
	case <-time.After(10 * time.Second):
		t.Fatal("feed never reconnected")
	}

	assert.True(t, e.market.Connected())
	assert.Empty(t, e.HaltedReason(), "a transient feed drop must not halt trading")

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("engine did not stop on cancel")
	}
}

func TestRunCycleContinuesPastSymbolFailure(t *testing.T) {
	b := &MockBroker{}
	st := &MockStore{}
	e := newTestEngine(b, st)
	e.now = fixedMorning
	e.exec = NewExecutor(b, st, &recordingNotifier{},
		RetryPolicy{Attempts: 1, Delay: time.Millisecond}, logger.NewNop())

	algo := validAlgo("alpha")
	algo.Watchlist = []string{"RELIANCE", "TCS"}
	require.NoError(t, e.AddAlgo(algo))

	// Six ticks per symbol close five flat candles, so a 150 print is a
	// breakout for both.
	base := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	for _, symbol := range []string{"RELIANCE", "TCS"} {
		for i := 0; i < 6; i++ {
			e.market.Candles().ProcessTick(symbol, 100, base.Add(time.Duration(i)*time.Minute))
		}
	}
	e.market.AddStock("RELIANCE", "1")
	e.market.AddStock("TCS", "2")

	feedTick := base.Add(6 * time.Minute)
	b.On("SubscribeTicks", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			onTick := args.Get(2).(broker.TickHandler)
			onTick(models.Tick{Symbol: "RELIANCE", Token: "1", LTP: 150, Timestamp: feedTick})
			onTick(models.Tick{Symbol: "TCS", Token: "2", LTP: 150, Timestamp: feedTick})
			ctx := args.Get(0).(context.Context)
			<-ctx.Done()
		}).Return(nil)

	b.On("FetchBalance", mock.Anything).
		Return(broker.Balance{Available: 100000, FreeMargin: 100000}, nil)
	cycleStoreMocks(st)

	// The first watchlist symbol fails at the broker; the second succeeds.
	b.On("PlaceLimitOrder", mock.Anything, mock.MatchedBy(func(req broker.OrderRequest) bool {
		return req.Symbol == "RELIANCE"
	})).Return(broker.OrderResponse{}, errors.New("gateway timeout"))
	b.On("PlaceLimitOrder", mock.Anything, mock.MatchedBy(func(req broker.OrderRequest) bool {
		return req.Symbol == "TCS"
	})).Return(okResponse("ORD-TCS"), nil)
	b.On("PlaceStoplossOrder", mock.Anything, mock.Anything).Return(okResponse("ORD-SL"), nil)
	st.On("AppendEvent", mock.Anything, store.EventLevelError, "ORDER_FAILED", mock.Anything).Return(nil)
	st.On("InsertTrade", mock.Anything, mock.Anything).Return(nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go e.market.Run(ctx)

	require.Eventually(t, func() bool {
		_, ok1 := e.market.LatestTick("RELIANCE")
		_, ok2 := e.market.LatestTick("TCS")
		return ok1 && ok2 && e.market.Connected()
	}, 5*time.Second, 10*time.Millisecond)

	e.runCycle(context.Background())

	// RELIANCE's failure is isolated: TCS still evaluated and traded.
	b.AssertNumberOfCalls(t, "PlaceLimitOrder", 2)
	st.AssertNumberOfCalls(t, "InsertTrade", 1)
	st.AssertCalled(t, "AppendEvent", mock.Anything, store.EventLevelError, "ORDER_FAILED", mock.Anything)

	open, trades, _, totalOpen := e.algos.Counters()
	assert.Equal(t, 1, open["alpha"])
	assert.Equal(t, 1, trades["alpha"])
	assert.Equal(t, 1, totalOpen)
}
