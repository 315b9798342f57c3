package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"intrabot/internal/broker"
	"intrabot/internal/logger"
	"intrabot/internal/models"
	"intrabot/internal/notifier"
	"intrabot/internal/store"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Executor turns an accepted decision into a broker order sequence: a limit
// entry followed by a protective stop, both under the shared retry policy.
// A dedupe key bounds submissions to one per algo/symbol/minute.
type Executor struct {
	client broker.Broker
	store  store.Store
	notify notifier.TextNotifier
	retry  RetryPolicy
	log    *logger.Logger

	mu        sync.Mutex
	orderKeys map[string]struct{}

	now func() time.Time
}

func NewExecutor(client broker.Broker, st store.Store, notify notifier.TextNotifier, retry RetryPolicy, log *logger.Logger) *Executor {
	return &Executor{
		client:    client,
		store:     st,
		notify:    notify,
		retry:     retry,
		log:       log,
		orderKeys: make(map[string]struct{}),
		now:       time.Now,
	}
}

func (x *Executor) logEntry(decision models.TradeDecision) *logrus.Entry {
	return x.log.WithComponent("execution").WithFields(logrus.Fields{
		"algo":   decision.AlgoName,
		"symbol": decision.Symbol,
	})
}

func (x *Executor) dedupeKey(decision models.TradeDecision) string {
	minute := x.now().UTC().Format("200601021504")
	return fmt.Sprintf("%s:%s:%s", decision.AlgoName, decision.Symbol, minute)
}

func clientOrderID() string {
	return uuid.NewString()[:12]
}

// ExecuteTrade places the entry and stoploss orders and persists the trade.
// The dedupe key is claimed before the first broker call, so a second
// decision in the same minute fails fast even while the first is in flight.
func (x *Executor) ExecuteTrade(ctx context.Context, decision models.TradeDecision) (store.TradeRecord, error) {
	key := x.dedupeKey(decision)
	x.mu.Lock()
	if _, exists := x.orderKeys[key]; exists {
		x.mu.Unlock()
		return store.TradeRecord{}, fmt.Errorf("%w: %s", ErrDuplicateOrder, key)
	}
	x.orderKeys[key] = struct{}{}
	x.mu.Unlock()

	entryReq := broker.OrderRequest{
		Symbol:        decision.Symbol,
		Side:          decision.Side,
		Quantity:      decision.Quantity,
		Price:         decision.LTP,
		Product:       broker.ProductIntraday,
		ClientOrderID: clientOrderID(),
	}
	entry, err := x.retry.Do(ctx, "entry order", func() (broker.OrderResponse, error) {
		return x.client.PlaceLimitOrder(ctx, entryReq)
	})
	if err != nil {
		x.recordEvent(ctx, "ORDER_FAILED", err.Error())
		return store.TradeRecord{}, err
	}
	if !entry.OK() {
		x.recordEvent(ctx, "ORDER_FAILED", fmt.Sprintf("entry rejected: status=%s message=%s", entry.Status, entry.Message))
		return store.TradeRecord{}, fmt.Errorf("entry order failed: status=%s", entry.Status)
	}

	stopReq := broker.OrderRequest{
		Symbol:        decision.Symbol,
		Side:          decision.Side,
		Quantity:      decision.Quantity,
		Price:         decision.StoplossPrice,
		TriggerPrice:  decision.StoplossPrice,
		Product:       broker.ProductIntraday,
		ClientOrderID: clientOrderID(),
	}
	stop, err := x.retry.Do(ctx, "stoploss order", func() (broker.OrderResponse, error) {
		return x.client.PlaceStoplossOrder(ctx, stopReq)
	})
	if err == nil && !stop.OK() {
		err = fmt.Errorf("stoploss rejected: status=%s message=%s", stop.Status, stop.Message)
	}
	if err != nil {
		x.recordEvent(ctx, "SL_FAILED", err.Error())
		return store.TradeRecord{}, &PartialExecutionError{
			AlgoName:     decision.AlgoName,
			Symbol:       decision.Symbol,
			EntryOrderID: entry.OrderID,
			Err:          err,
		}
	}

	rec := store.TradeRecord{
		AlgoName:      decision.AlgoName,
		Symbol:        decision.Symbol,
		Side:          decision.Side,
		Quantity:      decision.Quantity,
		EntryPrice:    decision.LTP,
		StoplossPrice: decision.StoplossPrice,
		TargetPrice:   decision.TargetPrice,
		Status:        models.TradeStatusOpen,
		BrokerOrderID: entry.OrderID,
	}
	if err := x.store.InsertTrade(ctx, &rec); err != nil {
		// The broker confirmed this trade; a lost record is never silent.
		x.recordEvent(ctx, "PERSIST_FAILED", fmt.Sprintf("trade %s %s order %s: %v", decision.AlgoName, decision.Symbol, entry.OrderID, err))
		return rec, fmt.Errorf("failed to record trade for order %s: %w", entry.OrderID, err)
	}

	if err := x.notify.SendText(fmt.Sprintf("ENTRY: %s %s x%d @ %.2f (SL %.2f, TGT %.2f)",
		decision.AlgoName, decision.Symbol, decision.Quantity, decision.LTP,
		decision.StoplossPrice, decision.TargetPrice)); err != nil {
		x.logEntry(decision).WithError(err).Warn("Trade alert delivery failed.")
	}

	x.logEntry(decision).WithFields(logrus.Fields{
		"trade_id": rec.ID,
		"order_id": entry.OrderID,
		"qty":      decision.Quantity,
		"price":    decision.LTP,
		"reason":   decision.Reason,
	}).Info("Trade opened.")
	return rec, nil
}

func (x *Executor) recordEvent(ctx context.Context, eventType, message string) {
	if err := x.store.AppendEvent(ctx, store.EventLevelError, eventType, message); err != nil {
		x.log.WithComponent("execution").WithError(err).Error("Failed to append system event.")
	}
}
