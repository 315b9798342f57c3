// Package paper implements a simulated broker for dry-run mode: every order
// succeeds, balances are fixed, and the tick stream is a random walk over the
// subscribed symbols.
package paper

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"intrabot/internal/broker"
	"intrabot/internal/logger"
	"intrabot/internal/models"
)

type Broker struct {
	log *logger.Logger

	mu     sync.Mutex
	seq    int64
	prices map[string]float64
}

func New(log *logger.Logger) *Broker {
	return &Broker{
		log:    log,
		prices: make(map[string]float64),
	}
}

func (b *Broker) Name() string {
	return "paper"
}

func (b *Broker) Connect(ctx context.Context) error {
	b.log.WithComponent("paper").Info("Paper broker connected.")
	return nil
}

func (b *Broker) FetchBalance(ctx context.Context) (broker.Balance, error) {
	return broker.Balance{
		Available:  100000.0,
		UsedMargin: 0,
		FreeMargin: 100000.0,
	}, nil
}

func (b *Broker) ValidateToken(ctx context.Context, symbol, token string) (bool, error) {
	return symbol != "" && token != "", nil
}

func (b *Broker) nextOrderID(kind string) string {
	b.mu.Lock()
	b.seq++
	seq := b.seq
	b.mu.Unlock()
	return fmt.Sprintf("PAPER-%s-%d-%d", kind, time.Now().Unix(), seq)
}

func (b *Broker) PlaceLimitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	return broker.OrderResponse{Status: broker.StatusSuccess, OrderID: b.nextOrderID("LMT")}, nil
}

func (b *Broker) PlaceStoplossOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	return broker.OrderResponse{Status: broker.StatusSuccess, OrderID: b.nextOrderID("SL")}, nil
}

func (b *Broker) ExitPosition(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	return broker.OrderResponse{Status: broker.StatusSuccess, OrderID: b.nextOrderID("EXIT")}, nil
}

// SubscribeTicks emits one synthetic tick per subscribed symbol every second.
// Prices drift at most 0.5% per step so candles look plausible.
func (b *Broker) SubscribeTicks(ctx context.Context, subs []broker.Subscription, onTick broker.TickHandler) error {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, sub := range subs {
				onTick(models.Tick{
					Symbol:    sub.Symbol,
					Token:     sub.Token,
					LTP:       b.nextPrice(sub.Symbol),
					Timestamp: time.Now(),
				})
			}
		}
	}
}

func (b *Broker) nextPrice(symbol string) float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	price, ok := b.prices[symbol]
	if !ok {
		price = 100 + rand.Float64()*900
	}
	price *= 1 + (rand.Float64()-0.5)/100
	b.prices[symbol] = price
	return price
}
