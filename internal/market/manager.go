package market

import (
	"context"
	"sync"
	"time"

	"intrabot/internal/broker"
	"intrabot/internal/logger"
	"intrabot/internal/models"

	"github.com/sirupsen/logrus"
)

// Manager owns the tick subscription loop, the latest-tick cache and the
// candle builder. It keeps retrying the feed with backoff after a drop and
// flips the connected flag so risk checks can halt trading meanwhile.
type Manager struct {
	client  broker.Broker
	candles *Builder
	log     *logger.Logger

	mu            sync.Mutex
	subscriptions map[string]string
	latestTicks   map[string]models.Tick
	connected     bool

	onDisconnect func()

	reconnectDelay time.Duration
}

func NewManager(client broker.Broker, candles *Builder, log *logger.Logger) *Manager {
	return &Manager{
		client:         client,
		candles:        candles,
		log:            log,
		subscriptions:  make(map[string]string),
		latestTicks:    make(map[string]models.Tick),
		reconnectDelay: 2 * time.Second,
	}
}

func (m *Manager) logEntry() *logrus.Entry {
	return m.log.WithComponent("market")
}

// SetDisconnectCallback registers a hook invoked every time the feed drops.
func (m *Manager) SetDisconnectCallback(fn func()) {
	m.mu.Lock()
	m.onDisconnect = fn
	m.mu.Unlock()
}

func (m *Manager) AddStock(symbol, token string) {
	m.mu.Lock()
	m.subscriptions[symbol] = token
	m.mu.Unlock()
}

func (m *Manager) RemoveStock(symbol string) {
	m.mu.Lock()
	delete(m.subscriptions, symbol)
	delete(m.latestTicks, symbol)
	m.mu.Unlock()
}

func (m *Manager) SubscriptionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// LatestTick returns the last seen tick for symbol, if any.
func (m *Manager) LatestTick(symbol string) (models.Tick, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tick, ok := m.latestTicks[symbol]
	return tick, ok
}

func (m *Manager) Candles() *Builder {
	return m.candles
}

func (m *Manager) handleTick(tick models.Tick) {
	m.mu.Lock()
	m.latestTicks[tick.Symbol] = tick
	m.mu.Unlock()
	m.candles.ProcessTick(tick.Symbol, tick.LTP, tick.Timestamp)
}

func (m *Manager) snapshotSubscriptions() []broker.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := make([]broker.Subscription, 0, len(m.subscriptions))
	for symbol, token := range m.subscriptions {
		subs = append(subs, broker.Subscription{Symbol: symbol, Token: token})
	}
	return subs
}

func (m *Manager) markConnected(connected bool) {
	m.mu.Lock()
	wasConnected := m.connected
	m.connected = connected
	onDisconnect := m.onDisconnect
	m.mu.Unlock()

	if wasConnected && !connected && onDisconnect != nil {
		onDisconnect()
	}
}

// Run drives the subscription loop until ctx is cancelled. A dropped
// subscription marks the feed disconnected and retries after a short delay.
func (m *Manager) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		subs := m.snapshotSubscriptions()
		if len(subs) == 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(1 * time.Second):
			}
			continue
		}

		m.markConnected(true)
		err := m.client.SubscribeTicks(ctx, subs, m.handleTick)
		m.markConnected(false)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			m.logEntry().WithError(err).Warn("Tick feed dropped, retrying.")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.reconnectDelay):
		}
	}
}
