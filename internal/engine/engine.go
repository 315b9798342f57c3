package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"intrabot/internal/broker"
	"intrabot/internal/config"
	"intrabot/internal/ledger"
	"intrabot/internal/logger"
	"intrabot/internal/market"
	"intrabot/internal/models"
	"intrabot/internal/risk"
	"intrabot/internal/store"
	"intrabot/internal/strategy"

	"github.com/sirupsen/logrus"
)

// Engine runs the trading cycle: capital snapshot, square-off check, then
// evaluate/validate/execute for every active algorithm and watched symbol.
// It is the single writer of the per-algo counters; risk checks receive an
// immutable context built fresh each cycle.
type Engine struct {
	cfg       *config.Config
	client    broker.Broker
	market    *market.Manager
	store     store.Store
	ledger    *ledger.Service
	exec      *Executor
	algos     *Algos
	validator risk.Validator
	log       *logger.Logger

	mu           sync.Mutex
	haltedReason string

	now func() time.Time
}

func New(cfg *config.Config, client broker.Broker, mkt *market.Manager, st store.Store, ldg *ledger.Service, exec *Executor, log *logger.Logger) *Engine {
	return &Engine{
		cfg:       cfg,
		client:    client,
		market:    mkt,
		store:     st,
		ledger:    ldg,
		exec:      exec,
		algos:     NewAlgos(),
		validator: risk.Validator{MinBalanceThreshold: cfg.Risk.MinBalanceThreshold},
		log:       log,
		now:       time.Now,
	}
}

func (e *Engine) logEntry() *logrus.Entry {
	return e.log.WithComponent("engine")
}

// Start connects the broker, registers configured algorithms, launches the
// feed loop and then drives trading cycles until ctx is cancelled.
func (e *Engine) Start(ctx context.Context) error {
	if err := e.client.Connect(ctx); err != nil {
		return fmt.Errorf("broker connect failed: %w", err)
	}

	for _, algo := range e.cfg.Algos {
		if err := e.AddAlgo(algo); err != nil {
			return err
		}
	}

	if err := e.ledger.ResetForNewDay(ctx); err != nil {
		e.logEntry().WithError(err).Warn("Day reset failed.")
	}

	e.market.SetDisconnectCallback(func() {
		// Not latched: the risk gate rejects decisions while the feed is
		// down, and trading resumes on its own once the manager reconnects.
		e.logEntry().Warn("Tick feed dropped; trading paused until reconnect.")
	})
	go e.market.Run(ctx)

	interval := time.Duration(e.cfg.Engine.CycleIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logEntry().WithFields(logrus.Fields{
		"broker":   e.client.Name(),
		"algos":    len(e.cfg.Algos),
		"interval": interval.String(),
	}).Info("Trading loop started.")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			e.runCycle(ctx)
		}
	}
}

// runCycle never returns an error: every failure is logged and isolated so
// one bad algorithm or symbol cannot stop the loop.
func (e *Engine) runCycle(ctx context.Context) {
	balance, err := e.client.FetchBalance(ctx)
	if err != nil {
		e.logEntry().WithError(err).Warn("Balance fetch failed, skipping cycle.")
		return
	}
	capital, err := e.ledger.Snapshot(ctx, balance)
	if err != nil {
		e.logEntry().WithError(err).Warn("Ledger snapshot failed, skipping cycle.")
		return
	}

	if squareOffDue(e.now(), e.cfg.Engine.SquareOffTime) {
		e.setHalted("Auto square-off window")
	}
	if reason := e.HaltedReason(); reason != "" {
		e.logEntry().WithFields(logrus.Fields{"reason": reason}).Debug("Trading halted.")
		return
	}

	for _, algo := range e.algos.Active() {
		for _, symbol := range algo.Watchlist {
			if err := e.processSymbol(ctx, algo, symbol, capital); err != nil {
				e.log.WithAlgo(algo.Name).WithField("symbol", symbol).WithError(err).Error("Cycle step failed.")
			}
		}
	}
}

func (e *Engine) processSymbol(ctx context.Context, algo models.AlgoConfig, symbol string, capital models.CapitalSnapshot) error {
	tick, ok := e.market.LatestTick(symbol)
	if !ok {
		return nil
	}

	candles := e.market.Candles().Recent(symbol, 0)
	decision, ok := strategy.Evaluate(algo, symbol, candles, tick.LTP)
	if !ok {
		return nil
	}

	accepted, reason := e.validator.Validate(decision, algo, capital, e.riskContext(capital))
	if !accepted {
		// Risk refusals are routine; log and move on.
		e.log.WithAlgo(algo.Name).WithFields(logrus.Fields{
			"symbol": symbol,
			"reason": reason,
		}).Debug("Decision rejected.")
		return nil
	}

	rec, err := e.exec.ExecuteTrade(ctx, decision)
	if err != nil {
		return err
	}
	e.algos.RecordTrade(algo.Name)
	e.log.WithAlgo(algo.Name).WithFields(logrus.Fields{
		"symbol":   symbol,
		"trade_id": rec.ID,
		"reason":   decision.Reason,
	}).Info("Decision executed.")
	return nil
}

func (e *Engine) riskContext(capital models.CapitalSnapshot) risk.Context {
	open, trades, pnl, totalOpen := e.algos.Counters()
	return risk.Context{
		FeedConnected:          e.market.Connected(),
		GlobalDailyLoss:        capital.TodayPnL,
		GlobalMaxDailyLoss:     e.cfg.Risk.GlobalMaxDailyLoss,
		GlobalOpenPositions:    totalOpen,
		GlobalMaxOpenPositions: e.cfg.Risk.GlobalMaxOpenPositions,
		OpenPositionsByAlgo:    open,
		TradesByAlgo:           trades,
		PnLByAlgo:              pnl,
	}
}

func (e *Engine) setHalted(reason string) {
	e.mu.Lock()
	changed := e.haltedReason != reason
	e.haltedReason = reason
	e.mu.Unlock()
	if changed {
		e.logEntry().WithFields(logrus.Fields{"reason": reason}).Warn("Trading halted.")
	}
}

func (e *Engine) HaltedReason() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.haltedReason
}

// ResumeTrading clears the halt flag. Operator hook.
func (e *Engine) ResumeTrading() {
	e.mu.Lock()
	e.haltedReason = ""
	e.mu.Unlock()
}

// squareOffDue reports whether the time of day has reached the configured
// HH:MM square-off boundary.
func squareOffDue(now time.Time, hhmm string) bool {
	boundary, err := time.Parse("15:04", hhmm)
	if err != nil {
		return false
	}
	if now.Hour() != boundary.Hour() {
		return now.Hour() > boundary.Hour()
	}
	return now.Minute() >= boundary.Minute()
}
