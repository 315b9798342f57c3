package engine

import (
	"context"
	"fmt"

	"intrabot/internal/broker"
	"intrabot/internal/models"
)

// Operator hooks. These are the only entry points that mutate algorithm and
// watchlist state from outside the trading loop.

func (e *Engine) AddAlgo(cfg models.AlgoConfig) error {
	if err := e.algos.Add(cfg); err != nil {
		return err
	}
	e.log.WithAlgo(cfg.Name).WithField("template", cfg.Template).Info("Algorithm registered.")
	return nil
}

func (e *Engine) PauseAlgo(name string) error {
	if !e.algos.Pause(name) {
		return fmt.Errorf("unknown algo %q", name)
	}
	e.log.WithAlgo(name).Info("Algorithm paused.")
	return nil
}

func (e *Engine) ResumeAlgo(name string) error {
	if !e.algos.Resume(name) {
		return fmt.Errorf("unknown algo %q", name)
	}
	e.log.WithAlgo(name).Info("Algorithm resumed.")
	return nil
}

// AddStock validates the instrument token with the broker and subscribes it
// to the feed. The watchlist size is capped.
func (e *Engine) AddStock(ctx context.Context, symbol, token string) error {
	if max := e.cfg.Risk.MaxWatchedStocks; max > 0 && e.market.SubscriptionCount() >= max {
		return fmt.Errorf("watchlist full: max %d stocks supported", max)
	}
	valid, err := e.client.ValidateToken(ctx, symbol, token)
	if err != nil {
		return fmt.Errorf("token validation failed: %w", err)
	}
	if !valid {
		return fmt.Errorf("invalid token for %s", symbol)
	}
	e.market.AddStock(symbol, token)
	e.log.WithSymbol(symbol).Info("Stock subscribed.")
	return nil
}

func (e *Engine) RemoveStock(symbol string) {
	e.market.RemoveStock(symbol)
	e.log.WithSymbol(symbol).Info("Stock removed.")
}

// ManualExit closes a specific trade at the broker and marks the record
// MANUAL_EXIT.
func (e *Engine) ManualExit(ctx context.Context, tradeID int64) error {
	trade, found, err := e.store.GetTrade(ctx, tradeID)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("%w: id=%d", ErrTradeNotFound, tradeID)
	}

	exitSide := models.SideSell
	if trade.Side == models.SideSell {
		exitSide = models.SideBuy
	}
	if _, err := e.client.ExitPosition(ctx, broker.OrderRequest{
		Symbol:   trade.Symbol,
		Side:     exitSide,
		Quantity: trade.Quantity,
		Product:  broker.ProductIntraday,
	}); err != nil {
		return fmt.Errorf("exit order failed for trade %d: %w", tradeID, err)
	}

	if err := e.store.UpdateTradeStatus(ctx, tradeID, models.TradeStatusManualExit); err != nil {
		return err
	}
	e.algos.RecordExit(trade.AlgoName, trade.PnL)
	e.log.WithAlgo(trade.AlgoName).WithFields(map[string]interface{}{
		"trade_id": tradeID,
		"symbol":   trade.Symbol,
	}).Info("Trade exited manually.")
	return nil
}
