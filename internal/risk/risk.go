// Package risk validates trade decisions against account and algorithm
// limits. Validation is pure and side-effect free; the caller builds a fresh
// Context snapshot every cycle so checks never race with counter updates.
package risk

import "intrabot/internal/models"

// Context is the per-cycle view of everything the checks need. It is built
// by the orchestrator from its own counters and discarded after the cycle.
type Context struct {
	FeedConnected          bool
	GlobalDailyLoss        float64
	GlobalMaxDailyLoss     float64
	GlobalOpenPositions    int
	GlobalMaxOpenPositions int
	OpenPositionsByAlgo    map[string]int
	TradesByAlgo           map[string]int
	PnLByAlgo              map[string]float64
}

type Validator struct {
	MinBalanceThreshold float64
}

// Validate runs the checks in a fixed order and returns the first failing
// reason. Ordering is part of the contract: operators and tests rely on the
// earliest-listed failure being reported.
func (v Validator) Validate(decision models.TradeDecision, algo models.AlgoConfig, capital models.CapitalSnapshot, ctx Context) (bool, string) {
	if !ctx.FeedConnected {
		return false, "WebSocket disconnected; trading paused"
	}
	if capital.AvailableBalance < v.MinBalanceThreshold {
		return false, "Balance below threshold"
	}
	if ctx.GlobalDailyLoss <= -ctx.GlobalMaxDailyLoss {
		return false, "Global max daily loss reached"
	}
	if ctx.GlobalOpenPositions >= ctx.GlobalMaxOpenPositions {
		return false, "Global max open positions reached"
	}
	if ctx.OpenPositionsByAlgo[algo.Name] >= algo.MaxOpenTrades {
		return false, "Algo max concurrent trades reached"
	}
	if ctx.TradesByAlgo[algo.Name] >= algo.MaxTradesPerDay {
		return false, "Algo max trades/day reached"
	}
	if ctx.PnLByAlgo[algo.Name] <= -algo.MaxDailyLoss {
		return false, "Algo max daily loss reached"
	}
	cost := float64(decision.Quantity) * decision.LTP
	if cost > algo.CapitalPerTrade {
		return false, "Capital per trade exceeded"
	}
	if cost > capital.FreeMargin {
		return false, "Insufficient free margin"
	}
	return true, "OK"
}
