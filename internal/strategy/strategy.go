// Package strategy evaluates rule templates over recent candles and the
// latest traded price. Evaluation is pure: no I/O, no shared state.
package strategy

import (
	"math"

	"intrabot/internal/models"
)

// minHistory is the closed-candle floor below which no template signals.
const minHistory = 5

// minRiskPerShare guards the quantity division when stoploss rounds up to
// the reference price.
const minRiskPerShare = 0.01

// Evaluate runs algo's template against the closed candles and latest price.
// It returns false when history is too short or no entry condition holds.
// All templates are long-only; there is deliberately no short side.
func Evaluate(algo models.AlgoConfig, symbol string, candles []models.Candle, ltp float64) (models.TradeDecision, bool) {
	if len(candles) < minHistory {
		return models.TradeDecision{}, false
	}

	closes := make([]float64, len(candles))
	for i, c := range candles {
		closes[i] = c.Close
	}

	switch algo.Template {
	case models.TemplateEMACrossover:
		if EMA(lastN(closes, 9), 5) > EMA(lastN(closes, 21), 10) {
			return buildLong(algo, symbol, ltp, "EMA crossover"), true
		}
	case models.TemplateVWAPReversion:
		if ltp > mean(lastN(closes, 10)) {
			return buildLong(algo, symbol, ltp, "VWAP continuation"), true
		}
	case models.TemplateBreakout:
		if ltp >= maxOf(lastN(closes, 5)) {
			return buildLong(algo, symbol, ltp, "Breakout"), true
		}
	}
	return models.TradeDecision{}, false
}

// EMA computes an exponential moving average seeded with the first value,
// k = 2/(period+1).
func EMA(values []float64, period int) float64 {
	if len(values) == 0 {
		return 0
	}
	k := 2.0 / float64(period+1)
	result := values[0]
	for _, value := range values[1:] {
		result = value*k + result*(1-k)
	}
	return result
}

func buildLong(algo models.AlgoConfig, symbol string, ltp float64, reason string) models.TradeDecision {
	stoploss := round2(ltp * (1 - algo.StoplossPct/100))
	target := round2(ltp * (1 + algo.TargetPct/100))
	riskPerShare := math.Max(ltp-stoploss, minRiskPerShare)
	quantity := int(algo.RiskPerTrade / riskPerShare)
	if quantity < 1 {
		quantity = 1
	}
	return models.TradeDecision{
		AlgoName:      algo.Name,
		Symbol:        symbol,
		Side:          models.SideBuy,
		LTP:           ltp,
		StoplossPrice: stoploss,
		TargetPrice:   target,
		Quantity:      quantity,
		Reason:        reason,
	}
}

func lastN(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func maxOf(values []float64) float64 {
	result := values[0]
	for _, v := range values[1:] {
		if v > result {
			result = v
		}
	}
	return result
}

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}
