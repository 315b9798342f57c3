package strategy

import (
	"testing"
	"time"

	"intrabot/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAlgo(template models.StrategyTemplate) models.AlgoConfig {
	return models.AlgoConfig{
		Name:            "test-algo",
		Template:        template,
		StoplossPct:     2,
		TargetPct:       4,
		RiskPerTrade:    500,
		MaxTradesPerDay: 5,
		MaxDailyLoss:    1500,
		MaxOpenTrades:   2,
		CapitalPerTrade: 50000,
		Watchlist:       []string{"RELIANCE"},
	}
}

func candlesFromCloses(closes ...float64) []models.Candle {
	out := make([]models.Candle, len(closes))
	base := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	for i, c := range closes {
		out[i] = models.Candle{
			Symbol: "RELIANCE",
			Bucket: base.Add(time.Duration(i) * time.Minute),
			Open:   c, High: c, Low: c, Close: c,
			Volume: 1,
		}
	}
	return out
}

func TestEvaluateRequiresFiveCandles(t *testing.T) {
	candles := candlesFromCloses(100, 101, 102, 103)
	for _, template := range []models.StrategyTemplate{
		models.TemplateEMACrossover,
		models.TemplateVWAPReversion,
		models.TemplateBreakout,
	} {
		_, ok := Evaluate(testAlgo(template), "RELIANCE", candles, 200)
		assert.False(t, ok, "template %s must not signal with 4 candles", template)
	}
}

func TestEMAConvergesOnConstantSeries(t *testing.T) {
	for _, n := range []int{1, 5, 9, 21, 100} {
		values := make([]float64, n)
		for i := range values {
			values[i] = 250.0
		}
		assert.InDelta(t, 250.0, EMA(values, 5), 1e-9)
		assert.InDelta(t, 250.0, EMA(values, 10), 1e-9)
	}
}

func TestEMASeedIsFirstValue(t *testing.T) {
	assert.Equal(t, 42.0, EMA([]float64{42}, 5))
	assert.Equal(t, 0.0, EMA(nil, 5))
}

func TestBreakoutBoundaryInclusive(t *testing.T) {
	candles := candlesFromCloses(100, 101, 99, 102, 100)

	// Equal to the max close must signal (>=, not >).
	decision, ok := Evaluate(testAlgo(models.TemplateBreakout), "RELIANCE", candles, 102)
	require.True(t, ok)
	assert.Equal(t, "Breakout", decision.Reason)

	_, ok = Evaluate(testAlgo(models.TemplateBreakout), "RELIANCE", candles, 101.99)
	assert.False(t, ok)
}

func TestVWAPReversionUsesMeanOfLastTen(t *testing.T) {
	candles := candlesFromCloses(100, 100, 100, 100, 100, 100, 100, 100, 100, 100)

	_, ok := Evaluate(testAlgo(models.TemplateVWAPReversion), "RELIANCE", candles, 100)
	assert.False(t, ok, "price equal to mean must not signal")

	decision, ok := Evaluate(testAlgo(models.TemplateVWAPReversion), "RELIANCE", candles, 100.01)
	require.True(t, ok)
	assert.Equal(t, "VWAP continuation", decision.Reason)
}

func TestEMACrossoverSignalsOnRisingCloses(t *testing.T) {
	rising := candlesFromCloses(100, 101, 102, 103, 104, 105, 106, 107, 108, 109)
	decision, ok := Evaluate(testAlgo(models.TemplateEMACrossover), "RELIANCE", rising, 110)
	require.True(t, ok)
	assert.Equal(t, models.SideBuy, decision.Side)

	falling := candlesFromCloses(109, 108, 107, 106, 105, 104, 103, 102, 101, 100)
	_, ok = Evaluate(testAlgo(models.TemplateEMACrossover), "RELIANCE", falling, 99)
	assert.False(t, ok)
}

func TestDecisionPriceDerivation(t *testing.T) {
	// stoplossPct=2, targetPct=4, riskPerTrade=500, price=200
	// -> stoploss 196.00, target 208.00, riskPerShare 4.00, qty 125.
	candles := candlesFromCloses(100, 101, 99, 102, 100)
	decision, ok := Evaluate(testAlgo(models.TemplateBreakout), "RELIANCE", candles, 200)
	require.True(t, ok)

	assert.Equal(t, 196.00, decision.StoplossPrice)
	assert.Equal(t, 208.00, decision.TargetPrice)
	assert.Equal(t, 125, decision.Quantity)
	assert.Equal(t, models.SideBuy, decision.Side)
	assert.Equal(t, 200.0, decision.LTP)
	assert.Equal(t, "test-algo", decision.AlgoName)
}

func TestQuantityFlooredAtOne(t *testing.T) {
	algo := testAlgo(models.TemplateBreakout)
	algo.RiskPerTrade = 1 // risk per share far above the budget
	candles := candlesFromCloses(100, 100, 100, 100, 100)
	decision, ok := Evaluate(algo, "RELIANCE", candles, 1000)
	require.True(t, ok)
	assert.Equal(t, 1, decision.Quantity)
}
