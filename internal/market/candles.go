package market

import (
	"sync"
	"time"

	"intrabot/internal/models"
)

// DefaultRecentLimit is how many closed candles Recent returns when the
// caller passes limit <= 0.
const DefaultRecentLimit = 50

// Builder aggregates raw ticks into one-minute OHLCV candles per symbol.
// A candle closes lazily when the first tick of the next minute arrives;
// there is no timer and no gap-filling for missed buckets.
type Builder struct {
	mu         sync.Mutex
	historyCap int
	current    map[string]models.Candle
	history    map[string][]models.Candle
}

func NewBuilder(historyCap int) *Builder {
	if historyCap <= 0 {
		historyCap = 200
	}
	return &Builder{
		historyCap: historyCap,
		current:    make(map[string]models.Candle),
		history:    make(map[string][]models.Candle),
	}
}

// ProcessTick amends the in-progress candle for symbol, or rolls it into
// history and opens a new one when ts falls into a new minute bucket.
func (b *Builder) ProcessTick(symbol string, ltp float64, ts time.Time) {
	bucket := ts.Truncate(time.Minute)

	b.mu.Lock()
	defer b.mu.Unlock()

	candle, ok := b.current[symbol]
	if !ok || !candle.Bucket.Equal(bucket) {
		if ok {
			b.appendHistory(symbol, candle)
		}
		b.current[symbol] = models.Candle{
			Symbol: symbol,
			Bucket: bucket,
			Open:   ltp,
			High:   ltp,
			Low:    ltp,
			Close:  ltp,
			Volume: 1,
		}
		return
	}

	if ltp > candle.High {
		candle.High = ltp
	}
	if ltp < candle.Low {
		candle.Low = ltp
	}
	candle.Close = ltp
	candle.Volume++
	b.current[symbol] = candle
}

func (b *Builder) appendHistory(symbol string, candle models.Candle) {
	hist := append(b.history[symbol], candle)
	if len(hist) > b.historyCap {
		hist = hist[len(hist)-b.historyCap:]
	}
	b.history[symbol] = hist
}

// Recent returns up to limit of the most recent closed candles, oldest
// first. The in-progress candle is never included.
func (b *Builder) Recent(symbol string, limit int) []models.Candle {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	hist := b.history[symbol]
	if len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	out := make([]models.Candle, len(hist))
	copy(out, hist)
	return out
}
