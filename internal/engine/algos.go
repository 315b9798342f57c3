package engine

import (
	"fmt"
	"sync"

	"intrabot/internal/models"

	"github.com/go-playground/validator/v10"
)

// Algos is the registry of algorithm configs plus the per-algo day counters
// (open positions, trades today, accumulated pnl). The engine is the sole
// writer of the counters; risk checks only ever see copied snapshots.
type Algos struct {
	mu            sync.Mutex
	order         []string
	configs       map[string]models.AlgoConfig
	paused        map[string]struct{}
	openPositions map[string]int
	trades        map[string]int
	pnl           map[string]float64

	validate *validator.Validate
}

func NewAlgos() *Algos {
	return &Algos{
		configs:       make(map[string]models.AlgoConfig),
		paused:        make(map[string]struct{}),
		openPositions: make(map[string]int),
		trades:        make(map[string]int),
		pnl:           make(map[string]float64),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Add registers or replaces an algorithm. Invalid configs are rejected here,
// before the config can ever enter a trading cycle.
func (a *Algos) Add(cfg models.AlgoConfig) error {
	if err := a.validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid algo config %q: %w", cfg.Name, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if _, exists := a.configs[cfg.Name]; !exists {
		a.order = append(a.order, cfg.Name)
	}
	a.configs[cfg.Name] = cfg
	return nil
}

func (a *Algos) Pause(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.configs[name]; !ok {
		return false
	}
	a.paused[name] = struct{}{}
	return true
}

func (a *Algos) Resume(name string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.configs[name]; !ok {
		return false
	}
	delete(a.paused, name)
	return true
}

// Active returns the non-paused configs in registration order, which fixes
// the processing order within a cycle.
func (a *Algos) Active() []models.AlgoConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.AlgoConfig, 0, len(a.order))
	for _, name := range a.order {
		if _, paused := a.paused[name]; paused {
			continue
		}
		out = append(out, a.configs[name])
	}
	return out
}

// RecordTrade bumps the open-position and trades-today counters after a
// successful execution.
func (a *Algos) RecordTrade(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.openPositions[name]++
	a.trades[name]++
}

// RecordExit releases one open-position slot and books realized pnl.
func (a *Algos) RecordExit(name string, pnl float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.openPositions[name] > 0 {
		a.openPositions[name]--
	}
	a.pnl[name] += pnl
}

// Counters returns copies of the per-algo maps plus the global open-position
// total, for building the per-cycle risk context.
func (a *Algos) Counters() (open map[string]int, trades map[string]int, pnl map[string]float64, totalOpen int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	open = make(map[string]int, len(a.openPositions))
	trades = make(map[string]int, len(a.trades))
	pnl = make(map[string]float64, len(a.pnl))
	for name, n := range a.openPositions {
		open[name] = n
		totalOpen += n
	}
	for name, n := range a.trades {
		trades[name] = n
	}
	for name, v := range a.pnl {
		pnl[name] = v
	}
	return open, trades, pnl, totalOpen
}
