package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateOrder marks a dedupe-key collision: at most one entry
	// attempt per algo/symbol/minute.
	ErrDuplicateOrder = errors.New("duplicate order prevented")

	ErrTradeNotFound = errors.New("trade not found")
)

// BrokerError wraps the last failure after the retry budget for a broker
// call is exhausted, so callers can tell it apart from risk refusals.
type BrokerError struct {
	Op  string
	Err error
}

func (e *BrokerError) Error() string {
	return fmt.Sprintf("broker %s failed repeatedly: %v", e.Op, e.Err)
}

func (e *BrokerError) Unwrap() error { return e.Err }

// PartialExecutionError reports the worst execution outcome: the entry order
// is live at the broker but the protective stop could not be placed. The
// position is unprotected and needs operator attention; nothing is rolled
// back automatically.
type PartialExecutionError struct {
	AlgoName     string
	Symbol       string
	EntryOrderID string
	Err          error
}

func (e *PartialExecutionError) Error() string {
	return fmt.Sprintf("stoploss placement failed for %s %s (entry order %s is unprotected, manual exit required): %v",
		e.AlgoName, e.Symbol, e.EntryOrderID, e.Err)
}

func (e *PartialExecutionError) Unwrap() error { return e.Err }
