package engine

import (
	"context"
	"errors"
	"time"

	"intrabot/internal/broker"
)

// RetryPolicy is a bounded retry with a fixed inter-attempt delay, shared by
// every broker order call.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 3, Delay: 500 * time.Millisecond}
}

// Do runs fn up to Attempts times. Every attempt that returns an error
// counts toward the budget; exhaustion wraps the last error in a
// *BrokerError tagged with op.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func() (broker.OrderResponse, error)) (broker.OrderResponse, error) {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		resp, err := fn()
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return broker.OrderResponse{}, &BrokerError{Op: op, Err: errors.Join(lastErr, ctx.Err())}
		case <-time.After(p.Delay):
		}
	}
	return broker.OrderResponse{}, &BrokerError{Op: op, Err: lastErr}
}
