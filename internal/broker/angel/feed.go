package angel

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"intrabot/internal/broker"
	"intrabot/internal/models"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

type subscribeMessage struct {
	Action string   `json:"action"`
	Tokens []string `json:"tokens"`
}

// SubscribeTicks dials the tick stream, subscribes, and pumps ticks into
// onTick until the connection drops or ctx is cancelled. Reconnection is the
// caller's responsibility.
func (c *Client) SubscribeTicks(ctx context.Context, subs []broker.Subscription, onTick broker.TickHandler) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial tick stream: %w", err)
	}
	defer conn.Close()
	conn.SetReadLimit(2 << 20)

	symbolByToken := make(map[string]string, len(subs))
	tokens := make([]string, 0, len(subs))
	for _, sub := range subs {
		symbolByToken[sub.Token] = sub.Symbol
		tokens = append(tokens, sub.Token)
	}

	if err := conn.WriteJSON(subscribeMessage{Action: "subscribe", Tokens: tokens}); err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}

	c.logEntry().WithFields(map[string]interface{}{"tokens": len(tokens)}).Info("Tick stream subscribed.")

	// Close the socket when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("tick stream read failed: %w", err)
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.logEntry().WithError(err).Warn("Failed to parse feed message.")
			continue
		}
		if msg.Topic != "tick" {
			continue
		}

		var payload struct {
			Token string  `json:"token"`
			LTP   float64 `json:"ltp"`
			TS    int64   `json:"ts"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.logEntry().WithError(err).Warn("Failed to parse tick payload.")
			continue
		}

		symbol, ok := symbolByToken[payload.Token]
		if !ok {
			continue
		}
		ts := time.Now()
		if payload.TS > 0 {
			ts = time.UnixMilli(payload.TS)
		}
		onTick(models.Tick{
			Symbol:    symbol,
			Token:     payload.Token,
			LTP:       payload.LTP,
			Timestamp: ts,
		})
	}
}
