package broker

import (
	"context"

	"intrabot/internal/models"
)

const (
	ProductIntraday = "INTRADAY"

	OrderTypeLimit         = "LIMIT"
	OrderTypeStoplossLimit = "STOPLOSS_LIMIT"
	OrderTypeMarket        = "MARKET"

	StatusSuccess = "success"
)

type Balance struct {
	Available  float64
	UsedMargin float64
	FreeMargin float64
}

type OrderRequest struct {
	Symbol        string
	Side          models.Side
	Quantity      int
	Price         float64
	TriggerPrice  float64
	Product       string
	OrderType     string
	ClientOrderID string
}

type OrderResponse struct {
	Status  string
	OrderID string
	Message string
}

func (r OrderResponse) OK() bool {
	return r.Status == StatusSuccess
}

type Subscription struct {
	Symbol string
	Token  string
}

type TickHandler func(models.Tick)

// Broker abstracts the order and market-data capabilities the engine needs.
// SubscribeTicks blocks for the lifetime of the subscription and returns an
// error when the stream drops; the caller owns reconnection.
type Broker interface {
	Name() string
	Connect(ctx context.Context) error
	FetchBalance(ctx context.Context) (Balance, error)
	ValidateToken(ctx context.Context, symbol, token string) (bool, error)
	PlaceLimitOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	PlaceStoplossOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	ExitPosition(ctx context.Context, req OrderRequest) (OrderResponse, error)
	SubscribeTicks(ctx context.Context, subs []Subscription, onTick TickHandler) error
}
