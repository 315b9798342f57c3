package angel

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"intrabot/internal/broker"
)

type apiResponse struct {
	Status    bool            `json:"status"`
	Message   string          `json:"message"`
	ErrorCode string          `json:"errorcode"`
	Data      json.RawMessage `json:"data"`
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any, out any) error {
	var bodyReader io.Reader
	var bodyStr string
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		bodyStr = string(payload)
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-PrivateKey", c.apiKey)
	req.Header.Set("X-Timestamp", timestamp)
	req.Header.Set("X-Signature", sign(c.secret, timestamp+c.apiKey+bodyStr))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	var envelope apiResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if !envelope.Status {
		return fmt.Errorf("angel api error: %s (code=%s)", envelope.Message, envelope.ErrorCode)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) Connect(ctx context.Context) error {
	c.logEntry().WithFields(map[string]interface{}{"base_url": c.baseURL}).Info("Connecting to broker.")
	return c.doRequest(ctx, http.MethodGet, "/rest/secure/v1/profile", nil, nil)
}

func (c *Client) FetchBalance(ctx context.Context) (broker.Balance, error) {
	var data struct {
		AvailableBalance float64 `json:"availablecash"`
		UsedMargin       float64 `json:"utilisedmargin"`
		FreeMargin       float64 `json:"net"`
	}
	if err := c.doRequest(ctx, http.MethodGet, "/rest/secure/v1/funds", nil, &data); err != nil {
		return broker.Balance{}, err
	}
	return broker.Balance{
		Available:  data.AvailableBalance,
		UsedMargin: data.UsedMargin,
		FreeMargin: data.FreeMargin,
	}, nil
}

func (c *Client) ValidateToken(ctx context.Context, symbol, token string) (bool, error) {
	if symbol == "" || token == "" {
		return false, nil
	}
	var data struct {
		Symbol string `json:"tradingsymbol"`
	}
	err := c.doRequest(ctx, http.MethodPost, "/rest/secure/v1/searchScrip",
		map[string]string{"symboltoken": token}, &data)
	if err != nil {
		return false, err
	}
	return data.Symbol != "", nil
}

type orderPayload struct {
	TradingSymbol string `json:"tradingsymbol"`
	Side          string `json:"transactiontype"`
	Quantity      int    `json:"quantity"`
	Price         string `json:"price"`
	TriggerPrice  string `json:"triggerprice,omitempty"`
	Product       string `json:"producttype"`
	OrderType     string `json:"ordertype"`
	ClientOrderID string `json:"ordertag,omitempty"`
}

func newOrderPayload(req broker.OrderRequest) orderPayload {
	p := orderPayload{
		TradingSymbol: req.Symbol,
		Side:          string(req.Side),
		Quantity:      req.Quantity,
		Price:         strconv.FormatFloat(req.Price, 'f', 2, 64),
		Product:       req.Product,
		OrderType:     req.OrderType,
		ClientOrderID: req.ClientOrderID,
	}
	if req.TriggerPrice > 0 {
		p.TriggerPrice = strconv.FormatFloat(req.TriggerPrice, 'f', 2, 64)
	}
	return p
}

func (c *Client) placeOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	var data struct {
		OrderID string `json:"orderid"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/rest/secure/v1/order/place", newOrderPayload(req), &data); err != nil {
		return broker.OrderResponse{}, err
	}
	c.logEntry().WithFields(map[string]interface{}{
		"symbol":   req.Symbol,
		"side":     req.Side,
		"type":     req.OrderType,
		"qty":      req.Quantity,
		"price":    req.Price,
		"order_id": data.OrderID,
	}).Info("Order placed.")
	return broker.OrderResponse{Status: broker.StatusSuccess, OrderID: data.OrderID}, nil
}

func (c *Client) PlaceLimitOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	req.OrderType = broker.OrderTypeLimit
	return c.placeOrder(ctx, req)
}

func (c *Client) PlaceStoplossOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	req.OrderType = broker.OrderTypeStoplossLimit
	return c.placeOrder(ctx, req)
}

func (c *Client) ExitPosition(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	req.OrderType = broker.OrderTypeMarket
	req.Price = 0
	return c.placeOrder(ctx, req)
}
