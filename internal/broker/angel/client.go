package angel

import (
	"net/http"
	"time"

	"intrabot/internal/logger"

	"github.com/sirupsen/logrus"
)

// Client talks to the Angel SmartAPI-style HTTP and websocket endpoints.
type Client struct {
	baseURL string
	wsURL   string
	apiKey  string
	secret  string

	httpClient *http.Client
	log        *logger.Logger
}

func New(baseURL, wsURL, apiKey, secret string, log *logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		wsURL:   wsURL,
		apiKey:  apiKey,
		secret:  secret,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		log: log,
	}
}

func (c *Client) Name() string {
	return "angel"
}

func (c *Client) logEntry() *logrus.Entry {
	return c.log.WithComponent("angel")
}
