package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"signalboard/config"
	"signalboard/internal/model"
	"signalboard/logger"
)

// Result is the only part of a command response the dashboard reads: a
// success flag and a human-readable message.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// OrderRequest places a market order through the platform.
type OrderRequest struct {
	Broker string          `json:"broker"`
	Symbol string          `json:"symbol"`
	Side   model.OrderSide `json:"side"`
	Volume float64         `json:"volume"`
}

// Client issues REST side-channel commands with a bearer credential.
// Repeated auth failures are the caller's concern: onUnauthorized fires
// on every 401/403 so the owner can tear down the session.
type Client struct {
	baseURL        string
	token          string
	httpClient     *http.Client
	limiter        *rate.Limiter
	onUnauthorized func()
	log            *logger.Entry
}

func NewClient(cfg config.CommandsConfig, onUnauthorized func()) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	return &Client{
		baseURL:        cfg.BaseURL,
		token:          cfg.Token,
		httpClient:     &http.Client{Timeout: timeout},
		limiter:        rate.NewLimiter(rate.Limit(rps), burst),
		onUnauthorized: onUnauthorized,
		log:            logger.GetLogger().WithComponent("command_client"),
	}
}

// ResetBroker asks the platform to reset one broker session.
func (c *Client) ResetBroker(ctx context.Context, brokerKey string) (Result, error) {
	return c.do(ctx, http.MethodPost, "/api/broker/"+url.PathEscape(brokerKey)+"/reset", nil)
}

// DeleteBroker removes one broker session.
func (c *Client) DeleteBroker(ctx context.Context, brokerKey string) (Result, error) {
	return c.do(ctx, http.MethodDelete, "/api/broker/"+url.PathEscape(brokerKey), nil)
}

// PlaceOrder submits a BUY or SELL order.
func (c *Client) PlaceOrder(ctx context.Context, order OrderRequest) (Result, error) {
	if order.Side != model.SideBuy && order.Side != model.SideSell {
		return Result{}, fmt.Errorf("invalid order side %q", order.Side)
	}
	return c.do(ctx, http.MethodPost, "/api/order", order)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) (Result, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Result{}, fmt.Errorf("rate limit wait: %w", err)
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return Result{}, fmt.Errorf("encode command body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return Result{}, fmt.Errorf("build command request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("command request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.log.WithFields(logger.Fields{"status": resp.StatusCode, "path": path}).Warn("command rejected, credential invalid")
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
		return Result{}, fmt.Errorf("command unauthorized (status %d)", resp.StatusCode)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		// The body is opaque beyond success/failure; fall back to the
		// HTTP status when it cannot be decoded.
		result = Result{
			Success: resp.StatusCode >= 200 && resp.StatusCode < 300,
			Message: http.StatusText(resp.StatusCode),
		}
	}
	return result, nil
}
