package kds

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dapur-pos/api/internal/config"
)

// OrderItem is one line of a displayed order.
type OrderItem struct {
	ProductName    string  `json:"product_name"`
	ProductNameAlt *string `json:"product_name_alt"`
	Quantity       int32   `json:"quantity"`
	Note           *string `json:"note"`
}

// Order is a kitchen order as returned by the server's display endpoint.
type Order struct {
	ID             string      `json:"id"`
	OrderNumber    string      `json:"order_number"`
	OrderType      string      `json:"order_type"`
	KitchenStatus  string      `json:"kitchen_status"`
	TableNumber    *string     `json:"table_number"`
	CustomerName   *string     `json:"customer_name"`
	MinutesElapsed int         `json:"minutes_elapsed"`
	Urgency        string      `json:"urgency"`
	CreatedAt      time.Time   `json:"created_at"`
	Items          []OrderItem `json:"items"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
	Date   string  `json:"date"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Client talks to the POS server's kitchen endpoints on behalf of a display
// terminal.
type Client struct {
	baseURL  string
	outletID string
	token    string
	httpc    *http.Client
}

// NewClient creates an API client from the display terminal configuration.
func NewClient(cfg *config.KDSConfig) *Client {
	return &Client{
		baseURL:  cfg.ServerURL,
		outletID: cfg.OutletID,
		token:    cfg.Token,
		httpc:    &http.Client{Timeout: 10 * time.Second},
	}
}

// FetchOrders returns today's pending and preparing orders, oldest first.
func (c *Client) FetchOrders(ctx context.Context) ([]Order, error) {
	url := fmt.Sprintf("%s/outlets/%s/kitchen/orders", c.baseURL, c.outletID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apiError(resp)
	}

	var body ordersResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	return body.Orders, nil
}

// SetStatus moves an order to the given kitchen status. The server enforces
// the transition rules; a conflict means the display should refresh and retry.
func (c *Client) SetStatus(ctx context.Context, orderID, status string) error {
	url := fmt.Sprintf("%s/outlets/%s/kitchen/orders/%s/status", c.baseURL, c.outletID, orderID)

	payload, err := json.Marshal(map[string]string{"status": status})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return nil
}

func apiError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var body errorResponse
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, body.Error)
	}
	return fmt.Errorf("server returned %d", resp.StatusCode)
}
