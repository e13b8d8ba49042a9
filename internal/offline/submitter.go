package offline

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

// HTTPSubmitter replays spooled sales against the server's sync endpoint.
type HTTPSubmitter struct {
	baseURL  string
	outletID string
	token    string
	httpc    *http.Client
}

// NewHTTPSubmitter creates a submitter from the sync daemon configuration.
func NewHTTPSubmitter(cfg *config.SyncConfig) *HTTPSubmitter {
	return &HTTPSubmitter{
		baseURL:  cfg.ServerURL,
		outletID: cfg.OutletID,
		token:    cfg.Token,
		httpc:    &http.Client{Timeout: 15 * time.Second},
	}
}

type syncSaleBody struct {
	ClientRef     string     `json:"client_ref"`
	OrderType     string     `json:"order_type"`
	TableNumber   string     `json:"table_number,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Items         []SaleItem `json:"items"`
}

// SubmitSale posts one record. 201 means the sale was created; 200 means
// the server already had this client reference from an earlier replay.
// Both count as delivered.
func (s *HTTPSubmitter) SubmitSale(ctx context.Context, rec Record) error {
	body := syncSaleBody{
		ClientRef:     rec.ClientRef,
		OrderType:     rec.Sale.OrderType,
		TableNumber:   rec.Sale.TableNumber,
		CustomerName:  rec.Sale.CustomerName,
		CustomerPhone: rec.Sale.CustomerPhone,
		Items:         rec.Sale.Items,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal sale: %w", err)
	}

	url := fmt.Sprintf("%s/outlets/%s/sync/sales", s.baseURL, s.outletID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		return nil
	default:
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, bytes.TrimSpace(data))
	}
}
