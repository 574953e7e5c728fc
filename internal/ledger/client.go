package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"receiptsync/internal/dto"
	"receiptsync/internal/syncerr"
)

// AlreadyExistsMessage is the structured marker the ledger returns on POST
// /create when the receipt number was ingested before. It arrives with an HTTP
// success status and is a success-equivalent outcome, not an error.
const AlreadyExistsMessage = "receipt already exists"

// Ledger is the cloud receipt-ingestion API as consumed by the sync engine.
type Ledger interface {
	// Recent returns the most recently ingested receipt number for this API
	// key, or "" when the ledger is empty.
	Recent(ctx context.Context) (string, error)
	// Exists reports whether receiptNo was already ingested.
	Exists(ctx context.Context, receiptNo string) (bool, error)
	// Create ingests one receipt. Errors are classified syncerr.DeliveryError
	// values; the already-exists case is reported via the result, not an error.
	Create(ctx context.Context, payload *dto.DeliveryPayload) (*dto.CreateReceiptResponse, error)
}

// Client talks HTTP to the receipt ledger. One instance per agent; safe for
// sequential use from the single sync cycle.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New builds a ledger client with a per-request timeout. A timeout is treated
// as a network-class failure by the classifier.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ Ledger = (*Client)(nil)

func (c *Client) Recent(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/receipts/recent", nil)
	if err != nil {
		return "", fmt.Errorf("ledger: create recent request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ledger: recent receipt unreachable: %w", err)
	}
	defer resp.Body.Close()

	// 404 means the ledger has never seen a receipt for this key
	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ledger: recent receipt returned %d", resp.StatusCode)
	}

	var out dto.RecentReceiptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ledger: decode recent response: %w", err)
	}
	return out.ReceiptNo, nil
}

func (c *Client) Exists(ctx context.Context, receiptNo string) (bool, error) {
	u := c.baseURL + "/api/v1/receipts/check?receiptNo=" + url.QueryEscape(receiptNo)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("ledger: create check request: %w", err)
	}
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("ledger: existence check unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("ledger: existence check returned %d", resp.StatusCode)
	}

	var out dto.ExistsResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("ledger: decode check response: %w", err)
	}
	return out.Exists, nil
}

func (c *Client) Create(ctx context.Context, payload *dto.DeliveryPayload) (*dto.CreateReceiptResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &syncerr.DeliveryError{Class: syncerr.DeliveryRequest, Err: fmt.Errorf("marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/receipts", bytes.NewReader(body))
	if err != nil {
		return nil, &syncerr.DeliveryError{Class: syncerr.DeliveryRequest, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	// A per-location key stored in the POS wins over the configured one
	key := payload.APIKey
	if key == "" {
		key = c.apiKey
	}
	req.Header.Set("x-api-key", key)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// No response received — connection refused, DNS failure, timeout
		return nil, &syncerr.DeliveryError{Class: syncerr.DeliveryNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &syncerr.DeliveryError{
			Class:  syncerr.DeliveryHTTP,
			Status: resp.StatusCode,
			Body:   string(excerpt),
			Err:    fmt.Errorf("ledger returned %d", resp.StatusCode),
		}
	}

	var out dto.CreateReceiptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, &syncerr.DeliveryError{Class: syncerr.DeliveryRequest, Err: fmt.Errorf("decode create response: %w", err)}
	}
	return &out, nil
}

// AlreadyExists reports whether a create response carries the known
// already-exists sentinel.
func AlreadyExists(resp *dto.CreateReceiptResponse) bool {
	return resp != nil && !resp.Created && strings.EqualFold(strings.TrimSpace(resp.Message), AlreadyExistsMessage)
}
