package recordstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"intake-app/scan"
)

// Client talks to the remote record API. The API is an opaque collaborator:
// its response shapes are translated into tagged outcomes right here at the
// boundary and never inspected further in.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: timeout},
	}
}

// WithToken returns a shallow copy bound to a request-scoped bearer token
// (the caller's own Authorization header forwarded through).
func (c *Client) WithToken(token string) *Client {
	if token == "" {
		return c
	}
	clone := *c
	clone.Token = token
	return &clone
}

// apiResponse is the envelope every record-API endpoint answers with: an
// application status code (200 = accepted) plus a human message.
type apiResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// CheckCode asks whether a code belongs to the work order and is still
// unfinished. Application rejections are mapped to outcomes per the payload
// status code; a transport failure is returned as err so the caller leaves
// the ledger untouched and retries manually.
func (c *Client) CheckCode(ctx context.Context, workOrderNo, code string) (scan.Outcome, string, error) {
	body := map[string]string{
		"work_order_no": workOrderNo,
		"barcode":       code,
	}

	resp, err := c.post(ctx, "/work-orders/check", body, "")
	if err != nil {
		return scan.OutcomeTransportError, "", err
	}

	switch resp.Status {
	case 200:
		return scan.OutcomeAccepted, resp.Message, nil
	case 410:
		return scan.OutcomeAlreadyFinished, resp.Message, nil
	default:
		return scan.OutcomeNotFound, resp.Message, nil
	}
}

// Submit issues the assembled payload to the bulk-create endpoint in one
// all-or-nothing call. An idempotency key guards against a retry racing a
// slow first attempt on the server side.
func (c *Client) Submit(ctx context.Context, payload scan.Payload) error {
	resp, err := c.post(ctx, "/intake/bulk", payload, uuid.NewString())
	if err != nil {
		return err
	}
	if resp.Status != 200 {
		if resp.Message == "" {
			return fmt.Errorf("record API rejected submission (status %d)", resp.Status)
		}
		return fmt.Errorf("record API rejected submission: %s", resp.Message)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any, idempotencyKey string) (*apiResponse, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	httpResp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	var resp apiResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode record API response: %w", err)
	}
	if resp.Status == 0 {
		// Older API builds omit the envelope status; fall back to HTTP.
		resp.Status = httpResp.StatusCode
	}
	return &resp, nil
}
