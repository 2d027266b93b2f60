package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nenidan/points-charge/internal/resilience"
)

// ConfirmRequest correlates the processor's payment reference with the
// original order reference and amount. The ledger is the sole source of truth
// for whether the charge is genuinely settled.
type ConfirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int64  `json:"amount"`
}

// Settlement holds the details returned by a successful confirmation.
type Settlement struct {
	Amount     int64  `json:"amount"`
	Method     string `json:"method"`
	OrderName  string `json:"orderName"`
	ApprovedAt Time   `json:"approvedAt"`
	Status     string `json:"status"`
}

// Time accepts the ledger's approval timestamps with or without a zone
// offset. Timestamps without an offset are taken as UTC.
type Time struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Time) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05"} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("ledger: invalid timestamp %q", raw)
}

// MarshalJSON implements json.Marshaler.
func (t Time) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte(`""`), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

// RejectedError signals a definitive business rejection by the ledger. It must
// never be retried with the same order reference.
type RejectedError struct {
	HTTPStatus int
	Code       string
	Message    string
}

// Error implements the error interface.
func (e *RejectedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("ledger: confirmation rejected (%s): %s", e.Code, e.Message)
	}
	return fmt.Sprintf("ledger: confirmation rejected with status %d", e.HTTPStatus)
}

// IsRejected reports whether the error is a definitive ledger rejection.
func IsRejected(err error) bool {
	var target *RejectedError
	return errors.As(err, &target)
}

// Client issues confirmation calls against the ledger's confirm endpoint. The
// endpoint is idempotent per order reference on the ledger side; this client
// never retries a confirmation on its own, so the wrapped HTTP client must run
// with a single attempt.
type Client struct {
	HTTP    *resilience.HTTPClient
	BaseURL string
}

type confirmEnvelope struct {
	Data  *Settlement `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Confirm performs exactly one confirmation request with the caller's bearer
// credential. A missing or invalid credential is surfaced by the ledger as a
// rejection, not handled specially here.
func (c *Client) Confirm(ctx context.Context, req ConfirmRequest, bearer string) (Settlement, error) {
	var zero Settlement
	if c == nil || c.HTTP == nil {
		return zero, errors.New("ledger: client not configured")
	}
	body, err := json.Marshal(req)
	if err != nil {
		return zero, fmt.Errorf("ledger: encode confirm request: %w", err)
	}
	endpoint := strings.TrimRight(c.BaseURL, "/") + "/api/payments/confirm"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("ledger: build confirm request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(bearer) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTP.Do(ctx, httpReq)
	if err != nil {
		return zero, fmt.Errorf("ledger: confirm request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return zero, fmt.Errorf("ledger: read confirm response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		rejected := &RejectedError{HTTPStatus: resp.StatusCode}
		var envelope confirmEnvelope
		if jsonErr := json.Unmarshal(payload, &envelope); jsonErr == nil && envelope.Error != nil {
			rejected.Code = envelope.Error.Code
			rejected.Message = envelope.Error.Message
		}
		return zero, rejected
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, fmt.Errorf("ledger: unexpected confirm status %d", resp.StatusCode)
	}

	var envelope confirmEnvelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return zero, fmt.Errorf("ledger: decode confirm response: %w", err)
	}
	if envelope.Data == nil {
		return zero, errors.New("ledger: confirm response missing data")
	}
	return *envelope.Data, nil
}
