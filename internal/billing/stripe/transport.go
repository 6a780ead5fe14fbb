package stripe

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	billingdomain "github.com/smallbiznis/subgate/internal/billing/domain"
	"go.uber.org/zap"
)

type vendorErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// doRequest performs a vendor API call. Mutating calls carry an idempotency
// key and are retried once on transport errors or 5xx responses; the same
// key makes the retry a recognized duplicate on the vendor side.
func (c *Client) doRequest(ctx context.Context, method, path string, values url.Values, operation string) ([]byte, error) {
	mutating := method != http.MethodGet

	idempotencyKey := ""
	if mutating && c.genID != nil {
		idempotencyKey = "subgate_" + c.genID.Generate().String()
	}

	attempts := 1
	if mutating {
		attempts += c.retryAttempts
	}

	var body []byte
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		body, err = c.doOnce(ctx, method, path, values, idempotencyKey)
		if err == nil {
			c.record(ctx, operation, "ok")
			return body, nil
		}
		if !retryable(err) || attempt == attempts {
			break
		}
		if c.log != nil {
			c.log.Warn("vendor request retrying",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		}
	}

	c.record(ctx, operation, classify(err))
	return nil, err
}

func (c *Client) doOnce(ctx context.Context, method, path string, values url.Values, idempotencyKey string) ([]byte, error) {
	endpoint := c.baseURL + path
	var bodyReader io.Reader

	if method == http.MethodGet {
		if len(values) > 0 {
			endpoint += "?" + values.Encode()
		}
	} else if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if bodyReader != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, mapStatusError(resp.StatusCode, payload)
	}
	return payload, nil
}

func mapStatusError(status int, payload []byte) error {
	if status == http.StatusNotFound {
		return billingdomain.ErrNotFound
	}

	var vendorErr vendorErrorResponse
	_ = json.Unmarshal(payload, &vendorErr)
	message := strings.TrimSpace(vendorErr.Error.Message)
	if message == "" {
		message = "vendor request failed"
	}
	return &billingdomain.VendorError{
		Status:  status,
		Code:    vendorErr.Error.Code,
		Message: message,
	}
}

func retryable(err error) bool {
	if err == nil {
		return false
	}
	if vErr, ok := billingdomain.AsVendorError(err); ok {
		return vErr.Status >= http.StatusInternalServerError
	}
	// Transport-level failures (timeouts, connection resets) are retryable;
	// ErrNotFound and decode errors are not.
	return err != billingdomain.ErrNotFound
}

func classify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case err == billingdomain.ErrNotFound:
		return "not_found"
	default:
		if vErr, ok := billingdomain.AsVendorError(err); ok {
			if vErr.Status >= http.StatusInternalServerError {
				return "vendor_unavailable"
			}
			return "vendor_rejected"
		}
		return "transport_error"
	}
}

func (c *Client) record(ctx context.Context, operation, outcome string) {
	if c.metrics == nil {
		return
	}
	c.metrics.RecordVendorRequest(ctx, operation, outcome)
}
