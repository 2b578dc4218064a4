package toss

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coffeeworth/coffeeworth-backend/pkg/config"
	"github.com/coffeeworth/coffeeworth-backend/pkg/logger"
)

const defaultTimeout = 15 * time.Second

var (
	errSecretKeyRequired = errors.New("toss secret key is required")
	errLoggerRequired    = errors.New("toss logger is required")
)

// Client exposes Toss Payments primitives with centralized auth, logging, and
// error classification. The secret credential stays inside the client and is
// never logged or echoed back.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	authorization string
	logger        *logger.Logger
}

// NewClient initializes the Toss wrapper and validates the credentials.
func NewClient(ctx context.Context, cfg config.TossConfig, logg *logger.Logger) (*Client, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}

	secretKey := strings.TrimSpace(cfg.SecretKey)
	if secretKey == "" {
		return nil, errSecretKeyRequired
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.tosspayments.com/v1/payments"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		httpClient:    &http.Client{Timeout: timeout},
		baseURL:       baseURL,
		authorization: "Basic " + base64.StdEncoding.EncodeToString([]byte(secretKey+":")),
		logger:        logg,
	}

	logg.Info(ctx, "toss client initialized")
	return c, nil
}

// Confirm asks the gateway to capture the payment identified by paymentKey.
// The amount must match what the checkout session was opened with; the
// gateway rejects mismatches on its side as well.
func (c *Client) Confirm(ctx context.Context, paymentKey, orderID string, amount int) (*Payment, error) {
	body := confirmRequest{PaymentKey: paymentKey, OrderID: orderID, Amount: amount}
	c.log(ctx, "request", "confirm_payment", map[string]any{
		"order_id": orderID,
		"amount":   amount,
	})

	payment, err := c.post(ctx, c.baseURL+"/confirm", body)
	if err != nil {
		c.log(ctx, "error", "confirm_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "confirm_payment", map[string]any{
		"order_id": payment.OrderID,
		"status":   payment.Status,
		"method":   payment.Method,
	})
	return payment, nil
}

// Cancel voids a captured payment. Toss requires the cancel reason.
func (c *Client) Cancel(ctx context.Context, paymentKey, reason string) (*Payment, error) {
	body := cancelRequest{CancelReason: reason}
	c.log(ctx, "request", "cancel_payment", map[string]any{"reason": reason})

	payment, err := c.post(ctx, c.baseURL+"/"+url.PathEscape(paymentKey)+"/cancel", body)
	if err != nil {
		c.log(ctx, "error", "cancel_payment", map[string]any{"error": err.Error()})
		return nil, err
	}

	c.log(ctx, "response", "cancel_payment", map[string]any{
		"order_id": payment.OrderID,
		"status":   payment.Status,
	})
	return payment, nil
}

// GetByOrderID fetches the gateway's view of a payment. Used by the
// reconciler to resolve supports whose confirmation outcome was lost.
func (c *Client) GetByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/"+url.PathEscape(orderID), nil)
	if err != nil {
		return nil, fmt.Errorf("building toss request: %w", err)
	}

	c.log(ctx, "request", "get_payment", map[string]any{"order_id": orderID})
	payment, err := c.do(req)
	if err != nil {
		c.log(ctx, "error", "get_payment", map[string]any{"error": err.Error()})
		return nil, err
	}
	return payment, nil
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (*Payment, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encoding toss request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building toss request: %w", err)
	}

	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Payment, error) {
	req.Header.Set("Authorization", c.authorization)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport failures and timeouts: the gateway may or may not have
		// captured the payment. Callers must not treat this as a rejection.
		return nil, &Error{
			Code:          ErrCodeNetwork,
			Message:       err.Error(),
			indeterminate: true,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &Error{
			Code:          ErrCodeNetwork,
			Message:       err.Error(),
			indeterminate: true,
		}
	}

	if resp.StatusCode >= 500 {
		return nil, &Error{
			Code:          ErrCodeGatewayError,
			Message:       gatewayMessage(raw),
			HTTPStatus:    resp.StatusCode,
			indeterminate: true,
		}
	}

	if resp.StatusCode >= 400 {
		gwErr := decodeError(raw)
		gwErr.HTTPStatus = resp.StatusCode
		return nil, gwErr
	}

	var payment Payment
	if err := json.Unmarshal(raw, &payment); err != nil {
		return nil, &Error{
			Code:          ErrCodeGatewayError,
			Message:       fmt.Sprintf("decoding toss response: %v", err),
			HTTPStatus:    resp.StatusCode,
			indeterminate: true,
		}
	}
	return &payment, nil
}

func decodeError(raw []byte) *Error {
	var body struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Code != "" {
		return &Error{Code: body.Code, Message: body.Message}
	}
	return &Error{Code: ErrCodeRejected, Message: gatewayMessage(raw)}
}

func gatewayMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Message != "" {
		return body.Message
	}
	msg := strings.TrimSpace(string(raw))
	if msg == "" {
		return "결제 승인 중 오류가 발생했습니다"
	}
	return msg
}

func (c *Client) log(ctx context.Context, stage, operation string, fields map[string]any) {
	if c.logger == nil {
		return
	}
	merged := map[string]any{"gateway": "toss", "stage": stage, "operation": operation}
	for k, v := range fields {
		merged[k] = v
	}
	ctx = c.logger.WithFields(ctx, merged)
	c.logger.Info(ctx, "toss."+operation)
}
