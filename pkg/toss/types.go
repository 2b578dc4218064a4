package toss

import (
	"errors"
	"fmt"
	"time"
)

// Payment statuses returned by the gateway.
const (
	StatusDone       = "DONE"
	StatusCanceled   = "CANCELED"
	StatusAborted    = "ABORTED"
	StatusExpired    = "EXPIRED"
	StatusInProgress = "IN_PROGRESS"
	StatusReady      = "READY"
	StatusWaiting    = "WAITING_FOR_DEPOSIT"
)

// Synthetic error codes for failures that never reached the gateway's
// error envelope.
const (
	ErrCodeNetwork      = "NETWORK_ERROR"
	ErrCodeGatewayError = "GATEWAY_ERROR"
	ErrCodeRejected     = "PAYMENT_REJECTED"
)

// Payment is the subset of the gateway payment object the platform consumes.
type Payment struct {
	PaymentKey  string     `json:"paymentKey"`
	OrderID     string     `json:"orderId"`
	OrderName   string     `json:"orderName"`
	Status      string     `json:"status"`
	Method      string     `json:"method"`
	TotalAmount int        `json:"totalAmount"`
	ApprovedAt  *time.Time `json:"approvedAt"`
	RequestedAt *time.Time `json:"requestedAt"`
}

// Done reports whether the gateway considers the payment captured.
func (p *Payment) Done() bool {
	return p != nil && p.Status == StatusDone
}

// Terminal reports whether the gateway will never capture this payment.
func (p *Payment) Terminal() bool {
	if p == nil {
		return false
	}
	switch p.Status {
	case StatusCanceled, StatusAborted, StatusExpired:
		return true
	}
	return false
}

type confirmRequest struct {
	PaymentKey string `json:"paymentKey"`
	OrderID    string `json:"orderId"`
	Amount     int    `json:"amount"`
}

type cancelRequest struct {
	CancelReason string `json:"cancelReason"`
}

// Error is a failed gateway interaction. Rejected errors are definitive
// ("the payment did not happen"); indeterminate ones mean the outcome is
// unknown and the caller must reconcile instead of marking the order failed.
type Error struct {
	Code       string
	Message    string
	HTTPStatus int

	indeterminate bool
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("toss: %s: %s", e.Code, e.Message)
}

// NewIndeterminateError builds a gateway error whose outcome is unknown.
func NewIndeterminateError(message string) *Error {
	return &Error{Code: ErrCodeNetwork, Message: message, indeterminate: true}
}

// Rejected reports whether the gateway definitively declined the payment.
func (e *Error) Rejected() bool {
	return e != nil && !e.indeterminate
}

// Indeterminate reports whether the payment outcome is unknown.
func (e *Error) Indeterminate() bool {
	return e != nil && e.indeterminate
}

// AsError extracts a typed gateway error from an error chain.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsIndeterminate reports whether err is a gateway error with an unknown outcome.
func IsIndeterminate(err error) bool {
	typed := AsError(err)
	return typed != nil && typed.Indeterminate()
}
