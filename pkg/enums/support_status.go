package enums

import "fmt"

// SupportStatus tracks the payment lifecycle of a support.
type SupportStatus string

const (
	SupportStatusPending   SupportStatus = "PENDING"
	SupportStatusCompleted SupportStatus = "COMPLETED"
	SupportStatusFailed    SupportStatus = "FAILED"
	SupportStatusRefunded  SupportStatus = "REFUNDED"
)

var validSupportStatuses = []SupportStatus{
	SupportStatusPending,
	SupportStatusCompleted,
	SupportStatusFailed,
	SupportStatusRefunded,
}

// String implements fmt.Stringer.
func (s SupportStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SupportStatus.
func (s SupportStatus) IsValid() bool {
	for _, candidate := range validSupportStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further confirmation attempt may change the status.
// FAILED is deliberately not terminal: a support that failed at the gateway may be
// retried by the client with a fresh payment attempt.
func (s SupportStatus) IsTerminal() bool {
	return s == SupportStatusCompleted || s == SupportStatusRefunded
}

// ParseSupportStatus converts raw input into a SupportStatus.
func ParseSupportStatus(value string) (SupportStatus, error) {
	for _, candidate := range validSupportStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid support status %q", value)
}
