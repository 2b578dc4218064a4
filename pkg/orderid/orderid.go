package orderid

import (
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	prefix       = "ORD"
	suffixLength = 8
)

// New generates a client-facing order identifier: a monotonic millisecond
// timestamp plus a random suffix. The suffix keeps ids unique when two
// supports are created inside the same millisecond; the database unique
// index remains the authority.
func New() (string, error) {
	suffix, err := gonanoid.New(suffixLength)
	if err != nil {
		return "", fmt.Errorf("generating order id suffix: %w", err)
	}
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixMilli(), suffix), nil
}

// Valid reports whether value looks like an order id this platform issued.
func Valid(value string) bool {
	parts := strings.SplitN(value, "_", 3)
	if len(parts) != 3 || parts[0] != prefix {
		return false
	}
	if parts[1] == "" || parts[2] == "" {
		return false
	}
	for _, r := range parts[1] {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
