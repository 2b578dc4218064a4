package orderid

import (
	"strings"
	"testing"
)

func TestNewFormat(t *testing.T) {
	id, err := New()
	if err != nil {
		t.Fatalf("New returned unexpected error: %v", err)
	}
	if !strings.HasPrefix(id, "ORD_") {
		t.Fatalf("unexpected prefix in %q", id)
	}
	if !Valid(id) {
		t.Fatalf("generated id %q should validate", id)
	}
}

func TestNewUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := New()
		if err != nil {
			t.Fatalf("New returned unexpected error: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate order id %q", id)
		}
		seen[id] = true
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"ORD_1700000000000_a1b2c3d4", true},
		{"ORD_TEST_1", false},
		{"ord_1700000000000_a1b2c3d4", false},
		{"ORD_1700000000000_", false},
		{"ORD__a1b2c3d4", false},
		{"", false},
		{"random", false},
	}
	for _, tt := range tests {
		if got := Valid(tt.value); got != tt.want {
			t.Fatalf("Valid(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
