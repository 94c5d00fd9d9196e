package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeIdentity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"formatted with country code", "+1 (555) 123-4567", "5551234567"},
		{"bare national number", "5551234567", "5551234567"},
		{"dashes and spaces", "555-123-4567", "5551234567"},
		{"international prefix", "0015551234567", "5551234567"},
		{"short code stays intact", "88291", "88291"},
		{"leading one on short number kept", "1555123", "1555123"},
		{"empty is unknown", "", UnknownIdentity},
		{"no digits is unknown", "n/a", UnknownIdentity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeIdentity(tt.raw))
		})
	}
}

// Two renderings of the same number must land on the same key.
func TestNormalizeIdentityEquivalence(t *testing.T) {
	assert.Equal(t,
		NormalizeIdentity("+1 (555) 123-4567"),
		NormalizeIdentity("5551234567"))
	assert.Equal(t,
		NormalizeIdentity("555.123.4567"),
		NormalizeIdentity("15551234567"))
}

func TestNormalizeIdentityIdempotent(t *testing.T) {
	inputs := []string{
		"+1 (555) 123-4567",
		"15551234567",
		"0015551234567",
		"88291",
		"",
		"unknown",
	}
	for _, raw := range inputs {
		once := NormalizeIdentity(raw)
		assert.Equal(t, once, NormalizeIdentity(once), "normalize(%q) not idempotent", raw)
	}
}
