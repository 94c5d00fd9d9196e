package artifact

import "strings"

// UnknownIdentity is the sentinel key used for records whose phone number is
// absent or normalizes to nothing. Such records are still correlated together
// so investigators can audit every record.
const UnknownIdentity = "unknown"

// defaultCountryCode is stripped from fully-qualified national numbers so that
// "+1 (555) 123-4567" and "5551234567" join under one key.
const defaultCountryCode = "1"

// nationalNumberLen is the significant-digit length of a national number.
const nationalNumberLen = 10

// NormalizeIdentity reduces a raw phone number to its canonical join key:
// digits only, international and country-code prefixes collapsed. The empty
// result maps to UnknownIdentity. Normalization is idempotent.
func NormalizeIdentity(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return UnknownIdentity
	}

	// "0015551234567" and "+15551234567" both carry the same national number.
	trimmed := strings.TrimPrefix(digits, "00")
	if len(trimmed) < nationalNumberLen {
		trimmed = digits
	}

	// Strip the country code only when what remains is a full national number.
	// Anything shorter stays as-is, so normalizing twice never strips twice.
	if len(trimmed) == len(defaultCountryCode)+nationalNumberLen &&
		strings.HasPrefix(trimmed, defaultCountryCode) {
		trimmed = trimmed[len(defaultCountryCode):]
	}

	if trimmed == "" {
		return UnknownIdentity
	}
	return trimmed
}
