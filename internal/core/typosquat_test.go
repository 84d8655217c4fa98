package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectTyposquat(t *testing.T) {
	bases := []string{"paypal.com", "mycompany.com", "microsoft.com"}

	tests := []struct {
		name      string
		candidate string
		suspect   bool
		reason    TyposquatReason
		closestTo string
	}{
		{
			name:      "exact match is clean",
			candidate: "paypal.com",
			suspect:   false,
		},
		{
			name:      "subdomain of protected base is clean",
			candidate: "mail.paypal.com",
			suspect:   false,
		},
		{
			name:      "digit-for-letter homoglyph",
			candidate: "paypa1.com",
			suspect:   true,
			reason:    TyposquatHomoglyph,
			closestTo: "paypal.com",
		},
		{
			name:      "zero-for-o homoglyph",
			candidate: "myc0mpany.com",
			suspect:   true,
			reason:    TyposquatHomoglyph,
			closestTo: "mycompany.com",
		},
		{
			name:      "rn collapses to m",
			candidate: "rnicrosoft.com",
			suspect:   true,
			reason:    TyposquatHomoglyph,
			closestTo: "microsoft.com",
		},
		{
			name:      "single insertion",
			candidate: "paypall.com",
			suspect:   true,
			reason:    TyposquatEditDistance,
			closestTo: "paypal.com",
		},
		{
			name:      "adjacent transposition",
			candidate: "apypal.com",
			suspect:   true,
			reason:    TyposquatEditDistance,
			closestTo: "paypal.com",
		},
		{
			name:      "punycode IDN marker",
			candidate: "xn--pypal-4ve.com",
			suspect:   true,
			reason:    TyposquatPunycode,
		},
		{
			name:      "unrelated domain is clean",
			candidate: "example.org",
			suspect:   false,
		},
		{
			name:      "empty candidate is clean",
			candidate: "",
			suspect:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := DetectTyposquat(tt.candidate, bases)
			assert.Equal(t, tt.suspect, verdict.Suspect)
			assert.Equal(t, tt.reason, verdict.Reason)
			if tt.closestTo != "" {
				assert.Equal(t, tt.closestTo, verdict.ClosestTo)
			}
		})
	}
}

func TestDetectTyposquat_NoBases(t *testing.T) {
	verdict := DetectTyposquat("paypa1.com", nil)
	assert.False(t, verdict.Suspect)
}

func TestRegistrableDomain(t *testing.T) {
	assert.Equal(t, "example.com", RegistrableDomain("mail.internal.example.com"))
	assert.Equal(t, "example.com", RegistrableDomain("EXAMPLE.COM"))
	assert.Equal(t, "localhost", RegistrableDomain("localhost"))
	assert.Equal(t, "", RegistrableDomain(""))
}

func TestNormalizeConfusables(t *testing.T) {
	assert.Equal(t, "paypal", normalizeConfusables("PayPa1"))
	assert.Equal(t, "mlcrosoft", normalizeConfusables("m1crosoft"))
	assert.Equal(t, "mlcrosoft", normalizeConfusables("rnicrosoft"))
	assert.Equal(t, "bass", normalizeConfusables("8a5s"))
}

func TestDamerauLevenshtein(t *testing.T) {
	tests := []struct {
		a, b     string
		expected int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"abc", "abd", 1},
		{"ab", "ba", 1},       // transposition counts once
		{"ca", "abc", 2},      // unrestricted: delete + transpose
		{"paypal", "paypall", 1},
		{"kitten", "sitting", 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, damerauLevenshtein(tt.a, tt.b),
			"distance(%q, %q)", tt.a, tt.b)
	}
}
