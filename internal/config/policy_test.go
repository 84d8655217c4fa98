package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testPolicy(t *testing.T, set func(v map[string]interface{})) *Policy {
	t.Helper()

	v := NewEmptyViper()
	values := map[string]interface{}{}
	set(values)
	for key, val := range values {
		v.Set(key, val)
	}

	policy, err := LoadPolicy(NewFromViper(v), zap.NewNop())
	require.NoError(t, err)
	return policy
}

func TestLoadPolicy_Defaults(t *testing.T) {
	policy := testPolicy(t, func(v map[string]interface{}) {})

	assert.Empty(t, policy.TyposquatBases())
	assert.False(t, policy.AllowlistHit("a@example.com", "example.com"))
	assert.Empty(t, policy.AccountStatusFor("a@example.com", "example.com"))
	assert.Nil(t, policy.RosterEntryFor("a@example.com"))
}

func TestLoadPolicy_InvalidOrgRegexFails(t *testing.T) {
	v := NewEmptyViper()
	v.Set("policy.organizations", []map[string]interface{}{
		{"name": "Acme", "domains": []string{"acme.example"}, "email_regex": "("},
	})

	_, err := LoadPolicy(NewFromViper(v), zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid email regex")
}

func TestAllowlistHit(t *testing.T) {
	policy := testPolicy(t, func(v map[string]interface{}) {
		v["policy.allowlist"] = []string{"Partner.example", "ceo@other.example"}
	})

	assert.True(t, policy.AllowlistHit("anyone@partner.example", "partner.example"))
	assert.True(t, policy.AllowlistHit("CEO@Other.example", ""))
	assert.False(t, policy.AllowlistHit("someone@other.example", "other.example"))
}

func TestAccountStatusFor_AddressBeatsDomain(t *testing.T) {
	policy := testPolicy(t, func(v map[string]interface{}) {
		v["policy.accounts.blocked"] = []string{"bad@vendor.example"}
		v["policy.accounts.allowed"] = []string{"vendor.example"}
	})

	assert.Equal(t, "blocked", policy.AccountStatusFor("bad@vendor.example", "vendor.example"))
	assert.Equal(t, "allow", policy.AccountStatusFor("good@vendor.example", "vendor.example"))
	assert.Empty(t, policy.AccountStatusFor("x@elsewhere.example", "elsewhere.example"))
}

func TestOrgIdentity(t *testing.T) {
	policy := testPolicy(t, func(v map[string]interface{}) {
		v["policy.organizations"] = []map[string]interface{}{
			{
				"name":        "Acme",
				"domains":     []string{"acme.example"},
				"email_regex": `^[a-z]+\.[a-z]+@acme\.example$`,
			},
			{
				"name":    "NoRegexCo",
				"domains": []string{"noregex.example"},
			},
		}
	})

	tests := []struct {
		name       string
		email      string
		domain     string
		wantMatch  *bool
		wantReason string
	}{
		{"matching staff address", "ann.smith@acme.example", "acme.example", boolPtr(true), ""},
		{"regex failure", "ann@acme.example", "acme.example", boolPtr(false), "email_regex_fail"},
		{"outside domain", "x@elsewhere.example", "elsewhere.example", boolPtr(false), "domain_not_in_org"},
		{"missing email", "", "acme.example", boolPtr(false), "missing_email"},
		{"empty domain", "ann@acme.example", "", nil, "no_domain"},
		{"domain fallback without regex", "bob@noregex.example", "noregex.example", boolPtr(true), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := policy.OrgIdentity(tt.email, tt.domain)
			if tt.wantMatch == nil {
				assert.Nil(t, got.Match)
			} else {
				require.NotNil(t, got.Match)
				assert.Equal(t, *tt.wantMatch, *got.Match)
			}
			assert.Equal(t, tt.wantReason, got.Reason)
		})
	}
}

func TestOrgIdentity_NoPatternsConfigured(t *testing.T) {
	policy := testPolicy(t, func(v map[string]interface{}) {})

	got := policy.OrgIdentity("a@example.com", "example.com")
	assert.Nil(t, got.Match)
	assert.Equal(t, "no_patterns", got.Reason)
}

func TestTyposquatBases_DeduplicatedRegistrable(t *testing.T) {
	policy := testPolicy(t, func(v map[string]interface{}) {
		v["policy.organizations"] = []map[string]interface{}{
			{"name": "Acme", "domains": []string{"mail.acme.example", "acme.example"}},
		}
		v["policy.brand_domains"] = []string{"paypal.com", "ACME.example"}
	})

	bases := policy.TyposquatBases()
	assert.ElementsMatch(t, []string{"acme.example", "paypal.com"}, bases)
}

func TestRosterEntryFor(t *testing.T) {
	policy := testPolicy(t, func(v map[string]interface{}) {
		v["policy.roster"] = map[string]interface{}{
			"ann@acme.example": map[string]interface{}{
				"display_name": "Ann Smith",
				"category":     "it_staff",
				"trust_tier":   "high",
			},
		}
	})

	entry := policy.RosterEntryFor("ANN@acme.example")
	require.NotNil(t, entry)
	assert.Equal(t, "Ann Smith", entry.DisplayName)
	assert.Equal(t, "it_staff", entry.Category)
	assert.Nil(t, policy.RosterEntryFor("stranger@acme.example"))
}
