package tenancy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveExactHostname(t *testing.T) {
	r := DefaultRegistry("")

	tc := r.Resolve("midwest-dental-sleep.flow-iq.ai", "/")
	assert.Equal(t, "midwest-dental-sleep", tc.TenantID)
	assert.Equal(t, SpecialtyDentalSleep, tc.Specialty)
	assert.False(t, tc.IsDefault)

	// Deterministic: same input, same answer.
	again := r.Resolve("midwest-dental-sleep.flow-iq.ai", "/")
	assert.Equal(t, tc, again)
}

func TestResolveIsCaseInsensitiveAndStripsPort(t *testing.T) {
	r := DefaultRegistry("")

	tc := r.Resolve("Midwest-Dental-Sleep.Flow-IQ.ai:443", "/")
	assert.Equal(t, "midwest-dental-sleep", tc.TenantID)
}

func TestResolveSubdomainMatch(t *testing.T) {
	r := DefaultRegistry("")

	tc := r.Resolve("radiance-medspa.staging.flow-iq.ai", "/")
	assert.Equal(t, "radiance-medspa", tc.TenantID)
	assert.Equal(t, SpecialtyMedSpa, tc.Specialty)
}

func TestResolveUnknownHostYieldsDefault(t *testing.T) {
	r := DefaultRegistry("")

	tc := r.Resolve("random.example.com", "/")
	assert.Equal(t, "flowiq-default", tc.TenantID)
	assert.True(t, tc.IsDefault)

	// Empty host is also the default, never an error.
	assert.Equal(t, tc, r.Resolve("", ""))
}

func TestNewRegistryRejectsBadEntries(t *testing.T) {
	fallback := Context{TenantID: "default"}

	_, err := NewRegistry([]Entry{{TenantID: "t1"}}, fallback)
	assert.Error(t, err)

	_, err = NewRegistry([]Entry{{Hostname: "a.example.com"}}, fallback)
	assert.Error(t, err)

	_, err = NewRegistry([]Entry{
		{Hostname: "a.example.com", TenantID: "t1"},
		{Hostname: "A.example.com", TenantID: "t2"},
	}, fallback)
	assert.Error(t, err, "duplicate hostnames differ only by case")

	_, err = NewRegistry(nil, Context{})
	assert.Error(t, err, "default tenant id required")
}

func TestLongestSubdomainWins(t *testing.T) {
	r, err := NewRegistry([]Entry{
		{Subdomain: "dental", TenantID: "generic-dental"},
		{Subdomain: "midwest-dental-sleep", TenantID: "midwest"},
	}, Context{TenantID: "default"})
	require.NoError(t, err)

	tc := r.Resolve("midwest-dental-sleep.flow-iq.ai", "/")
	assert.Equal(t, "midwest", tc.TenantID)
}

func TestLoadRegistryJSON(t *testing.T) {
	raw := `{
		"default": {"tenant_id": "fallback", "specialty": "general"},
		"tenants": [
			{"hostname": "clinic.example.com", "tenant_id": "clinic", "specialty": "chiropractic",
			 "features": {"online_booking": true, "sms_reminders": true}}
		]
	}`
	r, err := LoadRegistryJSON(raw)
	require.NoError(t, err)

	tc := r.Resolve("clinic.example.com", "/")
	assert.Equal(t, "clinic", tc.TenantID)
	assert.True(t, tc.Features.SMSReminders)
	assert.Equal(t, "fallback", r.Default().TenantID)

	_, err = LoadRegistryJSON("{not json")
	assert.Error(t, err)
}
