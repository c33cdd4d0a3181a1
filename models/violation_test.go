package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverity_String(t *testing.T) {
	assert.Equal(t, "low", SeverityLow.String())
	assert.Equal(t, "medium", SeverityMedium.String())
	assert.Equal(t, "high", SeverityHigh.String())
	assert.Equal(t, "critical", SeverityCritical.String())
	assert.Equal(t, "unknown", Severity(99).String())
}

func TestParseSeverity_RoundTrip(t *testing.T) {
	for _, s := range []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical} {
		assert.Equal(t, s, ParseSeverity(s.String()))
	}
	assert.Equal(t, SeverityLow, ParseSeverity("nonsense"))
	assert.Equal(t, SeverityLow, ParseSeverity(""))
}

func TestSeverity_MarshalsByName(t *testing.T) {
	v := NewViolation("user:a", ViolationKindPII, SeverityHigh, "payment card number")

	raw, err := json.Marshal(v)
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "high", decoded["severity"])
	assert.Equal(t, "pii", decoded["kind"])
}

func TestViolation_ExcerptOmittedWhenEmpty(t *testing.T) {
	v := NewViolation("user:a", ViolationKindPromptInjection, SeverityCritical, "instruction override")

	raw, err := json.Marshal(v)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "excerpt")

	raw, err = json.Marshal(v.WithExcerpt("[EMAIL_REDACTED]"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[EMAIL_REDACTED]")
}

func TestViolation_IsBlocking(t *testing.T) {
	assert.True(t, NewViolation("user:a", ViolationKindPromptInjection, SeverityCritical, "jailbreak").IsBlocking())
	assert.False(t, NewViolation("user:a", ViolationKindPII, SeverityHigh, "card number").IsBlocking())
	assert.False(t, NewViolation("user:a", ViolationKindConfidentialTopic, SeverityLow, "marker").IsBlocking())
}

func TestNewViolation_Stamps(t *testing.T) {
	a := NewViolation("user:a", ViolationKindPII, SeverityMedium, "email address")
	b := NewViolation("user:a", ViolationKindPII, SeverityMedium, "email address")

	assert.NotEqual(t, a.ID, b.ID)
	assert.False(t, a.Timestamp.IsZero())
	assert.Equal(t, "user:a", a.Identity)
}
