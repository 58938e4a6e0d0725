package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyberguard/internal/domain/models"
)

func TestExtractEmptyInput(t *testing.T) {
	e := NewPatternExtractor()

	assert.Empty(t, e.Extract(""))
	assert.Empty(t, e.Extract("   \n\t  "))
}

func TestExtractDetectors(t *testing.T) {
	e := NewPatternExtractor()

	tests := []struct {
		name     string
		message  string
		kind     models.DetectorKind
		expected string
	}{
		{
			name:     "url",
			message:  "check out https://example.com/page please",
			kind:     models.DetectorURL,
			expected: "https://example.com/page",
		},
		{
			name:     "ip address",
			message:  "connect to 192.168.1.100 over ssh",
			kind:     models.DetectorIPAddress,
			expected: "192.168.1.100",
		},
		{
			name:     "suspicious domain",
			message:  "go to http://verify-secure.com/login",
			kind:     models.DetectorSuspiciousDomain,
			expected: "secure.com",
		},
		{
			name:     "password with equals",
			message:  "my password=hunter2 ok",
			kind:     models.DetectorPassword,
			expected: "password=hunter2",
		},
		{
			name:     "password with colon",
			message:  "Password: s3cret!",
			kind:     models.DetectorPassword,
			expected: "Password: s3cret!",
		},
		{
			name:     "credit card",
			message:  "card 4111-1111-1111-1111 thanks",
			kind:     models.DetectorCreditCard,
			expected: "4111-1111-1111-1111",
		},
		{
			name:     "ssn",
			message:  "ssn is 123-45-6789",
			kind:     models.DetectorSSN,
			expected: "123-45-6789",
		},
		{
			name:     "executable at line end",
			message:  "please run setup.exe",
			kind:     models.DetectorExecutable,
			expected: ".exe",
		},
		{
			name:     "double extension",
			message:  "open invoice.pdf.exe",
			kind:     models.DetectorDoubleExtension,
			expected: ".pdf.exe",
		},
		{
			name:     "suspicious command",
			message:  "just run powershell -w hidden first",
			kind:     models.DetectorSuspiciousCommand,
			expected: "powershell -w",
		},
		{
			name:     "urgency phrase",
			message:  "URGENT action needed",
			kind:     models.DetectorUrgency,
			expected: "URGENT",
		},
		{
			name:     "threat phrase",
			message:  "your account suspended until further notice",
			kind:     models.DetectorThreat,
			expected: "account suspended",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matches := e.Extract(tt.message)
			require.True(t, matches.Has(tt.kind), "expected %s to match", tt.kind)
			assert.Contains(t, matches.Get(tt.kind), tt.expected)
		})
	}
}

func TestExtractMultilineAnchors(t *testing.T) {
	e := NewPatternExtractor()

	// The executable pattern anchors at line ends, so a filename followed by
	// more text on the next line must still match
	matches := e.Extract("download payload.exe\nthen run it")
	assert.True(t, matches.Has(models.DetectorExecutable))

	matches = e.Extract("the file payload.exe is attached")
	assert.False(t, matches.Has(models.DetectorExecutable))
}

func TestExtractBenignMessage(t *testing.T) {
	e := NewPatternExtractor()

	matches := e.Extract("hello, how are you doing today?")
	assert.Empty(t, matches)
}

func TestExtractIdempotent(t *testing.T) {
	e := NewPatternExtractor()
	msg := "URGENT: visit https://verify-secure.com now, password=abc123"

	first := e.Extract(msg)
	second := e.Extract(msg)
	assert.Equal(t, first, second)
}

func TestExtractMultipleMatches(t *testing.T) {
	e := NewPatternExtractor()

	matches := e.Extract("see https://a.example.com and https://b.example.com")
	require.True(t, matches.Has(models.DetectorURL))
	assert.Len(t, matches.Get(models.DetectorURL), 2)
}

func TestDetectorsRegistryComplete(t *testing.T) {
	e := NewPatternExtractor()

	kinds := make(map[models.DetectorKind]bool)
	for _, d := range e.Detectors() {
		kinds[d.Kind] = true
	}

	expected := []models.DetectorKind{
		models.DetectorURL, models.DetectorIPAddress, models.DetectorSuspiciousDomain,
		models.DetectorPassword, models.DetectorCreditCard, models.DetectorSSN,
		models.DetectorExecutable, models.DetectorDoubleExtension, models.DetectorSuspiciousCommand,
		models.DetectorUrgency, models.DetectorThreat,
	}
	for _, k := range expected {
		assert.True(t, kinds[k], "missing detector %s", k)
	}
	assert.Len(t, e.Detectors(), len(expected))
}
