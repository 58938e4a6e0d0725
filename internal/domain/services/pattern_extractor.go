package services

import (
	"regexp"
	"strings"

	"cyberguard/internal/domain/models"
)

// Detector is one named pattern-matching rule. Detectors are compiled at
// process start and immutable for the process lifetime.
type Detector struct {
	Kind    models.DetectorKind
	Class   models.DetectorClass
	Pattern *regexp.Regexp
}

// PatternExtractor scans raw text against the fixed detector registry.
// It is stateless and safe for concurrent use.
type PatternExtractor struct {
	detectors []Detector
}

// All detector patterns compile in multiline mode so ^/$ anchors match at
// line boundaries. Go's RE2 engine guarantees linear-time matching, so
// untrusted input cannot trigger catastrophic backtracking.
func compileDetector(kind models.DetectorKind, class models.DetectorClass, pattern string) Detector {
	return Detector{
		Kind:    kind,
		Class:   class,
		Pattern: regexp.MustCompile("(?m)" + pattern),
	}
}

// NewPatternExtractor builds the fixed detector registry
func NewPatternExtractor() *PatternExtractor {
	return &PatternExtractor{
		detectors: []Detector{
			// URLs and domains
			compileDetector(models.DetectorURL, models.ClassURL,
				`https?://(?:[-\w.]|(?:%[\da-fA-F]{2}))+`),
			compileDetector(models.DetectorIPAddress, models.ClassIP,
				`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
			compileDetector(models.DetectorSuspiciousDomain, models.ClassURL,
				`(?:verify|secure|account|login|banking|update)[-.](?:com|net|org|online)`),

			// Credential and sensitive information patterns
			compileDetector(models.DetectorPassword, models.ClassCredential,
				`(?i)password\s*[=:]\s*\S+`),
			compileDetector(models.DetectorCreditCard, models.ClassCredential,
				`\b(?:\d{4}[- ]?){3}\d{4}\b`),
			compileDetector(models.DetectorSSN, models.ClassCredential,
				`\b\d{3}-\d{2}-\d{4}\b`),

			// Malware and phishing indicators
			compileDetector(models.DetectorExecutable, models.ClassFilename,
				`(?:\.exe|\.bat|\.cmd|\.ps1|\.sh|\.dll|\.scr)$`),
			compileDetector(models.DetectorDoubleExtension, models.ClassFilename,
				`\.(?:doc|pdf|txt|jpg|png)\.(?:exe|bat|cmd|ps1|sh|dll|scr)$`),
			compileDetector(models.DetectorSuspiciousCommand, models.ClassCommand,
				`(?:powershell|cmd)(?:.exe)?\s+(?:-w|/c|/e|/encoded)`),

			// Common phishing phrases
			compileDetector(models.DetectorUrgency, models.ClassPhrase,
				`(?i)(?:urgent|immediate|alert|attention required|important update|verify now)`),
			compileDetector(models.DetectorThreat, models.ClassPhrase,
				`(?i)(?:account (?:suspended|blocked|locked)|unauthorized access|unusual activity)`),
		},
	}
}

// Extract applies every detector to the message and returns the matches per
// detector kind. Only kinds with at least one match appear in the result.
// Empty or whitespace-only input short-circuits without running any detector.
func (e *PatternExtractor) Extract(message string) models.MatchSet {
	matches := make(models.MatchSet)

	if strings.TrimSpace(message) == "" {
		return matches
	}

	for _, d := range e.detectors {
		found := d.Pattern.FindAllString(message, -1)
		if len(found) > 0 {
			matches[d.Kind] = found
		}
	}

	return matches
}

// Detectors returns the registry, for introspection endpoints
func (e *PatternExtractor) Detectors() []Detector {
	return e.detectors
}
