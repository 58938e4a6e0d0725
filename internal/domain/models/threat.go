package models

// RiskLevel is the four-point severity classification derived from a risk score
type RiskLevel string

const (
	RiskLevelNone   RiskLevel = "none"
	RiskLevelLow    RiskLevel = "low"
	RiskLevelMedium RiskLevel = "medium"
	RiskLevelHigh   RiskLevel = "high"
)

// RiskLevelForScore maps a cumulative risk score to a discrete risk level.
// The cutoffs are exact: 0 none, 1 low, 2-3 medium, 4+ high.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 4:
		return RiskLevelHigh
	case score >= 2:
		return RiskLevelMedium
	case score >= 1:
		return RiskLevelLow
	default:
		return RiskLevelNone
	}
}

// DetectorKind identifies one pattern-matching rule in the registry.
// The set is closed; the evaluator switches over it exhaustively.
type DetectorKind string

const (
	DetectorURL               DetectorKind = "url"
	DetectorIPAddress         DetectorKind = "ip_address"
	DetectorSuspiciousDomain  DetectorKind = "suspicious_domain"
	DetectorPassword          DetectorKind = "password"
	DetectorCreditCard        DetectorKind = "credit_card"
	DetectorSSN               DetectorKind = "ssn"
	DetectorExecutable        DetectorKind = "executable"
	DetectorDoubleExtension   DetectorKind = "double_extension"
	DetectorSuspiciousCommand DetectorKind = "suspicious_command"
	DetectorUrgency           DetectorKind = "urgency"
	DetectorThreat            DetectorKind = "threat"
)

// DetectorClass is the semantic tag of a detector
type DetectorClass string

const (
	ClassURL        DetectorClass = "url"
	ClassIP         DetectorClass = "ip"
	ClassCredential DetectorClass = "credential"
	ClassFilename   DetectorClass = "filename"
	ClassCommand    DetectorClass = "command"
	ClassPhrase     DetectorClass = "phrase"
)

// MatchSet maps a detector kind to the substrings it matched in one message,
// in order of occurrence. A missing key means zero matches; callers must not
// distinguish a missing key from an empty list.
type MatchSet map[DetectorKind][]string

// Has reports whether the detector produced at least one match
func (m MatchSet) Has(kind DetectorKind) bool {
	return len(m[kind]) > 0
}

// Get returns the matches for a detector, possibly nil
func (m MatchSet) Get(kind DetectorKind) []string {
	return m[kind]
}

// ReputationStatus is the outcome of one URL reputation lookup
type ReputationStatus string

const (
	ReputationPending  ReputationStatus = "pending"
	ReputationComplete ReputationStatus = "complete"
	ReputationTimeout  ReputationStatus = "timeout"
	ReputationError    ReputationStatus = "error"
)

// ReputationVerdict is the result of one URL reputation lookup
type ReputationVerdict struct {
	URL        string           `json:"url"`
	Status     ReputationStatus `json:"status"`
	Malicious  int              `json:"malicious"`
	Suspicious int              `json:"suspicious"`
	Total      int              `json:"total"`
	Score      float64          `json:"score"`
	Message    string           `json:"message,omitempty"`
}

// Threat categories produced by the evaluator
const (
	CategoryPhishing             = "phishing"
	CategoryMaliciousURL         = "malicious url"
	CategoryCredentialExposure   = "credential exposure"
	CategoryDataExposure         = "data exposure"
	CategoryMalware              = "malware"
	CategoryCommandExecution     = "command execution"
	CategoryCredentialHarvesting = "credential harvesting"
	CategorySuspiciousNetwork    = "suspicious network"
	CategoryCommandAndControl    = "command and control"
)

// ThreatVerdict is the structured result of analyzing one message.
// It is constructed once per analysis and immutable once returned.
// ThreatCategories carries set semantics; its order is not significant.
type ThreatVerdict struct {
	RiskLevel        RiskLevel `json:"risk_level"`
	ThreatCategories []string  `json:"threat_categories"`
	Indicators       []string  `json:"indicators"`
	Recommendations  []string  `json:"recommendations"`
	RiskScore        int       `json:"risk_score"`
}

// ZeroVerdict returns the verdict for a message with no findings
func ZeroVerdict() *ThreatVerdict {
	return &ThreatVerdict{
		RiskLevel:        RiskLevelNone,
		ThreatCategories: []string{},
		Indicators:       []string{},
		Recommendations:  []string{},
	}
}

// HasCategory reports whether the verdict contains the given threat category
func (v *ThreatVerdict) HasCategory(category string) bool {
	for _, c := range v.ThreatCategories {
		if c == category {
			return true
		}
	}
	return false
}
