package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"cyberguard/internal/domain/models"
	"cyberguard/pkg/logger"
)

const (
	// maxURLLookups caps reputation lookups per message to bound worst-case
	// latency and respect external rate limits
	maxURLLookups = 3

	// reputationEvidenceThreshold is the minimum vendor-vote ratio for a
	// lookup result to count as evidence
	reputationEvidenceThreshold = 0.1
)

// ThreatEvaluator analyzes a message for security threats: it runs the
// pattern extractor, gathers URL reputation evidence, and combines both into
// a weighted risk verdict. It holds no per-call state and is safe for
// concurrent use; the reputation client is injected, never ambient.
type ThreatEvaluator struct {
	extractor  *PatternExtractor
	reputation ReputationClient
	logger     *logger.Logger
}

// NewThreatEvaluator creates a new threat evaluator. A nil reputation client
// disables URL reputation lookups.
func NewThreatEvaluator(reputation ReputationClient, log *logger.Logger) *ThreatEvaluator {
	return &ThreatEvaluator{
		extractor:  NewPatternExtractor(),
		reputation: reputation,
		logger:     log.WithComponent("threat-evaluator"),
	}
}

// Analyze analyzes a message for potential security threats. It never fails:
// malformed input yields the zero verdict and degraded reputation evidence is
// silently dropped rather than surfaced as an error.
func (e *ThreatEvaluator) Analyze(ctx context.Context, message string) *models.ThreatVerdict {
	if strings.TrimSpace(message) == "" {
		return models.ZeroVerdict()
	}

	matches := e.extractor.Extract(message)
	evidence := e.gatherReputationEvidence(ctx, matches.Get(models.DetectorURL))

	return e.evaluate(matches, evidence)
}

// gatherReputationEvidence looks up the first URLs found in the message and
// keeps only completed verdicts whose score clears the evidence threshold.
// Error and timeout verdicts degrade to absent evidence; a failing lookup
// never aborts the analysis.
func (e *ThreatEvaluator) gatherReputationEvidence(ctx context.Context, urls []string) []models.ReputationVerdict {
	if e.reputation == nil || !e.reputation.Enabled() || len(urls) == 0 {
		return nil
	}

	if len(urls) > maxURLLookups {
		urls = urls[:maxURLLookups]
	}

	var evidence []models.ReputationVerdict
	for _, u := range urls {
		verdict := e.reputation.Lookup(ctx, u)
		if verdict.Status != models.ReputationComplete {
			e.logger.Debug().
				Str("url", u).
				Str("status", string(verdict.Status)).
				Msg("dropping incomplete reputation verdict")
			continue
		}
		if verdict.Score > reputationEvidenceThreshold {
			evidence = append(evidence, verdict)
		}
	}

	return evidence
}

// evaluate combines pattern matches and reputation evidence into the final
// verdict using the weighted scoring rules
func (e *ThreatEvaluator) evaluate(matches models.MatchSet, evidence []models.ReputationVerdict) *models.ThreatVerdict {
	var (
		indicators      []string
		recommendations []string
		categories      = make(map[string]struct{})
		riskScore       int
	)

	addCategory := func(c string) { categories[c] = struct{}{} }

	// Suspicious domains only matter in the presence of a URL or IP
	if matches.Has(models.DetectorURL) || matches.Has(models.DetectorIPAddress) {
		if matches.Has(models.DetectorSuspiciousDomain) {
			indicators = append(indicators, "Suspicious domain detected that may be used for phishing")
			addCategory(models.CategoryPhishing)
			riskScore += 2
		}
	}

	for _, ev := range evidence {
		indicators = append(indicators, fmt.Sprintf(
			"URL %s flagged by %d security vendors as malicious", ev.URL, ev.Malicious))
		addCategory(models.CategoryMaliciousURL)
		riskScore += 3
	}

	if matches.Has(models.DetectorPassword) {
		indicators = append(indicators, "Password exposed in plaintext")
		addCategory(models.CategoryCredentialExposure)
		recommendations = append(recommendations, "Never share passwords in plaintext messages")
		riskScore += 4
	}

	if matches.Has(models.DetectorCreditCard) {
		indicators = append(indicators, "Credit card number potentially exposed")
		addCategory(models.CategoryDataExposure)
		recommendations = append(recommendations, "Avoid sharing financial information over unsecured channels")
		riskScore += 4
	}

	if matches.Has(models.DetectorSSN) {
		indicators = append(indicators, "Social Security Number potentially exposed")
		addCategory(models.CategoryDataExposure)
		recommendations = append(recommendations, "Never share Social Security Numbers via messaging")
		riskScore += 4
	}

	if matches.Has(models.DetectorExecutable) || matches.Has(models.DetectorDoubleExtension) {
		indicators = append(indicators, "Suspicious file attachment with executable extension")
		addCategory(models.CategoryMalware)
		recommendations = append(recommendations, "Do not open unexpected executable files")
		riskScore += 3
	}

	if matches.Has(models.DetectorSuspiciousCommand) {
		indicators = append(indicators, "Suspicious command that may execute malicious code")
		addCategory(models.CategoryMalware)
		addCategory(models.CategoryCommandExecution)
		recommendations = append(recommendations, "Do not run commands from untrusted sources")
		riskScore += 4
	}

	phishingScore := 0
	if matches.Has(models.DetectorUrgency) {
		phishingScore++
		indicators = append(indicators, "Message creates a false sense of urgency")
	}
	if matches.Has(models.DetectorThreat) {
		phishingScore++
		indicators = append(indicators, "Message contains threatening language about accounts or security")
	}
	if phishingScore >= 1 {
		addCategory(models.CategoryPhishing)
		riskScore += phishingScore

		if matches.Has(models.DetectorURL) {
			addCategory(models.CategoryCredentialHarvesting)
			recommendations = append(recommendations, "Verify suspicious links before clicking")
			recommendations = append(recommendations, "Contact organizations directly through official channels")
		}
	}

	categoryList := make([]string, 0, len(categories))
	for c := range categories {
		categoryList = append(categoryList, c)
	}
	sort.Strings(categoryList)

	if indicators == nil {
		indicators = []string{}
	}

	return &models.ThreatVerdict{
		RiskLevel:        models.RiskLevelForScore(riskScore),
		ThreatCategories: categoryList,
		Indicators:       indicators,
		Recommendations:  dedupe(recommendations),
		RiskScore:        riskScore,
	}
}

// SecurityRecommendations derives the full advice list for a verdict: the
// verdict's own recommendations plus boilerplate keyed by threat category.
// Pure function, no I/O. Returns an empty list for a risk-free verdict.
func SecurityRecommendations(v *models.ThreatVerdict) []string {
	if v == nil || v.RiskLevel == models.RiskLevelNone {
		return []string{}
	}

	recommendations := make([]string, 0, len(v.Recommendations)+8)
	recommendations = append(recommendations, v.Recommendations...)

	if v.HasCategory(models.CategoryPhishing) {
		recommendations = append(recommendations,
			"Be cautious of messages creating urgency or requesting sensitive information",
			"Verify the authenticity of links before clicking them")
	}

	if v.HasCategory(models.CategoryMalware) {
		recommendations = append(recommendations,
			"Do not download or open unexpected file attachments",
			"Keep your antivirus software up to date")
	}

	if v.HasCategory(models.CategoryCredentialExposure) || v.HasCategory(models.CategoryDataExposure) {
		recommendations = append(recommendations,
			"Never share sensitive information in unsecured communications",
			"Check for secure connections (https://) before entering credentials")
	}

	// No scoring rule currently produces these categories; the advice is
	// kept so verdicts from future rules degrade gracefully
	if v.HasCategory(models.CategorySuspiciousNetwork) || v.HasCategory(models.CategoryCommandAndControl) {
		recommendations = append(recommendations,
			"Monitor your network for unusual connections",
			"Use a firewall to block suspicious traffic")
	}

	return dedupe(recommendations)
}

// dedupe removes duplicate strings, keeping first occurrence order
func dedupe(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}
	return result
}
