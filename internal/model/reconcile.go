package model

// MatchType records which search tier produced a catalog hit.
type MatchType string

const (
	MatchExact   MatchType = "exact"
	MatchHeading MatchType = "heading"
)

// CatalogSource identifies which reference catalog an option came from.
type CatalogSource string

const (
	SourcePrimary   CatalogSource = "catalog_a"
	SourceSecondary CatalogSource = "catalog_b"
)

// ReconciliationOption is one catalog record offered to the arbiter for a
// single candidate code. Options are never mutated after assembly.
type ReconciliationOption struct {
	Code          string        `json:"code"`
	FormattedCode string        `json:"formatted_code"`
	Description   string        `json:"description"`
	Source        CatalogSource `json:"source"`
	MatchType     MatchType     `json:"match_type"`
}

// ConfidenceLevel buckets a match score for human consumption.
type ConfidenceLevel string

const (
	ConfidenceNone    ConfidenceLevel = "none"
	ConfidenceVeryLow ConfidenceLevel = "very_low"
	ConfidenceLow     ConfidenceLevel = "low"
	ConfidenceMedium  ConfidenceLevel = "medium"
	ConfidenceHigh    ConfidenceLevel = "high"
)

// LevelForScore maps a 0..1 match score to a ConfidenceLevel.
func LevelForScore(score float64) ConfidenceLevel {
	switch {
	case score <= 0:
		return ConfidenceNone
	case score < 0.3:
		return ConfidenceVeryLow
	case score < 0.5:
		return ConfidenceLow
	case score < 0.75:
		return ConfidenceMedium
	default:
		return ConfidenceHigh
	}
}

// ReconciliationResult is the Stage-2 outcome for one Stage-1 candidate.
// ResolvedCode is always one of the formatted codes offered to the arbiter,
// or empty when no selection could be made.
type ReconciliationResult struct {
	InputCode       string          `json:"input_code"`
	ResolvedCode    string          `json:"resolved_code,omitempty"`
	ResolvedSource  CatalogSource   `json:"resolved_source,omitempty"`
	Description     string          `json:"description,omitempty"`
	MatchScore      float64         `json:"match_score"`
	ConfidenceLevel ConfidenceLevel `json:"confidence_level"`
	Reasoning       string          `json:"reasoning,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
	Errors          []string        `json:"errors,omitempty"`
}

// Consensus describes agreement across reconciliation results.
type Consensus string

const (
	ConsensusNone      Consensus = "none"
	ConsensusWeak      Consensus = "weak"
	ConsensusMajority  Consensus = "majority"
	ConsensusUnanimous Consensus = "unanimous"
)

// NoMatch is the sentinel confirmed code when reconciliation fails entirely.
const NoMatch = "NO_MATCH"

// FinalDetermination is the reduction over all ReconciliationResults.
type FinalDetermination struct {
	ConfirmedCode        string    `json:"confirmed_code"`
	Consensus            Consensus `json:"consensus"`
	ConsensusCount       int       `json:"consensus_count"`
	TotalInputs          int       `json:"total_inputs"`
	QualityScore         float64   `json:"quality_score"`
	RequiresManualReview bool      `json:"requires_manual_review"`
	Warnings             []string  `json:"warnings,omitempty"`
	Errors               []string  `json:"errors,omitempty"`
}
