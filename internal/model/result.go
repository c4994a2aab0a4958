package model

import "time"

// RecommendationStatus tiers the final classification by quality score.
type RecommendationStatus string

const (
	RecommendationHigh    RecommendationStatus = "high_confidence"
	RecommendationMedium  RecommendationStatus = "medium_confidence"
	RecommendationLow     RecommendationStatus = "low_confidence"
	RecommendationNoMatch RecommendationStatus = "no_match"
)

// FinalResults is the synthesized summary over all three stages.
type FinalResults struct {
	Status               RecommendationStatus `json:"recommendation_status"`
	HSCode               string               `json:"hs_code,omitempty"`
	CommodityCode        string               `json:"commodity_code,omitempty"`
	Description          string               `json:"description,omitempty"`
	QualityScore         float64              `json:"quality_score"`
	Consensus            Consensus            `json:"consensus"`
	CommodityOptionCount int                  `json:"commodity_option_count"`
	RequiresManualReview bool                 `json:"requires_manual_review"`
	Warnings             []string             `json:"warnings,omitempty"`
	Errors               []string             `json:"errors,omitempty"`
}

// OutcomeStatus is the caller-facing completion state of a classify call.
type OutcomeStatus string

const (
	StatusComplete           OutcomeStatus = "complete"
	StatusNeedsClarification OutcomeStatus = "needs_clarification"
)

// Outcome is the response shape for classify and continue_classification.
type Outcome struct {
	Status        OutcomeStatus           `json:"status"`
	RunID         string                  `json:"run_id,omitempty"`
	HSCode        string                  `json:"hs_code,omitempty"`
	CommodityCode string                  `json:"commodity_code,omitempty"`
	Description   string                  `json:"description,omitempty"`
	Confidence    float64                 `json:"confidence,omitempty"`
	Questions     []ClarificationQuestion `json:"clarification_questions,omitempty"`
	SessionID     string                  `json:"session_id,omitempty"`
	FinalResults  *FinalResults           `json:"final_results,omitempty"`
	Errors        []string                `json:"errors,omitempty"`
	Warnings      []string                `json:"warnings,omitempty"`
}

// RunStatus tracks a persisted classification run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is a persisted record of one pipeline execution.
type Run struct {
	ID        string    `json:"id"`
	Product   string    `json:"product"`
	Status    RunStatus `json:"status"`
	Outcome   *Outcome  `json:"outcome,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
