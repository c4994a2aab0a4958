package model

// SelectionMethod records how a commodity option was chosen.
type SelectionMethod string

const (
	SelectionSingleMatch SelectionMethod = "single_match"
	SelectionLLM         SelectionMethod = "llm_selected"
)

// CommodityOption is a 10-digit commodity code candidate for the confirmed
// HS code.
type CommodityOption struct {
	TariffCode      string          `json:"tariff_code"`
	Description     string          `json:"description"`
	Confidence      float64         `json:"confidence"`
	Reasoning       string          `json:"reasoning,omitempty"`
	SelectionMethod SelectionMethod `json:"selection_method,omitempty"`
	Selected        bool            `json:"selected"`
}

// QuestionType constrains how a clarification answer must be supplied.
type QuestionType string

const (
	QuestionChoice QuestionType = "choice"
	QuestionNumber QuestionType = "number"
	QuestionText   QuestionType = "text"
)

// QuestionOption is one selectable answer for a choice question.
type QuestionOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Validation bounds a numeric answer.
type Validation struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// ClarificationQuestion is generated per missing-information category and
// consumed once by the caller's answer.
type ClarificationQuestion struct {
	ID         string           `json:"id"`
	Question   string           `json:"question"`
	Type       QuestionType     `json:"type"`
	Options    []QuestionOption `json:"options,omitempty"`
	Unit       string           `json:"unit,omitempty"`
	HelpText   string           `json:"help_text,omitempty"`
	Validation *Validation      `json:"validation,omitempty"`
}

// ClarificationAnswer pairs a question id with the caller's answer.
type ClarificationAnswer struct {
	QuestionID string `json:"question_id"`
	Answer     string `json:"answer"`
}

// CommodityResolution is the Stage-3 outcome. Exactly one of Selected or
// Questions is populated when Options is non-empty; both are empty when no
// commodity rows matched the confirmed code.
type CommodityResolution struct {
	Options   []CommodityOption       `json:"options,omitempty"`
	Selected  *CommodityOption        `json:"selected,omitempty"`
	Questions []ClarificationQuestion `json:"questions,omitempty"`
	Reasoning string                  `json:"reasoning,omitempty"`
}
