// Package commodity implements Stage 3: resolving a confirmed 6-digit HS
// code to a country-specific 10-digit commodity code, collecting missing
// product attributes through clarification questions when needed.
package commodity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/tariff-cli/internal/catalog"
	"github.com/sells-group/tariff-cli/internal/gateway"
	"github.com/sells-group/tariff-cli/internal/model"
)

const singleMatchConfidence = 0.95

const sufficiencySystemPrompt = `You are a customs classification assistant deciding whether known product information is enough to pick exactly one commodity code. Respond with a single JSON object:
{"sufficient": <true|false>, "reasoning": "<why>", "missing_info": ["<category>", ...]}`

const sufficiencyUserPrompt = `Product: %s

Known product information:
%s
%s
Candidate commodity codes:
%s
Can the known information unambiguously distinguish between these descriptions?`

const selectSystemPrompt = `You are a customs classification assistant. Pick exactly one commodity code from the list that best matches the product, or respond with NONE if none fits. Respond with the 10-digit code (or NONE) on the first line, then one sentence of reasoning.`

const selectUserPrompt = `Product: %s

Known product information:
%s
%s
Candidate commodity codes:
%s
Which single code applies?`

// Resolver resolves confirmed HS codes to commodity codes.
type Resolver struct {
	catalog catalog.Store
	gw      gateway.Caller
	model   string
}

// NewResolver creates a commodity resolver using the given arbiter model.
func NewResolver(store catalog.Store, gw gateway.Caller, modelName string) *Resolver {
	return &Resolver{catalog: store, gw: gw, model: modelName}
}

// sufficiencyVerdict is the strict reply shape of the sufficiency gate.
type sufficiencyVerdict struct {
	Sufficient  bool     `json:"sufficient"`
	Reasoning   string   `json:"reasoning"`
	MissingInfo []string `json:"missing_info"`
}

// Resolve fetches all commodity rows prefixed by the confirmed code and
// either auto-selects, asks the gateway to select, or generates
// clarification questions. Answers from earlier rounds are appended as extra
// context; rounds are unbounded.
//
// A nil resolution with nil error means no commodity rows matched.
func (r *Resolver) Resolve(ctx context.Context, confirmedCode, product, productInfo string, answers []model.ClarificationAnswer) (*model.CommodityResolution, error) {
	records, err := r.catalog.SearchCommodity(ctx, confirmedCode)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		zap.L().Info("commodity: no rows for confirmed code", zap.String("code", confirmedCode))
		return nil, nil
	}

	res := &model.CommodityResolution{
		Options: make([]model.CommodityOption, len(records)),
	}
	for i, rec := range records {
		res.Options[i] = model.CommodityOption{
			TariffCode:  rec.Code,
			Description: rec.Description,
		}
	}

	if len(records) == 1 {
		// Single match: no sufficiency gate, fixed confidence.
		res.Options[0].Confidence = singleMatchConfidence
		res.Options[0].SelectionMethod = model.SelectionSingleMatch
		res.Options[0].Selected = true
		res.Selected = &res.Options[0]
		return res, nil
	}

	answerText := formatAnswers(answers)
	optionText := formatCommodityOptions(records)

	verdict := r.checkSufficiency(ctx, product, productInfo, answerText, optionText)
	res.Reasoning = verdict.Reasoning

	if !verdict.Sufficient {
		res.Questions = r.generateQuestions(ctx, product, optionText, verdict.MissingInfo)
		return res, nil
	}

	selected := r.selectOption(ctx, product, productInfo, answerText, optionText, res.Options)
	if selected != nil {
		selected.Selected = true
		selected.SelectionMethod = model.SelectionLLM
		res.Selected = selected
	}
	return res, nil
}

// checkSufficiency asks the gateway whether the known information can
// distinguish between the options. A failed call or unparseable reply is
// treated as insufficient.
func (r *Resolver) checkSufficiency(ctx context.Context, product, productInfo, answerText, optionText string) sufficiencyVerdict {
	insufficient := sufficiencyVerdict{
		Sufficient:  false,
		Reasoning:   "could not determine information sufficiency",
		MissingInfo: []string{"product specification"},
	}

	reply, err := r.gw.Call(ctx, sufficiencySystemPrompt,
		fmt.Sprintf(sufficiencyUserPrompt, product, productInfo, answerText, optionText),
		r.model,
	)
	if err != nil {
		zap.L().Warn("commodity: sufficiency gate call failed", zap.Error(err))
		return insufficient
	}

	var verdict sufficiencyVerdict
	if err := json.Unmarshal([]byte(cleanJSON(reply)), &verdict); err != nil {
		zap.L().Warn("commodity: unparseable sufficiency reply", zap.String("reply", reply))
		return insufficient
	}
	if !verdict.Sufficient && len(verdict.MissingInfo) == 0 {
		verdict.MissingInfo = insufficient.MissingInfo
	}
	return verdict
}

// selectOption asks the gateway to pick exactly one code, mapping the reply
// back to an option. "NONE" or an unrecognized reply yields no selection.
func (r *Resolver) selectOption(ctx context.Context, product, productInfo, answerText, optionText string, options []model.CommodityOption) *model.CommodityOption {
	reply, err := r.gw.Call(ctx, selectSystemPrompt,
		fmt.Sprintf(selectUserPrompt, product, productInfo, answerText, optionText),
		r.model,
	)
	if err != nil {
		zap.L().Warn("commodity: selection call failed", zap.Error(err))
		return nil
	}

	if strings.Contains(strings.ToUpper(reply), "NONE") {
		return nil
	}

	normalized := catalog.Normalize(reply)
	for i := range options {
		if strings.Contains(normalized, options[i].TariffCode) {
			options[i].Confidence = parseSelectionConfidence(reply)
			options[i].Reasoning = selectionReasoning(reply)
			return &options[i]
		}
	}
	return nil
}

func parseSelectionConfidence(reply string) float64 {
	lower := strings.ToLower(reply)
	switch {
	case strings.Contains(lower, "high"):
		return 0.9
	case strings.Contains(lower, "low"):
		return 0.5
	default:
		return 0.8
	}
}

func selectionReasoning(reply string) string {
	lines := strings.SplitN(strings.TrimSpace(reply), "\n", 2)
	if len(lines) == 2 {
		return strings.TrimSpace(lines[1])
	}
	return ""
}

func formatAnswers(answers []model.ClarificationAnswer) string {
	if len(answers) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nOperator clarifications:\n")
	for _, a := range answers {
		fmt.Fprintf(&b, "- %s: %s\n", a.QuestionID, a.Answer)
	}
	return b.String()
}

func formatCommodityOptions(records []catalog.CommodityRecord) string {
	var b strings.Builder
	for _, rec := range records {
		fmt.Fprintf(&b, "- %s: %s\n", rec.Code, rec.Description)
	}
	return b.String()
}

// cleanJSON strips markdown code fences and surrounding prose so the reply
// can be unmarshaled.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.Index(text, "```"); idx >= 0 {
		text = text[idx+3:]
		text = strings.TrimPrefix(text, "json")
		if end := strings.Index(text, "```"); end >= 0 {
			text = text[:end]
		}
	}
	// Trim to the outermost JSON value.
	start := strings.IndexAny(text, "{[")
	if start > 0 {
		text = text[start:]
	}
	return strings.TrimSpace(text)
}
