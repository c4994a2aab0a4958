package commodity

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/tariff-cli/internal/model"
)

const questionsSystemPrompt = `You generate clarification questions for a customs operator. For each missing-information category produce one structured question. Respond with a JSON array:
[{"id": "<snake_case_id>", "question": "<text>", "type": "choice|number|text", "options": [{"value": "<v>", "label": "<l>"}], "unit": "<unit>", "help_text": "<hint>", "validation": {"min": <n>, "max": <n>}}]
Omit options, unit, help_text and validation when they do not apply.`

const questionsUserPrompt = `Product: %s

Candidate commodity codes:
%s
Missing information categories:
%s
Generate one question per category.`

// generateQuestions asks the gateway for structured clarification questions,
// falling back to one generic text question per missing category when the
// call or parse fails.
func (r *Resolver) generateQuestions(ctx context.Context, product, optionText string, missing []string) []model.ClarificationQuestion {
	if len(missing) == 0 {
		missing = []string{"product specification"}
	}

	reply, err := r.gw.Call(ctx, questionsSystemPrompt,
		fmt.Sprintf(questionsUserPrompt, product, optionText, formatMissing(missing)),
		r.model,
	)
	if err == nil {
		if questions := parseQuestions(reply); len(questions) > 0 {
			return questions
		}
		zap.L().Warn("commodity: unparseable question generation reply", zap.String("reply", reply))
	} else {
		zap.L().Warn("commodity: question generation call failed", zap.Error(err))
	}

	return genericQuestions(missing)
}

// parseQuestions validates the generated questions, dropping malformed
// entries and normalizing unknown types to text.
func parseQuestions(reply string) []model.ClarificationQuestion {
	var parsed []model.ClarificationQuestion
	if err := json.Unmarshal([]byte(cleanJSON(reply)), &parsed); err != nil {
		return nil
	}

	var questions []model.ClarificationQuestion
	for i, q := range parsed {
		if q.Question == "" {
			continue
		}
		if q.ID == "" {
			q.ID = fmt.Sprintf("q%d", i+1)
		}
		switch q.Type {
		case model.QuestionChoice:
			if len(q.Options) == 0 {
				q.Type = model.QuestionText
			}
		case model.QuestionNumber, model.QuestionText:
		default:
			q.Type = model.QuestionText
		}
		questions = append(questions, q)
	}
	return questions
}

// genericQuestions builds one plain text question per missing category.
func genericQuestions(missing []string) []model.ClarificationQuestion {
	questions := make([]model.ClarificationQuestion, len(missing))
	for i, category := range missing {
		questions[i] = model.ClarificationQuestion{
			ID:       fmt.Sprintf("q%d", i+1),
			Question: fmt.Sprintf("Please describe the product's %s.", category),
			Type:     model.QuestionText,
			HelpText: "This detail is needed to pick between similar commodity codes.",
		}
	}
	return questions
}

func formatMissing(missing []string) string {
	var b strings.Builder
	for _, m := range missing {
		fmt.Fprintf(&b, "- %s\n", m)
	}
	return b.String()
}
