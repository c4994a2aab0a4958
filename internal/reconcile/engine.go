// Package reconcile implements Stage 2: cross-catalog reconciliation of
// Stage-1 candidate codes with an LLM arbiter and a multi-strategy answer
// parser.
package reconcile

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/tariff-cli/internal/catalog"
	"github.com/sells-group/tariff-cli/internal/gateway"
	"github.com/sells-group/tariff-cli/internal/model"
)

const arbiterSystemPrompt = `You are a customs tariff arbiter. You are given a numbered list of candidate tariff classifications for a product. Pick the single best option.

Respond in this format:
OPTION: <option number>
CONFIDENCE: <high|medium|low>
REASONING: <one or two sentences>`

const arbiterUserPrompt = `Product: %s

Product information:
%s

Candidate code under review: %s

Options:
%s
Which option best classifies this product?`

// Config bounds option assembly.
type Config struct {
	MaxExactOptions   int
	MaxHeadingOptions int
	ArbiterModel      string
}

// Engine reconciles Stage-1 candidates against the two reference catalogs.
type Engine struct {
	catalog catalog.Store
	gw      gateway.Caller
	cfg     Config
}

// NewEngine creates a reconciliation engine.
func NewEngine(store catalog.Store, gw gateway.Caller, cfg Config) *Engine {
	if cfg.MaxExactOptions <= 0 {
		cfg.MaxExactOptions = 5
	}
	if cfg.MaxHeadingOptions <= 0 {
		cfg.MaxHeadingOptions = 5
	}
	return &Engine{catalog: store, gw: gw, cfg: cfg}
}

// Reconcile resolves one Stage-1 candidate code against both catalogs.
// It never returns an error: every failure mode is recorded inside the
// result so the orchestrator can always reduce.
func (e *Engine) Reconcile(ctx context.Context, code, product, productInfo string) model.ReconciliationResult {
	result := model.ReconciliationResult{
		InputCode:       code,
		ConfidenceLevel: model.ConfidenceNone,
	}

	options := e.assembleOptions(ctx, code, &result)
	if len(options) == 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("no catalog records found for code %s", code))
		return result
	}

	reply, err := e.gw.Call(ctx, arbiterSystemPrompt,
		fmt.Sprintf(arbiterUserPrompt, product, productInfo, code, formatOptions(options)),
		e.cfg.ArbiterModel,
	)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("arbiter call failed for code %s: %v", code, err))
		return result
	}

	selected, strategy := SelectOption(reply, options)
	if selected == nil {
		// Parse failure is "no selection", not an error.
		result.Reasoning = "arbiter reply could not be mapped to any option"
		zap.L().Info("reconcile: no selection",
			zap.String("code", code),
			zap.String("reply", reply),
		)
		return result
	}

	result.ResolvedCode = selected.FormattedCode
	result.ResolvedSource = selected.Source
	result.Description = selected.Description
	result.MatchScore = ParseConfidence(reply)
	result.ConfidenceLevel = model.LevelForScore(result.MatchScore)
	result.Reasoning = extractReasoning(reply)

	deriveWarnings(&result, selected, product)

	zap.L().Debug("reconcile: candidate resolved",
		zap.String("input_code", code),
		zap.String("resolved_code", result.ResolvedCode),
		zap.String("strategy", strategy),
		zap.Float64("score", result.MatchScore),
	)

	return result
}

// assembleOptions queries both catalogs with the exact-then-heading fallback
// and merges the hits, de-duplicating by formatted code. Catalog A
// contributes up to MaxExactOptions exact or MaxHeadingOptions heading rows;
// catalog B contributes its exact match or up to MaxHeadingOptions heading
// rows.
func (e *Engine) assembleOptions(ctx context.Context, code string, result *model.ReconciliationResult) []model.ReconciliationOption {
	var options []model.ReconciliationOption
	seen := make(map[string]bool)

	add := func(records []catalog.Record, source model.CatalogSource, tier model.MatchType, limit int) {
		added := 0
		for _, r := range records {
			if seen[r.FormattedCode] {
				continue
			}
			if added >= limit {
				break
			}
			added++
			seen[r.FormattedCode] = true
			options = append(options, model.ReconciliationOption{
				Code:          r.Code,
				FormattedCode: r.FormattedCode,
				Description:   r.Description,
				Source:        source,
				MatchType:     tier,
			})
		}
	}

	for _, source := range []model.CatalogSource{model.SourcePrimary, model.SourceSecondary} {
		records, tier, err := e.searchWithFallback(ctx, source, code)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("catalog %s search failed: %v", source, err))
			continue
		}
		if len(records) == 0 {
			continue
		}

		limit := e.cfg.MaxExactOptions
		if tier == model.MatchHeading {
			limit = e.cfg.MaxHeadingOptions
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("catalog %s: no exact match for %s, fell back to heading search", source, code))
		} else if source == model.SourceSecondary {
			// Catalog B contributes only its best exact match.
			records = records[:1]
			limit = 1
		}
		add(records, source, tier, limit)
	}

	return options
}

// searchWithFallback runs the exact 6-digit prefix search, falling back to
// the 4-digit heading prefix when no rows match.
func (e *Engine) searchWithFallback(ctx context.Context, source model.CatalogSource, code string) ([]catalog.Record, model.MatchType, error) {
	normalized := catalog.Normalize(code)

	records, err := e.catalog.SearchPrefix(ctx, source, normalized, e.cfg.MaxExactOptions)
	if err != nil {
		return nil, "", err
	}
	if len(records) > 0 {
		return records, model.MatchExact, nil
	}

	if len(normalized) < 4 {
		return nil, model.MatchExact, nil
	}
	records, err = e.catalog.SearchPrefix(ctx, source, normalized[:4], e.cfg.MaxHeadingOptions)
	if err != nil {
		return nil, "", err
	}
	return records, model.MatchHeading, nil
}

func formatOptions(options []model.ReconciliationOption) string {
	var b strings.Builder
	for i, o := range options {
		fmt.Fprintf(&b, "%d. %s — %s\n", i+1, o.FormattedCode, o.Description)
	}
	return b.String()
}

// extractReasoning pulls the REASONING line out of a structured arbiter
// reply, or returns the whole reply trimmed when the label is absent.
func extractReasoning(reply string) string {
	for _, line := range strings.Split(reply, "\n") {
		upper := strings.ToUpper(line)
		if idx := strings.Index(upper, "REASONING:"); idx >= 0 {
			return strings.TrimSpace(line[idx+len("REASONING:"):])
		}
	}
	return strings.TrimSpace(reply)
}
