package reconcile

import (
	"strings"

	"github.com/sells-group/tariff-cli/internal/model"
)

// Reduce collapses all per-candidate reconciliation results into a single
// FinalDetermination. Mode selection over resolved codes is deterministic:
// ties break toward the code encountered first in slice order.
func Reduce(results []model.ReconciliationResult) model.FinalDetermination {
	det := model.FinalDetermination{
		ConfirmedCode: model.NoMatch,
		Consensus:     model.ConsensusNone,
		TotalInputs:   len(results),
	}

	counts := make(map[string]int)
	var order []string
	var confidenceSum float64
	resolved := 0

	warningSet := make(map[string]bool)
	errorSet := make(map[string]bool)

	for _, r := range results {
		for _, w := range r.Warnings {
			if !warningSet[w] {
				warningSet[w] = true
				det.Warnings = append(det.Warnings, w)
			}
		}
		for _, e := range r.Errors {
			if !errorSet[e] {
				errorSet[e] = true
				det.Errors = append(det.Errors, e)
			}
		}

		if r.ResolvedCode == "" {
			continue
		}
		if _, seen := counts[r.ResolvedCode]; !seen {
			order = append(order, r.ResolvedCode)
		}
		counts[r.ResolvedCode]++
		confidenceSum += r.MatchScore
		resolved++
	}

	if resolved == 0 {
		det.RequiresManualReview = true
		return det
	}

	best := order[0]
	for _, code := range order {
		if counts[code] > counts[best] {
			best = code
		}
	}

	det.ConfirmedCode = best
	det.ConsensusCount = counts[best]

	switch {
	case det.ConsensusCount == det.TotalInputs:
		det.Consensus = model.ConsensusUnanimous
	case det.ConsensusCount*2 > det.TotalInputs:
		det.Consensus = model.ConsensusMajority
	default:
		det.Consensus = model.ConsensusWeak
	}

	consensusRatio := float64(det.ConsensusCount) / float64(det.TotalInputs)
	avgConfidence := confidenceSum / float64(resolved)

	warningPenalty := 0.1 * float64(len(warningSet))
	if warningPenalty > 0.5 {
		warningPenalty = 0.5
	}
	errorPenalty := 0.2 * float64(len(errorSet))
	if errorPenalty > 0.8 {
		errorPenalty = 0.8
	}

	score := (consensusRatio*0.4 + avgConfidence*0.6 - warningPenalty - errorPenalty) * 10
	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	det.QualityScore = score

	det.RequiresManualReview = det.QualityScore < 6 ||
		det.Consensus == model.ConsensusWeak ||
		len(det.Errors) > 0 ||
		hasMismatchWarning(det.Warnings)

	return det
}

func hasMismatchWarning(warnings []string) bool {
	for _, w := range warnings {
		if strings.Contains(w, "mismatch") {
			return true
		}
	}
	return false
}
