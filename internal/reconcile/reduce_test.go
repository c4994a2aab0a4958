package reconcile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/tariff-cli/internal/model"
)

func resolvedResult(code string, score float64) model.ReconciliationResult {
	return model.ReconciliationResult{
		InputCode:       "080390",
		ResolvedCode:    code,
		MatchScore:      score,
		ConfidenceLevel: model.LevelForScore(score),
	}
}

func TestReduce_Unanimous(t *testing.T) {
	det := Reduce([]model.ReconciliationResult{
		resolvedResult("0803.90", 0.9),
		resolvedResult("0803.90", 0.9),
		resolvedResult("0803.90", 0.9),
	})

	assert.Equal(t, "0803.90", det.ConfirmedCode)
	assert.Equal(t, model.ConsensusUnanimous, det.Consensus)
	assert.Equal(t, 3, det.ConsensusCount)
	assert.Equal(t, 3, det.TotalInputs)
	// (1.0*0.4 + 0.9*0.6) * 10
	assert.InDelta(t, 9.4, det.QualityScore, 0.001)
	assert.False(t, det.RequiresManualReview)
}

func TestReduce_MajorityPicksMode(t *testing.T) {
	det := Reduce([]model.ReconciliationResult{
		resolvedResult("0803.90", 0.9),
		resolvedResult("0803.10", 0.7),
		resolvedResult("0803.90", 0.9),
	})

	assert.Equal(t, "0803.90", det.ConfirmedCode)
	assert.Equal(t, model.ConsensusMajority, det.Consensus)
	assert.Equal(t, 2, det.ConsensusCount)
}

func TestReduce_TieBreaksTowardFirstEncountered(t *testing.T) {
	det := Reduce([]model.ReconciliationResult{
		resolvedResult("0803.10", 0.7),
		resolvedResult("0803.90", 0.9),
	})

	assert.Equal(t, "0803.10", det.ConfirmedCode)
	assert.Equal(t, model.ConsensusWeak, det.Consensus)
	assert.True(t, det.RequiresManualReview, "weak consensus forces manual review")
}

func TestReduce_NothingResolved(t *testing.T) {
	det := Reduce([]model.ReconciliationResult{
		{InputCode: "080390", Errors: []string{"no catalog records found for code 080390"}},
		{InputCode: "080310"},
	})

	assert.Equal(t, model.NoMatch, det.ConfirmedCode)
	assert.Equal(t, model.ConsensusNone, det.Consensus)
	assert.Zero(t, det.QualityScore)
	assert.True(t, det.RequiresManualReview)
	assert.Len(t, det.Errors, 1)
}

func TestReduce_EmptyInput(t *testing.T) {
	det := Reduce(nil)
	assert.Equal(t, model.NoMatch, det.ConfirmedCode)
	assert.Zero(t, det.TotalInputs)
	assert.True(t, det.RequiresManualReview)
}

func TestReduce_DeduplicatesWarningsAndErrors(t *testing.T) {
	shared := "catalog catalog_a: no exact match for 080390, fell back to heading search"
	r1 := resolvedResult("0803.90", 0.9)
	r1.Warnings = []string{shared}
	r2 := resolvedResult("0803.90", 0.9)
	r2.Warnings = []string{shared}
	r2.Errors = []string{"arbiter call failed"}
	r3 := resolvedResult("0803.90", 0.9)
	r3.Errors = []string{"arbiter call failed"}

	det := Reduce([]model.ReconciliationResult{r1, r2, r3})
	assert.Equal(t, []string{shared}, det.Warnings)
	assert.Equal(t, []string{"arbiter call failed"}, det.Errors)
	// (0.4 + 0.54 - 0.1 - 0.2) * 10
	assert.InDelta(t, 6.4, det.QualityScore, 0.001)
	assert.True(t, det.RequiresManualReview, "errors force manual review")
}

func TestReduce_MismatchWarningForcesManualReview(t *testing.T) {
	r1 := resolvedResult("8704.21", 0.9)
	r1.Warnings = []string{"heading mismatch: goods-transport heading 8704 selected for a passenger vehicle description"}
	r2 := resolvedResult("8704.21", 0.9)
	r3 := resolvedResult("8704.21", 0.9)

	det := Reduce([]model.ReconciliationResult{r1, r2, r3})
	// (0.4 + 0.54 - 0.1) * 10 stays well above the review threshold.
	assert.InDelta(t, 8.4, det.QualityScore, 0.001)
	assert.True(t, det.RequiresManualReview)
}

func TestReduce_QualityClampsAtZero(t *testing.T) {
	r := resolvedResult("0803.90", 0.1)
	r.Warnings = []string{"w1", "w2", "w3", "w4", "w5", "w6"}
	r.Errors = []string{"e1", "e2", "e3", "e4", "e5"}

	det := Reduce([]model.ReconciliationResult{r})
	assert.Zero(t, det.QualityScore)
	assert.True(t, det.RequiresManualReview)
}

func TestReduce_OrderInvariantModulo_Ties(t *testing.T) {
	results := []model.ReconciliationResult{
		resolvedResult("0803.90", 0.9),
		resolvedResult("0803.10", 0.4),
		resolvedResult("0803.90", 0.7),
	}
	reordered := []model.ReconciliationResult{results[2], results[0], results[1]}

	a := Reduce(results)
	b := Reduce(reordered)
	require.Equal(t, a.ConfirmedCode, b.ConfirmedCode)
	assert.InDelta(t, a.QualityScore, b.QualityScore, 0.001)
	assert.Equal(t, a.Consensus, b.Consensus)
}
