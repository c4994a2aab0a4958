// Package pipeline orchestrates the three classification stages and the
// clarification session protocol.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/tariff-cli/internal/catalog"
	"github.com/sells-group/tariff-cli/internal/classifier"
	"github.com/sells-group/tariff-cli/internal/commodity"
	"github.com/sells-group/tariff-cli/internal/model"
	"github.com/sells-group/tariff-cli/internal/reconcile"
	"github.com/sells-group/tariff-cli/internal/session"
)

// Stage1 abstracts the consensus classifier for testing.
type Stage1 interface {
	Classify(ctx context.Context, product string) *model.Stage1Result
}

// Stage2 abstracts the reconciliation engine for testing.
type Stage2 interface {
	Reconcile(ctx context.Context, code, product, productInfo string) model.ReconciliationResult
}

// Stage3 abstracts the commodity resolver for testing.
type Stage3 interface {
	Resolve(ctx context.Context, confirmedCode, product, productInfo string, answers []model.ClarificationAnswer) (*model.CommodityResolution, error)
}

// maxConcurrentReconciles bounds the Stage-2 fan-out so the arbiter model
// is not hammered when Stage 1 produces many candidates.
const maxConcurrentReconciles = 3

// Pipeline sequences Stages 1-3 and owns the clarification sessions.
type Pipeline struct {
	stage1   Stage1
	stage2   Stage2
	stage3   Stage3
	sessions session.Store
	runs     catalog.Store // optional run persistence; may be nil
}

// New creates a Pipeline with concrete stage implementations.
func New(c *classifier.Classifier, e *reconcile.Engine, r *commodity.Resolver, sessions session.Store, runs catalog.Store) *Pipeline {
	return &Pipeline{stage1: c, stage2: e, stage3: r, sessions: sessions, runs: runs}
}

// NewWithStages wires arbitrary stage implementations; used by tests.
func NewWithStages(s1 Stage1, s2 Stage2, s3 Stage3, sessions session.Store, runs catalog.Store) *Pipeline {
	return &Pipeline{stage1: s1, stage2: s2, stage3: s3, sessions: sessions, runs: runs}
}

// Run executes the full pipeline for a product description. Stage failures
// degrade into the outcome's errors; Run itself only fails on session-store
// faults. A nil emitter disables streaming.
func (p *Pipeline) Run(ctx context.Context, product string, em Emitter) (*model.Outcome, error) {
	log := zap.L().With(zap.String("product", product))
	log.Info("pipeline: starting classification")

	var runID string
	if p.runs != nil {
		if run, err := p.runs.CreateRun(ctx, product); err != nil {
			log.Warn("pipeline: failed to create run record", zap.Error(err))
		} else {
			runID = run.ID
		}
	}

	// Stage 1: consensus classification.
	emit(em, model.EventStage1, map[string]string{"product": product})
	s1 := p.stage1.Classify(ctx, product)
	emit(em, model.EventStage1Result, s1.Candidates)

	if len(s1.Candidates) == 0 {
		outcome := &model.Outcome{
			Status: model.StatusComplete,
			RunID:  runID,
			Errors: []string{"No consensus"},
		}
		p.saveRun(ctx, runID, model.RunStatusFailed, outcome)
		emit(em, model.EventComplete, outcome)
		return outcome, nil
	}

	// Stage 2: reconciliation per candidate, then reduction. Candidates
	// reconcile concurrently; results keep candidate order so reduction
	// tie-breaks stay deterministic.
	emit(em, model.EventStage2, s1.Codes())
	results := make([]model.ReconciliationResult, len(s1.Candidates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentReconciles)
	for i, cand := range s1.Candidates {
		i, cand := i, cand
		g.Go(func() error {
			results[i] = p.stage2.Reconcile(gctx, cand.Code, product, s1.ProductInfo)
			return nil
		})
	}
	_ = g.Wait() // Reconcile never errors
	det := reconcile.Reduce(results)
	emit(em, model.EventStage2Result, det)

	// Stage 3: commodity resolution over the confirmed code, or over the
	// full candidate list as a degraded fallback.
	emit(em, model.EventStage3, det.ConfirmedCode)
	resolution, resolveCode := p.resolveCommodity(ctx, det, s1, product)

	if resolution != nil && len(resolution.Questions) > 0 {
		sessionID, err := p.sessions.Create(ctx, &session.Session{
			Product:       product,
			ProductInfo:   s1.ProductInfo,
			Determination: det,
			ResolveCode:   resolveCode,
			Questions:     resolution.Questions,
		})
		if err != nil {
			return nil, err
		}
		outcome := &model.Outcome{
			Status:    model.StatusNeedsClarification,
			RunID:     runID,
			HSCode:    resolveCode,
			Questions: resolution.Questions,
			SessionID: sessionID,
			Warnings:  det.Warnings,
			Errors:    det.Errors,
		}
		p.saveRun(ctx, runID, model.RunStatusRunning, outcome)
		emit(em, model.EventClarification, outcome)
		return outcome, nil
	}

	outcome := p.finalize(det, resolution, resolveCode)
	outcome.RunID = runID
	p.saveRun(ctx, runID, model.RunStatusComplete, outcome)

	emit(em, model.EventThinkingComplete, nil)
	emitChunks(em, summaryText(outcome), outcome)

	log.Info("pipeline: classification complete",
		zap.String("run_id", runID),
		zap.String("hs_code", outcome.HSCode),
		zap.String("commodity_code", outcome.CommodityCode),
		zap.String("status", string(outcome.FinalResults.Status)),
	)

	return outcome, nil
}

// Continue resumes a clarification session with the caller's answers. The
// same sufficiency gate re-runs with the answers appended; it may complete
// or issue a further clarification round. Unknown session ids surface
// session.ErrNotFound.
func (p *Pipeline) Continue(ctx context.Context, sessionID string, answers []model.ClarificationAnswer, em Emitter) (*model.Outcome, error) {
	sess, err := p.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	sess.Answers = append(sess.Answers, answers...)

	emit(em, model.EventStage3, sess.ResolveCode)
	resolution, err := p.stage3.Resolve(ctx, sess.ResolveCode, sess.Product, sess.ProductInfo, sess.Answers)
	if err != nil {
		zap.L().Warn("pipeline: continuation resolve failed",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		resolution = nil
	}

	if resolution != nil && len(resolution.Questions) > 0 {
		sess.Questions = resolution.Questions
		if err := p.sessions.Update(ctx, sess); err != nil {
			return nil, err
		}
		outcome := &model.Outcome{
			Status:    model.StatusNeedsClarification,
			HSCode:    sess.ResolveCode,
			Questions: resolution.Questions,
			SessionID: sessionID,
			Warnings:  sess.Determination.Warnings,
			Errors:    sess.Determination.Errors,
		}
		emit(em, model.EventClarification, outcome)
		return outcome, nil
	}

	if err := p.sessions.Delete(ctx, sessionID); err != nil {
		zap.L().Warn("pipeline: failed to delete completed session",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
	}

	outcome := p.finalize(sess.Determination, resolution, sess.ResolveCode)
	emit(em, model.EventThinkingComplete, nil)
	emitChunks(em, summaryText(outcome), outcome)
	return outcome, nil
}

// resolveCommodity runs Stage 3 over the confirmed code, or over each
// Stage-1 candidate in rank order when reconciliation confirmed nothing.
func (p *Pipeline) resolveCommodity(ctx context.Context, det model.FinalDetermination, s1 *model.Stage1Result, product string) (*model.CommodityResolution, string) {
	codes := []string{det.ConfirmedCode}
	if det.ConfirmedCode == model.NoMatch {
		codes = s1.Codes()
		zap.L().Warn("pipeline: no confirmed code, resolving over stage-1 candidates",
			zap.Strings("candidates", codes),
		)
	}

	for _, code := range codes {
		resolution, err := p.stage3.Resolve(ctx, catalog.Normalize(code), product, s1.ProductInfo, nil)
		if err != nil {
			zap.L().Warn("pipeline: commodity resolution failed",
				zap.String("code", code),
				zap.Error(err),
			)
			continue
		}
		if resolution != nil {
			return resolution, catalog.Normalize(code)
		}
	}

	fallback := ""
	if det.ConfirmedCode != model.NoMatch {
		fallback = catalog.Normalize(det.ConfirmedCode)
	}
	return nil, fallback
}

// finalize synthesizes the caller-facing outcome and final-results summary.
func (p *Pipeline) finalize(det model.FinalDetermination, resolution *model.CommodityResolution, hsCode string) *model.Outcome {
	final := &model.FinalResults{
		HSCode:       hsCode,
		QualityScore: det.QualityScore,
		Consensus:    det.Consensus,
		Warnings:     det.Warnings,
		Errors:       det.Errors,
	}

	switch {
	case det.ConfirmedCode == model.NoMatch && hsCode == "":
		final.Status = model.RecommendationNoMatch
	case det.QualityScore >= 8:
		final.Status = model.RecommendationHigh
	case det.QualityScore >= 6:
		final.Status = model.RecommendationMedium
	default:
		final.Status = model.RecommendationLow
	}

	outcome := &model.Outcome{
		Status:   model.StatusComplete,
		HSCode:   hsCode,
		Warnings: det.Warnings,
		Errors:   det.Errors,
	}

	if resolution != nil {
		final.CommodityOptionCount = len(resolution.Options)
		if resolution.Selected != nil {
			final.CommodityCode = resolution.Selected.TariffCode
			final.Description = resolution.Selected.Description
			outcome.CommodityCode = resolution.Selected.TariffCode
			outcome.Description = resolution.Selected.Description
			outcome.Confidence = resolution.Selected.Confidence
		}
	}

	final.RequiresManualReview = final.Status == model.RecommendationLow ||
		final.Status == model.RecommendationNoMatch ||
		final.CommodityOptionCount == 0 ||
		det.RequiresManualReview

	outcome.FinalResults = final
	return outcome
}

// summaryText renders the final answer as prose for the streaming surface.
func summaryText(outcome *model.Outcome) string {
	final := outcome.FinalResults
	if final == nil {
		return "Classification could not be completed."
	}

	var b strings.Builder
	switch {
	case final.CommodityCode != "":
		fmt.Fprintf(&b, "The product classifies under HS code %s, commodity code %s (%s). ",
			final.HSCode, final.CommodityCode, final.Description)
	case final.HSCode != "":
		fmt.Fprintf(&b, "The product classifies under HS code %s, but no single commodity code could be determined. ", final.HSCode)
	default:
		b.WriteString("No defensible classification could be determined for this product. ")
	}

	fmt.Fprintf(&b, "Consensus was %s with a quality score of %.1f/10.", final.Consensus, final.QualityScore)
	if final.RequiresManualReview {
		b.WriteString(" Manual review is recommended.")
	}
	return b.String()
}

func (p *Pipeline) saveRun(ctx context.Context, runID string, status model.RunStatus, outcome *model.Outcome) {
	if p.runs == nil || runID == "" {
		return
	}
	if err := p.runs.CompleteRun(ctx, runID, status, outcome); err != nil {
		zap.L().Warn("pipeline: failed to save run outcome",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}
