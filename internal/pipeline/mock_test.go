package pipeline

import (
	"context"
	"sync"

	"github.com/sells-group/tariff-cli/internal/model"
)

// fakeStage1 returns a canned consensus result.
type fakeStage1 struct {
	result *model.Stage1Result
}

func (f *fakeStage1) Classify(_ context.Context, _ string) *model.Stage1Result {
	return f.result
}

// fakeStage2 maps input codes to canned reconciliation results. Calls run
// concurrently, so the call log is mutex-guarded.
type fakeStage2 struct {
	mu      sync.Mutex
	results map[string]model.ReconciliationResult
	codes   []string
}

func (f *fakeStage2) Reconcile(_ context.Context, code, _, _ string) model.ReconciliationResult {
	f.mu.Lock()
	f.codes = append(f.codes, code)
	f.mu.Unlock()
	if r, ok := f.results[code]; ok {
		return r
	}
	return model.ReconciliationResult{InputCode: code, ConfidenceLevel: model.ConfidenceNone}
}

// fakeStage3 replays a queue of resolutions, recording the codes and answers
// it was asked about.
type fakeStage3 struct {
	resolutions []*model.CommodityResolution
	errs        []error
	codes       []string
	answers     [][]model.ClarificationAnswer
	n           int
}

func (f *fakeStage3) Resolve(_ context.Context, confirmedCode, _, _ string, answers []model.ClarificationAnswer) (*model.CommodityResolution, error) {
	i := f.n
	f.n++
	f.codes = append(f.codes, confirmedCode)
	f.answers = append(f.answers, answers)

	var err error
	if i < len(f.errs) {
		err = f.errs[i]
	}
	var res *model.CommodityResolution
	if i < len(f.resolutions) {
		res = f.resolutions[i]
	}
	return res, err
}

// collector records emitted events in order.
type collector struct {
	events []model.StreamEvent
}

func (c *collector) Emit(ev model.StreamEvent) {
	c.events = append(c.events, ev)
}

func (c *collector) types() []model.EventType {
	types := make([]model.EventType, len(c.events))
	for i, ev := range c.events {
		types[i] = ev.Type
	}
	return types
}
