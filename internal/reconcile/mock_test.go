package reconcile

import (
	"context"

	"github.com/sells-group/tariff-cli/internal/catalog"
	"github.com/sells-group/tariff-cli/internal/model"
)

// mockStore implements catalog.Store with scripted search results keyed by
// source and prefix.
type mockStore struct {
	records map[model.CatalogSource]map[string][]catalog.Record
	err     error
}

func (m *mockStore) SearchPrefix(_ context.Context, source model.CatalogSource, prefix string, limit int) ([]catalog.Record, error) {
	if m.err != nil {
		return nil, m.err
	}
	records := m.records[source][prefix]
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}

func (m *mockStore) SearchCommodity(_ context.Context, _ string) ([]catalog.CommodityRecord, error) {
	return nil, nil
}

func (m *mockStore) CreateRun(_ context.Context, _ string) (*model.Run, error) {
	return &model.Run{ID: "run-1"}, nil
}

func (m *mockStore) CompleteRun(_ context.Context, _ string, _ model.RunStatus, _ *model.Outcome) error {
	return nil
}

func (m *mockStore) GetRun(_ context.Context, _ string) (*model.Run, error) {
	return nil, nil
}

func (m *mockStore) Close() error { return nil }

// mockCaller returns a fixed arbiter reply and counts calls.
type mockCaller struct {
	reply string
	err   error
	calls int
}

func (m *mockCaller) Call(_ context.Context, _, _, _ string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}
