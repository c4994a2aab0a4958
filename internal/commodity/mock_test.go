package commodity

import (
	"context"

	"github.com/sells-group/tariff-cli/internal/catalog"
	"github.com/sells-group/tariff-cli/internal/model"
)

// mockStore implements catalog.Store with scripted commodity rows.
type mockStore struct {
	commodities map[string][]catalog.CommodityRecord
	err         error
}

func (m *mockStore) SearchPrefix(_ context.Context, _ model.CatalogSource, _ string, _ int) ([]catalog.Record, error) {
	return nil, nil
}

func (m *mockStore) SearchCommodity(_ context.Context, prefix string) ([]catalog.CommodityRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.commodities[prefix], nil
}

func (m *mockStore) CreateRun(_ context.Context, _ string) (*model.Run, error) { return nil, nil }

func (m *mockStore) CompleteRun(_ context.Context, _ string, _ model.RunStatus, _ *model.Outcome) error {
	return nil
}

func (m *mockStore) GetRun(_ context.Context, _ string) (*model.Run, error) { return nil, nil }

func (m *mockStore) Close() error { return nil }

// scriptedCaller replays canned replies in call order.
type scriptedCaller struct {
	replies []string
	errs    []error
	n       int
}

func (c *scriptedCaller) Call(_ context.Context, _, _, _ string) (string, error) {
	i := c.n
	c.n++
	if i < len(c.errs) && c.errs[i] != nil {
		return "", c.errs[i]
	}
	if i < len(c.replies) {
		return c.replies[i], nil
	}
	return "", nil
}
