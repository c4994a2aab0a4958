// Package catalog provides read access to the two tariff reference catalogs
// and the 10-digit commodity code table.
package catalog

import (
	"context"
	"strings"

	"github.com/sells-group/tariff-cli/internal/model"
)

// Record is one row from a reference catalog.
type Record struct {
	Code          string // digits only, as stored
	FormattedCode string // dotted presentation form, e.g. "0803.90"
	Description   string
}

// CommodityRecord is one row from the 10-digit commodity table.
type CommodityRecord struct {
	Code        string // 10 digits, dots stripped
	Description string
}

// Store is the read surface over the reference catalogs plus run persistence.
type Store interface {
	// SearchPrefix returns rows from the given catalog whose code starts
	// with prefix (case-insensitive, dots ignored), up to limit.
	SearchPrefix(ctx context.Context, source model.CatalogSource, prefix string, limit int) ([]Record, error)

	// SearchCommodity returns all commodity rows whose 10-digit code starts
	// with the given prefix (dots stripped before comparison).
	SearchCommodity(ctx context.Context, prefix string) ([]CommodityRecord, error)

	CreateRun(ctx context.Context, product string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, outcome *model.Outcome) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)

	Close() error
}

// Normalize strips dots and whitespace from a code for comparison.
func Normalize(code string) string {
	code = strings.ReplaceAll(code, ".", "")
	return strings.TrimSpace(code)
}
