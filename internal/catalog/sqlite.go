package catalog

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/tariff-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS catalog_a (
	code           TEXT NOT NULL,
	formatted_code TEXT NOT NULL,
	description    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS catalog_b (
	code           TEXT NOT NULL,
	formatted_code TEXT NOT NULL,
	description    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS commodity_codes (
	code        TEXT NOT NULL,
	description TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	product    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	outcome    TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_catalog_a_code ON catalog_a(code);
CREATE INDEX IF NOT EXISTS idx_catalog_b_code ON catalog_b(code);
CREATE INDEX IF NOT EXISTS idx_commodity_code ON commodity_codes(code);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
`

// Migrate creates the catalog and run tables.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func tableFor(source model.CatalogSource) (string, error) {
	switch source {
	case model.SourcePrimary:
		return "catalog_a", nil
	case model.SourceSecondary:
		return "catalog_b", nil
	default:
		return "", eris.Errorf("sqlite: unknown catalog source %q", source)
	}
}

// SearchPrefix implements the case-insensitive starts-with search over one
// catalog. The prefix is compared against codes with dots stripped.
func (s *SQLiteStore) SearchPrefix(ctx context.Context, source model.CatalogSource, prefix string, limit int) ([]Record, error) {
	table, err := tableFor(source)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT code, formatted_code, description FROM `+table+`
		 WHERE REPLACE(UPPER(code), '.', '') LIKE UPPER(?) || '%'
		 ORDER BY code LIMIT ?`,
		Normalize(prefix), limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: search %s", table)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(&r.Code, &r.FormattedCode, &r.Description); err != nil {
			return nil, eris.Wrapf(err, "sqlite: scan %s", table)
		}
		records = append(records, r)
	}
	return records, eris.Wrapf(rows.Err(), "sqlite: iterate %s", table)
}

// SearchCommodity returns commodity rows whose code starts with prefix.
func (s *SQLiteStore) SearchCommodity(ctx context.Context, prefix string) ([]CommodityRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT code, description FROM commodity_codes
		 WHERE REPLACE(UPPER(code), '.', '') LIKE UPPER(?) || '%'
		 ORDER BY code`,
		Normalize(prefix),
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: search commodity codes")
	}
	defer rows.Close()

	var records []CommodityRecord
	for rows.Next() {
		var r CommodityRecord
		if err := rows.Scan(&r.Code, &r.Description); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan commodity code")
		}
		r.Code = Normalize(r.Code)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: iterate commodity codes")
}

// CreateRun persists a new classification run record.
func (s *SQLiteStore) CreateRun(ctx context.Context, product string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, product, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, product, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Product:   product,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompleteRun stores the final outcome of a run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, status model.RunStatus, outcome *model.Outcome) error {
	var outcomeJSON sql.NullString
	if outcome != nil {
		b, err := json.Marshal(outcome)
		if err != nil {
			return eris.Wrap(err, "sqlite: marshal outcome")
		}
		outcomeJSON = sql.NullString{String: string(b), Valid: true}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, outcome = ?, updated_at = ? WHERE id = ?`,
		string(status), outcomeJSON, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

// GetRun loads a run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, product, status, outcome, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)

	var r model.Run
	var outcomeJSON sql.NullString
	err := row.Scan(&r.ID, &r.Product, &r.Status, &outcomeJSON, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if outcomeJSON.Valid {
		r.Outcome = &model.Outcome{}
		if err := json.Unmarshal([]byte(outcomeJSON.String), r.Outcome); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal outcome")
		}
	}
	return &r, nil
}

// LoadCatalogCSV imports a reference catalog from a CSV file with columns
// code, formatted_code, description. A header row is detected and skipped.
// Existing rows for the catalog are replaced.
func (s *SQLiteStore) LoadCatalogCSV(ctx context.Context, source model.CatalogSource, path string) (int, error) {
	table, err := tableFor(source)
	if err != nil {
		return 0, err
	}
	return s.loadCSV(ctx, table, path, 3, func(stmt *sql.Stmt, rec []string) error {
		_, err := stmt.ExecContext(ctx, rec[0], rec[1], rec[2])
		return err
	})
}

// LoadCommodityCSV imports the commodity table from a CSV file with columns
// code, description.
func (s *SQLiteStore) LoadCommodityCSV(ctx context.Context, path string) (int, error) {
	return s.loadCSV(ctx, "commodity_codes", path, 2, func(stmt *sql.Stmt, rec []string) error {
		_, err := stmt.ExecContext(ctx, rec[0], rec[1])
		return err
	})
}

func (s *SQLiteStore) loadCSV(ctx context.Context, table, path string, minCols int, insert func(*sql.Stmt, []string) error) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: open csv %s", path)
	}
	defer f.Close()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin load")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
		return 0, eris.Wrapf(err, "sqlite: clear %s", table)
	}

	placeholders := "?, ?"
	cols := "code, description"
	if minCols == 3 {
		placeholders = "?, ?, ?"
		cols = "code, formatted_code, description"
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO `+table+` (`+cols+`) VALUES (`+placeholders+`)`)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert %s", table)
	}
	defer stmt.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	count := 0
	first := true
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: read csv %s", path)
		}
		if len(rec) < minCols {
			continue
		}
		// Header row: first record with a non-numeric code column.
		if first {
			first = false
			if Normalize(rec[0]) != "" && !isDigits(Normalize(rec[0])) {
				continue
			}
		}
		if err := insert(stmt, rec); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert into %s", table)
		}
		count++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit load %s", table)
	}
	return count, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
