package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/kommundata/deso-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

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
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	years      TEXT NOT NULL,
	mode       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	areas      INTEGER NOT NULL DEFAULT 0,
	error      TEXT,
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS classifications (
	run_id                           TEXT NOT NULL REFERENCES runs(id),
	deso                             TEXT NOT NULL,
	area_name                        TEXT NOT NULL DEFAULT '',
	year                             INTEGER NOT NULL,
	education_percentage             REAL NOT NULL,
	low_economic_standard_percentage REAL NOT NULL,
	unemployment_rate_percentage     REAL NOT NULL,
	socioeconomic_index              REAL NOT NULL,
	area_type                        INTEGER NOT NULL,
	area_type_description            TEXT NOT NULL,
	kommun                           TEXT NOT NULL DEFAULT '',
	lan                              TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, deso, year)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_classifications_year ON classifications(year);
CREATE INDEX IF NOT EXISTS idx_classifications_deso ON classifications(deso);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, years []int, mode string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	yearsJSON, err := json.Marshal(years)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal years")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, years, mode, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, string(yearsJSON), mode, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Years:     years,
		Mode:      mode,
		Status:    model.RunStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, areas int) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, areas = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), areas, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, years, mode, status, areas, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, years, mode, status, areas, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveClassifications(ctx context.Context, runID string, records []model.ClassifiedRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO classifications
		 (run_id, deso, area_name, year,
		  education_percentage, low_economic_standard_percentage, unemployment_rate_percentage,
		  socioeconomic_index, area_type, area_type_description, kommun, lan)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert classification")
	}
	defer stmt.Close()

	for _, r := range records {
		_, err := stmt.ExecContext(ctx,
			runID, r.AreaCode, r.AreaName, r.Year,
			r.EducationPct, r.LowEconomicStandardPct, r.UnemploymentPct,
			r.Index, int(r.AreaType), r.AreaTypeDescription, r.Municipality, r.County,
		)
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert classification %s/%d", r.AreaCode, r.Year)
		}
	}

	return eris.Wrap(tx.Commit(), "sqlite: commit classifications")
}

func (s *SQLiteStore) ListClassifications(ctx context.Context, filter ClassificationFilter) ([]model.ClassifiedRecord, error) {
	query := `SELECT deso, area_name, year,
	       education_percentage, low_economic_standard_percentage, unemployment_rate_percentage,
	       socioeconomic_index, area_type, area_type_description, kommun, lan
	  FROM classifications WHERE 1=1`
	var args []any

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	} else {
		// Latest run per (deso, year).
		query += ` AND run_id = (SELECT c2.run_id FROM classifications c2
		           JOIN runs ON runs.id = c2.run_id
		           WHERE c2.deso = classifications.deso AND c2.year = classifications.year
		           ORDER BY runs.created_at DESC LIMIT 1)`
	}
	if filter.Year != 0 {
		query += ` AND year = ?`
		args = append(args, filter.Year)
	}
	if filter.AreaType != 0 {
		query += ` AND area_type = ?`
		args = append(args, int(filter.AreaType))
	}
	if filter.Kommun != "" {
		query += ` AND kommun = ?`
		args = append(args, filter.Kommun)
	}
	query += ` ORDER BY year, deso`

	limit := filter.Limit
	if limit <= 0 {
		limit = 10000
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list classifications")
	}
	defer rows.Close()

	var records []model.ClassifiedRecord
	for rows.Next() {
		var r model.ClassifiedRecord
		var areaType int
		if err := rows.Scan(
			&r.AreaCode, &r.AreaName, &r.Year,
			&r.EducationPct, &r.LowEconomicStandardPct, &r.UnemploymentPct,
			&r.Index, &areaType, &r.AreaTypeDescription, &r.Municipality, &r.County,
		); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan classification")
		}
		r.AreaType = model.AreaType(areaType)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list classifications iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Errorf("%s not found: %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var yearsJSON string
	var errMsg sql.NullString

	err := row.Scan(&r.ID, &yearsJSON, &r.Mode, &r.Status, &r.Areas, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, eris.New("run not found")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}

	if err := json.Unmarshal([]byte(yearsJSON), &r.Years); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal years")
	}
	if errMsg.Valid {
		r.Error = errMsg.String
	}
	return &r, nil
}
