package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/kommundata/deso-cli/internal/db"
	"github.com/kommundata/deso-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_run":   `INSERT INTO runs (id, years, mode, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"complete_run": `UPDATE runs SET status = $1, areas = $2, updated_at = $3 WHERE id = $4`,
	"fail_run":     `UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
	"get_run":      `SELECT id, years, mode, status, areas, error, created_at, updated_at FROM runs WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need
// direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	years      JSONB NOT NULL,
	mode       TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'running',
	areas      INTEGER NOT NULL DEFAULT 0,
	error      TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS classifications (
	run_id                           TEXT NOT NULL REFERENCES runs(id),
	deso                             TEXT NOT NULL,
	area_name                        TEXT NOT NULL DEFAULT '',
	year                             INTEGER NOT NULL,
	education_percentage             DOUBLE PRECISION NOT NULL,
	low_economic_standard_percentage DOUBLE PRECISION NOT NULL,
	unemployment_rate_percentage     DOUBLE PRECISION NOT NULL,
	socioeconomic_index              DOUBLE PRECISION NOT NULL,
	area_type                        INTEGER NOT NULL,
	area_type_description            TEXT NOT NULL,
	kommun                           TEXT NOT NULL DEFAULT '',
	lan                              TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (run_id, deso, year)
);

CREATE TABLE IF NOT EXISTS classifications_latest (
	deso                             TEXT NOT NULL,
	area_name                        TEXT NOT NULL DEFAULT '',
	year                             INTEGER NOT NULL,
	education_percentage             DOUBLE PRECISION NOT NULL,
	low_economic_standard_percentage DOUBLE PRECISION NOT NULL,
	unemployment_rate_percentage     DOUBLE PRECISION NOT NULL,
	socioeconomic_index              DOUBLE PRECISION NOT NULL,
	area_type                        INTEGER NOT NULL,
	area_type_description            TEXT NOT NULL,
	kommun                           TEXT NOT NULL DEFAULT '',
	lan                              TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (deso, year)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_classifications_year ON classifications(year);
CREATE INDEX IF NOT EXISTS idx_classifications_deso ON classifications(deso);
CREATE INDEX IF NOT EXISTS idx_classifications_latest_year ON classifications_latest(year);
CREATE INDEX IF NOT EXISTS idx_classifications_latest_kommun ON classifications_latest(kommun);
`

// classificationColumns is the column order shared by the COPY insert
// and the latest-table upsert.
var classificationColumns = []string{
	"deso", "area_name", "year",
	"education_percentage", "low_economic_standard_percentage", "unemployment_rate_percentage",
	"socioeconomic_index", "area_type", "area_type_description", "kommun", "lan",
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, years []int, mode string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	yearsJSON, err := json.Marshal(years)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal years")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO runs (id, years, mode, status, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		id, yearsJSON, mode, string(model.RunStatusRunning), now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
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

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, areas int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, areas = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusComplete), areas, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, error = $2, updated_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), msg, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("run not found: %s", runID)
	}
	return nil
}

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	var r model.Run
	var yearsJSON []byte
	var errMsg *string

	err := s.pool.QueryRow(ctx,
		`SELECT id, years, mode, status, areas, error, created_at, updated_at FROM runs WHERE id = $1`,
		runID,
	).Scan(&r.ID, &yearsJSON, &r.Mode, &r.Status, &r.Areas, &errMsg, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Errorf("run not found: %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}

	if err := json.Unmarshal(yearsJSON, &r.Years); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal years")
	}
	if errMsg != nil {
		r.Error = *errMsg
	}
	return &r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT id, years, mode, status, areas, error, created_at, updated_at FROM runs WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		var r model.Run
		var yearsJSON []byte
		var errMsg *string

		if err := rows.Scan(&r.ID, &yearsJSON, &r.Mode, &r.Status, &r.Areas, &errMsg, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		if err := json.Unmarshal(yearsJSON, &r.Years); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal years")
		}
		if errMsg != nil {
			r.Error = *errMsg
		}
		runs = append(runs, r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) SaveClassifications(ctx context.Context, runID string, records []model.ClassifiedRecord) error {
	if len(records) == 0 {
		return nil
	}

	runRows := make([][]any, len(records))
	latestRows := make([][]any, len(records))
	for i, r := range records {
		row := []any{
			r.AreaCode, r.AreaName, r.Year,
			r.EducationPct, r.LowEconomicStandardPct, r.UnemploymentPct,
			r.Index, int(r.AreaType), r.AreaTypeDescription, r.Municipality, r.County,
		}
		runRows[i] = append([]any{runID}, row...)
		latestRows[i] = row
	}

	copyCols := append([]string{"run_id"}, classificationColumns...)
	if _, err := db.CopyFrom(ctx, s.pool, "classifications", copyCols, runRows); err != nil {
		return eris.Wrapf(err, "postgres: save classifications for run %s", runID)
	}

	_, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "classifications_latest",
		Columns:      classificationColumns,
		ConflictKeys: []string{"deso", "year"},
	}, latestRows)
	return eris.Wrapf(err, "postgres: upsert latest classifications for run %s", runID)
}

func (s *PostgresStore) ListClassifications(ctx context.Context, filter ClassificationFilter) ([]model.ClassifiedRecord, error) {
	table := "classifications_latest"
	if filter.RunID != "" {
		table = "classifications"
	}

	query := fmt.Sprintf(`SELECT deso, area_name, year,
	       education_percentage, low_economic_standard_percentage, unemployment_rate_percentage,
	       socioeconomic_index, area_type, area_type_description, kommun, lan
	  FROM %s WHERE true`, table)
	args := []any{}
	argIdx := 1

	if filter.RunID != "" {
		query += fmt.Sprintf(` AND run_id = $%d`, argIdx)
		args = append(args, filter.RunID)
		argIdx++
	}
	if filter.Year != 0 {
		query += fmt.Sprintf(` AND year = $%d`, argIdx)
		args = append(args, filter.Year)
		argIdx++
	}
	if filter.AreaType != 0 {
		query += fmt.Sprintf(` AND area_type = $%d`, argIdx)
		args = append(args, int(filter.AreaType))
		argIdx++
	}
	if filter.Kommun != "" {
		query += fmt.Sprintf(` AND kommun = $%d`, argIdx)
		args = append(args, filter.Kommun)
		argIdx++
	}
	query += ` ORDER BY year, deso`

	limit := filter.Limit
	if limit <= 0 {
		limit = 10000
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list classifications")
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
			return nil, eris.Wrap(err, "postgres: scan classification")
		}
		r.AreaType = model.AreaType(areaType)
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list classifications iterate")
}
