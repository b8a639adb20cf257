package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kommundata/deso-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := &PostgresStore{pool: mock}
	return s, mock
}

func TestPostgresStore_CreateRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO runs`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), "self", "running", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	run, err := s.CreateRun(context.Background(), []int{2022}, "self")
	require.NoError(t, err)
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	yearsJSON, _ := json.Marshal([]int{2022, 2023})
	mock.ExpectQuery(`SELECT id, years, mode, status, areas, error, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("run-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "years", "mode", "status", "areas", "error", "created_at", "updated_at"}).
			AddRow("run-1", yearsJSON, "self", model.RunStatusComplete, 5984, (*string)(nil), now, now))

	run, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, []int{2022, 2023}, run.Years)
	assert.Equal(t, model.RunStatusComplete, run.Status)
	assert.Equal(t, 5984, run.Areas)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT id, years, mode, status, areas, error, created_at, updated_at FROM runs WHERE id = \$1`).
		WithArgs("nonexistent-run").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRun(context.Background(), "nonexistent-run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CompleteRun_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1, areas = \$2`).
		WithArgs("complete", 10, pgxmock.AnyArg(), "nonexistent-run").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.CompleteRun(context.Background(), "nonexistent-run", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "run not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FailRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE runs SET status = \$1, error = \$2`).
		WithArgs("failed", "boom", pgxmock.AnyArg(), "run-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, s.FailRun(context.Background(), "run-1", errors.New("boom")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveClassifications(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	copyCols := append([]string{"run_id"}, classificationColumns...)
	mock.ExpectCopyFrom(pgx.Identifier{"classifications"}, copyCols).WillReturnResult(2)

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_tmp_upsert_classifications_latest"}, classificationColumns).WillReturnResult(2)
	mock.ExpectExec(`INSERT INTO "classifications_latest"`).WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()

	records := []model.ClassifiedRecord{
		testClassified("0114A0010", 2022, 15.0, model.AreaTypeGood),
		testClassified("0114A0020", 2022, 35.0, model.AreaTypeChallenges),
	}
	require.NoError(t, s.SaveClassifications(context.Background(), "run-1", records))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveClassifications_Empty(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	require.NoError(t, s.SaveClassifications(context.Background(), "run-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListClassifications_LatestTable(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"deso", "area_name", "year",
		"education_percentage", "low_economic_standard_percentage", "unemployment_rate_percentage",
		"socioeconomic_index", "area_type", "area_type_description", "kommun", "lan",
	}).AddRow("0114A0010", "Area", 2022, 14.0, 15.0, 16.0, 15.0, 4, "Områden med goda socioekonomiska förutsättningar", "Upplands Väsby", "Stockholms län")

	mock.ExpectQuery(`FROM classifications_latest`).
		WithArgs(2022, pgxmock.AnyArg()).
		WillReturnRows(rows)

	got, err := s.ListClassifications(context.Background(), ClassificationFilter{Year: 2022})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.AreaTypeGood, got[0].AreaType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListClassifications_ByRun(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"deso", "area_name", "year",
		"education_percentage", "low_economic_standard_percentage", "unemployment_rate_percentage",
		"socioeconomic_index", "area_type", "area_type_description", "kommun", "lan",
	})

	mock.ExpectQuery(`FROM classifications WHERE true AND run_id = \$1`).
		WithArgs("run-1", pgxmock.AnyArg()).
		WillReturnRows(rows)

	got, err := s.ListClassifications(context.Background(), ClassificationFilter{RunID: "run-1"})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRuns_StatusFilter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	now := time.Now().UTC()
	yearsJSON, _ := json.Marshal([]int{2022})
	rows := pgxmock.NewRows([]string{"id", "years", "mode", "status", "areas", "error", "created_at", "updated_at"}).
		AddRow("run-1", yearsJSON, "self", model.RunStatusComplete, 10, (*string)(nil), now, now)

	mock.ExpectQuery(`SELECT id, years, mode, status, areas, error, created_at, updated_at FROM runs`).
		WithArgs("complete", pgxmock.AnyArg()).
		WillReturnRows(rows)

	runs, err := s.ListRuns(context.Background(), RunFilter{Status: model.RunStatusComplete})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
