package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/kommundata/deso-cli/internal/model"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// ClassificationFilter specifies criteria for listing classified areas.
// An empty RunID selects the most recent classification per (area, year).
type ClassificationFilter struct {
	RunID    string         `json:"run_id,omitempty"`
	Year     int            `json:"year,omitempty"`
	AreaType model.AreaType `json:"area_type,omitempty"`
	Kommun   string         `json:"kommun,omitempty"`
	Limit    int            `json:"limit,omitempty"`
	Offset   int            `json:"offset,omitempty"`
}

// Store defines the persistence interface for analysis runs and their
// classified areas.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, years []int, mode string) (*model.Run, error)
	CompleteRun(ctx context.Context, runID string, areas int) error
	FailRun(ctx context.Context, runID string, cause error) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Classifications
	SaveClassifications(ctx context.Context, runID string, records []model.ClassifiedRecord) error
	ListClassifications(ctx context.Context, filter ClassificationFilter) ([]model.ClassifiedRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open creates a Store for the given driver ("sqlite" or "postgres").
func Open(ctx context.Context, driver, dsn string, poolCfg *PoolConfig) (Store, error) {
	switch driver {
	case "sqlite":
		return NewSQLite(dsn)
	case "postgres":
		return NewPostgres(ctx, dsn, poolCfg)
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
