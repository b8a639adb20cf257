package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kommundata/deso-cli/internal/model"
	"github.com/kommundata/deso-cli/internal/store"
)

// fakeStore is an in-memory Store for handler tests.
type fakeStore struct {
	runs            []model.Run
	classifications []model.ClassifiedRecord
	lastFilter      store.ClassificationFilter
}

var _ store.Store = (*fakeStore)(nil)

func (f *fakeStore) CreateRun(ctx context.Context, years []int, mode string) (*model.Run, error) {
	r := model.Run{ID: "run-1", Years: years, Mode: mode, Status: model.RunStatusRunning, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	f.runs = append(f.runs, r)
	return &r, nil
}

func (f *fakeStore) CompleteRun(context.Context, string, int) error { return nil }
func (f *fakeStore) FailRun(context.Context, string, error) error  { return nil }

func (f *fakeStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	for _, r := range f.runs {
		if r.ID == runID {
			return &r, nil
		}
	}
	return nil, eris.Errorf("run not found: %s", runID)
}

func (f *fakeStore) ListRuns(ctx context.Context, filter store.RunFilter) ([]model.Run, error) {
	if filter.Status == "" {
		return f.runs, nil
	}
	var out []model.Run
	for _, r := range f.runs {
		if r.Status == filter.Status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeStore) SaveClassifications(ctx context.Context, runID string, records []model.ClassifiedRecord) error {
	f.classifications = append(f.classifications, records...)
	return nil
}

func (f *fakeStore) ListClassifications(ctx context.Context, filter store.ClassificationFilter) ([]model.ClassifiedRecord, error) {
	f.lastFilter = filter
	return f.classifications, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Close() error                  { return nil }

func TestRouter_Health(t *testing.T) {
	srv := httptest.NewServer(newRouter(&fakeStore{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_ListRuns(t *testing.T) {
	st := &fakeStore{}
	_, err := st.CreateRun(context.Background(), []int{2022}, "self")
	require.NoError(t, err)

	srv := httptest.NewServer(newRouter(st))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var runs []model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "run-1", runs[0].ID)
}

func TestRouter_ListRuns_EmptyIsArray(t *testing.T) {
	srv := httptest.NewServer(newRouter(&fakeStore{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/runs")
	require.NoError(t, err)
	defer resp.Body.Close()

	var runs []model.Run
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&runs))
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}

func TestRouter_GetRun_NotFound(t *testing.T) {
	srv := httptest.NewServer(newRouter(&fakeStore{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/runs/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRouter_ListClassifications_Filter(t *testing.T) {
	st := &fakeStore{}
	srv := httptest.NewServer(newRouter(st))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/classifications?year=2022&area_type=3&kommun=Stockholm&limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 2022, st.lastFilter.Year)
	assert.Equal(t, model.AreaTypeMixed, st.lastFilter.AreaType)
	assert.Equal(t, "Stockholm", st.lastFilter.Kommun)
	assert.Equal(t, 10, st.lastFilter.Limit)
}

func TestRouter_Metrics(t *testing.T) {
	srv := httptest.NewServer(newRouter(&fakeStore{}))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
