package jobshandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi/internal/domain/auth"
	"kpi/internal/platform/jobs"
	"kpi/internal/transport/http/middleware"
)

type fakeRunner struct {
	started []time.Time
	ran     []time.Time
	result  jobs.PeriodResult
	runErr  error
	err     error
}

func (f *fakeRunner) Run(_ context.Context, period time.Time) (int64, jobs.PeriodResult, error) {
	if f.err != nil {
		return 0, jobs.PeriodResult{}, f.err
	}
	f.ran = append(f.ran, period)
	return int64(len(f.ran)), f.result, f.runErr
}

func (f *fakeRunner) Start(_ context.Context, period time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.started = append(f.started, period)
	return int64(len(f.started)), nil
}

func (f *fakeRunner) Get(_ context.Context, id int64) (jobs.Run, error) {
	if id > int64(len(f.started)) {
		return jobs.Run{}, jobs.ErrNotFound
	}
	return jobs.Run{ID: id, Type: jobs.JobPeriodScoring, Status: jobs.StatusRunning}, nil
}

func serve(runner PeriodRunner, method, target, body string, admin bool) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(runner).RegisterRoutes(r)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if admin {
		req = req.WithContext(middleware.WithAdmin(req.Context(), &auth.Claims{Role: auth.RoleAdmin}))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestStartPeriodScoring(t *testing.T) {
	runner := &fakeRunner{}
	assert.Equal(t, http.StatusUnauthorized, serve(runner, http.MethodPost, "/jobs/period-scoring", `{"applyDate":"2026-01-01"}`, false).Code)
	assert.Equal(t, http.StatusBadRequest, serve(runner, http.MethodPost, "/jobs/period-scoring", `{"applyDate":"soon"}`, true).Code)

	rec := serve(runner, http.MethodPost, "/jobs/period-scoring", `{"applyDate":"2026-02-14"}`, true)
	assert.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	assert.Len(t, runner.started, 1)
	assert.Equal(t, 1, runner.started[0].Day())

	full := &fakeRunner{err: jobs.ErrQueueFull}
	assert.Equal(t, http.StatusServiceUnavailable, serve(full, http.MethodPost, "/jobs/period-scoring", `{"applyDate":"2026-02-01"}`, true).Code)
}

func TestGetRun(t *testing.T) {
	runner := &fakeRunner{started: []time.Time{time.Now()}}
	assert.Equal(t, http.StatusOK, serve(runner, http.MethodGet, "/jobs/1", "", true).Code)
	assert.Equal(t, http.StatusNotFound, serve(runner, http.MethodGet, "/jobs/5", "", true).Code)
	assert.Equal(t, http.StatusBadRequest, serve(runner, http.MethodGet, "/jobs/x", "", true).Code)
}

func TestRunPeriodScoringWaits(t *testing.T) {
	runner := &fakeRunner{result: jobs.PeriodResult{ApplyDate: "2026-02-01", Employees: 2, Scored: 2}}
	rec := serve(runner, http.MethodPost, "/jobs/period-scoring?wait=true", `{"applyDate":"2026-02-14"}`, true)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Empty(t, runner.started)
	require.Len(t, runner.ran, 1)
	assert.Equal(t, 1, runner.ran[0].Day())

	var body struct {
		Data struct {
			RunID  int64             `json:"runId"`
			Status string            `json:"status"`
			Result jobs.PeriodResult `json:"result"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Data.RunID)
	assert.Equal(t, jobs.StatusCompleted, body.Data.Status)
	assert.Equal(t, 2, body.Data.Result.Scored)
}

func TestRunPeriodScoringReportsFailures(t *testing.T) {
	runner := &fakeRunner{
		result: jobs.PeriodResult{ApplyDate: "2026-02-01", Employees: 2, Scored: 1, Failed: []jobs.PeriodFailure{{EmployeeID: 2, EmployeeCode: "KTV002", Error: "boom"}}},
		runErr: errors.New("1 of 2 employees failed"),
	}
	rec := serve(runner, http.MethodPost, "/jobs/period-scoring?wait=true", `{"applyDate":"2026-02-01"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"status":"failed"`)
	assert.Contains(t, rec.Body.String(), "KTV002")

	broken := &fakeRunner{err: errors.New("db down")}
	rec = serve(broken, http.MethodPost, "/jobs/period-scoring?wait=true", `{"applyDate":"2026-02-01"}`, true)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
