package jobshandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"kpi/internal/platform/jobs"
	"kpi/internal/requestctx"
	"kpi/internal/transport/http/api"
	"kpi/internal/transport/http/middleware"
	"kpi/internal/transport/http/shared"
)

type PeriodRunner interface {
	Start(ctx context.Context, period time.Time) (int64, error)
	Run(ctx context.Context, period time.Time) (int64, jobs.PeriodResult, error)
	Get(ctx context.Context, id int64) (jobs.Run, error)
}

type Handler struct {
	Runner PeriodRunner
}

func NewHandler(runner PeriodRunner) *Handler {
	return &Handler{Runner: runner}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/jobs", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Post("/period-scoring", h.handleStartPeriodScoring)
		r.Get("/{runID}", h.handleGetRun)
	})
}

type periodScoringRequest struct {
	ApplyDate string `json:"applyDate"`
}

func (h *Handler) handleStartPeriodScoring(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload periodScoringRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	period, _ := v.Period("applyDate", payload.ApplyDate)
	if v.Reject(w, reqID) {
		return
	}

	if r.URL.Query().Get("wait") == "true" {
		h.runPeriodScoring(w, r, period)
		return
	}

	id, err := h.Runner.Start(r.Context(), period)
	if err != nil {
		if errors.Is(err, jobs.ErrQueueFull) {
			api.Fail(w, http.StatusServiceUnavailable, "queue_full", "job queue is full, retry later", reqID)
			return
		}
		requestctx.Logger(r.Context()).Error("period scoring enqueue failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_failed", "failed to start job", reqID)
		return
	}
	api.WriteJSON(w, http.StatusAccepted, api.Envelope{
		Success:   true,
		Data:      map[string]any{"runId": id, "status": jobs.StatusQueued},
		RequestID: reqID,
	})
}

// runPeriodScoring scores the period before responding. Per-employee
// failures still yield 200 with status "failed" and the failure list.
func (h *Handler) runPeriodScoring(w http.ResponseWriter, r *http.Request, period time.Time) {
	reqID := middleware.GetRequestID(r.Context())
	id, result, err := h.Runner.Run(r.Context(), period)
	if id == 0 {
		requestctx.Logger(r.Context()).Error("period scoring run failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "job_failed", "failed to run job", reqID)
		return
	}
	status := jobs.StatusCompleted
	if err != nil {
		status = jobs.StatusFailed
		requestctx.Logger(r.Context()).Warn("period scoring finished with failures", "runId", id, "err", err)
	}
	api.Success(w, map[string]any{"runId": id, "status": status, "result": result}, reqID)
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	id, _ := v.PositiveID("runID", chi.URLParam(r, "runID"))
	if v.Reject(w, reqID) {
		return
	}
	run, err := h.Runner.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			api.Fail(w, http.StatusNotFound, "job_not_found", "job run not found", reqID)
			return
		}
		requestctx.Logger(r.Context()).Error("job run lookup failed", "err", err, "runId", id)
		api.Fail(w, http.StatusInternalServerError, "job_failed", "failed to load job run", reqID)
		return
	}
	api.Success(w, run, reqID)
}
