package scoringhandler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"kpi/internal/domain/scoring"
	"kpi/internal/requestctx"
	"kpi/internal/transport/http/api"
	"kpi/internal/transport/http/middleware"
	"kpi/internal/transport/http/shared"
)

type Engine interface {
	Detail(ctx context.Context, employeeID int64, period time.Time) ([]scoring.DetailRow, error)
	Total(ctx context.Context, employeeID int64, period time.Time) (scoring.TotalResult, error)
	GroupCondition(ctx context.Context, groupCode string, employeeID int64, period time.Time) (scoring.GroupConditionResult, error)
	Summaries(ctx context.Context, period time.Time, filter scoring.SummaryFilter) ([]scoring.Summary, error)
}

type Handler struct {
	Engine Engine
}

func NewHandler(engine Engine) *Handler {
	return &Handler{Engine: engine}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/scoring", func(r chi.Router) {
		r.Get("/detail", h.handleDetail)
		r.Get("/group-condition", h.handleGroupCondition)
		r.Get("/summaries", h.handleSummaries)
		r.With(middleware.RequireAdmin).Post("/total", h.handleTotal)
	})
}

func (h *Handler) handleDetail(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	employeeID, _ := v.PositiveID("employee_id", r.URL.Query().Get("employee_id"))
	period, _ := v.Period("apply_date", r.URL.Query().Get("apply_date"))
	if v.Reject(w, reqID) {
		return
	}

	rows, err := h.Engine.Detail(r.Context(), employeeID, period)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, rows, reqID)
}

type totalRequest struct {
	EmployeeID int64  `json:"employeeId"`
	ApplyDate  string `json:"applyDate"`
}

type totalResponse struct {
	SummaryID           int64   `json:"summaryId"`
	TotalScore          float64 `json:"totalScore"`
	ScoredCriteriaCount int     `json:"scoredCriteriaCount"`
	Message             string  `json:"message"`
}

func (h *Handler) handleTotal(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload totalRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}

	v := shared.NewValidator()
	if payload.EmployeeID <= 0 {
		v.Add("employeeId", "must be a positive integer")
	}
	period, _ := v.Period("applyDate", payload.ApplyDate)
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Engine.Total(r.Context(), payload.EmployeeID, period)
	if err != nil {
		if pe, ok := scoring.IsPersistError(err); ok {
			rows := make([]map[string]string, 0, len(pe.Rows))
			for _, row := range pe.Rows {
				rows = append(rows, map[string]string{"criteriaCode": row.CriteriaCode, "error": row.Err.Error()})
			}
			details := map[string]any{"summaryId": result.SummaryID, "rows": rows}
			if pe.Purge != nil {
				details["purge"] = pe.Purge.Error()
			}
			api.FailWithDetails(w, http.StatusInternalServerError, "score_persist_failed", "some score rows could not be saved", details, reqID)
			return
		}
		writeEngineError(w, r, err)
		return
	}

	total := result.TotalScore.InexactFloat64()
	api.Success(w, totalResponse{
		SummaryID:           result.SummaryID,
		TotalScore:          total,
		ScoredCriteriaCount: result.ScoredCriteriaCount,
		Message:             totalMessage(result),
	}, reqID)
}

func totalMessage(result scoring.TotalResult) string {
	if result.ScoredCriteriaCount == 0 {
		return "No active criteria applied; total score saved as 0."
	}
	return "Total score saved: " + result.TotalScore.StringFixed(3) + " from " + pluralCriteria(result.ScoredCriteriaCount) + "."
}

func pluralCriteria(n int) string {
	if n == 1 {
		return "1 criterion"
	}
	return strconv.Itoa(n) + " criteria"
}

func (h *Handler) handleGroupCondition(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	groupCode := strings.TrimSpace(q.Get("group_code"))
	v.Required("group_code", groupCode, "is required")
	employeeID, _ := v.PositiveID("employee_id", q.Get("employee_id"))
	period, _ := v.Period("apply_date", q.Get("apply_date"))
	if v.Reject(w, reqID) {
		return
	}

	res, err := h.Engine.GroupCondition(r.Context(), groupCode, employeeID, period)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	api.Success(w, res, reqID)
}

func (h *Handler) handleSummaries(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	period, _ := v.Period("apply_date", q.Get("apply_date"))
	filter := scoring.SummaryFilter{
		Role: v.Enum("role", q.Get("role"), scoring.Roles, "must be one of Sale, KTV, Leader, Newbie"),
		Area: v.Enum("area", q.Get("area"), scoring.Areas, "must be one of HCM, HN"),
	}
	if v.Reject(w, reqID) {
		return
	}

	rows, err := h.Engine.Summaries(r.Context(), period, filter)
	if err != nil {
		writeEngineError(w, r, err)
		return
	}
	if rows == nil {
		rows = []scoring.Summary{}
	}
	api.Success(w, rows, reqID)
}

func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())
	switch {
	case errors.Is(err, scoring.ErrInvalidEmployee), errors.Is(err, scoring.ErrInvalidPeriod):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	case errors.Is(err, scoring.ErrEmployeeNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
	default:
		requestctx.Logger(r.Context()).Error("scoring request failed", "err", err)
		api.Fail(w, http.StatusInternalServerError, "scoring_failed", "scoring failed", reqID)
	}
}
