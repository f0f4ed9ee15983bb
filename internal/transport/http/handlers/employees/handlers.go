package employeeshandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"kpi/internal/domain/employees"
	"kpi/internal/domain/scoring"
	"kpi/internal/transport/http/api"
	"kpi/internal/transport/http/middleware"
	"kpi/internal/transport/http/shared"
)

type Directory interface {
	List(ctx context.Context, filter employees.Filter) ([]employees.Employee, int, error)
	Get(ctx context.Context, id int64) (employees.Employee, error)
	Create(ctx context.Context, e employees.Employee) (employees.Employee, error)
	Update(ctx context.Context, id int64, e employees.Employee) (employees.Employee, error)
}

type Handler struct {
	Directory Directory
}

func NewHandler(directory Directory) *Handler {
	return &Handler{Directory: directory}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/employees", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{employeeID}", h.handleGet)
		r.With(middleware.RequireAdmin).Post("/", h.handleCreate)
		r.With(middleware.RequireAdmin).Put("/{employeeID}", h.handleUpdate)
	})
}

type employeeRequest struct {
	Code      string `json:"employeeCode"`
	ShortName string `json:"shortName"`
	Role      string `json:"role"`
	Team      string `json:"team"`
	Area      string `json:"area"`
	Active    *bool  `json:"active"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := employees.Filter{
		Role:       v.Enum("role", q.Get("role"), scoring.Roles, "must be one of Sale, KTV, Leader, Newbie"),
		Area:       v.Enum("area", q.Get("area"), scoring.Areas, "must be one of HCM, HN"),
		ActiveOnly: strings.EqualFold(q.Get("active"), "true"),
	}
	page := v.Page(q, 50, 500)
	if v.Reject(w, reqID) {
		return
	}
	filter.Limit = page.Limit
	filter.Offset = page.Offset

	rows, total, err := h.Directory.List(r.Context(), filter)
	if err != nil {
		slog.Error("list employees failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "employee_list_failed", "failed to list employees", reqID)
		return
	}
	if rows == nil {
		rows = []employees.Employee{}
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, rows, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	id, _ := v.PositiveID("employeeID", chi.URLParam(r, "employeeID"))
	if v.Reject(w, reqID) {
		return
	}
	emp, err := h.Directory.Get(r.Context(), id)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, emp, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("employeeCode", payload.Code, "is required")
	emp := validateEmployee(v, payload)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Directory.Create(r.Context(), emp)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	id, _ := v.PositiveID("employeeID", chi.URLParam(r, "employeeID"))
	emp := validateEmployee(v, payload)
	if v.Reject(w, reqID) {
		return
	}

	updated, err := h.Directory.Update(r.Context(), id, emp)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, updated, reqID)
}

func validateEmployee(v *shared.Validator, payload employeeRequest) employees.Employee {
	v.Required("shortName", payload.ShortName, "is required")
	v.Required("role", payload.Role, "is required")
	v.Required("area", payload.Area, "is required")
	emp := employees.Employee{
		Code:      payload.Code,
		ShortName: payload.ShortName,
		Team:      payload.Team,
		Role:      v.Enum("role", payload.Role, scoring.Roles, "must be one of Sale, KTV, Leader, Newbie"),
		Area:      v.Enum("area", payload.Area, scoring.Areas, "must be one of HCM, HN"),
		Active:    true,
	}
	if payload.Active != nil {
		emp.Active = *payload.Active
	}
	return emp
}

func writeError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, employees.ErrNotFound):
		api.Fail(w, http.StatusNotFound, "employee_not_found", "employee not found", reqID)
	case errors.Is(err, employees.ErrDuplicateCode):
		api.Fail(w, http.StatusConflict, "employee_code_exists", "employee code already exists", reqID)
	case errors.Is(err, employees.ErrInvalidEmployee):
		api.Fail(w, http.StatusBadRequest, "validation_error", "invalid employee", reqID)
	default:
		slog.Error("employee request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "employee_failed", "employee request failed", reqID)
	}
}
