package criteriahandler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"kpi/internal/domain/criteria"
	"kpi/internal/domain/scoring"
	"kpi/internal/transport/http/api"
	"kpi/internal/transport/http/middleware"
	"kpi/internal/transport/http/shared"
)

type RuleBook interface {
	ListGroups(ctx context.Context, applyDate time.Time) ([]criteria.Group, error)
	GetGroup(ctx context.Context, code string, applyDate time.Time) (criteria.Group, error)
	CreateGroup(ctx context.Context, g criteria.Group) (criteria.Group, error)
	UpdateGroup(ctx context.Context, code string, applyDate time.Time, g criteria.Group) error
	DeleteGroup(ctx context.Context, code string, applyDate time.Time) error
	ListCriteria(ctx context.Context, filter criteria.Filter) ([]criteria.Criterion, error)
	GetCriterion(ctx context.Context, code string, applyDate time.Time) (criteria.Criterion, error)
	CreateCriterion(ctx context.Context, c criteria.Criterion) (criteria.Criterion, error)
	UpdateCriterion(ctx context.Context, code string, applyDate time.Time, c criteria.Criterion) error
	DeleteCriterion(ctx context.Context, code string, applyDate time.Time) error
}

type Handler struct {
	Rules RuleBook
}

func NewHandler(rules RuleBook) *Handler {
	return &Handler{Rules: rules}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/criteria-groups", func(r chi.Router) {
		r.Get("/", h.handleListGroups)
		r.Get("/{code}/{applyDate}", h.handleGetGroup)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/", h.handleCreateGroup)
			r.Put("/{code}/{applyDate}", h.handleUpdateGroup)
			r.Delete("/{code}/{applyDate}", h.handleDeleteGroup)
		})
	})
	r.Route("/criteria", func(r chi.Router) {
		r.Get("/", h.handleListCriteria)
		r.Get("/{code}/{applyDate}", h.handleGetCriterion)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Post("/", h.handleCreateCriterion)
			r.Put("/{code}/{applyDate}", h.handleUpdateCriterion)
			r.Delete("/{code}/{applyDate}", h.handleDeleteCriterion)
		})
	})
}

type groupRequest struct {
	Code         string `json:"groupCode"`
	ApplyDate    string `json:"applyDate"`
	Name         string `json:"groupName"`
	ConditionSQL string `json:"conditionSql"`
}

type criterionRequest struct {
	Code           string          `json:"criteriaCode"`
	ApplyDate      string          `json:"applyDate"`
	GroupCode      string          `json:"groupCode"`
	Description    string          `json:"description"`
	EmployeeType   string          `json:"employeeType"`
	Threshold      decimal.Decimal `json:"threshold"`
	Weight         decimal.Decimal `json:"weight"`
	SeverityScore  decimal.Decimal `json:"severityScore"`
	CalculationSQL string          `json:"calculationSql"`
	Active         *bool           `json:"active"`
}

// key reads the {code}/{applyDate} path pair shared by both resources.
func key(v *shared.Validator, r *http.Request) (string, time.Time) {
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	v.Required("code", code, "is required")
	applyDate, _ := v.Period("applyDate", chi.URLParam(r, "applyDate"))
	return code, applyDate
}

func (h *Handler) handleListGroups(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	applyDate := v.OptionalPeriod("apply_date", r.URL.Query().Get("apply_date"))
	if v.Reject(w, reqID) {
		return
	}
	groups, err := h.Rules.ListGroups(r.Context(), applyDate)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	if groups == nil {
		groups = []criteria.Group{}
	}
	api.Success(w, groups, reqID)
}

func (h *Handler) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	code, applyDate := key(v, r)
	if v.Reject(w, reqID) {
		return
	}
	group, err := h.Rules.GetGroup(r.Context(), code, applyDate)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, group, reqID)
}

func (h *Handler) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload groupRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("groupCode", payload.Code, "is required")
	v.Required("groupName", payload.Name, "is required")
	applyDate, _ := v.Period("applyDate", payload.ApplyDate)
	if v.Reject(w, reqID) {
		return
	}

	group, err := h.Rules.CreateGroup(r.Context(), criteria.Group{
		Code:         payload.Code,
		ApplyDate:    applyDate,
		Name:         payload.Name,
		ConditionSQL: strings.TrimSpace(payload.ConditionSQL),
	})
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Created(w, group, reqID)
}

func (h *Handler) handleUpdateGroup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload groupRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	code, applyDate := key(v, r)
	v.Required("groupName", payload.Name, "is required")
	if v.Reject(w, reqID) {
		return
	}

	if err := h.Rules.UpdateGroup(r.Context(), code, applyDate, criteria.Group{
		Name:         payload.Name,
		ConditionSQL: strings.TrimSpace(payload.ConditionSQL),
	}); err != nil {
		writeError(w, err, reqID)
		return
	}
	group, err := h.Rules.GetGroup(r.Context(), code, applyDate)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, group, reqID)
}

func (h *Handler) handleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	code, applyDate := key(v, r)
	if v.Reject(w, reqID) {
		return
	}
	if err := h.Rules.DeleteGroup(r.Context(), code, applyDate); err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) handleListCriteria(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	filter := criteria.Filter{
		ApplyDate: v.OptionalPeriod("apply_date", q.Get("apply_date")),
		GroupCode: strings.TrimSpace(q.Get("group_code")),
	}
	if v.Reject(w, reqID) {
		return
	}
	list, err := h.Rules.ListCriteria(r.Context(), filter)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	if list == nil {
		list = []criteria.Criterion{}
	}
	api.Success(w, list, reqID)
}

func (h *Handler) handleGetCriterion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	code, applyDate := key(v, r)
	if v.Reject(w, reqID) {
		return
	}
	c, err := h.Rules.GetCriterion(r.Context(), code, applyDate)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, c, reqID)
}

func (h *Handler) handleCreateCriterion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload criterionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	v.Required("criteriaCode", payload.Code, "is required")
	applyDate, _ := v.Period("applyDate", payload.ApplyDate)
	c := validateCriterion(v, payload)
	if v.Reject(w, reqID) {
		return
	}
	c.Code = payload.Code
	c.ApplyDate = applyDate

	created, err := h.Rules.CreateCriterion(r.Context(), c)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdateCriterion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	var payload criterionRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	v := shared.NewValidator()
	code, applyDate := key(v, r)
	c := validateCriterion(v, payload)
	if v.Reject(w, reqID) {
		return
	}

	if err := h.Rules.UpdateCriterion(r.Context(), code, applyDate, c); err != nil {
		writeError(w, err, reqID)
		return
	}
	updated, err := h.Rules.GetCriterion(r.Context(), code, applyDate)
	if err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, updated, reqID)
}

func (h *Handler) handleDeleteCriterion(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	v := shared.NewValidator()
	code, applyDate := key(v, r)
	if v.Reject(w, reqID) {
		return
	}
	if err := h.Rules.DeleteCriterion(r.Context(), code, applyDate); err != nil {
		writeError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func validateCriterion(v *shared.Validator, payload criterionRequest) criteria.Criterion {
	v.Required("groupCode", payload.GroupCode, "is required")
	v.Required("calculationSql", payload.CalculationSQL, "is required")
	v.Fraction("weight", payload.Weight)
	employeeType := strings.TrimSpace(payload.EmployeeType)
	if employeeType == "" {
		employeeType = "All"
	} else {
		employeeType = v.Enum("employeeType", employeeType, append([]string{"All"}, scoring.Roles...), "must be All or one of Sale, KTV, Leader, Newbie")
	}
	c := criteria.Criterion{
		GroupCode:      strings.TrimSpace(payload.GroupCode),
		Description:    strings.TrimSpace(payload.Description),
		EmployeeType:   employeeType,
		Threshold:      payload.Threshold,
		Weight:         payload.Weight,
		SeverityScore:  payload.SeverityScore,
		CalculationSQL: strings.TrimSpace(payload.CalculationSQL),
		Active:         true,
	}
	if payload.Active != nil {
		c.Active = *payload.Active
	}
	return c
}

func writeError(w http.ResponseWriter, err error, reqID string) {
	switch {
	case errors.Is(err, criteria.ErrGroupNotFound):
		api.Fail(w, http.StatusNotFound, "group_not_found", err.Error(), reqID)
	case errors.Is(err, criteria.ErrCriterionNotFound):
		api.Fail(w, http.StatusNotFound, "criterion_not_found", err.Error(), reqID)
	case errors.Is(err, criteria.ErrGroupExists):
		api.Fail(w, http.StatusConflict, "group_exists", err.Error(), reqID)
	case errors.Is(err, criteria.ErrCriterionExists):
		api.Fail(w, http.StatusConflict, "criterion_exists", err.Error(), reqID)
	case errors.Is(err, criteria.ErrGroupInUse):
		api.Fail(w, http.StatusConflict, "group_in_use", err.Error(), reqID)
	case errors.Is(err, criteria.ErrCriterionGroupMissing), errors.Is(err, criteria.ErrInvalidWeight):
		api.Fail(w, http.StatusBadRequest, "validation_error", err.Error(), reqID)
	default:
		slog.Error("criteria request failed", "err", err, "requestId", reqID)
		api.Fail(w, http.StatusInternalServerError, "criteria_failed", "criteria request failed", reqID)
	}
}
