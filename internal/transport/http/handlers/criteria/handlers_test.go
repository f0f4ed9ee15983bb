package criteriahandler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kpi/internal/domain/auth"
	"kpi/internal/domain/criteria"
	"kpi/internal/transport/http/middleware"
)

type fakeRules struct {
	groups        map[string]criteria.Group
	criteria      map[string]criteria.Criterion
	lastFilter    criteria.Filter
	deleteGroupFn func() error
}

func newFakeRules() *fakeRules {
	jan := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	return &fakeRules{
		groups:   map[string]criteria.Group{"CX": {Code: "CX", ApplyDate: jan, Name: "Tiêu chí CX"}},
		criteria: map[string]criteria.Criterion{},
	}
}

func (f *fakeRules) ListGroups(context.Context, time.Time) ([]criteria.Group, error) { return nil, nil }

func (f *fakeRules) GetGroup(_ context.Context, code string, _ time.Time) (criteria.Group, error) {
	g, ok := f.groups[code]
	if !ok {
		return criteria.Group{}, criteria.ErrGroupNotFound
	}
	return g, nil
}

func (f *fakeRules) CreateGroup(_ context.Context, g criteria.Group) (criteria.Group, error) {
	if _, ok := f.groups[g.Code]; ok {
		return criteria.Group{}, criteria.ErrGroupExists
	}
	f.groups[g.Code] = g
	return g, nil
}

func (f *fakeRules) UpdateGroup(_ context.Context, code string, _ time.Time, g criteria.Group) error {
	existing, ok := f.groups[code]
	if !ok {
		return criteria.ErrGroupNotFound
	}
	existing.Name = g.Name
	f.groups[code] = existing
	return nil
}

func (f *fakeRules) DeleteGroup(context.Context, string, time.Time) error {
	if f.deleteGroupFn != nil {
		return f.deleteGroupFn()
	}
	return nil
}

func (f *fakeRules) ListCriteria(_ context.Context, filter criteria.Filter) ([]criteria.Criterion, error) {
	f.lastFilter = filter
	return nil, nil
}

func (f *fakeRules) GetCriterion(_ context.Context, code string, _ time.Time) (criteria.Criterion, error) {
	c, ok := f.criteria[code]
	if !ok {
		return criteria.Criterion{}, criteria.ErrCriterionNotFound
	}
	return c, nil
}

func (f *fakeRules) CreateCriterion(_ context.Context, c criteria.Criterion) (criteria.Criterion, error) {
	if _, ok := f.groups[c.GroupCode]; !ok {
		return criteria.Criterion{}, criteria.ErrCriterionGroupMissing
	}
	f.criteria[c.Code] = c
	return c, nil
}

func (f *fakeRules) UpdateCriterion(_ context.Context, code string, _ time.Time, c criteria.Criterion) error {
	if _, ok := f.criteria[code]; !ok {
		return criteria.ErrCriterionNotFound
	}
	c.Code = code
	f.criteria[code] = c
	return nil
}

func (f *fakeRules) DeleteCriterion(context.Context, string, time.Time) error { return nil }

func do(rules RuleBook, method, target, body string, admin bool) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	NewHandler(rules).RegisterRoutes(r)
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if admin {
		req = req.WithContext(middleware.WithAdmin(req.Context(), &auth.Claims{Role: auth.RoleAdmin}))
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestGroupEndpoints(t *testing.T) {
	rules := newFakeRules()

	assert.Equal(t, http.StatusOK, do(rules, http.MethodGet, "/criteria-groups/CX/2026-01-01", "", false).Code)
	assert.Equal(t, http.StatusNotFound, do(rules, http.MethodGet, "/criteria-groups/ZZ/2026-01-01", "", false).Code)
	assert.Equal(t, http.StatusBadRequest, do(rules, http.MethodGet, "/criteria-groups/CX/not-a-date", "", false).Code)

	body := `{"groupCode":"HCM","applyDate":"2026-01-20","groupName":"Khu vực HCM","conditionSql":"cel:area == \"HCM\""}`
	assert.Equal(t, http.StatusUnauthorized, do(rules, http.MethodPost, "/criteria-groups", body, false).Code)
	require.Equal(t, http.StatusCreated, do(rules, http.MethodPost, "/criteria-groups", body, true).Code)
	assert.Equal(t, 1, rules.groups["HCM"].ApplyDate.Day())
	assert.Equal(t, http.StatusConflict, do(rules, http.MethodPost, "/criteria-groups", body, true).Code)
	assert.Equal(t, http.StatusBadRequest, do(rules, http.MethodPost, "/criteria-groups", `{"groupCode":"X"}`, true).Code)

	rec := do(rules, http.MethodPut, "/criteria-groups/CX/2026-01-01", `{"groupName":"Renamed"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Renamed", rules.groups["CX"].Name)

	rules.deleteGroupFn = func() error { return criteria.ErrGroupInUse }
	assert.Equal(t, http.StatusConflict, do(rules, http.MethodDelete, "/criteria-groups/CX/2026-01-01", "", true).Code)
}

func TestCriterionEndpoints(t *testing.T) {
	rules := newFakeRules()

	tests := []struct {
		name string
		body string
		code int
	}{
		{name: "weight above one", body: `{"criteriaCode":"CX1","applyDate":"2026-01-01","groupCode":"CX","weight":1.5,"calculationSql":"SELECT 1"}`, code: http.StatusBadRequest},
		{name: "missing expression", body: `{"criteriaCode":"CX1","applyDate":"2026-01-01","groupCode":"CX","weight":0.1}`, code: http.StatusBadRequest},
		{name: "bad employee type", body: `{"criteriaCode":"CX1","applyDate":"2026-01-01","groupCode":"CX","weight":0.1,"calculationSql":"SELECT 1","employeeType":"Boss"}`, code: http.StatusBadRequest},
		{name: "unknown group", body: `{"criteriaCode":"CX1","applyDate":"2026-01-01","groupCode":"NOPE","weight":0.1,"calculationSql":"SELECT 1"}`, code: http.StatusBadRequest},
		{name: "ok", body: `{"criteriaCode":"CX1","applyDate":"2026-01-01","groupCode":"CX","weight":"0.1","threshold":0.9,"calculationSql":"SELECT 0.95 AS value","employeeType":"ktv"}`, code: http.StatusCreated},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(rules, http.MethodPost, "/criteria", tc.body, true)
			assert.Equal(t, tc.code, rec.Code, rec.Body.String())
		})
	}

	created := rules.criteria["CX1"]
	assert.Equal(t, "KTV", created.EmployeeType)
	assert.Equal(t, "0.1", created.Weight.String())
	assert.True(t, created.Active)

	rec := do(rules, http.MethodPut, "/criteria/CX1/2026-01-01", `{"groupCode":"CX","weight":0.2,"calculationSql":"SELECT 1","active":false}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, rules.criteria["CX1"].Active)
	assert.Equal(t, "All", rules.criteria["CX1"].EmployeeType)

	assert.Equal(t, http.StatusNotFound, do(rules, http.MethodPut, "/criteria/ZZ9/2026-01-01", `{"groupCode":"CX","weight":0.2,"calculationSql":"SELECT 1"}`, true).Code)

	rec = do(rules, http.MethodGet, "/criteria?apply_date=2026-01&group_code=CX", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "CX", rules.lastFilter.GroupCode)
	assert.Equal(t, 1, rules.lastFilter.ApplyDate.Day())
}
