package scoring

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

var period = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

type summaryRow struct {
	id         int64
	employeeID int64
	period     time.Time
	overall    decimal.Decimal
	finalized  bool
	rank       *int
}

type scoreRow struct {
	raw        decimal.Decimal
	calculated decimal.Decimal
}

type memStore struct {
	mu        sync.Mutex
	employees map[int64]*Employee
	groups    map[string]CriteriaGroup
	criteria  []Criterion
	summaries map[int64]*summaryRow
	scores    map[int64]map[string]scoreRow
	nextID    int64

	failSummary error
	failScore   map[string]error
	failPurge   error
	failRank    error
	writes      int
}

func newMemStore() *memStore {
	return &memStore{
		employees: make(map[int64]*Employee),
		groups:    make(map[string]CriteriaGroup),
		summaries: make(map[int64]*summaryRow),
		scores:    make(map[int64]map[string]scoreRow),
		failScore: make(map[string]error),
	}
}

func (m *memStore) addEmployee(id int64, code, role, area string) {
	m.employees[id] = &Employee{ID: id, Code: code, Name: code, Role: role, Area: area, Active: true}
}

func (m *memStore) addGroup(code, condition string) {
	m.groups[code+"@"+FormatPeriod(period)] = CriteriaGroup{Code: code, ApplyDate: period, Name: "Group " + code, ConditionSQL: condition}
}

func (m *memStore) addCriterion(code, group, weight, expr string) {
	m.criteria = append(m.criteria, Criterion{
		Code:           code,
		ApplyDate:      period,
		GroupCode:      group,
		GroupName:      "Group " + group,
		EmployeeType:   EmployeeTypeAll,
		Threshold:      decimal.RequireFromString("0.9"),
		Weight:         decimal.RequireFromString(weight),
		SeverityScore:  decimal.NewFromInt(5),
		CalculationSQL: expr,
		Active:         true,
	})
}

func (m *memStore) ListActiveCriteria(_ context.Context, p time.Time) ([]Criterion, error) {
	var out []Criterion
	for _, c := range m.criteria {
		if c.Active && c.ApplyDate.Equal(p) {
			if g, ok := m.groups[c.GroupCode+"@"+FormatPeriod(p)]; ok {
				c.GroupName = g.Name
			}
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) GetGroup(_ context.Context, code string, p time.Time) (*CriteriaGroup, error) {
	g, ok := m.groups[code+"@"+FormatPeriod(p)]
	if !ok {
		return nil, nil
	}
	return &g, nil
}

func (m *memStore) GetCriterion(_ context.Context, code string, p time.Time) (*Criterion, error) {
	for _, c := range m.criteria {
		if c.Code == code && c.ApplyDate.Equal(p) && c.Active {
			return &c, nil
		}
	}
	return nil, nil
}

func (m *memStore) GetEmployee(_ context.Context, id int64) (*Employee, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	emp, ok := m.employees[id]
	if !ok {
		return nil, nil
	}
	cp := *emp
	return &cp, nil
}

func (m *memStore) UpsertSummary(_ context.Context, employeeID int64, p time.Time, total decimal.Decimal) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSummary != nil {
		return 0, m.failSummary
	}
	m.writes++
	for _, s := range m.summaries {
		if s.employeeID == employeeID && s.period.Equal(p) {
			s.overall = total
			s.finalized = false
			return s.id, nil
		}
	}
	m.nextID++
	m.summaries[m.nextID] = &summaryRow{id: m.nextID, employeeID: employeeID, period: p, overall: total}
	return m.nextID, nil
}

func (m *memStore) UpsertScore(_ context.Context, summaryID int64, code string, _ time.Time, raw, calculated decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failScore[code]; err != nil {
		return err
	}
	m.writes++
	if m.scores[summaryID] == nil {
		m.scores[summaryID] = make(map[string]scoreRow)
	}
	m.scores[summaryID][code] = scoreRow{raw: raw, calculated: calculated}
	return nil
}

func (m *memStore) PurgeStaleScores(_ context.Context, summaryID int64, _ time.Time, keep []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPurge != nil {
		return 0, m.failPurge
	}
	kept := make(map[string]bool, len(keep))
	for _, k := range keep {
		kept[k] = true
	}
	var n int64
	for code := range m.scores[summaryID] {
		if !kept[code] {
			delete(m.scores[summaryID], code)
			n++
		}
	}
	return n, nil
}

func (m *memStore) ListSummaries(_ context.Context, p time.Time, filter SummaryFilter) ([]Summary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Summary
	for _, s := range m.summaries {
		emp := m.employees[s.employeeID]
		if !s.period.Equal(p) || (filter.Role != "" && emp.Role != filter.Role) || (filter.Area != "" && emp.Area != filter.Area) {
			continue
		}
		out = append(out, Summary{ID: s.id, EmployeeID: s.employeeID, EmployeeCode: emp.Code, Role: emp.Role, Area: emp.Area,
			ApplyDate: s.period, OverallScore: s.overall, IsFinalized: s.finalized, Rank: s.rank})
	}
	return out, nil
}

func (m *memStore) RankPeriod(_ context.Context, p time.Time, fn func([]RankEntry) []RankAssignment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRank != nil {
		return 0, m.failRank
	}
	var entries []RankEntry
	for _, s := range m.summaries {
		if !s.period.Equal(p) {
			continue
		}
		emp := m.employees[s.employeeID]
		entries = append(entries, RankEntry{SummaryID: s.id, EmployeeID: s.employeeID, EmployeeCode: emp.Code,
			Role: emp.Role, Area: emp.Area, OverallScore: s.overall})
	}
	assignments := fn(entries)
	for _, a := range assignments {
		rank := a.Rank
		m.summaries[a.SummaryID].rank = &rank
	}
	return len(assignments), nil
}

func (m *memStore) summaryFor(employeeID int64) *summaryRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.summaries {
		if s.employeeID == employeeID && s.period.Equal(period) {
			cp := *s
			return &cp
		}
	}
	return nil
}

func (m *memStore) scoresFor(summaryID int64) map[string]scoreRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]scoreRow, len(m.scores[summaryID]))
	for k, v := range m.scores[summaryID] {
		out[k] = v
	}
	return out
}

// fakeEngine resolves expressions by their literal text.
type fakeEngine struct {
	conditions map[string]func(ctx context.Context, s Subject) Outcome
	values     map[string]func(ctx context.Context, s Subject) Outcome
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		conditions: make(map[string]func(context.Context, Subject) Outcome),
		values:     make(map[string]func(context.Context, Subject) Outcome),
	}
}

var errUnknownExpression = errors.New("unknown expression")

func (f *fakeEngine) Exists(ctx context.Context, expr string, s Subject) Outcome {
	fn, ok := f.conditions[expr]
	if !ok {
		return Failed(errUnknownExpression)
	}
	return fn(ctx, s)
}

func (f *fakeEngine) Number(ctx context.Context, expr string, s Subject) Outcome {
	fn, ok := f.values[expr]
	if !ok {
		return Failed(errUnknownExpression)
	}
	return fn(ctx, s)
}

func (f *fakeEngine) condition(expr string, active bool) {
	f.conditions[expr] = func(context.Context, Subject) Outcome { return Found(active) }
}

func (f *fakeEngine) value(expr, v string) {
	f.values[expr] = func(context.Context, Subject) Outcome { return Number(decimal.RequireFromString(v)) }
}

func blockUntilDone(ctx context.Context, _ Subject) Outcome {
	<-ctx.Done()
	return Failed(ctx.Err())
}

type recordingMetrics struct {
	mu          sync.Mutex
	evaluations map[string]int
	runs        map[string]int
	rankPasses  map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{evaluations: map[string]int{}, runs: map[string]int{}, rankPasses: map[string]int{}}
}

func (r *recordingMetrics) ObserveEvaluation(kind string, _ time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := OutcomeOK
	if failed {
		result = OutcomeFailed
	}
	r.evaluations[kind+"/"+result]++
}

func (r *recordingMetrics) ObserveRun(outcome string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs[outcome]++
}

func (r *recordingMetrics) ObserveRankPass(outcome string, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rankPasses[outcome]++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(store *memStore, engine Evaluator, metrics Metrics) *Service {
	return NewService(store, engine, Options{
		EvalTimeout:     200 * time.Millisecond,
		EvalConcurrency: 4,
		Metrics:         metrics,
		Logger:          discardLogger(),
	})
}

// cx1Fixture is employee 42 (KTV, HCM) with criterion CX1 in group CX.
func cx1Fixture(groupActive bool) (*memStore, *fakeEngine) {
	store := newMemStore()
	store.addEmployee(42, "KTV042", RoleKTV, AreaHCM)
	store.addGroup("CX", "cx-condition")
	store.addCriterion("CX1", "CX", "0.1", "cx1-value")

	engine := newFakeEngine()
	engine.condition("cx-condition", groupActive)
	engine.value("cx1-value", "0.95")
	return store, engine
}
