package jobs

import (
	"context"
	"fmt"
	"time"

	"kpi/internal/domain/employees"
	"kpi/internal/domain/scoring"
)

type EmployeeLister interface {
	List(ctx context.Context, filter employees.Filter) ([]employees.Employee, int, error)
}

type Totaler interface {
	Total(ctx context.Context, employeeID int64, period time.Time) (scoring.TotalResult, error)
}

type PeriodResult struct {
	ApplyDate string          `json:"applyDate"`
	Employees int             `json:"employees"`
	Scored    int             `json:"scored"`
	Failed    []PeriodFailure `json:"failed,omitempty"`
}

type PeriodFailure struct {
	EmployeeID   int64  `json:"employeeId"`
	EmployeeCode string `json:"employeeCode"`
	Error        string `json:"error"`
}

// PeriodScoring computes and persists totals for every active employee of a
// period. One employee failing does not stop the others.
type PeriodScoring struct {
	Jobs      *Service
	Employees EmployeeLister
	Scoring   Totaler
}

func (p *PeriodScoring) Start(ctx context.Context, period time.Time) (int64, error) {
	period = scoring.NormalizePeriod(period)
	return p.Jobs.Enqueue(ctx, JobPeriodScoring, func(ctx context.Context) (any, error) {
		return p.Score(ctx, period)
	})
}

// Run scores the period on the caller's goroutine. The run is still recorded
// in job_runs so it can be read back like a queued one.
func (p *PeriodScoring) Run(ctx context.Context, period time.Time) (int64, PeriodResult, error) {
	period = scoring.NormalizePeriod(period)
	var result PeriodResult
	id, _, err := p.Jobs.RunNow(ctx, JobPeriodScoring, func(ctx context.Context) (any, error) {
		var err error
		result, err = p.Score(ctx, period)
		return result, err
	})
	return id, result, err
}

func (p *PeriodScoring) Get(ctx context.Context, id int64) (Run, error) {
	return p.Jobs.Get(ctx, id)
}

func (p *PeriodScoring) Score(ctx context.Context, period time.Time) (PeriodResult, error) {
	result := PeriodResult{ApplyDate: scoring.FormatPeriod(period)}
	list, _, err := p.Employees.List(ctx, employees.Filter{ActiveOnly: true})
	if err != nil {
		return result, fmt.Errorf("list employees: %w", err)
	}
	result.Employees = len(list)

	for _, emp := range list {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if _, err := p.Scoring.Total(ctx, emp.ID, period); err != nil {
			result.Failed = append(result.Failed, PeriodFailure{EmployeeID: emp.ID, EmployeeCode: emp.Code, Error: err.Error()})
			continue
		}
		result.Scored++
	}
	if len(result.Failed) > 0 {
		return result, fmt.Errorf("%d of %d employees failed", len(result.Failed), result.Employees)
	}
	return result, nil
}
