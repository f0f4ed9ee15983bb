package scoring

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// RuleStore reads criteria and group definitions. Absent rows are reported
// as nil with a nil error.
type RuleStore interface {
	ListActiveCriteria(ctx context.Context, period time.Time) ([]Criterion, error)
	GetGroup(ctx context.Context, groupCode string, period time.Time) (*CriteriaGroup, error)
	GetCriterion(ctx context.Context, criteriaCode string, period time.Time) (*Criterion, error)
}

type EmployeeStore interface {
	GetEmployee(ctx context.Context, employeeID int64) (*Employee, error)
}

type ScoreStore interface {
	UpsertSummary(ctx context.Context, employeeID int64, period time.Time, total decimal.Decimal) (int64, error)
	UpsertScore(ctx context.Context, summaryID int64, criteriaCode string, period time.Time, raw, calculated decimal.Decimal) error
	PurgeStaleScores(ctx context.Context, summaryID int64, period time.Time, keep []string) (int64, error)
	ListSummaries(ctx context.Context, period time.Time, filter SummaryFilter) ([]Summary, error)
}

// RankStore runs fn over every summary of a period while holding the period's
// rank lock and writes the returned assignments in the same transaction.
type RankStore interface {
	RankPeriod(ctx context.Context, period time.Time, fn func([]RankEntry) []RankAssignment) (int, error)
}

type Metrics interface {
	ObserveEvaluation(kind string, duration time.Duration, failed bool)
	ObserveRun(outcome string)
	ObserveRankPass(outcome string, ranked int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveEvaluation(string, time.Duration, bool) {}
func (nopMetrics) ObserveRun(string)                             {}
func (nopMetrics) ObserveRankPass(string, int)                   {}
