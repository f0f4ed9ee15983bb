package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// EngineStore is the persistence surface the engine needs.
type EngineStore interface {
	RuleStore
	EmployeeStore
	ScoreStore
	RankStore
}

type Options struct {
	EvalTimeout     time.Duration
	EvalConcurrency int
	Metrics         Metrics
	Logger          *slog.Logger
}

// Service is the entry point for the two scoring operations: a read-only
// breakdown and a persisted total followed by a cohort re-rank.
type Service struct {
	store      EngineStore
	conditions *ConditionEvaluator
	values     *ValueEvaluator
	scorer     *Scorer
	aggregator *Aggregator
	ranks      *RankAssigner
	locks      *KeyedMutex
	metrics    Metrics
	log        *slog.Logger
}

func NewService(store EngineStore, engine Evaluator, opts Options) *Service {
	if opts.EvalTimeout <= 0 {
		opts.EvalTimeout = 5 * time.Second
	}
	if opts.EvalConcurrency <= 0 {
		opts.EvalConcurrency = 1
	}
	if opts.Metrics == nil {
		opts.Metrics = nopMetrics{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	log := opts.Logger.With("component", "scoring")

	conditions := &ConditionEvaluator{rules: store, employees: store, engine: engine, timeout: opts.EvalTimeout, metrics: opts.Metrics, log: log}
	values := &ValueEvaluator{rules: store, employees: store, engine: engine, timeout: opts.EvalTimeout, metrics: opts.Metrics, log: log}
	scorer := &Scorer{conditions: conditions, values: values, employees: store, log: log}
	return &Service{
		store:      store,
		conditions: conditions,
		values:     values,
		scorer:     scorer,
		aggregator: &Aggregator{rules: store, scores: store, scorer: scorer, concurrency: opts.EvalConcurrency, log: log},
		ranks:      &RankAssigner{store: store, metrics: opts.Metrics, log: log},
		locks:      NewKeyedMutex(),
		metrics:    opts.Metrics,
		log:        log,
	}
}

func (s *Service) Conditions() *ConditionEvaluator { return s.conditions }
func (s *Service) Values() *ValueEvaluator         { return s.values }
func (s *Service) Scorer() *Scorer                 { return s.scorer }
func (s *Service) Ranks() *RankAssigner            { return s.ranks }

func (s *Service) subject(ctx context.Context, employeeID int64, period time.Time) (Subject, error) {
	if employeeID <= 0 {
		return Subject{}, ErrInvalidEmployee
	}
	if period.IsZero() {
		return Subject{}, ErrInvalidPeriod
	}
	period = NormalizePeriod(period)
	emp, err := s.store.GetEmployee(ctx, employeeID)
	if err != nil {
		return Subject{}, fmt.Errorf("load employee: %w", err)
	}
	if emp == nil {
		return Subject{}, ErrEmployeeNotFound
	}
	return Subject{EmployeeID: employeeID, Period: period, Employee: emp}, nil
}

// Detail scores every active criterion for display. Nothing is persisted.
func (s *Service) Detail(ctx context.Context, employeeID int64, period time.Time) ([]DetailRow, error) {
	subject, err := s.subject(ctx, employeeID, period)
	if err != nil {
		return nil, err
	}
	criteria, err := s.store.ListActiveCriteria(ctx, subject.Period)
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	results := s.aggregator.scoreAll(ctx, criteria, subject)
	rows := make([]DetailRow, 0, len(results))
	for _, r := range results {
		rows = append(rows, toDetailRow(r))
	}
	return rows, nil
}

// Total computes and persists the subject's summary, then re-ranks the
// period. Runs for the same employee and period are serialised.
func (s *Service) Total(ctx context.Context, employeeID int64, period time.Time) (TotalResult, error) {
	subject, err := s.subject(ctx, employeeID, period)
	if err != nil {
		return TotalResult{}, err
	}

	unlock, err := s.locks.Lock(ctx, runKey(subject.EmployeeID, subject.Period))
	if err != nil {
		return TotalResult{}, fmt.Errorf("wait for running total: %w", err)
	}
	defer unlock()

	result, err := s.aggregator.ComputeAndPersistTotal(ctx, subject)
	if err != nil {
		s.metrics.ObserveRun(OutcomeFailed)
		if _, ok := IsPersistError(err); !ok {
			return TotalResult{}, err
		}
		// Summary exists; ranks still reflect the new overall score.
		if rankErr := s.ranks.RecomputeRanks(ctx, subject.Period); rankErr != nil {
			return result, fmt.Errorf("%w; recompute ranks: %v", err, rankErr)
		}
		return result, err
	}

	if err := s.ranks.RecomputeRanks(ctx, subject.Period); err != nil {
		s.metrics.ObserveRun(OutcomeFailed)
		return result, fmt.Errorf("recompute ranks: %w", err)
	}
	s.metrics.ObserveRun(OutcomeOK)
	s.log.Info("score total computed",
		"employeeId", subject.EmployeeID,
		"applyDate", FormatPeriod(subject.Period),
		"summaryId", result.SummaryID,
		"totalScore", result.TotalScore.String(),
		"scoredCriteriaCount", result.ScoredCriteriaCount,
	)
	return result, nil
}

type GroupConditionResult struct {
	GroupCode string `json:"groupCode"`
	ApplyDate string `json:"applyDate"`
	Active    bool   `json:"active"`
	Failure   string `json:"failure,omitempty"`
}

// GroupCondition evaluates one group's condition for an employee.
func (s *Service) GroupCondition(ctx context.Context, groupCode string, employeeID int64, period time.Time) (GroupConditionResult, error) {
	subject, err := s.subject(ctx, employeeID, period)
	if err != nil {
		return GroupConditionResult{}, err
	}
	outcome := s.conditions.Evaluate(ctx, groupCode, subject)
	res := GroupConditionResult{
		GroupCode: groupCode,
		ApplyDate: FormatPeriod(subject.Period),
		Active:    !outcome.Failed() && outcome.Exists,
	}
	if outcome.Failed() {
		res.Failure = outcome.Err.Error()
	}
	return res, nil
}

func (s *Service) Summaries(ctx context.Context, period time.Time, filter SummaryFilter) ([]Summary, error) {
	if period.IsZero() {
		return nil, ErrInvalidPeriod
	}
	return s.store.ListSummaries(ctx, NormalizePeriod(period), filter)
}
