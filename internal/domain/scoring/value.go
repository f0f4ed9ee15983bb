package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// ValueEvaluator computes the raw value of a criterion. Unknown or inactive
// criteria and failing expressions yield zero.
type ValueEvaluator struct {
	rules     RuleStore
	employees EmployeeStore
	engine    Evaluator
	timeout   time.Duration
	metrics   Metrics
	log       *slog.Logger
}

func (v *ValueEvaluator) EvaluateCriterionValue(ctx context.Context, criteriaCode string, period time.Time, employeeID int64) decimal.Decimal {
	period = NormalizePeriod(period)
	criterion, err := v.rules.GetCriterion(ctx, criteriaCode, period)
	if err != nil {
		v.fail(criteriaCode, Subject{EmployeeID: employeeID, Period: period}, fmt.Errorf("load criterion: %w", err))
		return decimal.Zero
	}
	if criterion == nil || !criterion.Active {
		return decimal.Zero
	}
	subject := loadSubject(ctx, v.employees, v.log, employeeID, period)
	outcome := v.Evaluate(ctx, *criterion, subject)
	if outcome.Failed() {
		return decimal.Zero
	}
	return outcome.Value
}

// Evaluate runs the criterion's value expression for the subject.
func (v *ValueEvaluator) Evaluate(ctx context.Context, criterion Criterion, subject Subject) Outcome {
	evalCtx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	outcome := v.engine.Number(evalCtx, criterion.CalculationSQL, subject)
	if outcome.Failed() && errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
		outcome = Failed(fmt.Errorf("value timed out after %s: %w", v.timeout, outcome.Err))
	}
	v.metrics.ObserveEvaluation(KindValue, time.Since(start), outcome.Failed())
	if outcome.Failed() {
		return v.fail(criterion.Code, subject, outcome.Err)
	}
	return outcome
}

func (v *ValueEvaluator) fail(criteriaCode string, subject Subject, err error) Outcome {
	v.log.Warn("criterion value failed",
		"criteriaCode", criteriaCode,
		"employeeId", subject.EmployeeID,
		"applyDate", FormatPeriod(subject.Period),
		"err", err,
	)
	return Failed(err)
}
