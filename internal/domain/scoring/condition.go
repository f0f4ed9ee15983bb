package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// ConditionEvaluator decides whether a criteria group applies to an employee
// for a period. Unknown groups and failing conditions are inactive.
type ConditionEvaluator struct {
	rules     RuleStore
	employees EmployeeStore
	engine    Evaluator
	timeout   time.Duration
	metrics   Metrics
	log       *slog.Logger
}

func (c *ConditionEvaluator) IsGroupActive(ctx context.Context, groupCode string, period time.Time, employeeID int64) bool {
	subject := loadSubject(ctx, c.employees, c.log, employeeID, period)
	outcome := c.Evaluate(ctx, groupCode, subject)
	return !outcome.Failed() && outcome.Exists
}

// Evaluate returns the tagged outcome. An unknown group is Found(false), not a failure.
func (c *ConditionEvaluator) Evaluate(ctx context.Context, groupCode string, subject Subject) Outcome {
	group, err := c.rules.GetGroup(ctx, groupCode, subject.Period)
	if err != nil {
		return c.fail(groupCode, subject, fmt.Errorf("load group: %w", err))
	}
	if group == nil {
		return Found(false)
	}

	evalCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	outcome := c.engine.Exists(evalCtx, group.ConditionSQL, subject)
	if outcome.Failed() && errors.Is(evalCtx.Err(), context.DeadlineExceeded) {
		outcome = Failed(fmt.Errorf("condition timed out after %s: %w", c.timeout, outcome.Err))
	}
	c.metrics.ObserveEvaluation(KindCondition, time.Since(start), outcome.Failed())
	if outcome.Failed() {
		return c.fail(groupCode, subject, outcome.Err)
	}
	return outcome
}

func (c *ConditionEvaluator) fail(groupCode string, subject Subject, err error) Outcome {
	c.log.Warn("group condition failed",
		"groupCode", groupCode,
		"employeeId", subject.EmployeeID,
		"applyDate", FormatPeriod(subject.Period),
		"err", err,
	)
	return Failed(err)
}

func loadSubject(ctx context.Context, employees EmployeeStore, log *slog.Logger, employeeID int64, period time.Time) Subject {
	subject := Subject{EmployeeID: employeeID, Period: NormalizePeriod(period)}
	emp, err := employees.GetEmployee(ctx, employeeID)
	if err != nil {
		log.Warn("employee context lookup failed", "employeeId", employeeID, "err", err)
		return subject
	}
	subject.Employee = emp
	return subject
}
