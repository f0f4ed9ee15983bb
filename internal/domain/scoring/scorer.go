package scoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Scorer combines group activation with the raw value and weight of one
// criterion. Evaluation failures collapse to inactive or zero here and only
// here; the reason stays on the result.
//
// Threshold and severity are carried for display and never change the score.
type Scorer struct {
	conditions *ConditionEvaluator
	values     *ValueEvaluator
	employees  EmployeeStore
	log        *slog.Logger
}

func (s *Scorer) ScoreCriterion(ctx context.Context, criterion Criterion, period time.Time, employeeID int64) CriterionScore {
	return s.score(ctx, criterion, loadSubject(ctx, s.employees, s.log, employeeID, period))
}

func (s *Scorer) score(ctx context.Context, criterion Criterion, subject Subject) CriterionScore {
	result := CriterionScore{Criterion: criterion}

	condition := s.conditions.Evaluate(ctx, criterion.GroupCode, subject)
	if condition.Failed() {
		result.ConditionFailure = condition.Err.Error()
		return result
	}
	if !condition.Exists {
		return result
	}
	result.GroupActive = true

	raw := decimal.Zero
	if value := s.values.Evaluate(ctx, criterion, subject); value.Failed() {
		result.ValueFailure = value.Err.Error()
	} else {
		raw = value.Value
	}
	calculated := raw.Mul(criterion.Weight)
	result.RawValue = &raw
	result.CalculatedScore = &calculated
	return result
}
