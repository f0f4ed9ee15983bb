package scoring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Aggregator scores every active criterion of a period for one employee and
// persists the summary and the per-criterion rows.
type Aggregator struct {
	rules       RuleStore
	scores      ScoreStore
	scorer      *Scorer
	concurrency int
	log         *slog.Logger
}

// scoreAll evaluates criteria with bounded parallelism. Results keep the
// order of criteria; one criterion failing never affects another.
func (a *Aggregator) scoreAll(ctx context.Context, criteria []Criterion, subject Subject) []CriterionScore {
	results := make([]CriterionScore, len(criteria))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, criterion := range criteria {
		i, criterion := i, criterion
		g.Go(func() error {
			results[i] = a.scorer.score(gctx, criterion, subject)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// ComputeAndPersistTotal runs a scoring pass for the subject. A summary write
// failure aborts the run; score row failures are collected into a
// *PersistError returned alongside the result.
func (a *Aggregator) ComputeAndPersistTotal(ctx context.Context, subject Subject) (TotalResult, error) {
	criteria, err := a.rules.ListActiveCriteria(ctx, subject.Period)
	if err != nil {
		return TotalResult{}, fmt.Errorf("list criteria: %w", err)
	}

	scored := make([]CriterionScore, 0, len(criteria))
	total := decimal.Zero
	for _, result := range a.scoreAll(ctx, criteria, subject) {
		if !result.GroupActive {
			continue
		}
		total = total.Add(*result.CalculatedScore)
		scored = append(scored, result)
	}

	summaryID, err := a.scores.UpsertSummary(ctx, subject.EmployeeID, subject.Period, total)
	if err != nil {
		return TotalResult{}, fmt.Errorf("upsert summary: %w", err)
	}
	result := TotalResult{SummaryID: summaryID, TotalScore: total, ScoredCriteriaCount: len(scored)}

	persistErr := &PersistError{}
	keep := make([]string, 0, len(scored))
	for _, s := range scored {
		if err := a.scores.UpsertScore(ctx, summaryID, s.Criterion.Code, subject.Period, *s.RawValue, *s.CalculatedScore); err != nil {
			a.log.Error("score row persist failed",
				"criteriaCode", s.Criterion.Code,
				"employeeId", subject.EmployeeID,
				"applyDate", FormatPeriod(subject.Period),
				"err", err,
			)
			persistErr.Rows = append(persistErr.Rows, RowError{CriteriaCode: s.Criterion.Code, Err: err})
			continue
		}
		keep = append(keep, s.Criterion.Code)
	}

	// Rows of criteria that dropped out are removed only after a clean write.
	if len(persistErr.Rows) == 0 {
		purged, err := a.scores.PurgeStaleScores(ctx, summaryID, subject.Period, keep)
		if err != nil {
			persistErr.Purge = err
		} else if purged > 0 {
			a.log.Info("stale score rows purged", "summaryId", summaryID, "count", purged)
		}
	}

	if persistErr.empty() {
		return result, nil
	}
	return result, persistErr
}

// IsPersistError reports whether err carries row-level persistence failures.
func IsPersistError(err error) (*PersistError, bool) {
	var pe *PersistError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
