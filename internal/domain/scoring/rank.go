package scoring

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

type cohortKey struct {
	role string
	area string
}

// AssignRanks partitions entries into (role, area) cohorts and ranks each
// cohort 1..N by overall score descending. Equal scores never share a rank:
// ties fall back to employee code, then employee id.
func AssignRanks(entries []RankEntry) []RankAssignment {
	cohorts := make(map[cohortKey][]RankEntry)
	var order []cohortKey
	for _, e := range entries {
		key := cohortKey{role: e.Role, area: e.Area}
		if _, ok := cohorts[key]; !ok {
			order = append(order, key)
		}
		cohorts[key] = append(cohorts[key], e)
	}

	out := make([]RankAssignment, 0, len(entries))
	for _, key := range order {
		members := cohorts[key]
		sort.SliceStable(members, func(i, j int) bool {
			if c := members[i].OverallScore.Cmp(members[j].OverallScore); c != 0 {
				return c > 0
			}
			if members[i].EmployeeCode != members[j].EmployeeCode {
				return members[i].EmployeeCode < members[j].EmployeeCode
			}
			return members[i].EmployeeID < members[j].EmployeeID
		})
		for i, m := range members {
			out = append(out, RankAssignment{SummaryID: m.SummaryID, Rank: i + 1})
		}
	}
	return out
}

// RankAssigner recomputes every cohort rank of a period.
type RankAssigner struct {
	store   RankStore
	metrics Metrics
	log     *slog.Logger
}

func (r *RankAssigner) RecomputeRanks(ctx context.Context, period time.Time) error {
	period = NormalizePeriod(period)
	ranked, err := r.store.RankPeriod(ctx, period, AssignRanks)
	if err != nil {
		r.metrics.ObserveRankPass(OutcomeFailed, 0)
		r.log.Error("rank pass failed", "applyDate", FormatPeriod(period), "err", err)
		return err
	}
	r.metrics.ObserveRankPass(OutcomeOK, ranked)
	return nil
}
