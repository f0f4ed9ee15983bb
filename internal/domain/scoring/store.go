package scoring

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"kpi/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

const criterionColumns = `
    c.criteria_code, c.apply_date, c.group_code, g.group_name, c.description, c.employee_type,
    c.threshold, c.weight, c.severity_score, c.calculation_sql, c.active
`

func scanCriterion(row pgx.Row) (Criterion, error) {
	var c Criterion
	err := row.Scan(&c.Code, &c.ApplyDate, &c.GroupCode, &c.GroupName, &c.Description, &c.EmployeeType,
		&c.Threshold, &c.Weight, &c.SeverityScore, &c.CalculationSQL, &c.Active)
	return c, err
}

func (s *Store) ListActiveCriteria(ctx context.Context, period time.Time) ([]Criterion, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT`+criterionColumns+`
    FROM dim_criteria c
    JOIN dim_criteria_groups g ON g.group_code = c.group_code AND g.apply_date = c.apply_date
    WHERE c.apply_date = $1 AND c.active
    ORDER BY c.criteria_code
  `, period)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Criterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetGroup(ctx context.Context, groupCode string, period time.Time) (*CriteriaGroup, error) {
	var g CriteriaGroup
	err := s.DB.QueryRow(ctx, `
    SELECT group_code, apply_date, group_name, condition_sql
    FROM dim_criteria_groups
    WHERE group_code = $1 AND apply_date = $2
  `, groupCode, period).Scan(&g.Code, &g.ApplyDate, &g.Name, &g.ConditionSQL)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Store) GetCriterion(ctx context.Context, criteriaCode string, period time.Time) (*Criterion, error) {
	c, err := scanCriterion(s.DB.QueryRow(ctx, `
    SELECT`+criterionColumns+`
    FROM dim_criteria c
    JOIN dim_criteria_groups g ON g.group_code = c.group_code AND g.apply_date = c.apply_date
    WHERE c.criteria_code = $1 AND c.apply_date = $2 AND c.active
  `, criteriaCode, period))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) GetEmployee(ctx context.Context, employeeID int64) (*Employee, error) {
	var e Employee
	err := s.DB.QueryRow(ctx, `
    SELECT id, employee_code, short_name, role, team, area, active
    FROM dim_employees
    WHERE id = $1
  `, employeeID).Scan(&e.ID, &e.Code, &e.Name, &e.Role, &e.Team, &e.Area, &e.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// UpsertSummary writes the overall score and clears the finalized flag.
// Commission rate and rank are left as they are.
func (s *Store) UpsertSummary(ctx context.Context, employeeID int64, period time.Time, total decimal.Decimal) (int64, error) {
	var id int64
	err := s.DB.QueryRow(ctx, `
    INSERT INTO fact_monthly_summary (employee_id, apply_date, overall_score, is_finalized)
    VALUES ($1, $2, $3, false)
    ON CONFLICT (employee_id, apply_date)
    DO UPDATE SET overall_score = EXCLUDED.overall_score, is_finalized = false, updated_at = now()
    RETURNING id
  `, employeeID, period, total).Scan(&id)
	return id, err
}

func (s *Store) UpsertScore(ctx context.Context, summaryID int64, criteriaCode string, period time.Time, raw, calculated decimal.Decimal) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO fact_monthly_scores (summary_id, criteria_code, apply_date, raw_value, calculated_score)
    VALUES ($1, $2, $3, $4, $5)
    ON CONFLICT (summary_id, criteria_code, apply_date)
    DO UPDATE SET raw_value = EXCLUDED.raw_value, calculated_score = EXCLUDED.calculated_score, updated_at = now()
  `, summaryID, criteriaCode, period, raw, calculated)
	return err
}

// PurgeStaleScores deletes score rows of the summary whose criterion is not in keep.
func (s *Store) PurgeStaleScores(ctx context.Context, summaryID int64, period time.Time, keep []string) (int64, error) {
	if keep == nil {
		keep = []string{}
	}
	tag, err := s.DB.Exec(ctx, `
    DELETE FROM fact_monthly_scores
    WHERE summary_id = $1 AND apply_date = $2 AND criteria_code <> ALL($3::text[])
  `, summaryID, period, keep)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) ListSummaries(ctx context.Context, period time.Time, filter SummaryFilter) ([]Summary, error) {
	query := `
    SELECT s.id, s.employee_id, e.employee_code, e.short_name, e.role, e.team, e.area,
           s.apply_date, s.overall_score, s.is_finalized, s.commission_rate, s.rank
    FROM fact_monthly_summary s
    JOIN dim_employees e ON e.id = s.employee_id
    WHERE s.apply_date = $1
  `
	args := []any{period}
	if filter.Role != "" {
		args = append(args, filter.Role)
		query += fmt.Sprintf(" AND e.role = $%d", len(args))
	}
	if filter.Area != "" {
		args = append(args, filter.Area)
		query += fmt.Sprintf(" AND e.area = $%d", len(args))
	}
	query += " ORDER BY e.role, e.area, s.rank NULLS LAST, s.overall_score DESC, e.employee_code"

	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		if err := rows.Scan(&sum.ID, &sum.EmployeeID, &sum.EmployeeCode, &sum.ShortName, &sum.Role, &sum.Team, &sum.Area,
			&sum.ApplyDate, &sum.OverallScore, &sum.IsFinalized, &sum.CommissionRate, &sum.Rank); err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// RankPeriod serialises rank passes for a period with a transaction-scoped
// advisory lock and writes every assignment in one statement.
func (s *Store) RankPeriod(ctx context.Context, period time.Time, fn func([]RankEntry) []RankAssignment) (int, error) {
	tx, err := s.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", periodLockKey(period)); err != nil {
		return 0, fmt.Errorf("acquire rank lock: %w", err)
	}

	rows, err := tx.Query(ctx, `
    SELECT s.id, s.employee_id, e.employee_code, e.role, e.area, s.overall_score
    FROM fact_monthly_summary s
    JOIN dim_employees e ON e.id = s.employee_id
    WHERE s.apply_date = $1
    ORDER BY s.overall_score DESC, e.employee_code, s.employee_id
  `, period)
	if err != nil {
		return 0, err
	}
	var entries []RankEntry
	for rows.Next() {
		var entry RankEntry
		if err := rows.Scan(&entry.SummaryID, &entry.EmployeeID, &entry.EmployeeCode, &entry.Role, &entry.Area, &entry.OverallScore); err != nil {
			rows.Close()
			return 0, err
		}
		entries = append(entries, entry)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	assignments := fn(entries)
	if len(assignments) > 0 {
		ids := make([]int64, len(assignments))
		ranks := make([]int32, len(assignments))
		for i, a := range assignments {
			ids[i] = a.SummaryID
			ranks[i] = int32(a.Rank)
		}
		if _, err := tx.Exec(ctx, `
    UPDATE fact_monthly_summary s
    SET rank = v.rank, updated_at = now()
    FROM unnest($1::int[], $2::int[]) AS v(id, rank)
    WHERE s.id = v.id
  `, ids, ranks); err != nil {
			return 0, fmt.Errorf("write ranks: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(assignments), nil
}

func periodLockKey(period time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte("kpi.rank." + FormatPeriod(period)))
	return int64(h.Sum64())
}
