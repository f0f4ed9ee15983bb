package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type seedEmployee struct {
	Code string
	Name string
	Role string
	Team string
	Area string
}

var seedEmployees = []seedEmployee{
	{Code: "KTV001", Name: "Nguyễn A", Role: "KTV", Team: "Logan", Area: "HCM"},
	{Code: "KTV002", Name: "Lê C", Role: "KTV", Team: "Logan", Area: "HCM"},
	{Code: "SALE001", Name: "Trần B", Role: "Sale", Team: "Hi5", Area: "HN"},
}

// SeedPeriod is the month the sample rule set is effective for.
var SeedPeriod = time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

// Seed inserts a small sample directory and rule set. Existing rows are left untouched.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	for _, emp := range seedEmployees {
		if _, err := pool.Exec(ctx, `
    INSERT INTO dim_employees (employee_code, short_name, role, team, area)
    VALUES ($1,$2,$3,$4,$5)
    ON CONFLICT (employee_code) DO NOTHING
  `, emp.Code, emp.Name, emp.Role, emp.Team, emp.Area); err != nil {
			return err
		}
	}

	if _, err := pool.Exec(ctx, `
    INSERT INTO dim_criteria_groups (group_code, apply_date, group_name, condition_sql)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (group_code, apply_date) DO NOTHING
  `, "CX", SeedPeriod, "Tiêu chí CX",
		"SELECT 1 FROM dim_employees WHERE id = :employee_id AND role IN ('Sale', 'KTV') AND active"); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
    INSERT INTO dim_criteria_groups (group_code, apply_date, group_name, condition_sql)
    VALUES ($1,$2,$3,$4)
    ON CONFLICT (group_code, apply_date) DO NOTHING
  `, "HCM", SeedPeriod, "Tiêu chí khu vực HCM", `cel:area == "HCM"`); err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, `
    INSERT INTO dim_criteria (criteria_code, apply_date, group_code, description, employee_type, threshold, weight, severity_score, calculation_sql)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (criteria_code, apply_date) DO NOTHING
  `, "CX1", SeedPeriod, "CX", "Tỷ lệ đúng giờ", "KTV", 0.9, 0.1, 5.0,
		`SELECT COALESCE(COUNT(*) FILTER (WHERE ontime_status_detail = 'Đúng giờ')::numeric / NULLIF(COUNT(*), 0), 0) AS value
FROM fact_check_events
WHERE actor_id = :employee_id AND DATE_TRUNC('month', event_timestamp)::date = :apply_date`); err != nil {
		return err
	}

	_, err := pool.Exec(ctx, `
    INSERT INTO dim_criteria (criteria_code, apply_date, group_code, description, employee_type, threshold, weight, severity_score, calculation_sql)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
    ON CONFLICT (criteria_code, apply_date) DO NOTHING
  `, "HCM1", SeedPeriod, "HCM", "Điểm đánh giá QC trung bình", "All", 4.0, 0.2, 3.0,
		`SELECT COALESCE(AVG(rating), 0) / 5 AS value
FROM fact_qc_feedback
WHERE sale_id = :employee_id AND DATE_TRUNC('month', feedback_at)::date = :apply_date`)
	return err
}
