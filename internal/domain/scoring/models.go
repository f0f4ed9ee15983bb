package scoring

import (
	"time"

	"github.com/shopspring/decimal"
)

type Employee struct {
	ID     int64  `json:"id"`
	Code   string `json:"employeeCode"`
	Name   string `json:"shortName"`
	Role   string `json:"role"`
	Team   string `json:"team"`
	Area   string `json:"area"`
	Active bool   `json:"active"`
}

type CriteriaGroup struct {
	Code         string    `json:"groupCode"`
	ApplyDate    time.Time `json:"applyDate"`
	Name         string    `json:"groupName"`
	ConditionSQL string    `json:"conditionSql"`
}

type Criterion struct {
	Code           string          `json:"criteriaCode"`
	ApplyDate      time.Time       `json:"applyDate"`
	GroupCode      string          `json:"groupCode"`
	GroupName      string          `json:"groupName"`
	Description    string          `json:"description"`
	EmployeeType   string          `json:"employeeType"`
	Threshold      decimal.Decimal `json:"threshold"`
	Weight         decimal.Decimal `json:"weight"`
	SeverityScore  decimal.Decimal `json:"severityScore"`
	CalculationSQL string          `json:"calculationSql"`
	Active         bool            `json:"active"`
}

// Subject is the employee and period an expression is evaluated for.
// Employee may be nil when the directory has no row for EmployeeID.
type Subject struct {
	EmployeeID int64
	Period     time.Time
	Employee   *Employee
}

// CriterionScore is the scorer output for one criterion. RawValue and
// CalculatedScore are nil when the owning group is inactive.
type CriterionScore struct {
	Criterion        Criterion
	GroupActive      bool
	RawValue         *decimal.Decimal
	CalculatedScore  *decimal.Decimal
	ConditionFailure string
	ValueFailure     string
}

type DetailRow struct {
	CriteriaCode    string   `json:"criteriaCode"`
	Description     string   `json:"description"`
	Weight          float64  `json:"weight"`
	Threshold       float64  `json:"threshold"`
	SeverityScore   float64  `json:"severityScore"`
	GroupCode       string   `json:"groupCode"`
	GroupName       string   `json:"groupName"`
	GroupActive     bool     `json:"groupActive"`
	RawValue        *float64 `json:"rawValue"`
	CalculatedScore *float64 `json:"calculatedScore"`
}

type TotalResult struct {
	SummaryID           int64           `json:"summaryId"`
	TotalScore          decimal.Decimal `json:"totalScore"`
	ScoredCriteriaCount int             `json:"scoredCriteriaCount"`
}

type Summary struct {
	ID             int64            `json:"id"`
	EmployeeID     int64            `json:"employeeId"`
	EmployeeCode   string           `json:"employeeCode"`
	ShortName      string           `json:"shortName"`
	Role           string           `json:"role"`
	Team           string           `json:"team"`
	Area           string           `json:"area"`
	ApplyDate      time.Time        `json:"applyDate"`
	OverallScore   decimal.Decimal  `json:"overallScore"`
	IsFinalized    bool             `json:"isFinalized"`
	CommissionRate *decimal.Decimal `json:"commissionRate"`
	Rank           *int             `json:"rank"`
}

type SummaryFilter struct {
	Role string
	Area string
}

// RankEntry is one summary as seen by the rank pass.
type RankEntry struct {
	SummaryID    int64
	EmployeeID   int64
	EmployeeCode string
	Role         string
	Area         string
	OverallScore decimal.Decimal
}

type RankAssignment struct {
	SummaryID int64
	Rank      int
}

func toDetailRow(score CriterionScore) DetailRow {
	c := score.Criterion
	return DetailRow{
		CriteriaCode:    c.Code,
		Description:     c.Description,
		Weight:          c.Weight.InexactFloat64(),
		Threshold:       c.Threshold.InexactFloat64(),
		SeverityScore:   c.SeverityScore.InexactFloat64(),
		GroupCode:       c.GroupCode,
		GroupName:       c.GroupName,
		GroupActive:     score.GroupActive,
		RawValue:        floatPtr(score.RawValue),
		CalculatedScore: floatPtr(score.CalculatedScore),
	}
}

func floatPtr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	v := d.InexactFloat64()
	return &v
}
