package criteria

import (
	"time"

	"github.com/shopspring/decimal"
)

type Group struct {
	Code         string    `json:"groupCode"`
	ApplyDate    time.Time `json:"applyDate"`
	Name         string    `json:"groupName"`
	ConditionSQL string    `json:"conditionSql"`
	CreatedAt    time.Time `json:"createdAt"`
}

type Criterion struct {
	Code           string          `json:"criteriaCode"`
	ApplyDate      time.Time       `json:"applyDate"`
	GroupCode      string          `json:"groupCode"`
	Description    string          `json:"description"`
	EmployeeType   string          `json:"employeeType"`
	Threshold      decimal.Decimal `json:"threshold"`
	Weight         decimal.Decimal `json:"weight"`
	SeverityScore  decimal.Decimal `json:"severityScore"`
	CalculationSQL string          `json:"calculationSql"`
	Active         bool            `json:"active"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type Filter struct {
	ApplyDate time.Time
	GroupCode string
}
