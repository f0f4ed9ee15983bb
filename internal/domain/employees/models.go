package employees

import "time"

type Employee struct {
	ID        int64     `json:"id"`
	Code      string    `json:"employeeCode"`
	ShortName string    `json:"shortName"`
	Role      string    `json:"role"`
	Team      string    `json:"team"`
	Area      string    `json:"area"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Filter struct {
	Role       string
	Area       string
	ActiveOnly bool
	Limit      int
	Offset     int
}
