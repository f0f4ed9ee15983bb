package scoring

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidEmployee  = errors.New("employee id must be positive")
	ErrInvalidPeriod    = errors.New("period is required")
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrNoRows           = errors.New("expression returned no rows")
	ErrNullValue        = errors.New("expression returned null")
	ErrNotNumeric       = errors.New("expression result is not numeric")
	ErrNoEmployeeData   = errors.New("employee context unavailable")
)

// RowError is a persistence failure for a single score row.
type RowError struct {
	CriteriaCode string
	Err          error
}

func (e RowError) Error() string {
	return fmt.Sprintf("persist score %s: %v", e.CriteriaCode, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// PersistError collects row failures of one scoring run. Rows not listed were written.
type PersistError struct {
	Rows  []RowError
	Purge error
}

func (e *PersistError) Error() string {
	parts := make([]string, 0, len(e.Rows)+1)
	for _, row := range e.Rows {
		parts = append(parts, row.Error())
	}
	if e.Purge != nil {
		parts = append(parts, "purge stale scores: "+e.Purge.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *PersistError) Unwrap() []error {
	errs := make([]error, 0, len(e.Rows)+1)
	for _, row := range e.Rows {
		errs = append(errs, row)
	}
	if e.Purge != nil {
		errs = append(errs, e.Purge)
	}
	return errs
}

func (e *PersistError) empty() bool {
	return e == nil || (len(e.Rows) == 0 && e.Purge == nil)
}
