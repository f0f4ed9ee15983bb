package scoring

import "time"

const periodLayout = "2006-01-02"

// NormalizePeriod truncates t to the first day of its month at UTC midnight.
func NormalizePeriod(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// FormatPeriod renders a period as the YYYY-MM-DD literal used in expressions.
func FormatPeriod(period time.Time) string {
	return NormalizePeriod(period).Format(periodLayout)
}

// ParsePeriod accepts YYYY-MM-DD, YYYY-MM or RFC3339 and normalises to the first of the month.
func ParsePeriod(raw string) (time.Time, error) {
	for _, layout := range []string{periodLayout, "2006-01", time.RFC3339} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return NormalizePeriod(parsed), nil
		}
	}
	return time.Time{}, ErrInvalidPeriod
}
