package shared

import (
	"net/url"
	"strconv"
	"strings"
)

// Page is a limit/offset window over a list endpoint.
type Page struct {
	Limit  int
	Offset int
}

// Page reads limit and offset from q. Missing values fall back to
// defaultLimit and 0; a limit above maxLimit is capped. Values that are not
// integers, a non-positive limit or a negative offset are reported as issues.
func (v *Validator) Page(q url.Values, defaultLimit, maxLimit int) Page {
	page := Page{Limit: defaultLimit}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			v.Add("limit", "must be a positive integer")
		} else {
			page.Limit = n
		}
	}
	if raw := strings.TrimSpace(q.Get("offset")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			v.Add("offset", "must be a non-negative integer")
		} else {
			page.Offset = n
		}
	}
	if maxLimit > 0 && page.Limit > maxLimit {
		page.Limit = maxLimit
	}
	return page
}
