package shared

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidatorPeriod(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{name: "first of month", raw: "2026-01-01", want: "2026-01-01"},
		{name: "mid month", raw: "2026-01-15", want: "2026-01-01"},
		{name: "year month", raw: "2026-02", want: "2026-02-01"},
		{name: "empty", raw: "", wantErr: true},
		{name: "garbage", raw: "yesterday", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := NewValidator()
			got, ok := v.Period("applyDate", tc.raw)
			if tc.wantErr {
				if ok || !v.HasIssues() {
					t.Fatal("expected validation issue")
				}
				return
			}
			if !ok || v.HasIssues() {
				t.Fatalf("unexpected issues: %+v", v.Issues())
			}
			if got.Format("2006-01-02") != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.Format("2006-01-02"))
			}
		})
	}
}

func TestValidatorPositiveID(t *testing.T) {
	for _, raw := range []string{"", "0", "-3", "abc", "1.5"} {
		v := NewValidator()
		if _, ok := v.PositiveID("employeeId", raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
	v := NewValidator()
	id, ok := v.PositiveID("employeeId", " 42 ")
	if !ok || id != 42 {
		t.Fatalf("expected 42, got %d", id)
	}
}

func TestValidatorEnumReturnsCanonical(t *testing.T) {
	v := NewValidator()
	if got := v.Enum("role", "ktv", []string{"Sale", "KTV"}, "invalid role"); got != "KTV" {
		t.Fatalf("expected canonical KTV, got %q", got)
	}
	v.Enum("role", "Boss", []string{"Sale", "KTV"}, "invalid role")
	if len(v.Issues()) != 1 {
		t.Fatalf("expected one issue, got %+v", v.Issues())
	}
}

func TestValidatorFraction(t *testing.T) {
	v := NewValidator()
	v.Fraction("weight", decimal.RequireFromString("0.1"))
	v.Fraction("weight", decimal.RequireFromString("1"))
	if v.HasIssues() {
		t.Fatalf("unexpected issues %+v", v.Issues())
	}
	v.Fraction("weight", decimal.RequireFromString("1.01"))
	if !v.HasIssues() {
		t.Fatal("expected issue for weight above 1")
	}
}

func TestRejectWritesSortedIssues(t *testing.T) {
	v := NewValidator()
	v.Add("employeeId", "is required")
	v.Add("applyDate", "is required")

	rec := httptest.NewRecorder()
	if !v.Reject(rec, "req-9") {
		t.Fatal("expected rejection")
	}
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var env struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Fields []ValidationIssue `json:"fields"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Code != "validation_error" || len(env.Error.Details.Fields) != 2 || env.Error.Details.Fields[0].Field != "applyDate" {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestValidatorPage(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
		wantIssues []string
	}{
		{name: "defaults", query: "", wantLimit: 50},
		{name: "explicit", query: "limit=20&offset=40", wantLimit: 20, wantOffset: 40},
		{name: "capped", query: "limit=1000", wantLimit: 500},
		{name: "zero limit", query: "limit=0", wantLimit: 50, wantIssues: []string{"limit"}},
		{name: "text limit", query: "limit=ten", wantLimit: 50, wantIssues: []string{"limit"}},
		{name: "negative offset", query: "offset=-1", wantLimit: 50, wantIssues: []string{"offset"}},
		{name: "both bad", query: "limit=-5&offset=x", wantLimit: 50, wantIssues: []string{"limit", "offset"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q, err := url.ParseQuery(tc.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			v := NewValidator()
			page := v.Page(q, 50, 500)
			if page.Limit != tc.wantLimit || page.Offset != tc.wantOffset {
				t.Fatalf("expected limit %d offset %d, got %+v", tc.wantLimit, tc.wantOffset, page)
			}
			var fields []string
			for _, issue := range v.Issues() {
				fields = append(fields, issue.Field)
			}
			if len(fields) != len(tc.wantIssues) {
				t.Fatalf("expected issues on %v, got %+v", tc.wantIssues, v.Issues())
			}
			for i := range fields {
				if fields[i] != tc.wantIssues[i] {
					t.Fatalf("expected issues on %v, got %+v", tc.wantIssues, v.Issues())
				}
			}
		})
	}
}
