package reports

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"kpi/internal/domain/scoring"
)

type SummaryLister interface {
	Summaries(ctx context.Context, period time.Time, filter scoring.SummaryFilter) ([]scoring.Summary, error)
}

// Service renders the period ranking sheet from the persisted summaries.
type Service struct {
	summaries SummaryLister
	now       func() time.Time
}

func NewService(summaries SummaryLister) *Service {
	return &Service{summaries: summaries, now: time.Now}
}

var rankingColumns = []struct {
	title string
	width float64
}{
	{"Rank", 14},
	{"Code", 26},
	{"Name", 52},
	{"Role", 20},
	{"Area", 16},
	{"Team", 30},
	{"Score", 22},
}

// RankingPDF lists every summary of the period grouped by cohort in rank order.
func (s *Service) RankingPDF(ctx context.Context, period time.Time, filter scoring.SummaryFilter) ([]byte, error) {
	rows, err := s.summaries.Summaries(ctx, period, filter)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("KPI ranking "+scoring.FormatPeriod(period), false)
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "KPI ranking")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s", scoring.FormatPeriod(period)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Generated: %s", s.now().UTC().Format(time.RFC3339)))
	pdf.Ln(10)

	if len(rows) == 0 {
		pdf.Cell(0, 8, "No scores have been computed for this period.")
	}

	cohort := ""
	for _, row := range rows {
		if key := row.Role + " / " + row.Area; key != cohort {
			cohort = key
			pdf.Ln(2)
			pdf.SetFont("Helvetica", "B", 12)
			pdf.Cell(0, 8, "Cohort "+cohort)
			pdf.Ln(8)
			pdf.SetFont("Helvetica", "B", 10)
			for _, col := range rankingColumns {
				pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", false, 0, "")
			}
			pdf.Ln(-1)
			pdf.SetFont("Helvetica", "", 10)
		}
		rank := "-"
		if row.Rank != nil {
			rank = fmt.Sprintf("%d", *row.Rank)
		}
		cells := []string{rank, row.EmployeeCode, tr(row.ShortName), row.Role, row.Area, tr(row.Team), row.OverallScore.StringFixed(3)}
		for i, col := range rankingColumns {
			align := "L"
			if i == 0 || i == len(rankingColumns)-1 {
				align = "R"
			}
			pdf.CellFormat(col.width, 7, cells[i], "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
