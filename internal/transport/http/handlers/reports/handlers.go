package reportshandler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"kpi/internal/domain/scoring"
	"kpi/internal/transport/http/api"
	"kpi/internal/transport/http/middleware"
	"kpi/internal/transport/http/shared"
)

type RankingRenderer interface {
	RankingPDF(ctx context.Context, period time.Time, filter scoring.SummaryFilter) ([]byte, error)
}

type Handler struct {
	Reports RankingRenderer
}

func NewHandler(reports RankingRenderer) *Handler {
	return &Handler{Reports: reports}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/ranking.pdf", h.handleRankingPDF)
	})
}

func (h *Handler) handleRankingPDF(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	q := r.URL.Query()
	v := shared.NewValidator()
	period, _ := v.Period("apply_date", q.Get("apply_date"))
	filter := scoring.SummaryFilter{
		Role: v.Enum("role", q.Get("role"), scoring.Roles, "must be one of Sale, KTV, Leader, Newbie"),
		Area: v.Enum("area", q.Get("area"), scoring.Areas, "must be one of HCM, HN"),
	}
	if v.Reject(w, reqID) {
		return
	}

	doc, err := h.Reports.RankingPDF(r.Context(), period, filter)
	if err != nil {
		slog.Error("ranking pdf failed", "err", err, "requestId", reqID, "applyDate", scoring.FormatPeriod(period))
		api.Fail(w, http.StatusInternalServerError, "report_failed", "failed to render report", reqID)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="kpi-ranking-`+scoring.FormatPeriod(period)+`.pdf"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(doc)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc); err != nil {
		slog.Warn("write ranking pdf failed", "err", err, "requestId", reqID)
	}
}
