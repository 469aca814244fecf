// Package statshttp serves cabinet statistics over HTTP.
package statshttp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/medcabinet/cabinet/internal/export"
	"github.com/medcabinet/cabinet/internal/platform/httpx"
	"github.com/medcabinet/cabinet/internal/rbac"
	"github.com/medcabinet/cabinet/internal/shared"
	"github.com/medcabinet/cabinet/internal/statistics"
	statsexport "github.com/medcabinet/cabinet/internal/statistics/export"
)

const dateLayout = "2006-01-02"

const requestTimeout = 2 * time.Second

var errBadFilter = errors.New("statistics: invalid filter")

// StatisticsService defines the aggregator contract used by the handler.
type StatisticsService interface {
	GetCabinetStatistics(ctx context.Context, q statistics.Query) (statistics.CabinetStatistics, error)
	ConsultationsByDoctor(ctx context.Context, q statistics.Query) ([]statistics.DoctorCount, error)
	WeeklyAttendance(ctx context.Context, q statistics.Query) ([]statistics.DayCount, error)
	RevenueEvolution(ctx context.Context, q statistics.Query) ([]statistics.RevenuePoint, error)
	ConsultationEvolution(ctx context.Context, q statistics.Query) ([]statistics.CountPoint, error)
}

// Handler coordinates HTTP requests for the statistics dashboard.
type Handler struct {
	logger  *slog.Logger
	service StatisticsService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler constructs the statistics HTTP handler.
func NewHandler(logger *slog.Logger, service StatisticsService, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, now: time.Now}
}

// WithNow overrides the handler clock for testing.
func (h *Handler) WithNow(fn func() time.Time) {
	if fn != nil {
		h.now = fn
	}
}

// MountRoutes registers statistics routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny(shared.RoleAdmin, shared.RoleDoctor))
		r.Get("/statistics", h.handleSummary)
		r.Get("/statistics/doctors", h.handleDoctors)
		r.Get("/statistics/weekly", h.handleWeekly)
		r.Get("/statistics/evolution", h.handleEvolution)
		r.Get("/statistics/export.csv", h.handleExport)
	})
}

type evolution struct {
	Revenue       []statistics.RevenuePoint `json:"revenus"`
	Consultations []statistics.CountPoint   `json:"consultations"`
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	stats, err := h.service.GetCabinetStatistics(ctx, q)
	if err != nil {
		h.handleServerError(w, "load statistics", err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) handleDoctors(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	rows, err := h.service.ConsultationsByDoctor(r.Context(), q)
	if err != nil {
		h.handleServerError(w, "consultations by doctor", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) handleWeekly(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	rows, err := h.service.WeeklyAttendance(r.Context(), q)
	if err != nil {
		h.handleServerError(w, "weekly attendance", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func (h *Handler) handleEvolution(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	revenue, err := h.service.RevenueEvolution(r.Context(), q)
	if err != nil {
		h.handleServerError(w, "revenue evolution", err)
		return
	}
	counts, err := h.service.ConsultationEvolution(r.Context(), q)
	if err != nil {
		h.handleServerError(w, "consultation evolution", err)
		return
	}
	httpx.JSON(w, http.StatusOK, evolution{Revenue: revenue, Consultations: counts})
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	q, ok := h.query(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()
	stats, err := h.service.GetCabinetStatistics(ctx, q)
	if err != nil {
		h.handleServerError(w, "load statistics", err)
		return
	}
	name := export.DatedFilename("csv", h.now(), "statistiques", string(q.Period))
	doc, err := export.CSV(name, func(out io.Writer) error {
		return statsexport.WriteStatisticsCSV(out, stats, q.Period)
	})
	if err != nil {
		h.handleServerError(w, "export statistics", err)
		return
	}
	if err := export.Write(w, doc); err != nil {
		h.logger.Warn("write statistics export", slog.Any("error", err))
	}
}

// query parses period, start and end. Dates are read in the clock location.
func (h *Handler) query(w http.ResponseWriter, r *http.Request) (statistics.Query, bool) {
	q, err := parseQuery(r, h.now().Location())
	if err != nil {
		httpx.ValidationProblem(w, err.Error(), nil)
		return statistics.Query{}, false
	}
	return q, true
}

func parseQuery(r *http.Request, loc *time.Location) (statistics.Query, error) {
	values := r.URL.Query()
	period, ok := statistics.ParsePeriod(values.Get("period"))
	if !ok {
		return statistics.Query{}, fmt.Errorf("%w: unknown period %q", errBadFilter, values.Get("period"))
	}
	q := statistics.Query{Period: period}
	for _, field := range []struct {
		key string
		dst **time.Time
	}{{"start", &q.CustomStart}, {"end", &q.CustomEnd}} {
		raw := strings.TrimSpace(values.Get(field.key))
		if raw == "" {
			continue
		}
		t, err := time.ParseInLocation(dateLayout, raw, loc)
		if err != nil {
			return statistics.Query{}, fmt.Errorf("%w: %s must be YYYY-MM-DD", errBadFilter, field.key)
		}
		*field.dst = &t
	}
	return q, nil
}

func (h *Handler) handleServerError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
