// Package http exposes the consolidated report endpoints: JSON grid data for
// the Profit & Loss and Balance Sheet pivots plus rate-limited CSV and XLSX
// exports.
package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/finconsol/finconsol/internal/platform/httpx"
	"github.com/finconsol/finconsol/internal/report"
)

// Builder is the engine surface the handler consumes.
type Builder interface {
	ProfitLoss(ctx context.Context, req report.Request) (*report.Report, error)
	BalanceSheet(ctx context.Context, req report.Request) (*report.Report, error)
}

// Handler wires HTTP interactions for the consolidated reports.
type Handler struct {
	logger    *slog.Logger
	builder   Builder
	cache     *report.Cache
	rateLimit func(http.Handler) http.Handler
}

// NewHandler constructs a report handler. Exports share a per-client rate
// limit keyed by remote IP.
func NewHandler(logger *slog.Logger, builder Builder, cache *report.Cache) *Handler {
	limiter := httprate.Limit(10, time.Minute, httprate.WithKeyFuncs(func(r *http.Request) (string, error) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			return "ip:" + r.RemoteAddr, nil
		}
		return "ip:" + host, nil
	}))
	return &Handler{logger: logger, builder: builder, cache: cache, rateLimit: limiter}
}

// MountRoutes registers the report endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/reports", func(r chi.Router) {
		r.Get("/pl/data", h.HandleProfitLossData)
		r.Get("/bs/data", h.HandleBalanceSheetData)
		r.Group(func(r chi.Router) {
			r.Use(h.rateLimit)
			r.Get("/pl/export.csv", h.exportCSV("pl"))
			r.Get("/bs/export.csv", h.exportCSV("bs"))
			r.Get("/pl/export.xlsx", h.exportXLSX("pl"))
			r.Get("/bs/export.xlsx", h.exportXLSX("bs"))
		})
	})
}

// HandleProfitLossData serves the P&L grid payload.
func (h *Handler) HandleProfitLossData(w http.ResponseWriter, r *http.Request) {
	h.handleData(w, r, "pl")
}

// HandleBalanceSheetData serves the balance sheet grid payload.
func (h *Handler) HandleBalanceSheetData(w http.ResponseWriter, r *http.Request) {
	h.handleData(w, r, "bs")
}

func (h *Handler) handleData(w http.ResponseWriter, r *http.Request, statement string) {
	result, ok := h.buildReport(w, r, statement)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// buildReport parses filters and builds the requested statement through the
// cache and a singleflight group, so concurrent identical requests share one
// engine run.
func (h *Handler) buildReport(w http.ResponseWriter, r *http.Request, statement string) (*report.Report, bool) {
	req, errs := parseFilters(r)
	if len(errs) > 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid report filters", strings.Join(errs, "; "))
		return nil, false
	}

	ctx := r.Context()
	key, err := h.cache.Key(ctx, statement, req)
	if err != nil {
		h.logger.Error("report cache key", slog.String("statement", statement), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Report build failed", "")
		return nil, false
	}

	result, err := singleflightBuild(ctx, key, func(ctx context.Context) (*report.Report, error) {
		return h.cache.Fetch(ctx, key, func(ctx context.Context) (*report.Report, error) {
			if statement == "bs" {
				return h.builder.BalanceSheet(ctx, req)
			}
			return h.builder.ProfitLoss(ctx, req)
		})
	})
	if err != nil {
		h.logger.Error("build report", slog.String("statement", statement), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Report build failed", "")
		return nil, false
	}
	return result, true
}

// parseFilters reads the query string into a report request. Range bounds
// pass through as raw strings because the engine treats unparseable bounds as
// unbounded; only the stream selector and the dual-stream switch can fail
// validation here.
func parseFilters(r *http.Request) (report.Request, []string) {
	q := r.URL.Query()
	var errs []string

	req := report.Request{
		FromMonth: strings.TrimSpace(q.Get("from_month")),
		FromYear:  strings.TrimSpace(q.Get("from_year")),
		ToMonth:   strings.TrimSpace(q.Get("to_month")),
		ToYear:    strings.TrimSpace(q.Get("to_year")),
	}

	dt := strings.ToLower(strings.TrimSpace(q.Get("data_type")))
	if dt == "" {
		req.DataType = report.DataTypeActual
	} else {
		req.DataType = report.DataType(dt)
		if !req.DataType.Valid() {
			errs = append(errs, "data_type must be actual, budget or forecast")
		}
	}

	switch strings.ToLower(strings.TrimSpace(q.Get("dual_stream"))) {
	case "", "0", "false", "off":
	case "1", "true", "on":
		req.DualStream = true
	default:
		errs = append(errs, "dual_stream must be a boolean")
	}

	return req, errs
}
