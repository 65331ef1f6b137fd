package masterdata

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/finconsol/finconsol/internal/ingest"
	"github.com/finconsol/finconsol/internal/platform/httpx"
)

const maxUploadBytes = 16 << 20

// Handler manages the company and chart-of-accounts endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/companies", h.listCompanies)
	r.Post("/companies", h.createCompany)
	r.Get("/companies/{id}", h.getCompany)
	r.Put("/companies/{id}", h.updateCompany)
	r.Delete("/companies/{id}", h.deleteCompany)

	r.Get("/accounts", h.listAccounts)
	r.Post("/uploads/chart-of-accounts", h.uploadAccounts)
}

func (h *Handler) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.service.ListCompanies(r.Context())
	if err != nil {
		h.logger.Error("list companies", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Failed to list companies", "")
		return
	}
	httpx.JSON(w, http.StatusOK, companies)
}

func (h *Handler) getCompany(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid company id", "")
		return
	}
	company, err := h.service.GetCompany(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Company not found", "")
			return
		}
		h.logger.Error("get company", slog.Int64("id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Failed to load company", "")
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) createCompany(w http.ResponseWriter, r *http.Request) {
	var company Company
	if err := httpx.DecodeJSON(r, &company); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid company payload", "")
		return
	}
	created, err := h.service.CreateCompany(r.Context(), company)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Could not create company", err.Error())
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateCompany(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid company id", "")
		return
	}
	var company Company
	if err := httpx.DecodeJSON(r, &company); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid company payload", "")
		return
	}
	if err := h.service.UpdateCompany(r.Context(), id, company); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Company not found", "")
			return
		}
		httpx.Problem(w, http.StatusBadRequest, "Could not update company", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (h *Handler) deleteCompany(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid company id", "")
		return
	}
	if err := h.service.DeleteCompany(r.Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Company not found", "")
			return
		}
		h.logger.Error("delete company", slog.Int64("id", id), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Failed to delete company", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.service.ListAccounts(r.Context())
	if err != nil {
		h.logger.Error("list accounts", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Failed to list accounts", "")
		return
	}
	httpx.JSON(w, http.StatusOK, accounts)
}

func (h *Handler) uploadAccounts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", "request is not a valid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	table, err := ingest.ParseTable(header.Filename, file)
	if err != nil {
		h.logger.Warn("parse chart of accounts upload", slog.String("file", header.Filename), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", "could not parse the uploaded file")
		return
	}

	result, err := h.service.ImportAccounts(r.Context(), table)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Import failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
