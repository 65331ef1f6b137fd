// Package http exposes the upload endpoints for monetary facts and their
// backup restore operation.
package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/finconsol/finconsol/internal/ingest"
	"github.com/finconsol/finconsol/internal/platform/httpx"
)

const maxUploadBytes = 32 << 20

// Handler wires the facts upload endpoints.
type Handler struct {
	logger  *slog.Logger
	service *ingest.Service
}

// NewHandler constructs an upload handler.
func NewHandler(logger *slog.Logger, service *ingest.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers the upload endpoints.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/uploads/facts", h.HandleUploadFacts)
	r.Post("/uploads/backups/{backupID}/restore", h.HandleRestoreBackup)
}

// HandleUploadFacts ingests one spreadsheet of facts for a company and
// stream. Responses mirror the service result: success, error or a
// confirmation request when existing periods would be overwritten.
func (h *Handler) HandleUploadFacts(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", "request is not a valid multipart form")
		return
	}

	entityID, err := strconv.ParseInt(strings.TrimSpace(r.FormValue("company")), 10, 64)
	if err != nil || entityID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", "company must be a valid id")
		return
	}
	dataType := strings.ToLower(strings.TrimSpace(r.FormValue("data_type")))
	if dataType == "" {
		dataType = "actual"
	}
	confirm := false
	switch strings.ToLower(strings.TrimSpace(r.FormValue("confirm_overwrite"))) {
	case "1", "true", "on", "yes":
		confirm = true
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", "file field is required")
		return
	}
	defer func() { _ = file.Close() }()

	table, err := ingest.ParseTable(header.Filename, file)
	if err != nil {
		h.logger.Warn("parse upload", slog.String("file", header.Filename), slog.Any("error", err))
		httpx.Problem(w, http.StatusBadRequest, "Invalid upload", "could not parse the uploaded file")
		return
	}

	result, err := h.service.UploadFacts(r.Context(), ingest.UploadInput{
		EntityID:         entityID,
		DataType:         dataType,
		Filename:         header.Filename,
		ConfirmOverwrite: confirm,
		UploadedBy:       strings.TrimSpace(r.FormValue("uploaded_by")),
	}, table)
	if err != nil {
		h.logger.Error("upload facts", slog.Int64("company", entityID), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Upload failed", "")
		return
	}

	status := http.StatusOK
	if result.Status == ingest.StatusConfirmationNeeded {
		status = http.StatusConflict
	}
	httpx.JSON(w, status, result)
}

// HandleRestoreBackup reinstates a snapshot created by an earlier upload.
func (h *Handler) HandleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	backupID, err := uuid.Parse(chi.URLParam(r, "backupID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid backup id", "")
		return
	}
	restored, err := h.service.RestoreBackup(r.Context(), backupID)
	if err != nil {
		if errors.Is(err, ingest.ErrBackupNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Backup not found", "")
			return
		}
		h.logger.Error("restore backup", slog.String("backup", backupID.String()), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Restore failed", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "success", "restored": restored})
}
