package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UploadStatus classifies the outcome of a facts upload.
type UploadStatus string

const (
	StatusSuccess            UploadStatus = "success"
	StatusError              UploadStatus = "error"
	StatusConfirmationNeeded UploadStatus = "confirmation_needed"
)

// UploadInput carries the non-file parameters of a facts upload.
type UploadInput struct {
	EntityID         int64  `validate:"required,gt=0"`
	DataType         string `validate:"required,oneof=actual budget forecast"`
	Filename         string `validate:"required"`
	ConfirmOverwrite bool
	UploadedBy       string
}

// UploadResult reports what an upload did. RowErrors collects per-row
// failures that did not abort the upload, such as unknown account codes.
type UploadResult struct {
	Status          UploadStatus `json:"status"`
	Message         string       `json:"message"`
	Inserted        int          `json:"inserted"`
	Periods         int          `json:"periods"`
	ExistingPeriods []string     `json:"existing_periods,omitempty"`
	RowErrors       []string     `json:"row_errors,omitempty"`
	BackupID        *uuid.UUID   `json:"backup_id,omitempty"`
}

// FactRow is one parsed fact ready for insertion.
type FactRow struct {
	AccountCode string
	Period      time.Time
	Amount      decimal.Decimal
}

// ReplaceInput is the unit of work for the backup-then-replace write: back up
// and delete only the uploaded account codes in the already-populated
// periods, then insert the new rows.
type ReplaceInput struct {
	EntityID     int64
	DataType     string
	Periods      []time.Time
	PeriodLabels []string
	AccountCodes []string
	Facts        []FactRow
	UploadedBy   string
	Description  string
}

// Store is the persistence surface the upload flow consumes.
type Store interface {
	KnownAccountCodes(ctx context.Context, codes []string) (map[string]struct{}, error)
	ExistingPeriods(ctx context.Context, entityID int64, dataType string, periods []time.Time) ([]time.Time, error)
	Replace(ctx context.Context, in ReplaceInput) (*uuid.UUID, error)
	Restore(ctx context.Context, backupID uuid.UUID) (int, error)
}

// CacheBuster invalidates cached report payloads after a successful write.
type CacheBuster interface {
	Bump(ctx context.Context) error
}

// Warmer schedules a background rebuild of the report cache.
type Warmer interface {
	EnqueueWarmup(ctx context.Context) error
}

// Service runs uploads end to end: parse, validate against the chart of
// accounts, back up and replace, then invalidate caches.
type Service struct {
	logger   *slog.Logger
	store    Store
	validate *validator.Validate
	cache    CacheBuster
	warmer   Warmer
}

// NewService constructs the ingest service. Cache and warmer are optional.
func NewService(logger *slog.Logger, store Store, cache CacheBuster, warmer Warmer) *Service {
	return &Service{
		logger:   logger,
		store:    store,
		validate: validator.New(),
		cache:    cache,
		warmer:   warmer,
	}
}

type periodColumn struct {
	index  int
	label  string
	period time.Time
}

// UploadFacts ingests one spreadsheet of monetary facts for an entity and
// stream. Existing data in the touched periods triggers a confirmation
// round-trip unless the caller already confirmed the overwrite.
func (s *Service) UploadFacts(ctx context.Context, in UploadInput, table [][]string) (*UploadResult, error) {
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("ingest: invalid upload input: %w", err)
	}
	if len(table) == 0 || len(table[0]) < 2 {
		return &UploadResult{
			Status:  StatusError,
			Message: "File must have at least 2 columns: account code and at least one period column.",
		}, nil
	}

	header := table[0]
	var periodCols []periodColumn
	var headerErrors []string
	for i, col := range header[1:] {
		label := strings.TrimSpace(col)
		if label == "" {
			continue
		}
		if p, ok := ParsePeriodHeader(label); ok {
			periodCols = append(periodCols, periodColumn{index: i + 1, label: label, period: p})
			continue
		}
		// Skipped columns surface by their literal header text; their cells
		// are not ingested.
		headerErrors = append(headerErrors, fmt.Sprintf("Column %q could not be parsed as a period", label))
	}
	if len(periodCols) == 0 {
		return &UploadResult{
			Status:    StatusError,
			Message:   `No valid period columns found. Column headers must look like "Jan-24" or "2024-01".`,
			RowErrors: headerErrors,
		}, nil
	}

	codes := collectAccountCodes(table[1:])
	if len(codes) == 0 {
		return &UploadResult{Status: StatusError, Message: "No account codes found in the first column."}, nil
	}

	periods := make([]time.Time, 0, len(periodCols))
	for _, pc := range periodCols {
		periods = append(periods, pc.period)
	}
	existing, err := s.store.ExistingPeriods(ctx, in.EntityID, in.DataType, periods)
	if err != nil {
		return nil, fmt.Errorf("ingest: check existing periods: %w", err)
	}
	existingLabels := labelsFor(periodCols, existing)
	if len(existing) > 0 && !in.ConfirmOverwrite {
		return &UploadResult{
			Status:          StatusConfirmationNeeded,
			Message:         fmt.Sprintf("Data already exists for periods: %s. Confirm to overwrite.", strings.Join(existingLabels, ", ")),
			ExistingPeriods: existingLabels,
		}, nil
	}

	known, err := s.store.KnownAccountCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("ingest: load chart of accounts: %w", err)
	}

	var facts []FactRow
	rowErrors := headerErrors
	for i, row := range table[1:] {
		rowNum := i + 2
		if len(row) == 0 {
			continue
		}
		code := NormalizeAccountCode(row[0])
		if code == "" {
			continue
		}
		if _, ok := known[code]; !ok {
			rowErrors = append(rowErrors, fmt.Sprintf("Row %d: account code %q not found in chart of accounts", rowNum, code))
			continue
		}
		for _, pc := range periodCols {
			if pc.index >= len(row) {
				continue
			}
			amount, ok := CleanAmount(row[pc.index])
			if !ok {
				continue
			}
			facts = append(facts, FactRow{AccountCode: code, Period: pc.period, Amount: amount})
		}
	}
	if len(facts) == 0 {
		return &UploadResult{
			Status:    StatusError,
			Message:   "No valid data was uploaded. Check the file format.",
			RowErrors: rowErrors,
		}, nil
	}

	backupID, err := s.store.Replace(ctx, ReplaceInput{
		EntityID:     in.EntityID,
		DataType:     in.DataType,
		Periods:      existing,
		PeriodLabels: existingLabels,
		AccountCodes: codes,
		Facts:        facts,
		UploadedBy:   in.UploadedBy,
		Description:  fmt.Sprintf("Backup before upload of %s on %s", in.Filename, time.Now().UTC().Format("2006-01-02 15:04")),
	})
	if err != nil {
		return nil, fmt.Errorf("ingest: replace facts: %w", err)
	}

	s.invalidate(ctx)

	msg := fmt.Sprintf("Successfully uploaded %d records for %d periods.", len(facts), len(periodCols))
	if backupID != nil {
		msg += " Backup created for overwritten data."
	}
	if len(rowErrors) > 0 {
		msg += fmt.Sprintf(" Encountered %d errors.", len(rowErrors))
	}
	return &UploadResult{
		Status:          StatusSuccess,
		Message:         msg,
		Inserted:        len(facts),
		Periods:         len(periodCols),
		ExistingPeriods: existingLabels,
		RowErrors:       rowErrors,
		BackupID:        backupID,
	}, nil
}

// RestoreBackup puts a previous snapshot back in place of the rows that
// replaced it.
func (s *Service) RestoreBackup(ctx context.Context, backupID uuid.UUID) (int, error) {
	restored, err := s.store.Restore(ctx, backupID)
	if err != nil {
		return 0, fmt.Errorf("ingest: restore backup %s: %w", backupID, err)
	}
	s.invalidate(ctx)
	return restored, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
	if s.warmer != nil {
		if err := s.warmer.EnqueueWarmup(ctx); err != nil {
			s.logger.Warn("enqueue report warmup", slog.Any("error", err))
		}
	}
}

func collectAccountCodes(rows [][]string) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		code := NormalizeAccountCode(row[0])
		if code == "" {
			continue
		}
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

func labelsFor(cols []periodColumn, periods []time.Time) []string {
	if len(periods) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(periods))
	for _, p := range periods {
		set[p.Format("2006-01")] = struct{}{}
	}
	var labels []string
	for _, pc := range cols {
		if _, ok := set[pc.period.Format("2006-01")]; ok {
			labels = append(labels, pc.label)
		}
	}
	return labels
}
