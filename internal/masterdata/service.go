package masterdata

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/finconsol/finconsol/internal/ingest"
)

// CacheBuster invalidates report caches after reference data changes.
type CacheBuster interface {
	Bump(ctx context.Context) error
}

// Store is the persistence surface the service consumes.
type Store interface {
	ListCompanies(ctx context.Context) ([]Company, error)
	GetCompany(ctx context.Context, id int64) (Company, error)
	CreateCompany(ctx context.Context, company Company) (Company, error)
	UpdateCompany(ctx context.Context, id int64, company Company) error
	DeleteCompany(ctx context.Context, id int64) error
	AggregateCompany(ctx context.Context) (Company, bool, error)
	ListAccounts(ctx context.Context) ([]Account, error)
	ReplaceAccounts(ctx context.Context, accounts []Account) error
}

// Service applies validation and import rules on top of the repository.
type Service struct {
	logger   *slog.Logger
	repo     Store
	validate *validator.Validate
	cache    CacheBuster
	titles   cases.Caser
}

// NewService creates the masterdata service. Cache is optional.
func NewService(logger *slog.Logger, repo Store, cache CacheBuster) *Service {
	return &Service{
		logger:   logger,
		repo:     repo,
		validate: validator.New(),
		cache:    cache,
		titles:   cases.Title(language.English),
	}
}

func (s *Service) ListCompanies(ctx context.Context) ([]Company, error) {
	return s.repo.ListCompanies(ctx)
}

func (s *Service) GetCompany(ctx context.Context, id int64) (Company, error) {
	if id <= 0 {
		return Company{}, ErrNotFound
	}
	return s.repo.GetCompany(ctx, id)
}

func (s *Service) CreateCompany(ctx context.Context, company Company) (Company, error) {
	company.Code = strings.ToUpper(strings.TrimSpace(company.Code))
	company.Name = strings.TrimSpace(company.Name)
	if err := s.validate.Struct(company); err != nil {
		return Company{}, fmt.Errorf("masterdata: invalid company: %w", err)
	}
	if err := s.ensureSingleAggregate(ctx, company, 0); err != nil {
		return Company{}, err
	}
	return s.repo.CreateCompany(ctx, company)
}

func (s *Service) UpdateCompany(ctx context.Context, id int64, company Company) error {
	if id <= 0 {
		return ErrNotFound
	}
	company.Code = strings.ToUpper(strings.TrimSpace(company.Code))
	company.Name = strings.TrimSpace(company.Name)
	if err := s.validate.Struct(company); err != nil {
		return fmt.Errorf("masterdata: invalid company: %w", err)
	}
	if err := s.ensureSingleAggregate(ctx, company, id); err != nil {
		return err
	}
	return s.repo.UpdateCompany(ctx, id, company)
}

func (s *Service) DeleteCompany(ctx context.Context, id int64) error {
	if id <= 0 {
		return ErrNotFound
	}
	return s.repo.DeleteCompany(ctx, id)
}

// ensureSingleAggregate rejects a second aggregate placeholder; the report
// engine treats the aggregate's figures as the whole group's plan, so two of
// them would double-count.
func (s *Service) ensureSingleAggregate(ctx context.Context, company Company, selfID int64) error {
	if !company.Aggregate {
		return nil
	}
	existing, ok, err := s.repo.AggregateCompany(ctx)
	if err != nil {
		return err
	}
	if ok && existing.ID != selfID {
		return fmt.Errorf("masterdata: aggregate company already exists (%s)", existing.Code)
	}
	return nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]Account, error) {
	return s.repo.ListAccounts(ctx)
}

// ImportResult reports what a chart-of-accounts import did.
type ImportResult struct {
	Imported  int      `json:"imported"`
	Skipped   int      `json:"skipped"`
	RowErrors []string `json:"row_errors,omitempty"`
}

// Expected chart-of-accounts spreadsheet columns, in order.
const coaColumnCount = 6

// ImportAccounts replaces the chart of accounts from a spreadsheet table of
// sort order, account code, account name, account type, parent category and
// sub category. Rows without a name are skipped. Headerless rows (no code,
// or a HEADER/TOTAL type) become structural header rows.
func (s *Service) ImportAccounts(ctx context.Context, table [][]string) (*ImportResult, error) {
	if len(table) < 2 {
		return &ImportResult{RowErrors: []string{"file has no data rows"}}, nil
	}
	if len(table[0]) < coaColumnCount {
		return nil, fmt.Errorf("masterdata: file must have at least %d columns, found %d", coaColumnCount, len(table[0]))
	}

	result := &ImportResult{}
	var accounts []Account
	for i, row := range table[1:] {
		rowNum := i + 2
		if emptyRow(row) {
			continue
		}
		cell := func(idx int) string {
			if idx < len(row) {
				return strings.TrimSpace(row[idx])
			}
			return ""
		}

		sortOrder := 0
		if raw := cell(0); raw != "" {
			n, err := strconv.Atoi(ingest.NormalizeAccountCode(raw))
			if err != nil {
				result.RowErrors = append(result.RowErrors, fmt.Sprintf("Row %d: sort order %q is not a number", rowNum, raw))
				continue
			}
			sortOrder = n
		}

		code := ingest.NormalizeAccountCode(cell(1))
		name := cell(2)
		if name == "" {
			result.Skipped++
			continue
		}
		accountType := strings.ToUpper(cell(3))
		isHeader := code == "" || accountType == "" || accountType == "HEADER" || accountType == "TOTAL"

		accounts = append(accounts, Account{
			AccountCode:    code,
			AccountName:    s.displayName(name, isHeader),
			AccountType:    accountType,
			ParentCategory: cell(4),
			SubCategory:    cell(5),
			SortOrder:      sortOrder,
			IsHeader:       isHeader,
		})
	}

	if len(accounts) == 0 {
		return result, nil
	}
	if err := s.repo.ReplaceAccounts(ctx, accounts); err != nil {
		return nil, fmt.Errorf("masterdata: replace chart of accounts: %w", err)
	}
	result.Imported = len(accounts)

	if s.cache != nil {
		if err := s.cache.Bump(ctx); err != nil {
			s.logger.Warn("bump report cache", slog.Any("error", err))
		}
	}
	return result, nil
}

// displayName title-cases shouty leaf names from accounting exports; header
// rows keep their casing because the reports render them as-is.
func (s *Service) displayName(name string, isHeader bool) string {
	if isHeader || name != strings.ToUpper(name) {
		return name
	}
	return s.titles.String(strings.ToLower(name))
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
