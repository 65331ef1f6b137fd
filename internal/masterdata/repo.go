package masterdata

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates a lookup for a missing company or account.
var ErrNotFound = errors.New("masterdata: not found")

// Repository persists companies and chart-of-accounts rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates the masterdata repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListCompanies(ctx context.Context) ([]Company, error) {
	const query = `SELECT id, code, name, is_aggregate, created_at, updated_at FROM companies ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Aggregate, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

func (r *Repository) GetCompany(ctx context.Context, id int64) (Company, error) {
	const query = `SELECT id, code, name, is_aggregate, created_at, updated_at FROM companies WHERE id = $1`
	var c Company
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Code, &c.Name, &c.Aggregate, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, ErrNotFound
	}
	return c, err
}

func (r *Repository) CreateCompany(ctx context.Context, company Company) (Company, error) {
	const query = `INSERT INTO companies (code, name, is_aggregate, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4) RETURNING id`
	now := time.Now().UTC()
	if err := r.pool.QueryRow(ctx, query, company.Code, company.Name, company.Aggregate, now).Scan(&company.ID); err != nil {
		return Company{}, err
	}
	company.CreatedAt = now
	company.UpdatedAt = now
	return company, nil
}

func (r *Repository) UpdateCompany(ctx context.Context, id int64, company Company) error {
	const query = `UPDATE companies SET code = $1, name = $2, is_aggregate = $3, updated_at = $4 WHERE id = $5`
	tag, err := r.pool.Exec(ctx, query, company.Code, company.Name, company.Aggregate, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) DeleteCompany(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AggregateCompany returns the budget-carrying placeholder, if configured.
func (r *Repository) AggregateCompany(ctx context.Context) (Company, bool, error) {
	const query = `SELECT id, code, name, is_aggregate, created_at, updated_at FROM companies WHERE is_aggregate LIMIT 1`
	var c Company
	err := r.pool.QueryRow(ctx, query).Scan(&c.ID, &c.Code, &c.Name, &c.Aggregate, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Company{}, false, nil
	}
	if err != nil {
		return Company{}, false, err
	}
	return c, true, nil
}

func (r *Repository) ListAccounts(ctx context.Context) ([]Account, error) {
	const query = `SELECT id, COALESCE(account_code, ''), account_name, account_type, COALESCE(parent_category, ''), COALESCE(sub_category, ''), sort_order, is_header, created_at, updated_at
		FROM chart_of_accounts ORDER BY sort_order, id`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.AccountCode, &a.AccountName, &a.AccountType, &a.ParentCategory, &a.SubCategory, &a.SortOrder, &a.IsHeader, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ReplaceAccounts swaps the full chart of accounts in one transaction. The
// chart arrives as a complete document, so partial merges would leave stale
// ordering behind.
func (r *Repository) ReplaceAccounts(ctx context.Context, accounts []Account) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM chart_of_accounts`); err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"chart_of_accounts"},
		[]string{"account_code", "account_name", "account_type", "parent_category", "sub_category", "sort_order", "is_header", "created_at", "updated_at"},
		pgx.CopyFromSlice(len(accounts), func(i int) ([]any, error) {
			a := accounts[i]
			var code any
			if a.AccountCode != "" {
				code = a.AccountCode
			}
			return []any{code, a.AccountName, a.AccountType, a.ParentCategory, a.SubCategory, a.SortOrder, a.IsHeader, now, now}, nil
		}),
	)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}
