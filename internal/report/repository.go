package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository provides the pgx-backed implementations of FactStore,
// DimensionStore and EntityStore.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a report repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ErrNoFacts indicates an empty fact table for the requested filters.
var ErrNoFacts = errors.New("report: no facts found")

// List returns all reporting entities ordered by name.
func (r *Repository) List(ctx context.Context) ([]Entity, error) {
	const query = `SELECT id, code, name, is_aggregate FROM companies ORDER BY name`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entities []Entity
	for rows.Next() {
		var e Entity
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.Aggregate); err != nil {
			return nil, err
		}
		entities = append(entities, e)
	}
	return entities, rows.Err()
}

// ListByTypes returns chart-of-accounts records for the given account types,
// ordered by sort key.
func (r *Repository) ListByTypes(ctx context.Context, accountTypes []string) ([]DimensionRecord, error) {
	const query = `SELECT id, COALESCE(account_code, ''), account_name, account_type, COALESCE(sub_category, ''), sort_order, is_header
		FROM chart_of_accounts
		WHERE account_type = ANY($1)
		ORDER BY sort_order`
	rows, err := r.pool.Query(ctx, query, accountTypes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dims []DimensionRecord
	for rows.Next() {
		var d DimensionRecord
		if err := rows.Scan(&d.ID, &d.AccountCode, &d.AccountName, &d.AccountType, &d.SubCategory, &d.SortOrder, &d.IsHeader); err != nil {
			return nil, err
		}
		dims = append(dims, d)
	}
	return dims, rows.Err()
}

// Periods returns the distinct fact months matching the query, ascending.
func (r *Repository) Periods(ctx context.Context, q PeriodQuery) ([]time.Time, error) {
	sql, args := buildPeriodQuery(q)
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []time.Time
	for rows.Next() {
		var p time.Time
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		periods = append(periods, p)
	}
	return periods, rows.Err()
}

func buildPeriodQuery(q PeriodQuery) (string, []any) {
	conditions := []string{"f.data_type = $1"}
	args := []any{string(q.DataType)}
	if len(q.AccountCodes) > 0 {
		args = append(args, q.AccountCodes)
		conditions = append(conditions, fmt.Sprintf("f.account_code = ANY($%d)", len(args)))
	}
	if len(q.EntityIDs) > 0 {
		args = append(args, q.EntityIDs)
		conditions = append(conditions, fmt.Sprintf("f.company_id = ANY($%d)", len(args)))
	}
	if !q.Start.IsZero() {
		args = append(args, q.Start)
		conditions = append(conditions, fmt.Sprintf("f.period >= $%d", len(args)))
	}
	if !q.End.IsZero() {
		args = append(args, q.End)
		conditions = append(conditions, fmt.Sprintf("f.period < $%d", len(args)))
	}
	sql := "SELECT DISTINCT f.period FROM financial_facts f WHERE " +
		strings.Join(conditions, " AND ") + " ORDER BY f.period"
	return sql, args
}

// Facts loads the matching fact rows joined with their entity codes.
func (r *Repository) Facts(ctx context.Context, q FactQuery) ([]Fact, error) {
	conditions := []string{"f.data_type = $1"}
	args := []any{string(q.DataType)}
	if len(q.AccountCodes) > 0 {
		args = append(args, q.AccountCodes)
		conditions = append(conditions, fmt.Sprintf("f.account_code = ANY($%d)", len(args)))
	}
	if len(q.EntityIDs) > 0 {
		args = append(args, q.EntityIDs)
		conditions = append(conditions, fmt.Sprintf("f.company_id = ANY($%d)", len(args)))
	}
	if len(q.Periods) > 0 {
		args = append(args, q.Periods)
		conditions = append(conditions, fmt.Sprintf("f.period = ANY($%d)", len(args)))
	}
	sql := `SELECT f.company_id, c.code, f.account_code, f.period, f.amount, f.data_type
		FROM financial_facts f
		JOIN companies c ON c.id = f.company_id
		WHERE ` + strings.Join(conditions, " AND ") + `
		ORDER BY f.period, c.code, f.account_code`

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []Fact
	for rows.Next() {
		var f Fact
		var amount decimal.Decimal
		var dataType string
		if err := rows.Scan(&f.EntityID, &f.EntityCode, &f.AccountCode, &f.Period, &amount, &dataType); err != nil {
			return nil, err
		}
		f.Amount = amount
		f.DataType = DataType(dataType)
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// AvailableRange reports the first and last fact months for the account
// universe, used for the "data exists between X and Y" hint on empty
// results.
func (r *Repository) AvailableRange(ctx context.Context, accountCodes []string) (PeriodRange, bool, error) {
	const query = `SELECT MIN(period), MAX(period) FROM financial_facts WHERE account_code = ANY($1)`
	var start, end *time.Time
	if err := r.pool.QueryRow(ctx, query, accountCodes).Scan(&start, &end); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PeriodRange{}, false, nil
		}
		return PeriodRange{}, false, err
	}
	if start == nil || end == nil {
		return PeriodRange{}, false, nil
	}
	return PeriodRange{Start: *start, End: *end}, true, nil
}
