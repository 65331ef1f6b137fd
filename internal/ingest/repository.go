package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/finconsol/finconsol/internal/platform/db"
)

// ErrBackupNotFound indicates a restore request for an unknown backup id.
var ErrBackupNotFound = errors.New("ingest: backup not found")

// Repository is the pgx-backed Store implementation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs an ingest repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// KnownAccountCodes returns the subset of codes present in the chart of
// accounts.
func (r *Repository) KnownAccountCodes(ctx context.Context, codes []string) (map[string]struct{}, error) {
	const query = `SELECT account_code FROM chart_of_accounts WHERE account_code = ANY($1)`
	rows, err := r.pool.Query(ctx, query, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	known := make(map[string]struct{}, len(codes))
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		known[code] = struct{}{}
	}
	return known, rows.Err()
}

// ExistingPeriods returns the subset of periods that already hold facts for
// the entity and stream.
func (r *Repository) ExistingPeriods(ctx context.Context, entityID int64, dataType string, periods []time.Time) ([]time.Time, error) {
	const query = `SELECT DISTINCT period FROM financial_facts
		WHERE company_id = $1 AND data_type = $2 AND period = ANY($3)
		ORDER BY period`
	rows, err := r.pool.Query(ctx, query, entityID, dataType, periods)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var existing []time.Time
	for rows.Next() {
		var p time.Time
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		existing = append(existing, p)
	}
	return existing, rows.Err()
}

type backupRecord struct {
	AccountCode string `json:"account_code"`
	Period      string `json:"period"`
	Amount      string `json:"amount"`
}

// Replace runs the upload write in one transaction: snapshot the rows about
// to be overwritten into fact_backups, delete exactly those rows, insert the
// new facts. Only the uploaded account codes in the already-populated periods
// are touched; other accounts in the same periods survive.
func (r *Repository) Replace(ctx context.Context, in ReplaceInput) (*uuid.UUID, error) {
	var backupID *uuid.UUID
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		backupID, err = r.replaceInTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return backupID, nil
}

func (r *Repository) replaceInTx(ctx context.Context, tx pgx.Tx, in ReplaceInput) (*uuid.UUID, error) {
	var backupID *uuid.UUID
	if len(in.Periods) > 0 && len(in.AccountCodes) > 0 {
		const snapshot = `SELECT account_code, period, amount FROM financial_facts
			WHERE company_id = $1 AND data_type = $2 AND period = ANY($3) AND account_code = ANY($4)`
		rows, err := tx.Query(ctx, snapshot, in.EntityID, in.DataType, in.Periods, in.AccountCodes)
		if err != nil {
			return nil, err
		}
		var records []backupRecord
		for rows.Next() {
			var code string
			var period time.Time
			var amount decimal.Decimal
			if err := rows.Scan(&code, &period, &amount); err != nil {
				rows.Close()
				return nil, err
			}
			records = append(records, backupRecord{
				AccountCode: code,
				Period:      period.Format("2006-01-02"),
				Amount:      amount.String(),
			})
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if len(records) > 0 {
			payload, err := json.Marshal(records)
			if err != nil {
				return nil, err
			}
			labels, err := json.Marshal(in.PeriodLabels)
			if err != nil {
				return nil, err
			}
			id := uuid.New()
			const insertBackup = `INSERT INTO fact_backups (id, company_id, data_type, periods, payload, created_by, description, created_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, now())`
			if _, err := tx.Exec(ctx, insertBackup, id, in.EntityID, in.DataType, labels, payload, in.UploadedBy, in.Description); err != nil {
				return nil, err
			}
			backupID = &id

			const del = `DELETE FROM financial_facts
				WHERE company_id = $1 AND data_type = $2 AND period = ANY($3) AND account_code = ANY($4)`
			if _, err := tx.Exec(ctx, del, in.EntityID, in.DataType, in.Periods, in.AccountCodes); err != nil {
				return nil, err
			}
		}
	}

	_, err := tx.CopyFrom(ctx,
		pgx.Identifier{"financial_facts"},
		[]string{"company_id", "account_code", "period", "amount", "data_type"},
		pgx.CopyFromSlice(len(in.Facts), func(i int) ([]any, error) {
			f := in.Facts[i]
			return []any{in.EntityID, f.AccountCode, f.Period, f.Amount, in.DataType}, nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("insert facts: %w", err)
	}
	return backupID, nil
}

// Restore replays a snapshot: the facts currently occupying the backed-up
// (account, period) slots are removed and the snapshot rows reinserted.
func (r *Repository) Restore(ctx context.Context, backupID uuid.UUID) (int, error) {
	const load = `SELECT company_id, data_type, payload FROM fact_backups WHERE id = $1`
	var entityID int64
	var dataType string
	var payload []byte
	if err := r.pool.QueryRow(ctx, load, backupID).Scan(&entityID, &dataType, &payload); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrBackupNotFound
		}
		return 0, err
	}

	var records []backupRecord
	if err := json.Unmarshal(payload, &records); err != nil {
		return 0, fmt.Errorf("decode backup payload: %w", err)
	}
	if len(records) == 0 {
		return 0, nil
	}

	codes := make([]string, 0, len(records))
	periods := make([]time.Time, 0, len(records))
	facts := make([]FactRow, 0, len(records))
	for _, rec := range records {
		period, err := time.Parse("2006-01-02", rec.Period)
		if err != nil {
			return 0, fmt.Errorf("decode backup period %q: %w", rec.Period, err)
		}
		amount, err := decimal.NewFromString(rec.Amount)
		if err != nil {
			return 0, fmt.Errorf("decode backup amount %q: %w", rec.Amount, err)
		}
		codes = append(codes, rec.AccountCode)
		periods = append(periods, period)
		facts = append(facts, FactRow{AccountCode: rec.AccountCode, Period: period, Amount: amount})
	}

	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		const del = `DELETE FROM financial_facts
			WHERE company_id = $1 AND data_type = $2 AND period = ANY($3) AND account_code = ANY($4)`
		if _, err := tx.Exec(ctx, del, entityID, dataType, periods, codes); err != nil {
			return err
		}

		_, err := tx.CopyFrom(ctx,
			pgx.Identifier{"financial_facts"},
			[]string{"company_id", "account_code", "period", "amount", "data_type"},
			pgx.CopyFromSlice(len(facts), func(i int) ([]any, error) {
				f := facts[i]
				return []any{entityID, f.AccountCode, f.Period, f.Amount, dataType}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("reinsert backup facts: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(facts), nil
}
