// Package report implements the in-memory aggregation engine behind the
// consolidated Profit & Loss and Balance Sheet pivots: it resolves reporting
// periods and entities, groups chart-of-accounts records into an ordered
// hierarchy, indexes monetary facts and rolls them up into per-period,
// per-entity cells with subtotal, total and derived rows.
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DataType selects which stream of facts a report reads.
type DataType string

const (
	DataTypeActual   DataType = "actual"
	DataTypeBudget   DataType = "budget"
	DataTypeForecast DataType = "forecast"
)

// Valid reports whether the data type is one of the known streams.
func (d DataType) Valid() bool {
	switch d {
	case DataTypeActual, DataTypeBudget, DataTypeForecast:
		return true
	}
	return false
}

// BudgetLike reports whether the stream carries planned rather than booked
// amounts; dual-stream budget columns are only rendered for these.
func (d DataType) BudgetLike() bool {
	return d == DataTypeBudget || d == DataTypeForecast
}

// RowType tags every row the engine emits.
type RowType string

const (
	RowSubHeader     RowType = "sub_header"
	RowAccount       RowType = "account"
	RowSubTotal      RowType = "sub_total"
	RowTotal         RowType = "total"
	RowNetIncome     RowType = "net_income"
	RowSectionHeader RowType = "section_header"
	RowParentHeader  RowType = "parent_header"
	RowParentTotal   RowType = "parent_total"
	RowCheck         RowType = "check_row"
	RowSpacer        RowType = "spacer"
)

// structural rows are always emitted regardless of their values.
func (t RowType) structural() bool {
	return t != RowAccount
}

// ColumnKind classifies output columns.
type ColumnKind string

const (
	ColCompany      ColumnKind = "company"
	ColTotal        ColumnKind = "total"
	ColBudget       ColumnKind = "budget"
	ColGrandCompany ColumnKind = "grand_company"
	ColGrandOverall ColumnKind = "grand_overall"
	ColGrandBudget  ColumnKind = "grand_budget"
)

// Account type partitions.
const (
	TypeIncome    = "INCOME"
	TypeExpense   = "EXPENSE"
	TypeAsset     = "ASSET"
	TypeLiability = "LIABILITY"
	TypeEquity    = "EQUITY"
)

// Entity is a reporting company, or the single consolidated budget-only
// placeholder when Aggregate is set.
type Entity struct {
	ID        int64
	Code      string
	Name      string
	Aggregate bool
}

// DimensionRecord is one chart-of-accounts row: a coded leaf account or a
// structural header (empty code).
type DimensionRecord struct {
	ID          int64
	AccountCode string
	AccountName string
	AccountType string
	SubCategory string
	SortOrder   int
	IsHeader    bool
}

// Leaf reports whether the record participates in rollups.
func (d DimensionRecord) Leaf() bool {
	return !d.IsHeader && d.AccountCode != ""
}

// Fact is one monetary data point for (entity, account, period, stream).
type Fact struct {
	EntityID    int64
	EntityCode  string
	AccountCode string
	Period      time.Time
	Amount      decimal.Decimal
	DataType    DataType
}

// Request carries the caller-facing filter set for one report build. Month
// and year arrive as raw query strings; unparseable bounds degrade to
// "unbounded" rather than failing the request.
type Request struct {
	FromMonth  string
	FromYear   string
	ToMonth    string
	ToYear     string
	DataType   DataType
	DualStream bool
}

// Config holds the engine knobs that would otherwise be ambient settings.
type Config struct {
	// GrossProfitAfter is the normalized sub-category label after whose
	// subtotal the one-off Gross Profit row is inserted. The original books
	// key this off a human-entered label, so it stays configurable rather
	// than hardcoded at the call sites.
	GrossProfitAfter string
}

// DefaultConfig mirrors the label used by the production chart of accounts.
func DefaultConfig() Config {
	return Config{GrossProfitAfter: "COST OF FUNDS AND FEES"}
}

// PeriodRange is an inclusive first-of-month range used for "data exists
// between X and Y" hints.
type PeriodRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// PeriodQuery filters the distinct-period lookup.
type PeriodQuery struct {
	DataType     DataType
	AccountCodes []string
	EntityIDs    []int64
	// Start is inclusive and End exclusive; zero values mean unbounded.
	Start time.Time
	End   time.Time
}

// FactQuery filters the bulk fact load.
type FactQuery struct {
	DataType     DataType
	AccountCodes []string
	EntityIDs    []int64
	Periods      []time.Time
}

// FactStore is the read side the engine consumes for monetary facts.
type FactStore interface {
	Periods(ctx context.Context, q PeriodQuery) ([]time.Time, error)
	Facts(ctx context.Context, q FactQuery) ([]Fact, error)
	AvailableRange(ctx context.Context, accountCodes []string) (PeriodRange, bool, error)
}

// DimensionStore lists chart-of-accounts records for an account-type set,
// ordered by sort key.
type DimensionStore interface {
	ListByTypes(ctx context.Context, accountTypes []string) ([]DimensionRecord, error)
}

// EntityStore lists reporting entities.
type EntityStore interface {
	List(ctx context.Context) ([]Entity, error)
}

// monthStart normalizes any date to the first day of its month in UTC.
func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

func nextMonth(t time.Time) time.Time {
	return monthStart(t).AddDate(0, 1, 0)
}

// periodKey is the canonical string form of a reporting month.
func periodKey(t time.Time) string {
	return t.Format("2006-01")
}

// periodLabel is the short display form used in column fields and headers.
func periodLabel(t time.Time) string {
	return t.Format("Jan-06")
}
