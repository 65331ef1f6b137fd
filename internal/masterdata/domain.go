// Package masterdata manages the reference data behind the reports: the
// reporting companies and the chart of accounts.
package masterdata

import "time"

// Company is a reporting entity. Exactly one company may be flagged as the
// aggregate placeholder that carries consolidated budget and forecast
// figures instead of booked actuals.
type Company struct {
	ID        int64     `json:"id"`
	Code      string    `json:"code" validate:"required,max=32"`
	Name      string    `json:"name" validate:"required,max=255"`
	Aggregate bool      `json:"is_aggregate"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account is one chart-of-accounts row. Header rows structure the report and
// carry no code; leaf rows carry the code facts reference.
type Account struct {
	ID             int64     `json:"id"`
	AccountCode    string    `json:"account_code"`
	AccountName    string    `json:"account_name" validate:"required,max=255"`
	AccountType    string    `json:"account_type" validate:"max=64"`
	ParentCategory string    `json:"parent_category"`
	SubCategory    string    `json:"sub_category"`
	SortOrder      int       `json:"sort_order"`
	IsHeader       bool      `json:"is_header"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
