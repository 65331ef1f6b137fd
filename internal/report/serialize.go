package report

import "github.com/shopspring/decimal"

// ColumnDef describes one output column for a rendering grid.
type ColumnDef struct {
	Field       string     `json:"field"`
	HeaderName  string     `json:"headerName"`
	ColType     ColumnKind `json:"colType"`
	PeriodKey   string     `json:"periodKey,omitempty"`
	CompanyCode string     `json:"companyCode,omitempty"`
	Hide        bool       `json:"hide"`
}

// Report is the JSON-serializable pivot produced by the engine: a column
// definition list plus flat rows. Amounts become float64 here and nowhere
// earlier; zero cells serialize as null so grids can tell "no data" from a
// literal zero.
type Report struct {
	ColumnDefs     []ColumnDef      `json:"columnDefs"`
	RowData        []map[string]any `json:"rowData"`
	Error          string           `json:"error,omitempty"`
	AvailableRange *PeriodRange     `json:"available_range,omitempty"`
	DebugInfo      map[string]any   `json:"debug_info,omitempty"`
}

const (
	fieldAccountCode = "account_code"
	fieldAccountName = "account_name"
	fieldRowType     = "rowType"
	fieldSection     = "section"
	fieldSortOrder   = "sort_order"
	fieldLevel       = "level"

	grandTotalPrefix = "grand_total_"
	totalKey         = "TOTAL"
	budgetKey        = "Budget"
)

// cellValue converts an exact decimal into the wire representation: nil for
// zero, float64 otherwise.
func cellValue(d decimal.Decimal) any {
	if d.IsZero() {
		return nil
	}
	return d.InexactFloat64()
}

// serializeReport flattens computed rows into the grid projection. Ordering
// is fully determined by the period slice and entity slice; nothing iterates
// a map to decide output order.
func serializeReport(rows []*row, sc scope, budgetMode bool) *Report {
	// Column suppression: a (period, entity) column is hidden iff every
	// emitted row carries zero there. Values stay present so total columns
	// and grand totals remain additive.
	type colKey struct{ period, entity string }
	nonZero := make(map[colKey]struct{})
	for _, r := range rows {
		for pk, byEntity := range r.cells {
			for code, v := range byEntity {
				if !v.IsZero() {
					nonZero[colKey{pk, code}] = struct{}{}
				}
			}
		}
	}
	activeEntities := make(map[string]struct{})
	for key := range nonZero {
		activeEntities[key.entity] = struct{}{}
	}

	columns := make([]ColumnDef, 0, len(sc.periods)*(len(sc.actual)+2)+len(sc.actual)+2)
	for _, p := range sc.periods {
		pk := periodKey(p)
		label := periodLabel(p)
		for _, e := range sc.actual {
			_, active := nonZero[colKey{pk, e.Code}]
			columns = append(columns, ColumnDef{
				Field:       label + "_" + e.Code,
				HeaderName:  label + " " + e.Code,
				ColType:     ColCompany,
				PeriodKey:   pk,
				CompanyCode: e.Code,
				Hide:        !active,
			})
		}
		columns = append(columns, ColumnDef{
			Field:      label + "_" + totalKey,
			HeaderName: label + " " + totalKey,
			ColType:    ColTotal,
			PeriodKey:  pk,
		})
		if budgetMode {
			columns = append(columns, ColumnDef{
				Field:      label + "_" + budgetKey,
				HeaderName: label + " " + budgetKey,
				ColType:    ColBudget,
				PeriodKey:  pk,
			})
		}
	}
	for _, e := range sc.actual {
		_, active := activeEntities[e.Code]
		columns = append(columns, ColumnDef{
			Field:       grandTotalPrefix + e.Code,
			HeaderName:  "Grand Total " + e.Code,
			ColType:     ColGrandCompany,
			CompanyCode: e.Code,
			Hide:        !active,
		})
	}
	columns = append(columns, ColumnDef{
		Field:      grandTotalPrefix + totalKey,
		HeaderName: "Grand Total",
		ColType:    ColGrandOverall,
	})
	if budgetMode {
		columns = append(columns, ColumnDef{
			Field:      grandTotalPrefix + budgetKey,
			HeaderName: "Grand Total Budget",
			ColType:    ColGrandBudget,
		})
	}

	rowData := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		grid := map[string]any{
			fieldAccountCode: r.code,
			fieldAccountName: r.name,
			fieldRowType:     string(r.typ),
			fieldSection:     r.section,
			fieldSortOrder:   r.sortOrder,
			fieldLevel:       r.level,
		}
		valued := r.typ != RowSubHeader && r.typ != RowSectionHeader && r.typ != RowParentHeader && r.typ != RowSpacer
		for _, p := range sc.periods {
			pk := periodKey(p)
			label := periodLabel(p)
			for _, e := range sc.actual {
				if valued {
					grid[label+"_"+e.Code] = cellValue(r.cell(p, e.Code))
				} else {
					grid[label+"_"+e.Code] = nil
				}
			}
			if valued {
				grid[label+"_"+totalKey] = cellValue(r.totals[pk])
			} else {
				grid[label+"_"+totalKey] = nil
			}
			if budgetMode {
				if v, ok := r.budgets[pk]; ok {
					grid[label+"_"+budgetKey] = cellValue(v)
				} else {
					grid[label+"_"+budgetKey] = nil
				}
			}
		}
		for _, e := range sc.actual {
			if valued {
				grid[grandTotalPrefix+e.Code] = cellValue(r.grand[e.Code])
			} else {
				grid[grandTotalPrefix+e.Code] = nil
			}
		}
		if valued {
			grid[grandTotalPrefix+totalKey] = cellValue(r.grandTotal)
		} else {
			grid[grandTotalPrefix+totalKey] = nil
		}
		if budgetMode {
			grid[grandTotalPrefix+budgetKey] = cellValue(r.grandBudget())
		}
		rowData = append(rowData, grid)
	}

	return &Report{ColumnDefs: columns, RowData: rowData}
}

// emptyReport wraps a no-data outcome as a renderable payload rather than a
// transport failure.
func emptyReport(err *NoDataError) *Report {
	return &Report{
		ColumnDefs:     []ColumnDef{},
		RowData:        []map[string]any{},
		Error:          err.Error(),
		AvailableRange: err.Available,
	}
}
