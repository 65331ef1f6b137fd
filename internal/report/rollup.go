package report

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// row is the engine's working representation of one report line. Cells are
// keyed structurally (period key, entity code); stringly-typed column field
// names exist only at the serialization boundary. All amounts stay exact
// decimals until then.
type row struct {
	typ       RowType
	name      string
	code      string
	section   string
	sortOrder int
	level     int

	cells   map[string]map[string]decimal.Decimal // period -> entity -> value
	totals  map[string]decimal.Decimal            // period -> sum over entities
	budgets map[string]decimal.Decimal            // period -> consolidated budget, non-zero only

	grand      map[string]decimal.Decimal // entity -> sum over periods
	grandTotal decimal.Decimal

	hasValue bool
}

func newRow(typ RowType, name, code, section string, sortOrder, level int) *row {
	return &row{
		typ:       typ,
		name:      name,
		code:      code,
		section:   section,
		sortOrder: sortOrder,
		level:     level,
		cells:     make(map[string]map[string]decimal.Decimal),
		totals:    make(map[string]decimal.Decimal),
		budgets:   make(map[string]decimal.Decimal),
		grand:     make(map[string]decimal.Decimal),
	}
}

func (r *row) cell(period time.Time, entityCode string) decimal.Decimal {
	byEntity, ok := r.cells[periodKey(period)]
	if !ok {
		return decimal.Zero
	}
	return byEntity[entityCode]
}

func (r *row) setCell(period time.Time, entityCode string, v decimal.Decimal) {
	pk := periodKey(period)
	byEntity, ok := r.cells[pk]
	if !ok {
		byEntity = make(map[string]decimal.Decimal)
		r.cells[pk] = byEntity
	}
	byEntity[entityCode] = v
	if !v.IsZero() {
		r.hasValue = true
	}
}

// fillSums computes every cell of the row as the sum of the given account
// codes at (period, entity), then reduces per-period totals, per-entity
// grand totals and the overall grand total. Leaf rows are the single-code
// case; subtotal, section and parent totals pass their full member set so
// every tier uses the identical reduction.
func (r *row) fillSums(codes []string, periods []time.Time, entities []Entity, idx factIndex) {
	for _, p := range periods {
		periodTotal := decimal.Zero
		for _, e := range entities {
			v := decimal.Zero
			for _, code := range codes {
				v = v.Add(idx.amount(p, e.Code, code))
			}
			r.setCell(p, e.Code, v)
			periodTotal = periodTotal.Add(v)
		}
		r.totals[periodKey(p)] = periodTotal
	}
	for _, e := range entities {
		g := decimal.Zero
		for _, p := range periods {
			g = g.Add(r.cell(p, e.Code))
		}
		r.grand[e.Code] = g
	}
	overall := decimal.Zero
	for _, e := range entities {
		overall = overall.Add(r.grand[e.Code])
	}
	r.grandTotal = overall
}

// fillBudget attaches the consolidated budget stream for the row's member
// accounts. A zero period sum is suppressed (left unset) so the rendered
// grid can distinguish "no plan" from a planned zero.
func (r *row) fillBudget(codes []string, periods []time.Time, budget budgetIndex) {
	for _, p := range periods {
		v := budget.sum(p, codes)
		if !v.IsZero() {
			r.budgets[periodKey(p)] = v
		}
	}
}

// grandBudget is the running sum of per-period budget values; zero means
// "suppress the grand budget cell".
func (r *row) grandBudget() decimal.Decimal {
	total := decimal.Zero
	for _, v := range r.budgets {
		total = total.Add(v)
	}
	return total
}

// diffRows builds a derived row as a − b over already-computed rows. Derived
// rows are never recomputed from raw facts, keeping a single source of truth
// for every figure they combine.
func diffRows(typ RowType, name, section string, sortOrder int, a, b *row, periods []time.Time, entities []Entity) *row {
	r := newRow(typ, name, "", section, sortOrder, 0)
	for _, p := range periods {
		pk := periodKey(p)
		for _, e := range entities {
			r.setCell(p, e.Code, a.cell(p, e.Code).Sub(b.cell(p, e.Code)))
		}
		r.totals[pk] = a.totals[pk].Sub(b.totals[pk])

		av, aok := a.budgets[pk]
		bv, bok := b.budgets[pk]
		if aok || bok {
			if d := av.Sub(bv); !d.IsZero() {
				r.budgets[pk] = d
			}
		}
	}
	for _, e := range entities {
		r.grand[e.Code] = a.grand[e.Code].Sub(b.grand[e.Code])
	}
	r.grandTotal = a.grandTotal.Sub(b.grandTotal)
	return r
}

// buildProfitLoss assembles the P&L row list: income sub-categories with
// subtotals, TOTAL REVENUE, the EXPENSES section with its sub-categories,
// the one-off Gross Profit insertion, TOTAL EXPENSES and NET INCOME.
func (e *Engine) buildProfitLoss(sc scope, dims []DimensionRecord, idx factIndex, budget budgetIndex, budgetMode bool) []*row {
	order := subCategoryOrder(dims)
	incomeGroups := groupsForType(dims, order, TypeIncome)
	expenseGroups := groupsForType(dims, order, TypeExpense)
	incomeCodes := accountCodes(leafAccountsOfType(dims, TypeIncome))
	expenseCodes := accountCodes(leafAccountsOfType(dims, TypeExpense))

	rows := make([]*row, 0, len(dims))

	emitGroup := func(g subGroup, section string) *row {
		rows = append(rows, newRow(RowSubHeader, g.name, "", section, g.sortOrder, 1))
		for _, acc := range g.accounts {
			leaf := newRow(RowAccount, acc.AccountName, acc.AccountCode, section, acc.SortOrder, 2)
			leaf.fillSums([]string{acc.AccountCode}, sc.periods, sc.actual, idx)
			if leaf.hasValue {
				rows = append(rows, leaf)
			}
		}
		subTotal := newRow(RowSubTotal, "Total "+g.name, "", section, g.sortOrder, 1)
		subTotal.fillSums(g.codes(), sc.periods, sc.actual, idx)
		if budgetMode {
			subTotal.fillBudget(g.codes(), sc.periods, budget)
		}
		rows = append(rows, subTotal)
		return subTotal
	}

	for _, g := range incomeGroups {
		emitGroup(g, "income")
	}

	totalRevenue := newRow(RowTotal, "TOTAL REVENUE", "", "income", 0, 0)
	totalRevenue.fillSums(incomeCodes, sc.periods, sc.actual, idx)
	if budgetMode {
		totalRevenue.fillBudget(incomeCodes, sc.periods, budget)
	}
	rows = append(rows, totalRevenue)

	rows = append(rows, newRow(RowSectionHeader, "EXPENSES", "", "expense", 0, 0))

	grossProfitAfter := normalizeLabel(e.cfg.GrossProfitAfter)
	grossInserted := false
	for _, g := range expenseGroups {
		subTotal := emitGroup(g, "expense")
		if !grossInserted && grossProfitAfter != "" && normalizeLabel(g.name) == grossProfitAfter {
			gross := diffRows(RowTotal, "Gross Profit", "summary", subTotal.sortOrder+1, totalRevenue, subTotal, sc.periods, sc.actual)
			rows = append(rows, gross)
			grossInserted = true
		}
	}

	totalExpenses := newRow(RowTotal, "TOTAL EXPENSES", "", "expense", 0, 0)
	totalExpenses.fillSums(expenseCodes, sc.periods, sc.actual, idx)
	if budgetMode {
		totalExpenses.fillBudget(expenseCodes, sc.periods, budget)
	}
	rows = append(rows, totalExpenses)

	netIncome := diffRows(RowNetIncome, "NET INCOME", "summary", 0, totalRevenue, totalExpenses, sc.periods, sc.actual)
	rows = append(rows, netIncome)

	return rows
}

// balance sheet sections in their fixed top-level order.
var balanceSheetSections = []struct {
	accountType string
	display     string
}{
	{TypeAsset, "ASSETS"},
	{TypeLiability, "LIABILITIES"},
	{TypeEquity, "EQUITY"},
}

// buildBalanceSheet assembles the BS row list. The section order is fixed
// (assets, liabilities, equity) regardless of discovered sort keys, and the
// final CHECK row must net to zero for balanced books; it diagnoses, it does
// not correct.
func (e *Engine) buildBalanceSheet(sc scope, dims []DimensionRecord, idx factIndex) []*row {
	order := subCategoryOrder(dims)
	rows := make([]*row, 0, len(dims))
	sectionTotals := make(map[string]*row, len(balanceSheetSections))

	for _, section := range balanceSheetSections {
		groups := groupsForType(dims, order, section.accountType)
		if len(groups) == 0 {
			continue
		}
		sectionName := strings.ToLower(section.accountType)
		rows = append(rows, newRow(RowParentHeader, section.display, "", sectionName, 0, 0))

		for _, g := range groups {
			rows = append(rows, newRow(RowSubHeader, g.name, "", sectionName, g.sortOrder, 1))
			for _, acc := range g.accounts {
				leaf := newRow(RowAccount, acc.AccountName, acc.AccountCode, sectionName, acc.SortOrder, 2)
				leaf.fillSums([]string{acc.AccountCode}, sc.periods, sc.actual, idx)
				if leaf.hasValue {
					rows = append(rows, leaf)
				}
			}
			subTotal := newRow(RowSubTotal, "Total "+g.name, "", sectionName, g.sortOrder, 1)
			subTotal.fillSums(g.codes(), sc.periods, sc.actual, idx)
			rows = append(rows, subTotal, newRow(RowSpacer, "", "", sectionName, 0, 0))
		}

		codes := accountCodes(leafAccountsOfType(dims, section.accountType))
		parentTotal := newRow(RowParentTotal, "TOTAL "+section.display, "", sectionName, 0, 0)
		parentTotal.fillSums(codes, sc.periods, sc.actual, idx)
		rows = append(rows, parentTotal)
		sectionTotals[section.accountType] = parentTotal

		if section.accountType != TypeEquity {
			rows = append(rows, newRow(RowSpacer, "", "", sectionName, 0, 0))
		}
	}

	assets := sectionTotals[TypeAsset]
	liabilities := sectionTotals[TypeLiability]
	equity := sectionTotals[TypeEquity]
	if assets != nil && (liabilities != nil || equity != nil) {
		if liabilities == nil {
			liabilities = newRow(RowParentTotal, "", "", "", 0, 0)
			liabilities.fillSums(nil, sc.periods, sc.actual, idx)
		}
		if equity == nil {
			equity = newRow(RowParentTotal, "", "", "", 0, 0)
			equity.fillSums(nil, sc.periods, sc.actual, idx)
		}
		intermediate := diffRows(RowCheck, "", "", 0, assets, liabilities, sc.periods, sc.actual)
		check := diffRows(RowCheck, "CHECK (Assets - Liabilities - Equity)", "check", 0, intermediate, equity, sc.periods, sc.actual)
		rows = append(rows, check)
	}

	return rows
}
