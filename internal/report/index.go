package report

import (
	"time"

	"github.com/shopspring/decimal"
)

// factIndex is the three-level lookup period -> entity code -> account code
// -> amount. Missing entries are implicitly zero. Periods are keyed by their
// canonical "2006-01" form so lookups survive timezone noise on input dates.
type factIndex map[string]map[string]map[string]decimal.Decimal

func indexFacts(facts []Fact) factIndex {
	idx := make(factIndex)
	for _, f := range facts {
		pk := periodKey(monthStart(f.Period))
		byEntity, ok := idx[pk]
		if !ok {
			byEntity = make(map[string]map[string]decimal.Decimal)
			idx[pk] = byEntity
		}
		byAccount, ok := byEntity[f.EntityCode]
		if !ok {
			byAccount = make(map[string]decimal.Decimal)
			byEntity[f.EntityCode] = byAccount
		}
		// Duplicate (entity, account, period) facts are summed rather than
		// silently replaced; the store enforces uniqueness but uploads that
		// bypass it must still aggregate deterministically.
		byAccount[f.AccountCode] = byAccount[f.AccountCode].Add(f.Amount)
	}
	return idx
}

// amount returns the indexed value for (period, entity, account), zero when
// absent.
func (idx factIndex) amount(period time.Time, entityCode, accountCode string) decimal.Decimal {
	byEntity, ok := idx[periodKey(period)]
	if !ok {
		return decimal.Zero
	}
	byAccount, ok := byEntity[entityCode]
	if !ok {
		return decimal.Zero
	}
	return byAccount[accountCode]
}

// budgetIndex holds the consolidated budget/forecast stream: period ->
// account code -> amount. It is deliberately separate from factIndex so the
// aggregate entity's planned figures never leak into any company column.
type budgetIndex map[string]map[string]decimal.Decimal

func indexBudget(facts []Fact) budgetIndex {
	idx := make(budgetIndex)
	for _, f := range facts {
		pk := periodKey(monthStart(f.Period))
		byAccount, ok := idx[pk]
		if !ok {
			byAccount = make(map[string]decimal.Decimal)
			idx[pk] = byAccount
		}
		byAccount[f.AccountCode] = byAccount[f.AccountCode].Add(f.Amount)
	}
	return idx
}

func (idx budgetIndex) amount(period time.Time, accountCode string) decimal.Decimal {
	byAccount, ok := idx[periodKey(period)]
	if !ok {
		return decimal.Zero
	}
	return byAccount[accountCode]
}

// sum adds up the budget stream for a set of accounts in one period.
func (idx budgetIndex) sum(period time.Time, codes []string) decimal.Decimal {
	total := decimal.Zero
	byAccount, ok := idx[periodKey(period)]
	if !ok {
		return total
	}
	for _, code := range codes {
		total = total.Add(byAccount[code])
	}
	return total
}
