package report

import (
	"context"
	"errors"
	"fmt"
)

// Engine builds consolidated report pivots from the three stores. It holds
// no mutable state: every build is a pure function of the request and the
// store contents, so concurrent builds are independent.
type Engine struct {
	facts    FactStore
	dims     DimensionStore
	entities EntityStore
	cfg      Config
}

// NewEngine constructs the aggregation engine.
func NewEngine(facts FactStore, dims DimensionStore, entities EntityStore, cfg Config) *Engine {
	if cfg.GrossProfitAfter == "" {
		cfg.GrossProfitAfter = DefaultConfig().GrossProfitAfter
	}
	return &Engine{facts: facts, dims: dims, entities: entities, cfg: cfg}
}

// ProfitLoss builds the P&L pivot for the requested range and stream.
func (e *Engine) ProfitLoss(ctx context.Context, req Request) (*Report, error) {
	if e == nil || e.facts == nil || e.dims == nil || e.entities == nil {
		return nil, errors.New("report: engine not initialised")
	}

	dims, err := e.dims.ListByTypes(ctx, []string{TypeIncome, TypeExpense})
	if err != nil {
		return nil, fmt.Errorf("report: load p&l dimensions: %w", err)
	}
	codes := accountCodes(dims)
	if len(codes) == 0 {
		return emptyReport(&NoDataError{Statement: "P&L"}), nil
	}

	entities, err := e.entities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: load entities: %w", err)
	}

	sc, err := resolveScope(ctx, e.facts, entities, req, "P&L", codes)
	if err != nil {
		var noData *NoDataError
		if errors.As(err, &noData) {
			return emptyReport(noData), nil
		}
		return nil, err
	}

	dataType := req.DataType
	if !dataType.Valid() {
		dataType = DataTypeActual
	}

	var idx factIndex
	budget := budgetIndex{}
	if req.DualStream {
		actualFacts, err := e.facts.Facts(ctx, FactQuery{
			DataType:     DataTypeActual,
			AccountCodes: codes,
			EntityIDs:    sc.actualIDs(),
			Periods:      sc.periods,
		})
		if err != nil {
			return nil, fmt.Errorf("report: load actual facts: %w", err)
		}
		idx = indexFacts(actualFacts)
		if sc.aggregate != nil {
			budgetFacts, err := e.facts.Facts(ctx, FactQuery{
				DataType:     dataType,
				AccountCodes: codes,
				EntityIDs:    []int64{sc.aggregate.ID},
				Periods:      sc.periods,
			})
			if err != nil {
				return nil, fmt.Errorf("report: load budget facts: %w", err)
			}
			budget = indexBudget(budgetFacts)
		}
	} else {
		facts, err := e.facts.Facts(ctx, FactQuery{
			DataType:     dataType,
			AccountCodes: codes,
			EntityIDs:    sc.actualIDs(),
			Periods:      sc.periods,
		})
		if err != nil {
			return nil, fmt.Errorf("report: load facts: %w", err)
		}
		idx = indexFacts(facts)
	}

	budgetMode := req.DualStream && dataType.BudgetLike()
	rows := e.buildProfitLoss(sc, dims, idx, budget, budgetMode)
	return serializeReport(rows, sc, budgetMode), nil
}

// BalanceSheet builds the BS pivot. The balance sheet reads a single stream
// and never renders budget columns; the statement's own diagnostic is the
// CHECK row.
func (e *Engine) BalanceSheet(ctx context.Context, req Request) (*Report, error) {
	if e == nil || e.facts == nil || e.dims == nil || e.entities == nil {
		return nil, errors.New("report: engine not initialised")
	}

	dims, err := e.dims.ListByTypes(ctx, []string{TypeAsset, TypeLiability, TypeEquity})
	if err != nil {
		return nil, fmt.Errorf("report: load bs dimensions: %w", err)
	}
	codes := accountCodes(dims)
	if len(codes) == 0 {
		return emptyReport(&NoDataError{Statement: "balance sheet"}), nil
	}

	entities, err := e.entities.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("report: load entities: %w", err)
	}

	bsReq := req
	bsReq.DualStream = false
	sc, err := resolveScope(ctx, e.facts, entities, bsReq, "balance sheet", codes)
	if err != nil {
		var noData *NoDataError
		if errors.As(err, &noData) {
			return emptyReport(noData), nil
		}
		return nil, err
	}

	dataType := req.DataType
	if !dataType.Valid() {
		dataType = DataTypeActual
	}
	facts, err := e.facts.Facts(ctx, FactQuery{
		DataType:     dataType,
		AccountCodes: codes,
		EntityIDs:    sc.actualIDs(),
		Periods:      sc.periods,
	})
	if err != nil {
		return nil, fmt.Errorf("report: load facts: %w", err)
	}

	rows := e.buildBalanceSheet(sc, dims, indexFacts(facts))
	return serializeReport(rows, sc, false), nil
}
