package report

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"
)

// NoDataError signals an empty result for the requested filter set. It is an
// explicit outcome, not a failure: callers render a "no data" state and may
// surface the nearest available range as a hint.
type NoDataError struct {
	Statement string
	Available *PeriodRange
}

func (e *NoDataError) Error() string {
	if e.Available != nil {
		return fmt.Sprintf("no %s data for selected period; data is available from %s to %s",
			e.Statement, e.Available.Start.Format("January 2006"), e.Available.End.Format("January 2006"))
	}
	return fmt.Sprintf("no %s data found for the selected filters", e.Statement)
}

// monthBounds converts raw month/year strings into an inclusive-exclusive
// first-of-month range. Non-numeric or out-of-range input degrades to an
// open bound instead of erroring.
func monthBounds(fromMonth, fromYear, toMonth, toYear string) (start, endExclusive time.Time) {
	if d, ok := parseMonthYear(fromMonth, fromYear); ok {
		start = d
	}
	if d, ok := parseMonthYear(toMonth, toYear); ok {
		endExclusive = nextMonth(d)
	}
	return start, endExclusive
}

func parseMonthYear(month, year string) (time.Time, bool) {
	if month == "" || year == "" {
		return time.Time{}, false
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return time.Time{}, false
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC), true
}

// scope is the resolved reporting universe for one build: the ordered month
// set plus the entity partition.
type scope struct {
	periods   []time.Time
	actual    []Entity // non-aggregate entities, store order preserved
	aggregate *Entity  // at most one budget-only placeholder
	start     time.Time
	end       time.Time
}

func (s scope) actualIDs() []int64 {
	ids := make([]int64, len(s.actual))
	for i, e := range s.actual {
		ids[i] = e.ID
	}
	return ids
}

// partitionEntities splits the entity list into actual entities and the
// single consolidated budget-only placeholder, if present.
func partitionEntities(entities []Entity) ([]Entity, *Entity) {
	actual := make([]Entity, 0, len(entities))
	var aggregate *Entity
	for _, e := range entities {
		if e.Aggregate {
			if aggregate == nil {
				agg := e
				aggregate = &agg
			}
			continue
		}
		actual = append(actual, e)
	}
	return actual, aggregate
}

// resolveScope determines the ordered period set for the request. In
// dual-stream mode the set is the union of actual-stream months and the
// aggregate entity's months under the requested stream; otherwise it is the
// months carrying facts for the requested stream alone.
func resolveScope(ctx context.Context, facts FactStore, entities []Entity, req Request, statement string, accountCodes []string) (scope, error) {
	start, end := monthBounds(req.FromMonth, req.FromYear, req.ToMonth, req.ToYear)
	actual, aggregate := partitionEntities(entities)
	sc := scope{actual: actual, aggregate: aggregate, start: start, end: end}

	dataType := req.DataType
	if !dataType.Valid() {
		dataType = DataTypeActual
	}

	var periods []time.Time
	if req.DualStream {
		actualPeriods, err := facts.Periods(ctx, PeriodQuery{
			DataType:     DataTypeActual,
			AccountCodes: accountCodes,
			EntityIDs:    sc.actualIDs(),
			Start:        start,
			End:          end,
		})
		if err != nil {
			return scope{}, fmt.Errorf("report: resolve actual periods: %w", err)
		}
		periods = actualPeriods
		if aggregate != nil {
			budgetPeriods, err := facts.Periods(ctx, PeriodQuery{
				DataType:     dataType,
				AccountCodes: accountCodes,
				EntityIDs:    []int64{aggregate.ID},
				Start:        start,
				End:          end,
			})
			if err != nil {
				return scope{}, fmt.Errorf("report: resolve budget periods: %w", err)
			}
			periods = unionPeriods(periods, budgetPeriods)
		}
	} else {
		var err error
		periods, err = facts.Periods(ctx, PeriodQuery{
			DataType:     dataType,
			AccountCodes: accountCodes,
			EntityIDs:    sc.actualIDs(),
			Start:        start,
			End:          end,
		})
		if err != nil {
			return scope{}, fmt.Errorf("report: resolve periods: %w", err)
		}
	}

	if len(periods) == 0 {
		noData := &NoDataError{Statement: statement}
		if rng, ok, err := facts.AvailableRange(ctx, accountCodes); err == nil && ok {
			noData.Available = &rng
		}
		return scope{}, noData
	}

	sc.periods = normalizePeriods(periods)
	return sc, nil
}

// normalizePeriods snaps periods to first-of-month, deduplicates and sorts
// ascending.
func normalizePeriods(in []time.Time) []time.Time {
	seen := make(map[string]struct{}, len(in))
	out := make([]time.Time, 0, len(in))
	for _, p := range in {
		p = monthStart(p)
		key := periodKey(p)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func unionPeriods(a, b []time.Time) []time.Time {
	return normalizePeriods(append(append([]time.Time(nil), a...), b...))
}
