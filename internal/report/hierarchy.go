package report

import (
	"sort"
	"strings"
)

const uncategorized = "UNCATEGORIZED"

// subGroup is one sub-category bucket within an account-type partition: its
// member leaf accounts in sort-key order plus the header sort key (minimum
// member sort key when the header row does not track its own).
type subGroup struct {
	name      string
	sortOrder int
	accounts  []DimensionRecord
}

func (g subGroup) codes() []string {
	codes := make([]string, len(g.accounts))
	for i, a := range g.accounts {
		codes[i] = a.AccountCode
	}
	return codes
}

// normalizeLabel is the single place label comparison happens; the gross
// profit insertion rule matches against this form.
func normalizeLabel(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

func subCategoryOf(d DimensionRecord) string {
	if strings.TrimSpace(d.SubCategory) == "" {
		return uncategorized
	}
	return d.SubCategory
}

// subCategoryOrder computes the canonical sub-category ordering across the
// whole partition set: sub-categories ranked by the minimum sort key among
// their coded members, ascending; anything without a coded member follows in
// first-seen order. The ordering is an explicit list, never map iteration.
func subCategoryOrder(dims []DimensionRecord) []string {
	type entry struct {
		name    string
		minSort int
		seen    int
		coded   bool
	}
	index := make(map[string]*entry)
	ordered := make([]*entry, 0)
	for i, d := range dims {
		name := subCategoryOf(d)
		e, ok := index[name]
		if !ok {
			e = &entry{name: name, minSort: d.SortOrder, seen: i}
			index[name] = e
			ordered = append(ordered, e)
		}
		if d.Leaf() {
			if !e.coded || d.SortOrder < e.minSort {
				e.minSort = d.SortOrder
			}
			e.coded = true
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.coded != b.coded {
			return a.coded
		}
		if !a.coded {
			return a.seen < b.seen
		}
		if a.minSort != b.minSort {
			return a.minSort < b.minSort
		}
		return a.seen < b.seen
	})
	names := make([]string, len(ordered))
	for i, e := range ordered {
		names[i] = e.name
	}
	return names
}

// groupsForType buckets the coded accounts of one account type by
// sub-category, following the supplied canonical ordering; sub-categories
// not present in the ordering are appended in first-seen order. Sub-category
// labels only group accounts within the same account-type partition, so the
// same label on income and expense accounts yields two distinct groups.
func groupsForType(dims []DimensionRecord, order []string, accountType string) []subGroup {
	buckets := make(map[string]*subGroup)
	firstSeen := make([]string, 0)
	for _, d := range dims {
		if !d.Leaf() || d.AccountType != accountType {
			continue
		}
		name := subCategoryOf(d)
		g, ok := buckets[name]
		if !ok {
			g = &subGroup{name: name, sortOrder: d.SortOrder}
			buckets[name] = g
			firstSeen = append(firstSeen, name)
		}
		if d.SortOrder < g.sortOrder {
			g.sortOrder = d.SortOrder
		}
		g.accounts = append(g.accounts, d)
	}

	emitted := make(map[string]bool, len(buckets))
	groups := make([]subGroup, 0, len(buckets))
	appendGroup := func(name string) {
		g, ok := buckets[name]
		if !ok || emitted[name] {
			return
		}
		emitted[name] = true
		sort.SliceStable(g.accounts, func(i, j int) bool {
			return g.accounts[i].SortOrder < g.accounts[j].SortOrder
		})
		groups = append(groups, *g)
	}
	for _, name := range order {
		appendGroup(name)
	}
	for _, name := range firstSeen {
		appendGroup(name)
	}
	return groups
}

// leafAccountsOfType returns all coded accounts in one partition, preserving
// store order (sort key ascending).
func leafAccountsOfType(dims []DimensionRecord, accountType string) []DimensionRecord {
	out := make([]DimensionRecord, 0, len(dims))
	for _, d := range dims {
		if d.Leaf() && d.AccountType == accountType {
			out = append(out, d)
		}
	}
	return out
}

func accountCodes(dims []DimensionRecord) []string {
	codes := make([]string, 0, len(dims))
	for _, d := range dims {
		if d.Leaf() {
			codes = append(codes, d.AccountCode)
		}
	}
	return codes
}
