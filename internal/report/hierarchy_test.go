package report

import (
	"reflect"
	"testing"
)

func TestSubCategoryOrder(t *testing.T) {
	dims := []DimensionRecord{
		{AccountName: "REVENUE", SortOrder: 10, IsHeader: true, SubCategory: "INTEREST INCOME"},
		{AccountCode: "4100", AccountType: TypeIncome, SubCategory: "FEE INCOME", SortOrder: 30},
		{AccountCode: "4000", AccountType: TypeIncome, SubCategory: "INTEREST INCOME", SortOrder: 20},
		{AccountCode: "5000", AccountType: TypeExpense, SubCategory: "COST OF FUNDS AND FEES", SortOrder: 60},
		{AccountCode: "9000", AccountType: TypeExpense, SortOrder: 90},
	}
	got := subCategoryOrder(dims)
	want := []string{"INTEREST INCOME", "FEE INCOME", "COST OF FUNDS AND FEES", uncategorized}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestSubCategoryOrderHeaderOnlyLabelsTrail(t *testing.T) {
	dims := []DimensionRecord{
		{AccountName: "SUMMARY", SortOrder: 5, IsHeader: true, SubCategory: "SUMMARY ONLY"},
		{AccountCode: "4000", AccountType: TypeIncome, SubCategory: "INTEREST INCOME", SortOrder: 20},
	}
	got := subCategoryOrder(dims)
	// A label with no coded member sorts after every coded label, even when
	// its header carries a smaller sort key.
	want := []string{"INTEREST INCOME", "SUMMARY ONLY"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestGroupsForTypePartitionsByAccountType(t *testing.T) {
	dims := []DimensionRecord{
		{AccountCode: "4000", AccountType: TypeIncome, SubCategory: "SHARED", SortOrder: 20},
		{AccountCode: "5000", AccountType: TypeExpense, SubCategory: "SHARED", SortOrder: 60},
		{AccountCode: "4100", AccountType: TypeIncome, SubCategory: "SHARED", SortOrder: 10},
	}
	order := subCategoryOrder(dims)

	income := groupsForType(dims, order, TypeIncome)
	if len(income) != 1 {
		t.Fatalf("income groups = %d, want 1", len(income))
	}
	if got := income[0].codes(); !reflect.DeepEqual(got, []string{"4100", "4000"}) {
		t.Fatalf("income codes = %v, want sorted by sort key", got)
	}

	expense := groupsForType(dims, order, TypeExpense)
	if len(expense) != 1 || len(expense[0].accounts) != 1 {
		t.Fatalf("expense groups = %+v, want one group with one account", expense)
	}
}

func TestGroupsForTypeSkipsHeaders(t *testing.T) {
	dims := []DimensionRecord{
		{AccountName: "REVENUE", AccountType: TypeIncome, SortOrder: 10, IsHeader: true},
		{AccountCode: "4000", AccountType: TypeIncome, SubCategory: "INTEREST INCOME", SortOrder: 20},
	}
	groups := groupsForType(dims, subCategoryOrder(dims), TypeIncome)
	if len(groups) != 1 {
		t.Fatalf("groups = %d, want 1", len(groups))
	}
	if groups[0].name != "INTEREST INCOME" {
		t.Fatalf("group = %q", groups[0].name)
	}
}

func TestNormalizeLabel(t *testing.T) {
	cases := map[string]string{
		"  Cost of Funds and Fees ": "COST OF FUNDS AND FEES",
		"EQUITY":                    "EQUITY",
		"":                          "",
	}
	for in, want := range cases {
		if got := normalizeLabel(in); got != want {
			t.Errorf("normalizeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}
