package masterdata

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	companies []Company
	aggregate *Company
	accounts  []Account

	replaced [][]Account
	created  []Company
	updated  []Company
}

func (f *fakeStore) ListCompanies(context.Context) ([]Company, error) { return f.companies, nil }

func (f *fakeStore) GetCompany(_ context.Context, id int64) (Company, error) {
	for _, c := range f.companies {
		if c.ID == id {
			return c, nil
		}
	}
	return Company{}, ErrNotFound
}

func (f *fakeStore) CreateCompany(_ context.Context, company Company) (Company, error) {
	company.ID = int64(len(f.created) + 1)
	f.created = append(f.created, company)
	return company, nil
}

func (f *fakeStore) UpdateCompany(_ context.Context, _ int64, company Company) error {
	f.updated = append(f.updated, company)
	return nil
}

func (f *fakeStore) DeleteCompany(context.Context, int64) error { return nil }

func (f *fakeStore) AggregateCompany(context.Context) (Company, bool, error) {
	if f.aggregate == nil {
		return Company{}, false, nil
	}
	return *f.aggregate, true, nil
}

func (f *fakeStore) ListAccounts(context.Context) ([]Account, error) { return f.accounts, nil }

func (f *fakeStore) ReplaceAccounts(_ context.Context, accounts []Account) error {
	f.replaced = append(f.replaced, accounts)
	return nil
}

type fakeBuster struct{ bumps int }

func (f *fakeBuster) Bump(context.Context) error {
	f.bumps++
	return nil
}

func testService(store Store, cache CacheBuster) *Service {
	return NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), store, cache)
}

func TestCreateCompanyNormalizesCode(t *testing.T) {
	store := &fakeStore{}
	svc := testService(store, nil)

	created, err := svc.CreateCompany(context.Background(), Company{Code: "  f2001 ", Name: " Fairway 2001 "})
	require.NoError(t, err)
	assert.Equal(t, "F2001", created.Code)
	assert.Equal(t, "Fairway 2001", created.Name)
}

func TestCreateCompanyRejectsInvalid(t *testing.T) {
	svc := testService(&fakeStore{}, nil)

	_, err := svc.CreateCompany(context.Background(), Company{Code: "", Name: "No Code"})
	assert.Error(t, err)
	_, err = svc.CreateCompany(context.Background(), Company{Code: "X1", Name: ""})
	assert.Error(t, err)
}

func TestCreateCompanyRejectsSecondAggregate(t *testing.T) {
	existing := Company{ID: 9, Code: "GROUP", Aggregate: true}
	store := &fakeStore{aggregate: &existing}
	svc := testService(store, nil)

	_, err := svc.CreateCompany(context.Background(), Company{Code: "PLAN", Name: "Second Plan", Aggregate: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GROUP")
	assert.Empty(t, store.created)
}

func TestUpdateCompanyAllowsKeepingOwnAggregateFlag(t *testing.T) {
	existing := Company{ID: 9, Code: "GROUP", Aggregate: true}
	store := &fakeStore{aggregate: &existing}
	svc := testService(store, nil)

	err := svc.UpdateCompany(context.Background(), 9, Company{Code: "GROUP", Name: "Group Plan", Aggregate: true})
	require.NoError(t, err)
	require.Len(t, store.updated, 1)
}

func TestImportAccounts(t *testing.T) {
	store := &fakeStore{}
	buster := &fakeBuster{}
	svc := testService(store, buster)

	table := [][]string{
		{"Sort Order", "Account Code", "Account Name", "Account Type", "Parent Category", "Sub Category"},
		{"10", "", "REVENUE", "HEADER", "", ""},
		{"20", "4000.0", "INTEREST INCOME", "income", "Revenue", "INTEREST INCOME"},
		{"30", "4100", "Late Fee Income", "INCOME", "Revenue", "FEE INCOME"},
		{"", "", "", "", "", ""},
		{"40", "9999", "", "INCOME", "", ""},
		{"abc", "9998", "Broken Row", "INCOME", "", ""},
	}
	result, err := svc.ImportAccounts(context.Background(), table)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, result.RowErrors, 1)
	assert.Contains(t, result.RowErrors[0], "Row 7")

	require.Len(t, store.replaced, 1)
	accounts := store.replaced[0]
	require.Len(t, accounts, 3)

	header := accounts[0]
	assert.True(t, header.IsHeader)
	assert.Equal(t, "REVENUE", header.AccountName, "header names keep their casing")
	assert.Equal(t, "", header.AccountCode)
	assert.Equal(t, 10, header.SortOrder)

	leaf := accounts[1]
	assert.False(t, leaf.IsHeader)
	assert.Equal(t, "4000", leaf.AccountCode, "spreadsheet .0 suffix is stripped")
	assert.Equal(t, "Interest Income", leaf.AccountName, "shouty leaf names are title-cased")
	assert.Equal(t, "INCOME", leaf.AccountType)
	assert.Equal(t, "Revenue", leaf.ParentCategory)
	assert.Equal(t, "INTEREST INCOME", leaf.SubCategory)

	mixed := accounts[2]
	assert.Equal(t, "Late Fee Income", mixed.AccountName, "mixed-case names pass through")

	assert.Equal(t, 1, buster.bumps)
}

func TestImportAccountsHeaderRules(t *testing.T) {
	store := &fakeStore{}
	svc := testService(store, nil)

	table := [][]string{
		{"Sort Order", "Account Code", "Account Name", "Account Type", "Parent Category", "Sub Category"},
		{"10", "", "No Code", "INCOME", "", ""},
		{"20", "4000", "Blank Type", "", "", ""},
		{"30", "4100", "Total Row", "total", "", ""},
		{"40", "4200", "Real Account", "INCOME", "", ""},
	}
	_, err := svc.ImportAccounts(context.Background(), table)
	require.NoError(t, err)

	require.Len(t, store.replaced, 1)
	accounts := store.replaced[0]
	require.Len(t, accounts, 4)
	assert.True(t, accounts[0].IsHeader, "missing code makes a header")
	assert.True(t, accounts[1].IsHeader, "blank type makes a header")
	assert.True(t, accounts[2].IsHeader, "TOTAL type makes a header")
	assert.False(t, accounts[3].IsHeader)
}

func TestImportAccountsRequiresSixColumns(t *testing.T) {
	svc := testService(&fakeStore{}, nil)

	_, err := svc.ImportAccounts(context.Background(), [][]string{
		{"Sort Order", "Account Code", "Account Name"},
		{"10", "4000", "Interest Income"},
	})
	assert.Error(t, err)
}

func TestImportAccountsEmptyFile(t *testing.T) {
	store := &fakeStore{}
	svc := testService(store, nil)

	result, err := svc.ImportAccounts(context.Background(), [][]string{
		{"Sort Order", "Account Code", "Account Name", "Account Type", "Parent Category", "Sub Category"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.RowErrors)
	assert.Empty(t, store.replaced)
}
