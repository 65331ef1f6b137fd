package ingest

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	knownCodes      map[string]struct{}
	existingPeriods []time.Time

	replaceCalls []ReplaceInput
	backupID     *uuid.UUID
	restored     int
	restoreErr   error
}

func (f *fakeStore) KnownAccountCodes(_ context.Context, codes []string) (map[string]struct{}, error) {
	known := make(map[string]struct{})
	for _, c := range codes {
		if _, ok := f.knownCodes[c]; ok {
			known[c] = struct{}{}
		}
	}
	return known, nil
}

func (f *fakeStore) ExistingPeriods(_ context.Context, _ int64, _ string, _ []time.Time) ([]time.Time, error) {
	return f.existingPeriods, nil
}

func (f *fakeStore) Replace(_ context.Context, in ReplaceInput) (*uuid.UUID, error) {
	f.replaceCalls = append(f.replaceCalls, in)
	return f.backupID, nil
}

func (f *fakeStore) Restore(_ context.Context, _ uuid.UUID) (int, error) {
	return f.restored, f.restoreErr
}

type fakeBuster struct{ bumps int }

func (f *fakeBuster) Bump(context.Context) error {
	f.bumps++
	return nil
}

type fakeWarmer struct{ enqueued int }

func (f *fakeWarmer) EnqueueWarmup(context.Context) error {
	f.enqueued++
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func codeSet(codes ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		set[c] = struct{}{}
	}
	return set
}

var uploadTable = [][]string{
	{"Account Code", "Jan-24", "Feb-24"},
	{"4000", "$1,000.00", "1,100"},
	{"5000", "(250)", ""},
}

func TestUploadFactsHappyPath(t *testing.T) {
	store := &fakeStore{knownCodes: codeSet("4000", "5000")}
	buster := &fakeBuster{}
	warmer := &fakeWarmer{}
	svc := NewService(testLogger(), store, buster, warmer)

	result, err := svc.UploadFacts(context.Background(), UploadInput{
		EntityID: 1, DataType: "actual", Filename: "facts.csv",
	}, uploadTable)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 2, result.Periods)
	assert.Empty(t, result.RowErrors)

	require.Len(t, store.replaceCalls, 1)
	in := store.replaceCalls[0]
	assert.Equal(t, []string{"4000", "5000"}, in.AccountCodes)
	assert.Empty(t, in.Periods)
	require.Len(t, in.Facts, 3)
	assert.Equal(t, "1000", in.Facts[0].Amount.String())
	assert.Equal(t, "1100", in.Facts[1].Amount.String())
	assert.Equal(t, "-250", in.Facts[2].Amount.String())
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), in.Facts[0].Period)

	assert.Equal(t, 1, buster.bumps)
	assert.Equal(t, 1, warmer.enqueued)
}

func TestUploadFactsAsksForConfirmation(t *testing.T) {
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{knownCodes: codeSet("4000", "5000"), existingPeriods: []time.Time{jan}}
	svc := NewService(testLogger(), store, nil, nil)

	result, err := svc.UploadFacts(context.Background(), UploadInput{
		EntityID: 1, DataType: "actual", Filename: "facts.csv",
	}, uploadTable)
	require.NoError(t, err)

	assert.Equal(t, StatusConfirmationNeeded, result.Status)
	assert.Equal(t, []string{"Jan-24"}, result.ExistingPeriods)
	assert.Empty(t, store.replaceCalls, "Replace must not run before confirmation")
}

func TestUploadFactsConfirmedOverwrite(t *testing.T) {
	jan := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	backup := uuid.New()
	store := &fakeStore{
		knownCodes:      codeSet("4000", "5000"),
		existingPeriods: []time.Time{jan},
		backupID:        &backup,
	}
	svc := NewService(testLogger(), store, nil, nil)

	result, err := svc.UploadFacts(context.Background(), UploadInput{
		EntityID: 1, DataType: "actual", Filename: "facts.csv", ConfirmOverwrite: true,
	}, uploadTable)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	require.NotNil(t, result.BackupID)
	assert.Equal(t, backup, *result.BackupID)
	assert.Contains(t, result.Message, "Backup created")

	require.Len(t, store.replaceCalls, 1)
	in := store.replaceCalls[0]
	assert.Equal(t, []time.Time{jan}, in.Periods)
	assert.Equal(t, []string{"Jan-24"}, in.PeriodLabels)
}

func TestUploadFactsUnknownCodesBecomeRowErrors(t *testing.T) {
	store := &fakeStore{knownCodes: codeSet("4000")}
	svc := NewService(testLogger(), store, nil, nil)

	result, err := svc.UploadFacts(context.Background(), UploadInput{
		EntityID: 1, DataType: "actual", Filename: "facts.csv",
	}, uploadTable)
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 2, result.Inserted)
	require.Len(t, result.RowErrors, 1)
	assert.Contains(t, result.RowErrors[0], "Row 3")
	assert.Contains(t, result.RowErrors[0], "5000")
}

func TestUploadFactsValidatesInput(t *testing.T) {
	svc := NewService(testLogger(), &fakeStore{}, nil, nil)

	_, err := svc.UploadFacts(context.Background(), UploadInput{
		EntityID: 0, DataType: "actual", Filename: "facts.csv",
	}, uploadTable)
	assert.Error(t, err)

	_, err = svc.UploadFacts(context.Background(), UploadInput{
		EntityID: 1, DataType: "guess", Filename: "facts.csv",
	}, uploadTable)
	assert.Error(t, err)
}

func TestUploadFactsRejectsTablesWithoutPeriods(t *testing.T) {
	store := &fakeStore{knownCodes: codeSet("4000")}
	svc := NewService(testLogger(), store, nil, nil)

	result, err := svc.UploadFacts(context.Background(), UploadInput{
		EntityID: 1, DataType: "actual", Filename: "facts.csv",
	}, [][]string{
		{"Account Code", "Notes"},
		{"4000", "opening balance"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
	require.Len(t, result.RowErrors, 1)
	assert.Contains(t, result.RowErrors[0], `"Notes"`)
	assert.Empty(t, store.replaceCalls)
}

func TestUploadFactsReportsUnparseableHeaders(t *testing.T) {
	store := &fakeStore{knownCodes: codeSet("4000")}
	svc := NewService(testLogger(), store, nil, nil)

	result, err := svc.UploadFacts(context.Background(), UploadInput{
		EntityID: 1, DataType: "actual", Filename: "facts.csv",
	}, [][]string{
		{"Account Code", "Jan-24", "NotAPeriod"},
		{"4000", "1000", "250"},
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, 1, result.Inserted, "cells under a skipped column are not ingested")
	require.Len(t, result.RowErrors, 1)
	assert.Contains(t, result.RowErrors[0], `"NotAPeriod"`)
	assert.Contains(t, result.RowErrors[0], "could not be parsed")
	assert.Contains(t, result.Message, "Encountered 1 errors")

	require.Len(t, store.replaceCalls, 1)
	require.Len(t, store.replaceCalls[0].Facts, 1)
	assert.Equal(t, "1000", store.replaceCalls[0].Facts[0].Amount.String())
}

func TestUploadFactsRejectsNarrowTables(t *testing.T) {
	svc := NewService(testLogger(), &fakeStore{}, nil, nil)

	result, err := svc.UploadFacts(context.Background(), UploadInput{
		EntityID: 1, DataType: "actual", Filename: "facts.csv",
	}, [][]string{{"Account Code"}})
	require.NoError(t, err)
	assert.Equal(t, StatusError, result.Status)
}

func TestUploadFactsNormalizesSpreadsheetCodes(t *testing.T) {
	store := &fakeStore{knownCodes: codeSet("4000")}
	svc := NewService(testLogger(), store, nil, nil)

	result, err := svc.UploadFacts(context.Background(), UploadInput{
		EntityID: 1, DataType: "actual", Filename: "facts.csv",
	}, [][]string{
		{"Account Code", "Jan-24"},
		{"4000.0", "500"},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusSuccess, result.Status)
	require.Len(t, store.replaceCalls, 1)
	assert.Equal(t, []string{"4000"}, store.replaceCalls[0].AccountCodes)
}

func TestRestoreBackup(t *testing.T) {
	store := &fakeStore{restored: 7}
	buster := &fakeBuster{}
	svc := NewService(testLogger(), store, buster, nil)

	restored, err := svc.RestoreBackup(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 7, restored)
	assert.Equal(t, 1, buster.bumps)
}

func TestRestoreBackupNotFound(t *testing.T) {
	store := &fakeStore{restoreErr: ErrBackupNotFound}
	svc := NewService(testLogger(), store, nil, nil)

	_, err := svc.RestoreBackup(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrBackupNotFound)
}
