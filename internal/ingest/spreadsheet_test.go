package ingest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestParseTableCSV(t *testing.T) {
	raw := "Account Code,Jan-24,Feb-24\n4000,1000,1100\n5000,250\n"
	table, err := ParseTable("facts.csv", strings.NewReader(raw))
	require.NoError(t, err)

	require.Len(t, table, 3)
	assert.Equal(t, []string{"Account Code", "Jan-24", "Feb-24"}, table[0])
	assert.Equal(t, []string{"4000", "1000", "1100"}, table[1])
	// Ragged rows survive; the upload path skips missing cells.
	assert.Equal(t, []string{"5000", "250"}, table[2])
}

func TestParseTableXLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetCellValue(sheet, "A1", "Account Code"))
	require.NoError(t, f.SetCellValue(sheet, "B1", "Jan-24"))
	require.NoError(t, f.SetCellValue(sheet, "A2", "4000"))
	require.NoError(t, f.SetCellValue(sheet, "B2", 1000))

	buf := &bytes.Buffer{}
	require.NoError(t, f.Write(buf))
	require.NoError(t, f.Close())

	table, err := ParseTable("facts.xlsx", bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, table, 2)
	assert.Equal(t, "Account Code", table[0][0])
	assert.Equal(t, "4000", table[1][0])
	assert.Equal(t, "1000", table[1][1])
}
