package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestReadGrid_CSV(t *testing.T) {
	in := "\xEF\xBB\xBFName,Score\nAna Lopez,90\n\"Ortiz, Ben\",85,extra\n"
	g, err := ReadGrid("scores.csv", strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, g, 3)
	assert.Equal(t, "Name", g[0][0].Text)
	assert.Equal(t, NumberCell(90), g[1][1])
	assert.Equal(t, "Ortiz, Ben", g[2][0].Text)
	assert.Len(t, g[2], 3)
}

func newWorkbook(t *testing.T) *excelize.File {
	t.Helper()
	f := excelize.NewFile()
	t.Cleanup(func() { _ = f.Close() })

	require.NoError(t, f.SetSheetRow("Sheet1", "A1", &[]any{"Student Name", "Test Date", "Form", "Score"}))
	require.NoError(t, f.SetSheetRow("Sheet1", "A2", &[]any{"Ana Lopez", time.Date(2024, time.September, 25, 0, 0, 0, 0, time.UTC), "627R", 210}))
	return f
}

func TestReadFile_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "casas.xlsx")
	require.NoError(t, newWorkbook(t).SaveAs(path))

	g, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, g, 2)

	res := ParseCasas(g)
	require.True(t, res.OK(), res.Errors)
	require.Len(t, res.Reading, 1)
	assert.Equal(t, "2024-09-25", res.Reading[0].Date)
	assert.Equal(t, 210.0, res.Reading[0].Score.Float64)
}

func TestReadGrid_DetectsWorkbookByContent(t *testing.T) {
	buf, err := newWorkbook(t).WriteToBuffer()
	require.NoError(t, err)

	g, err := ReadGrid("upload", buf)
	require.NoError(t, err)
	assert.Equal(t, "Student Name", g.Row(0).At(0).Text)
}

func TestReadFile_Missing(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}
