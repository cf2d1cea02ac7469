package pipeline

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"finrisk/internal/ui"
	"finrisk/pkg/models"
)

func writeWorkbook(t *testing.T, dir, file, sheet string, rows [][]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName("Sheet1", sheet))
	for r, row := range rows {
		for c, cell := range row {
			ref, err := excelize.CoordinatesToCellName(c+1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue(sheet, ref, cell))
		}
	}
	path := filepath.Join(dir, file)
	require.NoError(t, f.SaveAs(path))
	return path
}

func readExport(t *testing.T, dir, prefix string) [][]string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, prefix+"_*.csv"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected one %s export", prefix)

	f, err := os.Open(matches[0])
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func column(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func TestRunEndToEnd(t *testing.T) {
	srcDir := t.TempDir()
	outDir := t.TempDir()

	lm := writeWorkbook(t, srcDir, "fnz001.xlsx", "ENERO", [][]string{
		{"CEDULA", "DESEMBOLSO", "VALOR"},
		{"123", "DF-4", "1000000"},
		{"777", "DF-9", "500000"},
	})
	ac := writeWorkbook(t, srcDir, "fnz002.xlsx", "ENERO", [][]string{
		{"CEDULA", "NUMERO", "DIASATRAS", "SALDOFAC"},
		{"123", "4", "45", "800"},
		{"777", "9", "0", "400"},
	})
	reg := writeWorkbook(t, srcDir, "fnz003.xlsx", "ENERO", [][]string{
		{"FECHA", "CC_NIT", "DSM_NUM", "VLR_FNZ"},
		{"2024-01-15", "123", "4", "1000000"},
		{"2024-01-20", "777", "9", "500000"},
	})

	cfg := &models.Config{
		Sources: map[string]models.Feed{
			models.FeedLoanMaster: {File: lm, Critical: true, Sheets: map[string]string{"ENERO": ""}},
			models.FeedPortfolio:  {File: ac, Critical: true, Sheets: map[string]string{"ENERO": "2024-01-31"}},
			models.FeedRegistry:   {File: reg, Critical: true, Sheets: map[string]string{"ENERO": ""}},
		},
		Output: models.Output{Dir: outDir, Format: "csv"},
	}

	p := New(cfg, ui.New(false, true), func() time.Time {
		return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	})
	rep, err := p.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.True(t, rep.Success)
	assert.NotEmpty(t, rep.Joins)

	// the run summary lands next to the exports
	_, err = os.Stat(filepath.Join(outDir, "run_summary.json"))
	assert.NoError(t, err)

	base := readExport(t, outDir, "base")
	require.Len(t, base, 3)
	ki := column(base[0], "cedula_numero")
	vi := column(base[0], "valor")
	require.GreaterOrEqual(t, ki, 0)
	require.GreaterOrEqual(t, vi, 0)
	assert.Equal(t, "123-4", base[1][ki])
	assert.Equal(t, "1000000", base[1][vi])
	di := column(base[0], "diasatras")
	bi := column(base[0], "mora")
	require.GreaterOrEqual(t, di, 0)
	require.GreaterOrEqual(t, bi, 0)
	assert.Equal(t, "45", base[1][di])
	assert.Equal(t, "B1", base[1][bi])

	behavior := readExport(t, outDir, "behavior")
	require.Len(t, behavior, 3)
	mi := column(behavior[0], "mora_2024-01-31")
	require.GreaterOrEqual(t, mi, 0)
	byKey := map[string]string{}
	for _, row := range behavior[1:] {
		byKey[row[column(behavior[0], "cedula_numero")]] = row[mi]
	}
	assert.Equal(t, "B1", byKey["123-4"])
	assert.Equal(t, "A1", byKey["777-9"])

	cohorts := readExport(t, outDir, "cohorts")
	assert.Greater(t, len(cohorts), 1)
	segments := readExport(t, outDir, "segments")
	assert.Greater(t, len(segments), 1)
}

func TestRunFailsWithoutCriticalFeed(t *testing.T) {
	outDir := t.TempDir()
	cfg := &models.Config{
		Sources: map[string]models.Feed{},
		Output:  models.Output{Dir: outDir, Format: "csv"},
	}

	p := New(cfg, ui.New(false, true), nil)
	rep, err := p.Run(context.Background())
	require.Error(t, err)
	require.NotNil(t, rep)
	assert.False(t, rep.Success)
	assert.NotEmpty(t, rep.Errors)
}
