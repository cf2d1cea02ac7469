// Package loader reads the source workbooks into tables: one sheet per
// monthly extract, stamped with its cut date and stacked into a single feed
// table, with the per-sheet corrections some extracts need applied on the
// way in.
package loader

import (
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"finrisk/internal/table"
	"finrisk/pkg/models"

	apperrors "finrisk/pkg/errors"
)

// extraColumnStart and extraColumnEnd delimit the spurious column block some
// loan-master extracts carry (columns 43 through 88, zero-based 42..87).
// Sheets flagged in the feed config have the block cut before stacking.
const (
	extraColumnStart = 42
	extraColumnEnd   = 88
)

// birthDateRepairColumn is reparsed with an explicit timestamp layout on the
// sheets flagged for date repair; those extracts export it as text.
const birthDateRepairColumn = "fs1nacfec"

// Result is a loaded feed plus the findings collected while loading it.
type Result struct {
	Table    *table.Table
	Sheets   int
	Warnings []string
}

// LoadFeed reads every configured sheet of a feed workbook and stacks them
// into one table. A critical feed that cannot be loaded is a hard error; an
// optional feed degrades to a nil table with a recoverable error.
func LoadFeed(name string, feed models.Feed) (*Result, error) {
	res := &Result{}

	dates, err := feed.AsOfDates()
	if err != nil {
		return nil, apperrors.ConfigError(err.Error(), fmt.Sprintf("sources.%s.sheets", name))
	}

	if _, err := os.Stat(feed.File); err != nil {
		return nil, sourceError(name, feed, fmt.Sprintf("file %s not found", feed.File))
	}
	f, err := excelize.OpenFile(feed.File)
	if err != nil {
		return nil, sourceError(name, feed, fmt.Sprintf("cannot open %s: %v", feed.File, err))
	}
	defer f.Close()

	extraCols := stringSet(feed.ExtraColumnSheets)
	dateRepair := stringSet(feed.DateRepairSheets)

	var parts []*table.Table
	for _, sd := range dates {
		part, err := readSheet(f, name, sd.Sheet)
		if err != nil {
			res.Warnings = append(res.Warnings, err.Error())
			continue
		}
		if extraCols[sd.Sheet] {
			if n := cutExtraColumns(part); n > 0 {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("%s/%s: cut %d extra columns", name, sd.Sheet, n))
			}
		}
		if dateRepair[sd.Sheet] {
			repairBirthDates(part)
		}
		if sd.AsOf != nil {
			stampCutDate(part, *sd.AsOf)
		}
		parts = append(parts, part)
		res.Sheets++
	}

	if len(parts) == 0 {
		return nil, sourceError(name, feed, "no sheets could be loaded")
	}

	stacked, drift := table.Concat(name, parts...)
	res.Warnings = append(res.Warnings, drift...)
	res.Table = stacked
	return res, nil
}

// LoadAuxiliary reads a lookup workbook; the first sheet when none is named.
func LoadAuxiliary(name string, aux models.Auxiliary) (*table.Table, error) {
	if _, err := os.Stat(aux.File); err != nil {
		return nil, apperrors.OptionalSourceError(name, fmt.Sprintf("file %s not found", aux.File))
	}
	f, err := excelize.OpenFile(aux.File)
	if err != nil {
		return nil, apperrors.OptionalSourceError(name, fmt.Sprintf("cannot open %s: %v", aux.File, err))
	}
	defer f.Close()

	sheet := aux.Sheet
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	return readSheet(f, name, sheet)
}

func sourceError(name string, feed models.Feed, reason string) *apperrors.AppError {
	if feed.Critical {
		return apperrors.CriticalSourceError(name, reason)
	}
	return apperrors.OptionalSourceError(name, reason)
}

// readSheet reads one sheet into a table. The first row is the header; rows
// shorter than the header are padded with nulls, matching how the extracts
// trail off.
func readSheet(f *excelize.File, feed, sheet string) (*table.Table, error) {
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, apperrors.New(apperrors.ErrCodeSheetNotFound,
			fmt.Sprintf("%s: sheet %q not readable: %v", feed, sheet, err)).
			WithContext("dataset", feed).
			WithContext("sheet", sheet).
			AsRecoverable()
	}
	if len(rows) == 0 {
		return nil, apperrors.New(apperrors.ErrCodeSourceEmpty,
			fmt.Sprintf("%s: sheet %q is empty", feed, sheet)).
			WithContext("dataset", feed).
			WithContext("sheet", sheet).
			AsRecoverable()
	}

	header := rows[0]
	cols := make([]string, len(header))
	for i, h := range header {
		if h == "" {
			h = fmt.Sprintf("col_%d", i+1)
		}
		cols[i] = h
	}
	t := table.New(fmt.Sprintf("%s/%s", feed, sheet), dedupeHeaders(cols)...)

	for _, raw := range rows[1:] {
		vals := make([]table.Value, len(cols))
		for i := range cols {
			if i >= len(raw) || raw[i] == "" {
				vals[i] = table.Null()
				continue
			}
			vals[i] = table.String(raw[i])
		}
		t.MustAppendRow(vals...)
	}
	return t, nil
}

// dedupeHeaders suffixes repeated header names; workbooks exported by hand
// occasionally repeat one.
func dedupeHeaders(cols []string) []string {
	seen := make(map[string]int, len(cols))
	out := make([]string, len(cols))
	for i, c := range cols {
		if n := seen[c]; n > 0 {
			out[i] = fmt.Sprintf("%s_%d", c, n+1)
		} else {
			out[i] = c
		}
		seen[c]++
	}
	return out
}

// cutExtraColumns removes the spurious block when the sheet is wide enough
// to carry it, returning how many columns were cut.
func cutExtraColumns(t *table.Table) int {
	cols := t.Columns()
	if len(cols) <= extraColumnEnd {
		return 0
	}
	return t.DropColumns(cols[extraColumnStart:extraColumnEnd]...)
}

// repairBirthDates reparses the birth-date column with the timestamp layout
// the flagged extracts use; unparseable cells become null.
func repairBirthDates(t *table.Table) {
	col := t.ResolveColumn(birthDateRepairColumn)
	if col == "" {
		return
	}
	for r := 0; r < t.NumRows(); r++ {
		v := t.Value(r, col)
		if v.IsNull() {
			continue
		}
		if d, err := time.Parse("2006-01-02 15:04:05", v.String()); err == nil {
			t.Set(r, col, table.Time(d))
		} else if d, ok := v.AsTime(); ok {
			t.Set(r, col, table.Time(d))
		} else {
			t.Set(r, col, table.Null())
		}
	}
}

// stampCutDate adds or overwrites the corte column with the sheet's as-of
// date.
func stampCutDate(t *table.Table, asOf time.Time) {
	if !t.HasColumn("corte") {
		t.AddColumn("corte", table.Null())
	}
	for r := 0; r < t.NumRows(); r++ {
		t.Set(r, "corte", table.Time(asOf))
	}
}

func stringSet(ss []string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}
