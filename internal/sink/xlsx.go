package sink

import (
	"fmt"
	"os"
	"time"

	"github.com/xuri/excelize/v2"

	"finrisk/internal/common"
	"finrisk/internal/table"

	apperrors "finrisk/pkg/errors"
)

// XLSXSink writes each table as a timestamped single-sheet workbook.
type XLSXSink struct {
	Dir string
	Now time.Time
}

func (s *XLSXSink) Write(t *table.Table) (string, error) {
	path := exportPath(s.Dir, t.Name(), "xlsx", s.Now)
	if _, err := common.ValidatePath(path, s.Dir); err != nil {
		return "", apperrors.SinkError(t.Name(), err)
	}
	if err := os.MkdirAll(s.Dir, 0750); err != nil {
		return "", apperrors.SinkError(t.Name(), err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for c, name := range t.Columns() {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return "", apperrors.SinkError(t.Name(), err)
		}
		if err := f.SetCellValue(sheet, cell, name); err != nil {
			return "", apperrors.SinkError(t.Name(), err)
		}
	}
	for r := 0; r < t.NumRows(); r++ {
		for c := 0; c < t.NumCols(); c++ {
			v := t.At(r, c)
			if v.IsNull() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return "", apperrors.SinkError(t.Name(), err)
			}
			if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
				return "", apperrors.SinkError(t.Name(), err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return "", apperrors.SinkError(t.Name(), fmt.Errorf("save %s: %w", path, err))
	}
	return path, nil
}

// cellValue maps a table cell onto the native spreadsheet type.
func cellValue(v table.Value) interface{} {
	if d, ok := v.Decimal(); ok {
		f, _ := d.Float64()
		return f
	}
	if t, ok := v.Time(); ok {
		return t
	}
	return v.String()
}
