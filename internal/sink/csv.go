package sink

import (
	"encoding/csv"
	"os"
	"time"

	"finrisk/internal/common"
	"finrisk/internal/table"

	apperrors "finrisk/pkg/errors"
)

// CSVSink writes each table as a timestamped CSV file under Dir.
type CSVSink struct {
	Dir string
	Now time.Time
}

func (s *CSVSink) Write(t *table.Table) (string, error) {
	path := exportPath(s.Dir, t.Name(), "csv", s.Now)
	if _, err := common.ValidatePath(path, s.Dir); err != nil {
		return "", apperrors.SinkError(t.Name(), err)
	}
	if err := os.MkdirAll(s.Dir, 0750); err != nil {
		return "", apperrors.SinkError(t.Name(), err)
	}

	f, err := os.Create(path) // #nosec G304 - path is built from config
	if err != nil {
		return "", apperrors.SinkError(t.Name(), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Columns()); err != nil {
		return "", apperrors.SinkError(t.Name(), err)
	}
	record := make([]string, t.NumCols())
	for r := 0; r < t.NumRows(); r++ {
		for c := 0; c < t.NumCols(); c++ {
			record[c] = t.At(r, c).String()
		}
		if err := w.Write(record); err != nil {
			return "", apperrors.SinkError(t.Name(), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", apperrors.SinkError(t.Name(), err)
	}
	return path, nil
}
