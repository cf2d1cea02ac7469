// Package sink persists the published datasets: CSV or XLSX files on disk
// and, when configured, a Snowflake warehouse schema.
package sink

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"finrisk/internal/table"
)

// Sink writes one table to a destination.
type Sink interface {
	Write(t *table.Table) (string, error)
}

// For returns the file sink for the configured format.
func For(format, dir string, now time.Time) (Sink, error) {
	switch format {
	case "", "csv":
		return &CSVSink{Dir: dir, Now: now}, nil
	case "xlsx":
		return &XLSXSink{Dir: dir, Now: now}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// exportPath builds "<dir>/<name>_<yyyymmdd_hhmmss>.<ext>" so successive
// runs never clobber each other.
func exportPath(dir, name, ext string, now time.Time) string {
	stamp := now.Format("20060102_150405")
	file := fmt.Sprintf("%s_%s.%s", sanitize(name), stamp, ext)
	return filepath.Join(dir, file)
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}
