// Package report collects what happened during a run and persists the
// machine-readable summary next to the exported datasets.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"finrisk/internal/table"
)

// DatasetSummary is one loaded or produced dataset in the run report.
type DatasetSummary struct {
	Name    string `json:"name"`
	Rows    int    `json:"rows"`
	Columns int    `json:"columns"`
	Loaded  bool   `json:"loaded"`
}

// Report accumulates the outcome of a pipeline run.
type Report struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	DurationS  float64           `json:"duration_seconds"`
	Datasets   []DatasetSummary  `json:"datasets"`
	Joins      []table.JoinStats `json:"joins"`
	Excluded   int               `json:"excluded_accounts"`
	Warnings   []string          `json:"warnings"`
	Errors     []string          `json:"errors"`
	Success    bool              `json:"success"`
}

// New starts a report clocked from now.
func New() *Report {
	return &Report{StartedAt: time.Now()}
}

// AddDataset records a dataset outcome. A nil table records a feed that
// never loaded.
func (r *Report) AddDataset(name string, t *table.Table) {
	s := DatasetSummary{Name: name}
	if t != nil {
		s.Rows = t.NumRows()
		s.Columns = t.NumCols()
		s.Loaded = true
	}
	r.Datasets = append(r.Datasets, s)
}

// AddJoins appends join statistics.
func (r *Report) AddJoins(stats ...table.JoinStats) {
	r.Joins = append(r.Joins, stats...)
}

// Warn records a non-fatal finding.
func (r *Report) Warn(format string, args ...interface{}) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Fail records a fatal finding.
func (r *Report) Fail(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err.Error())
	}
}

// Finish stamps the end of the run.
func (r *Report) Finish() {
	r.FinishedAt = time.Now()
	r.DurationS = r.FinishedAt.Sub(r.StartedAt).Seconds()
	r.Success = len(r.Errors) == 0
	sort.SliceStable(r.Datasets, func(i, j int) bool {
		return r.Datasets[i].Name < r.Datasets[j].Name
	})
}

// Save writes the report as indented JSON under dir.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create report directory: %w", err)
	}
	path := filepath.Join(dir, "run_summary.json")
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0640); err != nil {
		return "", fmt.Errorf("failed to write run report: %w", err)
	}
	return path, nil
}
