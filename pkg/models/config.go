package models

import (
	"fmt"
	"sort"
	"time"
)

// Feed names used throughout the pipeline. These are the six source extracts
// plus the auxiliary lookups, keyed the way the configuration file names them.
const (
	FeedLoanMaster  = "loan_master"
	FeedPortfolio   = "portfolio"
	FeedRegistry    = "registry"
	FeedAgeOfDebt   = "age_of_debt"
	FeedPaymentPlan = "payment_plan"
	FeedCollections = "collections"

	AuxExcludedAccounts = "excluded_accounts"
	AuxCategories       = "categories"
)

// Config is the root configuration for a pipeline run
type Config struct {
	Sources   map[string]Feed      `yaml:"sources"`
	Auxiliary map[string]Auxiliary `yaml:"auxiliary"`
	Transform Transform            `yaml:"transform"`
	Output    Output               `yaml:"output"`
	Snowflake Snowflake            `yaml:"snowflake"`
}

// Feed describes one spreadsheet source extract: the workbook and the sheets
// to load, each stamped with its as-of ("corte") date. An empty date means the
// sheet is loaded without date stamping.
type Feed struct {
	File     string            `yaml:"file"`
	Sheets   map[string]string `yaml:"sheets"`
	Critical bool              `yaml:"critical"`

	// Sheets whose extract carries an extra column block that must be cut
	// on load, and sheets whose birth-date column needs format repair.
	// Only the loan-master feed uses these.
	ExtraColumnSheets []string `yaml:"extra_column_sheets,omitempty"`
	DateRepairSheets  []string `yaml:"date_repair_sheets,omitempty"`
}

// Auxiliary describes a lookup workbook loaded without as-of stamping
type Auxiliary struct {
	File  string `yaml:"file"`
	Sheet string `yaml:"sheet,omitempty"`
}

// Transform holds the per-source cleaning configuration
type Transform struct {
	// BrandFilter keeps only portfolio rows whose brand column matches.
	BrandFilter string `yaml:"brand_filter"`
	// CreditLines is the age-of-debt allow list.
	CreditLines []string `yaml:"credit_lines"`
	// DropColumns lists the non-essential columns pruned per feed.
	DropColumns map[string][]string `yaml:"drop_columns"`
	// OutlierSeed seeds the demographic outlier repair; zero disables it.
	OutlierSeed int64 `yaml:"outlier_seed"`
}

// Output configures the file sinks
type Output struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"` // csv or xlsx
}

// Snowflake configures the optional warehouse sink
type Snowflake struct {
	Enabled   bool   `yaml:"enabled"`
	Account   string `yaml:"account"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	Role      string `yaml:"role,omitempty"`
}

// AsOfDates returns the feed's sheet names with their parsed as-of dates,
// sorted by sheet name for deterministic load order.
func (f Feed) AsOfDates() ([]SheetDate, error) {
	out := make([]SheetDate, 0, len(f.Sheets))
	for sheet, raw := range f.Sheets {
		sd := SheetDate{Sheet: sheet}
		if raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return nil, fmt.Errorf("sheet %q: invalid as-of date %q: %w", sheet, raw, err)
			}
			sd.AsOf = &t
		}
		out = append(out, sd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sheet < out[j].Sheet })
	return out, nil
}

// SheetDate pairs a sheet label with its optional as-of date
type SheetDate struct {
	Sheet string
	AsOf  *time.Time
}

// CriticalFeeds returns the names of feeds marked critical, sorted.
func (c *Config) CriticalFeeds() []string {
	var names []string
	for name, f := range c.Sources {
		if f.Critical {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() []string {
	var problems []string

	required := []string{FeedLoanMaster, FeedPortfolio, FeedRegistry}
	for _, name := range required {
		feed, ok := c.Sources[name]
		if !ok {
			problems = append(problems, fmt.Sprintf("sources.%s: missing mandatory feed", name))
			continue
		}
		if feed.File == "" {
			problems = append(problems, fmt.Sprintf("sources.%s.file: empty path", name))
		}
		if len(feed.Sheets) == 0 {
			problems = append(problems, fmt.Sprintf("sources.%s.sheets: no sheets configured", name))
		}
		if _, err := feed.AsOfDates(); err != nil {
			problems = append(problems, fmt.Sprintf("sources.%s: %v", name, err))
		}
	}

	if c.Output.Format != "" && c.Output.Format != "csv" && c.Output.Format != "xlsx" {
		problems = append(problems, fmt.Sprintf("output.format: %q is not csv or xlsx", c.Output.Format))
	}

	if c.Snowflake.Enabled {
		if c.Snowflake.Account == "" || c.Snowflake.Username == "" {
			problems = append(problems, "snowflake: account and username are required when enabled")
		}
	}

	return problems
}
