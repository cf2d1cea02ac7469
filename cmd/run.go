package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"finrisk/internal/config"
	"finrisk/internal/pipeline"
	"finrisk/internal/table"
	"finrisk/internal/ui"
	"finrisk/pkg/models"
)

var outputDir string

// runCmd executes the full ETL
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline",
	Long: `Load every configured source extract, clean and join them into the unified
base, derive the cohort, segmentation and behavior datasets, and write the
results to the output directory (and to Snowflake when enabled).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig()
		if err != nil {
			return err
		}
		if outputDir != "" {
			cfg.Output.Dir = outputDir
		}
		if problems := cfg.Validate(); len(problems) > 0 {
			for _, p := range problems {
				fmt.Println("  -", p)
			}
			return fmt.Errorf("configuration is not valid (%d problems)", len(problems))
		}

		u := ui.New(verbose, quiet)
		p := pipeline.New(cfg, u, nil)

		rep, err := p.Run(cmd.Context())
		if rep != nil {
			var rows [][]string
			for _, d := range rep.Datasets {
				status := "ok"
				if !d.Loaded {
					status = "missing"
				}
				rows = append(rows, []string{
					d.Name, strconv.Itoa(d.Rows), strconv.Itoa(d.Columns), status,
				})
			}
			u.DatasetTable(rows)
			u.JoinTable(joinRows(rep.Joins))
			u.Printf("%d warnings, %d errors, %.1fs\n",
				len(rep.Warnings), len(rep.Errors), rep.DurationS)
		}
		return err
	},
}

func joinRows(stats []table.JoinStats) [][]string {
	rows := make([][]string, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, []string{
			s.Stage,
			strconv.Itoa(s.LeftRows),
			strconv.Itoa(s.RightRows),
			strconv.Itoa(s.ResultRows),
			fmt.Sprintf("%.1f", s.MatchRate()*100),
		})
	}
	return rows
}

func loadRunConfig() (*models.Config, error) {
	if cfgFile != "" {
		return config.LoadFile(cfgFile)
	}
	return config.Load()
}

func init() {
	runCmd.Flags().StringVarP(&outputDir, "output", "o", "", "override the configured output directory")
	rootCmd.AddCommand(runCmd)
}
