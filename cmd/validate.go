package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"finrisk/internal/ui"
)

// validateCmd checks the configuration without running anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the pipeline configuration",
	Long: `Check that the configuration names the mandatory feeds, that every sheet
has a parseable as-of date and that the source workbooks exist on disk.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadRunConfig()
		if err != nil {
			return err
		}
		u := ui.New(verbose, quiet)

		problems := cfg.Validate()
		for name, feed := range cfg.Sources {
			if feed.File == "" {
				continue
			}
			if _, err := os.Stat(feed.File); err != nil {
				problems = append(problems, fmt.Sprintf("sources.%s.file: %s not found", name, feed.File))
			}
		}
		for name, aux := range cfg.Auxiliary {
			if _, err := os.Stat(aux.File); err != nil {
				problems = append(problems, fmt.Sprintf("auxiliary.%s.file: %s not found", name, aux.File))
			}
		}

		if len(problems) == 0 {
			u.Success("configuration is valid")
			return nil
		}
		for _, p := range problems {
			u.Error(p)
		}
		return fmt.Errorf("configuration has %d problems", len(problems))
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
