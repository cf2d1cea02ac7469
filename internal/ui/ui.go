// Package ui renders pipeline progress and summaries on the terminal.
package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
)

var (
	successColor = color.New(color.FgGreen)
	errorColor   = color.New(color.FgRed)
	warnColor    = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
)

// UI writes status output. Quiet suppresses everything but errors; Verbose
// adds per-stage detail.
type UI struct {
	Verbose bool
	Quiet   bool
}

// New creates a UI.
func New(verbose, quiet bool) *UI {
	return &UI{Verbose: verbose, Quiet: quiet}
}

// Printf prints formatted output if not in quiet mode
func (u *UI) Printf(format string, args ...interface{}) {
	if !u.Quiet {
		fmt.Printf(format, args...)
	}
}

// VerbosePrintf prints formatted output only in verbose mode
func (u *UI) VerbosePrintf(format string, args ...interface{}) {
	if u.Verbose && !u.Quiet {
		fmt.Printf(format, args...)
	}
}

// Header displays a stage banner
func (u *UI) Header(title string) {
	if u.Quiet {
		return
	}
	line := strings.Repeat("=", 60)
	fmt.Println(line)
	boldColor.Println(title)
	fmt.Println(line)
}

// Success prints a success message
func (u *UI) Success(message string) {
	if !u.Quiet {
		fmt.Printf("%s %s\n", successColor.Sprint("✓"), message)
	}
}

// Warning prints a warning message
func (u *UI) Warning(message string) {
	if !u.Quiet {
		fmt.Printf("%s %s\n", warnColor.Sprint("⚠"), message)
	}
}

// Error prints an error message. Not silenced by quiet mode.
func (u *UI) Error(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", errorColor.Sprint("✗"), message)
}

// Info prints an information message
func (u *UI) Info(message string) {
	if !u.Quiet {
		fmt.Printf("%s %s\n", infoColor.Sprint("•"), message)
	}
}

// DatasetTable renders the per-dataset summary table at the end of a run.
func (u *UI) DatasetTable(rows [][]string) {
	if u.Quiet {
		return
	}
	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"Dataset", "Rows", "Columns", "Status"})
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.AppendBulk(rows)
	t.Render()
}

// JoinTable renders the join statistics table.
func (u *UI) JoinTable(rows [][]string) {
	if u.Quiet {
		return
	}
	t := tablewriter.NewWriter(os.Stdout)
	t.SetHeader([]string{"Stage", "Left", "Right", "Result", "Match %"})
	t.SetBorder(false)
	t.SetAutoWrapText(false)
	t.AppendBulk(rows)
	t.Render()
}
