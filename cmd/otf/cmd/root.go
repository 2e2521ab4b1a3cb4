package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFab/internal/logging"
)

var (
	// Global flags
	verbose bool
)

// errFailed signals a run that already reported its problems.
var errFailed = errors.New("finished with errors")

var rootCmd = &cobra.Command{
	Use:   "otf",
	Short: "OpenTraceFab - Board design rule check and fabrication output",
	Long: `OpenTraceFab (otf) checks printed circuit boards against design rules and
writes their fabrication data:
  - design rule check with approvals
  - Gerber X2 layers and Excellon drill files
  - pick&place lists and component layers

Examples:
  otf drc board.otfp                                    # Check all boards
  otf open-project board.otfp --export-pcb-fabrication-data
  otf open-project board.otfp --board main --export-pnp-top pnp/{{BOARD}}_top.csv
  otf view board.otfp --drc                             # Show board with DRC markers`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if verbose {
			logging.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		} else {
			logging.SetLogger(nil)
		}
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errFailed) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
