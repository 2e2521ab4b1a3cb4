package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/job"
)

var (
	runDRC          bool
	drcSettingsFile string
	approvalsFile   string
	exportFabData   bool
	fabSettingsFile string
	pnpTopFiles     []string
	pnpBottomFiles  []string
	boardNames      []string
	boardIndices    []string
	quickDRC        bool
	creationDate    string
)

var openProjectCmd = &cobra.Command{
	Use:   "open-project <project_file>",
	Short: "Open a project and run checks and exports",
	Long: `Open a project file and process the selected boards (all by default).

Output paths may contain placeholders like {{PROJECT}}, {{VERSION}}, {{BOARD}}
and {{BOARD_INDEX}}. Relative paths are resolved against the project
directory. Pick&place files ending in .csv are written as CSV, files ending
in .gbr as Gerber X2 component layers.

Exits with status 1 if any check reports a non-approved message or any
export fails.`,
	Args: cobra.ExactArgs(1),
	RunE: runOpenProject,
}

func init() {
	f := openProjectCmd.Flags()
	f.BoolVar(&runDRC, "drc", false, "run the design rule check")
	f.StringVar(&drcSettingsFile, "drc-settings", "", "override the DRC settings of the boards with a settings file")
	f.StringVar(&approvalsFile, "approvals", "", "additional file of approved DRC messages")
	f.BoolVar(&quickDRC, "quick", false, "run only the fast copper checks")
	f.BoolVar(&exportFabData, "export-pcb-fabrication-data", false, "export Gerber and Excellon files")
	f.StringVar(&fabSettingsFile, "pcb-fabrication-settings", "", "override the fabrication output settings with a settings file")
	f.StringArrayVar(&pnpTopFiles, "export-pnp-top", nil, "export top pick&place data to file (repeatable)")
	f.StringArrayVar(&pnpBottomFiles, "export-pnp-bottom", nil, "export bottom pick&place data to file (repeatable)")
	f.StringArrayVar(&boardNames, "board", nil, "process only the board with this name (repeatable)")
	f.StringArrayVar(&boardIndices, "board-index", nil, "process only the board with this index (repeatable)")
	f.StringVar(&creationDate, "date", "", "creation date written to files (RFC3339) for reproducible output")
	rootCmd.AddCommand(openProjectCmd)
}

func runOpenProject(cmd *cobra.Command, args []string) error {
	opts := job.Options{
		ProjectFile:             args[0],
		RunDRC:                  runDRC,
		DRCSettingsFile:         drcSettingsFile,
		ApprovalsFile:           approvalsFile,
		Quick:                   quickDRC,
		ExportFabricationData:   exportFabData,
		FabricationSettingsFile: fabSettingsFile,
		PnPTop:                  pnpTopFiles,
		PnPBottom:               pnpBottomFiles,
		Boards:                  boardNames,
		BoardIndices:            boardIndices,
	}
	if creationDate != "" {
		t, err := time.Parse(time.RFC3339, creationDate)
		if err != nil {
			return fmt.Errorf("invalid --date: %w", err)
		}
		opts.Created = t
	}
	return runJob(cmd, opts)
}

func runJob(cmd *cobra.Command, opts job.Options) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ok, err := job.NewRunner(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts).Run(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errFailed
	}
	return nil
}
