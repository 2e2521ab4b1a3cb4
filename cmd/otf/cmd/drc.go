package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/job"
)

var drcCmd = &cobra.Command{
	Use:   "drc <project_file>",
	Short: "Run the design rule check on all boards",
	Long: `Run the design rule check on all boards of a project and print the
non-approved messages. Shortcut for "open-project --drc".`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runJob(cmd, job.Options{
			ProjectFile:     args[0],
			RunDRC:          true,
			DRCSettingsFile: drcSettingsFile,
			ApprovalsFile:   approvalsFile,
			Quick:           quickDRC,
		})
	},
}

func init() {
	f := drcCmd.Flags()
	f.StringVar(&drcSettingsFile, "settings", "", "override the DRC settings of the boards with a settings file")
	f.StringVar(&approvalsFile, "approvals", "", "additional file of approved DRC messages")
	f.BoolVar(&quickDRC, "quick", false, "run only the fast copper checks")
	rootCmd.AddCommand(drcCmd)
}
