package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	"gioui.org/app"
	"gioui.org/unit"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceFab/internal/viewer"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/drc"
)

var (
	viewBoard string
	viewDRC   bool
)

var viewCmd = &cobra.Command{
	Use:   "view <project_file>",
	Short: "View a board in an interactive viewer",
	Long: `Opens a board in an interactive Gio-based viewer with pan, zoom, and rotation controls.
With --drc the locations of non-approved rule check messages are highlighted.

Controls:
  Drag              - Pan
  Scroll / + / -    - Zoom in/out
  R / Left Arrow    - Rotate 90°
  F                 - Flip board
  M                 - Toggle DRC markers
  Space             - Fit board to window
  Q / Escape        - Quit`,
	Args: cobra.ExactArgs(1),
	RunE: runView,
}

func init() {
	viewCmd.Flags().StringVar(&viewBoard, "board", "", "name of the board to show (default: first board)")
	viewCmd.Flags().BoolVar(&viewDRC, "drc", false, "run the design rule check and mark its messages")
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	filename := args[0]
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Loading project: %s\n", filename)
	scene, err := loadScene(cmd.Context(), filename, viewBoard, viewDRC)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "✓ Loaded board '%s'\n", scene.Title)
	fmt.Fprintf(out, "  Copper layers: %d\n", len(scene.Copper))
	fmt.Fprintf(out, "  Holes: %d\n", len(scene.Holes))
	fmt.Fprintf(out, "  Air wires: %d\n", len(scene.AirWires))
	if viewDRC {
		fmt.Fprintf(out, "  DRC markers: %d\n", len(scene.Markers))
	}
	if !scene.Bounds.IsEmpty() {
		fmt.Fprintf(out, "  Board size: %.2f x %.2f mm\n", scene.Bounds.Width().ToMm(), scene.Bounds.Height().ToMm())
	}

	go func() {
		w := new(app.Window)
		w.Option(app.Title("OpenTraceFab - " + scene.Title))
		w.Option(app.Size(unit.Dp(1000), unit.Dp(800)))

		if err := viewer.New(scene).Run(w); err != nil {
			log.Fatal(err)
		}
		os.Exit(0)
	}()
	app.Main()
	return nil
}

// loadScene loads the project and builds the scene of the selected board.
func loadScene(ctx context.Context, filename, boardName string, runDRC bool) (*viewer.Scene, error) {
	p, err := board.LoadProject(filename)
	if err != nil {
		return nil, fmt.Errorf("error loading project: %w", err)
	}
	if len(p.Boards) == 0 {
		return nil, fmt.Errorf("project '%s' has no boards", filename)
	}
	b := p.Boards[0]
	if boardName != "" {
		var ok bool
		if b, ok = p.BoardByName(boardName); !ok {
			return nil, fmt.Errorf("no board with the name '%s' found", boardName)
		}
	}
	if err := b.RebuildPlanes(); err != nil {
		return nil, fmt.Errorf("error rebuilding planes: %w", err)
	}

	var pending []drc.Message
	if runDRC {
		settings, err := drc.BoardSettings(b)
		if err != nil {
			return nil, err
		}
		messages, err := drc.Run(ctx, b, settings, drc.Options{}, nil)
		if err != nil {
			return nil, fmt.Errorf("error running DRC: %w", err)
		}
		approvals, err := drc.NewApprovals(b.Approvals...)
		if err != nil {
			return nil, err
		}
		_, pending = drc.Partition(messages, approvals)
	}
	return viewer.BuildScene(b, pending)
}
