// Package job runs the command line processing of a project: design rule
// checks, fabrication data and pick&place exports for a selection of boards.
//
// Progress goes to the output writer, problems to the error writer. A run
// never stops at the first problem; it reports as much as possible and
// returns whether everything succeeded.
package job

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/OpenTraceLab/OpenTraceFab/internal/logging"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/drc"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/fab"
)

// Options select what a run does.
type Options struct {
	ProjectFile string

	RunDRC          bool
	DRCSettingsFile string
	ApprovalsFile   string
	Quick           bool

	ExportFabricationData   bool
	FabricationSettingsFile string

	PnPTop    []string
	PnPBottom []string

	// Boards and BoardIndices select boards by name or index. All boards
	// are processed if both are empty.
	Boards       []string
	BoardIndices []string

	// Created is the creation date written to all files. The zero value
	// means now.
	Created time.Time
}

// Runner processes one project.
type Runner struct {
	out    io.Writer
	errOut io.Writer
	opts   Options

	project *board.Project
	boards  []*board.Board
	rebuilt map[*board.Board]bool
	written fab.WrittenFiles
	success bool
}

// NewRunner returns a runner printing to out and errOut.
func NewRunner(out, errOut io.Writer, opts Options) *Runner {
	if opts.Created.IsZero() {
		opts.Created = time.Now()
	}
	return &Runner{out: out, errOut: errOut, opts: opts, rebuilt: map[*board.Board]bool{}}
}

func (r *Runner) print(format string, args ...any) {
	fmt.Fprintf(r.out, format+"\n", args...)
}

func (r *Runner) fail(format string, args ...any) {
	fmt.Fprintf(r.errOut, format+"\n", args...)
	r.success = false
}

// Run processes the project and prints the final verdict. It returns false
// if anything failed. The returned error is only set if ctx was cancelled.
func (r *Runner) Run(ctx context.Context) (bool, error) {
	r.success = true
	err := r.run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		r.fail("ERROR: %s", err)
		err = nil
	}
	if err == nil {
		if r.success {
			r.print("SUCCESS")
		} else {
			r.print("Finished with errors!")
		}
	}
	return r.success && err == nil, err
}

func (r *Runner) run(ctx context.Context) error {
	r.print("Open project '%s'...", r.opts.ProjectFile)
	p, err := board.LoadProject(r.opts.ProjectFile)
	if err != nil {
		return err
	}
	r.project = p
	r.selectBoards()

	if r.opts.RunDRC {
		if err := r.runDRC(ctx); err != nil {
			return err
		}
	}
	if r.opts.ExportFabricationData {
		if err := r.exportFabricationData(ctx); err != nil {
			return err
		}
	}
	if err := r.exportPickPlace(ctx); err != nil {
		return err
	}
	r.checkWrittenFiles()
	return nil
}

func (r *Runner) selectBoards() {
	add := func(b *board.Board) {
		for _, other := range r.boards {
			if other == b {
				return
			}
		}
		r.boards = append(r.boards, b)
	}
	for _, name := range r.opts.Boards {
		if b, ok := r.project.BoardByName(name); ok {
			add(b)
		} else {
			r.fail("ERROR: No board with the name '%s' found.", name)
		}
	}
	for _, s := range r.opts.BoardIndices {
		i, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || i < 0 || i >= len(r.project.Boards) {
			r.fail("ERROR: Board index '%s' is invalid.", s)
			continue
		}
		add(r.project.Boards[i])
	}
	if len(r.opts.Boards) == 0 && len(r.opts.BoardIndices) == 0 {
		r.boards = append(r.boards, r.project.Boards...)
	}
}

func readFile[T any](path string, parse func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return parse(f)
}

type progressLogger struct {
	board string
}

func (l progressLogger) OnProgress(percent int) {
	logging.Logger().Debug("drc progress", "board", l.board, "percent", percent)
}

func (l progressLogger) OnStatus(status string) {
	logging.Logger().Debug("drc status", "board", l.board, "status", status)
}

func (progressLogger) OnMessage(drc.Message) {}

func (r *Runner) runDRC(ctx context.Context) error {
	boards := r.boards
	var custom *drc.Settings
	if path := r.opts.DRCSettingsFile; path != "" {
		logging.Logger().Debug("load custom drc settings", "path", path)
		s, err := readFile(path, drc.ParseSettings)
		if err != nil {
			r.fail("ERROR: Failed to load custom settings: %s", err)
			boards = nil
		} else {
			custom = &s
		}
	}
	extra := drc.Approvals{}
	if path := r.opts.ApprovalsFile; path != "" {
		a, err := readFile(path, drc.ParseApprovals)
		if err != nil {
			r.fail("ERROR: Failed to load approvals: %s", err)
			boards = nil
		} else {
			extra = a
		}
	}

	checker := drc.NewChecker()
	for _, b := range boards {
		r.print("Run DRC for '%s'...", b.Name)
		settings, err := drc.BoardSettings(b)
		if custom != nil {
			settings, err = *custom, nil
		}
		if err != nil {
			r.fail("  ERROR: %s", err)
			continue
		}
		approvals, err := drc.NewApprovals(b.Approvals...)
		if err != nil {
			r.fail("  ERROR: %s", err)
			continue
		}
		for k := range extra {
			approvals[k] = struct{}{}
		}

		start := time.Now()
		messages, err := checker.Run(ctx, b, settings, drc.Options{Quick: r.opts.Quick}, progressLogger{board: b.Name})
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			r.fail("  ERROR: %s", err)
			continue
		}
		if !r.opts.Quick {
			r.rebuilt[b] = true
		}
		logging.Logger().Info("drc finished", "board", b.Name, "messages", len(messages), "duration", time.Since(start))

		drc.SortMessages(messages)
		approved, pending := drc.Partition(messages, approvals)
		r.print("  Approved messages: %d", len(approved))
		r.print("  Non-approved messages: %d", len(pending))
		for _, m := range pending {
			r.fail("    - %s", m.Format())
		}
	}
	return nil
}

// prettyPath returns path relative to the project directory if it lies
// inside of it.
func (r *Runner) prettyPath(path string) string {
	rel, err := filepath.Rel(r.project.Dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return rel
}

func (r *Runner) rebuildPlanes(b *board.Board) error {
	if r.rebuilt[b] {
		return nil
	}
	if err := b.RebuildPlanes(); err != nil {
		return fmt.Errorf("failed to rebuild planes of %q: %w", b.Name, err)
	}
	r.rebuilt[b] = true
	return nil
}

func (r *Runner) exportFabricationData(ctx context.Context) error {
	boards := r.boards
	var custom *fab.Settings
	if path := r.opts.FabricationSettingsFile; path != "" {
		logging.Logger().Debug("load custom fabrication output settings", "path", path)
		s, err := readFile(path, fab.ParseSettings)
		if err != nil {
			r.fail("ERROR: Failed to load custom settings: %s", err)
			boards = nil
		} else {
			custom = &s
		}
	}

	for _, b := range boards {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.print("Export PCB fabrication data for '%s'...", b.Name)
		settings, err := fab.BoardSettings(b)
		if custom != nil {
			settings, err = *custom, nil
		}
		if err != nil {
			r.fail("  ERROR: %s", err)
			continue
		}
		if err := r.rebuildPlanes(b); err != nil {
			r.fail("  ERROR: %s", err)
			continue
		}
		e := fab.NewBoardExporter(r.project, b, r.opts.Created)
		exportErr := e.ExportPCBLayers(settings)
		for _, path := range e.WrittenFiles() {
			r.print("  => '%s'", r.prettyPath(path))
			r.written.Add(path)
		}
		if exportErr != nil {
			r.fail("  ERROR: %s", exportErr)
		}
	}
	return nil
}

type pnpJob struct {
	side board.ComponentSide
	name string
	dest string
}

func (r *Runner) exportPickPlace(ctx context.Context) error {
	var jobs []pnpJob
	for _, dest := range r.opts.PnPTop {
		jobs = append(jobs, pnpJob{board.SideTop, "top", dest})
	}
	for _, dest := range r.opts.PnPBottom {
		jobs = append(jobs, pnpJob{board.SideBottom, "bottom", dest})
	}

	for _, j := range jobs {
		r.print("Export %s assembly data to '%s'...", j.name, j.dest)
		suffix := strings.ToLower(filepath.Ext(j.dest))
		for _, b := range r.boards {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := fab.ResolvePath(j.dest, r.project.Dir, fab.BoardLookup(r.project, b))
			r.print("  - '%s' => '%s'", b.Name, r.prettyPath(path))
			var err error
			switch suffix {
			case ".csv":
				w := fab.PickPlaceCSV{Data: fab.GeneratePickPlace(r.project, b), Side: j.side, Created: r.opts.Created}
				err = w.SaveToFile(path)
			case ".gbr":
				err = fab.NewBoardExporter(r.project, b, r.opts.Created).ExportComponentLayer(j.side, path)
			default:
				r.fail("  ERROR: Unknown extension '%s'.", strings.TrimPrefix(suffix, "."))
				continue
			}
			if err != nil {
				r.fail("  ERROR: %s", err)
				continue
			}
			r.written.Add(path)
		}
	}
	return nil
}

func (r *Runner) checkWrittenFiles() {
	duplicates := r.written.Duplicates()
	for _, path := range duplicates {
		r.fail("ERROR: The file '%s' was written multiple times!", r.prettyPath(path))
	}
	if len(duplicates) > 0 {
		r.fail("NOTE: To avoid writing files multiple times, make sure to pass " +
			"unique filepaths to all export functions. For board output files, " +
			"you could either add the placeholder '{{BOARD}}' to the path or " +
			"specify the boards to export with the '--board' argument.")
	}
}
