// Package fab exports the fabrication data of a board: Gerber layers,
// Excellon drills, component layers and pick&place lists.
package fab

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/OpenTraceLab/OpenTraceFab/internal/logging"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/gerber"
)

// BoardExporter writes the fabrication files of one board. All files of one
// exporter share the creation date.
type BoardExporter struct {
	project     *board.Project
	board       *board.Board
	created     time.Time
	projectName string

	innerLayer int
	written    []string
}

// NewBoardExporter returns an exporter for a board of p. If the project
// has more than one board, the board name is added to the project name in
// the file attributes.
func NewBoardExporter(p *board.Project, b *board.Board, created time.Time) *BoardExporter {
	name := p.Name
	if len(p.Boards) > 1 {
		name += " (" + b.Name + ")"
	}
	return &BoardExporter{project: p, board: b, created: created, projectName: name}
}

// WrittenFiles returns the paths written by the last export, in order.
func (e *BoardExporter) WrittenFiles() []string {
	return e.written
}

// OutputDirectory returns the directory the layer files go to.
func (e *BoardExporter) OutputDirectory(s Settings) string {
	return filepath.Dir(e.outputPath(s.OutputBasePath + "dummy"))
}

func (e *BoardExporter) lookup(key string) string {
	if key == "CU_LAYER" && e.innerLayer > 0 {
		return strconv.Itoa(e.innerLayer)
	}
	return BoardLookup(e.project, e.board)(key)
}

func (e *BoardExporter) outputPath(path string) string {
	return ResolvePath(path, e.project.Dir, e.lookup)
}

func (e *BoardExporter) newGerber() *gerber.Generator {
	return gerber.NewGenerator(e.created, e.projectName, e.board.ID, e.project.Version)
}

func (e *BoardExporter) newExcellon(s Settings, p gerber.Plating) *gerber.ExcellonGenerator {
	g := gerber.NewExcellonGenerator(e.created, e.projectName, e.board.ID, e.project.Version, p, 1, e.board.InnerLayerCount+2)
	g.SetUseG85Slots(s.UseG85SlotCommand)
	return g
}

type file interface {
	Generate()
	SaveToFile(path string) error
}

func (e *BoardExporter) save(f file, path string) error {
	f.Generate()
	if err := f.SaveToFile(path); err != nil {
		return err
	}
	logging.Logger().Debug("wrote fabrication file", "board", e.board.Name, "path", path)
	e.written = append(e.written, path)
	return nil
}

// ExportPCBLayers writes drills, outlines, copper, solder mask, silkscreen
// and the enabled solder paste layers. A failing file does not stop the
// export of the others; all errors are returned joined.
func (e *BoardExporter) ExportPCBLayers(s Settings) error {
	e.written = nil
	steps := []func(Settings) error{}
	if s.MergeDrillFiles {
		steps = append(steps, e.exportDrills)
	} else {
		steps = append(steps, e.exportDrillsNpth, e.exportDrillsPth)
	}
	steps = append(steps,
		e.exportOutlines,
		e.exportCopperTop,
		e.exportCopperInner,
		e.exportCopperBot,
		e.exportSolderMaskTop,
		e.exportSolderMaskBot,
		e.exportSilkscreenTop,
		e.exportSilkscreenBot,
	)
	if s.EnableSolderPasteTop {
		steps = append(steps, e.exportSolderPasteTop)
	}
	if s.EnableSolderPasteBot {
		steps = append(steps, e.exportSolderPasteBot)
	}

	var errs []error
	for _, step := range steps {
		if err := step(s); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to export board %q: %w", e.board.Name, err)
	}
	return nil
}

func (e *BoardExporter) exportDrills(s Settings) error {
	g := e.newExcellon(s, gerber.PlatingMixed)
	e.drawPthDrills(g)
	e.drawNpthDrills(g)
	return e.save(g, e.outputPath(s.OutputBasePath+s.SuffixDrills))
}

// exportDrillsNpth always writes the file, even without holes, so the set
// of files does not depend on the board content.
func (e *BoardExporter) exportDrillsNpth(s Settings) error {
	g := e.newExcellon(s, gerber.PlatingNo)
	e.drawNpthDrills(g)
	return e.save(g, e.outputPath(s.OutputBasePath+s.SuffixDrillsNpth))
}

func (e *BoardExporter) exportDrillsPth(s Settings) error {
	g := e.newExcellon(s, gerber.PlatingYes)
	e.drawPthDrills(g)
	return e.save(g, e.outputPath(s.OutputBasePath+s.SuffixDrillsPth))
}

func (e *BoardExporter) exportOutlines(s Settings) error {
	g := e.newGerber()
	g.SetFileFunctionOutlines(false)
	if err := e.drawLayer(g, board.BoardOutlines); err != nil {
		return err
	}
	return e.save(g, e.outputPath(s.OutputBasePath+s.SuffixOutlines))
}

func (e *BoardExporter) exportCopper(path string, n int, side gerber.Side, l *board.Layer) error {
	g := e.newGerber()
	g.SetFileFunctionCopper(n, side, gerber.Positive)
	if err := e.drawLayer(g, l); err != nil {
		return err
	}
	return e.save(g, path)
}

func (e *BoardExporter) exportCopperTop(s Settings) error {
	return e.exportCopper(e.outputPath(s.OutputBasePath+s.SuffixCopperTop), 1, gerber.Top, board.TopCopper)
}

func (e *BoardExporter) exportCopperInner(s Settings) error {
	defer func() { e.innerLayer = 0 }()
	var errs []error
	for i := 1; i <= e.board.InnerLayerCount; i++ {
		l := board.InnerCopper(i)
		if l == nil {
			return fmt.Errorf("unknown inner copper layer %d: %w", i, board.ErrUnknownLayer)
		}
		e.innerLayer = i
		path := e.outputPath(s.OutputBasePath + s.SuffixCopperInner)
		if err := e.exportCopper(path, i+1, gerber.Inner, l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (e *BoardExporter) exportCopperBot(s Settings) error {
	n := e.board.InnerLayerCount + 2
	return e.exportCopper(e.outputPath(s.OutputBasePath+s.SuffixCopperBot), n, gerber.Bottom, board.BotCopper)
}

func (e *BoardExporter) exportSolderMask(path string, side gerber.Side, l *board.Layer) error {
	g := e.newGerber()
	g.SetFileFunctionSolderMask(side, gerber.Negative)
	if err := e.drawLayer(g, l); err != nil {
		return err
	}
	return e.save(g, path)
}

func (e *BoardExporter) exportSolderMaskTop(s Settings) error {
	return e.exportSolderMask(e.outputPath(s.OutputBasePath+s.SuffixSolderMaskTop), gerber.Top, board.TopStopMask)
}

func (e *BoardExporter) exportSolderMaskBot(s Settings) error {
	return e.exportSolderMask(e.outputPath(s.OutputBasePath+s.SuffixSolderMaskBot), gerber.Bottom, board.BotStopMask)
}

// exportSilkscreen draws the selected layers and clears them where the
// stop mask is open. Nothing is written without layers.
func (e *BoardExporter) exportSilkscreen(suffix string, s Settings, side gerber.Side, layers []*board.Layer, mask *board.Layer) error {
	if len(layers) == 0 {
		return nil
	}
	g := e.newGerber()
	g.SetFileFunctionLegend(side, gerber.Positive)
	for _, l := range layers {
		if err := e.drawLayer(g, l); err != nil {
			return err
		}
	}
	g.SetLayerPolarity(gerber.Negative)
	if err := e.drawLayer(g, mask); err != nil {
		return err
	}
	return e.save(g, e.outputPath(s.OutputBasePath+suffix))
}

func (e *BoardExporter) exportSilkscreenTop(s Settings) error {
	return e.exportSilkscreen(s.SuffixSilkscreenTop, s, gerber.Top, s.SilkscreenLayersTop, board.TopStopMask)
}

func (e *BoardExporter) exportSilkscreenBot(s Settings) error {
	return e.exportSilkscreen(s.SuffixSilkscreenBot, s, gerber.Bottom, s.SilkscreenLayersBot, board.BotStopMask)
}

func (e *BoardExporter) exportSolderPaste(path string, side gerber.Side, l *board.Layer) error {
	g := e.newGerber()
	g.SetFileFunctionPaste(side, gerber.Positive)
	if err := e.drawLayer(g, l); err != nil {
		return err
	}
	return e.save(g, path)
}

func (e *BoardExporter) exportSolderPasteTop(s Settings) error {
	return e.exportSolderPaste(e.outputPath(s.OutputBasePath+s.SuffixSolderPasteTop), gerber.Top, board.TopSolderPaste)
}

func (e *BoardExporter) exportSolderPasteBot(s Settings) error {
	return e.exportSolderPaste(e.outputPath(s.OutputBasePath+s.SuffixSolderPasteBot), gerber.Bottom, board.BotSolderPaste)
}

func (e *BoardExporter) drawNpthDrills(g *gerber.ExcellonGenerator) int {
	count := 0
	for _, d := range e.board.Devices {
		t := d.Transform()
		for _, h := range sortedHoles(d.Holes) {
			g.Drill(t.MapPath(h.Path), h.Diameter, false, gerber.FunctionMechanicalDrill)
			count++
		}
	}
	for _, h := range e.board.Holes {
		g.Drill(h.Path, h.Diameter, false, gerber.FunctionMechanicalDrill)
		count++
	}
	return count
}

func (e *BoardExporter) drawPthDrills(g *gerber.ExcellonGenerator) int {
	count := 0
	for _, d := range e.board.Devices {
		for _, p := range d.Pads {
			t := d.PadTransform(p)
			for _, h := range p.Holes {
				g.Drill(t.MapPath(h.Path), h.Diameter, true, gerber.FunctionComponentDrill)
				count++
			}
		}
	}
	for _, seg := range e.board.NetSegments {
		for _, v := range seg.Vias {
			g.Drill(geometry.NewPath(v.Position), v.Drill, true, gerber.FunctionViaDrill)
			count++
		}
	}
	return count
}
