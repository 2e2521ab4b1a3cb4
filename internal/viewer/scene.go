package viewer

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/clipping"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/drc"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// CopperLayer is the united copper area of one layer.
type CopperLayer struct {
	Layer *board.Layer
	Areas []geometry.Path
}

// Marker is the location of a rule check message.
type Marker struct {
	Severity drc.Severity
	Text     string
	Areas    []geometry.Path
}

// AirWire is a straight missing connection.
type AirWire struct {
	P1, P2 geometry.Point
}

// Scene is everything the viewer draws, precomputed from a board.
type Scene struct {
	Title  string
	Bounds board.BoundingBox

	// Copper is ordered bottom to top.
	Copper   []CopperLayer
	Outlines []geometry.Path
	Holes    []geometry.Path
	AirWires []AirWire
	Markers  []Marker
}

// BuildScene computes the scene of b. Plane fragments must be up to date.
// Messages without locations get no marker.
func BuildScene(b *board.Board, messages []drc.Message) (*Scene, error) {
	s := &Scene{Title: b.Name, Bounds: b.BoundingBox()}

	layers := b.CopperLayers()
	for i := len(layers) - 1; i >= 0; i-- {
		l := layers[i]
		g := board.NewPathGenerator(b)
		g.AddCopper(l, nil, false)
		paths, err := g.Paths()
		if err != nil {
			return nil, fmt.Errorf("failed to build copper of %s: %w", l.ID(), err)
		}
		united, err := clipping.Unite(paths, nil, clipping.NonZero, clipping.NonZero)
		if err != nil {
			return nil, fmt.Errorf("failed to unite copper of %s: %w", l.ID(), err)
		}
		s.Copper = append(s.Copper, CopperLayer{Layer: l, Areas: clipping.ToPaths(united)})
	}

	width := geometry.MustPositive(minOutlineWidth)
	for _, p := range b.BoardOutlinePaths() {
		s.Outlines = append(s.Outlines, p.ToOutlineStrokes(width)...)
	}

	holes := board.NewPathGenerator(b)
	for _, h := range b.Holes {
		holes.AddHole(h.Drill, geometry.Transform{}, 0)
	}
	for _, d := range b.Devices {
		for _, h := range d.Holes {
			holes.AddHole(h.Drill, d.Transform(), 0)
		}
		for _, p := range d.Pads {
			t := d.PadTransform(p)
			for _, h := range p.Holes {
				holes.AddHole(h.Drill, t, 0)
			}
		}
	}
	for _, seg := range b.NetSegments {
		for _, v := range seg.Vias {
			holes.AddHole(board.Drill{Diameter: v.Drill, Path: geometry.NewPath(v.Position)}, geometry.Transform{}, 0)
		}
	}
	paths, err := holes.Paths()
	if err != nil {
		return nil, fmt.Errorf("failed to build holes: %w", err)
	}
	s.Holes = clipping.ToPaths(paths)

	for _, w := range b.AirWires() {
		s.AirWires = append(s.AirWires, AirWire{P1: w.P1.Position, P2: w.P2.Position})
	}

	for _, m := range messages {
		if len(m.Locations) == 0 {
			continue
		}
		s.Markers = append(s.Markers, Marker{Severity: m.Severity, Text: m.Text, Areas: m.Locations})
	}
	return s, nil
}

// minOutlineWidth is the stroke width of board outlines in nm.
const minOutlineWidth geometry.Length = 200000
