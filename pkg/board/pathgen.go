package board

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/internal/logging"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/clipping"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// NoNet is the NetFilter key matching unconnected copper.
var NoNet = uuid.Nil

// NetFilter selects copper by net. An empty filter matches all copper.
type NetFilter map[uuid.UUID]struct{}

// Nets builds a filter from optional net ids; nil selects unconnected copper.
func Nets(nets ...*uuid.UUID) NetFilter {
	f := make(NetFilter, len(nets))
	for _, n := range nets {
		if n == nil {
			f[NoNet] = struct{}{}
		} else {
			f[*n] = struct{}{}
		}
	}
	return f
}

// Matches reports whether copper of the given net is selected.
func (f NetFilter) Matches(net *uuid.UUID) bool {
	if len(f) == 0 {
		return true
	}
	key := NoNet
	if net != nil {
		key = *net
	}
	_, ok := f[key]
	return ok
}

func (f NetFilter) key() string {
	ids := make([]string, 0, len(f))
	for id := range f {
		ids = append(ids, id.String())
	}
	slices.Sort(ids)
	return strings.Join(ids, ",")
}

// PathGenerator accumulates the areas of board items as clipper paths. An
// offset grows (> 0) or shrinks (< 0) each added item.
type PathGenerator struct {
	board *Board
	paths clipping.Paths
	err   error
}

// NewPathGenerator returns an empty generator for items of b.
func NewPathGenerator(b *Board) *PathGenerator {
	return &PathGenerator{board: b}
}

// Paths returns the accumulated paths or the first error hit while adding.
func (g *PathGenerator) Paths() (clipping.Paths, error) {
	return g.paths, g.err
}

func (g *PathGenerator) fail(err error) {
	if g.err == nil {
		g.err = err
	}
}

func (g *PathGenerator) add(paths ...geometry.Path) {
	for _, p := range paths {
		g.paths = append(g.paths, clipping.FromPath(p, geometry.MaxArcTolerance))
	}
}

// AddCopper adds every copper item on layer l whose net matches f.
func (g *PathGenerator) AddCopper(l *Layer, f NetFilter, ignorePlanes bool) {
	b := g.board
	if !b.IsCopperLayer(l) {
		return
	}

	if f.Matches(nil) {
		for _, p := range b.Polygons {
			if p.Layer == l {
				g.AddPolygon(p.Path, p.LineWidth, p.Filled, 0)
			}
		}
		for _, t := range b.StrokeTexts {
			if t.Layer == l {
				g.AddStrokeText(t, 0)
			}
		}
	}

	for _, d := range b.Devices {
		t := d.Transform()
		for _, p := range d.Pads {
			if f.Matches(b.PadNet(d, p)) {
				g.AddPad(d, p, l, 0)
			}
		}
		if !f.Matches(nil) {
			continue
		}
		for _, p := range d.Polygons {
			if MapLayer(p.Layer, d.Mirrored) == l {
				g.AddPolygon(t.MapPath(p.Path), p.LineWidth, p.Filled, 0)
			}
		}
		for _, c := range d.Circles {
			if MapLayer(c.Layer, d.Mirrored) == l {
				g.AddCircle(c, t, 0)
			}
		}
		for _, st := range d.StrokeTexts {
			if st.Layer == l {
				g.AddStrokeText(st, 0)
			}
		}
	}

	for _, seg := range b.NetSegments {
		if !f.Matches(seg.Net) {
			continue
		}
		for _, v := range seg.Vias {
			g.AddVia(v, 0)
		}
		for _, t := range seg.Traces {
			if t.Layer == l {
				g.AddTrace(seg, t, 0)
			}
		}
	}

	if !ignorePlanes {
		for _, p := range b.Planes {
			if p.Layer == l && f.Matches(&p.Net) {
				g.AddPlane(p)
			}
		}
	}
}

// AddVia adds the via copper. Vias are on all copper layers.
func (g *PathGenerator) AddVia(v *Via, offset geometry.Length) {
	if v.Size.Length()+2*offset > 0 {
		g.add(v.Outline(offset))
	}
}

// AddTrace adds a trace stroked with its width.
func (g *PathGenerator) AddTrace(seg *NetSegment, t *Trace, offset geometry.Length) {
	p1, p2, ok := g.board.TraceEnds(seg, t)
	if !ok {
		return
	}
	if w := t.Width.Length() + 2*offset; w > 0 {
		g.add(geometry.ObroundLine(p1, p2, geometry.PositiveLength(w)))
	}
}

// AddPlane adds the computed fragments of a plane.
func (g *PathGenerator) AddPlane(p *Plane) {
	g.add(p.Fragments...)
}

// AddPolygon adds a drawn path in board coordinates: its area if filled and
// closed, and its outline stroke if it has a line width.
func (g *PathGenerator) AddPolygon(path geometry.Path, lineWidth geometry.UnsignedLength, filled bool, offset geometry.Length) {
	if filled && path.IsClosed() {
		area := clipping.Paths{clipping.FromPath(path, geometry.MaxArcTolerance)}
		if offset != 0 {
			var err error
			if area, err = clipping.Offset(area, offset, geometry.MaxArcTolerance); err != nil {
				g.fail(err)
				return
			}
		}
		g.paths = append(g.paths, area...)
	}
	if lineWidth > 0 {
		if w := lineWidth.Length() + 2*offset; w > 0 {
			g.add(path.ToOutlineStrokes(geometry.PositiveLength(w))...)
		}
	}
}

// AddCircle adds a drawn circle mapped by t.
func (g *PathGenerator) AddCircle(c *Circle, t geometry.Transform, offset geometry.Length) {
	center := t.MapPoint(c.Center)
	if c.Filled {
		if d := c.Diameter.Length() + c.LineWidth.Length() + 2*offset; d > 0 {
			g.add(geometry.Circle(geometry.PositiveLength(d)).Translated(center))
		}
		return
	}
	if w := c.LineWidth.Length() + 2*offset; c.LineWidth > 0 && w > 0 {
		ring := geometry.Circle(c.Diameter).Translated(center)
		g.add(ring.ToOutlineStrokes(geometry.PositiveLength(w))...)
	}
}

// AddStrokeText adds the glyph strokes of a text.
func (g *PathGenerator) AddStrokeText(t *StrokeText, offset geometry.Length) {
	w := geometry.MaxOf(t.StrokeWidth.Length()+2*offset, 1)
	for _, s := range t.Paths() {
		g.add(s.ToOutlineStrokes(geometry.PositiveLength(w))...)
	}
}

// AddHole adds a drill mapped by t.
func (g *PathGenerator) AddHole(d Drill, t geometry.Transform, offset geometry.Length) {
	if w := d.Diameter.Length() + 2*offset; w > 0 {
		g.add(t.MapPath(d.Path).ToOutlineStrokes(geometry.PositiveLength(w))...)
	}
}

// AddPad adds the shapes of a device pad on board layer l.
func (g *PathGenerator) AddPad(d *Device, p *Pad, l *Layer, offset geometry.Length) {
	t := d.PadTransform(p)
	for _, geo := range g.board.PadGeometries(d, p, l) {
		grown, err := geo.WithOffset(offset)
		if err != nil {
			g.fail(fmt.Errorf("pad %s: %w", p.ID, err))
			continue
		}
		g.add(t.MapPaths(grown.ToOutlines())...)
	}
}

// TraceEnds returns the board positions of both ends of a trace.
func (b *Board) TraceEnds(seg *NetSegment, t *Trace) (geometry.Point, geometry.Point, bool) {
	p1, ok1 := b.AnchorPosition(seg, t.Start)
	p2, ok2 := b.AnchorPosition(seg, t.End)
	return p1, p2, ok1 && ok2
}

// CopperPathCache memoizes the copper of a layer and net filter. It is meant
// to live for one rule check run.
type CopperPathCache struct {
	board        *Board
	ignorePlanes bool
	entries      map[string]clipping.Paths
}

// NewCopperPathCache creates an empty cache for b.
func NewCopperPathCache(b *Board, ignorePlanes bool) *CopperPathCache {
	return &CopperPathCache{board: b, ignorePlanes: ignorePlanes, entries: map[string]clipping.Paths{}}
}

// Get returns the copper on l matching f.
func (c *CopperPathCache) Get(l *Layer, f NetFilter) (clipping.Paths, error) {
	key := l.ID() + "|" + f.key()
	if paths, ok := c.entries[key]; ok {
		return paths, nil
	}
	g := NewPathGenerator(c.board)
	g.AddCopper(l, f, c.ignorePlanes)
	paths, err := g.Paths()
	if err != nil {
		return nil, err
	}
	logging.Logger().Debug("generated copper paths", "layer", l.ID(), "paths", len(paths))
	c.entries[key] = paths
	return paths, nil
}
