package board

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/internal/logging"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/clipping"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// ComponentSide is the board side a pad or device belongs to.
type ComponentSide int

const (
	SideTop ComponentSide = iota
	SideBottom
)

func (s ComponentSide) String() string {
	if s == SideBottom {
		return "bottom"
	}
	return "top"
}

// PadShape is the shape of a footprint pad.
type PadShape int

const (
	PadRoundedRect PadShape = iota
	PadRoundedOctagon
	PadCustom
)

// ParsePadShape parses the file format token of a pad shape.
func ParsePadShape(s string) (PadShape, error) {
	switch s {
	case "roundrect":
		return PadRoundedRect, nil
	case "octagon":
		return PadRoundedOctagon, nil
	case "custom":
		return PadCustom, nil
	}
	return 0, fmt.Errorf("invalid pad shape %q", s)
}

// Pad is a footprint pad in footprint coordinates.
type Pad struct {
	ID              uuid.UUID
	Name            string
	Signal          *uuid.UUID // component signal, nil if unconnected
	Position        geometry.Point
	Rotation        geometry.Angle
	Shape           PadShape
	Width           geometry.PositiveLength
	Height          geometry.PositiveLength
	Radius          float64 // corner radius as ratio of half the smaller size
	CustomOutline   geometry.Path
	Side            ComponentSide
	Holes           []PadHole
	StopMask        MaskConfig
	SolderPaste     MaskConfig
	CopperClearance geometry.UnsignedLength
}

// IsTHT reports whether the pad has plated holes.
func (p *Pad) IsTHT() bool { return len(p.Holes) > 0 }

// IsOnLayer reports whether the pad has copper on a footprint layer. THT
// pads are on every copper layer.
func (p *Pad) IsOnLayer(l *Layer) bool {
	if p.IsTHT() {
		return l.IsCopper()
	}
	return l == p.copperLayer()
}

func (p *Pad) copperLayer() *Layer {
	if p.Side == SideBottom {
		return BotCopper
	}
	return TopCopper
}

func (p *Pad) hasStopMask(top bool) bool {
	return p.StopMask.Enabled && (p.IsTHT() || (p.Side == SideTop) == top)
}

func (p *Pad) hasSolderPaste(top bool) bool {
	return p.SolderPaste.Enabled && (p.IsTHT() != ((p.Side == SideTop) == top))
}

// smallerSize is the reference size for rule based mask offsets.
func (p *Pad) smallerSize() geometry.Length {
	if p.Shape == PadCustom {
		lo, hi := p.CustomOutline.BoundingBox()
		return geometry.MinOf(hi.X-lo.X, hi.Y-lo.Y)
	}
	return geometry.MinOf(p.Width.Length(), p.Height.Length())
}

// Geometry returns the full pad shape including its holes.
func (p *Pad) Geometry() PadGeometry {
	switch p.Shape {
	case PadRoundedOctagon:
		return PadGeometry{
			Shape: GeometryRoundedOctagon, Width: p.Width.Length(), Height: p.Height.Length(),
			CornerRadius: p.cornerRadius(), Holes: p.Holes,
		}
	case PadCustom:
		return PadGeometry{
			Shape: GeometryCustom, Outlines: []geometry.Path{p.CustomOutline.Closed()}, Holes: p.Holes,
		}
	default:
		return PadGeometry{
			Shape: GeometryRoundedRect, Width: p.Width.Length(), Height: p.Height.Length(),
			CornerRadius: p.cornerRadius(), Holes: p.Holes,
		}
	}
}

func (p *Pad) cornerRadius() geometry.Length {
	r := p.Radius
	if r < 0 {
		r = 0
	} else if r > 1 {
		r = 1
	}
	return geometry.Length(float64(geometry.MinOf(p.Width.Length(), p.Height.Length())) / 2 * r)
}

// Geometries returns the pad shapes on a footprint layer, in pad
// coordinates. Inner copper layers of THT pads get a ring around every hole
// unless the rules ask for the full shape.
func (p *Pad) Geometries(l *Layer, rules DesignRules) []PadGeometry {
	switch {
	case l.IsCopper():
		if !p.IsOnLayer(l) {
			return nil
		}
		if l.IsInner() && !rules.InnerPadsFullShape {
			var rings []PadGeometry
			for _, h := range p.Holes {
				ring := rules.PadAnnularRing.Value(h.Diameter.Length())
				rings = append(rings, PadGeometry{
					Shape: GeometryStroke,
					Width: h.Diameter.Length() + 2*ring,
					Path:  h.Path,
					Holes: []PadHole{h},
				})
			}
			return rings
		}
		return []PadGeometry{p.Geometry()}
	case l.IsStopMask():
		if !p.hasStopMask(l.IsTop()) {
			return nil
		}
		offset := rules.StopMaskClearance.Value(p.smallerSize())
		if p.StopMask.Offset != nil {
			offset = *p.StopMask.Offset
		}
		return p.offsetGeometry(l, offset)
	case l.IsSolderPaste():
		if !p.hasSolderPaste(l.IsTop()) {
			return nil
		}
		offset := rules.SolderPasteClearance.Value(p.smallerSize())
		if p.SolderPaste.Offset != nil {
			offset = *p.SolderPaste.Offset
		}
		geos := p.offsetGeometry(l, -offset)
		for i := range geos {
			geos[i].Holes = nil
		}
		return geos
	}
	return nil
}

// offsetGeometry returns the pad shape grown by offset. A shape that cannot
// be offset is left out and logged.
func (p *Pad) offsetGeometry(l *Layer, offset geometry.Length) []PadGeometry {
	g, err := p.Geometry().WithOffset(offset)
	if err != nil {
		logging.Logger().Warn("dropping pad shape", "pad", p.ID, "layer", l.ID(), "error", err)
		return nil
	}
	return []PadGeometry{g}
}

// GeometryShape is the canonical shape of a pad geometry.
type GeometryShape int

const (
	GeometryRoundedRect GeometryShape = iota
	GeometryRoundedOctagon
	GeometryStroke
	GeometryCustom
)

// PadGeometry is one area of a pad on one layer, centered at the pad
// origin. Width is the stroke width for GeometryStroke. Outlines are used
// by GeometryCustom only.
type PadGeometry struct {
	Shape        GeometryShape
	Width        geometry.Length
	Height       geometry.Length
	CornerRadius geometry.Length
	Path         geometry.Path
	Outlines     []geometry.Path
	Holes        []PadHole
}

// ToOutlines returns the closed outlines of the geometry. Degenerate shapes
// (zero or negative size) have no outline.
func (g PadGeometry) ToOutlines() []geometry.Path {
	switch g.Shape {
	case GeometryRoundedRect, GeometryRoundedOctagon:
		if g.Width <= 0 || g.Height <= 0 {
			return nil
		}
		w, h := geometry.PositiveLength(g.Width), geometry.PositiveLength(g.Height)
		r := geometry.UnsignedLength(geometry.MaxOf(g.CornerRadius, 0))
		if g.Shape == GeometryRoundedOctagon {
			return []geometry.Path{geometry.Octagon(w, h, r)}
		}
		return []geometry.Path{geometry.CenteredRect(w, h, r)}
	case GeometryStroke:
		if g.Width <= 0 || len(g.Path) == 0 {
			return nil
		}
		return g.Path.ToOutlineStrokes(geometry.PositiveLength(g.Width))
	default:
		return g.Outlines
	}
}

// WithOffset returns the geometry grown (offset > 0) or shrunk by offset.
// Only custom outlines can fail.
func (g PadGeometry) WithOffset(offset geometry.Length) (PadGeometry, error) {
	if offset == 0 {
		return g, nil
	}
	out := g
	switch g.Shape {
	case GeometryRoundedRect, GeometryRoundedOctagon:
		out.Width = g.Width + 2*offset
		out.Height = g.Height + 2*offset
		out.CornerRadius = geometry.MaxOf(g.CornerRadius+offset, 0)
	case GeometryStroke:
		out.Width = g.Width + 2*offset
	default:
		paths, err := clipping.Offset(clipping.FromPaths(g.Outlines, geometry.MaxArcTolerance), offset, geometry.MaxArcTolerance)
		if err != nil {
			return PadGeometry{}, fmt.Errorf("failed to offset custom pad outline: %w", err)
		}
		out.Outlines = clipping.ToPaths(paths)
	}
	return out, nil
}

// PadIsOnLayer reports whether a device pad has copper on a board layer.
func (b *Board) PadIsOnLayer(d *Device, p *Pad, l *Layer) bool {
	return b.IsCopperLayer(l) && p.IsOnLayer(MapLayer(l, d.Mirrored))
}

// PadGeometries returns the pad shapes of a device pad on a board layer, in
// pad coordinates. Map them with Device.PadTransform.
func (b *Board) PadGeometries(d *Device, p *Pad, l *Layer) []PadGeometry {
	if l.IsCopper() && !b.IsCopperLayer(l) {
		return nil
	}
	return p.Geometries(MapLayer(l, d.Mirrored), b.DesignRules)
}

// PadOutlines returns the outlines of a device pad on a board layer in
// board coordinates.
func (b *Board) PadOutlines(d *Device, p *Pad, l *Layer) []geometry.Path {
	t := d.PadTransform(p)
	var out []geometry.Path
	for _, g := range b.PadGeometries(d, p, l) {
		out = append(out, t.MapPaths(g.ToOutlines())...)
	}
	return out
}
