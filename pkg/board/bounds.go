package board

import "github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"

// BoundingBox is an axis aligned box in board coordinates.
type BoundingBox struct {
	Min, Max geometry.Point
	valid    bool
}

// IsEmpty reports whether nothing has been added.
func (bb BoundingBox) IsEmpty() bool { return !bb.valid }

// Expand grows the box to contain p.
func (bb *BoundingBox) Expand(p geometry.Point) {
	if !bb.valid {
		bb.Min, bb.Max, bb.valid = p, p, true
		return
	}
	bb.Min.X = geometry.MinOf(bb.Min.X, p.X)
	bb.Min.Y = geometry.MinOf(bb.Min.Y, p.Y)
	bb.Max.X = geometry.MaxOf(bb.Max.X, p.X)
	bb.Max.Y = geometry.MaxOf(bb.Max.Y, p.Y)
}

// ExpandRadius grows the box to contain a circle.
func (bb *BoundingBox) ExpandRadius(center geometry.Point, r geometry.Length) {
	bb.Expand(center.Sub(geometry.Pt(r, r)))
	bb.Expand(center.Add(geometry.Pt(r, r)))
}

// ExpandPath grows the box to contain the vertices of p.
func (bb *BoundingBox) ExpandPath(p geometry.Path) {
	for _, v := range p.FlattenedArcs(geometry.DefaultArcTolerance) {
		bb.Expand(v.Pos)
	}
}

// Width returns the horizontal extent.
func (bb BoundingBox) Width() geometry.Length { return bb.Max.X - bb.Min.X }

// Height returns the vertical extent.
func (bb BoundingBox) Height() geometry.Length { return bb.Max.Y - bb.Min.Y }

// Center returns the middle of the box.
func (bb BoundingBox) Center() geometry.Point {
	return geometry.Pt((bb.Min.X+bb.Max.X)/2, (bb.Min.Y+bb.Max.Y)/2)
}

// BoundingBox returns the extent of the board outline, or of all items if
// the board has no outline.
func (b *Board) BoundingBox() BoundingBox {
	var bb BoundingBox
	for _, p := range b.BoardOutlinePaths() {
		bb.ExpandPath(p)
	}
	if !bb.IsEmpty() {
		return bb
	}

	for _, p := range b.Polygons {
		bb.ExpandPath(p.Path)
	}
	for _, d := range b.Devices {
		for _, p := range d.Pads {
			r := geometry.MaxOf(p.Width.Length(), p.Height.Length()) / 2
			bb.ExpandRadius(d.PadPosition(p), r)
		}
		if len(d.Pads) == 0 {
			bb.Expand(d.Position)
		}
	}
	for _, seg := range b.NetSegments {
		for _, v := range seg.Vias {
			bb.ExpandRadius(v.Position, v.Size.Length()/2)
		}
		for _, j := range seg.Junctions {
			bb.Expand(j.Position)
		}
	}
	for _, p := range b.Planes {
		bb.ExpandPath(p.Outline)
	}
	for _, h := range b.Holes {
		for _, v := range h.Path {
			bb.ExpandRadius(v.Pos, h.Diameter.Length()/2)
		}
	}
	return bb
}
