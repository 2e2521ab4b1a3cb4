// Package clipping wraps the polygon clipper used for all boolean geometry.
//
// Board coordinates are nanometer integers and the clipper works on int64
// coordinates, so conversions are lossless apart from arc flattening.
package clipping

import (
	"errors"
	"fmt"
	"slices"

	clipper "github.com/ctessum/go.clipper"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// ErrClipper is returned when the clipper fails or rejects its input.
var ErrClipper = errors.New("polygon clipper failed")

// Paths is a set of clipper paths.
type Paths = clipper.Paths

// Tree is a hierarchical clipper result where holes are children of their
// outer contours.
type Tree = clipper.PolyTree

// FillRule selects which regions of overlapping paths count as filled.
type FillRule int

const (
	EvenOdd FillRule = iota
	NonZero
	Positive
	Negative
)

func (f FillRule) pft() clipper.PolyFillType {
	switch f {
	case NonZero:
		return clipper.PftNonZero
	case Positive:
		return clipper.PftPositive
	case Negative:
		return clipper.PftNegative
	default:
		return clipper.PftEvenOdd
	}
}

// FromPath converts a board path to a clipper path. Arcs are flattened with
// the given tolerance and a closing vertex is dropped. The result is always
// oriented counter-clockwise.
func FromPath(p geometry.Path, tolerance geometry.PositiveLength) clipper.Path {
	flat := p.FlattenedArcs(tolerance)
	n := len(flat)
	if n > 1 && flat.IsClosed() {
		n--
	}
	out := make(clipper.Path, 0, n)
	for _, v := range flat[:n] {
		out = append(out, &clipper.IntPoint{X: clipper.CInt(v.Pos.X), Y: clipper.CInt(v.Pos.Y)})
	}
	if clipper.Area(out) < 0 {
		slices.Reverse(out)
	}
	return out
}

// FromPaths converts several board paths.
func FromPaths(paths []geometry.Path, tolerance geometry.PositiveLength) Paths {
	out := make(Paths, 0, len(paths))
	for _, p := range paths {
		out = append(out, FromPath(p, tolerance))
	}
	return out
}

// ToPath converts a clipper path back to a closed board path.
func ToPath(p clipper.Path) geometry.Path {
	out := make(geometry.Path, 0, len(p)+1)
	for _, pt := range p {
		out = append(out, geometry.Vertex{Pos: geometry.Pt(geometry.Length(pt.X), geometry.Length(pt.Y))})
	}
	return out.Closed()
}

// ToPaths converts clipper paths back to closed board paths.
func ToPaths(paths Paths) []geometry.Path {
	out := make([]geometry.Path, 0, len(paths))
	for _, p := range paths {
		if len(p) == 0 {
			continue
		}
		out = append(out, ToPath(p))
	}
	return out
}

// guard converts a clipper panic into an error.
func guard(op string, err *error) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("failed to %s: %v: %w", op, r, ErrClipper)
	}
}

// Offset grows (delta > 0) or shrinks (delta < 0) closed paths with round
// joins.
func Offset(paths Paths, delta geometry.Length, tolerance geometry.PositiveLength) (result Paths, err error) {
	defer guard("offset paths", &err)
	co := clipper.NewClipperOffset()
	co.ArcTolerance = float64(tolerance)
	co.AddPaths(paths, clipper.JtRound, clipper.EtClosedPolygon)
	return co.Execute(float64(delta)), nil
}

// OffsetTree is Offset returning a tree.
func OffsetTree(paths Paths, delta geometry.Length, tolerance geometry.PositiveLength) (*Tree, error) {
	offset, err := Offset(paths, delta, tolerance)
	if err != nil {
		return nil, err
	}
	return UniteTree(offset, nil, NonZero, NonZero)
}

// StrokeOpen strokes open paths with round ends and joins to the given width.
func StrokeOpen(paths Paths, width geometry.PositiveLength, tolerance geometry.PositiveLength) (result Paths, err error) {
	defer guard("stroke paths", &err)
	co := clipper.NewClipperOffset()
	co.ArcTolerance = float64(tolerance)
	co.AddPaths(paths, clipper.JtRound, clipper.EtOpenRound)
	return co.Execute(float64(width) / 2), nil
}

func execute(op string, ct clipper.ClipType, subject, clip Paths, sf, cf FillRule) (result Paths, err error) {
	defer guard(op, &err)
	c := clipper.NewClipper(clipper.IoNone)
	c.AddPaths(subject, clipper.PtSubject, true)
	c.AddPaths(clip, clipper.PtClip, true)
	out, ok := c.Execute1(ct, sf.pft(), cf.pft())
	if !ok {
		return nil, fmt.Errorf("failed to %s: %w", op, ErrClipper)
	}
	return out, nil
}

func executeTree(op string, ct clipper.ClipType, subject, clip Paths, sf, cf FillRule) (result *Tree, err error) {
	defer guard(op, &err)
	c := clipper.NewClipper(clipper.IoNone)
	c.AddPaths(subject, clipper.PtSubject, true)
	c.AddPaths(clip, clipper.PtClip, true)
	out, ok := c.Execute2(ct, sf.pft(), cf.pft())
	if !ok {
		return nil, fmt.Errorf("failed to %s: %w", op, ErrClipper)
	}
	return out, nil
}

// Unite returns the union of subject and clip.
func Unite(subject, clip Paths, sf, cf FillRule) (Paths, error) {
	return execute("unite paths", clipper.CtUnion, subject, clip, sf, cf)
}

// UniteTree returns the union of subject and clip as a tree.
func UniteTree(subject, clip Paths, sf, cf FillRule) (*Tree, error) {
	return executeTree("unite paths", clipper.CtUnion, subject, clip, sf, cf)
}

// Intersect returns the area covered by both subject and clip.
func Intersect(subject, clip Paths, sf, cf FillRule) (Paths, error) {
	return execute("intersect paths", clipper.CtIntersection, subject, clip, sf, cf)
}

// IntersectTree is Intersect returning a tree.
func IntersectTree(subject, clip Paths, sf, cf FillRule) (*Tree, error) {
	return executeTree("intersect paths", clipper.CtIntersection, subject, clip, sf, cf)
}

// IntersectAll returns the area covered by every one of the given path sets.
func IntersectAll(sets []Paths, fill FillRule) (Paths, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	result := sets[0]
	for _, s := range sets[1:] {
		var err error
		if result, err = Intersect(result, s, fill, fill); err != nil {
			return nil, err
		}
		if len(result) == 0 {
			break
		}
	}
	return result, nil
}

// Subtract returns subject minus clip.
func Subtract(subject, clip Paths, sf, cf FillRule) (Paths, error) {
	return execute("subtract paths", clipper.CtDifference, subject, clip, sf, cf)
}

// SubtractTree is Subtract returning a tree.
func SubtractTree(subject, clip Paths, sf, cf FillRule) (*Tree, error) {
	return executeTree("subtract paths", clipper.CtDifference, subject, clip, sf, cf)
}

// Xor returns the symmetric difference.
func Xor(subject, clip Paths, sf, cf FillRule) (Paths, error) {
	return execute("xor paths", clipper.CtXor, subject, clip, sf, cf)
}

// XorTree is Xor returning a tree.
func XorTree(subject, clip Paths, sf, cf FillRule) (*Tree, error) {
	return executeTree("xor paths", clipper.CtXor, subject, clip, sf, cf)
}

// Area returns the signed area of all paths (counter-clockwise positive).
func Area(paths Paths) float64 {
	var total float64
	for _, p := range paths {
		total += clipper.Area(p)
	}
	return total
}

// Contains reports whether pt lies inside or on any of the paths.
func Contains(paths Paths, pt geometry.Point) bool {
	ip := &clipper.IntPoint{X: clipper.CInt(pt.X), Y: clipper.CInt(pt.Y)}
	inside := false
	for _, p := range paths {
		switch clipper.PointInPolygon(ip, p) {
		case -1:
			return true
		case 1:
			inside = !inside
		}
	}
	return inside
}
