package geometry

import (
	"math"
)

// Arc tolerances used when arcs are converted to straight segments.
const (
	// DefaultArcTolerance is used for rendering and general purpose flattening.
	DefaultArcTolerance PositiveLength = 10000
	// MaxArcTolerance is the deviation accepted for all boolean geometry and
	// is subtracted from clearances by the rule checks.
	MaxArcTolerance PositiveLength = 5000
	// PadOutlineTolerance is used when pad outlines are flashed as polygons.
	PadOutlineTolerance PositiveLength = 5000
)

// Vertex is a path corner. Angle is the bulge of the arc from this vertex to
// the next one (0 = straight segment).
type Vertex struct {
	Pos   Point
	Angle Angle
}

// Path is an ordered list of vertices.
type Path []Vertex

// NewPath builds a straight path through the given points.
func NewPath(points ...Point) Path {
	p := make(Path, len(points))
	for i, pt := range points {
		p[i] = Vertex{Pos: pt}
	}
	return p
}

// Line returns the straight path from p1 to p2.
func Line(p1, p2 Point) Path {
	return NewPath(p1, p2)
}

// IsClosed reports whether the last vertex coincides with the first.
func (p Path) IsClosed() bool {
	return len(p) >= 2 && p[0].Pos == p[len(p)-1].Pos
}

// IsCurved reports whether any segment is an arc.
func (p Path) IsCurved() bool {
	for i := 0; i+1 < len(p); i++ {
		if p[i].Angle != 0 {
			return true
		}
	}
	return false
}

// Points returns the vertex positions.
func (p Path) Points() []Point {
	pts := make([]Point, len(p))
	for i, v := range p {
		pts[i] = v.Pos
	}
	return pts
}

// TotalStraightLength sums the chord lengths of all segments.
func (p Path) TotalStraightLength() Length {
	var total Length
	for i := 1; i < len(p); i++ {
		total += p[i].Pos.Sub(p[i-1].Pos).Length()
	}
	return total
}

// Clone returns an independent copy.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	c := make(Path, len(p))
	copy(c, p)
	return c
}

func (p Path) Translated(offset Point) Path {
	c := p.Clone()
	for i := range c {
		c[i].Pos = c[i].Pos.Add(offset)
	}
	return c
}

func (p Path) Rotated(angle Angle, center Point) Path {
	c := p.Clone()
	for i := range c {
		c[i].Pos = c[i].Pos.Rotated(angle, center)
	}
	return c
}

// Mirrored mirrors all vertices; arc directions are inverted.
func (p Path) Mirrored(o Orientation, center Point) Path {
	c := p.Clone()
	for i := range c {
		c[i].Pos = c[i].Pos.Mirrored(o, center)
		c[i].Angle = -c[i].Angle
	}
	return c
}

// Reversed returns the path traversed backwards.
func (p Path) Reversed() Path {
	n := len(p)
	r := make(Path, n)
	for k := 0; k < n; k++ {
		r[k].Pos = p[n-1-k].Pos
		if k < n-1 {
			r[k].Angle = -p[n-2-k].Angle
		}
	}
	return r
}

// Cleaned removes consecutive duplicate vertices.
func (p Path) Cleaned() Path {
	var c Path
	for i, v := range p {
		if i+1 < len(p) && p[i+1].Pos == v.Pos {
			continue
		}
		c = append(c, v)
	}
	return c
}

// Closed returns the path with the first vertex appended if not closed yet.
func (p Path) Closed() Path {
	c := p.Clone()
	if len(c) > 0 && !c.IsClosed() {
		c = append(c, Vertex{Pos: c[0].Pos})
	}
	if len(c) > 0 {
		c[len(c)-1].Angle = 0
	}
	return c
}

// BoundingBox returns the min and max corner of the vertices. Arcs are not
// taken into account beyond their end points.
func (p Path) BoundingBox() (Point, Point) {
	if len(p) == 0 {
		return Point{}, Point{}
	}
	lo, hi := p[0].Pos, p[0].Pos
	for _, v := range p[1:] {
		lo.X, lo.Y = MinOf(lo.X, v.Pos.X), MinOf(lo.Y, v.Pos.Y)
		hi.X, hi.Y = MaxOf(hi.X, v.Pos.X), MaxOf(hi.Y, v.Pos.Y)
	}
	return lo, hi
}

// FlattenedArcs replaces every arc segment by straight segments deviating at
// most tolerance from the true arc.
func (p Path) FlattenedArcs(tolerance PositiveLength) Path {
	out := make(Path, 0, len(p))
	for i, v := range p {
		out = append(out, Vertex{Pos: v.Pos})
		if v.Angle == 0 || i+1 >= len(p) {
			continue
		}
		for _, pt := range arcPoints(v.Pos, p[i+1].Pos, v.Angle, tolerance) {
			out = append(out, Vertex{Pos: pt})
		}
	}
	return out
}

// ArcCenter returns the center of the arc from p1 to p2 with the given bulge.
func ArcCenter(p1, p2 Point, angle Angle) (cx, cy float64) {
	x1, y1 := float64(p1.X), float64(p1.Y)
	x2, y2 := float64(p2.X), float64(p2.Y)
	mx, my := (x1+x2)/2, (y1+y2)/2
	dx, dy := x2-x1, y2-y1
	chord := math.Hypot(dx, dy)
	if chord == 0 {
		return mx, my
	}
	d := (chord / 2) / math.Tan(angle.ToRad()/2)
	nx, ny := -dy/chord, dx/chord
	return mx + nx*d, my + ny*d
}

// arcPoints returns the intermediate points of a flattened arc, excluding p1
// and p2.
func arcPoints(p1, p2 Point, angle Angle, tolerance PositiveLength) []Point {
	if p1 == p2 {
		return nil
	}
	theta := angle.ToRad()
	cx, cy := ArcCenter(p1, p2, angle)
	r := math.Hypot(float64(p1.X)-cx, float64(p1.Y)-cy)
	step := math.Pi
	if tol := float64(tolerance); tol < r {
		step = 2 * math.Acos(1-tol/r)
	}
	n := int(math.Ceil(math.Abs(theta) / step))
	if n < 1 {
		n = 1
	}
	a0 := math.Atan2(float64(p1.Y)-cy, float64(p1.X)-cx)
	pts := make([]Point, 0, n-1)
	for k := 1; k < n; k++ {
		a := a0 + theta*float64(k)/float64(n)
		pts = append(pts, Point{
			X: Length(math.Round(cx + r*math.Cos(a))),
			Y: Length(math.Round(cy + r*math.Sin(a))),
		})
	}
	return pts
}

// Circle returns a closed circle of the given diameter around the origin.
func Circle(diameter PositiveLength) Path {
	r := Length(diameter) / 2
	return Path{
		{Pos: Pt(r, 0), Angle: Deg180},
		{Pos: Pt(-r, 0), Angle: Deg180},
		{Pos: Pt(r, 0)},
	}
}

// Obround returns a closed obround (stadium) around the origin.
func Obround(width, height PositiveLength) Path {
	w, h := Length(width), Length(height)
	switch {
	case w > h:
		return ObroundLine(Pt(-(w-h)/2, 0), Pt((w-h)/2, 0), height)
	case h > w:
		return ObroundLine(Pt(0, -(h-w)/2), Pt(0, (h-w)/2), width)
	}
	return Circle(width)
}

// ObroundLine returns the outline of a round-capped stroke from p1 to p2.
func ObroundLine(p1, p2 Point, width PositiveLength) Path {
	if p1 == p2 {
		return Circle(width).Translated(p1)
	}
	d := p2.Sub(p1)
	l := math.Hypot(float64(d.X), float64(d.Y))
	r := float64(width) / 2
	n := Point{
		X: Length(math.Round(-float64(d.Y) / l * r)),
		Y: Length(math.Round(float64(d.X) / l * r)),
	}
	return Path{
		{Pos: p1.Sub(n)},
		{Pos: p2.Sub(n), Angle: Deg180},
		{Pos: p2.Add(n)},
		{Pos: p1.Add(n), Angle: Deg180},
		{Pos: p1.Sub(n)},
	}
}

// Rect returns the closed axis aligned rectangle spanned by two corners.
func Rect(p1, p2 Point) Path {
	return NewPath(p1, Pt(p2.X, p1.Y), p2, Pt(p1.X, p2.Y), p1)
}

// CenteredRect returns a closed rectangle around the origin with rounded
// corners.
func CenteredRect(width, height PositiveLength, radius UnsignedLength) Path {
	hw, hh := Length(width)/2, Length(height)/2
	corners := []Point{Pt(hw, -hh), Pt(hw, hh), Pt(-hw, hh), Pt(-hw, -hh)}
	return roundedPolygon(corners, clampRadius(width, height, radius))
}

// Octagon returns a closed octagon around the origin with rounded corners.
func Octagon(width, height PositiveLength, radius UnsignedLength) Path {
	hw, hh := Length(width)/2, Length(height)/2
	c := Length(math.Round(float64(MinOf(Length(width), Length(height))) * (1 - 1/(1+math.Sqrt2)) / 2))
	corners := []Point{
		Pt(hw, -hh+c), Pt(hw, hh-c), Pt(hw-c, hh), Pt(-hw+c, hh),
		Pt(-hw, hh-c), Pt(-hw, -hh+c), Pt(-hw+c, -hh), Pt(hw-c, -hh),
	}
	return roundedPolygon(corners, clampRadius(width, height, radius))
}

func clampRadius(width, height PositiveLength, radius UnsignedLength) Length {
	return MinOf(Length(radius), MinOf(Length(width), Length(height))/2)
}

// roundedPolygon builds a closed path through counter-clockwise convex
// corners, replacing every corner by a tangent arc of the given radius.
func roundedPolygon(corners []Point, radius Length) Path {
	if radius <= 0 {
		p := NewPath(corners...)
		return p.Closed()
	}
	n := len(corners)
	var p Path
	for k := 0; k < n; k++ {
		prev, cur, next := corners[(k+n-1)%n], corners[k], corners[(k+1)%n]
		inX, inY := unit(cur.Sub(prev))
		outX, outY := unit(next.Sub(cur))
		alpha := math.Atan2(inX*outY-inY*outX, inX*outX+inY*outY)
		t := float64(radius) * math.Tan(alpha/2)
		a := Point{cur.X - Length(math.Round(inX*t)), cur.Y - Length(math.Round(inY*t))}
		b := Point{cur.X + Length(math.Round(outX*t)), cur.Y + Length(math.Round(outY*t))}
		p = append(p, Vertex{Pos: a, Angle: FromRad(alpha)}, Vertex{Pos: b})
	}
	p = append(p, Vertex{Pos: p[0].Pos})
	return p.Cleaned()
}

func unit(p Point) (float64, float64) {
	l := math.Hypot(float64(p.X), float64(p.Y))
	if l == 0 {
		return 0, 0
	}
	return float64(p.X) / l, float64(p.Y) / l
}

// ToOutlineStrokes returns closed outlines covering the path stroked with
// round caps of the given width, one outline per segment.
func (p Path) ToOutlineStrokes(width PositiveLength) []Path {
	if len(p) == 1 {
		return []Path{Circle(width).Translated(p[0].Pos)}
	}
	var out []Path
	for i := 0; i+1 < len(p); i++ {
		p1, p2, angle := p[i].Pos, p[i+1].Pos, p[i].Angle
		if angle == 0 || p1 == p2 {
			out = append(out, ObroundLine(p1, p2, width))
			continue
		}
		if arc, ok := arcObround(p1, p2, angle, width); ok {
			out = append(out, arc)
			continue
		}
		seg := Path{{Pos: p1, Angle: angle}, {Pos: p2}}.FlattenedArcs(MaxArcTolerance)
		for j := 0; j+1 < len(seg); j++ {
			out = append(out, ObroundLine(seg[j].Pos, seg[j+1].Pos, width))
		}
	}
	return out
}

// arcObround returns the outline of a stroked arc with round caps. It fails
// if the stroke is wider than the arc diameter.
func arcObround(p1, p2 Point, angle Angle, width PositiveLength) (Path, bool) {
	cx, cy := ArcCenter(p1, p2, angle)
	r := math.Hypot(float64(p1.X)-cx, float64(p1.Y)-cy)
	hw := float64(width) / 2
	if r-hw <= 0 {
		return nil, false
	}
	a1 := math.Atan2(float64(p1.Y)-cy, float64(p1.X)-cx)
	a2 := a1 + angle.ToRad()
	at := func(rad, a float64) Point {
		return Point{Length(math.Round(cx + rad*math.Cos(a))), Length(math.Round(cy + rad*math.Sin(a)))}
	}
	capAngle := Deg180
	if angle < 0 {
		capAngle = -Deg180
	}
	o1, o2 := at(r+hw, a1), at(r+hw, a2)
	i1, i2 := at(r-hw, a1), at(r-hw, a2)
	return Path{
		{Pos: o1, Angle: angle},
		{Pos: o2, Angle: capAngle},
		{Pos: i2, Angle: -angle},
		{Pos: i1, Angle: capAngle},
		{Pos: o1},
	}, true
}
