package geometry

import (
	"fmt"
	"math"
)

// Point is a position in board coordinates.
type Point struct {
	X Length
	Y Length
}

// Pt is shorthand for Point{x, y}.
func Pt(x, y Length) Point {
	return Point{X: x, Y: y}
}

// Add is unchecked. Two points inside MaxLength cannot wrap, but the sum may
// leave the valid range; use CheckedAdd for values taken from input files.
func (p Point) Add(o Point) Point { return Point{p.X + o.X, p.Y + o.Y} }

// Sub is unchecked, see Add.
func (p Point) Sub(o Point) Point { return Point{p.X - o.X, p.Y - o.Y} }

// CheckedAdd returns p+o or ErrOverflow.
func (p Point) CheckedAdd(o Point) (Point, error) {
	x, err := p.X.Add(o.X)
	if err != nil {
		return Point{}, err
	}
	y, err := p.Y.Add(o.Y)
	if err != nil {
		return Point{}, err
	}
	return Point{x, y}, nil
}

// CheckedSub returns p-o or ErrOverflow.
func (p Point) CheckedSub(o Point) (Point, error) {
	return p.CheckedAdd(o.Neg())
}

func (p Point) Neg() Point { return Point{-p.X, -p.Y} }

// Div divides both coordinates by n, rounding towards zero.
func (p Point) Div(n int64) Point {
	return Point{p.X / Length(n), p.Y / Length(n)}
}

// Length returns the distance to the origin, rounded to nanometers.
func (p Point) Length() Length {
	return Length(math.Round(math.Hypot(float64(p.X), float64(p.Y))))
}

// IsOrigin reports whether both coordinates are zero.
func (p Point) IsOrigin() bool { return p.X == 0 && p.Y == 0 }

// Rotated rotates p counter-clockwise around center. Multiples of 90 degrees
// are exact; other angles are rounded to the nearest nanometer.
func (p Point) Rotated(angle Angle, center Point) Point {
	d := p.Sub(center)
	switch angle.Mapped0To360() {
	case Deg0:
		return p
	case Deg90:
		return Point{center.X - d.Y, center.Y + d.X}
	case Deg180:
		return Point{center.X - d.X, center.Y - d.Y}
	case Deg270:
		return Point{center.X + d.Y, center.Y - d.X}
	}
	s, c := math.Sincos(angle.ToRad())
	x := float64(d.X)*c - float64(d.Y)*s
	y := float64(d.X)*s + float64(d.Y)*c
	return Point{
		X: center.X + Length(math.Round(x)),
		Y: center.Y + Length(math.Round(y)),
	}
}

// Orientation selects a mirror axis.
type Orientation int

const (
	// Horizontal mirrors the X coordinate (around a vertical axis).
	Horizontal Orientation = iota
	// Vertical mirrors the Y coordinate (around a horizontal axis).
	Vertical
)

// Mirrored mirrors p around center.
func (p Point) Mirrored(o Orientation, center Point) Point {
	if o == Horizontal {
		return Point{2*center.X - p.X, p.Y}
	}
	return Point{p.X, 2*center.Y - p.Y}
}

// MappedToGrid snaps p to the nearest multiple of interval.
func (p Point) MappedToGrid(interval PositiveLength) Point {
	return Point{snap(p.X, Length(interval)), snap(p.Y, Length(interval))}
}

func snap(v, interval Length) Length {
	r := v % interval
	if r < 0 {
		r += interval
	}
	if 2*r >= interval {
		return v - r + interval
	}
	return v - r
}

// Angle returns the direction of p seen from the origin.
func (p Point) Angle() Angle {
	return FromRad(math.Atan2(float64(p.Y), float64(p.X)))
}

func (p Point) String() string {
	return fmt.Sprintf("(%s, %s)", p.X.MmString(), p.Y.MmString())
}
