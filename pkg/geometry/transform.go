package geometry

// Transform places local coordinates on the board: rotate counter-clockwise,
// then mirror horizontally if Mirrored, then translate by Position.
type Transform struct {
	Position Point
	Rotation Angle
	Mirrored bool
}

// MapPoint maps a local point to board coordinates.
func (t Transform) MapPoint(p Point) Point {
	p = p.Rotated(t.Rotation, Point{})
	if t.Mirrored {
		p = p.Mirrored(Horizontal, Point{})
	}
	return p.Add(t.Position)
}

// CheckedMapPoint is MapPoint with range checking of the result.
func (t Transform) CheckedMapPoint(p Point) (Point, error) {
	p = p.Rotated(t.Rotation, Point{})
	if t.Mirrored {
		p = p.Mirrored(Horizontal, Point{})
	}
	return p.CheckedAdd(t.Position)
}

// MapAngle maps a local direction.
func (t Transform) MapAngle(a Angle) Angle {
	if t.Mirrored {
		return (Deg180 - a - t.Rotation).Mapped0To360()
	}
	return (a + t.Rotation).Mapped0To360()
}

// MapMirror maps a local mirror state.
func (t Transform) MapMirror(m bool) bool {
	return m != t.Mirrored
}

// MapPath maps every vertex; arc directions flip when mirrored.
func (t Transform) MapPath(p Path) Path {
	c := p.Rotated(t.Rotation, Point{})
	if t.Mirrored {
		c = c.Mirrored(Horizontal, Point{})
	}
	return c.Translated(t.Position)
}

// MapPaths maps a list of paths.
func (t Transform) MapPaths(paths []Path) []Path {
	out := make([]Path, len(paths))
	for i, p := range paths {
		out[i] = t.MapPath(p)
	}
	return out
}
