package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointRotated(t *testing.T) {
	tests := []struct {
		name   string
		p      Point
		angle  Angle
		center Point
		want   Point
	}{
		{"90 around origin", Pt(1000, 0), Deg90, Point{}, Pt(0, 1000)},
		{"180 around origin", Pt(1000, 500), Deg180, Point{}, Pt(-1000, -500)},
		{"270 around origin", Pt(1000, 0), Deg270, Point{}, Pt(0, -1000)},
		{"-90 equals 270", Pt(1000, 0), -Deg90, Point{}, Pt(0, -1000)},
		{"90 around center", Pt(2, 1), Deg90, Pt(1, 1), Pt(1, 2)},
		{"45 rounds", Pt(1000, 0), Deg45, Point{}, Pt(707, 707)},
		{"360 is identity", Pt(3, 4), Deg360, Point{}, Pt(3, 4)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Rotated(tt.angle, tt.center))
		})
	}
}

func TestPointMirroredAndGrid(t *testing.T) {
	assert.Equal(t, Pt(17, 5), Pt(3, 5).Mirrored(Horizontal, Pt(10, 0)))
	assert.Equal(t, Pt(3, -5), Pt(3, 5).Mirrored(Vertical, Point{}))
	assert.Equal(t, Pt(100, -200), Pt(149, -151).MappedToGrid(100))
	assert.Equal(t, Pt(200, 0), Pt(150, 49).MappedToGrid(100))
}

func TestPathBasics(t *testing.T) {
	open := NewPath(Pt(0, 0), Pt(10, 0), Pt(10, 10))
	assert.False(t, open.IsClosed())
	assert.True(t, open.Closed().IsClosed())
	assert.Len(t, open.Closed(), 4)
	assert.False(t, NewPath(Pt(0, 0)).IsClosed())

	curved := Path{{Pos: Pt(0, 0), Angle: Deg90}, {Pos: Pt(10, 0)}, {Pos: Pt(10, 10)}}
	assert.True(t, curved.IsCurved())
	assert.Equal(t, Path{
		{Pos: Pt(10, 10)},
		{Pos: Pt(10, 0), Angle: -Deg90},
		{Pos: Pt(0, 0)},
	}, curved.Reversed())

	dup := NewPath(Pt(0, 0), Pt(0, 0), Pt(5, 5), Pt(5, 5), Pt(1, 1))
	assert.Equal(t, NewPath(Pt(0, 0), Pt(5, 5), Pt(1, 1)), dup.Cleaned())
}

func TestCircleFlattening(t *testing.T) {
	const r = 1000000
	circle := Circle(2 * r)
	require.True(t, circle.IsClosed())

	flat := circle.FlattenedArcs(MaxArcTolerance)
	assert.Len(t, flat, 33)
	assert.False(t, flat.IsCurved())
	for i, v := range flat {
		d := math.Hypot(float64(v.Pos.X), float64(v.Pos.Y))
		assert.InDelta(t, r, d, 1.5, "vertex %d off the circle", i)
		if i > 0 {
			mid := v.Pos.Add(flat[i-1].Pos).Div(2)
			md := math.Hypot(float64(mid.X), float64(mid.Y))
			assert.GreaterOrEqual(t, md, float64(r-MaxArcTolerance)-1, "segment %d deviates too much", i)
		}
	}
}

func TestObroundLine(t *testing.T) {
	p := ObroundLine(Pt(0, 0), Pt(Mm(10), 0), MustPositive(Mm(2)))
	assert.Equal(t, Path{
		{Pos: Pt(0, -Mm(1))},
		{Pos: Pt(Mm(10), -Mm(1)), Angle: Deg180},
		{Pos: Pt(Mm(10), Mm(1))},
		{Pos: Pt(0, Mm(1)), Angle: Deg180},
		{Pos: Pt(0, -Mm(1))},
	}, p)

	dot := ObroundLine(Pt(5, 5), Pt(5, 5), 10)
	assert.Equal(t, Circle(10).Translated(Pt(5, 5)), dot)
}

func TestCenteredRect(t *testing.T) {
	sharp := CenteredRect(MustPositive(Mm(2)), MustPositive(Mm(1)), 0)
	assert.Equal(t, NewPath(
		Pt(Mm(1), -Mm(0.5)), Pt(Mm(1), Mm(0.5)), Pt(-Mm(1), Mm(0.5)),
		Pt(-Mm(1), -Mm(0.5)), Pt(Mm(1), -Mm(0.5)),
	), sharp)

	rounded := CenteredRect(MustPositive(Mm(2)), MustPositive(Mm(2)), MustUnsigned(Mm(0.2)))
	require.True(t, rounded.IsClosed())
	assert.True(t, rounded.IsCurved())
	assert.Len(t, rounded, 9)
	for _, v := range rounded {
		if v.Angle != 0 {
			assert.Equal(t, Deg90, v.Angle)
		}
	}

	oct := Octagon(MustPositive(Mm(1)), MustPositive(Mm(1)), 0)
	assert.Len(t, oct, 9)
	assert.True(t, oct.IsClosed())
}

func TestToOutlineStrokes(t *testing.T) {
	single := NewPath(Pt(1, 1)).ToOutlineStrokes(100)
	require.Len(t, single, 1)
	assert.Equal(t, Circle(100).Translated(Pt(1, 1)), single[0])

	arc := Path{{Pos: Pt(Mm(1), 0), Angle: Deg90}, {Pos: Pt(0, Mm(1))}}
	strokes := arc.ToOutlineStrokes(MustPositive(Mm(0.2)))
	require.Len(t, strokes, 1)
	assert.True(t, strokes[0].IsClosed())
	assert.Equal(t, Pt(Mm(1.1), 0), strokes[0][0].Pos)
	assert.Equal(t, Deg90, strokes[0][0].Angle)
}

func TestTransform(t *testing.T) {
	tr := Transform{Position: Pt(10, 0), Rotation: Deg90, Mirrored: true}
	assert.Equal(t, Pt(10, 1), tr.MapPoint(Pt(1, 0)))
	assert.Equal(t, Pt(11, 0), tr.MapPoint(Pt(0, 1)))
	assert.Equal(t, Deg90, tr.MapAngle(0))
	assert.True(t, tr.MapMirror(false))

	path := Path{{Pos: Pt(1, 0), Angle: Deg90}, {Pos: Pt(0, 1)}}
	mapped := tr.MapPath(path)
	assert.Equal(t, -Deg90, mapped[0].Angle)
	assert.Equal(t, Pt(10, 1), mapped[0].Pos)
}
