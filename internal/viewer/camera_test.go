package viewer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

func mmPt(x, y float64) geometry.Point { return geometry.Pt(geometry.Mm(x), geometry.Mm(y)) }

func assertVec(t *testing.T, want, got Vec) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-6, "x")
	assert.InDelta(t, want.Y, got.Y, 1e-6, "y")
}

func TestCameraYUp(t *testing.T) {
	c := NewCamera(100, 100)
	assertVec(t, Vec{X: 50, Y: 50}, c.ToScreen(mmPt(0, 0)))
	assertVec(t, Vec{X: 60, Y: 40}, c.ToScreen(mmPt(1, 1)))
}

func TestCameraRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		flipped bool
		rot     float64
	}{
		{"plain", false, 0},
		{"rotated", false, 90},
		{"flipped", true, 0},
		{"both", true, 270},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCamera(800, 600)
			c.Center = Vec{X: 3, Y: -2}
			c.Pivot = Vec{X: 1, Y: 1}
			c.Flipped = tt.flipped
			c.Rotate(tt.rot)
			p := mmPt(12.5, -7.25)
			assertVec(t, toMm(p), c.ToBoard(c.ToScreen(p)))
		})
	}
}

func TestCameraZoomAtKeepsCursor(t *testing.T) {
	c := NewCamera(800, 600)
	c.Rotate(90)
	c.Flip()
	cursor := Vec{X: 120, Y: 480}
	before := c.ToBoard(cursor)
	c.ZoomAt(cursor, 3)
	assert.InDelta(t, 30, c.Zoom, 1e-9)
	assertVec(t, before, c.ToBoard(cursor))

	c.ZoomAt(cursor, 1e-9)
	assert.Equal(t, minZoom, c.Zoom)
}

func TestCameraFit(t *testing.T) {
	var bb board.BoundingBox
	bb.Expand(mmPt(0, 0))
	bb.Expand(mmPt(50, 40))

	c := NewCamera(1000, 800)
	c.Fit(bb)
	assertVec(t, Vec{X: 25, Y: 20}, c.Center)
	assert.InDelta(t, 18, c.Zoom, 1e-9)

	zoom := c.Zoom
	c.Fit(board.BoundingBox{})
	assert.Equal(t, zoom, c.Zoom)
}

func TestCameraRotateNormalizes(t *testing.T) {
	c := NewCamera(10, 10)
	c.Rotate(-90)
	assert.Equal(t, 270.0, c.Rotation)
	c.Rotate(180)
	assert.Equal(t, 90.0, c.Rotation)
}

func TestCameraPan(t *testing.T) {
	c := NewCamera(100, 100)
	c.Pan(20, 10)
	assertVec(t, Vec{X: -2, Y: 1}, c.Center)
}
