package viewer

import (
	"math"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// Vec is a position in millimeters or pixels.
type Vec struct {
	X, Y float64
}

func toMm(p geometry.Point) Vec {
	return Vec{X: p.X.ToMm(), Y: p.Y.ToMm()}
}

// Camera maps board coordinates (mm, Y up) to screen pixels (Y down).
type Camera struct {
	Center Vec
	// Zoom is in pixels per mm.
	Zoom float64

	ScreenWidth  int
	ScreenHeight int

	// Flipped mirrors the view to look at the bottom side.
	Flipped bool
	// Rotation is the view rotation in degrees, one of 0, 90, 180, 270.
	Rotation float64
	// Pivot is the board position the view rotates and flips around.
	Pivot Vec
}

const (
	minZoom = 0.1
	maxZoom = 1000
)

// NewCamera returns a camera at the origin with 10 px/mm.
func NewCamera(width, height int) *Camera {
	return &Camera{Zoom: 10, ScreenWidth: width, ScreenHeight: height}
}

// ToScreen converts a board position to screen pixels.
func (c *Camera) ToScreen(p geometry.Point) Vec {
	return c.worldToScreen(toMm(p))
}

func (c *Camera) worldToScreen(v Vec) Vec {
	v = c.view(v)
	x := (v.X-c.Center.X)*c.Zoom + float64(c.ScreenWidth)/2
	y := (v.Y-c.Center.Y)*c.Zoom + float64(c.ScreenHeight)/2
	return Vec{X: x, Y: float64(c.ScreenHeight) - y}
}

// ToBoard converts screen pixels to a board position in mm.
func (c *Camera) ToBoard(screen Vec) Vec {
	x := (screen.X-float64(c.ScreenWidth)/2)/c.Zoom + c.Center.X
	y := (float64(c.ScreenHeight)-screen.Y-float64(c.ScreenHeight)/2)/c.Zoom + c.Center.Y
	return c.inverseView(Vec{X: x, Y: y})
}

// Pan moves the view by a screen offset.
func (c *Camera) Pan(dx, dy float64) {
	c.Center.X -= dx / c.Zoom
	c.Center.Y += dy / c.Zoom
}

// ZoomAt zooms by factor keeping the board position under the cursor in
// place.
func (c *Camera) ZoomAt(screen Vec, factor float64) {
	before := c.view(c.ToBoard(screen))
	c.Zoom = math.Min(math.Max(c.Zoom*factor, minZoom), maxZoom)
	after := c.view(c.ToBoard(screen))
	c.Center.X += before.X - after.X
	c.Center.Y += before.Y - after.Y
}

// Fit centers bb and zooms so it covers 90% of the smaller screen extent.
func (c *Camera) Fit(bb board.BoundingBox) {
	if bb.IsEmpty() || bb.Width() <= 0 || bb.Height() <= 0 {
		return
	}
	c.Center = toMm(bb.Center())
	c.Pivot = c.Center
	zx := float64(c.ScreenWidth) * 0.9 / bb.Width().ToMm()
	zy := float64(c.ScreenHeight) * 0.9 / bb.Height().ToMm()
	c.Zoom = math.Min(math.Max(math.Min(zx, zy), minZoom), maxZoom)
}

// Resize updates the screen size.
func (c *Camera) Resize(width, height int) {
	c.ScreenWidth, c.ScreenHeight = width, height
}

// Flip toggles between top and bottom view.
func (c *Camera) Flip() {
	c.Flipped = !c.Flipped
}

// Rotate rotates the view, normalized to [0, 360).
func (c *Camera) Rotate(degrees float64) {
	c.Rotation = math.Mod(c.Rotation+degrees, 360)
	if c.Rotation < 0 {
		c.Rotation += 360
	}
}

// view applies rotation, then flip, around the pivot.
func (c *Camera) view(v Vec) Vec {
	x, y := v.X-c.Pivot.X, v.Y-c.Pivot.Y
	if c.Rotation != 0 {
		sin, cos := math.Sincos(c.Rotation * math.Pi / 180)
		x, y = x*cos-y*sin, x*sin+y*cos
	}
	if c.Flipped {
		x = -x
	}
	return Vec{X: x + c.Pivot.X, Y: y + c.Pivot.Y}
}

func (c *Camera) inverseView(v Vec) Vec {
	x, y := v.X-c.Pivot.X, v.Y-c.Pivot.Y
	if c.Flipped {
		x = -x
	}
	if c.Rotation != 0 {
		sin, cos := math.Sincos(-c.Rotation * math.Pi / 180)
		x, y = x*cos-y*sin, x*sin+y*cos
	}
	return Vec{X: x + c.Pivot.X, Y: y + c.Pivot.Y}
}
