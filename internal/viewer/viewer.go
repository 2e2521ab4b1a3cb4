// Package viewer shows a board with its copper, holes, air wires and the
// locations of rule check messages in a Gio window.
//
// Controls:
//
//	Drag            pan
//	Scroll / + / -  zoom
//	R / Left        rotate by 90 degrees
//	F               flip to the other side
//	M               toggle message markers
//	Space           fit board
//	Q / Escape      quit
package viewer

import (
	"fmt"
	"image"
	"image/color"

	"gioui.org/app"
	"gioui.org/f32"
	"gioui.org/io/event"
	"gioui.org/io/key"
	"gioui.org/io/pointer"
	"gioui.org/io/system"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"
	"github.com/oligo/gioview/theme"
	"golang.org/x/exp/shiny/materialdesign/icons"

	"github.com/OpenTraceLab/OpenTraceFab/internal/logging"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

const statusBarHeight = unit.Dp(28)

// Viewer holds the view state of one scene.
type Viewer struct {
	scene       *Scene
	camera      *Camera
	showMarkers bool

	dragging bool
	last     f32.Point
	fitted   bool

	// theme is nil until Run; without it no status bar is drawn.
	theme    *theme.Theme
	okIcon   *widget.Icon
	warnIcon *widget.Icon
}

// New returns a viewer of scene with markers shown.
func New(scene *Scene) *Viewer {
	return &Viewer{scene: scene, camera: NewCamera(1000, 800), showMarkers: true}
}

// Camera returns the camera of the viewer.
func (v *Viewer) Camera() *Camera { return v.camera }

// HandleKey applies a key press and reports whether the viewer should close.
func (v *Viewer) HandleKey(name key.Name) bool {
	c := v.camera
	center := Vec{X: float64(c.ScreenWidth) / 2, Y: float64(c.ScreenHeight) / 2}
	switch name {
	case key.NameEscape, "Q":
		return true
	case "F":
		c.Flip()
	case "R":
		c.Rotate(90)
	case key.NameLeftArrow:
		c.Rotate(-90)
	case "M":
		v.showMarkers = !v.showMarkers
	case "+":
		c.ZoomAt(center, 1.25)
	case "-":
		c.ZoomAt(center, 0.8)
	case key.NameSpace:
		c.Fit(v.scene.Bounds)
	}
	return false
}

// Run processes window events until the window is closed.
func (v *Viewer) Run(w *app.Window) error {
	v.loadTheme()
	var ops op.Ops
	for {
		switch e := w.Event().(type) {
		case app.DestroyEvent:
			return e.Err
		case app.FrameEvent:
			gtx := app.NewContext(&ops, e)
			if v.Layout(gtx) {
				logging.Logger().Debug("viewer closed by key")
				w.Perform(system.ActionClose)
				return nil
			}
			e.Frame(gtx.Ops)
		}
	}
}

// Layout handles input and draws one frame. It reports whether a quit key
// was pressed.
func (v *Viewer) Layout(gtx layout.Context) bool {
	size := gtx.Constraints.Max
	bar := 0
	if v.theme != nil {
		bar = gtx.Dp(statusBarHeight)
	}
	canvas := image.Pt(size.X, max(size.Y-bar, 0))
	v.camera.Resize(canvas.X, canvas.Y)
	if !v.fitted {
		v.camera.Fit(v.scene.Bounds)
		v.fitted = true
	}

	for {
		ev, ok := gtx.Event(key.Filter{})
		if !ok {
			break
		}
		if ke, ok := ev.(key.Event); ok && ke.State == key.Press {
			if v.HandleKey(ke.Name) {
				return true
			}
			gtx.Execute(op.InvalidateCmd{})
		}
	}
	v.handlePointer(gtx)

	area := clip.Rect(image.Rectangle{Max: canvas}).Push(gtx.Ops)
	event.Op(gtx.Ops, v)
	paint.Fill(gtx.Ops, colorBackground)
	v.draw(gtx.Ops)
	area.Pop()

	if v.theme != nil {
		defer op.Offset(image.Pt(0, canvas.Y)).Push(gtx.Ops).Pop()
		gtx.Constraints = layout.Exact(image.Pt(size.X, bar))
		v.layoutStatus(gtx)
	}
	return false
}

func (v *Viewer) loadTheme() {
	th := theme.NewTheme("", nil, true)
	th.WithPalette(theme.Palette{
		Bg:         color.NRGBA{R: 18, G: 20, B: 26, A: 255},
		Fg:         color.NRGBA{R: 233, G: 236, B: 245, A: 255},
		ContrastBg: color.NRGBA{R: 120, G: 150, B: 255, A: 255},
		ContrastFg: color.NRGBA{R: 12, G: 16, B: 24, A: 255},
		Bg2:        color.NRGBA{R: 34, G: 40, B: 50, A: 255},
	})
	v.theme = th
	if icon, err := widget.NewIcon(icons.ActionCheckCircle); err == nil {
		v.okIcon = icon
	}
	if icon, err := widget.NewIcon(icons.AlertWarning); err == nil {
		v.warnIcon = icon
	}
}

// StatusText is the text of the status bar.
func (v *Viewer) StatusText() string {
	side := "Top"
	if v.camera.Flipped {
		side = "Bottom"
	}
	markers := "markers hidden"
	if v.showMarkers {
		markers = fmt.Sprintf("%d DRC messages", len(v.scene.Markers))
	}
	return fmt.Sprintf("%s | %s | %d\u00b0 | %s | %.1f px/mm",
		v.scene.Title, side, int(v.camera.Rotation), markers, v.camera.Zoom)
}

func (v *Viewer) layoutStatus(gtx layout.Context) layout.Dimensions {
	th := v.theme
	paint.FillShape(gtx.Ops, th.Bg2, clip.Rect{Max: gtx.Constraints.Max}.Op())

	icon, col := v.okIcon, color.NRGBA{R: 80, G: 200, B: 120, A: 255}
	if len(v.scene.Markers) > 0 {
		icon, col = v.warnIcon, color.NRGBA{R: 255, G: 165, B: 0, A: 255}
	}
	return layout.Inset{Left: unit.Dp(8), Right: unit.Dp(8)}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
		return layout.Flex{Alignment: layout.Middle}.Layout(gtx,
			layout.Rigid(func(gtx layout.Context) layout.Dimensions {
				if icon == nil {
					return layout.Dimensions{}
				}
				s := gtx.Dp(18)
				gtx.Constraints = layout.Exact(image.Pt(s, s))
				return icon.Layout(gtx, col)
			}),
			layout.Rigid(layout.Spacer{Width: unit.Dp(6)}.Layout),
			layout.Flexed(1, func(gtx layout.Context) layout.Dimensions {
				lbl := material.Body2(th.Theme, v.StatusText())
				lbl.Color = th.Palette.Fg
				return lbl.Layout(gtx)
			}),
		)
	})
}

func (v *Viewer) handlePointer(gtx layout.Context) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target:  v,
			Kinds:   pointer.Press | pointer.Release | pointer.Drag | pointer.Scroll,
			ScrollY: pointer.ScrollRange{Min: -100, Max: 100},
		})
		if !ok {
			return
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		switch pe.Kind {
		case pointer.Press:
			v.dragging = pe.Buttons == pointer.ButtonPrimary
			v.last = pe.Position
		case pointer.Release:
			v.dragging = false
		case pointer.Drag:
			if v.dragging {
				d := pe.Position.Sub(v.last)
				v.camera.Pan(float64(d.X), float64(d.Y))
				v.last = pe.Position
				gtx.Execute(op.InvalidateCmd{})
			}
		case pointer.Scroll:
			factor := 1 - float64(pe.Scroll.Y)*0.01
			v.camera.ZoomAt(Vec{X: float64(pe.Position.X), Y: float64(pe.Position.Y)}, factor)
			gtx.Execute(op.InvalidateCmd{})
		}
	}
}

func (v *Viewer) draw(ops *op.Ops) {
	s, c := v.scene, v.camera

	copper := s.Copper
	if c.Flipped {
		copper = make([]CopperLayer, len(s.Copper))
		for i, l := range s.Copper {
			copper[len(s.Copper)-1-i] = l
		}
	}
	for _, l := range copper {
		fillPaths(ops, c, l.Areas, copperColor(l.Layer))
	}
	fillPaths(ops, c, s.Holes, colorHole)
	fillPaths(ops, c, s.Outlines, colorOutline)

	for _, w := range s.AirWires {
		strokeLine(ops, c, w.P1, w.P2, colorAirWire)
	}

	if v.showMarkers {
		for _, m := range s.Markers {
			fillPaths(ops, c, m.Areas, markerColor(m.Severity))
		}
	}
}

func screenPt(c *Camera, p geometry.Point) f32.Point {
	s := c.ToScreen(p)
	return f32.Pt(float32(s.X), float32(s.Y))
}

// fillPaths fills closed paths with the non-zero rule, so holes of united
// areas stay open.
func fillPaths(ops *op.Ops, c *Camera, paths []geometry.Path, col color.NRGBA) {
	var p clip.Path
	p.Begin(ops)
	empty := true
	for _, path := range paths {
		flat := path.FlattenedArcs(geometry.DefaultArcTolerance)
		if len(flat) < 3 {
			continue
		}
		for i, vtx := range flat {
			if i == 0 {
				p.MoveTo(screenPt(c, vtx.Pos))
			} else {
				p.LineTo(screenPt(c, vtx.Pos))
			}
		}
		p.Close()
		empty = false
	}
	shape := p.End()
	if empty {
		return
	}
	paint.FillShape(ops, col, clip.Outline{Path: shape}.Op())
}

func strokeLine(ops *op.Ops, c *Camera, p1, p2 geometry.Point, col color.NRGBA) {
	var p clip.Path
	p.Begin(ops)
	p.MoveTo(screenPt(c, p1))
	p.LineTo(screenPt(c, p2))
	paint.FillShape(ops, col, clip.Stroke{Path: p.End(), Width: 1}.Op())
}
