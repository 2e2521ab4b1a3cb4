package fab

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/gerber"
)

// minOutlineWidth is the smallest stroke width written for board outlines.
const minOutlineWidth geometry.UnsignedLength = 1000

func layerWidth(w geometry.UnsignedLength, l *board.Layer) geometry.UnsignedLength {
	if l == board.BoardOutlines && w < minOutlineWidth {
		return minOutlineWidth
	}
	return w
}

// graphicsObject is the object used for drawings on l: the board profile on
// the outline layer and unconnected conductors on copper.
func graphicsObject(l *board.Layer, component string) gerber.Object {
	switch {
	case l == board.BoardOutlines:
		return gerber.Object{Function: gerber.FunctionProfile, Component: component}
	case l.IsCopper():
		return gerber.Object{Function: gerber.FunctionConductor, Net: gerber.Net(""), Component: component}
	}
	return gerber.Object{Component: component}
}

func textObject(l *board.Layer, component string) gerber.Object {
	obj := graphicsObject(l, component)
	switch {
	case l.IsCopper():
		obj.Function = gerber.FunctionNonConductor
	case l == board.BoardOutlines:
		obj.Function = gerber.FunctionNone
	}
	return obj
}

func sortedPolygons(in []*board.Polygon) []*board.Polygon {
	out := append([]*board.Polygon(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func sortedCircles(in []*board.Circle) []*board.Circle {
	out := append([]*board.Circle(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func sortedHoles(in []*board.Hole) []*board.Hole {
	out := append([]*board.Hole(nil), in...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

func (e *BoardExporter) netName(name string) string {
	if name == "" {
		return gerber.NoConnect
	}
	return name
}

// drawLayer draws everything of the board on one layer.
func (e *BoardExporter) drawLayer(g *gerber.Generator, l *board.Layer) error {
	b := e.board
	for _, d := range b.Devices {
		if err := e.drawDevice(g, d, l); err != nil {
			return err
		}
	}

	for _, seg := range b.NetSegments {
		net := gerber.NoConnect
		if seg.Net != nil {
			net = b.NetName(seg.Net)
		}
		for _, v := range seg.Vias {
			e.drawVia(g, v, l, net)
		}
		for _, t := range seg.Traces {
			if t.Layer != l {
				continue
			}
			p1, p2, ok := b.TraceEnds(seg, t)
			if !ok {
				continue
			}
			g.DrawLine(p1, p2, t.Width.Unsigned(), gerber.Object{Function: gerber.FunctionConductor, Net: gerber.Net(net)})
		}
	}

	for _, p := range b.Planes {
		if p.Layer != l {
			continue
		}
		net := b.NetName(&p.Net)
		for _, f := range p.Fragments {
			g.DrawPathArea(f, gerber.Object{Function: gerber.FunctionConductor, Net: gerber.Net(net)})
		}
	}

	graphics := graphicsObject(l, "")
	for _, p := range b.Polygons {
		if p.Layer != l {
			continue
		}
		g.DrawPathOutline(p.Path, layerWidth(p.LineWidth, l), graphics)
		if p.Filled && p.Path.IsClosed() {
			g.DrawPathArea(p.Path, graphics)
		}
	}

	text := textObject(l, "")
	for _, t := range b.StrokeTexts {
		if t.Layer != l {
			continue
		}
		for _, path := range t.Paths() {
			g.DrawPathOutline(path, layerWidth(t.StrokeWidth, l), text)
		}
	}

	if l.IsStopMask() {
		for _, h := range b.Holes {
			drawHoleOpening(g, h, b.HoleStopMaskOffset(h), geometry.Transform{})
		}
	}
	return nil
}

// drawHoleOpening opens the stop mask around a hole if it has an offset.
func drawHoleOpening(g *gerber.Generator, h *board.Hole, offset *geometry.Length, t geometry.Transform) {
	if offset == nil {
		return
	}
	d := h.Diameter.Length() + *offset + *offset
	if d <= 0 {
		return
	}
	path := t.MapPath(h.Path.Cleaned())
	if len(path) == 1 {
		g.FlashCircle(path[0].Pos, geometry.PositiveLength(d), gerber.Object{})
		return
	}
	g.DrawPathOutline(path, geometry.UnsignedLength(d), gerber.Object{})
}

func (e *BoardExporter) drawVia(g *gerber.Generator, v *board.Via, l *board.Layer, net string) {
	copper := e.board.IsCopperLayer(l)
	var offset *geometry.Length
	if l.IsStopMask() {
		offset = e.board.ViaStopMaskOffset(v)
	}
	if !copper && offset == nil {
		return
	}
	d := v.Size.Length()
	var obj gerber.Object
	if copper {
		obj = gerber.Object{Function: gerber.FunctionViaPad, Net: gerber.Net(net)}
	} else {
		d += 2 * geometry.MaxOf(*offset, 0)
	}
	g.FlashCircle(v.Position, geometry.PositiveLength(d), obj)
}

func (e *BoardExporter) drawDevice(g *gerber.Generator, d *board.Device, l *board.Layer) error {
	b := e.board
	component := b.ComponentName(d)
	graphics := graphicsObject(l, component)
	t := d.Transform()

	for _, p := range d.Pads {
		if err := e.drawPad(g, d, p, l, component); err != nil {
			return err
		}
	}

	for _, p := range sortedPolygons(d.Polygons) {
		pl := board.MapLayer(p.Layer, d.Mirrored)
		if pl != l {
			continue
		}
		path := t.MapPath(p.Path)
		g.DrawPathOutline(path, layerWidth(p.LineWidth, pl), graphics)
		if p.Filled && path.IsClosed() {
			g.DrawPathArea(path, graphics)
		}
	}

	for _, c := range sortedCircles(d.Circles) {
		cl := board.MapLayer(c.Layer, d.Mirrored)
		if cl != l {
			continue
		}
		center := t.MapPoint(c.Center)
		if c.Filled {
			outer := geometry.PositiveLength(c.Diameter.Length() + c.LineWidth.Length())
			g.DrawPathArea(geometry.Circle(outer).Translated(center), graphics)
		} else {
			g.DrawPathOutline(geometry.Circle(c.Diameter).Translated(center), layerWidth(c.LineWidth, cl), graphics)
		}
	}

	text := textObject(l, component)
	for _, st := range d.StrokeTexts {
		if st.Layer != l {
			continue
		}
		for _, path := range st.Paths() {
			g.DrawPathOutline(path, layerWidth(st.StrokeWidth, l), text)
		}
	}

	if l.IsStopMask() {
		for _, h := range sortedHoles(d.Holes) {
			drawHoleOpening(g, h, b.HoleStopMaskOffset(h), t)
		}
	}
	return nil
}

func (e *BoardExporter) padSignal(d *board.Device, p *board.Pad) string {
	if p.Signal == nil || e.board.Circuit == nil {
		return ""
	}
	if cmp := e.board.Circuit.Component(d.Component); cmp != nil {
		if sig := cmp.Signal(*p.Signal); sig != nil {
			return sig.Name
		}
	}
	return ""
}

// padRotation is the rotation of a mirror symmetric pad shape on the board.
func padRotation(t geometry.Transform) geometry.Angle {
	if t.Mirrored {
		return -t.Rotation
	}
	return t.Rotation
}

func (e *BoardExporter) drawPad(g *gerber.Generator, d *board.Device, p *board.Pad, l *board.Layer, component string) error {
	b := e.board
	geoms := b.PadGeometries(d, p, l)
	if len(geoms) == 0 {
		return nil
	}
	obj := gerber.Object{Component: component}
	if l.IsCopper() {
		obj.Function = gerber.FunctionSmdPadCopperDefined
		if p.IsTHT() {
			obj.Function = gerber.FunctionComponentPad
		}
		obj.Net = gerber.Net(e.netName(b.NetName(b.PadNet(d, p))))
		obj.Pin = p.Name
		obj.Signal = e.padSignal(d, p)
	}
	t := d.PadTransform(p)
	pos := t.Position
	rot := padRotation(t)

	flashOutlines := func(geo board.PadGeometry) error {
		for _, outline := range geo.ToOutlines() {
			path := t.MapPath(outline.FlattenedArcs(geometry.PadOutlineTolerance)).Translated(pos.Neg())
			if err := g.FlashOutline(pos, path, 0, obj); err != nil {
				return fmt.Errorf("failed to flash pad %s of %s: %w", p.Name, component, err)
			}
		}
		return nil
	}

	for _, geo := range geoms {
		switch geo.Shape {
		case board.GeometryRoundedRect:
			if geo.Width > 0 && geo.Height > 0 {
				r := geometry.UnsignedLength(geometry.MaxOf(geo.CornerRadius, 0))
				g.FlashRect(pos, geometry.PositiveLength(geo.Width), geometry.PositiveLength(geo.Height), r, rot, obj)
			}
		case board.GeometryRoundedOctagon:
			if geo.Width > 0 && geo.Height > 0 {
				r := geometry.UnsignedLength(geometry.MaxOf(geo.CornerRadius, 0))
				g.FlashOctagon(pos, geometry.PositiveLength(geo.Width), geometry.PositiveLength(geo.Height), r, rot, obj)
			}
		case board.GeometryStroke:
			if geo.Width <= 0 || len(geo.Path) == 0 {
				continue
			}
			path := t.MapPath(geo.Path)
			switch {
			case len(path) == 1:
				g.FlashCircle(path[0].Pos, geometry.PositiveLength(geo.Width), obj)
			case len(path) == 2 && path[0].Angle == 0:
				p0, p1 := path[0].Pos, path[1].Pos
				delta := p1.Sub(p0)
				center := p0.Add(p1).Div(2)
				h := geometry.PositiveLength(geo.Width)
				w := geometry.PositiveLength(geo.Width + delta.Length())
				angle := geometry.FromRad(math.Atan2(float64(delta.Y), float64(delta.X)))
				g.FlashObround(center, w, h, angle, obj)
			default:
				if err := flashOutlines(geo); err != nil {
					return err
				}
			}
		default:
			if err := flashOutlines(geo); err != nil {
				return err
			}
		}
	}
	return nil
}

// ExportComponentLayer writes the component layer of one board side: the
// board profile plus center, attributes, closed outlines and pins of every
// mountable device on that side.
func (e *BoardExporter) ExportComponentLayer(side board.ComponentSide, path string) error {
	b := e.board
	g := e.newGerber()
	bodyLayer, courtyardLayer := board.TopDocumentation, board.TopCourtyard
	if side == board.SideTop {
		g.SetFileFunctionComponent(1, gerber.Top)
	} else {
		g.SetFileFunctionComponent(b.InnerLayerCount+2, gerber.Bottom)
		bodyLayer, courtyardLayer = board.BotDocumentation, board.BotCourtyard
	}

	for _, p := range b.Polygons {
		if p.Layer == board.BoardOutlines {
			g.DrawPathOutline(p.Path, layerWidth(p.LineWidth, p.Layer), gerber.Object{Function: gerber.FunctionProfile})
		}
	}

	for _, d := range b.Devices {
		if d.Mirrored != (side == board.SideBottom) {
			continue
		}
		var mount gerber.MountType
		switch d.ResolvedAssembly() {
		case board.AssemblyNone:
			continue
		case board.AssemblyTHT, board.AssemblyMixed:
			mount = gerber.MountTHT
		case board.AssemblySMT:
			mount = gerber.MountSMD
		default:
			mount = gerber.MountOther
		}
		c := e.component(d, mount)
		g.FlashComponent(d.Position, c)

		t := d.Transform()
		for _, p := range sortedPolygons(d.Polygons) {
			if !p.Path.IsClosed() || p.Filled {
				continue
			}
			var fn gerber.ApertureFunction
			switch board.MapLayer(p.Layer, d.Mirrored) {
			case bodyLayer:
				fn = gerber.FunctionComponentOutlineBody
			case courtyardLayer:
				fn = gerber.FunctionComponentOutlineCourtyard
			default:
				continue
			}
			g.DrawComponentOutline(t.MapPath(p.Path), c, fn)
		}

		for _, p := range d.Pads {
			g.FlashComponentPin(d.PadPosition(p), c, p.Name, e.padSignal(d, p), p.Name == "1")
		}
	}

	if err := e.save(g, path); err != nil {
		return fmt.Errorf("failed to export component layer of %q: %w", b.Name, err)
	}
	return nil
}

func (e *BoardExporter) component(d *board.Device, mount gerber.MountType) gerber.Component {
	b := e.board
	lookup := deviceLookup(b, d)
	rot := d.Rotation
	if d.Mirrored {
		rot = -rot
	}
	value := ""
	if b.Circuit != nil {
		if cmp := b.Circuit.Component(d.Component); cmp != nil {
			value = strings.TrimSpace(cmp.Value)
		}
	}
	return gerber.Component{
		Designator:   b.ComponentName(d),
		Value:        value,
		Manufacturer: strings.TrimSpace(Substitute("{{MANUFACTURER}}", lookup, nil)),
		MPN:          strings.TrimSpace(Substitute("{{MPN or PARTNUMBER or DEVICE}}", lookup, nil)),
		Footprint:    d.PackageName,
		Mount:        mount,
		Rotation:     rot,
	}
}
