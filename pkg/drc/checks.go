package drc

import (
	"slices"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/clipping"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

func positive(l geometry.Length) geometry.PositiveLength {
	return geometry.PositiveLength(geometry.MaxOf(l, 1))
}

// intersection returns the overlap of two areas as flat paths.
func intersection(a, b clipping.Paths) ([]geometry.Path, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, nil
	}
	tree, err := clipping.IntersectTree(a, b, clipping.NonZero, clipping.NonZero)
	if err != nil {
		return nil, err
	}
	return clipping.ToPaths(clipping.FlattenTree(tree)), nil
}

func strokes(path geometry.Path, width geometry.PositiveLength) []geometry.Path {
	return path.ToOutlineStrokes(width)
}

func (r *run) checkMinimumCopperWidth() error {
	limit := r.settings.MinCopperWidth
	if limit == 0 {
		return nil
	}
	r.status("Check copper widths...")
	b := r.board

	textLocations := func(t *board.StrokeText) []geometry.Path {
		w := positive(geometry.MaxOf(t.StrokeWidth.Length(), geometry.Mm(0.05)))
		var locs []geometry.Path
		for _, s := range t.Paths() {
			locs = append(locs, strokes(s, w)...)
		}
		return locs
	}

	for _, t := range b.StrokeTexts {
		if b.IsCopperLayer(t.Layer) && t.StrokeWidth < limit {
			r.emit(newMinimumCopperWidth(r.textObject(nil, t), limit, textLocations(t)))
		}
	}
	for _, p := range b.Planes {
		if b.IsCopperLayer(p.Layer) && p.MinWidth < limit {
			locs := strokes(p.Outline.Closed(), geometry.MustPositive(geometry.Mm(0.2)))
			r.emit(newMinimumCopperWidth(r.planeObject(p), limit, locs))
		}
	}
	for _, d := range b.Devices {
		for _, t := range d.StrokeTexts {
			if b.IsCopperLayer(t.Layer) && t.StrokeWidth < limit {
				r.emit(newMinimumCopperWidth(r.textObject(d, t), limit, textLocations(t)))
			}
		}
	}
	for _, seg := range b.NetSegments {
		for _, t := range seg.Traces {
			if !b.IsCopperLayer(t.Layer) || t.Width.Length() >= limit.Length() {
				continue
			}
			var locs []geometry.Path
			if p1, p2, ok := b.TraceEnds(seg, t); ok {
				locs = append(locs, geometry.ObroundLine(p1, p2, t.Width))
			}
			r.emit(newMinimumCopperWidth(r.traceObject(seg, t), limit, locs))
		}
	}
	return nil
}

// copperItem is one copper object with the area it covers. A nil layer
// means all copper layers.
type copperItem struct {
	obj   Object
	layer *board.Layer
	net   *uuid.UUID
	area  clipping.Paths
}

// copperItems collects all copper objects of the board. Every area is grown
// by offset; planes are left out in quick mode.
func (r *run) copperItems(offset geometry.Length) ([]copperItem, error) {
	b := r.board
	var items []copperItem
	add := func(obj Object, l *board.Layer, net *uuid.UUID, grow bool, fill func(g *board.PathGenerator)) error {
		g := board.NewPathGenerator(b)
		fill(g)
		area, err := g.Paths()
		if err != nil {
			return err
		}
		if grow && offset != 0 && len(area) > 0 {
			if area, err = clipping.Offset(area, offset, tolerance); err != nil {
				return err
			}
		}
		items = append(items, copperItem{obj: obj, layer: l, net: net, area: area})
		return nil
	}

	for _, seg := range b.NetSegments {
		for _, v := range seg.Vias {
			err := add(r.viaObject(seg, v), nil, seg.Net, false, func(g *board.PathGenerator) {
				g.AddVia(v, offset)
			})
			if err != nil {
				return nil, err
			}
		}
		for _, t := range seg.Traces {
			if !b.IsCopperLayer(t.Layer) {
				continue
			}
			err := add(r.traceObject(seg, t), t.Layer, seg.Net, false, func(g *board.PathGenerator) {
				g.AddTrace(seg, t, offset)
			})
			if err != nil {
				return nil, err
			}
		}
	}

	if !r.quick {
		for _, p := range b.Planes {
			if !b.IsCopperLayer(p.Layer) {
				continue
			}
			net := p.Net
			if err := add(r.planeObject(p), p.Layer, &net, true, func(g *board.PathGenerator) {
				g.AddPlane(p)
			}); err != nil {
				return nil, err
			}
		}
	}

	for _, p := range b.Polygons {
		if !b.IsCopperLayer(p.Layer) {
			continue
		}
		if err := add(r.polygonObject(nil, p), p.Layer, nil, true, func(g *board.PathGenerator) {
			g.AddPolygon(p.Path, p.LineWidth, p.Filled, 0)
		}); err != nil {
			return nil, err
		}
	}
	for _, t := range b.StrokeTexts {
		if !b.IsCopperLayer(t.Layer) {
			continue
		}
		if err := add(r.textObject(nil, t), t.Layer, nil, false, func(g *board.PathGenerator) {
			g.AddStrokeText(t, offset)
		}); err != nil {
			return nil, err
		}
	}

	for _, d := range b.Devices {
		tr := d.Transform()
		for _, p := range d.Pads {
			for _, l := range b.CopperLayers() {
				if !b.PadIsOnLayer(d, p, l) {
					continue
				}
				if err := add(r.padObject(d, p, l), l, b.PadNet(d, p), false, func(g *board.PathGenerator) {
					g.AddPad(d, p, l, offset)
				}); err != nil {
					return nil, err
				}
			}
		}
		for _, p := range d.Polygons {
			l := board.MapLayer(p.Layer, d.Mirrored)
			if !b.IsCopperLayer(l) {
				continue
			}
			if err := add(r.polygonObject(d, p), l, nil, true, func(g *board.PathGenerator) {
				g.AddPolygon(tr.MapPath(p.Path), p.LineWidth, p.Filled, 0)
			}); err != nil {
				return nil, err
			}
		}
		for _, c := range d.Circles {
			l := board.MapLayer(c.Layer, d.Mirrored)
			if !b.IsCopperLayer(l) {
				continue
			}
			if err := add(r.circleObject(d, c), l, nil, false, func(g *board.PathGenerator) {
				g.AddCircle(c, tr, offset)
			}); err != nil {
				return nil, err
			}
		}
		for _, t := range d.StrokeTexts {
			if !b.IsCopperLayer(t.Layer) {
				continue
			}
			if err := add(r.textObject(d, t), t.Layer, nil, false, func(g *board.PathGenerator) {
				g.AddStrokeText(t, offset)
			}); err != nil {
				return nil, err
			}
		}
	}
	return items, nil
}

// mayShort reports whether two copper items must keep their clearance:
// they belong to different nets (or at least one has none) and share a
// layer.
func mayShort(a, b *copperItem) bool {
	if a.net != nil && b.net != nil && *a.net == *b.net {
		return false
	}
	return a.layer == nil || b.layer == nil || a.layer == b.layer
}

func (r *run) checkCopperCopperClearances() error {
	clr := r.settings.MinCopperCopperClearance
	if clr == 0 {
		return nil
	}
	r.status("Check copper clearances...")

	// Both sides grow by half the clearance, minus the arc tolerance.
	offset := geometry.MaxOf((clr.Length()-tolerance.Length())/2-1, 0)
	items, err := r.copperItems(offset)
	if err != nil {
		return err
	}
	for i := range items {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		for j := i + 1; j < len(items); j++ {
			a, b := &items[i], &items[j]
			if !mayShort(a, b) {
				continue
			}
			locs, err := intersection(a.area, b.area)
			if err != nil {
				return err
			}
			if len(locs) > 0 {
				r.emit(newCopperCopperClearance(a.obj, b.obj, clr, locs))
			}
		}
	}
	return nil
}

// outlineRestrictedArea returns the band along the board outline which
// items must keep clear of.
func (r *run) outlineRestrictedArea(clr geometry.UnsignedLength) (clipping.Paths, error) {
	w := positive(2*clr.Length() - tolerance.Length() - 1)
	var paths clipping.Paths
	for _, o := range r.board.BoardOutlinePaths() {
		paths = append(paths, clipping.FromPaths(strokes(o, w), tolerance)...)
	}
	if len(paths) == 0 {
		return nil, nil
	}
	return clipping.Unite(paths, nil, clipping.NonZero, clipping.NonZero)
}

func (r *run) checkCopperBoardClearances() error {
	clr := r.settings.MinCopperBoardClearance
	if clr == 0 {
		return nil
	}
	r.status("Check board clearances...")

	restricted, err := r.outlineRestrictedArea(clr)
	if err != nil {
		return err
	}
	items, err := r.copperItems(0)
	if err != nil {
		return err
	}
	for _, it := range items {
		locs, err := intersection(restricted, it.area)
		if err != nil {
			return err
		}
		if len(locs) > 0 {
			r.emit(newCopperBoardClearance(it.obj, clr, locs))
		}
	}
	return nil
}

func (r *run) checkCopperHoleClearances() error {
	clr := r.settings.MinCopperNpthClearance
	if clr == 0 {
		return nil
	}
	r.status("Check hole clearances...")
	b := r.board

	var copper clipping.Paths
	for _, l := range b.CopperLayers() {
		paths, err := r.cache.Get(l, nil)
		if err != nil {
			return err
		}
		copper = append(copper, paths...)
	}
	offset := clr.Length() - tolerance.Length() - 1
	check := func(obj Object, d board.Drill, t geometry.Transform) error {
		g := board.NewPathGenerator(b)
		g.AddHole(d, t, offset)
		area, err := g.Paths()
		if err != nil {
			return err
		}
		locs, err := intersection(copper, area)
		if err != nil {
			return err
		}
		if len(locs) > 0 {
			r.emit(newCopperHoleClearance(obj, clr, locs))
		}
		return nil
	}

	for _, h := range b.Holes {
		if err := check(r.holeObject(nil, h), h.Drill, geometry.Transform{}); err != nil {
			return err
		}
	}
	for _, d := range b.Devices {
		for _, h := range d.Holes {
			if err := check(r.holeObject(d, h), h.Drill, d.Transform()); err != nil {
				return err
			}
		}
	}
	return nil
}

// drill is a hole of any kind in board coordinates.
type drill struct {
	obj      Object
	path     geometry.Path
	diameter geometry.PositiveLength
}

func (r *run) drills() []drill {
	b := r.board
	var out []drill
	for _, seg := range b.NetSegments {
		for _, v := range seg.Vias {
			out = append(out, drill{r.viaObject(seg, v), geometry.NewPath(v.Position), v.Drill})
		}
	}
	for _, h := range b.Holes {
		out = append(out, drill{r.holeObject(nil, h), h.Path, h.Diameter})
	}
	for _, d := range b.Devices {
		for _, p := range d.Pads {
			t := d.PadTransform(p)
			for _, h := range p.Holes {
				out = append(out, drill{r.padHoleObject(d, p, h), t.MapPath(h.Path), h.Diameter})
			}
		}
		t := d.Transform()
		for _, h := range d.Holes {
			out = append(out, drill{r.holeObject(d, h), t.MapPath(h.Path), h.Diameter})
		}
	}
	return out
}

func (r *run) checkDrillDrillClearances() error {
	clr := r.settings.MinDrillDrillClearance
	if clr == 0 {
		return nil
	}
	r.status("Check drill clearances...")

	expansion := geometry.MaxOf(clr.Length()-tolerance.Length()-1, 0)
	drills := r.drills()
	areas := make([]clipping.Paths, len(drills))
	for i, d := range drills {
		w := geometry.PositiveLength(d.diameter.Length() + expansion)
		areas[i] = clipping.FromPaths(strokes(d.path, w), tolerance)
	}
	for i := range drills {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		for j := i + 1; j < len(drills); j++ {
			locs, err := intersection(areas[i], areas[j])
			if err != nil {
				return err
			}
			if len(locs) > 0 {
				r.emit(newDrillDrillClearance(drills[i].obj, drills[j].obj, clr, locs))
			}
		}
	}
	return nil
}

func (r *run) checkDrillBoardClearances() error {
	clr := r.settings.MinDrillBoardClearance
	if clr == 0 {
		return nil
	}
	r.status("Check drill board clearances...")

	restricted, err := r.outlineRestrictedArea(clr)
	if err != nil {
		return err
	}
	for _, d := range r.drills() {
		locs, err := intersection(restricted, clipping.FromPaths(strokes(d.path, d.diameter), tolerance))
		if err != nil {
			return err
		}
		if len(locs) > 0 {
			r.emit(newDrillBoardClearance(d.obj, clr, locs))
		}
	}
	return nil
}

func (r *run) checkMinimumPthAnnularRing() error {
	ring := r.settings.MinPthAnnularRing
	if ring == 0 {
		return nil
	}
	r.status("Check annular rings...")
	b := r.board

	// Only copper present on every layer counts towards the ring.
	var sets []clipping.Paths
	for _, l := range b.CopperLayers() {
		paths, err := r.cache.Get(l, nil)
		if err != nil {
			return err
		}
		sets = append(sets, paths)
	}
	copper, err := clipping.IntersectAll(sets, clipping.NonZero)
	if err != nil {
		return err
	}
	uncovered := func(area clipping.Paths) ([]geometry.Path, error) {
		tree, err := clipping.SubtractTree(area, copper, clipping.NonZero, clipping.NonZero)
		if err != nil {
			return nil, err
		}
		return clipping.ToPaths(clipping.FlattenTree(tree)), nil
	}

	for _, seg := range b.NetSegments {
		for _, v := range seg.Vias {
			d := v.Drill.Length() + 2*ring.Length() - 1
			if d <= 0 {
				continue
			}
			area := clipping.Paths{clipping.FromPath(geometry.Circle(geometry.PositiveLength(d)).Translated(v.Position), tolerance)}
			locs, err := uncovered(area)
			if err != nil {
				return err
			}
			if len(locs) > 0 {
				r.emit(newMinimumAnnularRing(r.viaObject(seg, v), ring, locs))
			}
		}
	}
	for _, d := range b.Devices {
		for _, p := range d.Pads {
			if !p.IsTHT() {
				continue
			}
			t := d.PadTransform(p)
			var area clipping.Paths
			for _, h := range p.Holes {
				w := positive(h.Diameter.Length() + 2*ring.Length() - 1)
				area = append(area, clipping.FromPaths(t.MapPaths(strokes(h.Path, w)), tolerance)...)
			}
			locs, err := uncovered(area)
			if err != nil {
				return err
			}
			if len(locs) > 0 {
				r.emit(newMinimumAnnularRing(r.padObject(d, p, nil), ring, locs))
			}
		}
	}
	return nil
}

// npthDrills calls fn for every non-plated hole with its board transform.
func (r *run) npthDrills(fn func(obj Object, h *board.Hole, t geometry.Transform)) {
	for _, h := range r.board.Holes {
		fn(r.holeObject(nil, h), h, geometry.Transform{})
	}
	for _, d := range r.board.Devices {
		for _, h := range d.Holes {
			fn(r.holeObject(d, h), h, d.Transform())
		}
	}
}

func (r *run) checkMinimumNpthDrillDiameter() error {
	limit := r.settings.MinNpthDrillDiameter
	if limit == 0 {
		return nil
	}
	r.status("Check npth drill diameters...")
	r.npthDrills(func(obj Object, h *board.Hole, t geometry.Transform) {
		if !h.IsSlot() && h.Diameter.Length() < limit.Length() {
			r.emit(newMinimumDrillDiameter(obj, limit, strokes(t.MapPath(h.Path), h.Diameter)))
		}
	})
	return nil
}

func (r *run) checkMinimumNpthSlotWidth() error {
	limit := r.settings.MinNpthSlotWidth
	if limit == 0 {
		return nil
	}
	r.status("Check npth slot widths...")
	r.npthDrills(func(obj Object, h *board.Hole, t geometry.Transform) {
		if h.IsSlot() && h.Diameter.Length() < limit.Length() {
			r.emit(newMinimumSlotWidth(obj, limit, strokes(t.MapPath(h.Path), h.Diameter)))
		}
	})
	return nil
}

func (r *run) checkMinimumPthDrillDiameter() error {
	limit := r.settings.MinPthDrillDiameter
	if limit == 0 {
		return nil
	}
	r.status("Check pth drill diameters...")
	b := r.board
	for _, seg := range b.NetSegments {
		for _, v := range seg.Vias {
			if v.Drill.Length() < limit.Length() {
				locs := []geometry.Path{geometry.Circle(v.Drill).Translated(v.Position)}
				r.emit(newMinimumDrillDiameter(r.viaObject(seg, v), limit, locs))
			}
		}
	}
	for _, d := range b.Devices {
		for _, p := range d.Pads {
			for _, h := range p.Holes {
				if h.IsSlot() || h.Diameter.Length() >= limit.Length() {
					continue
				}
				dia := positive(geometry.MaxOf(h.Diameter.Length(), geometry.Mm(0.05)))
				locs := []geometry.Path{geometry.Circle(dia).Translated(d.PadPosition(p))}
				r.emit(newMinimumDrillDiameter(r.padHoleObject(d, p, h), limit, locs))
			}
		}
	}
	return nil
}

func (r *run) checkMinimumPthSlotWidth() error {
	limit := r.settings.MinPthSlotWidth
	if limit == 0 {
		return nil
	}
	r.status("Check pth slot widths...")
	for _, d := range r.board.Devices {
		for _, p := range d.Pads {
			t := d.PadTransform(p)
			for _, h := range p.Holes {
				if h.IsSlot() && h.Diameter.Length() < limit.Length() {
					locs := strokes(t.MapPath(h.Path), h.Diameter)
					r.emit(newMinimumSlotWidth(r.padHoleObject(d, p, h), limit, locs))
				}
			}
		}
	}
	return nil
}

// slotForbidden reports whether a drill exceeds what the policy allows.
func slotForbidden(d board.Drill, allowed SlotsPolicy) bool {
	switch {
	case d.IsCurvedSlot():
		return allowed < SlotsAny
	case d.IsMultiSegmentSlot():
		return allowed < SlotsMultiSegmentStraight
	case d.IsSlot():
		return allowed < SlotsSingleSegmentStraight
	}
	return false
}

func (r *run) checkAllowedNpthSlots() error {
	allowed := r.settings.AllowedNpthSlots
	if allowed == SlotsAny {
		return nil
	}
	r.status("Check for disallowed npth slots...")
	r.npthDrills(func(obj Object, h *board.Hole, t geometry.Transform) {
		if slotForbidden(h.Drill, allowed) {
			r.emit(newForbiddenSlot(obj, strokes(t.MapPath(h.Path), h.Diameter)))
		}
	})
	return nil
}

func (r *run) checkAllowedPthSlots() error {
	allowed := r.settings.AllowedPthSlots
	if allowed == SlotsAny {
		return nil
	}
	r.status("Check for disallowed pth slots...")
	for _, d := range r.board.Devices {
		for _, p := range d.Pads {
			t := d.PadTransform(p)
			for _, h := range p.Holes {
				if slotForbidden(h.Drill, allowed) {
					r.emit(newForbiddenSlot(r.padHoleObject(d, p, h), strokes(t.MapPath(h.Path), h.Diameter)))
				}
			}
		}
	}
	return nil
}

func (r *run) checkInvalidPadConnections() error {
	r.status("Check pad connections...")
	b := r.board
	for _, d := range b.Devices {
		for _, p := range d.Pads {
			var layers []*board.Layer
			for _, t := range b.PadTraces(d, p) {
				if !slices.Contains(layers, t.Layer) {
					layers = append(layers, t.Layer)
				}
			}
			slices.SortFunc(layers, func(a, b *board.Layer) int {
				switch {
				case a.Less(b):
					return -1
				case b.Less(a):
					return 1
				}
				return 0
			})
			for _, l := range layers {
				ok, err := r.originInPad(d, p, l)
				if err != nil {
					return err
				}
				if !ok {
					locs := []geometry.Path{geometry.Circle(geometry.MustPositive(geometry.Mm(0.5))).Translated(d.PadPosition(p))}
					r.emit(newInvalidPadConnection(r.padObject(d, p, nil), l, locs))
				}
			}
		}
	}
	return nil
}

// originInPad reports whether the pad origin lies in its copper on l.
func (r *run) originInPad(d *board.Device, p *board.Pad, l *board.Layer) (bool, error) {
	for _, g := range r.board.PadGeometries(d, p, l) {
		area, err := clipping.Unite(clipping.FromPaths(g.ToOutlines(), tolerance), nil, clipping.NonZero, clipping.NonZero)
		if err != nil {
			return false, err
		}
		if clipping.Contains(area, geometry.Point{}) {
			return true, nil
		}
	}
	return false, nil
}

func courtyardArea(d *board.Device, l *board.Layer) (clipping.Paths, error) {
	t := d.Transform()
	var paths clipping.Paths
	for _, p := range d.Polygons {
		if board.MapLayer(p.Layer, d.Mirrored) == l {
			paths = append(paths, clipping.FromPath(t.MapPath(p.Path), tolerance))
		}
	}
	for _, c := range d.Circles {
		if board.MapLayer(c.Layer, d.Mirrored) == l {
			paths = append(paths, clipping.FromPath(geometry.Circle(c.Diameter).Translated(t.MapPoint(c.Center)), tolerance))
		}
	}
	if len(paths) == 0 {
		return nil, nil
	}
	return clipping.Unite(paths, nil, clipping.NonZero, clipping.NonZero)
}

func (r *run) checkCourtyardClearances() error {
	r.status("Check courtyard clearances...")
	devices := r.board.Devices
	for _, l := range []*board.Layer{board.TopCourtyard, board.BotCourtyard} {
		areas := make([]clipping.Paths, len(devices))
		for i, d := range devices {
			var err error
			if areas[i], err = courtyardArea(d, l); err != nil {
				return err
			}
		}
		for i := range devices {
			for j := i + 1; j < len(devices); j++ {
				locs, err := intersection(areas[i], areas[j])
				if err != nil {
					return err
				}
				if len(locs) > 0 {
					r.emit(newCourtyardOverlap(r.deviceObject(devices[i]), r.deviceObject(devices[j]), locs))
				}
			}
		}
	}
	return nil
}

func (r *run) checkBoardOutline() error {
	r.status("Check board outline...")
	b := r.board

	var outlines []geometry.Path
	addPolygon := func(obj Object, path geometry.Path, lineWidth geometry.UnsignedLength) {
		if !path.IsClosed() {
			w := positive(geometry.MaxOf(lineWidth.Length(), geometry.Mm(0.1)))
			r.emit(newOpenBoardOutlinePolygon(obj, strokes(path, w)))
		}
		outlines = append(outlines, path)
	}
	for _, p := range b.Polygons {
		if p.Layer == board.BoardOutlines {
			addPolygon(r.polygonObject(nil, p), p.Path, p.LineWidth)
		}
	}
	for _, d := range b.Devices {
		t := d.Transform()
		for _, p := range d.Polygons {
			if p.Layer == board.BoardOutlines {
				addPolygon(r.polygonObject(d, p), t.MapPath(p.Path), p.LineWidth)
			}
		}
		for _, c := range d.Circles {
			if c.Layer == board.BoardOutlines {
				outlines = append(outlines, geometry.Circle(c.Diameter).Translated(t.MapPoint(c.Center)))
			}
		}
	}
	if len(outlines) == 0 {
		r.emit(newMissingBoardOutline())
		return nil
	}

	tree, err := clipping.UniteTree(clipping.FromPaths(outlines, tolerance), nil, clipping.EvenOdd, clipping.EvenOdd)
	if err != nil {
		return err
	}
	if flat := clipping.FlattenTree(tree); len(flat) > 1 {
		r.emit(newMultipleBoardOutlines(clipping.ToPaths(flat)))
	}

	radius := r.settings.MinOutlineToolDiameter.Length() / 2
	if radius <= 0 {
		return nil
	}
	// Closing the area with the tool radius removes every inner corner the
	// tool cannot mill; whatever was removed is a violation.
	area := clipping.TreeToPaths(tree)
	closed, err := clipping.Offset(area, geometry.MaxOf(radius-10000, 0), tolerance)
	if err != nil {
		return err
	}
	if closed, err = clipping.Offset(closed, -radius, tolerance); err != nil {
		return err
	}
	diff, err := clipping.SubtractTree(closed, area, clipping.NonZero, clipping.NonZero)
	if err != nil {
		return err
	}
	if locs := clipping.ToPaths(clipping.FlattenTree(diff)); len(locs) > 0 {
		r.emit(newMinimumBoardOutlineInnerRadius(r.settings.MinOutlineToolDiameter, locs))
	}
	return nil
}

func (r *run) checkForUnplacedComponents() error {
	r.status("Check for unplaced components...")
	b := r.board
	if b.Circuit == nil {
		return nil
	}
	for _, c := range b.Circuit.Components {
		if !c.SchematicOnly && b.Device(c.ID) == nil {
			r.emit(newMissingDevice(r.componentObject(c)))
		}
	}
	return nil
}

func (r *run) checkCircuitDefaultDevices() error {
	r.status("Check default devices...")
	b := r.board
	if b.Circuit == nil {
		return nil
	}
	for _, d := range b.Devices {
		c := b.Circuit.Component(d.Component)
		if c == nil || c.DefaultDevice == nil || *c.DefaultDevice == d.LibDevice {
			continue
		}
		r.emit(newDefaultDeviceMismatch(r.componentObject(c), deviceLocation(d)))
	}
	return nil
}

// deviceLocation outlines a device by its documentation drawings, falling
// back to its placement drawings, plus a cross at its origin. Drawings keep
// their own line width and fill.
func deviceLocation(d *board.Device) []geometry.Path {
	t := d.Transform()
	var locs []geometry.Path
	add := func(path geometry.Path, lineWidth geometry.UnsignedLength, fill bool) {
		path = t.MapPath(path)
		if lineWidth > 0 {
			locs = append(locs, path.ToOutlineStrokes(geometry.PositiveLength(lineWidth))...)
		}
		if fill && path.IsClosed() {
			locs = append(locs, path)
		}
	}
	addDrawings := func(l *board.Layer) {
		for _, p := range d.Polygons {
			if p.Layer == l {
				add(p.Path, p.LineWidth, p.Filled)
			}
		}
		for _, c := range d.Circles {
			if c.Layer == l {
				add(geometry.Circle(c.Diameter).Translated(c.Center), c.LineWidth, c.Filled)
			}
		}
	}
	addDrawings(board.TopDocumentation)
	addDrawings(board.BotDocumentation)
	if len(locs) == 0 {
		addDrawings(board.TopPlacement)
		addDrawings(board.BotPlacement)
	}

	w := geometry.MustPositive(geometry.Mm(0.05))
	half := geometry.Mm(0.5)
	line := geometry.ObroundLine(geometry.Pt(-half, 0), geometry.Pt(half, 0), w)
	locs = append(locs,
		line.Translated(d.Position),
		line.Rotated(geometry.Deg90, geometry.Point{}).Translated(d.Position),
	)
	return locs
}

func (r *run) checkForMissingConnections() error {
	r.status("Check for missing connections...")
	b := r.board
	for _, w := range b.AirWires() {
		net := Object{Ref: ObjectRef{Kind: KindNet, ID: w.Net}, Name: b.NetName(&w.Net)}
		locs := []geometry.Path{geometry.ObroundLine(w.P1.Position, w.P2.Position, geometry.MustPositive(geometry.Mm(0.05)))}
		r.emit(newMissingConnection(net, r.anchorObject(w.P1), r.anchorObject(w.P2), locs))
	}
	return nil
}

func (r *run) checkForStaleObjects() error {
	r.status("Check for stale objects...")
	for _, seg := range r.board.NetSegments {
		segObj := Object{Ref: ObjectRef{Kind: KindNetSegment, ID: seg.ID}, Name: r.netLabel(seg.Net)}
		if seg.IsEmpty() {
			r.emit(newEmptyNetSegment(segObj))
			continue
		}
		for _, j := range seg.Junctions {
			if len(seg.JunctionTraces(j.ID)) > 0 {
				continue
			}
			obj := Object{
				Ref:  ObjectRef{Kind: KindJunction, ID: j.ID, Parent: &segObj.Ref},
				Name: segObj.Name,
			}
			locs := []geometry.Path{geometry.Circle(geometry.MustPositive(geometry.Mm(0.3))).Translated(j.Position)}
			r.emit(newUnconnectedJunction(obj, locs))
		}
	}
	return nil
}
