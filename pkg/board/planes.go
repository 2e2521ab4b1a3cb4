package board

import (
	"bytes"
	"cmp"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/internal/logging"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/clipping"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// comparePlanes orders planes by priority. Planes of equal priority are
// ordered by uuid so the larger uuid wins regardless of load order.
func comparePlanes(x, y *Plane) int {
	if c := cmp.Compare(x.Priority, y.Priority); c != 0 {
		return c
	}
	return bytes.Compare(x.ID[:], y.ID[:])
}

// RebuildPlanes recomputes the fragments of all planes, highest priority
// first so that lower priority planes see the final fragments of the planes
// they have to keep clear of.
func (b *Board) RebuildPlanes() error {
	planes := slices.Clone(b.Planes)
	slices.SortFunc(planes, func(x, y *Plane) int { return comparePlanes(y, x) })
	for _, p := range planes {
		fragments, err := b.planeFragments(p)
		if err != nil {
			p.Fragments = nil
			return fmt.Errorf("failed to build fragments of plane %s: %w", p.ID, err)
		}
		p.Fragments = fragments
		logging.Logger().Debug("rebuilt plane", "plane", p.ID, "net", b.NetName(&p.Net), "fragments", len(fragments))
	}
	return nil
}

// BoardOutlinePaths returns the board outline polygons of the board and its
// devices in board coordinates.
func (b *Board) BoardOutlinePaths() []geometry.Path {
	var out []geometry.Path
	for _, p := range b.Polygons {
		if p.Layer == BoardOutlines {
			out = append(out, p.Path)
		}
	}
	for _, d := range b.Devices {
		t := d.Transform()
		for _, p := range d.Polygons {
			if p.Layer == BoardOutlines {
				out = append(out, t.MapPath(p.Path))
			}
		}
	}
	return out
}

type fragmentsBuilder struct {
	board     *Board
	plane     *Plane
	clearance geometry.Length
	cutouts   clipping.Paths
	connected clipping.Paths
}

func (b *Board) planeFragments(p *Plane) ([]geometry.Path, error) {
	fb := &fragmentsBuilder{board: b, plane: p, clearance: p.MinClearance.Length()}
	result := clipping.Paths{clipping.FromPath(p.Outline.Closed(), geometry.MaxArcTolerance)}

	result, err := fb.clipToBoard(result)
	if err != nil {
		return nil, err
	}
	if err := fb.collectCutouts(); err != nil {
		return nil, err
	}
	if result, err = clipping.Subtract(result, fb.cutouts, clipping.EvenOdd, clipping.NonZero); err != nil {
		return nil, err
	}

	if half := p.MinWidth.Length() / 2; half > 0 {
		if result, err = clipping.Offset(result, -half, geometry.MaxArcTolerance); err != nil {
			return nil, err
		}
		if result, err = clipping.Offset(result, half, geometry.MaxArcTolerance); err != nil {
			return nil, err
		}
	}

	tree, err := clipping.XorTree(result, nil, clipping.EvenOdd, clipping.EvenOdd)
	if err != nil {
		return nil, err
	}
	result = clipping.FlattenTree(tree)

	if !p.KeepOrphans {
		kept := result[:0]
		for _, frag := range result {
			common, err := clipping.Intersect(fb.connected, clipping.Paths{frag}, clipping.NonZero, clipping.NonZero)
			if err != nil {
				return nil, err
			}
			if len(common) > 0 {
				kept = append(kept, frag)
			}
		}
		result = kept
	}
	return clipping.ToPaths(result), nil
}

// clipToBoard intersects the plane with the board area shrunk by the
// clearance. Without a board outline the plane is left unclipped.
func (fb *fragmentsBuilder) clipToBoard(result clipping.Paths) (clipping.Paths, error) {
	outlines := clipping.FromPaths(fb.board.BoardOutlinePaths(), geometry.MaxArcTolerance)
	area, err := clipping.Xor(outlines, nil, clipping.EvenOdd, clipping.EvenOdd)
	if err != nil {
		return nil, err
	}
	if area, err = clipping.Offset(area, -fb.clearance, geometry.MaxArcTolerance); err != nil {
		return nil, err
	}
	if len(area) == 0 {
		return result, nil
	}
	return clipping.Intersect(result, area, clipping.NonZero, clipping.NonZero)
}

func (fb *fragmentsBuilder) sameNet(net *uuid.UUID) bool {
	return net != nil && *net == fb.plane.Net
}

func (fb *fragmentsBuilder) cut(paths ...geometry.Path) {
	fb.cutouts = append(fb.cutouts, clipping.FromPaths(paths, geometry.MaxArcTolerance)...)
}

func (fb *fragmentsBuilder) connect(paths ...geometry.Path) {
	fb.connected = append(fb.connected, clipping.FromPaths(paths, geometry.MaxArcTolerance)...)
}

func (fb *fragmentsBuilder) cutHole(d Drill, t geometry.Transform) {
	w := geometry.PositiveLength(d.Diameter.Length() + 2*fb.clearance)
	fb.cut(t.MapPath(d.Path).ToOutlineStrokes(w)...)
}

func (fb *fragmentsBuilder) collectCutouts() error {
	b, p := fb.board, fb.plane

	for _, other := range b.Planes {
		if other == p || comparePlanes(other, p) < 0 || other.Layer != p.Layer || other.Net == p.Net {
			continue
		}
		grown, err := clipping.Offset(clipping.FromPaths(other.Fragments, geometry.MaxArcTolerance), fb.clearance, geometry.MaxArcTolerance)
		if err != nil {
			return err
		}
		fb.cutouts = append(fb.cutouts, grown...)
	}

	for _, d := range b.Devices {
		dt := d.Transform()
		for _, h := range d.Holes {
			fb.cutHole(h.Drill, dt)
		}
		for _, pad := range d.Pads {
			if !b.PadIsOnLayer(d, pad, p.Layer) {
				continue
			}
			pt := d.PadTransform(pad)
			same := fb.sameNet(b.PadNet(d, pad))
			geos := b.PadGeometries(d, pad, p.Layer)
			if same {
				for _, g := range geos {
					fb.connect(pt.MapPaths(g.ToOutlines())...)
				}
			}
			if same && p.ConnectStyle != ConnectNone {
				continue
			}
			for _, g := range geos {
				grown, err := g.WithOffset(fb.clearance)
				if err != nil {
					return fmt.Errorf("failed to cut pad %s: %w", pad.ID, err)
				}
				fb.cut(pt.MapPaths(grown.ToOutlines())...)
				for _, h := range g.Holes {
					fb.cutHole(h.Drill, pt)
				}
			}
		}
	}

	for _, h := range b.Holes {
		fb.cutHole(h.Drill, geometry.Transform{})
	}

	for _, seg := range b.NetSegments {
		same := fb.sameNet(seg.Net)
		// Vias always connect solid.
		for _, v := range seg.Vias {
			if same {
				fb.connect(v.Outline(0))
			} else {
				fb.cut(v.Outline(fb.clearance))
			}
		}
		for _, t := range seg.Traces {
			if t.Layer != p.Layer {
				continue
			}
			p1, p2, ok := b.TraceEnds(seg, t)
			if !ok {
				continue
			}
			if same {
				fb.connect(geometry.ObroundLine(p1, p2, t.Width))
			} else {
				w := geometry.PositiveLength(t.Width.Length() + 2*fb.clearance)
				fb.cut(geometry.ObroundLine(p1, p2, w))
			}
		}
	}
	return nil
}
