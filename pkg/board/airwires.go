package board

import (
	"cmp"
	"slices"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/clipping"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// AirWireEnd is one end of a missing connection. Segment is set for via and
// junction anchors.
type AirWireEnd struct {
	Anchor   Anchor
	Segment  uuid.UUID
	Position geometry.Point
}

// AirWire is a missing connection between two items of a net.
type AirWire struct {
	Net uuid.UUID
	P1  AirWireEnd
	P2  AirWireEnd
}

type airPoint struct {
	end   AirWireEnd
	layer *Layer // nil: on all copper layers
}

// unionFind tracks connected clusters of air wire points.
type unionFind []int

func newUnionFind(n int) unionFind {
	u := make(unionFind, n)
	for i := range u {
		u[i] = i
	}
	return u
}

func (u unionFind) find(i int) int {
	for u[i] != i {
		u[i] = u[u[i]]
		i = u[i]
	}
	return i
}

func (u unionFind) union(i, j int) bool {
	ri, rj := u.find(i), u.find(j)
	if ri == rj {
		return false
	}
	if ri < rj {
		u[rj] = ri
	} else {
		u[ri] = rj
	}
	return true
}

// AirWires returns the missing connections of every net, ordered by net and
// then by length. Plane fragments must be up to date.
func (b *Board) AirWires() []AirWire {
	var out []AirWire
	if b.Circuit == nil {
		return nil
	}
	for _, net := range b.Circuit.Nets {
		out = append(out, b.NetAirWires(net.ID)...)
	}
	return out
}

// NetAirWires returns the missing connections of one net: items joined by
// traces or lying in the same plane fragment form clusters, and the shortest
// lines joining all clusters are returned.
func (b *Board) NetAirWires(net uuid.UUID) []AirWire {
	var points []airPoint
	index := map[Anchor]int{}
	add := func(a Anchor, seg uuid.UUID, pos geometry.Point, l *Layer) {
		index[a] = len(points)
		points = append(points, airPoint{end: AirWireEnd{Anchor: a, Segment: seg, Position: pos}, layer: l})
	}

	for _, d := range b.Devices {
		for _, p := range d.Pads {
			n := b.PadNet(d, p)
			if n == nil || *n != net {
				continue
			}
			var l *Layer
			if !p.IsTHT() {
				l = MapLayer(p.copperLayer(), d.Mirrored)
			}
			add(PadAnchor(d.Component, p.ID), uuid.Nil, d.PadPosition(p), l)
		}
	}

	var segments []*NetSegment
	for _, seg := range b.NetSegments {
		if seg.Net == nil || *seg.Net != net {
			continue
		}
		segments = append(segments, seg)
		for _, v := range seg.Vias {
			add(ViaAnchor(v.ID), seg.ID, v.Position, nil)
		}
		for _, j := range seg.Junctions {
			if traces := seg.JunctionTraces(j.ID); len(traces) > 0 {
				add(JunctionAnchor(j.ID), seg.ID, j.Position, traces[0].Layer)
			}
		}
	}
	if len(points) < 2 {
		return nil
	}

	u := newUnionFind(len(points))
	for _, seg := range segments {
		for _, t := range seg.Traces {
			i, ok1 := index[t.Start]
			j, ok2 := index[t.End]
			if ok1 && ok2 {
				u.union(i, j)
			}
		}
	}
	for _, p := range b.Planes {
		if p.Net != net {
			continue
		}
		for _, frag := range p.Fragments {
			area := clipping.Paths{clipping.FromPath(frag, geometry.MaxArcTolerance)}
			last := -1
			for i, pt := range points {
				if pt.layer != nil && pt.layer != p.Layer {
					continue
				}
				if !clipping.Contains(area, pt.end.Position) {
					continue
				}
				if last >= 0 {
					u.union(last, i)
				}
				last = i
			}
		}
	}

	type edge struct {
		i, j int
		dist float64
	}
	var edges []edge
	for i := range points {
		for j := i + 1; j < len(points); j++ {
			if u.find(i) == u.find(j) {
				continue
			}
			d := points[j].end.Position.Sub(points[i].end.Position)
			edges = append(edges, edge{i, j, float64(d.X)*float64(d.X) + float64(d.Y)*float64(d.Y)})
		}
	}
	slices.SortStableFunc(edges, func(x, y edge) int { return cmp.Compare(x.dist, y.dist) })

	var wires []AirWire
	for _, e := range edges {
		if u.union(e.i, e.j) {
			wires = append(wires, AirWire{Net: net, P1: points[e.i].end, P2: points[e.j].end})
		}
	}
	return wires
}
