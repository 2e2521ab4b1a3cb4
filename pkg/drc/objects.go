package drc

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
)

func (r *run) netLabel(net *uuid.UUID) string {
	if name := r.board.NetName(net); name != "" {
		return "'" + name + "'"
	}
	return "no net"
}

func deviceRef(d *board.Device) *ObjectRef {
	return &ObjectRef{Kind: KindDevice, ID: d.Component}
}

func (r *run) deviceObject(d *board.Device) Object {
	return Object{Ref: *deviceRef(d), Name: fmt.Sprintf("device '%s'", r.board.ComponentName(d))}
}

func (r *run) componentObject(c *board.Component) Object {
	return Object{Ref: ObjectRef{Kind: KindComponent, ID: c.ID}, Name: c.Name}
}

func (r *run) traceObject(seg *board.NetSegment, t *board.Trace) Object {
	return Object{
		Ref:  ObjectRef{Kind: KindTrace, ID: t.ID},
		Name: fmt.Sprintf("trace in %s", r.netLabel(seg.Net)),
	}
}

func (r *run) viaObject(seg *board.NetSegment, v *board.Via) Object {
	return Object{
		Ref:  ObjectRef{Kind: KindVia, ID: v.ID},
		Name: fmt.Sprintf("via in %s", r.netLabel(seg.Net)),
	}
}

func (r *run) planeObject(p *board.Plane) Object {
	return Object{
		Ref:  ObjectRef{Kind: KindPlane, ID: p.ID},
		Name: fmt.Sprintf("plane of %s", r.netLabel(&p.Net)),
	}
}

func (r *run) polygonObject(d *board.Device, p *board.Polygon) Object {
	o := Object{Ref: ObjectRef{Kind: KindPolygon, ID: p.ID}, Name: "polygon"}
	if d != nil {
		o.Ref.Parent = deviceRef(d)
		o.Name = fmt.Sprintf("polygon of '%s'", r.board.ComponentName(d))
	}
	return o
}

func (r *run) circleObject(d *board.Device, c *board.Circle) Object {
	return Object{
		Ref:  ObjectRef{Kind: KindCircle, ID: c.ID, Parent: deviceRef(d)},
		Name: fmt.Sprintf("circle of '%s'", r.board.ComponentName(d)),
	}
}

func (r *run) textObject(d *board.Device, t *board.StrokeText) Object {
	o := Object{Ref: ObjectRef{Kind: KindStrokeText, ID: t.ID}, Name: fmt.Sprintf("text '%s'", t.Text)}
	if d != nil {
		o.Ref.Parent = deviceRef(d)
		o.Name = fmt.Sprintf("text '%s' of '%s'", t.Text, r.board.ComponentName(d))
	}
	return o
}

func (r *run) padObject(d *board.Device, p *board.Pad, l *board.Layer) Object {
	return Object{
		Ref:  ObjectRef{Kind: KindPad, ID: p.ID, Parent: deviceRef(d), Layer: l},
		Name: fmt.Sprintf("pad '%s:%s'", r.board.ComponentName(d), p.Name),
	}
}

func (r *run) padHoleObject(d *board.Device, p *board.Pad, h board.PadHole) Object {
	pad := r.padObject(d, p, nil)
	return Object{
		Ref:  ObjectRef{Kind: KindHole, ID: h.ID, Parent: &pad.Ref},
		Name: "hole of " + pad.Name,
	}
}

func (r *run) holeObject(d *board.Device, h *board.Hole) Object {
	o := Object{Ref: ObjectRef{Kind: KindHole, ID: h.ID}, Name: "non-plated hole"}
	if d != nil {
		o.Ref.Parent = deviceRef(d)
		o.Name = fmt.Sprintf("non-plated hole of '%s'", r.board.ComponentName(d))
	}
	return o
}

func (r *run) anchorObject(end board.AirWireEnd) Object {
	a := end.Anchor
	switch a.Kind {
	case board.AnchorPad:
		if d := r.board.Device(a.ID); d != nil {
			if p := d.Pad(a.Pad); p != nil {
				return r.padObject(d, p, nil)
			}
		}
		return Object{Ref: ObjectRef{Kind: KindPad, ID: a.Pad}, Name: "pad"}
	case board.AnchorVia:
		return Object{
			Ref:  ObjectRef{Kind: KindVia, ID: a.ID, Parent: &ObjectRef{Kind: KindNetSegment, ID: end.Segment}},
			Name: "via",
		}
	default:
		return Object{
			Ref:  ObjectRef{Kind: KindJunction, ID: a.ID, Parent: &ObjectRef{Kind: KindNetSegment, ID: end.Segment}},
			Name: "junction",
		}
	}
}
