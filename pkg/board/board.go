// Package board holds the in-memory model of a PCB project: the circuit
// (nets and components) shared by all boards, and per board the placed
// devices, net segments, planes and free drawings.
//
// Entities are addressed by uuid handles. Relations are stored as uuids and
// resolved through the index tables of Circuit and Board, never through
// back pointers.
package board

import (
	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// Project is a loaded project file with all of its boards.
type Project struct {
	Name    string
	Version string
	// Dir is the directory of the project file; relative output paths are
	// resolved against it.
	Dir     string
	Circuit *Circuit
	Boards  []*Board
}

// BoardByName returns the board with the given name.
func (p *Project) BoardByName(name string) (*Board, bool) {
	for _, b := range p.Boards {
		if b.Name == name {
			return b, true
		}
	}
	return nil, false
}

// Board represents one PCB of a project.
type Board struct {
	ID              uuid.UUID
	Name            string
	InnerLayerCount int
	Circuit         *Circuit
	DesignRules     DesignRules

	Devices     []*Device
	NetSegments []*NetSegment
	Planes      []*Plane
	Polygons    []*Polygon
	StrokeTexts []*StrokeText
	Holes       []*Hole

	// DRCSettings and FabSettings hold the serialized settings nodes found in
	// the board file (empty if absent). The drc and fab packages parse them.
	DRCSettings string
	FabSettings string
	// Approvals holds the serialized (approved ...) nodes of the board file.
	Approvals []string

	deviceByComponent map[uuid.UUID]*Device
	segmentByID       map[uuid.UUID]*NetSegment
}

// NewBoard creates an empty board using the given circuit.
func NewBoard(id uuid.UUID, name string, circuit *Circuit) *Board {
	b := &Board{ID: id, Name: name, Circuit: circuit, DesignRules: DefaultDesignRules()}
	b.Reindex()
	return b
}

// Reindex rebuilds the lookup tables. Call it after modifying the entity
// slices directly.
func (b *Board) Reindex() {
	b.deviceByComponent = make(map[uuid.UUID]*Device, len(b.Devices))
	for _, d := range b.Devices {
		b.deviceByComponent[d.Component] = d
	}
	b.segmentByID = make(map[uuid.UUID]*NetSegment, len(b.NetSegments))
	for _, s := range b.NetSegments {
		b.segmentByID[s.ID] = s
		s.reindex()
	}
	if b.Circuit != nil {
		b.Circuit.Reindex()
	}
}

// Device returns the device placed for the given component.
func (b *Board) Device(component uuid.UUID) *Device {
	return b.deviceByComponent[component]
}

// NetSegment returns the net segment with the given id.
func (b *Board) NetSegment(id uuid.UUID) *NetSegment {
	return b.segmentByID[id]
}

// CopperLayers returns top, the used inner layers and bottom copper.
func (b *Board) CopperLayers() []*Layer {
	layers := []*Layer{TopCopper}
	for i := 1; i <= b.InnerLayerCount; i++ {
		layers = append(layers, InnerCopper(i))
	}
	return append(layers, BotCopper)
}

// IsCopperLayer reports whether l is one of the board's copper layers.
func (b *Board) IsCopperLayer(l *Layer) bool {
	if !l.IsCopper() {
		return false
	}
	if l.IsInner() {
		return l.CopperNumber() <= b.InnerLayerCount
	}
	return true
}

// PadNet returns the net connected to a pad, or nil.
func (b *Board) PadNet(d *Device, p *Pad) *uuid.UUID {
	if p.Signal == nil || b.Circuit == nil {
		return nil
	}
	cmp := b.Circuit.Component(d.Component)
	if cmp == nil {
		return nil
	}
	if sig := cmp.Signal(*p.Signal); sig != nil {
		return sig.Net
	}
	return nil
}

// NetName returns the name of a net or "" for nil and unknown nets.
func (b *Board) NetName(net *uuid.UUID) string {
	if net == nil || b.Circuit == nil {
		return ""
	}
	if n := b.Circuit.Net(*net); n != nil {
		return n.Name
	}
	return ""
}

// ComponentName returns the designator of the component behind a device.
func (b *Board) ComponentName(d *Device) string {
	if b.Circuit != nil {
		if cmp := b.Circuit.Component(d.Component); cmp != nil {
			return cmp.Name
		}
	}
	return d.Component.String()
}

// AnchorPosition returns the board position of a trace anchor.
func (b *Board) AnchorPosition(seg *NetSegment, a Anchor) (geometry.Point, bool) {
	switch a.Kind {
	case AnchorJunction:
		if j := seg.Junction(a.ID); j != nil {
			return j.Position, true
		}
	case AnchorVia:
		if v := seg.Via(a.ID); v != nil {
			return v.Position, true
		}
	case AnchorPad:
		if d := b.Device(a.ID); d != nil {
			if p := d.Pad(a.Pad); p != nil {
				return d.Transform().MapPoint(p.Position), true
			}
		}
	}
	return geometry.Point{}, false
}

// PadTraces returns the traces attached to a pad of a device.
func (b *Board) PadTraces(d *Device, p *Pad) []*Trace {
	var out []*Trace
	for _, seg := range b.NetSegments {
		for _, t := range seg.Traces {
			for _, a := range [2]Anchor{t.Start, t.End} {
				if a.Kind == AnchorPad && a.ID == d.Component && a.Pad == p.ID {
					out = append(out, t)
					break
				}
			}
		}
	}
	return out
}

// NetSignal represents an electrical net.
type NetSignal struct {
	ID   uuid.UUID
	Name string
}

// Circuit holds the nets and components of a project.
type Circuit struct {
	Nets       []*NetSignal
	Components []*Component

	netByID       map[uuid.UUID]*NetSignal
	componentByID map[uuid.UUID]*Component
}

// Reindex rebuilds the lookup tables.
func (c *Circuit) Reindex() {
	c.netByID = make(map[uuid.UUID]*NetSignal, len(c.Nets))
	for _, n := range c.Nets {
		c.netByID[n.ID] = n
	}
	c.componentByID = make(map[uuid.UUID]*Component, len(c.Components))
	for _, cmp := range c.Components {
		c.componentByID[cmp.ID] = cmp
		cmp.reindex()
	}
}

// Net returns the net with the given id.
func (c *Circuit) Net(id uuid.UUID) *NetSignal {
	return c.netByID[id]
}

// Component returns the component with the given id.
func (c *Circuit) Component(id uuid.UUID) *Component {
	return c.componentByID[id]
}

// Attribute is a user defined key/value pair.
type Attribute struct {
	Key   string
	Value string
}

// Component is a component instance of the circuit.
type Component struct {
	ID            uuid.UUID
	Name          string
	Value         string
	LibComponent  uuid.UUID
	SchematicOnly bool
	DefaultDevice *uuid.UUID
	Attributes    []Attribute
	Signals       []*ComponentSignal

	signalByID map[uuid.UUID]*ComponentSignal
}

func (c *Component) reindex() {
	c.signalByID = make(map[uuid.UUID]*ComponentSignal, len(c.Signals))
	for _, s := range c.Signals {
		c.signalByID[s.ID] = s
	}
}

// Signal returns the component signal with the given id.
func (c *Component) Signal(id uuid.UUID) *ComponentSignal {
	if c.signalByID == nil {
		c.reindex()
	}
	return c.signalByID[id]
}

// Attribute returns the value of a user attribute or "".
func (c *Component) Attribute(key string) string {
	for _, a := range c.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// ComponentSignal is a signal of a component, optionally connected to a net.
type ComponentSignal struct {
	ID   uuid.UUID
	Name string
	Net  *uuid.UUID
}

// BoundedRatio computes a value as a ratio of a reference size, clamped to
// [Min, Max].
type BoundedRatio struct {
	Ratio float64
	Min   geometry.UnsignedLength
	Max   geometry.UnsignedLength
}

// Value returns the clamped ratio of size.
func (r BoundedRatio) Value(size geometry.Length) geometry.Length {
	v := geometry.Length(float64(size) * r.Ratio)
	if v < r.Min.Length() {
		v = r.Min.Length()
	}
	if v > r.Max.Length() {
		v = r.Max.Length()
	}
	return v
}

// DesignRules are the board rules which affect generated geometry (mask
// openings, paste reduction, inner pad rings), as opposed to the DRC
// thresholds.
type DesignRules struct {
	StopMaskClearance    BoundedRatio
	StopMaskMaxViaDrill  geometry.UnsignedLength
	SolderPasteClearance BoundedRatio
	PadAnnularRing       BoundedRatio

	// InnerPadsFullShape draws THT pads on inner layers with their full
	// shape instead of a ring around each hole.
	InnerPadsFullShape bool
}

// DefaultDesignRules returns the rules used when a board file has none.
func DefaultDesignRules() DesignRules {
	return DesignRules{
		StopMaskClearance: BoundedRatio{
			Ratio: 0,
			Min:   geometry.MustUnsigned(geometry.Mm(0.1)),
			Max:   geometry.MustUnsigned(geometry.Mm(0.1)),
		},
		StopMaskMaxViaDrill: geometry.MustUnsigned(geometry.Mm(0.5)),
		SolderPasteClearance: BoundedRatio{
			Ratio: 0.1,
			Min:   0,
			Max:   geometry.MustUnsigned(geometry.Mm(1)),
		},
		PadAnnularRing: BoundedRatio{
			Ratio: 0.25,
			Min:   geometry.MustUnsigned(geometry.Mm(0.25)),
			Max:   geometry.MustUnsigned(geometry.Mm(2)),
		},
	}
}

// ViaStopMaskOffset returns the stop mask opening offset of a via, or nil if
// the via is tented. Auto vias are tented up to StopMaskMaxViaDrill.
func (b *Board) ViaStopMaskOffset(v *Via) *geometry.Length {
	if !v.StopMask.Enabled {
		return nil
	}
	if v.StopMask.Offset != nil {
		return v.StopMask.Offset
	}
	if v.Drill.Length() <= b.DesignRules.StopMaskMaxViaDrill.Length() {
		return nil
	}
	offset := b.DesignRules.StopMaskClearance.Value(v.Size.Length())
	return &offset
}

// HoleStopMaskOffset returns the stop mask opening offset of an NPTH, or nil
// if the hole is covered.
func (b *Board) HoleStopMaskOffset(h *Hole) *geometry.Length {
	if !h.StopMask.Enabled {
		return nil
	}
	if h.StopMask.Offset != nil {
		return h.StopMask.Offset
	}
	offset := b.DesignRules.StopMaskClearance.Value(h.Diameter.Length())
	return &offset
}
