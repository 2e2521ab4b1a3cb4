package board

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// AssemblyType describes how a device is mounted.
type AssemblyType int

const (
	AssemblyAuto AssemblyType = iota // derive from the pads
	AssemblyNone                     // nothing to mount (e.g. a logo)
	AssemblyTHT
	AssemblySMT
	AssemblyMixed
	AssemblyOther
)

var assemblyNames = map[AssemblyType]string{
	AssemblyAuto:  "auto",
	AssemblyNone:  "none",
	AssemblyTHT:   "tht",
	AssemblySMT:   "smt",
	AssemblyMixed: "mixed",
	AssemblyOther: "other",
}

func (a AssemblyType) String() string { return assemblyNames[a] }

// ParseAssemblyType parses the file format token of an assembly type.
func ParseAssemblyType(s string) (AssemblyType, error) {
	for k, v := range assemblyNames {
		if v == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("invalid assembly type %q", s)
}

// MaskConfig configures a stop mask or solder paste opening. A nil Offset
// with Enabled set means the offset is derived from the design rules.
type MaskConfig struct {
	Enabled bool
	Offset  *geometry.Length
}

// MaskOff disables an opening; MaskAuto enables it with rule based offset.
var (
	MaskOff  = MaskConfig{}
	MaskAuto = MaskConfig{Enabled: true}
)

// MaskManual returns an enabled config with a fixed offset.
func MaskManual(offset geometry.Length) MaskConfig {
	return MaskConfig{Enabled: true, Offset: &offset}
}

// Drill is a round hole or a slot: a tool of Diameter moved along Path.
type Drill struct {
	Diameter geometry.PositiveLength
	Path     geometry.Path // one vertex for round holes
}

// IsSlot reports whether the drill tool moves.
func (d Drill) IsSlot() bool { return len(d.Path) > 1 }

// IsMultiSegmentSlot reports whether the slot has more than one segment.
func (d Drill) IsMultiSegmentSlot() bool { return len(d.Path) > 2 }

// IsCurvedSlot reports whether the slot contains arcs.
func (d Drill) IsCurvedSlot() bool { return d.Path.IsCurved() }

// Outlines returns the drilled area in local coordinates.
func (d Drill) Outlines() []geometry.Path {
	return d.Path.ToOutlineStrokes(d.Diameter)
}

// PadHole is a plated hole of a pad, in pad coordinates.
type PadHole struct {
	Drill
	ID uuid.UUID
}

// Hole is a non-plated hole, either on the board or in a footprint.
type Hole struct {
	Drill
	ID       uuid.UUID
	StopMask MaskConfig
}

// Polygon is a drawn path on any layer.
type Polygon struct {
	ID        uuid.UUID
	Layer     *Layer
	LineWidth geometry.UnsignedLength
	Filled    bool
	GrabArea  bool
	Path      geometry.Path
}

// Circle is a drawn circle on any layer.
type Circle struct {
	ID        uuid.UUID
	Layer     *Layer
	LineWidth geometry.UnsignedLength
	Filled    bool
	GrabArea  bool
	Center    geometry.Point
	Diameter  geometry.PositiveLength
}

// Path returns the circle as a closed path around its center.
func (c *Circle) Path() geometry.Path {
	return geometry.Circle(c.Diameter).Translated(c.Center)
}

// StrokeText is a text rendered with a stroke font. Glyph rendering happens
// outside of this module; Strokes hold the rendered glyph paths in text
// coordinates.
type StrokeText struct {
	ID          uuid.UUID
	Layer       *Layer
	Text        string
	Position    geometry.Point
	Rotation    geometry.Angle
	Mirrored    bool
	Height      geometry.PositiveLength
	StrokeWidth geometry.UnsignedLength
	Strokes     []geometry.Path
}

// Transform places the text strokes on the board.
func (t *StrokeText) Transform() geometry.Transform {
	return geometry.Transform{Position: t.Position, Rotation: t.Rotation, Mirrored: t.Mirrored}
}

// Paths returns the glyph strokes in board coordinates.
func (t *StrokeText) Paths() []geometry.Path {
	return t.Transform().MapPaths(t.Strokes)
}

// Device is a placed footprint of a component. Pads, polygons, circles and
// holes are stored in footprint coordinates, stroke texts in board
// coordinates.
type Device struct {
	Component   uuid.UUID // circuit component this device implements
	LibDevice   uuid.UUID
	LibPackage  uuid.UUID
	Footprint   uuid.UUID
	DeviceName  string
	PackageName string
	Assembly    AssemblyType
	Position    geometry.Point
	Rotation    geometry.Angle
	Mirrored    bool // placed on the bottom side
	Attributes  []Attribute
	Pads        []*Pad
	Polygons    []*Polygon
	Circles     []*Circle
	Holes       []*Hole
	StrokeTexts []*StrokeText
}

// Transform maps footprint coordinates to board coordinates.
func (d *Device) Transform() geometry.Transform {
	return geometry.Transform{Position: d.Position, Rotation: d.Rotation, Mirrored: d.Mirrored}
}

// Pad returns the pad with the given id.
func (d *Device) Pad(id uuid.UUID) *Pad {
	for _, p := range d.Pads {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// PadTransform maps pad coordinates to board coordinates.
func (d *Device) PadTransform(p *Pad) geometry.Transform {
	return geometry.Transform{
		Position: d.Transform().MapPoint(p.Position),
		Rotation: p.Rotation + d.Rotation,
		Mirrored: d.Mirrored,
	}
}

// PadPosition returns the board position of a pad.
func (d *Device) PadPosition(p *Pad) geometry.Point {
	return d.Transform().MapPoint(p.Position)
}

// ResolvedAssembly returns the assembly type with auto resolved from the
// pads: any THT pad means tht, otherwise any pad means smt.
func (d *Device) ResolvedAssembly() AssemblyType {
	if d.Assembly != AssemblyAuto {
		return d.Assembly
	}
	smt := false
	for _, p := range d.Pads {
		if p.IsTHT() {
			return AssemblyTHT
		}
		smt = true
	}
	if smt {
		return AssemblySMT
	}
	return AssemblyNone
}

// Attribute returns the value of a device attribute or "".
func (d *Device) Attribute(key string) string {
	for _, a := range d.Attributes {
		if a.Key == key {
			return a.Value
		}
	}
	return ""
}

// AnchorKind selects what a trace end is attached to.
type AnchorKind int

const (
	AnchorJunction AnchorKind = iota
	AnchorVia
	AnchorPad
)

// Anchor is one end of a trace. For pads ID is the device's component and
// Pad the pad id; otherwise ID is a junction or via of the same segment.
type Anchor struct {
	Kind AnchorKind
	ID   uuid.UUID
	Pad  uuid.UUID
}

// JunctionAnchor returns an anchor at a junction.
func JunctionAnchor(id uuid.UUID) Anchor { return Anchor{Kind: AnchorJunction, ID: id} }

// ViaAnchor returns an anchor at a via.
func ViaAnchor(id uuid.UUID) Anchor { return Anchor{Kind: AnchorVia, ID: id} }

// PadAnchor returns an anchor at a device pad.
func PadAnchor(component, pad uuid.UUID) Anchor {
	return Anchor{Kind: AnchorPad, ID: component, Pad: pad}
}

// Via is a plated through hole connecting all copper layers.
type Via struct {
	ID       uuid.UUID
	Position geometry.Point
	Size     geometry.PositiveLength
	Drill    geometry.PositiveLength
	StopMask MaskConfig
}

// Outline returns the via copper grown by expansion.
func (v *Via) Outline(expansion geometry.Length) geometry.Path {
	return geometry.Circle(geometry.PositiveLength(v.Size.Length() + 2*expansion)).Translated(v.Position)
}

// Junction is a free trace connection point.
type Junction struct {
	ID       uuid.UUID
	Position geometry.Point
}

// Trace is a straight copper segment between two anchors.
type Trace struct {
	ID    uuid.UUID
	Layer *Layer
	Width geometry.PositiveLength
	Start Anchor
	End   Anchor
}

// NetSegment groups connected vias, junctions and traces of one net. Net is
// nil for unconnected segments.
type NetSegment struct {
	ID        uuid.UUID
	Net       *uuid.UUID
	Vias      []*Via
	Junctions []*Junction
	Traces    []*Trace

	viaByID      map[uuid.UUID]*Via
	junctionByID map[uuid.UUID]*Junction
}

func (s *NetSegment) reindex() {
	s.viaByID = make(map[uuid.UUID]*Via, len(s.Vias))
	for _, v := range s.Vias {
		s.viaByID[v.ID] = v
	}
	s.junctionByID = make(map[uuid.UUID]*Junction, len(s.Junctions))
	for _, j := range s.Junctions {
		s.junctionByID[j.ID] = j
	}
}

// Via returns the via with the given id.
func (s *NetSegment) Via(id uuid.UUID) *Via {
	if s.viaByID == nil {
		s.reindex()
	}
	return s.viaByID[id]
}

// Junction returns the junction with the given id.
func (s *NetSegment) Junction(id uuid.UUID) *Junction {
	if s.junctionByID == nil {
		s.reindex()
	}
	return s.junctionByID[id]
}

// IsEmpty reports whether the segment contains nothing.
func (s *NetSegment) IsEmpty() bool {
	return len(s.Vias) == 0 && len(s.Junctions) == 0 && len(s.Traces) == 0
}

// JunctionTraces returns the traces attached to a junction.
func (s *NetSegment) JunctionTraces(id uuid.UUID) []*Trace {
	var out []*Trace
	for _, t := range s.Traces {
		if (t.Start.Kind == AnchorJunction && t.Start.ID == id) ||
			(t.End.Kind == AnchorJunction && t.End.ID == id) {
			out = append(out, t)
		}
	}
	return out
}

// ConnectStyle selects how same-net pads connect to a plane.
type ConnectStyle int

const (
	ConnectSolid ConnectStyle = iota
	ConnectNone
)

// Plane is a copper fill of a net. Fragments are computed by RebuildPlanes.
type Plane struct {
	ID           uuid.UUID
	Net          uuid.UUID
	Layer        *Layer
	Outline      geometry.Path
	MinWidth     geometry.UnsignedLength
	MinClearance geometry.UnsignedLength
	KeepOrphans  bool
	Priority     int
	ConnectStyle ConnectStyle
	Locked       bool

	Fragments []geometry.Path
}
