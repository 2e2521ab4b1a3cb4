package drc

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/sexp"
)

// Severity orders messages by importance.
type Severity int

const (
	Hint Severity = iota
	Warning
	Error
)

func (s Severity) String() string {
	switch s {
	case Hint:
		return "HINT"
	case Warning:
		return "WARNING"
	case Error:
		return "ERROR"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// Rule identifies the check which produced a message.
type Rule int

const (
	MissingDevice Rule = iota
	MinimumCopperWidth
	CopperCopperClearance
	CopperBoardClearance
	CopperHoleClearance
	DrillDrillClearance
	DrillBoardClearance
	MinimumAnnularRing
	MinimumDrillDiameter
	MinimumSlotWidth
	InvalidPadConnection
	ForbiddenSlot
	CourtyardOverlap
	MissingBoardOutline
	MultipleBoardOutlines
	OpenBoardOutlinePolygon
	MinimumBoardOutlineInnerRadius
	DefaultDeviceMismatch
	MissingConnection
	EmptyNetSegment
	UnconnectedJunction
)

type ruleInfo struct {
	id          string
	severity    Severity
	description string
}

var rules = []ruleInfo{
	MissingDevice: {"missing_device", Warning,
		"The component is part of the circuit but not placed on the board."},
	MinimumCopperWidth: {"minimum_copper_width", Error,
		"The copper is thinner than the minimum width the manufacturer can produce."},
	CopperCopperClearance: {"copper_clearance", Error,
		"Copper of different nets is closer than the minimum clearance."},
	CopperBoardClearance: {"copper_board_clearance", Error,
		"Copper is closer to the board edge than the minimum clearance."},
	CopperHoleClearance: {"copper_hole_clearance", Error,
		"Copper is closer to a non-plated hole than the minimum clearance."},
	DrillDrillClearance: {"drill_clearance", Error,
		"Two drills are closer to each other than the minimum clearance."},
	DrillBoardClearance: {"drill_board_clearance", Error,
		"A drill is closer to the board edge than the minimum clearance."},
	MinimumAnnularRing: {"minimum_annular_ring", Warning,
		"The copper ring around a plated hole is smaller than the minimum annular ring on at least one layer."},
	MinimumDrillDiameter: {"minimum_drill_diameter", Warning,
		"The drill is smaller than the smallest drill the manufacturer supports."},
	MinimumSlotWidth: {"minimum_slot_width", Warning,
		"The slot is narrower than the smallest slot the manufacturer supports."},
	InvalidPadConnection: {"invalid_pad_connection", Error,
		"A trace is attached to the pad origin but the origin is not inside the pad copper."},
	ForbiddenSlot: {"forbidden_slot", Warning,
		"The slot is more complex than the configured slot policy allows."},
	CourtyardOverlap: {"courtyard_overlap", Warning,
		"The courtyards of two devices overlap, so they might collide during assembly."},
	MissingBoardOutline: {"missing_board_outline", Error,
		"The board has no outline, so its shape is undefined."},
	MultipleBoardOutlines: {"multiple_board_outlines", Warning,
		"The board outline consists of several independent areas."},
	OpenBoardOutlinePolygon: {"open_board_outline_polygon", Error,
		"A board outline polygon is not closed."},
	MinimumBoardOutlineInnerRadius: {"minimum_board_outline_inner_radius", Error,
		"The board outline has inner corners which are too sharp for the smallest milling tool."},
	DefaultDeviceMismatch: {"default_device_mismatch", Warning,
		"The placed device differs from the default device of the component."},
	MissingConnection: {"missing_connection", Error,
		"Two items of the same net are not connected by copper."},
	EmptyNetSegment: {"empty_netsegment", Hint,
		"The net segment contains no items and can be removed."},
	UnconnectedJunction: {"unconnected_junction", Hint,
		"The junction has no traces attached and can be removed."},
}

// ID returns the identifier used in approval keys.
func (r Rule) ID() string { return rules[r].id }

// Severity returns the default severity of the rule.
func (r Rule) Severity() Severity { return rules[r].severity }

func (r Rule) String() string { return r.ID() }

// Kinds of referenced objects.
const (
	KindComponent  = "component"
	KindDevice     = "device"
	KindNet        = "net"
	KindNetSegment = "netsegment"
	KindTrace      = "trace"
	KindVia        = "via"
	KindJunction   = "junction"
	KindPad        = "pad"
	KindPlane      = "plane"
	KindPolygon    = "polygon"
	KindCircle     = "circle"
	KindStrokeText = "stroke_text"
	KindHole       = "hole"
)

// ObjectRef identifies a board item. Footprint items carry their device
// as parent; layer specific references carry the layer.
type ObjectRef struct {
	Kind   string
	ID     uuid.UUID
	Parent *ObjectRef
	Layer  *board.Layer
}

// Sexp returns the reference as it appears in approval keys.
func (o ObjectRef) Sexp() *sexp.List {
	l := sexp.NewList(o.Kind, sexp.Symbol(o.ID.String()))
	if o.Parent != nil {
		l.Add(o.Parent.Sexp())
	}
	if o.Layer != nil {
		l.Add(sexp.NewList("layer", sexp.Symbol(o.Layer.ID())))
	}
	return l
}

func (o ObjectRef) String() string { return o.Sexp().String() }

// Object is a referenced item together with a human readable name.
type Object struct {
	Ref  ObjectRef
	Name string
}

// Message is one rule violation. Messages are created by the constructors
// of this package and never modified afterwards.
type Message struct {
	Rule        Rule
	Severity    Severity
	Text        string
	Description string
	ApprovalKey string
	Locations   []geometry.Path
	Objects     []ObjectRef
}

// Format returns the console representation "[SEVERITY] text".
func (m Message) Format() string {
	return "[" + m.Severity.String() + "] " + m.Text
}

func newMessage(rule Rule, text string, locations []geometry.Path, objects ...Object) Message {
	info := rules[rule]
	key := sexp.NewList("approved", sexp.Symbol(info.id))
	refs := make([]ObjectRef, 0, len(objects))
	for _, o := range objects {
		key.Add(o.Ref.Sexp())
		refs = append(refs, o.Ref)
	}
	return Message{
		Rule:        rule,
		Severity:    info.severity,
		Text:        text,
		Description: info.description,
		ApprovalKey: key.String(),
		Locations:   locations,
		Objects:     refs,
	}
}

// ordered returns a pair of objects sorted by their approval key node.
func ordered(a, b Object) (Object, Object) {
	if strings.Compare(a.Ref.String(), b.Ref.String()) > 0 {
		return b, a
	}
	return a, b
}

func newMissingDevice(cmp Object) Message {
	return newMessage(MissingDevice,
		fmt.Sprintf("Missing device: '%s'", cmp.Name), nil, cmp)
}

func newMinimumCopperWidth(obj Object, limit geometry.UnsignedLength, locations []geometry.Path) Message {
	return newMessage(MinimumCopperWidth,
		fmt.Sprintf("Min. copper width (%s) of %s", limit, obj.Name), locations, obj)
}

func newCopperCopperClearance(a, b Object, clearance geometry.UnsignedLength, locations []geometry.Path) Message {
	a, b = ordered(a, b)
	return newMessage(CopperCopperClearance,
		fmt.Sprintf("Clearance (%s) between %s and %s", clearance, a.Name, b.Name), locations, a, b)
}

func newCopperBoardClearance(obj Object, clearance geometry.UnsignedLength, locations []geometry.Path) Message {
	return newMessage(CopperBoardClearance,
		fmt.Sprintf("Clearance (%s) of %s to board edge", clearance, obj.Name), locations, obj)
}

func newCopperHoleClearance(hole Object, clearance geometry.UnsignedLength, locations []geometry.Path) Message {
	return newMessage(CopperHoleClearance,
		fmt.Sprintf("Copper clearance (%s) of %s", clearance, hole.Name), locations, hole)
}

func newDrillDrillClearance(a, b Object, clearance geometry.UnsignedLength, locations []geometry.Path) Message {
	a, b = ordered(a, b)
	return newMessage(DrillDrillClearance,
		fmt.Sprintf("Clearance (%s) between %s and %s", clearance, a.Name, b.Name), locations, a, b)
}

func newDrillBoardClearance(obj Object, clearance geometry.UnsignedLength, locations []geometry.Path) Message {
	return newMessage(DrillBoardClearance,
		fmt.Sprintf("Clearance (%s) of %s to board edge", clearance, obj.Name), locations, obj)
}

func newMinimumAnnularRing(obj Object, ring geometry.UnsignedLength, locations []geometry.Path) Message {
	return newMessage(MinimumAnnularRing,
		fmt.Sprintf("Min. annular ring (%s) of %s", ring, obj.Name), locations, obj)
}

func newMinimumDrillDiameter(obj Object, limit geometry.UnsignedLength, locations []geometry.Path) Message {
	return newMessage(MinimumDrillDiameter,
		fmt.Sprintf("Min. drill diameter (%s) of %s", limit, obj.Name), locations, obj)
}

func newMinimumSlotWidth(obj Object, limit geometry.UnsignedLength, locations []geometry.Path) Message {
	return newMessage(MinimumSlotWidth,
		fmt.Sprintf("Min. slot width (%s) of %s", limit, obj.Name), locations, obj)
}

func newInvalidPadConnection(pad Object, layer *board.Layer, locations []geometry.Path) Message {
	pad.Ref.Layer = layer
	return newMessage(InvalidPadConnection,
		fmt.Sprintf("Invalid connection of %s on '%s'", pad.Name, layer.Name()), locations, pad)
}

func newForbiddenSlot(obj Object, locations []geometry.Path) Message {
	return newMessage(ForbiddenSlot,
		fmt.Sprintf("Forbidden slot in %s", obj.Name), locations, obj)
}

func newCourtyardOverlap(a, b Object, locations []geometry.Path) Message {
	a, b = ordered(a, b)
	return newMessage(CourtyardOverlap,
		fmt.Sprintf("Overlapping courtyards of %s and %s", a.Name, b.Name), locations, a, b)
}

func newMissingBoardOutline() Message {
	return newMessage(MissingBoardOutline, "Missing board outline", nil)
}

func newMultipleBoardOutlines(locations []geometry.Path) Message {
	return newMessage(MultipleBoardOutlines, "Multiple board outlines", locations)
}

func newOpenBoardOutlinePolygon(obj Object, locations []geometry.Path) Message {
	return newMessage(OpenBoardOutlinePolygon,
		fmt.Sprintf("Open board outline polygon in %s", obj.Name), locations, obj)
}

func newMinimumBoardOutlineInnerRadius(radius geometry.UnsignedLength, locations []geometry.Path) Message {
	return newMessage(MinimumBoardOutlineInnerRadius,
		fmt.Sprintf("Min. inner radius (%s) of board outline", radius), locations)
}

func newDefaultDeviceMismatch(cmp Object, locations []geometry.Path) Message {
	return newMessage(DefaultDeviceMismatch,
		fmt.Sprintf("Default device mismatch: '%s'", cmp.Name), locations, cmp)
}

func newMissingConnection(net Object, p1, p2 Object, locations []geometry.Path) Message {
	p1, p2 = ordered(p1, p2)
	return newMessage(MissingConnection,
		fmt.Sprintf("Missing connection in '%s': %s and %s", net.Name, p1.Name, p2.Name), locations, net, p1, p2)
}

func newEmptyNetSegment(seg Object) Message {
	return newMessage(EmptyNetSegment,
		fmt.Sprintf("Empty net segment in %s", seg.Name), nil, seg)
}

func newUnconnectedJunction(j Object, locations []geometry.Path) Message {
	return newMessage(UnconnectedJunction,
		fmt.Sprintf("Unconnected junction in %s", j.Name), locations, j)
}
