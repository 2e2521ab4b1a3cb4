package board

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/internal/logging"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/sexp"
)

// ProjectRoot is the key of the root node of a project file.
const ProjectRoot = "opentracefab_project"

// LoadProject reads and parses a project file. The project directory is set
// to the directory of the file.
func LoadProject(filename string) (*Project, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open project: %w", err)
	}
	defer file.Close()

	p, err := ParseProject(file)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", filename, err)
	}
	abs, err := filepath.Abs(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project path: %w", err)
	}
	p.Dir = filepath.Dir(abs)
	return p, nil
}

// ParseProject parses a project from an io.Reader.
func ParseProject(r io.Reader) (*Project, error) {
	root, err := sexp.ParseRoot(r, ProjectRoot)
	if err != nil {
		return nil, err
	}
	name, err := root.Atom(1)
	if err != nil {
		return nil, err
	}
	p := &Project{Name: name, Circuit: &Circuit{}}
	if v, ok := root.Find("version"); ok {
		if p.Version, err = v.Atom(1); err != nil {
			return nil, err
		}
	}

	for _, node := range root.Children() {
		switch node.Key() {
		case "version":
		case "circuit":
			if err := parseCircuit(node, p.Circuit); err != nil {
				return nil, fmt.Errorf("failed to parse circuit: %w", err)
			}
		case "board":
			b, err := parseBoard(node, p.Circuit)
			if err != nil {
				return nil, fmt.Errorf("failed to parse board: %w", err)
			}
			p.Boards = append(p.Boards, b)
		default:
			ignore(node)
		}
	}
	p.Circuit.Reindex()
	for _, b := range p.Boards {
		b.Reindex()
	}
	return p, nil
}

func ignore(node *sexp.List) {
	logging.Logger().Debug("ignoring unknown node", "key", node.Key(), "pos", node.Pos().String())
}

func parseCircuit(node *sexp.List, c *Circuit) error {
	for _, n := range node.Children() {
		switch n.Key() {
		case "net":
			net, err := parseNet(n)
			if err != nil {
				return fmt.Errorf("failed to parse net: %w", err)
			}
			c.Nets = append(c.Nets, net)
		case "component":
			cmp, err := parseComponent(n)
			if err != nil {
				return fmt.Errorf("failed to parse component: %w", err)
			}
			c.Components = append(c.Components, cmp)
		default:
			ignore(n)
		}
	}
	return nil
}

func parseNet(n *sexp.List) (*NetSignal, error) {
	id, err := n.UUID(1)
	if err != nil {
		return nil, err
	}
	name, err := n.ChildAtom("name")
	if err != nil {
		return nil, err
	}
	return &NetSignal{ID: id, Name: name}, nil
}

func parseComponent(n *sexp.List) (*Component, error) {
	id, err := n.UUID(1)
	if err != nil {
		return nil, err
	}
	c := &Component{ID: id}
	if c.Name, err = n.ChildAtom("name"); err != nil {
		return nil, err
	}
	if v, ok := n.Find("value"); ok {
		if c.Value, err = v.Atom(1); err != nil {
			return nil, err
		}
	}
	if v, ok := n.Find("lib_component"); ok {
		if c.LibComponent, err = v.UUID(1); err != nil {
			return nil, err
		}
	}
	if v, ok := n.Find("schematic_only"); ok {
		if c.SchematicOnly, err = v.Bool(1); err != nil {
			return nil, err
		}
	}
	if v, ok := n.Find("default_device"); ok {
		if c.DefaultDevice, err = v.OptionalUUID(1); err != nil {
			return nil, err
		}
	}
	if c.Attributes, err = parseAttributes(n); err != nil {
		return nil, err
	}
	for _, s := range n.FindAll("signal") {
		sig := &ComponentSignal{}
		if sig.ID, err = s.UUID(1); err != nil {
			return nil, err
		}
		if v, ok := s.Find("name"); ok {
			if sig.Name, err = v.Atom(1); err != nil {
				return nil, err
			}
		}
		if v, ok := s.Find("net"); ok {
			if sig.Net, err = v.OptionalUUID(1); err != nil {
				return nil, err
			}
		}
		c.Signals = append(c.Signals, sig)
	}
	return c, nil
}

func parseAttributes(n *sexp.List) ([]Attribute, error) {
	var attrs []Attribute
	for _, a := range n.FindAll("attribute") {
		key, err := a.Atom(1)
		if err != nil {
			return nil, err
		}
		value, err := a.Atom(2)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, Attribute{Key: key, Value: value})
	}
	return attrs, nil
}

func parseBoard(node *sexp.List, circuit *Circuit) (*Board, error) {
	id, err := node.UUID(1)
	if err != nil {
		return nil, err
	}
	name, err := node.ChildAtom("name")
	if err != nil {
		return nil, err
	}
	b := NewBoard(id, name, circuit)

	for _, n := range node.Children() {
		switch n.Key() {
		case "name":
		case "inner_layers":
			if b.InnerLayerCount, err = n.Int(1); err != nil {
				return nil, err
			}
			if b.InnerLayerCount < 0 || b.InnerLayerCount > InnerCopperCount {
				return nil, fmt.Errorf("%s: invalid inner layer count %d: %w", n.Pos(), b.InnerLayerCount, sexp.ErrSyntax)
			}
		case "design_rules":
			if err := parseDesignRules(n, &b.DesignRules); err != nil {
				return nil, fmt.Errorf("failed to parse design rules: %w", err)
			}
		case "drc_settings":
			b.DRCSettings = n.String()
		case "fabrication_output_settings":
			b.FabSettings = n.String()
		case "approved":
			b.Approvals = append(b.Approvals, n.String())
		case "device":
			d, err := parseDevice(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse device: %w", err)
			}
			b.Devices = append(b.Devices, d)
		case "netsegment":
			s, err := parseNetSegment(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse net segment: %w", err)
			}
			b.NetSegments = append(b.NetSegments, s)
		case "plane":
			p, err := parsePlane(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse plane: %w", err)
			}
			b.Planes = append(b.Planes, p)
		case "polygon":
			p, err := parsePolygon(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse polygon: %w", err)
			}
			b.Polygons = append(b.Polygons, p)
		case "stroke_text":
			t, err := parseStrokeText(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse stroke text: %w", err)
			}
			b.StrokeTexts = append(b.StrokeTexts, t)
		case "hole":
			h, err := parseHole(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse hole: %w", err)
			}
			b.Holes = append(b.Holes, h)
		default:
			ignore(n)
		}
	}
	return b, nil
}

func parseRatio(n *sexp.List, r *BoundedRatio) error {
	var err error
	if v, ok := n.Find("ratio"); ok {
		s, err := v.Atom(1)
		if err != nil {
			return err
		}
		if r.Ratio, err = strconv.ParseFloat(s, 64); err != nil {
			return fmt.Errorf("%s: invalid ratio %q: %w", v.Pos(), s, sexp.ErrSyntax)
		}
	}
	if v, ok := n.Find("min"); ok {
		if r.Min, err = v.UnsignedLength(1); err != nil {
			return err
		}
	}
	if v, ok := n.Find("max"); ok {
		if r.Max, err = v.UnsignedLength(1); err != nil {
			return err
		}
	}
	if r.Min > r.Max {
		return fmt.Errorf("%s: min greater than max: %w", n.Pos(), sexp.ErrSyntax)
	}
	return nil
}

func parseDesignRules(node *sexp.List, rules *DesignRules) error {
	var err error
	for _, n := range node.Children() {
		switch n.Key() {
		case "stop_mask_clearance":
			err = parseRatio(n, &rules.StopMaskClearance)
		case "stop_mask_max_via_drill":
			rules.StopMaskMaxViaDrill, err = n.UnsignedLength(1)
		case "solder_paste_clearance":
			err = parseRatio(n, &rules.SolderPasteClearance)
		case "pad_annular_ring":
			err = parseRatio(n, &rules.PadAnnularRing)
		case "inner_pads_full_shape":
			rules.InnerPadsFullShape, err = n.Bool(1)
		default:
			ignore(n)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// parseMask parses (stop_mask off), (stop_mask auto) or (stop_mask 0.1).
func parseMask(n *sexp.List) (MaskConfig, error) {
	s, err := n.Atom(1)
	if err != nil {
		return MaskOff, err
	}
	switch s {
	case "off":
		return MaskOff, nil
	case "auto":
		return MaskAuto, nil
	}
	offset, err := n.Length(1)
	if err != nil {
		return MaskOff, err
	}
	return MaskManual(offset), nil
}

func optionalMask(node *sexp.List, key string, def MaskConfig) (MaskConfig, error) {
	if n, ok := node.Find(key); ok {
		return parseMask(n)
	}
	return def, nil
}

func parsePosition(node *sexp.List) (geometry.Point, error) {
	n, err := node.Child("position")
	if err != nil {
		return geometry.Point{}, err
	}
	return n.Point(1)
}

func optionalRotation(node *sexp.List) (geometry.Angle, error) {
	if n, ok := node.Find("rotation"); ok {
		return n.Angle(1)
	}
	return 0, nil
}

func optionalBool(node *sexp.List, key string) (bool, error) {
	if n, ok := node.Find(key); ok {
		return n.Bool(1)
	}
	return false, nil
}

func childLayer(node *sexp.List) (*Layer, error) {
	id, err := node.ChildAtom("layer")
	if err != nil {
		return nil, err
	}
	l, err := LayerByID(id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", node.Pos(), err)
	}
	return l, nil
}

func childPositive(node *sexp.List, key string) (geometry.PositiveLength, error) {
	n, err := node.Child(key)
	if err != nil {
		return 0, err
	}
	return n.PositiveLength(1)
}

func childUnsigned(node *sexp.List, key string) (geometry.UnsignedLength, error) {
	n, err := node.Child(key)
	if err != nil {
		return 0, err
	}
	return n.UnsignedLength(1)
}

func nonEmptyPath(node *sexp.List) (geometry.Path, error) {
	path, err := node.Path()
	if err != nil {
		return nil, err
	}
	if len(path) == 0 {
		return nil, fmt.Errorf("%s: (%s): empty path: %w", node.Pos(), node.Key(), sexp.ErrSyntax)
	}
	return path, nil
}

func parseDrill(node *sexp.List) (Drill, error) {
	d, err := childPositive(node, "diameter")
	if err != nil {
		return Drill{}, err
	}
	path, err := nonEmptyPath(node)
	if err != nil {
		return Drill{}, err
	}
	return Drill{Diameter: d, Path: path}, nil
}

func parseHole(node *sexp.List) (*Hole, error) {
	id, err := node.UUID(1)
	if err != nil {
		return nil, err
	}
	drill, err := parseDrill(node)
	if err != nil {
		return nil, err
	}
	mask, err := optionalMask(node, "stop_mask", MaskAuto)
	if err != nil {
		return nil, err
	}
	return &Hole{ID: id, Drill: drill, StopMask: mask}, nil
}

func parsePolygon(node *sexp.List) (*Polygon, error) {
	p := &Polygon{}
	var err error
	if p.ID, err = node.UUID(1); err != nil {
		return nil, err
	}
	if p.Layer, err = childLayer(node); err != nil {
		return nil, err
	}
	if p.LineWidth, err = childUnsigned(node, "width"); err != nil {
		return nil, err
	}
	if p.Filled, err = optionalBool(node, "fill"); err != nil {
		return nil, err
	}
	if p.GrabArea, err = optionalBool(node, "grab_area"); err != nil {
		return nil, err
	}
	if p.Path, err = nonEmptyPath(node); err != nil {
		return nil, err
	}
	return p, nil
}

func parseCircle(node *sexp.List) (*Circle, error) {
	c := &Circle{}
	var err error
	if c.ID, err = node.UUID(1); err != nil {
		return nil, err
	}
	if c.Layer, err = childLayer(node); err != nil {
		return nil, err
	}
	if c.LineWidth, err = childUnsigned(node, "width"); err != nil {
		return nil, err
	}
	if c.Filled, err = optionalBool(node, "fill"); err != nil {
		return nil, err
	}
	if c.GrabArea, err = optionalBool(node, "grab_area"); err != nil {
		return nil, err
	}
	if c.Center, err = parsePosition(node); err != nil {
		return nil, err
	}
	if c.Diameter, err = childPositive(node, "diameter"); err != nil {
		return nil, err
	}
	return c, nil
}

func parseStrokeText(node *sexp.List) (*StrokeText, error) {
	t := &StrokeText{}
	var err error
	if t.ID, err = node.UUID(1); err != nil {
		return nil, err
	}
	if t.Layer, err = childLayer(node); err != nil {
		return nil, err
	}
	if v, ok := node.Find("value"); ok {
		if t.Text, err = v.Atom(1); err != nil {
			return nil, err
		}
	}
	if t.Position, err = parsePosition(node); err != nil {
		return nil, err
	}
	if t.Rotation, err = optionalRotation(node); err != nil {
		return nil, err
	}
	if t.Mirrored, err = optionalBool(node, "mirror"); err != nil {
		return nil, err
	}
	if t.Height, err = childPositive(node, "height"); err != nil {
		return nil, err
	}
	if t.StrokeWidth, err = childUnsigned(node, "stroke_width"); err != nil {
		return nil, err
	}
	for _, s := range node.FindAll("stroke") {
		path, err := nonEmptyPath(s)
		if err != nil {
			return nil, err
		}
		t.Strokes = append(t.Strokes, path)
	}
	return t, nil
}

func parseDevice(node *sexp.List) (*Device, error) {
	d := &Device{}
	var err error
	if d.Component, err = node.UUID(1); err != nil {
		return nil, err
	}
	for _, key := range []struct {
		name string
		dst  *uuid.UUID
	}{
		{"lib_device", &d.LibDevice},
		{"lib_package", &d.LibPackage},
		{"lib_footprint", &d.Footprint},
	} {
		if n, ok := node.Find(key.name); ok {
			if *key.dst, err = n.UUID(1); err != nil {
				return nil, err
			}
		}
	}
	if n, ok := node.Find("device_name"); ok {
		if d.DeviceName, err = n.Atom(1); err != nil {
			return nil, err
		}
	}
	if n, ok := node.Find("package_name"); ok {
		if d.PackageName, err = n.Atom(1); err != nil {
			return nil, err
		}
	}
	if n, ok := node.Find("assembly"); ok {
		s, err := n.Atom(1)
		if err != nil {
			return nil, err
		}
		if d.Assembly, err = ParseAssemblyType(s); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", n.Pos(), err, sexp.ErrSyntax)
		}
	}
	if d.Position, err = parsePosition(node); err != nil {
		return nil, err
	}
	if d.Rotation, err = optionalRotation(node); err != nil {
		return nil, err
	}
	if d.Mirrored, err = optionalBool(node, "mirror"); err != nil {
		return nil, err
	}
	if d.Attributes, err = parseAttributes(node); err != nil {
		return nil, err
	}

	for _, n := range node.Children() {
		switch n.Key() {
		case "pad":
			p, err := parsePad(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse pad: %w", err)
			}
			d.Pads = append(d.Pads, p)
		case "polygon":
			p, err := parsePolygon(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse polygon: %w", err)
			}
			d.Polygons = append(d.Polygons, p)
		case "circle":
			c, err := parseCircle(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse circle: %w", err)
			}
			d.Circles = append(d.Circles, c)
		case "hole":
			h, err := parseHole(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse hole: %w", err)
			}
			d.Holes = append(d.Holes, h)
		case "stroke_text":
			t, err := parseStrokeText(n)
			if err != nil {
				return nil, fmt.Errorf("failed to parse stroke text: %w", err)
			}
			d.StrokeTexts = append(d.StrokeTexts, t)
		}
	}
	for _, p := range d.Pads {
		if _, err := d.Transform().CheckedMapPoint(p.Position); err != nil {
			return nil, fmt.Errorf("pad %s of device %s: %w", p.ID, d.Component, err)
		}
	}
	return d, nil
}

func parsePad(node *sexp.List) (*Pad, error) {
	p := &Pad{}
	var err error
	if p.ID, err = node.UUID(1); err != nil {
		return nil, err
	}
	if n, ok := node.Find("name"); ok {
		if p.Name, err = n.Atom(1); err != nil {
			return nil, err
		}
	}
	if n, ok := node.Find("signal"); ok {
		if p.Signal, err = n.OptionalUUID(1); err != nil {
			return nil, err
		}
	}
	if p.Position, err = parsePosition(node); err != nil {
		return nil, err
	}
	if p.Rotation, err = optionalRotation(node); err != nil {
		return nil, err
	}
	shape, err := node.ChildAtom("shape")
	if err != nil {
		return nil, err
	}
	if p.Shape, err = ParsePadShape(shape); err != nil {
		return nil, fmt.Errorf("%s: %v: %w", node.Pos(), err, sexp.ErrSyntax)
	}
	size, err := node.Child("size")
	if err != nil {
		return nil, err
	}
	if p.Width, err = size.PositiveLength(1); err != nil {
		return nil, err
	}
	if p.Height, err = size.PositiveLength(2); err != nil {
		return nil, err
	}
	if n, ok := node.Find("radius"); ok {
		s, err := n.Atom(1)
		if err != nil {
			return nil, err
		}
		if p.Radius, err = strconv.ParseFloat(s, 64); err != nil {
			return nil, fmt.Errorf("%s: invalid radius %q: %w", n.Pos(), s, sexp.ErrSyntax)
		}
	}
	if n, ok := node.Find("custom_outline"); ok {
		if p.CustomOutline, err = n.Path(); err != nil {
			return nil, err
		}
	}
	if p.Shape == PadCustom && len(p.CustomOutline) < 3 {
		return nil, fmt.Errorf("%s: custom pad needs an outline: %w", node.Pos(), sexp.ErrSyntax)
	}
	if n, ok := node.Find("side"); ok {
		s, err := n.Atom(1)
		if err != nil {
			return nil, err
		}
		switch s {
		case "top":
			p.Side = SideTop
		case "bottom":
			p.Side = SideBottom
		default:
			return nil, fmt.Errorf("%s: invalid side %q: %w", n.Pos(), s, sexp.ErrSyntax)
		}
	}
	if p.StopMask, err = optionalMask(node, "stop_mask", MaskAuto); err != nil {
		return nil, err
	}
	if p.SolderPaste, err = optionalMask(node, "solder_paste", MaskAuto); err != nil {
		return nil, err
	}
	if n, ok := node.Find("clearance"); ok {
		if p.CopperClearance, err = n.UnsignedLength(1); err != nil {
			return nil, err
		}
	}
	for _, n := range node.FindAll("hole") {
		id, err := n.UUID(1)
		if err != nil {
			return nil, err
		}
		drill, err := parseDrill(n)
		if err != nil {
			return nil, err
		}
		p.Holes = append(p.Holes, PadHole{ID: id, Drill: drill})
	}
	return p, nil
}

func parseAnchor(node *sexp.List) (Anchor, error) {
	if n, ok := node.Find("junction"); ok {
		id, err := n.UUID(1)
		return JunctionAnchor(id), err
	}
	if n, ok := node.Find("via"); ok {
		id, err := n.UUID(1)
		return ViaAnchor(id), err
	}
	if n, ok := node.Find("device"); ok {
		cmp, err := n.UUID(1)
		if err != nil {
			return Anchor{}, err
		}
		pad, err := node.Child("pad")
		if err != nil {
			return Anchor{}, err
		}
		id, err := pad.UUID(1)
		return PadAnchor(cmp, id), err
	}
	return Anchor{}, fmt.Errorf("%s: (%s): missing anchor: %w", node.Pos(), node.Key(), sexp.ErrSyntax)
}

func parseNetSegment(node *sexp.List) (*NetSegment, error) {
	s := &NetSegment{}
	var err error
	if s.ID, err = node.UUID(1); err != nil {
		return nil, err
	}
	if n, ok := node.Find("net"); ok {
		if s.Net, err = n.OptionalUUID(1); err != nil {
			return nil, err
		}
	}
	for _, n := range node.Children() {
		switch n.Key() {
		case "via":
			v := &Via{}
			if v.ID, err = n.UUID(1); err != nil {
				return nil, err
			}
			if v.Position, err = parsePosition(n); err != nil {
				return nil, err
			}
			if v.Size, err = childPositive(n, "size"); err != nil {
				return nil, err
			}
			if v.Drill, err = childPositive(n, "drill"); err != nil {
				return nil, err
			}
			if v.StopMask, err = optionalMask(n, "stop_mask", MaskAuto); err != nil {
				return nil, err
			}
			s.Vias = append(s.Vias, v)
		case "junction":
			j := &Junction{}
			if j.ID, err = n.UUID(1); err != nil {
				return nil, err
			}
			if j.Position, err = parsePosition(n); err != nil {
				return nil, err
			}
			s.Junctions = append(s.Junctions, j)
		case "trace":
			t := &Trace{}
			if t.ID, err = n.UUID(1); err != nil {
				return nil, err
			}
			if t.Layer, err = childLayer(n); err != nil {
				return nil, err
			}
			if !t.Layer.IsCopper() {
				return nil, fmt.Errorf("%s: trace on non-copper layer %s: %w", n.Pos(), t.Layer, sexp.ErrSyntax)
			}
			if t.Width, err = childPositive(n, "width"); err != nil {
				return nil, err
			}
			from, err := n.Child("from")
			if err != nil {
				return nil, err
			}
			if t.Start, err = parseAnchor(from); err != nil {
				return nil, err
			}
			to, err := n.Child("to")
			if err != nil {
				return nil, err
			}
			if t.End, err = parseAnchor(to); err != nil {
				return nil, err
			}
			s.Traces = append(s.Traces, t)
		}
	}
	return s, nil
}

func parsePlane(node *sexp.List) (*Plane, error) {
	p := &Plane{}
	var err error
	if p.ID, err = node.UUID(1); err != nil {
		return nil, err
	}
	net, err := node.Child("net")
	if err != nil {
		return nil, err
	}
	if p.Net, err = net.UUID(1); err != nil {
		return nil, err
	}
	if p.Layer, err = childLayer(node); err != nil {
		return nil, err
	}
	if !p.Layer.IsCopper() {
		return nil, fmt.Errorf("%s: plane on non-copper layer %s: %w", node.Pos(), p.Layer, sexp.ErrSyntax)
	}
	if n, ok := node.Find("priority"); ok {
		if p.Priority, err = n.Int(1); err != nil {
			return nil, err
		}
	}
	if p.MinWidth, err = childUnsigned(node, "min_width"); err != nil {
		return nil, err
	}
	if p.MinClearance, err = childUnsigned(node, "min_clearance"); err != nil {
		return nil, err
	}
	if p.KeepOrphans, err = optionalBool(node, "keep_orphans"); err != nil {
		return nil, err
	}
	if p.Locked, err = optionalBool(node, "lock"); err != nil {
		return nil, err
	}
	if n, ok := node.Find("connect_style"); ok {
		s, err := n.Atom(1)
		if err != nil {
			return nil, err
		}
		switch s {
		case "solid":
			p.ConnectStyle = ConnectSolid
		case "none":
			p.ConnectStyle = ConnectNone
		default:
			return nil, fmt.Errorf("%s: invalid connect style %q: %w", n.Pos(), s, sexp.ErrSyntax)
		}
	}
	if p.Outline, err = nonEmptyPath(node); err != nil {
		return nil, err
	}
	return p, nil
}
