// Package gerber writes fabrication files: RS-274X Gerber with X2
// attributes for layers and Excellon for drills.
//
// Both generators collect the drawing in memory. Call Generate once all
// items are added, then write the result with WriteTo or SaveToFile.
// Coordinates are written in the 6.6 millimeter format, so one unit equals
// one nanometer.
package gerber

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// Object holds the object attributes of a drawn or flashed item. A nil Net
// omits the net attribute; an empty net marks a copper item that belongs to
// no net.
type Object struct {
	Function  ApertureFunction
	Net       *string
	Component string
	Pin       string
	Signal    string
}

// Net returns a pointer to name, for use in Object.Net.
func Net(name string) *string { return &name }

// NoConnect is the net name reserved for unconnected pads.
const NoConnect = "N/C"

// Component describes a component on a component layer.
type Component struct {
	Designator   string
	Value        string
	Manufacturer string
	MPN          string
	Footprint    string
	Mount        MountType
	Rotation     geometry.Angle
}

// Generator builds one Gerber X2 file.
type Generator struct {
	header    []attribute
	function  []string
	polarity  *Polarity
	apertures *apertureList

	body          strings.Builder
	aperture      int
	interpolation string
	objectAttrs   []attribute

	output []byte
}

// NewGenerator returns an empty generator. The project fields end up in the
// .ProjectId file attribute.
func NewGenerator(created time.Time, projectName string, projectID uuid.UUID, projectVersion string) *Generator {
	return &Generator{
		header:        fileHeaderAttributes(created, projectName, projectID, projectVersion),
		apertures:     newApertureList(),
		interpolation: "G01",
	}
}

func (g *Generator) setFunction(p *Polarity, fields ...string) {
	g.function = fields
	g.polarity = p
}

// SetFileFunctionOutlines marks the file as board profile.
func (g *Generator) SetFileFunctionOutlines(plated bool) {
	if plated {
		g.setFunction(nil, "Profile", "P")
	} else {
		g.setFunction(nil, "Profile", "NP")
	}
}

// SetFileFunctionCopper marks the file as copper layer n (1 is top).
func (g *Generator) SetFileFunctionCopper(n int, side Side, p Polarity) {
	g.setFunction(&p, "Copper", fmt.Sprintf("L%d", n), side.String())
}

// SetFileFunctionSolderMask marks the file as solder mask.
func (g *Generator) SetFileFunctionSolderMask(side Side, p Polarity) {
	g.setFunction(&p, "Soldermask", side.String())
}

// SetFileFunctionLegend marks the file as silkscreen.
func (g *Generator) SetFileFunctionLegend(side Side, p Polarity) {
	g.setFunction(&p, "Legend", side.String())
}

// SetFileFunctionPaste marks the file as solder paste.
func (g *Generator) SetFileFunctionPaste(side Side, p Polarity) {
	g.setFunction(&p, "Paste", side.String())
}

// SetFileFunctionComponent marks the file as component layer next to copper
// layer n.
func (g *Generator) SetFileFunctionComponent(n int, side Side) {
	g.setFunction(nil, "Component", fmt.Sprintf("L%d", n), side.String())
}

// SetLayerPolarity switches the polarity of the following objects.
func (g *Generator) SetLayerPolarity(p Polarity) {
	if p == Negative {
		g.body.WriteString("%LPC*%\n")
	} else {
		g.body.WriteString("%LPD*%\n")
	}
}

func coord(p geometry.Point) string {
	return fmt.Sprintf("X%dY%d", int64(p.X), int64(p.Y))
}

func (g *Generator) useAperture(a aperture) {
	code := g.apertures.add(a)
	if code != g.aperture {
		fmt.Fprintf(&g.body, "D%d*\n", code)
		g.aperture = code
	}
}

func (g *Generator) setInterpolation(mode string) {
	if mode != g.interpolation {
		g.body.WriteString(mode + "*\n")
		g.interpolation = mode
	}
}

func (g *Generator) setObjectAttributes(obj Object) {
	var attrs []attribute
	if obj.Net != nil {
		attrs = append(attrs, objectAttr(".N", EscapeValue(*obj.Net)))
	}
	if obj.Component != "" {
		attrs = append(attrs, objectAttr(".C", EscapeValue(obj.Component)))
	}
	if obj.Pin != "" {
		fields := []string{EscapeValue(obj.Component), EscapeValue(obj.Pin)}
		if obj.Signal != "" {
			fields = append(fields, EscapeValue(obj.Signal))
		}
		attrs = append(attrs, objectAttr(".P", fields...))
	}
	g.replaceObjectAttributes(attrs)
}

func (g *Generator) replaceObjectAttributes(attrs []attribute) {
	same := slices.EqualFunc(attrs, g.objectAttrs, func(a, b attribute) bool {
		return a.body() == b.body()
	})
	if same {
		return
	}
	if len(g.objectAttrs) > 0 {
		g.body.WriteString("%TD*%\n")
	}
	for _, a := range attrs {
		g.body.WriteString(a.gerber())
	}
	g.objectAttrs = attrs
}

func (g *Generator) move(p geometry.Point) {
	g.body.WriteString(coord(p) + "D02*\n")
}

// segment interpolates from v to the point p using the bulge of v.
func (g *Generator) segment(v geometry.Vertex, p geometry.Point) {
	if v.Angle == 0 || v.Pos == p {
		g.setInterpolation("G01")
		g.body.WriteString(coord(p) + "D01*\n")
		return
	}
	if v.Angle.Abs() >= 2*geometry.Deg180 {
		seg := geometry.Path{v, {Pos: p}}.FlattenedArcs(geometry.MaxArcTolerance)
		for _, s := range seg[1:] {
			g.segment(geometry.Vertex{Pos: v.Pos}, s.Pos)
			v = s
		}
		return
	}
	cx, cy := geometry.ArcCenter(v.Pos, p, v.Angle)
	i := int64(math.Round(cx)) - int64(v.Pos.X)
	j := int64(math.Round(cy)) - int64(v.Pos.Y)
	if v.Angle > 0 {
		g.setInterpolation("G03")
	} else {
		g.setInterpolation("G02")
	}
	fmt.Fprintf(&g.body, "%sI%dJ%dD01*\n", coord(p), i, j)
}

func (g *Generator) path(p geometry.Path) {
	g.move(p[0].Pos)
	for i := 1; i < len(p); i++ {
		g.segment(p[i-1], p[i].Pos)
	}
}

// DrawLine draws a straight stroke.
func (g *Generator) DrawLine(p1, p2 geometry.Point, width geometry.UnsignedLength, obj Object) {
	g.setObjectAttributes(obj)
	g.useAperture(circleAperture(width.Length(), obj.Function))
	g.move(p1)
	g.setInterpolation("G01")
	g.body.WriteString(coord(p2) + "D01*\n")
}

// DrawPathOutline strokes a path with a round aperture.
func (g *Generator) DrawPathOutline(path geometry.Path, width geometry.UnsignedLength, obj Object) {
	if len(path) < 2 {
		return
	}
	g.setObjectAttributes(obj)
	g.useAperture(circleAperture(width.Length(), obj.Function))
	g.path(path)
}

// DrawPathArea fills a path as region. Open paths are closed.
func (g *Generator) DrawPathArea(path geometry.Path, obj Object) {
	path = path.Closed()
	if len(path) < 3 {
		return
	}
	g.setObjectAttributes(obj)
	if obj.Function != FunctionNone {
		g.body.WriteString(apertureAttr(".AperFunction", obj.Function.String()).gerber())
	}
	g.body.WriteString("G36*\n")
	g.path(path)
	g.body.WriteString("G37*\n")
	if obj.Function != FunctionNone {
		g.body.WriteString("%TD.AperFunction*%\n")
	}
}

func (g *Generator) flash(pos geometry.Point, a aperture, obj Object) {
	g.setObjectAttributes(obj)
	g.useAperture(a)
	g.body.WriteString(coord(pos) + "D03*\n")
}

// FlashCircle flashes a round pad or via.
func (g *Generator) FlashCircle(pos geometry.Point, d geometry.PositiveLength, obj Object) {
	g.flash(pos, circleAperture(d.Length(), obj.Function), obj)
}

// FlashRect flashes a rectangle with rounded corners of radius r.
func (g *Generator) FlashRect(pos geometry.Point, w, h geometry.PositiveLength, r geometry.UnsignedLength, rot geometry.Angle, obj Object) {
	g.flash(pos, rectAperture(w, h, r, rot, obj.Function), obj)
}

// FlashObround flashes an obround.
func (g *Generator) FlashObround(pos geometry.Point, w, h geometry.PositiveLength, rot geometry.Angle, obj Object) {
	g.flash(pos, obroundAperture(w, h, rot, obj.Function), obj)
}

// FlashOctagon flashes an octagon with rounded corners of radius r.
func (g *Generator) FlashOctagon(pos geometry.Point, w, h geometry.PositiveLength, r geometry.UnsignedLength, rot geometry.Angle, obj Object) {
	g.flash(pos, octagonAperture(w, h, r, rot, obj.Function), obj)
}

// FlashOutline flashes an arbitrary outline given relative to pos.
func (g *Generator) FlashOutline(pos geometry.Point, outline geometry.Path, rot geometry.Angle, obj Object) error {
	if len(outline.Closed()) < 4 {
		return fmt.Errorf("failed to flash outline: %d vertices are not an area", len(outline))
	}
	g.flash(pos, outlineAperture("OUTLINE", outline, rot, obj.Function), obj)
	return nil
}

func (c Component) attributes() []attribute {
	attrs := []attribute{
		objectAttr(".C", EscapeValue(c.Designator)),
		objectAttr(".CRot", c.Rotation.Mapped0To360().DegString()),
	}
	if c.Manufacturer != "" {
		attrs = append(attrs, objectAttr(".CMfr", EscapeValue(c.Manufacturer)))
	}
	if c.MPN != "" {
		attrs = append(attrs, objectAttr(".CMPN", EscapeValue(c.MPN)))
	}
	if c.Value != "" {
		attrs = append(attrs, objectAttr(".CVal", EscapeValue(c.Value)))
	}
	attrs = append(attrs, objectAttr(".CMnt", c.Mount.String()))
	if c.Footprint != "" {
		attrs = append(attrs, objectAttr(".CFtp", EscapeValue(c.Footprint)))
	}
	return attrs
}

// FlashComponent flashes the center of a component on a component layer.
func (g *Generator) FlashComponent(pos geometry.Point, c Component) {
	g.replaceObjectAttributes(c.attributes())
	g.useAperture(circleAperture(geometry.Mm(0.3), FunctionComponentMain))
	g.body.WriteString(coord(pos) + "D03*\n")
}

// FlashComponentPin flashes a pin of a component. Pin 1 gets a diamond so
// it can be told apart.
func (g *Generator) FlashComponentPin(pos geometry.Point, c Component, pin, signal string, pin1 bool) {
	attrs := c.attributes()
	fields := []string{EscapeValue(c.Designator), EscapeValue(pin)}
	if signal != "" {
		fields = append(fields, EscapeValue(signal))
	}
	g.replaceObjectAttributes(append(attrs, objectAttr(".P", fields...)))
	if pin1 {
		g.useAperture(diamondAperture(geometry.Mm(0.36), FunctionComponentPin))
	} else {
		g.useAperture(circleAperture(0, FunctionComponentPin))
	}
	g.body.WriteString(coord(pos) + "D03*\n")
}

// DrawComponentOutline draws a closed body or courtyard outline of a
// component.
func (g *Generator) DrawComponentOutline(path geometry.Path, c Component, fn ApertureFunction) {
	if len(path) < 2 {
		return
	}
	g.replaceObjectAttributes(c.attributes())
	g.useAperture(circleAperture(0, fn))
	g.path(path)
}

// Generate assembles the file. Further drawing is not allowed afterwards.
func (g *Generator) Generate() {
	var b strings.Builder
	b.WriteString("G04 --- HEADER BEGIN --- *\n")
	for _, a := range g.header {
		b.WriteString(a.gerber())
	}
	if len(g.function) > 0 {
		b.WriteString(fileAttr(".FileFunction", g.function...).gerber())
	}
	if g.polarity != nil {
		b.WriteString(fileAttr(".FilePolarity", g.polarity.String()).gerber())
	}
	b.WriteString("%FSLAX66Y66*%\n%MOMM*%\nG01*\nG75*\n")
	b.WriteString("G04 --- HEADER END --- *\n")

	b.WriteString("G04 --- APERTURE LIST BEGIN --- *\n")
	g.apertures.write(&b)
	b.WriteString("G04 --- APERTURE LIST END --- *\n")

	b.WriteString("G04 --- BOARD BEGIN --- *\n")
	b.WriteString(g.body.String())
	if len(g.objectAttrs) > 0 {
		b.WriteString("%TD*%\n")
	}
	b.WriteString("G04 --- BOARD END --- *\n")

	content := b.String()
	sum := md5.Sum([]byte(strings.ReplaceAll(content, "\n", "")))
	b.WriteString(fileAttr(".MD5", hex.EncodeToString(sum[:])).gerber())
	b.WriteString("M02*\n")
	g.output = []byte(b.String())
}

// Bytes returns the generated file.
func (g *Generator) Bytes() []byte { return g.output }

// WriteTo writes the generated file.
func (g *Generator) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(g.output)
	return int64(n), err
}

// SaveToFile writes the generated file, creating parent directories.
func (g *Generator) SaveToFile(path string) error {
	return saveFile(path, g.output)
}

func saveFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
