package gerber

import (
	"fmt"
	"strings"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// aperture is one aperture definition. Macro apertures carry the body of
// their outline macro; the macro name is derived from kind and D code.
type aperture struct {
	kind     string // C, R, O, P or the macro kind
	params   string
	macro    string
	function ApertureFunction
}

func (a aperture) key() string {
	return a.kind + "|" + a.params + "|" + a.macro + "|" + a.function.String()
}

// apertureList deduplicates apertures and assigns D codes from 10 on.
type apertureList struct {
	items []aperture
	index map[string]int
}

func newApertureList() *apertureList {
	return &apertureList{index: map[string]int{}}
}

func (l *apertureList) add(a aperture) int {
	k := a.key()
	if i, ok := l.index[k]; ok {
		return i + 10
	}
	l.items = append(l.items, a)
	l.index[k] = len(l.items) - 1
	return len(l.items) + 9
}

func (l *apertureList) write(b *strings.Builder) {
	for i, a := range l.items {
		code := i + 10
		if a.function != FunctionNone {
			b.WriteString(apertureAttr(".AperFunction", a.function.String()).gerber())
		}
		if a.macro != "" {
			name := fmt.Sprintf("%s%d", a.kind, code)
			fmt.Fprintf(b, "%%AM%s*\n%s*%%\n", name, a.macro)
			fmt.Fprintf(b, "%%ADD%d%s*%%\n", code, name)
		} else {
			fmt.Fprintf(b, "%%ADD%d%s,%s*%%\n", code, a.kind, a.params)
		}
		if a.function != FunctionNone {
			b.WriteString("%TD*%\n")
		}
	}
}

func mm(l geometry.Length) string { return l.MmString() }

// rightAngle returns the number of quarter turns if rot is a multiple of
// 90 degrees.
func rightAngle(rot geometry.Angle) (int, bool) {
	r := rot.Mapped0To360()
	if r%geometry.Deg90 != 0 {
		return 0, false
	}
	return int(r / geometry.Deg90), true
}

func circleAperture(d geometry.Length, fn ApertureFunction) aperture {
	return aperture{kind: "C", params: mm(d), function: fn}
}

func rectAperture(w, h geometry.PositiveLength, r geometry.UnsignedLength, rot geometry.Angle, fn ApertureFunction) aperture {
	if q, ok := rightAngle(rot); ok && r == 0 {
		if q%2 == 1 {
			w, h = h, w
		}
		return aperture{kind: "R", params: mm(w.Length()) + "X" + mm(h.Length()), function: fn}
	}
	kind := "ROTATEDRECT"
	if r > 0 {
		kind = "ROUNDEDRECT"
	}
	return outlineAperture(kind, geometry.CenteredRect(w, h, r), rot, fn)
}

func obroundAperture(w, h geometry.PositiveLength, rot geometry.Angle, fn ApertureFunction) aperture {
	if q, ok := rightAngle(rot); ok {
		if q%2 == 1 {
			w, h = h, w
		}
		return aperture{kind: "O", params: mm(w.Length()) + "X" + mm(h.Length()), function: fn}
	}
	return outlineAperture("ROTATEDOBROUND", geometry.Obround(w, h), rot, fn)
}

func octagonAperture(w, h geometry.PositiveLength, r geometry.UnsignedLength, rot geometry.Angle, fn ApertureFunction) aperture {
	return outlineAperture("OCTAGON", geometry.Octagon(w, h, r), rot, fn)
}

// outlineAperture builds an outline primitive macro from a closed path
// centered at the flash position. Arcs are flattened.
func outlineAperture(kind string, path geometry.Path, rot geometry.Angle, fn ApertureFunction) aperture {
	p := path.FlattenedArcs(geometry.MaxArcTolerance).Rotated(rot, geometry.Point{}).Closed()
	var b strings.Builder
	fmt.Fprintf(&b, "4,1,%d,", len(p)-1)
	for _, v := range p {
		fmt.Fprintf(&b, "%s,%s,", mm(v.Pos.X), mm(v.Pos.Y))
	}
	b.WriteString("0")
	return aperture{kind: kind, macro: b.String(), function: fn}
}

// diamondAperture marks pin 1 on component layers.
func diamondAperture(d geometry.Length, fn ApertureFunction) aperture {
	return aperture{kind: "P", params: mm(d) + "X4X0", function: fn}
}
