package gerber

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

// Plating of the holes in an Excellon file.
type Plating int

const (
	PlatingYes Plating = iota
	PlatingNo
	PlatingMixed
)

type tool struct {
	diameter geometry.PositiveLength
	plated   bool
	function ApertureFunction
}

func (t tool) less(o tool) bool {
	if t.diameter != o.diameter {
		return t.diameter < o.diameter
	}
	if t.plated != o.plated {
		return t.plated
	}
	return t.function < o.function
}

// ExcellonGenerator builds one Excellon drill file.
type ExcellonGenerator struct {
	header  []attribute
	plating Plating
	g85     bool

	// Copper layer span of the holes, 1 = top.
	fromLayer, toLayer int

	drills map[tool][]geometry.Path
	output []byte
}

// NewExcellonGenerator returns an empty drill file generator for holes
// spanning the copper layers fromLayer..toLayer (1 = top).
func NewExcellonGenerator(created time.Time, projectName string, projectID uuid.UUID, projectVersion string,
	plating Plating, fromLayer, toLayer int) *ExcellonGenerator {
	return &ExcellonGenerator{
		header:    fileHeaderAttributes(created, projectName, projectID, projectVersion),
		plating:   plating,
		fromLayer: fromLayer,
		toLayer:   toLayer,
		drills:    map[tool][]geometry.Path{},
	}
}

// SetUseG85Slots selects G85 slot commands instead of routed slots.
func (e *ExcellonGenerator) SetUseG85Slots(on bool) { e.g85 = on }

// Drill adds a hole. A path with one vertex is a round drill, longer paths
// are slots.
func (e *ExcellonGenerator) Drill(path geometry.Path, d geometry.PositiveLength, plated bool, fn ApertureFunction) {
	if len(path) == 0 {
		return
	}
	t := tool{diameter: d, plated: plated, function: fn}
	e.drills[t] = append(e.drills[t], path)
}

// IsEmpty reports whether no hole was added.
func (e *ExcellonGenerator) IsEmpty() bool { return len(e.drills) == 0 }

func (e *ExcellonGenerator) fileFunction() attribute {
	from, to := strconv.Itoa(e.fromLayer), strconv.Itoa(e.toLayer)
	switch e.plating {
	case PlatingNo:
		return fileAttr(".FileFunction", "NonPlated", from, to, "NPTH")
	case PlatingMixed:
		return fileAttr(".FileFunction", "MixedPlating", from, to)
	}
	return fileAttr(".FileFunction", "Plated", from, to, "PTH")
}

func excellonCoord(p geometry.Point) string {
	return "X" + p.X.MmString() + "Y" + p.Y.MmString()
}

func (e *ExcellonGenerator) slot(b *strings.Builder, path geometry.Path) {
	path = path.FlattenedArcs(geometry.MaxArcTolerance)
	if e.g85 && len(path) == 2 {
		b.WriteString(excellonCoord(path[0].Pos) + "G85" + excellonCoord(path[1].Pos) + "\n")
		return
	}
	b.WriteString("G00" + excellonCoord(path[0].Pos) + "\nM15\n")
	for _, v := range path[1:] {
		b.WriteString("G01" + excellonCoord(v.Pos) + "\n")
	}
	b.WriteString("M16\nG05\n")
}

// Generate assembles the file.
func (e *ExcellonGenerator) Generate() {
	tools := make([]tool, 0, len(e.drills))
	for t := range e.drills {
		tools = append(tools, t)
	}
	sort.Slice(tools, func(i, j int) bool { return tools[i].less(tools[j]) })

	var b strings.Builder
	b.WriteString("M48\n")
	for _, a := range e.header {
		b.WriteString(a.excellon())
	}
	b.WriteString(e.fileFunction().excellon())
	b.WriteString("FMAT,2\nMETRIC,TZ\n")
	for i, t := range tools {
		plating, kind := "NonPlated", "NPTH"
		if t.plated {
			plating, kind = "Plated", "PTH"
		}
		fields := []string{plating, kind}
		if t.function != FunctionNone {
			fields = append(fields, t.function.String())
		}
		b.WriteString(apertureAttr(".AperFunction", fields...).excellon())
		fmt.Fprintf(&b, "T%dC%s\n", i+1, t.diameter.Length().MmString())
	}
	b.WriteString("%\nG90\nG05\n")
	for i, t := range tools {
		fmt.Fprintf(&b, "T%d\n", i+1)
		for _, p := range e.drills[t] {
			if len(p) == 1 {
				b.WriteString(excellonCoord(p[0].Pos) + "\n")
			} else {
				e.slot(&b, p)
			}
		}
	}
	b.WriteString("T0\nM30\n")
	e.output = []byte(b.String())
}

// Bytes returns the generated file.
func (e *ExcellonGenerator) Bytes() []byte { return e.output }

// WriteTo writes the generated file.
func (e *ExcellonGenerator) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e.output)
	return int64(n), err
}

// SaveToFile writes the generated file, creating parent directories.
func (e *ExcellonGenerator) SaveToFile(path string) error {
	return saveFile(path, e.output)
}
