package gerber

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// Software identifies the generator in the file attributes.
var (
	SoftwareVendor  = "OpenTraceLab"
	SoftwareName    = "OpenTraceFab"
	SoftwareVersion = "0.1.0"
)

// ApertureFunction is the value of the .AperFunction attribute. The zero
// value means no function.
type ApertureFunction int

const (
	FunctionNone ApertureFunction = iota
	FunctionProfile
	FunctionConductor
	FunctionNonConductor
	FunctionViaPad
	FunctionComponentPad
	FunctionSmdPadCopperDefined
	FunctionComponentMain
	FunctionComponentPin
	FunctionComponentOutlineBody
	FunctionComponentOutlineCourtyard
	FunctionMechanicalDrill
	FunctionComponentDrill
	FunctionViaDrill
)

var functionNames = []string{
	FunctionNone:                      "",
	FunctionProfile:                   "Profile",
	FunctionConductor:                 "Conductor",
	FunctionNonConductor:              "NonConductor",
	FunctionViaPad:                    "ViaPad",
	FunctionComponentPad:              "ComponentPad",
	FunctionSmdPadCopperDefined:       "SMDPad,CuDef",
	FunctionComponentMain:             "ComponentMain",
	FunctionComponentPin:              "ComponentPin",
	FunctionComponentOutlineBody:      "ComponentOutline,Body",
	FunctionComponentOutlineCourtyard: "ComponentOutline,Courtyard",
	FunctionMechanicalDrill:           "MechanicalDrill",
	FunctionComponentDrill:            "ComponentDrill",
	FunctionViaDrill:                  "ViaDrill",
}

func (f ApertureFunction) String() string { return functionNames[f] }

// Polarity of a file or of the following objects.
type Polarity int

const (
	Positive Polarity = iota
	Negative
)

func (p Polarity) String() string {
	if p == Negative {
		return "Negative"
	}
	return "Positive"
}

// Side of a copper, mask, legend or paste layer.
type Side int

const (
	Top Side = iota
	Inner
	Bottom
)

func (s Side) String() string {
	switch s {
	case Inner:
		return "Inr"
	case Bottom:
		return "Bot"
	}
	return "Top"
}

// MountType is the .CMnt value of a component.
type MountType int

const (
	MountTHT MountType = iota
	MountSMD
	MountFiducial
	MountOther
)

func (m MountType) String() string {
	switch m {
	case MountTHT:
		return "TH"
	case MountSMD:
		return "SMD"
	case MountFiducial:
		return "Fiducial"
	}
	return "Other"
}

// EscapeValue makes s usable as an attribute field. The reserved
// characters are replaced by \u escapes.
func EscapeValue(s string) string {
	s = norm.NFC.String(strings.TrimSpace(s))
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '%':
			b.WriteString(`\u0025`)
		case '*':
			b.WriteString(`\u002A`)
		case ',':
			b.WriteString(`\u002C`)
		case '\\':
			b.WriteString(`\u005C`)
		case '\n', '\r', '\t':
			b.WriteByte(' ')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// attribute is one X2 attribute: a kind letter (F file, A aperture, O
// object), a name and its fields.
type attribute struct {
	kind   byte
	name   string
	fields []string
}

func fileAttr(name string, fields ...string) attribute {
	return attribute{kind: 'F', name: name, fields: fields}
}

func apertureAttr(name string, fields ...string) attribute {
	return attribute{kind: 'A', name: name, fields: fields}
}

func objectAttr(name string, fields ...string) attribute {
	return attribute{kind: 'O', name: name, fields: fields}
}

func (a attribute) body() string {
	var b strings.Builder
	b.WriteString("T")
	b.WriteByte(a.kind)
	b.WriteString(a.name)
	for _, f := range a.fields {
		b.WriteByte(',')
		b.WriteString(f)
	}
	return b.String()
}

// gerber returns the attribute as an extended command.
func (a attribute) gerber() string { return "%" + a.body() + "*%\n" }

// excellon returns the attribute as an Excellon comment.
func (a attribute) excellon() string { return "; #@! " + a.body() + "\n" }

// fileHeaderAttributes are written to both Gerber and Excellon files.
func fileHeaderAttributes(created time.Time, projectName string, projectID uuid.UUID, projectVersion string) []attribute {
	return []attribute{
		fileAttr(".GenerationSoftware", EscapeValue(SoftwareVendor), EscapeValue(SoftwareName), EscapeValue(SoftwareVersion)),
		fileAttr(".CreationDate", created.Format("2006-01-02T15:04:05-07:00")),
		fileAttr(".ProjectId", EscapeValue(projectName), projectID.String(), EscapeValue(projectVersion)),
		fileAttr(".Part", "Single"),
		fileAttr(".SameCoordinates"),
	}
}
