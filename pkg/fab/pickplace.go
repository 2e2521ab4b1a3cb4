package fab

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/gerber"
)

// PickPlaceType is the mount type of a pick&place item.
type PickPlaceType int

const (
	PickPlaceTHT PickPlaceType = iota
	PickPlaceSMT
	PickPlaceMixed
	PickPlaceFiducial
	PickPlaceOther
)

func (t PickPlaceType) String() string {
	switch t {
	case PickPlaceTHT:
		return "THT"
	case PickPlaceSMT:
		return "SMT"
	case PickPlaceMixed:
		return "Mixed"
	case PickPlaceFiducial:
		return "Fiducial"
	}
	return "Other"
}

// PickPlaceItem is one mountable device.
type PickPlaceItem struct {
	Designator  string
	Value       string
	DeviceName  string
	PackageName string
	Position    geometry.Point
	Rotation    geometry.Angle
	Side        board.ComponentSide
	Type        PickPlaceType
}

// PickPlaceData holds the items of one board.
type PickPlaceData struct {
	ProjectName    string
	ProjectVersion string
	BoardName      string
	Items          []PickPlaceItem
}

// GeneratePickPlace collects the mountable devices of a board sorted by
// designator in natural order.
func GeneratePickPlace(p *board.Project, b *board.Board) *PickPlaceData {
	data := &PickPlaceData{ProjectName: p.Name, ProjectVersion: p.Version, BoardName: b.Name}
	for _, d := range b.Devices {
		var typ PickPlaceType
		switch d.ResolvedAssembly() {
		case board.AssemblyTHT:
			typ = PickPlaceTHT
		case board.AssemblySMT:
			typ = PickPlaceSMT
		case board.AssemblyMixed:
			typ = PickPlaceMixed
		case board.AssemblyOther:
			typ = PickPlaceOther
		default:
			continue
		}
		value := ""
		if b.Circuit != nil {
			if cmp := b.Circuit.Component(d.Component); cmp != nil {
				value = strings.TrimSpace(cmp.Value)
			}
		}
		side := board.SideTop
		if d.Mirrored {
			side = board.SideBottom
		}
		data.Items = append(data.Items, PickPlaceItem{
			Designator:  b.ComponentName(d),
			Value:       value,
			DeviceName:  d.DeviceName,
			PackageName: d.PackageName,
			Position:    d.Position,
			Rotation:    d.Rotation,
			Side:        side,
			Type:        typ,
		})
	}
	sortItems(data.Items)
	return data
}

func sortItems(items []PickPlaceItem) {
	c := collate.New(language.Und, collate.IgnoreCase, collate.Numeric)
	slices.SortStableFunc(items, func(a, b PickPlaceItem) int {
		return c.CompareString(a.Designator, b.Designator)
	})
}

// PickPlaceCSV writes the items of one board side as CSV with a metadata
// comment block.
type PickPlaceCSV struct {
	Data    *PickPlaceData
	Side    board.ComponentSide
	Created time.Time
}

func sideName(s board.ComponentSide) string {
	if s == board.SideBottom {
		return "Bottom"
	}
	return "Top"
}

// Write writes the CSV file.
func (w PickPlaceCSV) Write(out io.Writer) error {
	meta := [][2]string{
		{"Project Name", w.Data.ProjectName},
		{"Project Version", w.Data.ProjectVersion},
		{"Board Name", w.Data.BoardName},
		{"Generation Software", gerber.SoftwareName + " " + gerber.SoftwareVersion},
		{"Generation Date", w.Created.Format(time.RFC3339)},
		{"Unit", "mm"},
		{"Rotation", "Degrees CCW"},
		{"Board Side", sideName(w.Side)},
		{"Supported Types", "THT, SMT, Mixed, Fiducial, Other"},
	}
	for _, m := range meta {
		if _, err := fmt.Fprintf(out, "# %-20s %s\n", m[0]+":", m[1]); err != nil {
			return fmt.Errorf("failed to write pick&place header: %w", err)
		}
	}
	if _, err := io.WriteString(out, "\n"); err != nil {
		return fmt.Errorf("failed to write pick&place header: %w", err)
	}

	cw := csv.NewWriter(out)
	records := [][]string{{"Designator", "Value", "Device", "Package", "Position X", "Position Y", "Rotation", "Side", "Type"}}
	for _, it := range w.Data.Items {
		if it.Side != w.Side {
			continue
		}
		records = append(records, []string{
			it.Designator,
			it.Value,
			it.DeviceName,
			it.PackageName,
			it.Position.X.MmString(),
			it.Position.Y.MmString(),
			it.Rotation.Mapped0To360().DegString(),
			sideName(it.Side),
			it.Type.String(),
		})
	}
	if err := cw.WriteAll(records); err != nil {
		return fmt.Errorf("failed to write pick&place data: %w", err)
	}
	return nil
}

// SaveToFile writes the CSV file, creating parent directories.
func (w PickPlaceCSV) SaveToFile(path string) error {
	var b strings.Builder
	if err := w.Write(&b); err != nil {
		return err
	}
	return writeFile(path, []byte(b.String()))
}
