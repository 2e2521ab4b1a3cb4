package fab

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

func TestGeneratePickPlace(t *testing.T) {
	p, b := loadDemo(t)
	data := GeneratePickPlace(p, b)

	want := &PickPlaceData{
		ProjectName:    "Demo Board",
		ProjectVersion: "1.0",
		BoardName:      "default",
		Items: []PickPlaceItem{
			{
				Designator: "C1", Value: "100n", DeviceName: "Capacitor THT", PackageName: "C_Disc_2.54",
				Position: geometry.Pt(geometry.Mm(30), geometry.Mm(10)), Side: board.SideTop, Type: PickPlaceTHT,
			},
			{
				Designator: "R1", Value: "10k", DeviceName: "Resistor 0603", PackageName: "R0603",
				Position: geometry.Pt(geometry.Mm(10), geometry.Mm(10)), Side: board.SideTop, Type: PickPlaceSMT,
			},
		},
	}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("pick&place mismatch (-want +got):\n%s", diff)
	}
}

func TestGeneratePickPlaceSkipsUnmounted(t *testing.T) {
	p, b := loadDemo(t)
	b.Devices[0].Assembly = board.AssemblyNone
	b.Devices[1].Mirrored = true
	b.Devices[1].Rotation = geometry.Deg90

	data := GeneratePickPlace(p, b)
	require.Len(t, data.Items, 1)
	assert.Equal(t, "C1", data.Items[0].Designator)
	assert.Equal(t, board.SideBottom, data.Items[0].Side)
	assert.Equal(t, geometry.Deg90, data.Items[0].Rotation)
}

func TestNaturalDesignatorOrder(t *testing.T) {
	data := &PickPlaceData{Items: []PickPlaceItem{{Designator: "R10"}, {Designator: "r2"}, {Designator: "C1"}, {Designator: "R1"}}}
	sortItems(data.Items)
	var got []string
	for _, it := range data.Items {
		got = append(got, it.Designator)
	}
	assert.Equal(t, []string{"C1", "R1", "r2", "R10"}, got)
}

func TestPickPlaceCSV(t *testing.T) {
	data := &PickPlaceData{
		ProjectName:    "Demo Board",
		ProjectVersion: "1.0",
		BoardName:      "default",
		Items: []PickPlaceItem{
			{
				Designator: "R1", Value: "10k, 1%", DeviceName: "Resistor 0603", PackageName: "R0603",
				Position: geometry.Pt(geometry.Mm(10), geometry.Mm(-2.5)), Rotation: -geometry.Deg90,
				Side: board.SideTop, Type: PickPlaceSMT,
			},
			{Designator: "U1", Side: board.SideBottom, Type: PickPlaceMixed},
		},
	}
	var out strings.Builder
	require.NoError(t, PickPlaceCSV{Data: data, Side: board.SideTop, Created: created}.Write(&out))

	want := "" +
		"# Project Name:        Demo Board\n" +
		"# Project Version:     1.0\n" +
		"# Board Name:          default\n" +
		"# Generation Software: OpenTraceFab 0.1.0\n" +
		"# Generation Date:     2024-05-01T12:30:00Z\n" +
		"# Unit:                mm\n" +
		"# Rotation:            Degrees CCW\n" +
		"# Board Side:          Top\n" +
		"# Supported Types:     THT, SMT, Mixed, Fiducial, Other\n" +
		"\n" +
		"Designator,Value,Device,Package,Position X,Position Y,Rotation,Side,Type\n" +
		"R1,\"10k, 1%\",Resistor 0603,R0603,10,-2.5,270,Top,SMT\n"
	if diff := cmp.Diff(want, out.String()); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}

	path := filepath.Join(t.TempDir(), "pnp", "bot.csv")
	require.NoError(t, PickPlaceCSV{Data: data, Side: board.SideBottom, Created: created}.SaveToFile(path))
	content := readFile(t, path)
	assert.Contains(t, content, "# Board Side:          Bottom\n")
	assert.True(t, strings.HasSuffix(content, "U1,,,,0,0,0,Bottom,Mixed\n"), content)
}
