package board

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/sexp"
)

func id(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
}

func loadDemo(t *testing.T) (*Project, *Board) {
	t.Helper()
	p, err := LoadProject("testdata/demo.otfp")
	require.NoError(t, err)
	require.Len(t, p.Boards, 1)
	return p, p.Boards[0]
}

func TestLoadProject(t *testing.T) {
	p, b := loadDemo(t)

	assert.Equal(t, "Demo Board", p.Name)
	assert.Equal(t, "1.0", p.Version)
	assert.NotEmpty(t, p.Dir)
	assert.Len(t, p.Circuit.Nets, 2)
	assert.Len(t, p.Circuit.Components, 3)

	assert.Equal(t, "default", b.Name)
	assert.Len(t, b.Devices, 2)
	assert.Len(t, b.NetSegments, 1)
	assert.Len(t, b.Planes, 1)
	assert.Len(t, b.Polygons, 1)
	assert.Len(t, b.Holes, 1)
	assert.Contains(t, b.DRCSettings, "min_copper_copper_clearance")
	require.Len(t, b.Approvals, 1)
	assert.True(t, strings.HasPrefix(b.Approvals[0], "(approved minimum_copper_width"))

	r1 := b.Device(id(101))
	require.NotNil(t, r1)
	assert.Equal(t, "R1", b.ComponentName(r1))
	assert.Equal(t, AssemblySMT, r1.ResolvedAssembly())
	assert.Equal(t, "VCC", b.NetName(b.PadNet(r1, r1.Pads[0])))
	assert.Equal(t, "GND", b.NetName(b.PadNet(r1, r1.Pads[1])))

	c1 := b.Device(id(201))
	require.NotNil(t, c1)
	assert.Equal(t, AssemblyTHT, c1.ResolvedAssembly())
	assert.Equal(t, PadRoundedOctagon, c1.Pads[1].Shape)
	assert.Nil(t, p.Circuit.Component(id(201)).DefaultDevice)

	logo := p.Circuit.Component(id(601))
	require.NotNil(t, logo)
	assert.True(t, logo.SchematicOnly)
	assert.Nil(t, b.Device(id(601)))

	seg := b.NetSegment(id(3001))
	require.NotNil(t, seg)
	pos, ok := b.AnchorPosition(seg, seg.Traces[0].Start)
	require.True(t, ok)
	assert.Equal(t, geometry.Pt(geometry.Mm(9), geometry.Mm(10)), pos)
	assert.Len(t, b.PadTraces(c1, c1.Pads[0]), 1)
	assert.Len(t, seg.JunctionTraces(id(3011)), 2)
}

func TestParseProjectErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong root", `(kicad_pcb "x")`},
		{"missing board name", `(opentracefab_project "p" (board 00000000-0000-4000-8000-000000001000))`},
		{"bad layer", `(opentracefab_project "p" (board 00000000-0000-4000-8000-000000001000 (name "b")
			(polygon 00000000-0000-4000-8000-000000002001 (layer no_such_layer) (width 0) (vertex (position 0 0)))))`},
		{"trace on silkscreen", `(opentracefab_project "p" (board 00000000-0000-4000-8000-000000001000 (name "b")
			(netsegment 00000000-0000-4000-8000-000000003001 (net none)
			 (trace 00000000-0000-4000-8000-000000003031 (layer top_names) (width 0.2)
			  (from (junction 00000000-0000-4000-8000-000000003011)) (to (junction 00000000-0000-4000-8000-000000003012))))))`},
		{"zero via drill", `(opentracefab_project "p" (board 00000000-0000-4000-8000-000000001000 (name "b")
			(netsegment 00000000-0000-4000-8000-000000003001 (net none)
			 (via 00000000-0000-4000-8000-000000003021 (position 0 0) (size 0.6) (drill 0)))))`},
		{"too many inner layers", `(opentracefab_project "p" (board 00000000-0000-4000-8000-000000001000 (name "b") (inner_layers 63)))`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProject(strings.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestParseProjectUnknownLayerError(t *testing.T) {
	_, err := ParseProject(strings.NewReader(`(opentracefab_project "p" (board 00000000-0000-4000-8000-000000001000 (name "b")
		(hole 00000000-0000-4000-8000-000000005001 (diameter 1) (vertex (position 0 0)))
		(polygon 00000000-0000-4000-8000-000000002001 (layer in63_cu) (width 0) (vertex (position 0 0)))))`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownLayer))
}

func TestParseProjectPadOutOfRange(t *testing.T) {
	tests := []struct {
		name    string
		device  string
		pad     string
		wantErr bool
	}{
		{"inside range", "2000000000000 0", "1.0 0.0", false},
		{"sum beyond range", "2000000000000 0", "1000000000000 0", true},
		{"rotated back into range", "0 2000000000000) (rotation 90.0", "0 1000000000000", false},
		{"mirrored back into range", "2000000000000 0) (mirror true", "1000000000000 0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseProject(strings.NewReader(`(opentracefab_project "p" (board 00000000-0000-4000-8000-000000001000 (name "b")
				(device 00000000-0000-4000-8000-000000000101 (position ` + tt.device + `)
				 (pad 00000000-0000-4000-8000-000000000121 (name "1") (position ` + tt.pad + `)
				  (shape roundrect) (size 1.0 1.2) (radius 0.0) (side top)))))`))
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, geometry.ErrOverflow)
		})
	}
}

func TestParseMask(t *testing.T) {
	tests := []struct {
		input string
		want  MaskConfig
	}{
		{"(stop_mask off)", MaskOff},
		{"(stop_mask auto)", MaskAuto},
		{"(stop_mask 0.05)", MaskManual(geometry.Mm(0.05))},
		{"(stop_mask -0.1)", MaskManual(geometry.Mm(-0.1))},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			nodes, err := sexp.ParseString(tt.input)
			require.NoError(t, err)
			got, err := parseMask(nodes[0].(*sexp.List))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
