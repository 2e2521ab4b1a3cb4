package board

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/clipping"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

func smtPad(side ComponentSide) *Pad {
	return &Pad{
		ID:          id(1),
		Shape:       PadRoundedRect,
		Width:       geometry.MustPositive(geometry.Mm(1)),
		Height:      geometry.MustPositive(geometry.Mm(2)),
		Side:        side,
		StopMask:    MaskAuto,
		SolderPaste: MaskAuto,
	}
}

func thtPad() *Pad {
	p := smtPad(SideTop)
	p.Width = geometry.MustPositive(geometry.Mm(2))
	p.Holes = []PadHole{{ID: id(2), Drill: Drill{
		Diameter: geometry.MustPositive(geometry.Mm(1)),
		Path:     geometry.NewPath(geometry.Point{}),
	}}}
	return p
}

func TestPadLayers(t *testing.T) {
	rules := DefaultDesignRules()
	tests := []struct {
		name  string
		pad   *Pad
		layer *Layer
		want  int
	}{
		{"smt top on top copper", smtPad(SideTop), TopCopper, 1},
		{"smt top on bottom copper", smtPad(SideTop), BotCopper, 0},
		{"smt top on inner copper", smtPad(SideTop), InnerCopper(1), 0},
		{"smt bottom on bottom copper", smtPad(SideBottom), BotCopper, 1},
		{"smt top stop mask", smtPad(SideTop), TopStopMask, 1},
		{"smt top no bottom stop mask", smtPad(SideTop), BotStopMask, 0},
		{"smt top paste", smtPad(SideTop), TopSolderPaste, 1},
		{"smt top no bottom paste", smtPad(SideTop), BotSolderPaste, 0},
		{"tht top copper", thtPad(), TopCopper, 1},
		{"tht bottom copper", thtPad(), BotCopper, 1},
		{"tht inner ring", thtPad(), InnerCopper(2), 1},
		{"tht both stop masks", thtPad(), BotStopMask, 1},
		{"tht no paste on own side", thtPad(), TopSolderPaste, 0},
		{"tht paste on other side", thtPad(), BotSolderPaste, 1},
		{"silkscreen", smtPad(SideTop), TopNames, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, tt.pad.Geometries(tt.layer, rules), tt.want)
		})
	}
}

func TestPadMaskOffsets(t *testing.T) {
	rules := DefaultDesignRules()
	p := smtPad(SideTop)

	mask := p.Geometries(TopStopMask, rules)
	require.Len(t, mask, 1)
	assert.Equal(t, geometry.Mm(1.2), mask[0].Width)
	assert.Equal(t, geometry.Mm(2.2), mask[0].Height)

	// 10% of the smaller size, shrunk on every side.
	paste := p.Geometries(TopSolderPaste, rules)
	require.Len(t, paste, 1)
	assert.Equal(t, geometry.Mm(0.8), paste[0].Width)
	assert.Equal(t, geometry.Mm(1.8), paste[0].Height)
	assert.Empty(t, paste[0].Holes)

	p.StopMask = MaskManual(geometry.Mm(0.05))
	mask = p.Geometries(TopStopMask, rules)
	assert.Equal(t, geometry.Mm(1.1), mask[0].Width)

	p.SolderPaste = MaskOff
	assert.Empty(t, p.Geometries(TopSolderPaste, rules))
}

func TestInnerLayerRing(t *testing.T) {
	rules := DefaultDesignRules()
	p := thtPad()

	rings := p.Geometries(InnerCopper(1), rules)
	require.Len(t, rings, 1)
	assert.Equal(t, GeometryStroke, rings[0].Shape)
	// 1 mm drill + 2 * max(25% of 1 mm, 0.25 mm)
	assert.Equal(t, geometry.Mm(1.5), rings[0].Width)
	require.Len(t, rings[0].ToOutlines(), 1)

	rules.InnerPadsFullShape = true
	full := p.Geometries(InnerCopper(1), rules)
	require.Len(t, full, 1)
	assert.Equal(t, GeometryRoundedRect, full[0].Shape)
}

func TestPadGeometryOffset(t *testing.T) {
	g := smtPad(SideTop).Geometry()

	grown, err := g.WithOffset(geometry.Mm(0.1))
	require.NoError(t, err)
	assert.Equal(t, geometry.Mm(0.1), grown.CornerRadius)
	require.Len(t, grown.ToOutlines(), 1)

	shrunk, err := g.WithOffset(-geometry.Mm(0.5))
	require.NoError(t, err)
	assert.Empty(t, shrunk.ToOutlines(), "fully shrunk pad has no outline")

	custom := PadGeometry{
		Shape:    GeometryCustom,
		Outlines: []geometry.Path{geometry.Rect(geometry.Pt(0, 0), geometry.Pt(geometry.Mm(1), geometry.Mm(1)))},
	}
	grown, err = custom.WithOffset(geometry.Mm(0.1))
	require.NoError(t, err)
	require.Len(t, grown.ToOutlines(), 1)
	shrunk, err = custom.WithOffset(-geometry.Mm(0.6))
	require.NoError(t, err)
	assert.Empty(t, shrunk.ToOutlines())
}

// outOfRange lies beyond the coordinate range of the polygon clipper.
const outOfRange = geometry.Length(math.MaxInt64/2 + 1e15)

func TestPadGeometryOffsetError(t *testing.T) {
	custom := PadGeometry{
		Shape:    GeometryCustom,
		Outlines: []geometry.Path{geometry.Rect(geometry.Pt(0, 0), geometry.Pt(outOfRange, outOfRange))},
	}
	_, err := custom.WithOffset(geometry.Mm(0.1))
	require.ErrorIs(t, err, clipping.ErrClipper)

	b := NewBoard(id(1000), "b", &Circuit{})
	maskOffset := geometry.Mm(0.1)
	p := &Pad{
		ID:            id(1),
		Shape:         PadCustom,
		Width:         geometry.MustPositive(geometry.Mm(1)),
		Height:        geometry.MustPositive(geometry.Mm(1)),
		CustomOutline: custom.Outlines[0],
		StopMask:      MaskConfig{Enabled: true, Offset: &maskOffset},
	}
	d := &Device{Component: id(10), Pads: []*Pad{p}}
	b.Devices = []*Device{d}
	b.Reindex()

	assert.Empty(t, b.PadGeometries(d, p, TopStopMask), "failed shape is left out")

	g := NewPathGenerator(b)
	g.AddPad(d, p, TopCopper, geometry.Mm(0.1))
	_, err = g.Paths()
	assert.ErrorIs(t, err, clipping.ErrClipper)
}

func TestMirroredDevicePad(t *testing.T) {
	b := NewBoard(id(1000), "b", &Circuit{})
	d := &Device{Component: id(101), Mirrored: true, Pads: []*Pad{smtPad(SideTop)}}
	b.Devices = append(b.Devices, d)
	b.Reindex()

	p := d.Pads[0]
	assert.False(t, b.PadIsOnLayer(d, p, TopCopper))
	assert.True(t, b.PadIsOnLayer(d, p, BotCopper))
	assert.Len(t, b.PadGeometries(d, p, BotStopMask), 1)
	assert.Empty(t, b.PadGeometries(d, p, TopStopMask))
}

func TestViaStopMask(t *testing.T) {
	b := NewBoard(id(1000), "b", &Circuit{})
	v := &Via{
		Size:     geometry.MustPositive(geometry.Mm(0.7)),
		Drill:    geometry.MustPositive(geometry.Mm(0.3)),
		StopMask: MaskAuto,
	}
	assert.Nil(t, b.ViaStopMaskOffset(v), "small vias are tented")

	v.Drill = geometry.MustPositive(geometry.Mm(0.6))
	v.Size = geometry.MustPositive(geometry.Mm(1.2))
	off := b.ViaStopMaskOffset(v)
	require.NotNil(t, off)
	assert.Equal(t, geometry.Mm(0.1), *off)

	v.StopMask = MaskOff
	assert.Nil(t, b.ViaStopMaskOffset(v))
}
