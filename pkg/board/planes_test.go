package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/clipping"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

func mm(x, y float64) geometry.Point {
	return geometry.Pt(geometry.Mm(x), geometry.Mm(y))
}

func TestRebuildPlanes(t *testing.T) {
	_, b := loadDemo(t)
	require.NoError(t, b.RebuildPlanes())

	plane := b.Planes[0]
	require.NotEmpty(t, plane.Fragments)
	frags := clipping.FromPaths(plane.Fragments, geometry.MaxArcTolerance)

	tests := []struct {
		name   string
		pt     geometry.Point
		inside bool
	}{
		{"open area", mm(25, 30), true},
		{"same net tht pad", mm(31.27, 10), true},
		{"other net tht pad", mm(28.73, 10), false},
		{"other net via", mm(25, 5), false},
		{"other net bottom trace", mm(26.865, 7.5), false},
		{"npth", mm(45, 35), false},
		{"board edge clearance", mm(0.1, 20), false},
		{"outside board", mm(60, 20), false},
		{"top layer smt pad does not cut", mm(9, 10), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.inside, clipping.Contains(frags, tt.pt))
		})
	}
}

func TestRebuildPlanesRemovesOrphans(t *testing.T) {
	_, b := loadDemo(t)
	c1 := b.Device(id(201))
	c1.Pads[1].Signal = nil // GND pad disconnected: nothing ties the plane to GND

	require.NoError(t, b.RebuildPlanes())
	assert.Empty(t, b.Planes[0].Fragments)

	b.Planes[0].KeepOrphans = true
	require.NoError(t, b.RebuildPlanes())
	assert.NotEmpty(t, b.Planes[0].Fragments)
}

func TestRebuildPlanesPriority(t *testing.T) {
	_, b := loadDemo(t)
	vcc := id(2)
	high := &Plane{
		ID:           id(4002),
		Net:          vcc,
		Layer:        BotCopper,
		Priority:     1,
		MinClearance: geometry.MustUnsigned(geometry.Mm(0.3)),
		KeepOrphans:  true,
		Outline:      geometry.Rect(mm(35, 20), mm(45, 30)),
	}
	b.Planes = append(b.Planes, high)
	require.NoError(t, b.RebuildPlanes())

	require.NotEmpty(t, high.Fragments)
	gnd := clipping.FromPaths(b.Planes[0].Fragments, geometry.MaxArcTolerance)
	assert.False(t, clipping.Contains(gnd, mm(40, 25)), "lower priority plane keeps clear")
	assert.True(t, clipping.Contains(gnd, mm(30, 25)))
}

func TestRebuildPlanesEqualPriority(t *testing.T) {
	tests := []struct {
		name     string
		vccID    int
		vccFirst bool
		vccWins  bool
	}{
		{"larger uuid appended", 4002, false, true},
		{"larger uuid prepended", 4002, true, true},
		{"smaller uuid appended", 4000, false, false},
		{"smaller uuid prepended", 4000, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, b := loadDemo(t)
			gnd := b.Planes[0]
			vcc := &Plane{
				ID:           id(tt.vccID),
				Net:          id(2),
				Layer:        BotCopper,
				Priority:     gnd.Priority,
				MinClearance: geometry.MustUnsigned(geometry.Mm(0.3)),
				KeepOrphans:  true,
				Outline:      geometry.Rect(mm(35, 20), mm(45, 30)),
			}
			if tt.vccFirst {
				b.Planes = append([]*Plane{vcc}, b.Planes...)
			} else {
				b.Planes = append(b.Planes, vcc)
			}
			require.NoError(t, b.RebuildPlanes())

			gndFrags := clipping.FromPaths(gnd.Fragments, geometry.MaxArcTolerance)
			vccFrags := clipping.FromPaths(vcc.Fragments, geometry.MaxArcTolerance)
			assert.Equal(t, !tt.vccWins, clipping.Contains(gndFrags, mm(40, 25)))
			assert.Equal(t, tt.vccWins, clipping.Contains(vccFrags, mm(40, 25)))
			assert.True(t, clipping.Contains(gndFrags, mm(30, 25)))
		})
	}
}

func TestAirWires(t *testing.T) {
	_, b := loadDemo(t)
	require.NoError(t, b.RebuildPlanes())

	assert.Empty(t, b.NetAirWires(id(2)), "VCC is routed")

	gnd := b.NetAirWires(id(1))
	require.Len(t, gnd, 1)
	ends := []geometry.Point{gnd[0].P1.Position, gnd[0].P2.Position}
	assert.ElementsMatch(t, []geometry.Point{mm(11, 10), mm(31.27, 10)}, ends)
	assert.Len(t, b.AirWires(), 1)
}

func TestAirWiresThroughPlane(t *testing.T) {
	_, b := loadDemo(t)
	// Move the plane to the top so it reaches the SMT GND pad as well.
	b.Planes[0].Layer = TopCopper
	require.NoError(t, b.RebuildPlanes())
	assert.Empty(t, b.NetAirWires(id(1)))
}

func TestCopperPathCache(t *testing.T) {
	_, b := loadDemo(t)
	require.NoError(t, b.RebuildPlanes())
	cache := NewCopperPathCache(b, false)
	vccNet := id(2)

	all, err := cache.Get(BotCopper, nil)
	require.NoError(t, err)
	vcc, err := cache.Get(BotCopper, Nets(&vccNet))
	require.NoError(t, err)
	none, err := cache.Get(BotCopper, Nets(nil))
	require.NoError(t, err)

	assert.Greater(t, len(all), len(vcc))
	assert.Empty(t, none)
	united, err := clipping.Unite(vcc, nil, clipping.NonZero, clipping.NonZero)
	require.NoError(t, err)
	assert.True(t, clipping.Contains(united, mm(28.73, 10)))
	assert.False(t, clipping.Contains(united, mm(31.27, 10)))

	again, err := cache.Get(BotCopper, Nets(&vccNet))
	require.NoError(t, err)
	assert.Equal(t, vcc, again)

	outline, err := cache.Get(BoardOutlines, nil)
	require.NoError(t, err)
	assert.Empty(t, outline)
}

func TestBoundingBox(t *testing.T) {
	_, b := loadDemo(t)
	bb := b.BoundingBox()
	assert.Equal(t, mm(0, 0), bb.Min)
	assert.Equal(t, mm(50, 40), bb.Max)
	assert.Equal(t, mm(25, 20), bb.Center())
}
