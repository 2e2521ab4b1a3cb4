package drc

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
)

func id(n int) uuid.UUID {
	return uuid.MustParse(fmt.Sprintf("00000000-0000-4000-8000-%012d", n))
}

func mm(x, y float64) geometry.Point {
	return geometry.Pt(geometry.Mm(x), geometry.Mm(y))
}

func pos(v float64) geometry.PositiveLength { return geometry.MustPositive(geometry.Mm(v)) }

// disabled returns settings with every check turned off.
func disabled() Settings {
	return Settings{AllowedNpthSlots: SlotsAny, AllowedPthSlots: SlotsAny}
}

// testBoard returns an empty 50x40mm board with nets GND (1) and VCC (2).
func testBoard() *board.Board {
	circuit := &board.Circuit{Nets: []*board.NetSignal{
		{ID: id(1), Name: "GND"},
		{ID: id(2), Name: "VCC"},
	}}
	b := board.NewBoard(id(1000), "default", circuit)
	b.Polygons = append(b.Polygons, &board.Polygon{
		ID:    id(2001),
		Layer: board.BoardOutlines,
		Path:  geometry.Rect(mm(0, 0), mm(50, 40)),
	})
	return b
}

// addTrace adds a segment with a single top trace between two junctions.
func addTrace(b *board.Board, n int, net *uuid.UUID, p1, p2 geometry.Point, width float64) {
	j1, j2 := id(n+1), id(n+2)
	b.NetSegments = append(b.NetSegments, &board.NetSegment{
		ID:  id(n),
		Net: net,
		Junctions: []*board.Junction{
			{ID: j1, Position: p1},
			{ID: j2, Position: p2},
		},
		Traces: []*board.Trace{{
			ID:    id(n + 3),
			Layer: board.TopCopper,
			Width: pos(width),
			Start: board.JunctionAnchor(j1),
			End:   board.JunctionAnchor(j2),
		}},
	})
	b.Reindex()
}

func netID(n int) *uuid.UUID {
	u := id(n)
	return &u
}

func byRule(messages []Message, rule Rule) []Message {
	var out []Message
	for _, m := range messages {
		if m.Rule == rule {
			out = append(out, m)
		}
	}
	return out
}

func check(t *testing.T, b *board.Board, s Settings) []Message {
	t.Helper()
	messages, err := Run(context.Background(), b, s, Options{}, nil)
	require.NoError(t, err)
	return messages
}

func TestCopperCopperClearance(t *testing.T) {
	tests := []struct {
		name   string
		net2   *uuid.UUID
		gap    float64
		expect int
	}{
		{"different nets too close", netID(2), 0.1, 1},
		{"same net", netID(1), 0.1, 0},
		{"different nets far enough", netID(2), 0.3, 0},
		{"no net", nil, 0.1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBoard()
			addTrace(b, 3000, netID(1), mm(10, 10), mm(30, 10), 0.2)
			addTrace(b, 3100, tt.net2, mm(10, 10.2+tt.gap), mm(30, 10.2+tt.gap), 0.2)

			s := disabled()
			s.MinCopperCopperClearance = mmU(0.2)
			got := byRule(check(t, b, s), CopperCopperClearance)
			require.Len(t, got, tt.expect)
			if tt.expect > 0 {
				assert.Equal(t, Error, got[0].Severity)
				assert.NotEmpty(t, got[0].Locations)
				assert.Len(t, got[0].Objects, 2)
			}
		})
	}
}

func TestCopperCopperClearanceSymmetric(t *testing.T) {
	s := disabled()
	s.MinCopperCopperClearance = mmU(0.2)

	b1 := testBoard()
	addTrace(b1, 3000, netID(1), mm(10, 10), mm(30, 10), 0.2)
	addTrace(b1, 3100, netID(2), mm(10, 10.3), mm(30, 10.3), 0.2)
	b2 := testBoard()
	addTrace(b2, 3100, netID(2), mm(10, 10.3), mm(30, 10.3), 0.2)
	addTrace(b2, 3000, netID(1), mm(10, 10), mm(30, 10), 0.2)

	m1 := byRule(check(t, b1, s), CopperCopperClearance)
	m2 := byRule(check(t, b2, s), CopperCopperClearance)
	require.Len(t, m1, 1)
	require.Len(t, m2, 1)
	assert.Equal(t, m1[0].ApprovalKey, m2[0].ApprovalKey)
	assert.Equal(t, m1[0].Text, m2[0].Text)
}

func TestMinimumAnnularRing(t *testing.T) {
	tests := []struct {
		name   string
		size   float64
		expect int
	}{
		{"no ring", 0.3, 1},
		{"ring wide enough", 0.7, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := testBoard()
			b.NetSegments = append(b.NetSegments, &board.NetSegment{
				ID:   id(3000),
				Net:  netID(1),
				Vias: []*board.Via{{ID: id(3001), Position: mm(20, 20), Size: pos(tt.size), Drill: pos(0.3)}},
			})
			b.Reindex()

			s := disabled()
			s.MinPthAnnularRing = mmU(0.15)
			got := byRule(check(t, b, s), MinimumAnnularRing)
			require.Len(t, got, tt.expect)
			if tt.expect > 0 {
				assert.Equal(t, Warning, got[0].Severity)
				assert.Equal(t, "(approved minimum_annular_ring (via "+id(3001).String()+"))", got[0].ApprovalKey)
			}
		})
	}
}

func TestMinimumCopperWidth(t *testing.T) {
	b := testBoard()
	addTrace(b, 3000, netID(1), mm(10, 10), mm(30, 10), 0.1)
	addTrace(b, 3100, netID(2), mm(10, 20), mm(30, 20), 0.3)

	s := disabled()
	s.MinCopperWidth = mmU(0.2)
	got := byRule(check(t, b, s), MinimumCopperWidth)
	require.Len(t, got, 1)
	assert.Equal(t, "Min. copper width (0.2mm) of trace in 'GND'", got[0].Text)
	assert.Equal(t, id(3003), got[0].Objects[0].ID)

	// A zero threshold disables the check.
	s.MinCopperWidth = 0
	assert.Empty(t, byRule(check(t, b, s), MinimumCopperWidth))
}

func TestCopperBoardClearance(t *testing.T) {
	b := testBoard()
	addTrace(b, 3000, netID(1), mm(0.2, 5), mm(0.2, 30), 0.2)
	addTrace(b, 3100, netID(2), mm(10, 5), mm(10, 30), 0.2)

	s := disabled()
	s.MinCopperBoardClearance = mmU(0.3)
	got := byRule(check(t, b, s), CopperBoardClearance)
	require.Len(t, got, 1)
	assert.Equal(t, id(3003), got[0].Objects[0].ID)
}

func TestHoleChecks(t *testing.T) {
	b := testBoard()
	b.Holes = []*board.Hole{
		{ID: id(5001), Drill: board.Drill{Diameter: pos(0.2), Path: geometry.NewPath(mm(10, 10))}},
		{ID: id(5002), Drill: board.Drill{Diameter: pos(0.5), Path: geometry.NewPath(mm(20, 10), mm(22, 10))}},
		{ID: id(5003), Drill: board.Drill{Diameter: pos(1.0), Path: geometry.NewPath(mm(30, 10), mm(32, 10), mm(32, 12))}},
		{ID: id(5004), Drill: board.Drill{Diameter: pos(1.0), Path: geometry.NewPath(mm(40, 20.5))}},
		{ID: id(5005), Drill: board.Drill{Diameter: pos(1.0), Path: geometry.NewPath(mm(40, 22))}},
	}

	s := disabled()
	s.MinNpthDrillDiameter = mmU(0.3)
	s.MinNpthSlotWidth = mmU(1.0)
	s.AllowedNpthSlots = SlotsSingleSegmentStraight
	s.MinDrillDrillClearance = mmU(0.6)
	messages := check(t, b, s)

	ids := func(rule Rule) []uuid.UUID {
		var out []uuid.UUID
		for _, m := range byRule(messages, rule) {
			for _, o := range m.Objects {
				out = append(out, o.ID)
			}
		}
		return out
	}
	assert.Equal(t, []uuid.UUID{id(5001)}, ids(MinimumDrillDiameter))
	assert.Equal(t, []uuid.UUID{id(5002)}, ids(MinimumSlotWidth))
	assert.Equal(t, []uuid.UUID{id(5003)}, ids(ForbiddenSlot))
	assert.ElementsMatch(t, []uuid.UUID{id(5004), id(5005)}, ids(DrillDrillClearance))
}

func TestSlotForbidden(t *testing.T) {
	straight := board.Drill{Diameter: pos(1), Path: geometry.NewPath(mm(0, 0), mm(1, 0))}
	multi := board.Drill{Diameter: pos(1), Path: geometry.NewPath(mm(0, 0), mm(1, 0), mm(1, 1))}
	curved := board.Drill{Diameter: pos(1), Path: geometry.Path{
		{Pos: mm(0, 0), Angle: geometry.Deg90},
		{Pos: mm(1, 1)},
	}}
	round := board.Drill{Diameter: pos(1), Path: geometry.NewPath(mm(0, 0))}

	tests := []struct {
		drill  board.Drill
		policy SlotsPolicy
		want   bool
	}{
		{round, SlotsNone, false},
		{straight, SlotsNone, true},
		{straight, SlotsSingleSegmentStraight, false},
		{multi, SlotsSingleSegmentStraight, true},
		{multi, SlotsMultiSegmentStraight, false},
		{curved, SlotsMultiSegmentStraight, true},
		{curved, SlotsAny, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, slotForbidden(tt.drill, tt.policy), "%v with %s", tt.drill.Path, tt.policy)
	}
}

func TestBoardOutline(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		b := testBoard()
		b.Polygons = nil
		got := byRule(check(t, b, disabled()), MissingBoardOutline)
		assert.Len(t, got, 1)
	})

	t.Run("open", func(t *testing.T) {
		b := testBoard()
		b.Polygons[0].Path = geometry.NewPath(mm(0, 0), mm(50, 0), mm(50, 40))
		got := byRule(check(t, b, disabled()), OpenBoardOutlinePolygon)
		require.Len(t, got, 1)
		assert.Equal(t, id(2001), got[0].Objects[0].ID)
	})

	t.Run("multiple", func(t *testing.T) {
		b := testBoard()
		b.Polygons = append(b.Polygons, &board.Polygon{
			ID:    id(2002),
			Layer: board.BoardOutlines,
			Path:  geometry.Rect(mm(60, 0), mm(70, 10)),
		})
		got := byRule(check(t, b, disabled()), MultipleBoardOutlines)
		require.Len(t, got, 1)
		assert.Len(t, got[0].Locations, 2)
	})

	t.Run("inner radius", func(t *testing.T) {
		b := testBoard()
		b.Polygons[0].Path = geometry.NewPath(
			mm(0, 0), mm(50, 0), mm(50, 20), mm(25, 20), mm(25, 40), mm(0, 40), mm(0, 0),
		)
		s := disabled()
		s.MinOutlineToolDiameter = mmU(2)
		got := byRule(check(t, b, s), MinimumBoardOutlineInnerRadius)
		require.Len(t, got, 1)

		// Outer corners never need a radius.
		b = testBoard()
		assert.Empty(t, byRule(check(t, b, s), MinimumBoardOutlineInnerRadius))
	})
}

func TestCircuitChecks(t *testing.T) {
	b := testBoard()
	lib := id(301)
	b.Circuit.Components = []*board.Component{
		{ID: id(101), Name: "R1"},
		{ID: id(102), Name: "R2", DefaultDevice: &lib},
		{ID: id(103), Name: "LOGO", SchematicOnly: true},
	}
	b.Devices = []*board.Device{{Component: id(102), LibDevice: id(302), Position: mm(10, 10)}}
	b.Reindex()

	messages := check(t, b, disabled())
	missing := byRule(messages, MissingDevice)
	require.Len(t, missing, 1)
	assert.Equal(t, "Missing device: 'R1'", missing[0].Text)

	mismatch := byRule(messages, DefaultDeviceMismatch)
	require.Len(t, mismatch, 1)
	assert.Len(t, mismatch[0].Locations, 2, "origin cross only")
}

func TestStaleObjects(t *testing.T) {
	b := testBoard()
	b.NetSegments = []*board.NetSegment{
		{ID: id(3000), Net: netID(1)},
		{ID: id(3100), Net: netID(2), Junctions: []*board.Junction{{ID: id(3101), Position: mm(5, 5)}}},
	}
	b.Reindex()

	messages := check(t, b, disabled())
	empty := byRule(messages, EmptyNetSegment)
	require.Len(t, empty, 1)
	assert.Equal(t, Hint, empty[0].Severity)
	assert.Equal(t, "Empty net segment in 'GND'", empty[0].Text)

	junctions := byRule(messages, UnconnectedJunction)
	require.Len(t, junctions, 1)
	assert.Equal(t,
		"(approved unconnected_junction (junction "+id(3101).String()+" (netsegment "+id(3100).String()+")))",
		junctions[0].ApprovalKey)
}

func loadDemo(t *testing.T) *board.Board {
	t.Helper()
	p, err := board.LoadProject("../board/testdata/demo.otfp")
	require.NoError(t, err)
	return p.Boards[0]
}

func TestDemoBoard(t *testing.T) {
	b := loadDemo(t)
	s, err := BoardSettings(b)
	require.NoError(t, err)

	first := check(t, b, s)
	second := check(t, b, s)
	SortMessages(first)
	SortMessages(second)
	texts := func(ms []Message) []string {
		var out []string
		for _, m := range ms {
			out = append(out, m.Format())
		}
		return out
	}
	if diff := cmp.Diff(texts(first), texts(second)); diff != "" {
		t.Errorf("runs differ (-first +second):\n%s", diff)
	}
	assert.NotEmpty(t, byRule(first, MissingConnection), "GND pads are not connected")
	assert.Empty(t, byRule(first, MissingBoardOutline))
	assert.Empty(t, byRule(first, MissingDevice))
}

func TestQuickMode(t *testing.T) {
	b := loadDemo(t)
	messages, err := Run(context.Background(), b, DefaultSettings(), Options{Quick: true}, nil)
	require.NoError(t, err)
	for _, m := range messages {
		assert.Contains(t, []Rule{
			MinimumCopperWidth, CopperCopperClearance, CopperBoardClearance, CopperHoleClearance,
		}, m.Rule)
	}
	for _, p := range b.Planes {
		assert.Empty(t, p.Fragments, "quick mode must not rebuild planes")
	}
}

type recorder struct {
	progress []int
	status   []string
	messages int
	onStep   func()
}

func (r *recorder) OnProgress(p int) {
	r.progress = append(r.progress, p)
	if r.onStep != nil {
		r.onStep()
	}
}
func (r *recorder) OnStatus(s string)   { r.status = append(r.status, s) }
func (r *recorder) OnMessage(m Message) { r.messages++ }

func TestObserver(t *testing.T) {
	b := loadDemo(t)
	rec := &recorder{}
	messages, err := Run(context.Background(), b, DefaultSettings(), Options{}, rec)
	require.NoError(t, err)

	assert.Equal(t, len(messages), rec.messages)
	require.NotEmpty(t, rec.progress)
	assert.Equal(t, 2, rec.progress[0])
	assert.Equal(t, 100, rec.progress[len(rec.progress)-1])
	assert.IsNonDecreasing(t, rec.progress)
	assert.Equal(t, fmt.Sprintf("Finished with %d message(s)!", len(messages)), rec.status[len(rec.status)-1])
}

func TestAlreadyRunning(t *testing.T) {
	b := loadDemo(t)
	c := NewChecker()
	assert.Equal(t, Idle, c.State())

	var nested error
	rec := &recorder{}
	rec.onStep = func() {
		if nested == nil {
			_, nested = c.Run(context.Background(), b, DefaultSettings(), Options{}, nil)
		}
	}
	_, err := c.Run(context.Background(), b, DefaultSettings(), Options{Quick: true}, rec)
	require.NoError(t, err)
	assert.ErrorIs(t, nested, ErrAlreadyRunning)
	assert.Equal(t, Finished, c.State())
}

func TestCancel(t *testing.T) {
	b := loadDemo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Run(ctx, b, DefaultSettings(), Options{}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestInvalidSettings(t *testing.T) {
	s := DefaultSettings()
	s.AllowedPthSlots = SlotsPolicy(9)
	_, err := Run(context.Background(), testBoard(), s, Options{}, nil)
	assert.ErrorIs(t, err, ErrInvalidSettings)
}
