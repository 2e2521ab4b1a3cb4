package drc

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/geometry"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/sexp"
)

// ErrInvalidSettings is returned for malformed or out of range settings.
var ErrInvalidSettings = errors.New("invalid drc settings")

// SlotsPolicy limits which kinds of slots are accepted. Policies are ordered
// from strict to permissive.
type SlotsPolicy int

const (
	SlotsNone SlotsPolicy = iota
	SlotsSingleSegmentStraight
	SlotsMultiSegmentStraight
	SlotsAny
)

var slotsPolicyNames = []string{
	SlotsNone:                  "none",
	SlotsSingleSegmentStraight: "single_segment_straight",
	SlotsMultiSegmentStraight:  "multi_segment_straight",
	SlotsAny:                   "any",
}

func (p SlotsPolicy) String() string {
	if p < 0 || int(p) >= len(slotsPolicyNames) {
		return fmt.Sprintf("SlotsPolicy(%d)", int(p))
	}
	return slotsPolicyNames[p]
}

// ParseSlotsPolicy parses the file token of a slots policy.
func ParseSlotsPolicy(s string) (SlotsPolicy, error) {
	for i, name := range slotsPolicyNames {
		if name == s {
			return SlotsPolicy(i), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown slots policy %q", ErrInvalidSettings, s)
}

// Settings are the thresholds of a rule check. A zero length disables the
// corresponding check.
type Settings struct {
	MinCopperCopperClearance geometry.UnsignedLength
	MinCopperBoardClearance  geometry.UnsignedLength
	MinCopperNpthClearance   geometry.UnsignedLength
	MinDrillDrillClearance   geometry.UnsignedLength
	MinDrillBoardClearance   geometry.UnsignedLength
	MinCopperWidth           geometry.UnsignedLength
	MinPthAnnularRing        geometry.UnsignedLength
	MinNpthDrillDiameter     geometry.UnsignedLength
	MinNpthSlotWidth         geometry.UnsignedLength
	MinPthDrillDiameter      geometry.UnsignedLength
	MinPthSlotWidth          geometry.UnsignedLength
	MinOutlineToolDiameter   geometry.UnsignedLength
	AllowedNpthSlots         SlotsPolicy
	AllowedPthSlots          SlotsPolicy
}

func mmU(v float64) geometry.UnsignedLength {
	return geometry.MustUnsigned(geometry.Mm(v))
}

// DefaultSettings returns the thresholds used when a board defines none.
func DefaultSettings() Settings {
	return Settings{
		MinCopperCopperClearance: mmU(0.2),
		MinCopperBoardClearance:  mmU(0.3),
		MinCopperNpthClearance:   mmU(0.25),
		MinDrillDrillClearance:   mmU(0.35),
		MinDrillBoardClearance:   mmU(0.5),
		MinCopperWidth:           mmU(0.2),
		MinPthAnnularRing:        mmU(0.2),
		MinNpthDrillDiameter:     mmU(0.3),
		MinNpthSlotWidth:         mmU(1.0),
		MinPthDrillDiameter:      mmU(0.3),
		MinPthSlotWidth:          mmU(0.7),
		MinOutlineToolDiameter:   mmU(2.0),
		AllowedNpthSlots:         SlotsSingleSegmentStraight,
		AllowedPthSlots:          SlotsSingleSegmentStraight,
	}
}

// Validate checks that all values are in range.
func (s *Settings) Validate() error {
	for _, p := range []SlotsPolicy{s.AllowedNpthSlots, s.AllowedPthSlots} {
		if p < SlotsNone || p > SlotsAny {
			return fmt.Errorf("%w: slots policy %d out of range", ErrInvalidSettings, int(p))
		}
	}
	for _, f := range s.lengthFields() {
		if *f.value < 0 {
			return fmt.Errorf("%w: %s must not be negative", ErrInvalidSettings, f.key)
		}
	}
	return nil
}

type lengthField struct {
	key   string
	value *geometry.UnsignedLength
}

// lengthFields lists the length thresholds in file order.
func (s *Settings) lengthFields() []lengthField {
	return []lengthField{
		{"min_copper_copper_clearance", &s.MinCopperCopperClearance},
		{"min_copper_board_clearance", &s.MinCopperBoardClearance},
		{"min_copper_npth_clearance", &s.MinCopperNpthClearance},
		{"min_drill_drill_clearance", &s.MinDrillDrillClearance},
		{"min_drill_board_clearance", &s.MinDrillBoardClearance},
		{"min_copper_width", &s.MinCopperWidth},
		{"min_annular_ring", &s.MinPthAnnularRing},
		{"min_npth_drill_diameter", &s.MinNpthDrillDiameter},
		{"min_npth_slot_width", &s.MinNpthSlotWidth},
		{"min_pth_drill_diameter", &s.MinPthDrillDiameter},
		{"min_pth_slot_width", &s.MinPthSlotWidth},
		{"min_outline_tool_diameter", &s.MinOutlineToolDiameter},
	}
}

type policyField struct {
	key   string
	value *SlotsPolicy
}

func (s *Settings) policyFields() []policyField {
	return []policyField{
		{"allowed_npth_slots", &s.AllowedNpthSlots},
		{"allowed_pth_slots", &s.AllowedPthSlots},
	}
}

var settingsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Number", Pattern: `[-+]?[0-9]+(\.[0-9]+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_]*`},
})

type settingsFile struct {
	Entries []*settingEntry `parser:"LParen \"drc_settings\" @@* RParen"`
}

type settingEntry struct {
	Pos   lexer.Position
	Key   string `parser:"LParen @Ident"`
	Value string `parser:"@( Number | Ident ) RParen"`
}

var settingsParser = participle.MustBuild[settingsFile](
	participle.Lexer(settingsLexer),
	participle.Elide("Comment", "Whitespace"),
)

// ParseSettings reads a settings file on top of the defaults.
func ParseSettings(r io.Reader) (Settings, error) {
	return DefaultSettings().Apply(r)
}

// Apply returns a copy of s with the keys of a settings file overridden.
func (s Settings) Apply(r io.Reader) (Settings, error) {
	file, err := settingsParser.Parse("", r)
	if err != nil {
		return s, fmt.Errorf("failed to parse drc settings: %w", errors.Join(err, ErrInvalidSettings))
	}
	for _, e := range file.Entries {
		if err := s.set(e.Key, e.Value); err != nil {
			return s, fmt.Errorf("%s: %w", e.Pos, err)
		}
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (s *Settings) set(key, value string) error {
	for _, f := range s.lengthFields() {
		if f.key != key {
			continue
		}
		l, err := geometry.ParseLength(value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, errors.Join(err, ErrInvalidSettings))
		}
		u, err := geometry.NewUnsignedLength(l)
		if err != nil {
			return fmt.Errorf("%s: %w", key, errors.Join(err, ErrInvalidSettings))
		}
		*f.value = u
		return nil
	}
	for _, f := range s.policyFields() {
		if f.key == key {
			p, err := ParseSlotsPolicy(value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*f.value = p
			return nil
		}
	}
	return fmt.Errorf("%w: unknown key %q", ErrInvalidSettings, key)
}

// BoardSettings returns the settings stored in a board, or the defaults.
func BoardSettings(b *board.Board) (Settings, error) {
	if strings.TrimSpace(b.DRCSettings) == "" {
		return DefaultSettings(), nil
	}
	s, err := ParseSettings(strings.NewReader(b.DRCSettings))
	if err != nil {
		return s, fmt.Errorf("board %q: %w", b.Name, err)
	}
	return s, nil
}

// Serialize returns the settings as a settings file node.
func (s Settings) Serialize() *sexp.List {
	root := sexp.NewList("drc_settings")
	for _, f := range s.lengthFields() {
		root.Add(sexp.NewList(f.key, sexp.Symbol(f.value.Length().MmString())))
	}
	for _, f := range s.policyFields() {
		root.Add(sexp.NewList(f.key, sexp.Symbol(f.value.String())))
	}
	return root
}
