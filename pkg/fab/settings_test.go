package fab

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
)

func TestDefaultSettingsValid(t *testing.T) {
	s := DefaultSettings()
	require.NoError(t, s.Validate())
	assert.False(t, s.MergeDrillFiles)
	assert.False(t, s.EnableSolderPasteTop)
	assert.Equal(t, []*board.Layer{board.TopPlacement, board.TopNames}, s.SilkscreenLayersTop)
}

func TestParseSettings(t *testing.T) {
	s, err := ParseSettings(strings.NewReader(`
# fab house A
(fabrication_output_settings
 (base_path "./fab/{{PROJECT}}-{{BOARD}}")
 (drills (merge true) (g85_slots true) (suffix_merged ".txt"))
 (silkscreen_top (suffix "_silk.gto") (layers top_placement top_documentation))
 (silkscreen_bot (layers))
 (solderpaste_top (create true))
)`))
	require.NoError(t, err)

	want := DefaultSettings()
	want.OutputBasePath = "./fab/{{PROJECT}}-{{BOARD}}"
	want.MergeDrillFiles = true
	want.UseG85SlotCommand = true
	want.SuffixDrills = ".txt"
	want.SuffixSilkscreenTop = "_silk.gto"
	want.SilkscreenLayersTop = []*board.Layer{board.TopPlacement, board.TopDocumentation}
	want.SilkscreenLayersBot = nil
	want.EnableSolderPasteTop = true
	assert.Equal(t, want, s)
}

func TestApplyDoesNotAliasLayers(t *testing.T) {
	base := DefaultSettings()
	_, err := base.Apply(strings.NewReader(`(fabrication_output_settings (silkscreen_top (layers top_names)))`))
	require.NoError(t, err)
	assert.Equal(t, []*board.Layer{board.TopPlacement, board.TopNames}, base.SilkscreenLayersTop)
}

func TestParseSettingsErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"wrong root", `(drc_settings)`},
		{"unknown key", `(fabrication_output_settings (gold_fingers (suffix "x")))`},
		{"unknown child", `(fabrication_output_settings (outlines (layers top_names)))`},
		{"bad boolean", `(fabrication_output_settings (drills (merge maybe)))`},
		{"unknown layer", `(fabrication_output_settings (silkscreen_top (layers top_nowhere)))`},
		{"copper silkscreen", `(fabrication_output_settings (silkscreen_bot (layers bot_cu)))`},
		{"empty base path", `(fabrication_output_settings (base_path ""))`},
		{"two values", `(fabrication_output_settings (base_path "a" "b"))`},
		{"unbalanced", `(fabrication_output_settings (outlines (suffix "x"))`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSettings(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, ErrInvalidSettings)
		})
	}
}

func TestSettingsSerialize(t *testing.T) {
	s := DefaultSettings()
	s.MergeDrillFiles = true
	s.EnableSolderPasteBot = true
	s.SilkscreenLayersBot = []*board.Layer{board.BotNames}

	text := s.Serialize().String()
	assert.True(t, strings.HasPrefix(text, `(fabrication_output_settings (base_path "./output/{{VERSION}}/gerber/{{PROJECT}}")`), text)
	assert.Contains(t, text, "(layers bot_names)")

	back, err := ParseSettings(strings.NewReader(text))
	require.NoError(t, err)
	assert.Equal(t, s, back)
}

func TestBoardSettings(t *testing.T) {
	b := &board.Board{Name: "main"}
	s, err := BoardSettings(b)
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)

	b.FabSettings = `(fabrication_output_settings (copper_inner (suffix "_L{{CU_LAYER}}.gbr")))`
	s, err = BoardSettings(b)
	require.NoError(t, err)
	assert.Equal(t, "_L{{CU_LAYER}}.gbr", s.SuffixCopperInner)

	b.FabSettings = `(fabrication_output_settings (bogus))`
	_, err = BoardSettings(b)
	assert.ErrorIs(t, err, ErrInvalidSettings)
	assert.ErrorContains(t, err, `board "main"`)
}
