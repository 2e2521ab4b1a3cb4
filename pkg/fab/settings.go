package fab

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/sexp"
)

// ErrInvalidSettings is returned for malformed fabrication settings.
var ErrInvalidSettings = errors.New("invalid fabrication settings")

// SettingsRoot is the key of the settings node.
const SettingsRoot = "fabrication_output_settings"

// Settings select the files written by ExportPCBLayers and their names.
// Every output path is OutputBasePath followed by the suffix of the file.
type Settings struct {
	OutputBasePath string

	SuffixDrills     string
	SuffixDrillsNpth string
	SuffixDrillsPth  string
	SuffixOutlines   string

	SuffixCopperTop   string
	SuffixCopperInner string
	SuffixCopperBot   string

	SuffixSolderMaskTop string
	SuffixSolderMaskBot string

	SuffixSilkscreenTop string
	SuffixSilkscreenBot string
	SilkscreenLayersTop []*board.Layer
	SilkscreenLayersBot []*board.Layer

	SuffixSolderPasteTop string
	SuffixSolderPasteBot string
	EnableSolderPasteTop bool
	EnableSolderPasteBot bool

	MergeDrillFiles   bool
	UseG85SlotCommand bool
}

// DefaultSettings returns the settings used when a board defines none.
func DefaultSettings() Settings {
	return Settings{
		OutputBasePath:       "./output/{{VERSION}}/gerber/{{PROJECT}}",
		SuffixDrills:         "_DRILLS.drl",
		SuffixDrillsNpth:     "_DRILLS-NPTH.drl",
		SuffixDrillsPth:      "_DRILLS-PTH.drl",
		SuffixOutlines:       "_OUTLINES.gbr",
		SuffixCopperTop:      "_COPPER-TOP.gbr",
		SuffixCopperInner:    "_COPPER-IN{{CU_LAYER}}.gbr",
		SuffixCopperBot:      "_COPPER-BOTTOM.gbr",
		SuffixSolderMaskTop:  "_SOLDERMASK-TOP.gbr",
		SuffixSolderMaskBot:  "_SOLDERMASK-BOTTOM.gbr",
		SuffixSilkscreenTop:  "_SILKSCREEN-TOP.gbr",
		SuffixSilkscreenBot:  "_SILKSCREEN-BOTTOM.gbr",
		SilkscreenLayersTop:  []*board.Layer{board.TopPlacement, board.TopNames},
		SilkscreenLayersBot:  []*board.Layer{board.BotPlacement, board.BotNames},
		SuffixSolderPasteTop: "_SOLDERPASTE-TOP.gbr",
		SuffixSolderPasteBot: "_SOLDERPASTE-BOTTOM.gbr",
	}
}

// Validate checks that the settings can produce distinct files.
func (s *Settings) Validate() error {
	if strings.TrimSpace(s.OutputBasePath) == "" {
		return fmt.Errorf("%w: empty output base path", ErrInvalidSettings)
	}
	for _, l := range append(append([]*board.Layer{}, s.SilkscreenLayersTop...), s.SilkscreenLayersBot...) {
		if l == nil || l.IsCopper() {
			return fmt.Errorf("%w: invalid silkscreen layer %v", ErrInvalidSettings, l)
		}
	}
	return nil
}

var settingsLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `#[^\n]*`},
	{Name: "Whitespace", Pattern: `[\s]+`},
	{Name: "String", Pattern: `"(\\.|[^"\\])*"`},
	{Name: "LParen", Pattern: `\(`},
	{Name: "RParen", Pattern: `\)`},
	{Name: "Atom", Pattern: `[^\s()"]+`},
})

type settingsFile struct {
	Nodes []*node `parser:"LParen \"fabrication_output_settings\" @@* RParen"`
}

type node struct {
	Pos      lexer.Position
	Key      string   `parser:"LParen @Atom"`
	Values   []*value `parser:"@@*"`
	Children []*node  `parser:"@@* RParen"`
}

type value struct {
	Text string `parser:"@( String | Atom )"`
}

var settingsParser = participle.MustBuild[settingsFile](
	participle.Lexer(settingsLexer),
	participle.Elide("Comment", "Whitespace"),
	participle.Unquote("String"),
)

// ParseSettings reads a settings file on top of the defaults.
func ParseSettings(r io.Reader) (Settings, error) {
	return DefaultSettings().Apply(r)
}

// Apply returns a copy of s with the nodes of a settings file overridden.
// Layer lists are replaced as a whole.
func (s Settings) Apply(r io.Reader) (Settings, error) {
	file, err := settingsParser.Parse("", r)
	if err != nil {
		return s, fmt.Errorf("failed to parse fabrication settings: %w", errors.Join(err, ErrInvalidSettings))
	}
	s.SilkscreenLayersTop = append([]*board.Layer(nil), s.SilkscreenLayersTop...)
	s.SilkscreenLayersBot = append([]*board.Layer(nil), s.SilkscreenLayersBot...)
	for _, n := range file.Nodes {
		if err := s.apply(n); err != nil {
			return s, fmt.Errorf("%s: %w", n.Pos, err)
		}
	}
	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

func (n *node) text() (string, error) {
	if len(n.Values) != 1 {
		return "", fmt.Errorf("%w: %s expects one value", ErrInvalidSettings, n.Key)
	}
	return n.Values[0].Text, nil
}

func (n *node) boolean() (bool, error) {
	v, err := n.text()
	if err != nil {
		return false, err
	}
	switch v {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("%w: %s: invalid boolean %q", ErrInvalidSettings, n.Key, v)
}

func (n *node) layers() ([]*board.Layer, error) {
	var out []*board.Layer
	for _, v := range n.Values {
		l, err := board.LayerByID(v.Text)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", n.Key, errors.Join(err, ErrInvalidSettings))
		}
		out = append(out, l)
	}
	return out, nil
}

type section struct {
	suffix *string
	layers *[]*board.Layer
	create *bool
}

func (s *Settings) sections() map[string]section {
	return map[string]section{
		"outlines":        {suffix: &s.SuffixOutlines},
		"copper_top":      {suffix: &s.SuffixCopperTop},
		"copper_inner":    {suffix: &s.SuffixCopperInner},
		"copper_bot":      {suffix: &s.SuffixCopperBot},
		"soldermask_top":  {suffix: &s.SuffixSolderMaskTop},
		"soldermask_bot":  {suffix: &s.SuffixSolderMaskBot},
		"silkscreen_top":  {suffix: &s.SuffixSilkscreenTop, layers: &s.SilkscreenLayersTop},
		"silkscreen_bot":  {suffix: &s.SuffixSilkscreenBot, layers: &s.SilkscreenLayersBot},
		"solderpaste_top": {suffix: &s.SuffixSolderPasteTop, create: &s.EnableSolderPasteTop},
		"solderpaste_bot": {suffix: &s.SuffixSolderPasteBot, create: &s.EnableSolderPasteBot},
	}
}

func (s *Settings) apply(n *node) error {
	if n.Key == "base_path" {
		v, err := n.text()
		if err != nil {
			return err
		}
		s.OutputBasePath = v
		return nil
	}
	if n.Key == "drills" {
		return s.applyDrills(n)
	}
	sec, ok := s.sections()[n.Key]
	if !ok {
		return fmt.Errorf("%w: unknown key %q", ErrInvalidSettings, n.Key)
	}
	if len(n.Values) > 0 {
		return fmt.Errorf("%w: %s expects child nodes", ErrInvalidSettings, n.Key)
	}
	for _, c := range n.Children {
		var err error
		switch {
		case c.Key == "suffix":
			*sec.suffix, err = c.text()
		case c.Key == "layers" && sec.layers != nil:
			*sec.layers, err = c.layers()
		case c.Key == "create" && sec.create != nil:
			*sec.create, err = c.boolean()
		default:
			err = fmt.Errorf("%w: unknown key %s/%s", ErrInvalidSettings, n.Key, c.Key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Settings) applyDrills(n *node) error {
	for _, c := range n.Children {
		var err error
		switch c.Key {
		case "merge":
			s.MergeDrillFiles, err = c.boolean()
		case "suffix_merged":
			s.SuffixDrills, err = c.text()
		case "suffix_pth":
			s.SuffixDrillsPth, err = c.text()
		case "suffix_npth":
			s.SuffixDrillsNpth, err = c.text()
		case "g85_slots":
			s.UseG85SlotCommand, err = c.boolean()
		default:
			err = fmt.Errorf("%w: unknown key drills/%s", ErrInvalidSettings, c.Key)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// BoardSettings returns the settings stored in a board, or the defaults.
func BoardSettings(b *board.Board) (Settings, error) {
	if strings.TrimSpace(b.FabSettings) == "" {
		return DefaultSettings(), nil
	}
	s, err := ParseSettings(strings.NewReader(b.FabSettings))
	if err != nil {
		return s, fmt.Errorf("board %q: %w", b.Name, err)
	}
	return s, nil
}

func boolSymbol(v bool) sexp.Symbol {
	if v {
		return "true"
	}
	return "false"
}

// Serialize returns the settings as a settings file node.
func (s Settings) Serialize() *sexp.List {
	suffix := func(v string) *sexp.List { return sexp.NewList("suffix", sexp.Quoted(v)) }
	layers := func(ls []*board.Layer) *sexp.List {
		n := sexp.NewList("layers")
		for _, l := range ls {
			n.Add(sexp.Symbol(l.ID()))
		}
		return n
	}
	return sexp.NewList(SettingsRoot,
		sexp.NewList("base_path", sexp.Quoted(s.OutputBasePath)),
		sexp.NewList("outlines", suffix(s.SuffixOutlines)),
		sexp.NewList("copper_top", suffix(s.SuffixCopperTop)),
		sexp.NewList("copper_inner", suffix(s.SuffixCopperInner)),
		sexp.NewList("copper_bot", suffix(s.SuffixCopperBot)),
		sexp.NewList("soldermask_top", suffix(s.SuffixSolderMaskTop)),
		sexp.NewList("soldermask_bot", suffix(s.SuffixSolderMaskBot)),
		sexp.NewList("silkscreen_top", suffix(s.SuffixSilkscreenTop), layers(s.SilkscreenLayersTop)),
		sexp.NewList("silkscreen_bot", suffix(s.SuffixSilkscreenBot), layers(s.SilkscreenLayersBot)),
		sexp.NewList("drills",
			sexp.NewList("merge", boolSymbol(s.MergeDrillFiles)),
			sexp.NewList("suffix_pth", sexp.Quoted(s.SuffixDrillsPth)),
			sexp.NewList("suffix_npth", sexp.Quoted(s.SuffixDrillsNpth)),
			sexp.NewList("suffix_merged", sexp.Quoted(s.SuffixDrills)),
			sexp.NewList("g85_slots", boolSymbol(s.UseG85SlotCommand)),
		),
		sexp.NewList("solderpaste_top", sexp.NewList("create", boolSymbol(s.EnableSolderPasteTop)), suffix(s.SuffixSolderPasteTop)),
		sexp.NewList("solderpaste_bot", sexp.NewList("create", boolSymbol(s.EnableSolderPasteBot)), suffix(s.SuffixSolderPasteBot)),
	)
}
