package board

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnknownLayer is returned when a layer id is not in the registry.
var ErrUnknownLayer = errors.New("unknown layer")

// InnerCopperCount is the number of inner copper layers the registry knows.
// Together with top and bottom this gives 64 copper layers.
const InnerCopperCount = 62

type layerFlags uint

const (
	flagTop layerFlags = 1 << iota
	flagBottom
	flagInner
	flagCopper
	flagStopMask
	flagSolderPaste
)

// Layer is a physical or logical board layer. Layers are interned: compare
// them by pointer.
type Layer struct {
	id     string
	name   string
	flags  layerFlags
	copper int // copper number, 0 = top
	index  int // position in All()
}

func (l *Layer) ID() string          { return l.id }
func (l *Layer) Name() string        { return l.name }
func (l *Layer) String() string      { return l.id }
func (l *Layer) IsTop() bool         { return l.flags&flagTop != 0 }
func (l *Layer) IsBottom() bool      { return l.flags&flagBottom != 0 }
func (l *Layer) IsInner() bool       { return l.flags&flagInner != 0 }
func (l *Layer) IsCopper() bool      { return l.flags&flagCopper != 0 }
func (l *Layer) IsStopMask() bool    { return l.flags&flagStopMask != 0 }
func (l *Layer) IsSolderPaste() bool { return l.flags&flagSolderPaste != 0 }
func (l *Layer) IsBoardOutline() bool {
	return l == BoardOutlines
}

// CopperNumber returns 0 for top copper, 1..62 for inner layers and 63 for
// bottom copper. It returns -1 for non-copper layers.
func (l *Layer) CopperNumber() int {
	if !l.IsCopper() {
		return -1
	}
	return l.copper
}

// Mirrored returns the opposite-side counterpart of a top or bottom layer,
// or the layer itself.
func (l *Layer) Mirrored() *Layer {
	if m, ok := mirrors[l]; ok {
		return m
	}
	return l
}

// Less orders layers by their registry position.
func (l *Layer) Less(o *Layer) bool {
	return l.index < o.index
}

func newLayer(id, name string, flags layerFlags) *Layer {
	return &Layer{id: id, name: name, flags: flags}
}

var (
	BoardOutlines      = newLayer("brd_outlines", "Board Outlines", 0)
	BoardMillingPth    = newLayer("brd_milling_pth", "Milling (PTH)", 0)
	BoardMeasures      = newLayer("brd_measures", "Measures", 0)
	BoardAlignment     = newLayer("brd_alignment", "Alignment", 0)
	BoardDocumentation = newLayer("brd_documentation", "Documentation", 0)
	BoardComments      = newLayer("brd_comments", "Comments", 0)
	BoardGuide         = newLayer("brd_guide", "Guide", 0)

	TopPlacement       = newLayer("top_placement", "Top Placement", flagTop)
	TopDocumentation   = newLayer("top_documentation", "Top Documentation", flagTop)
	TopHiddenGrabAreas = newLayer("top_hidden_grab_areas", "Top Hidden Grab Areas", flagTop)
	TopNames           = newLayer("top_names", "Top Names", flagTop)
	TopValues          = newLayer("top_values", "Top Values", flagTop)
	TopCourtyard       = newLayer("top_courtyard", "Top Courtyard", flagTop)
	TopStopMask        = newLayer("top_stop_mask", "Top Stop Mask", flagTop|flagStopMask)
	TopSolderPaste     = newLayer("top_solder_paste", "Top Solder Paste", flagTop|flagSolderPaste)
	TopFinish          = newLayer("top_finish", "Top Finish", flagTop)
	TopGlue            = newLayer("top_glue", "Top Glue", flagTop)
	TopCopper          = newLayer("top_cu", "Top Copper", flagTop|flagCopper)

	BotCopper          = newLayer("bot_cu", "Bottom Copper", flagBottom|flagCopper)
	BotPlacement       = newLayer("bot_placement", "Bottom Placement", flagBottom)
	BotDocumentation   = newLayer("bot_documentation", "Bottom Documentation", flagBottom)
	BotHiddenGrabAreas = newLayer("bot_hidden_grab_areas", "Bottom Hidden Grab Areas", flagBottom)
	BotNames           = newLayer("bot_names", "Bottom Names", flagBottom)
	BotValues          = newLayer("bot_values", "Bottom Values", flagBottom)
	BotCourtyard       = newLayer("bot_courtyard", "Bottom Courtyard", flagBottom)
	BotStopMask        = newLayer("bot_stop_mask", "Bottom Stop Mask", flagBottom|flagStopMask)
	BotSolderPaste     = newLayer("bot_solder_paste", "Bottom Solder Paste", flagBottom|flagSolderPaste)
	BotFinish          = newLayer("bot_finish", "Bottom Finish", flagBottom)
	BotGlue            = newLayer("bot_glue", "Bottom Glue", flagBottom)
)

var (
	innerCopper []*Layer
	allLayers   []*Layer
	layerByID   map[string]*Layer
	mirrors     map[*Layer]*Layer
)

func init() {
	for i := 1; i <= InnerCopperCount; i++ {
		l := newLayer("in"+strconv.Itoa(i)+"_cu", fmt.Sprintf("Inner Copper %d", i), flagInner|flagCopper)
		l.copper = i
		innerCopper = append(innerCopper, l)
	}
	BotCopper.copper = InnerCopperCount + 1

	allLayers = []*Layer{
		BoardOutlines, BoardMillingPth, BoardMeasures, BoardAlignment,
		BoardDocumentation, BoardComments, BoardGuide,
		TopPlacement, TopDocumentation, TopHiddenGrabAreas, TopNames,
		TopValues, TopCourtyard, TopStopMask, TopSolderPaste, TopFinish,
		TopGlue, TopCopper,
	}
	allLayers = append(allLayers, innerCopper...)
	allLayers = append(allLayers,
		BotCopper, BotPlacement, BotDocumentation, BotHiddenGrabAreas,
		BotNames, BotValues, BotCourtyard, BotStopMask, BotSolderPaste,
		BotFinish, BotGlue,
	)

	layerByID = make(map[string]*Layer, len(allLayers))
	for i, l := range allLayers {
		l.index = i
		layerByID[l.id] = l
	}

	pairs := [][2]*Layer{
		{TopPlacement, BotPlacement},
		{TopDocumentation, BotDocumentation},
		{TopHiddenGrabAreas, BotHiddenGrabAreas},
		{TopNames, BotNames},
		{TopValues, BotValues},
		{TopCourtyard, BotCourtyard},
		{TopStopMask, BotStopMask},
		{TopSolderPaste, BotSolderPaste},
		{TopFinish, BotFinish},
		{TopGlue, BotGlue},
		{TopCopper, BotCopper},
	}
	mirrors = make(map[*Layer]*Layer, 2*len(pairs))
	for _, p := range pairs {
		mirrors[p[0]] = p[1]
		mirrors[p[1]] = p[0]
	}
}

// AllLayers returns every registered layer in sort order.
func AllLayers() []*Layer {
	return allLayers
}

// LayerByID looks up a layer by its id.
func LayerByID(id string) (*Layer, error) {
	if l, ok := layerByID[id]; ok {
		return l, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLayer, id)
}

// InnerCopper returns inner copper layer n (1-based) or nil if out of range.
func InnerCopper(n int) *Layer {
	if n < 1 || n > InnerCopperCount {
		return nil
	}
	return innerCopper[n-1]
}

// MapLayer mirrors a layer when mirrored is set.
func MapLayer(l *Layer, mirrored bool) *Layer {
	if mirrored {
		return l.Mirrored()
	}
	return l
}
