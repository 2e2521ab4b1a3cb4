package viewer

import (
	"image/color"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
	"github.com/OpenTraceLab/OpenTraceFab/pkg/drc"
)

var (
	colorBackground = color.NRGBA{R: 0, G: 16, B: 35, A: 255}
	colorOutline    = color.NRGBA{R: 208, G: 210, B: 205, A: 255}
	colorHole       = color.NRGBA{R: 227, G: 183, B: 46, A: 255}
	colorAirWire    = color.NRGBA{R: 255, G: 255, B: 0, A: 200}

	colorTopCopper = color.NRGBA{R: 200, G: 52, B: 52, A: 200}
	colorBotCopper = color.NRGBA{R: 77, G: 127, B: 196, A: 200}

	innerCopperColors = []color.NRGBA{
		{R: 127, G: 200, B: 127, A: 180},
		{R: 206, G: 125, B: 44, A: 180},
		{R: 79, G: 203, B: 203, A: 180},
		{R: 219, G: 98, B: 139, A: 180},
	}
)

func copperColor(l *board.Layer) color.NRGBA {
	switch {
	case l == board.TopCopper:
		return colorTopCopper
	case l == board.BotCopper:
		return colorBotCopper
	}
	n := l.CopperNumber() - 1
	if n < 0 {
		n = 0
	}
	return innerCopperColors[n%len(innerCopperColors)]
}

// markerColor returns the translucent overlay of a message location.
func markerColor(s drc.Severity) color.NRGBA {
	switch s {
	case drc.Error:
		return color.NRGBA{R: 255, G: 0, B: 0, A: 110}
	case drc.Warning:
		return color.NRGBA{R: 255, G: 165, B: 0, A: 110}
	}
	return color.NRGBA{R: 0, G: 200, B: 255, A: 110}
}
