package fab

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceFab/pkg/board"
)

var placeholder = regexp.MustCompile(`\{\{(.+?)\}\}`)

// Substitute replaces {{KEY}} placeholders with the values returned by
// lookup. A placeholder may list alternatives as {{A or B or "text"}}; the
// first non-empty one wins. Substituted values are passed through filter
// if it is not nil. Placeholders without a value become empty.
func Substitute(s string, lookup func(key string) string, filter func(string) string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		for _, key := range strings.Split(m[2:len(m)-2], " or ") {
			key = strings.TrimSpace(key)
			var v string
			if len(key) >= 2 && strings.HasPrefix(key, `"`) && strings.HasSuffix(key, `"`) {
				v = key[1 : len(key)-1]
			} else {
				v = lookup(key)
			}
			if v == "" {
				continue
			}
			if filter != nil {
				v = filter(v)
			}
			return v
		}
		return ""
	})
}

var unsafeFileChars = regexp.MustCompile(`[^-a-zA-Z0-9_+().]`)

// CleanFileName makes s usable as part of a file name: spaces become
// underscores and anything else outside [-a-zA-Z0-9_+().] is dropped.
func CleanFileName(s string) string {
	s = strings.Join(strings.Fields(s), "_")
	return unsafeFileChars.ReplaceAllString(s, "")
}

// BoardLookup resolves the placeholders known for a board of a project.
func BoardLookup(p *board.Project, b *board.Board) func(string) string {
	return func(key string) string {
		switch key {
		case "PROJECT":
			return p.Name
		case "VERSION":
			return p.Version
		case "BOARD":
			if b != nil {
				return b.Name
			}
		case "BOARD_INDEX":
			for i, other := range p.Boards {
				if other == b {
					return strconv.Itoa(i)
				}
			}
		}
		return ""
	}
}

// ResolvePath substitutes the board placeholders of path and makes it
// absolute relative to dir.
func ResolvePath(path, dir string, lookup func(string) string) string {
	path = Substitute(path, lookup, CleanFileName)
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	return filepath.Clean(path)
}

// deviceLookup resolves device attributes, then component attributes, then
// the built in device keys.
func deviceLookup(b *board.Board, d *board.Device) func(string) string {
	var cmp *board.Component
	if b.Circuit != nil {
		cmp = b.Circuit.Component(d.Component)
	}
	return func(key string) string {
		if v := d.Attribute(key); v != "" {
			return v
		}
		if cmp != nil {
			if v := cmp.Attribute(key); v != "" {
				return v
			}
		}
		switch key {
		case "DEVICE":
			return d.DeviceName
		case "PACKAGE":
			return d.PackageName
		case "NAME":
			return b.ComponentName(d)
		case "VALUE":
			if cmp != nil {
				return cmp.Value
			}
		}
		return ""
	}
}
