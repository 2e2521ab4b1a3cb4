package clipping

import (
	"math"
	"sort"

	clipper "github.com/ctessum/go.clipper"
)

// TreeToPaths returns every contour of the tree, outlines and holes, with
// their orientation preserved.
func TreeToPaths(tree *Tree) Paths {
	if tree == nil {
		return nil
	}
	var out Paths
	var walk func(n *clipper.PolyNode)
	walk = func(n *clipper.PolyNode) {
		for _, child := range n.Childs() {
			if len(child.Contour()) > 0 {
				out = append(out, child.Contour())
			}
			walk(child)
		}
	}
	walk(&tree.PolyNode)
	return out
}

// FlattenTree converts a tree into hole-free outlines. Every hole is joined
// to its enclosing outline by a zero-width cut-in line, so each returned path
// describes one connected area including its holes.
func FlattenTree(tree *Tree) Paths {
	if tree == nil {
		return nil
	}
	return flattenNode(&tree.PolyNode)
}

func flattenNode(n *clipper.PolyNode) Paths {
	var out Paths
	for _, outline := range n.Childs() {
		if outline.IsHole() || len(outline.Contour()) < 3 {
			continue
		}
		var holes Paths
		for _, hole := range outline.Childs() {
			if len(hole.Contour()) >= 3 {
				holes = append(holes, hole.Contour())
			}
		}
		out = append(out, cutInHoles(outline.Contour(), holes))
		for _, hole := range outline.Childs() {
			out = append(out, flattenNode(hole)...)
		}
	}
	return out
}

// cutInHoles merges holes into the outline. Holes are processed from the
// bottom up; each one is connected by a vertical line from its lowest vertex
// down to the nearest edge of the path built so far.
func cutInHoles(outline clipper.Path, holes Paths) clipper.Path {
	type prepared struct {
		path   clipper.Path
		lowest int
	}
	prep := make([]prepared, 0, len(holes))
	for _, h := range holes {
		prep = append(prep, prepared{path: h, lowest: lowestVertex(h)})
	}
	sort.SliceStable(prep, func(i, j int) bool {
		a, b := prep[i].path[prep[i].lowest], prep[j].path[prep[j].lowest]
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	result := append(clipper.Path(nil), outline...)
	for _, h := range prep {
		start := h.path[h.lowest]
		edge, hit, ok := castDown(result, start)
		if !ok {
			continue
		}
		merged := make(clipper.Path, 0, len(result)+len(h.path)+3)
		merged = append(merged, result[:edge+1]...)
		merged = append(merged, hit)
		for k := 0; k <= len(h.path); k++ {
			merged = append(merged, h.path[(h.lowest+k)%len(h.path)])
		}
		merged = append(merged, &clipper.IntPoint{X: hit.X, Y: hit.Y})
		merged = append(merged, result[edge+1:]...)
		result = merged
	}
	return result
}

func lowestVertex(p clipper.Path) int {
	best := 0
	for i, pt := range p {
		if pt.Y < p[best].Y || (pt.Y == p[best].Y && pt.X < p[best].X) {
			best = i
		}
	}
	return best
}

// castDown finds the nearest edge of the closed path directly below pt. It
// returns the index of the edge's first vertex and the hit point.
func castDown(p clipper.Path, pt *clipper.IntPoint) (int, *clipper.IntPoint, bool) {
	bestEdge := -1
	var bestY clipper.CInt
	for i := range p {
		a, b := p[i], p[(i+1)%len(p)]
		lo, hi := a.X, b.X
		if lo > hi {
			lo, hi = hi, lo
		}
		if pt.X < lo || pt.X > hi {
			continue
		}
		var y clipper.CInt
		if a.X == b.X {
			y = a.Y
			if b.Y > y && b.Y <= pt.Y {
				y = b.Y
			}
		} else {
			f := float64(pt.X-a.X) / float64(b.X-a.X)
			y = a.Y + clipper.CInt(math.Round(f*float64(b.Y-a.Y)))
		}
		if y > pt.Y {
			continue
		}
		if bestEdge < 0 || y > bestY {
			bestEdge, bestY = i, y
		}
	}
	if bestEdge < 0 {
		return 0, nil, false
	}
	return bestEdge, &clipper.IntPoint{X: pt.X, Y: bestY}, true
}
