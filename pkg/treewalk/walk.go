// ABOUTME: Depth-first tree rendering over a hierarchy
// ABOUTME: Emits display-ordered rows with connector and guide-line markers

package treewalk

import (
	"cmp"
	"iter"
	"slices"
	"strings"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// Pipe markers, one per level below the starting code
const (
	Branch   = "├" // node has a later sibling
	Last     = "└" // node is the last sibling
	Guide    = "│" // an ancestor at this level has a later sibling
	Blank    = " " // an ancestor at this level was the last sibling
	joinText = "─ "
)

// SortKey orders siblings; ties fall back to the code itself
type SortKey func(hierarchy.Code) string

// ByCode sorts siblings by their identifier
func ByCode(c hierarchy.Code) string {
	return string(c)
}

// ByName sorts siblings by term, using the code for codes without one
func ByName(names map[hierarchy.Code]string) SortKey {
	return func(c hierarchy.Code) string {
		if name, ok := names[c]; ok {
			return name
		}
		return string(c)
	}
}

// Row is one line of a rendered tree
type Row struct {
	Code  hierarchy.Code
	Depth int
	Pipes []string
}

// Prefix renders the pipes as box-drawing text, e.g. "│  └─ "
func (r Row) Prefix() string {
	var sb strings.Builder
	for i, p := range r.Pipes {
		if i == len(r.Pipes)-1 {
			sb.WriteString(p + joinText)
			continue
		}
		sb.WriteString(p + "  ")
	}
	return sb.String()
}

// Walk visits start and everything below it in pre-order, siblings sorted by
// key. A code with several parents in the subtree is emitted once per path.
// The sequence can be ranged over repeatedly with the same result.
func Walk(h *hierarchy.Hierarchy, start hierarchy.Code, key SortKey) (iter.Seq[Row], error) {
	return WalkForest(h, []hierarchy.Code{start}, key)
}

// WalkForest walks each start code in key order, one tree after another.
// Every start must be in h.
func WalkForest(h *hierarchy.Hierarchy, starts []hierarchy.Code, key SortKey) (iter.Seq[Row], error) {
	for _, start := range starts {
		if !h.Contains(start) {
			return nil, &hierarchy.UnknownCodeError{Code: start}
		}
	}
	if key == nil {
		key = ByCode
	}

	ordered := sortCodes(starts, key)
	return func(yield func(Row) bool) {
		for _, start := range ordered {
			if !walk(h, start, key, nil, yield) {
				return
			}
		}
	}, nil
}

// Rows collects a walk into a slice
func Rows(h *hierarchy.Hierarchy, start hierarchy.Code, key SortKey) ([]Row, error) {
	seq, err := Walk(h, start, key)
	if err != nil {
		return nil, err
	}
	return slices.Collect(seq), nil
}

// walk reports false once the consumer stops early
func walk(h *hierarchy.Hierarchy, code hierarchy.Code, key SortKey, lasts []bool, yield func(Row) bool) bool {
	if !yield(Row{Code: code, Depth: len(lasts), Pipes: pipes(lasts)}) {
		return false
	}

	children := sortCodes(h.Children(code), key)
	for i, child := range children {
		next := append(slices.Clone(lasts), i == len(children)-1)
		if !walk(h, child, key, next, yield) {
			return false
		}
	}

	return true
}

func pipes(lasts []bool) []string {
	out := make([]string, len(lasts))
	for i, last := range lasts {
		own := i == len(lasts)-1
		switch {
		case own && last:
			out[i] = Last
		case own:
			out[i] = Branch
		case last:
			out[i] = Blank
		default:
			out[i] = Guide
		}
	}
	return out
}

func sortCodes(codes []hierarchy.Code, key SortKey) []hierarchy.Code {
	out := slices.Clone(codes)
	slices.SortFunc(out, func(a, b hierarchy.Code) int {
		return cmp.Or(cmp.Compare(key(a), key(b)), cmp.Compare(a, b))
	})
	return out
}
