package hierarchy

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// diamondEdges builds this structure:
//
//	     ┌--0--┐
//	     |     |
//	  ┌--1--┌--2--┐
//	  |     |     |
//	┌-3-┐ ┌-4-┐ ┌-5-┐
//	|   | |   | |   |
//	6   7 8   9 10 11
func diamondEdges() []Edge {
	return []Edge{
		{"0", "1"}, {"0", "2"},
		{"1", "3"}, {"1", "4"},
		{"2", "4"}, {"2", "5"},
		{"3", "6"}, {"3", "7"},
		{"4", "8"}, {"4", "9"},
		{"5", "10"}, {"5", "11"},
	}
}

func diamond(t *testing.T) *Hierarchy {
	t.Helper()
	h, err := FromEdges(diamondEdges())
	require.NoError(t, err)
	return h
}

func TestDescendants(t *testing.T) {
	h := diamond(t)

	assert.Equal(t, NewCodeSet("4", "5", "8", "9", "10", "11"), h.Descendants("2"))
	assert.Equal(t, NewCodeSet("8", "9"), h.Descendants("4"))
	assert.Empty(t, h.Descendants("8"), "leaves have no descendants")
	assert.Empty(t, h.Descendants("missing"))
}

func TestAncestors(t *testing.T) {
	h := diamond(t)

	assert.Equal(t, NewCodeSet("4", "1", "2", "0"), h.Ancestors("8"))
	assert.Equal(t, NewCodeSet("0"), h.Ancestors("1"))
	assert.Empty(t, h.Ancestors("0"))
}

func TestClosureExcludesSelf(t *testing.T) {
	h := diamond(t)

	for c := range h.Nodes() {
		assert.False(t, h.Descendants(c).Has(c), "%s is its own descendant", c)
		assert.False(t, h.Ancestors(c).Has(c), "%s is its own ancestor", c)
	}
}

func TestAdjacencyMapsAreInverse(t *testing.T) {
	h := diamond(t)
	parents := h.ParentMap()
	children := h.ChildMap()

	for parent, cs := range children {
		for c := range cs {
			assert.True(t, parents[c].Has(parent), "%s -> %s missing from parent map", parent, c)
		}
	}
	for child, ps := range parents {
		for p := range ps {
			assert.True(t, children[p].Has(child), "%s -> %s missing from child map", p, child)
		}
	}

	// copies must not leak internal state
	children["0"].Add("99")
	assert.False(t, h.ChildMap()["0"].Has("99"))
}

func TestFilterToUltimateAncestors(t *testing.T) {
	h := diamond(t)

	tests := []struct {
		name  string
		codes CodeSet
		want  CodeSet
	}{
		{"empty", NewCodeSet(), NewCodeSet()},
		{"single", NewCodeSet("4"), NewCodeSet("4")},
		{"chain", NewCodeSet("1", "4", "8"), NewCodeSet("1")},
		{"siblings", NewCodeSet("3", "4", "5"), NewCodeSet("3", "4", "5")},
		{"shared descendant", NewCodeSet("1", "2", "4", "9"), NewCodeSet("1", "2")},
		{"non adjacent", NewCodeSet("0", "11"), NewCodeSet("0")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.FilterToUltimateAncestors(tt.codes)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, h.FilterToUltimateAncestors(got), "filter must be idempotent")
		})
	}
}

func TestFilterToUltimateAncestorsIdempotentOverAllSubsets(t *testing.T) {
	edges := []Edge{{"a", "b"}, {"a", "c"}, {"b", "d"}, {"c", "d"}, {"d", "e"}}
	h, err := FromEdges(edges)
	require.NoError(t, err)

	nodes := h.Nodes().Sorted()
	for mask := 0; mask < 1<<len(nodes); mask++ {
		s := make(CodeSet)
		for i, c := range nodes {
			if mask&(1<<i) != 0 {
				s.Add(c)
			}
		}
		once := h.FilterToUltimateAncestors(s)
		require.Equal(t, once, h.FilterToUltimateAncestors(once))
		for c := range once {
			for a := range h.Ancestors(c) {
				require.False(t, s.Has(a), "%s has ancestor %s in the set", c, a)
			}
		}
	}
}

func TestTopologicalOrder(t *testing.T) {
	h := diamond(t)
	order := h.TopologicalOrder()
	require.Len(t, order, h.Len())

	position := make(map[Code]int)
	for i, c := range order {
		position[c] = i
	}
	for child, ps := range h.ParentMap() {
		for p := range ps {
			assert.Less(t, position[p], position[child], "%s must precede %s", p, child)
		}
	}

	assert.Equal(t, Code("0"), order[0])
	assert.Equal(t, order, h.TopologicalOrder(), "order must be deterministic")
}

func TestRootsAndAdjacency(t *testing.T) {
	h := diamond(t)

	assert.Equal(t, []Code{"0"}, h.Roots())
	assert.Equal(t, Codes("1", "2"), h.Parents("4"))
	assert.Equal(t, Codes("3", "4"), h.Children("1"))
}

func TestFromEdgesExtraNodes(t *testing.T) {
	h, err := FromEdges([]Edge{{"a", "b"}}, "z")
	require.NoError(t, err)

	assert.True(t, h.Contains("z"))
	assert.Equal(t, Codes("a", "z"), h.Roots())
}

func TestDescendantsOfAll(t *testing.T) {
	h := diamond(t)
	assert.Equal(t, NewCodeSet("6", "7", "10", "11"), h.DescendantsOfAll(NewCodeSet("3", "5")))
}

func TestFromEdgesCycle(t *testing.T) {
	_, err := FromEdges([]Edge{{"a", "b"}, {"b", "c"}, {"c", "a"}, {"c", "d"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHierarchyCycle))

	var cycleErr *HierarchyCycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Len(t, cycleErr.Path, 4)
	assert.Equal(t, cycleErr.Path[0], cycleErr.Path[len(cycleErr.Path)-1])
}

func TestFromEdgesSelfLoop(t *testing.T) {
	_, err := FromEdges([]Edge{{"a", "a"}})

	var cycleErr *HierarchyCycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []Code{"a", "a"}, cycleErr.Path)
}

func TestCodeSetOperations(t *testing.T) {
	a := NewCodeSet("1", "2", "3")
	b := NewCodeSet("2", "3", "4")

	assert.Equal(t, NewCodeSet("1", "2", "3", "4"), a.Union(b))
	assert.Equal(t, NewCodeSet("1"), a.Difference(b))
	assert.True(t, a.Equal(NewCodeSet("3", "2", "1")))
	assert.Equal(t, Codes("1", "2", "3"), a.Sorted())
}
