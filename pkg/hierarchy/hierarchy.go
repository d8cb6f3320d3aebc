// ABOUTME: Induced DAG over a set of codes of interest
// ABOUTME: Ancestor, descendant and coverage queries used by every other engine

package hierarchy

import (
	"container/heap"
	"slices"
)

// Hierarchy is an immutable directed acyclic graph over a finite node set.
// parents and children are inverses of each other and only reference codes
// in nodes. A Hierarchy is safe for concurrent reads.
type Hierarchy struct {
	nodes    CodeSet
	parents  map[Code]CodeSet
	children map[Code]CodeSet
	order    []Code // general to specific
}

// FromEdges builds a hierarchy directly from (parent, child) edges. Extra
// codes are added as nodes even when no edge mentions them.
func FromEdges(edges []Edge, extra ...Code) (*Hierarchy, error) {
	nodes := NewCodeSet(extra...)
	parents := make(map[Code]CodeSet)
	children := make(map[Code]CodeSet)

	for _, e := range edges {
		nodes.Add(e.Parent)
		nodes.Add(e.Child)
		link(parents, children, e.Parent, e.Child)
	}

	return newHierarchy(nodes, parents, children)
}

func link(parents, children map[Code]CodeSet, parent, child Code) {
	if parents[child] == nil {
		parents[child] = make(CodeSet)
	}
	parents[child].Add(parent)

	if children[parent] == nil {
		children[parent] = make(CodeSet)
	}
	children[parent].Add(child)
}

func newHierarchy(nodes CodeSet, parents, children map[Code]CodeSet) (*Hierarchy, error) {
	h := &Hierarchy{
		nodes:    nodes,
		parents:  parents,
		children: children,
	}

	order, err := h.topologicalSort()
	if err != nil {
		return nil, err
	}
	h.order = order

	return h, nil
}

// topologicalSort orders nodes so that every code follows all of its
// ancestors; ready codes are taken in ascending order
func (h *Hierarchy) topologicalSort() ([]Code, error) {
	indegree := make(map[Code]int, len(h.nodes))
	for c := range h.nodes {
		indegree[c] = len(h.parents[c])
	}

	ready := codeHeap(h.Roots())
	heap.Init(&ready)

	order := make([]Code, 0, len(h.nodes))
	for ready.Len() > 0 {
		c := heap.Pop(&ready).(Code)
		order = append(order, c)

		for child := range h.children[c] {
			indegree[child]--
			if indegree[child] == 0 {
				heap.Push(&ready, child)
			}
		}
	}

	if len(order) < len(h.nodes) {
		return nil, &HierarchyCycleError{Path: h.findCycle(indegree)}
	}

	return order, nil
}

// findCycle walks parent edges among the codes left unsorted; every such
// code still has an unsorted parent, so the walk must revisit a code
func (h *Hierarchy) findCycle(indegree map[Code]int) []Code {
	var remaining []Code
	for c, d := range indegree {
		if d > 0 {
			remaining = append(remaining, c)
		}
	}
	slices.Sort(remaining)

	position := make(map[Code]int)
	var path []Code
	current := remaining[0]

	for {
		if i, seen := position[current]; seen {
			cycle := slices.Clone(path[i:])
			slices.Reverse(cycle)
			return append(cycle, cycle[0])
		}
		position[current] = len(path)
		path = append(path, current)

		var next []Code
		for p := range h.parents[current] {
			if indegree[p] > 0 {
				next = append(next, p)
			}
		}
		slices.Sort(next)
		current = next[0]
	}
}

// Nodes returns a copy of the node set
func (h *Hierarchy) Nodes() CodeSet {
	return h.nodes.Clone()
}

// Len returns the number of nodes
func (h *Hierarchy) Len() int {
	return len(h.nodes)
}

// Contains reports whether code is a node of the hierarchy
func (h *Hierarchy) Contains(code Code) bool {
	return h.nodes.Has(code)
}

// Parents returns the immediate parents of code in ascending order
func (h *Hierarchy) Parents(code Code) []Code {
	return h.parents[code].Sorted()
}

// Children returns the immediate children of code in ascending order
func (h *Hierarchy) Children(code Code) []Code {
	return h.children[code].Sorted()
}

// ParentMap returns a copy of the immediate child -> parents adjacency
func (h *Hierarchy) ParentMap() map[Code]CodeSet {
	return copyAdjacency(h.parents)
}

// ChildMap returns a copy of the immediate parent -> children adjacency
func (h *Hierarchy) ChildMap() map[Code]CodeSet {
	return copyAdjacency(h.children)
}

func copyAdjacency(m map[Code]CodeSet) map[Code]CodeSet {
	out := make(map[Code]CodeSet, len(m))
	for c, set := range m {
		if len(set) > 0 {
			out[c] = set.Clone()
		}
	}
	return out
}

// TopologicalOrder returns all nodes, each after every one of its ancestors
func (h *Hierarchy) TopologicalOrder() []Code {
	return slices.Clone(h.order)
}

// Roots returns nodes without parents, in ascending order
func (h *Hierarchy) Roots() []Code {
	var roots []Code
	for c := range h.nodes {
		if len(h.parents[c]) == 0 {
			roots = append(roots, c)
		}
	}
	slices.Sort(roots)
	return roots
}

// Descendants returns every code reachable through one or more child edges.
// The result never contains code itself.
func (h *Hierarchy) Descendants(code Code) CodeSet {
	return closure(h.children, code)
}

// Ancestors returns every code reachable through one or more parent edges.
// The result never contains code itself.
func (h *Hierarchy) Ancestors(code Code) CodeSet {
	return closure(h.parents, code)
}

// DescendantsOfAll returns the union of the descendants of codes
func (h *Hierarchy) DescendantsOfAll(codes CodeSet) CodeSet {
	out := make(CodeSet)
	for c := range codes {
		for d := range h.Descendants(c) {
			out.Add(d)
		}
	}
	return out
}

func closure(adjacency map[Code]CodeSet, start Code) CodeSet {
	seen := make(CodeSet)
	stack := []Code{start}

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for next := range adjacency[c] {
			if !seen.Has(next) {
				seen.Add(next)
				stack = append(stack, next)
			}
		}
	}

	return seen
}

// FilterToUltimateAncestors returns the members of codes that have no strict
// ancestor in codes
func (h *Hierarchy) FilterToUltimateAncestors(codes CodeSet) CodeSet {
	out := make(CodeSet)
	for c := range codes {
		if !h.hasAncestorIn(c, codes) {
			out.Add(c)
		}
	}
	return out
}

// hasAncestorIn stops at the first ancestor found in set
func (h *Hierarchy) hasAncestorIn(code Code, set CodeSet) bool {
	seen := make(CodeSet)
	stack := []Code{code}

	for len(stack) > 0 {
		c := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		for p := range h.parents[c] {
			if set.Has(p) {
				return true
			}
			if !seen.Has(p) {
				seen.Add(p)
				stack = append(stack, p)
			}
		}
	}

	return false
}

// codeHeap is a min-heap of codes
type codeHeap []Code

func (h codeHeap) Len() int           { return len(h) }
func (h codeHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h codeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *codeHeap) Push(x any) {
	*h = append(*h, x.(Code))
}

func (h *codeHeap) Pop() any {
	old := *h
	n := len(old)
	c := old[n-1]
	*h = old[:n-1]
	return c
}
