// ABOUTME: Per-code inclusion status as a (value, origin) pair
// ABOUTME: Symbol form (+, (+), -, (-)) used at the persistence boundary

package status

import (
	"fmt"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// Value says whether a code is in the codelist
type Value int

const (
	Excluded Value = iota
	Included
)

func (v Value) String() string {
	switch v {
	case Included:
		return "included"
	case Excluded:
		return "excluded"
	default:
		return fmt.Sprintf("Value(%d)", int(v))
	}
}

// Valid reports whether v is Included or Excluded
func (v Value) Valid() bool {
	return v == Included || v == Excluded
}

// ParseValue accepts "+"/"included" and "-"/"excluded"
func ParseValue(s string) (Value, error) {
	switch s {
	case "+", "included", "include":
		return Included, nil
	case "-", "excluded", "exclude":
		return Excluded, nil
	default:
		return 0, fmt.Errorf("%w: value %q", ErrInvalidUpdate, s)
	}
}

// Origin says whether a status was chosen directly or derived from ancestors
type Origin int

const (
	Inherited Origin = iota
	Explicit
)

func (o Origin) String() string {
	if o == Explicit {
		return "explicit"
	}
	return "inherited"
}

// Status is the resolved state of one code
type Status struct {
	Value  Value
	Origin Origin
}

// Default is the status of a code no explicit choice reaches
func Default() Status {
	return Status{Value: Excluded, Origin: Inherited}
}

// Symbol returns the stored form: "+", "(+)", "-" or "(-)"
func (s Status) Symbol() string {
	sym := "-"
	if s.Value == Included {
		sym = "+"
	}
	if s.Origin == Inherited {
		return "(" + sym + ")"
	}
	return sym
}

func (s Status) String() string {
	return s.Symbol()
}

// ParseSymbol is the inverse of Symbol
func ParseSymbol(sym string) (Status, error) {
	switch sym {
	case "+":
		return Status{Value: Included, Origin: Explicit}, nil
	case "(+)":
		return Status{Value: Included, Origin: Inherited}, nil
	case "-":
		return Status{Value: Excluded, Origin: Explicit}, nil
	case "(-)":
		return Status{Value: Excluded, Origin: Inherited}, nil
	default:
		return Status{}, fmt.Errorf("status: unknown symbol %q", sym)
	}
}

// Update is a single manual include or exclude of a code
type Update struct {
	Code  hierarchy.Code
	Value Value
}

// StatusMap holds the status of every code under consideration
type StatusMap map[hierarchy.Code]Status

// Initial gives every node of h the default status
func Initial(h *hierarchy.Hierarchy) StatusMap {
	m := make(StatusMap, h.Len())
	for c := range h.Nodes() {
		m[c] = Default()
	}
	return m
}

// Clone returns an independent copy
func (m StatusMap) Clone() StatusMap {
	out := make(StatusMap, len(m))
	for c, s := range m {
		out[c] = s
	}
	return out
}

// Included returns codes whose value is Included, whatever the origin
func (m StatusMap) Included() hierarchy.CodeSet {
	return m.filter(func(s Status) bool { return s.Value == Included })
}

// Excluded returns codes whose value is Excluded, whatever the origin
func (m StatusMap) Excluded() hierarchy.CodeSet {
	return m.filter(func(s Status) bool { return s.Value == Excluded })
}

// Explicit returns codes with a directly chosen status
func (m StatusMap) Explicit() hierarchy.CodeSet {
	return m.filter(func(s Status) bool { return s.Origin == Explicit })
}

func (m StatusMap) filter(keep func(Status) bool) hierarchy.CodeSet {
	out := make(hierarchy.CodeSet)
	for c, s := range m {
		if keep(s) {
			out.Add(c)
		}
	}
	return out
}

// Counts tallies codes by symbol
func (m StatusMap) Counts() map[string]int {
	counts := make(map[string]int, 4)
	for _, s := range m {
		counts[s.Symbol()]++
	}
	return counts
}

// Symbols converts the map to its stored form
func (m StatusMap) Symbols() map[hierarchy.Code]string {
	out := make(map[hierarchy.Code]string, len(m))
	for c, s := range m {
		out[c] = s.Symbol()
	}
	return out
}

// FromSymbols parses a stored map
func FromSymbols(symbols map[hierarchy.Code]string) (StatusMap, error) {
	out := make(StatusMap, len(symbols))
	for c, sym := range symbols {
		s, err := ParseSymbol(sym)
		if err != nil {
			return nil, fmt.Errorf("status: code %q: %w", string(c), err)
		}
		out[c] = s
	}
	return out, nil
}
