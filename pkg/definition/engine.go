// ABOUTME: Compression of a code set into rules and expansion back to codes
// ABOUTME: FromCodes and ToCodes are exact inverses over a hierarchy

package definition

import (
	"slices"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// FromCodes describes included as a definition over h.
//
// Codes are visited general to specific. Each ultimate ancestor of the set
// gets one rule, emitted in ascending code order. A rule covers its
// descendants when any of them share its polarity; descendants of the other
// polarity then become exceptions, built the same way with the polarity
// flipped. A code none of whose descendants share its
// polarity gets a rule for the code alone.
func FromCodes(included hierarchy.CodeSet, h *hierarchy.Hierarchy) (Definition, error) {
	for _, c := range included.Sorted() {
		if !h.Contains(c) {
			return Definition{}, &hierarchy.UnknownCodeError{Code: c}
		}
	}

	cmp := &compressor{h: h, included: included, order: h.TopologicalOrder()}
	return Definition{Rules: cmp.rules(included, Including)}, nil
}

type compressor struct {
	h        *hierarchy.Hierarchy
	included hierarchy.CodeSet
	order    []hierarchy.Code // general to specific
}

// member reports whether c belongs on the p side of the set
func (c *compressor) member(code hierarchy.Code, p Polarity) bool {
	return c.included.Has(code) == (p == Including)
}

func (c *compressor) rules(targets hierarchy.CodeSet, p Polarity) []Rule {
	tops := c.tops(targets)
	out := make([]Rule, 0, len(tops))
	for _, code := range tops {
		out = append(out, c.rule(code, p))
	}
	return out
}

// tops returns the targets with no ancestor among the targets, ascending.
// Parents are always visited first, so one pass over the order settles
// which codes sit below a target.
func (c *compressor) tops(targets hierarchy.CodeSet) []hierarchy.Code {
	below := make(hierarchy.CodeSet)
	var tops []hierarchy.Code

	for _, code := range c.order {
		for _, parent := range c.h.Parents(code) {
			if targets.Has(parent) || below.Has(parent) {
				below.Add(code)
				break
			}
		}
		if targets.Has(code) && !below.Has(code) {
			tops = append(tops, code)
		}
	}

	slices.Sort(tops)
	return tops
}

func (c *compressor) rule(code hierarchy.Code, p Polarity) Rule {
	descendants := c.h.Descendants(code)

	same := make(hierarchy.CodeSet)
	other := make(hierarchy.CodeSet)
	for d := range descendants {
		if c.member(d, p) {
			same.Add(d)
		} else {
			other.Add(d)
		}
	}

	r := Rule{Code: code, Polarity: p, AppliesToDescendants: true}
	switch {
	case len(other) == 0:
	case len(same) == 0:
		r.AppliesToDescendants = false
	default:
		r.Exceptions = c.rules(other, p.Opposite())
	}
	return r
}

// ToCodes expands def into the concrete set of included codes: the union of
// the including top-level rules minus the union of the excluding ones.
func ToCodes(def Definition, h *hierarchy.Hierarchy) (hierarchy.CodeSet, error) {
	for _, c := range def.Codes().Sorted() {
		if !h.Contains(c) {
			return nil, &hierarchy.UnknownCodeError{Code: c}
		}
	}

	included := make(hierarchy.CodeSet)
	excluded := make(hierarchy.CodeSet)
	for _, r := range def.Rules {
		target := included
		if r.Polarity == Excluding {
			target = excluded
		}
		for code := range expand(r, h) {
			target.Add(code)
		}
	}

	return included.Difference(excluded), nil
}

// expand returns the codes a rule selects once its exceptions are removed
func expand(r Rule, h *hierarchy.Hierarchy) hierarchy.CodeSet {
	out := hierarchy.NewCodeSet(r.Code)
	if r.AppliesToDescendants {
		for d := range h.Descendants(r.Code) {
			out.Add(d)
		}
	}

	for _, exc := range r.Exceptions {
		for code := range expand(exc, h) {
			delete(out, code)
		}
	}

	return out
}
