// ABOUTME: Rule-based description of a code set relative to a hierarchy
// ABOUTME: Including and excluding rules nest as alternating exception trees

package definition

import (
	"fmt"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// Polarity says whether a rule adds or removes codes
type Polarity int

const (
	Including Polarity = iota
	Excluding
)

// Opposite flips the polarity
func (p Polarity) Opposite() Polarity {
	if p == Including {
		return Excluding
	}
	return Including
}

func (p Polarity) String() string {
	if p == Excluding {
		return "exclude"
	}
	return "include"
}

// MarshalText encodes the polarity as "include" or "exclude"
func (p Polarity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes "include" or "exclude"
func (p *Polarity) UnmarshalText(text []byte) error {
	switch string(text) {
	case "include":
		*p = Including
	case "exclude":
		*p = Excluding
	default:
		return fmt.Errorf("definition: unknown polarity %q", string(text))
	}
	return nil
}

// Rule selects a code, optionally with all of its descendants. Exceptions
// carve codes back out of a descendants rule and carry the opposite polarity.
type Rule struct {
	Code                 hierarchy.Code `json:"code"`
	Polarity             Polarity       `json:"polarity"`
	AppliesToDescendants bool           `json:"applies_to_descendants"`
	Exceptions           []Rule         `json:"exceptions,omitempty"`
}

// Definition is an ordered list of top-level rules
type Definition struct {
	Rules []Rule `json:"rules"`
}

// IncludingRules returns every including rule, depth first
func (d Definition) IncludingRules() []Rule {
	return d.flatten(Including)
}

// ExcludingRules returns every excluding rule, depth first
func (d Definition) ExcludingRules() []Rule {
	return d.flatten(Excluding)
}

func (d Definition) flatten(p Polarity) []Rule {
	var out []Rule
	var visit func(rules []Rule)
	visit = func(rules []Rule) {
		for _, r := range rules {
			if r.Polarity == p {
				out = append(out, r)
			}
			visit(r.Exceptions)
		}
	}
	visit(d.Rules)
	return out
}

// Codes returns every code named by a rule
func (d Definition) Codes() hierarchy.CodeSet {
	out := make(hierarchy.CodeSet)
	var visit func(rules []Rule)
	visit = func(rules []Rule) {
		for _, r := range rules {
			out.Add(r.Code)
			visit(r.Exceptions)
		}
	}
	visit(d.Rules)
	return out
}

// Len counts rules at every depth
func (d Definition) Len() int {
	n := 0
	var visit func(rules []Rule)
	visit = func(rules []Rule) {
		n += len(rules)
		for _, r := range rules {
			visit(r.Exceptions)
		}
	}
	visit(d.Rules)
	return n
}
