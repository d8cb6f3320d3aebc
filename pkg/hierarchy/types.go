// ABOUTME: Code identifiers and code set helpers
// ABOUTME: Value types shared by the hierarchy, status and definition engines

package hierarchy

import (
	"maps"
	"slices"
)

// Code identifies a concept in a coding system (e.g. a SNOMED CT concept id)
type Code string

// Edge is a single is-a relationship from Parent to Child
type Edge struct {
	Parent Code
	Child  Code
}

// CodeSet is an unordered set of codes
type CodeSet map[Code]struct{}

// NewCodeSet creates a set holding the given codes
func NewCodeSet(codes ...Code) CodeSet {
	s := make(CodeSet, len(codes))
	for _, c := range codes {
		s[c] = struct{}{}
	}
	return s
}

// Add inserts a code
func (s CodeSet) Add(c Code) {
	s[c] = struct{}{}
}

// Has reports whether c is a member
func (s CodeSet) Has(c Code) bool {
	_, ok := s[c]
	return ok
}

// Len returns the number of members
func (s CodeSet) Len() int {
	return len(s)
}

// Clone returns an independent copy
func (s CodeSet) Clone() CodeSet {
	out := make(CodeSet, len(s))
	for c := range s {
		out[c] = struct{}{}
	}
	return out
}

// Union returns s ∪ o as a new set
func (s CodeSet) Union(o CodeSet) CodeSet {
	out := s.Clone()
	for c := range o {
		out[c] = struct{}{}
	}
	return out
}

// Difference returns s \ o as a new set
func (s CodeSet) Difference(o CodeSet) CodeSet {
	out := make(CodeSet)
	for c := range s {
		if !o.Has(c) {
			out[c] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold exactly the same codes
func (s CodeSet) Equal(o CodeSet) bool {
	if len(s) != len(o) {
		return false
	}
	for c := range s {
		if !o.Has(c) {
			return false
		}
	}
	return true
}

// Sorted returns the members in ascending order
func (s CodeSet) Sorted() []Code {
	return slices.Sorted(maps.Keys(s))
}

// Codes converts plain strings to codes
func Codes(values ...string) []Code {
	out := make([]Code, len(values))
	for i, v := range values {
		out[i] = Code(v)
	}
	return out
}

// Strings converts codes back to plain strings
func Strings(codes []Code) []string {
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
