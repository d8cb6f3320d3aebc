// ABOUTME: Applies ordered manual overrides and propagates them to descendants
// ABOUTME: Explicit choices always win over inherited ones

package status

import "github.com/nainya/codetree/pkg/hierarchy"

// Resolve applies updates in order and returns the new status map.
//
// Each update makes its code explicit, then every descendant whose status is
// still inherited takes the update's value. Explicit descendants are left
// alone. Because later updates overwrite inherited values, an inherited code
// ends up with the value of the most recent update that reaches it.
//
// The result holds every code of current plus every code an update touched.
// current is never modified. All updates are validated first; on error
// nothing is applied.
func Resolve(current StatusMap, updates []Update, h *hierarchy.Hierarchy) (StatusMap, error) {
	if err := Validate(updates, h); err != nil {
		return nil, err
	}

	next := current.Clone()
	for _, u := range updates {
		next[u.Code] = Status{Value: u.Value, Origin: Explicit}

		for d := range h.Descendants(u.Code) {
			s, ok := next[d]
			if !ok {
				s = Default()
			}
			if s.Origin == Inherited {
				next[d] = Status{Value: u.Value, Origin: Inherited}
			}
		}
	}

	return next, nil
}

// Validate checks every update against h without applying any of them
func Validate(updates []Update, h *hierarchy.Hierarchy) error {
	for _, u := range updates {
		if !h.Contains(u.Code) {
			return &hierarchy.UnknownCodeError{Code: u.Code}
		}
		if !u.Value.Valid() {
			return &InvalidUpdateError{Code: u.Code, Value: u.Value}
		}
	}
	return nil
}

// Changed returns the entries of next that differ from, or are missing in, prev
func Changed(prev, next StatusMap) StatusMap {
	out := make(StatusMap)
	for c, s := range next {
		if old, ok := prev[c]; !ok || old != s {
			out[c] = s
		}
	}
	return out
}
