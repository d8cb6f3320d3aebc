package definition

import (
	"github.com/nainya/codetree/pkg/hierarchy"
)

// Validate checks def against h:
//   - every rule names a code in h
//   - no top-level code repeats or lies under another top-level
//     descendants rule
//   - exceptions only hang off descendants rules, flip polarity, and name
//     strict descendants of their parent rule
func Validate(def Definition, h *hierarchy.Hierarchy) error {
	for _, c := range def.Codes().Sorted() {
		if !h.Contains(c) {
			return &hierarchy.UnknownCodeError{Code: c}
		}
	}

	for i, r := range def.Rules {
		for j, other := range def.Rules {
			if i == j {
				continue
			}
			if r.Code == other.Code {
				return &InvalidDefinitionError{Code: r.Code, Reason: "repeated top-level rule"}
			}
			if other.AppliesToDescendants && h.Descendants(other.Code).Has(r.Code) {
				return &InvalidDefinitionError{
					Code:   r.Code,
					Reason: "subsumed by top-level rule for " + string(other.Code),
				}
			}
		}
	}

	for _, r := range def.Rules {
		if err := validateExceptions(r, h); err != nil {
			return err
		}
	}

	return nil
}

func validateExceptions(r Rule, h *hierarchy.Hierarchy) error {
	if len(r.Exceptions) == 0 {
		return nil
	}
	if !r.AppliesToDescendants {
		return &InvalidDefinitionError{Code: r.Code, Reason: "exceptions on a rule without descendants"}
	}

	descendants := h.Descendants(r.Code)
	for _, exc := range r.Exceptions {
		if !descendants.Has(exc.Code) {
			return &InvalidDefinitionError{
				Code:   exc.Code,
				Reason: "not a descendant of " + string(r.Code),
			}
		}
		if exc.Polarity == r.Polarity {
			return &InvalidDefinitionError{
				Code:   exc.Code,
				Reason: "exception has the same polarity as " + string(r.Code),
			}
		}
		if err := validateExceptions(exc, h); err != nil {
			return err
		}
	}

	return nil
}
