package hierarchy

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownCode indicates a code that the provider or hierarchy does not know
	ErrUnknownCode = errors.New("hierarchy: unknown code")

	// ErrHierarchyCycle indicates provider data in which a code is its own ancestor
	ErrHierarchyCycle = errors.New("hierarchy: cycle detected")
)

// UnknownCodeError reports the code that could not be resolved
type UnknownCodeError struct {
	Code Code
}

func (e *UnknownCodeError) Error() string {
	return fmt.Sprintf("hierarchy: unknown code %q", string(e.Code))
}

// Is matches ErrUnknownCode
func (e *UnknownCodeError) Is(target error) bool {
	return target == ErrUnknownCode
}

// HierarchyCycleError carries one offending cycle, ancestor first, with the
// first code repeated at the end
type HierarchyCycleError struct {
	Path []Code
}

func (e *HierarchyCycleError) Error() string {
	return fmt.Sprintf("hierarchy: cycle detected: %s", strings.Join(Strings(e.Path), " -> "))
}

// Is matches ErrHierarchyCycle
func (e *HierarchyCycleError) Is(target error) bool {
	return target == ErrHierarchyCycle
}
