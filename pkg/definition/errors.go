package definition

import (
	"errors"
	"fmt"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// ErrInvalidDefinition indicates a rule tree that breaks the nesting invariants
var ErrInvalidDefinition = errors.New("definition: invalid definition")

// InvalidDefinitionError names the offending rule
type InvalidDefinitionError struct {
	Code   hierarchy.Code
	Reason string
}

func (e *InvalidDefinitionError) Error() string {
	return fmt.Sprintf("definition: invalid rule for %q: %s", string(e.Code), e.Reason)
}

// Is matches ErrInvalidDefinition
func (e *InvalidDefinitionError) Is(target error) bool {
	return target == ErrInvalidDefinition
}
