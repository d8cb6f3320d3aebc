package status

import (
	"errors"
	"fmt"

	"github.com/nainya/codetree/pkg/hierarchy"
)

// ErrInvalidUpdate indicates an update whose value is neither Included nor Excluded
var ErrInvalidUpdate = errors.New("status: invalid update")

// InvalidUpdateError reports the offending update
type InvalidUpdateError struct {
	Code  hierarchy.Code
	Value Value
}

func (e *InvalidUpdateError) Error() string {
	return fmt.Sprintf("status: invalid update for %q: %s", string(e.Code), e.Value)
}

// Is matches ErrInvalidUpdate
func (e *InvalidUpdateError) Is(target error) bool {
	return target == ErrInvalidUpdate
}
