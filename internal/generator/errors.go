package generator

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingField is matched by a BuildError for an absent required field.
	ErrMissingField = errors.New("missing required field")
	// ErrInvalidField is matched by a BuildError for a present but unusable field.
	ErrInvalidField = errors.New("invalid field")
	// ErrUnsupportedEvent is matched by a BuildError for an event subtype
	// that has no graph mapping.
	ErrUnsupportedEvent = errors.New("unsupported event type")
)

// Reason classifies a BuildError.
type Reason int

const (
	ReasonMissing Reason = iota + 1
	ReasonInvalid
	ReasonUnsupported
)

func (r Reason) String() string {
	switch r {
	case ReasonMissing:
		return "missing"
	case ReasonInvalid:
		return "invalid"
	case ReasonUnsupported:
		return "unsupported"
	default:
		return "unknown"
	}
}

// BuildError reports why an event could not become a node.
type BuildError struct {
	Field  string
	Reason Reason
	Value  string
}

func (e *BuildError) Error() string {
	switch e.Reason {
	case ReasonMissing:
		return fmt.Sprintf("build node: field %q is required", e.Field)
	case ReasonUnsupported:
		return fmt.Sprintf("build node: event type %q is not supported", e.Value)
	default:
		return fmt.Sprintf("build node: field %q has invalid value %q", e.Field, e.Value)
	}
}

// Is lets errors.Is match a BuildError against the package sentinels.
func (e *BuildError) Is(target error) bool {
	switch target {
	case ErrMissingField:
		return e.Reason == ReasonMissing
	case ErrInvalidField:
		return e.Reason == ReasonInvalid
	case ErrUnsupportedEvent:
		return e.Reason == ReasonUnsupported
	}
	return false
}
