package content

import (
	"errors"
	"fmt"
)

// ErrMissingRequiredRoot marks a document missing one of the required
// top-level collections (resources, nodes, node instances).
var ErrMissingRequiredRoot = errors.New("missing required root collection")

// DuplicateIDError reports a duplicate id in a table whose policy is
// fail-loud. Tables with first-wins policy never produce this error.
type DuplicateIDError struct {
	Table string
	ID    string
}

func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("duplicate id %q in %s", e.ID, e.Table)
}

// UnknownReferenceError reports a content entry pointing at an id that does
// not exist in the referenced table.
type UnknownReferenceError struct {
	Table string
	ID    string
	Field string
	Ref   string
}

func (e *UnknownReferenceError) Error() string {
	return fmt.Sprintf("%s %q: %s references unknown id %q", e.Table, e.ID, e.Field, e.Ref)
}

// InvalidEmbeddedJSONError reports a buff whose effects_json string did not
// decode to an effect object or a list of effect objects.
type InvalidEmbeddedJSONError struct {
	BuffID string
	Err    error
}

func (e *InvalidEmbeddedJSONError) Error() string {
	return fmt.Sprintf("buff %q: invalid effects_json: %v", e.BuffID, e.Err)
}

func (e *InvalidEmbeddedJSONError) Unwrap() error { return e.Err }
