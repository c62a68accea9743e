// ABOUTME: Sentinel and typed errors for scene command validation.
// ABOUTME: Store actions fail with these instead of writing an inconsistent scene or deck.
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrSceneNotCreated indicates a command requires a scene that hasn't been created yet.
	ErrSceneNotCreated = errors.New("scene not yet created")

	// ErrNothingToUndo indicates the undo stack is empty.
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrActorBusy indicates the actor's command buffer is full.
	ErrActorBusy = errors.New("actor command buffer full")

	// ErrUnknownCommand indicates the command type is not recognized by the actor.
	ErrUnknownCommand = errors.New("unknown command type")

	// ErrUnknownKind indicates a function kind outside the known set.
	ErrUnknownKind = errors.New("unknown function kind")

	// ErrPointCount indicates a table size outside [MinPoints, MaxPoints].
	ErrPointCount = errors.New("point count out of range")

	// ErrNoLinkTargets indicates a combinator was added to a scene with no functions to link.
	ErrNoLinkTargets = errors.New("no functions available to link")

	// ErrSelfLink indicates a combinator names itself as an operand.
	ErrSelfLink = errors.New("function cannot link to itself")

	// ErrLinkCycle indicates the links would form a cycle.
	ErrLinkCycle = errors.New("function links form a cycle")

	// ErrInvalidName indicates an empty name or one that cannot be quoted in a deck.
	ErrInvalidName = errors.New("invalid function name")
)

// FunctionNotFoundError indicates the named function doesn't exist.
type FunctionNotFoundError struct {
	Name string
}

func (e *FunctionNotFoundError) Error() string {
	return fmt.Sprintf("function not found: %q", e.Name)
}

// DuplicateNameError indicates a function with the same name already exists.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("function name already in use: %q", e.Name)
}

// UnresolvedLinkError indicates a combinator references a function that doesn't exist.
type UnresolvedLinkError struct {
	Function string
	Link     string
}

func (e *UnresolvedLinkError) Error() string {
	return fmt.Sprintf("function %q links to unknown function %q", e.Function, e.Link)
}

// FunctionInUseError indicates a function is still referenced by combinators.
type FunctionInUseError struct {
	Name  string
	Users int
}

func (e *FunctionInUseError) Error() string {
	return fmt.Sprintf("function %q is used by %d link(s)", e.Name, e.Users)
}

// FunctionIndexError indicates a list index outside the collection.
type FunctionIndexError struct {
	Index int
	Len   int
}

func (e *FunctionIndexError) Error() string {
	return fmt.Sprintf("function index %d out of range [0,%d)", e.Index, e.Len)
}

// InvalidParamsError is returned when a function's fields are invalid.
type InvalidParamsError struct {
	Kind    Kind
	Field   string
	Message string
}

func (e *InvalidParamsError) Error() string {
	return fmt.Sprintf("%s function invalid %s: %s", e.Kind.Label(), e.Field, e.Message)
}

// Is matches any *InvalidParamsError.
func (e *InvalidParamsError) Is(target error) bool {
	_, ok := target.(*InvalidParamsError)
	return ok
}

func newInvalidParamsError(k Kind, field, format string, args ...any) *InvalidParamsError {
	return &InvalidParamsError{
		Kind:    k,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
	}
}
