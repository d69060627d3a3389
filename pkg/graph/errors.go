package graph

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrSchema          = errors.New("schema violation")
	ErrEmptyInput      = errors.New("empty input")
	ErrUnknownType     = errors.New("unknown type node")
	ErrAmbiguousMatch  = errors.New("ambiguous match")
	ErrNoMatch         = errors.New("no match")
	ErrIntegrity       = errors.New("referential integrity violation")
	ErrClosureDiverged = errors.New("closure did not reach a fixed point")
	ErrNotImplemented  = errors.New("not implemented")
)

// GraphError provides structured error information for graph operations.
type GraphError struct {
	Op      string // Operation that failed (e.g., "ResolveReferenceType", "ParseNodeSet")
	Entity  string // Entity type (e.g., "node", "reference", "namespace")
	ID      ID     // Surrogate entity id (if applicable)
	Name    string // Browse or display name (if applicable)
	Cause   error  // Underlying error
	Context string // Additional context
}

// Error implements the error interface.
func (e *GraphError) Error() string {
	if e.ID != NilID {
		if e.Name != "" {
			return fmt.Sprintf("%s %s %d (%s): %v", e.Op, e.Entity, e.ID, e.Name, e.Cause)
		}
		return fmt.Sprintf("%s %s %d: %v", e.Op, e.Entity, e.ID, e.Cause)
	}
	if e.Name != "" {
		return fmt.Sprintf("%s %s %q: %v", e.Op, e.Entity, e.Name, e.Cause)
	}
	if e.Context != "" {
		return fmt.Sprintf("%s %s (%s): %v", e.Op, e.Entity, e.Context, e.Cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Entity, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *GraphError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *GraphError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// ErrorBuilder provides a fluent interface for building GraphErrors.
type ErrorBuilder struct {
	err GraphError
}

// NewError creates a new error builder with the given operation.
func NewError(op string) *ErrorBuilder {
	return &ErrorBuilder{err: GraphError{Op: op, ID: NilID}}
}

// Node sets the entity to "node" with the given surrogate id.
func (b *ErrorBuilder) Node(id ID) *ErrorBuilder {
	b.err.Entity = "node"
	b.err.ID = id
	return b
}

// Reference sets the entity to "reference".
func (b *ErrorBuilder) Reference() *ErrorBuilder {
	b.err.Entity = "reference"
	return b
}

// Namespace sets the entity to "namespace" with the given URI.
func (b *ErrorBuilder) Namespace(uri string) *ErrorBuilder {
	b.err.Entity = "namespace"
	b.err.Name = uri
	return b
}

// Input sets the entity to "input" for argument validation failures.
func (b *ErrorBuilder) Input() *ErrorBuilder {
	b.err.Entity = "input"
	return b
}

// Name sets the browse or display name for the entity.
func (b *ErrorBuilder) Name(name string) *ErrorBuilder {
	b.err.Name = name
	return b
}

// Context sets additional context information.
func (b *ErrorBuilder) Context(ctx string) *ErrorBuilder {
	b.err.Context = ctx
	return b
}

// Cause sets the underlying error cause.
func (b *ErrorBuilder) Cause(err error) *ErrorBuilder {
	b.err.Cause = err
	return b
}

// Err returns the error as an error interface.
func (b *ErrorBuilder) Err() error {
	return &b.err
}

// Convenience functions for common error patterns

// AmbiguousMatchError reports more than one node matching a lookup.
func AmbiguousMatchError(op, name string, count int) error {
	return NewError(op).Node(NilID).Name(name).
		Context(fmt.Sprintf("%d candidates", count)).
		Cause(ErrAmbiguousMatch).Err()
}

// NoMatchError reports a lookup that matched nothing.
func NoMatchError(op, name string) error {
	return NewError(op).Node(NilID).Name(name).Cause(ErrNoMatch).Err()
}

// SchemaError reports a malformed input document.
func SchemaError(op, context string, cause error) error {
	if cause == nil {
		cause = ErrSchema
	}
	b := NewError(op)
	b.err.Entity = "document"
	return b.Context(context).Cause(cause).Err()
}

// IsNotFound returns true if the error indicates a failed lookup.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNoMatch) || errors.Is(err, ErrUnknownType)
}
