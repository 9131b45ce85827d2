package graph

import (
	"fmt"
)

// SchemaViolationError reports a write that violates the graph schema:
// an unknown entity type, an invalid natural key, or a mutation of a
// frozen attribute on an immutable entity.
type SchemaViolationError struct {
	EntityType EntityType
	Key        string
	Constraint string
}

// Error implements the error interface
func (e *SchemaViolationError) Error() string {
	if e.EntityType == "" {
		return fmt.Sprintf("schema violation: %s", e.Constraint)
	}
	if e.Key != "" {
		return fmt.Sprintf("schema violation for %s %q: %s", e.EntityType, e.Key, e.Constraint)
	}
	return fmt.Sprintf("schema violation for %s: %s", e.EntityType, e.Constraint)
}

// TypeMismatchError reports a relationship whose endpoint types do not match
// the declared (source, target) pair for its relationship type.
type TypeMismatchError struct {
	RelType    RelType
	SourceType EntityType
	TargetType EntityType
	WantSource EntityType
	WantTarget EntityType
}

// Error implements the error interface
func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("relationship %s declared for %s->%s, got %s->%s",
		e.RelType, e.WantSource, e.WantTarget, e.SourceType, e.TargetType)
}

// InvalidConfidenceError reports a provenance confidence outside [0, 1].
type InvalidConfidenceError struct {
	FactID     string
	Confidence float64
}

// Error implements the error interface
func (e *InvalidConfidenceError) Error() string {
	return fmt.Sprintf("invalid confidence %.4f for fact %s: must be within [0.0, 1.0]", e.Confidence, e.FactID)
}

// NotFoundError reports a lookup miss. It is a normal, recoverable condition:
// callers branch on it with IsNotFound rather than treating it as fatal.
type NotFoundError struct {
	EntityType EntityType
	Key        string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.EntityType != "" {
		return fmt.Sprintf("%s not found: %s", e.EntityType, e.Key)
	}
	return fmt.Sprintf("not found: %s", e.Key)
}

// IsNotFound reports whether err is a lookup miss.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// NewSchemaViolation creates a new SchemaViolationError
func NewSchemaViolation(t EntityType, key, constraint string) error {
	return &SchemaViolationError{EntityType: t, Key: key, Constraint: constraint}
}

// NewTypeMismatch creates a new TypeMismatchError for a relationship type
func NewTypeMismatch(rt RelType, sourceType, targetType EntityType) error {
	wantSource, wantTarget, _ := DeclaredPair(rt)
	return &TypeMismatchError{
		RelType:    rt,
		SourceType: sourceType,
		TargetType: targetType,
		WantSource: wantSource,
		WantTarget: wantTarget,
	}
}

// NewUnknownRelType creates a SchemaViolationError for an undeclared relationship type
func NewUnknownRelType(rt RelType) error {
	return &SchemaViolationError{Constraint: fmt.Sprintf("unknown relationship type %s", rt)}
}

// NewNotFound creates a new NotFoundError
func NewNotFound(t EntityType, key string) error {
	return &NotFoundError{EntityType: t, Key: key}
}
