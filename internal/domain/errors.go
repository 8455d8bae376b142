// Package domain defines core types, interfaces, and errors for the query compiler.
package domain

import (
	"errors"
	"fmt"
)

// NotFoundError indicates a resource was not found.
type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string { return e.Message }

// ValidationError indicates invalid input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrNotFound creates a NotFoundError with a formatted message.
func ErrNotFound(format string, args ...interface{}) *NotFoundError {
	return &NotFoundError{Message: fmt.Sprintf(format, args...)}
}

// ErrValidation creates a ValidationError with a formatted message.
func ErrValidation(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrorKind classifies a CompileError.
type ErrorKind int

const (
	// KindResolution covers unknown fields and tables, ambiguous references
	// and unresolved placeholders.
	KindResolution ErrorKind = iota
	// KindPolicy covers dialect policy: disabled selects, a missing team id
	// and misplaced settings.
	KindPolicy
	// KindStructural covers nested aggregates, empty lambdas, arity and
	// unknown function names.
	KindStructural
	// KindInternal marks a tree shape that earlier passes should never produce.
	KindInternal
	// KindSyntax covers query text the parser rejects.
	KindSyntax
)

var errorKindNames = map[ErrorKind]string{
	KindResolution: "resolution",
	KindPolicy:     "policy",
	KindStructural: "structural",
	KindInternal:   "internal",
	KindSyntax:     "syntax",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CompileError is the single error family raised while compiling a query.
// Compilation is deterministic, so retrying with the same input reproduces it.
type CompileError struct {
	Kind    ErrorKind
	Message string
}

func (e *CompileError) Error() string { return e.Message }

// ErrResolution creates a resolution CompileError with a formatted message.
func ErrResolution(format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: KindResolution, Message: fmt.Sprintf(format, args...)}
}

// ErrPolicy creates a dialect-policy CompileError with a formatted message.
func ErrPolicy(format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: KindPolicy, Message: fmt.Sprintf(format, args...)}
}

// ErrStructural creates a structural CompileError with a formatted message.
func ErrStructural(format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: KindStructural, Message: fmt.Sprintf(format, args...)}
}

// ErrInternal creates an internal-consistency CompileError with a formatted message.
func ErrInternal(format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: KindInternal, Message: fmt.Sprintf(format, args...)}
}

// ErrSyntax creates a syntax CompileError with a formatted message.
func ErrSyntax(format string, args ...interface{}) *CompileError {
	return &CompileError{Kind: KindSyntax, Message: fmt.Sprintf(format, args...)}
}

// AsCompileError unwraps err into a *CompileError.
func AsCompileError(err error) (*CompileError, bool) {
	var ce *CompileError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsCompileError reports whether err wraps a CompileError of the given kind.
func IsCompileError(err error, kind ErrorKind) bool {
	ce, ok := AsCompileError(err)
	return ok && ce.Kind == kind
}
