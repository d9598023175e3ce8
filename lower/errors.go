// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package lower

import "fmt"

// ErrorKind categorizes lowering errors.
type ErrorKind uint8

const (
	// ErrTypeMismatch indicates an operation applied to a value of the wrong
	// shape or element kind, including indexing a scalar.
	ErrTypeMismatch ErrorKind = iota

	// ErrInvalidConstantIndex indicates a constant lane position at or past
	// the declared width.
	ErrInvalidConstantIndex

	// ErrPackingMismatch indicates a pack or unpack of an element kind or
	// width that cannot be packed.
	ErrPackingMismatch

	// ErrUnsupportedElement indicates an element kind the dialect cannot
	// spell at all.
	ErrUnsupportedElement

	// ErrInvalidKernel indicates the IR kernel failed validation.
	ErrInvalidKernel
)

// String returns a human-readable error kind name.
func (k ErrorKind) String() string {
	switch k {
	case ErrTypeMismatch:
		return "TypeMismatch"
	case ErrInvalidConstantIndex:
		return "InvalidConstantIndex"
	case ErrPackingMismatch:
		return "PackingMismatch"
	case ErrUnsupportedElement:
		return "UnsupportedElement"
	case ErrInvalidKernel:
		return "InvalidKernel"
	default:
		return "Unknown"
	}
}

// Error is a fatal lowering error.
type Error struct {
	// Kind categorizes the error.
	Kind ErrorKind

	// Message provides details about the error.
	Message string

	// Instruction is the program-order number of the offending
	// instruction, or -1.
	Instruction int
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Instruction >= 0 {
		return fmt.Sprintf("%s at instruction %d: %s", e.Kind, e.Instruction, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// NewError creates a new error that is not tied to an instruction.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{
		Kind:        kind,
		Message:     message,
		Instruction: -1,
	}
}

// Is reports whether target is an *Error of the same kind, so that
// errors.Is(err, &Error{Kind: ErrTypeMismatch}) works through wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == ""
}
