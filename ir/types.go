// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// PackFactor is the number of sub-word lanes that share one packed register word.
const PackFactor = 2

// ElementKind is a primitive element kind with a fixed byte size.
type ElementKind uint8

const (
	F16 ElementKind = iota
	BF16
	F32
	F64
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	Bool

	elementKindCount
)

var elementNames = [elementKindCount]string{
	F16:  "f16",
	BF16: "bf16",
	F32:  "f32",
	F64:  "f64",
	I8:   "i8",
	I16:  "i16",
	I32:  "i32",
	I64:  "i64",
	U8:   "u8",
	U16:  "u16",
	U32:  "u32",
	U64:  "u64",
	Bool: "bool",
}

// ElementKinds returns every element kind in declaration order.
func ElementKinds() []ElementKind {
	kinds := make([]ElementKind, 0, elementKindCount)
	for k := ElementKind(0); k < elementKindCount; k++ {
		kinds = append(kinds, k)
	}
	return kinds
}

// String returns the short element name ("f32", "bf16", ...).
func (e ElementKind) String() string {
	if e < elementKindCount {
		return elementNames[e]
	}
	return "elem(" + strconv.Itoa(int(e)) + ")"
}

// Valid reports whether e is a known element kind.
func (e ElementKind) Valid() bool {
	return e < elementKindCount
}

// Size returns the byte size of one element.
func (e ElementKind) Size() uint32 {
	switch e {
	case I8, U8, Bool:
		return 1
	case F16, BF16, I16, U16:
		return 2
	case F32, I32, U32:
		return 4
	case F64, I64, U64:
		return 8
	default:
		return 0
	}
}

// Packable reports whether some backend can hold two lanes of e in one
// 32-bit register word.
func (e ElementKind) Packable() bool {
	return e == F16 || e == BF16
}

// IsFloat reports whether e is a floating point kind.
func (e ElementKind) IsFloat() bool {
	return e == F16 || e == BF16 || e == F32 || e == F64
}

// IsSigned reports whether e is a signed integer kind.
func (e ElementKind) IsSigned() bool {
	return e == I8 || e == I16 || e == I32 || e == I64
}

// IsUnsigned reports whether e is an unsigned integer kind.
func (e ElementKind) IsUnsigned() bool {
	return e == U8 || e == U16 || e == U32 || e == U64
}

// ParseElementKind parses a short element name.
func ParseElementKind(s string) (ElementKind, error) {
	for k := ElementKind(0); k < elementKindCount; k++ {
		if elementNames[k] == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown element kind %q", s)
}

// Type is a declared IR type: Scalar, Line, or Array.
type Type interface {
	isType()
	String() string
}

// Scalar is one element that was never declared as part of a vectorized container.
type Scalar struct {
	Elem ElementKind
}

func (Scalar) isType() {}

func (s Scalar) String() string { return s.Elem.String() }

// Line is a vectorized container of Width lanes. Line{e, 1} is not Scalar{e}.
type Line struct {
	Elem  ElementKind
	Width uint32
}

func (Line) isType() {}

func (l Line) String() string {
	return fmt.Sprintf("line<%s,%d>", l.Elem, l.Width)
}

// Array is a device buffer of Scalar or Line positions. It is only valid as
// a kernel parameter type.
type Array struct {
	Of Type
}

func (Array) isType() {}

func (a Array) String() string {
	if a.Of == nil {
		return "array<?>"
	}
	return "array<" + a.Of.String() + ">"
}

// ScalarOf is shorthand for Scalar{e}.
func ScalarOf(e ElementKind) Type { return Scalar{Elem: e} }

// LineOf is shorthand for Line{e, width}.
func LineOf(e ElementKind, width uint32) Type { return Line{Elem: e, Width: width} }

// ArrayOf is shorthand for Array{of}.
func ArrayOf(of Type) Type { return Array{Of: of} }

// TypesEqual reports structural equality. A width-1 Line never equals a Scalar.
func TypesEqual(a, b Type) bool {
	switch x := a.(type) {
	case Scalar:
		y, ok := b.(Scalar)
		return ok && x == y
	case Line:
		y, ok := b.(Line)
		return ok && x == y
	case Array:
		y, ok := b.(Array)
		return ok && x.Of != nil && y.Of != nil && TypesEqual(x.Of, y.Of)
	default:
		return false
	}
}

// ElemOf returns the element kind of t.
func ElemOf(t Type) (ElementKind, bool) {
	switch x := t.(type) {
	case Scalar:
		return x.Elem, true
	case Line:
		return x.Elem, true
	case Array:
		if x.Of == nil {
			return 0, false
		}
		return ElemOf(x.Of)
	default:
		return 0, false
	}
}

// ParseType parses the textual type syntax used by kernel description files:
// "f32", "line<f32,4>", "array<line<bf16,2>>", "array<u32>".
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "array<") && strings.HasSuffix(s, ">"):
		inner, err := ParseType(s[len("array<") : len(s)-1])
		if err != nil {
			return nil, err
		}
		if _, ok := inner.(Array); ok {
			return nil, fmt.Errorf("nested array type %q", s)
		}
		return Array{Of: inner}, nil

	case strings.HasPrefix(s, "line<") && strings.HasSuffix(s, ">"):
		body := s[len("line<") : len(s)-1]
		elemStr, widthStr, ok := strings.Cut(body, ",")
		if !ok {
			return nil, fmt.Errorf("line type %q needs an element and a width", s)
		}
		elem, err := ParseElementKind(strings.TrimSpace(elemStr))
		if err != nil {
			return nil, err
		}
		width, err := strconv.ParseUint(strings.TrimSpace(widthStr), 10, 32)
		if err != nil {
			return nil, fmt.Errorf("line type %q: bad width: %w", s, err)
		}
		if width == 0 {
			return nil, fmt.Errorf("line type %q: width must be at least 1", s)
		}
		return Line{Elem: elem, Width: uint32(width)}, nil

	default:
		elem, err := ParseElementKind(s)
		if err != nil {
			return nil, err
		}
		return Scalar{Elem: elem}, nil
	}
}
