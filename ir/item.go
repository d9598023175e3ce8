// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"errors"
	"fmt"
)

// Role says where a value lives.
type Role uint8

const (
	// RoleRegister values are held for computation, one unpacked lane per element.
	RoleRegister Role = iota

	// RoleStorage values are pointers into device memory.
	RoleStorage
)

// String returns "register" or "storage".
func (r Role) String() string {
	if r == RoleStorage {
		return "storage"
	}
	return "register"
}

// Shape records whether a value was declared as a Line container.
// It is independent of Width: a ShapeLine item may have Width 1.
type Shape uint8

const (
	ShapeScalar Shape = iota
	ShapeLine
)

// String returns "scalar" or "line".
func (s Shape) String() string {
	if s == ShapeLine {
		return "line"
	}
	return "scalar"
}

// Item is the compiled-type annotation carried by every value.
type Item struct {
	Elem  ElementKind
	Width uint32
	Shape Shape
	Role  Role

	// Packed is set on storage items whose lanes are held two per native
	// word. Register items derived from packed storage keep the flag as
	// provenance so that a write back repacks; their lanes are unpacked.
	Packed bool
}

// String formats the descriptor, e.g. "storage line<bf16,2> packed".
func (it Item) String() string {
	var s string
	if it.Shape == ShapeLine {
		s = fmt.Sprintf("%s line<%s,%d>", it.Role, it.Elem, it.Width)
	} else {
		s = fmt.Sprintf("%s %s", it.Role, it.Elem)
	}
	if it.Packed {
		s += " packed"
	}
	return s
}

// IsLine reports whether the item has line shape.
func (it Item) IsLine() bool { return it.Shape == ShapeLine }

// Bytes returns the byte size of one position of the item.
func (it Item) Bytes() uint32 {
	return it.Width * it.Elem.Size()
}

// Lane returns the register scalar item for one lane of it.
func (it Item) Lane() Item {
	return Item{Elem: it.Elem, Width: 1, Shape: ShapeScalar, Role: RoleRegister}
}

// Context tells Derive how a value came into existence.
type Context uint8

const (
	ContextParam Context = iota
	ContextLocal
	ContextBuiltin
)

// BuiltinItem is the fixed descriptor of every builtin identifier.
var BuiltinItem = Item{Elem: U32, Width: 1, Shape: ShapeScalar, Role: RoleRegister}

// ErrNotIndexable is returned by Derive for types that cannot appear in the given context.
var ErrNotIndexable = errors.New("type cannot be used in this context")

// Derive computes the item of a value declared with type t in context ctx.
// packs reports whether the target backend packs an element kind; nil means
// no backend packing.
func Derive(t Type, ctx Context, packs func(ElementKind) bool) (Item, error) {
	if ctx == ContextBuiltin {
		return BuiltinItem, nil
	}

	switch x := t.(type) {
	case Scalar:
		return Item{Elem: x.Elem, Width: 1, Shape: ShapeScalar, Role: RoleRegister}, nil

	case Line:
		if x.Width == 0 {
			return Item{}, fmt.Errorf("%w: %s has zero width", ErrNotIndexable, x)
		}
		return Item{Elem: x.Elem, Width: x.Width, Shape: ShapeLine, Role: RoleRegister}, nil

	case Array:
		if ctx != ContextParam {
			return Item{}, fmt.Errorf("%w: %s is only valid as a kernel parameter", ErrNotIndexable, x)
		}
		switch of := x.Of.(type) {
		case Scalar:
			return Item{Elem: of.Elem, Width: 1, Shape: ShapeScalar, Role: RoleStorage}, nil
		case Line:
			if of.Width == 0 {
				return Item{}, fmt.Errorf("%w: %s has zero width", ErrNotIndexable, x)
			}
			packed := of.Elem.Packable() && of.Width%PackFactor == 0 && packs != nil && packs(of.Elem)
			return Item{Elem: of.Elem, Width: of.Width, Shape: ShapeLine, Role: RoleStorage, Packed: packed}, nil
		default:
			return Item{}, fmt.Errorf("%w: %s", ErrNotIndexable, x)
		}
	}
	return Item{}, fmt.Errorf("%w: unknown type %T", ErrNotIndexable, t)
}

// IndexResult returns the item produced by indexing a value of item base.
// Indexing storage keeps the declared width so that a second index still sees
// every lane. Indexing a register scalar is not possible.
func IndexResult(base Item) (Item, bool) {
	switch {
	case base.Role == RoleStorage && base.IsLine():
		return Item{Elem: base.Elem, Width: base.Width, Shape: ShapeLine, Role: RoleRegister, Packed: base.Packed}, true
	case base.Role == RoleStorage:
		return base.Lane(), true
	case base.IsLine():
		return base.Lane(), true
	default:
		return Item{}, false
	}
}

// TypeOfItem returns the IR type that describes one value of it.
func TypeOfItem(it Item) Type {
	if it.IsLine() {
		return Line{Elem: it.Elem, Width: it.Width}
	}
	return Scalar{Elem: it.Elem}
}
