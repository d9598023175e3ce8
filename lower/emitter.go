// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package lower

import (
	"math"
	"strconv"
	"strings"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/packing"
)

// Emitter supplies the dialect-specific spellings consulted while lowering
// and rendering. Implementations are pure lookups with no lowering logic.
type Emitter interface {
	// Name returns the dialect name, e.g. "cuda".
	Name() string

	// ScalarType spells one element. ok is false when the dialect has no
	// spelling for e.
	ScalarType(e ir.ElementKind) (string, bool)

	// VectorType spells a native vector of width lanes. ok is false when
	// the dialect has no native vector for the pair.
	VectorType(e ir.ElementKind, width uint32) (string, bool)

	// PackedType spells the native word holding two lanes of e. ok is
	// false when the dialect never packs e.
	PackedType(e ir.ElementKind) (string, bool)

	// Lane projects constant lane k out of a native vector named base.
	Lane(base string, k uint32) string

	// DynamicLane selects a runtime lane out of a native vector named base.
	// elemType is the lane spelling; write is set when the result is
	// assigned to.
	DynamicLane(base, index, elemType string, write bool) string

	// Unpack extracts the low or high lane of a packed word.
	Unpack(e ir.ElementKind, word string, high bool) string

	// Pack combines two lanes into a packed word.
	Pack(e ir.ElementKind, lo, hi string) string

	// Literal spells a constant.
	Literal(lit ir.OpLiteral) string

	// Convert spells a value conversion to element kind to.
	Convert(to ir.ElementKind, value string) string

	// Function spells op as a call when the dialect has no infix operator
	// for it on e. ok is false for plain infix operators.
	Function(op ir.BinaryOp, e ir.ElementKind, lhs, rhs string) (string, bool)

	// ElementPointer reinterprets buffer base as a pointer to single
	// elements of e.
	ElementPointer(e ir.ElementKind, mutable bool, base string) string

	// Builtin spells the scalar expression reading b.
	Builtin(b ir.Builtin) string

	// BuiltinParams returns the extra kernel parameters that carry the
	// used builtins into the kernel, in signature order.
	BuiltinParams(used []ir.Builtin) []string

	// Header returns the lines written before any definition.
	Header() []string

	// KernelSignature returns the kernel declaration up to the parameter list.
	KernelSignature(name string) string

	// ParamDecl spells one kernel parameter. typ is the pointee spelling for
	// buffers and the value spelling otherwise.
	ParamDecl(p ParamDecl, typ string) string

	// IsReserved reports whether name cannot be used as an identifier.
	IsReserved(name string) bool
}

var components = [...]string{"x", "y", "z", "w"}

// Component returns the swizzle letter of lane k for vectors of up to four
// lanes, or "" past that.
func Component(k uint32) string {
	if int(k) < len(components) {
		return components[k]
	}
	return ""
}

// FormatFloat spells a finite float so that it always reads as a float
// literal ("1.0", "0.5", "1e+20"). bits is 32 or 64.
func FormatFloat(v float64, bits int) string {
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if !strings.ContainsAny(s, ".eEn") {
		s += ".0"
	}
	return s
}

// IsFinite reports whether v is neither infinite nor NaN.
func IsFinite(v float64) bool {
	return !math.IsInf(v, 0) && !math.IsNaN(v)
}

// HalfValue returns the value of an f16 or bf16 literal, or 0 for other
// kinds.
func HalfValue(lit ir.OpLiteral) float32 {
	f, err := packing.HalfToFloat32(lit.Elem, uint16(lit.Bits))
	if err != nil {
		return 0
	}
	return f
}
