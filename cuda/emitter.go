// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cuda

import (
	"fmt"
	"math"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/lower"
)

// Emitter spells lowered programs as CUDA C++.
type Emitter struct {
	restrict bool
	bf16     string
	bf16Pair string
}

// NewEmitter returns an emitter configured by options.
func NewEmitter(options Options) *Emitter {
	return &Emitter{
		restrict: options.RestrictPointers,
		bf16:     "__nv_bfloat16",
		bf16Pair: "__nv_bfloat162",
	}
}

// NewCompatEmitter returns an emitter for a dialect that shares the CUDA
// builtins and intrinsics but spells the bfloat16 scalar and two-lane word
// types bf16 and bf16Pair. Buffer pointers are not restrict-qualified.
func NewCompatEmitter(bf16, bf16Pair string) *Emitter {
	return &Emitter{bf16: bf16, bf16Pair: bf16Pair}
}

var _ lower.Emitter = (*Emitter)(nil)

// Name returns "cuda".
func (e *Emitter) Name() string { return "cuda" }

// ScalarType implements lower.Emitter.
func (e *Emitter) ScalarType(k ir.ElementKind) (string, bool) {
	if k == ir.BF16 {
		return e.bf16, true
	}
	return scalarTypeName(k)
}

// VectorType implements lower.Emitter.
func (e *Emitter) VectorType(k ir.ElementKind, width uint32) (string, bool) {
	return vectorTypeName(k, width)
}

// PackedType implements lower.Emitter.
func (e *Emitter) PackedType(k ir.ElementKind) (string, bool) {
	if k == ir.BF16 {
		return e.bf16Pair, true
	}
	return packedTypeName(k)
}

// Lane implements lower.Emitter.
func (e *Emitter) Lane(base string, k uint32) string {
	return base + "." + lower.Component(k)
}

// DynamicLane addresses lane index of a vector through an element pointer,
// since CUDA vectors have no subscript operator.
func (e *Emitter) DynamicLane(base, index, elemType string, write bool) string {
	if write {
		return fmt.Sprintf("reinterpret_cast<%s*>(&%s)[%s]", elemType, base, index)
	}
	return fmt.Sprintf("reinterpret_cast<const %s*>(&%s)[%s]", elemType, base, index)
}

// Unpack implements lower.Emitter.
func (e *Emitter) Unpack(k ir.ElementKind, word string, high bool) string {
	half := "half"
	if k == ir.BF16 {
		half = "bfloat16"
	}
	if high {
		return fmt.Sprintf("__high2%s(%s)", half, word)
	}
	return fmt.Sprintf("__low2%s(%s)", half, word)
}

// Pack implements lower.Emitter.
func (e *Emitter) Pack(k ir.ElementKind, lo, hi string) string {
	if k == ir.BF16 {
		return fmt.Sprintf("__halves2bfloat162(%s, %s)", lo, hi)
	}
	return fmt.Sprintf("__halves2half2(%s, %s)", lo, hi)
}

// Literal implements lower.Emitter.
//
//nolint:gocyclo,cyclop // one case per element kind
func (e *Emitter) Literal(lit ir.OpLiteral) string {
	switch lit.Elem {
	case ir.Bool:
		if lit.Bits != 0 {
			return "true"
		}
		return "false"

	case ir.F32:
		f := math.Float32frombits(uint32(lit.Bits))
		if !lower.IsFinite(float64(f)) {
			return fmt.Sprintf("__int_as_float(0x%08x)", uint32(lit.Bits))
		}
		return lower.FormatFloat(float64(f), 32) + "f"

	case ir.F64:
		f := math.Float64frombits(lit.Bits)
		if !lower.IsFinite(f) {
			return fmt.Sprintf("__longlong_as_double(0x%016xll)", lit.Bits)
		}
		return lower.FormatFloat(f, 64)

	case ir.F16, ir.BF16:
		bits := uint16(lit.Bits)
		f := lower.HalfValue(lit)
		if !lower.IsFinite(float64(f)) {
			if lit.Elem == ir.BF16 {
				return fmt.Sprintf("__ushort_as_bfloat16(0x%04x)", bits)
			}
			return fmt.Sprintf("__ushort_as_half(0x%04x)", bits)
		}
		if lit.Elem == ir.BF16 {
			return fmt.Sprintf("__float2bfloat16(%sf)", lower.FormatFloat(float64(f), 32))
		}
		return fmt.Sprintf("__float2half(%sf)", lower.FormatFloat(float64(f), 32))

	case ir.I32:
		v := int32(uint32(lit.Bits))
		if v == math.MinInt32 {
			return "(-2147483647 - 1)"
		}
		return fmt.Sprintf("%d", v)

	case ir.U32:
		return fmt.Sprintf("%du", uint32(lit.Bits))

	case ir.I64:
		v := int64(lit.Bits)
		if v == math.MinInt64 {
			return "(-9223372036854775807ll - 1)"
		}
		return fmt.Sprintf("%dll", v)

	case ir.U64:
		return fmt.Sprintf("%dull", lit.Bits)

	case ir.I8:
		return fmt.Sprintf("static_cast<signed char>(%d)", int8(lit.Bits))
	case ir.I16:
		return fmt.Sprintf("static_cast<short>(%d)", int16(lit.Bits))
	case ir.U8:
		return fmt.Sprintf("static_cast<unsigned char>(%d)", uint8(lit.Bits))
	case ir.U16:
		return fmt.Sprintf("static_cast<unsigned short>(%d)", uint16(lit.Bits))

	default:
		return fmt.Sprintf("/* unsupported literal %s */", lit.Elem)
	}
}

// Convert implements lower.Emitter.
func (e *Emitter) Convert(to ir.ElementKind, value string) string {
	name, _ := e.ScalarType(to)
	return fmt.Sprintf("static_cast<%s>(%s)", name, value)
}

// Function returns the intrinsic call for operations CUDA has no operator
// for: min, max and the floating-point remainder.
func (e *Emitter) Function(op ir.BinaryOp, k ir.ElementKind, lhs, rhs string) (string, bool) {
	switch op {
	case ir.OpMin, ir.OpMax:
		var fn string
		switch k {
		case ir.F32:
			fn = "fminf"
		case ir.F64:
			fn = "fmin"
		case ir.F16, ir.BF16:
			fn = "__hmin"
		default:
			fn = "min"
		}
		if op == ir.OpMax {
			fn = maxOf[fn]
		}
		return fmt.Sprintf("%s(%s, %s)", fn, lhs, rhs), true

	case ir.OpRem:
		switch k {
		case ir.F32:
			return fmt.Sprintf("fmodf(%s, %s)", lhs, rhs), true
		case ir.F64:
			return fmt.Sprintf("fmod(%s, %s)", lhs, rhs), true
		case ir.F16:
			return fmt.Sprintf("__float2half(fmodf(__half2float(%s), __half2float(%s)))", lhs, rhs), true
		case ir.BF16:
			return fmt.Sprintf("__float2bfloat16(fmodf(__bfloat162float(%s), __bfloat162float(%s)))", lhs, rhs), true
		}
	}
	return "", false
}

var maxOf = map[string]string{
	"fminf":  "fmaxf",
	"fmin":   "fmax",
	"__hmin": "__hmax",
	"min":    "max",
}

// ElementPointer implements lower.Emitter.
func (e *Emitter) ElementPointer(k ir.ElementKind, mutable bool, base string) string {
	name, _ := e.ScalarType(k)
	if mutable {
		return fmt.Sprintf("reinterpret_cast<%s*>(%s)", name, base)
	}
	return fmt.Sprintf("reinterpret_cast<const %s*>(%s)", name, base)
}

// Builtin implements lower.Emitter.
func (e *Emitter) Builtin(b ir.Builtin) string {
	switch b {
	case ir.UnitPos:
		return "(threadIdx.z * blockDim.y + threadIdx.y) * blockDim.x + threadIdx.x"
	case ir.UnitPosX:
		return "threadIdx.x"
	case ir.UnitPosY:
		return "threadIdx.y"
	case ir.UnitPosZ:
		return "threadIdx.z"
	case ir.CubePosX:
		return "blockIdx.x"
	case ir.CubePosY:
		return "blockIdx.y"
	case ir.CubePosZ:
		return "blockIdx.z"
	case ir.CubeDimX:
		return "blockDim.x"
	case ir.CubeDimY:
		return "blockDim.y"
	case ir.CubeDimZ:
		return "blockDim.z"
	case ir.AbsolutePosX:
		return "blockIdx.x * blockDim.x + threadIdx.x"
	default:
		return "0u"
	}
}

// BuiltinParams returns nil: CUDA builtins are global variables.
func (e *Emitter) BuiltinParams(used []ir.Builtin) []string { return nil }

// Header implements lower.Emitter.
func (e *Emitter) Header() []string {
	return []string{
		"// Generated by kernelgen for CUDA.",
		"#include <cuda_fp16.h>",
		"#include <cuda_bf16.h>",
	}
}

// KernelSignature implements lower.Emitter.
func (e *Emitter) KernelSignature(name string) string {
	return `extern "C" __global__ void ` + name
}

// ParamDecl implements lower.Emitter.
func (e *Emitter) ParamDecl(p lower.ParamDecl, typ string) string {
	if !p.Buffer {
		return typ + " " + p.Name
	}
	qual := ""
	if e.restrict {
		qual = " __restrict__"
	}
	if p.Mutable {
		return fmt.Sprintf("%s*%s %s", typ, qual, p.Name)
	}
	return fmt.Sprintf("const %s*%s %s", typ, qual, p.Name)
}

// IsReserved implements lower.Emitter.
func (e *Emitter) IsReserved(name string) bool { return IsReserved(name) }
