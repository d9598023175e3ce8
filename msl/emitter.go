// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package msl

import (
	"fmt"
	"math"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/lower"
)

// Emitter spells lowered programs as Metal Shading Language.
type Emitter struct {
	version Version
}

// NewEmitter returns an emitter for the given language version.
func NewEmitter(version Version) *Emitter {
	return &Emitter{version: version}
}

var _ lower.Emitter = (*Emitter)(nil)

// Name returns "msl".
func (e *Emitter) Name() string { return "msl" }

// ScalarType implements lower.Emitter.
func (e *Emitter) ScalarType(k ir.ElementKind) (string, bool) {
	return scalarTypeName(k, e.version)
}

// VectorType implements lower.Emitter.
func (e *Emitter) VectorType(k ir.ElementKind, width uint32) (string, bool) {
	return vectorTypeName(k, width, e.version)
}

// PackedType reports false: Metal buffers hold one half per lane.
func (e *Emitter) PackedType(ir.ElementKind) (string, bool) { return "", false }

// Lane implements lower.Emitter.
func (e *Emitter) Lane(base string, k uint32) string {
	return base + "." + lower.Component(k)
}

// DynamicLane implements lower.Emitter. Metal vectors are subscriptable.
func (e *Emitter) DynamicLane(base, index, _ string, _ bool) string {
	return fmt.Sprintf("%s[%s]", base, index)
}

// Unpack implements lower.Emitter.
func (e *Emitter) Unpack(k ir.ElementKind, word string, high bool) string {
	scalar, _ := scalarTypeName(k, e.version)
	lane := "x"
	if high {
		lane = "y"
	}
	return fmt.Sprintf("as_type<%s%s2>(%s).%s", Namespace, scalar, word, lane)
}

// Pack implements lower.Emitter.
func (e *Emitter) Pack(k ir.ElementKind, lo, hi string) string {
	scalar, _ := scalarTypeName(k, e.version)
	return fmt.Sprintf("as_type<uint>(%s%s2(%s, %s))", Namespace, scalar, lo, hi)
}

// Literal implements lower.Emitter.
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
			return fmt.Sprintf("as_type<float>(0x%08xu)", uint32(lit.Bits))
		}
		return lower.FormatFloat(float64(f), 32)

	case ir.F16:
		f := lower.HalfValue(lit)
		if !lower.IsFinite(float64(f)) {
			return fmt.Sprintf("as_type<half>(ushort(0x%04x))", uint16(lit.Bits))
		}
		return lower.FormatFloat(float64(f), 32) + "h"

	case ir.BF16:
		f := lower.HalfValue(lit)
		if !lower.IsFinite(float64(f)) {
			return fmt.Sprintf("as_type<bfloat>(ushort(0x%04x))", uint16(lit.Bits))
		}
		return fmt.Sprintf("bfloat(%s)", lower.FormatFloat(float64(f), 32))

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
			return "(-9223372036854775807L - 1)"
		}
		return fmt.Sprintf("%dL", v)
	case ir.U64:
		return fmt.Sprintf("%duL", lit.Bits)
	case ir.I8:
		return fmt.Sprintf("char(%d)", int8(lit.Bits))
	case ir.I16:
		return fmt.Sprintf("short(%d)", int16(lit.Bits))
	case ir.U8:
		return fmt.Sprintf("uchar(%d)", uint8(lit.Bits))
	case ir.U16:
		return fmt.Sprintf("ushort(%d)", uint16(lit.Bits))

	default:
		return fmt.Sprintf("/* unsupported literal %s */", lit.Elem)
	}
}

// Convert implements lower.Emitter.
func (e *Emitter) Convert(to ir.ElementKind, value string) string {
	scalar, _ := scalarTypeName(to, e.version)
	return fmt.Sprintf("static_cast<%s>(%s)", scalar, value)
}

// Function implements lower.Emitter.
func (e *Emitter) Function(op ir.BinaryOp, k ir.ElementKind, lhs, rhs string) (string, bool) {
	switch op {
	case ir.OpMin:
		return fmt.Sprintf("%smin(%s, %s)", Namespace, lhs, rhs), true
	case ir.OpMax:
		return fmt.Sprintf("%smax(%s, %s)", Namespace, lhs, rhs), true
	case ir.OpRem:
		switch k {
		case ir.F16, ir.F32:
			return fmt.Sprintf("%sfmod(%s, %s)", Namespace, lhs, rhs), true
		case ir.BF16:
			return fmt.Sprintf("bfloat(%sfmod(float(%s), float(%s)))", Namespace, lhs, rhs), true
		}
	}
	return "", false
}

// ElementPointer implements lower.Emitter.
func (e *Emitter) ElementPointer(k ir.ElementKind, mutable bool, base string) string {
	scalar, _ := scalarTypeName(k, e.version)
	if mutable {
		return fmt.Sprintf("reinterpret_cast<device %s*>(%s)", scalar, base)
	}
	return fmt.Sprintf("reinterpret_cast<device const %s*>(%s)", scalar, base)
}

// builtinParam is a kernel argument carrying thread-position attributes.
type builtinParam struct {
	name      string
	typ       string
	attribute string
}

var (
	localIndex = builtinParam{"_local_index", "uint", "thread_index_in_threadgroup"}
	localID    = builtinParam{"_local_id", "uint3", "thread_position_in_threadgroup"}
	groupID    = builtinParam{"_group_id", "uint3", "threadgroup_position_in_grid"}
	groupSize  = builtinParam{"_group_size", "uint3", "threads_per_threadgroup"}
	globalID   = builtinParam{"_global_id", "uint3", "thread_position_in_grid"}

	builtinParamOrder = []builtinParam{localIndex, localID, groupID, groupSize, globalID}
)

// builtinSource returns the kernel argument builtin b is read from and the
// component selected, if any.
func builtinSource(b ir.Builtin) (builtinParam, string) {
	switch b {
	case ir.UnitPos:
		return localIndex, ""
	case ir.UnitPosX:
		return localID, "x"
	case ir.UnitPosY:
		return localID, "y"
	case ir.UnitPosZ:
		return localID, "z"
	case ir.CubePosX:
		return groupID, "x"
	case ir.CubePosY:
		return groupID, "y"
	case ir.CubePosZ:
		return groupID, "z"
	case ir.CubeDimX:
		return groupSize, "x"
	case ir.CubeDimY:
		return groupSize, "y"
	case ir.CubeDimZ:
		return groupSize, "z"
	default:
		return globalID, "x"
	}
}

func builtinParamsFor(used []ir.Builtin) []builtinParam {
	need := make(map[string]bool, len(used))
	for _, b := range used {
		bp, _ := builtinSource(b)
		need[bp.name] = true
	}
	var out []builtinParam
	for _, bp := range builtinParamOrder {
		if need[bp.name] {
			out = append(out, bp)
		}
	}
	return out
}

// Builtin implements lower.Emitter.
func (e *Emitter) Builtin(b ir.Builtin) string {
	bp, comp := builtinSource(b)
	if comp == "" {
		return bp.name
	}
	return bp.name + "." + comp
}

// BuiltinParams implements lower.Emitter.
func (e *Emitter) BuiltinParams(used []ir.Builtin) []string {
	params := builtinParamsFor(used)
	out := make([]string, len(params))
	for i, bp := range params {
		typ := bp.typ
		if typ != "uint" {
			typ = Namespace + typ
		}
		out[i] = fmt.Sprintf("%s %s [[%s]]", typ, bp.name, bp.attribute)
	}
	return out
}

// Header implements lower.Emitter.
func (e *Emitter) Header() []string {
	return []string{
		fmt.Sprintf("// Generated by kernelgen for Metal %s.", e.version),
		"#include <metal_stdlib>",
		"#include <simd/simd.h>",
		"",
		"using metal::uint;",
	}
}

// KernelSignature implements lower.Emitter.
func (e *Emitter) KernelSignature(name string) string {
	return "kernel void " + name
}

// ParamDecl implements lower.Emitter. Buffers are device pointers; by-value
// parameters are constant references.
func (e *Emitter) ParamDecl(p lower.ParamDecl, typ string) string {
	space := addressSpaceName(p.Buffer)
	switch {
	case !p.Buffer:
		return fmt.Sprintf("%s %s& %s [[buffer(%d)]]", space, typ, p.Name, p.Slot)
	case p.Mutable:
		return fmt.Sprintf("%s %s* %s [[buffer(%d)]]", space, typ, p.Name, p.Slot)
	default:
		return fmt.Sprintf("%s const %s* %s [[buffer(%d)]]", space, typ, p.Name, p.Slot)
	}
}

// IsReserved implements lower.Emitter.
func (e *Emitter) IsReserved(name string) bool { return IsReserved(name) }
