// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package msl

import (
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/lower"
)

func copyKernel(t *testing.T, elem ir.ElementKind, width uint32) *ir.Kernel {
	t.Helper()
	b := ir.NewBuilder("copy")
	in := b.Param("input", ir.ArrayOf(ir.LineOf(elem, width)), false)
	out := b.Param("output", ir.ArrayOf(ir.LineOf(elem, width)), true)
	pos := b.Builtin(ir.AbsolutePosX)
	v := b.Index(in, ir.At(ir.Ref(pos)))
	b.IndexAssign(out, ir.At(ir.Ref(pos)), ir.Ref(v))
	k, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	return k
}

func TestCompile_Copy(t *testing.T) {
	result, info, err := Compile(copyKernel(t, ir.F32, 4), DefaultOptions())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	want := `// Generated by kernelgen for Metal 3.1.
#include <metal_stdlib>
#include <simd/simd.h>

using metal::uint;

kernel void copy(
    device const metal::float4* input [[buffer(0)]],
    device metal::float4* output [[buffer(1)]],
    constant uint& input_length [[buffer(2)]],
    constant uint& output_length [[buffer(3)]],
    metal::uint3 _global_id [[thread_position_in_grid]]
) {
    const uint absolute_pos_x = _global_id.x;
    const metal::float4 input_at = input[absolute_pos_x];
    output[absolute_pos_x] = input_at;
}
`
	if result != want {
		t.Errorf("Compile output mismatch:\n%s\nwant:\n%s", result, want)
	}
	if info.EntryPoint != "copy" {
		t.Errorf("EntryPoint = %q, want copy", info.EntryPoint)
	}
	if len(info.Builtins) != 1 || info.Builtins[0] != "thread_position_in_grid" {
		t.Errorf("Builtins = %v", info.Builtins)
	}
}

func TestCompile_BuiltinParams(t *testing.T) {
	b := ir.NewBuilder("positions")
	out := b.Param("output", ir.ArrayOf(ir.ScalarOf(ir.U32)), true)
	unit := b.Builtin(ir.UnitPos)
	cube := b.Builtin(ir.CubePosX)
	dim := b.Builtin(ir.CubeDimX)
	y := b.Builtin(ir.UnitPosY)
	sum := b.Binary(ir.OpAdd, ir.Ref(cube), ir.Ref(dim))
	sum2 := b.Binary(ir.OpAdd, ir.Ref(sum), ir.Ref(y))
	b.IndexAssign(out, ir.At(ir.Ref(unit)), ir.Ref(sum2))
	k, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	result, _, err := Compile(k, DefaultOptions())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	for _, want := range []string{
		"    uint _local_index [[thread_index_in_threadgroup]],\n" +
			"    metal::uint3 _local_id [[thread_position_in_threadgroup]],\n" +
			"    metal::uint3 _group_id [[threadgroup_position_in_grid]],\n" +
			"    metal::uint3 _group_size [[threads_per_threadgroup]]\n) {",
		"const uint unit_pos = _local_index;",
		"const uint cube_pos_x = _group_id.x;",
		"const uint cube_dim_x = _group_size.x;",
		"const uint unit_pos_y = _local_id.y;",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in output:\n%s", want, result)
		}
	}
}

func TestCompile_LineWidths(t *testing.T) {
	tests := []struct {
		elem  ir.ElementKind
		width uint32
		want  string
		notes int
	}{
		{ir.F32, 1, "const line_f32x1 input_at = input[absolute_pos_x];", 0},
		{ir.F32, 3, "const metal::packed_float3 input_at = input[absolute_pos_x];", 0},
		{ir.F16, 4, "const metal::half4 input_at = input[absolute_pos_x];", 0},
		{ir.BF16, 2, "const metal::bfloat2 input_at = input[absolute_pos_x];", 0},
		{ir.I64, 3, "const line_i64x3 input_at = input[absolute_pos_x];", 1},
		{ir.U8, 8, "const line_u8x8 input_at = input[absolute_pos_x];", 1},
	}

	for _, tt := range tests {
		result, info, err := Compile(copyKernel(t, tt.elem, tt.width), DefaultOptions())
		if err != nil {
			t.Fatalf("Compile(%s x%d) failed: %v", tt.elem, tt.width, err)
		}
		if !strings.Contains(result, tt.want) {
			t.Errorf("%s x%d: expected %q in output:\n%s", tt.elem, tt.width, tt.want, result)
		}
		if len(info.Diagnostics) != tt.notes {
			t.Errorf("%s x%d: got %d diagnostics, want %d", tt.elem, tt.width, len(info.Diagnostics), tt.notes)
		}
	}
}

func TestCompile_Decompose(t *testing.T) {
	opts := DefaultOptions()
	opts.Fallback = lower.FallbackDecompose
	result, _, err := Compile(copyKernel(t, ir.F32, 8), opts)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	want := "input_at.i[5] = reinterpret_cast<device const float*>(input)[((absolute_pos_x * 8u) + 5u)];"
	if !strings.Contains(result, want) {
		t.Errorf("Expected %q in output:\n%s", want, result)
	}
}

func TestCompile_UnsupportedElement(t *testing.T) {
	_, _, err := Compile(copyKernel(t, ir.F64, 2), DefaultOptions())
	if !errors.Is(err, &lower.Error{Kind: lower.ErrUnsupportedElement}) {
		t.Fatalf("Expected UnsupportedElement, got %v", err)
	}

	opts := DefaultOptions()
	opts.LangVersion = Version3_0
	_, _, err = Compile(copyKernel(t, ir.BF16, 2), opts)
	if !errors.Is(err, &lower.Error{Kind: lower.ErrUnsupportedElement}) {
		t.Fatalf("Expected UnsupportedElement for bf16 on MSL 3.0, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "msl: ") {
		t.Errorf("Expected msl: prefix, got %q", err.Error())
	}
}

func TestCompile_ByValueParam(t *testing.T) {
	b := ir.NewBuilder("scale")
	factor := b.Param("factor", ir.ScalarOf(ir.F32), false)
	out := b.Param("output", ir.ArrayOf(ir.ScalarOf(ir.F32)), true)
	pos := b.Builtin(ir.AbsolutePosX)
	x := b.Index(out, ir.At(ir.Ref(pos)))
	y := b.Binary(ir.OpMul, ir.Ref(x), ir.Ref(factor))
	b.IndexAssign(out, ir.At(ir.Ref(pos)), ir.Ref(y))
	k, err := b.Finish()
	if err != nil {
		t.Fatalf("Finish failed: %v", err)
	}

	result, _, err := Compile(k, DefaultOptions())
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	for _, want := range []string{
		"constant float& factor [[buffer(0)]],",
		"device float* output [[buffer(1)]],",
		"constant uint& output_length [[buffer(2)]],",
		"float mul = (output_at * factor);",
	} {
		if !strings.Contains(result, want) {
			t.Errorf("Expected %q in output:\n%s", want, result)
		}
	}
}

func TestVersion_String(t *testing.T) {
	tests := []struct {
		version Version
		want    string
	}{
		{Version{1, 2}, "1.2"},
		{Version{2, 0}, "2.0"},
		{Version{2, 1}, "2.1"},
		{Version{3, 1}, "3.1"},
	}

	for _, tt := range tests {
		got := tt.version.String()
		if got != tt.want {
			t.Errorf("Version{%d, %d}.String() = %q, want %q",
				tt.version.Major, tt.version.Minor, got, tt.want)
		}
	}
}

func TestParseVersion(t *testing.T) {
	for _, v := range []Version{Version1_2, Version2_3, Version3_1} {
		got, err := ParseVersion(v.String())
		if err != nil || got != v {
			t.Errorf("ParseVersion(%q) = %v, %v", v.String(), got, err)
		}
	}
	for _, bad := range []string{"", "3", "3.x", "300.1", "-1.0"} {
		if _, err := ParseVersion(bad); err == nil {
			t.Errorf("ParseVersion(%q) should fail", bad)
		}
	}
}

func TestVersion_AtLeast(t *testing.T) {
	if !Version3_1.AtLeast(Version3_0) || !Version3_0.AtLeast(Version2_3) || Version2_3.AtLeast(Version3_0) {
		t.Error("AtLeast ordering is wrong")
	}
	if !Version2_1.AtLeast(Version2_1) {
		t.Error("AtLeast must be reflexive")
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.LangVersion != Version3_1 {
		t.Errorf("Expected LangVersion 3.1, got %v", opts.LangVersion)
	}
	if opts.Fallback != lower.FallbackSynthesize {
		t.Errorf("Expected synthesize fallback, got %v", opts.Fallback)
	}
}

func TestScalarTypeName(t *testing.T) {
	tests := []struct {
		elem ir.ElementKind
		want string
	}{
		{ir.Bool, "bool"},
		{ir.F32, "float"},
		{ir.F16, "half"},
		{ir.BF16, "bfloat"},
		{ir.I32, "int"},
		{ir.U32, "uint"},
		{ir.I16, "short"},
		{ir.U16, "ushort"},
		{ir.I64, "long"},
	}

	for _, tt := range tests {
		got, ok := scalarTypeName(tt.elem, Version3_1)
		if !ok || got != tt.want {
			t.Errorf("scalarTypeName(%s) = %q, want %q", tt.elem, got, tt.want)
		}
	}
	if _, ok := scalarTypeName(ir.F64, Version3_1); ok {
		t.Error("f64 must have no MSL spelling")
	}
}

func TestVectorTypeName(t *testing.T) {
	tests := []struct {
		elem  ir.ElementKind
		width uint32
		want  string
	}{
		{ir.F32, 2, "metal::float2"},
		{ir.F32, 3, "metal::packed_float3"},
		{ir.F32, 4, "metal::float4"},
		{ir.I32, 4, "metal::int4"},
		{ir.U8, 3, "metal::packed_uchar3"},
		{ir.Bool, 2, "metal::bool2"},
	}

	for _, tt := range tests {
		got, ok := vectorTypeName(tt.elem, tt.width, Version3_1)
		if !ok || got != tt.want {
			t.Errorf("vectorTypeName(%s, %d) = %q, want %q", tt.elem, tt.width, got, tt.want)
		}
	}
	for _, w := range []uint32{1, 5, 8} {
		if _, ok := vectorTypeName(ir.F32, w, Version3_1); ok {
			t.Errorf("width %d must not be native", w)
		}
	}
}

func TestEmitter_Literal(t *testing.T) {
	e := NewEmitter(Version3_1)
	tests := []struct {
		lit  ir.OpLiteral
		want string
	}{
		{ir.LitF32(1), "1.0"},
		{ir.LitU32(3), "3u"},
		{ir.OpLiteral{Elem: ir.I64, Bits: 4}, "4L"},
		{ir.OpLiteral{Elem: ir.F16, Bits: 0x3e00}, "1.5h"},
		{ir.OpLiteral{Elem: ir.BF16, Bits: 0x3fc0}, "bfloat(1.5)"},
		{ir.OpLiteral{Elem: ir.U16, Bits: 9}, "ushort(9)"},
	}
	for _, tt := range tests {
		if got := e.Literal(tt.lit); got != tt.want {
			t.Errorf("Literal(%s %#x) = %q, want %q", tt.lit.Elem, tt.lit.Bits, got, tt.want)
		}
	}
}

func TestIsReserved(t *testing.T) {
	reserved := []string{"float", "int", "void", "struct", "class", "return", "kernel", "device", "float4", "_global_id"}
	for _, word := range reserved {
		if !IsReserved(word) {
			t.Errorf("Expected %q to be reserved", word)
		}
	}

	notReserved := []string{"myVar", "foo", "color_output", "x123"}
	for _, word := range notReserved {
		if IsReserved(word) {
			t.Errorf("Expected %q to NOT be reserved", word)
		}
	}
}
