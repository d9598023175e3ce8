// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package irfile

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/packing"
)

const simpleIndex = `
kernels:
  - name: simple_index
    params:
      - {name: input, type: "array<line<f32,1>>"}
      - {name: output, type: "array<f32>", mutable: true}
    body:
      - binary: {dst: outside, op: ge, lhs: unit_pos, rhs: 8}
      - if: {cond: outside, then: [terminate]}
      - index: {dst: input_line, base: input, at: unit_pos}
      - index: {dst: lane0, base: input_line, at: 0}
      - store: {base: output, at: unit_pos, value: lane0}
`

func parseOne(t *testing.T, src string) *ir.Kernel {
	t.Helper()
	kernels, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, kernels, 1)
	return kernels[0]
}

func TestParseSimpleIndex(t *testing.T) {
	k := parseOne(t, simpleIndex)
	require.Equal(t, "simple_index", k.Name)
	require.Len(t, k.Params, 2)

	in := k.Var(k.Params[0].Var)
	require.Equal(t, "input", in.Name)
	require.True(t, ir.TypesEqual(ir.ArrayOf(ir.LineOf(ir.F32, 1)), in.Type))
	require.False(t, k.Params[0].Mutable)
	require.True(t, k.Params[1].Mutable)

	require.Len(t, k.Body, 5)
	cmp, ok := k.Body[0].(ir.Binary)
	require.True(t, ok)
	require.Equal(t, ir.OpGe, cmp.Op)
	require.Equal(t, ir.LitU32(8), cmp.Rhs)
	require.True(t, ir.TypesEqual(ir.ScalarOf(ir.Bool), k.Var(cmp.Dst).Type))

	pos := cmp.Lhs.(ir.OpVar).Var
	require.Equal(t, ir.OriginBuiltin, k.Var(pos).Origin)
	require.Equal(t, ir.UnitPos, k.Var(pos).Builtin)

	guard, ok := k.Body[1].(ir.If)
	require.True(t, ok)
	require.Equal(t, ir.Block{ir.Terminate{}}, guard.Then)
	require.Empty(t, guard.Else)

	load, ok := k.Body[2].(ir.Index)
	require.True(t, ok)
	require.Equal(t, ir.At(ir.Ref(pos)), load.Pos)
	require.True(t, ir.TypesEqual(ir.LineOf(ir.F32, 1), k.Var(load.Dst).Type))

	lane, ok := k.Body[3].(ir.Index)
	require.True(t, ok)
	require.Equal(t, ir.ConstIndex(0), lane.Pos)
	require.True(t, ir.TypesEqual(ir.ScalarOf(ir.F32), k.Var(lane.Dst).Type))
}

func TestBuiltinsAreShared(t *testing.T) {
	k := parseOne(t, simpleIndex)
	count := 0
	for _, v := range k.Vars {
		if v.Origin == ir.OriginBuiltin {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestParseLiteral(t *testing.T) {
	bf, err := packing.HalfFromFloat32(ir.BF16, 1.5)
	require.NoError(t, err)
	h, err := packing.HalfFromFloat32(ir.F16, 0.5)
	require.NoError(t, err)

	tests := []struct {
		text, tag string
		want      ir.OpLiteral
	}{
		{"1.5f32", "!!str", ir.LitF32(1.5)},
		{"2f64", "!!str", ir.LitF64(2)},
		{"-3i8", "!!str", ir.OpLiteral{Elem: ir.I8, Bits: 0xfd}},
		{"-1i64", "!!str", ir.OpLiteral{Elem: ir.I64, Bits: ^uint64(0)}},
		{"7u64", "!!str", ir.OpLiteral{Elem: ir.U64, Bits: 7}},
		{"0x10u16", "!!str", ir.OpLiteral{Elem: ir.U16, Bits: 16}},
		{"1.5bf16", "!!str", ir.OpLiteral{Elem: ir.BF16, Bits: uint64(bf)}},
		{"0.5f16", "!!str", ir.OpLiteral{Elem: ir.F16, Bits: uint64(h)}},
		{"5", "!!int", ir.LitU32(5)},
		{"2.5", "!!float", ir.LitF32(2.5)},
		{"true", "!!bool", ir.LitBool(true)},
		{"false", "!!bool", ir.LitBool(false)},
	}
	for _, tt := range tests {
		got, err := ParseLiteral(tt.text, tt.tag)
		require.NoError(t, err, tt.text)
		require.Equal(t, tt.want, got, tt.text)
	}

	for _, bad := range []struct{ text, tag string }{
		{"300u8", "!!str"},
		{"-1", "!!int"},
		{"1.5i32", "!!str"},
		{"u32", "!!str"},
	} {
		_, err := ParseLiteral(bad.text, bad.tag)
		require.Error(t, err, bad.text)
	}

	_, err = ParseLiteral("counter", "!!str")
	require.ErrorIs(t, err, ErrUnknownName)
}

func TestParseStatements(t *testing.T) {
	k := parseOne(t, `
kernels:
  - name: mixed
    params:
      - {name: data, type: "array<line<bf16,4>>", mutable: true}
      - {name: n, type: u32}
    body:
      - let: {name: acc, value: 0.0}
      - index: {dst: line, base: data, at: absolute_pos_x}
      - cast: {dst: wide, to: f32, value: line}
      - for:
          var: l
          from: 0
          to: 4
          body:
            - index: {dst: x, base: wide, at: l}
            - binary: {dst: acc, op: add, lhs: acc, rhs: x}
      - let: {name: flag, type: bool}
      - set: {dst: flag, value: true}
      - binary: {dst: big, op: gt, lhs: n, rhs: 10}
      - if:
          cond: big
          then:
            - store: {base: line, at: 3, value: "1.5bf16"}
          else:
            - terminate
`)
	require.Len(t, k.Body, 8)

	acc := k.Body[0].(ir.Declare)
	require.Equal(t, ir.LitF32(0), acc.Init)
	require.True(t, ir.TypesEqual(ir.ScalarOf(ir.F32), k.Var(acc.Var).Type))

	cast := k.Body[2].(ir.Cast)
	require.True(t, ir.TypesEqual(ir.LineOf(ir.F32, 4), k.Var(cast.Dst).Type))

	loop := k.Body[3].(ir.For)
	require.Equal(t, ir.LitU32(0), loop.Start)
	require.Equal(t, ir.LitU32(4), loop.End)
	sum := loop.Body[1].(ir.Binary)
	require.Equal(t, acc.Var, sum.Dst, "binary into an existing name reuses it")

	flag := k.Body[4].(ir.Declare)
	require.Nil(t, flag.Init)
	set := k.Body[5].(ir.Assign)
	require.Equal(t, flag.Var, set.Dst)
	require.Equal(t, ir.LitBool(true), set.Value)

	branch := k.Body[7].(ir.If)
	store := branch.Then[0].(ir.IndexAssign)
	require.Equal(t, ir.ConstIndex(3), store.Pos)
	require.Equal(t, ir.BF16, store.Value.(ir.OpLiteral).Elem)
	require.Equal(t, ir.Block{ir.Terminate{}}, branch.Else)
}

func TestParseLen(t *testing.T) {
	k := parseOne(t, `
kernels:
  - name: bounded
    params:
      - {name: input, type: "array<line<f32,4>>"}
      - {name: output, type: "array<u32>", mutable: true}
    body:
      - len: {dst: n, base: input}
      - store: {base: output, at: unit_pos, value: n}
`)
	n := k.Body[0].(ir.Len)
	require.Equal(t, k.Params[0].Var, n.Buf)
	require.Equal(t, "n", k.Var(n.Dst).Name)
	require.True(t, ir.TypesEqual(ir.ScalarOf(ir.U32), k.Var(n.Dst).Type))
}

func TestParseLoopCounterType(t *testing.T) {
	k := parseOne(t, `
kernels:
  - name: typed_loops
    params:
      - {name: lo, type: i32}
      - {name: input, type: "array<f32>"}
      - {name: output, type: "array<f32>", mutable: true}
    body:
      - len: {dst: n, base: input}
      - for: {var: i, from: lo, to: 4, body: []}
      - for: {var: j, from: 0, to: n, body: []}
      - for: {var: k, from: 0, to: 4, body: []}
`)
	signed := k.Body[1].(ir.For)
	require.True(t, ir.TypesEqual(ir.ScalarOf(ir.I32), k.Var(signed.Var).Type))
	require.Equal(t, ir.LitI32(4), signed.End)

	counted := k.Body[2].(ir.For)
	require.True(t, ir.TypesEqual(ir.ScalarOf(ir.U32), k.Var(counted.Var).Type))
	require.Equal(t, ir.LitU32(0), counted.Start)

	plain := k.Body[3].(ir.For)
	require.True(t, ir.TypesEqual(ir.ScalarOf(ir.U32), k.Var(plain.Var).Type))
}

func TestParseMultipleKernels(t *testing.T) {
	kernels, err := Parse([]byte(`
kernels:
  - name: first
    params: [{name: out, type: "array<u32>", mutable: true}]
    body:
      - store: {base: out, at: unit_pos, value: 1}
  - name: second
    params: [{name: out, type: "array<u32>", mutable: true}]
    body:
      - store: {base: out, at: unit_pos, value: 2}
`))
	require.NoError(t, err)
	require.Len(t, kernels, 2)
	require.Equal(t, "first", kernels[0].Name)
	require.Equal(t, "second", kernels[1].Name)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
		line int
	}{
		{
			name: "empty",
			src:  "",
			want: "empty document",
		},
		{
			name: "no kernels",
			src:  "kernels: []\n",
			want: "no kernels",
		},
		{
			name: "unknown field",
			src:  "kernels:\n  - name: k\n    entry: main\n",
			want: "field entry not found",
		},
		{
			name: "unnamed kernel",
			src:  "kernels:\n  - params: []\n",
			want: "kernel has no name",
			line: 2,
		},
		{
			name: "bad type",
			src:  "kernels:\n  - name: k\n    params:\n      - {name: a, type: \"vec<f32>\"}\n",
			want: "parameter a",
			line: 4,
		},
		{
			name: "duplicate param",
			src:  "kernels:\n  - name: k\n    params:\n      - {name: a, type: u32}\n      - {name: a, type: u32}\n",
			want: "declared twice",
			line: 5,
		},
		{
			name: "unknown statement",
			src:  "kernels:\n  - name: k\n    body:\n      - halt\n",
			want: `unknown statement "halt"`,
		},
		{
			name: "two keys",
			src:  "kernels:\n  - name: k\n    body:\n      - {let: {name: x, value: 1}, terminate: true}\n",
			want: "exactly one key",
		},
		{
			name: "unknown statement key",
			src:  "kernels:\n  - name: k\n    body:\n      - loop: {var: i}\n",
			want: "field loop not found",
		},
		{
			name: "unknown operand key",
			src:  "kernels:\n  - name: k\n    body:\n      - let: {name: x, value: 1, kind: u32}\n",
			want: "field kind not found",
		},
		{
			name: "unknown operator",
			src:  "kernels:\n  - name: k\n    body:\n      - binary: {dst: x, op: pow, lhs: 1, rhs: 2}\n",
			want: `unknown operator "pow"`,
			line: 4,
		},
		{
			name: "redefinition",
			src:  "kernels:\n  - name: k\n    body:\n      - let: {name: x, value: 1}\n      - let: {name: x, value: 2}\n",
			want: `"x" is already defined`,
			line: 5,
		},
		{
			name: "len of a scalar",
			src:  "kernels:\n  - name: k\n    params:\n      - {name: a, type: u32}\n    body:\n      - len: {dst: n, base: a}\n",
			want: `len of "a": not a buffer parameter`,
		},
		{
			name: "len with unknown key",
			src:  "kernels:\n  - name: k\n    body:\n      - len: {dst: n, of: a}\n",
			want: "field of not found",
		},
		{
			name: "read-only store",
			src:  "kernels:\n  - name: k\n    params:\n      - {name: a, type: \"array<u32>\"}\n    body:\n      - store: {base: a, at: 0, value: 1}\n",
			want: `read-only buffer "a"`,
			line: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.src))
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
			var ferr *Error
			require.True(t, errors.As(err, &ferr), "got %T", err)
			if tt.line > 0 {
				require.Equal(t, tt.line, ferr.Line)
			}
		})
	}
}

func TestUnknownName(t *testing.T) {
	_, err := Parse([]byte(`
kernels:
  - name: k
    params:
      - {name: out, type: "array<f32>", mutable: true}
    body:
      - store: {base: out, at: unit_pos, value: missing}
`))
	require.ErrorIs(t, err, ErrUnknownName)
	var ferr *Error
	require.True(t, errors.As(err, &ferr))
	require.Equal(t, "k", ferr.Kernel)
	require.Equal(t, 7, ferr.Line)
	require.True(t, strings.HasPrefix(err.Error(), "kernel k: line 7: "), err.Error())

	_, err = Parse([]byte(`
kernels:
  - name: k
    body:
      - index: {dst: x, base: nowhere, at: 0}
`))
	require.ErrorIs(t, err, ErrUnknownName)
}

func TestReadFixtures(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("..", "snapshot", "testdata", "in", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		kernels, err := ReadFile(path)
		require.NoError(t, err, path)
		require.Len(t, kernels, 1, path)
		require.Equal(t, strings.TrimSuffix(filepath.Base(path), ".yaml"), kernels[0].Name)
	}

	_, err = ReadFile(filepath.Join("testdata", "absent.yaml"))
	require.Error(t, err)
}
