// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package kernelgen

import (
	"context"
	"runtime"
	"testing"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/irfile"
	"github.com/gogpu/kernelgen/lower"
)

// ---------------------------------------------------------------------------
// Test kernel sources at different complexity levels
// ---------------------------------------------------------------------------

// kernelSmallCopy copies one f32 per unit.
const kernelSmallCopy = `
kernels:
  - name: small_copy
    params:
      - {name: input, type: "array<f32>"}
      - {name: output, type: "array<f32>", mutable: true}
    body:
      - index: {dst: x, base: input, at: absolute_pos_x}
      - store: {base: output, at: absolute_pos_x, value: x}
`

// kernelMediumReduce sums lines in a strided loop with dynamic lane reads.
const kernelMediumReduce = `
kernels:
  - name: medium_reduce
    params:
      - {name: input, type: "array<line<f32,4>>"}
      - {name: output, type: "array<f32>", mutable: true}
      - {name: rounds, type: u32}
    body:
      - let: {name: acc, value: 0.0}
      - for:
          var: r
          from: 0
          to: rounds
          body:
            - binary: {dst: base, op: mul, lhs: r, rhs: cube_dim_x}
            - binary: {dst: idx, op: add, lhs: base, rhs: unit_pos}
            - index: {dst: in_line, base: input, at: idx}
            - for:
                var: l
                from: 0
                to: 4
                body:
                  - index: {dst: x, base: in_line, at: l}
                  - binary: {dst: acc, op: add, lhs: acc, rhs: x}
      - store: {base: output, at: unit_pos, value: acc}
`

// kernelLargePacked mixes packed half lines, casts, a fallback width and a
// read-modify-write.
const kernelLargePacked = `
kernels:
  - name: large_packed
    params:
      - {name: a, type: "array<line<bf16,8>>"}
      - {name: b, type: "array<line<f16,4>>"}
      - {name: wide, type: "array<line<f32,8>>", mutable: true}
      - {name: out, type: "array<line<bf16,8>>", mutable: true}
      - {name: scale, type: f32}
    body:
      - binary: {dst: outside, op: ge, lhs: absolute_pos_x, rhs: 1024}
      - if: {cond: outside, then: [terminate]}
      - index: {dst: xa, base: a, at: absolute_pos_x}
      - index: {dst: xb, base: b, at: absolute_pos_x}
      - binary: {dst: sum, op: add, lhs: xa, rhs: xa}
      - store: {base: out, at: absolute_pos_x, value: sum}
      - cast: {dst: bf, to: f32, value: xb}
      - let: {name: acc, type: "line<f32,8>", value: 0.0}
      - for:
          var: l
          from: 0
          to: 4
          body:
            - index: {dst: v, base: bf, at: l}
            - binary: {dst: s, op: mul, lhs: v, rhs: scale}
            - store: {base: acc, at: l, value: s}
      - store: {base: wide, at: absolute_pos_x, value: acc}
      - index: {dst: cur, base: wide, at: absolute_pos_x}
      - store: {base: cur, at: 7, value: scale}
`

type kernelCase struct {
	name   string
	source string
}

var kernelsByComplexity = []kernelCase{
	{"small_copy", kernelSmallCopy},
	{"medium_reduce", kernelMediumReduce},
	{"large_packed", kernelLargePacked},
}

func parseCase(b *testing.B, kc kernelCase) []*ir.Kernel {
	b.Helper()
	kernels, err := irfile.Parse([]byte(kc.source))
	if err != nil {
		b.Fatalf("parse failed: %v", err)
	}
	return kernels
}

// ---------------------------------------------------------------------------
// End-to-end compilation by dialect and complexity
// ---------------------------------------------------------------------------

// BenchmarkCompile benchmarks lowering and rendering of one kernel for every
// dialect. Parsing is excluded.
func BenchmarkCompile(b *testing.B) {
	for _, d := range Dialects() {
		for _, kc := range kernelsByComplexity {
			b.Run(d.String()+"/"+kc.name, func(b *testing.B) {
				kernels := parseCase(b, kc)
				opts := DefaultOptions()
				opts.Dialect = d

				b.ReportAllocs()
				b.SetBytes(int64(len(kc.source)))
				b.ResetTimer()

				var res Result
				for i := 0; i < b.N; i++ {
					var err error
					res, err = Compile(kernels[0], opts)
					if err != nil {
						b.Fatalf("compile failed: %v", err)
					}
				}
				runtime.KeepAlive(res)
			})
		}
	}
}

// BenchmarkCompileAll benchmarks a translation unit of many kernels with
// serial and concurrent lowering.
func BenchmarkCompileAll(b *testing.B) {
	var kernels []*ir.Kernel
	for i := 0; i < 16; i++ {
		for _, kc := range kernelsByComplexity {
			k := parseCase(b, kc)[0]
			clone := *k
			clone.Name = k.Name + "_" + string(rune('a'+i))
			kernels = append(kernels, &clone)
		}
	}

	for _, jobs := range []int{1, 0} {
		name := "serial"
		if jobs == 0 {
			name = "parallel"
		}
		b.Run(name, func(b *testing.B) {
			opts := DefaultOptions()
			opts.Jobs = jobs
			b.ReportAllocs()
			b.ResetTimer()

			var res Result
			for i := 0; i < b.N; i++ {
				var err error
				res, err = CompileAll(context.Background(), kernels, opts)
				if err != nil {
					b.Fatalf("compile failed: %v", err)
				}
			}
			runtime.KeepAlive(res)
		})
	}
}

// ---------------------------------------------------------------------------
// Individual stage benchmarks (parse, lower, render)
// ---------------------------------------------------------------------------

// BenchmarkParse benchmarks YAML decoding into IR kernels, validation
// included.
func BenchmarkParse(b *testing.B) {
	for _, kc := range kernelsByComplexity {
		b.Run(kc.name, func(b *testing.B) {
			b.ReportAllocs()
			b.SetBytes(int64(len(kc.source)))
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				kernels, err := irfile.Parse([]byte(kc.source))
				if err != nil {
					b.Fatalf("parse failed: %v", err)
				}
				runtime.KeepAlive(kernels)
			}
		})
	}
}

// BenchmarkLower benchmarks IR-to-Program lowering for CUDA.
func BenchmarkLower(b *testing.B) {
	e, err := DefaultOptions().emitter()
	if err != nil {
		b.Fatal(err)
	}
	for _, kc := range kernelsByComplexity {
		b.Run(kc.name, func(b *testing.B) {
			k := parseCase(b, kc)[0]

			b.ReportAllocs()
			b.ResetTimer()

			for i := 0; i < b.N; i++ {
				p, lErr := lower.Lower(k, e, lower.DefaultOptions())
				if lErr != nil {
					b.Fatalf("lower failed: %v", lErr)
				}
				runtime.KeepAlive(p)
			}
		})
	}
}

// BenchmarkRender benchmarks only source generation from a lowered Program.
func BenchmarkRender(b *testing.B) {
	for _, d := range Dialects() {
		opts := DefaultOptions()
		opts.Dialect = d
		e, err := opts.emitter()
		if err != nil {
			b.Fatal(err)
		}
		for _, kc := range kernelsByComplexity {
			b.Run(d.String()+"/"+kc.name, func(b *testing.B) {
				p, err := lower.Lower(parseCase(b, kc)[0], e, lower.DefaultOptions())
				if err != nil {
					b.Fatalf("lower failed: %v", err)
				}

				b.ReportAllocs()
				b.ResetTimer()

				var src string
				for i := 0; i < b.N; i++ {
					src = lower.Render(p, e)
				}
				b.SetBytes(int64(len(src)))
				runtime.KeepAlive(src)
			})
		}
	}
}
