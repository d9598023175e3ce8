// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hip

import (
	"fmt"

	"github.com/gogpu/kernelgen/cuda"
	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/lower"
)

// Emitter spells lowered programs as HIP C++. Builtins, intrinsics and
// literals are those of the CUDA emitter.
type Emitter struct {
	*cuda.Emitter
	launchBounds uint32
}

// NewEmitter returns an emitter configured by options.
func NewEmitter(options Options) *Emitter {
	return &Emitter{
		Emitter:      cuda.NewCompatEmitter("__hip_bfloat16", "__hip_bfloat162"),
		launchBounds: options.LaunchBounds,
	}
}

var _ lower.Emitter = (*Emitter)(nil)

// Name returns "hip".
func (e *Emitter) Name() string { return "hip" }

// VectorType implements lower.Emitter.
func (e *Emitter) VectorType(k ir.ElementKind, width uint32) (string, bool) {
	return vectorTypeName(k, width)
}

// Header implements lower.Emitter.
func (e *Emitter) Header() []string {
	return []string{
		"// Generated by kernelgen for HIP.",
		"#include <hip/hip_runtime.h>",
		"#include <hip/hip_fp16.h>",
		"#include <hip/hip_bf16.h>",
	}
}

// KernelSignature implements lower.Emitter. A non-zero launch bound is
// written as __launch_bounds__.
func (e *Emitter) KernelSignature(name string) string {
	if e.launchBounds > 0 {
		return fmt.Sprintf(`extern "C" __global__ void __launch_bounds__(%d) %s`, e.launchBounds, name)
	}
	return `extern "C" __global__ void ` + name
}

// IsReserved implements lower.Emitter.
func (e *Emitter) IsReserved(name string) bool { return IsReserved(name) }
