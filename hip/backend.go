// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hip

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/lower"
)

// Options configures HIP code generation.
type Options struct {
	// Fallback selects how lines without a native vector type are accessed.
	Fallback lower.FallbackPolicy

	// LaunchBounds is the maximum cube size the kernel is launched with.
	// Zero omits __launch_bounds__.
	LaunchBounds uint32

	// Logger receives UnsupportedWidth notes. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns sensible default options for HIP generation.
func DefaultOptions() Options {
	return Options{Fallback: lower.FallbackSynthesize}
}

// TranslationInfo contains information about the compiled HIP output.
type TranslationInfo struct {
	// EntryPoint is the generated kernel name.
	EntryPoint string

	// Diagnostics holds the notes recorded while lowering.
	Diagnostics []lower.Diagnostic
}

// Compile generates HIP C++ source from an IR kernel.
func Compile(kernel *ir.Kernel, options Options) (string, TranslationInfo, error) {
	e := NewEmitter(options)
	p, err := lower.Lower(kernel, e, lower.Options{
		Fallback: options.Fallback,
		Logger:   options.Logger,
	})
	if err != nil {
		return "", TranslationInfo{}, fmt.Errorf("hip: %w", err)
	}
	return lower.Render(p, e), TranslationInfo{EntryPoint: p.Name, Diagnostics: p.Diagnostics}, nil
}
