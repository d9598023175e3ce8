// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cuda

import (
	"fmt"
	"log/slog"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/lower"
)

// Options configures CUDA code generation.
type Options struct {
	// Fallback selects how lines without a native vector type are accessed.
	Fallback lower.FallbackPolicy

	// RestrictPointers marks buffer parameters __restrict__.
	RestrictPointers bool

	// Logger receives UnsupportedWidth notes. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns sensible default options for CUDA generation.
func DefaultOptions() Options {
	return Options{
		Fallback:         lower.FallbackSynthesize,
		RestrictPointers: true,
	}
}

// TranslationInfo contains information about the compiled CUDA output.
type TranslationInfo struct {
	// EntryPoint is the generated kernel name.
	EntryPoint string

	// Diagnostics holds the notes recorded while lowering.
	Diagnostics []lower.Diagnostic
}

// Compile generates CUDA C++ source from an IR kernel.
// Returns the source as a string and translation info, or an error.
func Compile(kernel *ir.Kernel, options Options) (string, TranslationInfo, error) {
	e := NewEmitter(options)
	p, err := lower.Lower(kernel, e, lower.Options{
		Fallback: options.Fallback,
		Logger:   options.Logger,
	})
	if err != nil {
		return "", TranslationInfo{}, fmt.Errorf("cuda: %w", err)
	}

	info := TranslationInfo{
		EntryPoint:  p.Name,
		Diagnostics: p.Diagnostics,
	}
	return lower.Render(p, e), info, nil
}
