// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package msl

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/lower"
)

// Version represents an MSL language version.
type Version struct {
	Major uint8
	Minor uint8
}

// Common MSL versions.
var (
	Version1_2 = Version{Major: 1, Minor: 2}
	Version2_0 = Version{Major: 2, Minor: 0}
	Version2_1 = Version{Major: 2, Minor: 1}
	Version2_3 = Version{Major: 2, Minor: 3}
	Version3_0 = Version{Major: 3, Minor: 0}
	Version3_1 = Version{Major: 3, Minor: 1}
)

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// ParseVersion parses a "major.minor" version string.
func ParseVersion(s string) (Version, error) {
	major, minor, ok := strings.Cut(s, ".")
	if !ok {
		return Version{}, fmt.Errorf("msl: invalid version %q", s)
	}
	maj, err := strconv.ParseUint(major, 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("msl: invalid version %q", s)
	}
	mnr, err := strconv.ParseUint(minor, 10, 8)
	if err != nil {
		return Version{}, fmt.Errorf("msl: invalid version %q", s)
	}
	return Version{Major: uint8(maj), Minor: uint8(mnr)}, nil
}

// AtLeast reports whether v is o or newer.
func (v Version) AtLeast(o Version) bool {
	if v.Major != o.Major {
		return v.Major > o.Major
	}
	return v.Minor >= o.Minor
}

// Options configures MSL code generation.
type Options struct {
	// LangVersion is the target MSL version.
	// Defaults to Version3_1 if zero.
	LangVersion Version

	// Fallback selects how lines without a native vector type are accessed.
	Fallback lower.FallbackPolicy

	// Logger receives UnsupportedWidth notes. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns sensible default options for MSL generation.
func DefaultOptions() Options {
	return Options{
		LangVersion: Version3_1,
		Fallback:    lower.FallbackSynthesize,
	}
}

// TranslationInfo contains information about the compiled MSL output.
type TranslationInfo struct {
	// EntryPoint is the generated kernel name.
	EntryPoint string

	// Builtins lists the thread-position attributes the kernel takes.
	Builtins []string

	// Diagnostics holds the notes recorded while lowering.
	Diagnostics []lower.Diagnostic
}

// Compile generates MSL source code from an IR kernel.
// Returns the MSL source as a string and translation info, or an error.
func Compile(kernel *ir.Kernel, options Options) (string, TranslationInfo, error) {
	// Apply defaults for zero values
	if options.LangVersion.Major == 0 {
		options.LangVersion = Version3_1
	}

	e := NewEmitter(options.LangVersion)
	p, err := lower.Lower(kernel, e, lower.Options{
		Fallback: options.Fallback,
		Logger:   options.Logger,
	})
	if err != nil {
		return "", TranslationInfo{}, fmt.Errorf("msl: %w", err)
	}

	info := TranslationInfo{
		EntryPoint:  p.Name,
		Diagnostics: p.Diagnostics,
	}
	for _, bp := range builtinParamsFor(p.Builtins) {
		info.Builtins = append(info.Builtins, bp.attribute)
	}
	return lower.Render(p, e), info, nil
}
