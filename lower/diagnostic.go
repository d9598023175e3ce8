// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package lower

import (
	"fmt"

	"github.com/gogpu/kernelgen/ir"
)

// Severity of a diagnostic.
type Severity uint8

const (
	SeverityNote Severity = iota
	SeverityWarning
)

// String returns "note" or "warning".
func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "note"
}

// DiagnosticKind identifies a recoverable condition.
type DiagnosticKind uint8

const (
	// UnsupportedWidth means the dialect has no native spelling for a line
	// of the given element and width; a fallback representation was used.
	UnsupportedWidth DiagnosticKind = iota
)

func (k DiagnosticKind) String() string {
	if k == UnsupportedWidth {
		return "UnsupportedWidth"
	}
	return "Unknown"
}

// Diagnostic is a recoverable event recorded while lowering.
type Diagnostic struct {
	Severity Severity
	Kind     DiagnosticKind

	// Kernel is the IR name of the kernel being lowered.
	Kernel string

	Elem    ir.ElementKind
	Width   uint32
	Message string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s: %s", d.Severity, d.Kernel, d.Kind, d.Message)
}
