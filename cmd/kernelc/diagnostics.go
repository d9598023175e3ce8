// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/gogpu/kernelgen/lower"
)

const (
	ansiReset  = "\x1b[0m"
	ansiBold   = "\x1b[1m"
	ansiCyan   = "\x1b[36m"
	ansiYellow = "\x1b[33m"
)

// printer writes diagnostics, colored when the destination is a terminal.
type printer struct {
	w     io.Writer
	color bool
	title cases.Caser
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: w, color: isTerminal(w), title: cases.Title(language.English)}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in int
}

// print writes one line such as
//
//	Note: copy: UnsupportedWidth: cuda has no native line<f32,8>; using synthesize fallback
func (p *printer) print(d lower.Diagnostic) {
	label := p.title.String(d.Severity.String())
	if p.color {
		c := ansiCyan
		if d.Severity == lower.SeverityWarning {
			c = ansiYellow
		}
		label = ansiBold + c + label + ansiReset
	}
	fmt.Fprintf(p.w, "%s: %s: %s: %s\n", label, d.Kernel, d.Kind, d.Message)
}
