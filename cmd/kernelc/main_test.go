// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const wideKernel = `
kernels:
  - name: wide
    params:
      - {name: input, type: "array<line<f32,8>>"}
      - {name: output, type: "array<line<f32,8>>", mutable: true}
    body:
      - index: {dst: x, base: input, at: absolute_pos_x}
      - store: {base: output, at: absolute_pos_x, value: x}
`

func run(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := newRootCmd(&out, &errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func writeInput(t *testing.T, src string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kernels.yaml")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
	return path
}

func fixture(name string) string {
	return filepath.Join("..", "..", "snapshot", "testdata", "in", name)
}

func TestCompileToStdout(t *testing.T) {
	stdout, stderr, err := run(t, "compile", "-d", "hip", "--launch-bounds", "256", fixture("simple_index.yaml"))
	require.NoError(t, err)
	require.Empty(t, stderr)
	require.Contains(t, stdout, "#include <hip/hip_runtime.h>")
	require.Contains(t, stdout, "__launch_bounds__(256)")
	require.Contains(t, stdout, "simple_index(")
}

func TestCompileSeveralInputs(t *testing.T) {
	stdout, _, err := run(t, "compile", "-d", "metal", fixture("simple_index.yaml"), fixture("poke_lane.yaml"))
	require.NoError(t, err)
	require.Equal(t, 1, strings.Count(stdout, "#include <metal_stdlib>"))
	require.Less(t, strings.Index(stdout, "kernel void simple_index("), strings.Index(stdout, "kernel void poke_lane("))
}

func TestCompileDiagnostics(t *testing.T) {
	input := writeInput(t, wideKernel)

	_, stderr, err := run(t, "compile", "--fallback", "decompose", input)
	require.NoError(t, err)
	require.Equal(t, "Note: wide: UnsupportedWidth: cuda has no native line<f32,8>; using decompose fallback\n", stderr)

	_, stderr, err = run(t, "compile", "-q", input)
	require.NoError(t, err)
	require.Empty(t, stderr)

	_, stderr, err = run(t, "compile", "-q", "-v", input)
	require.NoError(t, err)
	require.Contains(t, stderr, `msg="unsupported width"`)
	require.Contains(t, stderr, "kernel=wide")
}

func TestCompileToFile(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.cu")
	stdout, stderr, err := run(t, "compile", "--no-restrict", "-o", out, fixture("simple_index.yaml"))
	require.NoError(t, err)
	require.Empty(t, stdout)
	require.Contains(t, stderr, "Compiled 1 kernel(s) to "+out)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Contains(t, string(data), "const float1* input")
	require.NotContains(t, string(data), "__restrict__")
}

func TestCompileErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", []string{"compile"}, "requires at least 1 arg"},
		{"dialect", []string{"compile", "-d", "opencl", fixture("simple_index.yaml")}, `unknown dialect "opencl"`},
		{"fallback", []string{"compile", "--fallback", "guess", fixture("simple_index.yaml")}, "unknown fallback policy"},
		{"metal version", []string{"compile", "--metal-version", "three", fixture("simple_index.yaml")}, "invalid version"},
		{"missing file", []string{"compile", "absent.yaml"}, "absent.yaml"},
		{"bad kernel", []string{"compile", writeInput(t, "kernels: []\n")}, "no kernels"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := run(t, tt.args...)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestDialects(t *testing.T) {
	stdout, _, err := run(t, "dialects")
	require.NoError(t, err)
	require.Equal(t, "cuda  .cu\nhip   .hip\nmsl   .metal\n", stdout)
}

func TestPrinterWithoutTerminal(t *testing.T) {
	var buf bytes.Buffer
	require.False(t, newPrinter(&buf).color)
}
