// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cuda

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/lower"
)

func verifyWithNvcc(t *testing.T, source string) {
	t.Helper()

	if _, err := exec.LookPath("nvcc"); err != nil {
		t.Skip("nvcc not found; skipping CUDA compile check")
	}

	dir := t.TempDir()
	srcPath := filepath.Join(dir, "kernel.cu")
	outPath := filepath.Join(dir, "kernel.ptx")
	if err := os.WriteFile(srcPath, []byte(source), 0o600); err != nil {
		t.Fatalf("write CUDA temp file: %v", err)
	}

	cmd := exec.Command("nvcc", "-arch=sm_80", "--ptx", srcPath, "-o", outPath) //nolint:gosec // G204: args are temp paths in tests
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("nvcc failed: %v\n%s\nCUDA:\n%s", err, out, source)
	}
}

func TestCUDACompilesWithNvcc(t *testing.T) {
	for _, tc := range []struct {
		elem     ir.ElementKind
		width    uint32
		fallback lower.FallbackPolicy
	}{
		{ir.F32, 4, lower.FallbackSynthesize},
		{ir.F16, 4, lower.FallbackSynthesize},
		{ir.BF16, 2, lower.FallbackSynthesize},
		{ir.F64, 4, lower.FallbackDecompose},
		{ir.Bool, 2, lower.FallbackSynthesize},
	} {
		opts := DefaultOptions()
		opts.Fallback = tc.fallback
		src, _, err := Compile(copyKernel(t, tc.elem, tc.width), opts)
		if err != nil {
			t.Fatalf("cuda.Compile failed: %v", err)
		}
		verifyWithNvcc(t, src)
	}
}
