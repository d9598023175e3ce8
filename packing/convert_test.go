// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package packing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gogpu/kernelgen/ir"
)

func TestBFloat16_Exhaustive(t *testing.T) {
	for v := 0; v <= math.MaxUint16; v++ {
		b := uint16(v)
		f := BFloat16ToFloat32(b)
		if f != f {
			continue
		}
		if got := BFloat16FromFloat32(f); got != b {
			t.Fatalf("bf16 %#04x -> %v -> %#04x", b, f, got)
		}
	}
}

func TestBFloat16_Rounding(t *testing.T) {
	tests := []struct {
		in   uint32
		want uint16
	}{
		{0x3f800000, 0x3f80}, // 1.0
		{0x3f808000, 0x3f80}, // tie, even stays
		{0x3f818000, 0x3f82}, // tie, odd rounds up
		{0x3f807fff, 0x3f80},
		{0x3f808001, 0x3f81},
		{0x7f7fffff, 0x7f80}, // max float rounds to +inf
	}
	for _, tt := range tests {
		got := BFloat16FromFloat32(math.Float32frombits(tt.in))
		if got != tt.want {
			t.Errorf("BFloat16FromFloat32(%#08x) = %#04x, want %#04x", tt.in, got, tt.want)
		}
	}

	nan := BFloat16FromFloat32(float32(math.NaN()))
	f := BFloat16ToFloat32(nan)
	require.True(t, f != f, "NaN must survive conversion, got %#04x", nan)
}

func TestFloat16_Exhaustive(t *testing.T) {
	for v := 0; v <= math.MaxUint16; v++ {
		h := uint16(v)
		f := Float16ToFloat32(h)
		if f != f {
			continue
		}
		if got := Float16FromFloat32(f); got != h {
			t.Fatalf("f16 %#04x -> %v -> %#04x", h, f, got)
		}
	}
}

func TestHalfConversions(t *testing.T) {
	for _, e := range []ir.ElementKind{ir.F16, ir.BF16} {
		bits, err := HalfFromFloat32(e, 1.5)
		require.NoError(t, err)
		f, err := HalfToFloat32(e, bits)
		require.NoError(t, err)
		require.Equal(t, float32(1.5), f, e.String())
	}

	_, err := HalfFromFloat32(ir.F32, 1)
	require.ErrorIs(t, err, ErrPackingMismatch)
	_, err = HalfToFloat32(ir.U16, 1)
	require.ErrorIs(t, err, ErrPackingMismatch)
}
