// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package packing

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/gogpu/kernelgen/ir"
)

func TestPackUnpack_RoundTrip(t *testing.T) {
	// Every lo value against a spread of hi values, and the reverse.
	for v := 0; v <= math.MaxUint16; v++ {
		a := uint16(v)
		b := uint16(v*7919 + 13)
		lo, hi := Unpack(Pack(a, b))
		if lo != a || hi != b {
			t.Fatalf("Unpack(Pack(%#04x, %#04x)) = (%#04x, %#04x)", a, b, lo, hi)
		}
		lo, hi = Unpack(Pack(b, a))
		if lo != b || hi != a {
			t.Fatalf("Unpack(Pack(%#04x, %#04x)) = (%#04x, %#04x)", b, a, lo, hi)
		}
	}
}

func TestPack_LaneZeroIsLowAddress(t *testing.T) {
	var mem [4]byte
	binary.LittleEndian.PutUint32(mem[:], Pack(0x1122, 0x3344))
	require.Equal(t, []byte{0x22, 0x11, 0x44, 0x33}, mem[:])
}

func TestPackLanes(t *testing.T) {
	lanes := []uint16{1, 2, 3, 4}
	words, err := PackLanes(ir.BF16, lanes)
	require.NoError(t, err)
	require.Equal(t, []uint32{0x00020001, 0x00040003}, words)

	back, err := UnpackWords(ir.BF16, words)
	require.NoError(t, err)
	if diff := cmp.Diff(lanes, back); diff != "" {
		t.Errorf("UnpackWords mismatch (-want +got):\n%s", diff)
	}
}

func TestPackLanes_Errors(t *testing.T) {
	_, err := PackLanes(ir.F32, []uint16{1, 2})
	require.True(t, errors.Is(err, ErrPackingMismatch), "f32: %v", err)

	_, err = UnpackWords(ir.I16, []uint32{1})
	require.True(t, errors.Is(err, ErrPackingMismatch), "i16: %v", err)

	_, err = PackLanes(ir.F16, []uint16{1, 2, 3})
	require.True(t, errors.Is(err, ErrPackingMismatch), "odd lane count: %v", err)
}

func TestCheck(t *testing.T) {
	for _, e := range ir.ElementKinds() {
		err := Check(e)
		if e.Packable() {
			require.NoError(t, err, e.String())
		} else {
			require.ErrorIs(t, err, ErrPackingMismatch, e.String())
		}
	}
}

func TestEligible(t *testing.T) {
	tests := []struct {
		elem  ir.ElementKind
		width uint32
		want  bool
	}{
		{ir.BF16, 1, false},
		{ir.BF16, 2, true},
		{ir.BF16, 3, false},
		{ir.F16, 4, true},
		{ir.F16, 8, true},
		{ir.F32, 2, false},
		{ir.U16, 2, false},
	}
	for _, tt := range tests {
		if got := Eligible(tt.elem, tt.width); got != tt.want {
			t.Errorf("Eligible(%s, %d) = %v, want %v", tt.elem, tt.width, got, tt.want)
		}
	}
}

func TestStride_UsesElementSize(t *testing.T) {
	for _, e := range ir.ElementKinds() {
		for _, w := range []uint32{1, 2, 4, 8} {
			if got, want := Stride(e, w), w*e.Size(); got != want {
				t.Errorf("Stride(%s, %d) = %d, want %d", e, w, got, want)
			}
		}
	}
	// A packed bf16x2 position is one word, not two.
	require.Equal(t, uint32(WordBytes), Stride(ir.BF16, 2))
}

func TestLocate(t *testing.T) {
	for flat := uint32(0); flat < 16; flat++ {
		word, lane := Locate(flat)
		require.Equal(t, flat/2, word)
		require.Equal(t, flat%2, lane)
	}
	w0, l0 := Locate(6)
	w1, l1 := Locate(7)
	require.Equal(t, w0, w1, "consecutive even/odd elements share a word")
	require.NotEqual(t, l0, l1)
}
