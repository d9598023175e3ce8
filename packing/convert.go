// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package packing

import (
	"fmt"
	"math"

	"github.com/x448/float16"

	"github.com/gogpu/kernelgen/ir"
)

// BFloat16FromFloat32 rounds f to the nearest bfloat16, ties to even.
// NaN stays NaN.
func BFloat16FromFloat32(f float32) uint16 {
	u := math.Float32bits(f)
	if u&0x7fffffff > 0x7f800000 {
		return uint16(u>>16) | 0x0040 //nolint:gosec // G115: high half
	}
	lsb := (u >> 16) & 1
	return uint16((u + 0x7fff + lsb) >> 16) //nolint:gosec // G115: high half
}

// BFloat16ToFloat32 widens a bfloat16. The conversion is exact.
func BFloat16ToFloat32(b uint16) float32 {
	return math.Float32frombits(uint32(b) << 16)
}

// Float16FromFloat32 rounds f to the nearest IEEE binary16, ties to even.
func Float16FromFloat32(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}

// Float16ToFloat32 widens an IEEE binary16. The conversion is exact.
func Float16ToFloat32(h uint16) float32 {
	return float16.Frombits(h).Float32()
}

// HalfFromFloat32 encodes f as a 16-bit lane of the packable kind e.
func HalfFromFloat32(e ir.ElementKind, f float32) (uint16, error) {
	switch e {
	case ir.F16:
		return Float16FromFloat32(f), nil
	case ir.BF16:
		return BFloat16FromFloat32(f), nil
	default:
		return 0, fmt.Errorf("%w: %s is not a half precision kind", ErrPackingMismatch, e)
	}
}

// HalfToFloat32 decodes a 16-bit lane of the packable kind e.
func HalfToFloat32(e ir.ElementKind, bits uint16) (float32, error) {
	switch e {
	case ir.F16:
		return Float16ToFloat32(bits), nil
	case ir.BF16:
		return BFloat16ToFloat32(bits), nil
	default:
		return 0, fmt.Errorf("%w: %s is not a half precision kind", ErrPackingMismatch, e)
	}
}
