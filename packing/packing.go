// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

// Package packing implements the bit-level rules for sub-word element kinds
// that a backend holds two to a 32-bit register word.
//
// Lane 0 of a packed word is the low half-word, matching little-endian
// device memory: the word loaded from bytes [b0 b1 b2 b3] carries lane 0 in
// b0..b1 and lane 1 in b2..b3.
package packing

import (
	"errors"
	"fmt"

	"github.com/gogpu/kernelgen/ir"
)

// WordBytes is the size of one packed register word.
const WordBytes = 4

// ErrPackingMismatch is returned when a pack or unpack is requested for an
// element kind that is not packable.
var ErrPackingMismatch = errors.New("packing mismatch")

// Check returns ErrPackingMismatch unless e is packable.
func Check(e ir.ElementKind) error {
	if !e.Packable() {
		return fmt.Errorf("%w: %s cannot be packed", ErrPackingMismatch, e)
	}
	return nil
}

// Eligible reports whether a line of width lanes of e is stored packed.
// Widths that are not a multiple of the pack factor, width 1 included, stay
// unpacked.
func Eligible(e ir.ElementKind, width uint32) bool {
	return e.Packable() && width > 0 && width%ir.PackFactor == 0
}

// Words returns the number of packed words holding width lanes.
func Words(width uint32) uint32 {
	return width / ir.PackFactor
}

// Stride returns the byte distance between consecutive positions of an
// array of Line(e, width). It is always computed from the element's true
// size, never from the packed container.
func Stride(e ir.ElementKind, width uint32) uint32 {
	return width * e.Size()
}

// Locate returns the packed word and the lane inside it that hold logical
// element flat of a densely stored sub-word buffer.
func Locate(flat uint32) (word, lane uint32) {
	return flat / ir.PackFactor, flat % ir.PackFactor
}

// Pack combines two 16-bit lanes into one word.
func Pack(lo, hi uint16) uint32 {
	return uint32(lo) | uint32(hi)<<16
}

// Unpack splits a word into its two 16-bit lanes.
func Unpack(w uint32) (lo, hi uint16) {
	return uint16(w), uint16(w >> 16) //nolint:gosec // G115: intentional truncation
}

// PackLanes packs the lanes of one line of e into words.
func PackLanes(e ir.ElementKind, lanes []uint16) ([]uint32, error) {
	if err := Check(e); err != nil {
		return nil, err
	}
	if len(lanes)%ir.PackFactor != 0 {
		return nil, fmt.Errorf("%w: %d lanes of %s do not fill whole words", ErrPackingMismatch, len(lanes), e)
	}
	words := make([]uint32, len(lanes)/ir.PackFactor)
	for i := range words {
		words[i] = Pack(lanes[2*i], lanes[2*i+1])
	}
	return words, nil
}

// UnpackWords is the inverse of PackLanes.
func UnpackWords(e ir.ElementKind, words []uint32) ([]uint16, error) {
	if err := Check(e); err != nil {
		return nil, err
	}
	lanes := make([]uint16, 0, len(words)*ir.PackFactor)
	for _, w := range words {
		lo, hi := Unpack(w)
		lanes = append(lanes, lo, hi)
	}
	return lanes, nil
}
