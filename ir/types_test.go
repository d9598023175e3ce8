// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"testing"
)

func TestElementKind_Size(t *testing.T) {
	tests := []struct {
		elem ElementKind
		want uint32
	}{
		{F16, 2}, {BF16, 2}, {F32, 4}, {F64, 8},
		{I8, 1}, {I16, 2}, {I32, 4}, {I64, 8},
		{U8, 1}, {U16, 2}, {U32, 4}, {U64, 8},
		{Bool, 1},
	}
	for _, tt := range tests {
		if got := tt.elem.Size(); got != tt.want {
			t.Errorf("%s.Size() = %d, want %d", tt.elem, got, tt.want)
		}
	}
}

func TestElementKind_Packable(t *testing.T) {
	for _, e := range ElementKinds() {
		want := e == F16 || e == BF16
		if got := e.Packable(); got != want {
			t.Errorf("%s.Packable() = %v, want %v", e, got, want)
		}
	}
}

func TestParseElementKind_RoundTrip(t *testing.T) {
	for _, e := range ElementKinds() {
		got, err := ParseElementKind(e.String())
		if err != nil {
			t.Fatalf("ParseElementKind(%q): %v", e, err)
		}
		if got != e {
			t.Errorf("ParseElementKind(%q) = %s", e, got)
		}
	}
	if _, err := ParseElementKind("f128"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

func TestTypesEqual_LineOfOneIsNotScalar(t *testing.T) {
	for _, e := range ElementKinds() {
		if TypesEqual(LineOf(e, 1), ScalarOf(e)) {
			t.Errorf("line<%s,1> compared equal to %s", e, e)
		}
		if TypesEqual(ArrayOf(LineOf(e, 1)), ArrayOf(ScalarOf(e))) {
			t.Errorf("array<line<%s,1>> compared equal to array<%s>", e, e)
		}
		if !TypesEqual(LineOf(e, 4), LineOf(e, 4)) {
			t.Errorf("line<%s,4> not equal to itself", e)
		}
	}
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want Type
	}{
		{"f32", ScalarOf(F32)},
		{"line<f32,4>", LineOf(F32, 4)},
		{"line< bf16 , 1 >", LineOf(BF16, 1)},
		{"array<u32>", ArrayOf(ScalarOf(U32))},
		{"array<line<bf16,2>>", ArrayOf(LineOf(BF16, 2))},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseType(tt.in)
			if err != nil {
				t.Fatalf("ParseType: %v", err)
			}
			if !TypesEqual(got, tt.want) {
				t.Errorf("ParseType(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseType_Errors(t *testing.T) {
	for _, in := range []string{"", "line<f32>", "line<f32,0>", "line<f32,x>", "array<array<f32>>", "vec4"} {
		if _, err := ParseType(in); err == nil {
			t.Errorf("ParseType(%q) succeeded, want error", in)
		}
	}
}
