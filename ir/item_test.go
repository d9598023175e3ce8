// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"errors"
	"testing"
)

func packsHalf(e ElementKind) bool { return e.Packable() }

func TestDerive(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		ctx   Context
		packs func(ElementKind) bool
		want  Item
	}{
		{
			name: "param line f32x4",
			typ:  ArrayOf(LineOf(F32, 4)),
			ctx:  ContextParam,
			want: Item{Elem: F32, Width: 4, Shape: ShapeLine, Role: RoleStorage},
		},
		{
			name: "param line f32x1 keeps line shape",
			typ:  ArrayOf(LineOf(F32, 1)),
			ctx:  ContextParam,
			want: Item{Elem: F32, Width: 1, Shape: ShapeLine, Role: RoleStorage},
		},
		{
			name: "param scalar array",
			typ:  ArrayOf(ScalarOf(F32)),
			ctx:  ContextParam,
			want: Item{Elem: F32, Width: 1, Shape: ShapeScalar, Role: RoleStorage},
		},
		{
			name:  "param bf16x2 packed",
			typ:   ArrayOf(LineOf(BF16, 2)),
			ctx:   ContextParam,
			packs: packsHalf,
			want:  Item{Elem: BF16, Width: 2, Shape: ShapeLine, Role: RoleStorage, Packed: true},
		},
		{
			name:  "param bf16x1 stays unpacked",
			typ:   ArrayOf(LineOf(BF16, 1)),
			ctx:   ContextParam,
			packs: packsHalf,
			want:  Item{Elem: BF16, Width: 1, Shape: ShapeLine, Role: RoleStorage},
		},
		{
			name:  "param f16x3 stays unpacked",
			typ:   ArrayOf(LineOf(F16, 3)),
			ctx:   ContextParam,
			packs: packsHalf,
			want:  Item{Elem: F16, Width: 3, Shape: ShapeLine, Role: RoleStorage},
		},
		{
			name: "param f16x4 without backend packing",
			typ:  ArrayOf(LineOf(F16, 4)),
			ctx:  ContextParam,
			want: Item{Elem: F16, Width: 4, Shape: ShapeLine, Role: RoleStorage},
		},
		{
			name:  "local line is register and unpacked",
			typ:   LineOf(BF16, 4),
			ctx:   ContextLocal,
			packs: packsHalf,
			want:  Item{Elem: BF16, Width: 4, Shape: ShapeLine, Role: RoleRegister},
		},
		{
			name: "builtin ignores declared type",
			typ:  LineOf(F32, 4),
			ctx:  ContextBuiltin,
			want: BuiltinItem,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Derive(tt.typ, tt.ctx, tt.packs)
			if err != nil {
				t.Fatalf("Derive: %v", err)
			}
			if got != tt.want {
				t.Errorf("Derive = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDerive_ArrayLocalIsError(t *testing.T) {
	_, err := Derive(ArrayOf(ScalarOf(F32)), ContextLocal, nil)
	if !errors.Is(err, ErrNotIndexable) {
		t.Errorf("expected ErrNotIndexable, got %v", err)
	}
}

func TestIndexResult_PreservesWidth(t *testing.T) {
	for _, w := range []uint32{1, 2, 4, 8} {
		base := Item{Elem: BF16, Width: w, Shape: ShapeLine, Role: RoleStorage, Packed: w%2 == 0}
		got, ok := IndexResult(base)
		if !ok {
			t.Fatalf("width %d: storage line not indexable", w)
		}
		want := Item{Elem: BF16, Width: w, Shape: ShapeLine, Role: RoleRegister, Packed: w%2 == 0}
		if got != want {
			t.Errorf("width %d: IndexResult = %v, want %v", w, got, want)
		}

		lane, ok := IndexResult(got)
		if !ok {
			t.Fatalf("width %d: register line not indexable", w)
		}
		if lane != (Item{Elem: BF16, Width: 1, Shape: ShapeScalar, Role: RoleRegister}) {
			t.Errorf("width %d: lane item = %v", w, lane)
		}
	}
}

func TestIndexResult_RegisterScalar(t *testing.T) {
	if _, ok := IndexResult(BuiltinItem); ok {
		t.Error("register scalar must not be indexable")
	}
}

func TestItem_String(t *testing.T) {
	it := Item{Elem: BF16, Width: 2, Shape: ShapeLine, Role: RoleStorage, Packed: true}
	if got, want := it.String(), "storage line<bf16,2> packed"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
