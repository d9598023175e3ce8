// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"fmt"
	"math"
)

// Operand is an instruction input: a variable or a literal.
type Operand interface {
	operand()
}

// OpVar reads a variable.
type OpVar struct {
	Var VarHandle
}

func (OpVar) operand() {}

// OpLiteral is a constant of one element kind. Bits holds the raw element
// encoding, zero-extended to 64 bits.
type OpLiteral struct {
	Elem ElementKind
	Bits uint64
}

func (OpLiteral) operand() {}

// LitF32 returns an f32 literal.
func LitF32(v float32) OpLiteral {
	return OpLiteral{Elem: F32, Bits: uint64(math.Float32bits(v))}
}

// LitF64 returns an f64 literal.
func LitF64(v float64) OpLiteral {
	return OpLiteral{Elem: F64, Bits: math.Float64bits(v)}
}

// LitU32 returns a u32 literal.
func LitU32(v uint32) OpLiteral {
	return OpLiteral{Elem: U32, Bits: uint64(v)}
}

// LitI32 returns an i32 literal.
func LitI32(v int32) OpLiteral {
	return OpLiteral{Elem: I32, Bits: uint64(uint32(v))}
}

// LitBool returns a bool literal.
func LitBool(v bool) OpLiteral {
	if v {
		return OpLiteral{Elem: Bool, Bits: 1}
	}
	return OpLiteral{Elem: Bool}
}

// Float returns the literal value as a float64 for float kinds. Half
// precision literals are stored in their 16-bit encoding and are decoded by
// the packing package, so Float only handles f32 and f64.
func (l OpLiteral) Float() (float64, bool) {
	switch l.Elem {
	case F32:
		return float64(math.Float32frombits(uint32(l.Bits))), true
	case F64:
		return math.Float64frombits(l.Bits), true
	default:
		return 0, false
	}
}

// Position is the position operand of an index operation.
type Position interface {
	position()
}

// ConstIndex is a compile-time position.
type ConstIndex uint32

func (ConstIndex) position() {}

// DynIndex is a runtime position.
type DynIndex struct {
	Value Operand
}

func (DynIndex) position() {}

// Block is a sequence of instructions executed in order.
type Block []Instruction

// Instruction is one IR instruction.
type Instruction interface {
	instruction()
}

// Declare introduces a local variable, optionally initialized. A scalar
// initializer for a Line local fills every lane.
type Declare struct {
	Var  VarHandle
	Init Operand
}

func (Declare) instruction() {}

// Index reads Base at Pos into the intermediate Dst. Chained indexing is two
// Index instructions sharing the intermediate.
type Index struct {
	Dst  VarHandle
	Base VarHandle
	Pos  Position
}

func (Index) instruction() {}

// IndexAssign writes Value into Base at Pos.
type IndexAssign struct {
	Base  VarHandle
	Pos   Position
	Value Operand
}

func (IndexAssign) instruction() {}

// Assign overwrites a local variable.
type Assign struct {
	Dst   VarHandle
	Value Operand
}

func (Assign) instruction() {}

// BinaryOp is an elementwise binary operator.
type BinaryOp uint8

const (
	OpAdd BinaryOp = iota
	OpSub
	OpMul
	OpDiv
	OpRem
	OpMin
	OpMax
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
	OpAnd
	OpOr
)

var binaryOpNames = [...]string{
	OpAdd: "add",
	OpSub: "sub",
	OpMul: "mul",
	OpDiv: "div",
	OpRem: "rem",
	OpMin: "min",
	OpMax: "max",
	OpLt:  "lt",
	OpLe:  "le",
	OpGt:  "gt",
	OpGe:  "ge",
	OpEq:  "eq",
	OpNe:  "ne",
	OpAnd: "and",
	OpOr:  "or",
}

// String returns the operator name.
func (op BinaryOp) String() string {
	if int(op) < len(binaryOpNames) {
		return binaryOpNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

// IsComparison reports whether op yields a bool.
func (op BinaryOp) IsComparison() bool {
	return op >= OpLt && op <= OpNe
}

// ParseBinaryOp looks up an operator by name.
func ParseBinaryOp(s string) (BinaryOp, bool) {
	for i, name := range binaryOpNames {
		if name == s {
			return BinaryOp(i), true //nolint:gosec // G115: bounded by table size
		}
	}
	return 0, false
}

// Binary computes Dst = Lhs op Rhs lane by lane. A scalar operand is
// broadcast across the lanes of a Line operand.
type Binary struct {
	Dst VarHandle
	Op  BinaryOp
	Lhs Operand
	Rhs Operand
}

func (Binary) instruction() {}

// Cast converts Value to the element kind of Dst lane by lane.
type Cast struct {
	Dst   VarHandle
	Value Operand
}

func (Cast) instruction() {}

// Len stores the length of the buffer parameter Buf, counted in positions,
// into the u32 scalar Dst.
type Len struct {
	Dst VarHandle
	Buf VarHandle
}

func (Len) instruction() {}

// If runs Then when Cond is true and Else otherwise.
type If struct {
	Cond Operand
	Then Block
	Else Block
}

func (If) instruction() {}

// For runs Body with Var taking the values Start, Start+1, ..., End-1.
type For struct {
	Var   VarHandle
	Start Operand
	End   Operand
	Body  Block
}

func (For) instruction() {}

// Terminate ends the current thread.
type Terminate struct{}

func (Terminate) instruction() {}
