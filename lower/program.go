// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package lower

import (
	"github.com/gogpu/kernelgen/ir"
)

// Program is one lowered kernel: dialect-neutral statements whose every
// memory access records the exact pointee layout and byte stride.
type Program struct {
	Name        string
	Params      []ParamDecl
	Structs     []StructDef
	Builtins    []ir.Builtin
	Body        []Stmt
	Diagnostics []Diagnostic
}

// ParamDecl is one kernel parameter. Parameters are never dropped, even when
// the body never reads them.
type ParamDecl struct {
	Name string

	// Layout is the layout of one buffer position, or of the value for
	// by-value parameters.
	Layout Layout

	Buffer  bool
	Mutable bool

	// Slot is the parameter's position in the signature.
	Slot int

	// Length marks the hidden u32 length, in positions, of the buffer
	// Params[Of]. Every buffer has one; they follow the declared parameters
	// in buffer order.
	Length bool
	Of     int
}

// StructDef is a synthetic struct emitted before the kernel.
type StructDef struct {
	Name  string
	Field string
	Type  string
	Count uint32
}

// Stmt is a lowered statement.
type Stmt interface {
	stmt()
}

// Declare introduces a named value. Init may be nil.
type Declare struct {
	Name   string
	Layout Layout
	Init   Expr
	Const  bool
}

// Store writes Value to Target. Target is a Ref, Lane, Word or Load.
type Store struct {
	Target Expr
	Value  Expr
}

// If is a two-way branch.
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// For is a counted loop over [Start, End).
type For struct {
	Var    string
	Layout Layout
	Start  Expr
	End    Expr
	Body   []Stmt
}

// Return ends the thread.
type Return struct{}

func (Declare) stmt() {}
func (Store) stmt()   {}
func (If) stmt()      {}
func (For) stmt()     {}
func (Return) stmt()  {}

// Expr is a lowered expression.
type Expr interface {
	expr()
}

// Ref names a declared value.
type Ref struct {
	Name   string
	Layout Layout
}

// Lit is a constant.
type Lit struct {
	Value ir.OpLiteral
}

// BuiltinRef reads a builtin identifier. It is always a u32 scalar.
type BuiltinRef struct {
	Builtin ir.Builtin
}

// Bin is a scalar binary operation on operands of element kind Elem.
type Bin struct {
	Op   ir.BinaryOp
	Elem ir.ElementKind
	Lhs  Expr
	Rhs  Expr
}

// Convert changes the element kind of a scalar.
type Convert struct {
	From  ir.ElementKind
	To    ir.ElementKind
	Value Expr
}

// Load reads (or, as a Store target, writes) one buffer position.
type Load struct {
	Access Access
}

// Lane is one lane of a register line. Dyn selects a runtime lane; when it
// is nil the lane is K.
type Lane struct {
	Base Ref
	K    uint32
	Dyn  Expr
}

// Word is packed word K of a FormPacked value.
type Word struct {
	Base Ref
	K    uint32
}

// Unpack extracts one lane of a packed word.
type Unpack struct {
	Elem ir.ElementKind
	Word Expr
	High bool
}

// Pack combines two lanes into a packed word.
type Pack struct {
	Elem ir.ElementKind
	Lo   Expr
	Hi   Expr
}

func (Ref) expr()        {}
func (Lit) expr()        {}
func (BuiltinRef) expr() {}
func (Bin) expr()        {}
func (Convert) expr()    {}
func (Load) expr()       {}
func (Lane) expr()       {}
func (Word) expr()       {}
func (Unpack) expr()     {}
func (Pack) expr()       {}

// Access is one buffer access.
type Access struct {
	// Base is the buffer parameter name.
	Base string

	// Layout is the layout of the accessed position.
	Layout Layout

	// Index is the position, counted in units of Stride.
	Index Expr

	// Stride is the byte distance between consecutive positions.
	Stride uint32

	Mutable bool

	// Reinterpret is set when the buffer is read through a pointer to its
	// single elements; Layout is then a scalar layout.
	Reinterpret bool
}

// Offset returns the byte offset of position index.
func (a Access) Offset(index uint64) uint64 {
	return index * uint64(a.Stride)
}
