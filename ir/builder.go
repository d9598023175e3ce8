// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package ir

import (
	"errors"
	"fmt"
	"strconv"
)

// Builder assembles a Kernel instruction by instruction, inferring the types
// of index intermediates and binary results. The first error is kept and
// returned by Finish; later calls become no-ops.
type Builder struct {
	kernel Kernel
	blocks []*Block
	names  map[string]int
	err    error
}

// NewBuilder starts a kernel named name.
func NewBuilder(name string) *Builder {
	b := &Builder{
		kernel: Kernel{Name: name},
		names:  make(map[string]int),
	}
	b.blocks = []*Block{&b.kernel.Body}
	return b
}

// Ref wraps a variable handle as an operand.
func Ref(h VarHandle) Operand { return OpVar{Var: h} }

// At wraps an operand as a runtime index position.
func At(op Operand) Position { return DynIndex{Value: op} }

// Param adds a kernel parameter.
func (b *Builder) Param(name string, t Type, mutable bool) VarHandle {
	h := b.addVar(name, t, OriginParam)
	b.kernel.Params = append(b.kernel.Params, Param{Var: h, Mutable: mutable})
	return h
}

// Builtin returns the variable bound to builtin bi, creating it on first use.
func (b *Builder) Builtin(bi Builtin) VarHandle {
	for i := range b.kernel.Vars {
		v := &b.kernel.Vars[i]
		if v.Origin == OriginBuiltin && v.Builtin == bi {
			return VarHandle(i) //nolint:gosec // G115: i indexes Vars
		}
	}
	h := b.addVar(bi.String(), ScalarOf(U32), OriginBuiltin)
	b.kernel.Vars[h].Builtin = bi
	return h
}

// Local declares a local variable. init may be nil.
func (b *Builder) Local(name string, t Type, init Operand) VarHandle {
	h := b.addVar(name, t, OriginLocal)
	b.emit(Declare{Var: h, Init: init})
	return h
}

// Index reads base at pos into a fresh intermediate and returns it.
func (b *Builder) Index(base VarHandle, pos Position) VarHandle {
	if b.err != nil {
		return 0
	}
	bt, ok := b.varType(base)
	if !ok {
		return 0
	}
	t, err := IndexedType(bt)
	if err != nil {
		b.fail(fmt.Errorf("index %s: %w", b.kernel.Vars[base].Name, err))
		return 0
	}
	h := b.addVar(b.kernel.Vars[base].Name+"_at", t, OriginIndex)
	b.emit(Index{Dst: h, Base: base, Pos: pos})
	return h
}

// IndexAssign writes value into base at pos.
func (b *Builder) IndexAssign(base VarHandle, pos Position, value Operand) {
	b.emit(IndexAssign{Base: base, Pos: pos, Value: value})
}

// Assign overwrites a local.
func (b *Builder) Assign(dst VarHandle, value Operand) {
	b.emit(Assign{Dst: dst, Value: value})
}

// Binary computes lhs op rhs into a fresh local and returns it.
func (b *Builder) Binary(op BinaryOp, lhs, rhs Operand) VarHandle {
	if b.err != nil {
		return 0
	}
	lt, lok := b.operandType(lhs)
	rt, rok := b.operandType(rhs)
	if !lok || !rok {
		return 0
	}
	t, err := BinaryType(op, lt, rt)
	if err != nil {
		b.fail(err)
		return 0
	}
	h := b.addVar(op.String(), t, OriginLocal)
	b.emit(Binary{Dst: h, Op: op, Lhs: lhs, Rhs: rhs})
	return h
}

// BinaryInto computes lhs op rhs into an existing local.
func (b *Builder) BinaryInto(dst VarHandle, op BinaryOp, lhs, rhs Operand) {
	b.emit(Binary{Dst: dst, Op: op, Lhs: lhs, Rhs: rhs})
}

// Cast converts value to element kind e, keeping its shape.
func (b *Builder) Cast(e ElementKind, value Operand) VarHandle {
	if b.err != nil {
		return 0
	}
	vt, ok := b.operandType(value)
	if !ok {
		return 0
	}
	var t Type = Scalar{Elem: e}
	if l, isLine := vt.(Line); isLine {
		t = Line{Elem: e, Width: l.Width}
	}
	h := b.addVar("cast_"+e.String(), t, OriginLocal)
	b.emit(Cast{Dst: h, Value: value})
	return h
}

// Len reads the length of the buffer parameter buf into a fresh u32 local.
func (b *Builder) Len(buf VarHandle) VarHandle {
	if b.err != nil {
		return 0
	}
	bt, ok := b.varType(buf)
	if !ok {
		return 0
	}
	if _, isArray := bt.(Array); !isArray {
		b.fail(fmt.Errorf("len of %s: not a buffer", bt))
		return 0
	}
	h := b.addVar(b.kernel.Vars[buf].Name+"_len", ScalarOf(U32), OriginLocal)
	b.emit(Len{Dst: h, Buf: buf})
	return h
}

// If adds a conditional. otherwise may be nil.
func (b *Builder) If(cond Operand, then, otherwise func(*Builder)) {
	in := If{Cond: cond}
	in.Then = b.nested(then)
	if otherwise != nil {
		in.Else = b.nested(otherwise)
	}
	b.emit(in)
}

// For adds a counted loop over [start, end). The counter named name takes the
// scalar type of start.
func (b *Builder) For(name string, start, end Operand, body func(b *Builder, i VarHandle)) {
	var t Type = ScalarOf(U32)
	if st, ok := b.operandType(start); ok {
		if sc, isScalar := st.(Scalar); isScalar {
			t = sc
		}
	}
	i := b.addVar(name, t, OriginLocal)
	in := For{Var: i, Start: start, End: end}
	in.Body = b.nested(func(b *Builder) { body(b, i) })
	b.emit(in)
}

// Terminate ends the thread.
func (b *Builder) Terminate() {
	b.emit(Terminate{})
}

// Finish returns the assembled kernel after validating it.
func (b *Builder) Finish() (*Kernel, error) {
	if b.err != nil {
		return nil, b.err
	}
	k := b.kernel
	verrs, err := Validate(&k)
	if err != nil {
		return nil, err
	}
	if len(verrs) > 0 {
		errs := make([]error, len(verrs))
		for i := range verrs {
			errs[i] = verrs[i]
		}
		return nil, errors.Join(errs...)
	}
	return &k, nil
}

func (b *Builder) nested(fill func(*Builder)) Block {
	var blk Block
	b.blocks = append(b.blocks, &blk)
	fill(b)
	b.blocks = b.blocks[:len(b.blocks)-1]
	return blk
}

func (b *Builder) emit(in Instruction) {
	if b.err != nil {
		return
	}
	cur := b.blocks[len(b.blocks)-1]
	*cur = append(*cur, in)
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

func (b *Builder) addVar(base string, t Type, origin Origin) VarHandle {
	h := VarHandle(len(b.kernel.Vars)) //nolint:gosec // G115: variable count fits in uint32
	b.kernel.Vars = append(b.kernel.Vars, Variable{Name: b.unique(base), Type: t, Origin: origin})
	return h
}

// unique returns base, or base_N when base is taken.
func (b *Builder) unique(base string) string {
	n, taken := b.names[base]
	if !taken {
		b.names[base] = 0
		return base
	}
	for {
		n++
		name := base + "_" + strconv.Itoa(n)
		if _, clash := b.names[name]; !clash {
			b.names[base] = n
			b.names[name] = 0
			return name
		}
	}
}

func (b *Builder) varType(h VarHandle) (Type, bool) {
	if int(h) >= len(b.kernel.Vars) {
		b.fail(fmt.Errorf("invalid variable handle %d", h))
		return nil, false
	}
	return b.kernel.Vars[h].Type, true
}

func (b *Builder) operandType(op Operand) (Type, bool) {
	switch o := op.(type) {
	case OpVar:
		return b.varType(o.Var)
	case OpLiteral:
		return Scalar{Elem: o.Elem}, true
	default:
		b.fail(fmt.Errorf("unsupported operand %T", op))
		return nil, false
	}
}

// IndexedType returns the type of base[i].
func IndexedType(base Type) (Type, error) {
	switch t := base.(type) {
	case Array:
		if t.Of == nil {
			return nil, ErrNotIndexable
		}
		return t.Of, nil
	case Line:
		return Scalar{Elem: t.Elem}, nil
	default:
		return nil, fmt.Errorf("%w: %v", ErrNotIndexable, base)
	}
}

// BinaryType returns the result type of lhs op rhs. Element kinds must match;
// a scalar operand broadcasts over a line operand.
func BinaryType(op BinaryOp, lhs, rhs Type) (Type, error) {
	le, lok := ElemOf(lhs)
	re, rok := ElemOf(rhs)
	if !lok || !rok {
		return nil, fmt.Errorf("%s: operands must be scalars or lines", op)
	}
	if _, isArray := lhs.(Array); isArray {
		return nil, fmt.Errorf("%s: buffer operand", op)
	}
	if _, isArray := rhs.(Array); isArray {
		return nil, fmt.Errorf("%s: buffer operand", op)
	}
	if le != re {
		return nil, fmt.Errorf("%s: element mismatch %s vs %s", op, le, re)
	}

	var width uint32
	ll, lline := lhs.(Line)
	rl, rline := rhs.(Line)
	switch {
	case lline && rline:
		if ll.Width != rl.Width {
			return nil, fmt.Errorf("%s: width mismatch %d vs %d", op, ll.Width, rl.Width)
		}
		width = ll.Width
	case lline:
		width = ll.Width
	case rline:
		width = rl.Width
	}

	elem := le
	if op.IsComparison() {
		elem = Bool
	}
	if width == 0 {
		return Scalar{Elem: elem}, nil
	}
	return Line{Elem: elem, Width: width}, nil
}
