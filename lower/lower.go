// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package lower

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/packing"
)

// FallbackPolicy selects how a buffer access is lowered when the dialect has
// no native vector for the line.
type FallbackPolicy uint8

const (
	// FallbackSynthesize reads and writes whole lines through a synthetic
	// struct of elements.
	FallbackSynthesize FallbackPolicy = iota

	// FallbackDecompose reads and writes the lines one element at a time
	// through a reinterpreted element pointer.
	FallbackDecompose
)

// String returns "synthesize" or "decompose".
func (p FallbackPolicy) String() string {
	if p == FallbackDecompose {
		return "decompose"
	}
	return "synthesize"
}

// ParseFallbackPolicy parses a policy name.
func ParseFallbackPolicy(s string) (FallbackPolicy, error) {
	switch strings.ToLower(s) {
	case "synthesize", "":
		return FallbackSynthesize, nil
	case "decompose":
		return FallbackDecompose, nil
	default:
		return 0, fmt.Errorf("unknown fallback policy %q", s)
	}
}

// Options configures lowering.
type Options struct {
	// Fallback selects the UnsupportedWidth strategy.
	Fallback FallbackPolicy

	// Logger receives fallback notes. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns the default lowering options.
func DefaultOptions() Options {
	return Options{Fallback: FallbackSynthesize}
}

// lowerer holds the state of one Lower call.
type lowerer struct {
	kernel  *ir.Kernel
	emitter Emitter
	opts    Options

	namer   *namer
	structs *structRegistry
	layouts map[ir.Item]Layout
	noted   map[widthKey]bool
	diags   []Diagnostic

	names   map[ir.VarHandle]string
	items   map[ir.VarHandle]ir.Item
	sources map[ir.VarHandle]source
	lengths map[ir.VarHandle]string

	// written holds the index intermediates that have a lane written
	// through them somewhere in the kernel.
	written map[ir.VarHandle]bool

	// scopes records the handles declared in each open block.
	scopes [][]ir.VarHandle
	blocks []*[]Stmt

	counter int
	current int
}

// source is the buffer position an index intermediate was loaded from. The
// index never changes after the load.
type source struct {
	param ir.VarHandle
	index Expr
}

// Lower translates k into a Program for the dialect of e in one forward pass.
func Lower(k *ir.Kernel, e Emitter, opts Options) (*Program, error) {
	if k == nil {
		return nil, NewError(ErrInvalidKernel, "kernel is nil")
	}
	verrs, err := ir.Validate(k)
	if err != nil {
		return nil, NewError(ErrInvalidKernel, err.Error())
	}
	if len(verrs) > 0 {
		msgs := make([]string, len(verrs))
		for i := range verrs {
			msgs[i] = verrs[i].Error()
		}
		return nil, NewError(ErrInvalidKernel, strings.Join(msgs, "; "))
	}

	l := &lowerer{
		kernel:  k,
		emitter: e,
		opts:    opts,
		namer:   newNamer(e.IsReserved),
		structs: newStructRegistry(),
		layouts: make(map[ir.Item]Layout),
		noted:   make(map[widthKey]bool),
		names:   make(map[ir.VarHandle]string),
		items:   make(map[ir.VarHandle]ir.Item),
		sources: make(map[ir.VarHandle]source),
		lengths: make(map[ir.VarHandle]string),
		written: make(map[ir.VarHandle]bool),
		current: -1,
	}
	collectWritten(k.Body, l.written)
	return l.lowerKernel()
}

// collectWritten records the base of every lane write in block.
func collectWritten(block ir.Block, into map[ir.VarHandle]bool) {
	for _, inst := range block {
		switch in := inst.(type) {
		case ir.IndexAssign:
			into[in.Base] = true
		case ir.If:
			collectWritten(in.Then, into)
			collectWritten(in.Else, into)
		case ir.For:
			collectWritten(in.Body, into)
		}
	}
}

func (l *lowerer) lowerKernel() (*Program, error) {
	p := &Program{Name: l.namer.call(l.kernel.Name)}

	for slot, param := range l.kernel.Params {
		it, err := l.itemOf(param.Var)
		if err != nil {
			return nil, err
		}
		lay, err := l.layout(it)
		if err != nil {
			return nil, err
		}
		name := l.namer.call(l.kernel.Var(param.Var).Name)
		l.names[param.Var] = name
		p.Params = append(p.Params, ParamDecl{
			Name:    name,
			Layout:  lay,
			Buffer:  it.Role == ir.RoleStorage,
			Mutable: param.Mutable,
			Slot:    slot,
		})
	}
	if err := l.lengthParams(p); err != nil {
		return nil, err
	}

	var body []Stmt
	l.blocks = []*[]Stmt{&body}
	l.scopes = [][]ir.VarHandle{nil}

	u32, err := l.scalarLayout(ir.U32)
	if err != nil {
		return nil, err
	}
	seen := make(map[ir.Builtin]bool)
	for h := range l.kernel.Vars {
		v := &l.kernel.Vars[h]
		if v.Origin != ir.OriginBuiltin {
			continue
		}
		handle := ir.VarHandle(h) //nolint:gosec // G115: h indexes Vars
		name := l.namer.call(v.Name)
		l.names[handle] = name
		l.items[handle] = ir.BuiltinItem
		l.emit(Declare{Name: name, Layout: u32, Init: BuiltinRef{Builtin: v.Builtin}, Const: true})
		if !seen[v.Builtin] {
			seen[v.Builtin] = true
			p.Builtins = append(p.Builtins, v.Builtin)
		}
	}

	if err := l.lowerBlock(l.kernel.Body); err != nil {
		return nil, err
	}

	p.Body = body
	p.Structs = l.structs.all()
	p.Diagnostics = l.diags
	return p, nil
}

// lengthParams appends the hidden length of every buffer parameter.
func (l *lowerer) lengthParams(p *Program) error {
	u32, err := l.scalarLayout(ir.U32)
	if err != nil {
		return err
	}
	for i, param := range l.kernel.Params {
		if !p.Params[i].Buffer {
			continue
		}
		name := l.namer.call(p.Params[i].Name + "_length")
		l.lengths[param.Var] = name
		p.Params = append(p.Params, ParamDecl{
			Name:   name,
			Layout: u32,
			Slot:   len(p.Params),
			Length: true,
			Of:     i,
		})
	}
	return nil
}

func (l *lowerer) lowerBlock(block ir.Block) error {
	for _, inst := range block {
		l.current = l.counter
		l.counter++
		if err := l.lowerInstruction(inst); err != nil {
			return err
		}
	}
	return nil
}

//nolint:gocyclo,cyclop // Instruction dispatch requires handling all instruction kinds
func (l *lowerer) lowerInstruction(inst ir.Instruction) error {
	switch in := inst.(type) {
	case ir.Declare:
		return l.lowerDeclare(in)
	case ir.Index:
		return l.lowerIndex(in)
	case ir.IndexAssign:
		return l.lowerIndexAssign(in)
	case ir.Assign:
		val, vit, err := l.operand(in.Value)
		if err != nil {
			return err
		}
		return l.define(in.Dst, val, vit)
	case ir.Binary:
		return l.lowerBinary(in)
	case ir.Cast:
		return l.lowerCast(in)
	case ir.Len:
		return l.lowerLen(in)
	case ir.If:
		return l.lowerIf(in)
	case ir.For:
		return l.lowerFor(in)
	case ir.Terminate:
		l.emit(Return{})
		return nil
	default:
		return l.errorf(ErrInvalidKernel, "unknown instruction %T", inst)
	}
}

func (l *lowerer) lowerDeclare(in ir.Declare) error {
	if in.Init == nil {
		it, err := l.itemOf(in.Var)
		if err != nil {
			return err
		}
		lay, err := l.layout(it)
		if err != nil {
			return err
		}
		l.emit(Declare{Name: l.declare(in.Var), Layout: lay})
		return nil
	}
	val, vit, err := l.operand(in.Init)
	if err != nil {
		return err
	}
	return l.define(in.Var, val, vit)
}

// define writes val into the local dst, declaring dst on first write. A
// scalar written to a line is broadcast to every lane.
func (l *lowerer) define(dst ir.VarHandle, val Expr, vit ir.Item) error {
	dit, err := l.itemOf(dst)
	if err != nil {
		return err
	}
	lay, err := l.layout(dit)
	if err != nil {
		return err
	}
	if vit.Elem != dit.Elem {
		return l.errorf(ErrTypeMismatch, "cannot assign %s to %s %q", vit, dit, l.kernel.Var(dst).Name)
	}

	name, declared := l.names[dst]
	switch {
	case sameShape(dit, vit):
		if !declared {
			l.emit(Declare{Name: l.declare(dst), Layout: lay, Init: val})
		} else {
			l.emit(Store{Target: Ref{Name: name, Layout: lay}, Value: val})
		}

	case dit.IsLine() && !vit.IsLine():
		if !declared {
			name = l.declare(dst)
			l.emit(Declare{Name: name, Layout: lay})
		}
		base := Ref{Name: name, Layout: lay}
		for k := uint32(0); k < dit.Width; k++ {
			l.emit(Store{Target: Lane{Base: base, K: k}, Value: val})
		}

	default:
		return l.errorf(ErrTypeMismatch, "cannot assign %s to %s %q", vit, dit, l.kernel.Var(dst).Name)
	}
	return nil
}

func (l *lowerer) lowerIndex(in ir.Index) error {
	bit, err := l.itemOf(in.Base)
	if err != nil {
		return err
	}
	res, ok := ir.IndexResult(bit)
	if !ok {
		return l.errorf(ErrTypeMismatch, "cannot index %s %q", bit, l.kernel.Var(in.Base).Name)
	}
	if want := ir.TypeOfItem(res); !ir.TypesEqual(l.kernel.Var(in.Dst).Type, want) {
		return l.errorf(ErrTypeMismatch, "%q is declared %s but indexing %q yields %s",
			l.kernel.Var(in.Dst).Name, l.kernel.Var(in.Dst).Type, l.kernel.Var(in.Base).Name, want)
	}
	l.items[in.Dst] = res

	if bit.Role == ir.RoleStorage {
		idx, err := l.position(in.Pos)
		if err != nil {
			return err
		}
		name := l.declare(in.Dst)
		if res.IsLine() && l.written[in.Dst] {
			// A local index may be reassigned before the write back.
			if idx, err = l.pinIndex(name, in.Pos, idx); err != nil {
				return err
			}
		}
		if err := l.loadStorage(name, in.Base, bit, res, idx); err != nil {
			return err
		}
		if res.IsLine() {
			l.sources[in.Dst] = source{param: in.Base, index: idx}
		}
		return nil
	}

	lane, err := l.lane(in.Base, bit, in.Pos)
	if err != nil {
		return err
	}
	lay, err := l.layout(res)
	if err != nil {
		return err
	}
	l.emit(Declare{Name: l.declare(in.Dst), Layout: lay, Init: lane, Const: true})
	return nil
}

func (l *lowerer) lowerIndexAssign(in ir.IndexAssign) error {
	bit, err := l.itemOf(in.Base)
	if err != nil {
		return err
	}
	val, vit, err := l.operand(in.Value)
	if err != nil {
		return err
	}

	switch {
	case bit.Role == ir.RoleStorage:
		idx, err := l.position(in.Pos)
		if err != nil {
			return err
		}
		return l.storeStorage(in.Base, bit, idx, val, vit)

	case bit.IsLine():
		if vit.IsLine() || vit.Elem != bit.Elem {
			return l.errorf(ErrTypeMismatch, "cannot write %s into a lane of %s %q", vit, bit, l.kernel.Var(in.Base).Name)
		}
		if src, ok := l.sources[in.Base]; ok {
			return l.readModifyWrite(in.Base, src, bit, in.Pos, val)
		}
		lane, err := l.lane(in.Base, bit, in.Pos)
		if err != nil {
			return err
		}
		l.emit(Store{Target: lane, Value: val})
		return nil

	default:
		return l.errorf(ErrTypeMismatch, "cannot index %s %q", bit, l.kernel.Var(in.Base).Name)
	}
}

// readModifyWrite writes one lane of a line loaded from a buffer: the line is
// reloaded into a fresh value, the lane inserted, and the whole line stored
// back to the position the intermediate was loaded from. The intermediate
// itself keeps the value it was loaded with.
func (l *lowerer) readModifyWrite(h ir.VarHandle, src source, it ir.Item, pos ir.Position, val Expr) error {
	pit, err := l.itemOf(src.param)
	if err != nil {
		return err
	}

	lay, err := l.layout(it)
	if err != nil {
		return err
	}
	tmp := l.namer.call(l.names[h] + "_rmw")
	if err := l.loadStorage(tmp, src.param, pit, it, src.index); err != nil {
		return err
	}
	// loadStorage may declare tmp const; a read-modify-write needs it mutable.
	l.makeMutable(tmp)

	base := Ref{Name: tmp, Layout: lay}
	lane, err := l.laneOf(base, it, pos)
	if err != nil {
		return err
	}
	l.emit(Store{Target: lane, Value: val})
	return l.storeStorage(src.param, pit, src.index, base, it)
}

func (l *lowerer) lowerBinary(in ir.Binary) error {
	lhs, lit, err := l.operand(in.Lhs)
	if err != nil {
		return err
	}
	rhs, rit, err := l.operand(in.Rhs)
	if err != nil {
		return err
	}
	if lit.Elem != rit.Elem {
		return l.errorf(ErrTypeMismatch, "%s: element mismatch %s vs %s", in.Op, lit.Elem, rit.Elem)
	}
	if err := l.checkOp(in.Op, lit.Elem); err != nil {
		return err
	}

	res := ir.Item{Elem: lit.Elem, Width: 1, Shape: ir.ShapeScalar, Role: ir.RoleRegister}
	if in.Op.IsComparison() {
		res.Elem = ir.Bool
	}
	switch {
	case lit.IsLine() && rit.IsLine():
		if lit.Width != rit.Width {
			return l.errorf(ErrTypeMismatch, "%s: width mismatch %d vs %d", in.Op, lit.Width, rit.Width)
		}
		res.Width, res.Shape = lit.Width, ir.ShapeLine
	case lit.IsLine():
		res.Width, res.Shape = lit.Width, ir.ShapeLine
	case rit.IsLine():
		res.Width, res.Shape = rit.Width, ir.ShapeLine
	}
	if err := l.checkResult(in.Dst, res); err != nil {
		return err
	}

	if !res.IsLine() {
		return l.define(in.Dst, Bin{Op: in.Op, Elem: lit.Elem, Lhs: lhs, Rhs: rhs}, res)
	}
	return l.perLane(in.Dst, res, func(k uint32) Expr {
		return Bin{Op: in.Op, Elem: lit.Elem, Lhs: laneAt(lhs, lit, k), Rhs: laneAt(rhs, rit, k)}
	})
}

func (l *lowerer) lowerCast(in ir.Cast) error {
	val, vit, err := l.operand(in.Value)
	if err != nil {
		return err
	}
	dit, err := l.itemOf(in.Dst)
	if err != nil {
		return err
	}
	res := vit
	res.Elem = dit.Elem
	res.Role = ir.RoleRegister
	res.Packed = false
	if err := l.checkResult(in.Dst, res); err != nil {
		return err
	}

	if !res.IsLine() {
		return l.define(in.Dst, l.convert(vit.Elem, res.Elem, val), res)
	}
	return l.perLane(in.Dst, res, func(k uint32) Expr {
		return l.convert(vit.Elem, res.Elem, laneAt(val, vit, k))
	})
}

func (l *lowerer) lowerLen(in ir.Len) error {
	name, ok := l.lengths[in.Buf]
	if !ok {
		return l.errorf(ErrTypeMismatch, "len of %q: not a buffer", l.kernel.Var(in.Buf).Name)
	}
	u32, err := l.scalarLayout(ir.U32)
	if err != nil {
		return err
	}
	if err := l.checkResult(in.Dst, u32.Item); err != nil {
		return err
	}
	return l.define(in.Dst, Ref{Name: name, Layout: u32}, u32.Item)
}

func (l *lowerer) convert(from, to ir.ElementKind, val Expr) Expr {
	if from == to {
		return val
	}
	return Convert{From: from, To: to, Value: val}
}

// perLane writes lane k of the line dst from value(k), declaring dst first
// if needed.
func (l *lowerer) perLane(dst ir.VarHandle, res ir.Item, value func(k uint32) Expr) error {
	lay, err := l.layout(res)
	if err != nil {
		return err
	}
	name, declared := l.names[dst]
	if !declared {
		name = l.declare(dst)
		l.emit(Declare{Name: name, Layout: lay})
	}
	base := Ref{Name: name, Layout: lay}
	for k := uint32(0); k < res.Width; k++ {
		l.emit(Store{Target: Lane{Base: base, K: k}, Value: value(k)})
	}
	return nil
}

func (l *lowerer) checkResult(dst ir.VarHandle, res ir.Item) error {
	if want := ir.TypeOfItem(res); !ir.TypesEqual(l.kernel.Var(dst).Type, want) {
		return l.errorf(ErrTypeMismatch, "%q is declared %s but the result is %s",
			l.kernel.Var(dst).Name, l.kernel.Var(dst).Type, want)
	}
	return nil
}

func (l *lowerer) checkOp(op ir.BinaryOp, e ir.ElementKind) error {
	switch {
	case e == ir.Bool:
		if op != ir.OpAnd && op != ir.OpOr && op != ir.OpEq && op != ir.OpNe {
			return l.errorf(ErrTypeMismatch, "%s is not defined on bool", op)
		}
	case e.IsFloat():
		if op == ir.OpAnd || op == ir.OpOr {
			return l.errorf(ErrTypeMismatch, "%s is not defined on %s", op, e)
		}
	}
	return nil
}

func (l *lowerer) lowerIf(in ir.If) error {
	cond, cit, err := l.operand(in.Cond)
	if err != nil {
		return err
	}
	if cit.IsLine() || cit.Elem != ir.Bool {
		return l.errorf(ErrTypeMismatch, "if condition must be a bool scalar, got %s", cit)
	}
	then, err := l.nested(func() error { return l.lowerBlock(in.Then) })
	if err != nil {
		return err
	}
	var otherwise []Stmt
	if len(in.Else) > 0 {
		otherwise, err = l.nested(func() error { return l.lowerBlock(in.Else) })
		if err != nil {
			return err
		}
	}
	l.emit(If{Cond: cond, Then: then, Else: otherwise})
	return nil
}

func (l *lowerer) lowerFor(in ir.For) error {
	it, err := l.itemOf(in.Var)
	if err != nil {
		return err
	}
	if it.IsLine() || it.Elem.IsFloat() || it.Elem == ir.Bool {
		return l.errorf(ErrTypeMismatch, "loop variable %q must be an integer scalar, got %s", l.kernel.Var(in.Var).Name, it)
	}
	start, sit, err := l.operand(in.Start)
	if err != nil {
		return err
	}
	end, eit, err := l.operand(in.End)
	if err != nil {
		return err
	}
	if sit.IsLine() || eit.IsLine() || sit.Elem != it.Elem || eit.Elem != it.Elem {
		return l.errorf(ErrTypeMismatch, "loop bounds %s..%s do not match %s", sit, eit, it)
	}
	lay, err := l.layout(it)
	if err != nil {
		return err
	}

	var name string
	body, err := l.nested(func() error {
		name = l.declare(in.Var)
		return l.lowerBlock(in.Body)
	})
	if err != nil {
		return err
	}
	l.emit(For{Var: name, Layout: lay, Start: start, End: end, Body: body})
	return nil
}

// nested lowers a block into a fresh statement list. Names declared inside
// go out of scope when it returns.
func (l *lowerer) nested(fill func() error) ([]Stmt, error) {
	var stmts []Stmt
	l.blocks = append(l.blocks, &stmts)
	l.scopes = append(l.scopes, nil)

	err := fill()

	for _, h := range l.scopes[len(l.scopes)-1] {
		delete(l.names, h)
		delete(l.sources, h)
	}
	l.scopes = l.scopes[:len(l.scopes)-1]
	l.blocks = l.blocks[:len(l.blocks)-1]
	return stmts, err
}

func (l *lowerer) emit(s Stmt) {
	cur := l.blocks[len(l.blocks)-1]
	*cur = append(*cur, s)
}

// makeMutable clears Const on the most recent declaration of name.
func (l *lowerer) makeMutable(name string) {
	cur := *l.blocks[len(l.blocks)-1]
	for i := len(cur) - 1; i >= 0; i-- {
		if d, ok := cur[i].(Declare); ok && d.Name == name {
			d.Const = false
			cur[i] = d
			return
		}
	}
}

// declare names h in the current scope.
func (l *lowerer) declare(h ir.VarHandle) string {
	name := l.namer.call(l.kernel.Var(h).Name)
	l.names[h] = name
	l.scopes[len(l.scopes)-1] = append(l.scopes[len(l.scopes)-1], h)
	return name
}

// itemOf returns the descriptor of variable h.
func (l *lowerer) itemOf(h ir.VarHandle) (ir.Item, error) {
	if it, ok := l.items[h]; ok {
		return it, nil
	}
	v := l.kernel.Var(h)

	var ctx ir.Context
	switch v.Origin {
	case ir.OriginBuiltin:
		l.items[h] = ir.BuiltinItem
		return ir.BuiltinItem, nil
	case ir.OriginParam:
		ctx = ir.ContextParam
	case ir.OriginLocal:
		ctx = ir.ContextLocal
	default:
		return ir.Item{}, l.errorf(ErrInvalidKernel, "%q is used before it is produced", v.Name)
	}

	it, err := ir.Derive(v.Type, ctx, l.packs)
	if err != nil {
		return ir.Item{}, l.errorf(ErrTypeMismatch, "%q: %v", v.Name, err)
	}
	if v.Item != nil {
		if it, err = l.attached(v, it); err != nil {
			return ir.Item{}, err
		}
	}
	l.items[h] = it
	return it, nil
}

// attached checks a front-end descriptor against the derived one and
// returns the descriptor to use.
func (l *lowerer) attached(v *ir.Variable, derived ir.Item) (ir.Item, error) {
	a := *v.Item
	if a.Packed {
		if a.Role != ir.RoleStorage {
			return ir.Item{}, l.errorf(ErrPackingMismatch, "%q: register values are never packed", v.Name)
		}
		if err := packing.Check(a.Elem); err != nil {
			return ir.Item{}, l.errorf(ErrPackingMismatch, "%q: %v", v.Name, err)
		}
		if !packing.Eligible(a.Elem, a.Width) {
			return ir.Item{}, l.errorf(ErrPackingMismatch, "%q: width %d is not a multiple of %d", v.Name, a.Width, ir.PackFactor)
		}
	}
	cmp := a
	cmp.Packed = derived.Packed
	if cmp != derived {
		return ir.Item{}, l.errorf(ErrTypeMismatch, "%q: attached descriptor %s does not match declared type %s", v.Name, a, v.Type)
	}
	if a.Packed && !l.packs(a.Elem) {
		a.Packed = false
	}
	return a, nil
}

// operand lowers an instruction input. Buffers are not values.
func (l *lowerer) operand(op ir.Operand) (Expr, ir.Item, error) {
	switch o := op.(type) {
	case ir.OpLiteral:
		if _, ok := l.emitter.ScalarType(o.Elem); !ok {
			return nil, ir.Item{}, l.errorf(ErrUnsupportedElement, "%s has no %s spelling", o.Elem, l.emitter.Name())
		}
		return Lit{Value: o}, ir.Item{Elem: o.Elem, Width: 1, Shape: ir.ShapeScalar, Role: ir.RoleRegister}, nil

	case ir.OpVar:
		it, err := l.itemOf(o.Var)
		if err != nil {
			return nil, ir.Item{}, err
		}
		if it.Role == ir.RoleStorage {
			return nil, ir.Item{}, l.errorf(ErrTypeMismatch, "buffer %q cannot be used as a value", l.kernel.Var(o.Var).Name)
		}
		name, ok := l.names[o.Var]
		if !ok {
			return nil, ir.Item{}, l.errorf(ErrInvalidKernel, "%q is not in scope", l.kernel.Var(o.Var).Name)
		}
		lay, err := l.layout(it)
		if err != nil {
			return nil, ir.Item{}, err
		}
		return Ref{Name: name, Layout: lay}, it, nil

	default:
		return nil, ir.Item{}, l.errorf(ErrInvalidKernel, "unknown operand %T", op)
	}
}

// position lowers an index position.
func (l *lowerer) position(pos ir.Position) (Expr, error) {
	switch p := pos.(type) {
	case ir.ConstIndex:
		return Lit{Value: ir.LitU32(uint32(p))}, nil
	case ir.DynIndex:
		e, it, err := l.operand(p.Value)
		if err != nil {
			return nil, err
		}
		if it.IsLine() || !(it.Elem.IsSigned() || it.Elem.IsUnsigned()) {
			return nil, l.errorf(ErrTypeMismatch, "index must be an integer scalar, got %s", it)
		}
		return e, nil
	default:
		return nil, l.errorf(ErrInvalidKernel, "unknown position %T", pos)
	}
}

// pinIndex copies a position read from a local variable into a const named
// after the intermediate, so later writes to the local do not move it.
// Builtins, parameters and index intermediates never change and are
// returned as they are.
func (l *lowerer) pinIndex(name string, pos ir.Position, idx Expr) (Expr, error) {
	dyn, ok := pos.(ir.DynIndex)
	if !ok {
		return idx, nil
	}
	v, ok := dyn.Value.(ir.OpVar)
	if !ok || l.kernel.Var(v.Var).Origin != ir.OriginLocal {
		return idx, nil
	}
	ref := idx.(Ref)
	pinned := Ref{Name: l.namer.call(name + "_index"), Layout: ref.Layout}
	l.emit(Declare{Name: pinned.Name, Layout: ref.Layout, Init: ref, Const: true})
	return pinned, nil
}

// lane reads one lane of the register line h.
func (l *lowerer) lane(h ir.VarHandle, it ir.Item, pos ir.Position) (Expr, error) {
	lay, err := l.layout(it)
	if err != nil {
		return nil, err
	}
	return l.laneOf(Ref{Name: l.names[h], Layout: lay}, it, pos)
}

func (l *lowerer) laneOf(base Ref, it ir.Item, pos ir.Position) (Expr, error) {
	switch p := pos.(type) {
	case ir.ConstIndex:
		if uint32(p) >= it.Width {
			return nil, l.errorf(ErrInvalidConstantIndex, "lane %d of %s with width %d", uint32(p), base.Name, it.Width)
		}
		return Lane{Base: base, K: uint32(p)}, nil
	default:
		idx, err := l.position(pos)
		if err != nil {
			return nil, err
		}
		return Lane{Base: base, Dyn: idx}, nil
	}
}

// laneAt returns lane k of a line value, or the value itself for a scalar.
func laneAt(e Expr, it ir.Item, k uint32) Expr {
	if !it.IsLine() {
		return e
	}
	return Lane{Base: e.(Ref), K: k}
}

func sameShape(a, b ir.Item) bool {
	return a.Elem == b.Elem && a.Shape == b.Shape && a.Width == b.Width
}

func (l *lowerer) errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Instruction: l.current}
}
