// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package sim

import (
	binenc "encoding/binary"
	"errors"
	"fmt"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/lower"
)

// Launch is the shape of a kernel launch: CubeCount cubes of CubeDim units.
type Launch struct {
	CubeCount [3]uint32
	CubeDim   [3]uint32
}

// Linear returns a launch of n units in cubes of dim units along x.
func Linear(n, dim uint32) Launch {
	if dim == 0 {
		dim = 1
	}
	return Launch{
		CubeCount: [3]uint32{(n + dim - 1) / dim, 1, 1},
		CubeDim:   [3]uint32{dim, 1, 1},
	}
}

// Arg binds one kernel parameter: a byte buffer for buffer parameters, or
// the lane bit patterns of a by-value parameter.
type Arg struct {
	Buffer []byte
	Lanes  []uint64
}

// Buffer binds a buffer parameter. The kernel reads and writes b in place.
func Buffer(b []byte) Arg { return Arg{Buffer: b} }

// Scalar binds a by-value scalar parameter.
func Scalar(lit ir.OpLiteral) Arg { return Arg{Lanes: []uint64{lit.Bits}} }

// Error reports a fault in one unit of a launch.
type Error struct {
	Unit [3]uint32
	Cube [3]uint32
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("unit %v of cube %v: %v", e.Unit, e.Cube, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error { return e.Err }

// ErrOutOfBounds is returned when an access falls outside its buffer.
var ErrOutOfBounds = errors.New("buffer access out of bounds")

// Run executes p once for every unit of launch, one unit at a time, in
// cube-major order. args bind the declared parameters; the hidden buffer
// lengths are taken from the bound buffers.
func Run(p *lower.Program, launch Launch, args ...Arg) error {
	declared := 0
	for _, param := range p.Params {
		if !param.Length {
			declared++
		}
	}
	if len(args) != declared {
		return fmt.Errorf("kernel %s takes %d arguments, got %d", p.Name, declared, len(args))
	}
	m := &machine{
		prog:    p,
		buffers: make(map[string][]byte, len(args)),
		values:  make(map[string]value),
		dim:     launch.CubeDim,
	}
	for i, param := range p.Params {
		switch {
		case param.Length:
			buf := p.Params[param.Of]
			n := uint64(len(m.buffers[buf.Name])) / uint64(buf.Layout.Item.Bytes())
			m.values[param.Name] = scalar(ir.U32, n)
			continue
		case param.Buffer:
			m.buffers[param.Name] = args[i].Buffer
			continue
		}
		want := laneCount(param.Layout)
		if len(args[i].Lanes) != want {
			return fmt.Errorf("parameter %s takes %d lanes, got %d", param.Name, want, len(args[i].Lanes))
		}
		v := value{elem: param.Layout.Item.Elem, lanes: make([]uint64, want)}
		for k, bits := range args[i].Lanes {
			v.lanes[k] = mask(v.elem, bits)
		}
		m.values[param.Name] = v
	}

	for cz := uint32(0); cz < launch.CubeCount[2]; cz++ {
		for cy := uint32(0); cy < launch.CubeCount[1]; cy++ {
			for cx := uint32(0); cx < launch.CubeCount[0]; cx++ {
				for uz := uint32(0); uz < launch.CubeDim[2]; uz++ {
					for uy := uint32(0); uy < launch.CubeDim[1]; uy++ {
						for ux := uint32(0); ux < launch.CubeDim[0]; ux++ {
							m.cube = [3]uint32{cx, cy, cz}
							m.unit = [3]uint32{ux, uy, uz}
							if err := m.runUnit(); err != nil {
								return &Error{Unit: m.unit, Cube: m.cube, Err: err}
							}
						}
					}
				}
			}
		}
	}
	return nil
}

type machine struct {
	prog    *lower.Program
	buffers map[string][]byte
	values  map[string]value

	// env holds the locals of the running unit.
	env map[string]value

	unit, cube, dim [3]uint32
}

func (m *machine) runUnit() error {
	m.env = make(map[string]value, len(m.values)+16)
	for name, v := range m.values {
		m.env[name] = v.clone()
	}
	_, err := m.block(m.prog.Body)
	return err
}

// block runs stmts and reports whether a Return was reached.
func (m *machine) block(stmts []lower.Stmt) (bool, error) {
	for _, s := range stmts {
		done, err := m.stmt(s)
		if err != nil || done {
			return done, err
		}
	}
	return false, nil
}

//nolint:gocyclo,cyclop // statement dispatch requires handling all statement kinds
func (m *machine) stmt(s lower.Stmt) (bool, error) {
	switch st := s.(type) {
	case lower.Declare:
		if st.Init == nil {
			m.env[st.Name] = value{elem: st.Layout.Item.Elem, lanes: make([]uint64, laneCount(st.Layout))}
			return false, nil
		}
		v, err := m.eval(st.Init)
		if err != nil {
			return false, err
		}
		if len(v.lanes) != laneCount(st.Layout) {
			return false, fmt.Errorf("%s: %d lanes for a %s value", st.Name, len(v.lanes), st.Layout.Type)
		}
		m.env[st.Name] = v
		return false, nil

	case lower.Store:
		v, err := m.eval(st.Value)
		if err != nil {
			return false, err
		}
		return false, m.store(st.Target, v)

	case lower.If:
		c, err := m.eval(st.Cond)
		if err != nil {
			return false, err
		}
		if c.lanes[0] != 0 {
			return m.block(st.Then)
		}
		return m.block(st.Else)

	case lower.For:
		start, err := m.eval(st.Start)
		if err != nil {
			return false, err
		}
		e := st.Layout.Item.Elem
		m.env[st.Var] = start
		for {
			end, err := m.eval(st.End)
			if err != nil {
				return false, err
			}
			cur := m.env[st.Var]
			less, err := binary(ir.OpLt, e, cur.lanes[0], end.lanes[0])
			if err != nil {
				return false, err
			}
			if less == 0 {
				return false, nil
			}
			if done, err := m.block(st.Body); err != nil || done {
				return done, err
			}
			cur = m.env[st.Var]
			next, err := binary(ir.OpAdd, e, cur.lanes[0], 1)
			if err != nil {
				return false, err
			}
			m.env[st.Var] = scalar(e, next)
		}

	case lower.Return:
		return true, nil

	default:
		return false, fmt.Errorf("unknown statement %T", s)
	}
}

func (m *machine) store(target lower.Expr, v value) error {
	switch t := target.(type) {
	case lower.Ref:
		m.env[t.Name] = v.clone()
		return nil

	case lower.Lane:
		base, ok := m.env[t.Base.Name]
		if !ok {
			return fmt.Errorf("%s is not declared", t.Base.Name)
		}
		k, err := m.laneIndex(t, len(base.lanes))
		if err != nil {
			return err
		}
		base.lanes[k] = v.lanes[0]
		return nil

	case lower.Word:
		base, ok := m.env[t.Base.Name]
		if !ok {
			return fmt.Errorf("%s is not declared", t.Base.Name)
		}
		lo := int(t.K) * ir.PackFactor
		if lo+1 >= len(base.lanes) || len(v.lanes) != ir.PackFactor {
			return fmt.Errorf("word %d of %s is out of range", t.K, t.Base.Name)
		}
		copy(base.lanes[lo:lo+ir.PackFactor], v.lanes)
		return nil

	case lower.Load:
		return m.write(t.Access, v)

	default:
		return fmt.Errorf("cannot store to %T", target)
	}
}

//nolint:gocyclo,cyclop // expression dispatch requires handling all expression kinds
func (m *machine) eval(e lower.Expr) (value, error) {
	switch x := e.(type) {
	case lower.Ref:
		v, ok := m.env[x.Name]
		if !ok {
			return value{}, fmt.Errorf("%s is not declared", x.Name)
		}
		return v.clone(), nil

	case lower.Lit:
		return scalar(x.Value.Elem, x.Value.Bits), nil

	case lower.BuiltinRef:
		return scalar(ir.U32, uint64(m.builtin(x.Builtin))), nil

	case lower.Bin:
		lhs, err := m.eval(x.Lhs)
		if err != nil {
			return value{}, err
		}
		rhs, err := m.eval(x.Rhs)
		if err != nil {
			return value{}, err
		}
		r, err := binary(x.Op, x.Elem, lhs.lanes[0], rhs.lanes[0])
		if err != nil {
			return value{}, err
		}
		elem := x.Elem
		if x.Op.IsComparison() {
			elem = ir.Bool
		}
		return scalar(elem, r), nil

	case lower.Convert:
		v, err := m.eval(x.Value)
		if err != nil {
			return value{}, err
		}
		return scalar(x.To, convert(x.From, x.To, v.lanes[0])), nil

	case lower.Load:
		return m.read(x.Access)

	case lower.Lane:
		base, ok := m.env[x.Base.Name]
		if !ok {
			return value{}, fmt.Errorf("%s is not declared", x.Base.Name)
		}
		k, err := m.laneIndex(x, len(base.lanes))
		if err != nil {
			return value{}, err
		}
		return scalar(base.elem, base.lanes[k]), nil

	case lower.Word:
		base, ok := m.env[x.Base.Name]
		if !ok {
			return value{}, fmt.Errorf("%s is not declared", x.Base.Name)
		}
		lo := int(x.K) * ir.PackFactor
		if lo+1 >= len(base.lanes) {
			return value{}, fmt.Errorf("word %d of %s is out of range", x.K, x.Base.Name)
		}
		return value{elem: base.elem, lanes: append([]uint64(nil), base.lanes[lo:lo+ir.PackFactor]...)}, nil

	case lower.Unpack:
		w, err := m.eval(x.Word)
		if err != nil {
			return value{}, err
		}
		if x.High {
			return scalar(x.Elem, w.lanes[1]), nil
		}
		return scalar(x.Elem, w.lanes[0]), nil

	case lower.Pack:
		lo, err := m.eval(x.Lo)
		if err != nil {
			return value{}, err
		}
		hi, err := m.eval(x.Hi)
		if err != nil {
			return value{}, err
		}
		return value{elem: x.Elem, lanes: []uint64{lo.lanes[0], hi.lanes[0]}}, nil

	default:
		return value{}, fmt.Errorf("unknown expression %T", e)
	}
}

func (m *machine) laneIndex(l lower.Lane, n int) (int, error) {
	k := int(l.K)
	if l.Dyn != nil {
		idx, err := m.eval(l.Dyn)
		if err != nil {
			return 0, err
		}
		k = int(idx.lanes[0])
	}
	if k < 0 || k >= n {
		return 0, fmt.Errorf("lane %d of %s is out of range", k, l.Base.Name)
	}
	return k, nil
}

func (m *machine) builtin(b ir.Builtin) uint32 {
	switch b {
	case ir.UnitPos:
		return (m.unit[2]*m.dim[1]+m.unit[1])*m.dim[0] + m.unit[0]
	case ir.UnitPosX:
		return m.unit[0]
	case ir.UnitPosY:
		return m.unit[1]
	case ir.UnitPosZ:
		return m.unit[2]
	case ir.CubePosX:
		return m.cube[0]
	case ir.CubePosY:
		return m.cube[1]
	case ir.CubePosZ:
		return m.cube[2]
	case ir.CubeDimX:
		return m.dim[0]
	case ir.CubeDimY:
		return m.dim[1]
	case ir.CubeDimZ:
		return m.dim[2]
	default:
		return m.cube[0]*m.dim[0] + m.unit[0]
	}
}

// laneCount returns the number of lanes one value of lay holds. A packed
// value counts the lanes inside its words.
func laneCount(lay lower.Layout) int {
	switch lay.Form {
	case lower.FormScalar:
		return 1
	case lower.FormPacked:
		return int(lay.Words) * ir.PackFactor
	default:
		return int(lay.Item.Width)
	}
}

// span locates the bytes of one access and checks that the layout fills
// exactly one stride.
func (m *machine) span(a lower.Access) ([]byte, int, int, error) {
	buf, ok := m.buffers[a.Base]
	if !ok {
		return nil, 0, 0, fmt.Errorf("%s is not a buffer", a.Base)
	}
	idx, err := m.eval(a.Index)
	if err != nil {
		return nil, 0, 0, err
	}
	n := laneCount(a.Layout)
	size := int(a.Layout.Item.Elem.Size())
	if n*size != int(a.Stride) {
		return nil, 0, 0, fmt.Errorf("%s: %s holds %d bytes but the stride is %d", a.Base, a.Layout.Type, n*size, a.Stride)
	}
	off := a.Offset(idx.lanes[0])
	if off+uint64(a.Stride) > uint64(len(buf)) {
		return nil, 0, 0, fmt.Errorf("%w: %s[%d] (%d bytes)", ErrOutOfBounds, a.Base, idx.lanes[0], len(buf))
	}
	return buf[off : off+uint64(a.Stride)], n, size, nil
}

func (m *machine) read(a lower.Access) (value, error) {
	b, n, size, err := m.span(a)
	if err != nil {
		return value{}, err
	}
	v := value{elem: a.Layout.Item.Elem, lanes: make([]uint64, n)}
	for k := range n {
		v.lanes[k] = decode(b[k*size:(k+1)*size])
	}
	return v, nil
}

func (m *machine) write(a lower.Access, v value) error {
	b, n, size, err := m.span(a)
	if err != nil {
		return err
	}
	if len(v.lanes) != n {
		return fmt.Errorf("%s: storing %d lanes into %s", a.Base, len(v.lanes), a.Layout.Type)
	}
	for k := range n {
		encode(b[k*size:(k+1)*size], v.lanes[k])
	}
	return nil
}

func decode(b []byte) uint64 {
	switch len(b) {
	case 1:
		return uint64(b[0])
	case 2:
		return uint64(binenc.LittleEndian.Uint16(b))
	case 4:
		return uint64(binenc.LittleEndian.Uint32(b))
	default:
		return binenc.LittleEndian.Uint64(b)
	}
}

func encode(b []byte, bits uint64) {
	switch len(b) {
	case 1:
		b[0] = byte(bits)
	case 2:
		binenc.LittleEndian.PutUint16(b, uint16(bits))
	case 4:
		binenc.LittleEndian.PutUint32(b, uint32(bits))
	default:
		binenc.LittleEndian.PutUint64(b, bits)
	}
}
