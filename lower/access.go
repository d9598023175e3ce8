// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package lower

import (
	"github.com/gogpu/kernelgen/ir"
)

// access builds the buffer access for position idx of the buffer param.
// The stride is the declared width times the element size, whatever the
// form of the pointee.
func (l *lowerer) access(param ir.VarHandle, pit ir.Item, idx Expr) (Access, error) {
	lay, err := l.layout(pit)
	if err != nil {
		return Access{}, err
	}
	p, _ := l.kernel.ParamOf(param)
	return Access{
		Base:    l.names[param],
		Layout:  lay,
		Index:   idx,
		Stride:  pit.Width * pit.Elem.Size(),
		Mutable: p.Mutable,
	}, nil
}

// elementAccess addresses lane k of position acc.Index through a pointer to
// single elements: index*width + k.
func (l *lowerer) elementAccess(acc Access, k uint32) (Access, error) {
	it := acc.Layout.Item
	lay, err := l.scalarLayout(it.Elem)
	if err != nil {
		return Access{}, err
	}

	var idx Expr
	if lit, ok := acc.Index.(Lit); ok && (lit.Value.Elem == ir.U32 || lit.Value.Elem == ir.I32) {
		idx = Lit{Value: ir.LitU32(uint32(lit.Value.Bits)*it.Width + k)} //nolint:gosec // G115: literal index
	} else {
		idx = Bin{
			Op:   ir.OpAdd,
			Elem: ir.U32,
			Lhs:  Bin{Op: ir.OpMul, Elem: ir.U32, Lhs: acc.Index, Rhs: Lit{Value: ir.LitU32(it.Width)}},
			Rhs:  Lit{Value: ir.LitU32(k)},
		}
	}
	return Access{
		Base:        acc.Base,
		Layout:      lay,
		Index:       idx,
		Stride:      it.Elem.Size(),
		Mutable:     acc.Mutable,
		Reinterpret: true,
	}, nil
}

// decomposed reports whether accesses to lay go element by element.
func (l *lowerer) decomposed(lay Layout) bool {
	return l.opts.Fallback == FallbackDecompose && lay.Form == FormSynthetic && lay.Item.Width > 1
}

// loadStorage declares name holding position idx of the buffer param. A line
// keeps its declared width; packed words are unpacked right at the load.
func (l *lowerer) loadStorage(name string, param ir.VarHandle, pit, res ir.Item, idx Expr) error {
	acc, err := l.access(param, pit, idx)
	if err != nil {
		return err
	}
	rlay, err := l.layout(res)
	if err != nil {
		return err
	}
	dst := Ref{Name: name, Layout: rlay}

	switch {
	case acc.Layout.Form == FormPacked:
		word := l.namer.call(name + "_packed")
		l.emit(Declare{Name: word, Layout: acc.Layout, Init: Load{Access: acc}, Const: true})
		l.emit(Declare{Name: name, Layout: rlay})
		wref := Ref{Name: word, Layout: acc.Layout}
		for k := uint32(0); k < res.Width; k++ {
			l.emit(Store{
				Target: Lane{Base: dst, K: k},
				Value:  Unpack{Elem: res.Elem, Word: Word{Base: wref, K: k / ir.PackFactor}, High: k%ir.PackFactor == 1},
			})
		}

	case l.decomposed(acc.Layout):
		l.emit(Declare{Name: name, Layout: rlay})
		for k := uint32(0); k < res.Width; k++ {
			eacc, err := l.elementAccess(acc, k)
			if err != nil {
				return err
			}
			l.emit(Store{Target: Lane{Base: dst, K: k}, Value: Load{Access: eacc}})
		}

	default:
		l.emit(Declare{Name: name, Layout: rlay, Init: Load{Access: acc}, Const: true})
	}
	return nil
}

// storeStorage writes val to position idx of the buffer param. A scalar
// written to a line buffer is broadcast; packed lines are repacked right at
// the store.
func (l *lowerer) storeStorage(param ir.VarHandle, pit ir.Item, idx Expr, val Expr, vit ir.Item) error {
	acc, err := l.access(param, pit, idx)
	if err != nil {
		return err
	}
	name := l.kernel.Var(param).Name

	if vit.Elem != pit.Elem {
		return l.errorf(ErrTypeMismatch, "cannot store %s into %s %q", vit, pit, name)
	}
	if !pit.IsLine() {
		if vit.IsLine() {
			return l.errorf(ErrTypeMismatch, "cannot store %s into %s %q", vit, pit, name)
		}
		l.emit(Store{Target: Load{Access: acc}, Value: val})
		return nil
	}

	line := ir.Item{Elem: pit.Elem, Width: pit.Width, Shape: ir.ShapeLine, Role: ir.RoleRegister}
	rlay, err := l.layout(line)
	if err != nil {
		return err
	}

	var src Ref
	switch {
	case !vit.IsLine():
		src = Ref{Name: l.namer.call(l.names[param] + "_line"), Layout: rlay}
		l.emit(Declare{Name: src.Name, Layout: rlay})
		for k := uint32(0); k < pit.Width; k++ {
			l.emit(Store{Target: Lane{Base: src, K: k}, Value: val})
		}
	case vit.Width != pit.Width:
		return l.errorf(ErrTypeMismatch, "cannot store %s into %s %q", vit, pit, name)
	default:
		src = val.(Ref)
	}

	switch {
	case acc.Layout.Form == FormPacked:
		e := pit.Elem
		pack := func(w uint32) Expr {
			return Pack{Elem: e, Lo: Lane{Base: src, K: 2 * w}, Hi: Lane{Base: src, K: 2*w + 1}}
		}
		if acc.Layout.Words == 1 {
			l.emit(Store{Target: Load{Access: acc}, Value: pack(0)})
			return nil
		}
		tmp := Ref{Name: l.namer.call(l.names[param] + "_packed"), Layout: acc.Layout}
		l.emit(Declare{Name: tmp.Name, Layout: acc.Layout})
		for w := uint32(0); w < acc.Layout.Words; w++ {
			l.emit(Store{Target: Word{Base: tmp, K: w}, Value: pack(w)})
		}
		l.emit(Store{Target: Load{Access: acc}, Value: tmp})

	case l.decomposed(acc.Layout):
		for k := uint32(0); k < pit.Width; k++ {
			eacc, err := l.elementAccess(acc, k)
			if err != nil {
				return err
			}
			l.emit(Store{Target: Load{Access: eacc}, Value: Lane{Base: src, K: k}})
		}

	default:
		l.emit(Store{Target: Load{Access: acc}, Value: src})
	}
	return nil
}
