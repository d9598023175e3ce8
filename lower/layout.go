// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package lower

import (
	"fmt"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/packing"
)

// Form is the representation chosen for one value.
type Form uint8

const (
	// FormScalar is a plain element.
	FormScalar Form = iota

	// FormNative is a native vector type, including vectors of one lane.
	FormNative

	// FormSynthetic is a struct holding the lanes in an array field.
	FormSynthetic

	// FormPacked holds two lanes per native word: the word type itself for
	// two lanes, or a struct of words otherwise.
	FormPacked
)

func (f Form) String() string {
	switch f {
	case FormScalar:
		return "scalar"
	case FormNative:
		return "native"
	case FormSynthetic:
		return "synthetic"
	case FormPacked:
		return "packed"
	default:
		return fmt.Sprintf("form(%d)", f)
	}
}

// Layout is the resolved representation of an item in one dialect.
type Layout struct {
	Item ir.Item
	Form Form

	// Type spells one value.
	Type string

	// ElemType spells one lane.
	ElemType string

	// WordType spells one packed word and Words counts them (FormPacked).
	WordType string
	Words    uint32
}

// Bytes returns the in-memory size of one value.
func (l Layout) Bytes() uint32 {
	return l.Item.Bytes()
}

// packs reports whether the dialect holds lanes of e packed.
func (l *lowerer) packs(e ir.ElementKind) bool {
	_, ok := l.emitter.PackedType(e)
	return ok
}

// layout resolves the representation of it, registering synthetic structs
// and recording UnsupportedWidth notes on first use.
func (l *lowerer) layout(it ir.Item) (Layout, error) {
	key := it
	if key.Role == ir.RoleRegister {
		// Register lines are always unpacked; Packed is provenance only.
		key.Packed = false
	}
	if lay, ok := l.layouts[key]; ok {
		return lay, nil
	}

	lay, err := l.resolve(key)
	if err != nil {
		return Layout{}, err
	}
	l.layouts[key] = lay
	return lay, nil
}

func (l *lowerer) resolve(it ir.Item) (Layout, error) {
	elemType, ok := l.emitter.ScalarType(it.Elem)
	if !ok {
		return Layout{}, l.errorf(ErrUnsupportedElement, "%s has no %s spelling", it.Elem, l.emitter.Name())
	}
	lay := Layout{Item: it, ElemType: elemType}

	switch {
	case !it.IsLine():
		lay.Form = FormScalar
		lay.Type = elemType

	case it.Packed:
		if err := packing.Check(it.Elem); err != nil {
			return Layout{}, l.errorf(ErrPackingMismatch, "%v", err)
		}
		if !packing.Eligible(it.Elem, it.Width) {
			return Layout{}, l.errorf(ErrPackingMismatch, "width %d of %s is not a multiple of %d", it.Width, it.Elem, ir.PackFactor)
		}
		wordType, ok := l.emitter.PackedType(it.Elem)
		if !ok {
			return Layout{}, l.errorf(ErrPackingMismatch, "%s cannot pack %s", l.emitter.Name(), it.Elem)
		}
		lay.Form = FormPacked
		lay.WordType = wordType
		lay.Words = packing.Words(it.Width)
		if lay.Words == 1 {
			lay.Type = wordType
		} else {
			lay.Type = l.structs.getOrCreate(wordField, wordType, lay.Words, func() string {
				return l.namer.call(fmt.Sprintf("line_%sx%d_packed", it.Elem, it.Width))
			})
		}

	default:
		if vt, ok := l.emitter.VectorType(it.Elem, it.Width); ok {
			lay.Form = FormNative
			lay.Type = vt
			break
		}
		lay.Form = FormSynthetic
		lay.Type = l.structs.getOrCreate(laneField, elemType, it.Width, func() string {
			return l.namer.call(fmt.Sprintf("line_%sx%d", it.Elem, it.Width))
		})
		if it.Width > 1 && !(packing.Eligible(it.Elem, it.Width) && l.packs(it.Elem)) {
			l.noteUnsupportedWidth(it.Elem, it.Width)
		}
	}
	return lay, nil
}

type widthKey struct {
	elem  ir.ElementKind
	width uint32
}

func (l *lowerer) noteUnsupportedWidth(e ir.ElementKind, width uint32) {
	key := widthKey{e, width}
	if l.noted[key] {
		return
	}
	l.noted[key] = true

	d := Diagnostic{
		Severity: SeverityNote,
		Kind:     UnsupportedWidth,
		Kernel:   l.kernel.Name,
		Elem:     e,
		Width:    width,
		Message: fmt.Sprintf("%s has no native line<%s,%d>; using %s fallback",
			l.emitter.Name(), e, width, l.opts.Fallback),
	}
	l.diags = append(l.diags, d)
	if l.opts.Logger != nil {
		l.opts.Logger.Info("unsupported width",
			"dialect", l.emitter.Name(),
			"kernel", l.kernel.Name,
			"elem", e.String(),
			"width", width,
			"fallback", l.opts.Fallback.String())
	}
}

func (l *lowerer) scalarLayout(e ir.ElementKind) (Layout, error) {
	return l.layout(ir.Item{Elem: e, Width: 1, Shape: ir.ShapeScalar, Role: ir.RoleRegister})
}
