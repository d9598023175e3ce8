// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/packing"
)

// ErrDivideByZero is returned for integer division or remainder by zero.
var ErrDivideByZero = errors.New("integer divide by zero")

// value is a register value: one bit pattern per lane, each holding
// exactly size(elem) bytes.
type value struct {
	elem  ir.ElementKind
	lanes []uint64
}

func scalar(e ir.ElementKind, bits uint64) value {
	return value{elem: e, lanes: []uint64{mask(e, bits)}}
}

func (v value) clone() value {
	return value{elem: v.elem, lanes: append([]uint64(nil), v.lanes...)}
}

// mask truncates bits to the width of e.
func mask(e ir.ElementKind, bits uint64) uint64 {
	switch e.Size() {
	case 1:
		return bits & 0xff
	case 2:
		return bits & 0xffff
	case 4:
		return bits & 0xffffffff
	default:
		return bits
	}
}

// signed sign-extends a lane of the signed kind e.
func signed(e ir.ElementKind, bits uint64) int64 {
	switch e.Size() {
	case 1:
		return int64(int8(bits))
	case 2:
		return int64(int16(bits))
	case 4:
		return int64(int32(bits))
	default:
		return int64(bits)
	}
}

func toFloat(e ir.ElementKind, bits uint64) float64 {
	switch e {
	case ir.F16:
		return float64(packing.Float16ToFloat32(uint16(bits)))
	case ir.BF16:
		return float64(packing.BFloat16ToFloat32(uint16(bits)))
	case ir.F32:
		return float64(math.Float32frombits(uint32(bits)))
	default:
		return math.Float64frombits(bits)
	}
}

func fromFloat(e ir.ElementKind, f float64) uint64 {
	switch e {
	case ir.F16:
		return uint64(packing.Float16FromFloat32(float32(f)))
	case ir.BF16:
		return uint64(packing.BFloat16FromFloat32(float32(f)))
	case ir.F32:
		return uint64(math.Float32bits(float32(f)))
	default:
		return math.Float64bits(f)
	}
}

func boolBits(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// binary applies op to two lanes of kind e. Comparisons yield a bool lane.
//
//nolint:gocyclo,cyclop // one case per operator and kind class
func binary(op ir.BinaryOp, e ir.ElementKind, a, b uint64) (uint64, error) {
	switch {
	case e.IsFloat():
		return floatBinary(op, e, a, b)

	case e == ir.Bool:
		x, y := a != 0, b != 0
		switch op {
		case ir.OpAnd:
			return boolBits(x && y), nil
		case ir.OpOr:
			return boolBits(x || y), nil
		case ir.OpEq:
			return boolBits(x == y), nil
		case ir.OpNe:
			return boolBits(x != y), nil
		}

	case e.IsSigned():
		x, y := signed(e, a), signed(e, b)
		var r int64
		switch op {
		case ir.OpAdd:
			r = x + y
		case ir.OpSub:
			r = x - y
		case ir.OpMul:
			r = x * y
		case ir.OpDiv, ir.OpRem:
			if y == 0 {
				return 0, ErrDivideByZero
			}
			if op == ir.OpDiv {
				r = x / y
			} else {
				r = x % y
			}
		case ir.OpMin:
			r = min(x, y)
		case ir.OpMax:
			r = max(x, y)
		case ir.OpAnd:
			r = x & y
		case ir.OpOr:
			r = x | y
		default:
			return compare(op, x < y, x == y)
		}
		return mask(e, uint64(r)), nil

	default:
		x, y := mask(e, a), mask(e, b)
		var r uint64
		switch op {
		case ir.OpAdd:
			r = x + y
		case ir.OpSub:
			r = x - y
		case ir.OpMul:
			r = x * y
		case ir.OpDiv, ir.OpRem:
			if y == 0 {
				return 0, ErrDivideByZero
			}
			if op == ir.OpDiv {
				r = x / y
			} else {
				r = x % y
			}
		case ir.OpMin:
			r = min(x, y)
		case ir.OpMax:
			r = max(x, y)
		case ir.OpAnd:
			r = x & y
		case ir.OpOr:
			r = x | y
		default:
			return compare(op, x < y, x == y)
		}
		return mask(e, r), nil
	}
	return 0, fmt.Errorf("%s is not defined on %s", op, e)
}

// floatBinary computes in the precision of e: float32 arithmetic for f16,
// bf16 and f32, rounded once more to 16 bits for the half kinds.
func floatBinary(op ir.BinaryOp, e ir.ElementKind, a, b uint64) (uint64, error) {
	if e == ir.F64 {
		x, y := toFloat(e, a), toFloat(e, b)
		var r float64
		switch op {
		case ir.OpAdd:
			r = x + y
		case ir.OpSub:
			r = x - y
		case ir.OpMul:
			r = x * y
		case ir.OpDiv:
			r = x / y
		case ir.OpRem:
			r = math.Mod(x, y)
		case ir.OpMin:
			r = math.Min(x, y)
		case ir.OpMax:
			r = math.Max(x, y)
		default:
			return floatCompare(op, x, y)
		}
		return fromFloat(e, r), nil
	}

	x, y := float32(toFloat(e, a)), float32(toFloat(e, b))
	var r float32
	switch op {
	case ir.OpAdd:
		r = x + y
	case ir.OpSub:
		r = x - y
	case ir.OpMul:
		r = x * y
	case ir.OpDiv:
		r = x / y
	case ir.OpRem:
		r = float32(math.Mod(float64(x), float64(y)))
	case ir.OpMin:
		r = float32(math.Min(float64(x), float64(y)))
	case ir.OpMax:
		r = float32(math.Max(float64(x), float64(y)))
	default:
		return floatCompare(op, float64(x), float64(y))
	}
	return fromFloat(e, float64(r)), nil
}

func floatCompare(op ir.BinaryOp, x, y float64) (uint64, error) {
	switch op {
	case ir.OpLt:
		return boolBits(x < y), nil
	case ir.OpLe:
		return boolBits(x <= y), nil
	case ir.OpGt:
		return boolBits(x > y), nil
	case ir.OpGe:
		return boolBits(x >= y), nil
	case ir.OpEq:
		return boolBits(x == y), nil
	case ir.OpNe:
		return boolBits(x != y), nil
	default:
		return 0, fmt.Errorf("%s is not defined on floats", op)
	}
}

func compare(op ir.BinaryOp, less, equal bool) (uint64, error) {
	switch op {
	case ir.OpLt:
		return boolBits(less), nil
	case ir.OpLe:
		return boolBits(less || equal), nil
	case ir.OpGt:
		return boolBits(!less && !equal), nil
	case ir.OpGe:
		return boolBits(!less), nil
	case ir.OpEq:
		return boolBits(equal), nil
	case ir.OpNe:
		return boolBits(!equal), nil
	default:
		return 0, fmt.Errorf("unknown operator %s", op)
	}
}

// convert changes the kind of one lane with C conversion rules: floats
// truncate toward zero, integers wrap, and anything non-zero is true.
func convert(from, to ir.ElementKind, bits uint64) uint64 {
	if to == ir.Bool {
		if from.IsFloat() {
			return boolBits(toFloat(from, bits) != 0)
		}
		return boolBits(mask(from, bits) != 0)
	}

	switch {
	case to.IsFloat():
		var f float64
		switch {
		case from.IsFloat():
			f = toFloat(from, bits)
		case from.IsSigned():
			f = float64(signed(from, bits))
		default:
			f = float64(mask(from, bits))
		}
		return fromFloat(to, f)

	case from.IsFloat():
		f := math.Trunc(toFloat(from, bits))
		if to.IsSigned() {
			return mask(to, uint64(int64(f)))
		}
		if f < 0 {
			return mask(to, uint64(int64(f)))
		}
		return mask(to, uint64(f))

	case from.IsSigned():
		return mask(to, uint64(signed(from, bits)))

	default:
		return mask(to, mask(from, bits))
	}
}
