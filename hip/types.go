// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hip

import (
	"fmt"

	"github.com/gogpu/kernelgen/ir"
)

var vectorBases = map[ir.ElementKind]string{
	ir.F32: "float",
	ir.F64: "double",
	ir.I8:  "char",
	ir.I16: "short",
	ir.I32: "int",
	ir.I64: "longlong",
	ir.U8:  "uchar",
	ir.U16: "ushort",
	ir.U32: "uint",
	ir.U64: "ulonglong",
}

// vectorTypeName returns the HIP vector type holding width lanes of e.
// HIP three-lane vectors are backed by four-lane storage, so their size is
// not 3*size(e); width 3 lines use the synthetic struct instead.
func vectorTypeName(e ir.ElementKind, width uint32) (string, bool) {
	base, ok := vectorBases[e]
	if !ok {
		return "", false
	}
	switch width {
	case 1, 2, 4:
		return fmt.Sprintf("%s%d", base, width), true
	default:
		return "", false
	}
}
