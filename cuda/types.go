// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cuda

import (
	"fmt"

	"github.com/gogpu/kernelgen/ir"
)

// scalarTypeName returns the CUDA name for an element kind.
func scalarTypeName(e ir.ElementKind) (string, bool) {
	switch e {
	case ir.F16:
		return "__half", true
	case ir.BF16:
		return "__nv_bfloat16", true
	case ir.F32:
		return "float", true
	case ir.F64:
		return "double", true
	case ir.I8:
		return "signed char", true
	case ir.I16:
		return "short", true
	case ir.I32:
		return "int", true
	case ir.I64:
		return "long long", true
	case ir.U8:
		return "unsigned char", true
	case ir.U16:
		return "unsigned short", true
	case ir.U32:
		return "unsigned int", true
	case ir.U64:
		return "unsigned long long", true
	case ir.Bool:
		return "bool", true
	default:
		return "", false
	}
}

// vectorBase returns the prefix of the CUDA vector types for e and the
// widest vector the toolkit declares.
func vectorBase(e ir.ElementKind) (string, uint32) {
	switch e {
	case ir.F32:
		return "float", 4
	case ir.F64:
		return "double", 2
	case ir.I8:
		return "char", 4
	case ir.I16:
		return "short", 4
	case ir.I32:
		return "int", 4
	case ir.I64:
		return "longlong", 2
	case ir.U8:
		return "uchar", 4
	case ir.U16:
		return "ushort", 4
	case ir.U32:
		return "uint", 4
	case ir.U64:
		return "ulonglong", 2
	default:
		// Half, bfloat16 and bool lines have no vector type of matching size.
		return "", 0
	}
}

// vectorTypeName returns the CUDA vector type holding width lanes of e.
// Every CUDA vector type is exactly width*size(e) bytes, so buffer strides
// stay those of the line.
func vectorTypeName(e ir.ElementKind, width uint32) (string, bool) {
	base, widest := vectorBase(e)
	if base == "" || width == 0 || width > widest {
		return "", false
	}
	return fmt.Sprintf("%s%d", base, width), true
}

// packedTypeName returns the CUDA two-lane word type for a packable kind.
func packedTypeName(e ir.ElementKind) (string, bool) {
	switch e {
	case ir.F16:
		return "__half2", true
	case ir.BF16:
		return "__nv_bfloat162", true
	default:
		return "", false
	}
}
