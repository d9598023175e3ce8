// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package msl

import (
	"fmt"

	"github.com/gogpu/kernelgen/ir"
)

// Namespace is the MSL metal namespace prefix.
const Namespace = "metal::"

// scalarTypeName returns the MSL name for an element kind. Metal has no
// double type; bfloat needs MSL 3.1.
func scalarTypeName(e ir.ElementKind, version Version) (string, bool) {
	switch e {
	case ir.Bool:
		return "bool", true
	case ir.F16:
		return "half", true
	case ir.BF16:
		if !version.AtLeast(Version3_1) {
			return "", false
		}
		return "bfloat", true
	case ir.F32:
		return "float", true
	case ir.I8:
		return "char", true
	case ir.I16:
		return "short", true
	case ir.I32:
		return "int", true
	case ir.I64:
		return "long", true
	case ir.U8:
		return "uchar", true
	case ir.U16:
		return "ushort", true
	case ir.U32:
		return "uint", true
	case ir.U64:
		return "ulong", true
	default:
		return "", false
	}
}

// vectorTypeName returns the MSL vector type holding width lanes of e.
// Three-lane lines use the packed_ types, which are 3*size(e) bytes; the
// plain three-lane vectors are padded to four lanes.
func vectorTypeName(e ir.ElementKind, width uint32, version Version) (string, bool) {
	scalar, ok := scalarTypeName(e, version)
	if !ok {
		return "", false
	}
	switch width {
	case 2, 4:
		return fmt.Sprintf("%s%s%d", Namespace, scalar, width), true
	case 3:
		return packedVectorTypeName(e)
	default:
		return "", false
	}
}

// packedVectorTypeName returns the MSL packed three-lane vector type name.
func packedVectorTypeName(e ir.ElementKind) (string, bool) {
	switch e {
	case ir.F16, ir.F32, ir.I8, ir.I16, ir.I32, ir.U8, ir.U16, ir.U32:
		scalar, _ := scalarTypeName(e, Version{})
		return fmt.Sprintf("%spacked_%s3", Namespace, scalar), true
	default:
		return "", false
	}
}

// addressSpaceName returns the MSL address space of a kernel parameter.
func addressSpaceName(buffer bool) string {
	if buffer {
		return "device"
	}
	return "constant"
}
