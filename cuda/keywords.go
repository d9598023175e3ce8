// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package cuda

// reservedKeywords contains C++ keywords, CUDA qualifiers and the names the
// generated source relies on.
var reservedKeywords = map[string]struct{}{
	// =========================================================================
	// C++ keywords
	// =========================================================================
	"alignas":          {},
	"alignof":          {},
	"and":              {},
	"and_eq":           {},
	"asm":              {},
	"auto":             {},
	"bitand":           {},
	"bitor":            {},
	"bool":             {},
	"break":            {},
	"case":             {},
	"catch":            {},
	"char":             {},
	"char16_t":         {},
	"char32_t":         {},
	"class":            {},
	"compl":            {},
	"const":            {},
	"const_cast":       {},
	"constexpr":        {},
	"continue":         {},
	"decltype":         {},
	"default":          {},
	"delete":           {},
	"do":               {},
	"double":           {},
	"dynamic_cast":     {},
	"else":             {},
	"enum":             {},
	"explicit":         {},
	"export":           {},
	"extern":           {},
	"false":            {},
	"float":            {},
	"for":              {},
	"friend":           {},
	"goto":             {},
	"if":               {},
	"inline":           {},
	"int":              {},
	"long":             {},
	"mutable":          {},
	"namespace":        {},
	"new":              {},
	"noexcept":         {},
	"not":              {},
	"not_eq":           {},
	"nullptr":          {},
	"operator":         {},
	"or":               {},
	"or_eq":            {},
	"private":          {},
	"protected":        {},
	"public":           {},
	"register":         {},
	"reinterpret_cast": {},
	"return":           {},
	"short":            {},
	"signed":           {},
	"sizeof":           {},
	"static":           {},
	"static_assert":    {},
	"static_cast":      {},
	"struct":           {},
	"switch":           {},
	"template":         {},
	"this":             {},
	"thread_local":     {},
	"throw":            {},
	"true":             {},
	"try":              {},
	"typedef":          {},
	"typeid":           {},
	"typename":         {},
	"union":            {},
	"unsigned":         {},
	"using":            {},
	"virtual":          {},
	"void":             {},
	"volatile":         {},
	"wchar_t":          {},
	"while":            {},
	"xor":              {},
	"xor_eq":           {},

	// =========================================================================
	// CUDA qualifiers and built-in variables
	// =========================================================================
	"__global__":   {},
	"__device__":   {},
	"__host__":     {},
	"__shared__":   {},
	"__constant__": {},
	"__restrict__": {},
	"threadIdx":    {},
	"blockIdx":     {},
	"blockDim":     {},
	"gridDim":      {},
	"warpSize":     {},

	// =========================================================================
	// Types and intrinsics used by generated code
	// =========================================================================
	"__half":               {},
	"__half2":              {},
	"__nv_bfloat16":        {},
	"__nv_bfloat162":       {},
	"min":                  {},
	"max":                  {},
	"fminf":                {},
	"fmaxf":                {},
	"fmin":                 {},
	"fmax":                 {},
	"fmodf":                {},
	"fmod":                 {},
	"__hmin":               {},
	"__hmax":               {},
	"__low2half":           {},
	"__high2half":          {},
	"__halves2half2":       {},
	"__low2bfloat16":       {},
	"__high2bfloat16":      {},
	"__halves2bfloat162":   {},
	"__float2half":         {},
	"__half2float":         {},
	"__float2bfloat16":     {},
	"__bfloat162float":     {},
	"__int_as_float":       {},
	"__longlong_as_double": {},
	"__ushort_as_half":     {},
	"__ushort_as_bfloat16": {},
}

// vectorNames contains the CUDA vector type names, e.g. float4 or uchar2.
var vectorNames = func() map[string]struct{} {
	result := make(map[string]struct{})
	bases := []string{
		"char", "uchar", "short", "ushort", "int", "uint", "long", "ulong",
		"longlong", "ulonglong", "float", "double",
	}
	for _, base := range bases {
		for i := 1; i <= 4; i++ {
			result[base+string(rune('0'+i))] = struct{}{}
		}
	}
	return result
}()

// IsReserved reports whether name cannot be used as an identifier in
// generated CUDA source.
func IsReserved(name string) bool {
	if _, ok := reservedKeywords[name]; ok {
		return true
	}
	_, ok := vectorNames[name]
	return ok
}
