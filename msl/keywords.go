// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package msl

// reservedKeywords contains the C++14 keywords MSL inherits, the Metal
// qualifiers and the names the generated source relies on.
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
	// Metal qualifiers and attributes
	// =========================================================================
	"kernel":      {},
	"vertex":      {},
	"fragment":    {},
	"device":      {},
	"constant":    {},
	"threadgroup": {},
	"thread":      {},
	"metal":       {},
	"as_type":     {},
	"half":        {},
	"bfloat":      {},
	"uchar":       {},
	"ushort":      {},
	"uint":        {},
	"ulong":       {},
	"main":        {},

	// =========================================================================
	// Kernel arguments carrying thread positions
	// =========================================================================
	"_local_index": {},
	"_local_id":    {},
	"_group_id":    {},
	"_group_size":  {},
	"_global_id":   {},
}

// vectorNames contains the MSL vector type names, packed ones included.
var vectorNames = func() map[string]struct{} {
	result := make(map[string]struct{})
	bases := []string{
		"bool", "char", "uchar", "short", "ushort", "int", "uint", "long", "ulong",
		"half", "bfloat", "float",
	}
	for _, base := range bases {
		for i := 2; i <= 4; i++ {
			result[base+string(rune('0'+i))] = struct{}{}
			result["packed_"+base+string(rune('0'+i))] = struct{}{}
		}
	}
	return result
}()

// IsReserved reports whether name cannot be used as an identifier in
// generated MSL source.
func IsReserved(name string) bool {
	if _, ok := reservedKeywords[name]; ok {
		return true
	}
	_, ok := vectorNames[name]
	return ok
}
