// Package msl implements Metal Shading Language (MSL) code generation for
// kernelgen.
//
// MSL is Apple's shader language for the Metal API. It is based on C++14
// with explicit address spaces, attribute-based parameter binding and a
// metal:: namespace for standard library functions.
//
// # Usage
//
//	src, info, err := msl.Compile(kernel, msl.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//
// # MSL Language Versions
//
// The backend targets MSL 3.1 by default. Earlier versions work for kernels
// that do not use bf16, which needs the bfloat type added in MSL 3.1.
//
// # Type Mapping
//
//	IR             MSL
//	--             ---
//	bool           bool
//	f16            half
//	bf16           bfloat (MSL 3.1+)
//	f32            float
//	i32            int
//	u32            uint
//	i64            long
//	line<T,2>      metal::T2
//	line<T,3>      metal::packed_T3
//	line<T,4>      metal::T4
//	line<T,1>      struct line_T1 { T i[1]; }
//
// f64 has no Metal spelling and is rejected as UnsupportedElement.
//
// # Builtins
//
// Thread positions are kernel arguments with attributes such as
// [[thread_position_in_grid]]. Only the arguments a kernel reads are
// declared.
package msl
