// Package ir defines the kernel intermediate representation consumed by the
// lowering pass.
//
// A Kernel is a flat list of typed variables plus a structured body of
// instructions. Every variable has one of four origins: a kernel parameter,
// a local declared in the body, a builtin identifier, or the explicit
// intermediate written by an Index instruction.
//
// # Types and items
//
// Declared types are Scalar, Line, and Array. A Line of width 1 is a distinct
// type from the Scalar of the same element kind and is never collapsed into
// it.
//
// Each value also carries an Item, the compiled-type annotation used by
// backends. An Item records the element kind, the width, the declared shape,
// the role (register or storage), and whether the storage holds two lanes per
// native word. Items are computed by Derive and IndexResult.
//
// # Chained indexing
//
// input[i][j] is two Index instructions: the first writes an intermediate
// holding the whole line at position i, the second reads lane j from it.
// Indexing storage keeps the declared width, so the intermediate still sees
// every lane.
//
// # Building kernels
//
// Builder assembles kernels programmatically and infers intermediate types:
//
//	b := ir.NewBuilder("copy")
//	in := b.Param("input", ir.ArrayOf(ir.LineOf(ir.F32, 4)), false)
//	out := b.Param("output", ir.ArrayOf(ir.ScalarOf(ir.F32)), true)
//	pos := b.Builtin(ir.UnitPos)
//	line := b.Index(in, ir.At(ir.Ref(pos)))
//	lane := b.Index(line, ir.ConstIndex(0))
//	b.IndexAssign(out, ir.At(ir.Ref(pos)), ir.Ref(lane))
//	k, err := b.Finish()
package ir
