// Package irfile decodes kernel descriptions written in YAML.
//
// A document holds a list of kernels. Each kernel names its parameters with
// a type string (see ir.ParseType) and lists its body one statement per
// entry:
//
//	kernels:
//	  - name: simple_index
//	    params:
//	      - {name: input, type: "array<line<f32,1>>"}
//	      - {name: output, type: "array<f32>", mutable: true}
//	    body:
//	      - binary: {dst: outside, op: ge, lhs: unit_pos, rhs: 8}
//	      - if: {cond: outside, then: [terminate]}
//	      - index: {dst: line, base: input, at: unit_pos}
//	      - index: {dst: val, base: line, at: 0}
//	      - store: {base: output, at: unit_pos, value: val}
//
// Operands are variable names, builtin names such as unit_pos or
// cube_pos_x, or literals. Literals carry their element kind as a suffix
// ("1.5f32", "2u8", "-1i64"); a bare integer is a u32 and a bare float an
// f32. The "at" field of index and store reads a bare integer as a constant
// position.
//
// Statements are let, index, store, set, binary, cast, len, if, for and
// terminate. len reads the length of a buffer parameter in positions:
//
//	- len: {dst: n, base: input}
//
// A for counter takes the kind of its non-literal bound, so a loop up to an
// i32 variable counts in i32. Every intermediate is named by the document;
// decoded kernels are validated before they are returned.
package irfile
