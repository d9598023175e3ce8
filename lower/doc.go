// Package lower turns IR kernels into dialect source text.
//
// Lower runs one forward pass over a kernel and produces a Program: a small
// statement tree in which every buffer access records its pointee layout
// and exact byte stride. Render then writes the Program through an Emitter,
// the per-dialect lookup table for type spellings and intrinsics. All
// width and role decisions are made here, once, for every dialect.
//
// # Index lowering
//
// Indexing a buffer of Line(e, w) reads a whole line: the pointer is typed
// as the native vector of w lanes (or a synthetic struct of w elements) and
// the stride is w*size(e). The resulting intermediate keeps width w, so a
// following lane index still sees every lane. Lines of width 1 are typed as
// vectors of one lane or as a single-field wrapper, never as the bare
// element.
//
// Packed buffers are loaded as native words and unpacked immediately;
// stores repack immediately before the write. Register values are never
// packed.
//
// Writing one lane of a line loaded from a buffer reloads the line, inserts
// the lane and stores the whole line back to the position it was loaded
// from. When that position is a local variable it is copied into a const
// at the load, so later writes to the variable cannot move the store.
//
// # Buffer lengths
//
// Every buffer parameter is followed, after all declared parameters and in
// buffer order, by a hidden u32 holding its length in positions. The
// signature therefore depends only on the declared parameters, never on
// which lengths the body reads.
//
// # Fallbacks
//
// When a dialect has no native vector for a line, the access uses a
// synthetic struct (FallbackSynthesize) or one element access per lane
// through a reinterpreted element pointer (FallbackDecompose). Both produce
// the same values. Each (element, width) pair that falls back is reported
// once as an UnsupportedWidth note.
package lower
