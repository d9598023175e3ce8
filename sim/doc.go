// Package sim executes lowered programs on the host.
//
// Run interprets a lower.Program unit by unit against byte buffers laid out
// exactly as the device would see them: every buffer access reads or writes
// Access.Stride bytes at Index*Stride, lanes little-endian and packed lanes
// low half first. It is the reference the dialect emitters are tested
// against: two programs that compute the same bytes under sim compute the
// same bytes on a device, provided each emitter spells the layouts with the
// sizes lowering assumed.
package sim
