// Package hip implements HIP C++ code generation for kernelgen.
//
// The output follows the CUDA dialect closely: the same builtin variables,
// the same half intrinsics and the same extern "C" __global__ kernels, so
// the emitter embeds the CUDA one. The differences are the headers, the
// bfloat16 type names, the launch bounds and the set of native vector
// widths. HIP vectors of three lanes are padded to four, so three-lane
// lines use a synthetic struct and are reported as UnsupportedWidth.
package hip
