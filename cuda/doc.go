// Package cuda implements CUDA C++ code generation for kernelgen.
//
// Kernels are emitted as extern "C" __global__ functions so that the driver
// API can look them up by their IR name.
//
// # Usage
//
//	src, info, err := cuda.Compile(kernel, cuda.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	for _, d := range info.Diagnostics {
//	    log.Println(d)
//	}
//
// # Type Mapping
//
//	IR             CUDA
//	--             ----
//	f16            __half
//	bf16           __nv_bfloat16
//	f32            float
//	f64            double
//	i8             signed char
//	i32            int
//	u32            unsigned int
//	line<f32,4>    float4
//	line<f64,2>    double2
//	line<f32,8>    struct line_f32x8 { float i[8]; }
//	line<f16,4>    struct line_f16x4_packed { __half2 p[2]; }  (buffers)
//
// Lines of f16 and bf16 with an even width are held in buffers as __half2
// or __nv_bfloat162 words and unpacked at the load. Register values use one
// element per lane.
//
// # Builtins
//
// Builtins are read from threadIdx, blockIdx and blockDim at the top of the
// kernel and bound to const unsigned int locals.
package cuda
