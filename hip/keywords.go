// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package hip

import "github.com/gogpu/kernelgen/cuda"

// hipNames contains the identifiers HIP reserves on top of the CUDA set.
var hipNames = map[string]struct{}{
	"__launch_bounds__": {},
	"hipThreadIdx_x":    {},
	"hipThreadIdx_y":    {},
	"hipThreadIdx_z":    {},
	"hipBlockIdx_x":     {},
	"hipBlockIdx_y":     {},
	"hipBlockIdx_z":     {},
	"hipBlockDim_x":     {},
	"hipBlockDim_y":     {},
	"hipBlockDim_z":     {},
	"__hip_bfloat16":    {},
	"__hip_bfloat162":   {},
}

// IsReserved reports whether name cannot be used as an identifier in
// generated HIP source.
func IsReserved(name string) bool {
	if cuda.IsReserved(name) {
		return true
	}
	_, ok := hipNames[name]
	return ok
}
