// Package webgpu implements the WebGPU compute engine: WGSL kernels for
// convolution (NCHW and c01b), max pooling and element-wise ops.
// Uses go-webgpu (github.com/go-webgpu/webgpu) for zero-CGO WebGPU bindings.
package webgpu

import "errors"

// ErrUnavailable is returned by New when no WebGPU adapter can be acquired.
var ErrUnavailable = errors.New("webgpu: not available on this system")
