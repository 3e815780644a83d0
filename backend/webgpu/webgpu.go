// Copyright 2025 Destin ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package webgpu provides the WebGPU backend for GPU-accelerated tensor
// operations. It backs the dedicated-hardware convolution strategy.
//
// The backend is built on Windows; elsewhere New returns ErrUnavailable.
// Only float32 tensors are supported.
//
// Example:
//
//	gpu, err := webgpu.New()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer gpu.Release()
//
//	x := tensor.Zeros[float32](tensor.Shape{8, 4, 32, 32}, gpu)
package webgpu

import (
	internalwebgpu "github.com/destin-ml/destin/internal/backend/webgpu"
	"github.com/destin-ml/destin/tensor"
)

// Backend represents the WebGPU backend implementation.
type Backend = internalwebgpu.Backend

var (
	_ tensor.Backend           = (*Backend)(nil)
	_ tensor.FilterActsBackend = (*Backend)(nil)
)

// ErrUnavailable is returned by New when WebGPU cannot be initialized.
var ErrUnavailable = internalwebgpu.ErrUnavailable

// New creates a new WebGPU backend. Call Release when done to free GPU
// resources.
func New() (*Backend, error) {
	return internalwebgpu.New()
}

// IsAvailable reports whether a WebGPU adapter can be acquired.
func IsAvailable() bool {
	return internalwebgpu.IsAvailable()
}
