// Copyright 2025 Destin ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package cpu provides a pure Go CPU backend for tensor operations.
//
// Convolutions use the im2col algorithm with gonum BLAS for the matrix
// product. The backend also implements the c01b filter-acts kernel used by
// the shuffled convolution strategy. Float32 and Float64 are supported.
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 1, 28, 28}, backend)
package cpu

import (
	internalcpu "github.com/destin-ml/destin/internal/backend/cpu"
	"github.com/destin-ml/destin/tensor"
)

// Backend represents the CPU backend implementation.
type Backend = internalcpu.CPUBackend

var (
	_ tensor.Backend           = (*Backend)(nil)
	_ tensor.FilterActsBackend = (*Backend)(nil)
)

// New creates a new CPU backend.
func New() *Backend {
	return internalcpu.New()
}
