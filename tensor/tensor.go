// Copyright 2025 Destin ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the public API for tensor operations in the Destin ML framework.
//
// The package defines core types for type-safe tensor operations:
//   - Tensor[T, B]: High-level generic tensor with type safety
//   - RawTensor: Low-level byte-backed tensor for backend implementers
//   - Backend: Interface for device-specific compute implementations
//   - Shape, DataType, Device: Core type definitions
//
// Example:
//
//	backend := cpu.New()
//	x := tensor.Zeros[float32](tensor.Shape{2, 1, 28, 28}, backend)
//	y := x.Tanh()
package tensor

import (
	"github.com/destin-ml/destin/internal/tensor"
)

// DType is a constraint for tensor data types.
// Supported types: float32, float64.
type DType = tensor.DType

// DataType represents the underlying data type of a tensor.
type DataType = tensor.DataType

// Data type constants.
const (
	Float32 DataType = tensor.Float32
	Float64 DataType = tensor.Float64
)

// Device represents the device where a backend executes.
type Device = tensor.Device

// Device constants.
const (
	CPU    Device = tensor.CPU
	CUDA   Device = tensor.CUDA
	Vulkan Device = tensor.Vulkan
	Metal  Device = tensor.Metal
	WebGPU Device = tensor.WebGPU
)

// ParseDevice converts a device name such as "cpu" or "webgpu" to a Device.
func ParseDevice(name string) (Device, error) {
	return tensor.ParseDevice(name)
}

// Shape represents tensor dimensions.
type Shape = tensor.Shape

// RawTensor is the untyped storage a backend operates on.
type RawTensor = tensor.RawTensor

// Backend is the interface compute engines implement.
type Backend = tensor.Backend

// FilterActsBackend is implemented by engines with a c01b convolution kernel.
type FilterActsBackend = tensor.FilterActsBackend

// Tensor is a generic tensor with element type T on backend B.
type Tensor[T DType, B Backend] = tensor.Tensor[T, B]

// New wraps a RawTensor.
func New[T DType, B Backend](raw *RawTensor, b B) *Tensor[T, B] {
	return tensor.New[T, B](raw, b)
}

// NewRaw allocates a zeroed RawTensor.
func NewRaw(shape Shape, dtype DataType, device Device) (*RawTensor, error) {
	return tensor.NewRaw(shape, dtype, device)
}

// FromSlice creates a tensor from a Go slice. The slice is copied.
func FromSlice[T DType, B Backend](data []T, shape Shape, b B) (*Tensor[T, B], error) {
	return tensor.FromSlice(data, shape, b)
}

// Zeros creates a tensor filled with zeros.
func Zeros[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Zeros[T](shape, b)
}

// Ones creates a tensor filled with ones.
func Ones[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Ones[T](shape, b)
}

// Full creates a tensor filled with value.
func Full[T DType, B Backend](shape Shape, value T, b B) *Tensor[T, B] {
	return tensor.Full(shape, value, b)
}

// Arange creates a tensor holding 0, 1, 2, ... in row-major order.
func Arange[T DType, B Backend](shape Shape, b B) *Tensor[T, B] {
	return tensor.Arange[T](shape, b)
}
