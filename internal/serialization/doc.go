// Package serialization saves and restores named tensors in the SafeTensors
// format:
//
//	[8 bytes: header size (uint64 LE)]
//	[header: JSON object]
//	[tensor data: raw little-endian bytes]
//
// The header maps each tensor name to its dtype, shape and byte range in
// the data section, plus an optional "__metadata__" string map. Tensors are
// written in alphabetical order by name and packed without gaps.
//
// Write stores a SHA-256 digest of the data section under the "sha256"
// metadata key; Read verifies it when present.
//
// Example usage:
//
//	// Save
//	err := serialization.Write(f, map[string]*tensor.RawTensor{
//	    "conv1.filters": filters,
//	    "conv1.bias":    bias,
//	}, map[string]string{"format": "destin-conv"})
//
//	// Load
//	tensors, meta, err := serialization.Read(f, tensor.CPU)
package serialization
