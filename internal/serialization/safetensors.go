package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/destin-ml/destin/internal/tensor"
)

const metadataKey = "__metadata__"

// tensorEntry describes one tensor in the SafeTensors header.
type tensorEntry struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

// Write encodes tensors and metadata to w in SafeTensors format.
// The caller's metadata map is not modified.
func Write(w io.Writer, tensors map[string]*tensor.RawTensor, metadata map[string]string) error {
	names := slices.Sorted(maps.Keys(tensors))

	header := make(map[string]any, len(names)+1)
	var data bytes.Buffer
	for _, name := range names {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		raw := tensors[name]
		dtype, err := dtypeToSafeTensors(raw.DType())
		if err != nil {
			return fmt.Errorf("tensor %s: %w", name, err)
		}

		shape := make([]int64, len(raw.Shape()))
		for i, dim := range raw.Shape() {
			shape[i] = int64(dim)
		}

		start := int64(data.Len())
		data.Write(raw.Data())
		header[name] = tensorEntry{
			DType:       dtype,
			Shape:       shape,
			DataOffsets: [2]int64{start, int64(data.Len())},
		}
	}

	meta := maps.Clone(metadata)
	if meta == nil {
		meta = make(map[string]string, 1)
	}
	meta[checksumKey] = ComputeChecksum(data.Bytes())
	header[metadataKey] = meta

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	if err := binary.Write(w, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return fmt.Errorf("failed to write header size: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if _, err := w.Write(data.Bytes()); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

// Read decodes a SafeTensors stream into tensors allocated on device.
// The returned metadata includes the stored checksum.
func Read(r io.Reader, device tensor.Device) (map[string]*tensor.RawTensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, fmt.Errorf("failed to read header size: %w", err)
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrHeaderTooLarge, headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, fmt.Errorf("failed to read header: %w", err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &fields); err != nil {
		return nil, nil, fmt.Errorf("failed to parse header: %w", err)
	}

	var metadata map[string]string
	if m, ok := fields[metadataKey]; ok {
		if err := json.Unmarshal(m, &metadata); err != nil {
			return nil, nil, fmt.Errorf("failed to parse metadata: %w", err)
		}
		delete(fields, metadataKey)
	}
	if len(fields) > MaxTensorCount {
		return nil, nil, fmt.Errorf("%w: got %d, max %d", ErrTooManyTensors, len(fields), MaxTensorCount)
	}

	entries := make(map[string]tensorEntry, len(fields))
	for name, f := range fields {
		if err := ValidateTensorName(name); err != nil {
			return nil, nil, err
		}
		var e tensorEntry
		if err := json.Unmarshal(f, &e); err != nil {
			return nil, nil, fmt.Errorf("tensor %s: failed to parse entry: %w", name, err)
		}
		entries[name] = e
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	if err := validateOffsets(entries, int64(len(data))); err != nil {
		return nil, nil, err
	}
	if stored, ok := metadata[checksumKey]; ok {
		if err := ValidateChecksum(ComputeChecksum(data), stored); err != nil {
			return nil, nil, err
		}
	}

	tensors := make(map[string]*tensor.RawTensor, len(entries))
	for name, e := range entries {
		raw, err := decodeTensor(name, e, data, device)
		if err != nil {
			return nil, nil, err
		}
		tensors[name] = raw
	}
	return tensors, metadata, nil
}

func decodeTensor(name string, e tensorEntry, data []byte, device tensor.Device) (*tensor.RawTensor, error) {
	dtype, err := dtypeFromSafeTensors(e.DType)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	shape := make(tensor.Shape, len(e.Shape))
	for i, dim := range e.Shape {
		shape[i] = int(dim)
	}
	raw, err := tensor.NewRaw(shape, dtype, device)
	if err != nil {
		return nil, fmt.Errorf("tensor %s: %w", name, err)
	}

	size := e.DataOffsets[1] - e.DataOffsets[0]
	if size != int64(raw.ByteSize()) {
		return nil, &ValidationError{
			Err:     ErrOutOfBounds,
			Tensor:  name,
			Details: fmt.Sprintf("shape %v needs %d bytes, range holds %d", shape, raw.ByteSize(), size),
		}
	}
	copy(raw.Data(), data[e.DataOffsets[0]:e.DataOffsets[1]])
	return raw, nil
}

func dtypeToSafeTensors(dt tensor.DataType) (string, error) {
	switch dt {
	case tensor.Float32:
		return "F32", nil
	case tensor.Float64:
		return "F64", nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedDType, dt)
	}
}

func dtypeFromSafeTensors(s string) (tensor.DataType, error) {
	switch s {
	case "F32":
		return tensor.Float32, nil
	case "F64":
		return tensor.Float64, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedDType, s)
	}
}
