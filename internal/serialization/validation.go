package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Limits applied when reading untrusted files.
const (
	MaxHeaderSize    = 100 << 20
	MaxTensorCount   = 10000
	MaxTensorNameLen = 256
)

// ValidateTensorName rejects names that could be abused as paths.
func ValidateTensorName(name string) error {
	invalid := func(details string) error {
		return &ValidationError{Err: ErrInvalidTensorName, Tensor: name, Details: details}
	}

	switch {
	case name == "":
		return invalid("empty name")
	case len(name) > MaxTensorNameLen:
		return invalid(fmt.Sprintf("length %d > max %d", len(name), MaxTensorNameLen))
	case name == metadataKey:
		return invalid("reserved name")
	case strings.Contains(name, ".."):
		return invalid("contains '..'")
	case strings.ContainsAny(name, "/\\"):
		return invalid("contains path separator (/ or \\)")
	case strings.Contains(name, "\x00"):
		return invalid("contains null byte")
	}
	return nil
}

// validateOffsets checks that every tensor lies inside the data section
// and that no two tensors overlap.
func validateOffsets(entries map[string]tensorEntry, dataSize int64) error {
	names := make([]string, 0, len(entries))
	for name, e := range entries {
		start, end := e.DataOffsets[0], e.DataOffsets[1]
		if start < 0 || end < start || end > dataSize {
			return &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  name,
				Details: fmt.Sprintf("range [%d, %d) outside data section of %d bytes", start, end, dataSize),
			}
		}
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool {
		return entries[names[i]].DataOffsets[0] < entries[names[j]].DataOffsets[0]
	})
	for i := 1; i < len(names); i++ {
		prev, cur := entries[names[i-1]], entries[names[i]]
		if cur.DataOffsets[0] < prev.DataOffsets[1] {
			return &ValidationError{
				Err:     ErrOffsetOverlap,
				Tensor:  names[i-1],
				Tensor2: names[i],
				Details: fmt.Sprintf("[%d, %d) and [%d, %d)",
					prev.DataOffsets[0], prev.DataOffsets[1], cur.DataOffsets[0], cur.DataOffsets[1]),
			}
		}
	}
	return nil
}
