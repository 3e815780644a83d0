package nn

import (
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/destin-ml/destin/internal/backend/cpu"
	"github.com/destin-ml/destin/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
)

// randomInput returns a tensor with entries uniform in [lo, hi).
func randomInput(t *testing.T, shape tensor.Shape, seed uint64, lo, hi float64) *tensor.Tensor[float32, *cpu.CPUBackend] {
	t.Helper()
	x := tensor.Zeros[float32](shape, cpu.New())
	Uniform(x.Data(), lo, hi, rand.NewPCG(seed, seed+1))
	return x
}

// countingEngine records how often convolution kernels run.
type countingEngine struct {
	*cpu.CPUBackend

	mu         sync.Mutex
	conv2d     int
	filterActs int
}

func newCountingEngine() *countingEngine {
	return &countingEngine{CPUBackend: cpu.New()}
}

func (e *countingEngine) Conv2D(input, kernel *tensor.RawTensor, stride, padding [2]int) *tensor.RawTensor {
	e.mu.Lock()
	e.conv2d++
	e.mu.Unlock()
	return e.CPUBackend.Conv2D(input, kernel, stride, padding)
}

func (e *countingEngine) FilterActs(input, filters *tensor.RawTensor, padding int) *tensor.RawTensor {
	e.mu.Lock()
	e.filterActs++
	e.mu.Unlock()
	return e.CPUBackend.FilterActs(input, filters, padding)
}

func (e *countingEngine) calls() (conv2d, filterActs int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv2d, e.filterActs
}

// acceleratorEngine is the CPU engine declared as an accelerator, so the
// hardware strategy takes its accelerated path in tests.
type acceleratorEngine struct {
	*cpu.CPUBackend
}

func (acceleratorEngine) Device() tensor.Device { return tensor.WebGPU }

// plainAccelerator is an accelerator engine without a filter-acts kernel.
type plainAccelerator struct {
	tensor.Backend
}

func (plainAccelerator) Device() tensor.Device { return tensor.WebGPU }

// assertAllClose checks want and got agree elementwise within rtol
// relative to the element magnitude, or rtol absolute near zero.
func assertAllClose(t *testing.T, want, got []float32, rtol float64, msgAndArgs ...any) bool {
	t.Helper()
	if !assert.Len(t, got, len(want), msgAndArgs...) {
		return false
	}
	for i := range want {
		if !floats.EqualWithinAbsOrRel(float64(want[i]), float64(got[i]), rtol, rtol) {
			return assert.Fail(t, fmt.Sprintf("element %d: want %v, got %v (rtol %g)", i, want[i], got[i], rtol), msgAndArgs...)
		}
	}
	return true
}

func requireShape(t *testing.T, want tensor.Shape, got tensor.Shape) {
	t.Helper()
	require.True(t, want.Equal(got), "expected shape %v, got %v", want, got)
}
