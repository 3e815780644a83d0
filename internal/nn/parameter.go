package nn

import (
	"fmt"
	"sync"

	"github.com/destin-ml/destin/internal/tensor"
)

// Parameter is a learnable tensor owned by a layer.
//
// Forward passes read the value under a read lock; an optimizer replaces or
// edits it through Update, which takes the write lock. Updates therefore
// wait for in-flight forward passes and never interleave with one.
//
// Example:
//
//	// Scale the filters between training steps
//	err := layer.Filters().Update(func(w []float32) error {
//		for i := range w {
//			w[i] *= 0.5
//		}
//		return nil
//	})
type Parameter[B tensor.Backend] struct {
	name string

	mu     sync.RWMutex
	tensor *tensor.Tensor[float32, B]
}

// NewParameter creates a new learnable parameter.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{
		name:   name,
		tensor: t,
	}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// Shape returns the parameter's shape. It never changes.
func (p *Parameter[B]) Shape() tensor.Shape {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tensor.Shape()
}

// Tensor returns a snapshot copy of the current value.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.tensor.Clone()
}

// Update runs fn on the parameter's storage under the write lock.
// fn must not retain the slice.
func (p *Parameter[B]) Update(fn func(data []float32) error) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := fn(p.tensor.Data()); err != nil {
		return fmt.Errorf("nn: update %s: %w", p.name, err)
	}
	return nil
}

// Set replaces the value with a same-shaped tensor.
func (p *Parameter[B]) Set(t *tensor.Tensor[float32, B]) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !t.Shape().Equal(p.tensor.Shape()) {
		return configErrorf(p.name, "shape %v does not match %v", t.Shape(), p.tensor.Shape())
	}
	p.tensor = t.Clone()
	return nil
}

// read locks the parameter for a forward pass and returns the live value
// together with the matching unlock.
func (p *Parameter[B]) read() (*tensor.Tensor[float32, B], func()) {
	p.mu.RLock()
	return p.tensor, p.mu.RUnlock
}

// String returns a string representation of the parameter.
func (p *Parameter[B]) String() string {
	return fmt.Sprintf("Parameter(%s, shape=%v)", p.name, p.Shape())
}
