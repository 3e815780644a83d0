package nn

import (
	"fmt"
	"io"
	"strconv"

	"github.com/destin-ml/destin/internal/serialization"
	"github.com/destin-ml/destin/internal/tensor"
)

const checkpointFormat = "destin-conv"

// SaveParameters writes the filters and bias to w in SafeTensors format,
// keyed by parameter name. It waits for in-flight updates.
func (l *ConvLayer[B]) SaveParameters(w io.Writer) error {
	filters, unlockW := l.filters.read()
	defer unlockW()
	bias, unlockB := l.bias.read()
	defer unlockB()

	meta := map[string]string{
		"format":       checkpointFormat,
		"layer_number": strconv.Itoa(l.cfg.LayerNumber),
		"activation":   l.cfg.Activation,
		"border_mode":  string(l.cfg.BorderMode),
	}
	err := serialization.Write(w, map[string]*tensor.RawTensor{
		l.filters.Name(): filters.Raw(),
		l.bias.Name():    bias.Raw(),
	}, meta)
	if err != nil {
		return fmt.Errorf("nn: save parameters: %w", err)
	}
	return nil
}

// LoadParameters replaces the filters and bias with values written by
// SaveParameters. Both parameters are checked before either changes, and
// both change under their write locks, so a concurrent Forward sees either
// the old pair or the new one. The cached construction output is not
// recomputed.
func (l *ConvLayer[B]) LoadParameters(r io.Reader) error {
	tensors, meta, err := serialization.Read(r, l.engine.Device())
	if err != nil {
		return fmt.Errorf("nn: load parameters: %w", err)
	}
	if f := meta["format"]; f != "" && f != checkpointFormat {
		return configErrorf("checkpoint", "unknown format %q", f)
	}

	params := l.Parameters()
	values := make([]*tensor.Tensor[float32, B], len(params))
	for i, p := range params {
		raw, ok := tensors[p.Name()]
		if !ok {
			return configErrorf(p.Name(), "missing from checkpoint")
		}
		if raw.DType() != tensor.Float32 {
			return configErrorf(p.Name(), "dtype %s, want %s", raw.DType(), tensor.Float32)
		}
		if want := p.Shape(); !raw.Shape().Equal(want) {
			return configErrorf(p.Name(), "shape %v does not match %v", raw.Shape(), want)
		}
		values[i] = tensor.New[float32, B](raw, l.engine)
	}

	// Lock order: filters, then bias.
	for _, p := range params {
		p.mu.Lock()
		defer p.mu.Unlock()
	}
	for i, p := range params {
		p.tensor = values[i]
	}

	l.logger.Debug("parameters loaded", "layer", l.cfg.LayerNumber)
	return nil
}
