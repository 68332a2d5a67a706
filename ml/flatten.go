package ml

import (
	"fedsketch/tensor"

	"github.com/pkg/errors"
)

// ErrFlattenMismatch means a flattened vector does not match the model's
// trainable parameter count. Structural mismatch, never padded or truncated.
var ErrFlattenMismatch = errors.New("ml: flattened vector length does not match model")

// ErrMissingGradient means gradient flattening ran before any backward pass
// populated a parameter's gradient buffer.
var ErrMissingGradient = errors.New("ml: gradient buffer not populated")

// FlattenParams concatenates all non-frozen parameter buffers, in declaration
// order, into one vector on the model's device. The result is a copy.
func FlattenParams(m Model) *tensor.Vector {
	out := make([]float64, 0, TrainableSize(m))
	for _, p := range m.Parameters() {
		if p.Frozen {
			continue
		}
		out = append(out, p.Data...)
	}
	return tensor.NewVector(m.Device(), out)
}

// UnflattenParams writes x back into the model's non-frozen parameters in the
// same order, in place, and clears any pending gradients. x must already be
// on the model's device.
func UnflattenParams(m Model, x *tensor.Vector) error {
	if x.Device() != m.Device() {
		return errors.Wrapf(tensor.ErrPlacement, "unflatten: vector on %s, model on %s", x.Device(), m.Device())
	}
	d := TrainableSize(m)
	if x.Len() != d {
		return errors.Wrapf(ErrFlattenMismatch, "got %d, model has %d", x.Len(), d)
	}
	raw := x.Raw()
	start := 0
	for _, p := range m.Parameters() {
		if p.Frozen {
			continue
		}
		n := p.Numel()
		copy(p.Data, raw[start:start+n])
		if p.Grad != nil {
			for i := range p.Grad {
				p.Grad[i] = 0
			}
		}
		start += n
	}
	return nil
}

// FlattenGrads concatenates all non-frozen gradient buffers in declaration
// order onto the model's device.
func FlattenGrads(m Model) (*tensor.Vector, error) {
	out := make([]float64, 0, TrainableSize(m))
	for _, p := range m.Parameters() {
		if p.Frozen {
			continue
		}
		if p.Grad == nil {
			return nil, errors.Wrap(ErrMissingGradient, p.Name)
		}
		out = append(out, p.Grad...)
	}
	return tensor.NewVector(m.Device(), out), nil
}
