// Package ml holds the trainable-parameter machinery: the parameter store,
// the flatten/unflatten mapping to one contiguous vector, a small MLP used as
// the interchangeable architecture, and a vanilla SGD optimizer.
package ml

import (
	"fedsketch/tensor"

	"gonum.org/v1/gonum/mat"
)

// Param is one named trainable buffer. Grad stays nil until a backward pass
// touches the parameter. Frozen params are excluded from flattening and from
// optimizer steps.
type Param struct {
	Name   string
	Shape  []int
	Data   []float64
	Grad   []float64
	Frozen bool
}

func (p *Param) Numel() int {
	n := 1
	for _, s := range p.Shape {
		n *= s
	}
	return n
}

func (p *Param) ensureGrad() []float64 {
	if p.Grad == nil {
		p.Grad = make([]float64, len(p.Data))
	}
	return p.Grad
}

// Model is the structural contract the flatten store and the agents depend
// on: enumerable named parameters in a fixed declaration order, a train/eval
// mode switch, and forward/backward over a batch of row vectors.
type Model interface {
	Parameters() []*Param
	Device() tensor.Device
	To(dev tensor.Device)
	Train()
	Eval()
	ZeroGrad()
	// Forward returns logits for a batch (rows are samples). In training
	// mode activations are cached for the following Backward.
	Forward(inputs *mat.Dense) *mat.Dense
	// Backward accumulates parameter gradients for the last Forward given
	// the loss gradient w.r.t. the logits.
	Backward(dlogits *mat.Dense)
}

// TrainableSize returns D, the total element count of all non-frozen params.
func TrainableSize(m Model) int {
	d := 0
	for _, p := range m.Parameters() {
		if p.Frozen {
			continue
		}
		d += p.Numel()
	}
	return d
}
