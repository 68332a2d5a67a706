package sketch

import (
	"fedsketch/tensor"

	"github.com/pkg/errors"
)

// SplitCompressor partitions the sketch across two compute contexts: G1
// (d x f1) on the first, G2 (d x f2) on the second, with f1+f2 equal to the
// configured total width. The delta is duplicated onto both contexts, each
// half is sketched and reconstructed independently, and the two
// reconstructions are joined on the first context. This models splitting the
// sketch compute across two accelerators; it is not claimed to be numerically
// interchangeable with the single-matrix pipeline.
type SplitCompressor struct {
	G1, G2 *tensor.Matrix
	F1, F2 int
}

func NewSplitCompressor(g1, g2 *tensor.Matrix, f1, f2 int) (*SplitCompressor, error) {
	if _, c := g1.Dims(); c != f1 {
		return nil, errors.Errorf("sketch: G1 has %d columns, want %d", c, f1)
	}
	if _, c := g2.Dims(); c != f2 {
		return nil, errors.Errorf("sketch: G2 has %d columns, want %d", c, f2)
	}
	return &SplitCompressor{G1: g1, G2: g2, F1: f1, F2: f2}, nil
}

// CompressReconstruct sketches delta on both contexts and returns the summed
// reconstruction on G1's context plus the diagnostic MSE against delta.
func (s *SplitCompressor) CompressReconstruct(delta *tensor.Vector) (*tensor.Vector, float64, error) {
	d1 := delta.To(s.G1.Device())
	d2 := d1.To(s.G2.Device())

	w1, err := ApproximateWeights(s.G1, d1, s.F1)
	if err != nil {
		return nil, 0, errors.Wrap(err, "ctx1 weights")
	}
	w2, err := ApproximateWeights(s.G2, d2, s.F2)
	if err != nil {
		return nil, 0, errors.Wrap(err, "ctx2 weights")
	}

	gw1, err := Reconstruct(s.G1, w1)
	if err != nil {
		return nil, 0, errors.Wrap(err, "ctx1 reconstruct")
	}
	gw2, err := Reconstruct(s.G2, w2)
	if err != nil {
		return nil, 0, errors.Wrap(err, "ctx2 reconstruct")
	}

	// join on the first context
	if err := gw1.AddInPlace(gw2.To(s.G1.Device())); err != nil {
		return nil, 0, err
	}
	mse, err := tensor.MSE(d1, gw1)
	if err != nil {
		return nil, 0, err
	}
	return gw1, mse, nil
}
