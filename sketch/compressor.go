package sketch

import (
	"fedsketch/tensor"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// weightChunkSize bounds the row block used when accumulating G^T @ delta.
const weightChunkSize = 1000

// ApproximateWeights computes w = G^T @ delta / f, the low-dimensional sketch
// of delta, accumulating over row chunks of G. G and delta must already be
// colocated; the caller migrates explicitly if they are not.
func ApproximateWeights(G *tensor.Matrix, delta *tensor.Vector, f int) (*tensor.Vector, error) {
	if G.Device() != delta.Device() {
		return nil, errors.Wrapf(tensor.ErrPlacement, "weights: matrix on %s, delta on %s", G.Device(), delta.Device())
	}
	d, cols := G.Dims()
	if cols != f {
		return nil, errors.Errorf("sketch: matrix has %d columns, sketch width is %d", cols, f)
	}
	if delta.Len() != d {
		return nil, errors.Errorf("sketch: delta length %d does not match matrix rows %d", delta.Len(), d)
	}
	w := tensor.Zeros(G.Device(), f)
	dRaw := delta.Raw()
	tmp := mat.NewVecDense(f, nil)
	for i := 0; i < d; i += weightChunkSize {
		end := i + weightChunkSize
		if end > d {
			end = d
		}
		gChunk := G.Dense().Slice(i, end, 0, f).(*mat.Dense)
		dChunk := mat.NewVecDense(end-i, dRaw[i:end])
		tmp.MulVec(gChunk.T(), dChunk)
		floats.AddScaled(w.Raw(), 1/float64(f), tmp.RawVector().Data)
	}
	return w, nil
}

// Reconstruct maps a weight vector back to the full dimension: G @ w.
func Reconstruct(G *tensor.Matrix, w *tensor.Vector) (*tensor.Vector, error) {
	out, err := G.MulVec(w)
	if err != nil {
		return nil, errors.Wrap(err, "reconstruct")
	}
	return out, nil
}

// Compressor binds a sketch width to the single-matrix compress/reconstruct
// pipeline.
type Compressor struct {
	F int
}

// CompressReconstruct sketches delta with G and reconstructs the approximate
// gradient, returning it on G's device together with the diagnostic mean
// squared reconstruction error. The MSE is observability only; it never
// feeds the update.
func (c Compressor) CompressReconstruct(G *tensor.Matrix, delta *tensor.Vector) (*tensor.Vector, float64, error) {
	w, err := ApproximateWeights(G, delta, c.F)
	if err != nil {
		return nil, 0, err
	}
	gw, err := Reconstruct(G, w)
	if err != nil {
		return nil, 0, err
	}
	mse, err := tensor.MSE(delta, gw)
	if err != nil {
		return nil, 0, err
	}
	return gw, mse, nil
}
