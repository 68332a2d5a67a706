package tensor

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// Matrix is a dense 2-D buffer resident on one device.
type Matrix struct {
	dev Device
	m   *mat.Dense
}

// NewMatrix allocates an all-zero r x c matrix on dev.
func NewMatrix(dev Device, r, c int) *Matrix {
	return &Matrix{dev: dev, m: mat.NewDense(r, c, nil)}
}

func (g *Matrix) Dims() (int, int) { return g.m.Dims() }
func (g *Matrix) Device() Device   { return g.dev }

// Dense exposes the underlying gonum matrix for fills and products. Callers
// must keep results on g's device.
func (g *Matrix) Dense() *mat.Dense {
	return g.m
}

// MulVec computes g @ x on g's device.
func (g *Matrix) MulVec(x *Vector) (*Vector, error) {
	if err := checkSame(g.dev, x.dev); err != nil {
		return nil, errors.Wrap(err, "mulvec")
	}
	r, c := g.m.Dims()
	if c != x.Len() {
		return nil, errors.Errorf("tensor: mulvec shape mismatch (%d,%d) @ %d", r, c, x.Len())
	}
	out := Zeros(g.dev, r)
	out.v.MulVec(g.m, x.v)
	return out, nil
}
