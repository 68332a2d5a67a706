// Package tensor wraps gonum vectors and matrices with an explicit compute
// context tag. Every operation requires its operands to live on the same
// context; migration is always explicit through To.
package tensor

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Device names a compute context ("cpu", "cuda:0", ...). The simulation runs
// on one host, so placement is bookkeeping, but ops still refuse to mix
// contexts the way a real accelerator runtime would.
type Device string

const CPU Device = "cpu"

// ErrPlacement is returned when an operation spans two compute contexts
// without an explicit migration first.
var ErrPlacement = errors.New("tensor: operands resident on different devices")

func checkSame(a, b Device) error {
	if a != b {
		return errors.Wrapf(ErrPlacement, "%s vs %s", a, b)
	}
	return nil
}

// Vector is a 1-D buffer resident on one device.
type Vector struct {
	dev Device
	v   *mat.VecDense
}

// NewVector copies data into a fresh vector on dev.
func NewVector(dev Device, data []float64) *Vector {
	buf := make([]float64, len(data))
	copy(buf, data)
	return &Vector{dev: dev, v: mat.NewVecDense(len(buf), buf)}
}

// Zeros allocates an all-zero vector of length n on dev.
func Zeros(dev Device, n int) *Vector {
	return &Vector{dev: dev, v: mat.NewVecDense(n, nil)}
}

func (x *Vector) Len() int       { return x.v.Len() }
func (x *Vector) Device() Device { return x.dev }
func (x *Vector) At(i int) float64 {
	return x.v.AtVec(i)
}

// Raw exposes the backing slice. Callers own the aliasing consequences.
func (x *Vector) Raw() []float64 {
	return x.v.RawVector().Data
}

func (x *Vector) Clone() *Vector {
	return NewVector(x.dev, x.Raw())
}

// To copies the vector onto dev. The result never aliases the receiver, so a
// migrated vector is always a snapshot.
func (x *Vector) To(dev Device) *Vector {
	return NewVector(dev, x.Raw())
}

func (x *Vector) Zero() {
	raw := x.Raw()
	for i := range raw {
		raw[i] = 0
	}
}

// AxpyInPlace computes x += alpha*y.
func (x *Vector) AxpyInPlace(alpha float64, y *Vector) error {
	if err := checkSame(x.dev, y.dev); err != nil {
		return errors.Wrap(err, "axpy")
	}
	if x.Len() != y.Len() {
		return errors.Errorf("tensor: axpy length mismatch %d vs %d", x.Len(), y.Len())
	}
	floats.AddScaled(x.Raw(), alpha, y.Raw())
	return nil
}

func (x *Vector) AddInPlace(y *Vector) error {
	return x.AxpyInPlace(1, y)
}

func (x *Vector) ScaleInPlace(alpha float64) {
	floats.Scale(alpha, x.Raw())
}

// MSE returns the mean squared difference between a and b.
func MSE(a, b *Vector) (float64, error) {
	if err := checkSame(a.dev, b.dev); err != nil {
		return 0, errors.Wrap(err, "mse")
	}
	if a.Len() != b.Len() {
		return 0, errors.Errorf("tensor: mse length mismatch %d vs %d", a.Len(), b.Len())
	}
	ar, br := a.Raw(), b.Raw()
	var sum float64
	for i := range ar {
		d := ar[i] - br[i]
		sum += d * d
	}
	return sum / float64(len(ar)), nil
}
