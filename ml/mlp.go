package ml

import (
	"math"

	"fedsketch/tensor"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// MLP is a one-hidden-layer ReLU network. The architecture is deliberately
// interchangeable; the interesting parts of the system only see it through
// the Model interface.
type MLP struct {
	in, hidden, out int
	w1, b1, w2, b2  *Param
	dev             tensor.Device
	training        bool

	// activations cached by the last training-mode Forward
	lastX, lastH *mat.Dense
}

func NewMLP(in, hidden, out int, dev tensor.Device, rng *rand.Rand) *MLP {
	m := &MLP{
		in:     in,
		hidden: hidden,
		out:    out,
		dev:    dev,
		w1:     &Param{Name: "w1", Shape: []int{in, hidden}, Data: make([]float64, in*hidden)},
		b1:     &Param{Name: "b1", Shape: []int{hidden}, Data: make([]float64, hidden)},
		w2:     &Param{Name: "w2", Shape: []int{hidden, out}, Data: make([]float64, hidden*out)},
		b2:     &Param{Name: "b2", Shape: []int{out}, Data: make([]float64, out)},
	}
	// He init for the ReLU layer, plain scaled normal for the head
	n1 := distuv.Normal{Mu: 0, Sigma: math.Sqrt(2.0 / float64(in)), Src: rng}
	for i := range m.w1.Data {
		m.w1.Data[i] = n1.Rand()
	}
	n2 := distuv.Normal{Mu: 0, Sigma: math.Sqrt(1.0 / float64(hidden)), Src: rng}
	for i := range m.w2.Data {
		m.w2.Data[i] = n2.Rand()
	}
	return m
}

func (m *MLP) Parameters() []*Param {
	return []*Param{m.w1, m.b1, m.w2, m.b2}
}

func (m *MLP) Device() tensor.Device { return m.dev }
func (m *MLP) To(dev tensor.Device)  { m.dev = dev }
func (m *MLP) Train()                { m.training = true }
func (m *MLP) Eval()                 { m.training = false }

func (m *MLP) Forward(x *mat.Dense) *mat.Dense {
	b, _ := x.Dims()
	w1 := mat.NewDense(m.in, m.hidden, m.w1.Data)
	h := mat.NewDense(b, m.hidden, nil)
	h.Mul(x, w1)
	for i := 0; i < b; i++ {
		for j := 0; j < m.hidden; j++ {
			v := h.At(i, j) + m.b1.Data[j]
			if v < 0 {
				v = 0
			}
			h.Set(i, j, v)
		}
	}
	w2 := mat.NewDense(m.hidden, m.out, m.w2.Data)
	logits := mat.NewDense(b, m.out, nil)
	logits.Mul(h, w2)
	for i := 0; i < b; i++ {
		for j := 0; j < m.out; j++ {
			logits.Set(i, j, logits.At(i, j)+m.b2.Data[j])
		}
	}
	if m.training {
		m.lastX, m.lastH = x, h
	}
	return logits
}

// Backward accumulates gradients for the last training-mode Forward.
func (m *MLP) Backward(dlogits *mat.Dense) {
	b, _ := dlogits.Dims()

	gw2 := mat.NewDense(m.hidden, m.out, nil)
	gw2.Mul(m.lastH.T(), dlogits)
	floats.Add(m.w2.ensureGrad(), gw2.RawMatrix().Data)

	gb2 := m.b2.ensureGrad()
	for i := 0; i < b; i++ {
		for j := 0; j < m.out; j++ {
			gb2[j] += dlogits.At(i, j)
		}
	}

	w2 := mat.NewDense(m.hidden, m.out, m.w2.Data)
	dh := mat.NewDense(b, m.hidden, nil)
	dh.Mul(dlogits, w2.T())
	for i := 0; i < b; i++ {
		for j := 0; j < m.hidden; j++ {
			if m.lastH.At(i, j) <= 0 {
				dh.Set(i, j, 0)
			}
		}
	}

	gw1 := mat.NewDense(m.in, m.hidden, nil)
	gw1.Mul(m.lastX.T(), dh)
	floats.Add(m.w1.ensureGrad(), gw1.RawMatrix().Data)

	gb1 := m.b1.ensureGrad()
	for i := 0; i < b; i++ {
		for j := 0; j < m.hidden; j++ {
			gb1[j] += dh.At(i, j)
		}
	}
}

// ZeroGrad clears every populated gradient buffer.
func (m *MLP) ZeroGrad() {
	for _, p := range m.Parameters() {
		if p.Grad == nil {
			continue
		}
		for i := range p.Grad {
			p.Grad[i] = 0
		}
	}
}
