package ml

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// CrossEntropy is softmax cross-entropy over logits, averaged over the batch.
type CrossEntropy struct{}

// Loss returns the mean loss and the gradient w.r.t. the logits
// ((softmax - onehot) / batch), ready to feed Model.Backward.
func (CrossEntropy) Loss(logits *mat.Dense, labels []int) (float64, *mat.Dense) {
	b, c := logits.Dims()
	dlogits := mat.NewDense(b, c, nil)
	var total float64
	for i := 0; i < b; i++ {
		max := logits.At(i, 0)
		for j := 1; j < c; j++ {
			if v := logits.At(i, j); v > max {
				max = v
			}
		}
		var sum float64
		for j := 0; j < c; j++ {
			sum += math.Exp(logits.At(i, j) - max)
		}
		logSum := math.Log(sum)
		total += logSum - (logits.At(i, labels[i]) - max)
		for j := 0; j < c; j++ {
			p := math.Exp(logits.At(i, j)-max) / sum
			if j == labels[i] {
				p -= 1
			}
			dlogits.Set(i, j, p/float64(b))
		}
	}
	return total / float64(b), dlogits
}

// Accuracy is the fraction of rows whose argmax matches the label.
func Accuracy(logits *mat.Dense, labels []int) float64 {
	b, c := logits.Dims()
	correct := 0
	for i := 0; i < b; i++ {
		best, bestV := 0, logits.At(i, 0)
		for j := 1; j < c; j++ {
			if v := logits.At(i, j); v > bestV {
				best, bestV = j, v
			}
		}
		if best == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(b)
}
