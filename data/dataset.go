package data

import (
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Dataset is an in-memory sample matrix (rows are samples) with labels.
type Dataset struct {
	Inputs *mat.Dense
	Labels []int
}

func (ds *Dataset) Len() int {
	return len(ds.Labels)
}

// Subset copies the given rows into a new dataset; used with the partition
// index sets to build per-node datasets.
func (ds *Dataset) Subset(idxs []int) *Dataset {
	_, dim := ds.Inputs.Dims()
	out := mat.NewDense(len(idxs), dim, nil)
	labels := make([]int, len(idxs))
	for i, idx := range idxs {
		out.SetRow(i, mat.Row(nil, idx, ds.Inputs))
		labels[i] = ds.Labels[idx]
	}
	return &Dataset{Inputs: out, Labels: labels}
}

// Synthetic draws a Gaussian-blob classification set: one normal cluster per
// class around a randomly placed center. Keeps driver runs and tests
// hermetic; real data loading sits outside the core.
func Synthetic(n, dim, classes int, rng *rand.Rand) *Dataset {
	centerDist := distuv.Normal{Mu: 0, Sigma: 3, Src: rng}
	noise := distuv.Normal{Mu: 0, Sigma: 1, Src: rng}
	centers := make([][]float64, classes)
	for c := range centers {
		centers[c] = make([]float64, dim)
		for j := range centers[c] {
			centers[c][j] = centerDist.Rand()
		}
	}
	inputs := mat.NewDense(n, dim, nil)
	labels := make([]int, n)
	for i := 0; i < n; i++ {
		c := rng.Intn(classes)
		labels[i] = c
		for j := 0; j < dim; j++ {
			inputs.Set(i, j, centers[c][j]+noise.Rand())
		}
	}
	return &Dataset{Inputs: inputs, Labels: labels}
}

// BatchLoader chunks a dataset into fixed-size batches, reshuffling on every
// re-acquisition when constructed with an rng.
type BatchLoader struct {
	ds        *Dataset
	batchSize int
	rng       *rand.Rand
}

func NewBatchLoader(ds *Dataset, batchSize int, rng *rand.Rand) *BatchLoader {
	return &BatchLoader{ds: ds, batchSize: batchSize, rng: rng}
}

func (l *BatchLoader) Batches() []Batch {
	n := l.ds.Len()
	order := make([]int, n)
	if l.rng != nil {
		copy(order, l.rng.Perm(n))
	} else {
		for i := range order {
			order[i] = i
		}
	}
	_, dim := l.ds.Inputs.Dims()
	var out []Batch
	for start := 0; start < n; start += l.batchSize {
		end := start + l.batchSize
		if end > n {
			end = n
		}
		inputs := mat.NewDense(end-start, dim, nil)
		labels := make([]int, end-start)
		for i, idx := range order[start:end] {
			inputs.SetRow(i, mat.Row(nil, idx, l.ds.Inputs))
			labels[i] = l.ds.Labels[idx]
		}
		out = append(out, Batch{Inputs: inputs, Labels: labels})
	}
	return out
}
