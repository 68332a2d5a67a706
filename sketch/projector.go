// Package sketch implements the random-projection gradient compression: a
// chunked Gaussian projector, the weights/reconstruct compressor, and the
// variant that partitions the sketch across two compute contexts.
package sketch

import (
	"fedsketch/tensor"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Projector draws fresh i.i.d. standard-normal projection matrices. One
// matrix is used for every client within exactly one round, then discarded.
type Projector struct {
	ChunkSize int
	rng       *rand.Rand
}

func NewProjector(chunkSize int, rng *rand.Rand) *Projector {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Projector{ChunkSize: chunkSize, rng: rng}
}

// GenerateMatrix fills a d x f matrix in row blocks of ChunkSize rows.
// Entries are independent N(0,1) regardless of block boundaries; blocking
// only bounds how much is generated per pass for large d.
func (p *Projector) GenerateMatrix(d, f int, dev tensor.Device) *tensor.Matrix {
	g := tensor.NewMatrix(dev, d, f)
	normal := distuv.Normal{Mu: 0, Sigma: 1, Src: p.rng}
	raw := g.Dense().RawMatrix()
	for i := 0; i < d; i += p.ChunkSize {
		end := i + p.ChunkSize
		if end > d {
			end = d
		}
		for r := i; r < end; r++ {
			row := raw.Data[r*raw.Stride : r*raw.Stride+f]
			for c := range row {
				row[c] = normal.Rand()
			}
		}
	}
	return g
}
