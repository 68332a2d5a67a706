package sketch

import (
	"testing"

	"fedsketch/tensor"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat"
)

func TestGenerateMatrixMoments(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	p := NewProjector(64, rng)
	g := p.GenerateMatrix(300, 50, tensor.CPU)

	r, c := g.Dims()
	require.Equal(t, 300, r)
	require.Equal(t, 50, c)

	data := g.Dense().RawMatrix().Data
	require.InDelta(t, 0.0, stat.Mean(data, nil), 0.05)
	require.InDelta(t, 1.0, stat.Variance(data, nil), 0.05)
}

func TestGenerateMatrixChunkingIsCosmetic(t *testing.T) {
	// chunk size changes generation order bookkeeping, not the shape or the
	// per-entry distribution
	for _, chunk := range []int{1, 7, 100, 1000} {
		rng := rand.New(rand.NewSource(2))
		g := NewProjector(chunk, rng).GenerateMatrix(123, 9, tensor.CPU)
		r, c := g.Dims()
		require.Equal(t, 123, r)
		require.Equal(t, 9, c)
		data := g.Dense().RawMatrix().Data
		require.InDelta(t, 0.0, stat.Mean(data, nil), 0.12)
		require.InDelta(t, 1.0, stat.Variance(data, nil), 0.12)
	}
}

func TestGenerateMatrixDevice(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := NewProjector(16, rng).GenerateMatrix(10, 4, "ctx:1")
	require.Equal(t, tensor.Device("ctx:1"), g.Device())
}
