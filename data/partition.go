package data

import (
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distmv"
)

// Partition splits sample indices across nNodes with Dirichlet label skew:
// each node draws a label distribution from Dirichlet(alpha * 1), and every
// label's samples are carved into contiguous runs proportional to the nodes'
// draws. Returns one index set per node, the realized per-node label
// distribution, and the label count. Labels are assumed to span
// [min(labels), max(labels)] densely.
func Partition(labels []int, nNodes int, alpha float64, rng *rand.Rand) ([][]int, [][]float64, int) {
	minLabel, maxLabel := labels[0], labels[0]
	for _, l := range labels {
		if l < minLabel {
			minLabel = l
		}
		if l > maxLabel {
			maxLabel = l
		}
	}
	numLabels := maxLabel - minLabel + 1

	alphaVec := make([]float64, numLabels)
	for i := range alphaVec {
		alphaVec[i] = alpha
	}
	dir := distmv.NewDirichlet(alphaVec, rng)
	nodeDist := make([][]float64, nNodes)
	for n := range nodeDist {
		nodeDist[n] = dir.Rand(nil)
	}

	sumProbPerLabel := make([]float64, numLabels)
	for _, d := range nodeDist {
		for i, p := range d {
			sumProbPerLabel[i] += p
		}
	}

	indicesPerLabel := make([][]int, numLabels)
	for j, l := range labels {
		indicesPerLabel[l-minLabel] = append(indicesPerLabel[l-minLabel], j)
	}

	idxSets := make([][]int, nNodes)
	start := make([]int, numLabels)
	cum := make([]float64, numLabels)
	for n := 0; n < nNodes; n++ {
		for i := 0; i < numLabels; i++ {
			cum[i] += nodeDist[n][i]
			end := int(math.Round(float64(len(indicesPerLabel[i])) * cum[i] / sumProbPerLabel[i]))
			if end > len(indicesPerLabel[i]) {
				end = len(indicesPerLabel[i])
			}
			idxSets[n] = append(idxSets[n], indicesPerLabel[i][start[i]:end]...)
			start[i] = end
		}
	}

	realized := make([][]float64, nNodes)
	for n := 0; n < nNodes; n++ {
		counts := make([]float64, numLabels)
		for _, j := range idxSets[n] {
			counts[labels[j]-minLabel]++
		}
		if len(idxSets[n]) > 0 {
			for i := range counts {
				counts[i] /= float64(len(idxSets[n]))
			}
		}
		realized[n] = counts
	}
	return idxSets, realized, numLabels
}
