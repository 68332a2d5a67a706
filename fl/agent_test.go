package fl

import (
	"testing"

	"fedsketch/config"
	"fedsketch/data"
	"fedsketch/ml"
	"fedsketch/tensor"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.F = 16
	cfg.F1 = 8
	cfg.F2 = 8
	cfg.ChunkSize = 8
	cfg.InputDim = 4
	cfg.HiddenDim = 6
	cfg.Classes = 3
	cfg.NumClients = 2
	cfg.ClientsPerRound = 2
	return cfg
}

func testAgent(id int, nSamples, batchSize int, seed uint64) *Agent {
	rng := rand.New(rand.NewSource(seed))
	ds := data.Synthetic(nSamples, 4, 3, rng)
	cursor := data.NewCursor(data.NewBatchLoader(ds, batchSize, rng))
	model := ml.NewMLP(4, 6, 3, tensor.CPU, rng)
	opt := ml.NewSGD(model.Parameters(), 0.05, 0)
	return NewAgent(id, model, opt, nil, cursor, tensor.CPU)
}

func TestTrainKStepsWithinEpoch(t *testing.T) {
	a := testAgent(0, 8, 4, 1) // exactly 2 batches per epoch
	loss, acc, err := a.TrainKSteps(2)
	require.NoError(t, err)
	require.Equal(t, 0, a.Epoch())
	require.Equal(t, 2, a.trainLoss.Count())
	require.Equal(t, 2, a.cursor.Pos())
	require.Greater(t, loss, 0.0)
	require.GreaterOrEqual(t, acc, 0.0)

	// the round's transmitted quantity is the sum of per-step gradients
	var nonZero bool
	for _, v := range a.ModelGrad().Raw() {
		if v != 0 {
			nonZero = true
			break
		}
	}
	require.True(t, nonZero)
	require.Equal(t, ml.TrainableSize(a.model), a.ModelGrad().Len())
}

func TestTrainKStepsEpochBoundary(t *testing.T) {
	a := testAgent(0, 8, 4, 2) // N = 2 batches
	loss, acc, err := a.TrainKSteps(2 + 2)
	require.NoError(t, err)
	require.Greater(t, loss, 0.0)
	require.GreaterOrEqual(t, acc, 0.0)

	// exhaustion incremented the epoch exactly once, re-armed the cursor
	// and reset the running metrics
	require.Equal(t, 1, a.Epoch())
	require.Equal(t, 0, a.cursor.Pos())
	require.Equal(t, 0, a.trainLoss.Count())

	// the next call begins again from batch 0
	_, _, err = a.TrainKSteps(1)
	require.NoError(t, err)
	require.Equal(t, 1, a.cursor.Pos())
	require.Equal(t, 1, a.trainLoss.Count())
	require.Equal(t, 1, a.Epoch())
}

func TestTrainKStepsResetsAccumulatedGradient(t *testing.T) {
	a := testAgent(0, 8, 4, 3)
	_, _, err := a.TrainKSteps(1)
	require.NoError(t, err)
	first := append([]float64(nil), a.ModelGrad().Raw()...)

	_, _, err = a.TrainKSteps(1)
	require.NoError(t, err)
	second := a.ModelGrad().Raw()

	// fresh buffer per call, not carried over
	require.NotEqual(t, first, second)
}

func TestPullModelFromServer(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(4))
	srv, err := NewServer(cfg, ml.NewMLP(4, 6, 3, cfg.ServerDevice, rng), rng)
	require.NoError(t, err)

	a := testAgent(0, 8, 4, 5)
	require.NoError(t, a.PullModelFromServer(srv))
	require.Equal(t, srv.FlatParams().Raw(), ml.FlattenParams(a.model).Raw())
}

func TestDecayLR(t *testing.T) {
	a := testAgent(0, 8, 4, 6)
	lr := a.opt.Groups[0].LR
	a.DecayLR(0.5)
	require.Equal(t, lr*0.5, a.opt.Groups[0].LR)
}

func TestEvaluate(t *testing.T) {
	a := testAgent(0, 32, 8, 7)
	rng := rand.New(rand.NewSource(8))
	test := data.Synthetic(16, 4, 3, rng)
	loss, acc, err := a.Evaluate(data.NewBatchLoader(test, 8, nil))
	require.NoError(t, err)
	require.Greater(t, loss, 0.0)
	require.GreaterOrEqual(t, acc, 0.0)
	require.LessOrEqual(t, acc, 1.0)
}
