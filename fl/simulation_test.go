package fl

import (
	"testing"

	"fedsketch/data"
	"fedsketch/ml"

	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

// end-to-end: a few rounds over a tiny federation, single and split sketch.
func TestSimulationRun(t *testing.T) {
	for _, split := range []bool{false, true} {
		cfg := testConfig()
		cfg.Split = split
		cfg.Rounds = 3
		cfg.LocalSteps = 2
		cfg.EvalEvery = 1
		cfg.Sampling.Secondary = ""

		rng := rand.New(rand.NewSource(9))
		train := data.Synthetic(64, cfg.InputDim, cfg.Classes, rng)
		test := data.Synthetic(32, cfg.InputDim, cfg.Classes, rng)
		parts, _, _ := data.Partition(train.Labels, cfg.NumClients, 10.0, rng)

		srv, err := NewServer(cfg, ml.NewMLP(cfg.InputDim, cfg.HiddenDim, cfg.Classes, cfg.ServerDevice, rng), rng)
		require.NoError(t, err)

		agents := make([]*Agent, cfg.NumClients)
		for i := range agents {
			sub := train.Subset(parts[i])
			cursor := data.NewCursor(data.NewBatchLoader(sub, cfg.BatchSize, rng))
			model := ml.NewMLP(cfg.InputDim, cfg.HiddenDim, cfg.Classes, cfg.ClientDevice, rng)
			opt := ml.NewSGD(model.Parameters(), cfg.LocalLR, cfg.Momentum)
			agents[i] = NewAgent(i, model, opt, nil, cursor, cfg.ClientDevice)
		}

		sim := NewSimulation(cfg, srv, agents, data.NewBatchLoader(test, cfg.BatchSize, nil), rng, nil)
		require.NoError(t, sim.Run())
	}
}
