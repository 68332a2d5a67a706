package fl

import (
	"fedsketch/config"
	"fedsketch/data"
	"fedsketch/util"

	"golang.org/x/exp/rand"
)

// Simulation drives the whole run: one process, rounds in sequence, clients
// in sequence within each round. A round's fold is one atomic read-modify-
// write of the global vector; the projection matrix regenerates only after
// the last client of the round is in.
type Simulation struct {
	cfg        *config.Config
	server     *Server
	agents     []*Agent
	testLoader data.Loader
	rng        *rand.Rand
	hist       *util.History
}

func NewSimulation(cfg *config.Config, server *Server, agents []*Agent, testLoader data.Loader, rng *rand.Rand, hist *util.History) *Simulation {
	return &Simulation{
		cfg:        cfg,
		server:     server,
		agents:     agents,
		testLoader: testLoader,
		rng:        rng,
		hist:       hist,
	}
}

func (sim *Simulation) Run() error {
	var testLoss, testAcc float64
	for round := 0; round < sim.cfg.Rounds; round++ {
		scheme := sim.server.DetermineSampling(sim.cfg.Sampling.Q, sim.cfg.Sampling)
		picked := SampleClients(sim.rng, len(sim.agents), sim.cfg.ClientsPerRound)
		selected := make([]*Agent, len(picked))
		for i, idx := range picked {
			selected[i] = sim.agents[idx]
		}

		for _, a := range selected {
			if err := a.PullModelFromServer(sim.server); err != nil {
				return err
			}
		}
		trainLoss, trainAcc, err := LocalUpdateClients(selected, sim.cfg.LocalSteps)
		if err != nil {
			return err
		}
		if err := sim.server.AverageClients(selected); err != nil {
			return err
		}

		if sim.cfg.EvalEvery > 0 && round%sim.cfg.EvalEvery == 0 {
			testLoss, testAcc, err = sim.server.Evaluate(sim.testLoader)
			if err != nil {
				return err
			}
			util.Logger.Info("eval",
				"round", round,
				"scheme", scheme,
				"train_loss", trainLoss,
				"train_acc", trainAcc,
				"test_loss", testLoss,
				"test_acc", testAcc,
			)
		}
		for _, a := range sim.agents {
			a.RoundEnd(round)
		}
		if sim.hist != nil {
			sim.hist.Record(round, trainLoss, trainAcc, testLoss, testAcc)
		}
	}
	return nil
}
