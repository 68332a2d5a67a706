package main

import (
	"flag"
	"fmt"
	"os"

	"fedsketch/config"
	"fedsketch/data"
	"fedsketch/fl"
	"fedsketch/ml"
	"fedsketch/util"

	"github.com/google/uuid"
	"golang.org/x/exp/rand"
)

func main() {
	cfgPath := flag.String("config", "", "yaml config file; built-in defaults apply when empty")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	util.InitLogger("fedsketch", cfg.LogLevel)

	runID := uuid.NewString()[:8]
	util.Logger.Info("starting run", "id", runID, "algo", cfg.Algo, "split", cfg.Split, "f", cfg.F)

	rng := rand.New(rand.NewSource(cfg.Seed))

	train := data.Synthetic(cfg.TrainSize, cfg.InputDim, cfg.Classes, rng)
	test := data.Synthetic(cfg.TestSize, cfg.InputDim, cfg.Classes, rng)
	parts, labelDists, _ := data.Partition(train.Labels, cfg.NumClients, cfg.DirichletAlpha, rng)

	server, err := fl.NewServer(cfg, ml.NewMLP(cfg.InputDim, cfg.HiddenDim, cfg.Classes, cfg.ServerDevice, rng), rng)
	if err != nil {
		util.Logger.Error("server init failed", "err", err)
		os.Exit(1)
	}

	agents := make([]*fl.Agent, cfg.NumClients)
	for i := range agents {
		sub := train.Subset(parts[i])
		cursor := data.NewCursor(data.NewBatchLoader(sub, cfg.BatchSize, rng))
		model := ml.NewMLP(cfg.InputDim, cfg.HiddenDim, cfg.Classes, cfg.ClientDevice, rng)
		opt := ml.NewSGD(model.Parameters(), cfg.LocalLR, cfg.Momentum)
		sched := &ml.StepDecay{Opt: opt, Gamma: cfg.DecayGamma, Every: cfg.DecayEvery}
		agents[i] = fl.NewAgent(i, model, opt, sched, cursor, cfg.ClientDevice)
		util.Logger.Debug("client data", "client", i, "samples", sub.Len(), "label_dist", labelDists[i])
	}

	testLoader := data.NewBatchLoader(test, cfg.BatchSize, nil)

	hist, err := util.NewHistory(runID)
	if err != nil {
		util.Logger.Error("history file", "err", err)
		os.Exit(1)
	}
	defer hist.Close()

	sim := fl.NewSimulation(cfg, server, agents, testLoader, rng, hist)
	if err := sim.Run(); err != nil {
		util.Logger.Error("run failed", "err", err)
		os.Exit(1)
	}
	uni, arb := server.Participation()
	util.Logger.Info("run complete", "uniform_rounds", uni, "arbitrary_rounds", arb)
}
