// Package config is the explicit configuration surface of the simulation.
// It is constructed once at startup and passed by reference into the server,
// agent, and projector constructors; nothing reads parsed flags through
// package globals.
package config

import (
	"os"

	"fedsketch/tensor"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Algorithm selectors. Anything other than fedavg makes aggregation a no-op
// apart from projection-matrix regeneration.
const (
	AlgoFedAvg = "fedavg"
	AlgoNone   = "none"
)

// Strategy names a client sampling scheme. The set is closed; compound
// schemes are expressed as a primary/secondary pair, not a delimited string.
type Strategy string

const (
	StrategyUniform Strategy = "uniform"
	StrategyPowD    Strategy = "powd"
	StrategyRandom  Strategy = "random"
)

// Sampling selects between a primary and an optional secondary strategy with
// mix probability Q. An empty Secondary means the primary is always used.
type Sampling struct {
	Primary   Strategy `yaml:"primary"`
	Secondary Strategy `yaml:"secondary"`
	Q         float64  `yaml:"q"`
}

type Config struct {
	// sketch
	F         int  `yaml:"f"`
	F1        int  `yaml:"f1"`
	F2        int  `yaml:"f2"`
	ChunkSize int  `yaml:"chunk_size"`
	Split     bool `yaml:"split"`

	// federation
	Algo            string   `yaml:"algo"`
	LR              float64  `yaml:"lr"`
	LocalLR         float64  `yaml:"local_lr"`
	Momentum        float64  `yaml:"momentum"`
	LocalSteps      int      `yaml:"local_steps"`
	NumClients      int      `yaml:"num_clients"`
	ClientsPerRound int      `yaml:"clients_per_round"`
	Rounds          int      `yaml:"rounds"`
	Sampling        Sampling `yaml:"sampling"`
	DecayGamma      float64  `yaml:"decay_gamma"`
	DecayEvery      int      `yaml:"decay_every"`
	EvalEvery       int      `yaml:"eval_every"`

	// placement
	ServerDevice tensor.Device `yaml:"server_device"`
	Ctx1         tensor.Device `yaml:"ctx1"`
	Ctx2         tensor.Device `yaml:"ctx2"`
	ClientDevice tensor.Device `yaml:"client_device"`

	// data
	DirichletAlpha float64 `yaml:"dirichlet_alpha"`
	BatchSize      int     `yaml:"batch_size"`
	TrainSize      int     `yaml:"train_size"`
	TestSize       int     `yaml:"test_size"`
	InputDim       int     `yaml:"input_dim"`
	HiddenDim      int     `yaml:"hidden_dim"`
	Classes        int     `yaml:"classes"`

	Seed     uint64 `yaml:"seed"`
	LogLevel string `yaml:"log_level"`
}

func Default() *Config {
	return &Config{
		F:               128,
		F1:              64,
		F2:              64,
		ChunkSize:       256,
		Algo:            AlgoFedAvg,
		LR:              0.5,
		LocalLR:         0.05,
		Momentum:        0,
		LocalSteps:      5,
		NumClients:      10,
		ClientsPerRound: 4,
		Rounds:          50,
		Sampling:        Sampling{Primary: StrategyUniform, Q: 1.0},
		DecayGamma:      0.99,
		DecayEvery:      10,
		EvalEvery:       5,
		ServerDevice:    tensor.CPU,
		Ctx1:            "ctx:0",
		Ctx2:            "ctx:1",
		ClientDevice:    tensor.CPU,
		DirichletAlpha:  0.5,
		BatchSize:       32,
		TrainSize:       2000,
		TestSize:        400,
		InputDim:        16,
		HiddenDim:       32,
		Classes:         4,
		Seed:            1,
		LogLevel:        "info",
	}
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(err, "read config")
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, errors.Wrap(err, "parse config")
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.F <= 0 {
		return errors.New("config: sketch width f must be positive")
	}
	if c.Split && c.F1+c.F2 != c.F {
		return errors.Errorf("config: split widths %d+%d must equal f=%d", c.F1, c.F2, c.F)
	}
	if c.ChunkSize <= 0 {
		return errors.New("config: chunk_size must be positive")
	}
	if c.NumClients <= 0 || c.ClientsPerRound <= 0 || c.ClientsPerRound > c.NumClients {
		return errors.New("config: need 0 < clients_per_round <= num_clients")
	}
	if c.LocalSteps <= 0 {
		return errors.New("config: local_steps must be positive")
	}
	switch c.Sampling.Primary {
	case StrategyUniform, StrategyPowD, StrategyRandom:
	default:
		return errors.Errorf("config: unknown sampling strategy %q", c.Sampling.Primary)
	}
	if s := c.Sampling.Secondary; s != "" && s != StrategyUniform && s != StrategyPowD && s != StrategyRandom {
		return errors.Errorf("config: unknown sampling strategy %q", s)
	}
	return nil
}
