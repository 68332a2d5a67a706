package fl

import (
	"fedsketch/config"
	"fedsketch/data"
	"fedsketch/ml"
	"fedsketch/sketch"
	"fedsketch/tensor"
	"fedsketch/util"

	"github.com/pkg/errors"
	"golang.org/x/exp/rand"
)

// Server owns the global model, the flattened global parameter vector, and
// the round's projection matrix (or matrix pair in the split-device setup).
type Server struct {
	cfg       *config.Config
	model     ml.Model
	flat      *tensor.Vector
	criterion ml.CrossEntropy
	dev       tensor.Device

	// momentum is carried in server state like the original keeps it; the
	// averaging update rule does not read it.
	momentum *tensor.Vector

	projector *sketch.Projector
	comp      sketch.Compressor
	g         *tensor.Matrix
	split     *sketch.SplitCompressor

	numUniParticipation int
	numArbParticipation int
	rng                 *rand.Rand
}

func NewServer(cfg *config.Config, model ml.Model, rng *rand.Rand) (*Server, error) {
	model.To(cfg.ServerDevice)
	flat := ml.FlattenParams(model)
	s := &Server{
		cfg:       cfg,
		model:     model,
		flat:      flat,
		dev:       cfg.ServerDevice,
		momentum:  tensor.Zeros(cfg.ServerDevice, flat.Len()),
		projector: sketch.NewProjector(cfg.ChunkSize, rng),
		comp:      sketch.Compressor{F: cfg.F},
		rng:       rng,
	}
	if err := s.regenerate(); err != nil {
		return nil, err
	}
	return s, nil
}

// FlatParams is the live global parameter vector. The server is its sole
// owner; agents snapshot it through PullModelFromServer.
func (s *Server) FlatParams() *tensor.Vector { return s.flat }

// regenerate draws the next round's projection matrix (or pair). Called once
// at construction and after every completed fold, never mid-round.
func (s *Server) regenerate() error {
	d := s.flat.Len()
	if s.cfg.Split {
		g1 := s.projector.GenerateMatrix(d, s.cfg.F1, s.cfg.Ctx1)
		g2 := s.projector.GenerateMatrix(d, s.cfg.F2, s.cfg.Ctx2)
		sc, err := sketch.NewSplitCompressor(g1, g2, s.cfg.F1, s.cfg.F2)
		if err != nil {
			return err
		}
		s.split = sc
		return nil
	}
	s.g = s.projector.GenerateMatrix(d, s.cfg.F, s.dev)
	return nil
}

// AverageClients folds every client's accumulated gradient into the global
// parameter vector, strictly in input order: compress with this round's
// fixed matrix, reconstruct, subtract (lr/numClients) * reconstruction. The
// fold is sequential and not commutative in floating point. After all
// clients are in, the vector is written back into the live model and the
// matrix is regenerated for the next round. Non-averaging algorithms only
// regenerate.
func (s *Server) AverageClients(clients []*Agent) error {
	if s.cfg.Algo == config.AlgoFedAvg {
		scale := s.cfg.LR / float64(len(clients))
		for i, client := range clients {
			gw, mse, err := s.compressReconstruct(client.ModelGrad())
			if err != nil {
				return errors.Wrapf(err, "client %d", i)
			}
			util.Logger.Debug("reconstructed client gradient", "client", client.ID, "mse", mse)
			if gw.Device() != s.dev {
				gw = gw.To(s.dev)
			}
			if err := s.flat.AxpyInPlace(-scale, gw); err != nil {
				return errors.Wrapf(err, "fold client %d", i)
			}
		}
		if err := ml.UnflattenParams(s.model, s.flat); err != nil {
			return errors.Wrap(err, "write back global model")
		}
	}
	return s.regenerate()
}

func (s *Server) compressReconstruct(delta *tensor.Vector) (*tensor.Vector, float64, error) {
	if s.cfg.Split {
		return s.split.CompressReconstruct(delta)
	}
	d := delta
	if d.Device() != s.g.Device() {
		d = d.To(s.g.Device())
	}
	return s.comp.CompressReconstruct(s.g, d)
}

// Evaluate runs the global model over the test loader once.
func (s *Server) Evaluate(l data.Loader) (float64, float64, error) {
	return evaluate(s.model, s.criterion, l)
}

// Participation returns the (uniform, arbitrary) scheme counters.
func (s *Server) Participation() (int, int) {
	return s.numUniParticipation, s.numArbParticipation
}

// DetermineSampling resolves which sampling scheme this round uses. A
// compound pair draws once: below q the first scheme ("uniform") wins,
// otherwise the second. A single scheme is returned unchanged. This only
// picks the scheme name; it is not itself a sampler.
func (s *Server) DetermineSampling(q float64, sampling config.Sampling) config.Strategy {
	if sampling.Secondary == "" {
		return sampling.Primary
	}
	if s.rng.Float64() < q {
		s.numUniParticipation++
		return config.StrategyUniform
	}
	s.numArbParticipation++
	return sampling.Secondary
}
