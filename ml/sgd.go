package ml

import (
	"gonum.org/v1/gonum/floats"
)

// ParamGroup is a set of parameters sharing one learning rate, mirroring the
// usual optimizer param-group shape so per-group LR decay works.
type ParamGroup struct {
	Params   []*Param
	LR       float64
	Momentum float64

	velocity [][]float64
}

// SGD is vanilla stochastic gradient descent with optional momentum.
type SGD struct {
	Groups []*ParamGroup
}

func NewSGD(params []*Param, lr, momentum float64) *SGD {
	return &SGD{Groups: []*ParamGroup{{Params: params, LR: lr, Momentum: momentum}}}
}

func (o *SGD) Step() {
	for _, g := range o.Groups {
		if g.Momentum > 0 && g.velocity == nil {
			g.velocity = make([][]float64, len(g.Params))
			for i, p := range g.Params {
				g.velocity[i] = make([]float64, len(p.Data))
			}
		}
		for i, p := range g.Params {
			if p.Frozen || p.Grad == nil {
				continue
			}
			upd := p.Grad
			if g.Momentum > 0 {
				v := g.velocity[i]
				floats.Scale(g.Momentum, v)
				floats.Add(v, p.Grad)
				upd = v
			}
			floats.AddScaled(p.Data, -g.LR, upd)
		}
	}
}

func (o *SGD) ZeroGrad() {
	for _, g := range o.Groups {
		for _, p := range g.Params {
			if p.Grad == nil {
				continue
			}
			for i := range p.Grad {
				p.Grad[i] = 0
			}
		}
	}
}

// DecayLR multiplies every group's learning rate by gamma.
func (o *SGD) DecayLR(gamma float64) {
	for _, g := range o.Groups {
		g.LR *= gamma
	}
}

// Scheduler adjusts optimizer state at round boundaries. The simulation only
// ships a step decay, but the agent carries the interface the way the
// original carries its scheduler.
type Scheduler interface {
	RoundEnd(round int)
}

// StepDecay multiplies the LR by Gamma every Every rounds.
type StepDecay struct {
	Opt   *SGD
	Gamma float64
	Every int
}

func (s *StepDecay) RoundEnd(round int) {
	if s.Every > 0 && round > 0 && round%s.Every == 0 {
		s.Opt.DecayLR(s.Gamma)
	}
}
