// Package fl owns the federated training state machine: agents running local
// gradient steps, the server folding sketch-compressed updates into the
// global model, and the sequential round driver.
package fl

import (
	"fedsketch/data"
	"fedsketch/metric"
	"fedsketch/ml"
	"fedsketch/tensor"

	"github.com/pkg/errors"
)

// Agent is one client: a local model replica, its optimizer and cursor, and
// the gradient accumulated over the current round's local steps.
type Agent struct {
	ID        int
	model     ml.Model
	opt       *ml.SGD
	sched     ml.Scheduler
	criterion ml.CrossEntropy
	cursor    *data.Cursor
	dev       tensor.Device

	trainLoss *metric.Metric
	trainAcc  *metric.Metric
	epoch     int
	modelGrad *tensor.Vector
}

func NewAgent(id int, model ml.Model, opt *ml.SGD, sched ml.Scheduler, cursor *data.Cursor, dev tensor.Device) *Agent {
	model.To(dev)
	return &Agent{
		ID:        id,
		model:     model,
		opt:       opt,
		sched:     sched,
		cursor:    cursor,
		dev:       dev,
		trainLoss: metric.New("train_loss"),
		trainAcc:  metric.New("train_accuracy"),
		modelGrad: tensor.Zeros(dev, ml.TrainableSize(model)),
	}
}

func (a *Agent) Epoch() int { return a.epoch }

// ModelGrad is the sum of per-step gradients from the last TrainKSteps call.
func (a *Agent) ModelGrad() *tensor.Vector { return a.modelGrad }

// PullModelFromServer unflattens the server's current global parameter
// vector into the local replica, migrating it onto the agent's context first
// when the two differ.
func (a *Agent) PullModelFromServer(srv *Server) error {
	flat := srv.FlatParams()
	if flat.Device() != a.dev {
		flat = flat.To(a.dev)
	}
	return errors.Wrapf(ml.UnflattenParams(a.model, flat), "agent %d pull", a.ID)
}

func (a *Agent) resetEpoch() {
	a.cursor.Reset()
	a.epoch++
	a.trainLoss = metric.New("train_loss")
	a.trainAcc = metric.New("train_accuracy")
}

// TrainKSteps runs up to k local steps, summing each step's flattened
// gradient into the round's accumulated gradient and applying one optimizer
// step per batch. Hitting the end of the epoch mid-call is a normal outcome:
// the current running averages are returned, the cursor re-arms, and the
// remaining steps are simply not executed.
func (a *Agent) TrainKSteps(k int) (float64, float64, error) {
	a.model.Train()
	a.modelGrad = tensor.Zeros(a.dev, ml.TrainableSize(a.model))
	for i := 0; i < k; i++ {
		b, ok := a.cursor.Next()
		if !ok {
			loss, err := a.trainLoss.Avg()
			if err != nil {
				return 0, 0, errors.Wrapf(err, "agent %d exhausted with no steps", a.ID)
			}
			acc, err := a.trainAcc.Avg()
			if err != nil {
				return 0, 0, errors.Wrapf(err, "agent %d exhausted with no steps", a.ID)
			}
			a.resetEpoch()
			return loss, acc, nil
		}
		a.model.ZeroGrad()
		logits := a.model.Forward(b.Inputs)
		stepLoss, dlogits := a.criterion.Loss(logits, b.Labels)
		a.model.Backward(dlogits)

		g, err := ml.FlattenGrads(a.model)
		if err != nil {
			return 0, 0, errors.Wrapf(err, "agent %d step %d", a.ID, i)
		}
		if err := a.modelGrad.AddInPlace(g); err != nil {
			return 0, 0, errors.Wrapf(err, "agent %d accumulate", a.ID)
		}
		a.opt.Step()
		a.trainLoss.Update(stepLoss)
		a.trainAcc.Update(ml.Accuracy(logits, b.Labels))
	}
	loss, err := a.trainLoss.Avg()
	if err != nil {
		return 0, 0, err
	}
	acc, err := a.trainAcc.Avg()
	if err != nil {
		return 0, 0, err
	}
	return loss, acc, nil
}

// DecayLR multiplies every optimizer param group's learning rate by gamma.
func (a *Agent) DecayLR(gamma float64) {
	a.opt.DecayLR(gamma)
}

// RoundEnd ticks the agent's scheduler, if it carries one.
func (a *Agent) RoundEnd(round int) {
	if a.sched != nil {
		a.sched.RoundEnd(round)
	}
}

// Evaluate runs one full pass over the loader's sequence with fresh metrics
// and no gradient work.
func (a *Agent) Evaluate(l data.Loader) (float64, float64, error) {
	return evaluate(a.model, a.criterion, l)
}

func evaluate(m ml.Model, criterion ml.CrossEntropy, l data.Loader) (float64, float64, error) {
	m.Eval()
	valLoss := metric.New("val_loss")
	valAcc := metric.New("val_accuracy")
	for _, b := range l.Batches() {
		logits := m.Forward(b.Inputs)
		loss, _ := criterion.Loss(logits, b.Labels)
		valLoss.Update(loss)
		valAcc.Update(ml.Accuracy(logits, b.Labels))
	}
	loss, err := valLoss.Avg()
	if err != nil {
		return 0, 0, err
	}
	acc, err := valAcc.Avg()
	if err != nil {
		return 0, 0, err
	}
	return loss, acc, nil
}

// LocalUpdateClients runs TrainKSteps on every client in order and averages
// the returned metrics.
func LocalUpdateClients(clients []*Agent, k int) (float64, float64, error) {
	var lossSum, accSum float64
	for _, c := range clients {
		loss, acc, err := c.TrainKSteps(k)
		if err != nil {
			return 0, 0, err
		}
		lossSum += loss
		accSum += acc
	}
	n := float64(len(clients))
	return lossSum / n, accSum / n, nil
}
