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

// builds a server plus clients whose accumulated gradients are fixed, so the
// fold is exercised without any training noise.
func foldFixture(t *testing.T, cfg *config.Config, seed uint64) (*Server, []*Agent) {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	srv, err := NewServer(cfg, ml.NewMLP(cfg.InputDim, cfg.HiddenDim, cfg.Classes, cfg.ServerDevice, rng), rng)
	require.NoError(t, err)

	d := srv.FlatParams().Len()
	clients := make([]*Agent, 2)
	for i := range clients {
		clients[i] = testAgent(i, 8, 4, seed+10+uint64(i))
		grad := make([]float64, d)
		for j := range grad {
			grad[j] = float64(i+1) * 0.01 * float64(j%5)
		}
		clients[i].modelGrad = tensor.NewVector(tensor.CPU, grad)
	}
	return srv, clients
}

func TestAverageClientsUpdatesGlobalModel(t *testing.T) {
	cfg := testConfig()
	srv, clients := foldFixture(t, cfg, 1)

	before := append([]float64(nil), srv.FlatParams().Raw()...)
	require.NoError(t, srv.AverageClients(clients))
	require.NotEqual(t, before, srv.FlatParams().Raw())

	// the fold is written back into the live model
	require.Equal(t, srv.FlatParams().Raw(), ml.FlattenParams(srv.model).Raw())
}

func TestAverageClientsDeterminism(t *testing.T) {
	cfg := testConfig()
	srvA, clientsA := foldFixture(t, cfg, 42)
	srvB, clientsB := foldFixture(t, cfg, 42)

	require.NoError(t, srvA.AverageClients(clientsA))
	require.NoError(t, srvB.AverageClients(clientsB))
	require.Equal(t, srvA.FlatParams().Raw(), srvB.FlatParams().Raw())
}

// Permuting client order keeps the same set of per-client contributions;
// only the floating-point summation order differs.
func TestAverageClientsOrderInvariantUpToFloat(t *testing.T) {
	cfg := testConfig()
	srvA, clientsA := foldFixture(t, cfg, 50)
	srvB, clientsB := foldFixture(t, cfg, 50)

	require.NoError(t, srvA.AverageClients(clientsA))
	require.NoError(t, srvB.AverageClients([]*Agent{clientsB[1], clientsB[0]}))

	a, b := srvA.FlatParams().Raw(), srvB.FlatParams().Raw()
	for i := range a {
		require.InDelta(t, a[i], b[i], 1e-9)
	}
}

func TestAverageClientsRegeneratesMatrix(t *testing.T) {
	cfg := testConfig()
	srv, clients := foldFixture(t, cfg, 2)

	prev := srv.g
	require.NoError(t, srv.AverageClients(clients))
	require.NotSame(t, prev, srv.g)
}

func TestAverageClientsNonAveragingAlgo(t *testing.T) {
	cfg := testConfig()
	cfg.Algo = config.AlgoNone
	srv, clients := foldFixture(t, cfg, 3)

	before := append([]float64(nil), srv.FlatParams().Raw()...)
	prev := srv.g
	require.NoError(t, srv.AverageClients(clients))
	// no fold, but the matrix still turns over
	require.Equal(t, before, srv.FlatParams().Raw())
	require.NotSame(t, prev, srv.g)
}

func TestAverageClientsSplit(t *testing.T) {
	cfg := testConfig()
	cfg.Split = true
	srv, clients := foldFixture(t, cfg, 4)
	require.NotNil(t, srv.split)

	before := append([]float64(nil), srv.FlatParams().Raw()...)
	prevSplit := srv.split
	require.NoError(t, srv.AverageClients(clients))
	require.NotEqual(t, before, srv.FlatParams().Raw())
	require.NotSame(t, prevSplit, srv.split)
}

func TestServerEvaluate(t *testing.T) {
	cfg := testConfig()
	srv, _ := foldFixture(t, cfg, 5)
	rng := rand.New(rand.NewSource(6))
	test := data.Synthetic(24, cfg.InputDim, cfg.Classes, rng)
	loss, acc, err := srv.Evaluate(data.NewBatchLoader(test, 8, nil))
	require.NoError(t, err)
	require.Greater(t, loss, 0.0)
	require.GreaterOrEqual(t, acc, 0.0)
	require.LessOrEqual(t, acc, 1.0)
}
