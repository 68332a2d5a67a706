package metric

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAvg(t *testing.T) {
	m := New("train_loss")
	for _, v := range []float64{2, 4, 6} {
		m.Update(v)
	}
	avg, err := m.Avg()
	require.NoError(t, err)
	require.Equal(t, 4.0, avg)
	require.Equal(t, 3, m.Count())
}

func TestAvgSingle(t *testing.T) {
	m := New("val_accuracy")
	m.Update(5)
	avg, err := m.Avg()
	require.NoError(t, err)
	require.Equal(t, 5.0, avg)
}

func TestAvgBeforeUpdate(t *testing.T) {
	m := New("empty")
	_, err := m.Avg()
	require.ErrorIs(t, err, ErrNoUpdates)
}
