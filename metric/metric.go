// Package metric implements a streaming mean accumulator used for running
// loss and accuracy averages.
package metric

import (
	"github.com/pkg/errors"
)

// ErrNoUpdates is returned when an average is requested before any value has
// been recorded. Asking for it is a caller bug, not a transient condition.
var ErrNoUpdates = errors.New("metric: average requested before any update")

type Metric struct {
	Name string
	sum  float64
	n    int
}

func New(name string) *Metric {
	return &Metric{Name: name}
}

func (m *Metric) Update(v float64) {
	m.sum += v
	m.n++
}

func (m *Metric) Count() int {
	return m.n
}

func (m *Metric) Avg() (float64, error) {
	if m.n == 0 {
		return 0, errors.Wrap(ErrNoUpdates, m.Name)
	}
	return m.sum / float64(m.n), nil
}
