package util

import (
	"fmt"
	"os"
)

// History appends per-round simulation metrics to a file so runs can be
// plotted offline.
type History struct {
	f *os.File
}

func NewHistory(runID string) (*History, error) {
	fname := fmt.Sprintf("history_%s.txt", runID)
	f, err := os.Create(fname)
	if err != nil {
		return nil, err
	}
	return &History{f: f}, nil
}

func (h *History) Record(round int, trainLoss, trainAcc, testLoss, testAcc float64) {
	fmt.Fprintf(h.f, "%d %.6f %.6f %.6f %.6f\n", round, trainLoss, trainAcc, testLoss, testAcc)
}

func (h *History) Close() error {
	return h.f.Close()
}
