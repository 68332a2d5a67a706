package util

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// Logger is the process-wide logger. Components log through it the same way
// the simulation driver does; InitLogger is called once at startup.
var Logger hclog.Logger = hclog.NewNullLogger()

func InitLogger(name string, level string) {
	Logger = hclog.New(&hclog.LoggerOptions{
		Name:   name,
		Level:  hclog.LevelFromString(level),
		Output: os.Stderr,
	})
}
