package obslog

import (
	"testing"

	"github.com/rs/zerolog"

	"weave/internal/node"
)

func TestLoggerSatisfiesNodeLogger(t *testing.T) {
	var _ node.Logger = New(zerolog.InfoLevel)
}

func TestLoggerMethodsDoNotPanic(t *testing.T) {
	log := New(zerolog.DebugLevel)
	scoped := log.Opts(map[string]interface{}{"component": "test"})
	scoped.Debug("debug msg", map[string]interface{}{"k": "v"})
	scoped.Info("info msg", nil)
	scoped.Warn("warn msg", map[string]interface{}{"n": 1})
	scoped.Error("error msg", map[string]interface{}{"err": "boom"})
}
