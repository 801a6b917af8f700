// Package obslog adapts github.com/rs/zerolog to the node.Logger
// field-bag interface every node, service, and engine component logs
// through: Debug/Info/Warn/Error(msg, fields) plus a per-component
// Opts binding, backed by zerolog's structured event builder.
package obslog

import (
	"os"

	"github.com/rs/zerolog"

	"weave/internal/node"
)

// Logger wraps a zerolog.Logger with a fixed set of base fields (set
// once via Opts) that get merged under every call's own fields.
type Logger struct {
	zl zerolog.Logger
}

// New builds a Logger writing human-readable console output to
// stderr, suitable for local development and the CLI commands in
// cmd/server. A JSON-only deployment would construct zerolog.New
// directly and wrap it with FromZerolog instead.
func New(level zerolog.Level) Logger {
	w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
	return Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func FromZerolog(zl zerolog.Logger) Logger { return Logger{zl: zl} }

func (l Logger) Opts(fields map[string]interface{}) node.Logger {
	ctx := l.zl.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return Logger{zl: ctx.Logger()}
}

func (l Logger) Debug(msg string, fields map[string]interface{}) { l.event(l.zl.Debug(), msg, fields) }
func (l Logger) Info(msg string, fields map[string]interface{})  { l.event(l.zl.Info(), msg, fields) }
func (l Logger) Warn(msg string, fields map[string]interface{})  { l.event(l.zl.Warn(), msg, fields) }
func (l Logger) Error(msg string, fields map[string]interface{}) { l.event(l.zl.Error(), msg, fields) }

func (l Logger) event(e *zerolog.Event, msg string, fields map[string]interface{}) {
	for k, v := range fields {
		e = e.Interface(k, v)
	}
	e.Msg(msg)
}
