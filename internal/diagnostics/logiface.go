// Package diagnostics adapts the dominion.Logger contract onto a real
// github.com/joeycumines/logiface pipeline, using
// github.com/joeycumines/stumpy as the formatted-line sink.
//
// Grounded on logiface-stumpy's own example usage (stumpy.L.New(...)).
package diagnostics

import (
	"github.com/joeycumines/dominion"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// logifaceAdapter implements dominion.Logger over a *logiface.Logger[*stumpy.Event].
type logifaceAdapter struct {
	logger *logiface.Logger[*stumpy.Event]
}

// Logiface wraps an existing logiface logger (e.g. one constructed via
// stumpy.L.New) as a dominion.Logger.
func Logiface(logger *logiface.Logger[*stumpy.Event]) dominion.Logger {
	return &logifaceAdapter{logger: logger}
}

// NewStumpy constructs a ready-to-use dominion.Logger writing newline
// delimited JSON via stumpy, at the given minimum level.
func NewStumpy(level dominion.Level) dominion.Logger {
	return Logiface(stumpy.L.New(
		stumpy.L.WithLevel(toLogifaceLevel(level)),
		stumpy.L.WithStumpy(),
	))
}

func (a *logifaceAdapter) Enabled(level dominion.Level) bool {
	ll := toLogifaceLevel(level)
	return ll.Enabled() && ll <= a.logger.Level()
}

func (a *logifaceAdapter) Log(level dominion.Level, msg string, fields ...dominion.Field) {
	b := a.logger.Build(toLogifaceLevel(level))
	if b == nil {
		return
	}
	for _, f := range fields {
		b = b.Any(f.Key, f.Value)
	}
	b.Log(msg)
}

func toLogifaceLevel(level dominion.Level) logiface.Level {
	return logiface.Level(level)
}
