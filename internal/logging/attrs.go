// Package logging wraps log/slog with the typed attribute helpers and
// console/JSON handler switch this module's ambient stack borrows from
// its logging-heavy sibling in the retrieval pack, adapted to the
// dump/refine engine's vocabulary (lba, track, drive, etc. are passed
// through as plain attrs rather than given dedicated constructors).
package logging

import (
	"context"
	"log/slog"
	"time"
)

// Attr is the attribute type every helper below returns; call sites pass
// these directly to (*slog.Logger).Info/Warn/Error/Debug.
type Attr = slog.Attr

func String(key, value string) Attr { return slog.String(key, value) }

func Int(key string, value int) Attr { return slog.Int(key, value) }

func Int64(key string, value int64) Attr { return slog.Int64(key, value) }

func Float64(key string, value float64) Attr { return slog.Float64(key, value) }

func Bool(key string, value bool) Attr { return slog.Bool(key, value) }

func Duration(key string, value time.Duration) Attr { return slog.Duration(key, value) }

func Any(key string, value any) Attr { return slog.Any(key, value) }

// Error formats err under the conventional "error" key; a nil error still
// produces a valid attr so call sites never need a nil check.
func Error(err error) Attr {
	if err == nil {
		return slog.String("error", "<nil>")
	}
	return slog.Any("error", err)
}

// NewNop returns a logger that discards everything, the default used by
// packages and tests that receive a nil *slog.Logger.
func NewNop() *slog.Logger {
	return slog.New(noopHandler{})
}

type noopHandler struct{}

func (noopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (noopHandler) Handle(context.Context, slog.Record) error { return nil }
func (noopHandler) WithAttrs([]slog.Attr) slog.Handler        { return noopHandler{} }
func (noopHandler) WithGroup(string) slog.Handler             { return noopHandler{} }
