// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/netdata/netdata/go/hostcollect/logger"
)

// NewLogger returns a logger for plugin whose records are also handed to the
// registered log callbacks.
func (e *Engine) NewLogger(plugin string) *logger.Logger {
	base := logger.New()
	return logger.NewWithHandler(&teeHandler{next: base.Handler(), e: e}).With(
		slog.String("plugin", plugin),
	)
}

type teeHandler struct {
	next slog.Handler
	e    *Engine
}

// inLogCallback guards against a log callback that logs through a tee logger.
var inLogCallback atomic.Int32

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level) || (h.e.logs.len() > 0 && logger.Level.Enabled(level))
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	if logger.Level.Enabled(r.Level) && inLogCallback.Load() == 0 {
		inLogCallback.Add(1)
		h.e.dispatchLog(r.Level, r.Message)
		inLogCallback.Add(-1)
	}
	if !h.next.Enabled(ctx, r.Level) {
		return nil
	}
	return h.next.Handle(ctx, r)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{next: h.next.WithAttrs(attrs), e: h.e}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{next: h.next.WithGroup(name), e: h.e}
}

func (e *Engine) dispatchLog(level slog.Level, msg string) {
	for _, cb := range e.logs.snapshot() {
		func() {
			defer func() { _ = recover() }()
			cb.fn(level, msg, cb.ud.data())
		}()
	}
}
