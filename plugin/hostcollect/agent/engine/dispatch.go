// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/cache"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

// Dispatch validates vl and queues a copy of it for delivery. It never blocks on sink I/O.
// A sample shed by the write queue is not an error.
func (e *Engine) Dispatch(ctx context.Context, vl *sample.ValueList) error {
	if err := e.validate(vl); err != nil {
		return err
	}
	if vl.Interval <= 0 && e.Interval(ctx) <= 0 {
		return fmt.Errorf("%w for '%s'", ErrNoInterval, vl)
	}

	if e.writes.len() == 0 {
		e.noWriters.ComplainOnce(e.Logger, slog.LevelWarn,
			"no write callback has been registered, load at least one output plugin")
	} else {
		e.noWriters.Release(e.Logger, slog.LevelInfo, "write callbacks are available")
	}

	e.mu.Lock()
	synchronous := e.synchronous
	e.mu.Unlock()

	if synchronous {
		c := vl.Clone()
		e.fillDefaults(ctx, c)
		e.process(ctx, c)
		return nil
	}

	e.queue.Enqueue(ctx, vl)
	return nil
}

func (e *Engine) validate(vl *sample.ValueList) error {
	if vl == nil {
		return fmt.Errorf("%w: nil", ErrInvalidSample)
	}
	if vl.Type == "" {
		return fmt.Errorf("%w: '%s' has no type", ErrInvalidSample, vl)
	}
	if len(vl.Values) == 0 {
		return fmt.Errorf("%w: '%s' has no values", ErrInvalidSample, vl)
	}
	ds, err := e.types.Get(vl.Type)
	if err != nil {
		return fmt.Errorf("%w: '%s': %v", ErrInvalidSample, vl, err)
	}
	if err := ds.Check(vl); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSample, err)
	}
	return nil
}

// fillDefaults completes a queued copy: time, interval, host, escaping.
func (e *Engine) fillDefaults(ctx context.Context, vl *sample.ValueList) {
	if vl.Time.IsZero() {
		vl.Time = e.now()
	}
	if vl.Interval <= 0 {
		vl.Interval = e.Interval(ctx)
	}
	if vl.Host == "" {
		vl.Host = e.cfg.Hostname
	}
	vl.Escape()
}

// process runs on a write worker with the producer's plugin context.
func (e *Engine) process(ctx context.Context, vl *sample.ValueList) {
	ds, err := e.types.Get(vl.Type)
	if err != nil {
		e.Errorf("dropping '%s': %v", vl, err)
		return
	}

	e.mu.Lock()
	pre, post, def := e.preChain, e.postChain, e.defaultTarget
	e.mu.Unlock()

	if pre != nil {
		if v, _ := pre.Process(ctx, ds, vl); v == filterchain.Stop {
			return
		}
	}

	if err := e.cache.Update(ds, vl); err != nil {
		if errors.Is(err, cache.ErrTooOld) {
			e.Warning(err)
		} else {
			e.Errorf("cache update: %v", err)
		}
	}

	if post != nil {
		if _, handled := post.Process(ctx, ds, vl); handled {
			return
		}
	}
	if def != nil {
		_, _ = def.Invoke(ctx, ds, vl)
	} else {
		_ = e.Write(ctx, "", ds, vl)
	}
}

// Write delivers vl to the named write callback, or to every write callback when
// plugin is empty. Broadcasting fails with ErrNoWriters if none is registered, and
// fails only if every callback failed.
// Failures are logged here, throttled per callback; the returned error wraps ErrWriteFailed.
// Write callbacks run with the plugin context of ctx, so they see the producer's interval.
func (e *Engine) Write(ctx context.Context, plugin string, ds *sample.DataSet, vl *sample.ValueList) error {
	if ds == nil {
		var err error
		if ds, err = e.types.Get(vl.Type); err != nil {
			return err
		}
	}

	if plugin != "" {
		cb, ok := e.findWriter(plugin)
		if !ok {
			return fmt.Errorf("%w: write callback '%s'", ErrNotFound, plugin)
		}
		if err := e.callWriter(ctx, cb, ds, vl); err != nil {
			return fmt.Errorf("%w: write callback '%s': %v", ErrWriteFailed, cb.name, err)
		}
		return nil
	}

	writers := e.writes.snapshot()
	if len(writers) == 0 {
		return ErrNoWriters
	}

	var failed int
	for _, cb := range writers {
		if err := e.callWriter(ctx, cb, ds, vl); err != nil {
			failed++
		}
	}
	if failed == len(writers) {
		return fmt.Errorf("%w: all %d write callbacks failed on '%s'", ErrWriteFailed, failed, vl)
	}
	return nil
}

func (e *Engine) callWriter(ctx context.Context, cb *callback[WriteFunc], ds *sample.DataSet, vl *sample.ValueList) error {
	err := safeCall(func() error { return cb.fn(ctx, ds, vl, cb.ud.data()) })
	if err != nil {
		cb.failing.Complain(e.Logger, slog.LevelError, "write callback '%s' failed on '%s': %v", cb.name, vl, err)
	} else {
		cb.failing.Release(e.Logger, slog.LevelInfo, "write callback '%s' is writing again", cb.name)
	}
	return err
}

func (e *Engine) findWriter(plugin string) (*callback[WriteFunc], bool) {
	if cb, ok := e.writes.get(plugin); ok {
		return cb, true
	}
	for _, cb := range e.writes.snapshot() {
		if strings.EqualFold(cb.name, plugin) {
			return cb, true
		}
	}
	return nil, false
}

// DispatchNotification delivers n to every notification callback on the calling goroutine.
func (e *Engine) DispatchNotification(ctx context.Context, n *sample.Notification) error {
	if n == nil {
		return errors.New("nil notification")
	}
	switch n.Severity {
	case sample.SeverityFailure, sample.SeverityWarning, sample.SeverityOkay:
	default:
		return fmt.Errorf("invalid notification severity %d", n.Severity)
	}
	if n.Time.IsZero() {
		n.Time = e.now()
	}
	if n.Host == "" {
		n.Host = e.cfg.Hostname
	}
	if n.Plugin == "" {
		n.Plugin = pctx.From(ctx).Plugin
	}

	cbs := e.notifications.snapshot()
	if len(cbs) == 0 {
		e.Debugf("notification '%s' dropped: no notification callbacks registered", n.Message)
		return nil
	}
	for _, cb := range cbs {
		if err := safeCall(func() error { return cb.fn(cb.ctx, n, cb.ud.data()) }); err != nil {
			e.Warningf("notification callback '%s' failed: %v", cb.name, err)
		}
	}
	return nil
}

// Flush asks the named flush callback, or all of them, to flush data older than timeout.
// An empty identifier means every identifier.
func (e *Engine) Flush(_ context.Context, plugin string, timeout time.Duration, identifier string) error {
	if plugin != "" {
		cb, ok := e.flushes.get(plugin)
		if !ok {
			return fmt.Errorf("%w: flush callback '%s'", ErrNotFound, plugin)
		}
		return safeCall(func() error { return cb.fn(cb.ctx, timeout, identifier, cb.ud.data()) })
	}

	var errs []error
	for _, cb := range e.flushes.snapshot() {
		if err := safeCall(func() error { return cb.fn(cb.ctx, timeout, identifier, cb.ud.data()) }); err != nil {
			errs = append(errs, fmt.Errorf("flush callback '%s': %w", cb.name, err))
		}
	}
	return errors.Join(errs...)
}

// DispatchMultiValue dispatches one gauge per entry of values, using tmpl for the
// identity and typ as the type. With percentage set the values are dispatched as
// percentages of their sum.
func (e *Engine) DispatchMultiValue(ctx context.Context, tmpl *sample.ValueList, typ string, percentage bool, values map[string]float64) error {
	var sum float64
	if percentage {
		for _, v := range values {
			sum += v
		}
	}

	var errs []error
	for ti, v := range values {
		vl := tmpl.Clone()
		vl.Meta = nil
		vl.Type = typ
		vl.TypeInstance = ti
		if percentage {
			if sum == 0 {
				v = 0
			} else {
				v = v * 100 / sum
			}
		}
		vl.Values = []sample.Value{sample.GaugeValue(v)}
		if err := e.Dispatch(ctx, vl); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
