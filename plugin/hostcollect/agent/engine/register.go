// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/scheduler"
)

// Every registration captures the plugin context of ctx; the callback is always
// invoked with that context, not the one of the goroutine that triggers it.

func (e *Engine) RegisterInit(ctx context.Context, name string, fn InitFunc) error {
	return e.inits.register(e.Logger, ctx, name, fn, nil)
}

func (e *Engine) UnregisterInit(name string) error { return e.inits.unregister(name) }

func (e *Engine) RegisterShutdown(ctx context.Context, name string, fn ShutdownFunc) error {
	return e.shutdowns.register(e.Logger, ctx, name, fn, nil)
}

func (e *Engine) UnregisterShutdown(name string) error { return e.shutdowns.unregister(name) }

// RegisterRead schedules fn at the interval of the plugin context of ctx.
func (e *Engine) RegisterRead(ctx context.Context, name string, fn ReadFunc) error {
	return e.addRead(ctx, scheduler.Job{
		Name: name,
		Fn:   scheduler.Func(fn),
	})
}

// RegisterComplexRead schedules fn with its own user data. A zero interval falls back
// to the plugin context interval, then to the global default.
func (e *Engine) RegisterComplexRead(ctx context.Context, group, name string, fn ComplexReadFunc, interval time.Duration, ud *UserData) error {
	return e.addRead(ctx, scheduler.Job{
		Name:     name,
		Group:    group,
		Interval: interval,
		Fn:       func(ctx context.Context) error { return fn(ctx, ud.data()) },
		Free:     ud.free,
	})
}

func (e *Engine) addRead(ctx context.Context, job scheduler.Job) error {
	if job.Name == "" {
		return fmt.Errorf("%w: read callback", ErrInvalidName)
	}
	if job.Interval <= 0 {
		job.Interval = e.Interval(ctx)
	}
	job.Ctx = capture(ctx)
	return e.sched.Add(job)
}

func (e *Engine) UnregisterRead(name string) error {
	if err := e.sched.Remove(name); err != nil {
		if errors.Is(err, scheduler.ErrNotFound) {
			return fmt.Errorf("%w: read callback '%s'", ErrNotFound, name)
		}
		return err
	}
	return nil
}

// UnregisterReadGroup removes every read function registered with group.
func (e *Engine) UnregisterReadGroup(group string) error {
	if _, err := e.sched.RemoveGroup(group); err != nil {
		if errors.Is(err, scheduler.ErrNotFound) {
			return fmt.Errorf("%w: read group '%s'", ErrNotFound, group)
		}
		return err
	}
	return nil
}

// ReadInterval returns the effective, possibly backed off, interval of a read function.
func (e *Engine) ReadInterval(name string) (time.Duration, error) {
	iv, err := e.sched.EffectiveInterval(name)
	if errors.Is(err, scheduler.ErrNotFound) {
		return 0, fmt.Errorf("%w: read callback '%s'", ErrNotFound, name)
	}
	return iv, err
}

func (e *Engine) ReadNames() []string { return e.sched.Names() }

func (e *Engine) RegisterWrite(ctx context.Context, name string, fn WriteFunc, ud *UserData) error {
	return e.writes.register(e.Logger, ctx, name, fn, ud)
}

func (e *Engine) UnregisterWrite(name string) error { return e.writes.unregister(name) }

func (e *Engine) WriteNames() []string { return e.writes.names() }

func (e *Engine) RegisterFlush(ctx context.Context, name string, fn FlushFunc, ud *UserData) error {
	return e.flushes.register(e.Logger, ctx, name, fn, ud)
}

func (e *Engine) UnregisterFlush(name string) error { return e.flushes.unregister(name) }

func (e *Engine) RegisterMissing(ctx context.Context, name string, fn MissingFunc, ud *UserData) error {
	return e.missings.register(e.Logger, ctx, name, fn, ud)
}

func (e *Engine) UnregisterMissing(name string) error { return e.missings.unregister(name) }

func (e *Engine) RegisterNotification(ctx context.Context, name string, fn NotificationFunc, ud *UserData) error {
	return e.notifications.register(e.Logger, ctx, name, fn, ud)
}

func (e *Engine) UnregisterNotification(name string) error { return e.notifications.unregister(name) }

func (e *Engine) RegisterLog(ctx context.Context, name string, fn LogFunc, ud *UserData) error {
	return e.logs.register(e.Logger, ctx, name, fn, ud)
}

func (e *Engine) UnregisterLog(name string) error { return e.logs.unregister(name) }

func (e *Engine) RegisterMatch(name string, create filterchain.MatchCreator) error {
	return e.fcReg.RegisterMatch(name, create)
}

func (e *Engine) RegisterTarget(name string, create filterchain.TargetCreator) error {
	return e.fcReg.RegisterTarget(name, create)
}

// UnregisterPlugin removes every callback registered from within plugin.
func (e *Engine) UnregisterPlugin(plugin string) int {
	return e.sched.RemovePlugin(plugin) +
		e.inits.unregisterPlugin(plugin) +
		e.shutdowns.unregisterPlugin(plugin) +
		e.writes.unregisterPlugin(plugin) +
		e.flushes.unregisterPlugin(plugin) +
		e.missings.unregisterPlugin(plugin) +
		e.notifications.unregisterPlugin(plugin) +
		e.logs.unregisterPlugin(plugin)
}
