// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/pkg/complain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

type (
	InitFunc         func(ctx context.Context) error
	ShutdownFunc     func(ctx context.Context) error
	ReadFunc         func(ctx context.Context) error
	ComplexReadFunc  func(ctx context.Context, ud any) error
	WriteFunc        func(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList, ud any) error
	FlushFunc        func(ctx context.Context, timeout time.Duration, identifier string, ud any) error
	MissingFunc      func(ctx context.Context, vl *sample.ValueList, ud any) error
	NotificationFunc func(ctx context.Context, n *sample.Notification, ud any) error
	LogFunc          func(level slog.Level, msg string, ud any)
)

// UserData is opaque state handed back to a callback on every invocation.
// Free, if set, is called with Data once the callback is unregistered.
type UserData struct {
	Data any
	Free func(data any)
}

func (ud *UserData) data() any {
	if ud == nil {
		return nil
	}
	return ud.Data
}

func (ud *UserData) free() {
	if ud != nil && ud.Free != nil {
		ud.Free(ud.Data)
		ud.Free = nil
	}
}

type callback[F any] struct {
	name string
	fn   F
	ud   *UserData
	// ctx carries the plugin context captured at registration.
	ctx context.Context
	// failing throttles the reports of a callback that keeps failing.
	failing *complain.Complaint
}

func (cb *callback[F]) plugin() string { return pctx.From(cb.ctx).Plugin }

// callbacks is an ordered list of named callbacks of one kind.
type callbacks[F any] struct {
	kind string

	mu   sync.RWMutex
	list []*callback[F]
}

func newCallbacks[F any](kind string) *callbacks[F] {
	return &callbacks[F]{kind: kind}
}

// register appends a callback, or replaces the one with the same name in place.
func (c *callbacks[F]) register(log *logger.Logger, ctx context.Context, name string, fn F, ud *UserData) error {
	if name == "" {
		return fmt.Errorf("%w: %s callback", ErrInvalidName, c.kind)
	}

	cb := &callback[F]{
		name:    name,
		fn:      fn,
		ud:      ud,
		ctx:     capture(ctx),
		failing: complain.New(time.Second),
	}

	c.mu.Lock()
	var old *callback[F]
	for i, v := range c.list {
		if v.name == name {
			old = v
			list := slices.Clone(c.list)
			list[i] = cb
			c.list = list
			break
		}
	}
	if old == nil {
		c.list = append(c.list, cb)
	}
	c.mu.Unlock()

	if old != nil {
		log.Warningf("%s callback '%s' is already registered, replacing it", c.kind, name)
		old.ud.free()
	}
	return nil
}

func (c *callbacks[F]) unregister(name string) error {
	c.mu.Lock()
	var old *callback[F]
	for i, v := range c.list {
		if v.name == name {
			old = v
			c.list = append(c.list[:i:i], c.list[i+1:]...)
			break
		}
	}
	c.mu.Unlock()

	if old == nil {
		return fmt.Errorf("%w: %s callback '%s'", ErrNotFound, c.kind, name)
	}
	old.ud.free()
	return nil
}

// unregisterPlugin removes every callback registered from within plugin.
func (c *callbacks[F]) unregisterPlugin(plugin string) int {
	c.mu.Lock()
	var removed []*callback[F]
	kept := c.list[:0:0]
	for _, v := range c.list {
		if v.plugin() == plugin {
			removed = append(removed, v)
		} else {
			kept = append(kept, v)
		}
	}
	c.list = kept
	c.mu.Unlock()

	for _, v := range removed {
		v.ud.free()
	}
	return len(removed)
}

func (c *callbacks[F]) get(name string) (*callback[F], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, v := range c.list {
		if v.name == name {
			return v, true
		}
	}
	return nil, false
}

// snapshot returns the callbacks in registration order. The list is copy-on-write,
// callers must not modify it.
func (c *callbacks[F]) snapshot() []*callback[F] {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.list
}

func (c *callbacks[F]) len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.list)
}

func (c *callbacks[F]) names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.list))
	for _, v := range c.list {
		names = append(names, v.name)
	}
	return names
}

func (c *callbacks[F]) clear() {
	c.mu.Lock()
	list := c.list
	c.list = nil
	c.mu.Unlock()

	for _, v := range list {
		v.ud.free()
	}
}

// capture detaches the plugin context of ctx from its cancellation and values.
func capture(ctx context.Context) context.Context {
	return pctx.With(context.Background(), pctx.From(ctx))
}
