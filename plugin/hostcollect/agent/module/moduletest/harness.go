// SPDX-License-Identifier: GPL-3.0-or-later

// Package moduletest runs plugins against a real engine with recording sinks.
package moduletest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/stretchr/testify/require"
)

const Hostname = "testhost"

type Harness struct {
	*engine.Engine

	mu            sync.Mutex
	values        []*sample.ValueList
	notifications []*sample.Notification
}

// New returns a harness whose engine records every written sample and every notification.
func New(t *testing.T) *Harness {
	t.Helper()

	e, err := engine.New(engine.Config{Hostname: Hostname, Interval: time.Second})
	require.NoError(t, err)
	e.Mute()

	h := &Harness{Engine: e}

	ctx := pctx.With(context.Background(), pctx.Context{Plugin: "moduletest"})
	require.NoError(t, e.RegisterWrite(ctx, "moduletest", h.write, nil))
	require.NoError(t, e.RegisterNotification(ctx, "moduletest", h.notify, nil))

	t.Cleanup(e.Close)
	return h
}

// Attach registers mod as plugin name with the given interval.
func (h *Harness) Attach(t *testing.T, name string, interval time.Duration, mod module.Module) {
	t.Helper()

	ctx := pctx.With(context.Background(), pctx.Context{Plugin: name, Interval: interval})
	require.NoError(t, module.Attach(ctx, h.Engine, name, mod))
	mod.GetBase().Mute()
}

// ReadOnce runs init, every read function and shutdown once, delivering synchronously.
func (h *Harness) ReadOnce() error {
	return h.ReadAllOnce(context.Background())
}

func (h *Harness) write(_ context.Context, _ *sample.DataSet, vl *sample.ValueList, _ any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = append(h.values, vl.Clone())
	return nil
}

func (h *Harness) notify(_ context.Context, n *sample.Notification, _ any) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := *n
	c.Meta = n.Meta.Clone()
	h.notifications = append(h.notifications, &c)
	return nil
}

func (h *Harness) Values() []*sample.ValueList {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*sample.ValueList(nil), h.values...)
}

// ValueMap flattens the recorded samples to identifier[.source] -> value.
func (h *Harness) ValueMap() map[string]float64 {
	m := make(map[string]float64)
	for _, vl := range h.Values() {
		ds, err := h.TypesDB().Get(vl.Type)
		if err != nil {
			continue
		}
		id := vl.Identifier()
		id.Host = ""
		key := id.String()[1:]
		if len(ds.Sources) == 1 {
			m[key] = vl.Values[0].Float(ds.Sources[0].Kind)
			continue
		}
		for i, src := range ds.Sources {
			m[key+"."+src.Name] = vl.Values[i].Float(src.Kind)
		}
	}
	return m
}

func (h *Harness) Notifications() []*sample.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*sample.Notification(nil), h.notifications...)
}

func (h *Harness) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.values = nil
	h.notifications = nil
}
