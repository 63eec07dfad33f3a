// SPDX-License-Identifier: GPL-3.0-or-later

package engine

import (
	"context"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

func (e *Engine) registerSelfStats() error {
	ctx := pctx.With(context.Background(), pctx.Context{Plugin: selfPlugin})
	return e.RegisterRead(ctx, selfPlugin, e.readSelfStats)
}

// readSelfStats reports the write queue length, the number of dropped samples and
// the cache size.
func (e *Engine) readSelfStats(ctx context.Context) error {
	now := e.now()
	vls := []*sample.ValueList{
		{
			PluginInstance: "write_queue",
			Type:           "queue_length",
			Values:         []sample.Value{sample.GaugeValue(float64(e.queue.Len()))},
		},
		{
			PluginInstance: "write_queue",
			Type:           "derive",
			TypeInstance:   "dropped",
			Values:         []sample.Value{sample.DeriveValue(int64(e.queue.Dropped()))},
		},
		{
			PluginInstance: "cache",
			Type:           "cache_size",
			Values:         []sample.Value{sample.GaugeValue(float64(e.cache.Len()))},
		},
	}

	for _, vl := range vls {
		vl.Plugin = selfPlugin
		vl.Time = now
		if err := e.Dispatch(ctx, vl); err != nil {
			return err
		}
	}
	return nil
}
