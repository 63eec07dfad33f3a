// SPDX-License-Identifier: GPL-3.0-or-later

package write_netdata

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/pkg/netdataapi"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

// Gauges are sent as fixed point integers.
const precision = 1000

func init() {
	module.Register("write_netdata", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "writes samples using the netdata external plugin protocol",
	})
}

func New() *WriteNetdata {
	return &WriteNetdata{
		Config: Config{
			Output: "-",
			TypeID: "hostcollect",
		},
		openOutput: openOutput,
	}
}

type Config struct {
	// Output is a file path, "-" is stdout.
	Output   string `yaml:"output" json:"output"`
	TypeID   string `yaml:"type_id" json:"type_id"`
	Priority int    `yaml:"priority,omitempty" json:"priority"`
}

type WriteNetdata struct {
	module.Base
	Config `yaml:",inline" json:""`

	openOutput func(path string) (io.WriteCloser, error)
}

func (w *WriteNetdata) Configuration() any {
	return w.Config
}

func (w *WriteNetdata) Register(ctx context.Context, host module.Host) error {
	if w.TypeID == "" {
		return fmt.Errorf("'type_id' can't be empty")
	}
	out, err := w.openOutput(w.Output)
	if err != nil {
		return err
	}

	cw := &chartWriter{
		api:      netdataapi.New(out),
		out:      out,
		typeID:   w.TypeID,
		priority: w.Priority,
		charts:   make(map[string]*chart),
	}
	if cw.priority == 0 {
		cw.priority = 70000
	}

	ud := &engine.UserData{Data: cw, Free: func(v any) { v.(*chartWriter).close() }}
	return host.RegisterWrite(ctx, "write_netdata", writeValues, ud)
}

func openOutput(path string) (io.WriteCloser, error) {
	if path == "" || path == "-" {
		return nopCloser{os.Stdout}, nil
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_APPEND|os.O_CREATE, 0o644)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

func writeValues(_ context.Context, ds *sample.DataSet, vl *sample.ValueList, ud any) error {
	cw, ok := ud.(*chartWriter)
	if !ok {
		return fmt.Errorf("unexpected user data %T", ud)
	}
	return cw.write(ds, vl)
}

type chart struct {
	id      string
	sources int
	last    time.Time
}

type chartWriter struct {
	mu       sync.Mutex
	api      *netdataapi.API
	out      io.Closer
	typeID   string
	priority int
	charts   map[string]*chart
}

func (cw *chartWriter) write(ds *sample.DataSet, vl *sample.ValueList) error {
	if len(ds.Sources) != len(vl.Values) {
		return fmt.Errorf("%s: data set has %d sources, got %d values", vl.Identifier(), len(ds.Sources), len(vl.Values))
	}

	cw.mu.Lock()
	defer cw.mu.Unlock()

	key := vl.Identifier().String()
	c, ok := cw.charts[key]
	if !ok || c.sources != len(ds.Sources) {
		c = &chart{id: chartID(vl), sources: len(ds.Sources)}
		cw.charts[key] = c
		cw.define(c, ds, vl)
	}

	var usSince int64
	if !c.last.IsZero() && vl.Time.After(c.last) {
		usSince = vl.Time.Sub(c.last).Microseconds()
	}
	c.last = vl.Time

	cw.api.BEGIN(cw.typeID, c.id, usSince)
	for i, src := range ds.Sources {
		v := vl.Values[i]
		switch src.Kind {
		case sample.Gauge:
			if math.IsNaN(v.Gauge) || math.IsInf(v.Gauge, 0) {
				cw.api.SETEMPTY(src.Name)
				continue
			}
			cw.api.SET(src.Name, int64(v.Gauge*precision))
		case sample.Derive:
			cw.api.SET(src.Name, v.Derive)
		case sample.Counter:
			cw.api.SET(src.Name, int64(v.Counter))
		case sample.Absolute:
			cw.api.SET(src.Name, int64(v.Absolute))
		}
	}
	cw.api.END()
	return nil
}

func (cw *chartWriter) define(c *chart, ds *sample.DataSet, vl *sample.ValueList) {
	family := vl.Plugin
	if vl.PluginInstance != "" {
		family += " " + vl.PluginInstance
	}
	cw.api.CHART(netdataapi.ChartOpts{
		TypeID:      cw.typeID,
		ID:          c.id,
		Title:       vl.Identifier().String(),
		Units:       ds.Type,
		Family:      family,
		Context:     cw.typeID + "." + vl.Plugin + "_" + vl.Type,
		ChartType:   "line",
		Priority:    cw.priority,
		UpdateEvery: max(1, int(vl.Interval.Seconds())),
		Plugin:      "hostcollect",
		Module:      vl.Plugin,
	})
	for _, src := range ds.Sources {
		opts := netdataapi.DimensionOpts{ID: src.Name, Name: src.Name, Multiplier: 1, Divisor: 1}
		switch src.Kind {
		case sample.Gauge:
			opts.Algorithm = "absolute"
			opts.Divisor = precision
		case sample.Absolute:
			opts.Algorithm = "absolute"
		default:
			opts.Algorithm = "incremental"
		}
		cw.api.DIMENSION(opts)
	}
	if vl.Host != "" {
		cw.api.CLABEL("host", vl.Host, netdataapi.LabelSourceAuto)
		cw.api.CLABELCOMMIT()
	}
}

func (cw *chartWriter) close() {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	_ = cw.out.Close()
}

var chartIDReplacer = strings.NewReplacer(".", "_", " ", "_", "/", "_", "'", "")

// chartID derives a netdata chart id from the sample identifier.
func chartID(vl *sample.ValueList) string {
	id := vl.Host + "_" + vl.Plugin
	if vl.PluginInstance != "" {
		id += "-" + vl.PluginInstance
	}
	id += "_" + vl.Type
	if vl.TypeInstance != "" {
		id += "-" + vl.TypeInstance
	}
	return chartIDReplacer.Replace(id)
}
