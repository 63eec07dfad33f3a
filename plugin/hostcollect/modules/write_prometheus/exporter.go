// SPDX-License-Identifier: GPL-3.0-or-later

package write_prometheus

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "hostcollect"

var labelNames = []string{"instance", "plugin_instance", "type_instance"}

type series struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     float64
	labels    []string
	updated   time.Time
}

// exporter keeps the last value of every data source and hands it to Prometheus on scrape.
type exporter struct {
	mu        sync.Mutex
	series    map[string]*series
	descs     map[string]*prometheus.Desc
	staleness time.Duration
	now       func() time.Time
}

func newExporter(staleness time.Duration) *exporter {
	return &exporter{
		series:    make(map[string]*series),
		descs:     make(map[string]*prometheus.Desc),
		staleness: staleness,
		now:       time.Now,
	}
}

func (e *exporter) update(ds *sample.DataSet, vl *sample.ValueList) error {
	if len(ds.Sources) != len(vl.Values) {
		return fmt.Errorf("%s: data set has %d sources, got %d values", vl.Identifier(), len(ds.Sources), len(vl.Values))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	id := vl.Identifier().String()
	labels := []string{vl.Host, vl.PluginInstance, vl.TypeInstance}
	updated := vl.Time
	if updated.IsZero() {
		updated = e.now()
	}

	for i, src := range ds.Sources {
		name := metricName(vl.Plugin, vl.Type, src.Name, src.Kind)
		desc, ok := e.descs[name]
		if !ok {
			help := fmt.Sprintf("hostcollect/%s/%s, type %s", vl.Plugin, vl.Type, src.Kind)
			desc = prometheus.NewDesc(name, help, labelNames, nil)
			e.descs[name] = desc
		}

		vt := prometheus.GaugeValue
		if src.Kind == sample.Counter || src.Kind == sample.Derive {
			vt = prometheus.CounterValue
		}

		e.series[id+"/"+src.Name] = &series{
			desc:      desc,
			valueType: vt,
			value:     vl.Values[i].Float(src.Kind),
			labels:    labels,
			updated:   updated,
		}
	}
	return nil
}

// remove drops every series of vl's identifier and returns how many were dropped.
func (e *exporter) remove(vl *sample.ValueList) int {
	e.mu.Lock()
	defer e.mu.Unlock()

	prefix := vl.Identifier().String() + "/"
	var n int
	for key := range e.series {
		if strings.HasPrefix(key, prefix) {
			delete(e.series, key)
			n++
		}
	}
	return n
}

// Describe sends nothing: the set of series is only known at scrape time.
func (e *exporter) Describe(chan<- *prometheus.Desc) {}

func (e *exporter) Collect(ch chan<- prometheus.Metric) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	for key, s := range e.series {
		if e.staleness > 0 && now.Sub(s.updated) > e.staleness {
			delete(e.series, key)
			continue
		}
		ch <- prometheus.MustNewConstMetric(s.desc, s.valueType, s.value, s.labels...)
	}
}

// metricName builds "hostcollect_<plugin>_<type>[_<source>][_total]".
func metricName(plugin, typ, source string, kind sample.DSType) string {
	var sb strings.Builder
	sb.WriteString(namespace)
	sb.WriteByte('_')
	sb.WriteString(plugin)
	if typ != plugin {
		sb.WriteByte('_')
		sb.WriteString(typ)
	}
	if source != "value" {
		sb.WriteByte('_')
		sb.WriteString(source)
	}
	if kind == sample.Counter || kind == sample.Derive {
		sb.WriteString("_total")
	}
	return sanitize(sb.String())
}

func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			return r
		default:
			return '_'
		}
	}, name)
}
