// SPDX-License-Identifier: GPL-3.0-or-later

package write_influxdb_udp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

func init() {
	module.Register("write_influxdb_udp", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "sends samples as InfluxDB line protocol over UDP",
	})
}

func New() *WriteInfluxDBUDP {
	return &WriteInfluxDBUDP{
		Config: Config{
			Address:       "127.0.0.1:8089",
			MaxPacketSize: 1452,
			StoreRates:    false,
		},
	}
}

type Config struct {
	Address       string `yaml:"address" json:"address"`
	MaxPacketSize int    `yaml:"max_packet_size" json:"max_packet_size"`
	// StoreRates sends counters and derives as per-second rates from the value cache.
	StoreRates bool `yaml:"store_rates" json:"store_rates"`
}

type WriteInfluxDBUDP struct {
	module.Base
	Config `yaml:",inline" json:""`
}

func (w *WriteInfluxDBUDP) Configuration() any {
	return w.Config
}

func (w *WriteInfluxDBUDP) Register(ctx context.Context, host module.Host) error {
	if w.Address == "" {
		return errors.New("'address' can't be empty")
	}
	if w.MaxPacketSize < 64 {
		return fmt.Errorf("'max_packet_size' %d is too small", w.MaxPacketSize)
	}

	conn, err := net.Dial("udp", w.Address)
	if err != nil {
		return fmt.Errorf("dial '%s': %v", w.Address, err)
	}

	s := &sender{conn: conn, maxSize: w.MaxPacketSize}
	if w.StoreRates {
		s.rates = host
	}

	ud := &engine.UserData{Data: s, Free: func(v any) { v.(*sender).close() }}
	return errors.Join(
		host.RegisterWrite(ctx, "write_influxdb_udp", writeValues, ud),
		host.RegisterFlush(ctx, "write_influxdb_udp", flush, &engine.UserData{Data: s}),
	)
}

type rateSource interface {
	Rates(vl *sample.ValueList) ([]float64, error)
}

func writeValues(_ context.Context, ds *sample.DataSet, vl *sample.ValueList, ud any) error {
	s, ok := ud.(*sender)
	if !ok {
		return fmt.Errorf("unexpected user data %T", ud)
	}
	lines, err := s.format(ds, vl)
	if err != nil {
		return err
	}
	return s.add(lines)
}

func flush(_ context.Context, _ time.Duration, _ string, ud any) error {
	s, ok := ud.(*sender)
	if !ok {
		return fmt.Errorf("unexpected user data %T", ud)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.send()
}

type sender struct {
	mu      sync.Mutex
	conn    net.Conn
	maxSize int
	buf     bytes.Buffer
	rates   rateSource
}

// format renders vl as one line per data source.
func (s *sender) format(ds *sample.DataSet, vl *sample.ValueList) ([][]byte, error) {
	if len(ds.Sources) != len(vl.Values) {
		return nil, fmt.Errorf("%s: data set has %d sources, got %d values", vl.Identifier(), len(ds.Sources), len(vl.Values))
	}

	var rates []float64
	if s.rates != nil {
		var err error
		if rates, err = s.rates.Rates(vl); err != nil {
			return nil, err
		}
	}

	tags := map[string]string{"host": vl.Host}
	if vl.PluginInstance != "" {
		tags["instance"] = vl.PluginInstance
	}
	if vl.TypeInstance != "" {
		tags["type_instance"] = vl.TypeInstance
	}
	tags["type"] = vl.Type

	ts := vl.Time
	if ts.IsZero() {
		ts = time.Now()
	}

	lines := make([][]byte, 0, len(ds.Sources))
	for i, src := range ds.Sources {
		measurement := vl.Plugin + "_" + vl.Type
		if len(ds.Sources) > 1 {
			measurement += "_" + src.Name
		}

		var field any
		switch {
		case rates != nil && src.Kind != sample.Gauge:
			field = rates[i]
		case src.Kind == sample.Gauge:
			field = vl.Values[i].Gauge
		case src.Kind == sample.Derive:
			field = vl.Values[i].Derive
		case src.Kind == sample.Counter:
			field = vl.Values[i].Counter
		default:
			field = vl.Values[i].Absolute
		}
		if f, ok := field.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			continue
		}

		p := influxdb2.NewPoint(measurement, tags, map[string]any{"value": field}, ts)
		lines = append(lines, []byte(write.PointToLineProtocol(p, time.Millisecond)))
	}
	return lines, nil
}

func (s *sender) add(lines [][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, line := range lines {
		if len(line) > s.maxSize {
			errs = append(errs, fmt.Errorf("line of %d bytes exceeds max packet size", len(line)))
			continue
		}
		if s.buf.Len()+len(line) > s.maxSize {
			if err := s.send(); err != nil {
				errs = append(errs, err)
			}
		}
		s.buf.Write(line)
	}
	return errors.Join(errs...)
}

func (s *sender) send() error {
	if s.buf.Len() == 0 {
		return nil
	}
	defer s.buf.Reset()
	_, err := s.conn.Write(s.buf.Bytes())
	return err
}

func (s *sender) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.send()
	_ = s.conn.Close()
}
