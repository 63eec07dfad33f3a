// SPDX-License-Identifier: GPL-3.0-or-later

package write_netdata

import (
	"bytes"
	"context"
	"errors"
	"io"
	"math"
	"testing"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteNetdata_ConfigurationSerialize(t *testing.T) {
	module.TestConfigurationSerialize(t, &WriteNetdata{},
		[]byte(`{"output":"-","type_id":"hostcollect","priority":1000}`),
		[]byte("output: '-'\ntype_id: hostcollect\npriority: 1000\n"))
}

func TestWriteNetdata_Write(t *testing.T) {
	e, buf, closed := prepareEngine(t)
	ctx := context.Background()
	ts := time.Unix(1700000000, 0)

	loadDS, err := e.TypesDB().Get("load")
	require.NoError(t, err)
	vl := &sample.ValueList{
		Host:     "web1",
		Plugin:   "load",
		Type:     "load",
		Time:     ts,
		Interval: 10 * time.Second,
		Values:   []sample.Value{sample.GaugeValue(0.5), sample.GaugeValue(1.25), sample.GaugeValue(math.NaN())},
	}
	require.NoError(t, e.Write(ctx, "write_netdata", loadDS, vl))

	want := "CHART 'hostcollect.web1_load_load' '' 'web1/load/load' 'load' 'load' 'hostcollect.load_load' 'line' '70000' '10' '' 'hostcollect' 'load'\n" +
		"DIMENSION 'shortterm' 'shortterm' 'absolute' '1' '1000' ''\n" +
		"DIMENSION 'midterm' 'midterm' 'absolute' '1' '1000' ''\n" +
		"DIMENSION 'longterm' 'longterm' 'absolute' '1' '1000' ''\n" +
		"CLABEL 'host' 'web1' '1'\n" +
		"CLABEL_COMMIT\n" +
		"BEGIN 'hostcollect.web1_load_load'\n" +
		"SET 'shortterm' = 500\n" +
		"SET 'midterm' = 1250\n" +
		"SET 'longterm' = \n" +
		"END\n\n"
	assert.Equal(t, want, buf.String())

	buf.Reset()
	vl.Time = ts.Add(10 * time.Second)
	vl.Values[2] = sample.GaugeValue(2)
	require.NoError(t, e.Write(ctx, "write_netdata", loadDS, vl))
	assert.Equal(t, "BEGIN 'hostcollect.web1_load_load' 10000000\n"+
		"SET 'shortterm' = 500\n"+
		"SET 'midterm' = 1250\n"+
		"SET 'longterm' = 2000\n"+
		"END\n\n", buf.String(), "chart is defined once")

	buf.Reset()
	ifDS, err := e.TypesDB().Get("if_octets")
	require.NoError(t, err)
	require.NoError(t, e.Write(ctx, "write_netdata", ifDS, &sample.ValueList{
		Plugin:         "interface",
		PluginInstance: "eth0",
		Type:           "if_octets",
		Time:           ts,
		Interval:       time.Second,
		Values:         []sample.Value{sample.DeriveValue(100), sample.DeriveValue(200)},
	}))
	assert.Contains(t, buf.String(), "CHART 'hostcollect._interface-eth0_if_octets'")
	assert.Contains(t, buf.String(), "DIMENSION 'rx' 'rx' 'incremental' '1' '1' ''")
	assert.Contains(t, buf.String(), "SET 'tx' = 200")
	assert.NotContains(t, buf.String(), "CLABEL")

	assert.Error(t, e.Write(ctx, "write_netdata", ifDS, &sample.ValueList{Plugin: "x", Type: "if_octets", Values: []sample.Value{sample.DeriveValue(1)}}))

	require.NoError(t, e.UnregisterWrite("write_netdata"))
	assert.True(t, *closed)
}

func TestWriteNetdata_Register(t *testing.T) {
	tests := map[string]struct {
		prepare func(w *WriteNetdata)
		wantErr bool
	}{
		"ok": {
			prepare: func(w *WriteNetdata) {},
		},
		"empty type id": {
			prepare: func(w *WriteNetdata) { w.TypeID = "" },
			wantErr: true,
		},
		"output error": {
			prepare: func(w *WriteNetdata) {
				w.openOutput = func(string) (io.WriteCloser, error) { return nil, errors.New("permission denied") }
			},
			wantErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			e, err := engine.New(engine.Config{Hostname: "localhost"})
			require.NoError(t, err)
			e.Mute()
			defer e.Close()

			w := New()
			w.openOutput = func(string) (io.WriteCloser, error) { return nopCloser{io.Discard}, nil }
			test.prepare(w)

			err = module.Attach(pctx.WithPlugin(context.Background(), "write_netdata"), e, "write_netdata", w)
			if test.wantErr {
				assert.Error(t, err)
				assert.Empty(t, e.WriteNames())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"write_netdata"}, e.WriteNames())
		})
	}
}

func prepareEngine(t *testing.T) (*engine.Engine, *bytes.Buffer, *bool) {
	t.Helper()
	e, err := engine.New(engine.Config{Hostname: "localhost"})
	require.NoError(t, err)
	e.Mute()
	t.Cleanup(e.Close)

	var buf bytes.Buffer
	closed := new(bool)
	w := New()
	w.openOutput = func(string) (io.WriteCloser, error) { return &recordCloser{Writer: &buf, closed: closed}, nil }
	require.NoError(t, module.Attach(pctx.WithPlugin(context.Background(), "write_netdata"), e, "write_netdata", w))
	w.Mute()
	return e, &buf, closed
}

type recordCloser struct {
	io.Writer
	closed *bool
}

func (r *recordCloser) Close() error { *r.closed = true; return nil }
