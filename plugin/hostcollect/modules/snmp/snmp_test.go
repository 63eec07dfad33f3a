// SPDX-License-Identifier: GPL-3.0-or-later

package snmp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module/moduletest"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/golang/mock/gomock"
	"github.com/gosnmp/gosnmp"
	snmpmock "github.com/gosnmp/gosnmp/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	oidIfInOctets  = "1.3.6.1.2.1.2.2.1.10.2"
	oidIfOutOctets = "1.3.6.1.2.1.2.2.1.16.2"
	oidTemperature = "1.3.6.1.4.1.2021.13.16.2.1.3.1"
)

func TestSNMP_ConfigurationSerialize(t *testing.T) {
	module.TestConfigurationSerialize(t, &SNMP{},
		[]byte(`{"data":[{"name":"traffic","type":"if_octets","type_instance":"eth0","values":["1.3.6.1.2.1.2.2.1.10.1","1.3.6.1.2.1.2.2.1.16.1"],"scale":1,"shift":0}],`+
			`"hosts":[{"name":"router","address":"192.0.2.1","port":161,"community":"public","version":"2c","user":{"name":"","level":"","auth_proto":"","auth_key":"","priv_proto":"","priv_key":""},"retries":1,"timeout":5,"interval":30,"max_request_size":60,"collect":["traffic"]}]}`),
		[]byte(`
data:
- name: traffic
  type: if_octets
  type_instance: eth0
  values: [1.3.6.1.2.1.2.2.1.10.1, 1.3.6.1.2.1.2.2.1.16.1]
hosts:
- name: router
  address: 192.0.2.1
  version: 2c
  interval: 30
  collect: [traffic]
`))
}

func TestSNMP_Register(t *testing.T) {
	tests := map[string]struct {
		config    Config
		wantErr   bool
		wantReads []string
	}{
		"two hosts": {
			config:    prepareConfig("router", "switch"),
			wantReads: []string{"snmp-router", "snmp-switch"},
		},
		"no hosts": {
			config:  Config{Data: prepareConfig().Data},
			wantErr: true,
		},
		"unknown data": {
			config: func() Config {
				cfg := prepareConfig("router")
				cfg.Hosts[0].Collect = append(cfg.Hosts[0].Collect, "missing")
				return cfg
			}(),
			wantErr: true,
		},
		"unknown type": {
			config: func() Config {
				cfg := prepareConfig("router")
				cfg.Data[0].Type = "no_such_type"
				return cfg
			}(),
			wantErr: true,
		},
		"wrong number of OIDs": {
			config: func() Config {
				cfg := prepareConfig("router")
				cfg.Data[0].Values = cfg.Data[0].Values[:1]
				return cfg
			}(),
			wantErr: true,
		},
		"v3 without user": {
			config: func() Config {
				cfg := prepareConfig("router", "switch")
				cfg.Hosts[1].Version = "3"
				return cfg
			}(),
			wantErr:   true,
			wantReads: []string{"snmp-router"},
		},
		"invalid version": {
			config: func() Config {
				cfg := prepareConfig("router")
				cfg.Hosts[0].Version = "4"
				return cfg
			}(),
			wantErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			h := moduletest.New(t)
			ctrl := gomock.NewController(t)

			s := New()
			s.Config = test.config
			s.newSnmpClient = func() gosnmp.Handler {
				m := snmpmock.NewMockHandler(ctrl)
				defaultMockExpects(m)
				return m
			}

			err := attach(h, s)
			if test.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.ElementsMatch(t, test.wantReads, h.ReadNames())
		})
	}
}

func TestSNMP_Read(t *testing.T) {
	tests := map[string]struct {
		prepare func(m *snmpmock.MockHandler)
		wantErr bool
		want    map[string]float64
	}{
		"success": {
			prepare: func(m *snmpmock.MockHandler) {
				m.EXPECT().Connect().Return(nil).Times(1)
				m.EXPECT().Get([]string{oidIfInOctets, oidIfOutOctets}).Return(&gosnmp.SnmpPacket{
					Variables: []gosnmp.SnmpPDU{
						{Name: oidIfInOctets, Value: uint(1000), Type: gosnmp.Counter32},
						{Name: oidIfOutOctets, Value: uint64(2000), Type: gosnmp.Counter64},
					},
				}, nil).Times(1)
				m.EXPECT().Get([]string{oidTemperature}).Return(&gosnmp.SnmpPacket{
					Variables: []gosnmp.SnmpPDU{
						{Name: oidTemperature, Value: 455, Type: gosnmp.Integer},
					},
				}, nil).Times(1)
				m.EXPECT().Close().Return(nil).Times(1)
			},
			want: map[string]float64{
				"router/snmp/gauge-cpu": 45.5,
			},
		},
		"one data fails": {
			prepare: func(m *snmpmock.MockHandler) {
				m.EXPECT().Connect().Return(nil).Times(1)
				m.EXPECT().Get([]string{oidIfInOctets, oidIfOutOctets}).Return(&gosnmp.SnmpPacket{
					Variables: []gosnmp.SnmpPDU{
						{Name: oidIfInOctets, Type: gosnmp.NoSuchObject},
						{Name: oidIfOutOctets, Value: uint64(2000), Type: gosnmp.Counter64},
					},
				}, nil).Times(1)
				m.EXPECT().Get([]string{oidTemperature}).Return(&gosnmp.SnmpPacket{
					Variables: []gosnmp.SnmpPDU{
						{Name: oidTemperature, Value: []byte("300"), Type: gosnmp.OctetString},
					},
				}, nil).Times(1)
				m.EXPECT().Close().Return(nil).Times(1)
			},
			wantErr: true,
			want: map[string]float64{
				"router/snmp/gauge-cpu": 30,
			},
		},
		"get fails": {
			prepare: func(m *snmpmock.MockHandler) {
				m.EXPECT().Connect().Return(nil).Times(1)
				m.EXPECT().Get(gomock.Any()).Return(nil, errors.New("mock Get() error")).Times(2)
				m.EXPECT().Close().Return(nil).Times(1)
			},
			wantErr: true,
			want:    map[string]float64{},
		},
		"connect fails": {
			prepare: func(m *snmpmock.MockHandler) {
				m.EXPECT().Connect().Return(errors.New("mock Connect() error")).Times(1)
			},
			wantErr: true,
			want:    map[string]float64{},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			h := moduletest.New(t)
			ctrl := gomock.NewController(t)
			m := snmpmock.NewMockHandler(ctrl)
			defaultMockExpects(m)
			test.prepare(m)

			s := New()
			s.Config = prepareConfig("router")
			s.newSnmpClient = func() gosnmp.Handler { return m }
			require.NoError(t, attach(h, s))

			err := h.ReadOnce()
			if test.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			got := make(map[string]float64)
			for _, vl := range h.Values() {
				if vl.Type == "gauge" {
					got[vl.Identifier().String()] = vl.Values[0].Gauge
				}
			}
			assert.InDeltaMapValues(t, test.want, got, 1e-9)

			// counters come out raw
			for _, vl := range h.Values() {
				if vl.Type == "if_octets" {
					assert.Equal(t, []sample.Value{sample.CounterValue(1000), sample.CounterValue(2000)}, vl.Values)
				}
			}

			// shutdown drops the host reads, releasing their clients
			assert.Empty(t, h.ReadNames())
			assert.NoError(t, releaseHosts(h))
		})
	}
}

func TestConvertPDU(t *testing.T) {
	tests := map[string]struct {
		pdu     gosnmp.SnmpPDU
		kind    sample.DSType
		want    sample.Value
		wantErr bool
	}{
		"counter32 as counter": {
			pdu:  gosnmp.SnmpPDU{Type: gosnmp.Counter32, Value: uint(42)},
			kind: sample.Counter,
			want: sample.CounterValue(42),
		},
		"negative integer as gauge": {
			pdu:  gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: -5},
			kind: sample.Gauge,
			want: sample.GaugeValue(-5),
		},
		"integer as derive": {
			pdu:  gosnmp.SnmpPDU{Type: gosnmp.Integer, Value: -5},
			kind: sample.Derive,
			want: sample.DeriveValue(-5),
		},
		"opaque float as gauge": {
			pdu:  gosnmp.SnmpPDU{Type: gosnmp.OpaqueFloat, Value: float32(1.5)},
			kind: sample.Gauge,
			want: sample.GaugeValue(1.5),
		},
		"string as absolute": {
			pdu:  gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte(" 17 ")},
			kind: sample.Absolute,
			want: sample.AbsoluteValue(17),
		},
		"non numeric string": {
			pdu:     gosnmp.SnmpPDU{Type: gosnmp.OctetString, Value: []byte("up")},
			kind:    sample.Gauge,
			wantErr: true,
		},
		"unsupported type": {
			pdu:     gosnmp.SnmpPDU{Type: gosnmp.IPAddress, Value: "192.0.2.1"},
			kind:    sample.Gauge,
			wantErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := convertPDU(test.pdu, test.kind, 1, 0)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, v)
		})
	}
}

func attach(h *moduletest.Harness, s *SNMP) error {
	s.Logger = h.NewLogger("snmp")
	s.Logger.Mute()
	return s.Register(pluginContext(), h.Engine)
}

func pluginContext() context.Context {
	return pctx.With(context.Background(), pctx.Context{Plugin: "snmp", Interval: time.Second})
}

func prepareConfig(hosts ...string) Config {
	cfg := Config{
		Data: []DataConfig{
			{
				Name:         "traffic",
				Type:         "if_octets",
				TypeInstance: "eth1",
				Values:       []string{oidIfInOctets, oidIfOutOctets},
			},
			{
				Name:         "cpu_temp",
				Type:         "gauge",
				TypeInstance: "cpu",
				Values:       []string{oidTemperature},
				Scale:        0.1,
			},
		},
	}
	for _, h := range hosts {
		cfg.Hosts = append(cfg.Hosts, HostConfig{
			Name:    h,
			Address: "192.0.2.1",
			Collect: []string{"traffic", "cpu_temp"},
		})
	}
	return cfg
}

func defaultMockExpects(m *snmpmock.MockHandler) {
	m.EXPECT().Target().AnyTimes()
	m.EXPECT().Port().AnyTimes()
	m.EXPECT().Version().AnyTimes()
	m.EXPECT().Community().AnyTimes()
	m.EXPECT().MsgFlags().AnyTimes()
	m.EXPECT().SetTarget(gomock.Any()).AnyTimes()
	m.EXPECT().SetPort(gomock.Any()).AnyTimes()
	m.EXPECT().SetRetries(gomock.Any()).AnyTimes()
	m.EXPECT().SetMaxOids(gomock.Any()).AnyTimes()
	m.EXPECT().SetTimeout(gomock.Any()).AnyTimes()
	m.EXPECT().SetCommunity(gomock.Any()).AnyTimes()
	m.EXPECT().SetVersion(gomock.Any()).AnyTimes()
	m.EXPECT().SetSecurityModel(gomock.Any()).AnyTimes()
	m.EXPECT().SetMsgFlags(gomock.Any()).AnyTimes()
	m.EXPECT().SetSecurityParameters(gomock.Any()).AnyTimes()
}
