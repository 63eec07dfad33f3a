// SPDX-License-Identifier: GPL-3.0-or-later

package ping

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module/moduletest"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"

	probing "github.com/prometheus-community/pro-bing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPing_ConfigurationSerialize(t *testing.T) {
	module.TestConfigurationSerialize(t, &Ping{},
		[]byte(`{"hosts":["192.0.2.1","example.com"],"network":"ip4","privileged":false,"packets":3,"packet_interval":0.2,"timeout":1,"interface":"eth0","ttl":64}`),
		[]byte("hosts:\n- 192.0.2.1\n- example.com\nnetwork: ip4\nprivileged: false\npackets: 3\npacket_interval: 0.2\ntimeout: 1\ninterface: eth0\nttl: 64\n"))
}

func TestPing_Register(t *testing.T) {
	tests := map[string]struct {
		prepare func(p *Ping)
		wantErr bool
	}{
		"ok": {
			prepare: func(p *Ping) { p.Hosts = []string{"192.0.2.1"} },
		},
		"no hosts": {
			prepare: func(p *Ping) {},
			wantErr: true,
		},
		"zero packets": {
			prepare: func(p *Ping) { p.Hosts = []string{"192.0.2.1"}; p.Packets = 0 },
			wantErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			h := moduletest.New(t)
			p := New()
			test.prepare(p)

			ctx := pctx.With(context.Background(), pctx.Context{Plugin: "ping", Interval: time.Second})
			err := module.Attach(ctx, h.Engine, "ping", p)
			if test.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"ping"}, h.ReadNames())
		})
	}
}

func TestPing_Read(t *testing.T) {
	h := moduletest.New(t)

	p := New()
	p.Hosts = []string{"a", "b", "c"}
	p.newProber = func(proberConfig, *logger.Logger) prober { return &mockProber{} }
	h.Attach(t, "ping", time.Hour, p)

	// a: 2 rounds, 10 packets, 8 received
	p.accumulate("a", &probing.Statistics{PacketsSent: 5, PacketsRecv: 5, AvgRtt: 10 * time.Millisecond})
	p.accumulate("a", &probing.Statistics{PacketsSent: 5, PacketsRecv: 3, AvgRtt: 20 * time.Millisecond})
	// b: all lost
	p.accumulate("b", &probing.Statistics{PacketsSent: 5})

	require.NoError(t, h.ReadOnce())

	got := h.ValueMap()

	assert.InDelta(t, 13.75, got["ping/ping-a"], 1e-9)
	assert.InDelta(t, 0.2, got["ping/ping_droprate-a"], 1e-9)
	assert.InDelta(t, math.Sqrt(23.4375), got["ping/ping_stddev-a"], 1e-9)

	assert.True(t, math.IsNaN(got["ping/ping-b"]))
	assert.InDelta(t, 1.0, got["ping/ping_droprate-b"], 1e-9)

	_, ok := got["ping/ping-c"]
	assert.False(t, ok, "host without probes must not be reported")

	h.Reset()
	require.NoError(t, h.ReadOnce())
	assert.Empty(t, h.Values(), "stats are reset after each read")
}

func TestPing_BackgroundLoop(t *testing.T) {
	h := moduletest.New(t)

	mp := &mockProber{
		stats: &probing.Statistics{PacketsSent: 2, PacketsRecv: 2, AvgRtt: time.Millisecond},
		errs:  map[string]error{"down": errors.New("unreachable")},
	}
	p := New()
	p.Hosts = []string{"up", "down"}
	p.newProber = func(proberConfig, *logger.Logger) prober { return mp }
	h.Attach(t, "ping", 10*time.Millisecond, p)

	ctx := pctx.With(context.Background(), pctx.Context{Plugin: "ping", Interval: 10 * time.Millisecond})
	require.NoError(t, p.init(ctx))

	require.Eventually(t, func() bool { return mp.count("down") >= 2 }, time.Second, 5*time.Millisecond)
	require.NoError(t, p.shutdown(ctx))
	require.NoError(t, p.shutdown(ctx))

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Contains(t, p.stats, "down")
	assert.Zero(t, p.stats["down"].recv)
	assert.Zero(t, p.stats["down"].sent%p.Packets)
	assert.Equal(t, p.stats["up"].sent, p.stats["up"].recv)
}

type mockProber struct {
	mu    sync.Mutex
	calls map[string]int
	stats *probing.Statistics
	errs  map[string]error
}

func (m *mockProber) ping(host string) (*probing.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[host]++
	if err := m.errs[host]; err != nil {
		return nil, err
	}
	st := *m.stats
	return &st, nil
}

func (m *mockProber) count(host string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[host]
}
