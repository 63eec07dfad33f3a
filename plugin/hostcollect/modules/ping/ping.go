// SPDX-License-Identifier: GPL-3.0-or-later

package ping

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/pkg/confopt"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	probing "github.com/prometheus-community/pro-bing"
)

func init() {
	module.Register("ping", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "ICMP round trip times and packet loss",
	})
}

func New() *Ping {
	return &Ping{
		Config: Config{
			Network:        "ip",
			Privileged:     true,
			Packets:        5,
			PacketInterval: confopt.Duration(100 * time.Millisecond),
		},
		newProber: newPingProber,
		stats:     make(map[string]*hostStats),
	}
}

type Config struct {
	Hosts          []string         `yaml:"hosts" json:"hosts"`
	Network        string           `yaml:"network,omitempty" json:"network"`
	Privileged     bool             `yaml:"privileged" json:"privileged"`
	Packets        int              `yaml:"packets,omitempty" json:"packets"`
	PacketInterval confopt.Duration `yaml:"packet_interval,omitempty" json:"packet_interval"`
	Timeout        confopt.Duration `yaml:"timeout,omitempty" json:"timeout"`
	Interface      string           `yaml:"interface,omitempty" json:"interface"`
	TTL            int              `yaml:"ttl,omitempty" json:"ttl"`
}

// hostStats accumulates probe results between two reads.
type hostStats struct {
	sent, recv int
	// sum of rtt and of rtt squared, in milliseconds, weighted by received packets
	rttSum, rttSqSum float64
}

type Ping struct {
	module.Base
	Config `yaml:",inline" json:""`

	host      module.Host
	prober    prober
	newProber func(proberConfig, *logger.Logger) prober

	mu    sync.Mutex
	stats map[string]*hostStats

	stop chan struct{}
	done <-chan struct{}
}

func (p *Ping) Configuration() any {
	return p.Config
}

func (p *Ping) Register(ctx context.Context, host module.Host) error {
	if len(p.Hosts) == 0 {
		return errors.New("'hosts' can't be empty")
	}
	if p.Packets <= 0 {
		return errors.New("'packets' can't be <= 0")
	}
	p.host = host

	if err := host.RegisterInit(ctx, "ping", p.init); err != nil {
		return err
	}
	if err := host.RegisterComplexRead(ctx, "ping", "ping", p.read, 0, &engine.UserData{Data: host}); err != nil {
		return err
	}
	return host.RegisterShutdown(ctx, "ping", p.shutdown)
}

// init starts the background prober. It inherits the plugin context and pings
// every host once per plugin interval.
func (p *Ping) init(ctx context.Context) error {
	interval := p.host.Interval(ctx)

	timeout := p.Timeout.Duration()
	if timeout <= 0 {
		timeout = time.Duration(float64(interval) * 0.9)
	}
	if timeout.Milliseconds() == 0 {
		return errors.New("zero ping timeout")
	}

	p.prober = p.newProber(proberConfig{
		network:    p.Network,
		privileged: p.Privileged,
		packets:    p.Packets,
		iface:      p.Interface,
		interval:   p.PacketInterval.Duration(),
		timeout:    timeout,
		ttl:        p.TTL,
	}, p.Logger)

	p.stop = make(chan struct{})
	p.done = pctx.Go(ctx, p.loop)

	return nil
}

func (p *Ping) loop(ctx context.Context) {
	tk := time.NewTicker(p.host.Interval(ctx))
	defer tk.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-tk.C:
			p.round()
		}
	}
}

// round pings every host once and accumulates the results.
func (p *Ping) round() {
	for _, host := range p.Hosts {
		stats, err := p.prober.ping(host)
		if err != nil {
			p.Warning(err)
			p.accumulate(host, &probing.Statistics{PacketsSent: p.Packets})
			continue
		}
		p.accumulate(host, stats)
	}
}

func (p *Ping) accumulate(host string, st *probing.Statistics) {
	p.mu.Lock()
	defer p.mu.Unlock()

	hs, ok := p.stats[host]
	if !ok {
		hs = &hostStats{}
		p.stats[host] = hs
	}
	hs.sent += st.PacketsSent
	hs.recv += st.PacketsRecv
	if st.PacketsRecv > 0 {
		avg := float64(st.AvgRtt.Microseconds()) / 1000
		sd := float64(st.StdDevRtt.Microseconds()) / 1000
		n := float64(st.PacketsRecv)
		hs.rttSum += avg * n
		hs.rttSqSum += (sd*sd + avg*avg) * n
	}
}

func (p *Ping) read(ctx context.Context, ud any) error {
	host, ok := ud.(module.Host)
	if !ok {
		return fmt.Errorf("unexpected user data %T", ud)
	}

	p.mu.Lock()
	stats := p.stats
	p.stats = make(map[string]*hostStats)
	p.mu.Unlock()

	var errs []error
	for _, name := range p.Hosts {
		hs, ok := stats[name]
		if !ok || hs.sent == 0 {
			continue
		}
		latency, stddev := math.NaN(), math.NaN()
		if hs.recv > 0 {
			n := float64(hs.recv)
			latency = hs.rttSum / n
			stddev = math.Sqrt(math.Max(0, hs.rttSqSum/n-latency*latency))
		}
		droprate := float64(hs.sent-hs.recv) / float64(hs.sent)

		for typ, v := range map[string]float64{
			"ping":          latency,
			"ping_stddev":   stddev,
			"ping_droprate": droprate,
		} {
			vl := &sample.ValueList{
				Plugin:       "ping",
				Type:         typ,
				TypeInstance: name,
				Values:       []sample.Value{sample.GaugeValue(v)},
			}
			if err := host.Dispatch(ctx, vl); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func (p *Ping) shutdown(context.Context) error {
	if p.stop == nil {
		return nil
	}
	close(p.stop)
	<-p.done
	p.stop = nil
	return nil
}
