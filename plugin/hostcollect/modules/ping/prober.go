// SPDX-License-Identifier: GPL-3.0-or-later

package ping

import (
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"

	probing "github.com/prometheus-community/pro-bing"
)

type prober interface {
	ping(host string) (*probing.Statistics, error)
}

type proberConfig struct {
	network    string
	privileged bool
	packets    int
	iface      string
	interval   time.Duration
	timeout    time.Duration
	ttl        int
}

func newPingProber(conf proberConfig, log *logger.Logger) prober {
	var source string
	if conf.iface != "" {
		if addr, err := getInterfaceIPAddress(conf.iface); err != nil {
			log.Warningf("error getting interface '%s' IP address: %v", conf.iface, err)
		} else {
			log.Infof("interface '%s' IP address '%s', will use it as the source", conf.iface, addr)
			source = addr
		}
	}

	return &pingProber{
		Logger:     log,
		network:    conf.network,
		privileged: conf.privileged,
		packets:    conf.packets,
		source:     source,
		interval:   conf.interval,
		timeout:    conf.timeout,
		ttl:        conf.ttl,
	}
}

type pingProber struct {
	*logger.Logger

	network    string
	privileged bool
	packets    int
	source     string
	interval   time.Duration
	timeout    time.Duration
	ttl        int
}

func (p *pingProber) ping(host string) (*probing.Statistics, error) {
	pr := probing.New(host)

	pr.SetNetwork(p.network)

	if err := pr.Resolve(); err != nil {
		return nil, fmt.Errorf("DNS lookup '%s' : %v", host, err)
	}

	pr.Source = p.source
	pr.RecordRtts = false
	pr.Interval = p.interval
	pr.Count = p.packets
	pr.Timeout = p.timeout
	if p.ttl > 0 {
		pr.TTL = p.ttl
	}
	pr.SetPrivileged(p.privileged)
	pr.SetLogger(nil)

	if err := pr.Run(); err != nil {
		return nil, fmt.Errorf("pinging host '%s' (ip %s): %v", pr.Addr(), pr.IPAddr(), err)
	}

	stats := pr.Statistics()

	p.Debugf("ping stats for host '%s' (ip '%s'): %+v", pr.Addr(), pr.IPAddr(), stats)

	return stats, nil
}

func getInterfaceIPAddress(ifaceName string) (ipaddr string, err error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return "", err
	}

	addresses, err := iface.Addrs()
	if err != nil {
		return "", err
	}

	for _, addr := range addresses {
		if ipnet, ok := addr.(*net.IPNet); ok && ipnet.IP.To4() != nil {
			return ipnet.IP.To4().String(), nil
		}
	}

	return "", errors.New("ipv4 addresses not found")
}
