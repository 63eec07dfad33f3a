// SPDX-License-Identifier: GPL-3.0-or-later

package load

import (
	"context"
	"errors"
	"fmt"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
)

func init() {
	module.Register("load", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "system load averages",
	})
}

func New() *Load {
	return &Load{
		loadAvg:  load.AvgWithContext,
		cpuCount: cpu.CountsWithContext,
	}
}

type Config struct {
	// ReportRelative divides the load averages by the number of logical CPUs.
	ReportRelative bool `yaml:"report_relative" json:"report_relative"`
}

type Load struct {
	module.Base
	Config `yaml:",inline" json:""`

	host module.Host

	loadAvg  func(context.Context) (*load.AvgStat, error)
	cpuCount func(ctx context.Context, logical bool) (int, error)
}

func (l *Load) Configuration() any {
	return l.Config
}

func (l *Load) Register(ctx context.Context, host module.Host) error {
	l.host = host
	return host.RegisterRead(ctx, "load", l.read)
}

func (l *Load) read(ctx context.Context) error {
	avg, err := l.loadAvg(ctx)
	if err != nil {
		return fmt.Errorf("reading load averages: %v", err)
	}

	vl := &sample.ValueList{
		Plugin: "load",
		Type:   "load",
	}
	vals := []float64{avg.Load1, avg.Load5, avg.Load15}

	if l.ReportRelative {
		n, err := l.cpuCount(ctx, true)
		if err != nil {
			return fmt.Errorf("counting CPUs: %v", err)
		}
		if n <= 0 {
			return errors.New("no CPUs found")
		}
		for i := range vals {
			vals[i] /= float64(n)
		}
		vl.TypeInstance = "relative"
	}

	for _, v := range vals {
		vl.Values = append(vl.Values, sample.GaugeValue(v))
	}

	return l.host.Dispatch(ctx, vl)
}
