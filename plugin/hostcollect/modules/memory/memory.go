// SPDX-License-Identifier: GPL-3.0-or-later

package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/shirou/gopsutil/v3/mem"
)

func init() {
	module.Register("memory", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "physical memory utilization",
	})
}

func New() *Memory {
	return &Memory{
		Config: Config{
			ValuesAbsolute: true,
		},
		virtualMemory: mem.VirtualMemoryWithContext,
	}
}

type Config struct {
	ValuesAbsolute   bool `yaml:"values_absolute" json:"values_absolute"`
	ValuesPercentage bool `yaml:"values_percentage" json:"values_percentage"`
}

type Memory struct {
	module.Base
	Config `yaml:",inline" json:""`

	host module.Host

	virtualMemory func(context.Context) (*mem.VirtualMemoryStat, error)
}

func (m *Memory) Configuration() any {
	return m.Config
}

func (m *Memory) Register(ctx context.Context, host module.Host) error {
	if !m.ValuesAbsolute && !m.ValuesPercentage {
		return errors.New("both 'values_absolute' and 'values_percentage' are disabled")
	}
	m.host = host
	return host.RegisterRead(ctx, "memory", m.read)
}

func (m *Memory) read(ctx context.Context) error {
	vm, err := m.virtualMemory(ctx)
	if err != nil {
		return fmt.Errorf("reading memory statistics: %v", err)
	}

	values := map[string]float64{
		"free":     float64(vm.Free),
		"buffered": float64(vm.Buffers),
		"cached":   float64(vm.Cached),
	}
	var slab float64
	if vm.Sreclaimable > 0 || vm.Sunreclaim > 0 {
		values["slab_recl"] = float64(vm.Sreclaimable)
		values["slab_unrecl"] = float64(vm.Sunreclaim)
		slab = float64(vm.Sreclaimable + vm.Sunreclaim)
	}
	// used as the remainder, so that every instance adds up to the total
	used := float64(vm.Total) - float64(vm.Free) - float64(vm.Buffers) - float64(vm.Cached) - slab
	if used < 0 {
		used = float64(vm.Used)
	}
	values["used"] = used

	tmpl := &sample.ValueList{Plugin: "memory"}

	var errs []error
	if m.ValuesAbsolute {
		errs = append(errs, m.host.DispatchMultiValue(ctx, tmpl, "memory", false, values))
	}
	if m.ValuesPercentage {
		errs = append(errs, m.host.DispatchMultiValue(ctx, tmpl, "percent", true, values))
	}
	return errors.Join(errs...)
}
