// SPDX-License-Identifier: GPL-3.0-or-later

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module/moduletest"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func virtualMemory(context.Context) (*mem.VirtualMemoryStat, error) {
	return &mem.VirtualMemoryStat{
		Total:        1000,
		Free:         400,
		Buffers:      100,
		Cached:       200,
		Sreclaimable: 50,
		Sunreclaim:   50,
		Used:         300,
	}, nil
}

func TestMemory_ConfigurationSerialize(t *testing.T) {
	module.TestConfigurationSerialize(t, &Memory{},
		[]byte(`{"values_absolute": true, "values_percentage": false}`),
		[]byte("values_absolute: true\nvalues_percentage: false\n"))
}

func TestMemory_Register(t *testing.T) {
	h := moduletest.New(t)

	m := New()
	m.ValuesAbsolute = false

	assert.Error(t, module.Attach(context.Background(), h.Engine, "memory", m))
}

func TestMemory_Read(t *testing.T) {
	tests := map[string]struct {
		absolute, percentage bool
		want                 map[string]float64
	}{
		"absolute": {
			absolute: true,
			want: map[string]float64{
				"memory/memory-used":        200,
				"memory/memory-free":        400,
				"memory/memory-buffered":    100,
				"memory/memory-cached":      200,
				"memory/memory-slab_recl":   50,
				"memory/memory-slab_unrecl": 50,
			},
		},
		"percentage": {
			percentage: true,
			want: map[string]float64{
				"memory/percent-used":        20,
				"memory/percent-free":        40,
				"memory/percent-buffered":    10,
				"memory/percent-cached":      20,
				"memory/percent-slab_recl":   5,
				"memory/percent-slab_unrecl": 5,
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			h := moduletest.New(t)

			m := New()
			m.ValuesAbsolute = test.absolute
			m.ValuesPercentage = test.percentage
			m.virtualMemory = virtualMemory

			h.Attach(t, "memory", time.Second, m)

			require.NoError(t, h.ReadOnce())
			assert.InDeltaMapValues(t, test.want, h.ValueMap(), 1e-9)
		})
	}
}

func TestMemory_ReadError(t *testing.T) {
	h := moduletest.New(t)

	m := New()
	m.virtualMemory = func(context.Context) (*mem.VirtualMemoryStat, error) { return nil, errors.New("boom") }
	h.Attach(t, "memory", time.Second, m)

	assert.Error(t, h.ReadOnce())
	assert.Empty(t, h.Values())
}
