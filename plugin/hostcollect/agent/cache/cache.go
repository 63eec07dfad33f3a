// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache keeps the last value of every identifier that passed through the
// write pipeline, together with per-source rates.
package cache

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

var (
	ErrTooOld   = errors.New("value too old")
	ErrNotFound = errors.New("identifier not found in cache")
)

type entry struct {
	vl         *sample.ValueList
	ds         *sample.DataSet
	rates      []float64
	lastUpdate time.Time
}

type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry

	now func() time.Time
}

func New() *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

// Update stores vl and computes rates against the previously cached value.
// Samples that are not newer than the cached one are rejected with ErrTooOld.
func (c *Cache) Update(ds *sample.DataSet, vl *sample.ValueList) error {
	if err := ds.Check(vl); err != nil {
		return err
	}

	key := vl.Identifier().String()

	c.mu.Lock()
	defer c.mu.Unlock()

	prev, ok := c.entries[key]
	if !ok {
		c.entries[key] = &entry{
			vl:         vl.Clone(),
			ds:         ds,
			rates:      initialRates(ds, vl),
			lastUpdate: c.now(),
		}
		return nil
	}

	if !vl.Time.After(prev.vl.Time) {
		return fmt.Errorf("%w: %s (%s <= %s)", ErrTooOld, key,
			vl.Time.Format(time.RFC3339Nano), prev.vl.Time.Format(time.RFC3339Nano))
	}

	dt := vl.Time.Sub(prev.vl.Time).Seconds()
	rates := make([]float64, len(ds.Sources))
	for i, src := range ds.Sources {
		rates[i] = rate(src.Kind, prev.vl.Values[i], vl.Values[i], dt)
	}

	prev.vl = vl.Clone()
	prev.ds = ds
	prev.rates = rates
	prev.lastUpdate = c.now()

	return nil
}

func initialRates(ds *sample.DataSet, vl *sample.ValueList) []float64 {
	rates := make([]float64, len(ds.Sources))
	for i, src := range ds.Sources {
		if src.Kind == sample.Gauge {
			rates[i] = vl.Values[i].Gauge
		} else {
			rates[i] = math.NaN()
		}
	}
	return rates
}

func rate(kind sample.DSType, prev, curr sample.Value, dt float64) float64 {
	switch kind {
	case sample.Gauge:
		return curr.Gauge
	case sample.Counter:
		return float64(counterDiff(prev.Counter, curr.Counter)) / dt
	case sample.Derive:
		return float64(curr.Derive-prev.Derive) / dt
	case sample.Absolute:
		return float64(curr.Absolute) / dt
	}
	return math.NaN()
}

// counterDiff assumes a 32 bit counter wrapped if the old value fits into 32 bits.
func counterDiff(prev, curr uint64) uint64 {
	if curr >= prev {
		return curr - prev
	}
	if prev <= math.MaxUint32 {
		return math.MaxUint32 - prev + curr + 1
	}
	return math.MaxUint64 - prev + curr + 1
}

func (c *Cache) GetRate(id string) ([]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return slices.Clone(e.rates), nil
}

func (c *Cache) GetValueList(id string) (*sample.ValueList, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e.vl.Clone(), nil
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Cache) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make([]string, 0, len(c.entries))
	for k := range c.entries {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// Missing is an entry evicted by CheckTimeouts.
type Missing struct {
	DataSet   *sample.DataSet
	ValueList *sample.ValueList
}

// CheckTimeouts evicts entries that were not updated within timeout intervals of
// their own interval and returns them.
func (c *Cache) CheckTimeouts(now time.Time, timeout int) []Missing {
	if timeout <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var missing []Missing
	for key, e := range c.entries {
		if e.vl.Interval <= 0 {
			continue
		}
		if now.Sub(e.lastUpdate) < time.Duration(timeout)*e.vl.Interval {
			continue
		}
		missing = append(missing, Missing{DataSet: e.ds, ValueList: e.vl})
		delete(c.entries, key)
	}

	slices.SortFunc(missing, func(a, b Missing) int {
		return strings.Compare(a.ValueList.String(), b.ValueList.String())
	})
	return missing
}
