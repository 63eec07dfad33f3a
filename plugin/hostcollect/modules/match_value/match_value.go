// SPDX-License-Identifier: GPL-3.0-or-later

package match_value

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

func init() {
	module.Register("match_value", module.Creator{
		Create:      func() module.Module { return &MatchValue{} },
		Description: "filter chain match on sample values",
	})
}

type MatchValue struct {
	module.Base
}

func (m *MatchValue) Configuration() any { return nil }

func (m *MatchValue) Register(_ context.Context, host module.Host) error {
	return host.RegisterMatch("value", newMatcher)
}

type options struct {
	Min         *float64 `yaml:"min"`
	Max         *float64 `yaml:"max"`
	Invert      bool     `yaml:"invert"`
	Satisfy     string   `yaml:"satisfy"`
	DataSources []string `yaml:"data_source"`
}

// matcher checks each selected value against [min, max]. With satisfy "all" every
// value must be in range, with "any" one is enough. NaN is never in range.
type matcher struct {
	min, max    float64
	invert      bool
	all         bool
	dataSources []string
}

func newMatcher(_ filterchain.Env, opts filterchain.Options) (filterchain.Matcher, error) {
	var cfg options
	if err := opts.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.Min == nil && cfg.Max == nil {
		return nil, errors.New("neither 'min' nor 'max' is set")
	}

	m := &matcher{
		min:         math.Inf(-1),
		max:         math.Inf(1),
		invert:      cfg.Invert,
		dataSources: cfg.DataSources,
	}
	if cfg.Min != nil {
		m.min = *cfg.Min
	}
	if cfg.Max != nil {
		m.max = *cfg.Max
	}
	if m.min > m.max {
		return nil, fmt.Errorf("'min' %g is greater than 'max' %g", m.min, m.max)
	}

	switch cfg.Satisfy {
	case "", "all":
		m.all = true
	case "any":
	default:
		return nil, fmt.Errorf("'satisfy' must be 'all' or 'any', got '%s'", cfg.Satisfy)
	}
	return m, nil
}

func (m *matcher) Match(_ context.Context, ds *sample.DataSet, vl *sample.ValueList) (bool, error) {
	if ds == nil || len(ds.Sources) != len(vl.Values) {
		return false, fmt.Errorf("%s: values do not match the data set", vl.Identifier())
	}

	checked, inRange := 0, 0
	for i, src := range ds.Sources {
		if len(m.dataSources) > 0 && !slices.Contains(m.dataSources, src.Name) {
			continue
		}
		checked++
		v := vl.Values[i].Float(src.Kind)
		if !math.IsNaN(v) && v >= m.min && v <= m.max {
			inRange++
		}
	}

	var ok bool
	if m.all {
		ok = checked > 0 && inRange == checked
	} else {
		ok = inRange > 0
	}
	return ok != m.invert, nil
}
