// SPDX-License-Identifier: GPL-3.0-or-later

package match_regex

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

func init() {
	module.Register("match_regex", module.Creator{
		Create:      func() module.Module { return &MatchRegex{} },
		Description: "filter chain match on identifier fields by regular expression",
	})
}

type MatchRegex struct {
	module.Base
}

func (m *MatchRegex) Configuration() any { return nil }

func (m *MatchRegex) Register(_ context.Context, host module.Host) error {
	return host.RegisterMatch("regex", newMatcher)
}

// patterns accepts a single expression or a list of them.
type patterns []string

func (p *patterns) UnmarshalYAML(unmarshal func(any) error) error {
	var one string
	if err := unmarshal(&one); err == nil {
		*p = patterns{one}
		return nil
	}
	var many []string
	if err := unmarshal(&many); err != nil {
		return err
	}
	*p = many
	return nil
}

type options struct {
	Host           patterns            `yaml:"host"`
	Plugin         patterns            `yaml:"plugin"`
	PluginInstance patterns            `yaml:"plugin_instance"`
	Type           patterns            `yaml:"type"`
	TypeInstance   patterns            `yaml:"type_instance"`
	Meta           map[string]patterns `yaml:"meta"`
	Invert         bool                `yaml:"invert"`
}

type field struct {
	get func(vl *sample.ValueList) (string, bool)
	res []*regexp.Regexp
}

// matcher matches when every configured expression matches its field.
type matcher struct {
	fields []field
	invert bool
}

func newMatcher(_ filterchain.Env, opts filterchain.Options) (filterchain.Matcher, error) {
	var cfg options
	if err := opts.Decode(&cfg); err != nil {
		return nil, err
	}

	m := &matcher{invert: cfg.Invert}
	add := func(name string, ps patterns, get func(vl *sample.ValueList) (string, bool)) error {
		if len(ps) == 0 {
			return nil
		}
		f := field{get: get}
		for _, p := range ps {
			re, err := regexp.Compile(p)
			if err != nil {
				return fmt.Errorf("'%s': %v", name, err)
			}
			f.res = append(f.res, re)
		}
		m.fields = append(m.fields, f)
		return nil
	}

	errs := []error{
		add("host", cfg.Host, func(vl *sample.ValueList) (string, bool) { return vl.Host, true }),
		add("plugin", cfg.Plugin, func(vl *sample.ValueList) (string, bool) { return vl.Plugin, true }),
		add("plugin_instance", cfg.PluginInstance, func(vl *sample.ValueList) (string, bool) { return vl.PluginInstance, true }),
		add("type", cfg.Type, func(vl *sample.ValueList) (string, bool) { return vl.Type, true }),
		add("type_instance", cfg.TypeInstance, func(vl *sample.ValueList) (string, bool) { return vl.TypeInstance, true }),
	}
	for key, ps := range cfg.Meta {
		errs = append(errs, add("meta:"+key, ps, func(vl *sample.ValueList) (string, bool) { return vl.Meta.GetString(key) }))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if len(m.fields) == 0 {
		return nil, errors.New("no regular expressions configured")
	}
	return m, nil
}

func (m *matcher) Match(_ context.Context, _ *sample.DataSet, vl *sample.ValueList) (bool, error) {
	return m.match(vl) != m.invert, nil
}

func (m *matcher) match(vl *sample.ValueList) bool {
	for _, f := range m.fields {
		v, ok := f.get(vl)
		if !ok {
			return false
		}
		for _, re := range f.res {
			if !re.MatchString(v) {
				return false
			}
		}
	}
	return true
}
