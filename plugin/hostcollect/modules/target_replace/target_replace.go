// SPDX-License-Identifier: GPL-3.0-or-later

package target_replace

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
	module.Register("target_replace", module.Creator{
		Create:      func() module.Module { return &TargetReplace{} },
		Description: "filter chain target that rewrites identifier fields with regular expressions",
	})
}

type TargetReplace struct {
	module.Base
}

func (t *TargetReplace) Configuration() any { return nil }

func (t *TargetReplace) Register(_ context.Context, host module.Host) error {
	return host.RegisterTarget("replace", newTarget)
}

type ruleConfig struct {
	Regex   string `yaml:"regex"`
	Replace string `yaml:"replace"`
}

type options struct {
	Host           []ruleConfig `yaml:"host"`
	Plugin         []ruleConfig `yaml:"plugin"`
	PluginInstance []ruleConfig `yaml:"plugin_instance"`
	TypeInstance   []ruleConfig `yaml:"type_instance"`
}

type rule struct {
	re      *regexp.Regexp
	replace string
	field   func(vl *sample.ValueList) *string
}

// target applies its rules in order. Each rule rewrites the first match only;
// $1 style references in the replacement are expanded.
type target struct {
	rules []rule
}

func newTarget(_ filterchain.Env, opts filterchain.Options) (filterchain.Target, error) {
	var cfg options
	if err := opts.Decode(&cfg); err != nil {
		return nil, err
	}

	t := &target{}
	add := func(name string, rcs []ruleConfig, field func(vl *sample.ValueList) *string) error {
		for _, rc := range rcs {
			re, err := regexp.Compile(rc.Regex)
			if err != nil {
				return fmt.Errorf("'%s': %v", name, err)
			}
			t.rules = append(t.rules, rule{re: re, replace: rc.Replace, field: field})
		}
		return nil
	}

	if err := errors.Join(
		add("host", cfg.Host, func(vl *sample.ValueList) *string { return &vl.Host }),
		add("plugin", cfg.Plugin, func(vl *sample.ValueList) *string { return &vl.Plugin }),
		add("plugin_instance", cfg.PluginInstance, func(vl *sample.ValueList) *string { return &vl.PluginInstance }),
		add("type_instance", cfg.TypeInstance, func(vl *sample.ValueList) *string { return &vl.TypeInstance }),
	); err != nil {
		return nil, err
	}
	if len(t.rules) == 0 {
		return nil, errors.New("no replacements configured")
	}
	return t, nil
}

func (t *target) Invoke(_ context.Context, _ *sample.DataSet, vl *sample.ValueList) (filterchain.Verdict, error) {
	plugin := vl.Plugin

	for _, r := range t.rules {
		f := r.field(vl)
		if loc := r.re.FindStringSubmatchIndex(*f); loc != nil {
			var dst []byte
			dst = r.re.ExpandString(dst, r.replace, *f, loc)
			*f = (*f)[:loc[0]] + string(dst) + (*f)[loc[1]:]
		}
	}

	if vl.Plugin == "" {
		vl.Plugin = plugin
		return filterchain.Continue, errors.New("replacement left 'plugin' empty, restored")
	}
	vl.Escape()
	return filterchain.Continue, nil
}
