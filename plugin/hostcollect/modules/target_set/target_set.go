// SPDX-License-Identifier: GPL-3.0-or-later

package target_set

import (
	"context"
	"errors"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

func init() {
	module.Register("target_set", module.Creator{
		Create:      func() module.Module { return &TargetSet{} },
		Description: "filter chain target that overwrites identifier fields and metadata",
	})
}

type TargetSet struct {
	module.Base
}

func (t *TargetSet) Configuration() any { return nil }

func (t *TargetSet) Register(_ context.Context, host module.Host) error {
	return host.RegisterTarget("set", newTarget)
}

type options struct {
	Host           *string           `yaml:"host"`
	Plugin         *string           `yaml:"plugin"`
	PluginInstance *string           `yaml:"plugin_instance"`
	TypeInstance   *string           `yaml:"type_instance"`
	Meta           map[string]string `yaml:"meta"`
	DeleteMeta     []string          `yaml:"delete_meta"`
}

// target overwrites fields with expanded templates. Every template sees the
// sample as it was before this target touched it.
type target struct {
	opts options
}

func newTarget(_ filterchain.Env, opts filterchain.Options) (filterchain.Target, error) {
	var cfg options
	if err := opts.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.Host == nil && cfg.Plugin == nil && cfg.PluginInstance == nil && cfg.TypeInstance == nil &&
		len(cfg.Meta) == 0 && len(cfg.DeleteMeta) == 0 {
		return nil, errors.New("nothing to set")
	}
	if cfg.Plugin != nil && *cfg.Plugin == "" {
		return nil, errors.New("'plugin' can't be set to an empty string")
	}
	return &target{opts: cfg}, nil
}

func (t *target) Invoke(_ context.Context, ds *sample.DataSet, vl *sample.ValueList) (filterchain.Verdict, error) {
	orig := vl.Clone()

	set := func(dst *string, tmpl *string) {
		if tmpl != nil {
			*dst = filterchain.Expand(*tmpl, ds, orig)
		}
	}
	set(&vl.Host, t.opts.Host)
	set(&vl.Plugin, t.opts.Plugin)
	set(&vl.PluginInstance, t.opts.PluginInstance)
	set(&vl.TypeInstance, t.opts.TypeInstance)

	for k, tmpl := range t.opts.Meta {
		vl.Meta.SetString(k, filterchain.Expand(tmpl, ds, orig))
	}
	for _, k := range t.opts.DeleteMeta {
		vl.Meta.Delete(k)
	}
	vl.Escape()

	return filterchain.Continue, nil
}
