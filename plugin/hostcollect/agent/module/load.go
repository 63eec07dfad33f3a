// SPDX-License-Identifier: GPL-3.0-or-later

package module

import (
	"context"
	"fmt"
	"time"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"

	"gopkg.in/yaml.v2"
)

// Load creates the module registered as name, applies cfg to it and registers it with host.
// A non-zero interval overrides the host default for every callback the module registers.
func (r Registry) Load(ctx context.Context, host Host, name string, interval time.Duration, cfg map[any]any) (Module, error) {
	creator, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("unknown plugin '%s'", name)
	}
	if creator.Create == nil {
		return nil, fmt.Errorf("plugin '%s' has no constructor", name)
	}

	mod := creator.Create()

	if len(cfg) > 0 {
		bs, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("plugin '%s': encoding config: %v", name, err)
		}
		if err := yaml.Unmarshal(bs, mod); err != nil {
			return nil, fmt.Errorf("plugin '%s': decoding config: %v", name, err)
		}
	}

	ctx = pctx.With(ctx, pctx.Context{Plugin: name, Interval: interval})
	if err := Attach(ctx, host, name, mod); err != nil {
		return nil, err
	}
	return mod, nil
}

// Attach gives mod its logger and lets it register its callbacks.
func Attach(ctx context.Context, host Host, name string, mod Module) error {
	mod.GetBase().Logger = host.NewLogger(name)
	if err := mod.Register(ctx, host); err != nil {
		return fmt.Errorf("plugin '%s': %v", name, err)
	}
	return nil
}
