// SPDX-License-Identifier: GPL-3.0-or-later

package target_notification

import (
	"context"
	"errors"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

func init() {
	module.Register("target_notification", module.Creator{
		Create:      func() module.Module { return &TargetNotification{} },
		Description: "filter chain target that turns matching samples into notifications",
	})
}

type TargetNotification struct {
	module.Base
}

func (t *TargetNotification) Configuration() any { return nil }

func (t *TargetNotification) Register(_ context.Context, host module.Host) error {
	return host.RegisterTarget("notification", newTarget)
}

type options struct {
	Message  string `yaml:"message"`
	Severity string `yaml:"severity"`
}

type target struct {
	notifier filterchain.Notifier
	message  string
	severity sample.Severity
}

func newTarget(env filterchain.Env, opts filterchain.Options) (filterchain.Target, error) {
	var cfg options
	if err := opts.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.Message == "" {
		return nil, errors.New("'message' is required")
	}
	if cfg.Severity == "" {
		return nil, errors.New("'severity' is required")
	}
	sev, err := sample.ParseSeverity(cfg.Severity)
	if err != nil {
		return nil, err
	}
	if env.Notifier == nil {
		return nil, errors.New("no notifier available")
	}
	return &target{notifier: env.Notifier, message: cfg.Message, severity: sev}, nil
}

func (t *target) Invoke(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList) (filterchain.Verdict, error) {
	n := &sample.Notification{
		Severity:       t.severity,
		Time:           vl.Time,
		Host:           vl.Host,
		Plugin:         vl.Plugin,
		PluginInstance: vl.PluginInstance,
		Type:           vl.Type,
		TypeInstance:   vl.TypeInstance,
		Message:        filterchain.Expand(t.message, ds, vl),
	}
	return filterchain.Continue, t.notifier.DispatchNotification(ctx, n)
}
