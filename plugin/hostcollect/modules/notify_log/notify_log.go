// SPDX-License-Identifier: GPL-3.0-or-later

package notify_log

import (
	"context"
	"fmt"
	"strings"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

func init() {
	module.Register("notify_log", module.Creator{
		Create:      func() module.Module { return New() },
		Description: "writes notifications to the daemon log",
	})
}

func New() *NotifyLog {
	return &NotifyLog{
		Config: Config{MinSeverity: "okay"},
	}
}

type Config struct {
	// MinSeverity drops notifications less severe than this. Failure is the most severe.
	MinSeverity string `yaml:"min_severity" json:"min_severity"`
}

type NotifyLog struct {
	module.Base
	Config `yaml:",inline" json:""`

	min sample.Severity
}

func (n *NotifyLog) Configuration() any {
	return n.Config
}

func (n *NotifyLog) Register(ctx context.Context, host module.Host) error {
	sev, err := sample.ParseSeverity(n.MinSeverity)
	if err != nil {
		return fmt.Errorf("'min_severity': %v", err)
	}
	n.min = sev
	return host.RegisterNotification(ctx, "notify_log", n.notify, nil)
}

// Lower severity values are more severe.
func (n *NotifyLog) notify(_ context.Context, notif *sample.Notification, _ any) error {
	if notif.Severity > n.min {
		return nil
	}

	msg := format(notif)
	switch notif.Severity {
	case sample.SeverityFailure:
		n.Error(msg)
	case sample.SeverityWarning:
		n.Warning(msg)
	default:
		n.Info(msg)
	}
	return nil
}

func format(n *sample.Notification) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "notification: severity=%s host=%s plugin=%s", n.Severity, n.Host, n.Plugin)
	if n.PluginInstance != "" {
		fmt.Fprintf(&sb, " plugin_instance=%s", n.PluginInstance)
	}
	if n.Type != "" {
		fmt.Fprintf(&sb, " type=%s", n.Type)
	}
	if n.TypeInstance != "" {
		fmt.Fprintf(&sb, " type_instance=%s", n.TypeInstance)
	}
	fmt.Fprintf(&sb, " message=%q", n.Message)
	return sb.String()
}
