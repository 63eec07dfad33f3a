// SPDX-License-Identifier: GPL-3.0-or-later

package sample

import (
	"fmt"
	"strings"
	"time"
)

type Severity int

const (
	SeverityFailure Severity = 1
	SeverityWarning Severity = 2
	SeverityOkay    Severity = 4
)

func (s Severity) String() string {
	switch s {
	case SeverityFailure:
		return "FAILURE"
	case SeverityWarning:
		return "WARNING"
	case SeverityOkay:
		return "OKAY"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(s) {
	case "failure", "fail", "critical":
		return SeverityFailure, nil
	case "warning", "warn":
		return SeverityWarning, nil
	case "okay", "ok":
		return SeverityOkay, nil
	}
	return 0, fmt.Errorf("unknown severity '%s'", s)
}

// Notification is a discrete event, as opposed to a periodic sample.
type Notification struct {
	Severity Severity
	Time     time.Time

	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string

	Message string
	Meta    Meta
}

func (n *Notification) Identifier() Identifier {
	return Identifier{
		Host:           n.Host,
		Plugin:         n.Plugin,
		PluginInstance: n.PluginInstance,
		Type:           n.Type,
		TypeInstance:   n.TypeInstance,
	}
}
