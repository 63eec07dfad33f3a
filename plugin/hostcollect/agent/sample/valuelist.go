// SPDX-License-Identifier: GPL-3.0-or-later

package sample

import (
	"fmt"
	"strings"
	"time"
)

// MaxFieldLen is the maximum length of an identity field.
const MaxFieldLen = 127

// ValueList is one observation: a set of typed readings taken at one point in time.
type ValueList struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string

	Values   []Value
	Time     time.Time
	Interval time.Duration
	Meta     Meta
}

func (vl *ValueList) Identifier() Identifier {
	return Identifier{
		Host:           vl.Host,
		Plugin:         vl.Plugin,
		PluginInstance: vl.PluginInstance,
		Type:           vl.Type,
		TypeInstance:   vl.TypeInstance,
	}
}

func (vl *ValueList) String() string {
	return vl.Identifier().String()
}

// Clone returns a deep copy of vl.
func (vl *ValueList) Clone() *ValueList {
	c := *vl
	c.Values = make([]Value, len(vl.Values))
	copy(c.Values, vl.Values)
	c.Meta = vl.Meta.Clone()
	return &c
}

// Escape replaces '/' in every identity field with '_' and truncates fields
// that exceed MaxFieldLen.
func (vl *ValueList) Escape() {
	for _, f := range []*string{&vl.Host, &vl.Plugin, &vl.PluginInstance, &vl.Type, &vl.TypeInstance} {
		*f = escapeField(*f)
	}
}

func escapeField(s string) string {
	if len(s) > MaxFieldLen {
		s = s[:MaxFieldLen]
	}
	return strings.ReplaceAll(s, "/", "_")
}

// Identifier is the unique key of a ValueList.
type Identifier struct {
	Host           string
	Plugin         string
	PluginInstance string
	Type           string
	TypeInstance   string
}

// String formats the identifier as host/plugin[-plugin_instance]/type[-type_instance].
func (id Identifier) String() string {
	var sb strings.Builder
	sb.WriteString(id.Host)
	sb.WriteByte('/')
	sb.WriteString(id.Plugin)
	if id.PluginInstance != "" {
		sb.WriteByte('-')
		sb.WriteString(id.PluginInstance)
	}
	sb.WriteByte('/')
	sb.WriteString(id.Type)
	if id.TypeInstance != "" {
		sb.WriteByte('-')
		sb.WriteString(id.TypeInstance)
	}
	return sb.String()
}

// ParseIdentifier is the inverse of Identifier.String. The first '-' of the plugin and
// type parts separates the instance.
func ParseIdentifier(s string) (Identifier, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Identifier{}, fmt.Errorf("invalid identifier '%s': expected host/plugin/type", s)
	}
	if parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Identifier{}, fmt.Errorf("invalid identifier '%s': empty part", s)
	}

	id := Identifier{Host: parts[0]}
	id.Plugin, id.PluginInstance, _ = strings.Cut(parts[1], "-")
	id.Type, id.TypeInstance, _ = strings.Cut(parts[2], "-")
	return id, nil
}
