// SPDX-License-Identifier: GPL-3.0-or-later

package filterchain

import (
	"strconv"
	"strings"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

// Expand replaces %{host}, %{plugin}, %{plugin_instance}, %{type}, %{type_instance},
// %{meta:<key>} and %{ds:<source>} in tmpl with the fields of vl. Unknown or
// unterminated placeholders are kept as is.
func Expand(tmpl string, ds *sample.DataSet, vl *sample.ValueList) string {
	if !strings.Contains(tmpl, "%{") {
		return tmpl
	}

	var sb strings.Builder
	for {
		i := strings.Index(tmpl, "%{")
		if i < 0 {
			sb.WriteString(tmpl)
			return sb.String()
		}
		j := strings.IndexByte(tmpl[i:], '}')
		if j < 0 {
			sb.WriteString(tmpl)
			return sb.String()
		}
		sb.WriteString(tmpl[:i])

		name := tmpl[i+2 : i+j]
		if v, ok := lookup(name, ds, vl); ok {
			sb.WriteString(v)
		} else {
			sb.WriteString(tmpl[i : i+j+1])
		}
		tmpl = tmpl[i+j+1:]
	}
}

func lookup(name string, ds *sample.DataSet, vl *sample.ValueList) (string, bool) {
	switch name {
	case "host":
		return vl.Host, true
	case "plugin":
		return vl.Plugin, true
	case "plugin_instance":
		return vl.PluginInstance, true
	case "type":
		return vl.Type, true
	case "type_instance":
		return vl.TypeInstance, true
	}

	if key, ok := strings.CutPrefix(name, "meta:"); ok {
		v, ok := vl.Meta[key]
		if !ok {
			return "", false
		}
		switch v := v.(type) {
		case string:
			return v, true
		case int64:
			return strconv.FormatInt(v, 10), true
		case uint64:
			return strconv.FormatUint(v, 10), true
		case float64:
			return strconv.FormatFloat(v, 'g', -1, 64), true
		case bool:
			return strconv.FormatBool(v), true
		}
		return "", false
	}

	if src, ok := strings.CutPrefix(name, "ds:"); ok && ds != nil {
		for i, s := range ds.Sources {
			if s.Name == src && i < len(vl.Values) {
				return strconv.FormatFloat(vl.Values[i].Float(s.Kind), 'g', -1, 64), true
			}
		}
	}
	return "", false
}
