// SPDX-License-Identifier: GPL-3.0-or-later

package jolokia

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/tidwall/gjson"
)

// parse maps a bulk read response onto value lists, one per configured bean.
// A failed bean is reported and skipped.
func (j *Jolokia) parse(types *sample.TypesDB, body []byte) ([]*sample.ValueList, []error) {
	if !gjson.ValidBytes(body) {
		return nil, []error{errors.New("invalid JSON response")}
	}
	resp := gjson.ParseBytes(body)
	if !resp.IsArray() {
		return nil, []error{fmt.Errorf("unexpected response: %s", resp.Get("error").String())}
	}

	items := resp.Array()
	if len(items) != len(j.Beans) {
		return nil, []error{fmt.Errorf("expected %d responses, got %d", len(j.Beans), len(items))}
	}

	var vls []*sample.ValueList
	var errs []error
	for i, b := range j.Beans {
		item := items[i]
		if status := item.Get("status").Int(); status != 200 {
			errs = append(errs, fmt.Errorf("bean '%s' attribute '%s': status %d: %s", b.MBean, b.Attribute, status, item.Get("error").String()))
			continue
		}
		ds, err := types.Get(b.Type)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		v, err := toValue(item.Get("value"), ds.Sources[0].Kind)
		if err != nil {
			errs = append(errs, fmt.Errorf("bean '%s' attribute '%s': %v", b.MBean, b.Attribute, err))
			continue
		}
		vls = append(vls, &sample.ValueList{
			Plugin:         "jolokia",
			PluginInstance: j.Instance,
			Type:           b.Type,
			TypeInstance:   b.TypeInstance,
			Values:         []sample.Value{v},
		})
	}
	return vls, errs
}

func toValue(r gjson.Result, kind sample.DSType) (sample.Value, error) {
	var f float64
	switch r.Type {
	case gjson.Number:
		f = r.Num
	case gjson.True, gjson.False:
		if r.Bool() {
			f = 1
		}
	case gjson.String:
		v, err := strconv.ParseFloat(r.Str, 64)
		if err != nil {
			return sample.Value{}, fmt.Errorf("not a number: '%s'", r.Str)
		}
		f = v
	default:
		return sample.Value{}, fmt.Errorf("unexpected value '%s'", r.Raw)
	}

	switch kind {
	case sample.Counter:
		return sample.CounterValue(r.Uint()), nil
	case sample.Derive:
		return sample.DeriveValue(r.Int()), nil
	case sample.Absolute:
		return sample.AbsoluteValue(r.Uint()), nil
	default:
		return sample.GaugeValue(f), nil
	}
}
