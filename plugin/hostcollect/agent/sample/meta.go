// SPDX-License-Identifier: GPL-3.0-or-later

package sample

import "maps"

// Meta carries side-channel data alongside a sample or a notification.
// Values are restricted to string, int64, uint64, float64 and bool.
type Meta map[string]any

func (m *Meta) set(key string, value any) {
	if *m == nil {
		*m = make(Meta)
	}
	(*m)[key] = value
}

func (m *Meta) SetString(key, value string)    { m.set(key, value) }
func (m *Meta) SetInt(key string, v int64)     { m.set(key, v) }
func (m *Meta) SetUint(key string, v uint64)   { m.set(key, v) }
func (m *Meta) SetFloat(key string, v float64) { m.set(key, v) }
func (m *Meta) SetBool(key string, v bool)     { m.set(key, v) }

func (m Meta) GetString(key string) (string, bool) {
	v, ok := m[key].(string)
	return v, ok
}

func (m Meta) GetInt(key string) (int64, bool) {
	v, ok := m[key].(int64)
	return v, ok
}

func (m Meta) GetUint(key string) (uint64, bool) {
	v, ok := m[key].(uint64)
	return v, ok
}

func (m Meta) GetFloat(key string) (float64, bool) {
	v, ok := m[key].(float64)
	return v, ok
}

func (m Meta) GetBool(key string) (bool, bool) {
	v, ok := m[key].(bool)
	return v, ok
}

func (m Meta) Has(key string) bool {
	_, ok := m[key]
	return ok
}

func (m Meta) Delete(key string) {
	delete(m, key)
}

// Clone returns a copy that shares nothing with m. Values are scalars, so a shallow
// copy of the map is a deep copy.
func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}
