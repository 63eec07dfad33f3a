// SPDX-License-Identifier: GPL-3.0-or-later

package filterchain

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// Options is the free-form configuration of a match or target instance.
type Options map[string]any

// Decode unmarshals o into dst, which is usually a struct with yaml tags.
func (o Options) Decode(dst any) error {
	if len(o) == 0 {
		return nil
	}
	bs, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("encoding options: %v", err)
	}
	if err := yaml.UnmarshalStrict(bs, dst); err != nil {
		return fmt.Errorf("decoding options: %v", err)
	}
	return nil
}
