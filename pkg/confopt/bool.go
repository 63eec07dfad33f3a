// SPDX-License-Identifier: GPL-3.0-or-later

package confopt

import (
	"fmt"
	"strings"
)

// FlexBool is a boolean that also accepts yes/no, on/off, y/n, t/f and 1/0.
type FlexBool bool

func (b *FlexBool) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "yes", "y", "on", "t", "1":
		*b = true
	case "false", "no", "n", "off", "f", "0", "":
		*b = false
	default:
		return fmt.Errorf("invalid boolean value '%s'", s)
	}
	return nil
}

func (b FlexBool) MarshalYAML() (any, error) {
	return bool(b), nil
}
