// SPDX-License-Identifier: GPL-3.0-or-later

package filterchain

import "fmt"

// Verdict is the outcome of a target invocation or of a chain evaluation.
type Verdict int

const (
	// Continue proceeds with the next target or rule.
	Continue Verdict = iota
	// Stop ends processing of the sample altogether.
	Stop
	// Return ends the current chain only.
	Return
)

func (v Verdict) String() string {
	switch v {
	case Continue:
		return "continue"
	case Stop:
		return "stop"
	case Return:
		return "return"
	}
	return fmt.Sprintf("Verdict(%d)", int(v))
}

// Propagate maps the verdict of a chain to what its caller sees:
// a Stop stays a Stop, a Return is only visible one level up.
func Propagate(v Verdict) Verdict {
	if v == Stop {
		return Stop
	}
	return Continue
}
