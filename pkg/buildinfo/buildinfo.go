// SPDX-License-Identifier: GPL-3.0-or-later

package buildinfo

import (
	"fmt"
	"runtime"
)

// Version stores the daemon version number. It's set during the build process using build flags.
var Version = "v0.0.0"

// StockConfigDir stores the path to the stock configuration directory.
// This value is set during the build process using build flags.
var StockConfigDir = "/etc/hostcollect"

// Info returns a one-line build summary.
func Info() string {
	return fmt.Sprintf("version=%s, go=%s, os=%s, arch=%s", Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
