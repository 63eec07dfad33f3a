// SPDX-License-Identifier: GPL-3.0-or-later

package cli

import (
	"github.com/jessevdk/go-flags"
)

const DefaultConfigFile = "/etc/hostcollect/hostcollect.conf"

// Option defines command line options.
type Option struct {
	ConfigFile  string `short:"c" long:"config" description:"configuration file to read" default:"/etc/hostcollect/hostcollect.conf"`
	TestRead    bool   `short:"T" long:"test" description:"run every read function once and exit"`
	TestConfig  bool   `short:"t" long:"test-config" description:"load the configuration and the plugins, then exit"`
	PidFile     string `short:"P" long:"pid-file" description:"pid file, overrides the configuration file"`
	ListPlugins bool   `short:"l" long:"list-plugins" description:"list the built-in plugins and exit"`
	Debug       bool   `short:"d" long:"debug" description:"debug mode"`
	Version     bool   `short:"v" long:"version" description:"display the version and exit"`
}

// Parse returns parsed command-line flags in Option struct
func Parse(args []string) (*Option, error) {
	opt := &Option{}
	parser := flags.NewParser(opt, flags.Default)
	parser.Name = "hostcollect"
	parser.Usage = "[OPTIONS]"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}

	return opt, nil
}

func IsHelp(err error) bool {
	return flags.WroteHelp(err)
}
