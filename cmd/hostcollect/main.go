// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/user"
	"strings"

	"go.uber.org/automaxprocs/maxprocs"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/pkg/buildinfo"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/cli"
	_ "github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/modules"
)

func init() {
	// https://github.com/netdata/netdata/issues/8949#issuecomment-638294959
	if v := os.Getenv("TZ"); strings.HasPrefix(v, ":") {
		_ = os.Unsetenv("TZ")
	}
}

func main() {
	_, _ = maxprocs.Set(maxprocs.Logger(func(s string, args ...interface{}) {}))

	opts := parseCLI()

	if opts.Version {
		fmt.Printf("hostcollect, version: %s\n", buildinfo.Version)
		return
	}

	if opts.ListPlugins {
		for _, name := range module.DefaultRegistry.Names() {
			creator, _ := module.DefaultRegistry.Lookup(name)
			fmt.Printf("%-22s %s\n", name, creator.Description)
		}
		return
	}

	if lvl := os.Getenv("HOSTCOLLECT_LOG_LEVEL"); lvl != "" {
		logger.Level.SetByName(lvl)
	}
	if opts.Debug {
		logger.Level.Set(slog.LevelDebug)
	}

	a := agent.New(agent.Config{
		Name:       "hostcollect",
		ConfigFile: opts.ConfigFile,
		PidFile:    opts.PidFile,
	})

	a.Infof("daemon: %s", buildinfo.Info())
	if u, err := user.Current(); err == nil {
		a.Debugf("current user: name=%s, uid=%s", u.Username, u.Uid)
	}

	var err error
	switch {
	case opts.TestConfig:
		err = a.CheckConfig(context.Background())
	case opts.TestRead:
		err = a.TestRead(context.Background())
	default:
		err = a.Run()
	}
	if err != nil {
		a.Error(err)
		os.Exit(1)
	}
}

func parseCLI() *cli.Option {
	opt, err := cli.Parse(os.Args[1:])
	if err != nil {
		if cli.IsHelp(err) {
			os.Exit(0)
		}
		os.Exit(1)
	}

	return opt
}
