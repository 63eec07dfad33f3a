// SPDX-License-Identifier: GPL-3.0-or-later

// Package agent loads the configuration, builds the engine with the configured
// plugins and keeps it running until the process is told to stop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/module"

	"github.com/coreos/go-systemd/v22/daemon"
)

const stopTimeout = 10 * time.Second

// Config is the command line side of the agent configuration.
type Config struct {
	Name       string
	ConfigFile string
	// PidFile overrides 'pid_file' of the configuration file.
	PidFile string
}

type Agent struct {
	*logger.Logger

	Name           string
	ConfigFile     string
	PidFile        string
	ModuleRegistry module.Registry

	notify func(state string)
}

func New(cfg Config) *Agent {
	return &Agent{
		Logger: logger.New().With(
			slog.String("component", "agent"),
		),
		Name:           cfg.Name,
		ConfigFile:     cfg.ConfigFile,
		PidFile:        cfg.PidFile,
		ModuleRegistry: module.DefaultRegistry,
		notify:         func(state string) { _, _ = daemon.SdNotify(false, state) },
	}
}

// Run serves until SIGINT or SIGTERM. SIGHUP restarts the running instance with a
// freshly loaded configuration.
func (a *Agent) Run() error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	if cfg.PidFile != "" {
		pf, err := lockPidFile(cfg.PidFile)
		if err != nil {
			return err
		}
		defer pf.release()
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	return a.serve(ch)
}

func (a *Agent) serve(sigs <-chan os.Signal) error {
	for {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)

		go func() { done <- a.run(ctx) }()

		var exit bool
		select {
		case err := <-done:
			cancel()
			return err
		case sig := <-sigs:
			if sig == syscall.SIGHUP {
				a.Infof("received %s signal (%d). Restarting running instance", sig, sig)
				a.notify(daemon.SdNotifyReloading)
			} else {
				a.Infof("received %s signal (%d). Terminating...", sig, sig)
				a.notify(daemon.SdNotifyStopping)
				exit = true
			}
		}

		cancel()

		t := time.NewTimer(stopTimeout + time.Second)
		select {
		case <-t.C:
			return fmt.Errorf("stopping the running instance timed out after %s", stopTimeout)
		case err := <-done:
			t.Stop()
			if err != nil {
				a.Error(err)
			}
		}

		if exit {
			return nil
		}
	}
}

// run loads the configuration, starts an engine and keeps it running until ctx is done.
func (a *Agent) run(ctx context.Context) error {
	a.Info("instance is started")
	defer func() { a.Info("instance is stopped") }()

	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	a.Infof("using config: %s", cfg.String())

	e, err := a.setup(ctx, cfg)
	if e == nil {
		return err
	}
	defer e.Close()

	if err := e.Start(ctx); err != nil {
		return err
	}
	a.notify(daemon.SdNotifyReady)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	e.Stop(stopCtx)

	return nil
}

// TestRead runs every read function once and reports whether any of them failed.
func (a *Agent) TestRead(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	e, setupErr := a.setup(ctx, cfg)
	if e == nil {
		return setupErr
	}
	defer e.Close()

	return errors.Join(setupErr, e.ReadAllOnce(ctx))
}

// CheckConfig loads the configuration, every plugin and every filter chain without
// starting anything.
func (a *Agent) CheckConfig(ctx context.Context) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	e, setupErr := a.setup(ctx, cfg)
	if e == nil {
		return setupErr
	}
	defer e.Close()

	return errors.Join(setupErr, e.BuildChains())
}

func (a *Agent) loadConfig() (FileConfig, error) {
	cfg, err := LoadConfig(a.ConfigFile)
	if err != nil {
		return cfg, fmt.Errorf("loading config: %v", err)
	}
	if a.PidFile != "" {
		cfg.PidFile = a.PidFile
	}
	return cfg, nil
}

// setup builds the engine and loads the configured plugins. A plugin that fails to
// load is left out and reported in the returned error; the engine is still usable.
func (a *Agent) setup(ctx context.Context, cfg FileConfig) (*engine.Engine, error) {
	e, err := engine.New(cfg.engineConfig())
	if err != nil {
		return nil, err
	}

	var errs []error

	for _, path := range cfg.TypesDB {
		if err := e.TypesDB().LoadFile(path); err != nil {
			a.Warningf("types db: %v", err)
			errs = append(errs, err)
		}
	}

	for _, name := range cfg.pluginNames() {
		interval, opts, err := pluginInterval(cfg.Plugins[name])
		if err == nil {
			_, err = a.ModuleRegistry.Load(ctx, e, name, interval, opts)
		}
		if err != nil {
			a.Errorf("plugin '%s' is not loaded: %v", name, err)
			e.UnregisterPlugin(name)
			errs = append(errs, fmt.Errorf("plugin '%s': %w", name, err))
			continue
		}
		a.Debugf("plugin '%s' loaded", name)
	}

	return e, errors.Join(errs...)
}
