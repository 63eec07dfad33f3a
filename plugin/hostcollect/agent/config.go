// SPDX-License-Identifier: GPL-3.0-or-later

package agent

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/netdata/netdata/go/hostcollect/pkg/confopt"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/engine"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v2"
)

const defaultThreads = 5

func defaultConfig() FileConfig {
	return FileConfig{
		Interval:        confopt.Duration(engine.DefaultInterval),
		Timeout:         engine.DefaultTimeout,
		MaxReadInterval: confopt.Duration(24 * time.Hour),
		ReadThreads:     defaultThreads,
		WriteThreads:    defaultThreads,
	}
}

// FileConfig is the daemon configuration file.
type FileConfig struct {
	Hostname             string                        `yaml:"hostname"`
	Interval             confopt.Duration              `yaml:"interval"`
	Timeout              int                           `yaml:"timeout"`
	MaxReadInterval      confopt.Duration              `yaml:"max_read_interval"`
	ReadThreads          int                           `yaml:"read_threads"`
	WriteThreads         int                           `yaml:"write_threads"`
	WriteQueueLimitHigh  int                           `yaml:"write_queue_limit_high"`
	WriteQueueLimitLow   int                           `yaml:"write_queue_limit_low"`
	CollectInternalStats bool                          `yaml:"collect_internal_stats"`
	PidFile              string                        `yaml:"pid_file"`
	TypesDB              []string                      `yaml:"types_db"`
	PreCacheChain        string                        `yaml:"pre_cache_chain"`
	PostCacheChain       string                        `yaml:"post_cache_chain"`
	Chains               map[string]filterchain.Config `yaml:"chains"`
	// Plugins maps a plugin name to its options. Listing a plugin loads it.
	Plugins map[string]map[any]any `yaml:"plugins"`
}

func (c *FileConfig) String() string {
	return fmt.Sprintf("hostname '%s', interval '%s', read_threads '%d', write_threads '%d', plugins '%d', chains '%d'",
		c.Hostname, c.Interval, c.ReadThreads, c.WriteThreads, len(c.Plugins), len(c.Chains))
}

// LoadConfig reads path on top of the defaults. An empty path yields the defaults.
func LoadConfig(path string) (FileConfig, error) {
	cfg := defaultConfig()

	if path != "" {
		p, err := homedir.Expand(path)
		if err != nil {
			return cfg, err
		}
		bs, err := os.ReadFile(p)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(bs, &cfg); err != nil {
			return cfg, fmt.Errorf("'%s': %v", p, err)
		}
	}

	if err := cfg.applyDefaults(); err != nil {
		return cfg, err
	}
	return cfg, cfg.validate()
}

func (c *FileConfig) applyDefaults() error {
	if c.Hostname == "" {
		if h, err := os.Hostname(); err == nil {
			c.Hostname = h
		}
	}
	if c.ReadThreads == 0 {
		c.ReadThreads = defaultThreads
	}
	if c.WriteThreads == 0 {
		c.WriteThreads = defaultThreads
	}
	if c.WriteQueueLimitHigh > 0 && c.WriteQueueLimitLow == 0 {
		c.WriteQueueLimitLow = c.WriteQueueLimitHigh / 2
	}

	if c.PidFile != "" {
		p, err := homedir.Expand(c.PidFile)
		if err != nil {
			return fmt.Errorf("'pid_file': %v", err)
		}
		c.PidFile = p
	}
	for i, f := range c.TypesDB {
		p, err := homedir.Expand(f)
		if err != nil {
			return fmt.Errorf("'types_db': %v", err)
		}
		c.TypesDB[i] = p
	}
	return nil
}

func (c *FileConfig) validate() error {
	var errs []error
	if c.Interval.Duration() <= 0 {
		errs = append(errs, errors.New("'interval' must be positive"))
	}
	if c.ReadThreads < 0 {
		errs = append(errs, errors.New("'read_threads' must be positive"))
	}
	if c.WriteThreads < 0 {
		errs = append(errs, errors.New("'write_threads' must be positive"))
	}
	if c.WriteQueueLimitHigh < 0 || c.WriteQueueLimitLow < 0 {
		errs = append(errs, errors.New("write queue limits can't be negative"))
	}
	if c.WriteQueueLimitLow > c.WriteQueueLimitHigh {
		errs = append(errs, fmt.Errorf("'write_queue_limit_low' (%d) is greater than 'write_queue_limit_high' (%d)",
			c.WriteQueueLimitLow, c.WriteQueueLimitHigh))
	}
	return errors.Join(errs...)
}

func (c *FileConfig) engineConfig() engine.Config {
	return engine.Config{
		Hostname:             c.Hostname,
		Interval:             c.Interval.Duration(),
		Timeout:              c.Timeout,
		MaxReadInterval:      c.MaxReadInterval.Duration(),
		ReadThreads:          c.ReadThreads,
		WriteThreads:         c.WriteThreads,
		WriteQueueLimitHigh:  c.WriteQueueLimitHigh,
		WriteQueueLimitLow:   c.WriteQueueLimitLow,
		CollectInternalStats: c.CollectInternalStats,
		PreCacheChain:        c.PreCacheChain,
		PostCacheChain:       c.PostCacheChain,
		Chains:               c.Chains,
	}
}

func (c *FileConfig) pluginNames() []string {
	names := make([]string, 0, len(c.Plugins))
	for name := range c.Plugins {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// pluginInterval extracts the 'interval' option shared by every plugin.
func pluginInterval(opts map[any]any) (time.Duration, map[any]any, error) {
	v, ok := opts["interval"]
	if !ok {
		return 0, opts, nil
	}

	bs, err := yaml.Marshal(v)
	if err != nil {
		return 0, nil, err
	}
	var d confopt.Duration
	if err := yaml.Unmarshal(bs, &d); err != nil {
		return 0, nil, fmt.Errorf("'interval': %v", err)
	}
	if d < 0 {
		return 0, nil, errors.New("'interval' can't be negative")
	}

	rest := make(map[any]any, len(opts)-1)
	for k, val := range opts {
		if k != "interval" {
			rest[k] = val
		}
	}
	return d.Duration(), rest, nil
}
