// SPDX-License-Identifier: GPL-3.0-or-later

package filterchain

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

type (
	// Config is the YAML form of a chain.
	Config struct {
		Rules   []RuleConfig     `yaml:"rules"`
		Targets []InstanceConfig `yaml:"target"`
	}
	RuleConfig struct {
		Name    string           `yaml:"name"`
		Matches []InstanceConfig `yaml:"match"`
		Targets []InstanceConfig `yaml:"target"`
	}
	InstanceConfig struct {
		Type    string  `yaml:"type"`
		Options Options `yaml:"options"`
	}
)

// Set is the collection of configured chains, looked up by name.
type Set struct {
	mu      sync.RWMutex
	chains  map[string]*Chain
	defined map[string]bool
}

func NewSet() *Set {
	return &Set{
		chains:  make(map[string]*Chain),
		defined: make(map[string]bool),
	}
}

func (s *Set) Get(name string) (*Chain, error) {
	if s == nil {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownChain, name)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chains[name]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownChain, name)
	}
	return c, nil
}

// Defined reports whether a chain with name is part of the configuration,
// whether or not it was built successfully.
func (s *Set) Defined(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defined[name]
}

func (s *Set) Add(c *Chain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defined[c.Name] = true
	s.chains[c.Name] = c
}

func (s *Set) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedKeys(s.chains)
}

// Close releases every chain of the set.
func (s *Set) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.chains {
		c.Close()
	}
	clear(s.chains)
}

// Build creates every configured chain. A chain that references an unknown match,
// target or chain is skipped; the returned error lists every failed chain.
func Build(reg *Registry, env Env, configs map[string]Config) (*Set, error) {
	set := NewSet()
	env.Chains = set

	names := sortedKeys(configs)
	set.mu.Lock()
	for _, name := range names {
		set.defined[name] = true
	}
	set.mu.Unlock()

	var errs []error
	for _, name := range names {
		c, err := buildChain(reg, env, name, configs[name])
		if err != nil {
			errs = append(errs, fmt.Errorf("chain '%s': %w", name, err))
			continue
		}
		set.Add(c)
	}

	return set, errors.Join(errs...)
}

func buildChain(reg *Registry, env Env, name string, cfg Config) (*Chain, error) {
	c := NewChain(name)
	if env.Logger == nil {
		env.Logger = c.Logger
	} else {
		c.Logger = env.Logger.With(slog.String("chain", name))
	}

	ok := false
	defer func() {
		if !ok {
			c.Close()
		}
	}()

	for i, rc := range cfg.Rules {
		rule := &Rule{Name: rc.Name}
		if rule.Name == "" {
			rule.Name = fmt.Sprintf("rule%d", i)
		}
		c.Rules = append(c.Rules, rule)

		for _, mc := range rc.Matches {
			m, err := reg.NewMatch(env, mc.Type, mc.Options)
			if err != nil {
				return nil, fmt.Errorf("rule '%s': %w", rule.Name, err)
			}
			rule.Matches = append(rule.Matches, m)
		}
		for _, tc := range rc.Targets {
			t, err := reg.NewTarget(env, tc.Type, tc.Options)
			if err != nil {
				return nil, fmt.Errorf("rule '%s': %w", rule.Name, err)
			}
			rule.Targets = append(rule.Targets, t)
		}
		if len(rule.Targets) == 0 {
			return nil, fmt.Errorf("rule '%s' has no targets", rule.Name)
		}
	}

	for _, tc := range cfg.Targets {
		t, err := reg.NewTarget(env, tc.Type, tc.Options)
		if err != nil {
			return nil, err
		}
		c.Targets = append(c.Targets, t)
	}

	ok = true
	return c, nil
}
