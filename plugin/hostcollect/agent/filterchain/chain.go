// SPDX-License-Identifier: GPL-3.0-or-later

package filterchain

import (
	"context"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

// Rule runs its targets when every match applies.
type Rule struct {
	Name    string
	Matches []Matcher
	Targets []Target
}

// Chain is an ordered list of rules plus the default targets run when no rule
// ended the evaluation early. A built chain is read-only.
type Chain struct {
	*logger.Logger

	Name    string
	Rules   []*Rule
	Targets []Target
}

func NewChain(name string) *Chain {
	return &Chain{
		Logger: logger.New().With("chain", name),
		Name:   name,
	}
}

// Process evaluates the chain against vl. The returned verdict is Stop or Continue.
// handled is false when no rule matched and the chain has no default targets,
// in which case the caller applies its own default action.
func (c *Chain) Process(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList) (verdict Verdict, handled bool) {
	for _, rule := range c.Rules {
		if !c.matches(ctx, rule, ds, vl) {
			continue
		}
		handled = true

		if v, done := c.invokeTargets(ctx, rule.Name, rule.Targets, ds, vl); done {
			return Propagate(v), true
		}
	}

	if len(c.Targets) == 0 {
		return Continue, handled
	}

	v, _ := c.invokeTargets(ctx, "", c.Targets, ds, vl)
	return Propagate(v), true
}

func (c *Chain) matches(ctx context.Context, rule *Rule, ds *sample.DataSet, vl *sample.ValueList) bool {
	for _, m := range rule.Matches {
		ok, err := m.Match(ctx, ds, vl)
		if err != nil {
			c.Warningf("rule '%s': match failed on '%s': %v", rule.Name, vl, err)
			return false
		}
		if !ok {
			return false
		}
	}
	return true
}

// invokeTargets returns done=true when a target ended the chain with Stop or Return.
func (c *Chain) invokeTargets(ctx context.Context, rule string, targets []Target, ds *sample.DataSet, vl *sample.ValueList) (Verdict, bool) {
	for _, t := range targets {
		v, err := t.Invoke(ctx, ds, vl)
		if err != nil {
			if rule == "" {
				c.Warningf("default target failed on '%s': %v", vl, err)
			} else {
				c.Warningf("rule '%s': target failed on '%s': %v", rule, vl, err)
			}
			continue
		}
		if v == Stop || v == Return {
			return v, true
		}
	}
	return Continue, false
}

// Close releases every match and target instance that holds resources.
func (c *Chain) Close() {
	for _, r := range c.Rules {
		for _, m := range r.Matches {
			closeInstance(m)
		}
		for _, t := range r.Targets {
			closeInstance(t)
		}
	}
	for _, t := range c.Targets {
		closeInstance(t)
	}
}
