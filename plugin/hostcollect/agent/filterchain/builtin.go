// SPDX-License-Identifier: GPL-3.0-or-later

package filterchain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/pkg/complain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

const maxJumpDepth = 32

type jumpDepthKey struct{}

type verdictTarget Verdict

func (t verdictTarget) Invoke(context.Context, *sample.DataSet, *sample.ValueList) (Verdict, error) {
	return Verdict(t), nil
}

func newStopTarget(Env, Options) (Target, error)   { return verdictTarget(Stop), nil }
func newReturnTarget(Env, Options) (Target, error) { return verdictTarget(Return), nil }

// jumpTarget evaluates another chain in place. The chain is looked up on first use,
// so chains may reference chains defined after them.
type jumpTarget struct {
	name   string
	chains *Set
}

func newJumpTarget(env Env, opts Options) (Target, error) {
	var cfg struct {
		Chain string `yaml:"chain"`
	}
	if err := opts.Decode(&cfg); err != nil {
		return nil, err
	}
	if cfg.Chain == "" {
		return nil, errors.New("'chain' option is required")
	}
	if env.Chains == nil || !env.Chains.Defined(cfg.Chain) {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownChain, cfg.Chain)
	}
	return &jumpTarget{name: cfg.Chain, chains: env.Chains}, nil
}

func (t *jumpTarget) Invoke(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList) (Verdict, error) {
	depth, _ := ctx.Value(jumpDepthKey{}).(int)
	if depth >= maxJumpDepth {
		return Continue, fmt.Errorf("%w jumping to '%s'", ErrJumpDepth, t.name)
	}

	c, err := t.chains.Get(t.name)
	if err != nil {
		return Continue, err
	}

	v, _ := c.Process(context.WithValue(ctx, jumpDepthKey{}, depth+1), ds, vl)
	return Propagate(v), nil
}

// writeTarget hands the sample to the listed write plugins, or to all of them.
type writeTarget struct {
	*logger.Logger

	writer   Writer
	plugins  []string
	noWriter *complain.Complaint
	// failed has one complaint per listed plugin, or one under "" for all plugins.
	failed map[string]*complain.Complaint
}

func newWriteTarget(env Env, opts Options) (Target, error) {
	var cfg struct {
		Plugins []string `yaml:"plugins"`
	}
	if err := opts.Decode(&cfg); err != nil {
		return nil, err
	}
	if env.Writer == nil {
		return nil, errors.New("no writer available")
	}
	log := env.Logger
	if log == nil {
		log = logger.New()
	}
	t := &writeTarget{
		Logger:   log.With(slog.String("target", "write")),
		writer:   env.Writer,
		plugins:  cfg.Plugins,
		noWriter: complain.New(time.Second),
		failed:   map[string]*complain.Complaint{"": complain.New(time.Second)},
	}
	for _, p := range cfg.Plugins {
		t.failed[p] = complain.New(time.Second)
	}
	return t, nil
}

func (t *writeTarget) Invoke(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList) (Verdict, error) {
	if len(t.plugins) == 0 {
		t.write(ctx, "", ds, vl)
		return Continue, nil
	}
	for _, p := range t.plugins {
		t.write(ctx, p, ds, vl)
	}
	return Continue, nil
}

func (t *writeTarget) write(ctx context.Context, plugin string, ds *sample.DataSet, vl *sample.ValueList) {
	err := t.writer.Write(ctx, plugin, ds, vl)
	switch {
	case err == nil:
		t.noWriter.Release(t.Logger, slog.LevelInfo, "write target: some write plugin is available now")
		t.failed[plugin].Release(t.Logger, slog.LevelInfo, "write target: writing to '%s' works again", plugin)
	case errors.Is(err, ErrNoWriters):
		t.noWriter.ComplainOnce(t.Logger, slog.LevelInfo,
			"write target: dispatching '%s' to all write plugins failed: %v", vl, err)
	case errors.Is(err, ErrWriteFailed):
		// the writer has reported it
	case plugin == "":
		t.failed[plugin].Complain(t.Logger, slog.LevelError,
			"write target: dispatching '%s' to all write plugins failed: %v", vl, err)
	default:
		t.failed[plugin].Complain(t.Logger, slog.LevelError,
			"write target: dispatching '%s' to write plugin '%s' failed: %v", vl, plugin, err)
	}
}
