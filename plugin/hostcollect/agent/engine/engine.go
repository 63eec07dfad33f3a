// SPDX-License-Identifier: GPL-3.0-or-later

// Package engine ties the callback registry, the read scheduler, the write queue,
// the value cache and the filter chains together.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/pkg/complain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/cache"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/filterchain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/scheduler"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/writequeue"
)

const (
	DefaultInterval = 10 * time.Second
	DefaultTimeout  = 2
	DefaultHostname = "localhost"

	selfPlugin = "hostcollect"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidName   = errors.New("invalid name")
	ErrInvalidSample = errors.New("invalid sample")
	ErrNoInterval    = errors.New("unable to determine the interval")
	ErrRunning       = errors.New("engine is running")
	ErrNoWriters     = filterchain.ErrNoWriters
	ErrWriteFailed   = filterchain.ErrWriteFailed
)

type Config struct {
	Hostname string
	// Interval is the default interval of read functions and samples.
	Interval time.Duration
	// Timeout is the number of intervals after which a value is considered missing.
	Timeout         int
	MaxReadInterval time.Duration

	ReadThreads         int
	WriteThreads        int
	WriteQueueLimitHigh int
	WriteQueueLimitLow  int

	CollectInternalStats bool

	PreCacheChain  string
	PostCacheChain string
	Chains         map[string]filterchain.Config
}

type Engine struct {
	*logger.Logger

	cfg Config

	types  *sample.TypesDB
	cache  *cache.Cache
	sched  *scheduler.Scheduler
	queue  *writequeue.Queue
	fcReg  *filterchain.Registry
	chains *filterchain.Set

	preChain      *filterchain.Chain
	postChain     *filterchain.Chain
	defaultTarget filterchain.Target

	inits         *callbacks[InitFunc]
	shutdowns     *callbacks[ShutdownFunc]
	writes        *callbacks[WriteFunc]
	flushes       *callbacks[FlushFunc]
	missings      *callbacks[MissingFunc]
	notifications *callbacks[NotificationFunc]
	logs          *callbacks[LogFunc]

	noWriters *complain.Complaint

	mu          sync.Mutex
	running     bool
	synchronous bool
	stopMissing chan struct{}
	missingDone chan struct{}

	now func() time.Time
}

func New(cfg Config) (*Engine, error) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Hostname == "" {
		cfg.Hostname = DefaultHostname
	}

	e := &Engine{
		cfg:           cfg,
		types:         sample.NewTypesDB(),
		cache:         cache.New(),
		chains:        filterchain.NewSet(),
		inits:         newCallbacks[InitFunc]("init"),
		shutdowns:     newCallbacks[ShutdownFunc]("shutdown"),
		writes:        newCallbacks[WriteFunc]("write"),
		flushes:       newCallbacks[FlushFunc]("flush"),
		missings:      newCallbacks[MissingFunc]("missing"),
		notifications: newCallbacks[NotificationFunc]("notification"),
		logs:          newCallbacks[LogFunc]("log"),
		noWriters:     complain.New(time.Second),
		now:           time.Now,
	}

	// core logs reach the log callbacks too
	base := e.NewLogger(selfPlugin)
	e.Logger = base.With(slog.String("component", "engine"))
	e.fcReg = filterchain.NewRegistry(base)

	e.sched = scheduler.New(scheduler.Config{
		Workers:     cfg.ReadThreads,
		MaxInterval: cfg.MaxReadInterval,
		Logger:      base,
	})

	q, err := writequeue.New(writequeue.Config{
		Workers:   cfg.WriteThreads,
		LimitHigh: cfg.WriteQueueLimitHigh,
		LimitLow:  cfg.WriteQueueLimitLow,
		Prepare:   e.fillDefaults,
		Logger:    base,
	}, e.process)
	if err != nil {
		return nil, err
	}
	e.queue = q

	return e, nil
}

// Mute silences the engine and its internal components.
func (e *Engine) Mute() {
	e.Logger.Mute()
	e.sched.Mute()
	e.queue.Mute()
	e.fcReg.Mute()
}

func (e *Engine) TypesDB() *sample.TypesDB { return e.types }

func (e *Engine) Cache() *cache.Cache { return e.cache }

// Rates returns the per-second rates the value cache computed for vl's identifier.
func (e *Engine) Rates(vl *sample.ValueList) ([]float64, error) {
	return e.cache.GetRate(vl.Identifier().String())
}

func (e *Engine) Hostname() string { return e.cfg.Hostname }

// Interval returns the interval of the plugin context of ctx, or the global default.
func (e *Engine) Interval(ctx context.Context) time.Duration {
	if iv := pctx.From(ctx).Interval; iv > 0 {
		return iv
	}
	return e.cfg.Interval
}

// Start builds the filter chains, runs the init callbacks and starts the workers.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrRunning
	}
	e.running = true
	e.synchronous = false
	e.mu.Unlock()

	if err := e.BuildChains(); err != nil {
		e.Error(err)
	}
	e.runInits(ctx)

	if e.cfg.CollectInternalStats {
		if err := e.registerSelfStats(); err != nil {
			e.Warningf("self statistics: %v", err)
		}
	}

	e.queue.Start()
	e.sched.Start()

	e.stopMissing = make(chan struct{})
	e.missingDone = make(chan struct{})
	go e.missingLoop(e.stopMissing, e.missingDone)

	e.Info("engine started")
	return nil
}

// Stop stops reading, runs the shutdown callbacks and then stops the write workers.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	e.mu.Unlock()

	e.sched.Stop()

	close(e.stopMissing)
	<-e.missingDone

	e.runShutdowns(ctx)
	e.queue.Stop()

	e.Info("engine stopped")
}

// Close releases every registered callback and the filter chains. The engine can't be
// used afterward.
func (e *Engine) Close() {
	for _, name := range e.sched.Names() {
		_ = e.sched.Remove(name)
	}
	e.inits.clear()
	e.shutdowns.clear()
	e.writes.clear()
	e.flushes.clear()
	e.missings.clear()
	e.notifications.clear()
	e.logs.clear()
	e.chains.Close()
}

// ReadAllOnce runs every read function once on the calling goroutine and delivers
// the dispatched samples synchronously.
func (e *Engine) ReadAllOnce(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return ErrRunning
	}
	e.synchronous = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.synchronous = false
		e.mu.Unlock()
	}()

	if err := e.BuildChains(); err != nil {
		e.Error(err)
	}
	e.runInits(ctx)

	err := e.sched.ReadAllOnce()
	e.runShutdowns(ctx)

	return err
}

// BuildChains (re)builds the configured filter chains. A chain that fails to build is
// left out; the returned error describes every failure.
func (e *Engine) BuildChains() error {
	env := filterchain.Env{Writer: e, Notifier: e, Logger: e.Logger}

	set, buildErr := filterchain.Build(e.fcReg, env, e.cfg.Chains)

	target, err := e.fcReg.NewTarget(filterchain.Env{Writer: e, Logger: e.Logger, Chains: set}, "write", nil)
	if err != nil {
		return fmt.Errorf("default write target: %v", err)
	}

	var errs []error
	if buildErr != nil {
		errs = append(errs, buildErr)
	}

	pre, err := e.lookupChain(set, "pre-cache", e.cfg.PreCacheChain)
	if err != nil {
		errs = append(errs, err)
	}
	post, err := e.lookupChain(set, "post-cache", e.cfg.PostCacheChain)
	if err != nil {
		errs = append(errs, err)
	}

	old := e.chains
	e.mu.Lock()
	e.chains, e.preChain, e.postChain, e.defaultTarget = set, pre, post, target
	e.mu.Unlock()
	if old != set {
		old.Close()
	}

	return errors.Join(errs...)
}

func (e *Engine) lookupChain(set *filterchain.Set, role, name string) (*filterchain.Chain, error) {
	if name == "" {
		return nil, nil
	}
	c, err := set.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%s chain: %w", role, err)
	}
	return c, nil
}

// Chain returns a built filter chain by name.
func (e *Engine) Chain(name string) (*filterchain.Chain, error) {
	e.mu.Lock()
	set := e.chains
	e.mu.Unlock()
	return set.Get(name)
}

func (e *Engine) runInits(ctx context.Context) {
	for _, cb := range e.inits.snapshot() {
		err := safeCall(func() error { return cb.fn(cb.ctx) })
		if err == nil {
			continue
		}
		plugin := cb.plugin()
		e.Errorf("initialization of '%s' (plugin '%s') failed: %v; its callbacks are removed", cb.name, plugin, err)
		if plugin != "" {
			e.UnregisterPlugin(plugin)
		} else {
			_ = e.inits.unregister(cb.name)
		}
	}
}

func (e *Engine) runShutdowns(ctx context.Context) {
	for _, cb := range e.shutdowns.snapshot() {
		if err := safeCall(func() error { return cb.fn(cb.ctx) }); err != nil {
			e.Errorf("shutdown of '%s' failed: %v", cb.name, err)
		}
		if ctx.Err() != nil {
			e.Warningf("shutdown interrupted: %v", ctx.Err())
			return
		}
	}
}

func (e *Engine) missingLoop(stop, done chan struct{}) {
	defer close(done)

	tk := time.NewTicker(e.cfg.Interval)
	defer tk.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tk.C:
			e.CheckMissing(e.now())
		}
	}
}

// CheckMissing evicts stale cache entries and reports them to the missing callbacks.
func (e *Engine) CheckMissing(now time.Time) int {
	missing := e.cache.CheckTimeouts(now, e.cfg.Timeout)
	for _, m := range missing {
		e.dispatchMissing(m.ValueList)
	}
	return len(missing)
}

func (e *Engine) dispatchMissing(vl *sample.ValueList) {
	for _, cb := range e.missings.snapshot() {
		if err := safeCall(func() error { return cb.fn(cb.ctx, vl, cb.ud.data()) }); err != nil {
			e.Warningf("missing callback '%s' failed on '%s': %v", cb.name, vl, err)
		}
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
