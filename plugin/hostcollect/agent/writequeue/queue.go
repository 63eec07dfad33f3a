// SPDX-License-Identifier: GPL-3.0-or-later

// Package writequeue decouples sample producers from sample delivery.
//
// Producers never block: when the queue grows past the low watermark samples are
// dropped with a probability rising linearly up to 1 at the high watermark.
package writequeue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"

	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"
)

const DefaultWorkers = 5

var ErrInvalidLimits = errors.New("invalid write queue limits")

// Handler delivers one sample. ctx carries the producer's plugin context.
type Handler func(ctx context.Context, vl *sample.ValueList)

type Config struct {
	Workers   int
	LimitHigh int
	// LimitLow defaults to LimitHigh/2.
	LimitLow int
	// Prepare, if set, is applied to the queued copy of every accepted sample.
	Prepare func(ctx context.Context, vl *sample.ValueList)
	// Logger is the parent of the queue's logger. Nil means a standalone one.
	Logger *logger.Logger
}

type entry struct {
	pc pctx.Context
	vl *sample.ValueList
}

type Queue struct {
	*logger.Logger

	workers int
	high    int
	low     int
	handler Handler
	prepare func(ctx context.Context, vl *sample.ValueList)

	mu       sync.Mutex
	cond     *sync.Cond
	entries  []*entry
	started  bool
	stopping bool
	wg       *conc.WaitGroup

	dropped    atomic.Uint64
	dropNotice rate.Sometimes
	randFloat  func() float64
}

func New(cfg Config, handler Handler) (*Queue, error) {
	if cfg.LimitHigh < 0 || cfg.LimitLow < 0 {
		return nil, fmt.Errorf("%w: negative limit (high %d, low %d)", ErrInvalidLimits, cfg.LimitHigh, cfg.LimitLow)
	}
	if cfg.LimitLow == 0 {
		cfg.LimitLow = cfg.LimitHigh / 2
	}
	if cfg.LimitHigh > 0 && cfg.LimitLow > cfg.LimitHigh {
		return nil, fmt.Errorf("%w: low (%d) > high (%d)", ErrInvalidLimits, cfg.LimitLow, cfg.LimitHigh)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}

	log := cfg.Logger
	if log == nil {
		log = logger.New()
	}
	q := &Queue{
		Logger:     log.With(slog.String("component", "write queue")),
		workers:    cfg.Workers,
		high:       cfg.LimitHigh,
		low:        cfg.LimitLow,
		handler:    handler,
		prepare:    cfg.Prepare,
		dropNotice: rate.Sometimes{Interval: time.Second},
		randFloat:  rand.Float64,
	}
	q.cond = sync.NewCond(&q.mu)

	return q, nil
}

// DropProbability returns the probability of dropping a sample enqueued while the
// queue holds n entries.
func (q *Queue) DropProbability(n int) float64 {
	if q.high == 0 || n < q.low {
		return 0
	}
	if n >= q.high {
		return 1
	}
	return float64(1+n-q.low) / float64(1+q.high-q.low)
}

// Enqueue appends a copy of vl together with the plugin context of ctx.
// It returns false if the sample was dropped.
func (q *Queue) Enqueue(ctx context.Context, vl *sample.ValueList) bool {
	if q.shouldDrop() {
		n := q.dropped.Add(1)
		q.dropNotice.Do(func() {
			q.Warningf("write queue is over its limits (%d/%d), dropping values (%d dropped so far)",
				q.Len(), q.high, n)
		})
		return false
	}

	e := &entry{pc: pctx.From(ctx), vl: vl.Clone()}
	if q.prepare != nil {
		q.prepare(ctx, e.vl)
	}

	q.mu.Lock()
	q.entries = append(q.entries, e)
	q.cond.Signal()
	q.mu.Unlock()

	return true
}

func (q *Queue) shouldDrop() bool {
	p := q.DropProbability(q.Len())
	switch {
	case p <= 0:
		return false
	case p >= 1:
		return true
	}
	return q.randFloat() < p
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// Dropped returns the number of samples shed since the queue was created.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.started {
		return
	}
	q.started = true
	q.stopping = false
	q.wg = conc.NewWaitGroup()

	q.Infof("starting %d write workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Go(q.worker)
	}
}

// Stop wakes and joins the workers, then discards whatever is left in the queue.
// It returns the number of discarded samples.
func (q *Queue) Stop() int {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return 0
	}
	q.stopping = true
	q.cond.Broadcast()
	wg := q.wg
	q.mu.Unlock()

	wg.Wait()

	q.mu.Lock()
	left := len(q.entries)
	clear(q.entries)
	q.entries = nil
	q.started = false
	q.mu.Unlock()

	if left > 0 {
		q.Warningf("discarded %d values left in the write queue", left)
	}
	q.Info("write workers stopped")

	return left
}

func (q *Queue) worker() {
	for {
		q.mu.Lock()
		for len(q.entries) == 0 && !q.stopping {
			q.cond.Wait()
		}
		if q.stopping {
			q.mu.Unlock()
			return
		}
		e := q.entries[0]
		q.entries[0] = nil
		q.entries = q.entries[1:]
		q.mu.Unlock()

		q.deliver(e)
	}
}

// Drain delivers every queued sample on the calling goroutine. Used when workers are not running.
func (q *Queue) Drain() int {
	q.mu.Lock()
	entries := q.entries
	q.entries = nil
	q.mu.Unlock()

	for _, e := range entries {
		q.deliver(e)
	}
	return len(entries)
}

func (q *Queue) deliver(e *entry) {
	defer func() {
		if r := recover(); r != nil {
			q.Errorf("delivering '%s' panicked: %v", e.vl, r)
			if logger.Level.Enabled(slog.LevelDebug) {
				q.Debugf("STACK: %s", debug.Stack())
			}
		}
	}()
	q.handler(pctx.With(context.Background(), e.pc), e.vl)
}
