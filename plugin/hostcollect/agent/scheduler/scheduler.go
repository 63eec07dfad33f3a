// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs registered read functions periodically on a bounded pool of workers.
package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"slices"
	"sync"
	"time"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/pkg/complain"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/pctx"

	"github.com/sourcegraph/conc"
)

const (
	DefaultWorkers     = 5
	DefaultMaxInterval = 24 * time.Hour

	// failures of a read function are reported at most this often at first
	failureReportBase = time.Minute
)

var (
	ErrInvalidName     = errors.New("invalid read function name")
	ErrInvalidInterval = errors.New("invalid read function interval")
	ErrNotFound        = errors.New("read function not found")
	ErrRunning         = errors.New("scheduler is running")
)

// Func is a read callback. A non-nil error backs off the function's schedule.
type Func func(ctx context.Context) error

// Job describes a read function to schedule.
type Job struct {
	Name     string
	Group    string
	Interval time.Duration
	// Ctx is restored on every invocation.
	Ctx context.Context
	Fn  Func
	// Free is called once the read function is gone for good.
	Free func()
}

type readFunc struct {
	Job

	effective time.Duration
	next      time.Time
	index     int

	running bool
	removed bool

	// a replacement registered while this one was running waits here
	successor   *readFunc
	predecessor *readFunc

	slow    *complain.Complaint
	failing *complain.Complaint
}

func newReadFunc(job Job, now time.Time) *readFunc {
	return &readFunc{
		Job:       job,
		effective: job.Interval,
		next:      now,
		index:     -1,
		slow:      complain.New(job.Interval),
		failing:   complain.New(max(job.Interval, failureReportBase)),
	}
}

func (rf *readFunc) free() {
	if rf.Free != nil {
		rf.Free()
		rf.Free = nil
	}
}

type Config struct {
	Workers     int
	MaxInterval time.Duration
	// Logger is the parent of the scheduler's logger. Nil means a standalone one.
	Logger *logger.Logger
}

type Scheduler struct {
	*logger.Logger

	workers     int
	maxInterval time.Duration

	mu       sync.Mutex
	cond     *sync.Cond
	heap     readHeap
	byName   map[string]*readFunc
	started  bool
	stopping bool
	stop     chan struct{}
	wg       *conc.WaitGroup

	now func() time.Time
}

func New(cfg Config) *Scheduler {
	log := cfg.Logger
	if log == nil {
		log = logger.New()
	}
	s := &Scheduler{
		Logger:      log.With(slog.String("component", "read scheduler")),
		workers:     cfg.Workers,
		maxInterval: cfg.MaxInterval,
		byName:      make(map[string]*readFunc),
		now:         time.Now,
	}
	if s.workers <= 0 {
		s.workers = DefaultWorkers
	}
	if s.maxInterval <= 0 {
		s.maxInterval = DefaultMaxInterval
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Add schedules job. The first invocation is due immediately.
// A read function registered under the same name is replaced. If the replaced
// one is running, the first invocation of job waits for it to return.
func (s *Scheduler) Add(job Job) error {
	if job.Name == "" {
		return ErrInvalidName
	}
	if job.Interval <= 0 {
		return fmt.Errorf("%w: '%s' (%s)", ErrInvalidInterval, job.Name, job.Interval)
	}
	if job.Ctx == nil {
		job.Ctx = context.Background()
	}

	rf := newReadFunc(job, s.now())

	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byName[job.Name]; ok {
		s.Warningf("read function '%s' is already registered, replacing it", job.Name)
		s.removeLocked(old)

		busy := old.predecessor
		if old.running {
			busy = old
		}
		if busy != nil {
			busy.successor = rf
			rf.predecessor = busy
		}
	}

	s.byName[job.Name] = rf
	if rf.predecessor == nil {
		heap.Push(&s.heap, rf)
		s.cond.Signal()
	}

	return nil
}

// Remove unregisters a read function. An invocation in progress completes,
// no new invocation starts once Remove returns.
func (s *Scheduler) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	s.removeLocked(rf)
	return nil
}

// RemoveGroup unregisters every read function of group and returns how many were removed.
func (s *Scheduler) RemoveGroup(group string) (int, error) {
	if group == "" {
		return 0, fmt.Errorf("%w: empty group", ErrInvalidName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, rf := range s.byName {
		if rf.Group == group {
			s.removeLocked(rf)
			n++
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: group '%s'", ErrNotFound, group)
	}
	return n, nil
}

// RemovePlugin unregisters every read function registered from within plugin.
func (s *Scheduler) RemovePlugin(plugin string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	for _, rf := range s.byName {
		if pctx.From(rf.Ctx).Plugin == plugin {
			s.removeLocked(rf)
			n++
		}
	}
	return n
}

func (s *Scheduler) removeLocked(rf *readFunc) {
	delete(s.byName, rf.Name)
	if rf.index >= 0 {
		heap.Remove(&s.heap, rf.index)
	}
	rf.removed = true
	if !rf.running {
		rf.free()
	}
}

// Has reports whether name is registered.
func (s *Scheduler) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.byName[name]
	return ok
}

func (s *Scheduler) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, 0, len(s.byName))
	for k := range s.byName {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// EffectiveInterval returns the current, possibly backed off, interval of name.
func (s *Scheduler) EffectiveInterval(name string) (time.Duration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rf, ok := s.byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: '%s'", ErrNotFound, name)
	}
	return rf.effective, nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.started = true
	s.stopping = false
	s.stop = make(chan struct{})
	s.wg = conc.NewWaitGroup()

	s.Infof("starting %d read workers", s.workers)

	for i := 0; i < s.workers; i++ {
		s.wg.Go(s.worker)
	}
}

// Stop wakes every worker and waits for them to exit. Read functions stay registered.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.stopping = true
	close(s.stop)
	s.cond.Broadcast()
	wg := s.wg
	s.mu.Unlock()

	wg.Wait()

	s.mu.Lock()
	s.started = false
	s.mu.Unlock()

	s.Info("read workers stopped")
}

func (s *Scheduler) worker() {
	for {
		s.mu.Lock()
		for s.heap.Len() == 0 && !s.stopping {
			s.cond.Wait()
		}
		if s.stopping {
			s.mu.Unlock()
			return
		}
		rf := heap.Pop(&s.heap).(*readFunc)
		due := rf.next
		s.mu.Unlock()

		if !s.sleepUntil(due) {
			s.mu.Lock()
			if !rf.removed {
				heap.Push(&s.heap, rf)
			}
			s.mu.Unlock()
			return
		}

		s.mu.Lock()
		if rf.removed {
			s.mu.Unlock()
			continue
		}
		rf.running = true
		s.mu.Unlock()

		s.runOnce(rf)

		s.mu.Lock()
		rf.running = false
		if rf.removed {
			rf.free()
			if next := rf.successor; next != nil {
				rf.successor = nil
				next.predecessor = nil
				if !next.removed {
					heap.Push(&s.heap, next)
					s.cond.Signal()
				}
			}
		} else {
			heap.Push(&s.heap, rf)
			s.cond.Signal()
		}
		s.mu.Unlock()
	}
}

// sleepUntil returns false if the scheduler was stopped before t.
func (s *Scheduler) sleepUntil(t time.Time) bool {
	d := t.Sub(s.now())
	if d <= 0 {
		select {
		case <-s.stop:
			return false
		default:
			return true
		}
	}

	tm := time.NewTimer(d)
	defer tm.Stop()

	select {
	case <-tm.C:
		return true
	case <-s.stop:
		return false
	}
}

// runOnce invokes rf and computes its next due time.
func (s *Scheduler) runOnce(rf *readFunc) {
	start := s.now()
	err := s.invoke(rf)
	end := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		old := rf.effective
		rf.effective = min(rf.effective*2, s.maxInterval)
		rf.failing.Complain(s.Logger, logger.LevelNotice, "read function '%s' (plugin '%s') failed: %v; backing off from %s to %s",
			rf.Name, pctx.From(rf.Ctx).Plugin, err, old, rf.effective)
	} else if rf.effective != rf.Interval {
		rf.failing.Release(s.Logger, slog.LevelInfo, "read function '%s' succeeded, resuming interval %s", rf.Name, rf.Interval)
		rf.effective = rf.Interval
	}

	if took := end.Sub(start); took > rf.Interval {
		rf.slow.Complain(s.Logger, slog.LevelWarn, "read function '%s' took %s, longer than its interval %s",
			rf.Name, took, rf.Interval)
	} else if rf.slow.Active() {
		rf.slow.Release(s.Logger, slog.LevelInfo, "read function '%s' is back within its interval", rf.Name)
	}

	next := rf.next.Add(rf.effective)
	if floor := start.Add(rf.effective); next.Before(floor) {
		next = floor
	}
	if next.Before(end) {
		next = end
	}
	rf.next = next
}

func (s *Scheduler) invoke(rf *readFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
			s.Errorf("read function '%s' panicked: %v", rf.Name, r)
			if logger.Level.Enabled(slog.LevelDebug) {
				s.Debugf("STACK: %s", debug.Stack())
			}
		}
	}()
	return rf.Fn(rf.Ctx)
}

// ReadAllOnce invokes every registered read function once, in due order, on the
// calling goroutine. It must not be used while the workers are running.
func (s *Scheduler) ReadAllOnce() error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrRunning
	}
	funcs := make([]*readFunc, 0, s.heap.Len())
	for s.heap.Len() > 0 {
		funcs = append(funcs, heap.Pop(&s.heap).(*readFunc))
	}
	s.mu.Unlock()

	var errs []error
	for _, rf := range funcs {
		if err := s.invoke(rf); err != nil {
			errs = append(errs, fmt.Errorf("read function '%s': %w", rf.Name, err))
		}
	}

	s.mu.Lock()
	for _, rf := range funcs {
		if !rf.removed {
			heap.Push(&s.heap, rf)
		}
	}
	s.mu.Unlock()

	return errors.Join(errs...)
}
