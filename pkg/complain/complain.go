// SPDX-License-Identifier: GPL-3.0-or-later

// Package complain throttles log messages about conditions that repeat on every
// collection cycle. A Complaint reports immediately the first time, then at most once
// per exponentially growing interval (capped at MaxInterval) until it is released.
package complain

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/netdata/netdata/go/hostcollect/logger"
)

// MaxInterval caps the silence period between two reports.
const MaxInterval = 24 * time.Hour

type Complaint struct {
	mu sync.Mutex

	base       time.Duration
	bo         *backoff.ExponentialBackOff
	next       time.Time
	complained bool
	onceDone   bool

	now func() time.Time
}

// New creates a Complaint whose first silence period is base.
func New(base time.Duration) *Complaint {
	if base <= 0 {
		base = time.Second
	}
	return &Complaint{base: base, now: time.Now}
}

// Complain logs the message if the current silence period has elapsed.
// It reports whether the message was logged.
func (c *Complaint) Complain(log *logger.Logger, level slog.Level, format string, a ...any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.complain(log, level, format, a...)
}

// ComplainOnce logs the message only once until Release is called.
func (c *Complaint) ComplainOnce(log *logger.Logger, level slog.Level, format string, a ...any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.onceDone {
		return false
	}
	c.onceDone = true
	return c.complain(log, level, format, a...)
}

// Release logs the recovery message and resets the complaint, but only if a
// complaint has been reported since the last release.
func (c *Complaint) Release(log *logger.Logger, level slog.Level, format string, a ...any) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.complained {
		return false
	}
	c.complained = false
	c.onceDone = false
	c.bo = nil
	c.next = time.Time{}

	log.Logf(level, format, a...)
	return true
}

// Active reports whether a complaint is outstanding.
func (c *Complaint) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.complained
}

func (c *Complaint) complain(log *logger.Logger, level slog.Level, format string, a ...any) bool {
	now := c.now()
	if now.Before(c.next) {
		return false
	}

	if c.bo == nil {
		c.bo = newBackOff(c.base)
	}
	c.next = now.Add(c.bo.NextBackOff())
	c.complained = true

	log.Logf(level, format, a...)
	return true
}

func newBackOff(base time.Duration) *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = base
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxInterval = MaxInterval
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}
