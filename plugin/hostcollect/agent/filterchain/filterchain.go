// SPDX-License-Identifier: GPL-3.0-or-later

// Package filterchain decides, per sample, which sinks receive it and whether it is
// rewritten or suppressed.
package filterchain

import (
	"context"
	"errors"
	"io"

	"github.com/netdata/netdata/go/hostcollect/logger"
	"github.com/netdata/netdata/go/hostcollect/plugin/hostcollect/agent/sample"
)

var (
	ErrUnknownMatch  = errors.New("unknown match")
	ErrUnknownTarget = errors.New("unknown target")
	ErrUnknownChain  = errors.New("unknown chain")
	ErrJumpDepth     = errors.New("maximum jump depth exceeded")
	// ErrNoWriters is what a Writer returns when no write callback is registered.
	ErrNoWriters = errors.New("no write callbacks registered")
	// ErrWriteFailed is what a Writer returns when the write callbacks failed. The
	// Writer has already reported the failure.
	ErrWriteFailed = errors.New("write failed")
)

// Matcher decides whether a rule applies to a sample.
type Matcher interface {
	Match(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList) (bool, error)
}

// Target acts on a sample. It may modify vl in place.
type Target interface {
	Invoke(ctx context.Context, ds *sample.DataSet, vl *sample.ValueList) (Verdict, error)
}

// Writer delivers a sample to one (plugin != "") or every write callback.
type Writer interface {
	Write(ctx context.Context, plugin string, ds *sample.DataSet, vl *sample.ValueList) error
}

// Notifier delivers a notification to every notification callback.
type Notifier interface {
	DispatchNotification(ctx context.Context, n *sample.Notification) error
}

// Env is what match and target instances may use from the running daemon.
type Env struct {
	Writer   Writer
	Notifier Notifier
	Chains   *Set
	Logger   *logger.Logger
}

type (
	MatchCreator  func(env Env, opts Options) (Matcher, error)
	TargetCreator func(env Env, opts Options) (Target, error)
)

func closeInstance(v any) {
	if c, ok := v.(io.Closer); ok {
		_ = c.Close()
	}
}
