// SPDX-License-Identifier: GPL-3.0-or-later

// Package pctx carries the identity of the plugin a goroutine is working for.
//
// Callbacks are registered and invoked with a plugin context attached to the
// context.Context, so that dispatch can fill in defaults (interval, plugin name)
// and log lines can be attributed to the owning plugin.
package pctx

import (
	"context"
	"time"
)

type Context struct {
	Plugin   string
	Interval time.Duration
}

type key struct{}

// With returns a copy of parent carrying c.
func With(parent context.Context, c Context) context.Context {
	return context.WithValue(parent, key{}, c)
}

// From returns the plugin context attached to ctx, or a zero Context.
func From(ctx context.Context) Context {
	if ctx == nil {
		return Context{}
	}
	c, _ := ctx.Value(key{}).(Context)
	return c
}

// WithPlugin is a shortcut for With when only the plugin name changes.
func WithPlugin(parent context.Context, plugin string) context.Context {
	c := From(parent)
	c.Plugin = plugin
	return With(parent, c)
}

// Go runs fn in a new goroutine with the plugin context of ctx.
// The returned channel is closed when fn returns.
func Go(ctx context.Context, fn func(ctx context.Context)) <-chan struct{} {
	done := make(chan struct{})
	c := From(ctx)
	go func() {
		defer close(done)
		fn(With(context.WithoutCancel(ctx), c))
	}()
	return done
}
