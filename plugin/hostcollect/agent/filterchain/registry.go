// SPDX-License-Identifier: GPL-3.0-or-later

package filterchain

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/netdata/netdata/go/hostcollect/logger"
)

// Registry holds the match and target creators chains are built from.
type Registry struct {
	*logger.Logger

	mu      sync.RWMutex
	matches map[string]MatchCreator
	targets map[string]TargetCreator
}

// NewRegistry returns a registry with the built-in targets (jump, stop, return, write).
// Its logger derives from log, or from a standalone logger if log is nil.
func NewRegistry(log *logger.Logger) *Registry {
	if log == nil {
		log = logger.New()
	}
	r := &Registry{
		Logger:  log.With(slog.String("component", "filter chain registry")),
		matches: make(map[string]MatchCreator),
		targets: make(map[string]TargetCreator),
	}
	r.targets["jump"] = newJumpTarget
	r.targets["stop"] = newStopTarget
	r.targets["return"] = newReturnTarget
	r.targets["write"] = newWriteTarget
	return r
}

func (r *Registry) RegisterMatch(name string, create MatchCreator) error {
	if name == "" || create == nil {
		return fmt.Errorf("invalid match registration '%s'", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.matches[name]; ok {
		r.Warningf("match '%s' is already registered, replacing it", name)
	}
	r.matches[name] = create
	return nil
}

func (r *Registry) RegisterTarget(name string, create TargetCreator) error {
	if name == "" || create == nil {
		return fmt.Errorf("invalid target registration '%s'", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.targets[name]; ok {
		r.Warningf("target '%s' is already registered, replacing it", name)
	}
	r.targets[name] = create
	return nil
}

func (r *Registry) UnregisterMatch(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.matches[name]; !ok {
		return fmt.Errorf("%w '%s'", ErrUnknownMatch, name)
	}
	delete(r.matches, name)
	return nil
}

func (r *Registry) UnregisterTarget(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.targets[name]; !ok {
		return fmt.Errorf("%w '%s'", ErrUnknownTarget, name)
	}
	delete(r.targets, name)
	return nil
}

func (r *Registry) NewMatch(env Env, typ string, opts Options) (Matcher, error) {
	r.mu.RLock()
	create, ok := r.matches[typ]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownMatch, typ)
	}
	m, err := create(env, opts)
	if err != nil {
		return nil, fmt.Errorf("match '%s': %w", typ, err)
	}
	return m, nil
}

func (r *Registry) NewTarget(env Env, typ string, opts Options) (Target, error) {
	r.mu.RLock()
	create, ok := r.targets[typ]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownTarget, typ)
	}
	t, err := create(env, opts)
	if err != nil {
		return nil, fmt.Errorf("target '%s': %w", typ, err)
	}
	return t, nil
}

func (r *Registry) Matches() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.matches)
}

func (r *Registry) Targets() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.targets)
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
