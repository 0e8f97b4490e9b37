// Package drivers defines the Remote Storage Driver contract and a registry
// of driver constructors keyed by type name.
//
// A driver moves one opaque snapshot string per collection scope to and
// from a backend and hands out a logical clock for every write. Drivers know
// nothing about items; the sync engine encodes and decodes content.
package drivers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
)

// Options are per-process settings shared by every driver.
type Options struct {
	// Proxy is an optional proxy URL for network drivers.
	Proxy  string
	Logger logging.Logger
}

// State is what Init reports about a remote.
type State struct {
	Connected        bool
	Config           map[string]any
	LastRemoteChange int64
	Info             string
}

// Pulled is the result of a pull. An empty Content means the remote holds no
// snapshot yet.
type Pulled struct {
	Content          string
	LastRemoteChange int64
}

type Driver interface {
	// Configure validates and stores cfg. It performs no I/O.
	Configure(cfg map[string]any, opts Options) error
	// Init connects to the backend for the given collection scope.
	Init(ctx context.Context, scopeID string) (State, error)
	// Push stores content and returns the new remote clock.
	Push(ctx context.Context, content string) (int64, error)
	Pull(ctx context.Context) (Pulled, error)
	Close() error
}

type Factory func() Driver

// Registry maps driver type names to constructors.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds or replaces a driver type.
func (r *Registry) Register(name string, f Factory) {
	r.mu.Lock()
	r.factories[name] = f
	r.mu.Unlock()
}

// New returns a fresh, unconfigured driver of the given type.
func (r *Registry) New(name string) (Driver, error) {
	r.mu.RLock()
	f, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", common.ErrUnknownDriver, name)
	}
	return f(), nil
}

// Types lists registered type names in order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for k := range r.factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Validate checks that cfg is acceptable for a driver of the given type.
func (r *Registry) Validate(name string, cfg map[string]any) error {
	d, err := r.New(name)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Configure(cfg, Options{})
}

// NextClock is the clock rule every backend follows: wall time in
// milliseconds, but always past the previous value.
func NextClock(prev int64) int64 {
	now := timex.NowMillis()
	if now <= prev {
		return prev + 1
	}
	return now
}

// Unavailable wraps a transport failure so callers can match it with
// errors.Is(err, common.ErrDriverUnavailable).
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", common.ErrDriverUnavailable, op, err)
}
