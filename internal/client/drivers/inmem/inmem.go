// Package inmem is a process-memory remote. Several drivers sharing one
// Backend behave like several devices syncing through one server, which is
// what the engine tests rely on.
package inmem

import (
	"context"
	"errors"
	"sync"

	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
)

const TypeName = "inmem"

type object struct {
	content string
	clock   int64
}

// Backend is the shared storage.
type Backend struct {
	mu      sync.Mutex
	scopes  map[string]*object
	failErr error
}

func NewBackend() *Backend {
	return &Backend{scopes: make(map[string]*object)}
}

// Fail makes every following call return an unavailable error until
// Fail(nil) is called.
func (b *Backend) Fail(err error) {
	b.mu.Lock()
	b.failErr = err
	b.mu.Unlock()
}

// Put stores content for scope directly, bumping the clock.
func (b *Backend) Put(scope, content string) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.put(scope, content)
}

// Get returns the stored content and clock of scope.
func (b *Backend) Get(scope string) (string, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if o, ok := b.scopes[scope]; ok {
		return o.content, o.clock
	}
	return "", 0
}

func (b *Backend) put(scope, content string) int64 {
	o, ok := b.scopes[scope]
	if !ok {
		o = &object{}
		b.scopes[scope] = o
	}
	o.content = content
	o.clock = drivers.NextClock(o.clock)
	return o.clock
}

// Factory returns a registry constructor bound to b.
func (b *Backend) Factory() drivers.Factory {
	return func() drivers.Driver { return New(b) }
}

type Driver struct {
	backend *Backend
	scope   string
	ready   bool
}

func New(b *Backend) *Driver {
	return &Driver{backend: b}
}

func (d *Driver) Configure(map[string]any, drivers.Options) error {
	return nil
}

func (d *Driver) Init(_ context.Context, scopeID string) (drivers.State, error) {
	if scopeID == "" {
		return drivers.State{}, errors.New("inmem: empty scope")
	}
	d.backend.mu.Lock()
	defer d.backend.mu.Unlock()
	if d.backend.failErr != nil {
		return drivers.State{}, drivers.Unavailable("init", d.backend.failErr)
	}

	d.scope, d.ready = scopeID, true
	var clock int64
	if o, ok := d.backend.scopes[scopeID]; ok {
		clock = o.clock
	}
	return drivers.State{Connected: true, Config: map[string]any{}, LastRemoteChange: clock, Info: "memory"}, nil
}

func (d *Driver) Push(_ context.Context, content string) (int64, error) {
	d.backend.mu.Lock()
	defer d.backend.mu.Unlock()
	if err := d.check("push"); err != nil {
		return 0, err
	}
	return d.backend.put(d.scope, content), nil
}

func (d *Driver) Pull(_ context.Context) (drivers.Pulled, error) {
	d.backend.mu.Lock()
	defer d.backend.mu.Unlock()
	if err := d.check("pull"); err != nil {
		return drivers.Pulled{}, err
	}
	o, ok := d.backend.scopes[d.scope]
	if !ok {
		return drivers.Pulled{}, nil
	}
	return drivers.Pulled{Content: o.content, LastRemoteChange: o.clock}, nil
}

func (d *Driver) Close() error {
	d.ready = false
	return nil
}

func (d *Driver) check(op string) error {
	if !d.ready {
		return drivers.Unavailable(op, errors.New("inmem: not initialized"))
	}
	if d.backend.failErr != nil {
		return drivers.Unavailable(op, d.backend.failErr)
	}
	return nil
}
