// Package syncer is the sync engine: it reconciles the local collection with
// remote snapshots through pull, push and their forced variants.
//
// Driver I/O happens outside the store lock. The merge that follows a fetch
// runs as one store transaction, so a failed driver call or a failed merge
// leaves local state and clocks exactly as they were.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/gophnotes/internal/client/collection"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/snapshot"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
)

// Result summarizes what a sync operation did.
type Result struct {
	Created   int
	Updated   int
	Deleted   int
	Conflicts int
	Rescued   int
	Pushed    int
}

type Engine struct {
	store    *collection.Store
	registry *drivers.Registry
	codec    snapshot.Codec
	scopeID  string
	opts     drivers.Options
	log      logging.Logger
	metrics  *Metrics

	previewLen int

	mu    sync.Mutex
	conns map[string]drivers.Driver
	locks map[string]*sync.Mutex
}

type Option func(*Engine)

func WithCodec(c snapshot.Codec) Option {
	return func(e *Engine) { e.codec = c }
}

func WithLogger(l logging.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithDriverOptions sets the options handed to every driver's Configure.
func WithDriverOptions(o drivers.Options) Option {
	return func(e *Engine) { e.opts = o }
}

func WithPreviewLength(n int) Option {
	return func(e *Engine) { e.previewLen = n }
}

func New(store *collection.Store, registry *drivers.Registry, scopeID string, opts ...Option) *Engine {
	e := &Engine{
		store:      store,
		registry:   registry,
		codec:      snapshot.NewJSONCodec(),
		scopeID:    scopeID,
		log:        logging.NewNop(),
		previewLen: models.PreviewLength,
		conns:      make(map[string]drivers.Driver),
		locks:      make(map[string]*sync.Mutex),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("module", "syncer")
	if e.opts.Logger == nil {
		e.opts.Logger = e.log
	}
	return e
}

// lock returns the mutex that serializes pull and push against one remote.
func (e *Engine) lock(remoteID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[remoteID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[remoteID] = l
	}
	return l
}

// Connect configures and initializes the driver of a remote and records the
// outcome in the remote state.
func (e *Engine) Connect(ctx context.Context, remoteID string) (drivers.State, error) {
	l := e.lock(remoteID)
	l.Lock()
	defer l.Unlock()

	_, st, err := e.connect(ctx, remoteID)
	return st, err
}

func (e *Engine) connect(ctx context.Context, remoteID string) (drivers.Driver, drivers.State, error) {
	r, err := e.remote(ctx, remoteID)
	if err != nil {
		return nil, drivers.State{}, err
	}

	d, err := e.registry.New(r.Type)
	if err != nil {
		return nil, drivers.State{}, err
	}
	if err := d.Configure(r.Config, e.opts); err != nil {
		_ = d.Close()
		return nil, drivers.State{}, err
	}

	st, err := d.Init(ctx, e.scopeID)
	if err != nil {
		_ = d.Close()
		e.log.Warn(ctx, "remote init failed", "remote", r.Name, "error", err)
		if serr := e.setState(ctx, remoteID, false, err.Error()); serr != nil {
			return nil, drivers.State{}, errors.Join(err, serr)
		}
		return nil, drivers.State{}, err
	}
	if err := e.setState(ctx, remoteID, st.Connected, st.Info); err != nil {
		_ = d.Close()
		return nil, drivers.State{}, err
	}

	e.mu.Lock()
	if old, ok := e.conns[remoteID]; ok {
		_ = old.Close()
	}
	e.conns[remoteID] = d
	e.mu.Unlock()

	e.log.Info(ctx, "remote connected", "remote", r.Name, "type", r.Type, "remote_clock", st.LastRemoteChange)
	return d, st, nil
}

// driver returns the live driver of a remote, connecting on first use.
// Callers hold the remote lock.
func (e *Engine) driver(ctx context.Context, remoteID string) (drivers.Driver, error) {
	e.mu.Lock()
	d, ok := e.conns[remoteID]
	e.mu.Unlock()
	if ok {
		return d, nil
	}
	d, _, err := e.connect(ctx, remoteID)
	return d, err
}

// Disconnect closes the driver of a remote, if open.
func (e *Engine) Disconnect(ctx context.Context, remoteID string) error {
	e.mu.Lock()
	d, ok := e.conns[remoteID]
	delete(e.conns, remoteID)
	e.mu.Unlock()
	if !ok {
		return nil
	}
	if err := d.Close(); err != nil {
		return err
	}
	return e.setState(ctx, remoteID, false, "disconnected")
}

// Close closes every open driver.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var errs []error
	for id, d := range e.conns {
		errs = append(errs, d.Close())
		delete(e.conns, id)
	}
	return errors.Join(errs...)
}

func (e *Engine) remote(ctx context.Context, id string) (*models.Remote, error) {
	var r *models.Remote
	err := e.store.View(ctx, func(ctx context.Context, tx *collection.Tx) error {
		var err error
		r, err = tx.Remotes.Get(ctx, id)
		return err
	})
	return r, err
}

func (e *Engine) setState(ctx context.Context, id string, connected bool, info string) error {
	return e.store.Update(ctx, func(ctx context.Context, tx *collection.Tx) error {
		return tx.Remotes.SetState(ctx, id, connected, info)
	})
}

// HasLocalChanges reports whether local mutations are newer than what was
// last exchanged with the remote.
func (e *Engine) HasLocalChanges(ctx context.Context, remoteID string) (bool, error) {
	var has bool
	err := e.store.View(ctx, func(ctx context.Context, tx *collection.Tx) error {
		r, err := tx.Remotes.Get(ctx, remoteID)
		if err != nil {
			return err
		}
		last, err := tx.Journal.LastLocalChange(ctx)
		if err != nil {
			return err
		}
		has = last > r.LastRemoteChange
		return nil
	})
	return has, err
}

// Sync pulls and then pushes.
func (e *Engine) Sync(ctx context.Context, remoteID string) (Result, Result, error) {
	pulled, err := e.Pull(ctx, remoteID)
	if err != nil {
		return pulled, Result{}, err
	}
	pushed, err := e.Push(ctx, remoteID)
	return pulled, pushed, err
}

// PullPrimary pulls from the lowest ranked remote.
func (e *Engine) PullPrimary(ctx context.Context) (Result, error) {
	var primary *models.Remote
	err := e.store.View(ctx, func(ctx context.Context, tx *collection.Tx) error {
		list, err := tx.Remotes.List(ctx)
		if err != nil {
			return err
		}
		if len(list) > 0 {
			primary = list[0]
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	if primary == nil {
		return Result{}, fmt.Errorf("no remotes configured: %w", common.ErrorNotFound)
	}
	return e.Pull(ctx, primary.ID)
}

// PushAll pushes to every connected remote in rank order. A failing remote
// does not stop the others; all failures are returned joined.
func (e *Engine) PushAll(ctx context.Context) (map[string]Result, error) {
	var list []*models.Remote
	err := e.store.View(ctx, func(ctx context.Context, tx *collection.Tx) error {
		var err error
		list, err = tx.Remotes.List(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make(map[string]Result, len(list))
	var errs []error
	for _, r := range list {
		if !r.Connected {
			continue
		}
		res, err := e.Push(ctx, r.ID)
		if err != nil {
			errs = append(errs, fmt.Errorf("remote %s: %w", r.Name, err))
			continue
		}
		out[r.ID] = res
	}
	return out, errors.Join(errs...)
}

// heal verifies the journal against the store and repairs it inside tx.
func (e *Engine) heal(ctx context.Context, tx *collection.Tx) error {
	all, err := tx.Items.List(ctx)
	if err != nil {
		return err
	}
	if err := tx.Journal.VerifyAndHeal(ctx, all); err != nil {
		if !errors.Is(err, common.ErrJournalCorruption) {
			return err
		}
		e.log.Error(ctx, "journal healed", "error", err)
	}
	return nil
}

func isNotFound(err error) bool {
	return errors.Is(err, common.ErrorNotFound)
}
