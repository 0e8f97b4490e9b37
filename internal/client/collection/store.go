// Package collection is the entity store of the local collection: items,
// their field metadata, and the derived journal and ancestry state, all
// mutated together inside one SQLite transaction.
package collection

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/gophnotes/internal/client/ancestry"
	"github.com/dmitrijs2005/gophnotes/internal/client/journal"
	"github.com/dmitrijs2005/gophnotes/internal/client/models"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/timex"
)

// Store is the single-writer handle to one collection scope. Writers are
// serialized by a mutex; each Update runs in its own transaction.
type Store struct {
	db         *sql.DB
	repos      repomanager.RepositoryManager
	clock      timex.Clock
	log        logging.Logger
	previewLen int

	mu sync.Mutex
}

type Option func(*Store)

// WithClock overrides the default monotonic wall clock.
func WithClock(c timex.Clock) Option {
	return func(s *Store) { s.clock = c }
}

func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.log = l }
}

func WithPreviewLength(n int) Option {
	return func(s *Store) { s.previewLen = n }
}

func New(db *sql.DB, repos repomanager.RepositoryManager, opts ...Option) *Store {
	s := &Store{
		db:         db,
		repos:      repos,
		clock:      timex.NewMonotonicClock(0),
		log:        logging.NewNop(),
		previewLen: models.PreviewLength,
	}
	for _, o := range opts {
		o(s)
	}
	s.log = s.log.With("module", "collection")
	return s
}

// Clock returns the clock used to stamp local mutations.
func (s *Store) Clock() timex.Clock {
	return s.clock
}

// Open moves a monotonic clock past the persisted lastLocalChange so new
// stamps are never older than what is already on disk.
func (s *Store) Open(ctx context.Context) error {
	mc, ok := s.clock.(*timex.MonotonicClock)
	if !ok {
		return nil
	}
	return s.View(ctx, func(ctx context.Context, tx *Tx) error {
		last, err := tx.Journal.LastLocalChange(ctx)
		if err != nil {
			return err
		}
		mc.Observe(last)
		return nil
	})
}

// Update runs fn in a write transaction. Nothing fn did is kept if it
// returns an error.
func (s *Store) Update(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, db dbx.DBTX) error {
		return fn(ctx, s.bind(db))
	})
}

// View runs fn in a transaction that is committed without writes. It does
// not take the writer lock.
func (s *Store) View(ctx context.Context, fn func(ctx context.Context, tx *Tx) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, db dbx.DBTX) error {
		return fn(ctx, s.bind(db))
	})
}

func (s *Store) bind(db dbx.DBTX) *Tx {
	it := s.repos.Items(db)
	rm := s.repos.Remotes(db)
	md := s.repos.Metadata(db)
	return &Tx{
		Items:      it,
		Remotes:    rm,
		Metadata:   md,
		Journal:    journal.New(s.repos.Changes(db), md, s.log),
		Ancestry:   ancestry.New(s.repos.Ancestors(db), it),
		Clock:      s.clock,
		previewLen: s.previewLen,
		log:        s.log,
	}
}

func (s *Store) Create(ctx context.Context, kind models.ItemType, parent string) (*models.Item, error) {
	var out *models.Item
	err := s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		out, err = tx.Create(ctx, kind, parent)
		return err
	})
	return out, err
}

func (s *Store) SetField(ctx context.Context, id string, f models.Field, value string) error {
	return s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.SetField(ctx, id, f, value)
	})
}

func (s *Store) SetParent(ctx context.Context, id, parent string) error {
	return s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.SetParent(ctx, id, parent)
	})
}

func (s *Store) Delete(ctx context.Context, id string, moveChildrenUp bool) error {
	return s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.Delete(ctx, id, moveChildrenUp)
	})
}

func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := s.View(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		ok, err = tx.Items.Exists(ctx, id)
		return err
	})
	return ok, err
}

func (s *Store) Get(ctx context.Context, id string) (*models.Item, error) {
	var it *models.Item
	err := s.View(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		it, err = tx.Items.Get(ctx, id)
		return err
	})
	return it, err
}

func (s *Store) Children(ctx context.Context, id string) ([]*models.Item, error) {
	var out []*models.Item
	err := s.View(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		out, err = tx.Items.Children(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) All(ctx context.Context) ([]*models.Item, error) {
	var out []*models.Item
	err := s.View(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		out, err = tx.Items.List(ctx)
		return err
	})
	return out, err
}

func (s *Store) Notebooks(ctx context.Context) ([]*models.Item, error) {
	var out []*models.Item
	err := s.View(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		out, err = tx.Items.ByType(ctx, models.ItemTypeNotebook)
		return err
	})
	return out, err
}

// Breadcrumb returns the items from the owning notebook down to id.
func (s *Store) Breadcrumb(ctx context.Context, id string) ([]*models.Item, error) {
	var out []*models.Item
	err := s.View(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		out, err = tx.Breadcrumb(ctx, id)
		return err
	})
	return out, err
}

func (s *Store) Values(ctx context.Context) (models.Values, error) {
	var v models.Values
	err := s.View(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		v, err = tx.Values(ctx)
		return err
	})
	return v, err
}

func (s *Store) SetDefaultSort(ctx context.Context, by string, desc bool) error {
	return s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.SetDefaultSort(ctx, by, desc)
	})
}

func (s *Store) CurrentNotebook(ctx context.Context) (string, error) {
	var id string
	err := s.View(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		id, err = tx.CurrentNotebook(ctx)
		return err
	})
	return id, err
}

func (s *Store) SetCurrentNotebook(ctx context.Context, id string) error {
	return s.Update(ctx, func(ctx context.Context, tx *Tx) error {
		return tx.SetCurrentNotebook(ctx, id)
	})
}

// Changes lists the pending journal entries.
func (s *Store) Changes(ctx context.Context) ([]*models.Change, error) {
	var out []*models.Change
	err := s.View(ctx, func(ctx context.Context, tx *Tx) error {
		var err error
		out, err = tx.Journal.List(ctx)
		return err
	})
	return out, err
}
