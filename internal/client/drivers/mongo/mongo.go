// Package mongo keeps one document per scope, {_id, content, clock}, in a
// MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	TypeName          = "mongo"
	defaultDatabase   = "gophnotes"
	defaultCollection = "snapshots"
	pushRetries       = 5
)

type Config struct {
	URI        string `json:"uri" validate:"required,startswith=mongodb"`
	Database   string `json:"database,omitempty"`
	Collection string `json:"collection,omitempty"`
}

type document struct {
	ID      string    `bson:"_id"`
	Content string    `bson:"content"`
	Clock   int64     `bson:"clock"`
	Updated time.Time `bson:"updated_at"`
}

// snapshotStore is the persistence the driver needs. swap replaces the
// document only if its clock still equals prev and reports false when
// another writer got there first.
type snapshotStore interface {
	load(ctx context.Context, scope string) (*document, error)
	swap(ctx context.Context, prev int64, doc *document) (bool, error)
	close(ctx context.Context) error
}

type collectionStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

func (s *collectionStore) load(ctx context.Context, scope string) (*document, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": scope}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (s *collectionStore) swap(ctx context.Context, prev int64, doc *document) (bool, error) {
	filter := bson.M{"_id": doc.ID, "clock": prev}
	_, err := s.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		return false, nil
	}
	return err == nil, err
}

func (s *collectionStore) close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// connect is replaced in tests.
var connect = func(ctx context.Context, cfg Config) (snapshotStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	return &collectionStore{client: client, coll: coll}, nil
}

type Driver struct {
	cfg   Config
	store snapshotStore
	scope string
}

func New() drivers.Driver {
	return &Driver{}
}

func (d *Driver) Configure(cfg map[string]any, _ drivers.Options) error {
	if err := drivers.DecodeConfig(cfg, &d.cfg); err != nil {
		return err
	}
	if d.cfg.Database == "" {
		d.cfg.Database = defaultDatabase
	}
	if d.cfg.Collection == "" {
		d.cfg.Collection = defaultCollection
	}
	return nil
}

func (d *Driver) Init(ctx context.Context, scopeID string) (drivers.State, error) {
	if scopeID == "" {
		return drivers.State{}, errors.New("mongo: empty scope")
	}
	store, err := connect(ctx, d.cfg)
	if err != nil {
		return drivers.State{}, drivers.Unavailable("init", err)
	}
	d.store, d.scope = store, scopeID

	doc, err := store.load(ctx, scopeID)
	if err != nil {
		_ = d.Close()
		return drivers.State{}, drivers.Unavailable("init", err)
	}
	var clock int64
	if doc != nil {
		clock = doc.Clock
	}
	return drivers.State{
		Connected:        true,
		Config:           drivers.EncodeConfig(d.cfg),
		LastRemoteChange: clock,
		Info:             d.cfg.Database + "." + d.cfg.Collection + "/" + scopeID,
	}, nil
}

func (d *Driver) Push(ctx context.Context, content string) (int64, error) {
	if d.store == nil {
		return 0, drivers.Unavailable("push", errors.New("mongo: not initialized"))
	}
	for i := 0; i < pushRetries; i++ {
		cur, err := d.store.load(ctx, d.scope)
		if err != nil {
			return 0, drivers.Unavailable("push", err)
		}
		var prev int64
		if cur != nil {
			prev = cur.Clock
		}
		doc := &document{ID: d.scope, Content: content, Clock: drivers.NextClock(prev), Updated: time.Now().UTC()}
		ok, err := d.store.swap(ctx, prev, doc)
		if err != nil {
			return 0, drivers.Unavailable("push", err)
		}
		if ok {
			return doc.Clock, nil
		}
	}
	return 0, drivers.Unavailable("push", fmt.Errorf("mongo: clock moved %d times while writing", pushRetries))
}

func (d *Driver) Pull(ctx context.Context) (drivers.Pulled, error) {
	if d.store == nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", errors.New("mongo: not initialized"))
	}
	doc, err := d.store.load(ctx, d.scope)
	if err != nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", err)
	}
	if doc == nil {
		return drivers.Pulled{}, nil
	}
	return drivers.Pulled{Content: doc.Content, LastRemoteChange: doc.Clock}, nil
}

func (d *Driver) Close() error {
	if d.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := d.store.close(ctx)
	d.store = nil
	return err
}
