// Package redis keeps snapshots in Redis under two keys per scope:
// <prefix>:<scope>:content and <prefix>:<scope>:clock.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"github.com/redis/go-redis/v9"
)

const (
	TypeName      = "redis"
	defaultPrefix = "gophnotes"
	// pushRetries bounds optimistic retries when another writer races us.
	pushRetries = 5
)

type Config struct {
	URL    string `json:"url" validate:"required,url"`
	Prefix string `json:"prefix,omitempty"`
}

type Driver struct {
	cfg    Config
	client *redis.Client
	keys   keys
}

type keys struct {
	content string
	clock   string
}

func keysFor(prefix, scope string) keys {
	if prefix == "" {
		prefix = defaultPrefix
	}
	base := prefix + ":" + scope
	return keys{content: base + ":content", clock: base + ":clock"}
}

func New() drivers.Driver {
	return &Driver{}
}

func (d *Driver) Configure(cfg map[string]any, _ drivers.Options) error {
	if err := drivers.DecodeConfig(cfg, &d.cfg); err != nil {
		return err
	}
	if _, err := redis.ParseURL(d.cfg.URL); err != nil {
		return fmt.Errorf("invalid driver config: %w", err)
	}
	return nil
}

func (d *Driver) Init(ctx context.Context, scopeID string) (drivers.State, error) {
	if scopeID == "" {
		return drivers.State{}, errors.New("redis: empty scope")
	}
	opts, err := redis.ParseURL(d.cfg.URL)
	if err != nil {
		return drivers.State{}, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	d.client = redis.NewClient(opts)
	d.keys = keysFor(d.cfg.Prefix, scopeID)

	if err := d.client.Ping(ctx).Err(); err != nil {
		_ = d.Close()
		return drivers.State{}, drivers.Unavailable("init", err)
	}
	clock, err := d.readClock(ctx, d.client)
	if err != nil {
		_ = d.Close()
		return drivers.State{}, drivers.Unavailable("init", err)
	}
	return drivers.State{
		Connected:        true,
		Config:           drivers.EncodeConfig(d.cfg),
		LastRemoteChange: clock,
		Info:             opts.Addr + "/" + d.keys.content,
	}, nil
}

func (d *Driver) readClock(ctx context.Context, c redis.Cmdable) (int64, error) {
	clock, err := c.Get(ctx, d.keys.clock).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return clock, err
}

// Push writes content and clock in one MULTI/EXEC, guarded by WATCH on the
// clock key so two writers never hand out the same clock.
func (d *Driver) Push(ctx context.Context, content string) (int64, error) {
	if d.client == nil {
		return 0, drivers.Unavailable("push", errors.New("redis: not initialized"))
	}

	var clock int64
	txf := func(tx *redis.Tx) error {
		prev, err := d.readClock(ctx, tx)
		if err != nil {
			return err
		}
		clock = drivers.NextClock(prev)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, d.keys.content, content, 0)
			pipe.Set(ctx, d.keys.clock, strconv.FormatInt(clock, 10), 0)
			return nil
		})
		return err
	}

	for i := 0; i < pushRetries; i++ {
		err := d.client.Watch(ctx, txf, d.keys.clock)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, drivers.Unavailable("push", err)
		}
		return clock, nil
	}
	return 0, drivers.Unavailable("push", errors.New("redis: too many concurrent writers"))
}

func (d *Driver) Pull(ctx context.Context) (drivers.Pulled, error) {
	if d.client == nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", errors.New("redis: not initialized"))
	}
	vals, err := d.client.MGet(ctx, d.keys.content, d.keys.clock).Result()
	if err != nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", err)
	}
	var p drivers.Pulled
	if s, ok := vals[0].(string); ok {
		p.Content = s
	}
	if s, ok := vals[1].(string); ok {
		if p.LastRemoteChange, err = strconv.ParseInt(s, 10, 64); err != nil {
			return drivers.Pulled{}, fmt.Errorf("redis: bad clock %q: %w", s, err)
		}
	}
	return p, nil
}

func (d *Driver) Close() error {
	if d.client == nil {
		return nil
	}
	err := d.client.Close()
	d.client = nil
	return err
}
