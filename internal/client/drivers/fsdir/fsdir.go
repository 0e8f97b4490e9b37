// Package fsdir stores snapshots in a directory, typically one shared by a
// file synchronization tool or a network mount.
//
// Layout: <dir>/<scope>/collection.json holds the content and
// <dir>/<scope>/clock the remote clock. Writers take an exclusive flock on
// <dir>/<scope>/.lock and replace both files by atomic rename.
package fsdir

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/filex"
	"github.com/gofrs/flock"
)

const (
	TypeName  = "fsdir"
	clockFile = "clock"
	lockFile  = ".lock"
)

// lockRetry is how often a blocked lock attempt is retried.
var lockRetry = 50 * time.Millisecond

type Config struct {
	Dir string `json:"dir" validate:"required"`
}

type Driver struct {
	cfg   Config
	scope string
	lock  *flock.Flock
}

func New() drivers.Driver {
	return &Driver{}
}

func (d *Driver) Configure(cfg map[string]any, _ drivers.Options) error {
	return drivers.DecodeConfig(cfg, &d.cfg)
}

func (d *Driver) Init(ctx context.Context, scopeID string) (drivers.State, error) {
	if scopeID == "" || strings.ContainsAny(scopeID, `/\`) || scopeID == "." || scopeID == ".." {
		return drivers.State{}, fmt.Errorf("fsdir: invalid scope %q", scopeID)
	}
	dir, err := filex.EnsureDir(filepath.Join(d.cfg.Dir, scopeID))
	if err != nil {
		return drivers.State{}, drivers.Unavailable("init", err)
	}
	d.scope = dir
	d.lock = flock.New(filepath.Join(dir, lockFile))

	clock, err := d.readClock()
	if err != nil {
		return drivers.State{}, drivers.Unavailable("init", err)
	}
	return drivers.State{
		Connected:        true,
		Config:           drivers.EncodeConfig(d.cfg),
		LastRemoteChange: clock,
		Info:             dir,
	}, nil
}

func (d *Driver) Push(ctx context.Context, content string) (int64, error) {
	if d.lock == nil {
		return 0, drivers.Unavailable("push", errors.New("fsdir: not initialized"))
	}
	ok, err := d.lock.TryLockContext(ctx, lockRetry)
	if err != nil || !ok {
		return 0, drivers.Unavailable("push", lockError(err))
	}
	defer func() { _ = d.lock.Unlock() }()

	prev, err := d.readClock()
	if err != nil {
		return 0, drivers.Unavailable("push", err)
	}
	clock := drivers.NextClock(prev)

	if err := filex.WriteAtomic(filepath.Join(d.scope, common.SnapshotFileName), []byte(content)); err != nil {
		return 0, drivers.Unavailable("push", err)
	}
	if err := filex.WriteAtomic(filepath.Join(d.scope, clockFile), []byte(strconv.FormatInt(clock, 10))); err != nil {
		return 0, drivers.Unavailable("push", err)
	}
	return clock, nil
}

func (d *Driver) Pull(ctx context.Context) (drivers.Pulled, error) {
	if d.lock == nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", errors.New("fsdir: not initialized"))
	}
	ok, err := d.lock.TryRLockContext(ctx, lockRetry)
	if err != nil || !ok {
		return drivers.Pulled{}, drivers.Unavailable("pull", lockError(err))
	}
	defer func() { _ = d.lock.Unlock() }()

	content, err := os.ReadFile(filepath.Join(d.scope, common.SnapshotFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return drivers.Pulled{}, nil
	}
	if err != nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", err)
	}
	clock, err := d.readClock()
	if err != nil {
		return drivers.Pulled{}, drivers.Unavailable("pull", err)
	}
	return drivers.Pulled{Content: string(content), LastRemoteChange: clock}, nil
}

func (d *Driver) Close() error {
	if d.lock == nil {
		return nil
	}
	err := d.lock.Close()
	d.lock = nil
	return err
}

func (d *Driver) readClock() (int64, error) {
	b, err := os.ReadFile(filepath.Join(d.scope, clockFile))
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	clock, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("fsdir: bad clock file: %w", err)
	}
	return clock, nil
}

func lockError(err error) error {
	if err != nil {
		return err
	}
	return errors.New("fsdir: lock is held")
}
