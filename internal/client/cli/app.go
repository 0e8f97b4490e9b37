package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrijs2005/gophnotes/internal/client/collection"
	"github.com/dmitrijs2005/gophnotes/internal/client/config"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers"
	"github.com/dmitrijs2005/gophnotes/internal/client/drivers/builtin"
	"github.com/dmitrijs2005/gophnotes/internal/client/localdb"
	"github.com/dmitrijs2005/gophnotes/internal/client/remotes"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/repomanager"
	"github.com/dmitrijs2005/gophnotes/internal/client/syncer"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
)

type App struct {
	config   *config.Config
	db       *sql.DB
	store    *collection.Store
	remotes  *remotes.Manager
	registry *drivers.Registry
	engine   *syncer.Engine
	metrics  *prometheus.Registry
	logger   logging.Logger
	reader   *bufio.Reader
}

// NewApp opens the local database named in c and wires the collection,
// the remote registry and the sync engine on top of it.
func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	db, err := localdb.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("error initializing database: %w", err)
	}

	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logging.ParseLevel(c.LogLevel)})
	app, err := newApp(ctx, c, db, builtin.NewRegistry(), logging.NewSlogLogger(slog.New(h)), os.Stdin)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, c *config.Config, db *sql.DB, reg *drivers.Registry, logger logging.Logger, in io.Reader) (*App, error) {
	store := collection.New(db, repomanager.NewSQLiteRepositoryManager(),
		collection.WithLogger(logger),
		collection.WithPreviewLength(c.PreviewLength),
	)
	if err := store.Open(ctx); err != nil {
		return nil, err
	}

	metrics := prometheus.NewRegistry()
	engine := syncer.New(store, reg, c.ScopeID,
		syncer.WithLogger(logger),
		syncer.WithMetrics(syncer.NewMetrics(metrics)),
		syncer.WithPreviewLength(c.PreviewLength),
		syncer.WithDriverOptions(drivers.Options{Proxy: os.Getenv("HTTPS_PROXY"), Logger: logger}),
	)

	return &App{
		config:   c,
		db:       db,
		store:    store,
		remotes:  remotes.NewManager(store, reg),
		registry: reg,
		engine:   engine,
		metrics:  metrics,
		logger:   logger.With("module", "cli"),
		reader:   bufio.NewReader(in),
	}, nil
}

// Run starts the background sync loop, if configured, and blocks in the
// REPL until the user exits or input ends.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	defer a.Close()

	if a.config.SyncInterval > 0 {
		go a.StartSyncWatcher(ctx, a.config.SyncInterval)
	}

	printlnFn("Welcome to gophnotes (type 'help' for commands)")
	runREPL(ctx, a, a.prompt, a.reader)
}

func (a *App) Close() {
	if err := a.engine.Close(); err != nil {
		a.logger.Warn(context.Background(), "closing remotes", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn(context.Background(), "closing database", "error", err)
	}
}

// StartSyncWatcher pulls from the primary remote and pushes to every
// connected one on each tick. Failures are logged and retried next tick.
func (a *App) StartSyncWatcher(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			a.backgroundSync(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) backgroundSync(ctx context.Context) {
	if _, err := a.remotes.Primary(ctx); err != nil {
		return
	}
	if _, err := a.engine.PullPrimary(ctx); err != nil {
		a.logger.Warn(ctx, "background pull failed", "error", err)
		return
	}
	if _, err := a.engine.PushAll(ctx); err != nil {
		a.logger.Warn(ctx, "background push failed", "error", err)
	}
}

func (a *App) prompt() string {
	ctx := context.Background()
	cur, err := a.store.CurrentNotebook(ctx)
	if err != nil || cur == "" {
		return "gn> "
	}
	it, err := a.store.Get(ctx, cur)
	if err != nil {
		return "gn> "
	}
	return fmt.Sprintf("gn %s> ", it.Title)
}
