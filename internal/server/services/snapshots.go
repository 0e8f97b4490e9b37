package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/logging"
	"github.com/dmitrijs2005/gophnotes/internal/server/config"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	"github.com/dmitrijs2005/gophnotes/internal/server/repositories/repomanager"
)

// SnapshotService stores opaque collection snapshots. It never looks
// inside the content: clients may send it sealed.
type SnapshotService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	maxBytes    int
	logger      logging.Logger
}

func NewSnapshotService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, logger logging.Logger) *SnapshotService {
	return &SnapshotService{db: db, repomanager: m, maxBytes: cfg.MaxSnapshotBytes, logger: logger}
}

// Info returns the scope's clock, 0 when nothing was pushed yet.
func (s *SnapshotService) Info(ctx context.Context, userID, scope string) (int64, error) {
	if err := checkScope(scope); err != nil {
		return 0, err
	}
	clock, err := s.repomanager.Snapshots(s.db).Clock(ctx, userID, scope)
	if err != nil {
		s.logger.Error(ctx, "snapshot info failed", "user", userID, "scope", scope, "error", err)
		return 0, common.ErrorInternal
	}
	return clock, nil
}

// Pull returns the stored snapshot. A never pushed scope comes back empty
// with clock 0 rather than as an error.
func (s *SnapshotService) Pull(ctx context.Context, userID, scope string) (*models.Snapshot, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}
	snap, err := s.repomanager.Snapshots(s.db).Get(ctx, userID, scope)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return &models.Snapshot{UserID: userID, Scope: scope}, nil
		}
		s.logger.Error(ctx, "snapshot pull failed", "user", userID, "scope", scope, "error", err)
		return nil, common.ErrorInternal
	}
	return snap, nil
}

// Push replaces the scope's content and returns the new clock.
func (s *SnapshotService) Push(ctx context.Context, userID, scope, content string) (int64, error) {
	if err := checkScope(scope); err != nil {
		return 0, err
	}
	if s.maxBytes > 0 && len(content) > s.maxBytes {
		return 0, fmt.Errorf("%w: %d bytes, limit %d", common.ErrorTooLarge, len(content), s.maxBytes)
	}
	clock, err := s.repomanager.Snapshots(s.db).Put(ctx, userID, scope, content)
	if err != nil {
		s.logger.Error(ctx, "snapshot push failed", "user", userID, "scope", scope, "error", err)
		return 0, common.ErrorInternal
	}
	s.logger.Debug(ctx, "snapshot stored", "user", userID, "scope", scope, "bytes", len(content), "clock", clock)
	return clock, nil
}

func checkScope(scope string) error {
	if scope == "" || len(scope) > 128 {
		return fmt.Errorf("%w: scope must be 1..128 bytes", common.ErrInvalidField)
	}
	return nil
}
