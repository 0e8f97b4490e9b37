package services

import (
	"context"
	"database/sql"
	"sync"

	"github.com/dmitrijs2005/gophnotes/internal/common"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
	"github.com/dmitrijs2005/gophnotes/internal/server/models"
	snapshotsrepo "github.com/dmitrijs2005/gophnotes/internal/server/repositories/snapshots"
	usersrepo "github.com/dmitrijs2005/gophnotes/internal/server/repositories/users"
)

type fakeUsersRepo struct {
	mu      sync.Mutex
	byName  map[string]*models.User
	failErr error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{byName: map[string]*models.User{}}
}

func (f *fakeUsersRepo) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	if _, ok := f.byName[u.UserName]; ok {
		return nil, common.ErrorAlreadyExists
	}
	u.ID = "id-" + u.UserName
	f.byName[u.UserName] = u
	return u, nil
}

func (f *fakeUsersRepo) GetByUsername(_ context.Context, name string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	u, ok := f.byName[name]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return u, nil
}

type fakeSnapshotsRepo struct {
	mu      sync.Mutex
	rows    map[string]*models.Snapshot
	failErr error
}

func newFakeSnapshotsRepo() *fakeSnapshotsRepo {
	return &fakeSnapshotsRepo{rows: map[string]*models.Snapshot{}}
}

func (f *fakeSnapshotsRepo) Get(_ context.Context, userID, scope string) (*models.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return nil, f.failErr
	}
	s, ok := f.rows[userID+"/"+scope]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSnapshotsRepo) Clock(_ context.Context, userID, scope string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, f.failErr
	}
	if s, ok := f.rows[userID+"/"+scope]; ok {
		return s.Clock, nil
	}
	return 0, nil
}

func (f *fakeSnapshotsRepo) Put(_ context.Context, userID, scope, content string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return 0, f.failErr
	}
	key := userID + "/" + scope
	var clock int64 = 1
	if s, ok := f.rows[key]; ok {
		clock = s.Clock + 1
	}
	f.rows[key] = &models.Snapshot{UserID: userID, Scope: scope, Content: content, Clock: clock}
	return clock, nil
}

type fakeRepoManager struct {
	users     *fakeUsersRepo
	snapshots *fakeSnapshotsRepo
}

func newFakeRepoManager() *fakeRepoManager {
	return &fakeRepoManager{users: newFakeUsersRepo(), snapshots: newFakeSnapshotsRepo()}
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) usersrepo.Repository          { return m.users }
func (m *fakeRepoManager) Snapshots(dbx.DBTX) snapshotsrepo.Repository  { return m.snapshots }
