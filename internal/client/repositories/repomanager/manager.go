// Package repomanager vends the SQLite-backed repositories of the local
// collection, each bound to a caller supplied DBTX so the same code works
// on the pool and inside a transaction.
package repomanager

import (
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/ancestors"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/changes"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/items"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophnotes/internal/client/repositories/remotes"
	"github.com/dmitrijs2005/gophnotes/internal/dbx"
)

type RepositoryManager interface {
	Items(db dbx.DBTX) items.Repository
	Changes(db dbx.DBTX) changes.Repository
	Ancestors(db dbx.DBTX) ancestors.Repository
	Remotes(db dbx.DBTX) remotes.Repository
	Metadata(db dbx.DBTX) metadata.Repository
}

type SQLiteRepositoryManager struct{}

func NewSQLiteRepositoryManager() *SQLiteRepositoryManager {
	return &SQLiteRepositoryManager{}
}

func (m *SQLiteRepositoryManager) Items(db dbx.DBTX) items.Repository {
	return items.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Changes(db dbx.DBTX) changes.Repository {
	return changes.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Ancestors(db dbx.DBTX) ancestors.Repository {
	return ancestors.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Remotes(db dbx.DBTX) remotes.Repository {
	return remotes.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) Metadata(db dbx.DBTX) metadata.Repository {
	return metadata.NewSQLiteRepository(db)
}
