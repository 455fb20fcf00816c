// Package localstore is the durable per-user store of the client: one SQLite
// database file per user, holding notes, tags, their associations, cached
// share links and the mutation queue.
//
// A Store is an explicit handle created at session start and closed at
// sign-out. Two handles for different users never share a file.
package localstore

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"

	"github.com/anbuneel/zenote-sub001/internal/client/migrations"
	"github.com/anbuneel/zenote-sub001/internal/client/models"
	"github.com/anbuneel/zenote-sub001/internal/cryptox"
	"github.com/anbuneel/zenote-sub001/internal/dbx"
	"github.com/anbuneel/zenote-sub001/internal/filex"
	"github.com/anbuneel/zenote-sub001/internal/logging"
	_ "modernc.org/sqlite"
)

const pragmas = "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

type Store struct {
	db     *sql.DB
	userID string
	path   string
	log    logging.Logger
}

// FileName is the database file name for userID inside the data dir.
func FileName(userID string) string {
	return "zenote-" + cryptox.UserNamespace(userID) + ".db"
}

// Open opens (creating if needed) the database of userID under dataDir and
// migrates it.
func Open(ctx context.Context, dataDir, userID string, log logging.Logger) (*Store, error) {
	dir, err := filex.EnsureDir(dataDir)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, FileName(userID))

	s, err := OpenDSN(ctx, "file:"+path+pragmas, userID, log)
	if err != nil {
		return nil, err
	}
	s.path = path
	return s, nil
}

// OpenDSN opens the store at an explicit sqlite DSN.
func OpenDSN(ctx context.Context, dsn, userID string, log logging.Logger) (*Store, error) {
	if userID == "" {
		return nil, fmt.Errorf("open local store: empty user id")
	}
	if log == nil {
		log = logging.Nop()
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps shared-cache
	// in-memory databases alive for the life of the handle.
	db.SetMaxOpenConns(1)

	if err := migrations.Up(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &Store{db: db, userID: userID, log: log.With("module", "localstore")}
	s.log.Debug(ctx, "local store opened", "user", userID)
	return s, nil
}

func (s *Store) UserID() string { return s.userID }
func (s *Store) Path() string   { return s.path }
func (s *Store) DB() *sql.DB    { return s.db }

func (s *Store) Close() error {
	return s.db.Close()
}

// Repos returns repositories bound to the database. Do not call it from
// inside WithTransaction: the store has a single connection.
func (s *Store) Repos() Repositories {
	return newRepositories(s.db, s.userID)
}

// WithTransaction runs fn with repositories bound to one transaction over
// every table. fn's writes are committed together or not at all.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, r Repositories) error) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, newRepositories(tx, s.userID))
	})
}

func (s *Store) Get(ctx context.Context, kind models.EntityType, id string) (models.Entity, error) {
	return s.Repos().Get(ctx, kind, id)
}

func (s *Store) List(ctx context.Context, kind models.EntityType) ([]models.Entity, error) {
	return s.Repos().List(ctx, kind)
}

func (s *Store) Put(ctx context.Context, e models.Entity) error {
	return s.Repos().Put(ctx, e)
}

// Delete removes an entity and its dependent rows atomically.
func (s *Store) Delete(ctx context.Context, kind models.EntityType, id string) error {
	return s.WithTransaction(ctx, func(ctx context.Context, r Repositories) error {
		return r.Delete(ctx, kind, id)
	})
}

func (s *Store) SyncStatus(ctx context.Context, kind models.EntityType, id string) (models.SyncStatus, error) {
	return s.Repos().SyncStatus(ctx, kind, id)
}
