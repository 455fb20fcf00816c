package repomanager

import (
	"context"
	"database/sql"

	"github.com/anbuneel/zenote-sub001/internal/logging"
	"github.com/anbuneel/zenote-sub001/internal/server/repositories/remotestore"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	RemoteStore(db *sql.DB, publisher remotestore.Publisher, log logging.Logger) *remotestore.PostgresStore
}
