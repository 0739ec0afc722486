package repomanager

import (
	"context"
	"database/sql"

	"github.com/medchain/medchain-server/internal/dbx"
	"github.com/medchain/medchain-server/internal/server/repositories/consents"
	"github.com/medchain/medchain-server/internal/server/repositories/records"
)

// RepositoryManager vends repository implementations bound to a DBTX and
// exposes the schema migration hook.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Records(db dbx.DBTX) records.Repository
	Consents(db dbx.DBTX) consents.Repository
}
