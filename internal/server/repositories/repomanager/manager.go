package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/pontos/internal/dbx"
	"github.com/dmitrijs2005/pontos/internal/server/repositories/audios"
	"github.com/dmitrijs2005/pontos/internal/server/repositories/pontos"
	"github.com/dmitrijs2005/pontos/internal/server/repositories/submissions"
)

// RepositoryManager vends repositories bound to a DBTX, so services can run
// the same code inside or outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Pontos(db dbx.DBTX) pontos.Repository
	Audios(db dbx.DBTX) audios.Repository
	Submissions(db dbx.DBTX) submissions.Repository
}
