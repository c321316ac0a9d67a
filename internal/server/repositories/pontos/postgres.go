// Package pontos reads the song catalog.
package pontos

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pontos/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Exists reports whether a ponto with the given id is in the catalog.
func (r *PostgresRepository) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM pontos WHERE id=$1)`
	if err := r.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check ponto: %w", err)
	}
	return exists, nil
}
