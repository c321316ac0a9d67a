// Package submissions stores contribution records awaiting moderation.
package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/dmitrijs2005/pontos/internal/dbx"
	"github.com/dmitrijs2005/pontos/internal/server/models"
)

// PostgresRepository implements submission storage over a dbx.DBTX.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a submission. An asset carries at most one submission per
// kind; when one already exists nothing is written and common.ErrConflict
// is returned.
func (r *PostgresRepository) Create(ctx context.Context, s *models.Submission) error {
	query := `
		INSERT INTO submissions (id, kind, ponto_id, ponto_audio_id, status, interpreter_name,
			author_name, consent_granted, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (kind, ponto_audio_id) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.Kind, s.PontoID, s.PontoAudioID, string(s.Status), s.InterpreterName,
		s.AuthorName, s.ConsentGranted, s.CreatedBy)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrConflict
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// GetByAudioID returns the audio submission for an asset or common.ErrorNotFound.
func (r *PostgresRepository) GetByAudioID(ctx context.Context, audioID string) (*models.Submission, error) {
	query := `SELECT id, kind, ponto_id, ponto_audio_id, status, interpreter_name, author_name,
		consent_granted, created_by, created_at FROM submissions WHERE ponto_audio_id=$1 AND kind=$2`

	s := &models.Submission{}
	err := r.db.QueryRowContext(ctx, query, audioID, models.SubmissionKindAudio).Scan(
		&s.ID, &s.Kind, &s.PontoID, &s.PontoAudioID, &s.Status, &s.InterpreterName, &s.AuthorName,
		&s.ConsentGranted, &s.CreatedBy, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select submission: %w", err)
	}
	return s, nil
}
