package submissions

import (
	"context"

	"github.com/dmitrijs2005/pontos/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, s *models.Submission) error
	GetByAudioID(ctx context.Context, audioID string) (*models.Submission, error)
}
