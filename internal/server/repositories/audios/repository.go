package audios

import (
	"context"

	"github.com/dmitrijs2005/pontos/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, a *models.AudioAsset) error
	GetByID(ctx context.Context, id string) (*models.AudioAsset, error)
	GetByTokenHash(ctx context.Context, hash string) (*models.AudioAsset, error)
	MarkUploaded(ctx context.Context, id string, f models.FinalizeFields) (*models.AudioAsset, error)
	UpdateProbe(ctx context.Context, id string, p models.ProbeResult) error
}
