// Package submissions turns a finalized audio asset into a moderation
// queue entry.
package submissions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/dmitrijs2005/pontos/internal/dbx"
	"github.com/dmitrijs2005/pontos/internal/logging"
	"github.com/dmitrijs2005/pontos/internal/server/models"
	"github.com/dmitrijs2005/pontos/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

type CreateInput struct {
	PontoID         string
	PontoAudioID    string
	InterpreterName string
	AuthorName      *string
	ConsentGranted  bool
}

type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
	newID       func() string
}

func NewService(db *sql.DB, rm repomanager.RepositoryManager, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop{}
	}
	return &Service{db: db, repomanager: rm, log: log.With("component", "submissions"), newID: uuid.NewString}
}

// CreateForAudio records a pending audio submission for an uploaded asset
// owned by userID. An asset has at most one submission: when it already
// exists it is returned and created is false.
func (s *Service) CreateForAudio(ctx context.Context, userID string, in CreateInput) (sub *models.Submission, created bool, err error) {
	if userID == "" {
		return nil, false, common.ErrorUnauthorized
	}

	pontoID, err := uuid.Parse(strings.TrimSpace(in.PontoID))
	if err != nil {
		return nil, false, fmt.Errorf("%w: ponto_id must be a uuid", common.ErrValidation)
	}
	audioID, err := uuid.Parse(strings.TrimSpace(in.PontoAudioID))
	if err != nil {
		return nil, false, fmt.Errorf("%w: ponto_audio_id must be a uuid", common.ErrValidation)
	}
	interpreter := strings.TrimSpace(in.InterpreterName)
	if interpreter == "" {
		return nil, false, fmt.Errorf("%w: interpreter_name is required", common.ErrValidation)
	}

	asset, err := s.repomanager.Audios(s.db).GetByID(ctx, audioID.String())
	if err != nil {
		return nil, false, err
	}
	if asset.CreatedBy != userID {
		return nil, false, common.ErrForbidden
	}
	if asset.PontoID != pontoID.String() {
		return nil, false, fmt.Errorf("%w: audio belongs to another ponto", common.ErrValidation)
	}
	if !asset.Finalized() {
		return nil, false, fmt.Errorf("%w: audio is %s", common.ErrInvalidState, asset.UploadStatus)
	}

	var author *string
	if in.AuthorName != nil {
		if a := strings.TrimSpace(*in.AuthorName); a != "" {
			author = &a
		}
	}

	candidate := &models.Submission{
		ID:              s.newID(),
		Kind:            models.SubmissionKindAudio,
		PontoID:         asset.PontoID,
		PontoAudioID:    asset.ID,
		Status:          models.SubmissionPending,
		InterpreterName: interpreter,
		AuthorName:      author,
		ConsentGranted:  in.ConsentGranted,
		CreatedBy:       userID,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Submissions(tx)

		existing, err := repo.GetByAudioID(ctx, asset.ID)
		switch {
		case err == nil:
			sub = existing
			return nil
		case !errors.Is(err, common.ErrorNotFound):
			return err
		}

		if err := repo.Create(ctx, candidate); err != nil {
			if !errors.Is(err, common.ErrConflict) {
				return err
			}
			// created concurrently
			existing, err := repo.GetByAudioID(ctx, asset.ID)
			if err != nil {
				return err
			}
			sub = existing
			return nil
		}

		sub, created = candidate, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	if !created {
		return sub, false, nil
	}

	s.log.Info(ctx, "submission created", "submission_id", sub.ID, "ponto_audio_id", asset.ID)
	return sub, true, nil
}
