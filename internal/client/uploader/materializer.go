package uploader

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/pontos/internal/client/models"
	"github.com/dmitrijs2005/pontos/internal/common"
)

// Backend is the subset of the API client the uploader needs.
type Backend interface {
	InitUpload(ctx context.Context, req models.InitUploadRequest) (*models.InitUploadResponse, error)
	CompleteUpload(ctx context.Context, req models.CompleteUploadRequest) (*models.CompleteUploadResponse, error)
	CreateSubmission(ctx context.Context, req models.CreateSubmissionRequest) (*models.SubmissionResponse, error)
}

type FinalizeInput struct {
	PontoID         string
	AssetID         string
	UploadToken     string
	InterpreterName string
	AuthorName      *string
	ConsentGranted  bool
	SizeBytes       *int64
	DurationMs      *int64
}

type FinalizeResult struct {
	AssetID      string
	Bucket       string
	Path         string
	SubmissionID string
}

// OrphanedAssetError means the audio was finalized but no submission
// references it yet. AssetID identifies the asset for a later retry.
type OrphanedAssetError struct {
	AssetID string
	Err     error
}

func (e *OrphanedAssetError) Error() string {
	return fmt.Sprintf("audio %s uploaded but submission not created: %v", e.AssetID, e.Err)
}

func (e *OrphanedAssetError) Unwrap() error { return e.Err }

// Materializer finalizes an uploaded asset and files it for review.
type Materializer struct {
	backend Backend
}

func NewMaterializer(b Backend) *Materializer {
	return &Materializer{backend: b}
}

func (m *Materializer) FinalizeAudioUploadAndCreateSubmission(ctx context.Context, in FinalizeInput) (*FinalizeResult, error) {
	done, err := m.backend.CompleteUpload(ctx, models.CompleteUploadRequest{
		UploadToken: in.UploadToken,
		SizeBytes:   in.SizeBytes,
		DurationMs:  in.DurationMs,
	})
	if err != nil {
		return nil, fmt.Errorf("finalize upload: %w", err)
	}
	if done.PontoAudioID != in.AssetID {
		return nil, fmt.Errorf("%w: finalized %s, expected %s", common.ErrInvalidState, done.PontoAudioID, in.AssetID)
	}

	sub, err := m.backend.CreateSubmission(ctx, models.CreateSubmissionRequest{
		PontoID:         in.PontoID,
		PontoAudioID:    in.AssetID,
		InterpreterName: in.InterpreterName,
		AuthorName:      in.AuthorName,
		ConsentGranted:  in.ConsentGranted,
	})
	if err != nil {
		return nil, &OrphanedAssetError{AssetID: in.AssetID, Err: err}
	}

	return &FinalizeResult{
		AssetID:      in.AssetID,
		Bucket:       done.Bucket,
		Path:         done.Path,
		SubmissionID: sub.SubmissionID,
	}, nil
}
