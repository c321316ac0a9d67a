// Package audios implements the server side of the ponto audio upload:
// minting upload sessions and the privileged finalize transition.
package audios

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/dmitrijs2005/pontos/internal/cryptox"
	"github.com/dmitrijs2005/pontos/internal/logging"
	sc "github.com/dmitrijs2005/pontos/internal/server/config"
	"github.com/dmitrijs2005/pontos/internal/server/models"
	"github.com/dmitrijs2005/pontos/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/pontos/internal/server/storage"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Storage is the part of the object store the service needs.
type Storage interface {
	PresignPut(ctx context.Context, bucket, key, contentType string, ttl time.Duration) (*storage.SignedUpload, error)
	Head(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error)
}

// ProbeEnqueuer schedules background inspection of a finalized asset.
type ProbeEnqueuer interface {
	EnqueueProbe(ctx context.Context, assetID string) error
}

type InitUploadInput struct {
	PontoID         string
	InterpreterName string
	MimeType        string
	SizeBytes       *int64
}

type InitUploadOutput struct {
	AssetID     string
	Bucket      string
	Path        string
	UploadToken string
	Upload      storage.SignedUpload
}

type CompleteInput struct {
	UploadToken string
	SizeBytes   *int64
	DurationMs  *int64
	ContentETag *string
	SHA256      *string
}

type CompleteOutput struct {
	AssetID      string
	Bucket       string
	Path         string
	UploadStatus models.UploadStatus
	// AlreadyUploaded is set when the call found the asset finalized and
	// changed nothing.
	AlreadyUploaded bool
}

type Service struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	storage     Storage
	probes      ProbeEnqueuer
	config      *sc.Config
	log         logging.Logger

	newToken func() (string, error)
	newID    func() string
}

// NewService wires the service. probes may be nil when no job queue is configured.
func NewService(db *sql.DB, rm repomanager.RepositoryManager, st Storage, probes ProbeEnqueuer,
	config *sc.Config, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop{}
	}
	return &Service{
		db:          db,
		repomanager: rm,
		storage:     st,
		probes:      probes,
		config:      config,
		log:         log.With("component", "audios"),
		newToken:    cryptox.NewUploadToken,
		newID:       uuid.NewString,
	}
}

// InitUpload creates a pending asset for the caller and returns where and
// how to upload its bytes. The upload token is returned once; only its
// digest is stored.
func (s *Service) InitUpload(ctx context.Context, userID string, in InitUploadInput) (*InitUploadOutput, error) {
	if userID == "" {
		return nil, common.ErrorUnauthorized
	}

	interpreter := strings.TrimSpace(in.InterpreterName)
	if interpreter == "" {
		return nil, fmt.Errorf("%w: interpreter_name is required", common.ErrValidation)
	}

	mimeType, err := normalizeAudioMime(in.MimeType)
	if err != nil {
		return nil, err
	}

	if in.SizeBytes != nil {
		if *in.SizeBytes < 0 {
			return nil, fmt.Errorf("%w: size_bytes must not be negative", common.ErrValidation)
		}
		if *in.SizeBytes > s.maxBytes() {
			return nil, fmt.Errorf("%w: %d bytes exceeds %d", common.ErrPayloadTooLarge, *in.SizeBytes, s.maxBytes())
		}
	}

	pontoID, err := uuid.Parse(strings.TrimSpace(in.PontoID))
	if err != nil {
		return nil, fmt.Errorf("%w: ponto_id must be a uuid", common.ErrValidation)
	}

	exists, err := s.repomanager.Pontos(s.db).Exists(ctx, pontoID.String())
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: unknown ponto", common.ErrValidation)
	}

	token, err := s.newToken()
	if err != nil {
		return nil, err
	}

	id := s.newID()
	bucket := s.config.AudioBucket
	path := StoragePath(pontoID.String(), id, mimeType)

	upload, err := s.storage.PresignPut(ctx, bucket, path, mimeType, s.config.PresignTTL)
	if err != nil {
		return nil, err
	}

	asset := &models.AudioAsset{
		ID:              id,
		PontoID:         pontoID.String(),
		Bucket:          bucket,
		Path:            path,
		MimeType:        mimeType,
		SizeBytes:       in.SizeBytes,
		InterpreterName: interpreter,
		UploadStatus:    models.UploadPending,
		IsActive:        true,
		CreatedBy:       userID,
		UploadTokenHash: cryptox.DigestToken(token),
	}
	if err := s.repomanager.Audios(s.db).Create(ctx, asset); err != nil {
		return nil, err
	}

	s.log.Info(ctx, "upload session created", "ponto_audio_id", id, "ponto_id", asset.PontoID, "path", path)

	return &InitUploadOutput{
		AssetID:     id,
		Bucket:      bucket,
		Path:        path,
		UploadToken: token,
		Upload:      *upload,
	}, nil
}

// CompleteUpload performs the one pending -> uploaded transition of the
// asset bound to in.UploadToken. Repeating the call after success returns
// the same location without writing again.
func (s *Service) CompleteUpload(ctx context.Context, userID string, in CompleteInput) (*CompleteOutput, error) {
	if userID == "" {
		return nil, common.ErrorUnauthorized
	}

	token := strings.TrimSpace(in.UploadToken)
	if token == "" {
		return nil, fmt.Errorf("%w: upload_token is required", common.ErrValidation)
	}
	if err := checkNonNegative(in.SizeBytes, "size_bytes"); err != nil {
		return nil, err
	}
	if err := checkNonNegative(in.DurationMs, "duration_ms"); err != nil {
		return nil, err
	}

	repo := s.repomanager.Audios(s.db)

	asset, err := repo.GetByTokenHash(ctx, cryptox.DigestToken(token))
	if err != nil {
		return nil, err
	}

	if asset.CreatedBy != userID {
		s.log.Warn(ctx, "finalize by non-owner rejected", "ponto_audio_id", asset.ID)
		return nil, common.ErrForbidden
	}

	if asset.Finalized() {
		return finalized(asset, true), nil
	}
	if asset.UploadStatus != models.UploadPending {
		return nil, fmt.Errorf("%w: asset is %s", common.ErrInvalidState, asset.UploadStatus)
	}

	fields := models.FinalizeFields{
		SizeBytes:   in.SizeBytes,
		DurationMs:  in.DurationMs,
		ContentETag: in.ContentETag,
		SHA256:      in.SHA256,
	}

	if s.config.VerifyOnComplete {
		if err := s.verifyObject(ctx, asset, &fields); err != nil {
			return nil, err
		}
	}

	updated, err := repo.MarkUploaded(ctx, asset.ID, fields)
	if errors.Is(err, common.ErrInvalidState) {
		// lost a race with a concurrent finalize of the same token
		current, rerr := repo.GetByID(ctx, asset.ID)
		if rerr != nil {
			return nil, rerr
		}
		if current.Finalized() {
			return finalized(current, true), nil
		}
		return nil, fmt.Errorf("%w: asset is %s", common.ErrInvalidState, current.UploadStatus)
	}
	if err != nil {
		return nil, err
	}

	if updated.Bucket == "" || updated.Path == "" {
		s.log.Error(ctx, "finalized asset has no storage location", "ponto_audio_id", updated.ID)
		return nil, fmt.Errorf("%w: missing storage location", common.ErrInvalidState)
	}

	s.log.Info(ctx, "upload finalized", "ponto_audio_id", updated.ID, "bucket", updated.Bucket, "path", updated.Path)

	if s.probes != nil {
		if err := s.probes.EnqueueProbe(ctx, updated.ID); err != nil {
			s.log.Warn(ctx, "enqueue probe failed", "ponto_audio_id", updated.ID, "error", err)
		}
	}

	return finalized(updated, false), nil
}

// verifyObject makes sure the bytes actually landed and fills size and
// etag from storage when the client did not report them.
func (s *Service) verifyObject(ctx context.Context, asset *models.AudioAsset, fields *models.FinalizeFields) error {
	info, err := s.storage.Head(ctx, asset.Bucket, asset.Path)
	if errors.Is(err, common.ErrorNotFound) {
		return common.ErrStorageObjectMissing
	}
	if err != nil {
		return err
	}
	if fields.SizeBytes == nil {
		size := info.SizeBytes
		fields.SizeBytes = &size
	}
	if fields.ContentETag == nil && info.ETag != "" {
		etag := info.ETag
		fields.ContentETag = &etag
	}
	return nil
}

func (s *Service) maxBytes() int64 {
	if s.config.MaxUploadBytes > 0 {
		return s.config.MaxUploadBytes
	}
	return common.MaxAudioSizeBytes
}

func finalized(a *models.AudioAsset, already bool) *CompleteOutput {
	return &CompleteOutput{
		AssetID:         a.ID,
		Bucket:          a.Bucket,
		Path:            a.Path,
		UploadStatus:    models.UploadUploaded,
		AlreadyUploaded: already,
	}
}

func checkNonNegative(v *int64, name string) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%w: %s must not be negative", common.ErrValidation, name)
	}
	return nil
}

// normalizeAudioMime strips parameters and lower-cases the type. Only
// audio/* types are accepted.
func normalizeAudioMime(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: mime_type is required", common.ErrValidation)
	}
	mt, _, err := mime.ParseMediaType(raw)
	if err != nil {
		return "", fmt.Errorf("%w: bad mime_type %q", common.ErrValidation, raw)
	}
	if !strings.HasPrefix(mt, "audio/") {
		return "", fmt.Errorf("%w: %s is not an audio type", common.ErrValidation, mt)
	}
	return mt, nil
}

// StoragePath builds pontos/<ponto>/<asset><ext>. The asset id keeps
// concurrent uploads for the same ponto apart.
func StoragePath(pontoID, assetID, mimeType string) string {
	ext := ""
	if m := mimetype.Lookup(mimeType); m != nil {
		ext = m.Extension()
	}
	return fmt.Sprintf("pontos/%s/%s%s", pontoID, assetID, ext)
}
