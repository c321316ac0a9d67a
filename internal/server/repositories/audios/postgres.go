// Package audios stores ponto audio assets (table ponto_audios).
package audios

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/dmitrijs2005/pontos/internal/dbx"
	"github.com/dmitrijs2005/pontos/internal/server/models"
)

const bucketPathConstraint = "ponto_audios_bucket_path_key"

const selectColumns = `id, ponto_id, bucket, path, mime_type, size_bytes, duration_ms, interpreter_name,
		upload_status, is_active, created_by, created_at, upload_token_hash, content_etag, sha256, uploaded_at`

// PostgresRepository implements audio asset storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new asset row. A clash on (bucket, path) is reported as
// common.ErrStoragePathTaken.
func (r *PostgresRepository) Create(ctx context.Context, a *models.AudioAsset) error {
	query := `
		INSERT INTO ponto_audios (id, ponto_id, bucket, path, mime_type, size_bytes, interpreter_name,
			upload_status, is_active, created_by, upload_token_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	res, err := r.db.ExecContext(ctx, query,
		a.ID, a.PontoID, a.Bucket, a.Path, a.MimeType, a.SizeBytes, a.InterpreterName,
		string(a.UploadStatus), a.IsActive, a.CreatedBy, a.UploadTokenHash)
	if err != nil {
		if dbx.IsUniqueViolation(err, bucketPathConstraint) {
			return common.ErrStoragePathTaken
		}
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n != 1 {
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
	return nil
}

// GetByID returns the asset with the given id or common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.AudioAsset, error) {
	query := `SELECT ` + selectColumns + ` FROM ponto_audios WHERE id=$1`
	return r.getOne(ctx, query, id)
}

// GetByTokenHash resolves an upload token digest to its asset.
func (r *PostgresRepository) GetByTokenHash(ctx context.Context, hash string) (*models.AudioAsset, error) {
	query := `SELECT ` + selectColumns + ` FROM ponto_audios WHERE upload_token_hash=$1`
	return r.getOne(ctx, query, hash)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg string) (*models.AudioAsset, error) {
	a := &models.AudioAsset{}
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&a.ID, &a.PontoID, &a.Bucket, &a.Path, &a.MimeType, &a.SizeBytes, &a.DurationMs, &a.InterpreterName,
		&a.UploadStatus, &a.IsActive, &a.CreatedBy, &a.CreatedAt, &a.UploadTokenHash, &a.ContentETag, &a.SHA256, &a.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("failed to select audio: %w", err)
	}
	return a, nil
}

// MarkUploaded moves a pending asset to uploaded, merging the supplied
// fields over the stored ones. Only a row still in pending is touched; when
// none matches common.ErrInvalidState is returned and the caller decides
// whether the row was already finalized.
func (r *PostgresRepository) MarkUploaded(ctx context.Context, id string, f models.FinalizeFields) (*models.AudioAsset, error) {
	query := `
		UPDATE ponto_audios SET
			upload_status = 'uploaded',
			size_bytes = COALESCE($2, size_bytes),
			duration_ms = COALESCE($3, duration_ms),
			content_etag = COALESCE($4, content_etag),
			sha256 = COALESCE($5, sha256),
			uploaded_at = now()
		WHERE id = $1 AND upload_status = 'pending'
		RETURNING id, bucket, path, upload_status
	`
	a := &models.AudioAsset{}
	err := r.db.QueryRowContext(ctx, query, id, f.SizeBytes, f.DurationMs, f.ContentETag, f.SHA256).
		Scan(&a.ID, &a.Bucket, &a.Path, &a.UploadStatus)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, common.ErrInvalidState
		case dbx.IsUniqueViolation(err, ""):
			return nil, common.ErrStoragePathTaken
		}
		return nil, fmt.Errorf("failed to mark uploaded: %w", err)
	}
	return a, nil
}

// UpdateProbe records what the probe worker detected. Exactly one row must
// be affected.
func (r *PostgresRepository) UpdateProbe(ctx context.Context, id string, p models.ProbeResult) error {
	query := `UPDATE ponto_audios SET detected_mime_type=$2, tag_title=$3, tag_artist=$4 WHERE id=$1`
	res, err := r.db.ExecContext(ctx, query, id, p.DetectedMimeType, p.Title, p.Artist)
	if err != nil {
		return fmt.Errorf("failed to update probe: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}
