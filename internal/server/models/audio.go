// Package models defines server-side data models persisted in the database.
package models

import "time"

// UploadStatus is the lifecycle state of an AudioAsset.
type UploadStatus string

const (
	UploadPending  UploadStatus = "pending"
	UploadUploaded UploadStatus = "uploaded"
	UploadFailed   UploadStatus = "failed"
	UploadDeleted  UploadStatus = "deleted"
)

// AudioAsset is a row of ponto_audios: one recording of a ponto and the
// object-storage location of its bytes.
type AudioAsset struct {
	ID              string
	PontoID         string
	Bucket          string
	Path            string
	MimeType        string
	SizeBytes       *int64
	DurationMs      *int64
	InterpreterName string
	UploadStatus    UploadStatus
	IsActive        bool
	CreatedBy       string
	CreatedAt       time.Time
	// UploadTokenHash is the digest of the upload token. The token itself
	// is never stored.
	UploadTokenHash string
	ContentETag     *string
	SHA256          *string
	UploadedAt      *time.Time
}

// Finalized reports whether the asset already completed its upload and
// has a resolvable storage location.
func (a *AudioAsset) Finalized() bool {
	return a.UploadStatus == UploadUploaded && a.Bucket != "" && a.Path != ""
}

// FinalizeFields are the optional values a client (or the storage HEAD
// check) supplies when completing an upload. Nil leaves the column as is.
type FinalizeFields struct {
	SizeBytes   *int64
	DurationMs  *int64
	ContentETag *string
	SHA256      *string
}

// ProbeResult is what the background probe learned from the stored object.
type ProbeResult struct {
	DetectedMimeType string
	Title            string
	Artist           string
}
