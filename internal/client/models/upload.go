// Package models holds the wire types the uploader exchanges with the
// backend API.
package models

import "time"

// SignedUpload describes one pre-signed write to object storage. Headers
// must be sent verbatim: they are part of the signature.
type SignedUpload struct {
	URL       string            `json:"url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers,omitempty"`
	ExpiresAt time.Time         `json:"expires_at"`
}

type InitUploadRequest struct {
	PontoID         string `json:"ponto_id"`
	InterpreterName string `json:"interpreter_name"`
	MimeType        string `json:"mime_type"`
	SizeBytes       *int64 `json:"size_bytes,omitempty"`
}

type InitUploadResponse struct {
	PontoAudioID string       `json:"ponto_audio_id"`
	Bucket       string       `json:"bucket"`
	Path         string       `json:"path"`
	UploadToken  string       `json:"upload_token"`
	Upload       SignedUpload `json:"upload"`
}

type CompleteUploadRequest struct {
	UploadToken string  `json:"upload_token"`
	SizeBytes   *int64  `json:"size_bytes,omitempty"`
	DurationMs  *int64  `json:"duration_ms,omitempty"`
	ContentETag *string `json:"content_etag,omitempty"`
	SHA256      *string `json:"sha256,omitempty"`
}

type CompleteUploadResponse struct {
	OK           bool   `json:"ok"`
	PontoAudioID string `json:"ponto_audio_id"`
	Bucket       string `json:"bucket"`
	Path         string `json:"path"`
	UploadStatus string `json:"upload_status"`
}

type CreateSubmissionRequest struct {
	PontoID         string  `json:"ponto_id"`
	PontoAudioID    string  `json:"ponto_audio_id"`
	InterpreterName string  `json:"interpreter_name"`
	AuthorName      *string `json:"author_name,omitempty"`
	ConsentGranted  bool    `json:"consent_granted"`
}

type SubmissionResponse struct {
	SubmissionID string `json:"submission_id"`
	PontoAudioID string `json:"ponto_audio_id"`
	Status       string `json:"status"`
	Created      bool   `json:"created"`
}
