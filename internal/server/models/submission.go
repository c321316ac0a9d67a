package models

import "time"

type SubmissionStatus string

const (
	SubmissionPending  SubmissionStatus = "pending"
	SubmissionApproved SubmissionStatus = "approved"
	SubmissionRejected SubmissionStatus = "rejected"
)

// SubmissionKindAudio marks a submission that contributes an audio recording.
const SubmissionKindAudio = "audio"

type Submission struct {
	ID              string
	Kind            string
	PontoID         string
	PontoAudioID    string
	Status          SubmissionStatus
	InterpreterName string
	AuthorName      *string
	ConsentGranted  bool
	CreatedBy       string
	CreatedAt       time.Time
}
