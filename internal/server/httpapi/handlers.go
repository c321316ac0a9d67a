package httpapi

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/dmitrijs2005/pontos/internal/logging"
	"github.com/dmitrijs2005/pontos/internal/server/audios"
	"github.com/dmitrijs2005/pontos/internal/server/models"
	"github.com/dmitrijs2005/pontos/internal/server/storage"
	"github.com/dmitrijs2005/pontos/internal/server/submissions"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

type AudioService interface {
	InitUpload(ctx context.Context, userID string, in audios.InitUploadInput) (*audios.InitUploadOutput, error)
	CompleteUpload(ctx context.Context, userID string, in audios.CompleteInput) (*audios.CompleteOutput, error)
}

type SubmissionService interface {
	CreateForAudio(ctx context.Context, userID string, in submissions.CreateInput) (*models.Submission, bool, error)
}

type initUploadRequest struct {
	PontoID         string `json:"ponto_id" validate:"required,uuid"`
	InterpreterName string `json:"interpreter_name" validate:"required"`
	MimeType        string `json:"mime_type" validate:"required"`
	SizeBytes       *int64 `json:"size_bytes" validate:"omitempty,gte=0"`
}

type initUploadResponse struct {
	OK           bool                 `json:"ok"`
	PontoAudioID string               `json:"ponto_audio_id"`
	Bucket       string               `json:"bucket"`
	Path         string               `json:"path"`
	UploadToken  string               `json:"upload_token"`
	Upload       storage.SignedUpload `json:"upload"`
}

type completeUploadRequest struct {
	UploadToken string  `json:"upload_token" validate:"required"`
	SizeBytes   *int64  `json:"size_bytes" validate:"omitempty,gte=0"`
	DurationMs  *int64  `json:"duration_ms" validate:"omitempty,gte=0"`
	ContentETag *string `json:"content_etag"`
	SHA256      *string `json:"sha256" validate:"omitempty,len=64,hexadecimal"`
}

type completeUploadResponse struct {
	OK           bool   `json:"ok"`
	PontoAudioID string `json:"ponto_audio_id"`
	Bucket       string `json:"bucket"`
	Path         string `json:"path"`
	UploadStatus string `json:"upload_status"`
}

type createSubmissionRequest struct {
	PontoID         string  `json:"ponto_id" validate:"required,uuid"`
	PontoAudioID    string  `json:"ponto_audio_id" validate:"required,uuid"`
	InterpreterName string  `json:"interpreter_name" validate:"required"`
	AuthorName      *string `json:"author_name"`
	ConsentGranted  bool    `json:"consent_granted"`
}

type submissionResponse struct {
	OK           bool      `json:"ok"`
	SubmissionID string    `json:"submission_id"`
	PontoAudioID string    `json:"ponto_audio_id"`
	Status       string    `json:"status"`
	Created      bool      `json:"created"`
	CreatedAt    time.Time `json:"created_at"`
}

// Handler serves the upload pipeline endpoints.
type Handler struct {
	audios      AudioService
	submissions SubmissionService
	validate    *validator.Validate
	log         logging.Logger
}

func NewHandler(a AudioService, s SubmissionService, v *validator.Validate, log logging.Logger) *Handler {
	if v == nil {
		v = validator.New()
	}
	v.RegisterTagNameFunc(jsonFieldName)
	if log == nil {
		log = logging.Nop{}
	}
	return &Handler{audios: a, submissions: s, validate: v, log: log}
}

// InitUpload handles POST /api/ponto-audios/init-upload.
func (h *Handler) InitUpload(c *fiber.Ctx) error {
	var req initUploadRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	out, err := h.audios.InitUpload(c.UserContext(), UserID(c), audios.InitUploadInput{
		PontoID:         req.PontoID,
		InterpreterName: req.InterpreterName,
		MimeType:        req.MimeType,
		SizeBytes:       req.SizeBytes,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(initUploadResponse{
		OK:           true,
		PontoAudioID: out.AssetID,
		Bucket:       out.Bucket,
		Path:         out.Path,
		UploadToken:  out.UploadToken,
		Upload:       out.Upload,
	})
}

// CompleteUpload handles POST /functions/v1/ponto-audio-complete-upload.
func (h *Handler) CompleteUpload(c *fiber.Ctx) error {
	var req completeUploadRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	out, err := h.audios.CompleteUpload(c.UserContext(), UserID(c), audios.CompleteInput{
		UploadToken: req.UploadToken,
		SizeBytes:   req.SizeBytes,
		DurationMs:  req.DurationMs,
		ContentETag: req.ContentETag,
		SHA256:      req.SHA256,
	})
	if err != nil {
		return h.fail(c, err)
	}

	return c.JSON(completeUploadResponse{
		OK:           true,
		PontoAudioID: out.AssetID,
		Bucket:       out.Bucket,
		Path:         out.Path,
		UploadStatus: string(out.UploadStatus),
	})
}

// CreateSubmission handles POST /api/submissions.
func (h *Handler) CreateSubmission(c *fiber.Ctx) error {
	var req createSubmissionRequest
	if ok, err := h.bind(c, &req); !ok {
		return err
	}

	sub, created, err := h.submissions.CreateForAudio(c.UserContext(), UserID(c), submissions.CreateInput{
		PontoID:         req.PontoID,
		PontoAudioID:    req.PontoAudioID,
		InterpreterName: req.InterpreterName,
		AuthorName:      req.AuthorName,
		ConsentGranted:  req.ConsentGranted,
	})
	if err != nil {
		return h.fail(c, err)
	}

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(submissionResponse{
		OK:           true,
		SubmissionID: sub.ID,
		PontoAudioID: sub.PontoAudioID,
		Status:       string(sub.Status),
		Created:      created,
		CreatedAt:    sub.CreatedAt,
	})
}

// bind parses and validates the JSON body. When ok is false the 400
// response has been written and err is the result of writing it.
func (h *Handler) bind(c *fiber.Ctx, dst any) (ok bool, err error) {
	if err := c.BodyParser(dst); err != nil {
		return false, writeError(c, fiber.StatusBadRequest, CodeValidation, "invalid request body", nil)
	}
	if err := h.validate.Struct(dst); err != nil {
		return false, writeError(c, fiber.StatusBadRequest, CodeValidation, "validation failed", validationDetails(err))
	}
	return true, nil
}

func (h *Handler) fail(c *fiber.Ctx, err error) error {
	status, code := classify(err)
	msg := err.Error()
	if status >= fiber.StatusInternalServerError {
		h.log.Error(c.UserContext(), "request failed", "path", c.Path(), "error", err)
		msg = "internal server error"
	}
	return writeError(c, status, code, msg, nil)
}

func jsonFieldName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "-" {
		return ""
	}
	return name
}

func validationDetails(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	details := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		details[fe.Field()] = fe.Tag()
	}
	return details
}
