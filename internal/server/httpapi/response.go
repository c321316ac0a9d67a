// Package httpapi exposes the upload pipeline over HTTP (fiber).
package httpapi

import (
	"errors"

	"github.com/dmitrijs2005/pontos/internal/common"
	"github.com/gofiber/fiber/v2"
)

// Stable error codes returned in the error envelope.
const (
	CodeValidation         = "validation_error"
	CodeUnauthorized       = "unauthorized"
	CodeForbidden          = "forbidden"
	CodeNotFound           = "not_found"
	CodePayloadTooLarge    = "payload_too_large"
	CodePathConflict       = "storage_path_unique_conflict"
	CodeInvalidState       = "invalid_state"
	CodeObjectMissing      = "object_missing"
	CodeConflict           = "conflict"
	CodeRateLimited        = "rate_limited"
	CodeBackendUnavailable = "backend_unavailable"
	CodeInternal           = "internal_error"
)

type ErrorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type ErrorResponse struct {
	OK    bool      `json:"ok"`
	Error ErrorBody `json:"error"`
}

func writeError(c *fiber.Ctx, status int, code, message string, details map[string]string) error {
	return c.Status(status).JSON(ErrorResponse{
		Error: ErrorBody{Code: code, Message: message, Details: details},
	})
}

// classify maps a service error to an HTTP status and error code. The
// specific conflict sentinels wrap ErrConflict and are checked first.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return fiber.StatusBadRequest, CodeValidation
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return fiber.StatusUnauthorized, CodeUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return fiber.StatusForbidden, CodeForbidden
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound, CodeNotFound
	case errors.Is(err, common.ErrPayloadTooLarge):
		return fiber.StatusRequestEntityTooLarge, CodePayloadTooLarge
	case errors.Is(err, common.ErrStoragePathTaken):
		return fiber.StatusConflict, CodePathConflict
	case errors.Is(err, common.ErrStorageObjectMissing):
		return fiber.StatusConflict, CodeObjectMissing
	case errors.Is(err, common.ErrInvalidState):
		return fiber.StatusConflict, CodeInvalidState
	case errors.Is(err, common.ErrConflict):
		return fiber.StatusConflict, CodeConflict
	case errors.Is(err, common.ErrBackendUnavailable):
		return fiber.StatusServiceUnavailable, CodeBackendUnavailable
	default:
		return fiber.StatusInternalServerError, CodeInternal
	}
}

// ErrorHandler is the fiber fallback for errors not already written by a
// handler: routing misses, body limits, panics turned into errors.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := CodeInternal
		switch fe.Code {
		case fiber.StatusNotFound:
			code = CodeNotFound
		case fiber.StatusRequestEntityTooLarge:
			code = CodePayloadTooLarge
		case fiber.StatusBadRequest, fiber.StatusUnprocessableEntity:
			code = CodeValidation
		case fiber.StatusMethodNotAllowed:
			code = "method_not_allowed"
		}
		return writeError(c, fe.Code, code, fe.Message, nil)
	}
	return writeError(c, fiber.StatusInternalServerError, CodeInternal, "internal server error", nil)
}
