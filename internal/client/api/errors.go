package api

import (
	"fmt"
	"net/http"

	"github.com/dmitrijs2005/pontos/internal/common"
)

// Error is a non-2xx answer from the backend. It unwraps to the matching
// common sentinel, so callers branch with errors.Is.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("backend returned %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return common.ErrValidation
	case http.StatusUnauthorized:
		return common.ErrorUnauthorized
	case http.StatusForbidden:
		return common.ErrForbidden
	case http.StatusNotFound:
		return common.ErrorNotFound
	case http.StatusRequestEntityTooLarge:
		return common.ErrPayloadTooLarge
	case http.StatusConflict:
		switch e.Code {
		case "storage_path_unique_conflict":
			return common.ErrStoragePathTaken
		case "invalid_state":
			return common.ErrInvalidState
		case "object_missing":
			return common.ErrStorageObjectMissing
		}
		return common.ErrConflict
	case http.StatusTooManyRequests:
		return common.ErrBackendUnavailable
	}
	if e.Status >= http.StatusInternalServerError {
		return common.ErrBackendUnavailable
	}
	return common.ErrorInternal
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}
