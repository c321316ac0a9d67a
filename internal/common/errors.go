// Package common defines shared constants and sentinel errors used across
// client and server layers of the ponto audio pipeline. Callers should use
// errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Input errors, raised before any network call.
	ErrValidation      = errors.New("validation error")
	ErrPayloadTooLarge = errors.New("payload too large")

	// Identity and ownership.
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidToken   = errors.New("invalid token")

	// Finalize outcomes that are not plain success. The specific ones wrap
	// ErrConflict so a caller can branch on either.
	ErrConflict             = errors.New("conflict")
	ErrStoragePathTaken     = fmt.Errorf("%w: storage path unique conflict", ErrConflict)
	ErrInvalidState         = fmt.Errorf("%w: invalid state", ErrConflict)
	ErrStorageObjectMissing = fmt.Errorf("%w: storage object missing", ErrConflict)

	// Transport.
	ErrTransferFailed     = errors.New("transfer failed")
	ErrBackendUnavailable = errors.New("backend unavailable")

	ErrorInternal = errors.New("internal error")
)
