package uploader

import (
	"errors"

	"github.com/dmitrijs2005/pontos/internal/common"
)

// Describe turns a pipeline error into a message fit for the user.
func Describe(err error) string {
	var orphan *OrphanedAssetError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &orphan):
		return "The audio was uploaded but could not be sent for review (audio " + orphan.AssetID + "). Please try again later."
	case errors.Is(err, common.ErrPayloadTooLarge):
		return "The file is larger than 50 MiB."
	case errors.Is(err, common.ErrValidation):
		return "Some details are missing or invalid: " + err.Error()
	case errors.Is(err, common.ErrorUnauthorized), errors.Is(err, common.ErrInvalidToken):
		return "Your session has expired. Please sign in again."
	case errors.Is(err, common.ErrForbidden):
		return "This upload belongs to another account."
	case errors.Is(err, common.ErrorNotFound):
		return "The upload session was not found. Please start again."
	case errors.Is(err, common.ErrStoragePathTaken):
		return "This upload was already completed elsewhere."
	case errors.Is(err, common.ErrStorageObjectMissing):
		return "The file did not reach storage. Please try again."
	case errors.Is(err, common.ErrConflict):
		return "The upload is in an unexpected state. Please start again."
	case errors.Is(err, common.ErrTransferFailed):
		return "Sending the file failed. Check your connection and try again."
	case errors.Is(err, common.ErrBackendUnavailable):
		return "The server is unreachable right now. Please try again."
	default:
		return "Something went wrong: " + err.Error()
	}
}
