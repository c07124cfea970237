// Provides helper functions for error mapping and error responses.

package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/maruel/dsinspect/internal/dataset"
	"github.com/maruel/dsinspect/internal/inspect"
	"github.com/maruel/dsinspect/internal/server/dto"
)

// toAPIError maps domain errors to API errors. name and hash describe the
// request for the 404 messages.
func toAPIError(err error, name, hash string) error {
	var ewsErr dto.ErrorWithStatus
	switch {
	case errors.As(err, &ewsErr):
		return err
	case errors.Is(err, dataset.ErrDatasetNotFound):
		return dto.DatasetNotFound(name).Wrap(err)
	case errors.Is(err, dataset.ErrRecordNotFound):
		return dto.RecordNotFound(name, hash).Wrap(err)
	case inspect.IsDataError(err):
		return dto.StorageError("Failed to read record", err).WithDetail("dataset", name)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return dto.InternalWithError("Request cancelled", err)
	default:
		return dto.InternalWithError("Internal error", err)
	}
}

// WriteErrorResponse writes an error as a JSON response.
// Use this in raw http.HandlerFunc handlers that don't use server.Wrap.
func WriteErrorResponse(w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := dto.ErrorCodeInternal
	message := "internal error"
	var details map[string]any

	var ewsErr dto.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		message = ewsErr.Error()
		details = ewsErr.Details()
	}
	if len(details) == 0 {
		details = nil
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := dto.ErrorResponse{
		Error: dto.ErrorDetails{
			Code:    errorCode,
			Message: message,
		},
		Details: details,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode error response", "err", err)
	}
}
