package web

// errors.go turns service errors into JSON responses. The technical error
// is logged with the request id; the client gets the mapped user message
// from core.MapError.

import (
	"context"
	"errors"
	"net/http"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/core"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/ingest"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/logging"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/repository"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Message string   `json:"message"`
	Action  string   `json:"action,omitempty"`
	Code    string   `json:"code"`
	Details []string `json:"details,omitempty"`
}

var (
	errNoFile       = errors.New("no file provided")
	errInvalidQuery = errors.New("invalid list query")
	errInvalidID    = errors.New("invalid dataset id")
	errFileTooLarge = errors.New("file size exceeds maximum")
)

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var ve *ingest.ValidationError
	var mbe *http.MaxBytesError
	switch {
	case errors.As(err, &mbe), errors.Is(err, errFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case ingest.IsParse(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrNotPublished):
		return http.StatusConflict
	case errors.Is(err, errNoFile), errors.Is(err, errInvalidQuery), errors.Is(err, errInvalidID),
		errors.Is(err, core.ErrInvalidUpload), errors.Is(err, repository.ErrInvalidSort):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// respondError logs err and writes the mapped user message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	statusCode := statusFor(err)
	if statusCode == http.StatusRequestEntityTooLarge {
		err = errFileTooLarge
	}
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	args := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if statusCode >= 500 {
		logger.Error("request error", args...)
	} else {
		logger.Warn("request error", args...)
	}

	resp := ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	}
	var ve *ingest.ValidationError
	if errors.As(err, &ve) {
		resp.Details = ve.Errors
	}
	if statusCode == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, statusCode, resp)
}
