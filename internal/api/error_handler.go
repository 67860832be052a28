package api

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"

	"github.com/vytor/ctiprep/internal/errors"
	"github.com/vytor/ctiprep/internal/logger"
	"github.com/vytor/ctiprep/internal/quiz"
)

// handleError centralizes error handling for HTTP responses
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())

	appErr, ok := errors.As(err)
	if !ok {
		appErr = fromEngineError(err)
	}

	if appErr.Status >= 500 {
		log.Error("server error: %v", appErr)
	} else if appErr.Status >= 400 {
		log.Warn("client error: %v", appErr)
	} else {
		log.Debug("error: %v", appErr)
	}

	writeJSON(w, appErr.Status, map[string]any{
		"error": map[string]any{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}

// fromEngineError maps quiz engine sentinels to client errors. Anything else
// is internal.
func fromEngineError(err error) *errors.AppError {
	switch {
	case stderrors.Is(err, quiz.ErrNotInitialized):
		return &errors.AppError{Code: errors.ErrCodeBadRequest, Message: "session is not initialized", Status: 409, Err: err}
	case stderrors.Is(err, quiz.ErrIndexOutOfRange), stderrors.Is(err, quiz.ErrUnknownChoice):
		return &errors.AppError{Code: errors.ErrCodeValidation, Message: err.Error(), Status: 400, Err: err}
	case stderrors.Is(err, quiz.ErrNoSource), stderrors.Is(err, quiz.ErrNoQuestions):
		return &errors.AppError{Code: errors.ErrCodeBadRequest, Message: err.Error(), Status: 400, Err: err}
	default:
		return errors.NewInternalError(err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Default().WithPrefix("api").Warn("failed to encode response: %v", err)
	}
}

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil && err != io.EOF {
		return errors.NewBadRequestError("invalid JSON body: " + err.Error())
	}
	return nil
}

const maxBodyBytes = 4 << 20
