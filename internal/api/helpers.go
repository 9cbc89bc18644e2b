package api

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"

	"github.com/mroshb/scrim_bot/pkg/errors"
	"github.com/mroshb/scrim_bot/pkg/logger"
)

const maxBodyBytes = 1 << 16

type jsonResponse map[string]interface{}

func readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError

		switch {
		case stderrors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case stderrors.Is(err, io.ErrUnexpectedEOF):
			return fmt.Errorf("body contains badly-formed JSON")
		case stderrors.As(err, &unmarshalTypeError):
			return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
		case stderrors.Is(err, io.EOF):
			return fmt.Errorf("body must not be empty")
		default:
			return err
		}
	}

	if err := dec.Decode(&struct{}{}); !stderrors.Is(err, io.EOF) {
		return fmt.Errorf("body must only contain a single JSON value")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	js, err := json.Marshal(data)
	if err != nil {
		logger.Error("Failed to encode response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(js, '\n'))
}

func errorResponse(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, jsonResponse{"error": message})
}

// serviceErrorResponse maps AppError codes to HTTP statuses.
func serviceErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		logger.Error("Unhandled API error", "path", r.URL.Path, "error", err)
		errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
		return
	}

	switch appErr.Code {
	case errors.ErrCodeNotFound:
		errorResponse(w, http.StatusNotFound, appErr.Message)
	case errors.ErrCodeValidation:
		errorResponse(w, http.StatusUnprocessableEntity, appErr.Message)
	case errors.ErrCodeConflict:
		errorResponse(w, http.StatusConflict, appErr.Message)
	case errors.ErrCodeForbidden:
		errorResponse(w, http.StatusForbidden, appErr.Message)
	case errors.ErrCodeUnauthorized:
		errorResponse(w, http.StatusUnauthorized, appErr.Message)
	default:
		logger.Error("API request failed", "path", r.URL.Path, "error", err)
		errorResponse(w, http.StatusInternalServerError, "the server encountered a problem and could not process your request")
	}
}
