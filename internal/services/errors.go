package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation     = errors.New("validation error")
	ErrTransformation = errors.New("transformation error")
	ErrFilesystem     = errors.New("filesystem error")
	ErrExternalTool   = errors.New("external tool error")
	ErrNotFound       = errors.New("not found")
	ErrConflict       = errors.New("conflict")
	ErrTimeout        = errors.New("timeout")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later status classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransformation
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Failure is a client-facing error. Error returns only the message so it can be
// written to a response body verbatim; the marker and cause stay reachable
// through errors.Is and errors.As.
type Failure struct {
	Marker  error
	Message string
	Cause   error
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() []error {
	out := make([]error, 0, 2)
	if f.Marker != nil {
		out = append(out, f.Marker)
	}
	if f.Cause != nil {
		out = append(out, f.Cause)
	}
	return out
}

// Fail builds a Failure carrying a user-facing message.
func Fail(marker error, message string, cause error) error {
	if marker == nil {
		marker = ErrTransformation
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = marker.Error()
	}
	return &Failure{Marker: marker, Message: message, Cause: cause}
}

// Message returns the text a client should see for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Message
	}
	return err.Error()
}

// HTTPStatus maps an error to the response status for file-processing routes.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrFilesystem), errors.Is(err, ErrTimeout):
		return http.StatusInternalServerError
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrValidation), errors.Is(err, ErrTransformation),
		errors.Is(err, ErrExternalTool), errors.Is(err, ErrConflict):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
