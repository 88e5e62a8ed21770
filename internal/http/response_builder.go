// Package http exposes the tracker as a JSON API.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"sorpes/internal/backup"
	"sorpes/internal/core"
	"sorpes/internal/log"
	"sorpes/internal/services"
)

// ResponseBuilder assembles a JSON response fluently.
type ResponseBuilder struct {
	statusCode int
	body       any
	raw        []byte
	headers    map[string]string
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON sets a value to be encoded as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	b.body = v
	b.raw = nil
	return b
}

// Attachment sends data as a file download named filename.
func (b *ResponseBuilder) Attachment(filename string, data []byte) *ResponseBuilder {
	b.raw = data
	b.body = nil
	b.headers["Content-Disposition"] = `attachment; filename="` + filename + `"`
	return b
}

// Write sends the response. A body that cannot be encoded becomes a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	payload := b.raw
	if b.body != nil {
		data, err := json.Marshal(b.body)
		if err != nil {
			http.Error(w, "encoding failed", http.StatusInternalServerError)
			return
		}
		payload = append(data, '\n')
	}

	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if len(payload) > 0 {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
	}
	w.WriteHeader(b.statusCode)
	if len(payload) > 0 {
		_, _ = w.Write(payload)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorResponse builds the error envelope {"error": ..., "code": ...}.
func ErrorResponse(statusCode int, code, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message, Code: code})
}

func BadRequestError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

func NotFoundError(message string) *ResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

func InternalServerError() *ResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal", "internal error")
}

// statusFor maps domain errors to a status and a stable error code.
func statusFor(err error) (int, string) {
	var bad *badRequestError
	switch {
	case errors.As(err, &bad):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, backup.ErrInvalidBackup):
		return http.StatusBadRequest, "invalid_backup"
	case errors.Is(err, core.ErrValidation),
		errors.Is(err, core.ErrInvalidKind),
		errors.Is(err, core.ErrInvalidMonthKey),
		errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidDate):
		return http.StatusUnprocessableEntity, "validation"
	case errors.Is(err, core.ErrMonthNotFound),
		errors.Is(err, core.ErrEntryNotFound),
		errors.Is(err, core.ErrBlockNotFound),
		errors.Is(err, core.ErrOwnerNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, core.ErrDuplicateMonth):
		return http.StatusConflict, "duplicate_month"
	case errors.Is(err, services.ErrConfirmationRequired):
		return http.StatusConflict, "confirmation_required"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

// writeError answers with the mapped status. Internal errors are logged
// and their text is not exposed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusFor(err)
	if status == http.StatusInternalServerError {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldPath, r.URL.Path, log.FieldError, err)
		InternalServerError().Write(w)
		return
	}
	ErrorResponse(status, code, err.Error()).Write(w)
}
