package http

import (
	"context"
	"errors"
	"net/http"

	"spendwise/internal/core"
	"spendwise/internal/log"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// statusFor maps the ledger error taxonomy onto HTTP.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrCommit):
		return http.StatusConflict
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusInternalServerError
}

func errorTypeFor(status int) string {
	switch status {
	case http.StatusUnauthorized:
		return log.ErrorTypeAuth
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusUnprocessableEntity, http.StatusRequestEntityTooLarge:
		return log.ErrorTypeValidation
	case http.StatusConflict:
		return log.ErrorTypeConflict
	}
	return log.ErrorTypeInternal
}

// publicMessage hides internal failures from the client.
func publicMessage(status int, err error) string {
	switch status {
	case http.StatusInternalServerError:
		return "internal error"
	case http.StatusConflict:
		return "the change could not be saved, nothing was modified"
	case http.StatusServiceUnavailable:
		return "request timed out"
	}
	return err.Error()
}

// writeError answers with the JSON error envelope. HTMX callers also get
// an error notification.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := publicMessage(status, err)

	logger := log.FromContext(r.Context())
	fields := log.NewFields().
		WithError(err).
		WithErrorType(errorTypeFor(status)).
		WithComponent(log.ComponentHTTP)
	if status >= 500 || status == http.StatusConflict {
		logger.ErrorContext(r.Context(), "Request failed", fields.ToSlice()...)
	} else {
		logger.DebugContext(r.Context(), "Request rejected", fields.ToSlice()...)
	}

	b := NewHTMXResponse().Status(status).BodyJSON(envelope{Error: msg})
	if isHTMX(r) {
		b.TriggerErrorNotification(msg)
	}
	b.Write(w)
}

// methodNotAllowed answers a known path reached with the wrong method.
func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	msg := r.Method + " is not allowed on " + r.URL.Path
	b := NewHTMXResponse().Status(http.StatusMethodNotAllowed).BodyJSON(envelope{Error: msg})
	if isHTMX(r) {
		b.TriggerErrorNotification(msg)
	}
	b.Write(w)
}

func writeData(w http.ResponseWriter, status int, data any) {
	NewHTMXResponse().Status(status).BodyJSON(envelope{Success: true, Data: data}).Write(w)
}

// writeResult answers a mutation. Success reports the stale views to htmx;
// failure goes through writeError.
func writeResult[T any](w http.ResponseWriter, r *http.Request, res core.Result[T], status int, message string, view func(T) any) *HTMXResponseBuilder {
	if !res.Success {
		writeError(w, r, res.Err)
		return nil
	}
	b := NewHTMXResponse().
		Status(status).
		BodyJSON(envelope{Success: true, Data: view(res.Data)}).
		TriggerViewsStale(res.Invalidated)
	if message != "" {
		b.TriggerSuccessNotification(message)
	}
	return b
}
