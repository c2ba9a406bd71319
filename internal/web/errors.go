package web

// errors.go turns service errors into JSON or HTML error responses.
//
// Every error is mapped through core.MapError, so clients always receive a
// message, an action and a support code. Ingest errors keep their precise
// message, which quotes the offending line or value.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/custload/internal/core"
	"github.com/JonMunkholm/custload/internal/web/templates"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code, Kind) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error    string         `json:"error"`
	Message  string         `json:"message"`
	Action   string         `json:"action,omitempty"`
	Code     string         `json:"code"`
	Kind     core.ErrorKind `json:"kind,omitempty"`
	Line     int            `json:"line,omitempty"`
	UploadID string         `json:"uploadId,omitempty"`
}

// statusFor picks the HTTP status for err.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case core.IsIngestError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, errFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, errNoFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrTooManyUploads):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err with request context and writes the mapped message.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	s.respondUploadError(w, r, err, "")
}

// respondUploadError is respondError with the id of the rejected upload.
func (s *Server) respondUploadError(w http.ResponseWriter, r *http.Request, err error, uploadID string) {
	status, msg := logRequestError(r, err)

	resp := ErrorResponse{
		Error:    msg.Message,
		Message:  msg.Message,
		Action:   msg.Action,
		Code:     msg.Code,
		Kind:     core.KindOf(err),
		UploadID: uploadID,
	}
	var ie *core.IngestError
	if errors.As(err, &ie) {
		resp.Line = ie.Line
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, resp)
}

// renderError writes the mapped message as HTML: the ErrorAlert partial for
// HTMX requests, a full error page otherwise.
func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := logRequestError(r, err)

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	if isHTMX(r) {
		render(w, r, status, templates.ErrorAlert(msg.Message, msg.Action, msg.Code))
		return
	}
	render(w, r, status, templates.ErrorPage(msg.Message, msg.Action, msg.Code))
}

// logRequestError logs err with request context and returns its status and
// user-facing message.
func logRequestError(r *http.Request, err error) (int, core.UserMessage) {
	status := statusFor(err)
	msg := core.MapError(err)

	level := slog.LevelError
	if status < http.StatusInternalServerError {
		level = slog.LevelWarn
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)
	return status, msg
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
