package web

// errors.go provides unified error response handling for the web layer.
//
// Every error is:
//   - Logged with full technical detail and the request ID (server-side)
//   - Mapped to a user-facing message and code via core.MapError
//   - Rendered as JSON for API clients, or as an HTML alert for the browser
//
// Rejections and parse failures are client errors; nothing is retried.

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/JonMunkholm/calcfields/internal/core"
	"github.com/JonMunkholm/calcfields/internal/logging"
	"github.com/JonMunkholm/calcfields/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for an error returned by the service.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrInputRejected):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrParseFailure):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrTooManyConversions):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes a user-friendly response in the format
// the client asked for.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	if wantsJSON(r) {
		writeJSON(w, statusCode, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Detail:  userMsg.Detail,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := templates.ErrorAlert(userMsg).Render(r.Context(), w); err != nil {
		logging.FromContext(r.Context()).Error("render error alert", "error", err)
	}
}

// wantsJSON checks if the client prefers a JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// clientIP returns the client address without its port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
