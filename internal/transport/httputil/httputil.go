// Package httputil centralizes response envelopes and domain error
// translation for the HTTP transport.
//
// Every response body uses one envelope:
//
//	{"success": true,  "data": ...}
//	{"success": false, "error": "<code>", "message": "..."}
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	ratelimit "gatekeeper/internal/ratelimit/models"
	dErrors "gatekeeper/pkg/domain-errors"
)

type successEnvelope struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		// best-effort fallback; don't override status for the caller
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

// WriteSuccess wraps data in the success envelope.
func WriteSuccess(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, successEnvelope{Success: true, Data: data})
}

// WriteError centralizes domain error translation to HTTP responses.
// Rate-limit denials additionally carry Retry-After and quota headers.
func WriteError(w http.ResponseWriter, err error) {
	var limited *ratelimit.RateLimitedError
	if errors.As(err, &limited) && limited.Decision != nil {
		d := limited.Decision
		w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfter))
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
		WriteJSON(w, http.StatusTooManyRequests, errorEnvelope{
			Error:   "rate_limited",
			Message: "Too many attempts. Please try again later.",
		})
		return
	}

	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		message := domainErr.Message
		if domainErr.Code == dErrors.CodeInternal {
			// Internal detail stays in the logs.
			message = "Internal server error"
		}
		WriteJSON(w, codeToStatus(domainErr.Code), errorEnvelope{
			Error:   codeToWire(domainErr.Code),
			Message: message,
		})
		return
	}

	// Fallback for unexpected errors. The cause is logged by the caller,
	// never echoed to the client.
	WriteJSON(w, http.StatusInternalServerError, errorEnvelope{
		Error:   codeToWire(dErrors.CodeInternal),
		Message: "Internal server error",
	})
}

func codeToStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeUnauthorized:
		return http.StatusUnauthorized
	case dErrors.CodeRateLimited:
		return http.StatusTooManyRequests
	case dErrors.CodeInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func codeToWire(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest, dErrors.CodeValidation, dErrors.CodeInvalidInput:
		return "bad_request"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeUnauthorized:
		return "unauthorized"
	case dErrors.CodeRateLimited:
		return "rate_limited"
	default:
		return "internal_error"
	}
}
