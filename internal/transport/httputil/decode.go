package httputil

import (
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "gatekeeper/pkg/domain-errors"
)

// DecodeJSON decodes a JSON request body into the target type. On failure it
// writes the error response and returns nil, false. A body of "null" counts
// as a failure; handlers always receive a non-nil request.
//
// Usage:
//
//	req, ok := httputil.DecodeJSON[models.LoginRequest](w, r, h.logger)
//	if !ok {
//	    return
//	}
func DecodeJSON[T any](w http.ResponseWriter, r *http.Request, logger *slog.Logger) (*T, bool) {
	var req *T
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req == nil {
		logger.WarnContext(r.Context(), "failed to decode request body",
			"error", err,
			"path", r.URL.Path,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "Invalid JSON in request body"))
		return nil, false
	}
	return req, true
}
