package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"gatekeeper/internal/auth/models"
	"gatekeeper/internal/platform/middleware"
	"gatekeeper/internal/transport/httputil"
	dErrors "gatekeeper/pkg/domain-errors"
)

// Service defines the interface for authentication operations.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	Profile(ctx context.Context, subjectID string) (*models.PublicUser, error)
}

// Handler handles the authentication endpoints.
type Handler struct {
	auth   Service
	logger *slog.Logger
}

// New creates a new auth Handler with the given service and logger.
func New(auth Service, logger *slog.Logger) *Handler {
	return &Handler{auth: auth, logger: logger}
}

// Register registers the public auth routes with the chi router.
// The /me route requires session middleware; the parent router applies it.
func (h *Handler) Register(r chi.Router) {
	r.Post("/register", h.HandleRegister)
	r.Post("/login", h.HandleLogin)
}

func (h *Handler) RegisterProtected(r chi.Router) {
	r.Get("/me", h.HandleMe)
}

// HandleRegister implements POST /api/auth/register.
//
// Input:  {"email": "...", "username": "...", "password": "...", "confirmPassword": "..."}
// Output: 201 {"success": true, "data": {"user": {...}, "token": "..."}}
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[models.RegisterRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.auth.Register(ctx, req)
	if err != nil {
		h.writeFailure(ctx, w, "register", err)
		return
	}

	httputil.WriteSuccess(w, http.StatusCreated, result)
}

// HandleLogin implements POST /api/auth/login.
//
// Input:  {"email": "...", "password": "..."}
// Output: 200 {"success": true, "data": {"user": {...}, "token": "..."}}
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, ok := httputil.DecodeJSON[models.LoginRequest](w, r, h.logger)
	if !ok {
		return
	}

	result, err := h.auth.Login(ctx, req)
	if err != nil {
		h.writeFailure(ctx, w, "login", err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, result)
}

// HandleMe implements GET /api/auth/me. Requires a verified session.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session := middleware.GetSession(ctx)
	if session == nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Invalid or expired token"))
		return
	}

	public, err := h.auth.Profile(ctx, session.Subject)
	if err != nil {
		h.writeFailure(ctx, w, "me", err)
		return
	}

	httputil.WriteSuccess(w, http.StatusOK, map[string]any{"user": public})
}

// writeFailure logs server faults and hands the error to the envelope
// writer. Client errors (4xx codes) are not logged here; the request logger
// middleware already records the status line.
func (h *Handler) writeFailure(ctx context.Context, w http.ResponseWriter, operation string, err error) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, "auth operation failed",
			"operation", operation,
			"error", err,
			"request_id", middleware.GetRequestID(ctx),
		)
	}
	httputil.WriteError(w, err)
}
