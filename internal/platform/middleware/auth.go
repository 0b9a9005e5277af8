package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"gatekeeper/internal/token"
)

// SessionVerifier validates a signed session token and returns its claims.
type SessionVerifier interface {
	Verify(tokenString string) (*token.SessionClaims, error)
}

type contextKeySession struct{}

// GetSession retrieves the verified session claims from the context.
// Returns nil when the request did not pass RequireSession.
func GetSession(ctx context.Context) *token.SessionClaims {
	claims, ok := ctx.Value(contextKeySession{}).(*token.SessionClaims)
	if !ok {
		return nil
	}
	return claims
}

// RequireSession rejects requests without a valid Bearer session token. The
// response body never distinguishes a missing header from an expired or
// tampered token.
func RequireSession(verifier SessionVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			authHeader := r.Header.Get("Authorization")

			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || tokenString == "" {
				logger.WarnContext(ctx, "unauthorized access, missing token",
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			claims, err := verifier.Verify(tokenString)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access, invalid token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w)
				return
			}

			ctx = context.WithValue(ctx, contextKeySession{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"success":false,"error":"unauthorized","message":"Invalid or expired token"}`))
}
