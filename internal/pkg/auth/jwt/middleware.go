package jwt

import (
	"context"
	"net/http"
	"strings"

	"torwatch/internal/pkg/errs"
	"torwatch/internal/pkg/logx"
	"torwatch/internal/pkg/resp"
)

// contextKey is private to prevent key collisions with other packages.
type contextKey string

const (
	// ContextAuthPayloadKey is the key under which the parsed Payload is
	// stored in the request Context.
	ContextAuthPayloadKey contextKey = "auth_payload"
)

// tokenFromRequest extracts the raw token from the Authorization header, or
// from the "token" query parameter for endpoints that cannot set headers
// (WebSocket upgrades from browsers).
func tokenFromRequest(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}

	return r.URL.Query().Get("token")
}

// RequireOperator rejects requests that do not carry a valid operator token
// and injects the parsed Payload into the request Context otherwise.
func RequireOperator(secretKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := tokenFromRequest(r)
			if tokenString == "" {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			payload, err := ParseToken(tokenString, secretKey)
			if err != nil {
				logx.Warn("Rejected request with invalid or expired operator token", "error", err.Error())
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			if payload.Role != RoleOperator {
				resp.RespondError(w, r, errs.NewError(errs.ErrUnauthorized))
				return
			}

			ctx := context.WithValue(r.Context(), ContextAuthPayloadKey, payload)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetPayloadFromContext extracts the authenticated Payload from the request
// Context. A nil return means the request did not pass RequireOperator.
func GetPayloadFromContext(r *http.Request) *Payload {
	payload, ok := r.Context().Value(ContextAuthPayloadKey).(*Payload)
	if !ok {
		return nil
	}
	return payload
}
