package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rsoni/taskmate/internal/config"
)

type contextKey string

const ownerContextKey contextKey = "ownerID"

// OwnerFromContext extracts the authenticated owner id from the request
// context. The second return is false when the request never passed Auth.
func OwnerFromContext(r *http.Request) (int64, bool) {
	id, ok := r.Context().Value(ownerContextKey).(int64)
	return id, ok
}

// Auth validates the Bearer JWT and threads the owner id into the request
// context for downstream handlers
func Auth(cfg *config.Config) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "Missing or malformed Authorization header", http.StatusUnauthorized)
				return
			}

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
				}
				return []byte(cfg.JWTSecret), nil
			})
			if err != nil || !token.Valid {
				http.Error(w, "Invalid or expired token", http.StatusUnauthorized)
				return
			}

			ownerID, err := strconv.ParseInt(claims.Subject, 10, 64)
			if err != nil {
				http.Error(w, "Invalid token subject", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ownerContextKey, ownerID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
