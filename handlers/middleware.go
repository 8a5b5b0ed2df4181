package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/camden-git/labelsysbackend/models"
	"github.com/camden-git/labelsysbackend/repository"
)

// ContextKey is a custom type for context keys to avoid collisions.
type ContextKey string

const (
	// UserContextKey is the key used to store the user object in the request context.
	UserContextKey ContextKey = "user"
)

// UserFromContext returns the authenticated user placed in the context by
// AuthMiddleware, or nil when the request is unauthenticated.
func UserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}

// AuthMiddleware creates a middleware handler for JWT authentication.
// It verifies the token and, if valid, fetches the user and adds them to the
// request context.
func AuthMiddleware(userRepo repository.UserRepositoryInterface, jwtSecret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authorization header required")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Authorization header format must be Bearer {token}")
				return
			}
			tokenString := parts[1]

			claims := &jwt.RegisteredClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
				if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
				}
				return jwtSecret, nil
			})
			if err != nil || !token.Valid {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid token")
				return
			}

			var userID uint
			if _, err := fmt.Sscan(claims.Subject, &userID); err != nil {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Invalid user ID in token")
				return
			}

			user, err := userRepo.GetByID(userID)
			if err != nil {
				// the user may have been deleted after the token was issued
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "User not found")
				return
			}

			ctx := context.WithValue(r.Context(), UserContextKey, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin is a middleware that restricts a route to administrators.
// It must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil {
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "user not found in context")
			return
		}
		if !user.IsAdmin {
			WriteAPIError(w, http.StatusForbidden, "forbidden", "administrator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
