package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/medassist/symptomcheck/internal/shared/config"
)

type contextKey string

const userContextKey contextKey = "user"

// AnonymousUser is the sentinel identity recorded for unauthenticated
// callers on routes that permit them.
const AnonymousUser = "anonymous"

// User represents the authenticated caller from verified JWT claims.
type User struct {
	ID    string `json:"sub"`
	Email string `json:"email"`
}

// Claims extends the registered JWT claims with the email claim.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Middleware creates JWT authentication middleware. Requests without a
// valid bearer token are rejected.
func Middleware(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := verify(r, cfg)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// Optional creates middleware that verifies a bearer token when one is
// supplied but lets unauthenticated requests through as anonymous. A token
// that is present but invalid is still rejected.
func Optional(cfg config.AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}
			user, err := verify(r, cfg)
			if err != nil {
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

func verify(r *http.Request, cfg config.AuthConfig) (*User, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, errMissingToken
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, errMalformedHeader
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errUnexpectedSigning
		}
		return []byte(cfg.JWTSecret), nil
	}, jwt.WithIssuer(cfg.Issuer))
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	if claims.Subject == "" {
		return nil, errInvalidToken
	}

	return &User{ID: claims.Subject, Email: claims.Email}, nil
}

func withUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext returns the authenticated user, or nil for anonymous callers.
func FromContext(ctx context.Context) *User {
	user, _ := ctx.Value(userContextKey).(*User)
	return user
}

// SubjectFromContext returns the caller identity for audit purposes,
// falling back to the anonymous sentinel.
func SubjectFromContext(ctx context.Context) string {
	if user := FromContext(ctx); user != nil {
		return user.ID
	}
	return AnonymousUser
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"code":    "UNAUTHORIZED",
		"message": message,
	})
}
