package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type contextKey string

const SubjectKey contextKey = "subject"

// AnonymousPrefix marks subjects minted for callers without a token.
const AnonymousPrefix = "anon-"

// AuthMiddleware resolves the caller from a bearer token. WebSocket clients
// cannot set headers, so a token query parameter is accepted too. When tokens
// are optional, callers without one get an anonymous subject.
func (s *Service) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": err.Error()})
			return
		}

		var subject string
		switch {
		case token != "":
			subject, err = s.ValidateToken(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
		case s.required:
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
			return
		default:
			subject = AnonymousPrefix + uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), SubjectKey, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return r.URL.Query().Get("token"), nil
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization format")
	}
	return parts[1], nil
}

// IsAnonymous reports whether subject was minted for a caller without a token.
func IsAnonymous(subject string) bool {
	return strings.HasPrefix(subject, AnonymousPrefix)
}

func SubjectFromContext(ctx context.Context) string {
	subject, _ := ctx.Value(SubjectKey).(string)
	return subject
}

// WithSubject returns ctx carrying subject, for callers that bypass the
// middleware.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, SubjectKey, subject)
}
