package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	s := NewService("secret", true)
	token, err := s.IssueToken("print-shop", time.Hour)
	require.NoError(t, err)

	sub, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "print-shop", sub)

	_, err = NewService("other", true).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = s.IssueToken("  ", time.Hour)
	assert.ErrorIs(t, err, ErrNoSubject)
}

func TestExpiredToken(t *testing.T) {
	s := NewService("secret", true)
	past := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return past }
	token, err := s.IssueToken("me", time.Minute)
	require.NoError(t, err)

	s.now = time.Now
	_, err = s.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestRejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "me"})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewService("secret", true).ValidateToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func serveMe(s *Service, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.AuthMiddleware(http.HandlerFunc(NewHandler().Me)).ServeHTTP(rec, req)
	return rec
}

func TestMiddleware(t *testing.T) {
	required := NewService("secret", true)
	optional := NewService("secret", false)
	token, err := required.IssueToken("designer", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name       string
		service    *Service
		header     string
		query      string
		wantStatus int
		wantAnon   bool
	}{
		{"missing required", required, "", "", http.StatusUnauthorized, false},
		{"bad format", required, "Token abc", "", http.StatusUnauthorized, false},
		{"bad token", required, "Bearer abc", "", http.StatusUnauthorized, false},
		{"header", required, "Bearer " + token, "", http.StatusOK, false},
		{"query", required, "", token, http.StatusOK, false},
		{"anonymous", optional, "", "", http.StatusOK, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.query != "" {
				req.URL.RawQuery = "token=" + tc.query
			}
			rec := serveMe(tc.service, req)
			require.Equal(t, tc.wantStatus, rec.Code)
			if rec.Code != http.StatusOK {
				return
			}
			var body meResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tc.wantAnon, body.Anonymous)
			if !tc.wantAnon {
				assert.Equal(t, "designer", body.Subject)
			}
		})
	}
}
