package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leaguesync/pkg/errors"
	"leaguesync/pkg/logger"
)

const secret = "test-secret"

func signToken(t *testing.T, key, role string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ops",
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestAdminAuth(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantType   errors.ErrorType
	}{
		{name: "Valid admin token", header: "Bearer " + signToken(t, secret, "admin", future), wantStatus: http.StatusOK},
		{name: "Missing header", header: "", wantStatus: http.StatusUnauthorized, wantType: errors.ErrorTypeUnauthorized},
		{name: "Not a bearer token", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantType: errors.ErrorTypeUnauthorized},
		{name: "Wrong signing key", header: "Bearer " + signToken(t, "other", "admin", future), wantStatus: http.StatusUnauthorized, wantType: errors.ErrorTypeUnauthorized},
		{name: "Expired token", header: "Bearer " + signToken(t, secret, "admin", time.Now().Add(-time.Minute)), wantStatus: http.StatusUnauthorized, wantType: errors.ErrorTypeUnauthorized},
		{name: "Non-admin role", header: "Bearer " + signToken(t, secret, "viewer", future), wantStatus: http.StatusForbidden, wantType: errors.ErrorTypeForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var subject string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				subject, _ = r.Context().Value(AdminContextKey).(string)
				w.WriteHeader(http.StatusOK)
			})
			handler := RequestID(logger.NewNop())(AdminAuth(secret, logger.NewNop())(next))

			req := httptest.NewRequest(http.MethodPost, "/api/admin/notifications/process", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "ops", subject)
				return
			}

			var body errors.ErrorResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.wantType, body.Error.Type)
			assert.Equal(t, rec.Header().Get("X-Request-ID"), body.Error.RequestID)
			assert.NotEmpty(t, body.Error.RequestID)
		})
	}
}

func TestRequestID_ReusesIncomingHeader(t *testing.T) {
	var seen string
	handler := RequestID(logger.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	handler := CORS(DefaultCORSConfig([]string{"https://app.example"}), logger.NewNop())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }),
	)

	tests := []struct {
		name        string
		method      string
		origin      string
		wantStatus  int
		wantAllowed string
	}{
		{name: "Allowed origin", method: http.MethodPost, origin: "https://app.example", wantStatus: http.StatusOK, wantAllowed: "https://app.example"},
		{name: "Unknown origin", method: http.MethodPost, origin: "https://evil.example", wantStatus: http.StatusOK, wantAllowed: ""},
		{name: "Preflight", method: http.MethodOptions, origin: "https://app.example", wantStatus: http.StatusNoContent, wantAllowed: "https://app.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/api/matches/m-1/result", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllowed, rec.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
		})
	}
}
