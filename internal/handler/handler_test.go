package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"leaguesync/internal/config"
	"leaguesync/internal/container"
	"leaguesync/internal/domain"
	"leaguesync/internal/middleware"
	"leaguesync/internal/repository"
	"leaguesync/pkg/credential"
	"leaguesync/pkg/errors"
	"leaguesync/pkg/logger"
	"leaguesync/pkg/sheets"
)

const (
	adminSecret = "admin-secret"
	category    = "Under 21 M"
	secretA     = "secret-a"
	secretB     = "secret-b"
)

type nopTransport struct{}

func (nopTransport) Send(context.Context, string, string, string, map[string]string) error { return nil }

type testServer struct {
	repos  *repository.Repositories
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	repos := repository.NewMemoryStore().Repositories()
	hasher := credential.NewHasher(bcrypt.MinCost)
	for id, secret := range map[string]string{"team-a": secretA, "team-b": secretB} {
		hash, err := hasher.Hash(secret)
		require.NoError(t, err)
		_, _, err = repos.Teams.Upsert(ctx, &domain.Team{ID: id, Name: id, Category: category, CredentialHash: hash})
		require.NoError(t, err)
	}
	_, err := repos.Matches.UpsertSynced(ctx, &domain.Match{
		ID:             "m-1",
		MatchID:        category + "_Pool A_07A",
		Category:       category,
		SheetName:      "Pool A",
		SpreadsheetRow: 2,
		TeamAID:        "team-a",
		TeamBID:        "team-b",
	})
	require.NoError(t, err)

	cfg := &config.Config{
		Environment:    "test",
		AdminJWTSecret: adminSecret,
		Categories:     []config.Category{{Name: category, SpreadsheetID: "u21"}},
	}
	c := container.Build(cfg, logger.NewNop(), container.Infra{
		Repositories: repos,
		Sheets:       sheets.NewXLSXStore(t.TempDir()),
		Transport:    nopTransport{},
	})
	t.Cleanup(func() { _ = c.Close() })

	return &testServer{repos: repos, router: NewRouter(c)}
}

func (s *testServer) do(t *testing.T, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if admin {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.AdminClaims{
			Role:             "admin",
			RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
		})
		signed, err := token.SignedString([]byte(adminSecret))
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+signed)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errors.ErrorResponse {
	t.Helper()
	var body errors.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return body
}

func TestMatchHandler_SubmitAndConfirm(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/matches/m-1/result",
		`{"team_id":"team-a","credential":"secret-a","score_a":["21","21"],"score_b":["15","18"]}`, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var submitted struct {
		Success bool         `json:"success"`
		Data    domain.Match `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&submitted))
	assert.True(t, submitted.Success)
	assert.Equal(t, domain.ResultTeamA, submitted.Data.Result)

	rec = s.do(t, http.MethodPost, "/api/matches/m-1/confirmation",
		`{"team_id":"team-b","credential":"secret-b","confirm":true}`, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	m, err := s.repos.Matches.GetByID(context.Background(), "m-1")
	require.NoError(t, err)
	assert.True(t, m.FullyConfirmed())
}

func TestMatchHandler_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantType   errors.ErrorType
	}{
		{"malformed body", "/api/matches/m-1/result", `{"team_id":`, http.StatusBadRequest, errors.ErrorTypeInvalidInput},
		{"unknown field", "/api/matches/m-1/result", `{"team":"team-a"}`, http.StatusBadRequest, errors.ErrorTypeInvalidInput},
		{"unknown match", "/api/matches/nope/result", `{"team_id":"team-a","credential":"secret-a","score_a":["21"],"score_b":["3"]}`, http.StatusNotFound, errors.ErrorTypeNotFound},
		{"wrong credential", "/api/matches/m-1/result", `{"team_id":"team-a","credential":"secret-b","score_a":["21"],"score_b":["3"]}`, http.StatusUnauthorized, errors.ErrorTypeUnauthorized},
		{"confirm without submission", "/api/matches/m-1/confirmation", `{"team_id":"team-b","credential":"secret-b","confirm":true}`, http.StatusBadRequest, errors.ErrorTypeInvalidInput},
		{"confirmation without decision", "/api/matches/m-1/confirmation", `{"team_id":"team-b","credential":"secret-b"}`, http.StatusBadRequest, errors.ErrorTypeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, http.MethodPost, tt.path, tt.body, false)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.wantType, body.Error.Type)
			assert.NotEmpty(t, body.Error.RequestID)
		})
	}
}

func TestAdminHandler(t *testing.T) {
	escaped := url.PathEscape(category)

	tests := []struct {
		name       string
		method     string
		path       string
		admin      bool
		wantStatus int
	}{
		{"sync requires a token", http.MethodPost, "/api/admin/categories/" + escaped + "/sync", false, http.StatusUnauthorized},
		{"sync of unknown category", http.MethodPost, "/api/admin/categories/Seniors/sync", true, http.StatusNotFound},
		{"sync of missing spreadsheet", http.MethodPost, "/api/admin/categories/" + escaped + "/sync", true, http.StatusNotFound},
		{"reset tracking", http.MethodDelete, "/api/admin/categories/" + escaped + "/tracking", true, http.StatusOK},
		{"process notifications", http.MethodPost, "/api/admin/notifications/process", true, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(t, tt.method, tt.path, "", tt.admin)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
		})
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var health HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "disabled", health.Checks["redis"])

	rec = s.do(t, http.MethodGet, "/metrics", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = s.do(t, http.MethodGet, "/nowhere", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.ErrorTypeNotFound, decodeError(t, rec).Error.Type)
}
