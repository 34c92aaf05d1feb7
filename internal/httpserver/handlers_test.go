package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"accounts/backend/internal/config"
	"accounts/backend/internal/infrastructure/memory"
	"accounts/backend/internal/infrastructure/password"
	"accounts/backend/internal/infrastructure/token"
	"accounts/backend/internal/logging"
	authusecase "accounts/backend/internal/usecase/auth"
)

type stubChallenges struct {
	mu    sync.Mutex
	codes map[string]string
}

func (f *stubChallenges) Issue(_ context.Context, phone string) (string, time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes[phone] = "123456"
	return "123456", time.Now().UTC().Add(5 * time.Minute), nil
}

func (f *stubChallenges) Verify(_ context.Context, phone, code string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.codes[phone] == code {
		delete(f.codes, phone)
		return true, nil
	}
	return false, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := authusecase.NewService(
		memory.NewIdentityRepository(),
		password.NewBcryptHasher(4),
		token.NewJWTManager("test-secret", time.Hour, "accounts-test"),
		&stubChallenges{codes: make(map[string]string)},
	)
	cfg := config.Config{
		HTTPPort:       "0",
		AllowedOrigins: []string{"*"},
	}
	return NewServer(cfg, svc, logging.Discard())
}

func doJSON(t *testing.T, srv *Server, method, path, bearer string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeIdentity(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestRegisterLoginScenario(t *testing.T) {
	srv := newTestServer(t)

	// Register A.
	rec := doJSON(t, srv, http.MethodPost, "/register", "", map[string]any{
		"name": "A", "email": "a@x.com", "phone": "+15550001", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decodeIdentity(t, rec)
	assert.Equal(t, "User", created["role"])
	assert.Equal(t, "a@x.com", created["email"])
	assert.NotEmpty(t, created["id"])
	assert.NotEmpty(t, created["token"])
	assert.NotContains(t, rec.Body.String(), "password")

	// Wrong password: 400, generic message.
	rec = doJSON(t, srv, http.MethodPost, "/login", "", map[string]any{
		"email": "a@x.com", "password": "wrong1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Right password: 200 with a token.
	rec = doJSON(t, srv, http.MethodPost, "/login", "", map[string]any{
		"email": "a@x.com", "password": "secret1",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	loggedIn := decodeIdentity(t, rec)
	assert.Equal(t, created["id"], loggedIn["id"])
	assert.NotEmpty(t, loggedIn["token"])
}

func TestRegisterDuplicate(t *testing.T) {
	srv := newTestServer(t)

	payload := map[string]any{
		"name": "A", "email": "a@x.com", "phone": "+15550001", "password": "secret1",
	}
	rec := doJSON(t, srv, http.MethodPost, "/register", "", payload)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/register", "", payload)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCurrentIdentityRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/register", "", map[string]any{
		"name": "A", "email": "a@x.com", "phone": "+15550001", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeIdentity(t, rec)
	bearer, _ := created["token"].(string)

	t.Run("with a valid session", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/admin", bearer, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		me := decodeIdentity(t, rec)
		assert.Equal(t, created["id"], me["id"])
		assert.Empty(t, me["token"])
	})

	t.Run("without a token", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/admin", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("with a garbage token", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/admin", "garbage", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("via the token cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.AddCookie(&http.Cookie{Name: "token", Value: bearer})
		rec := httptest.NewRecorder()
		srv.Router().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestListIdentitiesRoute(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/register", "", map[string]any{
		"name": "A", "email": "a@x.com", "phone": "+15550001", "password": "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	userToken, _ := decodeIdentity(t, rec)["token"].(string)

	rec = doJSON(t, srv, http.MethodPost, "/register", "", map[string]any{
		"name": "Root", "email": "root@x.com", "phone": "+15550002", "password": "secret2", "role": "Admin",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	adminToken, _ := decodeIdentity(t, rec)["token"].(string)

	t.Run("user role is forbidden", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/users", userToken, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin role lists everyone without secrets", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodGet, "/users", adminToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var out []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
		assert.Len(t, out, 2)
		assert.NotContains(t, rec.Body.String(), "password")
	})
}

func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/register", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
