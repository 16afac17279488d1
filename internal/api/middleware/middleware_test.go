package middleware_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daap14/stencil/internal/api/middleware"
	"github.com/daap14/stencil/internal/auth"
)

const testBcryptCost = 4 // low cost for fast tests

// memoryUserRepo holds users in a map; FindByPrefix excludes revoked users
// like the database implementation.
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]auth.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uuid.UUID]auth.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, u *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u.ID = uuid.New()
	r.users[u.ID] = *u
	return nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, auth.ErrUserNotFound
	}
	return &u, nil
}

func (r *memoryUserRepo) FindByPrefix(_ context.Context, prefix string) ([]auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []auth.User
	for _, u := range r.users {
		if u.ApiKeyPrefix == prefix && u.RevokedAt == nil {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *memoryUserRepo) List(_ context.Context) ([]auth.User, error) { return nil, nil }

func (r *memoryUserRepo) Revoke(_ context.Context, id uuid.UUID) error { return nil }

func (r *memoryUserRepo) CountAll(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

// setupAuthService returns a service with one registered user and that
// user's raw API key.
func setupAuthService(t *testing.T) (*auth.Service, string) {
	t.Helper()

	repo := newMemoryUserRepo()
	svc := auth.NewService(repo, testBcryptCost)

	rawKey, prefix, hash, err := svc.GenerateKey()
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), &auth.User{
		Name:         "operator",
		ApiKeyPrefix: prefix,
		ApiKeyHash:   hash,
	}))

	return svc, rawKey
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func parseErrorResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var env map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestAuth_MissingKey(t *testing.T) {
	t.Parallel()

	svc, _ := setupAuthService(t)
	handler := middleware.Auth(svc)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := parseErrorResponse(t, w)
	apiErr := env["error"].(map[string]any)
	assert.Equal(t, "UNAUTHORIZED", apiErr["code"])
	assert.Equal(t, "API key is required", apiErr["message"])
}

func TestAuth_InvalidKey(t *testing.T) {
	t.Parallel()

	svc, _ := setupAuthService(t)
	handler := middleware.Auth(svc)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", "stn_invalidkeyvalue12345678901234567890")
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env := parseErrorResponse(t, w)
	apiErr := env["error"].(map[string]any)
	assert.Equal(t, "UNAUTHORIZED", apiErr["code"])
	assert.Equal(t, "Invalid or revoked API key", apiErr["message"])
}

func TestAuth_ValidKey(t *testing.T) {
	t.Parallel()

	svc, rawKey := setupAuthService(t)

	var identity *auth.Identity
	handler := middleware.Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity = middleware.GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-API-Key", rawKey)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, identity)
	assert.Equal(t, "operator", identity.UserName)
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	t.Parallel()

	var capturedID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.NotEmpty(t, capturedID)
	_, err := uuid.Parse(capturedID)
	assert.NoError(t, err, "generated request ID should be a valid UUID")
	assert.Equal(t, capturedID, w.Header().Get("X-Request-ID"))
}

func TestRequestID_UsesExistingHeader(t *testing.T) {
	t.Parallel()

	existingID := "my-existing-request-id"
	var capturedID string
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedID = middleware.GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", existingID)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, existingID, capturedID)
	assert.Equal(t, existingID, w.Header().Get("X-Request-ID"))
}

func TestGetRequestID_EmptyContext(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", middleware.GetRequestID(req.Context()))
}

func TestRecovery_RecoversFromPanic(t *testing.T) {
	t.Parallel()

	handler := middleware.Recovery(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something went wrong")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	env := parseErrorResponse(t, w)
	apiErr := env["error"].(map[string]any)
	assert.Equal(t, "INTERNAL_ERROR", apiErr["code"])
}

func TestRecovery_PassesThroughNormally(t *testing.T) {
	t.Parallel()

	handler := middleware.Recovery(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
