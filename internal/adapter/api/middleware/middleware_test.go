package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealroom/internal/adapter/repository"
	"dealroom/internal/domain/entity"
	"dealroom/internal/infrastructure/auth"
	"dealroom/internal/infrastructure/ratelimit"
	"dealroom/internal/usecase"
)

func ok(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func TestAuthenticateFromHeaderAndQuery(t *testing.T) {
	store := repository.NewMemoryStore()
	require.NoError(t, store.Users().Create(context.Background(), &entity.User{ID: "u1", Name: "Una", Role: entity.RoleBuyer}))

	verifier := auth.NewHMACVerifier("secret", time.Hour)
	token, _, err := verifier.Issue("u1", false)
	require.NoError(t, err)

	mw := NewAuthMiddleware(usecase.NewAuthenticator(verifier, store.Users()))
	e := echo.New()

	var seen *entity.Principal
	handler := mw.Authenticate(func(c echo.Context) error {
		seen, _ = Principal(c)
		return ok(c)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", seen.ID)

	req = httptest.NewRequest(http.MethodGet, "/ws?token="+token, nil)
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderAuthorization, "Token "+token)
	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAdminOnly(t *testing.T) {
	e := echo.New()
	handler := NewAdminMiddleware().AdminOnly(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	SetPrincipal(c, &entity.Principal{ID: "s", Role: entity.RoleSeller})
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = httptest.NewRecorder()
	c = e.NewContext(req, rec)
	SetPrincipal(c, &entity.Principal{ID: "a", Role: entity.RoleAdmin})
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(map[string]ratelimit.Policy{
		"api": {Every: time.Hour, Burst: 1},
	})
	e := echo.New()
	handler := RateLimit(limiter, "api")(ok)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	require.NoError(t, handler(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
}
