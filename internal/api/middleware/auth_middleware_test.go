package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/models"
	"github.com/maheshrc27/socialflow/pkg/utils"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubKeyService struct {
	userID int64
	err    error
	seen   []string
}

func (s *stubKeyService) Create(ctx context.Context, userID int64, name string) (*models.ApiKey, error) {
	return nil, errors.New("not implemented")
}

func (s *stubKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	return nil, errors.New("not implemented")
}

func (s *stubKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	s.seen = append(s.seen, apiKey)
	if s.err != nil {
		return 0, s.err
	}
	return s.userID, nil
}

func (s *stubKeyService) RemoveAPIKey(ctx context.Context, userID, keyID int64) error {
	return errors.New("not implemented")
}

// newProtectedApp mounts the middleware in front of a probe route that
// records the user id resolved for the request.
func newProtectedApp(keys *stubKeyService) (*fiber.App, *string) {
	cfg := config.Config{SecretKey: testSecret, CookieName: "session"}
	m := NewAuthMiddleware(cfg, keys)

	app := fiber.New()
	gotUser := new(string)
	app.Get("/probe", m.AuthMiddleware(), func(c *fiber.Ctx) error {
		*gotUser, _ = c.Locals("user_id").(string)
		return c.SendStatus(fiber.StatusOK)
	})
	return app, gotUser
}

func TestAuthMiddlewareRejectsAnonymous(t *testing.T) {
	app, _ := newProtectedApp(&stubKeyService{userID: 42})

	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, "/probe", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddlewareAcceptsBearerKey(t *testing.T) {
	keys := &stubKeyService{userID: 42}
	app, gotUser := newProtectedApp(keys)

	req := httptest.NewRequest(fiber.MethodGet, "/probe", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer sf_k1")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "42", *gotUser)
	assert.Equal(t, []string{"sf_k1"}, keys.seen)
}

func TestAuthMiddlewareAcceptsAPIKeyHeader(t *testing.T) {
	keys := &stubKeyService{userID: 42}
	app, _ := newProtectedApp(keys)

	req := httptest.NewRequest(fiber.MethodGet, "/probe", nil)
	req.Header.Set("X-API-Key", "sf_k2")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"sf_k2"}, keys.seen)
}

func TestAuthMiddlewareAcceptsQueryKey(t *testing.T) {
	keys := &stubKeyService{userID: 42}
	app, _ := newProtectedApp(keys)

	req := httptest.NewRequest(fiber.MethodGet, "/probe?api_key=sf_k3", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"sf_k3"}, keys.seen)
}

func TestAuthMiddlewareHeaderBeatsQuery(t *testing.T) {
	keys := &stubKeyService{userID: 42}
	app, _ := newProtectedApp(keys)

	req := httptest.NewRequest(fiber.MethodGet, "/probe?api_key=from-query", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer from-bearer")

	_, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, []string{"from-bearer"}, keys.seen)
}

func TestAuthMiddlewareRejectsUnknownKey(t *testing.T) {
	keys := &stubKeyService{err: errors.New("unknown API key")}
	app, _ := newProtectedApp(keys)

	req := httptest.NewRequest(fiber.MethodGet, "/probe", nil)
	req.Header.Set("X-API-Key", "sf_bad")

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddlewareAcceptsSessionCookie(t *testing.T) {
	app, gotUser := newProtectedApp(&stubKeyService{})

	token, err := utils.GenerateToken(testSecret, "42", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "42", *gotUser)
}

func TestAuthMiddlewareRejectsExpiredCookie(t *testing.T) {
	app, _ := newProtectedApp(&stubKeyService{})

	token, err := utils.GenerateToken(testSecret, "42", -time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(fiber.MethodGet, "/probe", nil)
	req.AddCookie(&http.Cookie{Name: "session", Value: token})

	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// The dead cookie is cleared so the browser stops sending it.
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "session=")
}
