package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/foodorder/internal/identity"
	"github.com/example/foodorder/internal/logging"
	"github.com/example/foodorder/internal/models"
	"github.com/example/foodorder/internal/services"
	"github.com/example/foodorder/internal/testutil"
)

type stubVerifier struct {
	tokens map[string]*identity.Identity
	err    error
}

func (s stubVerifier) Verify(_ context.Context, token string) (*identity.Identity, error) {
	if s.err != nil {
		return nil, s.err
	}
	if ident, ok := s.tokens[token]; ok {
		return ident, nil
	}
	return nil, identity.ErrInvalidToken
}

func newAuthApp(t *testing.T, verifier identity.Verifier) (*fiber.App, *services.ProfileService) {
	t.Helper()

	profiles := services.NewProfileService(testutil.NewDB(t), logging.Discard())
	app := fiber.New()
	app.Get("/me", AuthMiddleware(verifier, profiles), func(c *fiber.Ctx) error {
		profile, ok := GetCurrentProfile(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		id, _ := GetCurrentUserID(c)
		return c.JSON(fiber.Map{"id": id, "role": profile.Role})
	})
	app.Get("/admin", AuthMiddleware(verifier, profiles), AdminOnly(), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, profiles
}

func request(t *testing.T, app *fiber.App, path, authorization string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestAuthMiddleware(t *testing.T) {
	customer := &identity.Identity{ID: uuid.New(), Email: "cust@example.com"}
	app, profiles := newAuthApp(t, stubVerifier{tokens: map[string]*identity.Identity{"good": customer}})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"empty token", "Bearer ", http.StatusUnauthorized},
		{"unknown token", "Bearer bad", http.StatusUnauthorized},
		{"valid token", "Bearer good", http.StatusOK},
		{"scheme is case insensitive", "bearer good", http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := request(t, app, "/me", tc.header)
			assert.Equal(t, tc.want, resp.StatusCode)
		})
	}

	profile, err := profiles.Get(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleCustomer, profile.Role)
}

func TestAuthMiddlewareProviderFailure(t *testing.T) {
	app, _ := newAuthApp(t, stubVerifier{err: errors.New("connection refused")})

	resp := request(t, app, "/me", "Bearer anything")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestAdminOnly(t *testing.T) {
	customer := &identity.Identity{ID: uuid.New(), Email: "c@example.com"}
	admin := &identity.Identity{ID: uuid.New(), Email: "a@example.com"}
	app, profiles := newAuthApp(t, stubVerifier{tokens: map[string]*identity.Identity{
		"customer": customer,
		"admin":    admin,
	}})

	_, err := profiles.GetOrCreate(context.Background(), admin)
	require.NoError(t, err)
	role := models.RoleAdmin
	_, err = profiles.Update(context.Background(), admin.ID, services.UpdateProfileInput{Role: &role})
	require.NoError(t, err)

	assert.Equal(t, http.StatusForbidden, request(t, app, "/admin", "Bearer customer").StatusCode)
	assert.Equal(t, http.StatusNoContent, request(t, app, "/admin", "Bearer admin").StatusCode)

	bare := fiber.New()
	bare.Get("/admin", AdminOnly(), func(c *fiber.Ctx) error { return nil })
	assert.Equal(t, http.StatusUnauthorized, request(t, bare, "/admin", "").StatusCode)
}

func TestRateLimit(t *testing.T) {
	handler, err := RateLimit("2-M")
	require.NoError(t, err)

	app := fiber.New()
	app.Use(handler)
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("ok") })

	first := request(t, app, "/", "")
	assert.Equal(t, http.StatusOK, first.StatusCode)
	assert.Equal(t, "2", first.Header.Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header.Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, request(t, app, "/", "").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, request(t, app, "/", "").StatusCode)

	_, err = RateLimit("often")
	assert.Error(t, err)
}
