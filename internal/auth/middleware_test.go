package auth

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/civic-kit/civic-issue-service/internal/domain"
	apperrors "github.com/civic-kit/civic-issue-service/pkg/util"
)

type stubUserRepo struct {
	user *domain.User
	err  error
}

func (r *stubUserRepo) Create(context.Context, *domain.User) error { return nil }

func (r *stubUserRepo) GetByID(context.Context, string) (*domain.User, error) {
	if r.err != nil {
		return nil, r.err
	}
	copied := *r.user
	return &copied, nil
}

func (r *stubUserRepo) GetByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func newMiddlewareApp(t *testing.T, users *stubUserRepo) (*fiber.App, *TokenManager) {
	t.Helper()
	tokens := NewTokenManager("test-secret", 15)
	middleware := NewMiddleware(tokens, users)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"code": domainErr.Code})
		},
	})
	app.Get("/whoami", middleware.Handle, func(c *fiber.Ctx) error {
		actor, ok := ActorFromContext(c)
		require.True(t, ok)
		return c.JSON(fiber.Map{"id": actor.ID})
	})
	return app, tokens
}

func TestMiddlewareLoadsActor(t *testing.T) {
	user := &domain.User{ID: "u-1", Name: "Asha", Email: "asha@example.com", Role: domain.RoleCitizen, Active: true}
	app, tokens := newMiddlewareApp(t, &stubUserRepo{user: user})
	token, _, err := tokens.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestMiddlewareRejectsMissingAccount(t *testing.T) {
	// The repository may wrap the no-rows sentinel; the middleware must still
	// answer 401 rather than a server error.
	app, tokens := newMiddlewareApp(t, &stubUserRepo{
		err: fmt.Errorf("load account: %w", pgx.ErrNoRows),
	})
	token, _, err := tokens.GenerateToken("u-gone", domain.RoleCitizen)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRejectsInactiveAccount(t *testing.T) {
	user := &domain.User{ID: "u-2", Name: "Gone", Email: "gone@example.com", Role: domain.RoleCitizen, Active: false}
	app, tokens := newMiddlewareApp(t, &stubUserRepo{user: user})
	token, _, err := tokens.GenerateToken(user.ID, user.Role)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	app, _ := newMiddlewareApp(t, &stubUserRepo{})

	for _, header := range []string{"", "Token abc", "Bearer not-a-jwt"} {
		req := httptest.NewRequest("GET", "/whoami", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		resp, err := app.Test(req)
		require.NoError(t, err)
		require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}
