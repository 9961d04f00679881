package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/cmscrm/api/internal/dto"
	"github.com/cmscrm/api/internal/service"
)

type stubAuthService struct {
	loginResult   dto.LoginResponse
	loginErr      error
	profileResult dto.UserResponse
	profileErr    error
}

func (s *stubAuthService) Login(ctx context.Context, payload dto.LoginRequest) (dto.LoginResponse, error) {
	return s.loginResult, s.loginErr
}

func (s *stubAuthService) Profile(ctx context.Context, userID uint) (dto.UserResponse, error) {
	return s.profileResult, s.profileErr
}

func newAuthTestApp(svc service.AuthService, authenticated bool) *fiber.App {
	app := fiber.New()
	handler := NewAuthHandler(svc, zerolog.Nop(), false)
	handler.Register(app.Group("/api/auth"))
	app.Get("/api/auth/me", func(c *fiber.Ctx) error {
		if authenticated {
			c.Locals("user_id", uint(7))
			c.Locals("username", "kasra")
		}
		return c.Next()
	}, handler.Me)
	return app
}

func loginRequest(t *testing.T, username, password string) *http.Request {
	t.Helper()
	payload, err := json.Marshal(dto.LoginRequest{Username: username, Password: password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(payload))
	req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)
	return req
}

func TestAuthHandlerLoginSuccess(t *testing.T) {
	svc := &stubAuthService{loginResult: dto.LoginResponse{Token: "signed", User: dto.UserResponse{ID: 7, Username: "kasra"}}}
	app := newAuthTestApp(svc, false)

	resp, err := app.Test(loginRequest(t, "kasra", "correct horse"))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decoded := decodeResponse(t, resp)
	require.True(t, decoded.Success)
	require.Equal(t, "Login successful", decoded.Message)
}

func TestAuthHandlerLoginInvalidCredentials(t *testing.T) {
	svc := &stubAuthService{loginErr: service.ErrInvalidCredentials}
	app := newAuthTestApp(svc, false)

	resp, err := app.Test(loginRequest(t, "kasra", "wrong"))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	decoded := decodeResponse(t, resp)
	require.Equal(t, "Invalid username or password", decoded.Message)
}

func TestAuthHandlerLoginInactiveAccount(t *testing.T) {
	svc := &stubAuthService{loginErr: service.ErrAccountInactive}
	app := newAuthTestApp(svc, false)

	resp, err := app.Test(loginRequest(t, "kasra", "correct horse"))
	require.NoError(t, err)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthHandlerMe(t *testing.T) {
	svc := &stubAuthService{profileResult: dto.UserResponse{ID: 7, Username: "kasra"}}
	app := newAuthTestApp(svc, true)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	decoded := decodeResponse(t, resp)
	require.Equal(t, "Profile retrieved successfully", decoded.Message)
}

func TestAuthHandlerMeUnauthenticated(t *testing.T) {
	app := newAuthTestApp(&stubAuthService{}, false)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
