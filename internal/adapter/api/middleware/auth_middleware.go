package middleware

import (
	"context"
	"strings"

	"github.com/labstack/echo/v4"

	"campusmart/internal/infrastructure/firebase"
	"campusmart/pkg/errors"
	"campusmart/pkg/response"
)

// Context keys set by Authenticate.
const (
	ContextUID     = "uid"
	ContextEmail   = "email"
	ContextName    = "name"
	ContextPicture = "picture"
)

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*firebase.Identity, error)
}

type AuthMiddleware struct {
	verifier TokenVerifier
}

func NewAuthMiddleware(verifier TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
	}
}

func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, errors.Unauthorized("Authorization header is required", nil))
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return response.Error(c, errors.Unauthorized("Invalid authorization format", nil))
		}

		if err := m.verify(c, parts[1]); err != nil {
			return response.Error(c, err)
		}
		return next(c)
	}
}

// AuthenticateQuery reads the token from the "token" query parameter, for clients that
// cannot set headers on a websocket upgrade. A bearer header still wins.
func (m *AuthMiddleware) AuthenticateQuery(next echo.HandlerFunc) echo.HandlerFunc {
	header := m.Authenticate(next)
	return func(c echo.Context) error {
		if c.Request().Header.Get("Authorization") != "" {
			return header(c)
		}
		token := c.QueryParam("token")
		if token == "" {
			return response.Error(c, errors.Unauthorized("Authentication required", nil))
		}
		if err := m.verify(c, token); err != nil {
			return response.Error(c, err)
		}
		return next(c)
	}
}

func (m *AuthMiddleware) verify(c echo.Context, token string) error {
	id, err := m.verifier.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("Invalid or expired token", err)
	}

	c.Set(ContextUID, id.UID)
	c.Set(ContextEmail, id.Email)
	c.Set(ContextName, id.Name)
	c.Set(ContextPicture, id.Picture)
	return nil
}

// UserID returns the authenticated caller, or "" outside Authenticate.
func UserID(c echo.Context) string {
	uid, _ := c.Get(ContextUID).(string)
	return uid
}
