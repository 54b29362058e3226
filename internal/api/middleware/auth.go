package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Cookie and header names shared between the auth handlers and middleware.
const (
	CookieAuthToken = "auth_token"
	CookieCSRFToken = "csrf_token"
	HeaderCSRF      = "X-CSRF-Token"
)

type sessionClaims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Auth validates the session token (auth cookie or bearer header) and
// injects the claims into context. Required variant rejects anonymous
// requests; Optional lets them through without claims.
func Auth(jwtSecret string) echo.MiddlewareFunc {
	return auth(jwtSecret, true)
}

// OptionalAuth parses the session token when present but allows anonymous
// requests. Used on forgot-password, where an authenticated actor changes
// the authorization rules but anonymity is legitimate.
func OptionalAuth(jwtSecret string) echo.MiddlewareFunc {
	return auth(jwtSecret, false)
}

func auth(jwtSecret string, required bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := tokenFromRequest(c)
			if token == "" {
				if required {
					return echo.NewHTTPError(http.StatusUnauthorized, "not authenticated")
				}
				return next(c)
			}

			claims := &sessionClaims{}
			tkn, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
				if token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
					return nil, jwt.ErrTokenSignatureInvalid
				}
				return []byte(jwtSecret), nil
			})
			if err != nil || !tkn.Valid {
				if required {
					return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
				}
				return next(c)
			}

			c.Set("user_id", claims.Subject)
			c.Set("username", claims.Username)
			c.Set("role", claims.Role)

			return next(c)
		}
	}
}

// tokenFromRequest prefers the session cookie and falls back to a bearer
// Authorization header for non-browser clients.
func tokenFromRequest(c echo.Context) string {
	if cookie, err := c.Cookie(CookieAuthToken); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := c.Request().Header.Get("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return parts[1]
	}
	return ""
}
