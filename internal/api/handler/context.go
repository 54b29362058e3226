package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/satacare/sata-system/internal/core/ports"
)

// actorFromContext extracts the authenticated actor injected by the Auth
// middleware. Returns nil when the request is anonymous (OptionalAuth).
func actorFromContext(c echo.Context) *ports.Actor {
	id, _ := c.Get("user_id").(string)
	if id == "" {
		return nil
	}
	username, _ := c.Get("username").(string)
	role, _ := c.Get("role").(string)
	return &ports.Actor{ID: id, Username: username, Role: role}
}

// requireActor is the fast-fail variant for routes behind the required Auth
// middleware: an empty user_id means the middleware did not run.
func requireActor(c echo.Context) (*ports.Actor, error) {
	actor := actorFromContext(c)
	if actor == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return actor, nil
}
