package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/satacare/sata-system/internal/api/middleware"
	"github.com/satacare/sata-system/internal/core/domain"
	"github.com/satacare/sata-system/internal/core/ports"
)

const sessionCookieTTL = 8 * time.Hour

// AuthHandler exposes the authentication and password endpoints.
type AuthHandler struct {
	auth          ports.AuthService
	passwords     ports.PasswordService
	secureCookies bool
}

func NewAuthHandler(auth ports.AuthService, passwords ports.PasswordService, secureCookies bool) *AuthHandler {
	return &AuthHandler{auth: auth, passwords: passwords, secureCookies: secureCookies}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required"`
}

// Login authenticates a user, sets the session and CSRF cookies and returns
// the user projection plus the CSRF value.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  map[string]any
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	result, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}

	h.setSessionCookies(c, result.Token, result.CSRF)
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"user":    result.User,
		"csrf":    result.CSRF,
	})
}

// Logout clears the session and CSRF cookies.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	h.clearSessionCookies(c)
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// Me returns the live user behind the current session. The user is
// re-fetched so role and status changes apply immediately; if the account is
// gone the cookies are cleared and the session is reported invalid.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  map[string]any
// @Failure      401  {object}  map[string]string
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	profile, err := h.auth.CurrentSession(c.Request().Context(), actor.ID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSession) {
			h.clearSessionCookies(c)
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true, "user": profile})
}

// Register creates a new user account.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  map[string]any
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.auth.Register(c.Request().Context(), ports.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	}, actorFromContext(c))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"success": true,
		"data": map[string]any{
			"id": user.ID, "username": user.Username, "email": user.Email, "role": user.Role,
		},
	})
}

// CheckUnique reports whether a username and email are still available.
//
// @Summary      Check username/email availability
// @Tags         auth
// @Produce      json
// @Param        username  query  string  false  "Username to check"
// @Param        email     query  string  false  "Email to check"
// @Success      200  {object}  map[string]any
// @Router       /auth/check-unique [get]
func (h *AuthHandler) CheckUnique(c echo.Context) error {
	usernameAvailable, emailAvailable, err := h.auth.CheckUnique(
		c.Request().Context(), c.QueryParam("username"), c.QueryParam("email"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]bool{
			"usernameAvailable": usernameAvailable,
			"emailAvailable":    emailAvailable,
		},
	})
}

// ForgotPassword starts the password recovery flow. The response is 200 for
// unknown emails too; when no email transport succeeds the raw reset token
// is included so environments without email stay usable.
//
// @Summary      Request password reset
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      forgotPasswordRequest  true  "Account email"
// @Success      200   {object}  map[string]any
// @Failure      400   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c echo.Context) error {
	var req forgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	outcome, err := h.passwords.ForgotPassword(c.Request().Context(), req.Email, actorFromContext(c))
	if err != nil {
		return err
	}

	resp := map[string]any{"success": true}
	if outcome.Token != "" {
		resp["token"] = outcome.Token
	}
	return c.JSON(http.StatusOK, resp)
}

// ResetPassword consumes a reset token and sets a new password.
//
// @Summary      Reset password with token
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      resetPasswordRequest  true  "Reset token and new password"
// @Success      200   {object}  map[string]any
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/reset-password [post]
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.Token == "" || req.NewPassword == "" {
		return domain.ErrMissingFields
	}

	if err := h.passwords.ResetPassword(c.Request().Context(), req.Token, req.NewPassword, actorFromContext(c)); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

// ChangePassword is the authenticated self-service flow requiring proof of
// the current password.
//
// @Summary      Change own password
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      changePasswordRequest  true  "Current and new password"
// @Success      200   {object}  map[string]any
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /auth/change-password [post]
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	actor, err := requireActor(c)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return domain.ErrMissingFields
	}

	if err := h.passwords.ChangePassword(c.Request().Context(), actor.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (h *AuthHandler) setSessionCookies(c echo.Context, token, csrf string) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieAuthToken,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionCookieTTL.Seconds()),
	})
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieCSRFToken,
		Value:    csrf,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(sessionCookieTTL.Seconds()),
	})
}

func (h *AuthHandler) clearSessionCookies(c echo.Context) {
	for _, name := range []string{middleware.CookieAuthToken, middleware.CookieCSRFToken} {
		c.SetCookie(&http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			HttpOnly: name == middleware.CookieAuthToken,
			Secure:   h.secureCookies,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   -1,
		})
	}
}
