package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/connectrh/core-auth/internal/api/metrics"
	"github.com/connectrh/core-auth/internal/core/domain"
	"github.com/connectrh/core-auth/internal/core/ports"
)

// StatusMessage is the plain-text body of GET /status.
const StatusMessage = "Core Auth Service OK!"

// AuthHandler serves the internal authentication endpoints used by the BFF.
type AuthHandler struct {
	validator ports.CredentialValidator
	log       zerolog.Logger
}

func NewAuthHandler(validator ports.CredentialValidator, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{validator: validator, log: log}
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type signupRequest struct {
	Name        string `json:"name" validate:"required,max=120"`
	Email       string `json:"email" validate:"required,email"`
	Password    string `json:"password" validate:"required,min=6,maxbytes=72"`
	PhoneNumber string `json:"phoneNumber" validate:"omitempty,max=32"`
}

// loginResponse carries what the BFF needs to mint a token.
type loginResponse struct {
	UserID      string   `json:"userId"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	PhoneNumber string   `json:"phoneNumber"`
	Roles       []string `json:"roles"`
}

type signupResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phoneNumber"`
}

// Status reports that the service is reachable through the gate.
//
// @Summary      Internal status check
// @Tags         internal-auth
// @Produce      plain
// @Security     InternalAPIKey
// @Success      200  {string}  string  "Core Auth Service OK!"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/internal/auth/status [get]
func (h *AuthHandler) Status(c echo.Context) error {
	return c.String(http.StatusOK, StatusMessage)
}

// Login validates credentials and returns the user with its role names.
//
// @Summary      Validate credentials
// @Tags         internal-auth
// @Accept       json
// @Produce      json
// @Security     InternalAPIKey
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  loginResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/internal/auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, ok, err := h.validator.ValidateCredentials(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return err
	}
	if !ok {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		h.requestLog(c).Debug().Msg("login rejected")
		return domain.ErrInvalidCredentials
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return c.JSON(http.StatusOK, loginResponse{
		UserID:      user.ID,
		Name:        user.Name,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
		Roles:       user.RoleNames(),
	})
}

// Signup registers a new account with the default USER role.
//
// @Summary      Register a user
// @Tags         internal-auth
// @Accept       json
// @Produce      json
// @Security     InternalAPIKey
// @Param        body  body      signupRequest  true  "New account"
// @Success      201   {object}  signupResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/internal/auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.validator.CreateUser(c.Request().Context(), ports.CreateUserInput{
		Name:        req.Name,
		Email:       req.Email,
		Password:    req.Password,
		PhoneNumber: req.PhoneNumber,
	})
	if err != nil {
		result := signupResult(err)
		metrics.SignupsTotal.WithLabelValues(result).Inc()
		h.requestLog(c).Info().Str("result", result).Msg("signup rejected")
		return err
	}

	metrics.SignupsTotal.WithLabelValues("created").Inc()
	return c.JSON(http.StatusCreated, signupResponse{
		ID:          user.ID,
		Name:        user.Name,
		Email:       user.Email,
		PhoneNumber: user.PhoneNumber,
	})
}

// requestLog prefers the request-scoped logger installed by the router.
func (h *AuthHandler) requestLog(c echo.Context) *zerolog.Logger {
	if l := zerolog.Ctx(c.Request().Context()); l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &h.log
}

func signupResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrEmailAlreadyRegistered):
		return "duplicate"
	case errors.Is(err, domain.ErrDefaultRoleMissing):
		return "config_error"
	default:
		return "error"
	}
}
