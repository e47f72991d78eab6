package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/auth"
	"storefront/internal/errors"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// SignupRequest represents a user signup request.
type SignupRequest struct {
	Username string `json:"username" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin store_manager customer"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Message string     `json:"message"`
	UserID  uint       `json:"user_id"`
	Role    model.Role `json:"role"`
	Token   string     `json:"token"`
}

// MeResponse describes the caller behind a token.
type MeResponse struct {
	User   *model.User  `json:"user"`
	Claims *auth.Claims `json:"token_claims"`
}

// Signup godoc
// @Summary Register a new user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body SignupRequest true "Signup data"
// @Success 201 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/signup [post]
func (h *AuthHandler) Signup(c echo.Context) error {
	var req SignupRequest
	if err := bindJSON(c, &req); err != nil {
		metrics.ObserveAuth("signup", err, true)
		return err
	}

	result, err := h.authService.Signup(c.Request().Context(), service.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	metrics.ObserveAuth("signup", err, isClientError(err))
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusCreated, AuthResponse{
		Message: "User created successfully",
		UserID:  result.User.ID,
		Role:    result.User.Role,
		Token:   result.Token,
	})
}

// Login godoc
// @Summary Login user
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login credentials"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 429 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindJSON(c, &req); err != nil {
		metrics.ObserveAuth("login", err, true)
		return err
	}

	result, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	metrics.ObserveAuth("login", err, isClientError(err))
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		Message: "Login successful",
		UserID:  result.User.ID,
		Role:    result.User.Role,
		Token:   result.Token,
	})
}

// Me godoc
// @Summary Current user
// @Description Returns the stored user behind the bearer token and the token's claims.
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} MeResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := auth.UserFrom(c)
	if !ok {
		return errorResponse(errors.ErrUnauthenticated)
	}
	claims, _ := auth.ClaimsFrom(c)
	return c.JSON(http.StatusOK, MeResponse{User: user, Claims: claims})
}

func isClientError(err error) bool {
	return err != nil && errors.MapErrorToHTTP(err).StatusCode < http.StatusInternalServerError
}
