package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"storefront/internal/auth"
	"storefront/internal/errors"
)

// MessageResponse is returned by mutations that have nothing else to report.
type MessageResponse struct {
	Message string `json:"message"`
}

// errorResponse converts a service error into an echo.HTTPError carrying the
// standard error body. The original error is kept as Internal for logging.
func errorResponse(err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse()).SetInternal(err)
}

// bindJSON decodes the request body into dest and runs struct validation.
func bindJSON(c echo.Context, dest interface{}) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, dest); err != nil {
		return errorResponse(errors.Validation("invalid request body"))
	}
	if err := c.Validate(dest); err != nil {
		return errorResponse(errors.Validation("%s", err.Error()))
	}
	return nil
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, errorResponse(errors.Validation("invalid id %q", c.Param("id")))
	}
	return uint(id), nil
}

// actorEmail returns the email of the caller resolved by the authorization gate.
func actorEmail(c echo.Context) string {
	if user, ok := auth.UserFrom(c); ok {
		return user.Email
	}
	return ""
}

func message(c echo.Context, status int, msg string) error {
	return c.JSON(status, MessageResponse{Message: msg})
}

