package router

import (
	stderrors "errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	"storefront/docs"
	"storefront/internal/auth"
	"storefront/internal/config"
	"storefront/internal/errors"
	"storefront/internal/handler"
	"storefront/internal/metrics"
	"storefront/internal/model"
)

// Handlers groups the HTTP handlers mounted by Register.
type Handlers struct {
	Auth       *handler.AuthHandler
	Categories *handler.CategoryHandler
	Products   *handler.ProductHandler
	Audit      *handler.AuditHandler
	Users      *handler.UserHandler
	Seed       *handler.SeedHandler
}

// Register wires routes and middleware.
func Register(
	e *echo.Echo,
	cfg *config.Config,
	jwtService *auth.JWTService,
	gate *auth.Gate,
	h Handlers,
) {
	e.HTTPErrorHandler = HTTPErrorHandler
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.RequestID())
	e.Use(requestLogger())
	e.Use(metrics.Middleware())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = cfg.SwaggerHost
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", metrics.Handler())
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	if cfg.StorageDriver == "local" && strings.HasPrefix(cfg.StoragePublicURL, "/") {
		e.Static(cfg.StoragePublicURL, cfg.StorageLocalRoot)
	}

	tokenRequired := jwtService.Middleware()
	privileged := []echo.MiddlewareFunc{tokenRequired, gate.Privileged()}

	authGroup := e.Group("/auth")
	var limited []echo.MiddlewareFunc
	if cfg.AuthRateLimit > 0 {
		limited = append(limited, authRateLimiter(cfg.AuthRateLimit, cfg.AuthRateBurst))
	}
	authGroup.POST("/signup", h.Auth.Signup, limited...)
	authGroup.POST("/login", h.Auth.Login, limited...)
	authGroup.GET("/me", h.Auth.Me, tokenRequired, gate.Authenticated())

	// Reads are public; every mutation passes the token check and the live role check.
	e.GET("/categories", h.Categories.ListCategories)
	e.GET("/categories/:id", h.Categories.GetCategory)
	e.POST("/categories", h.Categories.CreateCategory, privileged...)
	e.PUT("/categories/:id", h.Categories.UpdateCategory, privileged...)
	e.DELETE("/categories/:id", h.Categories.DeleteCategory, privileged...)

	e.GET("/products", h.Products.ListProducts)
	e.GET("/products/:id", h.Products.GetProduct)
	e.POST("/products", h.Products.CreateProduct, privileged...)
	e.PUT("/products/:id", h.Products.UpdateProduct, privileged...)
	e.DELETE("/products/:id", h.Products.DeleteProduct, privileged...)
	e.POST("/products/:id/image", h.Products.UploadImage, append(privileged, middleware.BodyLimit("6M"))...)

	adminOnly := []echo.MiddlewareFunc{tokenRequired, gate.Require(model.RoleAdmin)}
	e.GET("/audit-logs", h.Audit.ListAuditLogs, adminOnly...)
	e.GET("/users", h.Users.ListUsers, adminOnly...)
	e.GET("/users/:id", h.Users.GetUser, adminOnly...)
	e.POST("/admin/catalog/import", h.Seed.ImportCatalog, adminOnly...)
}

func authRateLimiter(limit float64, burst int) echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(limit),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
				Error: "too many requests",
				Code:  "RATE_LIMITED",
			})
		},
	})
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			level := slog.LevelInfo
			switch {
			case v.Status >= http.StatusInternalServerError:
				level = slog.LevelError
			case v.Status >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			slog.LogAttrs(c.Request().Context(), level, "request",
				slog.String("request_id", v.RequestID),
				slog.String("method", v.Method),
				slog.String("uri", v.URI),
				slog.Int("status", v.Status),
				slog.Duration("latency", v.Latency),
				slog.String("remote_ip", v.RemoteIP),
			)
			return nil
		},
	})
}

// HTTPErrorHandler renders every error as {"error": ..., "code": ...}.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := renderError(err)
	if status >= http.StatusInternalServerError {
		cause := err
		var he *echo.HTTPError
		if stderrors.As(err, &he) && he.Internal != nil {
			cause = he.Internal
		}
		slog.ErrorContext(c.Request().Context(), "request failed",
			"error", cause,
			"method", c.Request().Method,
			"path", c.Path(),
			"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else {
		err = c.JSON(status, body)
	}
	if err != nil {
		slog.ErrorContext(c.Request().Context(), "write error response", "error", err)
	}
}

func renderError(err error) (int, errors.ErrorResponse) {
	var he *echo.HTTPError
	if stderrors.As(err, &he) {
		switch m := he.Message.(type) {
		case errors.ErrorResponse:
			return he.Code, m
		case string:
			return he.Code, errors.ErrorResponse{Error: m, Code: codeForStatus(he.Code)}
		default:
			return he.Code, errors.ErrorResponse{Error: strings.ToLower(http.StatusText(he.Code)), Code: codeForStatus(he.Code)}
		}
	}

	httpErr := errors.MapErrorToHTTP(err)
	return httpErr.StatusCode, httpErr.ToErrorResponse()
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusForbidden:
		return "FORBIDDEN"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case http.StatusRequestEntityTooLarge:
		return "PAYLOAD_TOO_LARGE"
	case http.StatusUnsupportedMediaType:
		return "UNSUPPORTED_MEDIA_TYPE"
	case http.StatusTooManyRequests:
		return "RATE_LIMITED"
	}
	if status >= http.StatusInternalServerError {
		return "INTERNAL_ERROR"
	}
	return "HTTP_ERROR"
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
