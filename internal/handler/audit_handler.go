package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"storefront/internal/errors"
	"storefront/internal/service"
)

// AuditHandler exposes the catalog audit trail.
type AuditHandler struct {
	auditService service.AuditService
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// ListAuditLogs godoc
// @Summary List catalog audit entries
// @Description Newest first. Admin only.
// @Tags audit
// @Produce json
// @Security BearerAuth
// @Param entity_type query string false "category or product"
// @Param limit query int false "Maximum entries (default 50, max 500)"
// @Success 200 {array} model.AuditLog
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /audit-logs [get]
func (h *AuditHandler) ListAuditLogs(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return errorResponse(errors.Validation("invalid limit %q", raw))
		}
		limit = parsed
	}

	logs, err := h.auditService.List(c.Request().Context(), c.QueryParam("entity_type"), limit)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, logs)
}
