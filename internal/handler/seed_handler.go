package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"storefront/internal/errors"
	"storefront/internal/service"
)

// SeedHandler handles catalog import endpoints.
type SeedHandler struct {
	seeder *service.CatalogSeeder
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(seeder *service.CatalogSeeder) *SeedHandler {
	return &SeedHandler{seeder: seeder}
}

// ImportCatalogResponse represents the import response.
type ImportCatalogResponse struct {
	Message string             `json:"message"`
	Report  service.SeedReport `json:"report"`
}

// ImportCatalog godoc
// @Summary Import a catalog document
// @Description Upserts categories by name and their products by name within the category. Admin only.
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body []service.CatalogSeedCategory true "Catalog document"
// @Success 200 {object} ImportCatalogResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /admin/catalog/import [post]
func (h *SeedHandler) ImportCatalog(c echo.Context) error {
	var doc []service.CatalogSeedCategory
	if err := (&echo.DefaultBinder{}).BindBody(c, &doc); err != nil {
		return errorResponse(errors.Validation("invalid catalog document"))
	}
	if len(doc) == 0 {
		return errorResponse(errors.Validation("catalog document is empty"))
	}

	report, err := h.seeder.Seed(c.Request().Context(), doc)
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, ImportCatalogResponse{
		Message: "Catalog imported successfully",
		Report:  report,
	})
}
