package handler

import (
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"storefront/internal/errors"
	"storefront/internal/repository"
	"storefront/internal/service"
)

// MaxImageSize is the largest accepted product image upload.
const MaxImageSize = 5 << 20

// ProductHandler handles product endpoints.
type ProductHandler struct {
	productService service.ProductService
}

// NewProductHandler creates a new product handler.
func NewProductHandler(productService service.ProductService) *ProductHandler {
	return &ProductHandler{productService: productService}
}

// CreateProductRequest represents a product creation request.
type CreateProductRequest struct {
	Name        string           `json:"name" validate:"required"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price" validate:"required" swaggertype:"number" example:"9.99"`
	CategoryID  *uint            `json:"category_id" validate:"required"`
	ImageURL    *string          `json:"image_url"`
	IsAvailable *bool            `json:"is_available"`
}

// CreateProductResponse is returned after a product is created.
type CreateProductResponse struct {
	Message   string `json:"message"`
	ProductID uint   `json:"product_id"`
}

// ImageResponse is returned after a product image is uploaded.
type ImageResponse struct {
	Message  string `json:"message"`
	ImageURL string `json:"image_url"`
}

// CreateProduct godoc
// @Summary Create a product
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProductRequest true "Product"
// @Success 201 {object} CreateProductResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /products [post]
func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req CreateProductRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	product, err := h.productService.Create(c.Request().Context(), actorEmail(c), service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		CategoryID:  req.CategoryID,
		ImageURL:    req.ImageURL,
		IsAvailable: req.IsAvailable,
	})
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusCreated, CreateProductResponse{
		Message:   "Product created successfully",
		ProductID: product.ID,
	})
}

// ListProducts godoc
// @Summary List products
// @Tags products
// @Produce json
// @Param category_id query int false "Only products of this category"
// @Success 200 {array} model.Product
// @Failure 400 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /products [get]
func (h *ProductHandler) ListProducts(c echo.Context) error {
	var filter repository.ProductFilter
	if raw := c.QueryParam("category_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return errorResponse(errors.Validation("invalid category_id %q", raw))
		}
		categoryID := uint(id)
		filter.CategoryID = &categoryID
	}

	products, err := h.productService.List(c.Request().Context(), filter)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, products)
}

// GetProduct godoc
// @Summary Get a product
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} model.Product
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id} [get]
func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	product, err := h.productService.Get(c.Request().Context(), id)
	if err != nil {
		return errorResponse(err)
	}
	return c.JSON(http.StatusOK, product)
}

// UpdateProduct godoc
// @Summary Update a product
// @Description Only the keys present in the body are changed. null clears description and image_url.
// @Tags products
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param request body service.UpdateProductInput true "Fields to change"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id} [put]
func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	var req service.UpdateProductInput
	if err := bindJSON(c, &req); err != nil {
		return err
	}

	if _, err := h.productService.Update(c.Request().Context(), actorEmail(c), id, req); err != nil {
		return errorResponse(err)
	}
	return message(c, http.StatusOK, "Product updated successfully")
}

// DeleteProduct godoc
// @Summary Delete a product
// @Tags products
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Success 200 {object} MessageResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id} [delete]
func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	if err := h.productService.Delete(c.Request().Context(), actorEmail(c), id); err != nil {
		return errorResponse(err)
	}
	return message(c, http.StatusOK, "Product deleted successfully")
}

// UploadImage godoc
// @Summary Upload a product image
// @Tags products
// @Accept mpfd
// @Produce json
// @Security BearerAuth
// @Param id path int true "Product ID"
// @Param image formData file true "Image file, at most 5 MiB"
// @Success 200 {object} ImageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /products/{id}/image [post]
func (h *ProductHandler) UploadImage(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("image")
	if err != nil {
		return errorResponse(errors.Validation("multipart field \"image\" is required"))
	}
	if file.Size > MaxImageSize {
		return errorResponse(errors.Validation("image exceeds %d bytes", MaxImageSize))
	}

	contentType := file.Header.Get(echo.HeaderContentType)
	if contentType == "" || contentType == echo.MIMEOctetStream {
		contentType = mime.TypeByExtension(filepath.Ext(file.Filename))
	}

	src, err := file.Open()
	if err != nil {
		return errorResponse(err)
	}
	defer src.Close()

	product, err := h.productService.SetImage(c.Request().Context(), actorEmail(c), id, service.ImageUpload{
		Filename:    file.Filename,
		ContentType: contentType,
		Body:        src,
	})
	if err != nil {
		return errorResponse(err)
	}

	return c.JSON(http.StatusOK, ImageResponse{
		Message:  "Product image updated successfully",
		ImageURL: *product.ImageURL,
	})
}
