package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/cache"
	errs "storefront/internal/errors"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"
	"storefront/internal/storage"
)

// CreateProductInput carries the fields of a new product. Name, Price and
// CategoryID are required; IsAvailable defaults to true when nil.
type CreateProductInput struct {
	Name        string
	Description *string
	Price       *decimal.Decimal
	CategoryID  *uint
	ImageURL    *string
	IsAvailable *bool
}

// UpdateProductInput is a partial update; only fields that are Set are applied.
type UpdateProductInput struct {
	Name        model.Optional[string]          `json:"name" swaggertype:"string"`
	Description model.Optional[string]          `json:"description" swaggertype:"string"`
	Price       model.Optional[decimal.Decimal] `json:"price" swaggertype:"number"`
	IsAvailable model.Optional[bool]            `json:"is_available" swaggertype:"boolean"`
	ImageURL    model.Optional[string]          `json:"image_url" swaggertype:"string"`
}

// ImageUpload is an uploaded product image.
type ImageUpload struct {
	Filename    string
	ContentType string
	Body        io.Reader
}

// ProductService manages catalog products.
type ProductService interface {
	Create(ctx context.Context, actor string, in CreateProductInput) (*model.Product, error)
	Get(ctx context.Context, id uint) (*model.Product, error)
	List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error)
	Update(ctx context.Context, actor string, id uint, in UpdateProductInput) (*model.Product, error)
	Delete(ctx context.Context, actor string, id uint) error
	SetImage(ctx context.Context, actor string, id uint, upload ImageUpload) (*model.Product, error)
}

type productService struct {
	repos    *repository.Repositories
	tx       repository.Transactor
	cache    *cache.Client
	cacheTTL time.Duration
	disk     storage.Disk
}

// NewProductService creates a product service. disk may be nil when image
// uploads are not configured.
func NewProductService(repos *repository.Repositories, tx repository.Transactor, cache *cache.Client, cacheTTL time.Duration, disk storage.Disk) ProductService {
	return &productService{
		repos:    repos,
		tx:       tx,
		cache:    cache,
		cacheTTL: cacheTTL,
		disk:     disk,
	}
}

// Create stores a new product under an existing category.
func (s *productService) Create(ctx context.Context, actor string, in CreateProductInput) (*model.Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Price == nil || in.CategoryID == nil {
		return nil, errs.Validation("missing required fields")
	}
	if in.Price.IsNegative() {
		return nil, errs.ErrInvalidPrice
	}

	available := true
	if in.IsAvailable != nil {
		available = *in.IsAvailable
	}
	product := &model.Product{
		Name:        name,
		Description: in.Description,
		Price:       *in.Price,
		CategoryID:  in.CategoryID,
		ImageURL:    in.ImageURL,
		IsAvailable: available,
	}

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if _, err := repos.Categories.FindByID(ctx, *in.CategoryID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrInvalidCategory
			}
			return fmt.Errorf("find category: %w", err)
		}
		if err := repos.Products.Create(ctx, product); err != nil {
			return fmt.Errorf("create product: %w", err)
		}
		return recordAudit(ctx, repos, model.EntityProduct, product.ID, model.AuditActionCreate, actor, nil, product)
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, productListKey)
	return product, nil
}

// Get returns a product by ID, reading through the cache.
func (s *productService) Get(ctx context.Context, id uint) (*model.Product, error) {
	var cached model.Product
	if hit := s.cache.GetJSON(ctx, productCacheKey(id), &cached); hit {
		metrics.ObserveCache(true)
		return &cached, nil
	}
	metrics.ObserveCache(false)

	product, err := findProduct(ctx, s.repos, id)
	if err != nil {
		return nil, err
	}

	s.cache.SetJSON(ctx, productCacheKey(id), product, s.cacheTTL)
	return product, nil
}

// List returns products ordered by ID. Only the unfiltered listing is cached.
func (s *productService) List(ctx context.Context, filter repository.ProductFilter) ([]model.Product, error) {
	cacheable := filter.CategoryID == nil
	if cacheable {
		var cached []model.Product
		if hit := s.cache.GetJSON(ctx, productListKey, &cached); hit && cached != nil {
			metrics.ObserveCache(true)
			return cached, nil
		}
		metrics.ObserveCache(false)
	}

	products, err := s.repos.Products.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}

	if cacheable {
		s.cache.SetJSON(ctx, productListKey, products, s.cacheTTL)
	}
	return products, nil
}

// Update applies the fields present in in. Explicit nulls clear description
// and image_url and are rejected for name, price and is_available.
func (s *productService) Update(ctx context.Context, actor string, id uint, in UpdateProductInput) (*model.Product, error) {
	var updated *model.Product
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		product, err := findProduct(ctx, repos, id)
		if err != nil {
			return err
		}
		before := *product

		if err := applyProductUpdate(product, in); err != nil {
			return err
		}

		if err := repos.Products.Update(ctx, product); err != nil {
			return fmt.Errorf("update product: %w", err)
		}
		updated = product
		return recordAudit(ctx, repos, model.EntityProduct, id, model.AuditActionUpdate, actor, before, product)
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, productCacheKey(id), productListKey)
	return updated, nil
}

func applyProductUpdate(product *model.Product, in UpdateProductInput) error {
	if in.Name.Set {
		name := strings.TrimSpace(in.Name.Value)
		if in.Name.Null || name == "" {
			return errs.Validation("product name must not be empty")
		}
		product.Name = name
	}
	if in.Description.Set {
		product.Description = in.Description.Ptr()
	}
	if in.Price.Set {
		if in.Price.Null {
			return errs.Validation("price must not be null")
		}
		if in.Price.Value.IsNegative() {
			return errs.ErrInvalidPrice
		}
		product.Price = in.Price.Value
	}
	if in.IsAvailable.Set {
		if in.IsAvailable.Null {
			return errs.Validation("is_available must not be null")
		}
		product.IsAvailable = in.IsAvailable.Value
	}
	if in.ImageURL.Set {
		product.ImageURL = in.ImageURL.Ptr()
	}
	return nil
}

// Delete removes a product.
func (s *productService) Delete(ctx context.Context, actor string, id uint) error {
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		product, err := findProduct(ctx, repos, id)
		if err != nil {
			return err
		}
		if err := repos.Products.Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrProductNotFound
			}
			return fmt.Errorf("delete product: %w", err)
		}
		return recordAudit(ctx, repos, model.EntityProduct, id, model.AuditActionDelete, actor, product, nil)
	})
	if err != nil {
		return err
	}

	_ = s.cache.Delete(ctx, productCacheKey(id), productListKey)
	return nil
}

// SetImage stores an uploaded image and points the product's image_url at it.
// The stored object is removed again if the product update fails.
func (s *productService) SetImage(ctx context.Context, actor string, id uint, upload ImageUpload) (*model.Product, error) {
	if s.disk == nil {
		return nil, errors.New("image storage is not configured")
	}
	if !strings.HasPrefix(upload.ContentType, "image/") {
		return nil, errs.Validation("file must be an image")
	}
	if _, err := findProduct(ctx, s.repos, id); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("products/%d/%s%s", id, uuid.NewString(), strings.ToLower(path.Ext(upload.Filename)))
	if err := s.disk.Put(ctx, key, upload.Body, upload.ContentType); err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}
	url := s.disk.URL(key)

	var updated *model.Product
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		product, err := findProduct(ctx, repos, id)
		if err != nil {
			return err
		}
		before := *product
		product.ImageURL = &url
		if err := repos.Products.Update(ctx, product); err != nil {
			return fmt.Errorf("update product image: %w", err)
		}
		updated = product
		return recordAudit(ctx, repos, model.EntityProduct, id, model.AuditActionUpdate, actor, before, product)
	})
	if err != nil {
		if derr := s.disk.Delete(ctx, key); derr != nil {
			slog.WarnContext(ctx, "failed to remove orphaned image", "key", key, "error", derr)
		}
		return nil, err
	}

	_ = s.cache.Delete(ctx, productCacheKey(id), productListKey)
	return updated, nil
}

func findProduct(ctx context.Context, repos *repository.Repositories, id uint) (*model.Product, error) {
	product, err := repos.Products.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrProductNotFound
		}
		return nil, fmt.Errorf("find product: %w", err)
	}
	return product, nil
}
