package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"storefront/internal/cache"
	"storefront/internal/config"
	errs "storefront/internal/errors"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/repository"
)

const (
	categoryListKey = "catalog:categories"
	productListKey  = "catalog:products"
)

func categoryCacheKey(id uint) string {
	return fmt.Sprintf("catalog:category:%d", id)
}

func productCacheKey(id uint) string {
	return fmt.Sprintf("catalog:product:%d", id)
}

// CreateCategoryInput carries the fields of a new category.
type CreateCategoryInput struct {
	Name        string
	Description *string
}

// UpdateCategoryInput is a partial update; only fields that are Set are applied.
type UpdateCategoryInput struct {
	Name        model.Optional[string] `json:"name" swaggertype:"string"`
	Description model.Optional[string] `json:"description" swaggertype:"string"`
}

// CategoryService manages product categories.
type CategoryService interface {
	Create(ctx context.Context, actor string, in CreateCategoryInput) (*model.Category, error)
	Get(ctx context.Context, id uint) (*model.Category, error)
	List(ctx context.Context) ([]model.Category, error)
	Update(ctx context.Context, actor string, id uint, in UpdateCategoryInput) (*model.Category, error)
	Delete(ctx context.Context, actor string, id uint) error
}

type categoryService struct {
	repos        *repository.Repositories
	tx           repository.Transactor
	cache        *cache.Client
	cacheTTL     time.Duration
	deletePolicy string
}

// NewCategoryService creates a category service. deletePolicy is one of the
// config.Delete* constants and decides what happens to products of a deleted category.
func NewCategoryService(repos *repository.Repositories, tx repository.Transactor, cache *cache.Client, cacheTTL time.Duration, deletePolicy string) CategoryService {
	if deletePolicy == "" {
		deletePolicy = config.DeleteRestrict
	}
	return &categoryService{
		repos:        repos,
		tx:           tx,
		cache:        cache,
		cacheTTL:     cacheTTL,
		deletePolicy: deletePolicy,
	}
}

// Create stores a new category with a unique name.
func (s *categoryService) Create(ctx context.Context, actor string, in CreateCategoryInput) (*model.Category, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, errs.Validation("missing category name")
	}

	category := &model.Category{Name: name, Description: in.Description}
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		if err := ensureCategoryNameFree(ctx, repos, name, 0); err != nil {
			return err
		}
		if err := repos.Categories.Create(ctx, category); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.ErrCategoryExists
			}
			return fmt.Errorf("create category: %w", err)
		}
		return recordAudit(ctx, repos, model.EntityCategory, category.ID, model.AuditActionCreate, actor, nil, category)
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, categoryListKey)
	return category, nil
}

// Get returns a category by ID, reading through the cache.
func (s *categoryService) Get(ctx context.Context, id uint) (*model.Category, error) {
	var cached model.Category
	if hit := s.cache.GetJSON(ctx, categoryCacheKey(id), &cached); hit {
		metrics.ObserveCache(true)
		return &cached, nil
	}
	metrics.ObserveCache(false)

	category, err := s.repos.Categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}

	s.cache.SetJSON(ctx, categoryCacheKey(id), category, s.cacheTTL)
	return category, nil
}

// List returns every category ordered by ID.
func (s *categoryService) List(ctx context.Context) ([]model.Category, error) {
	var cached []model.Category
	if hit := s.cache.GetJSON(ctx, categoryListKey, &cached); hit && cached != nil {
		metrics.ObserveCache(true)
		return cached, nil
	}
	metrics.ObserveCache(false)

	categories, err := s.repos.Categories.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}

	s.cache.SetJSON(ctx, categoryListKey, categories, s.cacheTTL)
	return categories, nil
}

// Update applies the fields present in in. A null description clears it; a
// null or empty name is rejected.
func (s *categoryService) Update(ctx context.Context, actor string, id uint, in UpdateCategoryInput) (*model.Category, error) {
	var updated *model.Category
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		category, err := findCategory(ctx, repos, id)
		if err != nil {
			return err
		}
		before := *category

		if in.Name.Set {
			name := strings.TrimSpace(in.Name.Value)
			if in.Name.Null || name == "" {
				return errs.Validation("category name must not be empty")
			}
			if name != category.Name {
				if err := ensureCategoryNameFree(ctx, repos, name, id); err != nil {
					return err
				}
			}
			category.Name = name
		}
		if in.Description.Set {
			category.Description = in.Description.Ptr()
		}

		if err := repos.Categories.Update(ctx, category); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return errs.ErrCategoryExists
			}
			return fmt.Errorf("update category: %w", err)
		}
		updated = category
		return recordAudit(ctx, repos, model.EntityCategory, id, model.AuditActionUpdate, actor, before, category)
	})
	if err != nil {
		return nil, err
	}

	_ = s.cache.Delete(ctx, categoryCacheKey(id), categoryListKey)
	return updated, nil
}

// Delete removes a category. Products that reference it are handled by the
// configured delete policy inside the same transaction.
func (s *categoryService) Delete(ctx context.Context, actor string, id uint) error {
	var touched []uint
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		category, err := findCategory(ctx, repos, id)
		if err != nil {
			return err
		}

		switch s.deletePolicy {
		case config.DeleteCascade:
			doomed, err := repos.Products.List(ctx, repository.ProductFilter{CategoryID: &id})
			if err != nil {
				return fmt.Errorf("load category products: %w", err)
			}
			snapshots := make(map[uint]model.Product, len(doomed))
			for _, p := range doomed {
				snapshots[p.ID] = p
			}

			touched, err = repos.Products.DeleteByCategory(ctx, id)
			if err != nil {
				return fmt.Errorf("delete category products: %w", err)
			}
			for _, pid := range touched {
				var before any
				if p, ok := snapshots[pid]; ok {
					before = p
				}
				if err := recordAudit(ctx, repos, model.EntityProduct, pid, model.AuditActionDelete, actor, before, nil); err != nil {
					return err
				}
			}
		case config.DeleteNullify:
			touched, err = repos.Products.ClearCategory(ctx, id)
			if err != nil {
				return fmt.Errorf("detach category products: %w", err)
			}
			for _, pid := range touched {
				if err := recordAudit(ctx, repos, model.EntityProduct, pid, model.AuditActionUpdate, actor,
					map[string]any{"category_id": id}, map[string]any{"category_id": nil}); err != nil {
					return err
				}
			}
		default:
			count, err := repos.Products.CountByCategory(ctx, id)
			if err != nil {
				return fmt.Errorf("count category products: %w", err)
			}
			if count > 0 {
				return errs.ErrCategoryInUse
			}
		}

		if err := repos.Categories.Delete(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.ErrCategoryNotFound
			}
			return fmt.Errorf("delete category: %w", err)
		}
		return recordAudit(ctx, repos, model.EntityCategory, id, model.AuditActionDelete, actor, category, nil)
	})
	if err != nil {
		return err
	}

	keys := []string{categoryCacheKey(id), categoryListKey}
	if len(touched) > 0 {
		keys = append(keys, productListKey)
		for _, pid := range touched {
			keys = append(keys, productCacheKey(pid))
		}
	}
	_ = s.cache.Delete(ctx, keys...)
	return nil
}

func findCategory(ctx context.Context, repos *repository.Repositories, id uint) (*model.Category, error) {
	category, err := repos.Categories.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrCategoryNotFound
		}
		return nil, fmt.Errorf("find category: %w", err)
	}
	return category, nil
}

// ensureCategoryNameFree fails with ErrCategoryExists when another category
// already uses name. selfID is excluded so a category may keep its own name.
func ensureCategoryNameFree(ctx context.Context, repos *repository.Repositories, name string, selfID uint) error {
	existing, err := repos.Categories.FindByName(ctx, name)
	if err == nil && existing != nil && existing.ID != selfID {
		return errs.ErrCategoryExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("check category name: %w", err)
	}
	return nil
}
