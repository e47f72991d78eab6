package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"storefront/internal/cache"
	errs "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// SeedActor is recorded as the actor of audit entries written by the seeder.
const SeedActor = "seed"

// CatalogSeedCategory is one category of a seed document.
type CatalogSeedCategory struct {
	Name        string               `json:"name"`
	Description *string              `json:"description"`
	Products    []CatalogSeedProduct `json:"products"`
}

// CatalogSeedProduct is one product of a seed document.
type CatalogSeedProduct struct {
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url"`
	IsAvailable *bool           `json:"is_available"`
}

// SeedReport counts what a seed run changed.
type SeedReport struct {
	CategoriesCreated int `json:"categories_created"`
	CategoriesUpdated int `json:"categories_updated"`
	ProductsCreated   int `json:"products_created"`
	ProductsUpdated   int `json:"products_updated"`
}

func (r SeedReport) changed() bool {
	return r != SeedReport{}
}

// seedRun is the state of one Seed call.
type seedRun struct {
	report SeedReport
	stale  []string
}

// CatalogSeeder upserts a catalog document. Categories are matched by name and
// products by name within their category, so running it twice is a no-op.
type CatalogSeeder struct {
	tx    repository.Transactor
	cache *cache.Client
}

// NewCatalogSeeder creates a new catalog seeder.
func NewCatalogSeeder(tx repository.Transactor) *CatalogSeeder {
	return &CatalogSeeder{tx: tx}
}

// WithCache makes Seed drop the catalog cache entries it made stale.
func (s *CatalogSeeder) WithCache(c *cache.Client) *CatalogSeeder {
	s.cache = c
	return s
}

// Seed applies doc in a single transaction.
func (s *CatalogSeeder) Seed(ctx context.Context, doc []CatalogSeedCategory) (SeedReport, error) {
	var run seedRun
	err := s.tx.WithTransaction(ctx, func(ctx context.Context, repos *repository.Repositories) error {
		run = seedRun{}
		for _, entry := range doc {
			category, err := seedCategory(ctx, repos, entry, &run)
			if err != nil {
				return err
			}
			for _, p := range entry.Products {
				if err := seedProduct(ctx, repos, category.ID, p, &run); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}

	if run.report.changed() {
		_ = s.cache.Delete(ctx, append(run.stale, categoryListKey, productListKey)...)
	}
	return run.report, nil
}

func seedCategory(ctx context.Context, repos *repository.Repositories, entry CatalogSeedCategory, run *seedRun) (*model.Category, error) {
	name := strings.TrimSpace(entry.Name)
	if name == "" {
		return nil, errs.Validation("seed category without a name")
	}

	existing, err := repos.Categories.FindByName(ctx, name)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find category %q: %w", name, err)
	}

	if existing != nil {
		if sameString(existing.Description, entry.Description) {
			return existing, nil
		}
		before := *existing
		existing.Description = entry.Description
		if err := repos.Categories.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("update category %q: %w", name, err)
		}
		run.report.CategoriesUpdated++
		run.stale = append(run.stale, categoryCacheKey(existing.ID))
		return existing, recordAudit(ctx, repos, model.EntityCategory, existing.ID, model.AuditActionUpdate, SeedActor, before, existing)
	}

	category := &model.Category{Name: name, Description: entry.Description}
	if err := repos.Categories.Create(ctx, category); err != nil {
		return nil, fmt.Errorf("create category %q: %w", name, err)
	}
	run.report.CategoriesCreated++
	return category, recordAudit(ctx, repos, model.EntityCategory, category.ID, model.AuditActionCreate, SeedActor, nil, category)
}

func seedProduct(ctx context.Context, repos *repository.Repositories, categoryID uint, p CatalogSeedProduct, run *seedRun) error {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		return errs.Validation("seed product without a name")
	}
	if p.Price == nil {
		return errs.Validation("product %q: missing price", name)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("product %q: %w", name, errs.ErrInvalidPrice)
	}
	available := true
	if p.IsAvailable != nil {
		available = *p.IsAvailable
	}

	existing, err := repos.Products.FindByNameInCategory(ctx, name, categoryID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("find product %q: %w", name, err)
	}

	if existing != nil {
		if existing.Price.Equal(*p.Price) && existing.IsAvailable == available &&
			sameString(existing.Description, p.Description) && sameString(existing.ImageURL, p.ImageURL) {
			return nil
		}
		before := *existing
		existing.Description = p.Description
		existing.Price = *p.Price
		existing.ImageURL = p.ImageURL
		existing.IsAvailable = available
		if err := repos.Products.Update(ctx, existing); err != nil {
			return fmt.Errorf("update product %q: %w", name, err)
		}
		run.report.ProductsUpdated++
		run.stale = append(run.stale, productCacheKey(existing.ID))
		return recordAudit(ctx, repos, model.EntityProduct, existing.ID, model.AuditActionUpdate, SeedActor, before, existing)
	}

	product := &model.Product{
		Name:        name,
		Description: p.Description,
		Price:       *p.Price,
		CategoryID:  &categoryID,
		ImageURL:    p.ImageURL,
		IsAvailable: available,
	}
	if err := repos.Products.Create(ctx, product); err != nil {
		return fmt.Errorf("create product %q: %w", name, err)
	}
	run.report.ProductsCreated++
	return recordAudit(ctx, repos, model.EntityProduct, product.ID, model.AuditActionCreate, SeedActor, nil, product)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
