package repository

import (
	"context"

	"gorm.io/gorm"

	"storefront/internal/model"
)

// ProductFilter narrows product listings. Zero value lists everything.
type ProductFilter struct {
	CategoryID *uint
}

// ProductRepository defines product persistence operations.
type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByNameInCategory(ctx context.Context, name string, categoryID uint) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	CountByCategory(ctx context.Context, categoryID uint) (int64, error)
	DeleteByCategory(ctx context.Context, categoryID uint) ([]uint, error)
	ClearCategory(ctx context.Context, categoryID uint) ([]uint, error)
}

type productRepository struct {
	db *gorm.DB
}

// NewProductRepository creates a new product repository.
func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

// Create creates a new product.
func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

// Update writes every column of an existing product.
func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Omit("Category").Save(product).Error
}

// Delete hard-deletes a product by ID.
func (r *productRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.Product{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a product by ID.
func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByNameInCategory finds a product by name within one category.
func (r *productRepository) FindByNameInCategory(ctx context.Context, name string, categoryID uint) (*model.Product, error) {
	var product model.Product
	if err := r.db.WithContext(ctx).
		Where("name = ? AND category_id = ?", name, categoryID).
		First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// List returns products ordered by ID.
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	products := make([]model.Product, 0)
	q := r.db.WithContext(ctx).Order("id asc")
	if filter.CategoryID != nil {
		q = q.Where("category_id = ?", *filter.CategoryID)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// CountByCategory counts the products referencing a category.
func (r *productRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("category_id = ?", categoryID).
		Count(&count).Error
	return count, err
}

// DeleteByCategory deletes every product referencing a category and returns their IDs.
func (r *productRepository) DeleteByCategory(ctx context.Context, categoryID uint) ([]uint, error) {
	ids, err := r.idsInCategory(ctx, categoryID)
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	if err := r.db.WithContext(ctx).Delete(&model.Product{}, ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

// ClearCategory detaches every product from a category and returns their IDs.
func (r *productRepository) ClearCategory(ctx context.Context, categoryID uint) ([]uint, error) {
	ids, err := r.idsInCategory(ctx, categoryID)
	if err != nil || len(ids) == 0 {
		return ids, err
	}
	if err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("id IN ?", ids).
		Update("category_id", nil).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *productRepository) idsInCategory(ctx context.Context, categoryID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&model.Product{}).
		Where("category_id = ?", categoryID).
		Order("id asc").
		Pluck("id", &ids).Error
	return ids, err
}
