package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"storefront/internal/db"
	"storefront/internal/model"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := db.Open("sqlite", ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(gormDB))
	return gormDB
}

func strPtr(s string) *string { return &s }

func TestUserRepository_DuplicateEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &model.User{Username: "ann", Email: "ann@example.com", PasswordHash: "x", Role: model.RoleCustomer}))
	err := repo.Create(ctx, &model.User{Username: "other", Email: "ann@example.com", PasswordHash: "y", Role: model.RoleAdmin})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	found, err := repo.FindByEmail(ctx, "ann@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ann", found.Username)

	_, err = repo.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCategoryRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	repo := NewCategoryRepository(newTestDB(t))

	drinks := &model.Category{Name: "Drinks", Description: strPtr("cold ones")}
	require.NoError(t, repo.Create(ctx, drinks))
	require.NoError(t, repo.Create(ctx, &model.Category{Name: "Snacks"}))
	assert.NotZero(t, drinks.ID)

	err := repo.Create(ctx, &model.Category{Name: "Drinks"})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Drinks", list[0].Name)
	assert.Equal(t, "Snacks", list[1].Name)

	drinks.Description = nil
	require.NoError(t, repo.Update(ctx, drinks))
	got, err := repo.FindByID(ctx, drinks.ID)
	require.NoError(t, err)
	assert.Nil(t, got.Description)

	byName, err := repo.FindByName(ctx, "Snacks")
	require.NoError(t, err)
	assert.Equal(t, list[1].ID, byName.ID)

	require.NoError(t, repo.Delete(ctx, drinks.ID))
	assert.ErrorIs(t, repo.Delete(ctx, drinks.ID), gorm.ErrRecordNotFound)
	_, err = repo.FindByID(ctx, drinks.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCategoryRepository_EmptyList(t *testing.T) {
	list, err := NewCategoryRepository(newTestDB(t)).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestProductRepository_ListAndCategoryOperations(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	categories := NewCategoryRepository(gormDB)
	products := NewProductRepository(gormDB)

	drinks := &model.Category{Name: "Drinks"}
	snacks := &model.Category{Name: "Snacks"}
	require.NoError(t, categories.Create(ctx, drinks))
	require.NoError(t, categories.Create(ctx, snacks))

	cola := &model.Product{Name: "Cola", Price: decimal.RequireFromString("1.50"), CategoryID: &drinks.ID, IsAvailable: true}
	water := &model.Product{Name: "Water", Price: decimal.RequireFromString("0.99"), CategoryID: &drinks.ID, IsAvailable: false}
	chips := &model.Product{Name: "Chips", Price: decimal.RequireFromString("2.25"), CategoryID: &snacks.ID, IsAvailable: true}
	for _, p := range []*model.Product{cola, water, chips} {
		require.NoError(t, products.Create(ctx, p))
	}

	all, err := products.List(ctx, ProductFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []uint{cola.ID, water.ID, chips.ID}, []uint{all[0].ID, all[1].ID, all[2].ID})
	assert.False(t, all[1].IsAvailable)
	assert.True(t, all[0].Price.Equal(decimal.RequireFromString("1.5")))

	inDrinks, err := products.List(ctx, ProductFilter{CategoryID: &drinks.ID})
	require.NoError(t, err)
	assert.Len(t, inDrinks, 2)

	count, err := products.CountByCategory(ctx, drinks.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	found, err := products.FindByNameInCategory(ctx, "Chips", snacks.ID)
	require.NoError(t, err)
	assert.Equal(t, chips.ID, found.ID)
	_, err = products.FindByNameInCategory(ctx, "Chips", drinks.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	cleared, err := products.ClearCategory(ctx, drinks.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{cola.ID, water.ID}, cleared)
	got, err := products.FindByID(ctx, cola.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)

	deleted, err := products.DeleteByCategory(ctx, snacks.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{chips.ID}, deleted)
	_, err = products.FindByID(ctx, chips.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	none, err := products.DeleteByCategory(ctx, snacks.ID)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestProductRepository_UpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	drinks := &model.Category{Name: "Drinks"}
	require.NoError(t, NewCategoryRepository(gormDB).Create(ctx, drinks))
	products := NewProductRepository(gormDB)

	p := &model.Product{Name: "Cola", Price: decimal.NewFromInt(2), CategoryID: &drinks.ID, IsAvailable: true, ImageURL: strPtr("http://img/cola.png")}
	require.NoError(t, products.Create(ctx, p))

	p.IsAvailable = false
	p.ImageURL = nil
	p.Price = decimal.RequireFromString("2.75")
	require.NoError(t, products.Update(ctx, p))

	got, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.IsAvailable)
	assert.Nil(t, got.ImageURL)
	assert.Equal(t, "2.75", got.Price.StringFixed(2))

	require.NoError(t, products.Delete(ctx, p.ID))
	assert.ErrorIs(t, products.Delete(ctx, p.ID), gorm.ErrRecordNotFound)
}

func TestAuditLogRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewAuditLogRepository(newTestDB(t))

	require.NoError(t, repo.Create(ctx, &model.AuditLog{EntityType: model.EntityCategory, EntityID: 1, Action: model.AuditActionCreate, ActorEmail: "m@x.com"}))
	require.NoError(t, repo.Create(ctx, &model.AuditLog{EntityType: model.EntityProduct, EntityID: 7, Action: model.AuditActionCreate, ActorEmail: "m@x.com"}))
	require.NoError(t, repo.Create(ctx, &model.AuditLog{EntityType: model.EntityProduct, EntityID: 7, Action: model.AuditActionDelete, ActorEmail: "m@x.com"}))

	all, err := repo.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	onlyProducts, err := repo.List(ctx, model.EntityProduct, 0)
	require.NoError(t, err)
	assert.Len(t, onlyProducts, 2)
	for _, l := range onlyProducts {
		assert.Equal(t, model.EntityProduct, l.EntityType)
		assert.NotEmpty(t, l.ID.String())
	}

	limited, err := repo.List(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestTransactor_RollsBackOnError(t *testing.T) {
	ctx := context.Background()
	gormDB := newTestDB(t)
	tx := NewTransactor(gormDB)
	boom := errors.New("boom")

	err := tx.WithTransaction(ctx, func(ctx context.Context, repos *Repositories) error {
		if err := repos.Categories.Create(ctx, &model.Category{Name: "Ghost"}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = NewCategoryRepository(gormDB).FindByName(ctx, "Ghost")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = tx.WithTransaction(ctx, func(ctx context.Context, repos *Repositories) error {
		return repos.Categories.Create(ctx, &model.Category{Name: "Real"})
	})
	require.NoError(t, err)
	_, err = NewCategoryRepository(gormDB).FindByName(ctx, "Real")
	assert.NoError(t, err)
}
