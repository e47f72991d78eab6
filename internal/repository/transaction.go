package repository

import (
	"context"

	"gorm.io/gorm"
)

// Repositories bundles repositories sharing one connection or transaction.
type Repositories struct {
	Users      UserRepository
	Categories CategoryRepository
	Products   ProductRepository
	AuditLogs  AuditLogRepository
}

// NewRepositories builds every GORM-backed repository on db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:      NewUserRepository(db),
		Categories: NewCategoryRepository(db),
		Products:   NewProductRepository(db),
		AuditLogs:  NewAuditLogRepository(db),
	}
}

// Transactor runs a unit of work atomically.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error
}

type gormTransactor struct {
	db *gorm.DB
}

// NewTransactor creates a Transactor backed by db.
func NewTransactor(db *gorm.DB) Transactor {
	return &gormTransactor{db: db}
}

// WithTransaction executes fn with repositories bound to a single database
// transaction; it commits when fn returns nil and rolls back otherwise.
func (t *gormTransactor) WithTransaction(ctx context.Context, fn func(ctx context.Context, repos *Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewRepositories(tx))
	})
}
