package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"storefront/internal/cache"
	errs "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// UserDirectory is the read-only view of registered users offered to admins.
type UserDirectory interface {
	Get(ctx context.Context, id uint) (*model.User, error)
	List(ctx context.Context) ([]model.User, error)
}

type userDirectory struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserDirectory builds a UserDirectory with repository and cache.
func NewUserDirectory(repo repository.UserRepository, cache *cache.Client) UserDirectory {
	return &userDirectory{repo: repo, cache: cache}
}

func userCacheKey(id uint) string {
	return fmt.Sprintf("user:%d", id)
}

func (s *userDirectory) Get(ctx context.Context, id uint) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, userCacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	// the hash is tagged json:"-", so cached entries never carry it
	s.cache.SetJSON(ctx, userCacheKey(id), user, userCacheTTL)
	return user, nil
}

func (s *userDirectory) List(ctx context.Context) ([]model.User, error) {
	users, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}
