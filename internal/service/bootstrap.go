package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gorm.io/gorm"

	"storefront/internal/auth"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// AdminAccount describes the default administrator created on first start.
// An empty Password makes the bootstrapper generate one.
type AdminAccount struct {
	Email    string
	Username string
	Password string
}

// Bootstrapper seeds the default administrator account.
type Bootstrapper struct {
	users  repository.UserRepository
	admin  AdminAccount
	notice io.Writer
}

// NewBootstrapper creates a new bootstrapper.
func NewBootstrapper(users repository.UserRepository, admin AdminAccount) *Bootstrapper {
	return &Bootstrapper{users: users, admin: admin, notice: os.Stderr}
}

// WithNotice sets where a generated admin password is printed. Defaults to stderr.
func (b *Bootstrapper) WithNotice(w io.Writer) *Bootstrapper {
	b.notice = w
	return b
}

// EnsureAdmin creates the administrator when no user with its email exists.
// It reports whether a user was created. Existing users are never modified.
func (b *Bootstrapper) EnsureAdmin(ctx context.Context) (bool, error) {
	email := NormalizeEmail(b.admin.Email)
	if email == "" {
		return false, fmt.Errorf("admin email is not configured")
	}

	_, err := b.users.FindByEmail(ctx, email)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("check admin existence: %w", err)
	}

	password := b.admin.Password
	generated := password == ""
	if generated {
		password, err = randomPassword()
		if err != nil {
			return false, fmt.Errorf("generate admin password: %w", err)
		}
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}

	username := b.admin.Username
	if username == "" {
		username = "admin"
	}
	admin := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         model.RoleAdmin,
	}
	if err := b.users.Create(ctx, admin); err != nil {
		// another instance bootstrapped first
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, fmt.Errorf("create admin: %w", err)
	}

	if generated {
		slog.WarnContext(ctx, "default admin created with a generated password, change it or set ADMIN_PASSWORD",
			"email", email)
		fmt.Fprintf(b.notice, "generated password for %s: %s\n", email, password)
	} else {
		slog.InfoContext(ctx, "default admin created", "email", email)
	}
	return true, nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
