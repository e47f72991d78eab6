package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"storefront/internal/auth"
	errs "storefront/internal/errors"
	"storefront/internal/model"
	"storefront/internal/repository"
)

// SignupInput carries the fields required to register a user.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// AuthResult is returned by a successful signup or login.
type AuthResult struct {
	User  *model.User
	Token string
}

// AuthService handles authentication operations.
type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
}

type authService struct {
	users      repository.UserRepository
	jwtService *auth.JWTService
}

// NewAuthService creates a new authentication service.
func NewAuthService(users repository.UserRepository, jwtService *auth.JWTService) AuthService {
	return &authService{
		users:      users,
		jwtService: jwtService,
	}
}

// NormalizeEmail trims and lower-cases an email so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates a user with a hashed password and returns a fresh token.
func (s *authService) Signup(ctx context.Context, in SignupInput) (*AuthResult, error) {
	email := NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	if email == "" || in.Password == "" || username == "" || in.Role == "" {
		return nil, errs.Validation("missing required fields")
	}
	role, ok := model.ParseRole(in.Role)
	if !ok {
		return nil, errs.Validation("invalid role, choose from 'admin', 'store_manager' or 'customer'")
	}

	existing, err := s.users.FindByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, errs.ErrUserAlreadyExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		// a concurrent signup can win between the lookup and the insert
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errs.ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwtService.GenerateToken(user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// Login verifies credentials and returns a fresh token. Earlier tokens stay valid.
func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, errs.Validation("missing email or password")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			auth.BurnPasswordCheck(password)
			return nil, errs.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, errs.ErrInvalidCredentials
	}

	token, err := s.jwtService.GenerateToken(user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{User: user, Token: token}, nil
}
