package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/campusdocs/proof-archive/internal/auth"
	"github.com/campusdocs/proof-archive/internal/models"
	"github.com/campusdocs/proof-archive/internal/repositories"
	"github.com/campusdocs/proof-archive/internal/validator"
)

type authService struct {
	repo      repositories.Repository
	db        *gorm.DB
	logger    *slog.Logger
	validator *validator.Validator
	tokens    TokenIssuer
	now       func() time.Time
}

func NewAuthService(repo repositories.Repository, db *gorm.DB, logger *slog.Logger, validator *validator.Validator, tokens TokenIssuer) AuthService {
	return &authService{
		repo:      repo,
		db:        db,
		logger:    logger,
		validator: validator,
		tokens:    tokens,
		now:       time.Now,
	}
}

func (s *authService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, validationFailed(validator.ToValidationErrors(err))
	}

	user, err := s.repo.User().GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			s.logger.Info("Login rejected", "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		s.logger.Info("Login rejected", "user_id", user.ID, "reason", "password mismatch")
		return nil, ErrInvalidCredentials
	}

	token, session, err := s.tokens.Issue(user)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	s.logger.Info("User logged in", "user_id", user.ID, "role", user.Role)

	return &LoginResponse{
		Message:   "Login successful",
		User:      user.Public(),
		Token:     token,
		ExpiresAt: session.ExpiresAt,
	}, nil
}

func (s *authService) Logout(ctx context.Context, session *auth.Session) error {
	if session == nil {
		return ErrUnauthorized
	}
	err := s.repo.Token().Revoke(ctx, &models.RevokedToken{
		TokenID:   session.TokenID,
		UserID:    session.UserID,
		ExpiresAt: session.ExpiresAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	s.logger.Info("User logged out", "user_id", session.UserID)
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*models.User, *auth.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil, ErrUnauthorized
	}

	session, err := s.tokens.Parse(token)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	revoked, err := s.repo.Token().IsRevoked(ctx, session.TokenID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to check session: %w", err)
	}
	if revoked {
		return nil, nil, fmt.Errorf("%w: session revoked", ErrUnauthorized)
	}

	user, err := s.repo.User().GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: account no longer exists", ErrUnauthorized)
		}
		return nil, nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return user, session, nil
}

// CheckLegacyIdentity accepts empty fields. Role comparison is case-insensitive.
func (s *authService) CheckLegacyIdentity(user *models.User, legacy LegacyIdentity) error {
	if id := strings.TrimSpace(legacy.UserID); id != "" {
		parsed, err := strconv.ParseUint(id, 10, 64)
		if err != nil || uint(parsed) != user.ID {
			return ErrIdentityMismatch
		}
	}
	if role := strings.TrimSpace(legacy.UserRole); role != "" {
		if !strings.EqualFold(role, string(user.Role)) {
			return ErrIdentityMismatch
		}
	}
	return nil
}

func (s *authService) CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Validate(req); err != nil {
		return nil, validationFailed(validator.ToValidationErrors(err))
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Name:     req.Name,
		Email:    req.Email,
		Role:     req.Role,
		Password: hash,
	}
	if err := s.repo.User().Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, fmt.Errorf("%w: email %s is already registered", ErrConflict, req.Email)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info("User created", "user_id", user.ID, "role", user.Role)
	return user, nil
}

func (s *authService) PurgeRevokedTokens(ctx context.Context) (int64, error) {
	n, err := s.repo.Token().PurgeExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("Purged expired revoked tokens", "count", n)
	}
	return n, nil
}
