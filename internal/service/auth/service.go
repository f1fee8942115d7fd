package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/kirinyoku/tixhub/internal/domain"
	"github.com/kirinyoku/tixhub/internal/repository"
)

type Config struct {
	Secret     []byte
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

type UserStore interface {
	Create(ctx context.Context, u domain.User) (int64, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
}

type RefreshStore interface {
	Save(ctx context.Context, tokenHash string, userID int64, ttl time.Duration) error
	Consume(ctx context.Context, tokenHash string) (int64, error)
	Revoke(ctx context.Context, tokenHash string) error
}

// Tokens is the credential pair handed to clients on login and refresh.
type Tokens struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

type Service struct {
	users   UserStore
	refresh RefreshStore
	cfg     Config
	now     func() time.Time
}

func New(users UserStore, refresh RefreshStore, cfg Config) *Service {
	if cfg.Issuer == "" {
		cfg.Issuer = "tixhub"
	}

	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = 15 * time.Minute
	}

	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = 30 * 24 * time.Hour
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}

	return &Service{
		users:   users,
		refresh: refresh,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Register creates a user with the default role.
//
// Returns:
//   - *domain.User: the created user.
//   - error: auth.ErrUserExists if the username or email is taken.
func (s *Service) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	const op = "service.auth.Register"

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u := domain.User{
		Username:     strings.TrimSpace(username),
		Email:        strings.ToLower(strings.TrimSpace(email)),
		PasswordHash: string(hash),
		Roles:        []string{domain.RoleUser},
	}

	u.ID, err = s.users.Create(ctx, u)
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserExists)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &u, nil
}

// Login checks a username or email and password and issues tokens.
//
// Returns:
//   - error: auth.ErrInvalidCredentials for an unknown user or wrong password.
func (s *Service) Login(ctx context.Context, login, password string) (*Tokens, error) {
	const op = "service.auth.Login"

	u, err := s.users.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	tokens, err := s.issue(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tokens, nil
}

// Refresh exchanges a refresh token for a new token pair. The presented
// refresh token is revoked.
//
// Returns:
//   - error: auth.ErrInvalidRefreshToken if the token is unknown, used or
//     expired, or its user no longer exists. Store failures are returned
//     wrapped as they are.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Tokens, error) {
	const op = "service.auth.Refresh"

	if refreshToken == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
	}

	userID, err := s.refresh.Consume(ctx, hashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrInvalidRefreshToken)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := s.issue(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tokens, nil
}

func (s *Service) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.refresh.Revoke(ctx, hashRefreshToken(refreshToken))
}

func (s *Service) Profile(ctx context.Context, userID int64) (*domain.User, error) {
	const op = "service.auth.Profile"

	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return u, nil
}

func (s *Service) issue(ctx context.Context, u *domain.User) (*Tokens, error) {
	access, err := s.issueAccessToken(u)
	if err != nil {
		return nil, err
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}

	if err := s.refresh.Save(ctx, hashRefreshToken(refresh), u.ID, s.cfg.RefreshTTL); err != nil {
		return nil, err
	}

	return &Tokens{Token: access, RefreshToken: refresh}, nil
}
