package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/nagrik-sahayak/pkg/logging"
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(userID string) (string, error)
}

// LoginResult is returned on successful sign-in.
type LoginResult struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Mobile string `json:"mobile"`
	Status string `json:"status"`
	Token  string `json:"token"`
}

// Service implements registration, login, and profile management.
type Service struct {
	repo   Repository
	tokens TokenIssuer
	logger *logging.Logger
}

// NewService wires a user service.
func NewService(repo Repository, tokens TokenIssuer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{repo: repo, tokens: tokens, logger: logger}
}

// Register creates a user with default preferences.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	mobile := NormalizeMobile(req.Mobile)
	if _, err := s.repo.GetByMobile(ctx, mobile); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &User{
		Name:         strings.TrimSpace(req.Name),
		Mobile:       mobile,
		PasswordHash: hash,
		Language:     DefaultLanguage,
		AIUpdates:    DefaultAIUpdates,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and issues a token.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	user, err := s.repo.GetByMobile(ctx, NormalizeMobile(req.Mobile))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	ok, err := CheckPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, fmt.Errorf("users: issue token: %w", err)
	}
	return &LoginResult{
		ID:     user.ID,
		Name:   user.Name,
		Mobile: user.Mobile,
		Status: "success",
		Token:  token,
	}, nil
}

// Get returns a user by ID.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// DisplayName resolves a user's name; ok is false when the user does not exist.
func (s *Service) DisplayName(ctx context.Context, id string) (string, bool, error) {
	user, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, ErrUserNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return user.Name, true, nil
}

// UpdateProfile renames a user.
func (s *Service) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) error {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return ErrInvalidName
	}
	return s.repo.UpdateName(ctx, id, name)
}

// UpdatePreferences changes language and AI update settings.
func (s *Service) UpdatePreferences(ctx context.Context, id string, req UpdatePreferencesRequest) error {
	lang := strings.TrimSpace(req.Language)
	if lang == "" {
		return ErrInvalidLanguage
	}
	return s.repo.UpdatePreferences(ctx, id, lang, req.AIUpdates)
}
