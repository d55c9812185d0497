package services

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/yigit/hostelhub/internal/app/models"
	"github.com/yigit/hostelhub/internal/app/models/dto"
	"github.com/yigit/hostelhub/internal/pkg/apperrors"
)

// TokenIssuer signs access tokens
type TokenIssuer interface {
	GenerateAccessToken(user *models.User) (string, int64, error)
}

// PasswordChecker compares a stored hash with a plain-text password
type PasswordChecker func(hashedPassword, password string) bool

// AuthService handles login
type AuthService struct {
	accounts      AccountStore
	tokens        TokenIssuer
	checkPassword PasswordChecker
	logger        zerolog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(accounts AccountStore, tokens TokenIssuer, checkPassword PasswordChecker, logger zerolog.Logger) *AuthService {
	return &AuthService{
		accounts:      accounts,
		tokens:        tokens,
		checkPassword: checkPassword,
		logger:        logger,
	}
}

// Login exchanges credentials for an access token
func (s *AuthService) Login(ctx context.Context, req dto.LoginRequest) (*dto.AuthResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" || req.Password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.accounts.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive || !s.checkPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	token, expiresIn, err := s.tokens.GenerateAccessToken(user)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.UpdateLastLogin(ctx, user.ID, timeNow()); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to record last login")
	}

	return &dto.AuthResponse{
		Token: dto.TokenResponse{
			AccessToken: token,
			TokenType:   "Bearer",
			ExpiresIn:   expiresIn,
		},
		User: dto.UserResponse{
			ID:       user.ID,
			Username: user.Username,
			FullName: user.FullName,
			Role:     string(user.RoleType),
			HostelID: user.HostelID,
		},
	}, nil
}
